package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"pickup-service/middleware"
	"pickup-service/models"
	"pickup-service/repository"
	"pickup-service/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// PickupController handles HTTP requests for the pickup lifecycle.
type PickupController struct {
	service *services.PickupService
}

// NewPickupController creates a new PickupController.
func NewPickupController(service *services.PickupService) *PickupController {
	return &PickupController{service: service}
}

// CreatePickup reserves stock for the requesting marketer
// POST /pickups
func (pc *PickupController) CreatePickup(c *gin.Context) {
	marketerID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CreatePickupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": bindingDetails(err)})
		return
	}

	record, err := pc.service.CreatePickup(c.Request.Context(), marketerID, &req)
	if err != nil {
		respondPickupError(c, err, nil)
		return
	}

	c.JSON(http.StatusCreated, record)
}

// ListPickups returns the records visible to the viewer
// GET /pickups
func (pc *PickupController) ListPickups(c *gin.Context) {
	viewerID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	role := middleware.GetUserRole(c)

	filter := models.PickupFilter{
		Status:   c.Query("status"),
		DealerID: c.Query("dealer_id"),
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	records, total, err := pc.service.ListPickups(c.Request.Context(), viewerID, role, filter)
	if err != nil {
		respondPickupError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pickups": records,
		"meta": gin.H{
			"page":      filter.Page,
			"page_size": filter.PageSize,
			"total":     total,
		},
	})
}

// GetPickup returns one record
// GET /pickups/:id
func (pc *PickupController) GetPickup(c *gin.Context) {
	viewerID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid pickup id"})
		return
	}

	record, err := pc.service.GetPickup(c.Request.Context(), id, viewerID, middleware.GetUserRole(c))
	if err != nil {
		respondPickupError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, record)
}

// ConfirmSale transitions a pending pickup to sold
// POST /pickups/:id/confirm
func (pc *PickupController) ConfirmSale(c *gin.Context) {
	pc.transition(c, func(actorID, role string, id uuid.UUID) (*models.PickupRecord, error) {
		return pc.service.ConfirmSale(c.Request.Context(), id, actorID, role)
	})
}

// ReturnPickup transitions a pending pickup to returned and restores stock
// POST /pickups/:id/return
func (pc *PickupController) ReturnPickup(c *gin.Context) {
	pc.transition(c, func(actorID, role string, id uuid.UUID) (*models.PickupRecord, error) {
		return pc.service.ReturnPickup(c.Request.Context(), id, actorID, role)
	})
}

// TransferPickup closes a pending pickup and opens one for another marketer
// POST /pickups/:id/transfer
func (pc *PickupController) TransferPickup(c *gin.Context) {
	actorID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid pickup id"})
		return
	}

	var req models.TransferPickupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": bindingDetails(err)})
		return
	}

	original, successor, err := pc.service.TransferPickup(c.Request.Context(), id, req.NewMarketerID, actorID, middleware.GetUserRole(c))
	if err != nil {
		respondPickupError(c, err, original)
		return
	}

	c.JSON(http.StatusOK, gin.H{"original": original, "successor": successor})
}

// Countdown renders the deadline display string for a record
// GET /pickups/:id/countdown
func (pc *PickupController) Countdown(c *gin.Context) {
	viewerID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid pickup id"})
		return
	}

	record, err := pc.service.GetPickup(c.Request.Context(), id, viewerID, middleware.GetUserRole(c))
	if err != nil {
		respondPickupError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pickup_id": record.ID,
		"status":    record.Status,
		"deadline":  record.Deadline,
		"countdown": services.PresentCountdown(record.Deadline, pc.service.Now(), record.Status),
	})
}

func (pc *PickupController) transition(c *gin.Context, op func(actorID, role string, id uuid.UUID) (*models.PickupRecord, error)) {
	actorID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid pickup id"})
		return
	}

	record, err := op(actorID, middleware.GetUserRole(c), id)
	if err != nil {
		respondPickupError(c, err, record)
		return
	}

	c.JSON(http.StatusOK, record)
}

// respondPickupError maps engine errors to HTTP responses. For invalid
// transitions the current status and deadline ride along so the caller can
// tell "already sold" from "expired".
func respondPickupError(c *gin.Context, err error, record *models.PickupRecord) {
	switch {
	case errors.Is(err, services.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrInsufficientStock):
		c.JSON(http.StatusConflict, gin.H{"error": "Insufficient stock"})
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrStockNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrInvalidTransition):
		body := gin.H{"error": "Pickup is no longer pending"}
		if record != nil {
			body["status"] = record.Status
			body["deadline"] = record.Deadline
		}
		c.JSON(http.StatusConflict, body)
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// bindingDetails flattens validation failures into field-level messages.
func bindingDetails(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
		}
		return strings.Join(msgs, "; ")
	}
	return err.Error()
}
