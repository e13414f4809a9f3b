package controllers

import (
	"net/http"

	"pickup-service/models"
	"pickup-service/repository"
	"pickup-service/services"

	"github.com/gin-gonic/gin"
)

// StockController exposes the thin catalog surface and the manual sweep
// trigger. Catalog management itself lives elsewhere; this only bootstraps
// and inspects the counters the engine guards.
type StockController struct {
	stockRepo repository.StockRepository
	sweeper   *services.Sweeper
}

// NewStockController creates a new StockController.
func NewStockController(stockRepo repository.StockRepository, sweeper *services.Sweeper) *StockController {
	return &StockController{stockRepo: stockRepo, sweeper: sweeper}
}

// ListStock returns dealer stock levels
// GET /stocks/:dealerId
func (sc *StockController) ListStock(c *gin.Context) {
	dealerID := c.Param("dealerId")
	if dealerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing dealer ID"})
		return
	}

	stocks, err := sc.stockRepo.ListByDealer(c.Request.Context(), dealerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stock"})
		return
	}

	c.JSON(http.StatusOK, stocks)
}

// SetStock initializes or overwrites stock for a SKU
// POST /stocks
func (sc *StockController) SetStock(c *gin.Context) {
	var req models.SetStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": bindingDetails(err)})
		return
	}

	if req.AvailableQuantity > req.OverallQuantity {
		c.JSON(http.StatusBadRequest, gin.H{"error": "available_quantity exceeds overall_quantity"})
		return
	}

	stock := &models.DeviceStock{
		DealerID:          req.DealerID,
		DeviceName:        req.DeviceName,
		DeviceModel:       req.DeviceModel,
		AvailableQuantity: req.AvailableQuantity,
		OverallQuantity:   req.OverallQuantity,
	}
	if err := sc.stockRepo.Set(c.Request.Context(), stock); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to set stock"})
		return
	}

	c.JSON(http.StatusCreated, stock)
}

// Sweep forces an expiry sweep and reports how many records transitioned
// POST /stocks/sweep
func (sc *StockController) Sweep(c *gin.Context) {
	count, err := sc.sweeper.SweepOnce(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sweep failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"expired": count})
}
