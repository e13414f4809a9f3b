package services_test

import (
	"testing"
	"time"

	"pickup-service/models"
	"pickup-service/services"

	"github.com/stretchr/testify/assert"
)

func TestPresentCountdown(t *testing.T) {
	deadline := time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		now    time.Time
		status string
		want   string
	}{
		{"seconds remaining", deadline.Add(-5 * time.Second), models.StatusPending, "5s"},
		{"minutes and seconds", deadline.Add(-(2*time.Minute + 30*time.Second)), models.StatusPending, "2m 30s"},
		{"hours minutes seconds", deadline.Add(-(2*time.Hour + 5*time.Minute + 10*time.Second)), models.StatusPending, "2h 5m 10s"},
		{"full window", deadline.Add(-48 * time.Hour), models.StatusPending, "2d 0h 0m 0s"},
		{"intermediate zero units kept", deadline.Add(-(26*time.Hour + 15*time.Second)), models.StatusPending, "1d 2h 0m 15s"},
		{"exactly at deadline", deadline, models.StatusPending, "0s"},
		{"just past deadline", deadline.Add(5 * time.Second), models.StatusPending, "Expired 5s ago"},
		{"long overdue", deadline.Add(3*time.Hour + 2*time.Minute + 10*time.Second), models.StatusPending, "Expired 3h 2m 10s ago"},
		{"expired status uses elapsed form", deadline.Add(45 * time.Second), models.StatusExpired, "Expired 45s ago"},
		{"sold ignores time", deadline.Add(time.Hour), models.StatusSold, "Sold"},
		{"sold before deadline too", deadline.Add(-time.Hour), models.StatusSold, "Sold"},
		{"returned label", deadline.Add(time.Hour), models.StatusReturned, "Returned"},
		{"transferred label", deadline.Add(time.Hour), models.StatusTransferred, "Transferred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := services.PresentCountdown(deadline, tt.now, tt.status)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestPresentCountdown_BoundaryContinuity steps a pending record across its
// deadline and checks the display flips form without any gap or jump.
func TestPresentCountdown_BoundaryContinuity(t *testing.T) {
	deadline := time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, "2s", services.PresentCountdown(deadline, deadline.Add(-2*time.Second), models.StatusPending))
	assert.Equal(t, "1s", services.PresentCountdown(deadline, deadline.Add(-time.Second), models.StatusPending))
	assert.Equal(t, "0s", services.PresentCountdown(deadline, deadline, models.StatusPending))
	assert.Equal(t, "Expired 1s ago", services.PresentCountdown(deadline, deadline.Add(time.Second), models.StatusPending))
	assert.Equal(t, "Expired 2s ago", services.PresentCountdown(deadline, deadline.Add(2*time.Second), models.StatusPending))
}
