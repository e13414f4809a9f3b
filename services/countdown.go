package services

import (
	"fmt"
	"strings"
	"time"

	"pickup-service/models"
)

// Status labels shown instead of a countdown once a record is terminal.
var statusLabels = map[string]string{
	models.StatusSold:        "Sold",
	models.StatusReturned:    "Returned",
	models.StatusTransferred: "Transferred",
}

// PresentCountdown renders the deadline of a pickup for display. It is a pure
// function of its inputs so every role's view and every refresh tick renders
// the same value for the same instant.
//
// Terminal records (other than expired) show their status label. Otherwise the
// time to or since the deadline is decomposed into the largest applicable
// units, e.g. "2h 5m 10s" remaining or "Expired 3h 2m 10s ago".
func PresentCountdown(deadline, now time.Time, status string) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}

	if !now.After(deadline) {
		return formatUnits(deadline.Sub(now))
	}
	return fmt.Sprintf("Expired %s ago", formatUnits(now.Sub(deadline)))
}

// formatUnits decomposes a duration into days, hours, minutes and seconds,
// dropping leading zero units but always keeping seconds.
func formatUnits(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)

	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if len(parts) > 0 || hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if len(parts) > 0 || minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}
