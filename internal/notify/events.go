package notify

import "fmt"

// ScrapEvent formats a lot-scrapped alert.
func ScrapEvent(lot, partNumber string, units uint) Event {
	return Event{
		Title:    fmt.Sprintf("Lot %s scrapped", lot),
		Body:     fmt.Sprintf("Lot %s (%s) was scrapped with %d units lost.", lot, partNumber, units),
		Severity: "error",
		Fields: []Field{
			{Name: "Lot", Value: lot, Short: true},
			{Name: "Part", Value: partNumber, Short: true},
			{Name: "Units lost", Value: fmt.Sprintf("%d", units), Short: true},
		},
	}
}

// CancelEvent formats a lot-cancelled alert.
func CancelEvent(lot, partNumber, reason string) Event {
	if reason == "" {
		reason = "not given"
	}
	return Event{
		Title:    fmt.Sprintf("Lot %s cancelled", lot),
		Body:     fmt.Sprintf("Lot %s (%s) was cancelled and scrapped.", lot, partNumber),
		Severity: "error",
		Fields: []Field{
			{Name: "Lot", Value: lot, Short: true},
			{Name: "Part", Value: partNumber, Short: true},
			{Name: "Reason", Value: reason, Short: false},
		},
	}
}

// HoldEvent formats a rework-hold alert.
func HoldEvent(lot, partNumber, reason string) Event {
	if reason == "" {
		reason = "not given"
	}
	return Event{
		Title:    fmt.Sprintf("Lot %s on rework hold", lot),
		Body:     fmt.Sprintf("Lot %s (%s) was placed on rework hold. Scans are blocked until release.", lot, partNumber),
		Severity: "warning",
		Fields: []Field{
			{Name: "Lot", Value: lot, Short: true},
			{Name: "Part", Value: partNumber, Short: true},
			{Name: "Reason", Value: reason, Short: false},
		},
	}
}
