// Package notify bridges WIP tracking events to chat platforms (Slack,
// Discord, etc.).
package notify

import "context"

// Notifier is the interface that platform-specific implementations must
// satisfy. Adapters are outbound-only: the engine pushes digests and alerts,
// it never reads chat.
type Notifier interface {
	// Send delivers one event to the platform.
	Send(ctx context.Context, evt Event) error

	// Close gracefully shuts down the adapter connection.
	Close() error
}

// Event is a plant event formatted for display in chat.
type Event struct {
	Title    string  // headline (e.g. "Shift digest for plant hermosillo")
	Body     string  // detail text
	Severity string  // "info", "warning", "error", "success"
	Fields   []Field // key-value metadata pairs
}

// Field is a key-value pair displayed alongside an event.
type Field struct {
	Name  string
	Value string
	Short bool // hint: render side-by-side with another field
}

// Severity color hints shared by the adapters.
const (
	ColorInfo    = "#4fa3ff"
	ColorSuccess = "#36a64f"
	ColorWarning = "#e8a317"
	ColorError   = "#d00000"
)

// SeverityColor maps an Event severity to its sidebar color hint.
func SeverityColor(severity string) string {
	switch severity {
	case "success":
		return ColorSuccess
	case "warning":
		return ColorWarning
	case "error":
		return ColorError
	default:
		return ColorInfo
	}
}
