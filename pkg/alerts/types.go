package alerts

import (
	"context"

	"github.com/ogulcanaydogan/miro-guardian/pkg/model"
)

// AlertLevel indicates which license message variant an alert carries.
type AlertLevel string

const (
	LevelWithinLimit AlertLevel = "within_limit" // Used licenses at or below the total
	LevelOverage     AlertLevel = "overage"      // Used licenses above the total
)

// Alert is a rendered license decision ready for delivery.
type Alert struct {
	Level   AlertLevel         `json:"level"`
	OrgID   string             `json:"org_id,omitempty"`
	Message model.AlertMessage `json:"message"`
	Text    string             `json:"text"`
}

// NewAlert renders a decision for the given organization.
func NewAlert(orgID string, msg model.AlertMessage) Alert {
	return Alert{
		Level:   LevelOf(msg),
		OrgID:   orgID,
		Message: msg,
		Text:    Render(orgID, msg),
	}
}

// LevelOf returns the level matching a message variant.
func LevelOf(msg model.AlertMessage) AlertLevel {
	if _, ok := msg.(model.Overage); ok {
		return LevelOverage
	}
	return LevelWithinLimit
}

// Notifier sends alerts to external systems.
type Notifier interface {
	// Name returns the notifier identifier.
	Name() string

	// Send delivers an alert. Implementations must be safe for concurrent use.
	Send(ctx context.Context, alert Alert) error
}
