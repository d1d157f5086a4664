package audit

import "time"

// Action names the thing that happened to the gate.
type Action string

const (
	// ActionOpen is an explicit open request.
	ActionOpen Action = "open"
	// ActionClose is an explicit close request.
	ActionClose Action = "close"
	// ActionAutoClose is the autonomous close after the dwell period.
	ActionAutoClose Action = "auto_close"
	// ActionAlert is a missed operation deadline.
	ActionAlert Action = "alert"
	// ActionClearAlert is an alert acknowledgement.
	ActionClearAlert Action = "clear_alert"
)

// SystemActor performs autonomous actions.
const SystemActor = "system"

// tokenKeep is how many characters of a token survive on each side.
const tokenKeep = 20

// Actor identifies who requested an action.
type Actor struct {
	// Subject is the stable identity provider ID.
	Subject string
	// Name is the human-readable user name.
	Name string
}

// Event is one published audit record.
type Event struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Action      Action    `json:"action"`
	Authorized  bool      `json:"authorized"`
	DeviceID    string    `json:"device_id"`
	Sub         string    `json:"sub,omitempty"`
	Name        string    `json:"name,omitempty"`
	Token       string    `json:"token,omitempty"`
	OperationID string    `json:"operation_id,omitempty"`
	Detail      string    `json:"detail,omitempty"`
}

// TruncateToken keeps the first and last 20 characters of a long token.
func TruncateToken(token string) string {
	if len(token) <= tokenKeep*2 {
		return token
	}

	return token[:tokenKeep] + "..." + token[len(token)-tokenKeep:]
}
