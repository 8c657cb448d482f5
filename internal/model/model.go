// Package model defines the core domain types for training-session
// registration.
package model

import "time"

// Status is the lifecycle state of a Registration.
type Status string

const (
	StatusConfirmed  Status = "confirmed"
	StatusWaitlisted Status = "waitlisted"
	StatusCancelled  Status = "cancelled"
	StatusAttended   Status = "attended"
	StatusNoShow     Status = "no_show"
)

// Active reports whether the registration holds a seat or a waitlist place.
func (s Status) Active() bool {
	return s == StatusConfirmed || s == StatusWaitlisted
}

// SessionStatus is the lifecycle state of a Session.
type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionCancelled SessionStatus = "cancelled"
	SessionCompleted SessionStatus = "completed"
)

// Session is a single training occurrence players register for.
type Session struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	// Date is the calendar day of the session; only its year, month and day
	// are meaningful.
	Date      time.Time `json:"date"`
	StartTime string    `json:"start_time"` // "18:30"
	EndTime   string    `json:"end_time"`
	// FieldsAvailable is the number of pitches booked for the session.
	FieldsAvailable int `json:"fields_available"`
	// CapacityConstraints is the persisted constraint text, e.g.
	// "max_18,min_12,even".
	CapacityConstraints       string        `json:"capacity_constraints"`
	CancellationDeadlineHours int           `json:"cancellation_deadline_hours"`
	Status                    SessionStatus `json:"status"`
	CreatedAt                 time.Time     `json:"created_at"`
}

// Registration is a player's claim on a session, confirmed or waitlisted.
type Registration struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	PlayerID  string `json:"player_id"`
	Status    Status `json:"status"`
	// PriorityScore orders the waitlist; higher is promoted sooner.
	PriorityScore *float64 `json:"priority_score,omitempty"`
	// Position is the 1-based order within the registration's status group.
	Position *int `json:"position,omitempty"`
	// WaitlistPosition keeps the last waitlist position after a promotion.
	WaitlistPosition   *int       `json:"waitlist_position,omitempty"`
	RegisteredAt       time.Time  `json:"registered_at"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	CancellationToken  string     `json:"-"`
	IsTrainer          bool       `json:"is_trainer"`
}

// CreateSessionRequest is the payload for creating a session.
type CreateSessionRequest struct {
	Title                     string `json:"title"`
	Date                      string `json:"date"` // "2026-02-10"
	StartTime                 string `json:"start_time"`
	EndTime                   string `json:"end_time"`
	FieldsAvailable           int    `json:"fields_available"`
	CapacityConstraints       string `json:"capacity_constraints"`
	CancellationDeadlineHours int    `json:"cancellation_deadline_hours"`
}

// RegisterRequest is the payload for registering for a session.
type RegisterRequest struct {
	PlayerID      string   `json:"player_id"`
	PriorityScore *float64 `json:"priority_score,omitempty"`
	IsTrainer     bool     `json:"is_trainer,omitempty"`
}

// RegisterResponse carries the created registration and, only to the caller
// who registered, the token needed to cancel it.
type RegisterResponse struct {
	Registration
	CancellationToken string `json:"cancellation_token"`
}

// CancelRequest is the payload for a self-service cancellation.
type CancelRequest struct {
	Token  string `json:"token"`
	Reason string `json:"reason"`
}

// CancelResponse lists what a cancellation changed.
type CancelResponse struct {
	Cancelled Registration   `json:"cancelled"`
	Promoted  []Registration `json:"promoted"`
}

// UpdateConstraintsRequest replaces a session's constraint text.
type UpdateConstraintsRequest struct {
	CapacityConstraints string `json:"capacity_constraints"`
}

// UpdateFieldsRequest changes the number of fields booked.
type UpdateFieldsRequest struct {
	FieldsAvailable int `json:"fields_available"`
}

// Occupancy describes a session's current fill state.
type Occupancy struct {
	SessionID     string `json:"session_id"`
	Confirmed     int    `json:"confirmed"`
	Waitlisted    int    `json:"waitlisted"`
	Fields        int    `json:"fields_available"`
	Constraints   string `json:"constraints"`
	Description   string `json:"description"`
	Satisfied     bool   `json:"satisfied"`
	AdmitsOneMore bool   `json:"admits_one_more"`
	// Headroom is how many more players the constraints admit; nil when
	// they set no ceiling.
	Headroom *int `json:"headroom"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int { return &n }
