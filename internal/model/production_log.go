package model

import "time"

// Production log action types.
const (
	ActionGenerate = "GENERATE"
	ActionPrint    = "PRINT"
	ActionQCCheck  = "QC_CHECK"
	ActionUpdate   = "UPDATE"
)

// ValidAction reports whether a is a known action type.
func ValidAction(a string) bool {
	switch a {
	case ActionGenerate, ActionPrint, ActionQCCheck, ActionUpdate:
		return true
	}
	return false
}

// ProductionLog mirrors a row of the `production_logs` table.  Metadata is
// free-form JSON text.
type ProductionLog struct {
	ID                uint64    `json:"log_id"`
	BatchID           uint64    `json:"batch_id"`
	ActionType        string    `json:"action_type"`
	ActionDescription string    `json:"action_description,omitempty"`
	OperatorName      string    `json:"operator_name"`
	OperatorUserID    *uint64   `json:"operator_user_id,omitempty"`
	Location          string    `json:"location"`
	Timestamp         time.Time `json:"timestamp"`
	Metadata          string    `json:"metadata,omitempty"`
}

// Actor identifies who triggered a write: the authenticated user when
// there is one, and always a display name.
type Actor struct {
	UserID *uint64
	Name   string
}

// SystemActor is used for runs started by the scheduler or the queue.
var SystemActor = Actor{Name: "system"}
