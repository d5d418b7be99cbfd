package models

import "time"

// CaseEvent describes a committed lifecycle change, handed to the
// notification dispatcher after the transition is persisted.
type CaseEvent struct {
	CaseID         string          `json:"case_id"`
	CaseType       CaseType        `json:"case_type"`
	Transition     CaseTransition  `json:"transition"`
	OldState       CaseState       `json:"old_state"`
	NewState       CaseState       `json:"new_state"`
	OldAppealState CaseAppealState `json:"old_appeal_state,omitempty"`
	NewAppealState CaseAppealState `json:"new_appeal_state,omitempty"`
	ActorID        string          `json:"actor_id"`
	OccurredAt     time.Time       `json:"occurred_at"`
}
