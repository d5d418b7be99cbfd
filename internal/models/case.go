package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// CaseState tracks where a case sits in the procedural lifecycle.
type CaseState string

const (
	CaseStateNew                    CaseState = "NEW"
	CaseStateWaitingForConfirmation CaseState = "WAITING_FOR_CONFIRMATION"
	CaseStateDraft                  CaseState = "DRAFT"
	CaseStateSubmitted              CaseState = "SUBMITTED"
	CaseStateReceived               CaseState = "RECEIVED"
	CaseStateMainHearing            CaseState = "MAIN_HEARING"
	CaseStateAccepted               CaseState = "ACCEPTED"
	CaseStateRejected               CaseState = "REJECTED"
	CaseStateDismissed              CaseState = "DISMISSED"
	CaseStateDeleted                CaseState = "DELETED"
)

// CaseAppealState tracks the appeal sub-lifecycle. The empty string means no
// appeal is in progress; it is persisted as NULL.
type CaseAppealState string

const (
	CaseAppealStateNone      CaseAppealState = ""
	CaseAppealStateAppealed  CaseAppealState = "APPEALED"
	CaseAppealStateReceived  CaseAppealState = "RECEIVED"
	CaseAppealStateCompleted CaseAppealState = "COMPLETED"
	CaseAppealStateWithdrawn CaseAppealState = "WITHDRAWN"
)

// Scan implements sql.Scanner; a NULL column maps to CaseAppealStateNone.
func (s *CaseAppealState) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*s = CaseAppealStateNone
	case string:
		*s = CaseAppealState(v)
	case []byte:
		*s = CaseAppealState(v)
	default:
		return fmt.Errorf("cannot scan %T into CaseAppealState", value)
	}
	return nil
}

// Value implements driver.Valuer; CaseAppealStateNone persists as NULL.
func (s CaseAppealState) Value() (driver.Value, error) {
	if s == CaseAppealStateNone {
		return nil, nil
	}
	return string(s), nil
}

// CaseType identifies what kind of proceeding a case is.
type CaseType string

const (
	// Restriction cases restrict personal liberty.
	CaseTypeCustody             CaseType = "CUSTODY"
	CaseTypeTravelBan           CaseType = "TRAVEL_BAN"
	CaseTypeAdmissionToFacility CaseType = "ADMISSION_TO_FACILITY"

	// Investigation cases support an ongoing police investigation.
	CaseTypeSearchWarrant          CaseType = "SEARCH_WARRANT"
	CaseTypeBankingSecrecyWaiver   CaseType = "BANKING_SECRECY_WAIVER"
	CaseTypePhoneTapping           CaseType = "PHONE_TAPPING"
	CaseTypeTelecommunications     CaseType = "TELECOMMUNICATIONS"
	CaseTypeTrackingEquipment      CaseType = "TRACKING_EQUIPMENT"
	CaseTypePsychiatricExamination CaseType = "PSYCHIATRIC_EXAMINATION"
	CaseTypeAutopsy                CaseType = "AUTOPSY"
	CaseTypeBodySearch             CaseType = "BODY_SEARCH"
	CaseTypeRestrainingOrder       CaseType = "RESTRAINING_ORDER"
	CaseTypeExpulsionFromHome      CaseType = "EXPULSION_FROM_HOME"
	CaseTypeOther                  CaseType = "OTHER"

	// Indictment cases are formal criminal charges progressing toward trial.
	CaseTypeIndictment CaseType = "INDICTMENT"
)

// RestrictionCaseTypes lists the types whose outcome restricts liberty.
var RestrictionCaseTypes = []CaseType{
	CaseTypeCustody,
	CaseTypeTravelBan,
	CaseTypeAdmissionToFacility,
}

// InvestigationCaseTypes lists the types supporting police investigations.
var InvestigationCaseTypes = []CaseType{
	CaseTypeSearchWarrant,
	CaseTypeBankingSecrecyWaiver,
	CaseTypePhoneTapping,
	CaseTypeTelecommunications,
	CaseTypeTrackingEquipment,
	CaseTypePsychiatricExamination,
	CaseTypeAutopsy,
	CaseTypeBodySearch,
	CaseTypeRestrainingOrder,
	CaseTypeExpulsionFromHome,
	CaseTypeOther,
}

// IndictmentCaseTypes lists the formal charge types.
var IndictmentCaseTypes = []CaseType{CaseTypeIndictment}

// IsRestrictionCaseType reports whether t belongs to the restriction family.
func IsRestrictionCaseType(t CaseType) bool {
	for _, rt := range RestrictionCaseTypes {
		if t == rt {
			return true
		}
	}
	return false
}

// IsIndictmentCaseType reports whether t belongs to the indictment family.
func IsIndictmentCaseType(t CaseType) bool {
	return t == CaseTypeIndictment
}

// CaseDecision is the court's ruling, meaningful once the state is terminal.
type CaseDecision string

const (
	CaseDecisionAccepting                     CaseDecision = "ACCEPTING"
	CaseDecisionAcceptingPartially            CaseDecision = "ACCEPTING_PARTIALLY"
	CaseDecisionAcceptingAlternativeTravelBan CaseDecision = "ACCEPTING_ALTERNATIVE_TRAVEL_BAN"
	CaseDecisionRejecting                     CaseDecision = "REJECTING"
	CaseDecisionDismissing                    CaseDecision = "DISMISSING"
)

// CaseAppealDecision records what a party declared at ruling time.
type CaseAppealDecision string

const (
	CaseAppealDecisionAppeal   CaseAppealDecision = "APPEAL"
	CaseAppealDecisionAccept   CaseAppealDecision = "ACCEPT"
	CaseAppealDecisionPostpone CaseAppealDecision = "POSTPONE"
)

// CaseTransition enumerates every legal lifecycle operation.
type CaseTransition string

const (
	TransitionOpen               CaseTransition = "OPEN"
	TransitionAskForConfirmation CaseTransition = "ASK_FOR_CONFIRMATION"
	TransitionDenyIndictment     CaseTransition = "DENY_INDICTMENT"
	TransitionReturnIndictment   CaseTransition = "RETURN_INDICTMENT"
	TransitionSubmit             CaseTransition = "SUBMIT"
	TransitionReceive            CaseTransition = "RECEIVE"
	TransitionDelete             CaseTransition = "DELETE"
	TransitionAccept             CaseTransition = "ACCEPT"
	TransitionReject             CaseTransition = "REJECT"
	TransitionDismiss            CaseTransition = "DISMISS"
	TransitionReopen             CaseTransition = "REOPEN"
	TransitionAppeal             CaseTransition = "APPEAL"
	TransitionReceiveAppeal      CaseTransition = "RECEIVE_APPEAL"
	TransitionCompleteAppeal     CaseTransition = "COMPLETE_APPEAL"
	TransitionReopenAppeal       CaseTransition = "REOPEN_APPEAL"
	TransitionWithdrawAppeal     CaseTransition = "WITHDRAW_APPEAL"
	TransitionRedistribute       CaseTransition = "REDISTRIBUTE"
)

// Case represents a case row in the cases table. Optional enum columns use
// pointers so NULL round-trips cleanly.
type Case struct {
	ID          string          `db:"id" json:"id"`
	Type        CaseType        `db:"type" json:"type"`
	State       CaseState       `db:"state" json:"state"`
	AppealState CaseAppealState `db:"appeal_state" json:"appeal_state,omitempty"`
	Decision    *CaseDecision   `db:"decision" json:"decision,omitempty"`

	Description      string `db:"description" json:"description"`
	PoliceCaseNumber string `db:"police_case_number" json:"police_case_number"`

	CreatingProsecutorID          string  `db:"creating_prosecutor_id" json:"creating_prosecutor_id"`
	ProsecutorsOfficeID           string  `db:"prosecutors_office_id" json:"prosecutors_office_id"`
	ProsecutorID                  *string `db:"prosecutor_id" json:"prosecutor_id,omitempty"`
	SharedWithProsecutorsOfficeID *string `db:"shared_with_prosecutors_office_id" json:"shared_with_prosecutors_office_id,omitempty"`
	CourtID                       *string `db:"court_id" json:"court_id,omitempty"`

	IsHeightenedSecurityLevel bool `db:"is_heightened_security_level" json:"is_heightened_security_level"`
	IsArchived                bool `db:"is_archived" json:"is_archived"`

	AccusedAppealDecision         *CaseAppealDecision `db:"accused_appeal_decision" json:"accused_appeal_decision,omitempty"`
	ProsecutorAppealDecision      *CaseAppealDecision `db:"prosecutor_appeal_decision" json:"prosecutor_appeal_decision,omitempty"`
	AccusedPostponedAppealDate    *time.Time          `db:"accused_postponed_appeal_date" json:"accused_postponed_appeal_date,omitempty"`
	ProsecutorPostponedAppealDate *time.Time          `db:"prosecutor_postponed_appeal_date" json:"prosecutor_postponed_appeal_date,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// HasBeenAppealed reports whether either side has lodged or postponed an
// appeal against the ruling. The appellate court may only read such cases.
func (c *Case) HasBeenAppealed() bool {
	if c.AccusedAppealDecision != nil && *c.AccusedAppealDecision == CaseAppealDecisionAppeal {
		return true
	}
	if c.ProsecutorAppealDecision != nil && *c.ProsecutorAppealDecision == CaseAppealDecisionAppeal {
		return true
	}
	return c.AccusedPostponedAppealDate != nil || c.ProsecutorPostponedAppealDate != nil
}

// CaseFilter constrains listing queries beyond the actor's visibility scope.
type CaseFilter struct {
	States           []CaseState
	Types            []CaseType
	PoliceCaseNumber string
	Limit            int
	Offset           int
}
