// Package lifecycle implements the case lifecycle state machine. Transition
// is a pure function over the current (state, appealState) pair; it performs
// no I/O and holds no mutable state, which is what lets the surrounding
// service re-evaluate from a fresh snapshot after an optimistic-lock conflict.
package lifecycle

import (
	"fmt"

	"github.com/justikon/jcm-api/internal/models"
)

// Update carries the fields a successful transition changes. A nil field is
// left untouched by the caller; a transition never clears the appeal state.
type Update struct {
	State       *models.CaseState
	AppealState *models.CaseAppealState
}

// IllegalTransitionError reports a transition requested outside its rule.
type IllegalTransitionError struct {
	Transition  models.CaseTransition
	State       models.CaseState
	AppealState models.CaseAppealState
}

func (e *IllegalTransitionError) Error() string {
	if e.AppealState == models.CaseAppealStateNone {
		return fmt.Sprintf("illegal transition %s from state %s", e.Transition, e.State)
	}
	return fmt.Sprintf("illegal transition %s from state %s (appeal state %s)", e.Transition, e.State, e.AppealState)
}

// rule describes one row of the transition table. fromAppealStates uses the
// empty appeal state as an explicit member meaning "no appeal in progress".
type rule struct {
	fromStates       map[models.CaseState]bool
	fromAppealStates map[models.CaseAppealState]bool
	toState          models.CaseState
	toAppealState    models.CaseAppealState
}

func states(list ...models.CaseState) map[models.CaseState]bool {
	m := make(map[models.CaseState]bool, len(list))
	for _, s := range list {
		m[s] = true
	}
	return m
}

func appealStates(list ...models.CaseAppealState) map[models.CaseAppealState]bool {
	m := make(map[models.CaseAppealState]bool, len(list))
	for _, s := range list {
		m[s] = true
	}
	return m
}

var (
	noAppeal      = appealStates(models.CaseAppealStateNone)
	decidedStates = states(models.CaseStateAccepted, models.CaseStateRejected, models.CaseStateDismissed)
	// Appeal states a ruling may still be re-decided under. COMPLETED is the
	// terminal appeal state and blocks re-deciding the case.
	openAppealStates = appealStates(
		models.CaseAppealStateNone,
		models.CaseAppealStateAppealed,
		models.CaseAppealStateReceived,
		models.CaseAppealStateWithdrawn,
	)
	anyAppealState = appealStates(
		models.CaseAppealStateNone,
		models.CaseAppealStateAppealed,
		models.CaseAppealStateReceived,
		models.CaseAppealStateCompleted,
		models.CaseAppealStateWithdrawn,
	)
)

// transitionRules is the complete lifecycle table. Every CaseTransition has
// exactly one entry; a request matching neither the state set nor the appeal
// state set of its entry is rejected with no partial effect.
var transitionRules = map[models.CaseTransition]rule{
	models.TransitionOpen: {
		fromStates:       states(models.CaseStateNew, models.CaseStateWaitingForConfirmation),
		fromAppealStates: noAppeal,
		toState:          models.CaseStateDraft,
	},
	models.TransitionAskForConfirmation: {
		fromStates:       states(models.CaseStateDraft, models.CaseStateSubmitted),
		fromAppealStates: noAppeal,
		toState:          models.CaseStateWaitingForConfirmation,
	},
	models.TransitionDenyIndictment: {
		fromStates:       states(models.CaseStateWaitingForConfirmation),
		fromAppealStates: noAppeal,
		toState:          models.CaseStateDraft,
	},
	models.TransitionReturnIndictment: {
		fromStates:       states(models.CaseStateReceived),
		fromAppealStates: noAppeal,
		toState:          models.CaseStateDraft,
	},
	models.TransitionSubmit: {
		fromStates:       states(models.CaseStateDraft, models.CaseStateWaitingForConfirmation),
		fromAppealStates: noAppeal,
		toState:          models.CaseStateSubmitted,
	},
	models.TransitionReceive: {
		fromStates:       states(models.CaseStateSubmitted),
		fromAppealStates: noAppeal,
		toState:          models.CaseStateReceived,
	},
	models.TransitionDelete: {
		fromStates: states(
			models.CaseStateNew,
			models.CaseStateDraft,
			models.CaseStateWaitingForConfirmation,
			models.CaseStateSubmitted,
			models.CaseStateReceived,
		),
		fromAppealStates: noAppeal,
		toState:          models.CaseStateDeleted,
	},
	models.TransitionAccept: {
		fromStates:       states(models.CaseStateReceived),
		fromAppealStates: openAppealStates,
		toState:          models.CaseStateAccepted,
	},
	models.TransitionReject: {
		fromStates:       states(models.CaseStateReceived),
		fromAppealStates: openAppealStates,
		toState:          models.CaseStateRejected,
	},
	models.TransitionDismiss: {
		fromStates:       states(models.CaseStateReceived),
		fromAppealStates: openAppealStates,
		toState:          models.CaseStateDismissed,
	},
	models.TransitionReopen: {
		fromStates:       decidedStates,
		fromAppealStates: anyAppealState,
		toState:          models.CaseStateReceived,
	},
	models.TransitionAppeal: {
		fromStates:       decidedStates,
		fromAppealStates: noAppeal,
		toAppealState:    models.CaseAppealStateAppealed,
	},
	models.TransitionReceiveAppeal: {
		fromStates:       decidedStates,
		fromAppealStates: appealStates(models.CaseAppealStateAppealed),
		toAppealState:    models.CaseAppealStateReceived,
	},
	models.TransitionCompleteAppeal: {
		fromStates:       decidedStates,
		fromAppealStates: appealStates(models.CaseAppealStateReceived, models.CaseAppealStateWithdrawn),
		toAppealState:    models.CaseAppealStateCompleted,
	},
	models.TransitionReopenAppeal: {
		fromStates:       decidedStates,
		fromAppealStates: appealStates(models.CaseAppealStateCompleted),
		toAppealState:    models.CaseAppealStateReceived,
	},
	models.TransitionWithdrawAppeal: {
		fromStates:       decidedStates,
		fromAppealStates: appealStates(models.CaseAppealStateAppealed, models.CaseAppealStateReceived),
		toAppealState:    models.CaseAppealStateWithdrawn,
	},
	models.TransitionRedistribute: {
		fromStates:       states(models.CaseStateReceived),
		fromAppealStates: noAppeal,
		toState:          models.CaseStateMainHearing,
	},
}

// Transition evaluates the lifecycle table for the requested kind against the
// current (state, appealState) pair. On success the returned Update carries
// only the axis the rule changes; on failure it returns an
// *IllegalTransitionError and a zero Update.
func Transition(kind models.CaseTransition, state models.CaseState, appealState models.CaseAppealState) (Update, error) {
	r, ok := transitionRules[kind]
	if !ok {
		return Update{}, &IllegalTransitionError{Transition: kind, State: state, AppealState: appealState}
	}
	if !r.fromStates[state] || !r.fromAppealStates[appealState] {
		return Update{}, &IllegalTransitionError{Transition: kind, State: state, AppealState: appealState}
	}

	var update Update
	if r.toState != "" {
		s := r.toState
		update.State = &s
	}
	if r.toAppealState != models.CaseAppealStateNone {
		a := r.toAppealState
		update.AppealState = &a
	}
	return update, nil
}

// Transitions returns every transition kind the table knows about, which is
// handy for request validation.
func Transitions() []models.CaseTransition {
	kinds := make([]models.CaseTransition, 0, len(transitionRules))
	for kind := range transitionRules {
		kinds = append(kinds, kind)
	}
	return kinds
}
