package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/justikon/jcm-api/internal/models"
)

func statePtr(s models.CaseState) *models.CaseState { return &s }

func appealPtr(s models.CaseAppealState) *models.CaseAppealState { return &s }

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		name        string
		kind        models.CaseTransition
		state       models.CaseState
		appealState models.CaseAppealState
		want        Update
		wantErr     bool
	}{
		{
			name:  "open new case",
			kind:  models.TransitionOpen,
			state: models.CaseStateNew,
			want:  Update{State: statePtr(models.CaseStateDraft)},
		},
		{
			name:  "open denied indictment",
			kind:  models.TransitionOpen,
			state: models.CaseStateWaitingForConfirmation,
			want:  Update{State: statePtr(models.CaseStateDraft)},
		},
		{
			name:  "submit draft",
			kind:  models.TransitionSubmit,
			state: models.CaseStateDraft,
			want:  Update{State: statePtr(models.CaseStateSubmitted)},
		},
		{
			name:    "submit received is illegal",
			kind:    models.TransitionSubmit,
			state:   models.CaseStateReceived,
			wantErr: true,
		},
		{
			name:  "ask for confirmation from submitted",
			kind:  models.TransitionAskForConfirmation,
			state: models.CaseStateSubmitted,
			want:  Update{State: statePtr(models.CaseStateWaitingForConfirmation)},
		},
		{
			name:  "deny indictment",
			kind:  models.TransitionDenyIndictment,
			state: models.CaseStateWaitingForConfirmation,
			want:  Update{State: statePtr(models.CaseStateDraft)},
		},
		{
			name:  "return indictment",
			kind:  models.TransitionReturnIndictment,
			state: models.CaseStateReceived,
			want:  Update{State: statePtr(models.CaseStateDraft)},
		},
		{
			name:  "receive submitted",
			kind:  models.TransitionReceive,
			state: models.CaseStateSubmitted,
			want:  Update{State: statePtr(models.CaseStateReceived)},
		},
		{
			name:    "receive draft is illegal",
			kind:    models.TransitionReceive,
			state:   models.CaseStateDraft,
			wantErr: true,
		},
		{
			name:  "delete received",
			kind:  models.TransitionDelete,
			state: models.CaseStateReceived,
			want:  Update{State: statePtr(models.CaseStateDeleted)},
		},
		{
			name:    "delete accepted is illegal",
			kind:    models.TransitionDelete,
			state:   models.CaseStateAccepted,
			wantErr: true,
		},
		{
			name:  "accept received",
			kind:  models.TransitionAccept,
			state: models.CaseStateReceived,
			want:  Update{State: statePtr(models.CaseStateAccepted)},
		},
		{
			name:        "accept reopened case under appeal",
			kind:        models.TransitionAccept,
			state:       models.CaseStateReceived,
			appealState: models.CaseAppealStateReceived,
			want:        Update{State: statePtr(models.CaseStateAccepted)},
		},
		{
			name:        "accept with completed appeal is illegal",
			kind:        models.TransitionAccept,
			state:       models.CaseStateReceived,
			appealState: models.CaseAppealStateCompleted,
			wantErr:     true,
		},
		{
			name:  "reject received",
			kind:  models.TransitionReject,
			state: models.CaseStateReceived,
			want:  Update{State: statePtr(models.CaseStateRejected)},
		},
		{
			name:  "dismiss received",
			kind:  models.TransitionDismiss,
			state: models.CaseStateReceived,
			want:  Update{State: statePtr(models.CaseStateDismissed)},
		},
		{
			name:        "reopen accepted with completed appeal",
			kind:        models.TransitionReopen,
			state:       models.CaseStateAccepted,
			appealState: models.CaseAppealStateCompleted,
			want:        Update{State: statePtr(models.CaseStateReceived)},
		},
		{
			name:  "appeal accepted ruling sets only appeal state",
			kind:  models.TransitionAppeal,
			state: models.CaseStateAccepted,
			want:  Update{AppealState: appealPtr(models.CaseAppealStateAppealed)},
		},
		{
			name:        "appeal twice is illegal",
			kind:        models.TransitionAppeal,
			state:       models.CaseStateAccepted,
			appealState: models.CaseAppealStateAppealed,
			wantErr:     true,
		},
		{
			name:    "appeal undecided case is illegal",
			kind:    models.TransitionAppeal,
			state:   models.CaseStateReceived,
			wantErr: true,
		},
		{
			name:        "receive appeal",
			kind:        models.TransitionReceiveAppeal,
			state:       models.CaseStateRejected,
			appealState: models.CaseAppealStateAppealed,
			want:        Update{AppealState: appealPtr(models.CaseAppealStateReceived)},
		},
		{
			name:        "complete received appeal",
			kind:        models.TransitionCompleteAppeal,
			state:       models.CaseStateAccepted,
			appealState: models.CaseAppealStateReceived,
			want:        Update{AppealState: appealPtr(models.CaseAppealStateCompleted)},
		},
		{
			name:        "complete withdrawn appeal",
			kind:        models.TransitionCompleteAppeal,
			state:       models.CaseStateDismissed,
			appealState: models.CaseAppealStateWithdrawn,
			want:        Update{AppealState: appealPtr(models.CaseAppealStateCompleted)},
		},
		{
			name:        "reopen completed appeal",
			kind:        models.TransitionReopenAppeal,
			state:       models.CaseStateAccepted,
			appealState: models.CaseAppealStateCompleted,
			want:        Update{AppealState: appealPtr(models.CaseAppealStateReceived)},
		},
		{
			name:        "withdraw lodged appeal",
			kind:        models.TransitionWithdrawAppeal,
			state:       models.CaseStateAccepted,
			appealState: models.CaseAppealStateAppealed,
			want:        Update{AppealState: appealPtr(models.CaseAppealStateWithdrawn)},
		},
		{
			name:        "withdraw completed appeal is illegal",
			kind:        models.TransitionWithdrawAppeal,
			state:       models.CaseStateAccepted,
			appealState: models.CaseAppealStateCompleted,
			wantErr:     true,
		},
		{
			name:  "redistribute received",
			kind:  models.TransitionRedistribute,
			state: models.CaseStateReceived,
			want:  Update{State: statePtr(models.CaseStateMainHearing)},
		},
		{
			name:    "unknown transition",
			kind:    models.CaseTransition("EXPEDITE"),
			state:   models.CaseStateReceived,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(tt.kind, tt.state, tt.appealState)
			if tt.wantErr {
				require.Error(t, err)
				var illegal *IllegalTransitionError
				require.ErrorAs(t, err, &illegal)
				require.Equal(t, Update{}, got, "rejected transition must not carry a partial result")
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestTransitionIsDeterministic(t *testing.T) {
	for _, kind := range Transitions() {
		for _, state := range allCaseStates {
			for _, appealState := range allAppealStates {
				first, firstErr := Transition(kind, state, appealState)
				second, secondErr := Transition(kind, state, appealState)
				require.Equal(t, first, second)
				require.Equal(t, firstErr, secondErr)
			}
		}
	}
}

func TestEveryTransitionHasRule(t *testing.T) {
	all := []models.CaseTransition{
		models.TransitionOpen,
		models.TransitionAskForConfirmation,
		models.TransitionDenyIndictment,
		models.TransitionReturnIndictment,
		models.TransitionSubmit,
		models.TransitionReceive,
		models.TransitionDelete,
		models.TransitionAccept,
		models.TransitionReject,
		models.TransitionDismiss,
		models.TransitionReopen,
		models.TransitionAppeal,
		models.TransitionReceiveAppeal,
		models.TransitionCompleteAppeal,
		models.TransitionReopenAppeal,
		models.TransitionWithdrawAppeal,
		models.TransitionRedistribute,
	}
	require.ElementsMatch(t, all, Transitions())
}

var allCaseStates = []models.CaseState{
	models.CaseStateNew,
	models.CaseStateWaitingForConfirmation,
	models.CaseStateDraft,
	models.CaseStateSubmitted,
	models.CaseStateReceived,
	models.CaseStateMainHearing,
	models.CaseStateAccepted,
	models.CaseStateRejected,
	models.CaseStateDismissed,
	models.CaseStateDeleted,
}

var allAppealStates = []models.CaseAppealState{
	models.CaseAppealStateNone,
	models.CaseAppealStateAppealed,
	models.CaseAppealStateReceived,
	models.CaseAppealStateCompleted,
	models.CaseAppealStateWithdrawn,
}
