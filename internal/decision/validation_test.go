package decision

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/llmholdem/server/pkg/poker"
)

func TestValidate_FoldWhenCheckIsFreeRemapsToCall(t *testing.T) {
	legal := []LegalAction{
		{Action: Fold},
		{Action: Call, MinAmount: 0, MaxAmount: 0},
		{Action: Raise, MinAmount: 10, MaxAmount: 100},
	}
	pub := PublicState{ToCall: 0}

	action, amount := validate(Fold, 0, legal, pub)

	require.Equal(t, Call, action)
	require.Equal(t, int64(0), amount)
}

func TestValidate_FoldAllowedWhenFacingABet(t *testing.T) {
	legal := []LegalAction{
		{Action: Fold},
		{Action: Call, MinAmount: 20, MaxAmount: 20},
		{Action: Raise, MinAmount: 40, MaxAmount: 200},
	}
	pub := PublicState{ToCall: 20}

	action, amount := validate(Fold, 0, legal, pub)

	require.Equal(t, Fold, action)
	require.Equal(t, int64(0), amount)
}

func TestValidate_RaiseClampedToMaxRaise(t *testing.T) {
	legal := []LegalAction{
		{Action: Fold},
		{Action: Call, MinAmount: 20, MaxAmount: 20},
		{Action: Raise, MinAmount: 40, MaxAmount: 200},
	}
	pub := PublicState{ToCall: 20}

	action, amount := validate(Raise, 10_000, legal, pub)

	require.Equal(t, Raise, action)
	require.Equal(t, int64(200), amount)
}

func TestValidate_RaiseDegradesToCallWhenMaxRaiseIsZero(t *testing.T) {
	legal := []LegalAction{
		{Action: Fold},
		{Action: Call, MinAmount: 50, MaxAmount: 50},
		{Action: Raise, MinAmount: 50, MaxAmount: 0},
	}
	pub := PublicState{ToCall: 50}

	action, amount := validate(Raise, 500, legal, pub)

	require.Equal(t, Call, action)
	require.Equal(t, int64(50), amount)
}

func TestValidate_IllegalActionFallsBackToFirstLegal(t *testing.T) {
	legal := []LegalAction{
		{Action: Call, MinAmount: 0, MaxAmount: 0},
	}
	pub := PublicState{ToCall: 0}

	action, amount := validate(Raise, 100, legal, pub)

	require.Equal(t, Call, action)
	require.Equal(t, int64(0), amount)
}

func TestValidateHumanAction_FoldAllowedWhenCheckIsFree(t *testing.T) {
	legal := []poker.LegalAction{
		{Action: poker.ActionFold},
		{Action: poker.ActionCheck},
		{Action: poker.ActionBet, MinAmount: 10, MaxAmount: 100},
	}

	action, amount := ValidateHumanAction(poker.ActionFold, 0, legal)

	require.Equal(t, poker.ActionFold, action)
	require.Equal(t, int64(0), amount)
}

func TestValidateHumanAction_RaiseClampedToLegalRange(t *testing.T) {
	legal := []poker.LegalAction{
		{Action: poker.ActionFold},
		{Action: poker.ActionCall, MinAmount: 20, MaxAmount: 20},
		{Action: poker.ActionRaise, MinAmount: 40, MaxAmount: 200},
	}

	action, amount := ValidateHumanAction(poker.ActionRaise, 10_000, legal)

	require.Equal(t, poker.ActionRaise, action)
	require.Equal(t, int64(200), amount)
}

func TestValidateHumanAction_IllegalActionFallsBackToCall(t *testing.T) {
	legal := []poker.LegalAction{
		{Action: poker.ActionFold},
		{Action: poker.ActionCall, MinAmount: 20, MaxAmount: 20},
	}

	action, amount := ValidateHumanAction(poker.ActionBet, 50, legal)

	require.Equal(t, poker.ActionCall, action)
	require.Equal(t, int64(20), amount)
}
