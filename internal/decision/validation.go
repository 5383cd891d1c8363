package decision

import "github.com/llmholdem/server/pkg/poker"

// validate applies the 5-step safety pipeline, in order, to whatever action
// the LLM (or fallback) produced. It never trusts upstream amounts blindly.
func validate(action ActionTag, amount int64, legal []LegalAction, pub PublicState) (ActionTag, int64) {
	return validateSteps(action, amount, legal, true)
}

// ValidateHumanAction runs the same safety pipeline against a human player's
// declared action, in the engine's own action space, as defense in depth
// against a malicious or buggy client. Step 1 (remapping a declared fold to
// call(0) when a check is free) is skipped: a human is allowed to fold a
// hand they could have checked for free, unlike an LLM seat whose fold in
// that spot is assumed to be a misread of the legal-action list.
func ValidateHumanAction(action poker.ActionTag, amount int64, legal []poker.LegalAction) (poker.ActionTag, int64) {
	kernelLegal := legalActionsFromEngine(legal)
	kernelAction, kernelAmount := engineActionToKernel(action, amount)
	kernelAction, kernelAmount = validateSteps(kernelAction, kernelAmount, kernelLegal, false)
	return kernelActionToEngine(kernelAction, kernelAmount, legal)
}

func engineActionToKernel(action poker.ActionTag, amount int64) (ActionTag, int64) {
	switch action {
	case poker.ActionCheck:
		return Call, 0
	case poker.ActionCall:
		return Call, amount
	case poker.ActionBet, poker.ActionRaise:
		return Raise, amount
	default:
		return Fold, 0
	}
}

func kernelActionToEngine(action ActionTag, amount int64, legal []poker.LegalAction) (poker.ActionTag, int64) {
	switch action {
	case Call:
		if amount == 0 {
			return poker.ActionCheck, 0
		}
		return poker.ActionCall, amount
	case Raise:
		for _, la := range legal {
			if la.Action == poker.ActionBet {
				return poker.ActionBet, amount
			}
		}
		return poker.ActionRaise, amount
	default:
		return poker.ActionFold, 0
	}
}

// validateSteps is the core pipeline. remapFoldOnFreeCheck gates step 1.
func validateSteps(action ActionTag, amount int64, legal []LegalAction, remapFoldOnFreeCheck bool) (ActionTag, int64) {
	freeCheck, callAmount, raiseMin, raiseMax, hasFold, hasRaise := summarizeLegal(legal)

	// 1. fold chosen but a free check is available -> force call(0).
	if remapFoldOnFreeCheck && action == Fold && freeCheck {
		return Call, 0
	}

	// 2. normalize check->call(0); all_in/allin/all-in->raise(max); degrade
	// raise to call(to_call) if unavailable.
	switch action {
	case "check":
		action, amount = Call, 0
	case "all_in", "allin", "all-in":
		if hasRaise && raiseMax > 0 {
			action, amount = Raise, raiseMax
		} else {
			action, amount = Call, callAmount
		}
	}
	if action == Raise && raiseMax <= 0 {
		action, amount = Call, callAmount
	}

	// 3. clamp raise amount into [min_raise, max_raise]; degrade if max<=0.
	if action == Raise {
		if raiseMax <= 0 {
			action, amount = Call, callAmount
		} else {
			if amount < raiseMin {
				amount = raiseMin
			}
			if amount > raiseMax {
				amount = raiseMax
			}
		}
	}

	// 4. if the chosen action is not in the legal set: prefer call(0) (check)
	// -> else call(to_call) -> else fold. Never fold if check is free.
	if !actionIsLegal(action, legal) {
		switch {
		case freeCheck:
			action, amount = Call, 0
		case hasCall(legal):
			action, amount = Call, callAmount
		case hasFold:
			action, amount = Fold, 0
		}
	}

	// 5. for call, use the engine-dictated amount.
	if action == Call {
		if freeCheck {
			amount = 0
		} else {
			amount = callAmount
		}
	}

	return action, amount
}

func summarizeLegal(legal []LegalAction) (freeCheck bool, callAmount int64, raiseMin, raiseMax int64, hasFold, hasRaise bool) {
	for _, la := range legal {
		switch la.Action {
		case Fold:
			hasFold = true
		case Call:
			if la.MaxAmount == 0 {
				freeCheck = true
			} else {
				callAmount = la.MaxAmount
			}
		case Raise:
			hasRaise = true
			raiseMin, raiseMax = la.MinAmount, la.MaxAmount
		}
	}
	return
}

func hasCall(legal []LegalAction) bool {
	for _, la := range legal {
		if la.Action == Call {
			return true
		}
	}
	return false
}

func actionIsLegal(action ActionTag, legal []LegalAction) bool {
	for _, la := range legal {
		if la.Action == action {
			return true
		}
	}
	return false
}
