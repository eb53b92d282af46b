package raid

// ValidateJoin checks a prospective participant before any mutation.
// balance is the caller-supplied ledger balance for the user.
func ValidateJoin(userID string, amount, balance int, session *Session) (bool, Code) {
	if userID == "" {
		return false, CodeInvalidUser
	}
	if session == nil || !session.State.AcceptsJoin() {
		return false, CodeNotRecruiting
	}
	if _, exists := session.Participants[userID]; exists {
		return false, CodeAlreadyParticipating
	}
	if code := validateAmount(amount, balance, 0); code != "" {
		return false, code
	}
	return true, ""
}

// ValidateInvest checks a milestone-window top-up before any mutation.
func ValidateInvest(userID string, amount, balance int, session *Session) (bool, Code) {
	if userID == "" {
		return false, CodeInvalidUser
	}
	if session == nil || session.State != StateMilestone {
		return false, CodeWindowClosed
	}
	participant, ok := session.Participants[userID]
	if !ok {
		return false, CodeNotParticipating
	}
	if code := validateAmount(amount, balance, participant.TotalInvestment); code != "" {
		return false, code
	}
	return true, ""
}

func validateAmount(amount, balance, existing int) Code {
	if amount < MinInvestment {
		return CodeInvestmentTooLow
	}
	if amount > MaxInvestment {
		return CodeInvestmentTooHigh
	}
	if existing > 0 && existing+amount > MaxTotalInvestment {
		return CodeInvestmentTooHigh
	}
	if amount > balance {
		return CodeInsufficientPoints
	}
	return ""
}
