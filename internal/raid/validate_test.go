package raid

import (
	"errors"
	"testing"
	"time"
)

func recruitingSession(t *testing.T) *Session {
	t.Helper()
	return NewSession("Merchant Sloop", 5, time.Now())
}

func TestValidateJoinBoundaries(t *testing.T) {
	cases := []struct {
		name    string
		amount  int
		balance int
		ok      bool
		code    Code
	}{
		{"below minimum", 99, 5000, false, CodeInvestmentTooLow},
		{"at minimum", 100, 5000, true, ""},
		{"at maximum", 1000, 5000, true, ""},
		{"above maximum", 1001, 5000, false, CodeInvestmentTooHigh},
		{"exact balance", 500, 500, true, ""},
		{"insufficient balance", 500, 499, false, CodeInsufficientPoints},
		{"zero amount", 0, 5000, false, CodeInvestmentTooLow},
		{"negative amount", -100, 5000, false, CodeInvestmentTooLow},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			session := recruitingSession(t)
			ok, code := ValidateJoin("u1", tc.amount, tc.balance, session)
			if ok != tc.ok || code != tc.code {
				t.Fatalf("ValidateJoin(amount=%d, balance=%d) = (%v, %q), want (%v, %q)",
					tc.amount, tc.balance, ok, code, tc.ok, tc.code)
			}
		})
	}
}

func TestValidateJoinStateAndIdentity(t *testing.T) {
	session := recruitingSession(t)

	if ok, code := ValidateJoin("", 200, 5000, session); ok || code != CodeInvalidUser {
		t.Fatalf("empty user = (%v, %q)", ok, code)
	}
	if ok, code := ValidateJoin("u1", 200, 5000, nil); ok || code != CodeNotRecruiting {
		t.Fatalf("nil session = (%v, %q)", ok, code)
	}

	session.AddParticipant("u1", "alice", 200, time.Now())
	if ok, code := ValidateJoin("u1", 200, 5000, session); ok || code != CodeAlreadyParticipating {
		t.Fatalf("duplicate join = (%v, %q)", ok, code)
	}

	session.State = StateLaunching
	if ok, code := ValidateJoin("u2", 200, 5000, session); ok || code != CodeNotRecruiting {
		t.Fatalf("join after launch = (%v, %q)", ok, code)
	}
}

func TestValidateInvest(t *testing.T) {
	session := recruitingSession(t)
	session.AddParticipant("u1", "alice", 800, time.Now())

	if ok, code := ValidateInvest("u1", 200, 5000, session); ok || code != CodeWindowClosed {
		t.Fatalf("invest outside milestone window = (%v, %q)", ok, code)
	}

	session.State = StateMilestone
	if ok, code := ValidateInvest("u1", 200, 5000, session); !ok || code != "" {
		t.Fatalf("valid invest = (%v, %q)", ok, code)
	}
	if ok, code := ValidateInvest("u2", 200, 5000, session); ok || code != CodeNotParticipating {
		t.Fatalf("invest by non-participant = (%v, %q)", ok, code)
	}

	// 1500 existing + 600 would breach the 2000 per-raid cap even though the
	// single amount is within [100, 1000].
	session.Participants["u1"].TotalInvestment = 1500
	if ok, code := ValidateInvest("u1", 600, 5000, session); ok || code != CodeInvestmentTooHigh {
		t.Fatalf("invest over raid cap = (%v, %q)", ok, code)
	}
	if ok, _ := ValidateInvest("u1", 500, 5000, session); !ok {
		t.Fatal("invest up to raid cap refused")
	}
}

func TestCodeErrClassification(t *testing.T) {
	stateCodes := []Code{CodeAlreadyActive, CodeNotRecruiting, CodeInvalidTransition, CodeWindowClosed}
	for _, code := range stateCodes {
		if !errors.Is(code.Err(), ErrState) {
			t.Errorf("%q should map to ErrState", code)
		}
	}
	validationCodes := []Code{CodeInsufficientPoints, CodeInvestmentTooLow, CodeInvestmentTooHigh, CodeInvalidUser}
	for _, code := range validationCodes {
		if !errors.Is(code.Err(), ErrValidation) {
			t.Errorf("%q should map to ErrValidation", code)
		}
	}
}

func TestWrapPreservesMarker(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(ErrSettlement, "persist rewards", cause)
	if !errors.Is(err, ErrSettlement) {
		t.Fatal("marker lost")
	}
	if !errors.Is(err, cause) {
		t.Fatal("cause lost")
	}
}
