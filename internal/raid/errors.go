package raid

import (
	"errors"
	"fmt"
)

// Sentinel markers for the engine's error taxonomy. Callers classify failures
// with errors.Is against these rather than matching message text.
var (
	ErrState             = errors.New("state error")
	ErrValidation        = errors.New("validation error")
	ErrSettlement        = errors.New("settlement error")
	ErrRecoveryExhausted = errors.New("recovery attempts exhausted")
)

// Wrap tags an error with one of the sentinel markers above while preserving
// operation context for logs.
func Wrap(marker error, operation string, err error) error {
	if marker == nil {
		marker = ErrState
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, operation, err)
	}
	return fmt.Errorf("%w: %s", marker, operation)
}

// Code identifies a user-facing rejection reason returned by validation.
type Code string

const (
	CodeAlreadyActive        Code = "already_active"
	CodeNotRecruiting        Code = "not_recruiting"
	CodeInvalidTransition    Code = "invalid_transition"
	CodeInsufficientPoints   Code = "insufficient_points"
	CodeInvestmentTooLow     Code = "investment_too_low"
	CodeInvestmentTooHigh    Code = "investment_too_high"
	CodeWindowClosed         Code = "window_closed"
	CodeAlreadyParticipating Code = "already_participating"
	CodeNotParticipating     Code = "not_participating"
	CodeInvalidAmount        Code = "invalid_amount"
	CodeInvalidUser          Code = "invalid_user"
)

var codeMessages = map[Code]string{
	CodeAlreadyActive:        "A raid is already in progress",
	CodeNotRecruiting:        "No raid is currently recruiting",
	CodeInvalidTransition:    "Invalid raid state transition",
	CodeInsufficientPoints:   "Not enough points for that investment",
	CodeInvestmentTooLow:     fmt.Sprintf("Investment amount too low (minimum %d)", MinInvestment),
	CodeInvestmentTooHigh:    fmt.Sprintf("Investment amount too high (maximum %d, raid cap %d)", MaxInvestment, MaxTotalInvestment),
	CodeWindowClosed:         "The investment window is closed",
	CodeAlreadyParticipating: "Already participating in this raid",
	CodeNotParticipating:     "Not participating in this raid",
	CodeInvalidAmount:        "Invalid amount",
	CodeInvalidUser:          "Invalid user",
}

// Message returns the short chat-facing message for a rejection code.
func (c Code) Message() string {
	if msg, ok := codeMessages[c]; ok {
		return msg
	}
	return "Raid request rejected"
}

// Err converts the code into a tagged error suitable for logging.
func (c Code) Err() error {
	marker := ErrValidation
	switch c {
	case CodeAlreadyActive, CodeNotRecruiting, CodeInvalidTransition, CodeWindowClosed:
		marker = ErrState
	}
	return fmt.Errorf("%w: %s", marker, c)
}
