package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const minQueryLength = 3

// ValidateDocument checks a Document before ingestion.
func ValidateDocument(d Document) error {
	if strings.TrimSpace(d.Content) == "" {
		return NewValidationError("content", "", ErrEmptyDocument)
	}
	return nil
}

// ValidateQueryText checks a retrieval query string.
func ValidateQueryText(text string) error {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < minQueryLength {
		return NewValidationError("query", text, ErrInvalidInput)
	}
	return nil
}

// ValidateActionInput checks an action before it enters the ledger.
// Unknown action types are accepted; only malformed input (empty type,
// non-positive quantity) is rejected.
func ValidateActionInput(in ActionInput) error {
	if strings.TrimSpace(in.ActionType) == "" {
		return NewValidationError("action_type", in.ActionType, ErrInvalidInput)
	}
	if in.Quantity <= 0 {
		return NewValidationError("quantity", fmt.Sprintf("%g", in.Quantity), ErrNegativeQuantity)
	}
	return nil
}

// ValidateGoal checks a goal definition.
func ValidateGoal(g Goal) error {
	if strings.TrimSpace(g.UserID) == "" {
		return NewValidationError("user_id", g.UserID, ErrInvalidInput)
	}
	if strings.TrimSpace(g.Title) == "" {
		return NewValidationError("title", g.Title, ErrInvalidInput)
	}
	if g.Metric != "" && !ValidMetrics[g.Metric] {
		return NewValidationError("metric", string(g.Metric), ErrUnknownMetric)
	}
	if g.Target < 0 {
		return NewValidationError("target", fmt.Sprintf("%g", g.Target), ErrInvalidInput)
	}
	return nil
}
