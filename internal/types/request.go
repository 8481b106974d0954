package types

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports a malformed or incomplete generation request.
// It is never retried and maps to a 400-class response at the HTTP boundary.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Validation error codes consumed by the HTTP status table.
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeMissingRosters      = "MISSING_ROSTERS"
	CodeInsufficientRosters = "INSUFFICIENT_ROSTERS"
)

// AsValidationError unwraps err to a *ValidationError if one is present.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// Validate checks request completeness: non-empty event teams, rosters for
// both sides with at least one player each, strategy and variety factors
// present. Runs once per call, before any retry loop.
func (r *GenerationRequest) Validate() error {
	if strings.TrimSpace(r.Event.HomeTeam) == "" || strings.TrimSpace(r.Event.AwayTeam) == "" {
		return &ValidationError{Code: CodeInvalidRequest, Message: "event must name both teams"}
	}
	if len(r.Rosters) == 0 {
		return &ValidationError{Code: CodeMissingRosters, Message: "rosters are required"}
	}
	if len(r.Rosters) < 2 {
		return &ValidationError{Code: CodeInsufficientRosters, Message: "rosters for both teams are required"}
	}
	for _, roster := range r.Rosters {
		if len(roster.Players) == 0 {
			return &ValidationError{Code: CodeInsufficientRosters, Message: fmt.Sprintf("roster for %s is empty", roster.Team)}
		}
	}
	if strings.TrimSpace(r.Strategy) == "" {
		return &ValidationError{Code: CodeInvalidRequest, Message: "strategy is required"}
	}
	if len(r.VarietyFactors) == 0 {
		return &ValidationError{Code: CodeInvalidRequest, Message: "variety factors are required"}
	}
	if t := r.Options.Temperature; t != nil && (*t < 0 || *t > 2) {
		return &ValidationError{Code: CodeInvalidRequest, Message: "temperature must be in [0,2]"}
	}
	return nil
}
