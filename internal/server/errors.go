package server

import (
	"errors"
	"net/http"

	"parlaygen/internal/orchestrator"
	"parlaygen/internal/provider"
	"parlaygen/internal/types"
)

// Error codes surfaced to callers. The HTTP status for each is fixed by
// mapError; this is the only layer that translates internal error kinds.
const (
	codeInvalidRequest        = "INVALID_REQUEST"
	codeMissingAPIKey         = "MISSING_API_KEY"
	codeNoProvidersConfigured = "NO_PROVIDERS_CONFIGURED"
	codeProviderNotAvailable  = "PROVIDER_NOT_AVAILABLE"
	codeProviderError         = "OPENAI_ERROR"
	codeGenerationFailed      = "GENERATION_FAILED"
	codeParseError            = "PARSE_ERROR"
	codeNoResponse            = "NO_RESPONSE"
	codeAllProvidersFailed    = "ALL_PROVIDERS_FAILED"
	codeRateLimitExceeded     = "RATE_LIMIT_EXCEEDED"
)

// mapError translates an engine error into (status, code, message).
// Underlying detail is withheld here; the handler attaches it only in
// debug mode.
func mapError(err error) (int, string, string) {
	if ve, ok := types.AsValidationError(err); ok {
		return http.StatusBadRequest, ve.Code, ve.Message
	}

	if errors.Is(err, orchestrator.ErrNoBackends) {
		return http.StatusInternalServerError, codeNoProvidersConfigured, "no generation backends are configured"
	}

	var notAvailable *orchestrator.NoSuitableBackendError
	if errors.As(err, &notAvailable) {
		return http.StatusServiceUnavailable, codeProviderNotAvailable, notAvailable.Error()
	}

	var allFailed *orchestrator.AllBackendsFailedError
	if errors.As(err, &allFailed) {
		return http.StatusInternalServerError, codeAllProvidersFailed, allFailed.Error()
	}

	if be, ok := provider.AsBackendError(err); ok {
		switch be.Kind {
		case provider.KindAuth:
			return http.StatusInternalServerError, codeMissingAPIKey, "backend authentication failed"
		case provider.KindMalformedOutput:
			return http.StatusInternalServerError, codeParseError, "backend returned unparseable output"
		case provider.KindNoResponse:
			return http.StatusInternalServerError, codeNoResponse, "backend returned no completion"
		case provider.KindBadRequest:
			return http.StatusInternalServerError, codeGenerationFailed, "backend rejected the generation request"
		default:
			return http.StatusServiceUnavailable, codeProviderError, "backend is currently unavailable"
		}
	}

	return http.StatusInternalServerError, codeGenerationFailed, "generation failed"
}
