package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"parlaygen/internal/classifier"
	"parlaygen/internal/metrics"
	"parlaygen/internal/types"
)

type errorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type envelope struct {
	Success  bool        `json:"success"`
	Data     interface{} `json:"data,omitempty"`
	Metadata interface{} `json:"metadata,omitempty"`
	Error    *errorBody  `json:"error,omitempty"`
}

type generateData struct {
	*types.GeneratedSet
	Classification classifier.Classification `json:"classification"`
}

type generateMetadata struct {
	BackendName  string `json:"backendName"`
	Model        string `json:"model,omitempty"`
	LatencyMS    int64  `json:"latency"`
	Confidence   int    `json:"confidence"`
	FallbackUsed bool   `json:"fallbackUsed"`
	AttemptCount int    `json:"attemptCount"`
}

func (s *Server) fail(c echo.Context, err error) error {
	status, code, message := mapError(err)
	body := &errorBody{Code: code, Message: message}
	if s.debug {
		body.Details = err.Error()
	}
	return c.JSON(status, envelope{Success: false, Error: body})
}

// identity resolves the caller for rate limiting: explicit user header
// first, client IP otherwise.
func identity(c echo.Context) string {
	if id := c.Request().Header.Get("X-User-ID"); id != "" {
		return id
	}
	return c.RealIP()
}

func (s *Server) handleGenerateParlay(c echo.Context) error {
	ctx := c.Request().Context()

	if s.limiter != nil {
		status := s.limiter.Allow(ctx, identity(c))
		if status.Limited {
			metrics.IncRateLimited()
			return c.JSON(http.StatusTooManyRequests, envelope{
				Success: false,
				Error: &errorBody{
					Code:    codeRateLimitExceeded,
					Message: "request limit reached for the current window",
					Details: status,
				},
			})
		}
	}

	var req types.GenerationRequest
	if err := c.Bind(&req); err != nil {
		return s.fail(c, &types.ValidationError{Code: types.CodeInvalidRequest, Message: "request body is not valid JSON"})
	}

	result, err := s.engine.Generate(ctx, &req)
	if err != nil {
		return s.fail(c, err)
	}

	if s.history != nil {
		eventLabel := req.Event.AwayTeam + " at " + req.Event.HomeTeam
		if saveErr := s.history.Save(ctx, result.Set, result.Metadata.BackendName, eventLabel); saveErr != nil {
			s.logger.Warn("failed to persist generated set",
				zap.String("id", result.Set.ID),
				zap.Error(saveErr))
		}
	}

	return c.JSON(http.StatusOK, envelope{
		Success: true,
		Data: generateData{
			GeneratedSet:   result.Set,
			Classification: classifier.Assess(result.Set),
		},
		Metadata: generateMetadata{
			BackendName:  result.Metadata.BackendName,
			Model:        result.Metadata.Model,
			LatencyMS:    result.Metadata.Latency.Milliseconds(),
			Confidence:   result.Set.OverallConfidence,
			FallbackUsed: result.Metadata.FallbackUsed,
			AttemptCount: result.Metadata.AttemptCount,
		},
	})
}

type healthRecordView struct {
	Name        string    `json:"name"`
	Healthy     bool      `json:"healthy"`
	LatencyMS   int64     `json:"latencyMs,omitempty"`
	LastError   string    `json:"lastError,omitempty"`
	LastChecked time.Time `json:"lastChecked"`
}

func (s *Server) handleHealthCheck(c echo.Context) error {
	records := s.registry.HealthSnapshot()

	views := make([]healthRecordView, 0, len(records))
	healthyCount := 0
	for _, rec := range records {
		if rec.Healthy {
			healthyCount++
		}
		views = append(views, healthRecordView{
			Name:        rec.Name,
			Healthy:     rec.Healthy,
			LatencyMS:   rec.Latency.Milliseconds(),
			LastError:   rec.LastError,
			LastChecked: rec.LastChecked,
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"healthy":  healthyCount > 0,
		"backends": s.registry.ListNames(),
		"records":  views,
	})
}

func (s *Server) handleRateLimitStatus(c echo.Context) error {
	if s.limiter == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{"enabled": false})
	}
	status := s.limiter.Status(c.Request().Context(), identity(c))
	return c.JSON(http.StatusOK, map[string]interface{}{
		"enabled":      true,
		"remaining":    status.Remaining,
		"total":        status.Total,
		"resetTime":    status.ResetTime,
		"currentCount": status.CurrentCount,
	})
}

func (s *Server) handleHistory(c echo.Context) error {
	if s.history == nil {
		return c.JSON(http.StatusOK, envelope{Success: true, Data: []interface{}{}})
	}

	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	entries, err := s.history.Recent(c.Request().Context(), limit)
	if err != nil {
		s.logger.Error("failed to read history", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, envelope{
			Success: false,
			Error:   &errorBody{Code: codeGenerationFailed, Message: "failed to read history"},
		})
	}
	return c.JSON(http.StatusOK, envelope{Success: true, Data: entries})
}
