package provider

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"parlaygen/internal/classifier"
	"parlaygen/internal/types"
)

// wireSet mirrors the JSON shape backends are instructed to emit.
type wireSet struct {
	Legs              []wireLeg `json:"legs"`
	EventContext      string    `json:"eventContext"`
	Reasoning         string    `json:"reasoning"`
	OverallConfidence int       `json:"overallConfidence"`
	CombinedOdds      string    `json:"combinedOdds"`
	Summary           string    `json:"summary"`
}

type wireLeg struct {
	BetType    string `json:"betType"`
	Selection  string `json:"selection"`
	Target     string `json:"target"`
	Reasoning  string `json:"reasoning"`
	Confidence int    `json:"confidence"`
	Odds       string `json:"odds"`
}

// CleanModelOutput strips markdown code fences and control characters.
// This is a pre-pass only; validation happens in DecodeGeneratedSet.
func CleanModelOutput(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= 0x20 || r == '\n' || r == '\t' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// DecodeGeneratedSet strictly decodes model output into a validated
// GeneratedSet. Any schema violation, including a leg count other than
// three, is a terminal malformed-output error for the attempt. A missing
// combinedOdds is filled in with the canonical computation.
func DecodeGeneratedSet(backend, raw string) (*types.GeneratedSet, error) {
	cleaned := CleanModelOutput(raw)
	if cleaned == "" {
		return nil, &BackendError{Backend: backend, Kind: KindNoResponse, Err: fmt.Errorf("empty completion")}
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(cleaned)))
	dec.DisallowUnknownFields()

	var w wireSet
	if err := dec.Decode(&w); err != nil {
		return nil, &BackendError{
			Backend: backend,
			Kind:    KindMalformedOutput,
			Err:     fmt.Errorf("failed to parse model output: %w", err),
		}
	}

	set := &types.GeneratedSet{
		ID:                uuid.NewString(),
		EventContext:      w.EventContext,
		Reasoning:         w.Reasoning,
		OverallConfidence: w.OverallConfidence,
		CombinedOdds:      w.CombinedOdds,
		Summary:           w.Summary,
	}
	for _, wl := range w.Legs {
		set.Legs = append(set.Legs, types.Leg{
			ID:         uuid.NewString(),
			BetType:    types.BetType(wl.BetType),
			Selection:  wl.Selection,
			Target:     wl.Target,
			Reasoning:  wl.Reasoning,
			Confidence: wl.Confidence,
			Odds:       wl.Odds,
		})
	}

	if set.CombinedOdds == "" && len(set.Legs) == types.LegCount {
		legsOK := true
		for i := range set.Legs {
			if !types.ValidOdds(set.Legs[i].Odds) {
				legsOK = false
				break
			}
		}
		if legsOK {
			combined, err := classifier.CombinedOdds(set.Legs)
			if err == nil {
				set.CombinedOdds = combined
			}
		}
	}

	if err := set.Validate(); err != nil {
		return nil, &BackendError{
			Backend: backend,
			Kind:    KindMalformedOutput,
			Err:     fmt.Errorf("model output failed validation: %w", err),
		}
	}
	return set, nil
}
