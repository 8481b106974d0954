// Package types holds the shared data model for parlay generation:
// requests, generation contexts, legs, and generated sets.
package types

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// BetType identifies the kind of bet a leg represents.
type BetType string

const (
	BetSpread          BetType = "spread"
	BetMoneyline       BetType = "moneyline"
	BetTotal           BetType = "total"
	BetTeamTotal       BetType = "team_total"
	BetPlayerPassing   BetType = "player_passing"
	BetPlayerRushing   BetType = "player_rushing"
	BetPlayerReceiving BetType = "player_receiving"
	BetPlayerScoring   BetType = "player_scoring"
	BetFirstTouchdown  BetType = "first_touchdown"
	BetSpecial         BetType = "special"
)

// Category groups bet types for variety scoring.
type Category string

const (
	CategoryTeam    Category = "team"
	CategoryGame    Category = "game"
	CategoryPlayer  Category = "player"
	CategorySpecial Category = "special"
)

var betCategories = map[BetType]Category{
	BetSpread:          CategoryTeam,
	BetMoneyline:       CategoryTeam,
	BetTeamTotal:       CategoryTeam,
	BetTotal:           CategoryGame,
	BetPlayerPassing:   CategoryPlayer,
	BetPlayerRushing:   CategoryPlayer,
	BetPlayerReceiving: CategoryPlayer,
	BetPlayerScoring:   CategoryPlayer,
	BetFirstTouchdown:  CategorySpecial,
	BetSpecial:         CategorySpecial,
}

// Valid reports whether the bet type is part of the fixed enumeration.
func (b BetType) Valid() bool {
	_, ok := betCategories[b]
	return ok
}

// Category returns the grouping for this bet type. Unknown types map to special.
func (b BetType) Category() Category {
	if c, ok := betCategories[b]; ok {
		return c
	}
	return CategorySpecial
}

// IsPlayerProp reports whether the bet type is a player proposition.
func (b BetType) IsPlayerProp() bool {
	return b.Category() == CategoryPlayer
}

// oddsPattern matches American odds notation, e.g. "-110" or "+140".
var oddsPattern = regexp.MustCompile(`^[+-]\d+$`)

// ValidOdds reports whether s is well-formed American odds.
func ValidOdds(s string) bool {
	return oddsPattern.MatchString(s)
}

// Leg is one atomic prediction within a generated set.
type Leg struct {
	ID         string  `json:"id"`
	BetType    BetType `json:"betType"`
	Selection  string  `json:"selection"`
	Target     string  `json:"target"`
	Reasoning  string  `json:"reasoning"`
	Confidence int     `json:"confidence"`
	Odds       string  `json:"odds"`
}

// Validate checks the leg invariants: known bet type, confidence in [1,10],
// well-formed American odds, non-empty selection.
func (l *Leg) Validate() error {
	if !l.BetType.Valid() {
		return fmt.Errorf("unknown bet type %q", l.BetType)
	}
	if strings.TrimSpace(l.Selection) == "" {
		return fmt.Errorf("leg has empty selection")
	}
	if l.Confidence < 1 || l.Confidence > 10 {
		return fmt.Errorf("confidence %d out of range [1,10]", l.Confidence)
	}
	if !ValidOdds(l.Odds) {
		return fmt.Errorf("malformed odds %q", l.Odds)
	}
	return nil
}

// LegCount is the fixed number of legs every backend must produce.
const LegCount = 3

// GeneratedSet is a complete parlay produced by one backend attempt.
type GeneratedSet struct {
	ID                string `json:"id"`
	Legs              []Leg  `json:"legs"`
	EventContext      string `json:"eventContext,omitempty"`
	Reasoning         string `json:"reasoning,omitempty"`
	OverallConfidence int    `json:"overallConfidence"`
	CombinedOdds      string `json:"combinedOdds"`
	Summary           string `json:"summary,omitempty"`
}

// Validate checks the set invariants. Every leg must individually validate
// and the set must contain exactly LegCount legs.
func (s *GeneratedSet) Validate() error {
	if len(s.Legs) != LegCount {
		return fmt.Errorf("expected %d legs, got %d", LegCount, len(s.Legs))
	}
	for i := range s.Legs {
		if err := s.Legs[i].Validate(); err != nil {
			return fmt.Errorf("leg %d: %w", i, err)
		}
	}
	if s.OverallConfidence < 1 || s.OverallConfidence > 10 {
		return fmt.Errorf("overall confidence %d out of range [1,10]", s.OverallConfidence)
	}
	if s.CombinedOdds != "" && !ValidOdds(s.CombinedOdds) {
		return fmt.Errorf("malformed combined odds %q", s.CombinedOdds)
	}
	return nil
}

// EventDescriptor identifies the game a parlay is built for.
type EventDescriptor struct {
	HomeTeam     string    `json:"homeTeam"`
	AwayTeam     string    `json:"awayTeam"`
	Kickoff      time.Time `json:"kickoff"`
	Week         int       `json:"week"`
	Venue        string    `json:"venue,omitempty"`
	Indoor       bool      `json:"indoor,omitempty"`
	HomeDaysRest int       `json:"homeDaysRest,omitempty"`
	AwayDaysRest int       `json:"awayDaysRest,omitempty"`
}

// Player is a roster entry. Status uses injury-report vocabulary
// ("starter", "questionable", "doubtful", "out").
type Player struct {
	Name     string `json:"name"`
	Position string `json:"position"`
	Status   string `json:"status,omitempty"`
	Depth    int    `json:"depth,omitempty"`
}

// Roster is the participant list for one team.
type Roster struct {
	Team    string   `json:"team"`
	Players []Player `json:"players"`
}

// GenerationOptions carries per-request overrides.
type GenerationOptions struct {
	// BackendChoice is a specific backend name, or "auto" (or empty) to use
	// the configured primary plus fallback chain.
	BackendChoice string   `json:"backendChoice,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	MaxRetries    int      `json:"maxRetries,omitempty"`
}

// BackendAuto selects the configured primary + fallback try-order.
const BackendAuto = "auto"

// GenerationRequest is the caller's input to the orchestration engine.
type GenerationRequest struct {
	Event          EventDescriptor   `json:"event"`
	Rosters        []Roster          `json:"rosters"`
	Strategy       string            `json:"strategy,omitempty"`
	VarietyFactors []string          `json:"varietyFactors,omitempty"`
	Options        GenerationOptions `json:"options,omitempty"`
}

// EventFlags are heuristic context flags derived from the event descriptor.
type EventFlags struct {
	Rivalry     bool `json:"rivalry"`
	Primetime   bool `json:"primetime"`
	ShortRest   bool `json:"shortRest"`
	LongRest    bool `json:"longRest"`
	WeatherRisk bool `json:"weatherRisk"`
}

// AntiTemplateHints bias generation away from repetitive output. Advisory:
// the core never enforces that a backend obeys them.
type AntiTemplateHints struct {
	ForbiddenPhrases []string `json:"forbiddenPhrases"`
	RequiredFactors  []string `json:"requiredFactors"`
	Emphasis         []string `json:"emphasis"`
}

// GenerationContext is the structured input handed to a backend alongside
// the raw request. Built fresh per request, never persisted.
type GenerationContext struct {
	Strategy       string            `json:"strategy"`
	VarietyFactors []string          `json:"varietyFactors"`
	EventContext   EventFlags        `json:"eventContext"`
	Hints          AntiTemplateHints `json:"antiTemplateHints"`
	Temperature    float64           `json:"temperature"`
}

// ModelInfo describes a backend's underlying model.
type ModelInfo struct {
	Name         string   `json:"name"`
	Version      string   `json:"version,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// Metadata describes how a generation result was produced.
type Metadata struct {
	BackendName  string        `json:"backendName"`
	Model        string        `json:"model,omitempty"`
	Tokens       int           `json:"tokens,omitempty"`
	Latency      time.Duration `json:"latency"`
	AttemptCount int           `json:"attemptCount"`
	FallbackUsed bool          `json:"fallbackUsed"`
}

// GenerationResult is the orchestration engine's success output.
type GenerationResult struct {
	Set      *GeneratedSet `json:"set"`
	Metadata Metadata      `json:"metadata"`
}
