// Package promptctx builds the per-request generation context: heuristic
// event flags and anti-template hints. Pure transformation; nothing here is
// persisted or enforced downstream.
package promptctx

import (
	"fmt"
	"strings"
	"time"

	"parlaygen/internal/types"
)

// DefaultTemperature is used when neither config nor request override it.
const DefaultTemperature = 0.7

// forbiddenPhrases is the static list of generic phrasing backends are told
// to avoid.
var forbiddenPhrases = []string{
	"lock of the week",
	"can't-miss",
	"guaranteed winner",
	"easy money",
	"slam dunk pick",
	"sharp money is on",
	"trust the process",
}

// rivalries is a static pair list. Detection is a heuristic, not a live
// data integration.
var rivalries = map[string]string{
	pairKey("Green Bay Packers", "Chicago Bears"):          "",
	pairKey("Dallas Cowboys", "Washington Commanders"):     "",
	pairKey("Dallas Cowboys", "Philadelphia Eagles"):       "",
	pairKey("Pittsburgh Steelers", "Baltimore Ravens"):     "",
	pairKey("Pittsburgh Steelers", "Cleveland Browns"):     "",
	pairKey("Kansas City Chiefs", "Las Vegas Raiders"):     "",
	pairKey("Kansas City Chiefs", "Denver Broncos"):        "",
	pairKey("San Francisco 49ers", "Seattle Seahawks"):     "",
	pairKey("San Francisco 49ers", "Los Angeles Rams"):     "",
	pairKey("New England Patriots", "New York Jets"):       "",
	pairKey("Buffalo Bills", "Miami Dolphins"):             "",
	pairKey("Minnesota Vikings", "Green Bay Packers"):      "",
	pairKey("New Orleans Saints", "Atlanta Falcons"):       "",
	pairKey("Cincinnati Bengals", "Cleveland Browns"):      "",
	pairKey("Indianapolis Colts", "Tennessee Titans"):      "",
	pairKey("Philadelphia Eagles", "New York Giants"):      "",
	pairKey("Detroit Lions", "Green Bay Packers"):          "",
	pairKey("Houston Texans", "Jacksonville Jaguars"):      "",
	pairKey("Los Angeles Chargers", "Las Vegas Raiders"):   "",
	pairKey("Tampa Bay Buccaneers", "New Orleans Saints"):  "",
}

func pairKey(a, b string) string {
	a, b = strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// Build derives the generation context from a request. The request-level
// temperature override wins over defaultTemperature.
func Build(req *types.GenerationRequest, defaultTemperature float64) *types.GenerationContext {
	temperature := defaultTemperature
	if temperature <= 0 {
		temperature = DefaultTemperature
	}
	if req.Options.Temperature != nil {
		temperature = *req.Options.Temperature
	}

	flags := deriveFlags(req.Event)
	return &types.GenerationContext{
		Strategy:       req.Strategy,
		VarietyFactors: append([]string(nil), req.VarietyFactors...),
		EventContext:   flags,
		Hints: types.AntiTemplateHints{
			ForbiddenPhrases: append([]string(nil), forbiddenPhrases...),
			RequiredFactors:  requiredFactors(flags),
			Emphasis:         emphasisPoints(req),
		},
		Temperature: temperature,
	}
}

// deriveFlags applies lightweight rules over the event descriptor. Rest and
// weather are inferred, not pulled from live feeds; a known simplification.
func deriveFlags(event types.EventDescriptor) types.EventFlags {
	var flags types.EventFlags

	_, flags.Rivalry = rivalries[pairKey(event.HomeTeam, event.AwayTeam)]

	if !event.Kickoff.IsZero() {
		hour := event.Kickoff.Hour()
		day := event.Kickoff.Weekday()
		flags.Primetime = hour >= 19 && (day == time.Thursday || day == time.Sunday || day == time.Monday)

		month := event.Kickoff.Month()
		lateYear := month == time.November || month == time.December ||
			month == time.January || month == time.February
		flags.WeatherRisk = lateYear && !event.Indoor
	}

	shortRest := func(days int) bool { return days > 0 && days < 6 }
	longRest := func(days int) bool { return days > 9 }
	flags.ShortRest = shortRest(event.HomeDaysRest) || shortRest(event.AwayDaysRest)
	flags.LongRest = longRest(event.HomeDaysRest) || longRest(event.AwayDaysRest)

	return flags
}

// requiredFactors lists the context factors a backend must address, each
// activated only when its flag is true.
func requiredFactors(flags types.EventFlags) []string {
	var factors []string
	if flags.Rivalry {
		factors = append(factors, "how the rivalry history changes the typical game script")
	}
	if flags.Primetime {
		factors = append(factors, "primetime performance splits for both teams")
	}
	if flags.ShortRest {
		factors = append(factors, "the impact of short rest on practice quality and injuries")
	}
	if flags.LongRest {
		factors = append(factors, "rust versus rest coming off the extended break")
	}
	if flags.WeatherRisk {
		factors = append(factors, "weather impact on passing volume and kicking")
	}
	return factors
}

// emphasisPoints inspects roster composition and week number for
// game-specific angles worth surfacing.
func emphasisPoints(req *types.GenerationRequest) []string {
	var points []string

	for _, roster := range req.Rosters {
		var starterQBOut bool
		var healthyRBs int
		for _, p := range roster.Players {
			pos := strings.ToUpper(strings.TrimSpace(p.Position))
			status := strings.ToLower(strings.TrimSpace(p.Status))
			unavailable := status == "out" || status == "doubtful" || status == "questionable"

			if pos == "QB" && p.Depth <= 1 && unavailable {
				starterQBOut = true
			}
			if pos == "RB" && status != "out" && status != "doubtful" {
				healthyRBs++
			}
		}
		if starterQBOut {
			points = append(points, fmt.Sprintf("%s backup quarterback situation", roster.Team))
		}
		if healthyRBs > 0 && healthyRBs < 2 {
			points = append(points, fmt.Sprintf("%s thin running back depth", roster.Team))
		}
	}

	switch {
	case req.Event.Week >= 15:
		points = append(points, "late-season playoff positioning stakes")
	case req.Event.Week >= 1 && req.Event.Week <= 2:
		points = append(points, "small early-season sample; lean on prior-year tendencies")
	}

	return points
}
