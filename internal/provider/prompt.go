package provider

import (
	"fmt"
	"strings"

	"parlaygen/internal/types"
)

const systemPrompt = `You are an expert NFL betting analyst. Build a 3-leg parlay for the given game.
Ground every leg in the provided rosters and game context. Respond with a single JSON object and nothing else.`

const outputSchema = `Respond with JSON matching exactly this shape:
{
  "legs": [
    {"betType": "<one of: spread, moneyline, total, team_total, player_passing, player_rushing, player_receiving, player_scoring, first_touchdown, special>",
     "selection": "<team or player name>",
     "target": "<line or threshold, e.g. 'over 249.5 yards'>",
     "reasoning": "<one or two sentences>",
     "confidence": <integer 1-10>,
     "odds": "<American odds, e.g. '-110' or '+140'>"}
  ],
  "eventContext": "<one sentence on the game situation>",
  "reasoning": "<overall parlay thesis>",
  "overallConfidence": <integer 1-10>,
  "combinedOdds": "<American odds for the combined parlay>"
}
The legs array must contain exactly 3 entries.`

// buildUserPrompt assembles the generation prompt from the request and the
// context builder's output, including the anti-template hints.
func buildUserPrompt(req *types.GenerationRequest, genCtx *types.GenerationContext) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Game: %s at %s, week %d, kickoff %s.\n",
		req.Event.AwayTeam, req.Event.HomeTeam, req.Event.Week,
		req.Event.Kickoff.Format("Mon Jan 2 15:04 MST"))
	if req.Event.Venue != "" {
		fmt.Fprintf(&sb, "Venue: %s", req.Event.Venue)
		if req.Event.Indoor {
			sb.WriteString(" (indoor)")
		}
		sb.WriteString(".\n")
	}

	fmt.Fprintf(&sb, "\nStrategy: %s\n", genCtx.Strategy)
	if len(genCtx.VarietyFactors) > 0 {
		fmt.Fprintf(&sb, "Variety factors: %s\n", strings.Join(genCtx.VarietyFactors, ", "))
	}

	flags := describeFlags(genCtx.EventContext)
	if len(flags) > 0 {
		fmt.Fprintf(&sb, "Game situation: %s\n", strings.Join(flags, ", "))
	}

	sb.WriteString("\nRosters:\n")
	for _, roster := range req.Rosters {
		fmt.Fprintf(&sb, "%s:\n", roster.Team)
		for _, p := range roster.Players {
			fmt.Fprintf(&sb, "  - %s (%s", p.Name, p.Position)
			if p.Status != "" && p.Status != "starter" {
				fmt.Fprintf(&sb, ", %s", p.Status)
			}
			sb.WriteString(")\n")
		}
	}

	if len(genCtx.Hints.RequiredFactors) > 0 {
		sb.WriteString("\nYour reasoning MUST address:\n")
		for _, f := range genCtx.Hints.RequiredFactors {
			fmt.Fprintf(&sb, "  - %s\n", f)
		}
	}
	if len(genCtx.Hints.Emphasis) > 0 {
		sb.WriteString("\nGame-specific angles to consider:\n")
		for _, e := range genCtx.Hints.Emphasis {
			fmt.Fprintf(&sb, "  - %s\n", e)
		}
	}
	if len(genCtx.Hints.ForbiddenPhrases) > 0 {
		sb.WriteString("\nNever use generic phrasing such as: ")
		sb.WriteString(strings.Join(genCtx.Hints.ForbiddenPhrases, "; "))
		sb.WriteString(".\n")
	}

	sb.WriteString("\n")
	sb.WriteString(outputSchema)
	return sb.String()
}

func describeFlags(f types.EventFlags) []string {
	var out []string
	if f.Rivalry {
		out = append(out, "divisional rivalry")
	}
	if f.Primetime {
		out = append(out, "primetime game")
	}
	if f.ShortRest {
		out = append(out, "short rest")
	}
	if f.LongRest {
		out = append(out, "extended rest")
	}
	if f.WeatherRisk {
		out = append(out, "outdoor late-season weather risk")
	}
	return out
}
