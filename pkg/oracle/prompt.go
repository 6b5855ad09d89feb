package oracle

import (
	"encoding/json"
	"fmt"
	"strings"
)

const systemPrompt = `You are an expert flight training advisor. You rank flight schools for a student and explain the ranking in plain language. Respond with JSON only.`

// buildPrompt assembles the ranking prompt: student requirements, the
// candidate pool as JSON, the response schema, and the factor weights the
// model should apply.
func buildPrompt(req RankRequest) (string, error) {
	candidatesJSON, err := json.MarshalIndent(req.Candidates, "", "  ")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Rank these flight schools for a student with the following requirements:\n\n")
	fmt.Fprintf(&b, "- Maximum budget: $%.0f\n", req.Budget)
	fmt.Fprintf(&b, "- Training goals: %s\n", strings.Join(req.TrainingGoals, ", "))
	if req.Schedule != "" {
		fmt.Fprintf(&b, "- Schedule: %s\n", req.Schedule)
	}
	if req.LocationRadiusKm > 0 {
		fmt.Fprintf(&b, "- Willing to travel: %.0f km\n", req.LocationRadiusKm)
	}
	if len(req.PreferredAircraft) > 0 {
		fmt.Fprintf(&b, "- Preferred aircraft: %s\n", strings.Join(req.PreferredAircraft, ", "))
	}
	if req.PreferredTrainingType != "" {
		fmt.Fprintf(&b, "- Preferred training type: %s\n", req.PreferredTrainingType)
	}

	b.WriteString("\nSchools:\n")
	b.Write(candidatesJSON)

	b.WriteString("\n\nRespond with JSON in exactly this shape:\n")
	b.WriteString(`{"rankings": [{"schoolId": "...", "score": 0-100, "reason": "..."}], "debrief": "2-3 sentence summary for the student"}`)
	b.WriteString("\n\nConsider: budget fit (40%), program quality (30%), location convenience (15%), fleet quality (10%), trust tier (5%).")

	return b.String(), nil
}
