package oracle

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// extractText concatenates the text blocks of a model response.
func extractText(blocks []string) string {
	var b strings.Builder
	for _, t := range blocks {
		b.WriteString(t)
	}
	return b.String()
}

// cleanJSON strips markdown code fences and trims to the outermost JSON
// object so minor prose around the payload does not break parsing.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return s
}

// parseRankResult decodes and validates the model output. A reply missing
// rankings or the debrief is rejected whole; no partial credit.
func parseRankResult(text string) (*RankResult, error) {
	cleaned := cleanJSON(text)

	var result RankResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, eris.Wrap(ErrInvalidResponse, err.Error())
	}

	if len(result.Rankings) == 0 {
		return nil, eris.Wrap(ErrInvalidResponse, "empty rankings")
	}
	if result.Debrief == "" {
		return nil, eris.Wrap(ErrInvalidResponse, "missing debrief")
	}
	for _, r := range result.Rankings {
		if r.SchoolID == "" {
			return nil, eris.Wrap(ErrInvalidResponse, "ranking missing schoolId")
		}
	}

	return &result, nil
}
