package workflow

import (
	"encoding/json"
	"regexp"
	"strings"
)

var jsonBlockRE = regexp.MustCompile(`(?s)\{.*\}|\[.*\]`)

// parseJSON extracts the last JSON object or array embedded in text and
// unmarshals it into out. Models occasionally wrap their JSON in prose or
// markdown fences even when asked not to.
func parseJSON(text string, out any) error {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	matches := jsonBlockRE.FindAllString(text, -1)
	if len(matches) > 0 {
		if err := json.Unmarshal([]byte(matches[len(matches)-1]), out); err == nil {
			return nil
		}
	}
	return json.Unmarshal([]byte(strings.TrimSpace(text)), out)
}
