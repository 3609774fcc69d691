package extractor

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ExtractJSONObject pulls a JSON object out of an LLM reply. It tries, in
// order: the whole payload, a fenced ```json block, and the outermost
// brace-delimited substring. Returns false when nothing parses.
func ExtractJSONObject(text string, out any) bool {
	text = strings.TrimSpace(text)
	if json.Unmarshal([]byte(text), out) == nil {
		return true
	}

	if m := fencedJSONRe.FindStringSubmatch(text); m != nil {
		if json.Unmarshal([]byte(m[1]), out) == nil {
			return true
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		if json.Unmarshal([]byte(text[start:end+1]), out) == nil {
			return true
		}
	}
	return false
}
