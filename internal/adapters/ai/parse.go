package ai

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fenceRe = regexp.MustCompile("```(?:json|JSON)?\\s*([\\s\\S]*?)```")
	pairRe  = regexp.MustCompile(`"([A-Za-z_ ]+)"\s*:\s*("(?:[^"\\]|\\.)*"|[^,}\n]+)`)
)

// stripFences removes a surrounding ``` or ```json code block, if present
func stripFences(text string) string {
	if m := fenceRe.FindStringSubmatch(text); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}

// extractJSON returns the slice from the first '{' to the last '}'.
// Text without braces is returned trimmed so that decoding fails loudly.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return strings.TrimSpace(text)
}

// parseKeyValueLines reads "key: value" lines (keys lowercased, spaces to underscores).
// Lines without a colon are ignored; later keys win.
func parseKeyValueLines(text string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*# ")
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.Trim(strings.TrimSpace(key), `"*`)
		key = strings.ReplaceAll(strings.ToLower(key), " ", "_")
		if key == "" {
			continue
		}
		value = strings.TrimSpace(value)
		value = strings.TrimSuffix(value, ",")
		value = strings.Trim(value, `"`)
		out[key] = value
	}
	return out
}

// parseLooseJSONPairs pulls "key": value pairs out of JSON-like text that
// does not decode as a whole (trailing commas, truncated replies).
func parseLooseJSONPairs(text string) map[string]string {
	out := make(map[string]string)
	for _, m := range pairRe.FindAllStringSubmatch(text, -1) {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(m[1])), " ", "_")
		out[key] = jsonText(json.RawMessage(strings.TrimSpace(m[2])))
	}
	return out
}

// jsonText renders a JSON value as plain text: strings are unquoted,
// null is empty, anything else keeps its compact JSON form.
func jsonText(msg json.RawMessage) string {
	msg = bytes.TrimSpace(msg)
	if len(msg) == 0 || string(msg) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(msg, &s); err == nil {
		return s
	}
	if msg[0] == '"' {
		return strings.Trim(string(msg), `"`)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, msg); err == nil {
		return buf.String()
	}
	return string(msg)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
