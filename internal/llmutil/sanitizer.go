// Package llmutil sanitizes chatty model output into parseable JSON. The
// precedence is fixed: strip markdown fences first, then locate the outermost
// balanced bracket pair inside conversational text, then attempt repair of a
// truncated tail. Generation output is never trusted to be bare JSON.
package llmutil

import (
	"fmt"
	"regexp"
	"strings"

	json "github.com/json-iterator/go"
)

// Fence regexes use \x60 for backticks since Go raw strings cannot contain
// them.
var (
	fencedObjectRegex = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*({.*})\\s*\x60\x60\x60")
	fencedArrayRegex  = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*(\\[.*\\])\\s*\x60\x60\x60")
	fencedBlockRegex  = regexp.MustCompile("(?s)\x60\x60\x60[a-zA-Z0-9]*\\s*\\n?(.*?)\x60\x60\x60")
)

// CleanCodeOutput strips a single markdown fence from around free-form model
// output (prompts, descriptions, snippets). Unlike ExtractJSON it makes no
// assumptions about the content inside the fence.
func CleanCodeOutput(response string) string {
	response = strings.TrimSpace(response)
	if m := fencedBlockRegex.FindStringSubmatch(response); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return response
}

// ExtractJSON pulls the most plausible JSON document out of a model response.
// It returns the candidate string; validity is the caller's concern.
func ExtractJSON(response string) string {
	response = strings.TrimSpace(response)
	if response == "" {
		return ""
	}

	// 1. Markdown fences win outright.
	if strings.Contains(response, "```") {
		if m := fencedObjectRegex.FindStringSubmatch(response); len(m) > 1 {
			return strings.TrimSpace(m[1])
		}
		if m := fencedArrayRegex.FindStringSubmatch(response); len(m) > 1 {
			return strings.TrimSpace(m[1])
		}
	}

	// 2. Outermost bracket pair inside surrounding prose.
	if cut := outermost(response, '{', '}'); cut != "" {
		return cut
	}
	if cut := outermost(response, '[', ']'); cut != "" {
		return cut
	}
	return response
}

// outermost slices from the first open to the last close bracket, or returns
// "" when no such pair exists.
func outermost(s string, open, close byte) string {
	first := strings.IndexByte(s, open)
	last := strings.LastIndexByte(s, close)
	if first == -1 || last == -1 || last <= first {
		return ""
	}
	return s[first : last+1]
}

// RepairTruncated closes a dangling string literal and any unclosed brackets
// at the end of a JSON fragment. It is a best-effort recovery for generations
// cut off by a token limit and leaves well-formed input unchanged.
func RepairTruncated(s string) string {
	var stack []byte
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
			// Structural characters inside strings are data.
		case c == '{' || c == '[':
			stack = append(stack, c)
		case c == '}' || c == ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if !inString && len(stack) == 0 {
		return s
	}

	var sb strings.Builder
	sb.WriteString(s)
	if escaped {
		// A lone trailing backslash would corrupt the closing quote.
		sb.WriteByte('\\')
	}
	if inString {
		sb.WriteByte('"')
	}
	// Drop a dangling trailing comma left by the truncation point.
	repaired := strings.TrimRight(sb.String(), ", \t\n")
	sb.Reset()
	sb.WriteString(repaired)
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			sb.WriteByte('}')
		} else {
			sb.WriteByte(']')
		}
	}
	return sb.String()
}

// ParseJSONResponse extracts, repairs if necessary, and unmarshals a model
// response into T.
func ParseJSONResponse[T any](response string) (*T, error) {
	candidate := ExtractJSON(response)
	if candidate == "" {
		return nil, fmt.Errorf("no JSON found in model response")
	}

	var result T
	if err := json.Unmarshal([]byte(candidate), &result); err == nil {
		return &result, nil
	}

	repaired := RepairTruncated(candidate)
	if err := json.Unmarshal([]byte(repaired), &result); err != nil {
		return nil, fmt.Errorf("unmarshal model JSON: %w (candidate truncated: %s)", err, truncate(candidate, 300))
	}
	return &result, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
