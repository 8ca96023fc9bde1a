// Package payload contains defensive utilities for handling LLM responses.
// Model output is not guaranteed to be well-formed: payloads arrive wrapped in
// fenced code blocks, surrounded by prose, or with smart quotes where JSON
// expects plain ones. The extraction here works through a ladder of recovery
// strategies instead of trusting a strict grammar.
package payload

import (
	"encoding/json"
	"strings"

	"brickyard/internal/errors"
)

// Extract locates and returns the JSON payload embedded in raw LLM text.
// Recovery order: direct parse, fenced code blocks, brace/bracket scan, and
// finally the same ladder after smart-quote normalization. Returns a
// PAYLOAD-001 error when every strategy fails; it never substitutes a
// default value.
func Extract(raw string) (json.RawMessage, error) {
	if payload, ok := extractOnce(raw); ok {
		return payload, nil
	}

	// Smart quotes are a common model slip; normalize and retry the ladder.
	normalized := normalizeQuotes(raw)
	if normalized != raw {
		if payload, ok := extractOnce(normalized); ok {
			return payload, nil
		}
	}

	return nil, errors.NewPayloadNotFoundError(summarize(raw))
}

// ExtractInto extracts the payload and unmarshals it into v
func ExtractInto(raw string, v any) error {
	payload, err := Extract(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return errors.Wrap(errors.ErrCodePayloadInvalid, "payload does not match the expected shape", err)
	}
	return nil
}

func extractOnce(raw string) (json.RawMessage, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, false
	}

	// Strategy 1: the whole response is the payload.
	if isStructured(trimmed) {
		return json.RawMessage(trimmed), true
	}

	// Strategy 2: fenced code blocks, labeled or not.
	for _, block := range fencedBlocks(trimmed) {
		if isStructured(block) {
			return json.RawMessage(block), true
		}
	}

	// Strategy 3: scan between the first opener and last matching closer,
	// which survives leading ("Here is the plan:") and trailing prose.
	if candidate, ok := braceScan(trimmed); ok && isStructured(candidate) {
		return json.RawMessage(candidate), true
	}

	return nil, false
}

// isStructured reports whether s parses as a JSON object or array. Bare
// scalars are rejected: a stray word would otherwise count as a payload.
func isStructured(s string) bool {
	if !strings.HasPrefix(s, "{") && !strings.HasPrefix(s, "[") {
		return false
	}
	return json.Valid([]byte(s))
}

// fencedBlocks returns the contents of every ``` fenced block in s, with any
// language label on the opening fence stripped.
func fencedBlocks(s string) []string {
	var blocks []string
	rest := s
	for {
		start := strings.Index(rest, "```")
		if start < 0 {
			break
		}
		rest = rest[start+3:]

		// Drop the language label: everything up to the first newline.
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}

		end := strings.Index(rest, "```")
		if end < 0 {
			break
		}
		blocks = append(blocks, strings.TrimSpace(rest[:end]))
		rest = rest[end+3:]
	}
	return blocks
}

// braceScan extracts the substring from the first { or [ to the last
// corresponding closer.
func braceScan(s string) (string, bool) {
	startBrace := strings.IndexByte(s, '{')
	startBracket := strings.IndexByte(s, '[')

	start := -1
	closer := byte('}')
	if startBrace >= 0 && (startBracket < 0 || startBrace < startBracket) {
		start = startBrace
	} else if startBracket >= 0 {
		start = startBracket
		closer = ']'
	}
	if start < 0 {
		return "", false
	}

	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return "", false
	}
	return strings.TrimSpace(s[start : end+1]), true
}

var quoteReplacer = strings.NewReplacer(
	"“", `"`, // left double
	"”", `"`, // right double
	"‘", "'", // left single
	"’", "'", // right single
)

func normalizeQuotes(s string) string {
	return quoteReplacer.Replace(s)
}

// summarize produces a short description of unparseable text for diagnostics
func summarize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "response was empty"
	}
	const limit = 120
	if len(trimmed) > limit {
		trimmed = trimmed[:limit] + "..."
	}
	return "response begins: " + trimmed
}
