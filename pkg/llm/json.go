package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// CompleteJSON runs a completion that is expected to return a single JSON
// object and unmarshals it into out. Providers often wrap JSON in markdown
// fences or preamble text; the extractor tolerates both. One repair retry
// is attempted with the parse error fed back to the model before giving up.
func CompleteJSON(ctx context.Context, client Client, in CompletionRequest, out any) error {
	resp, err := client.Complete(ctx, in)
	if err != nil {
		return fmt.Errorf("completion failed: %w", err)
	}

	if err := unmarshalLoose(resp.Content, out); err == nil {
		return nil
	} else { //nolint:revive // keep parse error for the repair prompt
		repair := in
		repair.Messages = append(append([]CompletionMessage(nil), in.Messages...),
			NewAssistantMessage(resp.Content),
			NewUserMessage(fmt.Sprintf(
				"That was not valid JSON (%v). Respond again with only the JSON object, no prose.", err)),
		)

		resp, err = client.Complete(ctx, repair)
		if err != nil {
			return fmt.Errorf("repair completion failed: %w", err)
		}
		if err := unmarshalLoose(resp.Content, out); err != nil {
			return fmt.Errorf("response is not valid JSON after repair: %w", err)
		}
	}
	return nil
}

// unmarshalLoose extracts the first JSON object or array from text and
// unmarshals it.
func unmarshalLoose(text string, out any) error {
	extracted := extractJSON(text)
	if extracted == "" {
		return fmt.Errorf("no JSON object found in response")
	}
	if err := json.Unmarshal([]byte(extracted), out); err != nil {
		return fmt.Errorf("unmarshal failed: %w", err)
	}
	return nil
}

// extractJSON returns the first balanced {...} or [...] block in text,
// stripping markdown code fences first.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)

	if idx := strings.Index(text, "```"); idx >= 0 {
		rest := text[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			text = strings.TrimSpace(rest[:end])
		}
	}

	for _, open := range []byte{'{', '['} {
		start := strings.IndexByte(text, open)
		if start < 0 {
			continue
		}
		if block := balancedBlock(text[start:], open); block != "" {
			return block
		}
	}
	return ""
}

func balancedBlock(text string, open byte) string {
	var closeCh byte = '}'
	if open == '[' {
		closeCh = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case closeCh:
			depth--
			if depth == 0 {
				return text[:i+1]
			}
		}
	}
	return ""
}
