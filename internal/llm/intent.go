package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ynakagi/homerelay/internal/domain"
)

// ParseIntent decodes a completion's text as the three-variant intent
// union. The completion API is an untrusted producer: the shape is checked
// strictly and any mismatch is an error, which callers map to the none
// variant instead of propagating.
func ParseIntent(content string) (domain.Intent, error) {
	raw := ExtractJSON(content)
	if raw == "" {
		return domain.Intent{}, fmt.Errorf("no JSON object in completion output")
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()

	var intent domain.Intent
	if err := dec.Decode(&intent); err != nil {
		return domain.Intent{}, fmt.Errorf("decode intent: %w", err)
	}

	switch intent.Kind {
	case domain.IntentDeviceControl:
		if len(intent.Commands) == 0 {
			return domain.Intent{}, fmt.Errorf("device_control intent with no commands")
		}
		for _, cmd := range intent.Commands {
			if cmd.Device == "" || cmd.Action == "" {
				return domain.Intent{}, fmt.Errorf("device_control command missing device or action")
			}
		}
	case domain.IntentSmartHomeHelp:
		if intent.Answer == "" {
			return domain.Intent{}, fmt.Errorf("smart_home_help intent with empty answer")
		}
	case domain.IntentNone:
		// Nothing else to check.
	default:
		return domain.Intent{}, fmt.Errorf("unknown intent tag %q", intent.Kind)
	}

	return intent, nil
}

// ExtractJSON returns the JSON object embedded in content. Models sometimes
// wrap their output in markdown code fences or prose despite instructions;
// the outermost braces delimit what we parse.
func ExtractJSON(content string) string {
	content = strings.TrimSpace(content)

	if inner := extractFromCodeBlock(content, "```json", "```"); inner != "" {
		content = inner
	} else if inner := extractFromCodeBlock(content, "```", "```"); inner != "" {
		content = inner
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return content[start : end+1]
}

func extractFromCodeBlock(content, startMarker, endMarker string) string {
	startIdx := strings.Index(content, startMarker)
	if startIdx == -1 {
		return ""
	}

	contentStart := startIdx + len(startMarker)
	if contentStart < len(content) && content[contentStart] == '\n' {
		contentStart++
	}

	endIdx := strings.Index(content[contentStart:], endMarker)
	if endIdx == -1 {
		return ""
	}

	return strings.TrimSpace(content[contentStart : contentStart+endIdx])
}
