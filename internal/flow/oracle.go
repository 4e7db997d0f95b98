package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lukia-marketing/campaignbot/internal/genai"
)

// queryOracle performs one oracle round-trip and decodes its JSON reply
// into out. The oracle returns loosely structured text, so the object is
// salvaged from surrounding prose or code fences before decoding. Any
// failure (transport, no JSON, bad JSON) is returned; callers substitute
// their fixed fallbacks and never propagate the error to the user.
func queryOracle(ctx context.Context, oracle genai.ClientInterface, timeout time.Duration, systemPrompt, userPrompt string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	content, err := oracle.Generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		return fmt.Errorf("oracle call failed: %w", err)
	}
	raw, ok := genai.ExtractJSON(content)
	if !ok {
		slog.Warn("flow.queryOracle: reply carried no JSON object", "contentLength", len(content))
		return fmt.Errorf("oracle reply carried no JSON object")
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		slog.Warn("flow.queryOracle: reply JSON did not decode", "error", err)
		return fmt.Errorf("decode oracle reply: %w", err)
	}
	return nil
}

// stringList decodes a JSON value that may be a single string, a number, or
// an array of either, into a list of strings. The oracle is inconsistent
// about this shape for administrator lists.
type stringList []string

func (s *stringList) UnmarshalJSON(data []byte) error {
	var asList []any
	if err := json.Unmarshal(data, &asList); err == nil {
		var out []string
		for _, v := range asList {
			if str := anyToString(v); str != "" {
				out = append(out, str)
			}
		}
		*s = out
		return nil
	}
	var single any
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	if str := anyToString(single); str != "" {
		*s = []string{str}
	} else {
		*s = nil
	}
	return nil
}

func anyToString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return fmt.Sprintf("%.0f", t)
	default:
		return ""
	}
}
