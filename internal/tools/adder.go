package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/soyeahso/proxychat/internal/agent"
)

type addArgs struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// NewAdder returns the add_numbers tool.
func NewAdder() *agent.FunctionTool {
	return agent.MustFunctionTool(
		"add_numbers",
		"Add two numbers and return the sum.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"a": map[string]any{"type": "number", "description": "First addend."},
				"b": map[string]any{"type": "number", "description": "Second addend."},
			},
			"required":             []string{"a", "b"},
			"additionalProperties": false,
		},
		func(_ context.Context, raw json.RawMessage) (string, error) {
			var args addArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return "", fmt.Errorf("decoding arguments: %w", err)
			}
			return FormatNumber(args.A + args.B), nil
		},
	)
}

// FormatNumber renders a float with the fewest digits that round-trip;
// integral values carry no decimal point.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Builtin returns every tool offered by the tools-enabled command.
func Builtin(now func() time.Time) []agent.Tool {
	return []agent.Tool{NewClock(now), NewAdder()}
}
