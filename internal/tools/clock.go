// Package tools provides the function tools offered to the agent.
package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/soyeahso/proxychat/internal/agent"
)

// TimeLayout renders local time with offset and zone abbreviation,
// e.g. 2026-10-17T14:03:00+02:00 CEST.
const TimeLayout = "2006-01-02T15:04:05-07:00 MST"

// NewClock returns the get_current_time tool. now defaults to time.Now.
func NewClock(now func() time.Time) *agent.FunctionTool {
	if now == nil {
		now = time.Now
	}
	return agent.MustFunctionTool(
		"get_current_time",
		"Return the current local date and time with UTC offset and time zone.",
		map[string]any{
			"type":                 "object",
			"properties":           map[string]any{},
			"additionalProperties": false,
		},
		func(context.Context, json.RawMessage) (string, error) {
			return now().Format(TimeLayout), nil
		},
	)
}
