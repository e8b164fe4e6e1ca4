// Package domain holds the conversation types shared by the agent runtime,
// the model transport and session storage.
package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Item types in the Responses API wire shape.
const (
	ItemMessage            = "message"
	ItemFunctionCall       = "function_call"
	ItemFunctionCallOutput = "function_call_output"
	ItemReasoning          = "reasoning"
)

// Role constants for message items.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleDeveloper = "developer"
)

// head is the subset of item fields the runtime branches on.
type head struct {
	Type      string          `json:"type,omitempty"`
	ID        string          `json:"id,omitempty"`
	Role      string          `json:"role,omitempty"`
	CallID    string          `json:"call_id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Arguments string          `json:"arguments,omitempty"`
	Output    json.RawMessage `json:"output,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Item is one entry of a conversation transcript. The original JSON is kept
// verbatim so fields the runtime does not model (encrypted reasoning,
// annotations, status) survive a store and replay.
type Item struct {
	raw json.RawMessage
	h   head
}

// ParseItem decodes one item. It must be a JSON object.
func ParseItem(data []byte) (Item, error) {
	var it Item
	if err := it.UnmarshalJSON(data); err != nil {
		return Item{}, err
	}
	return it, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (it *Item) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if !strings.HasPrefix(trimmed, "{") {
		return errors.New("item: expected a JSON object")
	}
	var h head
	if err := json.Unmarshal(data, &h); err != nil {
		return fmt.Errorf("item: %w", err)
	}
	it.raw = append(json.RawMessage(nil), trimmed...)
	it.h = h
	return nil
}

// MarshalJSON returns the preserved bytes.
func (it Item) MarshalJSON() ([]byte, error) {
	if len(it.raw) == 0 {
		return []byte("null"), nil
	}
	return it.raw, nil
}

// Raw returns the preserved JSON encoding.
func (it Item) Raw() json.RawMessage { return it.raw }

// IsZero reports whether the item was never populated.
func (it Item) IsZero() bool { return len(it.raw) == 0 }

// Type returns the item type. Easy-input messages that only carry a role
// report "message".
func (it Item) Type() string {
	if it.h.Type == "" && it.h.Role != "" {
		return ItemMessage
	}
	return it.h.Type
}

func (it Item) ID() string        { return it.h.ID }
func (it Item) Role() string      { return it.h.Role }
func (it Item) CallID() string    { return it.h.CallID }
func (it Item) Name() string      { return it.h.Name }
func (it Item) Arguments() string { return it.h.Arguments }

// Output returns the text of a function_call_output item.
func (it Item) Output() string {
	return decodeText(it.h.Output)
}

// Text returns the textual content of a message item: either the plain
// string content or the concatenated text parts.
func (it Item) Text() string {
	return decodeText(it.h.Content)
}

func decodeText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []contentPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	var b strings.Builder
	for _, p := range parts {
		switch p.Type {
		case "output_text", "input_text", "text":
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// UserMessage builds the input item for a user turn.
func UserMessage(text string) Item {
	return mustBuild(map[string]any{
		"type":    ItemMessage,
		"role":    RoleUser,
		"content": text,
	})
}

// AssistantMessage builds an assistant message with one output_text part.
func AssistantMessage(text string) Item {
	return mustBuild(map[string]any{
		"type":    ItemMessage,
		"role":    RoleAssistant,
		"status":  "completed",
		"content": []contentPart{{Type: "output_text", Text: text}},
	})
}

// FunctionCall builds a function_call item.
func FunctionCall(callID, name, arguments string) Item {
	return mustBuild(map[string]any{
		"type":      ItemFunctionCall,
		"call_id":   callID,
		"name":      name,
		"arguments": arguments,
	})
}

// FunctionCallOutput builds the result item for a function call.
func FunctionCallOutput(callID, output string) Item {
	return mustBuild(map[string]any{
		"type":    ItemFunctionCallOutput,
		"call_id": callID,
		"output":  output,
	})
}

func mustBuild(v map[string]any) Item {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("domain: encoding item: %v", err))
	}
	it, err := ParseItem(data)
	if err != nil {
		panic(fmt.Sprintf("domain: decoding item: %v", err))
	}
	return it
}
