package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/cardflow/internal/ir"
)

// timeLayout is the TEXT encoding of timestamps. Always UTC.
const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

// marshalEvent converts a change event to canonical JSON TEXT.
// Only the context fields relevant to the event kind are written.
func marshalEvent(ev ir.ChangeEvent) (string, error) {
	obj := ev.Context()
	obj["kind"] = ev.Kind
	obj["cardId"] = ev.CardID
	obj["boardId"] = ev.BoardID

	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}
	return string(data), nil
}

func unmarshalEvent(data string) (ir.ChangeEvent, error) {
	var ev ir.ChangeEvent
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		return ir.ChangeEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return ev, nil
}

// marshalApplied converts the applied action kinds to canonical JSON TEXT.
// A nil list is stored as "[]".
func marshalApplied(kinds []ir.ActionKind) (string, error) {
	items := make([]any, len(kinds))
	for i, k := range kinds {
		items[i] = k
	}
	data, err := ir.MarshalCanonical(items)
	if err != nil {
		return "", fmt.Errorf("marshal applied: %w", err)
	}
	return string(data), nil
}

func unmarshalApplied(data string) ([]ir.ActionKind, error) {
	var kinds []ir.ActionKind
	if err := json.Unmarshal([]byte(data), &kinds); err != nil {
		return nil, fmt.Errorf("unmarshal applied: %w", err)
	}
	if len(kinds) == 0 {
		return nil, nil
	}
	return kinds, nil
}

// marshalSkipped converts skipped actions to canonical JSON TEXT.
func marshalSkipped(skipped []ir.SkippedAction) (string, error) {
	items := make([]map[string]any, len(skipped))
	for i, s := range skipped {
		items[i] = map[string]any{
			"index":  s.Index,
			"kind":   s.Kind,
			"reason": s.Reason,
		}
	}
	data, err := ir.MarshalCanonical(items)
	if err != nil {
		return "", fmt.Errorf("marshal skipped: %w", err)
	}
	return string(data), nil
}

func unmarshalSkipped(data string) ([]ir.SkippedAction, error) {
	var skipped []ir.SkippedAction
	if err := json.Unmarshal([]byte(data), &skipped); err != nil {
		return nil, fmt.Errorf("unmarshal skipped: %w", err)
	}
	if len(skipped) == 0 {
		return nil, nil
	}
	return skipped, nil
}
