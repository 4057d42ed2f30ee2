package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allTriggers() []Trigger {
	return []Trigger{
		CardCreated{},
		CardMovedTo{},
		CardMovedTo{ColumnID: "done"},
		CardCompleted{},
		CardUncompleted{},
		PriorityChanged{},
		PriorityChanged{Priority: PriorityLow},
		DueDateSet{},
		DueDateOverdue{},
		LabelAdded{},
		LabelAdded{LabelID: "bug"},
		LabelRemoved{LabelID: "bug"},
		AllSubtasksCompleted{},
	}
}

func allActions() []Action {
	return []Action{
		SetPriority{Priority: PriorityUrgent},
		AddLabel{LabelID: "bug"},
		RemoveLabel{LabelID: "bug"},
		MarkCompleted{},
		MarkUncompleted{},
		MoveToColumn{ColumnID: "done"},
		SetDueDateDays{Days: -1},
		SetDueDateDays{Days: 0},
		ClearDueDate{},
	}
}

func TestTriggerCodec_EveryKind(t *testing.T) {
	seen := map[EventKind]bool{}
	for _, trig := range allTriggers() {
		seen[trig.Kind()] = true

		data, err := MarshalTrigger(trig)
		require.NoError(t, err)

		got, err := UnmarshalTrigger(data)
		require.NoError(t, err, "decode %s", data)
		assert.Equal(t, trig, got)
	}
	assert.Len(t, seen, len(EventKinds), "every trigger kind is covered")
}

func TestActionCodec_EveryKind(t *testing.T) {
	data, err := MarshalActions(allActions())
	require.NoError(t, err)

	got, err := UnmarshalActions(data)
	require.NoError(t, err)
	assert.Equal(t, allActions(), got)

	seen := map[ActionKind]bool{}
	for _, a := range got {
		seen[a.Kind()] = true
	}
	assert.Len(t, seen, len(ActionKinds), "every action kind is covered")
}

func TestTriggerSpec_WireShape(t *testing.T) {
	data, err := MarshalTrigger(CardMovedTo{ColumnID: "done"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"card_moved_to","columnId":"done"}`, string(data))

	data, err = MarshalTrigger(CardCreated{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"card_created"}`, string(data))
}

func TestTriggerSpec_Rejects(t *testing.T) {
	tests := []struct {
		name string
		spec TriggerSpec
	}{
		{"missing type", TriggerSpec{}},
		{"unknown type", TriggerSpec{Type: "card_deleted"}},
		{"foreign parameter", TriggerSpec{Type: EventCardCreated, ColumnID: "done"}},
		{"wrong parameter", TriggerSpec{Type: EventCardMovedTo, LabelID: "bug"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.spec.Build()
			assert.Error(t, err)
		})
	}
}

func TestActionSpec_Rejects(t *testing.T) {
	days := 2
	tests := []struct {
		name string
		spec ActionSpec
	}{
		{"missing type", ActionSpec{}},
		{"unknown type", ActionSpec{Type: "archive"}},
		{"days missing", ActionSpec{Type: ActionSetDueDateDays}},
		{"foreign days", ActionSpec{Type: ActionMarkCompleted, Days: &days}},
		{"foreign label", ActionSpec{Type: ActionMoveToColumn, ColumnID: "x", LabelID: "bug"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.spec.Build()
			assert.Error(t, err)
		})
	}
}

func TestUnmarshalTrigger_UnknownKey(t *testing.T) {
	_, err := UnmarshalTrigger([]byte(`{"type":"card_moved_to","column":"done"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown field "column"`)

	_, err = UnmarshalActions([]byte(`[{"type":"add_label","label":"bug"}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown field "label"`)
}

func TestMarshalTrigger_Nil(t *testing.T) {
	_, err := MarshalTrigger(nil)
	assert.Error(t, err)

	_, err = MarshalActions([]Action{nil})
	assert.Error(t, err)
}
