package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TriggerSpec is the tagged wire form of a Trigger:
//
//	{"type": "card_moved_to", "columnId": "done"}
//
// Only the parameter relevant to Type may be set.
type TriggerSpec struct {
	Type     EventKind `json:"type" yaml:"type"`
	ColumnID string    `json:"columnId,omitempty" yaml:"column,omitempty"`
	Priority Priority  `json:"priority,omitempty" yaml:"priority,omitempty"`
	LabelID  string    `json:"labelId,omitempty" yaml:"label,omitempty"`
}

// ActionSpec is the tagged wire form of an Action:
//
//	{"type": "set_due_date_days", "days": 3}
type ActionSpec struct {
	Type     ActionKind `json:"type" yaml:"type"`
	Priority Priority   `json:"priority,omitempty" yaml:"priority,omitempty"`
	LabelID  string     `json:"labelId,omitempty" yaml:"label,omitempty"`
	ColumnID string     `json:"columnId,omitempty" yaml:"column,omitempty"`
	Days     *int       `json:"days,omitempty" yaml:"days,omitempty"`
}

// Build converts the wire form into its Trigger variant.
// Parameters that do not belong to the kind are rejected.
func (s TriggerSpec) Build() (Trigger, error) {
	var t Trigger
	switch s.Type {
	case EventCardCreated:
		t = CardCreated{}
	case EventCardMovedTo:
		t = CardMovedTo{ColumnID: s.ColumnID}
	case EventCardCompleted:
		t = CardCompleted{}
	case EventCardUncompleted:
		t = CardUncompleted{}
	case EventPriorityChanged:
		t = PriorityChanged{Priority: s.Priority}
	case EventDueDateSet:
		t = DueDateSet{}
	case EventDueDateOverdue:
		t = DueDateOverdue{}
	case EventLabelAdded:
		t = LabelAdded{LabelID: s.LabelID}
	case EventLabelRemoved:
		t = LabelRemoved{LabelID: s.LabelID}
	case EventAllSubtasksCompleted:
		t = AllSubtasksCompleted{}
	case "":
		return nil, fmt.Errorf("trigger type is required")
	default:
		return nil, fmt.Errorf("unknown trigger type %q", s.Type)
	}

	if s != SpecOfTrigger(t) {
		return nil, fmt.Errorf("trigger %s: unexpected parameter", s.Type)
	}
	return t, nil
}

// SpecOfTrigger converts a Trigger into its wire form.
func SpecOfTrigger(t Trigger) TriggerSpec {
	spec := TriggerSpec{Type: t.Kind()}
	switch trig := t.(type) {
	case CardMovedTo:
		spec.ColumnID = trig.ColumnID
	case PriorityChanged:
		spec.Priority = trig.Priority
	case LabelAdded:
		spec.LabelID = trig.LabelID
	case LabelRemoved:
		spec.LabelID = trig.LabelID
	}
	return spec
}

// Build converts the wire form into its Action variant.
func (s ActionSpec) Build() (Action, error) {
	var a Action
	switch s.Type {
	case ActionSetPriority:
		a = SetPriority{Priority: s.Priority}
	case ActionAddLabel:
		a = AddLabel{LabelID: s.LabelID}
	case ActionRemoveLabel:
		a = RemoveLabel{LabelID: s.LabelID}
	case ActionMarkCompleted:
		a = MarkCompleted{}
	case ActionMarkUncompleted:
		a = MarkUncompleted{}
	case ActionMoveToColumn:
		a = MoveToColumn{ColumnID: s.ColumnID}
	case ActionSetDueDateDays:
		if s.Days == nil {
			return nil, fmt.Errorf("action %s: days is required", s.Type)
		}
		a = SetDueDateDays{Days: *s.Days}
	case ActionClearDueDate:
		a = ClearDueDate{}
	case "":
		return nil, fmt.Errorf("action type is required")
	default:
		return nil, fmt.Errorf("unknown action type %q", s.Type)
	}

	want := SpecOfAction(a)
	if s.Priority != want.Priority || s.LabelID != want.LabelID || s.ColumnID != want.ColumnID ||
		(s.Days != nil) != (want.Days != nil) {
		return nil, fmt.Errorf("action %s: unexpected parameter", s.Type)
	}
	return a, nil
}

// SpecOfAction converts an Action into its wire form.
func SpecOfAction(a Action) ActionSpec {
	spec := ActionSpec{Type: a.Kind()}
	switch act := a.(type) {
	case SetPriority:
		spec.Priority = act.Priority
	case AddLabel:
		spec.LabelID = act.LabelID
	case RemoveLabel:
		spec.LabelID = act.LabelID
	case MoveToColumn:
		spec.ColumnID = act.ColumnID
	case SetDueDateDays:
		days := act.Days
		spec.Days = &days
	}
	return spec
}

// BuildActions converts an ordered list of wire actions.
func BuildActions(specs []ActionSpec) ([]Action, error) {
	actions := make([]Action, 0, len(specs))
	for i, s := range specs {
		a, err := s.Build()
		if err != nil {
			return nil, fmt.Errorf("actions[%d]: %w", i, err)
		}
		actions = append(actions, a)
	}
	return actions, nil
}

// MarshalTrigger encodes a trigger in tagged JSON form.
func MarshalTrigger(t Trigger) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("marshal trigger: nil trigger")
	}
	return json.Marshal(SpecOfTrigger(t))
}

// UnmarshalTrigger decodes a trigger from tagged JSON form.
func UnmarshalTrigger(data []byte) (Trigger, error) {
	var spec TriggerSpec
	if err := decodeStrict(data, &spec); err != nil {
		return nil, fmt.Errorf("unmarshal trigger: %w", err)
	}
	return spec.Build()
}

// MarshalActions encodes an action list in tagged JSON form.
func MarshalActions(actions []Action) ([]byte, error) {
	specs := make([]ActionSpec, len(actions))
	for i, a := range actions {
		if a == nil {
			return nil, fmt.Errorf("marshal actions: actions[%d] is nil", i)
		}
		specs[i] = SpecOfAction(a)
	}
	return json.Marshal(specs)
}

// UnmarshalActions decodes an action list from tagged JSON form.
func UnmarshalActions(data []byte) ([]Action, error) {
	var specs []ActionSpec
	if err := decodeStrict(data, &specs); err != nil {
		return nil, fmt.Errorf("unmarshal actions: %w", err)
	}
	return BuildActions(specs)
}

// decodeStrict decodes one JSON value into v, rejecting unknown keys.
func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
