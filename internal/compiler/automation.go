package compiler

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"cuelang.org/go/cue"

	"github.com/roach88/cardflow/internal/ir"
)

// Allowed fields per struct. Anything else is a compile error.
var (
	automationFields = []string{"board", "name", "enabled", "created", "when", "then"}
	triggerFields    = []string{"type", "column", "priority", "label"}
	actionFields     = []string{"type", "column", "priority", "label", "days"}
)

// CompileAutomation parses a CUE value into an Automation.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the automation struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`automation: "done-completes": { ... }`)
//	a, err := CompileAutomation(v.LookupPath(cue.ParsePath(`automation."done-completes"`)))
//
// The automation id is the struct label. `enabled` defaults to true.
func CompileAutomation(v cue.Value) (*ir.Automation, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := checkFields(v, "", automationFields); err != nil {
		return nil, err
	}

	a := &ir.Automation{Enabled: true}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		a.ID = strings.Trim(labels[len(labels)-1].String(), `"`)
	}

	var err error
	if a.BoardID, err = requiredString(v, "board"); err != nil {
		return nil, err
	}
	if a.Name, err = requiredString(v, "name"); err != nil {
		return nil, err
	}

	if enabledVal := v.LookupPath(cue.ParsePath("enabled")); enabledVal.Exists() {
		a.Enabled, err = enabledVal.Bool()
		if err != nil {
			return nil, &CompileError{Field: "enabled", Message: "enabled must be a bool", Pos: enabledVal.Pos()}
		}
	}

	if createdVal := v.LookupPath(cue.ParsePath("created")); createdVal.Exists() {
		s, err := createdVal.String()
		if err != nil {
			return nil, &CompileError{Field: "created", Message: "created must be an RFC 3339 string", Pos: createdVal.Pos()}
		}
		a.CreatedAt, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, &CompileError{Field: "created", Message: fmt.Sprintf("created: %v", err), Pos: createdVal.Pos()}
		}
	}

	if a.Trigger, err = parseWhen(v); err != nil {
		return nil, err
	}
	if a.Actions, err = parseThen(v); err != nil {
		return nil, err
	}

	return a, nil
}

// CompileAll compiles every field of the top-level `automation` struct in
// declaration order. Compile errors are collected, not fail-fast.
func CompileAll(root cue.Value) ([]ir.Automation, []error) {
	autosVal := root.LookupPath(cue.ParsePath("automation"))
	if !autosVal.Exists() {
		return nil, nil
	}

	iter, err := autosVal.Fields()
	if err != nil {
		return nil, []error{formatCUEError(err)}
	}

	var (
		out  []ir.Automation
		errs []error
	)
	for iter.Next() {
		a, err := CompileAutomation(iter.Value())
		if err != nil {
			errs = append(errs, fmt.Errorf("automation %s: %w", iter.Selector(), err))
			continue
		}
		out = append(out, *a)
	}
	return out, errs
}

// CompileSource compiles one CUE document.
func CompileSource(ctx *cue.Context, filename string, src []byte) ([]ir.Automation, []error) {
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}
	return CompileAll(v)
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	s, err := fv.String()
	if err != nil {
		return "", &CompileError{Field: field, Message: field + " must be a string", Pos: fv.Pos()}
	}
	return s, nil
}

func optionalString(v cue.Value, prefix, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", &CompileError{Field: prefix + "." + field, Message: field + " must be a string", Pos: fv.Pos()}
	}
	return s, nil
}

// checkFields rejects regular fields outside allowed.
func checkFields(v cue.Value, prefix string, allowed []string) error {
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Selector().String()
		if !slices.Contains(allowed, name) {
			field := name
			if prefix != "" {
				field = prefix + "." + name
			}
			return &CompileError{
				Field:   field,
				Message: fmt.Sprintf("unknown field %q (allowed: %s)", name, strings.Join(allowed, ", ")),
				Pos:     iter.Value().Pos(),
			}
		}
	}
	return nil
}

// parseWhen extracts the trigger from the `when` struct.
func parseWhen(v cue.Value) (ir.Trigger, error) {
	whenVal := v.LookupPath(cue.ParsePath("when"))
	if !whenVal.Exists() {
		return nil, &CompileError{Field: "when", Message: "when clause is required", Pos: v.Pos()}
	}
	if err := checkFields(whenVal, "when", triggerFields); err != nil {
		return nil, err
	}

	kind, err := optionalString(whenVal, "when", "type")
	if err != nil {
		return nil, err
	}
	if kind == "" {
		return nil, &CompileError{Field: "when.type", Message: "when clause requires 'type' field", Pos: whenVal.Pos()}
	}

	spec := ir.TriggerSpec{Type: ir.EventKind(kind)}
	if spec.ColumnID, err = optionalString(whenVal, "when", "column"); err != nil {
		return nil, err
	}
	var prio string
	if prio, err = optionalString(whenVal, "when", "priority"); err != nil {
		return nil, err
	}
	spec.Priority = ir.Priority(prio)
	if spec.LabelID, err = optionalString(whenVal, "when", "label"); err != nil {
		return nil, err
	}

	trig, err := spec.Build()
	if err != nil {
		return nil, &CompileError{Field: "when", Message: err.Error(), Pos: whenVal.Pos()}
	}
	return trig, nil
}

// parseThen extracts the ordered action list from the `then` list.
func parseThen(v cue.Value) ([]ir.Action, error) {
	thenVal := v.LookupPath(cue.ParsePath("then"))
	if !thenVal.Exists() {
		return nil, &CompileError{Field: "then", Message: "then clause is required", Pos: v.Pos()}
	}

	iter, err := thenVal.List()
	if err != nil {
		return nil, &CompileError{Field: "then", Message: "then must be a list of actions", Pos: thenVal.Pos()}
	}

	var actions []ir.Action
	for i := 0; iter.Next(); i++ {
		act, err := parseAction(iter.Value(), fmt.Sprintf("then[%d]", i))
		if err != nil {
			return nil, err
		}
		actions = append(actions, act)
	}
	if len(actions) == 0 {
		return nil, &CompileError{Field: "then", Message: "at least one action is required", Pos: thenVal.Pos()}
	}
	return actions, nil
}

func parseAction(v cue.Value, field string) (ir.Action, error) {
	if err := checkFields(v, field, actionFields); err != nil {
		return nil, err
	}

	kind, err := optionalString(v, field, "type")
	if err != nil {
		return nil, err
	}
	if kind == "" {
		return nil, &CompileError{Field: field + ".type", Message: "action requires 'type' field", Pos: v.Pos()}
	}

	spec := ir.ActionSpec{Type: ir.ActionKind(kind)}
	if spec.ColumnID, err = optionalString(v, field, "column"); err != nil {
		return nil, err
	}
	var prio string
	if prio, err = optionalString(v, field, "priority"); err != nil {
		return nil, err
	}
	spec.Priority = ir.Priority(prio)
	if spec.LabelID, err = optionalString(v, field, "label"); err != nil {
		return nil, err
	}
	if daysVal := v.LookupPath(cue.ParsePath("days")); daysVal.Exists() {
		n, err := daysVal.Int64()
		if err != nil {
			return nil, &CompileError{Field: field + ".days", Message: "days must be an integer", Pos: daysVal.Pos()}
		}
		days := int(n)
		spec.Days = &days
	}

	act, err := spec.Build()
	if err != nil {
		return nil, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
	}
	return act, nil
}
