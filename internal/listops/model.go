// Package listops models the protocol of the remote list service: structured
// changes against named items, their serialized descriptor form, the ordered
// submission queue, and the decoded per-batch response payloads.
package listops

import (
	"errors"
	"fmt"
)

// Action identifies what a change does to a list item.
type Action string

// Actions accepted by the list service.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ParseAction converts s into an Action, rejecting unknown values.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionCreate, ActionUpdate, ActionDelete:
		return Action(s), nil
	default:
		return "", fmt.Errorf("unknown action %q (expected create, update, or delete)", s)
	}
}

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	_, err := ParseAction(string(a))
	return err == nil
}

// Change is one structured, not-yet-serialized operation against a list item.
type Change struct {
	Action Action            `json:"action" yaml:"action"`
	Key    string            `json:"key,omitempty" yaml:"key,omitempty"`
	Fields map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Validate checks that the change is complete enough for the service to act
// on: creates and updates carry fields, updates and deletes address an
// existing item by key, deletes carry nothing else.
func (c Change) Validate() error {
	if !c.Action.Valid() {
		return fmt.Errorf("unknown action %q (expected create, update, or delete)", string(c.Action))
	}
	switch c.Action {
	case ActionCreate:
		if len(c.Fields) == 0 {
			return errors.New("create requires at least one field")
		}
	case ActionUpdate:
		if c.Key == "" {
			return errors.New("update requires a key")
		}
		if len(c.Fields) == 0 {
			return errors.New("update requires at least one field")
		}
	case ActionDelete:
		if c.Key == "" {
			return errors.New("delete requires a key")
		}
		if len(c.Fields) != 0 {
			return errors.New("delete must not carry fields")
		}
	}
	return nil
}
