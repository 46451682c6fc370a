// Package enums provides type-safe enumeration types for the board.
//
// Each enum is a small struct with name and value fields, so the zero value is distinguishable
// from any valid member and a stored document can only carry known names.
//
// Usage:
//
//	status := enums.TaskStatusDone
//	fmt.Println(status.String()) // "done"
//
//	parsed, err := enums.ParseTaskStatus("active")
//	if err != nil {
//	    // handle invalid input
//	}
//
// JSON encoding uses the lowercase name.
package enums

import (
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
)

// TaskStatus is the state of a task, active or done
type TaskStatus struct {
	name  string
	value int
}

// task status values
var (
	TaskStatusActive = TaskStatus{name: "active", value: 0}
	TaskStatusDone   = TaskStatus{name: "done", value: 1}
)

// TaskStatusValues lists all valid statuses in declaration order
var TaskStatusValues = []TaskStatus{TaskStatusActive, TaskStatusDone}

// ParseTaskStatus converts a string to TaskStatus, case-insensitive
func ParseTaskStatus(v string) (TaskStatus, error) {
	for _, s := range TaskStatusValues {
		if strings.EqualFold(s.name, v) {
			return s, nil
		}
	}
	return TaskStatus{}, fmt.Errorf("invalid task status %q", v)
}

// MustTaskStatus is like ParseTaskStatus but panics on invalid input
func MustTaskStatus(v string) TaskStatus {
	s, err := ParseTaskStatus(v)
	if err != nil {
		panic(err)
	}
	return s
}

func (s TaskStatus) String() string { return s.name }

// Index returns the ordinal value of the status
func (s TaskStatus) Index() int { return s.value }

// MarshalText implements encoding.TextMarshaler
func (s TaskStatus) MarshalText() ([]byte, error) {
	if s.name == "" {
		return nil, fmt.Errorf("can't marshal empty task status")
	}
	return []byte(s.name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *TaskStatus) UnmarshalText(text []byte) error {
	v, err := ParseTaskStatus(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// JSONSchema describes TaskStatus as a string enum for schema reflection
func (TaskStatus) JSONSchema() *jsonschema.Schema {
	enum := make([]any, 0, len(TaskStatusValues))
	for _, s := range TaskStatusValues {
		enum = append(enum, s.name)
	}
	return &jsonschema.Schema{Type: "string", Enum: enum, Description: "task status"}
}
