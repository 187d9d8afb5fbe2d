// Package domain contains the pure, dependency-free record model and
// result types of the grade aggregation and ranking engine.
package domain

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"time"
)

// Key names a value in a State and fixes its type.
type Key[T any] struct{ name string }

// NewKey returns a key for packages that store their own values.
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

// Name returns the string the key is stored under.
func (k Key[T]) Name() string { return k.name }

// Keys written and read while computing a class report.
var (
	// KeySnapshot stores the frozen class snapshot every unit reads from.
	KeySnapshot = Key[*Snapshot]{"snapshot"}

	// KeyAggregates stores the per-student period group scores.
	KeyAggregates = Key[[]StudentAggregate]{"aggregates"}

	// KeyTargetStudent selects the student of a single rank lookup.
	KeyTargetStudent = Key[StudentID]{"target_student"}

	// KeyStudentRanks stores the result of a single rank lookup.
	KeyStudentRanks = Key[StudentRankResult]{"student_ranks"}

	// KeyClassRanks stores the rank table of the whole class.
	KeyClassRanks = Key[ClassRanks]{"class_ranks"}

	// KeyPalmares stores the class leaderboard.
	KeyPalmares = Key[Palmares]{"palmares"}

	// KeySubjectGroups stores the report-card subject groups and their
	// subtotals.
	KeySubjectGroups = Key[[]SubjectGroup]{"subject_groups"}

	// KeyRepechages stores the repêchages of the class converted into
	// points.
	KeyRepechages = Key[[]RepechageResult]{"repechages"}

	// KeyConfigName stores the name of the report configuration.
	KeyConfigName = Key[string]{"execution.config_name"}

	// KeyClassID stores the class the run computes a report for.
	KeyClassID = Key[ClassID]{"execution.class_id"}

	// KeyExecutionID stores the run identifier used in spans and logs.
	KeyExecutionID = Key[string]{"execution.execution_id"}
)

// deepCopyValue copies slices, maps, pointers, and the exported fields of
// structs so that a value stored in or read from a State shares no mutable
// memory with the caller. Unexported struct fields are copied shallowly,
// which is what keeps a *Snapshot's indexes shared and read-only.
func deepCopyValue(value any) any {
	if value == nil {
		return nil
	}
	if t, ok := value.(time.Time); ok {
		return t
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Slice:
		if v.IsNil() {
			return value
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Cap())
		for i := range v.Len() {
			out.Index(i).Set(reflect.ValueOf(deepCopyValue(v.Index(i).Interface())))
		}
		return out.Interface()

	case reflect.Map:
		if v.IsNil() {
			return value
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			k := reflect.ValueOf(deepCopyValue(iter.Key().Interface()))
			out.SetMapIndex(k, reflect.ValueOf(deepCopyValue(iter.Value().Interface())))
		}
		return out.Interface()

	case reflect.Ptr:
		if v.IsNil() {
			return value
		}
		out := reflect.New(v.Elem().Type())
		out.Elem().Set(reflect.ValueOf(deepCopyValue(v.Elem().Interface())))
		return out.Interface()

	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		for i := range v.NumField() {
			f := out.Field(i)
			if f.CanSet() && f.Kind() != reflect.Interface {
				f.Set(reflect.ValueOf(deepCopyValue(v.Field(i).Interface())))
			}
		}
		return out.Interface()

	default:
		return value
	}
}

// State is the immutable bag of values a report run passes from unit to
// unit. Every write returns a new State; values are deep copied on the way
// in and on the way out, so a State can be read from any goroutine.
type State struct {
	data map[string]any
}

// NewState returns an empty State.
func NewState() State {
	return State{data: make(map[string]any)}
}

// Get returns a copy of the value stored under key. The boolean is false
// when the key is absent or holds a value of another type.
//
//	snap, ok := Get(state, KeySnapshot)
func Get[T any](s State, key Key[T]) (T, bool) {
	value, ok := s.data[key.name]
	if !ok {
		var zero T
		return zero, false
	}
	typed, ok := deepCopyValue(value).(T)
	return typed, ok
}

// GetRaw is the untyped form of Get, used by merge strategies that walk
// keys by name.
func (s State) GetRaw(keyName string) (any, bool) {
	value, ok := s.data[keyName]
	if !ok {
		return nil, false
	}
	return deepCopyValue(value), true
}

// With returns a copy of s with key set to value. s is left unchanged.
//
//	next := With(state, KeyTargetStudent, StudentID("s-12"))
func With[T any](s State, key Key[T], value T) State {
	return s.WithRaw(key.name, value)
}

// WithRaw is the untyped form of With.
func (s State) WithRaw(keyName string, value any) State {
	data := maps.Clone(s.data)
	data[keyName] = deepCopyValue(value)
	return State{data: data}
}

// WithMultiple sets several keys with a single copy of the underlying map.
func (s State) WithMultiple(updates map[string]any) State {
	data := maps.Clone(s.data)
	for k, v := range updates {
		data[k] = deepCopyValue(v)
	}
	return State{data: data}
}

// Keys returns the names of the stored keys in lexical order.
func (s State) Keys() []string {
	return slices.Sorted(maps.Keys(s.data))
}

func (s State) String() string {
	return fmt.Sprintf("State%v", s.data)
}

// ExecutionContext identifies one report run. Middleware reads it from the
// State to label spans, logs, and metrics.
type ExecutionContext struct {
	ConfigName  string
	ClassID     ClassID
	ExecutionID string
}

// WithExecutionContext stores ctx under the execution keys. ReportService
// calls it before running the graph.
func (s State) WithExecutionContext(ctx ExecutionContext) State {
	return s.WithMultiple(map[string]any{
		KeyConfigName.name:  ctx.ConfigName,
		KeyClassID.name:     ctx.ClassID,
		KeyExecutionID.name: ctx.ExecutionID,
	})
}

// GetExecutionContext reads back the execution keys. It reports false
// unless all three are present.
func (s State) GetExecutionContext() (ExecutionContext, bool) {
	configName, ok := Get(s, KeyConfigName)
	if !ok {
		return ExecutionContext{}, false
	}
	classID, ok := Get(s, KeyClassID)
	if !ok {
		return ExecutionContext{}, false
	}
	executionID, ok := Get(s, KeyExecutionID)
	if !ok {
		return ExecutionContext{}, false
	}
	return ExecutionContext{ConfigName: configName, ClassID: classID, ExecutionID: executionID}, true
}
