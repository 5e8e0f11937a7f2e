// Package bounds pins the struct-layout assumptions that hand-written
// trap stubs and the scheduler's context-switch path depend on agreeing
// with: field order and overall size of the canonical saved-register
// frame. A layout mismatch here is a MappingFailure-class bug that must
// be caught at init, long before it corrupts a context switch.
package bounds

import (
	"fmt"
	"reflect"
)

// AssertLayout panics if the struct value's in-memory size doesn't match
// wantSize, or if its field order doesn't match wantFields. It is meant
// to run once during package init for any struct shared between Go code
// and an assembly-level contract (here: simulated, but the check is the
// same one a real kernel runs against its trap-frame assembly stub).
func AssertLayout(v interface{}, wantSize uintptr, wantFields []string) {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Size() != wantSize {
		panic(fmt.Sprintf("bounds: %s size = %d, want %d", t.Name(), t.Size(), wantSize))
	}
	if t.NumField() != len(wantFields) {
		panic(fmt.Sprintf("bounds: %s has %d fields, want %d", t.Name(), t.NumField(), len(wantFields)))
	}
	for i, name := range wantFields {
		if t.Field(i).Name != name {
			panic(fmt.Sprintf("bounds: %s field %d = %s, want %s", t.Name(), i, t.Field(i).Name, name))
		}
	}
}
