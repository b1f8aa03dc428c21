// Package sizeof estimates the deep in-memory size of Go values.
//
// The estimate is the static size of the value plus everything it references
// on the heap: string bytes, slice backing arrays, map entries, pointees and
// interface payloads. Shared and cyclic references are counted once. The
// bench harness uses it to report the working-set size of a workload's
// shadow index.
package sizeof

import (
	"reflect"
)

// Of returns the deep size of v in bytes. Of(nil) is 0.
func Of(v any) int {
	if v == nil {
		return 0
	}
	w := &walker{seen: make(map[uintptr]bool)}
	rv := reflect.ValueOf(v)
	return int(rv.Type().Size()) + w.referenced(rv)
}

type walker struct {
	seen map[uintptr]bool
}

// referenced returns the heap bytes reachable from v, excluding v's own
// static footprint (the caller accounts for that).
func (w *walker) referenced(v reflect.Value) int {
	switch v.Kind() {
	case reflect.String:
		return v.Len()

	case reflect.Slice:
		if v.IsNil() || w.visited(v.Pointer()) {
			return 0
		}
		total := v.Len() * int(v.Type().Elem().Size())
		for i := 0; i < v.Len(); i++ {
			total += w.referenced(v.Index(i))
		}
		return total

	case reflect.Array:
		total := 0
		for i := 0; i < v.Len(); i++ {
			total += w.referenced(v.Index(i))
		}
		return total

	case reflect.Map:
		if v.IsNil() || w.visited(v.Pointer()) {
			return 0
		}
		total := 0
		iter := v.MapRange()
		for iter.Next() {
			k, e := iter.Key(), iter.Value()
			total += int(k.Type().Size()) + w.referenced(k)
			total += int(e.Type().Size()) + w.referenced(e)
		}
		return total

	case reflect.Pointer:
		if v.IsNil() || w.visited(v.Pointer()) {
			return 0
		}
		elem := v.Elem()
		return int(elem.Type().Size()) + w.referenced(elem)

	case reflect.Interface:
		if v.IsNil() {
			return 0
		}
		elem := v.Elem()
		return int(elem.Type().Size()) + w.referenced(elem)

	case reflect.Struct:
		total := 0
		for i := 0; i < v.NumField(); i++ {
			total += w.referenced(v.Field(i))
		}
		return total

	default:
		// Scalars carry no heap references.
		return 0
	}
}

func (w *walker) visited(ptr uintptr) bool {
	if ptr == 0 || w.seen[ptr] {
		return true
	}
	w.seen[ptr] = true
	return false
}
