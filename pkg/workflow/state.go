package workflow

import (
	"encoding/json"
	"reflect"
)

// State is the shared record every node reads and returns partial updates for.
type State map[string]interface{}

// Clone returns a shallow copy of the state.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// MergePolicy decides how a node's update for one field is folded into the state.
type MergePolicy int

const (
	// Overwrite keeps the update unless it is nil ("last write wins").
	Overwrite MergePolicy = iota
	// ShallowMerge merges map keys of the update into the existing map.
	ShallowMerge
)

// Schema is the merge-policy table of one state shape. Fields not listed use Overwrite.
type Schema map[string]MergePolicy

// Policy returns the merge policy for key.
func (s Schema) Policy(key string) MergePolicy {
	if p, ok := s[key]; ok {
		return p
	}
	return Overwrite
}

// Merge folds update into a copy of current. current is never mutated.
func (s Schema) Merge(current, update State) State {
	merged := current.Clone()
	for key, value := range update {
		if value == nil {
			continue
		}
		if s.Policy(key) == ShallowMerge {
			merged[key] = mergeMaps(merged[key], value)
			continue
		}
		merged[key] = value
	}
	return merged
}

// mergeMaps returns {...x, ...y} for two maps of the same type. Anything else
// falls back to overwrite.
func mergeMaps(x, y interface{}) interface{} {
	if x == nil {
		return copyMap(y)
	}
	xv, yv := reflect.ValueOf(x), reflect.ValueOf(y)
	if xv.Kind() != reflect.Map || yv.Kind() != reflect.Map {
		return y
	}

	if xv.Type() != yv.Type() {
		// Checkpoints restored from JSON carry map[string]interface{}; convert
		// the update so both sides agree.
		if xv.Type().Key() != yv.Type().Key() || !yv.Type().Elem().ConvertibleTo(xv.Type().Elem()) {
			return y
		}
	}

	out := reflect.MakeMapWithSize(xv.Type(), xv.Len()+yv.Len())
	iter := xv.MapRange()
	for iter.Next() {
		out.SetMapIndex(iter.Key(), iter.Value())
	}
	iter = yv.MapRange()
	for iter.Next() {
		out.SetMapIndex(iter.Key(), iter.Value().Convert(xv.Type().Elem()))
	}
	return out.Interface()
}

func copyMap(v interface{}) interface{} {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return v
	}
	out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out.SetMapIndex(iter.Key(), iter.Value())
	}
	return out.Interface()
}

// Get returns the value under key as T. Values that went through a JSON
// round-trip (checkpoints loaded from redis) are decoded into T.
func Get[T any](s State, key string) (T, bool) {
	var zero T
	v, ok := s[key]
	if !ok || v == nil {
		return zero, false
	}
	if typed, ok := v.(T); ok {
		return typed, true
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return zero, false
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, false
	}
	return out, true
}

// GetOr is Get with a default.
func GetOr[T any](s State, key string, def T) T {
	if v, ok := Get[T](s, key); ok {
		return v
	}
	return def
}
