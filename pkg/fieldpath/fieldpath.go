// Package fieldpath reads and replaces numeric values addressed by dotted paths
// such as "facility.noi" or "settings.assetTypes.snf.capRate.base".
//
// Path segments match struct fields by their yaml tag, falling back to the Go
// field name unless the tag is "-", case-insensitively. Map keys match
// case-insensitively and slice elements are addressed by index. Set is
// copy-on-write: every pointer, map and slice along the path is copied before
// it is modified, so the value passed in is never changed and untouched
// branches stay shared.
package fieldpath

import (
	"errors"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

var (
	// ErrInvalidPath is returned when a path segment does not resolve.
	ErrInvalidPath = errors.New("invalid field path")

	// ErrNotNumeric is returned when the addressed value is not numeric.
	ErrNotNumeric = errors.New("field is not numeric")

	// ErrUnset is returned by Get when the addressed optional value is nil.
	ErrUnset = errors.New("field is unset")
)

// Set returns a copy of root with the value at path replaced.
func Set[T any](root T, path string, value float64) (T, error) {
	segments, err := split(path)
	if err != nil {
		return root, err
	}
	holder := reflect.New(reflect.TypeOf(&root).Elem()).Elem()
	holder.Set(reflect.ValueOf(&root).Elem())
	if err := set(holder, segments, value, path); err != nil {
		return root, err
	}
	return holder.Interface().(T), nil
}

// Get returns the numeric value at path.
func Get(root any, path string) (float64, error) {
	segments, err := split(path)
	if err != nil {
		return 0, err
	}
	v := reflect.ValueOf(root)
	for _, seg := range segments {
		v, err = descend(v, seg, path)
		if err != nil {
			return 0, err
		}
	}
	return numeric(v, path)
}

func split(path string) ([]string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, eris.Wrap(ErrInvalidPath, "empty path")
	}
	segments := strings.Split(path, ".")
	for _, s := range segments {
		if s == "" {
			return nil, eris.Wrapf(ErrInvalidPath, "empty segment in %q", path)
		}
	}
	return segments, nil
}

func set(v reflect.Value, segments []string, value float64, path string) error {
	if v.Kind() == reflect.Pointer {
		elemType := v.Type().Elem()
		cp := reflect.New(elemType)
		if !v.IsNil() {
			cp.Elem().Set(v.Elem())
		}
		if err := set(cp.Elem(), segments, value, path); err != nil {
			return err
		}
		v.Set(cp)
		return nil
	}

	if len(segments) == 0 {
		return assign(v, value, path)
	}
	seg := segments[0]

	switch v.Kind() {
	case reflect.Struct:
		field, ok := fieldByName(v, seg)
		if !ok {
			return eris.Wrapf(ErrInvalidPath, "%q: no field %q", path, seg)
		}
		return set(field, segments[1:], value, path)

	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return eris.Wrapf(ErrInvalidPath, "%q: map keys are not strings", path)
		}
		cloned := reflect.MakeMapWithSize(v.Type(), v.Len()+1)
		key := reflect.ValueOf(seg).Convert(v.Type().Key())
		iter := v.MapRange()
		for iter.Next() {
			cloned.SetMapIndex(iter.Key(), iter.Value())
			if strings.EqualFold(iter.Key().String(), seg) {
				key = iter.Key()
			}
		}
		elem := reflect.New(v.Type().Elem()).Elem()
		if existing := v.MapIndex(key); existing.IsValid() {
			elem.Set(existing)
		} else if len(segments) > 1 && v.Type().Elem().Kind() == reflect.Interface {
			return eris.Wrapf(ErrInvalidPath, "%q: no key %q", path, seg)
		}
		if err := set(elem, segments[1:], value, path); err != nil {
			return err
		}
		cloned.SetMapIndex(key, elem)
		v.Set(cloned)
		return nil

	case reflect.Slice:
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 || idx >= v.Len() {
			return eris.Wrapf(ErrInvalidPath, "%q: bad index %q", path, seg)
		}
		cloned := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		reflect.Copy(cloned, v)
		if err := set(cloned.Index(idx), segments[1:], value, path); err != nil {
			return err
		}
		v.Set(cloned)
		return nil

	case reflect.Interface:
		if v.IsNil() {
			return eris.Wrapf(ErrInvalidPath, "%q: nil value at %q", path, seg)
		}
		inner := reflect.New(v.Elem().Type()).Elem()
		inner.Set(v.Elem())
		if err := set(inner, segments, value, path); err != nil {
			return err
		}
		v.Set(inner)
		return nil
	}

	return eris.Wrapf(ErrInvalidPath, "%q: cannot descend into %s at %q", path, v.Kind(), seg)
}

func assign(v reflect.Value, value float64, path string) error {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		v.SetFloat(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v.SetInt(int64(math.Round(value)))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if value < 0 {
			value = 0
		}
		v.SetUint(uint64(math.Round(value)))
	case reflect.Bool:
		v.SetBool(value != 0)
	case reflect.Interface:
		v.Set(reflect.ValueOf(value))
	default:
		return eris.Wrapf(ErrNotNumeric, "%q is %s", path, v.Kind())
	}
	return nil
}

func descend(v reflect.Value, seg, path string) (reflect.Value, error) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}, eris.Wrapf(ErrUnset, "%q at %q", path, seg)
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Struct:
		if field, ok := fieldByName(v, seg); ok {
			return field, nil
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if strings.EqualFold(iter.Key().String(), seg) {
				return iter.Value(), nil
			}
		}
	case reflect.Slice:
		if idx, err := strconv.Atoi(seg); err == nil && idx >= 0 && idx < v.Len() {
			return v.Index(idx), nil
		}
	}
	return reflect.Value{}, eris.Wrapf(ErrInvalidPath, "%q: no element %q", path, seg)
}

func numeric(v reflect.Value, path string) (float64, error) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return 0, eris.Wrapf(ErrUnset, "%q", path)
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), nil
	case reflect.Bool:
		if v.Bool() {
			return 1, nil
		}
		return 0, nil
	}
	return 0, eris.Wrapf(ErrNotNumeric, "%q is %s", path, v.Kind())
}

func fieldByName(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if tag := tagName(f.Tag.Get("yaml")); tag != "" && strings.EqualFold(tag, name) {
			return v.Field(i), true
		}
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.IsExported() && f.Tag.Get("yaml") != "-" && strings.EqualFold(f.Name, name) {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func tagName(tag string) string {
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	return name
}
