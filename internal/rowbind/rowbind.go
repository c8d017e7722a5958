// Package rowbind copies mapped rows into Go structs.
package rowbind

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// Tag is the struct tag naming the attribute alias of a field. The json tag
// is used when it is absent.
const Tag = "webquery"

// field binds one struct field to an attribute alias.
type field struct {
	index    []int
	alias    string
	required bool
}

var fieldCache sync.Map // reflect.Type -> []field

// Bind copies row into a new T. T must be a struct or a pointer to a struct.
// Fields tagged with the "required" option must be present in the row.
func Bind[T any](row map[string]interface{}) (T, error) {
	var zero T
	t := reflect.TypeOf((*T)(nil)).Elem()
	structType := t
	if structType.Kind() == reflect.Ptr {
		structType = structType.Elem()
	}
	if structType.Kind() != reflect.Struct {
		return zero, fmt.Errorf("bind target must be a struct or pointer to struct, got %s", t)
	}

	target := reflect.New(structType)
	for _, f := range fieldsOf(structType) {
		value, ok := row[f.alias]
		if !ok {
			if f.required {
				return zero, fmt.Errorf("row has no value for required attribute %q", f.alias)
			}
			continue
		}
		fv := resolve(target.Elem(), f.index)
		if err := assign(fv, value); err != nil {
			return zero, fmt.Errorf("attribute %q: %w", f.alias, err)
		}
	}

	if t.Kind() == reflect.Ptr {
		return target.Interface().(T), nil
	}
	return target.Elem().Interface().(T), nil
}

// BindAll copies every row into a new T.
func BindAll[T any](rows []map[string]interface{}) ([]T, error) {
	out := make([]T, 0, len(rows))
	for i, row := range rows {
		v, err := Bind[T](row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func fieldsOf(t reflect.Type) []field {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.([]field)
	}
	fields := collect(t, nil)
	fieldCache.Store(t, fields)
	return fields
}

func collect(t reflect.Type, prefix []int) []field {
	var fields []field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" {
			continue
		}
		index := append(append([]int{}, prefix...), i)

		if sf.Anonymous {
			et := sf.Type
			if et.Kind() == reflect.Ptr {
				et = et.Elem()
			}
			if et.Kind() == reflect.Struct {
				fields = append(fields, collect(et, index)...)
			}
			continue
		}

		alias, opts := aliasOf(sf)
		if alias == "-" {
			continue
		}
		fields = append(fields, field{index: index, alias: alias, required: opts["required"]})
	}
	return fields
}

// aliasOf reads the webquery tag, then the json tag, then the field name.
func aliasOf(sf reflect.StructField) (string, map[string]bool) {
	opts := map[string]bool{}
	for _, tag := range []string{sf.Tag.Get(Tag), sf.Tag.Get("json")} {
		if tag == "" {
			continue
		}
		parts := strings.Split(tag, ",")
		for _, opt := range parts[1:] {
			opts[strings.TrimSpace(opt)] = true
		}
		if name := strings.TrimSpace(parts[0]); name != "" {
			return name, opts
		}
	}
	return sf.Name, opts
}

// resolve walks to the field, allocating embedded pointers on the way.
func resolve(v reflect.Value, index []int) reflect.Value {
	for i, idx := range index {
		if i > 0 && v.Kind() == reflect.Ptr {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(idx)
	}
	return v
}

func assign(fv reflect.Value, value interface{}) error {
	if value == nil {
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}
	if fv.Kind() == reflect.Ptr {
		elem := reflect.New(fv.Type().Elem())
		if err := assign(elem.Elem(), value); err != nil {
			return err
		}
		fv.Set(elem)
		return nil
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(fv.Type()) {
		fv.Set(val)
		return nil
	}

	switch v := value.(type) {
	case json.Number:
		return assignNumber(fv, v.String())
	case decimal.Decimal:
		return assignNumber(fv, v.String())
	}

	if isNumeric(val.Kind()) && isNumeric(fv.Kind()) || val.Kind() == reflect.String && fv.Kind() == reflect.String {
		fv.Set(val.Convert(fv.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %s to %s", val.Type(), fv.Type())
}

// assignNumber stores an exact decimal string in a numeric, string or
// decimal field.
func assignNumber(fv reflect.Value, s string) error {
	if fv.Type() == reflect.TypeOf(decimal.Decimal{}) {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return err
		}
		fv.Set(reflect.ValueOf(d))
		return nil
	}
	switch fv.Kind() {
	case reflect.String:
		fv.SetString(s)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		d, err := decimal.NewFromString(s)
		if err != nil {
			return err
		}
		if !d.IsInteger() {
			return fmt.Errorf("%s is not an integer", s)
		}
		n := d.IntPart()
		if fv.OverflowInt(n) {
			return fmt.Errorf("%s overflows %s", s, fv.Type())
		}
		fv.SetInt(n)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		d, err := decimal.NewFromString(s)
		if err != nil {
			return err
		}
		if !d.IsInteger() || d.IsNegative() {
			return fmt.Errorf("%s is not an unsigned integer", s)
		}
		n := uint64(d.IntPart())
		if fv.OverflowUint(n) {
			return fmt.Errorf("%s overflows %s", s, fv.Type())
		}
		fv.SetUint(n)
		return nil
	case reflect.Float32, reflect.Float64:
		d, err := decimal.NewFromString(s)
		if err != nil {
			return err
		}
		fv.SetFloat(d.InexactFloat64())
		return nil
	}
	return fmt.Errorf("cannot assign number to %s", fv.Type())
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
