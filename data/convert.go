package data

import (
	"fmt"
	"reflect"
	"time"
	"unicode"
	"unicode/utf8"
)

var timeType = reflect.TypeOf(time.Time{})

// New converts the given data into template data, using DefaultStructOptions
// for structs.
func New(value interface{}) interface{} {
	return NewWith(DefaultStructOptions, value)
}

// NewWith converts the given value into template data, using the provided
// StructOptions for any structs encountered.  It panics on values that have
// no template representation, such as channels or maps with non-string keys.
func NewWith(convert StructOptions, value interface{}) interface{} {
	if m, ok := value.(Marshaler); ok {
		return NewWith(convert, m.MarshalData())
	}
	if value == nil {
		return nil
	}

	// drill through pointers and interfaces to the underlying type
	var v = reflect.ValueOf(value)
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil
	}

	if v.Type() == timeType {
		return v.Interface().(time.Time).Format(convert.TimeFormat)
	}

	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	case reflect.Bool:
		return v.Bool()
	case reflect.String:
		return v.String()
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return nil
		}
		var list = make(List, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			list = append(list, NewWith(convert, v.Index(i).Interface()))
		}
		return list
	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		var m = make(Map, v.Len())
		for _, key := range v.MapKeys() {
			if key.Kind() != reflect.String {
				panic(fmt.Errorf("map keys must be strings, got %v", key.Type()))
			}
			m[key.String()] = NewWith(convert, v.MapIndex(key).Interface())
		}
		return m
	case reflect.Struct:
		return convert.Data(v.Interface())
	default:
		panic(fmt.Errorf("unexpected data type: %T (%v)", value, value))
	}
}

var DefaultStructOptions = StructOptions{
	LowerCamel: true,
	TimeFormat: time.RFC3339,
}

// StructOptions controls how structs are converted to maps.
type StructOptions struct {
	LowerCamel bool   // if true, convert field names to lowerCamel.
	TimeFormat string // format string for time.Time. (if empty, use ISO-8601)
}

// Data converts a struct to a map holding its exported fields.
func (c StructOptions) Data(obj interface{}) Map {
	var m = make(Map)
	var v = reflect.ValueOf(obj)
	var valType = v.Type()
	for i := 0; i < valType.NumField(); i++ {
		if !v.Field(i).CanInterface() {
			continue
		}
		var key = valType.Field(i).Name
		if c.LowerCamel {
			var firstRune, size = utf8.DecodeRuneInString(key)
			key = string(unicode.ToLower(firstRune)) + key[size:]
		}
		m[key] = NewWith(c, v.Field(i).Interface())
	}
	return m
}
