// Package data converts Go values into the plain tree of maps, lists and
// primitives that compiled templates render.
package data

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Value shapes produced by New, in addition to nil, bool, int64, float64 and
// string.
type (
	List []interface{}
	Map  map[string]interface{}
)

// Marshaler is implemented by types that provide their own template data.
type Marshaler interface {
	MarshalData() interface{}
}

// Keys returns the map's keys in sorted order.
func (m Map) Keys() []string {
	var keys = make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Encode converts value with DefaultStructOptions and returns its JSON
// encoding.
func Encode(value interface{}) (js []byte, err error) {
	defer func() {
		if e := recover(); e != nil {
			if er, ok := e.(error); ok {
				err = er
			} else {
				err = fmt.Errorf("%v", e)
			}
		}
	}()
	return json.Marshal(New(value))
}
