// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package devcfg

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"

	"github.com/pkg/errors"
)

// Well known fields of a device configuration.
//
const (
	KeyGens   = "gens"
	KeyMixer  = "mixer_freq"
	KeyRF     = "rf"
	KeyTiles  = "tiles"
	KeyRate   = "fs"
	KindDAC   = TileKind("dac")
	KindADC   = TileKind("adc")
	indentStr = "  "
)

// TileKind selects the DAC or ADC tile sub-mapping.
//
type TileKind string

// A Config is a raw device configuration. Numbers decoded from a file are
// json.Number values and keep their textual form on output.
//
type Config map[string]any

// Clone returns a deep copy of c.
//
func (c Config) Clone() Config {
	if c == nil {
		return nil
	}
	return clone(map[string]any(c)).(map[string]any)
}

func clone(v any) any {
	switch v := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(v))
		for k, e := range v {
			m[k] = clone(e)
		}
		return m
	case []any:
		s := make([]any, len(v))
		for i, e := range v {
			s[i] = clone(e)
		}
		return s
	default:
		return v
	}
}

// Channels returns the channel descriptors of c.
//
func (c Config) Channels() []any {
	gens, _ := c[KeyGens].([]any)
	return gens
}

// Tiles returns the tile descriptors of the given kind.
//
func (c Config) Tiles(kind TileKind) map[string]any {
	rf, _ := c[KeyRF].(map[string]any)
	tiles, _ := rf[KeyTiles].(map[string]any)
	m, _ := tiles[string(kind)].(map[string]any)
	return m
}

// Marshal returns the canonical form of c: every mapping key stringified,
// keys sorted, two space indentation, no HTML escaping.
//
func (c Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indentStr)
	if err := enc.Encode(StringifyKeys(map[string]any(c))); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func parse(data []byte) (Config, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var c Config
	if err := dec.Decode(&c); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after top-level object")
	}
	if c == nil {
		return nil, errors.New("top-level value is not an object")
	}
	return c, nil
}

// StringifyKeys returns a copy of v where every map, whatever its key type,
// is converted to a map[string]any and every slice or array to a []any.
//
func StringifyKeys(v any) any {
	switch v := v.(type) {
	case nil, string, bool, float64, json.Number:
		return v
	case map[string]any:
		m := make(map[string]any, len(v))
		for k, e := range v {
			m[k] = StringifyKeys(e)
		}
		return m
	case []any:
		s := make([]any, len(v))
		for i, e := range v {
			s[i] = StringifyKeys(e)
		}
		return s
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		m := make(map[string]any, rv.Len())
		it := rv.MapRange()
		for it.Next() {
			m[keyString(it.Key())] = StringifyKeys(it.Value().Interface())
		}
		return m
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return []any{}
		}
		s := make([]any, rv.Len())
		for i := range s {
			s[i] = StringifyKeys(rv.Index(i).Interface())
		}
		return s
	}
	return v
}

func keyString(k reflect.Value) string {
	for k.Kind() == reflect.Interface && !k.IsNil() {
		k = k.Elem()
	}
	switch k.Kind() {
	case reflect.String:
		return k.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10)
	}
	return fmt.Sprint(k.Interface())
}
