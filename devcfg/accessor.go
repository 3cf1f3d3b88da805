// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package devcfg

// An Accessor extracts the mapping held by a compiled configuration. It
// returns nil if the compiled value does not support it.
//
type Accessor func(c Compiled) map[string]any

// InternalStater is implemented by compiled values that expose their internal
// state directly.
//
type InternalStater interface {
	RawConfig() map[string]any
}

// AsMapper is implemented by compiled values with an "as mapping" view.
//
type AsMapper interface {
	AsMap() map[string]any
}

// ToMapper is implemented by compiled values with a "to mapping" conversion.
//
type ToMapper interface {
	ToMap() map[string]any
}

// InternalState reads the internal state of c.
//
func InternalState(c Compiled) map[string]any {
	if v, ok := c.(InternalStater); ok {
		return v.RawConfig()
	}
	return nil
}

// AsMap calls c.AsMap.
//
func AsMap(c Compiled) map[string]any {
	if v, ok := c.(AsMapper); ok {
		return v.AsMap()
	}
	return nil
}

// ToMap calls c.ToMap.
//
func ToMap(c Compiled) map[string]any {
	if v, ok := c.(ToMapper); ok {
		return v.ToMap()
	}
	return nil
}

// DefaultAccessors lists the accessors known to work with past and present
// compiler versions, in priority order.
//
var DefaultAccessors = []Accessor{InternalState, AsMap, ToMap}
