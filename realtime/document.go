// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package realtime

import (
	"errors"
	"math"

	"github.com/momentics/hioload-rtm/api"
	"github.com/sugawarayuuta/sonnet"
)

var errNotObject = errors.New("payload is not a json object")

// Document is one decoded realtime payload.
type Document map[string]any

// ParseDocument decodes a text-frame payload. Anything but a JSON object is
// a data fault.
func ParseDocument(payload []byte) (Document, error) {
	var doc Document
	if err := sonnet.Unmarshal(payload, &doc); err != nil {
		return nil, api.DataFault("parse payload", err)
	}
	if doc == nil {
		return nil, api.DataFault("parse payload", errNotObject)
	}
	return doc, nil
}

// Has reports whether key is present, even with a null value.
func (d Document) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// String returns the string under key.
func (d Document) String(key string) (string, bool) {
	s, ok := d[key].(string)
	return s, ok
}

// StringOr returns the string under key or def.
func (d Document) StringOr(key, def string) string {
	if s, ok := d.String(key); ok {
		return s
	}
	return def
}

// Int returns the integral number under key. Fractional numbers and
// non-numbers report false.
func (d Document) Int(key string) (int64, bool) {
	f, ok := d[key].(float64)
	if !ok || f != math.Trunc(f) || f < math.MinInt64 || f > math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// Object returns the nested object under key.
func (d Document) Object(key string) (Document, bool) {
	m, ok := d[key].(map[string]any)
	if !ok {
		return nil, false
	}
	return Document(m), true
}
