package couch

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Options are query parameters of a request, e.g. limit, descending or
// include_docs. See http://docs.couchdb.org/en/latest/api/database/bulk-api.html#db-all-docs
type Options map[string]interface{}

// Parameters whose values CouchDB expects as JSON
var jsonParams = map[string]bool{
	"key":       true,
	"keys":      true,
	"startkey":  true,
	"start_key": true,
	"endkey":    true,
	"end_key":   true,
}

// Encode options to a string that can be appended to a url, including the
// leading question mark. Parameters are sorted by name.
func (o Options) Encode() string {
	if len(o) == 0 {
		return ""
	}
	values := make(url.Values, len(o))
	for k, v := range o {
		values.Set(k, encodeValue(k, v))
	}
	return "?" + values.Encode()
}

func encodeValue(key string, v interface{}) string {
	if jsonParams[key] {
		if s, ok := v.(string); ok && isJSONLiteral(s) {
			return s
		}
		b, err := json.Marshal(v)
		if err == nil {
			return string(b)
		}
	}
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint:
		return strconv.FormatUint(uint64(val), 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// isJSONLiteral reports whether s is already an encoded string, array or object.
func isJSONLiteral(s string) bool {
	if s == "" || (s[0] != '"' && s[0] != '[' && s[0] != '{') {
		return false
	}
	return json.Valid([]byte(s))
}

// with returns a copy of the options with key set to v.
func (o Options) with(key string, v interface{}) Options {
	m := make(Options, len(o)+1)
	for k, val := range o {
		m[k] = val
	}
	m[key] = v
	return m
}
