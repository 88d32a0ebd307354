package mot

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Keys of the per-vehicle error marker stored in a snapshot.
const (
	ErrorKey   = "_error"
	MessageKey = "message"
)

// Error marker kinds.
const (
	ErrorNotFound = "not_found"
	ErrorAPI      = "api_error"
)

// Document is one vehicle's raw JSON object as returned by the history API,
// or an error marker standing in for it.
type Document map[string]any

// NotFoundMarker returns the marker recorded for a vehicle without a record.
func NotFoundMarker() Document {
	return Document{ErrorKey: ErrorNotFound}
}

// APIErrorMarker returns the marker recorded for a failed lookup. An empty
// message is left out.
func APIErrorMarker(message string) Document {
	d := Document{ErrorKey: ErrorAPI}
	if message != "" {
		d[MessageKey] = message
	}
	return d
}

// ErrorKind returns the marker kind if d is an error marker.
func (d Document) ErrorKind() (string, bool) {
	kind, ok := stringValue(d[ErrorKey])
	return kind, ok
}

// ErrorMessage returns the marker message, if any.
func (d Document) ErrorMessage() string {
	msg, _ := stringValue(d[MessageKey])
	return msg
}

// String returns the named top-level field when it is a non-empty string.
func (d Document) String(key string) (string, bool) {
	return stringValue(d[key])
}

// Tests returns the motTests entries that are JSON objects, in payload order.
func (d Document) Tests() []TestRecord {
	list, ok := d["motTests"].([]any)
	if !ok {
		return nil
	}

	tests := make([]TestRecord, 0, len(list))
	for _, item := range list {
		switch m := item.(type) {
		case map[string]any:
			tests = append(tests, TestRecord(m))
		case Document:
			tests = append(tests, TestRecord(m))
		case TestRecord:
			tests = append(tests, m)
		}
	}
	return tests
}

func stringValue(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// floatValue accepts JSON numbers in any decoded form and numeric strings.
func floatValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// intValue accepts integral JSON numbers and decimal integer strings.
func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		f, err := n.Float64()
		return int(f), err == nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	}
	return 0, false
}
