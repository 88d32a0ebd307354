package mot

import (
	"strings"
	"time"
)

// Odometer units understood by the mileage estimators.
const (
	UnitMiles      = "mi"
	UnitKilometres = "km"
)

// TestRecord is one motTests entry. Accessors narrow its loosely typed fields.
type TestRecord map[string]any

// CompletedAt returns the completion timestamp from completedDate, falling
// back to completedDateTime.
func (t TestRecord) CompletedAt() (time.Time, bool) {
	raw, ok := stringValue(t["completedDate"])
	if !ok {
		raw, ok = stringValue(t["completedDateTime"])
	}
	if !ok {
		return time.Time{}, false
	}
	return ParseTimestamp(raw)
}

// ExpiryDate returns the certificate expiry issued by this test.
func (t TestRecord) ExpiryDate() (time.Time, bool) {
	return ParseDate(t["expiryDate"])
}

// Result returns testResult, e.g. PASSED or FAILED.
func (t TestRecord) Result() (string, bool) {
	return stringValue(t["testResult"])
}

// Odometer returns odometerValue as a number.
func (t TestRecord) Odometer() (float64, bool) {
	return floatValue(t["odometerValue"])
}

// OdometerUnit returns odometerUnit lower-cased, if it is mi or km.
func (t TestRecord) OdometerUnit() (string, bool) {
	raw, _ := stringValue(t["odometerUnit"])
	switch u := strings.ToLower(strings.TrimSpace(raw)); u {
	case UnitMiles, UnitKilometres:
		return u, true
	}
	return "", false
}

// OdometerOK reports whether the reading is flagged as reliable.
func (t TestRecord) OdometerOK() bool {
	raw, _ := stringValue(t["odometerResultType"])
	return strings.EqualFold(strings.TrimSpace(raw), "OK")
}

// TestNumber returns motTestNumber.
func (t TestRecord) TestNumber() (string, bool) {
	return stringValue(t["motTestNumber"])
}
