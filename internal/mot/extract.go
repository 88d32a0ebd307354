package mot

import (
	"math"
	"slices"
	"strings"
	"time"
)

// Status classifies a vehicle's MOT due date relative to today.
type Status string

const (
	StatusUnknown     Status = "unknown"
	StatusExpired     Status = "expired"
	StatusExpiresSoon Status = "expires_soon"
	StatusValid       Status = "valid"
)

const daysPerYear = 365.25

// Estimate is an annual mileage estimate in Unit per year.
type Estimate struct {
	Value float64
	Unit  string
}

// SortedTests returns the test entries newest first. Entries whose completion
// timestamp cannot be parsed keep their relative order at the end.
func SortedTests(v Document) []TestRecord {
	tests := v.Tests()

	type keyed struct {
		rec TestRecord
		at  time.Time
		ok  bool
	}
	items := make([]keyed, len(tests))
	for i, t := range tests {
		at, ok := t.CompletedAt()
		items[i] = keyed{rec: t, at: at, ok: ok}
	}

	slices.SortStableFunc(items, func(a, b keyed) int {
		switch {
		case a.ok && b.ok:
			return b.at.Compare(a.at)
		case a.ok:
			return -1
		case b.ok:
			return 1
		}
		return 0
	})

	sorted := make([]TestRecord, len(items))
	for i, it := range items {
		sorted[i] = it.rec
	}
	return sorted
}

// LatestTest returns the newest test entry.
func LatestTest(v Document) (TestRecord, bool) {
	tests := SortedTests(v)
	if len(tests) == 0 {
		return nil, false
	}
	return tests[0], true
}

// TestCount returns the number of motTests entries, or 0 if the field is not a list.
func TestCount(v Document) int {
	list, ok := v["motTests"].([]any)
	if !ok {
		return 0
	}
	return len(list)
}

// CurrentDueDate prefers motTestDueDate and falls back to the latest
// expiryDate found in the history.
func CurrentDueDate(v Document) (time.Time, bool) {
	if due, ok := ParseDate(v["motTestDueDate"]); ok {
		return due, true
	}

	var best time.Time
	found := false
	for _, t := range v.Tests() {
		exp, ok := t.ExpiryDate()
		if ok && (!found || exp.After(best)) {
			best, found = exp, true
		}
	}
	return best, found
}

// DaysRemaining returns the whole days from today to the due date. It is
// negative once the due date has passed.
func DaysRemaining(v Document, today time.Time) (int, bool) {
	due, ok := CurrentDueDate(v)
	if !ok {
		return 0, false
	}
	return daysBetween(truncateDay(today), due), true
}

// Classify returns the MOT status for today. A due date equal to today is
// not expired and falls inside the warning window.
func Classify(v Document, today time.Time, warnDays int) Status {
	days, ok := DaysRemaining(v, today)
	switch {
	case !ok:
		return StatusUnknown
	case days < 0:
		return StatusExpired
	case days <= warnDays:
		return StatusExpiresSoon
	}
	return StatusValid
}

// AnnualMileageTwoPoint extrapolates from the two newest reliable odometer
// readings. Odometer rollbacks and unit changes yield no estimate.
func AnnualMileageTwoPoint(v Document) (Estimate, bool) {
	type reading struct {
		at    time.Time
		value float64
		unit  string
	}

	usable := make([]reading, 0, 2)
	for _, t := range SortedTests(v) {
		at, ok := t.CompletedAt()
		if !ok || !t.OdometerOK() {
			continue
		}
		unit, ok := t.OdometerUnit()
		if !ok {
			continue
		}
		value, ok := t.Odometer()
		if !ok {
			continue
		}

		usable = append(usable, reading{at: at, value: value, unit: unit})
		if len(usable) == 2 {
			break
		}
	}
	if len(usable) < 2 {
		return Estimate{}, false
	}

	newer, older := usable[0], usable[1]
	if newer.unit != older.unit {
		return Estimate{}, false
	}
	days := daysBetween(older.at, newer.at)
	if days <= 0 {
		return Estimate{}, false
	}
	delta := newer.value - older.value
	if delta <= 0 {
		return Estimate{}, false
	}

	return Estimate{Value: delta / float64(days) * daysPerYear, Unit: newer.unit}, true
}

// AnnualMileageSinceRegistration averages the newest numeric odometer reading
// over the years between registration and that reading. The reliability flag
// is ignored, and a reading without a usable date is measured against today.
// Unit is empty when the reading's unit is not recognised.
func AnnualMileageSinceRegistration(v Document, today time.Time) (Estimate, bool) {
	registered, ok := ParseDate(v["registrationDate"])
	if !ok {
		return Estimate{}, false
	}

	for _, t := range SortedTests(v) {
		value, ok := t.Odometer()
		if !ok {
			continue
		}

		until := truncateDay(today)
		if at, ok := t.CompletedAt(); ok {
			until = at
		}
		days := daysBetween(registered, until)
		if days <= 0 {
			return Estimate{}, false
		}

		unit, _ := t.OdometerUnit()
		return Estimate{Value: value / (float64(days) / daysPerYear), Unit: unit}, true
	}
	return Estimate{}, false
}

// MakeModel joins make and model, or returns whichever one is present.
func MakeModel(v Document) (string, bool) {
	mk, hasMake := v.String("make")
	md, hasModel := v.String("model")
	switch {
	case hasMake && hasModel:
		return mk + " " + md, true
	case hasMake:
		return mk, true
	case hasModel:
		return md, true
	}
	return "", false
}

// EngineSize returns engineSize in cc when it is an integer.
func EngineSize(v Document) (int, bool) {
	return intValue(v["engineSize"])
}

// OutstandingRecall reads hasOutstandingRecall as a boolean or a "true"/"false" string.
func OutstandingRecall(v Document) (bool, bool) {
	switch r := v["hasOutstandingRecall"].(type) {
	case bool:
		return r, true
	case string:
		switch strings.ToLower(strings.TrimSpace(r)) {
		case "true", "yes":
			return true, true
		case "false", "no":
			return false, true
		}
	}
	return false, false
}

func roundTo(f float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(f*p) / p
}
