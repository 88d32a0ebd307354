package mot

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func vehicle(tests ...map[string]any) Document {
	list := make([]any, len(tests))
	for i, t := range tests {
		list[i] = t
	}
	return Document{"motTests": list}
}

func decode(t *testing.T, raw string) Document {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var doc Document
	require.NoError(t, dec.Decode(&doc))
	return doc
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   any
		want time.Time
		ok   bool
	}{
		{"2015-03-11 11:41:11", time.Date(2015, 3, 11, 11, 41, 11, 0, time.UTC), true},
		{"2015.03.11 11:41:11", time.Date(2015, 3, 11, 11, 41, 11, 0, time.UTC), true},
		{"2023-06-01T09:30:00.000Z", time.Date(2023, 6, 1, 9, 30, 0, 0, time.UTC), true},
		{"2023-06-01T09:30:00", time.Date(2023, 6, 1, 9, 30, 0, 0, time.UTC), true},
		{"2023-06-01T09:30:00.25", time.Date(2023, 6, 1, 9, 30, 0, 250000000, time.UTC), true},
		{" 2020-01-02 ", time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), true},
		{"2020.01.02", time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), true},
		{"yesterday", time.Time{}, false},
		{"", time.Time{}, false},
		{nil, time.Time{}, false},
		{12345, time.Time{}, false},
	}

	for _, tt := range tests {
		got, ok := ParseTimestamp(tt.in)
		assert.Equal(t, tt.ok, ok, "input %v", tt.in)
		if tt.ok {
			assert.True(t, tt.want.Equal(got), "input %v: got %v", tt.in, got)
		}
	}
}

func TestParseDateUsesLeadingDate(t *testing.T) {
	got, ok := ParseDate("2024-09-30T00:00:00Z")
	require.True(t, ok)
	assert.Equal(t, day("2024-09-30"), got)

	got, ok = ParseDate("2024.09.30")
	require.True(t, ok)
	assert.Equal(t, day("2024-09-30"), got)

	_, ok = ParseDate("30/09/2024")
	assert.False(t, ok)
}

func TestSortedTests(t *testing.T) {
	v := Document{"motTests": []any{
		map[string]any{"motTestNumber": "old", "completedDate": "2019-05-01 10:00:00"},
		"not an object",
		map[string]any{"motTestNumber": "bad", "completedDate": "garbage"},
		map[string]any{"motTestNumber": "new", "completedDateTime": "2023-05-01T10:00:00.000Z"},
		nil,
		map[string]any{"motTestNumber": "mid", "completedDate": "2021.05.01"},
		map[string]any{"motTestNumber": "none"},
	}}

	var got []string
	for _, rec := range SortedTests(v) {
		n, _ := rec.TestNumber()
		got = append(got, n)
	}
	assert.Equal(t, []string{"new", "mid", "old", "bad", "none"}, got)
	assert.Equal(t, 7, TestCount(v))
}

func TestSortedTestsWithoutHistory(t *testing.T) {
	assert.Empty(t, SortedTests(Document{}))
	assert.Empty(t, SortedTests(Document{"motTests": nil}))
	assert.Empty(t, SortedTests(Document{"motTests": "nope"}))
	assert.Equal(t, 0, TestCount(Document{"motTests": map[string]any{}}))

	_, ok := LatestTest(Document{})
	assert.False(t, ok)
}

func TestCurrentDueDate(t *testing.T) {
	v := vehicle(
		map[string]any{"expiryDate": "2023-04-01"},
		map[string]any{"expiryDate": "2025-04-01"},
		map[string]any{"expiryDate": "not a date"},
	)
	due, ok := CurrentDueDate(v)
	require.True(t, ok)
	assert.Equal(t, day("2025-04-01"), due)

	v["motTestDueDate"] = "2026-01-15"
	due, ok = CurrentDueDate(v)
	require.True(t, ok)
	assert.Equal(t, day("2026-01-15"), due)

	_, ok = CurrentDueDate(Document{"motTestDueDate": nil})
	assert.False(t, ok)
}

func TestClassify(t *testing.T) {
	today := time.Date(2025, 6, 10, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		due  any
		want Status
	}{
		{nil, StatusUnknown},
		{"2025-06-09", StatusExpired},
		{"2025-06-10", StatusExpiresSoon},
		{"2025-07-10", StatusExpiresSoon},
		{"2025-07-11", StatusValid},
	}

	for _, tt := range tests {
		v := Document{"motTestDueDate": tt.due}
		assert.Equal(t, tt.want, Classify(v, today, 30), "due %v", tt.due)
	}

	assert.Equal(t, StatusValid, Classify(Document{"motTestDueDate": "2025-06-11"}, today, 0))
	assert.Equal(t, StatusExpiresSoon, Classify(Document{"motTestDueDate": "2025-06-10"}, today, 0))
}

func TestDaysRemaining(t *testing.T) {
	today := time.Date(2025, 6, 10, 23, 59, 0, 0, time.UTC)

	days, ok := DaysRemaining(Document{"motTestDueDate": "2025-06-20"}, today)
	require.True(t, ok)
	assert.Equal(t, 10, days)

	days, ok = DaysRemaining(Document{"motTestDueDate": "2025-06-01"}, today)
	require.True(t, ok)
	assert.Equal(t, -9, days)
}

func okReading(date string, value any, unit string) map[string]any {
	return map[string]any{
		"completedDate":      date,
		"odometerValue":      value,
		"odometerUnit":       unit,
		"odometerResultType": "OK",
	}
}

func TestAnnualMileageTwoPoint(t *testing.T) {
	v := vehicle(
		okReading("2023-01-01 09:00:00", "36500", "mi"),
		okReading("2024-01-01 09:00:00", "40150", "MI"),
	)
	est, ok := AnnualMileageTwoPoint(v)
	require.True(t, ok)
	assert.InDelta(t, 3652.5, est.Value, 0.001)
	assert.Equal(t, UnitMiles, est.Unit)
}

func TestAnnualMileageTwoPointSkipsUnreliableReadings(t *testing.T) {
	unreliable := okReading("2024-06-01 09:00:00", "99999", "mi")
	unreliable["odometerResultType"] = "NO_ODOMETER"

	v := vehicle(
		unreliable,
		okReading("2024-01-01 09:00:00", json.Number("40150"), "mi"),
		map[string]any{"completedDate": "2023-06-01", "odometerValue": "38000", "odometerUnit": "mi", "odometerResultType": "ok"},
		okReading("2023-01-01 09:00:00", "36500", "mi"),
	)
	est, ok := AnnualMileageTwoPoint(v)
	require.True(t, ok)
	assert.InDelta(t, 2150.0/214*365.25, est.Value, 0.001)
}

func TestAnnualMileageTwoPointNoEstimate(t *testing.T) {
	tests := []struct {
		name string
		v    Document
	}{
		{"no history", Document{}},
		{"single reading", vehicle(okReading("2024-01-01", "40150", "mi"))},
		{"differing units", vehicle(okReading("2024-01-01", "40150", "mi"), okReading("2023-01-01", "36500", "km"))},
		{"negative delta", vehicle(okReading("2024-01-01", "30000", "mi"), okReading("2023-01-01", "36500", "mi"))},
		{"no delta", vehicle(okReading("2024-01-01", "36500", "mi"), okReading("2023-01-01", "36500", "mi"))},
		{"same day", vehicle(okReading("2024-01-01 17:00:00", "36600", "mi"), okReading("2024-01-01 09:00:00", "36500", "mi"))},
		{"unknown unit", vehicle(okReading("2024-01-01", "40150", "miles"), okReading("2023-01-01", "36500", "miles"))},
		{"non numeric", vehicle(okReading("2024-01-01", "lots", "mi"), okReading("2023-01-01", "36500", "mi"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := AnnualMileageTwoPoint(tt.v)
			assert.False(t, ok)
		})
	}
}

func TestAnnualMileageSinceRegistration(t *testing.T) {
	today := day("2025-01-01")

	estimated := okReading("2024-01-01 10:00:00", "36525", "km")
	estimated["odometerResultType"] = "READ_FROM_SERVICE_HISTORY"
	v := vehicle(estimated, okReading("2022-01-01 10:00:00", "20000", "km"))
	v["registrationDate"] = "2019-01-01"

	est, ok := AnnualMileageSinceRegistration(v, today)
	require.True(t, ok)
	assert.InDelta(t, 36525/(1826.0/365.25), est.Value, 0.001)
	assert.Equal(t, UnitKilometres, est.Unit)

	undated := Document{
		"registrationDate": "2024-01-01",
		"motTests":         []any{map[string]any{"odometerValue": 1000}},
	}
	est, ok = AnnualMileageSinceRegistration(undated, today)
	require.True(t, ok)
	assert.InDelta(t, 1000/(366.0/365.25), est.Value, 0.001)
	assert.Empty(t, est.Unit)
}

func TestAnnualMileageSinceRegistrationNoEstimate(t *testing.T) {
	today := day("2025-01-01")

	noReg := vehicle(okReading("2024-01-01", "100", "mi"))
	_, ok := AnnualMileageSinceRegistration(noReg, today)
	assert.False(t, ok)

	noOdometer := vehicle(map[string]any{"completedDate": "2024-01-01"})
	noOdometer["registrationDate"] = "2020-01-01"
	_, ok = AnnualMileageSinceRegistration(noOdometer, today)
	assert.False(t, ok)

	future := Document{"registrationDate": "2026-01-01", "motTests": []any{map[string]any{"odometerValue": 10}}}
	_, ok = AnnualMileageSinceRegistration(future, today)
	assert.False(t, ok)
}

func TestVehicleFields(t *testing.T) {
	v := decode(t, `{
		"make": "FORD",
		"model": "FOCUS",
		"engineSize": "1598",
		"hasOutstandingRecall": "False"
	}`)

	mm, ok := MakeModel(v)
	require.True(t, ok)
	assert.Equal(t, "FORD FOCUS", mm)

	size, ok := EngineSize(v)
	require.True(t, ok)
	assert.Equal(t, 1598, size)

	recall, ok := OutstandingRecall(v)
	require.True(t, ok)
	assert.False(t, recall)

	_, ok = OutstandingRecall(Document{"hasOutstandingRecall": "Unknown"})
	assert.False(t, ok)

	_, ok = EngineSize(Document{"engineSize": "n/a"})
	assert.False(t, ok)

	mm, ok = MakeModel(Document{"model": "FOCUS"})
	require.True(t, ok)
	assert.Equal(t, "FOCUS", mm)
}

func TestMarkers(t *testing.T) {
	kind, ok := NotFoundMarker().ErrorKind()
	require.True(t, ok)
	assert.Equal(t, ErrorNotFound, kind)

	assert.Equal(t, Document{ErrorKey: ErrorAPI}, APIErrorMarker(""))
	m := APIErrorMarker("HTTP 500: boom")
	assert.Equal(t, "HTTP 500: boom", m.ErrorMessage())

	_, ok = Document{"registration": "AB12CDE"}.ErrorKind()
	assert.False(t, ok)
}
