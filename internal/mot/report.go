package mot

import (
	"time"
)

const dateLayout = "2006-01-02"

// Report is the per-vehicle view handed to presentation layers. Optional
// values are nil or empty when they cannot be derived.
type Report struct {
	Registration string `json:"registration"`

	// Available is false when the last lookup failed with an API error.
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
	Message   string `json:"message,omitempty"`

	DueDate       string `json:"dueDate,omitempty"`
	DaysRemaining *int   `json:"daysRemaining,omitempty"`
	Status        Status `json:"status,omitempty"`
	TestCount     int    `json:"testCount"`

	LastResult   string `json:"lastResult,omitempty"`
	LastTestDate string `json:"lastTestDate,omitempty"`

	MakeModel        string `json:"makeModel,omitempty"`
	EngineSize       *int   `json:"engineSize,omitempty"`
	FuelType         string `json:"fuelType,omitempty"`
	PrimaryColour    string `json:"primaryColour,omitempty"`
	SecondaryColour  string `json:"secondaryColour,omitempty"`
	RegistrationDate string `json:"registrationDate,omitempty"`
	ManufactureDate  string `json:"manufactureDate,omitempty"`

	// AnnualMileage is the two point estimate rounded to a whole number.
	AnnualMileage     *float64 `json:"annualMileage,omitempty"`
	AnnualMileageUnit string   `json:"annualMileageUnit,omitempty"`

	// MileageSinceRegistration is the lifetime average, rounded to one decimal.
	MileageSinceRegistration     *float64 `json:"mileageSinceRegistration,omitempty"`
	MileageSinceRegistrationUnit string   `json:"mileageSinceRegistrationUnit,omitempty"`

	HasOutstandingRecall *bool `json:"hasOutstandingRecall,omitempty"`

	// Attributes mirrors raw payload fields and the latest test. Absent values are left out.
	Attributes map[string]any `json:"attributes,omitempty"`
}

// BuildReport derives a Report from the snapshot entry of registration.
// A nil document produces an unavailable report with no values.
func BuildReport(registration string, v Document, today time.Time, warnDays int) Report {
	r := Report{Registration: registration}
	if v == nil {
		return r
	}

	if kind, ok := v.ErrorKind(); ok {
		r.Available = kind != ErrorAPI
		r.Error = kind
		r.Message = v.ErrorMessage()
		r.Attributes = map[string]any{"error": kind}
		return r
	}
	r.Available = true

	due, hasDue := CurrentDueDate(v)
	if hasDue {
		r.DueDate = due.Format(dateLayout)
		days := daysBetween(truncateDay(today), due)
		r.DaysRemaining = &days
	}
	r.Status = Classify(v, today, warnDays)
	r.TestCount = TestCount(v)

	latest, hasLatest := LatestTest(v)
	if hasLatest {
		r.LastResult, _ = latest.Result()
		if at, ok := latest.CompletedAt(); ok {
			r.LastTestDate = at.Format(dateLayout)
		}
	}

	r.MakeModel, _ = MakeModel(v)
	if size, ok := EngineSize(v); ok {
		r.EngineSize = &size
	}
	r.FuelType, _ = v.String("fuelType")
	r.PrimaryColour, _ = v.String("primaryColour")
	r.SecondaryColour, _ = v.String("secondaryColour")
	if d, ok := ParseDate(v["registrationDate"]); ok {
		r.RegistrationDate = d.Format(dateLayout)
	}
	if d, ok := ParseDate(v["manufactureDate"]); ok {
		r.ManufactureDate = d.Format(dateLayout)
	}

	twoPoint, hasTwoPoint := AnnualMileageTwoPoint(v)
	if hasTwoPoint {
		rounded := roundTo(twoPoint.Value, 0)
		r.AnnualMileage = &rounded
		r.AnnualMileageUnit = twoPoint.Unit + "/yr"
	}
	if est, ok := AnnualMileageSinceRegistration(v, today); ok {
		rounded := roundTo(est.Value, 1)
		r.MileageSinceRegistration = &rounded
		if est.Unit != "" {
			r.MileageSinceRegistrationUnit = est.Unit + "/yr"
		}
	}
	if recall, ok := OutstandingRecall(v); ok {
		r.HasOutstandingRecall = &recall
	}

	attrs := map[string]any{
		"registration":         firstNonNil(v["registration"], registration),
		"make":                 v["make"],
		"model":                v["model"],
		"fuelType":             v["fuelType"],
		"primaryColour":        v["primaryColour"],
		"secondaryColour":      v["secondaryColour"],
		"engineSize":           v["engineSize"],
		"registrationDate":     v["registrationDate"],
		"manufactureDate":      v["manufactureDate"],
		"hasOutstandingRecall": v["hasOutstandingRecall"],
	}
	if hasDue {
		attrs["mot_due_date"] = r.DueDate
	}
	if hasTwoPoint {
		attrs["annual_mileage_estimate_unit"] = r.AnnualMileageUnit
		attrs["annual_mileage_estimate_raw"] = twoPoint.Value
	}
	if hasLatest {
		attrs["last_test_result"] = latest["testResult"]
		attrs["last_test_expiry"] = latest["expiryDate"]
		attrs["last_test_odometer"] = latest["odometerValue"]
		attrs["last_test_odometer_unit"] = latest["odometerUnit"]
		attrs["last_test_odometer_result_type"] = latest["odometerResultType"]
		attrs["last_test_number"] = latest["motTestNumber"]
	}
	for k, val := range attrs {
		if val == nil {
			delete(attrs, k)
		}
	}
	r.Attributes = attrs

	return r
}

func firstNonNil(vals ...any) any {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
