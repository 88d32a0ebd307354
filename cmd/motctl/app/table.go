package app

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gosuri/uitable"

	"github.com/autopeer-io/motwatch/internal/mot"
)

const none = "-"

func printReports(w io.Writer, reports []mot.Report) {
	table := uitable.New()
	table.MaxColWidth = 48
	table.Wrap = true

	table.AddRow("REGISTRATION", "STATUS", "DUE", "DAYS", "LAST RESULT", "MILEAGE", "VEHICLE", "ERROR")
	for _, r := range reports {
		table.AddRow(
			r.Registration,
			orNone(string(r.Status)),
			orNone(r.DueDate),
			intOrNone(r.DaysRemaining),
			orNone(r.LastResult),
			mileage(r),
			orNone(r.MakeModel),
			errorText(r),
		)
	}
	fmt.Fprintln(w, table)
}

func orNone(s string) string {
	if s == "" {
		return none
	}
	return s
}

func intOrNone(v *int) string {
	if v == nil {
		return none
	}
	return strconv.Itoa(*v)
}

func mileage(r mot.Report) string {
	if r.AnnualMileage == nil {
		return none
	}
	return fmt.Sprintf("%.0f %s", *r.AnnualMileage, r.AnnualMileageUnit)
}

func errorText(r mot.Report) string {
	switch {
	case r.Error == "":
		return none
	case r.Message != "":
		return r.Error + ": " + r.Message
	default:
		return r.Error
	}
}
