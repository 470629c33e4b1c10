package patientlist

import (
	"math"
	"strconv"
	"time"

	"yourloops-dashboard/internal/domain"
)

const (
	NotAvailable = "N/A"
	notFetched   = "-"

	// LastUploadLayout is the long localized date format of the table.
	LastUploadLayout = "Mon, Jan 2, 2006 3:04 PM"
)

// MedicalValues are the display strings and raw numbers of the TIR, TBR and
// last upload columns. Numbers are NaN when unknown.
type MedicalValues struct {
	TIR             string  `json:"tir"`
	TBR             string  `json:"tbr"`
	LastUpload      string  `json:"lastUpload"`
	TIRNumber       float64 `json:"-"`
	TBRNumber       float64 `json:"-"`
	LastUploadEpoch float64 `json:"-"`
}

// ComputeMedicalValues renders md in loc. fetched=false means the summary
// was never requested and yields "-" placeholders; a nil md after a fetch
// yields "N/A".
func ComputeMedicalValues(md *domain.MedicalData, fetched bool, loc *time.Location) MedicalValues {
	v := MedicalValues{
		TIR:             notFetched,
		TBR:             notFetched,
		LastUpload:      notFetched,
		TIRNumber:       math.NaN(),
		TBRNumber:       math.NaN(),
		LastUploadEpoch: math.NaN(),
	}
	if md == nil {
		if fetched {
			v.TIR, v.TBR, v.LastUpload = NotAvailable, NotAvailable, NotAvailable
		}
		return v
	}
	if loc == nil {
		loc = time.UTC
	}

	if end := lastUploadDate(md); end != "" {
		if t, err := time.Parse(time.RFC3339, end); err == nil {
			v.LastUploadEpoch = float64(t.UnixMilli())
			v.LastUpload = t.In(loc).Format(LastUploadLayout)
		}
	}

	switch {
	case md.ComputedTIR != nil && md.ComputedTIR.Total() > 0:
		c := md.ComputedTIR
		total := float64(c.Total())
		v.TIRNumber = math.Round(100 * float64(c.Target) / total)
		v.TBRNumber = math.Round(100 * float64(c.Low+c.VeryLow) / total)
	case md.Summary != nil && md.Summary.NumBgValues > 0:
		v.TIRNumber = math.Round(md.Summary.PercentTimeInRange)
		v.TBRNumber = math.Round(md.Summary.PercentTimeBelowRange)
	}
	if math.IsNaN(v.TIRNumber) {
		v.TIR, v.TBR = NotAvailable, NotAvailable
	} else {
		v.TIR = strconv.FormatFloat(v.TIRNumber, 'f', 0, 64)
		v.TBR = strconv.FormatFloat(v.TBRNumber, 'f', 0, 64)
	}
	return v
}

func lastUploadDate(md *domain.MedicalData) string {
	if md.Range != nil && md.Range.End != "" {
		return md.Range.End
	}
	if md.Summary != nil {
		return md.Summary.RangeEnd
	}
	return ""
}
