package domain

import (
	"regexp"
	"time"
)

var summaryUserIDPattern = regexp.MustCompile(`^[a-f0-9]+$`)

// PatientDataSummary is the glycemic summary over [RangeStart, RangeEnd].
type PatientDataSummary struct {
	UserID                string  `json:"userId"`
	RangeStart            string  `json:"rangeStart"`
	RangeEnd              string  `json:"rangeEnd"`
	ComputeDays           int     `json:"computeDays"`
	NumBgValues           int     `json:"numBgValues"`
	PercentTimeInRange    float64 `json:"percentTimeInRange"`
	PercentTimeBelowRange float64 `json:"percentTimeBelowRange"`
}

// Valid reports whether an upstream summary can be trusted as is.
func (s *PatientDataSummary) Valid() bool {
	if s == nil {
		return false
	}
	return s.ComputeDays > 0 &&
		s.NumBgValues >= 0 &&
		s.PercentTimeBelowRange >= 0 && s.PercentTimeBelowRange <= 100 &&
		s.PercentTimeInRange >= 0 && s.PercentTimeInRange <= 100 &&
		s.RangeStart != "" && s.RangeEnd != "" &&
		summaryUserIDPattern.MatchString(s.UserID)
}

// DataRange is the [first, last] upload timestamp pair.
type DataRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// TIRCount holds reading counts per glycemic band.
type TIRCount struct {
	VeryLow  int `json:"veryLow"`
	Low      int `json:"low"`
	Target   int `json:"target"`
	High     int `json:"high"`
	VeryHigh int `json:"veryHigh"`
}

func (c TIRCount) Total() int {
	return c.VeryLow + c.Low + c.Target + c.High + c.VeryHigh
}

type MedicalData struct {
	LastFetchDate time.Time           `json:"lastFetchDate"`
	Summary       *PatientDataSummary `json:"summary,omitempty"`
	Range         *DataRange          `json:"range,omitempty"`
	ComputedTIR   *TIRCount           `json:"computedTir,omitempty"`
}
