package domain

import (
	"fmt"
	"math"
	"time"
)

type BgUnit string

const (
	UnitMgdL  BgUnit = "mg/dL"
	UnitMmolL BgUnit = "mmol/L"
)

const (
	MinHighBg    = 140
	MaxHighBg    = 250
	MinVeryLowBg = 40
	MaxVeryLowBg = 90
	MinLowBg     = 50
	MaxLowBg     = 100

	// DefaultReportingPeriod is used when a non-positive period is submitted.
	DefaultReportingPeriod = 55

	mgdlPerMmol = 18.01577
)

// MonitoringStatus values for PatientTeam.MonitoringStatus and Monitoring.Status.
const (
	MonitoringPending  = "pending"
	MonitoringAccepted = "accepted"
	MonitoringInvited  = "invited"
	MonitoringRenewed  = "renewed"
)

type MonitoringParameters struct {
	BgUnit              BgUnit  `json:"bgUnit"`
	LowBg               float64 `json:"lowBg"`
	HighBg              float64 `json:"highBg"`
	VeryLowBg           float64 `json:"veryLowBg"`
	OutOfRangeThreshold int     `json:"outOfRangeThreshold"`
	HypoThreshold       int     `json:"hypoThreshold"`
	NonDataTxThreshold  int     `json:"nonDataTxThreshold"`
	ReportingPeriod     int     `json:"reportingPeriod"`
}

type Monitoring struct {
	Enabled       bool                  `json:"enabled"`
	Status        *string               `json:"status,omitempty"`
	MonitoringEnd *time.Time            `json:"monitoringEnd,omitempty"`
	Parameters    *MonitoringParameters `json:"parameters,omitempty"`
}

// Alarm is the set of monitoring alerts computed upstream for a patient.
type Alarm struct {
	TimeSpentAwayFromTargetRate         float64 `json:"timeSpentAwayFromTargetRate"`
	FrequencyOfSevereHypoglycemiaRate   float64 `json:"frequencyOfSevereHypoglycemiaRate"`
	NonDataTransmissionRate             float64 `json:"nonDataTransmissionRate"`
	TimeSpentAwayFromTargetActive       bool    `json:"timeSpentAwayFromTargetActive"`
	FrequencyOfSevereHypoglycemiaActive bool    `json:"frequencyOfSevereHypoglycemiaActive"`
	NonDataTransmissionActive           bool    `json:"nonDataTransmissionActive"`
}

// DefaultMonitoringParameters are applied to new teams.
func DefaultMonitoringParameters() MonitoringParameters {
	return MonitoringParameters{
		BgUnit:              UnitMgdL,
		LowBg:               70,
		HighBg:              180,
		VeryLowBg:           54,
		OutOfRangeThreshold: 5,
		HypoThreshold:       10,
		NonDataTxThreshold:  15,
		ReportingPeriod:     7,
	}
}

// Normalize applies defaults in place. Call before Validate.
func (p *MonitoringParameters) Normalize() {
	if p.BgUnit == "" {
		p.BgUnit = UnitMgdL
	}
	if p.ReportingPeriod <= 0 {
		p.ReportingPeriod = DefaultReportingPeriod
	}
}

// Validate checks glycemia bounds and threshold percentages.
// The returned error wraps ErrInvalidMonitoring.
func (p *MonitoringParameters) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: parameters are required", ErrInvalidMonitoring)
	}
	if p.BgUnit != UnitMgdL && p.BgUnit != UnitMmolL {
		return fmt.Errorf("%w: unknown bgUnit %q", ErrInvalidMonitoring, p.BgUnit)
	}
	checks := []struct {
		name     string
		value    float64
		low, max float64
	}{
		{"highBg", p.HighBg, MinHighBg, MaxHighBg},
		{"lowBg", p.LowBg, MinLowBg, MaxLowBg},
		{"veryLowBg", p.VeryLowBg, MinVeryLowBg, MaxVeryLowBg},
	}
	for _, c := range checks {
		if err := p.checkBg(c.name, c.value, c.low, c.max); err != nil {
			return err
		}
	}
	thresholds := []struct {
		name  string
		value int
	}{
		{"outOfRangeThreshold", p.OutOfRangeThreshold},
		{"hypoThreshold", p.HypoThreshold},
		{"nonDataTxThreshold", p.NonDataTxThreshold},
	}
	for _, t := range thresholds {
		if !ValidPercentage(t.value) {
			return fmt.Errorf("%w: %s must be a multiple of 5 between 5 and 100", ErrInvalidMonitoring, t.name)
		}
	}
	return nil
}

func (p *MonitoringParameters) checkBg(name string, value, lowMgdl, highMgdl float64) error {
	low, high := lowMgdl, highMgdl
	if p.BgUnit == UnitMmolL {
		low, high = MgdlToMmol(lowMgdl), MgdlToMmol(highMgdl)
		if value == math.Trunc(value) {
			return fmt.Errorf("%w: %s must be a decimal value in mmol/L", ErrInvalidMonitoring, name)
		}
	} else if value != math.Trunc(value) {
		return fmt.Errorf("%w: %s must be an integer in mg/dL", ErrInvalidMonitoring, name)
	}
	if value < low || value > high {
		return fmt.Errorf("%w: %s must be between %g and %g", ErrInvalidMonitoring, name, low, high)
	}
	return nil
}

// ValidPercentage accepts 5, 10, ..., 100.
func ValidPercentage(v int) bool {
	return v >= 5 && v <= 100 && v%5 == 0
}

// MgdlToMmol converts and rounds to one decimal.
func MgdlToMmol(v float64) float64 {
	return math.Round(v/mgdlPerMmol*10) / 10
}
