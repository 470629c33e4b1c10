package patientlist

import (
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"yourloops-dashboard/internal/domain"
)

// SortField is a sortable column of the patient table.
type SortField string

const (
	SortAlertTimeTarget    SortField = "alertTimeTarget"
	SortAlertHypoglycemic  SortField = "alertHypoglycemic"
	SortDataNotTransferred SortField = "dataNotTransferred"
	SortFlag               SortField = "flag"
	SortLastUpload         SortField = "ldu"
	SortFullName           SortField = "patientFullName"
	SortRemoteMonitoring   SortField = "remoteMonitoring"
	SortSystem             SortField = "system"
)

type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

// ValidSortField reports whether f names a known column.
func ValidSortField(f SortField) bool {
	switch f {
	case SortAlertTimeTarget, SortAlertHypoglycemic, SortDataNotTransferred, SortFlag,
		SortLastUpload, SortFullName, SortRemoteMonitoring, SortSystem:
		return true
	}
	return false
}

// collate.Collator keeps internal buffers and is not safe for concurrent use.
var (
	collatorMu sync.Mutex
	collator   = collate.New(language.English)
)

func compareStrings(a, b string) int {
	collatorMu.Lock()
	defer collatorMu.Unlock()
	return collator.CompareString(a, b)
}

// ComparePatients orders a and b on field. Missing values (nil, NaN, false,
// empty string) sort after present ones; two missing values are equal.
func ComparePatients(a, b *domain.Patient, field SortField) int {
	switch field {
	case SortAlertTimeTarget:
		return compareNumbers(a.Alarms.TimeSpentAwayFromTargetRate, b.Alarms.TimeSpentAwayFromTargetRate)
	case SortAlertHypoglycemic:
		return compareNumbers(a.Alarms.FrequencyOfSevereHypoglycemiaRate, b.Alarms.FrequencyOfSevereHypoglycemiaRate)
	case SortDataNotTransferred:
		return compareNumbers(a.Alarms.NonDataTransmissionRate, b.Alarms.NonDataTransmissionRate)
	case SortFlag:
		return comparePresence(a.IsFlagged(), b.IsFlagged())
	case SortLastUpload:
		av := ComputeMedicalValues(a.Metadata.MedicalData, false, time.UTC).LastUploadEpoch
		bv := ComputeMedicalValues(b.Metadata.MedicalData, false, time.UTC).LastUploadEpoch
		return compareNumbers(av, bv)
	case SortFullName:
		return compareText(a.Profile.FullName, b.Profile.FullName)
	case SortRemoteMonitoring:
		return compareTimes(monitoringEnd(a), monitoringEnd(b))
	case SortSystem:
		return compareText(a.Settings.System, b.Settings.System)
	}
	return 0
}

// SortPatients sorts in place. The sort is stable; Desc negates the comparator.
func SortPatients(patients []domain.Patient, field SortField, dir SortDirection) {
	sort.SliceStable(patients, func(i, j int) bool {
		c := ComparePatients(&patients[i], &patients[j], field)
		if dir == Desc {
			c = -c
		}
		return c < 0
	})
}

func compareText(a, b string) int {
	if a == "" || b == "" {
		return comparePresence(a != "", b != "")
	}
	return compareStrings(a, b)
}

func compareNumbers(a, b float64) int {
	an, bn := math.IsNaN(a), math.IsNaN(b)
	if an || bn {
		return comparePresence(!an, !bn)
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareTimes(a, b *time.Time) int {
	if a == nil || b == nil {
		return comparePresence(a != nil, b != nil)
	}
	return a.Compare(*b)
}

func comparePresence(a, b bool) int {
	switch {
	case !a && b:
		return 1
	case a && !b:
		return -1
	}
	return 0
}

func monitoringEnd(p *domain.Patient) *time.Time {
	if p.Monitoring == nil {
		return nil
	}
	return p.Monitoring.MonitoringEnd
}
