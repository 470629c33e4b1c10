package patientlist

import (
	"time"

	"yourloops-dashboard/internal/domain"
)

// FilterType selects a subset of the patient table.
type FilterType string

const (
	FilterAll                FilterType = "all"
	FilterPending            FilterType = "pending"
	FilterFlagged            FilterType = "flagged"
	FilterUnread             FilterType = "unread"
	FilterOutOfRange         FilterType = "outOfRange"
	FilterSevereHypoglycemia FilterType = "severeHypoglycemia"
	FilterDataNotTransferred FilterType = "dataNotTransferred"
	FilterRemoteMonitored    FilterType = "remoteMonitored"
	FilterPrivate            FilterType = "private"
	FilterRenew              FilterType = "renew"
)

// RenewWindow is how close to its end a monitoring must be to need renewal.
const RenewWindow = 14 * 24 * time.Hour

// ExtractPatients applies filter. Unknown filters return the input as is.
func ExtractPatients(patients []domain.Patient, filter FilterType, flagged []string) []domain.Patient {
	return ExtractPatientsAt(patients, filter, flagged, time.Now())
}

// ExtractPatientsAt is ExtractPatients with an explicit clock for the renew filter.
func ExtractPatientsAt(patients []domain.Patient, filter FilterType, flagged []string, now time.Time) []domain.Patient {
	var keep func(p *domain.Patient) bool
	switch filter {
	case FilterAll:
		keep = func(p *domain.Patient) bool { return !IsOnlyPendingInvitation(p) }
	case FilterPending:
		keep = IsInvitationPending
	case FilterFlagged:
		set := toSet(flagged)
		keep = func(p *domain.Patient) bool {
			_, ok := set[p.UserID]
			return ok
		}
	case FilterUnread:
		keep = func(p *domain.Patient) bool { return p.Metadata.UnreadMessagesSent > 0 }
	case FilterOutOfRange:
		keep = func(p *domain.Patient) bool { return p.Alarms.TimeSpentAwayFromTargetActive }
	case FilterSevereHypoglycemia:
		keep = func(p *domain.Patient) bool { return p.Alarms.FrequencyOfSevereHypoglycemiaActive }
	case FilterDataNotTransferred:
		keep = func(p *domain.Patient) bool { return p.Alarms.NonDataTransmissionActive }
	case FilterRemoteMonitored:
		keep = isRemoteMonitored
	case FilterPrivate:
		keep = func(p *domain.Patient) bool { return IsInTeam(p, domain.PrivateTeamID) }
	case FilterRenew:
		keep = func(p *domain.Patient) bool { return needsRenewal(p, now) }
	default:
		return patients
	}

	out := make([]domain.Patient, 0, len(patients))
	for i := range patients {
		if keep(&patients[i]) {
			out = append(out, patients[i])
		}
	}
	return out
}

func isRemoteMonitored(p *domain.Patient) bool {
	return p.Monitoring != nil && p.Monitoring.Enabled
}

func needsRenewal(p *domain.Patient, now time.Time) bool {
	if !isRemoteMonitored(p) || p.Monitoring.MonitoringEnd == nil {
		return false
	}
	return p.Monitoring.MonitoringEnd.Before(now.Add(RenewWindow))
}
