package patientlist

import (
	"time"

	"yourloops-dashboard/internal/domain"
)

// FilterStats holds the badge counters shown next to each filter.
type FilterStats struct {
	All                int `json:"all"`
	Pending            int `json:"pending"`
	DirectShare        int `json:"directShare"`
	Unread             int `json:"unread"`
	OutOfRange         int `json:"outOfRange"`
	SevereHypoglycemia int `json:"severeHypoglycemia"`
	DataNotTransferred int `json:"dataNotTransferred"`
	RemoteMonitored    int `json:"remoteMonitored"`
	Renew              int `json:"renew"`
}

func ComputeFilterStats(patients []domain.Patient, now time.Time) FilterStats {
	var s FilterStats
	for i := range patients {
		p := &patients[i]
		if !IsOnlyPendingInvitation(p) {
			s.All++
		}
		if IsInvitationPending(p) {
			s.Pending++
		}
		if IsInTeam(p, domain.PrivateTeamID) {
			s.DirectShare++
		}
		if p.Metadata.UnreadMessagesSent > 0 {
			s.Unread++
		}
		if p.Alarms.TimeSpentAwayFromTargetActive {
			s.OutOfRange++
		}
		if p.Alarms.FrequencyOfSevereHypoglycemiaActive {
			s.SevereHypoglycemia++
		}
		if p.Alarms.NonDataTransmissionActive {
			s.DataNotTransferred++
		}
		if isRemoteMonitored(p) {
			s.RemoteMonitored++
		}
		if needsRenewal(p, now) {
			s.Renew++
		}
	}
	return s
}
