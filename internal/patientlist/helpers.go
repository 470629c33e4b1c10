package patientlist

import (
	"fmt"

	"yourloops-dashboard/internal/domain"
)

func IsInvitationPending(p *domain.Patient) bool {
	for _, t := range p.Teams {
		if t.Status == domain.StatusPending {
			return true
		}
	}
	return false
}

// IsOnlyPendingInvitation is also true for a patient without teams.
func IsOnlyPendingInvitation(p *domain.Patient) bool {
	for _, t := range p.Teams {
		if t.Status != domain.StatusPending {
			return false
		}
	}
	return true
}

func IsInAtLeastATeam(p *domain.Patient) bool {
	for _, t := range p.Teams {
		if t.Status == domain.StatusAccepted {
			return true
		}
	}
	return false
}

func IsInTeam(p *domain.Patient, teamID string) bool {
	return TeamLink(p, teamID) != nil
}

// TeamLink returns the patient's link to teamID, or nil.
func TeamLink(p *domain.Patient, teamID string) *domain.PatientTeam {
	for i := range p.Teams {
		if p.Teams[i].TeamID == teamID {
			return &p.Teams[i]
		}
	}
	return nil
}

// RemoteMonitoringTeam returns the first team link carrying a monitoring status.
func RemoteMonitoringTeam(p *domain.Patient) (*domain.PatientTeam, error) {
	for i := range p.Teams {
		if p.Teams[i].MonitoringStatus != nil {
			return &p.Teams[i], nil
		}
	}
	return nil, fmt.Errorf("could not find a monitored team for patient %s", p.UserID)
}

// InTeam keeps patients linked to teamID. An empty id keeps everyone.
func InTeam(patients []domain.Patient, teamID string) []domain.Patient {
	if teamID == "" {
		return patients
	}
	out := make([]domain.Patient, 0, len(patients))
	for i := range patients {
		if IsInTeam(&patients[i], teamID) {
			out = append(out, patients[i])
		}
	}
	return out
}
