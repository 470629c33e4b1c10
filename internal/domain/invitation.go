package domain

import "time"

type NotificationType string

const (
	NotificationCareTeam          NotificationType = "careteam"
	NotificationDirectShare       NotificationType = "directshare"
	NotificationPatientInvitation NotificationType = "medicalteam_patient_invitation"
	NotificationMemberInvitation  NotificationType = "medicalteam_invitation"
)

// Invitation is a pending team or direct-share notification.
type Invitation struct {
	ID          string           `json:"id"`
	Type        NotificationType `json:"type"`
	CreatorID   string           `json:"creatorId"`
	CreatorName string           `json:"creatorName,omitempty"`
	TargetID    string           `json:"targetId,omitempty"`
	TargetName  string           `json:"targetName,omitempty"`
	Email       string           `json:"email"`
	Role        TeamMemberRole   `json:"role,omitempty"`
	Created     time.Time        `json:"created"`
}

// IsTeamInvitation is true for every type that targets a team.
func (i *Invitation) IsTeamInvitation() bool {
	switch i.Type {
	case NotificationCareTeam, NotificationPatientInvitation, NotificationMemberInvitation:
		return true
	}
	return false
}

// DirectShare links a patient to a caregiver viewer.
type DirectShare struct {
	PatientID    string               `json:"patientId"`
	ViewerID     string               `json:"viewerId"`
	ViewerEmail  string               `json:"viewerEmail"`
	ViewerName   string               `json:"viewerName,omitempty"`
	Status       UserInvitationStatus `json:"status"`
	InvitationID string               `json:"invitationId,omitempty"`
}
