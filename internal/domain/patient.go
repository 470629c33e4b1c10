package domain

import "time"

// UserInvitationStatus is the state of a team link.
type UserInvitationStatus string

const (
	StatusPending  UserInvitationStatus = "pending"
	StatusAccepted UserInvitationStatus = "accepted"
	StatusRejected UserInvitationStatus = "rejected"
)

// DefaultSystem is the device system reported when a patient has none.
const DefaultSystem = "DBLG1"

type PatientProfile struct {
	FirstName       string     `json:"firstName,omitempty"`
	LastName        string     `json:"lastName,omitempty"`
	FullName        string     `json:"fullName"`
	Email           string     `json:"email"`
	Birthdate       *time.Time `json:"birthdate,omitempty"`
	Sex             string     `json:"sex,omitempty"`
	ReferringDoctor string     `json:"referringDoctor,omitempty"`
}

type PatientSettings struct {
	A1C    *A1C   `json:"a1c,omitempty"`
	System string `json:"system"`
}

type A1C struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

type PatientMetadata struct {
	Flagged            *bool        `json:"flagged,omitempty"`
	MedicalData        *MedicalData `json:"medicalData,omitempty"`
	UnreadMessagesSent int          `json:"unreadMessagesSent"`
}

// PatientTeam is one link between a patient and a team.
type PatientTeam struct {
	TeamID           string               `json:"teamId"`
	Code             string               `json:"code,omitempty"`
	TeamName         string               `json:"teamName,omitempty"`
	Status           UserInvitationStatus `json:"status"`
	MonitoringStatus *string              `json:"monitoringStatus,omitempty"`
	InvitationID     string               `json:"invitationId,omitempty"`
}

type Patient struct {
	UserID     string          `json:"userid"`
	Profile    PatientProfile  `json:"profile"`
	Settings   PatientSettings `json:"settings"`
	Metadata   PatientMetadata `json:"metadata"`
	Alarms     Alarm           `json:"alarms"`
	Monitoring *Monitoring     `json:"monitoring,omitempty"`
	Teams      []PatientTeam   `json:"teams"`
}

// IsFlagged treats a nil flag as false.
func (p *Patient) IsFlagged() bool {
	return p.Metadata.Flagged != nil && *p.Metadata.Flagged
}

// Clone copies the slices and pointers the list operations mutate.
func (p Patient) Clone() Patient {
	out := p
	out.Teams = append([]PatientTeam(nil), p.Teams...)
	if p.Monitoring != nil {
		m := *p.Monitoring
		out.Monitoring = &m
	}
	if p.Metadata.Flagged != nil {
		f := *p.Metadata.Flagged
		out.Metadata.Flagged = &f
	}
	return out
}
