package domain

import (
	"sort"
	"strings"
)

// PrivateTeamID is the synthetic team holding direct shares.
const PrivateTeamID = "private"

const TeamCodeLength = 9

type TeamType string

const (
	TeamTypePrivate   TeamType = "private"
	TeamTypeMedical   TeamType = "medical"
	TeamTypeCaregiver TeamType = "caregiver"
)

type TeamMemberRole string

const (
	MemberRoleAdmin   TeamMemberRole = "admin"
	MemberRoleMember  TeamMemberRole = "member"
	MemberRolePatient TeamMemberRole = "patient"
)

type Address struct {
	Line1   string `json:"line1"`
	Line2   string `json:"line2,omitempty"`
	Zip     string `json:"zip"`
	City    string `json:"city"`
	Country string `json:"country"`
}

// MemberProfile is the subset of the member's account shown in team views.
type MemberProfile struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	FullName  string `json:"fullName,omitempty"`
	Birthdate string `json:"birthdate,omitempty"`
	Sex       string `json:"sex,omitempty"`
	System    string `json:"system,omitempty"`
}

type TeamMember struct {
	TeamID         string               `json:"teamId"`
	UserID         string               `json:"userId"`
	Email          string               `json:"email"`
	Role           TeamMemberRole       `json:"role"`
	Status         UserInvitationStatus `json:"invitationStatus"`
	InvitationID   string               `json:"invitationId,omitempty"`
	Profile        *MemberProfile       `json:"profile,omitempty"`
	Alarms         *Alarm               `json:"alarms,omitempty"`
	Monitoring     *Monitoring          `json:"monitoring,omitempty"`
	UnreadMessages int                  `json:"unreadMessages"`
	IDVerified     bool                 `json:"idVerified"`
}

type Team struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Code       string       `json:"code"`
	Type       TeamType     `json:"type"`
	OwnerID    string       `json:"owner,omitempty"`
	Phone      string       `json:"phone,omitempty"`
	Email      string       `json:"email,omitempty"`
	Address    *Address     `json:"address,omitempty"`
	Monitoring *Monitoring  `json:"monitoring,omitempty"`
	Members    []TeamMember `json:"members"`
}

// NewPrivateTeam builds the per-user synthetic team.
func NewPrivateTeam(ownerID string) Team {
	return Team{
		ID:      PrivateTeamID,
		Name:    PrivateTeamID,
		Code:    PrivateTeamID,
		Type:    TeamTypePrivate,
		OwnerID: ownerID,
		Members: []TeamMember{},
	}
}

func (t *Team) IsPrivate() bool {
	return t.ID == PrivateTeamID || t.Type == TeamTypePrivate
}

// Member returns the member row for userID, or nil.
func (t *Team) Member(userID string) *TeamMember {
	for i := range t.Members {
		if t.Members[i].UserID == userID {
			return &t.Members[i]
		}
	}
	return nil
}

// IsUserAdministrator reports whether userID is an accepted admin.
func (t *Team) IsUserAdministrator(userID string) bool {
	m := t.Member(userID)
	return m != nil && m.Role == MemberRoleAdmin && m.Status == StatusAccepted
}

// IsUserTheOnlyAdministrator is true when userID is the single accepted admin.
func (t *Team) IsUserTheOnlyAdministrator(userID string) bool {
	var admins []string
	for _, m := range t.Members {
		if m.Role == MemberRoleAdmin && m.Status == StatusAccepted {
			admins = append(admins, m.UserID)
		}
	}
	return len(admins) == 1 && admins[0] == userID
}

// NumMedicalMembers counts non-patient members.
func (t *Team) NumMedicalMembers() int {
	n := 0
	for _, m := range t.Members {
		if m.Role != MemberRolePatient {
			n++
		}
	}
	return n
}

// HasOnlyOneMember ignores patients.
func (t *Team) HasOnlyOneMember() bool {
	return t.NumMedicalMembers() < 2
}

// MemberByEmail is a case-insensitive lookup.
func (t *Team) MemberByEmail(email string) *TeamMember {
	for i := range t.Members {
		if strings.EqualFold(t.Members[i].Email, email) {
			return &t.Members[i]
		}
	}
	return nil
}

// DisplayTeamCode formats a 9 digit code as "123 - 456 - 789".
// Partial codes are formatted as far as they go; extra characters are dropped.
func DisplayTeamCode(code string) string {
	var b strings.Builder
	for i, r := range []rune(code) {
		if i >= TeamCodeLength {
			break
		}
		if i == 3 || i == 6 {
			b.WriteString(" - ")
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SortTeamsByName sorts in place, private team first.
func SortTeamsByName(teams []Team) {
	sort.SliceStable(teams, func(i, j int) bool {
		pi, pj := teams[i].IsPrivate(), teams[j].IsPrivate()
		if pi != pj {
			return pi
		}
		return strings.ToLower(teams[i].Name) < strings.ToLower(teams[j].Name)
	})
}

// MemberToPatient maps a patient member row of team to a Patient.
func MemberToPatient(member TeamMember, team *Team) Patient {
	p := Patient{
		UserID: member.UserID,
		Profile: PatientProfile{
			FullName: member.Email,
			Email:    member.Email,
		},
		Settings: PatientSettings{System: DefaultSystem},
		Metadata: PatientMetadata{UnreadMessagesSent: member.UnreadMessages},
		Teams:    []PatientTeam{},
	}
	if member.Profile != nil {
		p.Profile.FirstName = member.Profile.FirstName
		p.Profile.LastName = member.Profile.LastName
		if member.Profile.FullName != "" {
			p.Profile.FullName = member.Profile.FullName
		}
		p.Profile.Sex = member.Profile.Sex
		if bd, ok := ParseBirthdate(member.Profile.Birthdate); ok {
			p.Profile.Birthdate = &bd
		}
		if member.Profile.System != "" {
			p.Settings.System = member.Profile.System
		}
	}
	if member.Alarms != nil {
		p.Alarms = *member.Alarms
	}
	if member.Monitoring != nil {
		m := *member.Monitoring
		p.Monitoring = &m
	}
	if member.TeamID != "" {
		pt := PatientTeam{
			TeamID:       member.TeamID,
			Status:       member.Status,
			InvitationID: member.InvitationID,
		}
		if team != nil {
			pt.Code = team.Code
			pt.TeamName = team.Name
		}
		if member.Monitoring != nil {
			pt.MonitoringStatus = member.Monitoring.Status
		}
		p.Teams = append(p.Teams, pt)
	}
	return p
}
