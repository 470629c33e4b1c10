package domain

// UserRole is the account role carried by the gateway identity headers.
type UserRole string

const (
	RoleHCP       UserRole = "hcp"
	RolePatient   UserRole = "patient"
	RoleCaregiver UserRole = "caregiver"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleHCP, RolePatient, RoleCaregiver:
		return true
	}
	return false
}

// User is the authenticated caller.
type User struct {
	ID           string   `json:"userid"`
	Email        string   `json:"email"`
	Role         UserRole `json:"role"`
	SessionToken string   `json:"-"`
}

// Preferences holds per-user settings persisted server side.
type Preferences struct {
	UserID          string   `json:"userid"`
	PatientsStarred []string `json:"patientsStarred"`
	DisplayLanguage string   `json:"displayLanguageCode,omitempty"`
}

// IsFlagged reports whether patientID is in the starred list.
func (p *Preferences) IsFlagged(patientID string) bool {
	if p == nil {
		return false
	}
	for _, id := range p.PatientsStarred {
		if id == patientID {
			return true
		}
	}
	return false
}
