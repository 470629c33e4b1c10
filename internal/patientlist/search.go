package patientlist

import (
	"strings"
	"time"

	"yourloops-dashboard/internal/domain"
)

const birthdateLayout = "02/01/2006"

// SearchPatients matches search against names. A search starting with a
// DD/MM/YYYY date matches the birthdate exactly and the remainder as a
// first or last name prefix.
func SearchPatients(patients []domain.Patient, search string) []domain.Patient {
	if search == "" {
		return patients
	}
	text := strings.ToLower(search)

	if len(text) >= len(birthdateLayout) {
		prefix := text[:len(birthdateLayout)]
		if _, err := time.Parse(birthdateLayout, prefix); err == nil {
			name := strings.TrimSpace(text[len(birthdateLayout):])
			return withBirthdate(patients, prefix, name)
		}
	}

	out := make([]domain.Patient, 0, len(patients))
	for _, p := range patients {
		if strings.Contains(strings.ToLower(p.Profile.FirstName), text) ||
			strings.Contains(strings.ToLower(p.Profile.LastName), text) ||
			strings.Contains(strings.ToLower(p.Profile.FullName), text) {
			out = append(out, p)
		}
	}
	return out
}

func withBirthdate(patients []domain.Patient, birthdate, name string) []domain.Patient {
	out := make([]domain.Patient, 0)
	for _, p := range patients {
		if p.Profile.Birthdate == nil || p.Profile.Birthdate.Format(birthdateLayout) != birthdate {
			continue
		}
		if name == "" ||
			strings.HasPrefix(strings.ToLower(p.Profile.FirstName), name) ||
			strings.HasPrefix(strings.ToLower(p.Profile.LastName), name) {
			out = append(out, p)
		}
	}
	return out
}
