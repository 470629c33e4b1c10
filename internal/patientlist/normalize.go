package patientlist

import "yourloops-dashboard/internal/domain"

// RemoveDuplicates merges rows sharing a user id. The first row wins for
// profile, settings, metadata and alarms; teams collect the first team of
// every duplicate; monitoring comes from the first duplicate that has one.
func RemoveDuplicates(patients []domain.Patient) []domain.Patient {
	index := make(map[string]int, len(patients))
	out := make([]domain.Patient, 0, len(patients))
	for _, p := range patients {
		i, seen := index[p.UserID]
		if !seen {
			merged := p.Clone()
			merged.Teams = make([]domain.PatientTeam, 0, 1)
			merged.Monitoring = nil
			index[p.UserID] = len(out)
			out = append(out, merged)
			i = len(out) - 1
		}
		if len(p.Teams) > 0 {
			out[i].Teams = append(out[i].Teams, p.Teams[0])
		}
		if out[i].Monitoring == nil && p.Monitoring != nil {
			m := *p.Monitoring
			out[i].Monitoring = &m
		}
	}
	return out
}

// ComputeFlagged returns copies with Metadata.Flagged set from the list.
func ComputeFlagged(patients []domain.Patient, flagged []string) []domain.Patient {
	set := toSet(flagged)
	out := make([]domain.Patient, len(patients))
	for i, p := range patients {
		c := p.Clone()
		_, ok := set[p.UserID]
		c.Metadata.Flagged = &ok
		out[i] = c
	}
	return out
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
