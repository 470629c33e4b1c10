package patientlist

import (
	"math"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yourloops-dashboard/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func patient(id string, teams ...domain.PatientTeam) domain.Patient {
	return domain.Patient{
		UserID:   id,
		Profile:  domain.PatientProfile{FullName: id, Email: id + "@example.com"},
		Settings: domain.PatientSettings{System: domain.DefaultSystem},
		Teams:    teams,
	}
}

func link(teamID string, status domain.UserInvitationStatus) domain.PatientTeam {
	return domain.PatientTeam{TeamID: teamID, Status: status}
}

func ids(patients []domain.Patient) []string {
	out := make([]string, len(patients))
	for i, p := range patients {
		out[i] = p.UserID
	}
	return out
}

func TestRemoveDuplicates(t *testing.T) {
	monitoring := &domain.Monitoring{Enabled: true}
	a1 := patient("a", link("t1", domain.StatusAccepted))
	b := patient("b", link("t1", domain.StatusPending))
	a2 := patient("a", link("t2", domain.StatusPending))
	a2.Monitoring = monitoring
	a3 := patient("a")

	in := []domain.Patient{a1, b, a2, a3}
	out := RemoveDuplicates(in)

	require.Len(t, out, 2)
	assert.Equal(t, []string{"a", "b"}, ids(out))
	assert.Equal(t, []domain.PatientTeam{link("t1", domain.StatusAccepted), link("t2", domain.StatusPending)}, out[0].Teams)
	require.NotNil(t, out[0].Monitoring)
	assert.True(t, out[0].Monitoring.Enabled)
	assert.Len(t, in[0].Teams, 1, "input must not be mutated")
	assert.Nil(t, in[0].Monitoring)
}

func TestComputeFlagged(t *testing.T) {
	out := ComputeFlagged([]domain.Patient{patient("a"), patient("b")}, []string{"b"})
	assert.False(t, out[0].IsFlagged())
	assert.True(t, out[1].IsFlagged())
}

func TestHelpers(t *testing.T) {
	p := patient("a", link("t1", domain.StatusPending), link("t2", domain.StatusAccepted))
	assert.True(t, IsInvitationPending(&p))
	assert.False(t, IsOnlyPendingInvitation(&p))
	assert.True(t, IsInAtLeastATeam(&p))
	assert.True(t, IsInTeam(&p, "t2"))
	assert.False(t, IsInTeam(&p, "t3"))

	onlyPending := patient("b", link("t1", domain.StatusPending))
	assert.True(t, IsOnlyPendingInvitation(&onlyPending))
	assert.False(t, IsInAtLeastATeam(&onlyPending))

	_, err := RemoteMonitoringTeam(&p)
	assert.Error(t, err)
	p.Teams[1].MonitoringStatus = ptr(domain.MonitoringAccepted)
	team, err := RemoteMonitoringTeam(&p)
	require.NoError(t, err)
	assert.Equal(t, "t2", team.TeamID)
}

func TestExtractPatients(t *testing.T) {
	now := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	accepted := patient("accepted", link("t1", domain.StatusAccepted))
	pending := patient("pending", link("t1", domain.StatusPending))
	unread := patient("unread", link("t1", domain.StatusAccepted))
	unread.Metadata.UnreadMessagesSent = 2
	alarms := patient("alarms", link(domain.PrivateTeamID, domain.StatusAccepted))
	alarms.Alarms = domain.Alarm{
		TimeSpentAwayFromTargetActive:       true,
		FrequencyOfSevereHypoglycemiaActive: true,
		NonDataTransmissionActive:           true,
	}
	soon := now.Add(3 * 24 * time.Hour)
	later := now.Add(30 * 24 * time.Hour)
	renew := patient("renew", link("t1", domain.StatusAccepted))
	renew.Monitoring = &domain.Monitoring{Enabled: true, MonitoringEnd: &soon}
	monitored := patient("monitored", link("t1", domain.StatusAccepted))
	monitored.Monitoring = &domain.Monitoring{Enabled: true, MonitoringEnd: &later}

	all := []domain.Patient{accepted, pending, unread, alarms, renew, monitored}

	cases := []struct {
		filter FilterType
		want   []string
	}{
		{FilterAll, []string{"accepted", "unread", "alarms", "renew", "monitored"}},
		{FilterPending, []string{"pending"}},
		{FilterFlagged, []string{"unread"}},
		{FilterUnread, []string{"unread"}},
		{FilterOutOfRange, []string{"alarms"}},
		{FilterSevereHypoglycemia, []string{"alarms"}},
		{FilterDataNotTransferred, []string{"alarms"}},
		{FilterRemoteMonitored, []string{"renew", "monitored"}},
		{FilterPrivate, []string{"alarms"}},
		{FilterRenew, []string{"renew"}},
		{FilterType("bogus"), ids(all)},
	}
	for _, tc := range cases {
		t.Run(string(tc.filter), func(t *testing.T) {
			got := ExtractPatientsAt(all, tc.filter, []string{"unread"}, now)
			assert.Equal(t, tc.want, ids(got))
		})
	}

	stats := ComputeFilterStats(all, now)
	assert.Equal(t, FilterStats{
		All: 5, Pending: 1, DirectShare: 1, Unread: 1, OutOfRange: 1,
		SevereHypoglycemia: 1, DataNotTransferred: 1, RemoteMonitored: 2, Renew: 1,
	}, stats)
}

func TestSearchPatients(t *testing.T) {
	bd := time.Date(1980, 3, 12, 0, 0, 0, 0, time.UTC)
	jo := patient("jo")
	jo.Profile.FirstName, jo.Profile.LastName, jo.Profile.Birthdate = "Josephine", "Dupont", &bd
	al := patient("al")
	al.Profile.FirstName, al.Profile.LastName, al.Profile.Birthdate = "Alain", "Martin", &bd
	other := patient("other")
	other.Profile.FirstName, other.Profile.LastName = "Paul", "Ricard"

	all := []domain.Patient{jo, al, other}

	assert.Equal(t, ids(all), ids(SearchPatients(all, "")))
	assert.Equal(t, []string{"jo"}, ids(SearchPatients(all, "PHIN")))
	assert.Equal(t, []string{"al"}, ids(SearchPatients(all, "mart")))
	assert.Equal(t, []string{"jo", "al"}, ids(SearchPatients(all, "12/03/1980")))
	assert.Equal(t, []string{"al"}, ids(SearchPatients(all, "12/03/1980 mar")))
	assert.Empty(t, SearchPatients(all, "12/03/1980 tin"))
	assert.Empty(t, SearchPatients(all, "13/03/1980"))
}

func TestComputeMedicalValues(t *testing.T) {
	v := ComputeMedicalValues(nil, true, time.UTC)
	assert.Equal(t, NotAvailable, v.TIR)
	assert.Equal(t, NotAvailable, v.LastUpload)
	assert.True(t, math.IsNaN(v.TIRNumber))

	v = ComputeMedicalValues(nil, false, time.UTC)
	assert.Equal(t, "-", v.TIR)

	md := &domain.MedicalData{
		Range:       &domain.DataRange{Start: "2023-01-01T00:00:00Z", End: "2023-01-10T14:30:00Z"},
		ComputedTIR: &domain.TIRCount{VeryLow: 1, Low: 2, Target: 6, High: 1, VeryHigh: 0},
	}
	v = ComputeMedicalValues(md, true, time.UTC)
	assert.Equal(t, "60", v.TIR)
	assert.Equal(t, "30", v.TBR)
	assert.Equal(t, "Tue, Jan 10, 2023 2:30 PM", v.LastUpload)

	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	v = ComputeMedicalValues(md, true, paris)
	assert.Equal(t, "Tue, Jan 10, 2023 3:30 PM", v.LastUpload)

	md.ComputedTIR = nil
	v = ComputeMedicalValues(md, true, time.UTC)
	assert.Equal(t, NotAvailable, v.TIR)
	assert.Equal(t, NotAvailable, v.TBR)
	assert.NotEqual(t, NotAvailable, v.LastUpload)
}

func TestComparePatients(t *testing.T) {
	a, b := patient("a"), patient("b")

	a.Profile.FullName, b.Profile.FullName = "émile", "Zoé"
	assert.Negative(t, ComparePatients(&a, &b, SortFullName))
	b.Profile.FullName = ""
	assert.Negative(t, ComparePatients(&a, &b, SortFullName))
	assert.Positive(t, ComparePatients(&b, &a, SortFullName))

	a.Alarms.TimeSpentAwayFromTargetRate, b.Alarms.TimeSpentAwayFromTargetRate = 10, 5
	assert.Positive(t, ComparePatients(&a, &b, SortAlertTimeTarget))

	a.Metadata.Flagged = ptr(true)
	assert.Negative(t, ComparePatients(&a, &b, SortFlag))
	b.Metadata.Flagged = ptr(true)
	assert.Zero(t, ComparePatients(&a, &b, SortFlag))

	end := time.Now()
	a.Monitoring = &domain.Monitoring{MonitoringEnd: &end}
	assert.Negative(t, ComparePatients(&a, &b, SortRemoteMonitoring))
	assert.Zero(t, ComparePatients(&b, &b, SortRemoteMonitoring))

	a.Metadata.MedicalData = &domain.MedicalData{Range: &domain.DataRange{End: "2023-01-10T00:00:00Z"}}
	assert.Negative(t, ComparePatients(&a, &b, SortLastUpload))
	assert.Zero(t, ComparePatients(&b, &b, SortLastUpload))
}

func TestSortPatients_StableAndDescending(t *testing.T) {
	p1, p2, p3 := patient("1"), patient("2"), patient("3")
	p1.Profile.FullName, p2.Profile.FullName, p3.Profile.FullName = "Bob", "alice", "Bob"
	list := []domain.Patient{p1, p2, p3}

	SortPatients(list, SortFullName, Asc)
	assert.Equal(t, []string{"2", "1", "3"}, ids(list))

	SortPatients(list, SortFullName, Desc)
	assert.Equal(t, []string{"1", "3", "2"}, ids(list))
}

func TestInTeam(t *testing.T) {
	all := []domain.Patient{patient("a", link("t1", domain.StatusAccepted)), patient("b", link("t2", domain.StatusAccepted))}
	assert.Equal(t, []string{"a"}, ids(InTeam(all, "t1")))
	assert.Len(t, InTeam(all, ""), 2)
}

func TestValidSortField(t *testing.T) {
	assert.True(t, ValidSortField(SortSystem))
	assert.False(t, ValidSortField("age"))
}
