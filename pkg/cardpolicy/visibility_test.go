package cardpolicy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPatient struct {
	id     string
	doctor string
	card   Card
}

func (p testPatient) Card() Card             { return p.card }
func (p testPatient) AssignedDoctor() string { return p.doctor }

func ids(ps []testPatient) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.id)
	}
	return out
}

func visibilityFixture(now time.Time) []testPatient {
	valid := ptr(now.AddDate(0, 0, 10))
	return []testPatient{
		{id: "P1", doctor: "A", card: Card{Status: StatusActive, ExpiryDate: valid}},
		{id: "P2", doctor: "A", card: Card{Status: StatusActive, ExpiryDate: ptr(now.Add(-time.Hour))}},
		{id: "P3", doctor: "B", card: Card{Status: StatusActive, ExpiryDate: valid}},
		{id: "P4", card: Card{Status: StatusSuspended, ExpiryDate: valid}},
		{id: "P5", doctor: "A", card: Card{Status: StatusActive, ExpiryDate: valid, DailyActivationRequired: true}},
	}
}

func TestVisiblePatients(t *testing.T) {
	now := at(10, 12, 0, 0)
	all := visibilityFixture(now)

	tests := []struct {
		name   string
		viewer Viewer
		want   []string
	}{
		{"receptionist sees everything", Viewer{Role: RoleReceptionist, ID: "anything"}, []string{"P1", "P2", "P3", "P4", "P5"}},
		{"admin sees everything", Viewer{Role: RoleAdmin}, []string{"P1", "P2", "P3", "P4", "P5"}},
		{"doctor sees own active patients", Viewer{Role: RoleDoctor, ID: "A"}, []string{"P1"}},
		{"other doctor", Viewer{Role: RoleDoctor, ID: "B"}, []string{"P3"}},
		{"doctor without id sees nothing", Viewer{Role: RoleDoctor}, []string{}},
		{"triage officer sees active cards", Viewer{Role: RoleTriageOfficer, ID: "T"}, []string{"P1", "P3"}},
		{"lab technician sees active cards", Viewer{Role: RoleLabTechnician}, []string{"P1", "P3"}},
		{"pharmacist sees active cards", Viewer{Role: RolePharmacist}, []string{"P1", "P3"}},
		{"unknown role sees nothing", Viewer{Role: Role("janitor")}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(VisiblePatients(all, tt.viewer, now)))
		})
	}
}

func TestVisiblePatients_DoctorLosesPatientAtExpiry(t *testing.T) {
	expiry := at(10, 15, 30, 0)
	p := testPatient{id: "P1", doctor: "A", card: Card{Status: StatusActive, ExpiryDate: &expiry}}
	doctor := Viewer{Role: RoleDoctor, ID: "A"}

	assert.True(t, doctor.CanSee(p, expiry))
	assert.False(t, doctor.CanSee(p, expiry.Add(time.Second)))
}

func TestVisiblePatients_Empty(t *testing.T) {
	got := VisiblePatients([]testPatient(nil), Viewer{Role: RoleAdmin}, time.Now())
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Doctor ")
	require.NoError(t, err)
	assert.Equal(t, RoleDoctor, r)

	_, err = ParseRole("nurse")
	assert.Error(t, err)
}

func TestRoleCapabilities(t *testing.T) {
	for _, r := range Roles {
		assert.True(t, r.Valid(), r)
		assert.NotEmpty(t, r.Sections(), r)
	}

	assert.True(t, RoleReceptionist.CanManageCards())
	assert.True(t, RoleAdmin.CanManageCards())
	assert.False(t, RoleDoctor.CanManageCards())
	assert.False(t, Role("").CanManageCards())
	assert.Nil(t, Role("").Sections())

	assert.Equal(t, "My Appointments", RoleDoctor.Sections()[1].Label)
	assert.Equal(t, "/triage", RoleTriageOfficer.Sections()[0].Path)
}
