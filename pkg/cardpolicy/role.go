package cardpolicy

import (
	"fmt"
	"strings"
)

// Role is a staff role. The set is closed; every switch over it lists all values.
type Role string

const (
	RoleReceptionist  Role = "receptionist"
	RoleDoctor        Role = "doctor"
	RoleLabTechnician Role = "lab_technician"
	RolePharmacist    Role = "pharmacist"
	RoleAdmin         Role = "admin"
	RoleTriageOfficer Role = "triage_officer"
)

// Roles lists every known role.
var Roles = []Role{
	RoleReceptionist,
	RoleDoctor,
	RoleLabTechnician,
	RolePharmacist,
	RoleAdmin,
	RoleTriageOfficer,
}

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleReceptionist, RoleDoctor, RoleLabTechnician, RolePharmacist, RoleAdmin, RoleTriageOfficer:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// CanManageCards reports whether the role may register patients and drive card
// lifecycle transitions.
func (r Role) CanManageCards() bool {
	switch r {
	case RoleReceptionist, RoleAdmin:
		return true
	case RoleDoctor, RoleLabTechnician, RolePharmacist, RoleTriageOfficer:
		return false
	}
	return false
}

// Section is a navigation entry offered to a role.
type Section struct {
	Path  string `json:"path"`
	Label string `json:"label"`
}

var (
	sectionPatients      = Section{Path: "/patients", Label: "Patients"}
	sectionAppointments  = Section{Path: "/appointments", Label: "Appointments"}
	sectionPrescriptions = Section{Path: "/prescriptions", Label: "Prescriptions"}
)

// Sections returns the navigation sections for the role, in display order.
// An unknown role gets none. Paths are client pages; some, such as triage and
// lab tests, are served outside this API.
func (r Role) Sections() []Section {
	switch r {
	case RoleReceptionist:
		return []Section{sectionPatients, sectionAppointments}
	case RoleDoctor:
		return []Section{
			sectionPatients,
			{Path: "/appointments", Label: "My Appointments"},
			sectionPrescriptions,
			{Path: "/lab-requests", Label: "Lab Requests"},
		}
	case RoleTriageOfficer:
		return []Section{
			{Path: "/triage", Label: "Triage Queue"},
			sectionPatients,
			sectionAppointments,
		}
	case RoleLabTechnician:
		return []Section{
			{Path: "/lab-tests", Label: "Lab Tests"},
			{Path: "/lab-results", Label: "Results Entry"},
		}
	case RolePharmacist:
		return []Section{
			sectionPrescriptions,
			{Path: "/inventory", Label: "Inventory"},
		}
	case RoleAdmin:
		return []Section{
			{Path: "/dashboard", Label: "Dashboard"},
			{Path: "/users", Label: "Staff Management"},
			sectionPatients,
			sectionAppointments,
		}
	}
	return nil
}
