package cardpolicy

import "time"

// Subject is anything that carries a card and an optional assigned doctor.
type Subject interface {
	Card() Card
	AssignedDoctor() string
}

// Viewer is the staff member a patient list is being prepared for.
type Viewer struct {
	Role Role
	ID   string
}

// CanSee decides whether the viewer may see the patient as of the given instant.
//
// Receptionists and admins see every patient regardless of card state. Doctors
// see patients assigned to them whose card is ACTIVE. Every other clinical role
// sees ACTIVE cards only. Unknown roles see nothing.
func (v Viewer) CanSee(p Subject, asOf time.Time) bool {
	switch v.Role {
	case RoleReceptionist, RoleAdmin:
		return true
	case RoleDoctor:
		if v.ID == "" || p.AssignedDoctor() != v.ID {
			return false
		}
		return Evaluate(p.Card(), asOf).Usable()
	case RoleLabTechnician, RolePharmacist, RoleTriageOfficer:
		return Evaluate(p.Card(), asOf).Usable()
	}
	return false
}

// VisiblePatients returns the subset of all the viewer may see, preserving order.
func VisiblePatients[T Subject](all []T, v Viewer, asOf time.Time) []T {
	out := make([]T, 0, len(all))
	for _, p := range all {
		if v.CanSee(p, asOf) {
			out = append(out, p)
		}
	}
	return out
}
