package rbac

import "sort"

// RoleKind names one of the built-in roles reconciled at startup.
type RoleKind string

const (
	RoleAssistant RoleKind = "ASSISTANT"
	RolePatient   RoleKind = "PATIENT"
	RoleMedecin   RoleKind = "MEDECIN"
)

// RoleKinds lists the built-in roles in reconciliation order.
func RoleKinds() []RoleKind {
	return []RoleKind{RoleAssistant, RolePatient, RoleMedecin}
}

// DisplayName is stored as the role description.
func (k RoleKind) DisplayName() string {
	switch k {
	case RoleAssistant:
		return "Assistant"
	case RolePatient:
		return "Patient"
	case RoleMedecin:
		return "Médecin"
	}
	return string(k)
}

var rolePermissions = map[RoleKind][]Permission{
	RolePatient: {
		ViewRapport,
		AppointmentCreate,
		ViewAgenda,
		ViewDossier,
		ViewImagerie,
		ViewOrdonnances,
		ViewAnalyses,
		ViewHealthTable,
		ViewVisitedCabinets,
		VideoConsultation,
	},
	RoleAssistant: {
		AppointmentCreate,
		ViewPatients,
	},
	RoleMedecin: {
		DoctorRead,
		ViewAgenda,
		MedicalRecordCreate,
		AssistantRead,
		PatientRead,
		ViewPatients,
		PrescriptionCreate,
	},
}

// Resolve returns the permissions a role kind confers, sorted by name. Unmapped
// kinds resolve to an empty set.
func Resolve(kind RoleKind) []Permission {
	mapped := rolePermissions[kind]
	out := make([]Permission, len(mapped))
	copy(out, mapped)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MappedPermissions is the union of every permission referenced by a role mapping.
func MappedPermissions() []Permission {
	seen := make(map[Permission]struct{})
	var out []Permission
	for _, kind := range RoleKinds() {
		for _, p := range rolePermissions[kind] {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func names(perms []Permission) []string {
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		out = append(out, string(p))
	}
	return out
}
