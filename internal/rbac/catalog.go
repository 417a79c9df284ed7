// Package rbac holds the permission catalog, the canonical role mapping, and the
// operations that derive and mutate a principal's effective permissions.
package rbac

// Permission names an atomic capability. The set is fixed at compile time.
type Permission string

const (
	UserCreate Permission = "USER_CREATE"
	UserRead   Permission = "USER_READ"
	UserUpdate Permission = "USER_UPDATE"
	UserDelete Permission = "USER_DELETE"

	PatientCreate Permission = "PATIENT_CREATE"
	PatientRead   Permission = "PATIENT_READ"
	PatientUpdate Permission = "PATIENT_UPDATE"
	PatientDelete Permission = "PATIENT_DELETE"
	ViewPatients  Permission = "VIEW_PATIENTS"

	DoctorCreate Permission = "DOCTOR_CREATE"
	DoctorRead   Permission = "DOCTOR_READ"
	DoctorUpdate Permission = "DOCTOR_UPDATE"
	DoctorDelete Permission = "DOCTOR_DELETE"

	AssistantCreate Permission = "ASSISTANT_CREATE"
	AssistantRead   Permission = "ASSISTANT_READ"
	AssistantUpdate Permission = "ASSISTANT_UPDATE"
	AssistantDelete Permission = "ASSISTANT_DELETE"

	ManageStaff Permission = "MANAGE_STAFF"

	AppointmentCreate  Permission = "APPOINTMENT_CREATE"
	AppointmentRead    Permission = "APPOINTMENT_READ"
	AppointmentUpdate  Permission = "APPOINTMENT_UPDATE"
	AppointmentDelete  Permission = "APPOINTMENT_DELETE"
	ManageAppointments Permission = "MANAGE_APPOINTMENTS"
	ViewAgenda         Permission = "VIEW_AGENDA"
	ViewWaitingRoom    Permission = "VIEW_WAITING_ROOM"

	MedicalRecordCreate Permission = "MEDICAL_RECORD_CREATE"
	MedicalRecordRead   Permission = "MEDICAL_RECORD_READ"
	MedicalRecordUpdate Permission = "MEDICAL_RECORD_UPDATE"
	MedicalRecordDelete Permission = "MEDICAL_RECORD_DELETE"
	ViewDossier         Permission = "VIEW_DOSSIER"
	ViewImagerie        Permission = "VIEW_IMAGERIE"
	ViewAnalyses        Permission = "VIEW_ANALYSES"
	ViewRapport         Permission = "VIEW_RAPPORT"

	PrescriptionCreate Permission = "PRESCRIPTION_CREATE"
	PrescriptionRead   Permission = "PRESCRIPTION_READ"
	PrescriptionUpdate Permission = "PRESCRIPTION_UPDATE"
	PrescriptionDelete Permission = "PRESCRIPTION_DELETE"
	ViewOrdonnances    Permission = "VIEW_ORDONNANCES"

	ViewDashboard Permission = "VIEW_DASHBOARD"

	ViewCabinet     Permission = "VIEW_CABINET"
	ViewMedicaments Permission = "VIEW_MEDICAMENTS"
	ViewActes       Permission = "VIEW_ACTES"
	ViewFactures    Permission = "VIEW_FACTURES"
	ViewArchive     Permission = "VIEW_ARCHIVE"

	VideoConsultation   Permission = "VIDEO_CONSULTATION"
	ViewHealthTable     Permission = "VIEW_HEALTH_TABLE"
	ViewVisitedCabinets Permission = "VIEW_VISITED_CABINETS"
)

type catalogEntry struct {
	permission  Permission
	description string
}

// catalog keeps declaration order; it is the order Catalog returns.
var catalog = []catalogEntry{
	{UserCreate, "Créer un utilisateur"},
	{UserRead, "Lire les informations utilisateur"},
	{UserUpdate, "Modifier un utilisateur"},
	{UserDelete, "Supprimer un utilisateur"},

	{PatientCreate, "Créer un patient"},
	{PatientRead, "Voir les informations patient"},
	{PatientUpdate, "Modifier un patient"},
	{PatientDelete, "Supprimer un patient"},
	{ViewPatients, "Voir la liste des patients"},

	{DoctorCreate, "Créer un médecin"},
	{DoctorRead, "Voir les informations médecin"},
	{DoctorUpdate, "Modifier un médecin"},
	{DoctorDelete, "Supprimer un médecin"},

	{AssistantCreate, "Créer un assistant"},
	{AssistantRead, "Voir les informations assistant"},
	{AssistantUpdate, "Modifier un assistant"},
	{AssistantDelete, "Supprimer un assistant"},

	{ManageStaff, "Gérer les personnels"},

	{AppointmentCreate, "Créer un rendez-vous"},
	{AppointmentRead, "Voir les rendez-vous"},
	{AppointmentUpdate, "Modifier un rendez-vous"},
	{AppointmentDelete, "Supprimer un rendez-vous"},
	{ManageAppointments, "Gérer les rendez-vous"},
	{ViewAgenda, "Voir l'agenda"},
	{ViewWaitingRoom, "Voir la salle d'attente"},

	{MedicalRecordCreate, "Créer un dossier médical"},
	{MedicalRecordRead, "Voir un dossier médical"},
	{MedicalRecordUpdate, "Modifier un dossier médical"},
	{MedicalRecordDelete, "Supprimer un dossier médical"},
	{ViewDossier, "Voir le dossier électronique"},
	{ViewImagerie, "Voir l'imagerie"},
	{ViewAnalyses, "Voir les analyses"},
	{ViewRapport, "Voir les rapports"},

	{PrescriptionCreate, "Créer une prescription"},
	{PrescriptionRead, "Voir une prescription"},
	{PrescriptionUpdate, "Modifier une prescription"},
	{PrescriptionDelete, "Supprimer une prescription"},
	{ViewOrdonnances, "Voir les ordonnances"},

	{ViewDashboard, "Voir le tableau de bord"},

	{ViewCabinet, "Voir les informations du cabinet"},
	{ViewMedicaments, "Voir les médicaments"},
	{ViewActes, "Voir les actes"},
	{ViewFactures, "Voir les factures"},
	{ViewArchive, "Voir les archives"},

	{VideoConsultation, "Utiliser la vidéo consultation"},
	{ViewHealthTable, "Voir la table de santé"},
	{ViewVisitedCabinets, "Voir les cabinets déjà visités par le patient"},
}

var descriptions = func() map[Permission]string {
	m := make(map[Permission]string, len(catalog))
	for _, e := range catalog {
		m[e.permission] = e.description
	}
	return m
}()

// Catalog returns every known permission in declaration order.
func Catalog() []Permission {
	out := make([]Permission, 0, len(catalog))
	for _, e := range catalog {
		out = append(out, e.permission)
	}
	return out
}

// Lookup resolves a permission by name.
func Lookup(name string) (Permission, bool) {
	p := Permission(name)
	_, ok := descriptions[p]
	return p, ok
}

// Description returns the display text of p, or "" for names outside the catalog.
func (p Permission) Description() string {
	return descriptions[p]
}

func (p Permission) String() string { return string(p) }
