package prescription

import "time"

type Prescription struct {
	ID               int
	PatientID        int
	DoctorID         int
	PrescriptionDate time.Time
}

func (p Prescription) EntityID() int { return p.ID }

// Item is one medication line on a prescription.
type Item struct {
	ID             int
	PrescriptionID int
	MedID          int
	Dosage         string
}
