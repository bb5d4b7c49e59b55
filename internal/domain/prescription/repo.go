package prescription

import "context"

type Repository interface {
	GetAll(ctx context.Context) ([]Prescription, error)
	GetByID(ctx context.Context, id int) (Prescription, error)
	Add(ctx context.Context, p Prescription) (Prescription, error)
	Update(ctx context.Context, p Prescription) error
	Delete(ctx context.Context, id int) error
	ListByPatient(ctx context.Context, patientID int) ([]Prescription, error)
	ListByDoctor(ctx context.Context, doctorID int) ([]Prescription, error)

	AddItem(ctx context.Context, item Item) (Item, error)
	Items(ctx context.Context, prescriptionID int) ([]Item, error)
	DeleteItem(ctx context.Context, itemID int) error
}
