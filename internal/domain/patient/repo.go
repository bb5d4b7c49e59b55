package patient

import (
	"context"
	"time"
)

// Repository is the record store for patients. Add enforces the uniqueness
// preconditions (contact number, name plus date of birth) and fails with a
// db.DuplicateEntryError naming the colliding field; Delete removes the
// patient together with every dependent record as one atomic unit.
type Repository interface {
	GetAll(ctx context.Context) ([]Patient, error)
	GetByID(ctx context.Context, id int) (Patient, error)
	Add(ctx context.Context, p Patient) (Patient, error)
	Update(ctx context.Context, p Patient) error
	Delete(ctx context.Context, id int) error
	Search(ctx context.Context, query string) ([]Patient, error)

	ContactExists(ctx context.Context, contact string, excludeID int) (bool, error)
	NameAndDOBExists(ctx context.Context, name string, dob time.Time, excludeID int) (bool, error)
}
