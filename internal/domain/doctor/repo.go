package doctor

import "context"

type Repository interface {
	GetAll(ctx context.Context) ([]Doctor, error)
	GetByID(ctx context.Context, id int) (Doctor, error)
	Add(ctx context.Context, d Doctor) (Doctor, error)
	Update(ctx context.Context, d Doctor) error
	Delete(ctx context.Context, id int) error
	ListByDepartment(ctx context.Context, departmentID int) ([]Doctor, error)
}
