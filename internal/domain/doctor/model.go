package doctor

type Doctor struct {
	ID             int
	Name           string
	Specialization string
	DepartmentID   int
}

func (d Doctor) EntityID() int { return d.ID }
