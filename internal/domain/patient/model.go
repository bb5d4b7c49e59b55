package patient

import "time"

// Patient is a registered patient. A zero ID means the record has not been
// persisted yet; once assigned by the store the id never changes.
type Patient struct {
	ID          int
	Name        string
	DateOfBirth time.Time
	Contact     string
}

func (p Patient) EntityID() int { return p.ID }
