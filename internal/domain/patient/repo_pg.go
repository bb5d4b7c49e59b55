package patient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/Harriee01/Hospital-Management/internal/platform/db"
)

type repoPG struct {
	pool *db.Pool
	log  zerolog.Logger
}

func NewRepoPG(pool *db.Pool, log zerolog.Logger) Repository {
	return &repoPG{pool: pool, log: log}
}

const patientCols = `patient_id, name, date_of_birth, contact`

func scanPatient(row pgx.Row) (Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Name, &p.DateOfBirth, &p.Contact)
	return p, err
}

func (r *repoPG) GetAll(ctx context.Context) ([]Patient, error) {
	var items []Patient
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		rows, err := conn.Query(ctx, `SELECT `+patientCols+` FROM patient ORDER BY name`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			p, err := scanPatient(rows)
			if err != nil {
				return err
			}
			items = append(items, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("get all patients: %w", err)
	}
	return items, nil
}

func (r *repoPG) GetByID(ctx context.Context, id int) (Patient, error) {
	var p Patient
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		var err error
		p, err = scanPatient(conn.QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE patient_id = $1`, id))
		return err
	})
	if db.NoRows(err) {
		return Patient{}, db.ErrNotFound
	}
	if err != nil {
		return Patient{}, fmt.Errorf("get patient %d: %w", id, err)
	}
	return p, nil
}

// checkUnique runs the application-level duplicate pre-checks. The schema's
// unique constraints remain the authoritative guard; this exists so callers
// get a field-specific error without racing through an insert first.
func (r *repoPG) checkUnique(ctx context.Context, p Patient, excludeID int) error {
	if p.Contact != "" {
		exists, err := r.ContactExists(ctx, p.Contact, excludeID)
		if err != nil {
			return err
		}
		if exists {
			return &db.DuplicateEntryError{Field: "contact", Value: p.Contact}
		}
	}
	exists, err := r.NameAndDOBExists(ctx, p.Name, p.DateOfBirth, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return &db.DuplicateEntryError{
			Field: "name_and_dob",
			Value: p.Name + " / " + p.DateOfBirth.Format("2006-01-02"),
		}
	}
	return nil
}

// translateUnique maps a constraint violation raised by the insert itself to
// the same typed error the pre-check would have produced, covering the race
// between the two.
func translateUnique(err error, p Patient) error {
	constraint, ok := db.UniqueViolation(err)
	if !ok {
		return err
	}
	switch constraint {
	case "uk_patient_contact":
		return &db.DuplicateEntryError{Field: "contact", Value: p.Contact}
	case "uk_patient_name_dob":
		return &db.DuplicateEntryError{
			Field: "name_and_dob",
			Value: p.Name + " / " + p.DateOfBirth.Format("2006-01-02"),
		}
	default:
		return &db.DuplicateEntryError{Field: "unknown", Value: ""}
	}
}

func (r *repoPG) Add(ctx context.Context, p Patient) (Patient, error) {
	if err := r.checkUnique(ctx, p, -1); err != nil {
		return Patient{}, err
	}

	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		return conn.QueryRow(ctx,
			`INSERT INTO patient (name, date_of_birth, contact) VALUES ($1, $2, $3) RETURNING patient_id`,
			p.Name, p.DateOfBirth, p.Contact).Scan(&p.ID)
	})
	if err != nil {
		if dup := translateUnique(err, p); db.IsDuplicate(dup) {
			return Patient{}, dup
		}
		return Patient{}, fmt.Errorf("add patient: %w", err)
	}
	return p, nil
}

func (r *repoPG) Update(ctx context.Context, p Patient) error {
	// Re-validate with the record's own id excluded so an in-place
	// correction never collides with its own unchanged values.
	if err := r.checkUnique(ctx, p, p.ID); err != nil {
		return err
	}

	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		tag, err := conn.Exec(ctx,
			`UPDATE patient SET name = $2, date_of_birth = $3, contact = $4 WHERE patient_id = $1`,
			p.ID, p.Name, p.DateOfBirth, p.Contact)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return db.ErrNotFound
		}
		return nil
	})
	if err != nil {
		if dup := translateUnique(err, p); db.IsDuplicate(dup) {
			return dup
		}
		if errors.Is(err, db.ErrNotFound) {
			return err
		}
		return fmt.Errorf("update patient %d: %w", p.ID, err)
	}
	return nil
}

// Delete removes the patient and every dependent record in one transaction:
// prescription items, prescriptions, appointments, feedback, then the
// patient row. Any failure rolls back the whole unit.
func (r *repoPG) Delete(ctx context.Context, id int) error {
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		tx, err := conn.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer tx.Rollback(ctx)

		cascade := []string{
			`DELETE FROM prescription_item WHERE prescription_id IN
				(SELECT prescription_id FROM prescription WHERE patient_id = $1)`,
			`DELETE FROM prescription WHERE patient_id = $1`,
			`DELETE FROM appointment WHERE patient_id = $1`,
			`DELETE FROM patient_feedback WHERE patient_id = $1`,
		}
		for _, q := range cascade {
			if _, err := tx.Exec(ctx, q, id); err != nil {
				return err
			}
		}

		tag, err := tx.Exec(ctx, `DELETE FROM patient WHERE patient_id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return db.ErrNotFound
		}
		return tx.Commit(ctx)
	})
	if errors.Is(err, db.ErrNotFound) {
		return err
	}
	if err != nil {
		r.log.Error().Err(err).Int("patient_id", id).Msg("cascade delete rolled back")
		return fmt.Errorf("delete patient %d: %w", id, err)
	}
	return nil
}

func (r *repoPG) Search(ctx context.Context, query string) ([]Patient, error) {
	pattern := "%" + query + "%"
	var items []Patient
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT `+patientCols+` FROM patient
			 WHERE patient_id::text LIKE $1 OR name ILIKE $1
			 ORDER BY name`, pattern)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			p, err := scanPatient(rows)
			if err != nil {
				return err
			}
			items = append(items, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("search patients: %w", err)
	}
	return items, nil
}

func (r *repoPG) ContactExists(ctx context.Context, contact string, excludeID int) (bool, error) {
	var count int
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		return conn.QueryRow(ctx,
			`SELECT COUNT(*) FROM patient WHERE contact = $1 AND patient_id != $2`,
			contact, excludeID).Scan(&count)
	})
	if err != nil {
		return false, fmt.Errorf("check contact uniqueness: %w", err)
	}
	return count > 0, nil
}

func (r *repoPG) NameAndDOBExists(ctx context.Context, name string, dob time.Time, excludeID int) (bool, error) {
	var count int
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		return conn.QueryRow(ctx,
			`SELECT COUNT(*) FROM patient WHERE name = $1 AND date_of_birth = $2 AND patient_id != $3`,
			name, dob, excludeID).Scan(&count)
	})
	if err != nil {
		return false, fmt.Errorf("check name/dob uniqueness: %w", err)
	}
	return count > 0, nil
}
