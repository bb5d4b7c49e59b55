package prescription

import (
	"context"
	"errors"
	"fmt"

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

const prescriptionCols = `prescription_id, patient_id, doctor_id, prescription_date`

func scanPrescription(row pgx.Row) (Prescription, error) {
	var p Prescription
	err := row.Scan(&p.ID, &p.PatientID, &p.DoctorID, &p.PrescriptionDate)
	return p, err
}

func (r *repoPG) list(ctx context.Context, sql string, args ...interface{}) ([]Prescription, error) {
	var items []Prescription
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		rows, err := conn.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			p, err := scanPrescription(rows)
			if err != nil {
				return err
			}
			items = append(items, p)
		}
		return rows.Err()
	})
	return items, err
}

func (r *repoPG) GetAll(ctx context.Context) ([]Prescription, error) {
	items, err := r.list(ctx,
		`SELECT `+prescriptionCols+` FROM prescription ORDER BY prescription_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("get all prescriptions: %w", err)
	}
	return items, nil
}

func (r *repoPG) GetByID(ctx context.Context, id int) (Prescription, error) {
	var p Prescription
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		var err error
		p, err = scanPrescription(conn.QueryRow(ctx,
			`SELECT `+prescriptionCols+` FROM prescription WHERE prescription_id = $1`, id))
		return err
	})
	if db.NoRows(err) {
		return Prescription{}, db.ErrNotFound
	}
	if err != nil {
		return Prescription{}, fmt.Errorf("get prescription %d: %w", id, err)
	}
	return p, nil
}

func (r *repoPG) Add(ctx context.Context, p Prescription) (Prescription, error) {
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		return conn.QueryRow(ctx,
			`INSERT INTO prescription (patient_id, doctor_id, prescription_date)
			 VALUES ($1, $2, $3) RETURNING prescription_id`,
			p.PatientID, p.DoctorID, p.PrescriptionDate).Scan(&p.ID)
	})
	if err != nil {
		return Prescription{}, fmt.Errorf("add prescription: %w", err)
	}
	return p, nil
}

func (r *repoPG) Update(ctx context.Context, p Prescription) error {
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		tag, err := conn.Exec(ctx,
			`UPDATE prescription SET patient_id = $2, doctor_id = $3, prescription_date = $4
			 WHERE prescription_id = $1`,
			p.ID, p.PatientID, p.DoctorID, p.PrescriptionDate)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return db.ErrNotFound
		}
		return nil
	})
	if errors.Is(err, db.ErrNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("update prescription %d: %w", p.ID, err)
	}
	return nil
}

// Delete removes the prescription and its items in one transaction.
func (r *repoPG) Delete(ctx context.Context, id int) error {
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		tx, err := conn.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer tx.Rollback(ctx)

		if _, err := tx.Exec(ctx, `DELETE FROM prescription_item WHERE prescription_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM prescription WHERE prescription_id = $1`, id)
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
		return fmt.Errorf("delete prescription %d: %w", id, err)
	}
	return nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID int) ([]Prescription, error) {
	items, err := r.list(ctx,
		`SELECT `+prescriptionCols+` FROM prescription WHERE patient_id = $1 ORDER BY prescription_date DESC`,
		patientID)
	if err != nil {
		return nil, fmt.Errorf("list prescriptions for patient %d: %w", patientID, err)
	}
	return items, nil
}

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID int) ([]Prescription, error) {
	items, err := r.list(ctx,
		`SELECT `+prescriptionCols+` FROM prescription WHERE doctor_id = $1 ORDER BY prescription_date DESC`,
		doctorID)
	if err != nil {
		return nil, fmt.Errorf("list prescriptions for doctor %d: %w", doctorID, err)
	}
	return items, nil
}

func (r *repoPG) AddItem(ctx context.Context, item Item) (Item, error) {
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		return conn.QueryRow(ctx,
			`INSERT INTO prescription_item (prescription_id, med_id, dosage)
			 VALUES ($1, $2, $3) RETURNING item_id`,
			item.PrescriptionID, item.MedID, item.Dosage).Scan(&item.ID)
	})
	if err != nil {
		return Item{}, fmt.Errorf("add prescription item: %w", err)
	}
	return item, nil
}

func (r *repoPG) Items(ctx context.Context, prescriptionID int) ([]Item, error) {
	var items []Item
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT item_id, prescription_id, med_id, dosage FROM prescription_item
			 WHERE prescription_id = $1 ORDER BY item_id`, prescriptionID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var item Item
			if err := rows.Scan(&item.ID, &item.PrescriptionID, &item.MedID, &item.Dosage); err != nil {
				return err
			}
			items = append(items, item)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list items for prescription %d: %w", prescriptionID, err)
	}
	return items, nil
}

func (r *repoPG) DeleteItem(ctx context.Context, itemID int) error {
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		tag, err := conn.Exec(ctx, `DELETE FROM prescription_item WHERE item_id = $1`, itemID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return db.ErrNotFound
		}
		return nil
	})
	if errors.Is(err, db.ErrNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("delete prescription item %d: %w", itemID, err)
	}
	return nil
}
