package appointment

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

const appointmentCols = `appointment_id, patient_id, doctor_id, status, appointment_date`

func scanAppointment(row pgx.Row) (Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.Status, &a.AppointmentDate)
	return a, err
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()
	var items []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *repoPG) list(ctx context.Context, sql string, args ...interface{}) ([]Appointment, error) {
	var items []Appointment
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		rows, err := conn.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		items, err = collectAppointments(rows)
		return err
	})
	return items, err
}

func (r *repoPG) GetAll(ctx context.Context) ([]Appointment, error) {
	items, err := r.list(ctx,
		`SELECT `+appointmentCols+` FROM appointment ORDER BY appointment_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("get all appointments: %w", err)
	}
	return items, nil
}

func (r *repoPG) GetByID(ctx context.Context, id int) (Appointment, error) {
	var a Appointment
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		var err error
		a, err = scanAppointment(conn.QueryRow(ctx,
			`SELECT `+appointmentCols+` FROM appointment WHERE appointment_id = $1`, id))
		return err
	})
	if db.NoRows(err) {
		return Appointment{}, db.ErrNotFound
	}
	if err != nil {
		return Appointment{}, fmt.Errorf("get appointment %d: %w", id, err)
	}
	return a, nil
}

// translateUnique maps the schema's doctor/time slot constraint to the typed
// double-booking error so a race past the pre-check still fails cleanly.
func translateUnique(err error, a Appointment) error {
	if constraint, ok := db.UniqueViolation(err); ok && constraint == "uk_appointment_doctor_slot" {
		return &ErrDoubleBooked{DoctorID: a.DoctorID, At: a.AppointmentDate}
	}
	return err
}

func (r *repoPG) Add(ctx context.Context, a Appointment) (Appointment, error) {
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		return conn.QueryRow(ctx,
			`INSERT INTO appointment (patient_id, doctor_id, status, appointment_date)
			 VALUES ($1, $2, $3, $4) RETURNING appointment_id`,
			a.PatientID, a.DoctorID, a.Status, a.AppointmentDate).Scan(&a.ID)
	})
	if err != nil {
		err = translateUnique(err, a)
		if IsDoubleBooked(err) {
			return Appointment{}, err
		}
		return Appointment{}, fmt.Errorf("add appointment: %w", err)
	}
	return a, nil
}

func (r *repoPG) Update(ctx context.Context, a Appointment) error {
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		tag, err := conn.Exec(ctx,
			`UPDATE appointment SET patient_id = $2, doctor_id = $3, status = $4, appointment_date = $5
			 WHERE appointment_id = $1`,
			a.ID, a.PatientID, a.DoctorID, a.Status, a.AppointmentDate)
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
		err = translateUnique(err, a)
		if IsDoubleBooked(err) {
			return err
		}
		return fmt.Errorf("update appointment %d: %w", a.ID, err)
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id int) error {
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		tag, err := conn.Exec(ctx, `DELETE FROM appointment WHERE appointment_id = $1`, id)
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
		return fmt.Errorf("delete appointment %d: %w", id, err)
	}
	return nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID int) ([]Appointment, error) {
	items, err := r.list(ctx,
		`SELECT `+appointmentCols+` FROM appointment WHERE patient_id = $1 ORDER BY appointment_date DESC`,
		patientID)
	if err != nil {
		return nil, fmt.Errorf("list appointments for patient %d: %w", patientID, err)
	}
	return items, nil
}

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID int) ([]Appointment, error) {
	items, err := r.list(ctx,
		`SELECT `+appointmentCols+` FROM appointment WHERE doctor_id = $1 ORDER BY appointment_date DESC`,
		doctorID)
	if err != nil {
		return nil, fmt.Errorf("list appointments for doctor %d: %w", doctorID, err)
	}
	return items, nil
}

func (r *repoPG) ListByStatus(ctx context.Context, status string) ([]Appointment, error) {
	items, err := r.list(ctx,
		`SELECT `+appointmentCols+` FROM appointment WHERE status = $1 ORDER BY appointment_date DESC`,
		status)
	if err != nil {
		return nil, fmt.Errorf("list %s appointments: %w", status, err)
	}
	return items, nil
}

func (r *repoPG) HasConflict(ctx context.Context, doctorID int, at time.Time, excludeID int) (bool, error) {
	var count int
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		return conn.QueryRow(ctx,
			`SELECT COUNT(*) FROM appointment
			 WHERE doctor_id = $1 AND appointment_date = $2 AND appointment_id != $3`,
			doctorID, at, excludeID).Scan(&count)
	})
	if err != nil {
		return false, fmt.Errorf("check appointment conflict: %w", err)
	}
	return count > 0, nil
}
