package doctor

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

const doctorCols = `doctor_id, name, specialization, department_id`

func scanDoctor(row pgx.Row) (Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.Name, &d.Specialization, &d.DepartmentID)
	return d, err
}

func collectDoctors(rows pgx.Rows) ([]Doctor, error) {
	defer rows.Close()
	var items []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (r *repoPG) GetAll(ctx context.Context) ([]Doctor, error) {
	var items []Doctor
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		rows, err := conn.Query(ctx, `SELECT `+doctorCols+` FROM doctor ORDER BY name`)
		if err != nil {
			return err
		}
		items, err = collectDoctors(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get all doctors: %w", err)
	}
	return items, nil
}

func (r *repoPG) GetByID(ctx context.Context, id int) (Doctor, error) {
	var d Doctor
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		var err error
		d, err = scanDoctor(conn.QueryRow(ctx, `SELECT `+doctorCols+` FROM doctor WHERE doctor_id = $1`, id))
		return err
	})
	if db.NoRows(err) {
		return Doctor{}, db.ErrNotFound
	}
	if err != nil {
		return Doctor{}, fmt.Errorf("get doctor %d: %w", id, err)
	}
	return d, nil
}

func (r *repoPG) Add(ctx context.Context, d Doctor) (Doctor, error) {
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		return conn.QueryRow(ctx,
			`INSERT INTO doctor (name, specialization, department_id) VALUES ($1, $2, $3) RETURNING doctor_id`,
			d.Name, d.Specialization, d.DepartmentID).Scan(&d.ID)
	})
	if err != nil {
		return Doctor{}, fmt.Errorf("add doctor: %w", err)
	}
	return d, nil
}

func (r *repoPG) Update(ctx context.Context, d Doctor) error {
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		tag, err := conn.Exec(ctx,
			`UPDATE doctor SET name = $2, specialization = $3, department_id = $4 WHERE doctor_id = $1`,
			d.ID, d.Name, d.Specialization, d.DepartmentID)
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
		return fmt.Errorf("update doctor %d: %w", d.ID, err)
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id int) error {
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		tag, err := conn.Exec(ctx, `DELETE FROM doctor WHERE doctor_id = $1`, id)
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
		return fmt.Errorf("delete doctor %d: %w", id, err)
	}
	return nil
}

func (r *repoPG) ListByDepartment(ctx context.Context, departmentID int) ([]Doctor, error) {
	var items []Doctor
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT `+doctorCols+` FROM doctor WHERE department_id = $1 ORDER BY name`, departmentID)
		if err != nil {
			return err
		}
		items, err = collectDoctors(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list doctors for department %d: %w", departmentID, err)
	}
	return items, nil
}
