package department

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/Harriee01/Hospital-Management/internal/platform/cache"
	"github.com/Harriee01/Hospital-Management/internal/platform/db"
)

type Department struct {
	ID       int
	Name     string
	Location string
}

func (d Department) EntityID() int { return d.ID }

type Repository interface {
	GetAll(ctx context.Context) ([]Department, error)
	GetByID(ctx context.Context, id int) (Department, error)
	Add(ctx context.Context, d Department) (Department, error)
	Update(ctx context.Context, d Department) error
	Delete(ctx context.Context, id int) error
}

type Service struct {
	*cache.Service[Department]
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{Service: cache.NewService[Department](repo, matchDepartment, log)}
}

func matchDepartment(d Department, query string) bool {
	if strings.Contains(strings.ToLower(d.Name), query) {
		return true
	}
	if strings.Contains(strings.ToLower(d.Location), query) {
		return true
	}
	return strings.Contains(strconv.Itoa(d.ID), query)
}

type repoPG struct {
	pool *db.Pool
	log  zerolog.Logger
}

func NewRepoPG(pool *db.Pool, log zerolog.Logger) Repository {
	return &repoPG{pool: pool, log: log}
}

const departmentCols = `department_id, name, location`

func scanDepartment(row pgx.Row) (Department, error) {
	var d Department
	err := row.Scan(&d.ID, &d.Name, &d.Location)
	return d, err
}

func (r *repoPG) GetAll(ctx context.Context) ([]Department, error) {
	var items []Department
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		rows, err := conn.Query(ctx, `SELECT `+departmentCols+` FROM department ORDER BY name`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			d, err := scanDepartment(rows)
			if err != nil {
				return err
			}
			items = append(items, d)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("get all departments: %w", err)
	}
	return items, nil
}

func (r *repoPG) GetByID(ctx context.Context, id int) (Department, error) {
	var d Department
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		var err error
		d, err = scanDepartment(conn.QueryRow(ctx,
			`SELECT `+departmentCols+` FROM department WHERE department_id = $1`, id))
		return err
	})
	if db.NoRows(err) {
		return Department{}, db.ErrNotFound
	}
	if err != nil {
		return Department{}, fmt.Errorf("get department %d: %w", id, err)
	}
	return d, nil
}

func (r *repoPG) Add(ctx context.Context, d Department) (Department, error) {
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		return conn.QueryRow(ctx,
			`INSERT INTO department (name, location) VALUES ($1, $2) RETURNING department_id`,
			d.Name, d.Location).Scan(&d.ID)
	})
	if err != nil {
		return Department{}, fmt.Errorf("add department: %w", err)
	}
	return d, nil
}

func (r *repoPG) Update(ctx context.Context, d Department) error {
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		tag, err := conn.Exec(ctx,
			`UPDATE department SET name = $2, location = $3 WHERE department_id = $1`,
			d.ID, d.Name, d.Location)
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
		return fmt.Errorf("update department %d: %w", d.ID, err)
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id int) error {
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		tag, err := conn.Exec(ctx, `DELETE FROM department WHERE department_id = $1`, id)
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
		return fmt.Errorf("delete department %d: %w", id, err)
	}
	return nil
}
