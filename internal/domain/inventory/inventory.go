package inventory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/Harriee01/Hospital-Management/internal/platform/cache"
	"github.com/Harriee01/Hospital-Management/internal/platform/db"
)

// Item is one medication line in the hospital stock ledger.
type Item struct {
	MedID      int
	Name       string
	Quantity   int
	ExpiryDate time.Time
}

func (i Item) EntityID() int { return i.MedID }

type Repository interface {
	GetAll(ctx context.Context) ([]Item, error)
	GetByID(ctx context.Context, medID int) (Item, error)
	Add(ctx context.Context, i Item) (Item, error)
	Update(ctx context.Context, i Item) error
	Delete(ctx context.Context, medID int) error
	UpdateQuantity(ctx context.Context, medID, quantity int) error
}

type Service struct {
	*cache.Service[Item]

	repo Repository
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{
		Service: cache.NewService[Item](repo, matchItem, log),
		repo:    repo,
	}
}

// UpdateQuantity adjusts stock for one medication and drops the snapshot.
func (s *Service) UpdateQuantity(ctx context.Context, medID, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("quantity must not be negative, got %d", quantity)
	}
	if err := s.repo.UpdateQuantity(ctx, medID, quantity); err != nil {
		return err
	}
	s.Invalidate()
	return nil
}

// LowStock lists medications at or below the threshold.
func (s *Service) LowStock(ctx context.Context, threshold int) ([]Item, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []Item
	for _, i := range all {
		if i.Quantity <= threshold {
			out = append(out, i)
		}
	}
	return out, nil
}

// Expired lists medications whose expiry date is on or before asOf.
func (s *Service) Expired(ctx context.Context, asOf time.Time) ([]Item, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []Item
	for _, i := range all {
		if !i.ExpiryDate.After(asOf) {
			out = append(out, i)
		}
	}
	return out, nil
}

func matchItem(i Item, query string) bool {
	if strings.Contains(strings.ToLower(i.Name), query) {
		return true
	}
	return strings.Contains(strconv.Itoa(i.MedID), query)
}

type repoPG struct {
	pool *db.Pool
	log  zerolog.Logger
}

func NewRepoPG(pool *db.Pool, log zerolog.Logger) Repository {
	return &repoPG{pool: pool, log: log}
}

const itemCols = `med_id, name, quantity, expiry_date`

func scanItem(row pgx.Row) (Item, error) {
	var i Item
	err := row.Scan(&i.MedID, &i.Name, &i.Quantity, &i.ExpiryDate)
	return i, err
}

func (r *repoPG) GetAll(ctx context.Context) ([]Item, error) {
	var items []Item
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		rows, err := conn.Query(ctx, `SELECT `+itemCols+` FROM medical_inventory ORDER BY name`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			i, err := scanItem(rows)
			if err != nil {
				return err
			}
			items = append(items, i)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("get all inventory: %w", err)
	}
	return items, nil
}

func (r *repoPG) GetByID(ctx context.Context, medID int) (Item, error) {
	var i Item
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		var err error
		i, err = scanItem(conn.QueryRow(ctx,
			`SELECT `+itemCols+` FROM medical_inventory WHERE med_id = $1`, medID))
		return err
	})
	if db.NoRows(err) {
		return Item{}, db.ErrNotFound
	}
	if err != nil {
		return Item{}, fmt.Errorf("get inventory item %d: %w", medID, err)
	}
	return i, nil
}

func (r *repoPG) Add(ctx context.Context, i Item) (Item, error) {
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		return conn.QueryRow(ctx,
			`INSERT INTO medical_inventory (name, quantity, expiry_date) VALUES ($1, $2, $3) RETURNING med_id`,
			i.Name, i.Quantity, i.ExpiryDate).Scan(&i.MedID)
	})
	if err != nil {
		return Item{}, fmt.Errorf("add inventory item: %w", err)
	}
	return i, nil
}

func (r *repoPG) Update(ctx context.Context, i Item) error {
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		tag, err := conn.Exec(ctx,
			`UPDATE medical_inventory SET name = $2, quantity = $3, expiry_date = $4 WHERE med_id = $1`,
			i.MedID, i.Name, i.Quantity, i.ExpiryDate)
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
		return fmt.Errorf("update inventory item %d: %w", i.MedID, err)
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, medID int) error {
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		tag, err := conn.Exec(ctx, `DELETE FROM medical_inventory WHERE med_id = $1`, medID)
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
		return fmt.Errorf("delete inventory item %d: %w", medID, err)
	}
	return nil
}

func (r *repoPG) UpdateQuantity(ctx context.Context, medID, quantity int) error {
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		tag, err := conn.Exec(ctx,
			`UPDATE medical_inventory SET quantity = $2 WHERE med_id = $1`, medID, quantity)
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
		return fmt.Errorf("update quantity for item %d: %w", medID, err)
	}
	return nil
}
