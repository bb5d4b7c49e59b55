package feedback

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

var ErrInvalidRating = errors.New("rating must be between 1 and 5")

type Feedback struct {
	ID        int
	PatientID int
	DoctorID  int
	Rating    int
	Comments  string
}

func (f Feedback) EntityID() int { return f.ID }

type Repository interface {
	GetAll(ctx context.Context) ([]Feedback, error)
	GetByID(ctx context.Context, id int) (Feedback, error)
	Add(ctx context.Context, f Feedback) (Feedback, error)
	Update(ctx context.Context, f Feedback) error
	Delete(ctx context.Context, id int) error
	ListByPatient(ctx context.Context, patientID int) ([]Feedback, error)
	ListByDoctor(ctx context.Context, doctorID int) ([]Feedback, error)
	AverageRatingForDoctor(ctx context.Context, doctorID int) (float64, error)
}

type Service struct {
	*cache.Service[Feedback]

	repo Repository
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{
		Service: cache.NewService[Feedback](repo, matchFeedback, log),
		repo:    repo,
	}
}

func (s *Service) Add(ctx context.Context, f Feedback) (Feedback, error) {
	if f.Rating < 1 || f.Rating > 5 {
		return Feedback{}, ErrInvalidRating
	}
	return s.Service.Add(ctx, f)
}

func (s *Service) Update(ctx context.Context, f Feedback) error {
	if f.Rating < 1 || f.Rating > 5 {
		return ErrInvalidRating
	}
	return s.Service.Update(ctx, f)
}

// ListByRating filters the snapshot for one exact rating.
func (s *Service) ListByRating(ctx context.Context, rating int) ([]Feedback, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []Feedback
	for _, f := range all {
		if f.Rating == rating {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID int) ([]Feedback, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID int) ([]Feedback, error) {
	return s.repo.ListByDoctor(ctx, doctorID)
}

// AverageRatingForDoctor aggregates in the store so the figure reflects every
// committed row, cached or not. Returns 0 when the doctor has no feedback.
func (s *Service) AverageRatingForDoctor(ctx context.Context, doctorID int) (float64, error) {
	return s.repo.AverageRatingForDoctor(ctx, doctorID)
}

func matchFeedback(f Feedback, query string) bool {
	if strings.Contains(strings.ToLower(f.Comments), query) {
		return true
	}
	return strings.Contains(strconv.Itoa(f.ID), query)
}

type repoPG struct {
	pool *db.Pool
	log  zerolog.Logger
}

func NewRepoPG(pool *db.Pool, log zerolog.Logger) Repository {
	return &repoPG{pool: pool, log: log}
}

const feedbackCols = `feedback_id, patient_id, doctor_id, rating, comments`

func scanFeedback(row pgx.Row) (Feedback, error) {
	var f Feedback
	err := row.Scan(&f.ID, &f.PatientID, &f.DoctorID, &f.Rating, &f.Comments)
	return f, err
}

func (r *repoPG) list(ctx context.Context, sql string, args ...interface{}) ([]Feedback, error) {
	var items []Feedback
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		rows, err := conn.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			f, err := scanFeedback(rows)
			if err != nil {
				return err
			}
			items = append(items, f)
		}
		return rows.Err()
	})
	return items, err
}

func (r *repoPG) GetAll(ctx context.Context) ([]Feedback, error) {
	items, err := r.list(ctx, `SELECT `+feedbackCols+` FROM patient_feedback ORDER BY feedback_id DESC`)
	if err != nil {
		return nil, fmt.Errorf("get all feedback: %w", err)
	}
	return items, nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID int) ([]Feedback, error) {
	items, err := r.list(ctx,
		`SELECT `+feedbackCols+` FROM patient_feedback WHERE patient_id = $1 ORDER BY feedback_id DESC`,
		patientID)
	if err != nil {
		return nil, fmt.Errorf("list feedback for patient %d: %w", patientID, err)
	}
	return items, nil
}

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID int) ([]Feedback, error) {
	items, err := r.list(ctx,
		`SELECT `+feedbackCols+` FROM patient_feedback WHERE doctor_id = $1 ORDER BY feedback_id DESC`,
		doctorID)
	if err != nil {
		return nil, fmt.Errorf("list feedback for doctor %d: %w", doctorID, err)
	}
	return items, nil
}

func (r *repoPG) GetByID(ctx context.Context, id int) (Feedback, error) {
	var f Feedback
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		var err error
		f, err = scanFeedback(conn.QueryRow(ctx,
			`SELECT `+feedbackCols+` FROM patient_feedback WHERE feedback_id = $1`, id))
		return err
	})
	if db.NoRows(err) {
		return Feedback{}, db.ErrNotFound
	}
	if err != nil {
		return Feedback{}, fmt.Errorf("get feedback %d: %w", id, err)
	}
	return f, nil
}

func (r *repoPG) Add(ctx context.Context, f Feedback) (Feedback, error) {
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		return conn.QueryRow(ctx,
			`INSERT INTO patient_feedback (patient_id, doctor_id, rating, comments)
			 VALUES ($1, $2, $3, $4) RETURNING feedback_id`,
			f.PatientID, f.DoctorID, f.Rating, f.Comments).Scan(&f.ID)
	})
	if err != nil {
		return Feedback{}, fmt.Errorf("add feedback: %w", err)
	}
	return f, nil
}

func (r *repoPG) Update(ctx context.Context, f Feedback) error {
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		tag, err := conn.Exec(ctx,
			`UPDATE patient_feedback SET patient_id = $2, doctor_id = $3, rating = $4, comments = $5
			 WHERE feedback_id = $1`,
			f.ID, f.PatientID, f.DoctorID, f.Rating, f.Comments)
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
		return fmt.Errorf("update feedback %d: %w", f.ID, err)
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id int) error {
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		tag, err := conn.Exec(ctx, `DELETE FROM patient_feedback WHERE feedback_id = $1`, id)
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
		return fmt.Errorf("delete feedback %d: %w", id, err)
	}
	return nil
}

func (r *repoPG) AverageRatingForDoctor(ctx context.Context, doctorID int) (float64, error) {
	var avg float64
	err := db.WithConn(ctx, r.pool, func(conn db.Conn) error {
		return conn.QueryRow(ctx,
			`SELECT COALESCE(AVG(rating), 0) FROM patient_feedback WHERE doctor_id = $1`,
			doctorID).Scan(&avg)
	})
	if err != nil {
		return 0, fmt.Errorf("average rating for doctor %d: %w", doctorID, err)
	}
	return avg, nil
}
