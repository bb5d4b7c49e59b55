package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Note is a free-form clinical note. Notes live in the document store, not
// the relational schema, because their shape varies per ward and author.
// AppointmentID is zero when the note is not tied to a visit.
type Note struct {
	RecordID      string    `bson:"record_id"`
	PatientID     int       `bson:"patient_id"`
	DoctorID      int       `bson:"doctor_id"`
	AppointmentID int       `bson:"appointment_id,omitempty"`
	Text          string    `bson:"note"`
	Diagnosis     string    `bson:"diagnosis"`
	CreatedAt     time.Time `bson:"created_at"`
}

var ErrEmptyNote = errors.New("note requires text or a diagnosis")

// NewNote stamps identity and creation time onto a draft note.
func NewNote(patientID, doctorID, appointmentID int, text, diagnosis string, now time.Time) (Note, error) {
	if text == "" && diagnosis == "" {
		return Note{}, ErrEmptyNote
	}
	return Note{
		RecordID:      uuid.NewString(),
		PatientID:     patientID,
		DoctorID:      doctorID,
		AppointmentID: appointmentID,
		Text:          text,
		Diagnosis:     diagnosis,
		CreatedAt:     now.UTC(),
	}, nil
}

const notesCollection = "clinical_notes"

type Store struct {
	coll *mongo.Collection
	log  zerolog.Logger
}

func NewStore(client *mongo.Client, database string, log zerolog.Logger) *Store {
	return &Store{
		coll: client.Database(database).Collection(notesCollection),
		log:  log,
	}
}

// Add writes a note for a patient. Pass appointmentID 0 when the note stands
// on its own.
func (s *Store) Add(ctx context.Context, patientID, doctorID, appointmentID int, text, diagnosis string) (Note, error) {
	note, err := NewNote(patientID, doctorID, appointmentID, text, diagnosis, time.Now())
	if err != nil {
		return Note{}, err
	}
	if _, err := s.coll.InsertOne(ctx, note); err != nil {
		return Note{}, fmt.Errorf("insert clinical note: %w", err)
	}
	return note, nil
}

func (s *Store) GetByRecordID(ctx context.Context, recordID string) (Note, error) {
	var note Note
	err := s.coll.FindOne(ctx, bson.M{"record_id": recordID}).Decode(&note)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Note{}, fmt.Errorf("clinical note %s: not found", recordID)
	}
	if err != nil {
		return Note{}, fmt.Errorf("get clinical note %s: %w", recordID, err)
	}
	return note, nil
}

// ListByPatient returns the patient's notes, newest first.
func (s *Store) ListByPatient(ctx context.Context, patientID int) ([]Note, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.coll.Find(ctx, bson.M{"patient_id": patientID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list notes for patient %d: %w", patientID, err)
	}
	defer cur.Close(ctx)

	var notes []Note
	if err := cur.All(ctx, &notes); err != nil {
		return nil, fmt.Errorf("decode notes for patient %d: %w", patientID, err)
	}
	return notes, nil
}

// DeleteByPatient removes every note for a patient. Runs alongside the
// relational cascade when a patient record is purged.
func (s *Store) DeleteByPatient(ctx context.Context, patientID int) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{"patient_id": patientID})
	if err != nil {
		return 0, fmt.Errorf("delete notes for patient %d: %w", patientID, err)
	}
	s.log.Info().Int("patient_id", patientID).Int64("deleted", res.DeletedCount).Msg("clinical notes purged")
	return res.DeletedCount, nil
}

// CountsLast30Days reports how many notes each patient accumulated over the
// last 30 days.
func (s *Store) CountsLast30Days(ctx context.Context) (map[int]int64, error) {
	return s.countsByPatientSince(ctx, time.Now().AddDate(0, 0, -30))
}

func (s *Store) countsByPatientSince(ctx context.Context, since time.Time) (map[int]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"created_at": bson.M{"$gte": since.UTC()}}}},
		{{Key: "$group", Value: bson.M{"_id": "$patient_id", "count": bson.M{"$sum": 1}}}},
	}
	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate note counts: %w", err)
	}
	defer cur.Close(ctx)

	counts := make(map[int]int64)
	for cur.Next(ctx) {
		var row struct {
			PatientID int   `bson:"_id"`
			Count     int64 `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode note count: %w", err)
		}
		counts[row.PatientID] = row.Count
	}
	return counts, cur.Err()
}
