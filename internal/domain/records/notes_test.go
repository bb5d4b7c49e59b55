package records

import (
	"errors"
	"testing"
	"time"
)

func TestNewNoteStampsIdentity(t *testing.T) {
	now := time.Date(2026, 8, 29, 14, 30, 0, 0, time.FixedZone("CET", 3600))

	note, err := NewNote(1, 2, 0, "Healing well after surgery", "Post-op recovery", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if note.RecordID == "" {
		t.Fatal("expected a generated record id")
	}
	if note.CreatedAt.Location() != time.UTC {
		t.Fatalf("expected UTC timestamp, got %v", note.CreatedAt.Location())
	}
	if !note.CreatedAt.Equal(now) {
		t.Fatalf("expected creation time preserved, got %v", note.CreatedAt)
	}

	other, err := NewNote(1, 2, 0, "Healing well after surgery", "Post-op recovery", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if other.RecordID == note.RecordID {
		t.Fatal("record ids must be unique per note")
	}
}

func TestNewNoteKeepsAppointmentReference(t *testing.T) {
	note, err := NewNote(1, 2, 42, "Follow-up booked", "", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if note.AppointmentID != 42 {
		t.Fatalf("expected appointment id 42, got %d", note.AppointmentID)
	}

	standalone, err := NewNote(1, 2, 0, "Walk-in consultation", "", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if standalone.AppointmentID != 0 {
		t.Fatalf("expected no appointment reference, got %d", standalone.AppointmentID)
	}
}

func TestNewNoteRejectsEmpty(t *testing.T) {
	_, err := NewNote(1, 2, 0, "", "", time.Now())
	if !errors.Is(err, ErrEmptyNote) {
		t.Fatalf("expected empty note error, got %v", err)
	}
}

func TestNewNoteDiagnosisOnly(t *testing.T) {
	note, err := NewNote(1, 2, 0, "", "Seasonal allergies", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if note.Diagnosis != "Seasonal allergies" {
		t.Fatalf("unexpected diagnosis %q", note.Diagnosis)
	}
}
