package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Harriee01/Hospital-Management/internal/platform/db"
)

type mockRepo struct {
	items  map[int]Item
	nextID int
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[int]Item), nextID: 1}
}

func (m *mockRepo) GetAll(ctx context.Context) ([]Item, error) {
	out := make([]Item, 0, len(m.items))
	for _, i := range m.items {
		out = append(out, i)
	}
	return out, nil
}

func (m *mockRepo) GetByID(ctx context.Context, medID int) (Item, error) {
	i, ok := m.items[medID]
	if !ok {
		return Item{}, db.ErrNotFound
	}
	return i, nil
}

func (m *mockRepo) Add(ctx context.Context, i Item) (Item, error) {
	i.MedID = m.nextID
	m.nextID++
	m.items[i.MedID] = i
	return i, nil
}

func (m *mockRepo) Update(ctx context.Context, i Item) error {
	if _, ok := m.items[i.MedID]; !ok {
		return db.ErrNotFound
	}
	m.items[i.MedID] = i
	return nil
}

func (m *mockRepo) Delete(ctx context.Context, medID int) error {
	if _, ok := m.items[medID]; !ok {
		return db.ErrNotFound
	}
	delete(m.items, medID)
	return nil
}

func (m *mockRepo) UpdateQuantity(ctx context.Context, medID, quantity int) error {
	i, ok := m.items[medID]
	if !ok {
		return db.ErrNotFound
	}
	i.Quantity = quantity
	m.items[medID] = i
	return nil
}

func seedStock(t *testing.T, svc *Service) (aspirin, insulin Item) {
	t.Helper()
	ctx := context.Background()
	var err error
	aspirin, err = svc.Add(ctx, Item{Name: "Aspirin", Quantity: 200, ExpiryDate: time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	insulin, err = svc.Add(ctx, Item{Name: "Insulin", Quantity: 8, ExpiryDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return aspirin, insulin
}

func TestLowStock(t *testing.T) {
	svc := NewService(newMockRepo(), zerolog.Nop())
	_, insulin := seedStock(t, svc)

	got, err := svc.LowStock(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].MedID != insulin.MedID {
		t.Fatalf("expected insulin only, got %v", got)
	}
}

func TestExpired(t *testing.T) {
	svc := NewService(newMockRepo(), zerolog.Nop())
	_, insulin := seedStock(t, svc)

	got, err := svc.Expired(context.Background(), time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].MedID != insulin.MedID {
		t.Fatalf("expected insulin only, got %v", got)
	}
}

func TestUpdateQuantityRefreshesSnapshot(t *testing.T) {
	svc := NewService(newMockRepo(), zerolog.Nop())
	aspirin, _ := seedStock(t, svc)
	ctx := context.Background()

	if _, err := svc.GetAll(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.UpdateQuantity(ctx, aspirin.MedID, 150); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.GetByID(ctx, aspirin.MedID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Quantity != 150 {
		t.Fatalf("expected refreshed quantity 150, got %d", got.Quantity)
	}
}

func TestUpdateQuantityRejectsNegative(t *testing.T) {
	svc := NewService(newMockRepo(), zerolog.Nop())
	aspirin, _ := seedStock(t, svc)

	if err := svc.UpdateQuantity(context.Background(), aspirin.MedID, -1); err == nil {
		t.Fatal("expected error for negative quantity")
	}
}

func TestUpdateQuantityMissingItem(t *testing.T) {
	svc := NewService(newMockRepo(), zerolog.Nop())

	err := svc.UpdateQuantity(context.Background(), 99, 5)
	if !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
