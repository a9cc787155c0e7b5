package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"gastos/internal/core"
)

func sample(cents int64) core.Expense {
	return core.Expense{
		Date:     core.NewDate(2025, 1, 1),
		Category: core.CategoryGroceries,
		Amount:   core.Money{Cents: cents},
		Payer:    core.PayerGustavo,
		Payment:  core.PaymentCash,
	}
}

func TestMemoryStoreAppendAndLoad(t *testing.T) {
	s := New()
	ref, err := s.Append(context.Background(), sample(123))
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}
	got, err := s.Load(context.Background())
	if err != nil || len(got) != 1 || got[0].Amount.Cents != 123 {
		t.Fatalf("unexpected load: %v err=%v", got, err)
	}

	// Mutating the returned slice must not affect the store.
	got[0].Amount.Cents = 1
	again, _ := s.Load(context.Background())
	if again[0].Amount.Cents != 123 {
		t.Fatalf("store leaked its backing slice")
	}
}

func TestMemoryStoreRejectsInvalid(t *testing.T) {
	s := New(sample(100))
	if _, err := s.Append(context.Background(), sample(0)); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("rejected record must not be stored")
	}
}

func TestMemoryStoreConcurrentAppends(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Append(context.Background(), sample(100))
		}()
	}
	wg.Wait()
	if s.Len() != 50 {
		t.Fatalf("expected 50 records, got %d", s.Len())
	}
}

func TestMemoryStoreLoadError(t *testing.T) {
	boom := errors.New("boom")
	s := &Store{LoadErr: boom}
	if _, err := s.Load(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}
}
