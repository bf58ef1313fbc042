package embedding

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfqa/internal/domain"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func fixedClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)}
}

type mockBudgetStore struct {
	mu     sync.Mutex
	data   map[string]int64
	getErr error
	setErr error
}

func newMockBudgetStore() *mockBudgetStore {
	return &mockBudgetStore{data: make(map[string]int64)}
}

func (m *mockBudgetStore) IncrBy(_ context.Context, key string, val int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] += val
	return nil
}

func (m *mockBudgetStore) Get(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return 0, m.getErr
	}
	return m.data[key], nil
}

func (m *mockBudgetStore) value(key string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key]
}

func TestBudgetTracker_Check(t *testing.T) {
	tests := []struct {
		name    string
		daily   int64
		monthly int64
		action  BudgetAction
		record  int64
		wantErr bool
	}{
		{"daily reject", 100, 0, BudgetActionReject, 100, true},
		{"monthly reject", 0, 500, BudgetActionReject, 500, true},
		{"warn allows", 100, 0, BudgetActionWarn, 200, false},
		{"below limit", 1000, 10000, BudgetActionReject, 500, false},
		{"unlimited", 0, 0, BudgetActionReject, 999999999, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bt := NewBudgetTracker("test", tt.daily, tt.monthly, tt.action, zap.NewNop())
			bt.Record(tt.record)

			err := bt.Check(context.Background())
			if tt.wantErr && !errors.Is(err, domain.ErrEmbeddingQuotaExceeded) {
				t.Fatalf("expected ErrEmbeddingQuotaExceeded, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}
		})
	}
}

func TestBudgetTracker_Remaining(t *testing.T) {
	bt := NewBudgetTracker("test", 1000, 10000, BudgetActionWarn, zap.NewNop())
	bt.Record(300)

	if got := bt.RemainingDaily(); got != 700 {
		t.Errorf("expected daily remaining 700, got %d", got)
	}
	if got := bt.RemainingMonthly(); got != 9700 {
		t.Errorf("expected monthly remaining 9700, got %d", got)
	}

	bt.Record(5000)
	if got := bt.RemainingDaily(); got != 0 {
		t.Errorf("expected overspent daily budget to clamp at 0, got %d", got)
	}
}

func TestBudgetTracker_RemainingUnlimited(t *testing.T) {
	bt := NewBudgetTracker("test", 0, 0, BudgetActionWarn, zap.NewNop())

	if got := bt.RemainingDaily(); got != -1 {
		t.Errorf("expected -1 for unlimited daily, got %d", got)
	}
	if got := bt.RemainingMonthly(); got != -1 {
		t.Errorf("expected -1 for unlimited monthly, got %d", got)
	}
}

func TestBudgetTracker_DayRollover(t *testing.T) {
	clock := fixedClock()
	bt := NewBudgetTracker("test", 100, 1000, BudgetActionReject, zap.NewNop()).WithClock(clock.Now)

	bt.Record(100)
	if err := bt.Check(context.Background()); err == nil {
		t.Fatal("expected rejection before rollover")
	}

	clock.Set(time.Date(2026, 3, 15, 0, 0, 1, 0, time.UTC))
	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("expected fresh daily budget after midnight, got %v", err)
	}
	if bt.DailyUsed() != 0 {
		t.Errorf("expected daily_used=0 after rollover, got %d", bt.DailyUsed())
	}
	if bt.MonthlyUsed() != 100 {
		t.Errorf("expected monthly usage to carry over, got %d", bt.MonthlyUsed())
	}

	clock.Set(time.Date(2026, 4, 1, 0, 0, 1, 0, time.UTC))
	if bt.MonthlyUsed() != 0 {
		t.Errorf("expected monthly_used=0 in a new month, got %d", bt.MonthlyUsed())
	}
}

func TestBudgetTracker_WithStore_LoadsValues(t *testing.T) {
	store := newMockBudgetStore()
	store.data["pdfqa:budget:openai:daily:2026-03-14"] = 300
	store.data["pdfqa:budget:openai:monthly:2026-03"] = 5000

	bt := NewBudgetTracker("openai", 1000, 10000, BudgetActionReject, zap.NewNop()).
		WithClock(fixedClock().Now).
		WithStore(context.Background(), store)

	if bt.DailyUsed() != 300 {
		t.Errorf("expected daily_used=300, got %d", bt.DailyUsed())
	}
	if bt.MonthlyUsed() != 5000 {
		t.Errorf("expected monthly_used=5000, got %d", bt.MonthlyUsed())
	}
}

func TestBudgetTracker_Record_PersistsToStore(t *testing.T) {
	store := newMockBudgetStore()
	bt := NewBudgetTracker("openai", 10000, 100000, BudgetActionWarn, zap.NewNop()).
		WithClock(fixedClock().Now).
		WithStore(context.Background(), store)

	bt.Record(100)
	bt.Record(200)
	bt.Record(300)

	if bt.DailyUsed() != 600 {
		t.Errorf("expected daily_used=600, got %d", bt.DailyUsed())
	}
	if v := store.value("pdfqa:budget:openai:daily:2026-03-14"); v != 600 {
		t.Errorf("expected store daily=600, got %d", v)
	}
	if v := store.value("pdfqa:budget:openai:monthly:2026-03"); v != 600 {
		t.Errorf("expected store monthly=600, got %d", v)
	}
}

func TestBudgetTracker_WithStore_LoadError(t *testing.T) {
	store := newMockBudgetStore()
	store.getErr = errors.New("connection refused")

	bt := NewBudgetTracker("prov", 1000, 10000, BudgetActionReject, zap.NewNop()).
		WithStore(context.Background(), store)

	if bt.DailyUsed() != 0 || bt.MonthlyUsed() != 0 {
		t.Errorf("expected zero usage on load error, got %d/%d", bt.DailyUsed(), bt.MonthlyUsed())
	}
}

func TestBudgetTracker_Record_StoreWriteError(t *testing.T) {
	store := newMockBudgetStore()
	bt := NewBudgetTracker("prov", 100, 0, BudgetActionReject, zap.NewNop()).
		WithStore(context.Background(), store)

	store.mu.Lock()
	store.setErr = errors.New("write timeout")
	store.mu.Unlock()

	bt.Record(100)

	if bt.DailyUsed() != 100 {
		t.Errorf("expected in-memory usage despite store error, got %d", bt.DailyUsed())
	}
	if err := bt.Check(context.Background()); !errors.Is(err, domain.ErrEmbeddingQuotaExceeded) {
		t.Fatalf("expected ErrEmbeddingQuotaExceeded, got %v", err)
	}
}
