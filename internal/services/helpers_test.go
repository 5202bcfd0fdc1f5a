package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"ledgerbook/internal/clock"
	"ledgerbook/internal/core"
	"ledgerbook/internal/period"
	"ledgerbook/internal/store"
	"ledgerbook/internal/store/memory"
)

const testUser = "alice"

var errDiskFull = errors.New("disk full")

// flakyStore fails writes to keys with a configured prefix.
type flakyStore struct {
	*memory.Store
	mu         sync.Mutex
	failPrefix string
}

func newFlakyStore() *flakyStore {
	return &flakyStore{Store: memory.New()}
}

func (s *flakyStore) failWrites(prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPrefix = prefix
}

func (s *flakyStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	prefix := s.failPrefix
	s.mu.Unlock()
	if prefix != "" && strings.HasPrefix(key, prefix) {
		return store.WriteError("set", key, errDiskFull)
	}
	return s.Store.Set(ctx, key, value)
}

type publishedEvent struct {
	user, kind, period string
	count              int
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *fakePublisher) PublishPeriodClosed(_ context.Context, user, kind, periodKey string, count int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{user, kind, periodKey, count})
	return p.err
}

type testEnv struct {
	ledger    *flakyStore
	archive   *flakyStore
	publisher *fakePublisher
	reports   *ReportGenerator
	engine    *ClosingEngine
	keys      period.Keys
}

var archivedAt = time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

// newTestEnv wires an engine whose clock reads today.
func newTestEnv(t *testing.T, today time.Time, opts ...EngineOption) *testEnv {
	t.Helper()
	env := &testEnv{
		ledger:    newFlakyStore(),
		archive:   newFlakyStore(),
		publisher: &fakePublisher{},
	}
	env.reports = NewReportGenerator(env.archive, "$")
	env.reports.now = func() time.Time { return archivedAt }

	clk := clock.NewResolver(clock.NewFixed(today), clock.NewFixed(today), 0)
	opts = append([]EngineOption{WithPublisher(env.publisher), WithNow(func() time.Time { return archivedAt })}, opts...)
	env.engine = NewClosingEngine(env.ledger, env.archive, clk, env.reports, opts...)

	keys, err := period.For(testUser)
	if err != nil {
		t.Fatal(err)
	}
	env.keys = keys
	return env
}

func (env *testEnv) seed(t *testing.T, month string, txs ...core.Transaction) {
	t.Helper()
	if err := store.PutJSON(context.Background(), env.ledger, env.keys.Ledger(month), txs); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}
}

func (env *testEnv) ledgerOf(t *testing.T, month string) []core.Transaction {
	t.Helper()
	txs, _, err := store.GetJSON[[]core.Transaction](context.Background(), env.ledger, env.keys.Ledger(month))
	if err != nil {
		t.Fatalf("read ledger: %v", err)
	}
	return txs
}

func day(s string) core.Date {
	d, err := core.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func units(n int64) core.Money { return core.Cents(n * 100) }

func newTx(id, date string, typ core.TransactionType, amount int64, category string) core.Transaction {
	return core.Transaction{
		ID:          id,
		Date:        day(date),
		Description: id + " entry",
		Amount:      units(amount),
		Type:        typ,
		Category:    category,
		CreatedAt:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func ids(txs []core.Transaction) []string {
	out := make([]string, len(txs))
	for i, tx := range txs {
		out[i] = tx.ID
	}
	return out
}
