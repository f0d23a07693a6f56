package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safewatch/safewatch/internal/engine"
	"github.com/safewatch/safewatch/internal/models"
	"github.com/safewatch/safewatch/internal/store"
)

// walletSource serves pending sets keyed by wallet address, optionally
// blocking until released so tests can hold a reconciliation in flight.
type walletSource struct {
	mu       sync.Mutex
	pending  map[string][]models.PendingTransaction
	errs     map[string]error
	entered  chan string
	release  chan struct{}
	blocking bool
}

func (f *walletSource) FetchPending(ctx context.Context, chainID int64, address string) ([]models.PendingTransaction, error) {
	if f.blocking {
		f.entered <- address
		<-f.release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[address]; err != nil {
		return nil, err
	}
	return f.pending[address], nil
}

type countingSink struct {
	mu    sync.Mutex
	count int
}

func (c *countingSink) Name() string { return "counting" }

func (c *countingSink) Notify(ctx context.Context, event *models.NotificationEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	return nil
}

func (c *countingSink) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func addWallet(t *testing.T, storage store.Storage, id, address string, enabled bool) *models.MonitoredWallet {
	t.Helper()
	wallet := &models.MonitoredWallet{
		ID:        id,
		Owner:     "ops",
		ChainID:   1,
		Address:   address,
		Enabled:   enabled,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, storage.SaveWallet(context.Background(), wallet))
	return wallet
}

func TestRunPassAggregatesAcrossWallets(t *testing.T) {
	storage := store.NewMemoryStorage()
	addWallet(t, storage, "w1", "0xaa01", true)
	addWallet(t, storage, "w2", "0xaa02", true)
	addWallet(t, storage, "w3", "0xaa03", false)

	src := &walletSource{pending: map[string][]models.PendingTransaction{
		"0xaa01": {{SafeTxHash: "0x111", Nonce: 1, Threshold: 2, Value: "0"}},
		"0xaa02": {
			{SafeTxHash: "0x222", Nonce: 1, Threshold: 2, Value: "0"},
			{SafeTxHash: "0x333", Nonce: 2, Threshold: 2, Value: "0"},
		},
	}}
	sink := &countingSink{}
	eng := engine.NewEngine(src, storage, sink, nil)

	sched := NewFleetScheduler(eng, storage, &SchedulerConfig{Concurrency: 2, WalletTimeout: 5 * time.Second}, nil)

	result, err := sched.RunPass(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, result.PassID)
	assert.Equal(t, 2, result.WalletsChecked, "disabled wallets are excluded from the pass")
	assert.Equal(t, 0, result.WalletsSkipped)
	assert.Equal(t, 3, result.NewTransactions)
	assert.Equal(t, 3, result.NotificationsSent)
	assert.Empty(t, result.Errors)
	assert.Len(t, result.PerWallet, 2)
	assert.Equal(t, 3, sink.total())
}

func TestRunPassIsolatesWalletFailures(t *testing.T) {
	storage := store.NewMemoryStorage()
	addWallet(t, storage, "w1", "0xaa01", true)
	addWallet(t, storage, "w2", "0xaa02", true)

	src := &walletSource{
		pending: map[string][]models.PendingTransaction{
			"0xaa02": {{SafeTxHash: "0x222", Nonce: 1, Threshold: 2, Value: "0"}},
		},
		errs: map[string]error{
			"0xaa01": errors.New("service unavailable"),
		},
	}
	sink := &countingSink{}
	eng := engine.NewEngine(src, storage, sink, nil)
	sched := NewFleetScheduler(eng, storage, &SchedulerConfig{Concurrency: 2, WalletTimeout: 5 * time.Second}, nil)

	result, err := sched.RunPass(context.Background())
	require.NoError(t, err, "one wallet's failure must not fail the pass")

	assert.Equal(t, 2, result.WalletsChecked)
	assert.Equal(t, 1, result.NotificationsSent)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "fetch", result.Errors[0].Stage)
	assert.Equal(t, "w1", result.Errors[0].WalletID)
}

func TestRunPassSkipsWalletStillReconciling(t *testing.T) {
	storage := store.NewMemoryStorage()
	addWallet(t, storage, "w1", "0xaa01", true)

	src := &walletSource{
		pending:  map[string][]models.PendingTransaction{},
		entered:  make(chan string),
		release:  make(chan struct{}),
		blocking: true,
	}
	sink := &countingSink{}
	eng := engine.NewEngine(src, storage, sink, nil)
	sched := NewFleetScheduler(eng, storage, &SchedulerConfig{Concurrency: 2, WalletTimeout: 5 * time.Second}, nil)

	firstDone := make(chan *models.PassResult)
	go func() {
		result, err := sched.RunPass(context.Background())
		require.NoError(t, err)
		firstDone <- result
	}()

	// Wait until the first pass is inside the fetch, holding the wallet lock.
	<-src.entered
	src.blocking = false

	second, err := sched.RunPass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.WalletsChecked)
	assert.Equal(t, 1, second.WalletsSkipped)
	require.Len(t, second.Errors, 1)
	assert.Equal(t, "skipped", second.Errors[0].Stage)

	close(src.release)
	first := <-firstDone
	assert.Equal(t, 1, first.WalletsChecked)
	assert.Equal(t, 0, first.WalletsSkipped)
}

func TestRunCleanupSweepsOldRecords(t *testing.T) {
	storage := store.NewMemoryStorage()
	wallet := addWallet(t, storage, "w1", "0xaa01", true)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, storage.PutSeen(ctx, &models.SeenTransactionRecord{
		WalletID:    wallet.ID,
		SafeTxHash:  "0xold",
		FirstSeen:   now.Add(-72 * time.Hour),
		LastChecked: now.Add(-72 * time.Hour),
	}))
	require.NoError(t, storage.PutSeen(ctx, &models.SeenTransactionRecord{
		WalletID:    wallet.ID,
		SafeTxHash:  "0xfresh",
		FirstSeen:   now,
		LastChecked: now,
	}))

	sched := NewFleetScheduler(engine.NewEngine(&walletSource{}, storage, &countingSink{}, nil), storage, &SchedulerConfig{RetentionDays: 1}, nil)

	removed, err := sched.RunCleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	records, err := storage.ListSeen(ctx, wallet.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "0xfresh", records[0].SafeTxHash)
}
