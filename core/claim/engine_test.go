package claim

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/openvest/vestd/core/store"
	"github.com/openvest/vestd/core/vesting"
	"github.com/openvest/vestd/infra/transfer"
	"github.com/openvest/vestd/internal/eventbus"
	"github.com/openvest/vestd/internal/keymutex"
)

type claimantIDs struct {
	delegates map[string]string // caller -> beneficiary it may claim for
}

func (c claimantIDs) IsAuthorizedClaimant(caller, beneficiary string) bool {
	if caller == beneficiary {
		return true
	}
	return c.delegates[caller] == beneficiary
}

type fixture struct {
	engine *Engine
	store  *store.MemoryStore
	mock   *transfer.Mock
	now    *uint64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewMemoryStore()
	mock := transfer.NewMock()
	now := uint64(0)
	eng, err := New(st, claimantIDs{delegates: map[string]string{"custodian": "alice"}},
		mock, keymutex.New(), eventbus.New(), nil,
		vesting.ClockFunc(func() uint64 { return now }), nil, "ASTRO")
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return &fixture{engine: eng, store: st, mock: mock, now: &now}
}

func (f *fixture) seed(t *testing.T, alloc vesting.Allocation) {
	t.Helper()
	if err := f.store.Put(context.Background(), alloc); err != nil {
		t.Fatalf("seed allocation: %v", err)
	}
}

func linearAlloc(beneficiary string, start, end, total uint64) vesting.Allocation {
	return vesting.Allocation{
		Beneficiary: beneficiary,
		Schedules: []vesting.Schedule{{Points: []vesting.ReleasePoint{
			{Time: start, Amount: 0},
			{Time: end, Amount: total},
		}}},
	}
}

func TestClaim_LinearScenario(t *testing.T) {
	f := newFixture(t)
	f.seed(t, linearAlloc("alice", 0, 100, 1000))
	ctx := context.Background()

	*f.now = 50
	res, err := f.engine.Claim(ctx, "alice", "alice")
	if err != nil {
		t.Fatalf("claim at t=50: %v", err)
	}
	if res.Transferred != 500 {
		t.Fatalf("expected 500 transferred at t=50, got %d", res.Transferred)
	}

	// Same instant again: everything unlocked is already withdrawn.
	_, err = f.engine.Claim(ctx, "alice", "alice")
	if !errors.Is(err, vesting.ErrNothingToClaim) {
		t.Fatalf("expected ErrNothingToClaim, got %v", err)
	}

	*f.now = 100
	res, err = f.engine.Claim(ctx, "alice", "alice")
	if err != nil {
		t.Fatalf("claim at t=100: %v", err)
	}
	if res.Transferred != 500 {
		t.Fatalf("expected remaining 500 at t=100, got %d", res.Transferred)
	}
	if f.mock.Total("alice") != 1000 {
		t.Fatalf("expected 1000 total transferred, got %d", f.mock.Total("alice"))
	}
}

func TestClaim_Unauthorized(t *testing.T) {
	f := newFixture(t)
	f.seed(t, linearAlloc("alice", 0, 100, 1000))
	*f.now = 50
	if _, err := f.engine.Claim(context.Background(), "mallory", "alice"); !errors.Is(err, vesting.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if f.mock.Transfers != 0 {
		t.Fatalf("transfer invoked for unauthorized claim")
	}
}

func TestClaim_Delegate(t *testing.T) {
	f := newFixture(t)
	f.seed(t, linearAlloc("alice", 0, 100, 1000))
	*f.now = 100
	res, err := f.engine.Claim(context.Background(), "custodian", "alice")
	if err != nil {
		t.Fatalf("delegate claim: %v", err)
	}
	if res.Transferred != 1000 {
		t.Fatalf("expected 1000, got %d", res.Transferred)
	}
	if f.mock.Total("alice") != 1000 {
		t.Fatalf("funds must go to the beneficiary, not the caller")
	}
}

func TestClaim_NoAllocation(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.Claim(context.Background(), "bob", "bob"); !errors.Is(err, vesting.ErrNoAllocation) {
		t.Fatalf("expected ErrNoAllocation, got %v", err)
	}
}

func TestClaim_BeforeCliff(t *testing.T) {
	f := newFixture(t)
	f.seed(t, vesting.Allocation{
		Beneficiary: "alice",
		Schedules: []vesting.Schedule{{Points: []vesting.ReleasePoint{
			{Time: 100, Amount: 0},
			{Time: 200, Amount: 1000},
		}}},
	})
	*f.now = 50
	if _, err := f.engine.Claim(context.Background(), "alice", "alice"); !errors.Is(err, vesting.ErrNothingToClaim) {
		t.Fatalf("expected ErrNothingToClaim before cliff, got %v", err)
	}
}

func TestClaim_TransferFailureLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	f.seed(t, linearAlloc("alice", 0, 100, 1000))
	ctx := context.Background()

	before, err := f.store.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	*f.now = 50
	f.mock.FailNext = true
	_, err = f.engine.Claim(ctx, "alice", "alice")
	var failed *vesting.TransferFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected TransferFailedError, got %v", err)
	}

	after, err := f.store.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("persisted state changed across failed transfer:\nbefore %+v\nafter  %+v", before, after)
	}

	// The failed claim is retryable.
	res, err := f.engine.Claim(ctx, "alice", "alice")
	if err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if res.Transferred != 500 {
		t.Fatalf("expected 500 on retry, got %d", res.Transferred)
	}
}

func TestClaim_SQLiteLifecycle(t *testing.T) {
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "vestd.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer func() { _ = st.Close() }()
	mock := transfer.NewMock()
	now := uint64(0)
	eng, err := New(st, claimantIDs{}, mock, keymutex.New(), nil, nil,
		vesting.ClockFunc(func() uint64 { return now }), nil, "ASTRO")
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	ctx := context.Background()
	if err := st.Put(ctx, linearAlloc("alice", 0, 100, 1000)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	now = 50
	res, err := eng.Claim(ctx, "alice", "alice")
	if err != nil {
		t.Fatalf("claim at t=50: %v", err)
	}
	if res.Transferred != 500 {
		t.Fatalf("expected 500 transferred, got %d", res.Transferred)
	}
	row, err := st.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if row.Withdrawn != 500 || row.LastClaimAt != 50 || row.PendingClaim != nil {
		t.Fatalf("unexpected persisted row after claim: %+v", row)
	}

	// A failed transfer must leave the persisted row untouched.
	before, err := st.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	now = 80
	mock.FailAll = true
	_, err = eng.Claim(ctx, "alice", "alice")
	var failed *vesting.TransferFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected TransferFailedError, got %v", err)
	}
	after, err := st.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("persisted row changed across failed transfer:\nbefore %+v\nafter  %+v", before, after)
	}

	mock.FailAll = false
	res, err = eng.Claim(ctx, "alice", "alice")
	if err != nil {
		t.Fatalf("retry at t=80: %v", err)
	}
	if res.Transferred != 300 {
		t.Fatalf("expected 300 on retry, got %d", res.Transferred)
	}
}

// commitFailStore journals the claim intent but fails the commit that
// follows the transfer, modeling a crash after funds moved.
type commitFailStore struct {
	store.Store
	puts int
}

func (c *commitFailStore) Put(ctx context.Context, a vesting.Allocation) error {
	c.puts++
	if c.puts == 2 {
		return errors.New("disk full")
	}
	return c.Store.Put(ctx, a)
}

func TestClaim_CommitFailureBlocksRetry(t *testing.T) {
	cs := &commitFailStore{Store: store.NewMemoryStore()}
	mock := transfer.NewMock()
	now := uint64(50)
	eng, err := New(cs, claimantIDs{}, mock, keymutex.New(), nil, nil,
		vesting.ClockFunc(func() uint64 { return now }), nil, "ASTRO")
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	ctx := context.Background()
	if err := cs.Store.Put(ctx, linearAlloc("alice", 0, 100, 1000)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := eng.Claim(ctx, "alice", "alice"); err == nil {
		t.Fatalf("expected commit failure")
	}
	if mock.Total("alice") != 500 {
		t.Fatalf("expected one 500 transfer, got %d", mock.Total("alice"))
	}

	// The journaled intent blocks the retry instead of paying twice.
	if _, err := eng.Claim(ctx, "alice", "alice"); !errors.Is(err, vesting.ErrPendingClaim) {
		t.Fatalf("expected ErrPendingClaim on retry, got %v", err)
	}
	if mock.Transfers != 1 {
		t.Fatalf("retry moved funds again: %d transfers", mock.Transfers)
	}
}

func TestClaim_NoOverRelease(t *testing.T) {
	f := newFixture(t)
	f.seed(t, linearAlloc("alice", 0, 100, 1000))
	ctx := context.Background()

	// Adversarial time sequence, including regressions and repeats.
	for _, at := range []uint64{10, 5, 10, 37, 36, 99, 40, 100, 100, 4000} {
		*f.now = at
		_, err := f.engine.Claim(ctx, "alice", "alice")
		if err != nil && !errors.Is(err, vesting.ErrNothingToClaim) {
			t.Fatalf("claim at t=%d: %v", at, err)
		}
	}
	if got := f.mock.Total("alice"); got != 1000 {
		t.Fatalf("transferred %d, granted 1000", got)
	}
}

func TestClaim_ClockRegression(t *testing.T) {
	f := newFixture(t)
	f.seed(t, linearAlloc("alice", 0, 100, 1000))
	ctx := context.Background()

	*f.now = 80
	if _, err := f.engine.Claim(ctx, "alice", "alice"); err != nil {
		t.Fatalf("claim at t=80: %v", err)
	}

	// The environment clock regressed; the claim is evaluated at the last
	// claim time and nothing new is due.
	*f.now = 50
	if _, err := f.engine.Claim(ctx, "alice", "alice"); !errors.Is(err, vesting.ErrNothingToClaim) {
		t.Fatalf("expected ErrNothingToClaim on clock regression, got %v", err)
	}
	if got := f.mock.Total("alice"); got != 800 {
		t.Fatalf("expected 800 transferred, got %d", got)
	}
}

func TestSimulateWithdraw(t *testing.T) {
	f := newFixture(t)
	f.seed(t, linearAlloc("alice", 0, 100, 1000))
	ctx := context.Background()

	sim, err := f.engine.SimulateWithdraw(ctx, "alice", 50)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if sim.Claimable != 500 || sim.Unlocked != 500 || sim.Withdrawn != 0 {
		t.Fatalf("unexpected simulation: %+v", sim)
	}

	// Simulation must not mutate anything.
	if _, err := f.engine.SimulateWithdraw(ctx, "alice", 50); err != nil {
		t.Fatalf("second simulate: %v", err)
	}
	alloc, err := f.store.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if alloc.Withdrawn != 0 {
		t.Fatalf("simulation advanced withdrawn to %d", alloc.Withdrawn)
	}
	if f.mock.Transfers != 0 {
		t.Fatalf("simulation invoked the transfer collaborator")
	}
}

func TestUnlockedAtQuery(t *testing.T) {
	f := newFixture(t)
	f.seed(t, linearAlloc("alice", 0, 100, 1000))
	got, err := f.engine.UnlockedAt(context.Background(), "alice", 25)
	if err != nil {
		t.Fatalf("unlocked: %v", err)
	}
	if got != 250 {
		t.Fatalf("expected 250, got %d", got)
	}
}
