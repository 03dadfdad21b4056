package settlement

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

const condA = "0x" + "aa" + "00000000000000000000000000000000000000000000000000000000000000"

var condB = "0x" + strings.Repeat("bb", 32)

type fakeChain struct {
	denominators map[string]uint64
	denomErr     error
	numeratorErr error
	probes       int
}

func (f *fakeChain) PayoutDenominator(_ context.Context, conditionID string) (uint64, error) {
	f.probes++
	if f.denomErr != nil {
		return 0, f.denomErr
	}
	return f.denominators[conditionID], nil
}

func (f *fakeChain) PayoutNumerator(_ context.Context, conditionID string, index int) (uint64, error) {
	if f.numeratorErr != nil {
		return 0, f.numeratorErr
	}
	if index == 0 {
		return 1, nil
	}
	return 0, nil
}

type fakeRelay struct {
	submitErr   error
	submissions [][]domain.RelayCall
	states      []domain.RelayState
	stateIdx    int
	pollErr     error
}

func (f *fakeRelay) SubmitBatch(_ context.Context, calls []domain.RelayCall, _ string) (domain.RelaySubmission, error) {
	if f.submitErr != nil {
		return domain.RelaySubmission{}, f.submitErr
	}
	f.submissions = append(f.submissions, calls)
	return domain.RelaySubmission{TransactionID: "tx-1"}, nil
}

func (f *fakeRelay) TransactionState(context.Context, string) (domain.RelayState, string, error) {
	if f.pollErr != nil {
		return "", "", f.pollErr
	}
	if f.stateIdx >= len(f.states) {
		return domain.RelayStateSubmitted, "", nil
	}
	st := f.states[f.stateIdx]
	f.stateIdx++
	return st, "0xhash", nil
}

type fakeFunder struct {
	positions []domain.Position
	err       error
}

func (f *fakeFunder) FetchPositions(context.Context, string) (domain.Snapshot, error) {
	return nil, nil
}

func (f *fakeFunder) FetchFunderPositions(context.Context, string, float64) ([]domain.Position, error) {
	return f.positions, f.err
}

func testConfig() Config {
	return Config{
		Funder:             "0xfunder",
		DailyTxLimit:       80,
		MinInterval:        30 * time.Second,
		PollAttempts:       3,
		PollInterval:       0,
		DiscoveryMax:       5,
		DiscoveryThreshold: 0.1,
		DustMin:            0.5,
		RPCDelay:           0,
	}
}

func newTestSession(cfg Config, chain *fakeChain, relay *fakeRelay, funder *fakeFunder) *Session {
	if chain == nil {
		chain = &fakeChain{}
	}
	if relay == nil {
		relay = &fakeRelay{}
	}
	if funder == nil {
		funder = &fakeFunder{}
	}
	s := NewSession(cfg, chain, relay, funder)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	return s
}

// --- calldata ---

func TestRedeemCalldata_Layout(t *testing.T) {
	data, err := RedeemCalldata(condB)
	require.NoError(t, err)

	expected := "0x01b7037c" +
		"0000000000000000000000002791bca1f2de4661ed88a30c99a7a9449aa84174" +
		strings.Repeat("0", 64) +
		strings.Repeat("bb", 32) +
		"0000000000000000000000000000000000000000000000000000000000000080" +
		"0000000000000000000000000000000000000000000000000000000000000002" +
		"0000000000000000000000000000000000000000000000000000000000000001" +
		"0000000000000000000000000000000000000000000000000000000000000002"
	assert.Equal(t, expected, data)
}

func TestRedeemCalldata_BadConditionID(t *testing.T) {
	_, err := RedeemCalldata("0x1234")
	assert.Error(t, err)
}

// --- resolution ---

func TestCheckResolved(t *testing.T) {
	chain := &fakeChain{denominators: map[string]uint64{condA: 1}}
	s := newTestSession(testConfig(), chain, nil, nil)

	res := s.CheckResolved(context.Background(), condA)
	require.True(t, res.Resolved)
	assert.Equal(t, []uint64{1, 0}, res.Numerators)

	assert.False(t, s.CheckResolved(context.Background(), condB).Resolved, "denominator 0 means unresolved")
}

func TestCheckResolved_RPCFailureMeansUnresolved(t *testing.T) {
	chain := &fakeChain{denomErr: fmt.Errorf("rpc timeout")}
	s := newTestSession(testConfig(), chain, nil, nil)
	assert.False(t, s.CheckResolved(context.Background(), condA).Resolved)

	chain = &fakeChain{denominators: map[string]uint64{condA: 1}, numeratorErr: fmt.Errorf("rpc timeout")}
	s = newTestSession(testConfig(), chain, nil, nil)
	assert.False(t, s.CheckResolved(context.Background(), condA).Resolved)
}

// --- batch redeem ---

func TestBatchRedeem_ConfirmedBatch(t *testing.T) {
	relay := &fakeRelay{states: []domain.RelayState{domain.RelayStateConfirmed}}
	s := newTestSession(testConfig(), nil, relay, nil)

	result := s.BatchRedeem(context.Background(), []string{condA, condB})

	require.True(t, result.Success)
	assert.Equal(t, "0xhash", result.TxHash)
	assert.Equal(t, []string{condA, condB}, result.Redeemed)

	require.Len(t, relay.submissions, 1)
	assert.Len(t, relay.submissions[0], 2, "one sub-call per condition, one relayer tx")
	assert.Equal(t, CTFAddress, relay.submissions[0][0].To)
	assert.Equal(t, "0", relay.submissions[0][0].Value)

	assert.Equal(t, 1, s.QuotaUsed(), "a batch of N costs one quota unit")
	assert.True(t, s.Redeemed(condA))
	assert.True(t, s.Redeemed(condB))
}

func TestBatchRedeem_SecondCallIsNoop(t *testing.T) {
	relay := &fakeRelay{states: []domain.RelayState{domain.RelayStateConfirmed}}
	s := newTestSession(testConfig(), nil, relay, nil)

	s.BatchRedeem(context.Background(), []string{condA})
	result := s.BatchRedeem(context.Background(), []string{condA})

	assert.True(t, result.Success)
	assert.Equal(t, "all already redeemed", result.Note)
	assert.Len(t, relay.submissions, 1)
	assert.Equal(t, 1, s.QuotaUsed())
}

func TestBatchRedeem_PollExhaustionIsProvisionalSuccess(t *testing.T) {
	relay := &fakeRelay{} // never reaches a terminal state
	s := newTestSession(testConfig(), nil, relay, nil)

	result := s.BatchRedeem(context.Background(), []string{condA})

	assert.True(t, result.Success)
	assert.Equal(t, "submitted but unconfirmed", result.Note)
	assert.True(t, s.Redeemed(condA))
}

func TestBatchRedeem_FailedStateKeepsIDsRedeemed(t *testing.T) {
	relay := &fakeRelay{states: []domain.RelayState{domain.RelayStateFailed}}
	s := newTestSession(testConfig(), nil, relay, nil)

	result := s.BatchRedeem(context.Background(), []string{condA})

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Err)
	// Quota was spent at submission and the id is not retried this session
	assert.Equal(t, 1, s.QuotaUsed())
	assert.True(t, s.Redeemed(condA))
}

func TestBatchRedeem_SubmitErrorSpendsNothing(t *testing.T) {
	relay := &fakeRelay{submitErr: fmt.Errorf("status 502: bad gateway")}
	s := newTestSession(testConfig(), nil, relay, nil)

	result := s.BatchRedeem(context.Background(), []string{condA})

	assert.False(t, result.Success)
	assert.Zero(t, s.QuotaUsed())
	assert.False(t, s.Redeemed(condA))
}

func TestBatchRedeem_RateLimitEntersCooldown(t *testing.T) {
	relay := &fakeRelay{submitErr: fmt.Errorf("status 429: rate limit exceeded, resets in 1800 seconds")}
	s := newTestSession(testConfig(), nil, relay, nil)

	result := s.BatchRedeem(context.Background(), []string{condA})
	assert.False(t, result.Success)

	// Cooldown honors the relayer's hint: 1800s from now
	relay.submitErr = nil
	result = s.BatchRedeem(context.Background(), []string{condA})
	assert.Contains(t, result.Err, "cooldown")
	assert.Contains(t, result.Err, "30m0s")
}

func TestBatchRedeem_RateLimitWithoutHintFallsBackToHour(t *testing.T) {
	relay := &fakeRelay{submitErr: fmt.Errorf("status 429: too many requests")}
	s := newTestSession(testConfig(), nil, relay, nil)

	s.BatchRedeem(context.Background(), []string{condA})

	relay.submitErr = nil
	result := s.BatchRedeem(context.Background(), []string{condB})
	assert.Contains(t, result.Err, "1h0m0s")
}

// --- quota gate ---

func TestQuota_MinIntervalAndDailyLimit(t *testing.T) {
	q := newQuotaState(2, 30*time.Second)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	ok, _ := q.check(base)
	require.True(t, ok)
	q.record(base)

	// 10s después: bloqueado por min interval
	ok, reason := q.check(base.Add(10 * time.Second))
	assert.False(t, ok)
	assert.Contains(t, reason, "min interval")

	// 30s después: permitido, y consume el segundo (y último) slot del día
	ok, _ = q.check(base.Add(30 * time.Second))
	require.True(t, ok)
	q.record(base.Add(30 * time.Second))

	ok, reason = q.check(base.Add(2 * time.Minute))
	assert.False(t, ok)
	assert.Contains(t, reason, "daily transaction limit")

	// Medianoche UTC: el contador diario resetea
	nextDay := time.Date(2026, 3, 2, 0, 0, 1, 0, time.UTC)
	ok, _ = q.check(nextDay)
	assert.True(t, ok)
}

func TestQuota_CooldownSurvivesRollover(t *testing.T) {
	q := newQuotaState(80, 0)
	base := time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)

	q.handleRateLimit(base, "resets in 3600 seconds")

	// Tras medianoche el contador resetea pero el cooldown sigue vigente
	afterMidnight := time.Date(2026, 3, 2, 0, 10, 0, 0, time.UTC)
	ok, reason := q.check(afterMidnight)
	assert.False(t, ok)
	assert.Contains(t, reason, "cooldown")

	ok, _ = q.check(base.Add(2 * time.Hour))
	assert.True(t, ok)
}

// --- orphan discovery ---

func orphan(conditionID string, size float64) domain.Position {
	return domain.Position{MarketID: "m_" + conditionID[:6], ConditionID: conditionID, Size: size}
}

func TestDiscoverOrphans_FiltersAndRedeems(t *testing.T) {
	condC := "0x" + strings.Repeat("cc", 32)
	funder := &fakeFunder{positions: []domain.Position{
		orphan(condA, 10),   // resolved orphan → redeem
		orphan(condA, 8),    // duplicado del mismo condition
		orphan(condB, 0.4),  // dust
		orphan(condC, 12),   // tracked por el bot
		{MarketID: "m", Size: 5}, // sin condition id
	}}
	chain := &fakeChain{denominators: map[string]uint64{condA: 1}}
	relay := &fakeRelay{states: []domain.RelayState{domain.RelayStateConfirmed}}
	s := newTestSession(testConfig(), chain, relay, funder)

	known := map[string]struct{}{condC: {}}
	result := s.DiscoverAndRedeemOrphans(context.Background(), known)

	require.True(t, result.Success)
	assert.Equal(t, []string{condA}, result.Redeemed)
	require.Len(t, relay.submissions, 1)
	assert.Len(t, relay.submissions[0], 1)
}

func TestDiscoverOrphans_CapsCandidates(t *testing.T) {
	var positions []domain.Position
	for i := 0; i < 10; i++ {
		cid := fmt.Sprintf("0x%02x%s", i, strings.Repeat("00", 31))
		positions = append(positions, orphan(cid, 5))
	}
	funder := &fakeFunder{positions: positions}
	chain := &fakeChain{}
	s := newTestSession(testConfig(), chain, nil, funder)

	result := s.DiscoverAndRedeemOrphans(context.Background(), nil)

	assert.True(t, result.Success)
	assert.Equal(t, "no resolved orphans", result.Note)
	assert.Equal(t, 5, chain.probes, "a lo sumo DiscoveryMax probes por sweep")
}

func TestDiscoverOrphans_NoCandidates(t *testing.T) {
	s := newTestSession(testConfig(), nil, nil, &fakeFunder{})
	result := s.DiscoverAndRedeemOrphans(context.Background(), nil)
	assert.True(t, result.Success)
	assert.Equal(t, "no orphans found", result.Note)
}

func TestDiscoverOrphans_ScanFailure(t *testing.T) {
	funder := &fakeFunder{err: fmt.Errorf("data api down")}
	s := newTestSession(testConfig(), nil, nil, funder)
	result := s.DiscoverAndRedeemOrphans(context.Background(), nil)
	assert.False(t, result.Success)
	assert.Contains(t, result.Err, "funder scan failed")
}
