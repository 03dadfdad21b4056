package settlement

// coordinator.go — Resolution checks, batched redemption and orphan
// discovery.
//
// The redemption flow is deliberately conservative with relayer budget: the
// quota gate runs once per BATCH, not per condition, and a batch of N
// redemptions costs a single relayer transaction.

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

const outcomeSlots = 2 // binary markets only

// CheckResolved probes the CTF contract for a condition's resolution state.
// Any RPC failure is treated as "not resolved": settlement is retried on a
// later sweep, never guessed.
func (s *Session) CheckResolved(ctx context.Context, conditionID string) domain.Resolution {
	denom, err := s.chain.PayoutDenominator(ctx, conditionID)
	if err != nil {
		slog.Debug("settlement: denominator probe failed",
			"condition", conditionID, "err", err)
		return domain.Resolution{}
	}
	if denom == 0 {
		return domain.Resolution{}
	}

	numerators := make([]uint64, outcomeSlots)
	for i := 0; i < outcomeSlots; i++ {
		num, err := s.chain.PayoutNumerator(ctx, conditionID, i)
		if err != nil {
			slog.Debug("settlement: numerator probe failed",
				"condition", conditionID, "index", i, "err", err)
			return domain.Resolution{}
		}
		numerators[i] = num
	}

	return domain.Resolution{Resolved: true, Numerators: numerators}
}

// BatchRedeem submits one relayer transaction redeeming every condition id
// not yet sent in this session.
//
// Quota accounting: one unit is consumed when the relayer ACCEPTS the batch,
// and the ids join the redeemed set at the same moment — before any
// confirmation. Poll exhaustion is a provisional success (the transaction is
// in flight, resubmitting would double-spend); an explicit FAILED state is a
// failure, but the ids stay redeemed for the rest of the session.
func (s *Session) BatchRedeem(ctx context.Context, conditionIDs []string) domain.RedemptionResult {
	pending := make([]string, 0, len(conditionIDs))
	for _, cid := range conditionIDs {
		if cid == "" || s.Redeemed(cid) {
			continue
		}
		pending = append(pending, cid)
	}
	if len(pending) == 0 {
		return domain.RedemptionResult{Success: true, Note: "all already redeemed"}
	}

	if ok, reason := s.quota.check(s.now()); !ok {
		slog.Info("settlement: batch blocked by quota gate",
			"conditions", len(pending), "reason", reason)
		return domain.RedemptionResult{Err: reason}
	}

	calls := make([]domain.RelayCall, 0, len(pending))
	for _, cid := range pending {
		data, err := RedeemCalldata(cid)
		if err != nil {
			slog.Warn("settlement: skipping unencodable condition",
				"condition", cid, "err", err)
			continue
		}
		calls = append(calls, domain.RelayCall{
			To:    CTFAddress,
			Data:  data,
			Value: "0",
		})
	}
	if len(calls) == 0 {
		return domain.RedemptionResult{Err: "no encodable conditions in batch"}
	}

	sub, err := s.relay.SubmitBatch(ctx, calls, "redeem positions")
	if err != nil {
		if isRateLimit(err) {
			s.quota.handleRateLimit(s.now(), err.Error())
		}
		return domain.RedemptionResult{Err: err.Error()}
	}

	// Budget spent and conditions marked, regardless of what confirmation says
	s.quota.record(s.now())
	for _, cid := range pending {
		s.redeemed[cid] = struct{}{}
	}
	slog.Info("settlement: batch submitted",
		"conditions", len(pending), "transaction_id", sub.TransactionID)

	state, hash := s.pollTransaction(ctx, sub)
	switch state {
	case domain.RelayStateConfirmed, domain.RelayStateMined:
		return domain.RedemptionResult{Success: true, TxHash: hash, Redeemed: pending}
	case domain.RelayStateFailed:
		return domain.RedemptionResult{
			Redeemed: pending,
			Err:      "relayer transaction failed",
		}
	default:
		return domain.RedemptionResult{
			Success:  true,
			TxHash:   hash,
			Redeemed: pending,
			Note:     "submitted but unconfirmed",
		}
	}
}

// DiscoverAndRedeemOrphans scans the funder wallet for resolved positions
// the bot does not track (left over from crashes or manual trades) and
// redeems them in one batch.
func (s *Session) DiscoverAndRedeemOrphans(ctx context.Context, known map[string]struct{}) domain.RedemptionResult {
	positions, err := s.positions.FetchFunderPositions(ctx, s.cfg.Funder, s.cfg.DiscoveryThreshold)
	if err != nil {
		return domain.RedemptionResult{Err: "funder scan failed: " + err.Error()}
	}

	seen := make(map[string]struct{})
	candidates := make([]string, 0, s.cfg.DiscoveryMax)
	for _, pos := range positions {
		cid := pos.ConditionID
		if cid == "" || pos.Size <= s.cfg.DustMin {
			continue
		}
		if _, ok := known[cid]; ok {
			continue
		}
		if s.Redeemed(cid) {
			continue
		}
		if _, ok := seen[cid]; ok {
			continue
		}
		seen[cid] = struct{}{}
		candidates = append(candidates, cid)
		if len(candidates) >= s.cfg.DiscoveryMax {
			break
		}
	}
	if len(candidates) == 0 {
		return domain.RedemptionResult{Success: true, Note: "no orphans found"}
	}
	slog.Info("settlement: orphan candidates found", "count", len(candidates))

	resolved := make([]string, 0, len(candidates))
	for i, cid := range candidates {
		if s.CheckResolved(ctx, cid).Resolved {
			resolved = append(resolved, cid)
		}
		// Pace the RPC probes; free Polygon endpoints throttle aggressively
		if i < len(candidates)-1 && s.cfg.RPCDelay > 0 {
			select {
			case <-time.After(s.cfg.RPCDelay):
			case <-ctx.Done():
				return domain.RedemptionResult{Err: ctx.Err().Error()}
			}
		}
	}
	if len(resolved) == 0 {
		return domain.RedemptionResult{Success: true, Note: "no resolved orphans"}
	}

	return s.BatchRedeem(ctx, resolved)
}

// pollTransaction polls the relayer for a terminal state, bounded by the
// configured attempts. Returns the last observed state and hash.
func (s *Session) pollTransaction(ctx context.Context, sub domain.RelaySubmission) (domain.RelayState, string) {
	state, hash := domain.RelayStateSubmitted, sub.TxHash

	for attempt := 0; attempt < s.cfg.PollAttempts; attempt++ {
		if s.cfg.PollInterval > 0 {
			select {
			case <-time.After(s.cfg.PollInterval):
			case <-ctx.Done():
				return state, hash
			}
		}

		st, h, err := s.relay.TransactionState(ctx, sub.TransactionID)
		if err != nil {
			slog.Debug("settlement: state poll failed",
				"transaction_id", sub.TransactionID, "err", err)
			continue
		}
		state = st
		if h != "" {
			hash = h
		}
		if state.Terminal() {
			return state, hash
		}
	}

	slog.Warn("settlement: poll attempts exhausted, assuming in flight",
		"transaction_id", sub.TransactionID, "last_state", state)
	return state, hash
}

// isRateLimit recognizes a relayer 429, with or without the reset hint.
func isRateLimit(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "status 429") || cooldownHint.MatchString(msg)
}
