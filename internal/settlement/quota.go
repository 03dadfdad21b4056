package settlement

// quota.go — Relayer transaction budget.
//
// The gasless relayer enforces a daily transaction allowance per funder. The
// gate tracks it client-side so the bot never submits a call it knows will
// be rejected: a hard daily ceiling, a minimum spacing between submissions,
// and a cooldown window entered whenever the relayer answers 429.
//
// A quota unit is consumed at SUBMISSION, not at confirmation: a submitted
// batch spends relayer budget even if it later fails on-chain.

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"
)

// cooldownHint matches the relayer's rate-limit message. When the hint is
// absent the gate falls back to a one-hour cooldown.
var cooldownHint = regexp.MustCompile(`resets in (\d+) seconds`)

const fallbackCooldown = time.Hour

// quotaState is the per-session transaction budget. Resets at UTC midnight.
type quotaState struct {
	dailyLimit  int
	minInterval time.Duration

	date          string // UTC date of the counters
	used          int
	lastSubmit    time.Time
	cooldownUntil time.Time
}

func newQuotaState(dailyLimit int, minInterval time.Duration) *quotaState {
	return &quotaState{dailyLimit: dailyLimit, minInterval: minInterval}
}

// check reports whether a submission is allowed right now. The returned
// reason is empty iff allowed.
func (q *quotaState) check(now time.Time) (bool, string) {
	q.maybeRollover(now)

	if now.Before(q.cooldownUntil) {
		remaining := q.cooldownUntil.Sub(now).Round(time.Second)
		return false, fmt.Sprintf("rate limit cooldown, %s remaining", remaining)
	}
	if q.used >= q.dailyLimit {
		return false, fmt.Sprintf("daily transaction limit reached (%d/%d)", q.used, q.dailyLimit)
	}
	if !q.lastSubmit.IsZero() && now.Sub(q.lastSubmit) < q.minInterval {
		wait := (q.minInterval - now.Sub(q.lastSubmit)).Round(time.Second)
		return false, fmt.Sprintf("min interval between transactions, %s remaining", wait)
	}
	return true, ""
}

// record consumes one quota unit for a submission made now.
func (q *quotaState) record(now time.Time) {
	q.maybeRollover(now)
	q.used++
	q.lastSubmit = now
}

// handleRateLimit enters a cooldown window derived from the relayer's error
// text. "resets in N seconds" is honored exactly; anything else gets the
// fallback hour.
func (q *quotaState) handleRateLimit(now time.Time, errText string) {
	cooldown := fallbackCooldown
	if m := cooldownHint.FindStringSubmatch(errText); m != nil {
		if secs, err := strconv.Atoi(m[1]); err == nil {
			cooldown = time.Duration(secs) * time.Second
		}
	}
	q.cooldownUntil = now.Add(cooldown)
	slog.Warn("settlement: relayer rate limited, entering cooldown",
		"cooldown", cooldown, "until", q.cooldownUntil.Format(time.RFC3339))
}

// maybeRollover resets the daily counters when the UTC date advances.
// The cooldown window is independent of the date and survives rollover.
func (q *quotaState) maybeRollover(now time.Time) {
	today := now.UTC().Format(time.DateOnly)
	if today != q.date {
		if q.date != "" {
			slog.Info("settlement: daily quota reset", "previous_used", q.used)
		}
		q.used = 0
		q.date = today
	}
}
