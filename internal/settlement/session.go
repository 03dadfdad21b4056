package settlement

// session.go — Settlement session lifecycle.
//
// A Session owns all mutable settlement state: the relayer quota counters
// and the set of condition ids already sent for redemption. It is created
// when the bot starts and discarded when it stops, so two bot runs never
// share redemption state.

import (
	"time"

	"github.com/alejandrodnm/polycopy/internal/ports"
)

// DefaultDiscoveryThreshold is the data API size filter applied to the
// funder scan. Lower than DustMin on purpose: the API filter is coarse and
// the dust cut happens client-side.
const DefaultDiscoveryThreshold = 0.1

// Config are the settlement knobs, all with working defaults in the bot
// configuration layer.
type Config struct {
	Funder string // proxy wallet holding the conditional tokens

	DailyTxLimit int           // relayer transactions per UTC day
	MinInterval  time.Duration // spacing between relayer submissions

	PollAttempts int           // transaction state polls before giving up
	PollInterval time.Duration // spacing between polls

	DiscoveryMax       int           // orphan candidates per sweep
	DiscoveryThreshold float64       // data API size filter for the funder scan
	DustMin            float64       // positions at or below this are dust
	RPCDelay           time.Duration // spacing between resolution probes
}

// Session coordinates resolution checks and batched redemptions for one bot
// run. Not safe for concurrent use; the runner serializes settlement sweeps.
type Session struct {
	cfg       Config
	chain     ports.ChainReader
	relay     ports.RelaySubmitter
	positions ports.PositionProvider

	quota *quotaState

	// Condition ids already included in a submitted batch. Entries are added
	// at submission time and never removed: a failed batch still spent the
	// attempt, and retrying the same condition within a session risks
	// double-spending quota on a redemption that may have landed.
	redeemed map[string]struct{}

	now func() time.Time
}

// NewSession creates a fresh settlement session with zeroed quota and an
// empty redeemed set.
func NewSession(cfg Config, chain ports.ChainReader, relay ports.RelaySubmitter, positions ports.PositionProvider) *Session {
	return &Session{
		cfg:       cfg,
		chain:     chain,
		relay:     relay,
		positions: positions,
		quota:     newQuotaState(cfg.DailyTxLimit, cfg.MinInterval),
		redeemed:  make(map[string]struct{}),
		now:       time.Now,
	}
}

// QuotaUsed returns how many relayer transactions this session spent today.
func (s *Session) QuotaUsed() int {
	s.quota.maybeRollover(s.now())
	return s.quota.used
}

// RedeemedCount returns how many condition ids were sent for redemption.
func (s *Session) RedeemedCount() int {
	return len(s.redeemed)
}

// Redeemed reports whether a condition id was already sent for redemption
// in this session.
func (s *Session) Redeemed(conditionID string) bool {
	_, ok := s.redeemed[conditionID]
	return ok
}
