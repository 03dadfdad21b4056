package bot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/alejandrodnm/polycopy/internal/ports"
)

// Settings son los overrides operacionales persistidos en el KV del ledger.
// Permiten cambiar el comportamiento del bot entre runs sin tocar el YAML.
type Settings struct {
	PollInterval time.Duration
	MaxTraders   int
	PaperTrading bool
}

// Claves del KV de settings.
const (
	settingPollInterval = "poll_interval_seconds"
	settingMaxTraders   = "max_traders"
	settingPaperTrading = "paper_trading"
)

// LoadSettings carga los overrides desde el ledger sobre los defaults dados.
// Un valor corrupto NO tumba el arranque: se reporta el error por campo y el
// campo mantiene su default, así el operador ve cada valor malo.
func LoadSettings(ctx context.Context, ledger ports.Ledger, defaults Settings) (Settings, []error) {
	out := defaults
	var errs []error

	raw, err := ledger.GetSetting(ctx, settingPollInterval, "")
	if err != nil {
		return out, []error{fmt.Errorf("bot.LoadSettings: %w", err)}
	}
	if raw != "" {
		if secs, err := strconv.Atoi(raw); err != nil || secs <= 0 {
			errs = append(errs, fmt.Errorf("settings.%s: invalid value %q, keeping %s",
				settingPollInterval, raw, defaults.PollInterval))
		} else {
			out.PollInterval = time.Duration(secs) * time.Second
		}
	}

	raw, _ = ledger.GetSetting(ctx, settingMaxTraders, "")
	if raw != "" {
		if n, err := strconv.Atoi(raw); err != nil || n <= 0 {
			errs = append(errs, fmt.Errorf("settings.%s: invalid value %q, keeping %d",
				settingMaxTraders, raw, defaults.MaxTraders))
		} else {
			out.MaxTraders = n
		}
	}

	raw, _ = ledger.GetSetting(ctx, settingPaperTrading, "")
	if raw != "" {
		if b, err := strconv.ParseBool(raw); err != nil {
			errs = append(errs, fmt.Errorf("settings.%s: invalid value %q, keeping %v",
				settingPaperTrading, raw, defaults.PaperTrading))
		} else {
			out.PaperTrading = b
		}
	}

	return out, errs
}
