package backoff

// Política de reintentos compartida por el fetch layer HTTP y el cooldown
// del settlement. Centraliza lo que antes eran sleeps sueltos por call site.

import (
	"context"
	"math"
	"time"
)

// Policy define un backoff exponencial: Delay(n) = Base * Multiplier^n.
type Policy struct {
	Base        time.Duration
	Multiplier  float64
	MaxAttempts int
	MaxDelay    time.Duration // 0 = sin tope
}

// Default es la política usada por los clients HTTP.
func Default() Policy {
	return Policy{
		Base:        500 * time.Millisecond,
		Multiplier:  2,
		MaxAttempts: 3,
		MaxDelay:    30 * time.Second,
	}
}

// Delay devuelve la espera para el intento dado (0-indexed).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := time.Duration(float64(p.Base) * math.Pow(p.Multiplier, float64(attempt)))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Exhausted devuelve true si ya no quedan intentos.
func (p Policy) Exhausted(attempt int) bool {
	return attempt >= p.MaxAttempts
}

// Sleep espera el delay del intento dado, respetando el contexto.
func (p Policy) Sleep(ctx context.Context, attempt int) error {
	select {
	case <-time.After(p.Delay(attempt)):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
