package credit

import "fmt"

const (
	defaultPoolPrincipal       = 10_000_000 // 10 units of a 6-decimal asset
	defaultPoolDurationSeconds = 86400 * 14
	defaultPoolAprBps          = 1000
)

// PoolTerms are the fixed reference terms applied to every pool-funded loan.
type PoolTerms struct {
	Principal       uint64 `toml:"Principal"`
	DurationSeconds int64  `toml:"DurationSeconds"`
	AprBps          uint16 `toml:"AprBps"`
}

// DefaultPoolTerms returns the minimum-viable pool loan: 10 units for 14 days
// at 10% APR.
func DefaultPoolTerms() PoolTerms {
	return PoolTerms{
		Principal:       defaultPoolPrincipal,
		DurationSeconds: defaultPoolDurationSeconds,
		AprBps:          defaultPoolAprBps,
	}
}

func (t PoolTerms) Validate() error {
	if t.Principal == 0 {
		return fmt.Errorf("%w: pool principal must be positive", ErrInvalidParams)
	}
	if t.DurationSeconds <= 0 {
		return fmt.Errorf("%w: pool loan duration must be positive", ErrInvalidParams)
	}
	return nil
}

// EnsureDefaults fills zero-valued fields from DefaultPoolTerms.
func (t *PoolTerms) EnsureDefaults() {
	defaults := DefaultPoolTerms()
	if t.Principal == 0 {
		t.Principal = defaults.Principal
	}
	if t.DurationSeconds == 0 {
		t.DurationSeconds = defaults.DurationSeconds
	}
	if t.AprBps == 0 {
		t.AprBps = defaults.AprBps
	}
}
