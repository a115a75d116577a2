package smc

import (
	"errors"
	"fmt"
	"time"

	"github.com/mkrv/smctune/internal/dynamics"
)

// ErrLockTimeout is the sentinel every *LockTimeoutError unwraps to.
var ErrLockTimeout = errors.New("smc: factory lock wait exceeded")

// LockTimeoutError reports a bounded registry-lock wait that expired. The
// lock is only ever held for counter updates, so the condition clears on
// retry.
type LockTimeoutError struct {
	Op      string
	Timeout time.Duration
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("smc: %s: lock not acquired within %s", e.Op, e.Timeout)
}

func (e *LockTimeoutError) Unwrap() error { return ErrLockTimeout }

// Stats is a snapshot of the factory's construction counters.
type Stats struct {
	Total     int
	ByVariant map[Variant]int
	Last      Variant
}

// Factory builds validated controllers. Create is safe to call from any
// number of goroutines: gains are validated before the lock is touched, the
// lock guards only the counters, and the wait on it is bounded by
// Config.LockTimeout. Controllers returned to concurrent callers share
// nothing mutable.
type Factory struct {
	cfg Config
	sem chan struct{}

	// guarded by sem
	created map[Variant]int
	total   int
	last    Variant
}

// NewFactory captures the structural configuration (with defaults filled)
// that every controller built by this factory shares.
func NewFactory(cfg Config) *Factory {
	return &Factory{
		cfg:     cfg.withDefaults(),
		sem:     make(chan struct{}, 1),
		created: make(map[Variant]int),
	}
}

// Config returns the defaulted configuration controllers are built with.
func (f *Factory) Config() Config { return f.cfg }

// Create validates gains against the variant's spec and returns a fresh
// controller. Failures are typed: *GainError for inadmissible gains,
// *LockTimeoutError when the registry lock cannot be acquired in time.
func (f *Factory) Create(v Variant, gains []float64) (dynamics.Controller, error) {
	spec, err := Spec(v)
	if err != nil {
		return nil, err
	}
	if err := spec.Validate(gains); err != nil {
		return nil, err
	}

	// Detach from the caller's slice; optimizers reuse position buffers.
	g := append([]float64(nil), gains...)

	release, err := f.acquire("create " + string(v))
	if err != nil {
		return nil, err
	}
	f.created[v]++
	f.total++
	f.last = v
	release()

	switch v {
	case VariantClassical:
		return NewClassical(f.cfg, g)
	case VariantSTA:
		return NewSuperTwisting(f.cfg, g)
	case VariantAdaptive:
		return NewAdaptive(f.cfg, g)
	default:
		return NewHybrid(f.cfg, g)
	}
}

// Stats acquires the registry lock with the same bounded wait Create uses
// and returns a copy of the counters.
func (f *Factory) Stats() (Stats, error) {
	release, err := f.acquire("stats")
	if err != nil {
		return Stats{}, err
	}
	defer release()

	by := make(map[Variant]int, len(f.created))
	for v, n := range f.created {
		by[v] = n
	}
	return Stats{Total: f.total, ByVariant: by, Last: f.last}, nil
}

func (f *Factory) acquire(op string) (func(), error) {
	timer := time.NewTimer(f.cfg.LockTimeout)
	defer timer.Stop()
	select {
	case f.sem <- struct{}{}:
		return func() { <-f.sem }, nil
	case <-timer.C:
		return nil, &LockTimeoutError{Op: op, Timeout: f.cfg.LockTimeout}
	}
}
