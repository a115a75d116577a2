package smc

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mkrv/smctune/internal/dynamics"
)

func TestFactoryCreateAllVariants(t *testing.T) {
	f := NewFactory(Config{Plant: testPlant()})
	for _, v := range Variants() {
		spec, _ := Spec(v)
		ctrl, err := f.Create(v, spec.Defaults)
		if err != nil {
			t.Fatalf("Create(%s): %v", v, err)
		}
		x := dynamics.State{0, 0.1, -0.05, 0, 0, 0}
		if _, err := ctrl.Compute(x, 0, 0.01); err != nil {
			t.Errorf("%s controller failed a valid step: %v", v, err)
		}
	}

	stats, err := f.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != len(Variants()) {
		t.Errorf("total created = %d, want %d", stats.Total, len(Variants()))
	}
	for _, v := range Variants() {
		if stats.ByVariant[v] != 1 {
			t.Errorf("created[%s] = %d, want 1", v, stats.ByVariant[v])
		}
	}
}

func TestFactoryCreateRejectsBadGains(t *testing.T) {
	f := NewFactory(Config{})
	_, err := f.Create(VariantSTA, []float64{1, 2, 3})
	var gerr *GainError
	if !errors.As(err, &gerr) {
		t.Fatalf("want *GainError, got %v", err)
	}

	stats, _ := f.Stats()
	if stats.Total != 0 {
		t.Error("rejected create still counted")
	}
}

func TestFactoryCreateUnknownVariant(t *testing.T) {
	f := NewFactory(Config{})
	if _, err := f.Create(Variant("pid"), nil); err == nil {
		t.Error("unknown variant accepted")
	}
}

func TestFactoryLockTimeout(t *testing.T) {
	f := NewFactory(Config{LockTimeout: 5 * time.Millisecond})

	// Occupy the registry lock so Create has to wait it out.
	f.sem <- struct{}{}
	defer func() { <-f.sem }()

	spec, _ := Spec(VariantClassical)
	start := time.Now()
	_, err := f.Create(VariantClassical, spec.Defaults)
	var lerr *LockTimeoutError
	if !errors.As(err, &lerr) {
		t.Fatalf("want *LockTimeoutError, got %v", err)
	}
	if !errors.Is(err, ErrLockTimeout) {
		t.Error("error does not unwrap to ErrLockTimeout")
	}
	if lerr.Timeout != 5*time.Millisecond {
		t.Errorf("reported timeout %v", lerr.Timeout)
	}
	if waited := time.Since(start); waited > time.Second {
		t.Errorf("create blocked %v, bound was 5ms", waited)
	}
}

func TestFactoryConcurrentCreateIsolation(t *testing.T) {
	f := NewFactory(Config{Plant: testPlant(), LockTimeout: time.Second})
	spec, _ := Spec(VariantClassical)
	x := dynamics.State{0, 0.12, -0.08, 0, 0.3, -0.2}

	const n = 64
	outs := make([]float64, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			g := append([]float64(nil), spec.Defaults...)
			g[4] = 1 + float64(i)*0.5 // distinct K per goroutine
			ctrl, err := f.Create(VariantClassical, g)
			if err != nil {
				errs[i] = err
				return
			}
			outs[i], errs[i] = ctrl.Compute(x, 0, 0.01)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("goroutine %d: %v", i, err)
		}
	}

	// Serial reference: the same gains must reproduce each output exactly,
	// proving no controller saw a neighbor's gains.
	for i := 0; i < n; i++ {
		g := append([]float64(nil), spec.Defaults...)
		g[4] = 1 + float64(i)*0.5
		ctrl, err := NewClassical(f.Config(), g)
		if err != nil {
			t.Fatal(err)
		}
		want, err := ctrl.Compute(x, 0, 0.01)
		if err != nil {
			t.Fatal(err)
		}
		if outs[i] != want {
			t.Fatalf("controller %d contaminated: got %v, want %v", i, outs[i], want)
		}
	}

	stats, err := f.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != n || stats.ByVariant[VariantClassical] != n {
		t.Errorf("counters: total=%d classical=%d, want %d", stats.Total, stats.ByVariant[VariantClassical], n)
	}
}

func TestFactoryDetachesGainSlice(t *testing.T) {
	f := NewFactory(Config{})
	g := []float64{5, 5, 5, 5, 0.5, 0.5}
	ctrl, err := f.Create(VariantClassical, g)
	if err != nil {
		t.Fatal(err)
	}
	x := dynamics.State{0, 0.1, 0.05, 0, 0, 0}
	before, _ := ctrl.Compute(x, 0, 0.01)

	// An optimizer reusing its position buffer must not reach the built
	// controller.
	for i := range g {
		g[i] = 99
	}
	after, _ := ctrl.Compute(x, 0, 0.01)
	if before != after {
		t.Errorf("output moved from %v to %v after mutating the caller slice", before, after)
	}
}
