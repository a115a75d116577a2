package smc

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Variant names a controller family.
type Variant string

const (
	VariantClassical Variant = "classical"
	VariantSTA       Variant = "sta"
	VariantAdaptive  Variant = "adaptive"
	VariantHybrid    Variant = "hybrid"
)

// Variants lists the supported controller families in display order.
func Variants() []Variant {
	return []Variant{VariantClassical, VariantSTA, VariantAdaptive, VariantHybrid}
}

// ParseVariant resolves a user-facing name, accepting the common aliases
// for the super-twisting algorithm.
func ParseVariant(name string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "classical":
		return VariantClassical, nil
	case "sta", "super-twisting", "supertwisting":
		return VariantSTA, nil
	case "adaptive":
		return VariantAdaptive, nil
	case "hybrid":
		return VariantHybrid, nil
	}
	return "", fmt.Errorf("unknown controller variant %q (want one of %v)", name, Variants())
}

// ErrGainValidation is the sentinel every *GainError unwraps to.
var ErrGainValidation = errors.New("smc: gain validation failed")

// GainError reports every violation found in a candidate gain vector, not
// just the first.
type GainError struct {
	Variant    Variant
	Violations []string
}

func (e *GainError) Error() string {
	return fmt.Sprintf("smc: %s gains rejected: %s", e.Variant, strings.Join(e.Violations, "; "))
}

func (e *GainError) Unwrap() error { return ErrGainValidation }

// Constraint is a cross-gain admissibility condition beyond the per-element
// box bounds.
type Constraint struct {
	Desc  string
	Check func(gains []float64) bool
}

// GainSpec describes one variant's gain vector: element names, box bounds,
// workable defaults, and structural constraints. The optimizer treats
// Lower/Upper as its search box.
type GainSpec struct {
	Variant     Variant
	Names       []string
	Lower       []float64
	Upper       []float64
	Defaults    []float64
	Constraints []Constraint
}

// Dim is the expected gain vector length.
func (s GainSpec) Dim() int { return len(s.Names) }

// Bounds returns copies of the box bounds, safe for the caller to mutate.
func (s GainSpec) Bounds() (lower, upper []float64) {
	lower = append([]float64(nil), s.Lower...)
	upper = append([]float64(nil), s.Upper...)
	return lower, upper
}

// Validate checks a candidate vector against the spec and collects every
// violation into a *GainError.
func (s GainSpec) Validate(gains []float64) error {
	var violations []string
	if len(gains) != s.Dim() {
		violations = append(violations,
			fmt.Sprintf("expected %d gains, got %d", s.Dim(), len(gains)))
		return &GainError{Variant: s.Variant, Violations: violations}
	}
	for i, g := range gains {
		switch {
		case math.IsNaN(g) || math.IsInf(g, 0):
			violations = append(violations,
				fmt.Sprintf("%s must be finite, got %v", s.Names[i], g))
		case g < s.Lower[i]:
			violations = append(violations,
				fmt.Sprintf("%s=%g below lower bound %g", s.Names[i], g, s.Lower[i]))
		case g > s.Upper[i]:
			violations = append(violations,
				fmt.Sprintf("%s=%g above upper bound %g", s.Names[i], g, s.Upper[i]))
		}
	}
	if len(violations) == 0 {
		for _, c := range s.Constraints {
			if !c.Check(gains) {
				violations = append(violations, c.Desc)
			}
		}
	}
	if len(violations) > 0 {
		return &GainError{Variant: s.Variant, Violations: violations}
	}
	return nil
}

var specs = map[Variant]GainSpec{
	VariantClassical: {
		Variant:  VariantClassical,
		Names:    []string{"k1", "k2", "lam1", "lam2", "K", "kd"},
		Lower:    []float64{0.1, 0.1, 0.05, 0.05, 0.1, 0},
		Upper:    []float64{100, 100, 50, 50, 300, 50},
		Defaults: []float64{5, 5, 5, 5, 0.5, 0.5},
	},
	VariantSTA: {
		Variant:  VariantSTA,
		Names:    []string{"K1", "K2", "k1", "k2", "lam1", "lam2"},
		Lower:    []float64{0.5, 0.1, 0.1, 0.1, 0.05, 0.05},
		Upper:    []float64{300, 150, 100, 100, 50, 50},
		Defaults: []float64{15, 8, 8, 6, 4, 3},
		Constraints: []Constraint{
			{
				Desc:  "K1 > K2 (super-twisting convergence condition)",
				Check: func(g []float64) bool { return g[0] > g[1] },
			},
		},
	},
	VariantAdaptive: {
		Variant:  VariantAdaptive,
		Names:    []string{"k1", "k2", "lam1", "lam2", "gamma"},
		Lower:    []float64{0.1, 0.1, 0.05, 0.05, 0.1},
		Upper:    []float64{100, 100, 50, 50, 20},
		Defaults: []float64{10, 8, 4, 3, 2},
	},
	VariantHybrid: {
		Variant:  VariantHybrid,
		Names:    []string{"c1", "lam1", "c2", "lam2"},
		Lower:    []float64{0.1, 0.05, 0.1, 0.05},
		Upper:    []float64{100, 50, 100, 50},
		Defaults: []float64{5, 5, 5, 5},
	},
}

// Spec returns the gain schema for a variant.
func Spec(v Variant) (GainSpec, error) {
	s, ok := specs[v]
	if !ok {
		return GainSpec{}, fmt.Errorf("unknown controller variant %q (want one of %v)", v, Variants())
	}
	return s, nil
}

// Validate checks gains against the named variant's spec.
func Validate(v Variant, gains []float64) error {
	s, err := Spec(v)
	if err != nil {
		return err
	}
	return s.Validate(gains)
}

// SurfaceFromGains extracts the sliding surface a validated gain vector
// describes. Each variant stores the surface weights at different offsets.
func SurfaceFromGains(v Variant, gains []float64) (Surface, error) {
	if err := Validate(v, gains); err != nil {
		return Surface{}, err
	}
	switch v {
	case VariantSTA:
		return Surface{K1: gains[2], K2: gains[3], Lam1: gains[4], Lam2: gains[5]}, nil
	case VariantHybrid:
		return Surface{K1: gains[0], Lam1: gains[1], K2: gains[2], Lam2: gains[3]}, nil
	default:
		return Surface{K1: gains[0], K2: gains[1], Lam1: gains[2], Lam2: gains[3]}, nil
	}
}
