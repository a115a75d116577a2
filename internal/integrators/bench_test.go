package integrators

import (
	"testing"

	"github.com/mkrv/smctune/internal/dynamics"
	"github.com/mkrv/smctune/internal/plant"
)

func BenchmarkEuler(b *testing.B) {
	integ := NewEuler()
	x := dynamics.State{1, 0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integ.Step(oscillator{}, x, 0, 0, 0.01)
	}
}

func BenchmarkRK4(b *testing.B) {
	integ := NewRK4()
	x := dynamics.State{1, 0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integ.Step(oscillator{}, x, 0, 0, 0.01)
	}
}

func BenchmarkRK45(b *testing.B) {
	integ := NewRK45()
	x := dynamics.State{1, 0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integ.Step(oscillator{}, x, 0, 0, 0.01)
	}
}

func BenchmarkRK4DoublePendulum(b *testing.B) {
	integ := NewRK4()
	sys := plant.NewDoublePendulum(plant.DefaultParams())
	x := dynamics.State{0, 0.1, -0.05, 0, 0, 0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integ.Step(sys, x, 0, 0, 0.001)
	}
}
