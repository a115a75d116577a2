// Package report renders tuning and simulation results to PNG files.
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/mkrv/smctune/internal/dynamics"
	"github.com/mkrv/smctune/internal/plant"
)

// saveLine renders one x/y series to a PNG at path.
func saveLine(path, title, xlabel, ylabel string, xs, ys []float64) error {
	if len(xs) != len(ys) || len(xs) == 0 {
		return fmt.Errorf("plot %s: series lengths %d and %d", filepath.Base(path), len(xs), len(ys))
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.LineStyle.Width = vg.Points(1.5)
	p.Add(line)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}

// Convergence plots the best cost per iteration of a tuning run.
func Convergence(path string, history []float64) error {
	iters := make([]float64, len(history))
	for i := range iters {
		iters[i] = float64(i)
	}
	return saveLine(path, "Best Cost per Iteration", "iteration", "cost", iters, history)
}

// Trajectory renders the standard four panels of a closed-loop run into dir:
// cart position, both link angles, and the control force.
func Trajectory(dir string, times []float64, states []dynamics.State, controls []float64) error {
	if len(states) != len(times) {
		return fmt.Errorf("trajectory: %d states for %d samples", len(states), len(times))
	}

	pos := make([]float64, len(states))
	th1 := make([]float64, len(states))
	th2 := make([]float64, len(states))
	for i, x := range states {
		pos[i] = x[plant.IdxCart]
		th1[i] = x[plant.IdxTheta1]
		th2[i] = x[plant.IdxTheta2]
	}

	if err := saveLine(filepath.Join(dir, "cart_position.png"), "Cart Position x(t)", "time (s)", "x (m)", times, pos); err != nil {
		return err
	}
	if err := saveLine(filepath.Join(dir, "theta1.png"), "First Link Angle (0 = upright)", "time (s)", "theta1 (rad)", times, th1); err != nil {
		return err
	}
	if err := saveLine(filepath.Join(dir, "theta2.png"), "Second Link Angle (0 = upright)", "time (s)", "theta2 (rad)", times, th2); err != nil {
		return err
	}

	// The control series is one sample shorter than the state series.
	n := min(len(controls), len(times))
	if n == 0 {
		return nil
	}
	return saveLine(filepath.Join(dir, "control.png"), "Control Force u(t)", "time (s)", "u (N)", times[:n], controls[:n])
}

// Surface plots the sliding-surface value along a trajectory.
func Surface(path string, times, sigma []float64) error {
	return saveLine(path, "Sliding Surface", "time (s)", "sigma", times, sigma)
}
