package optim

import (
	"context"
	"fmt"
	"math"
)

// Grid exhaustively evaluates a regular lattice over the same bounds box
// the swarm searches. It is a slow, assumption-free cross-check for low
// dimensions; the point count applies per dimension.
type Grid struct {
	lower  []float64
	upper  []float64
	points int
}

func NewGrid(lower, upper []float64, points int) (*Grid, error) {
	if len(lower) == 0 || len(lower) != len(upper) {
		return nil, fmt.Errorf("%w: bounds must be non-empty and equal length", ErrBadConfig)
	}
	for d := range lower {
		if !(lower[d] < upper[d]) {
			return nil, fmt.Errorf("%w: lower bound %v not below upper %v at dim %d",
				ErrBadConfig, lower[d], upper[d], d)
		}
	}
	if points < 2 {
		return nil, fmt.Errorf("%w: need at least 2 points per dimension, got %d", ErrBadConfig, points)
	}
	return &Grid{
		lower:  append([]float64(nil), lower...),
		upper:  append([]float64(nil), upper...),
		points: points,
	}, nil
}

// Search walks the lattice depth-first. Cancellation is honored between
// evaluations and returns the best point found so far with the context
// error.
func (g *Grid) Search(ctx context.Context, obj Objective) (*Result, error) {
	if obj == nil {
		return nil, fmt.Errorf("%w: nil objective", ErrBadConfig)
	}
	res := &Result{BestCost: math.Inf(1), StopReason: "lattice exhausted"}
	pos := make([]float64, len(g.lower))
	err := g.walk(ctx, obj, 0, pos, res)
	res.Iterations = res.Evaluations
	if err != nil {
		res.StopReason = "cancelled"
	}
	return res, err
}

func (g *Grid) walk(ctx context.Context, obj Objective, depth int, pos []float64, res *Result) error {
	if depth == len(pos) {
		if err := ctx.Err(); err != nil {
			return err
		}
		cost := obj(ctx, append([]float64(nil), pos...))
		res.Evaluations++
		if cost < res.BestCost {
			res.BestCost = cost
			res.BestPos = append([]float64(nil), pos...)
			res.History = append(res.History, cost)
		}
		return nil
	}
	span := g.upper[depth] - g.lower[depth]
	for i := 0; i < g.points; i++ {
		pos[depth] = g.lower[depth] + span*float64(i)/float64(g.points-1)
		if err := g.walk(ctx, obj, depth+1, pos, res); err != nil {
			return err
		}
	}
	return nil
}
