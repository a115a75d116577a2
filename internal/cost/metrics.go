package cost

import (
	"math"

	"github.com/mkrv/smctune/internal/dynamics"
	"github.com/mkrv/smctune/internal/plant"
)

// The metrics here implement dynamics.Metric and watch a closed-loop run
// sample by sample. The evaluator weighs their values into one cost.

// TrackingISE integrates the squared pendulum-angle errors over the run.
type TrackingISE struct {
	target  dynamics.State
	sum     float64
	prevT   float64
	started bool
}

func NewTrackingISE(target dynamics.State) *TrackingISE {
	return &TrackingISE{target: target}
}

func (m *TrackingISE) Name() string { return "tracking_ise" }

func (m *TrackingISE) Observe(x dynamics.State, u float64, t float64) {
	if m.started {
		if dt := t - m.prevT; dt > 0 {
			e1, e2 := m.errors(x)
			m.sum += (e1*e1 + e2*e2) * dt
		}
	}
	m.prevT = t
	m.started = true
}

func (m *TrackingISE) Value() float64 { return m.sum }

func (m *TrackingISE) Reset() {
	m.sum = 0
	m.prevT = 0
	m.started = false
}

func (m *TrackingISE) errors(x dynamics.State) (float64, float64) {
	e1 := x[plant.IdxTheta1]
	e2 := x[plant.IdxTheta2]
	if m.target != nil {
		e1 -= m.target[plant.IdxTheta1]
		e2 -= m.target[plant.IdxTheta2]
	}
	return e1, e2
}

// ControlRMS is the root-mean-square actuator force.
type ControlRMS struct {
	sumSq   float64
	samples int
}

func NewControlRMS() *ControlRMS { return &ControlRMS{} }

func (m *ControlRMS) Name() string { return "control_rms" }

func (m *ControlRMS) Observe(x dynamics.State, u float64, t float64) {
	m.sumSq += u * u
	m.samples++
}

func (m *ControlRMS) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return math.Sqrt(m.sumSq / float64(m.samples))
}

func (m *ControlRMS) Reset() {
	m.sumSq = 0
	m.samples = 0
}

// Chattering is the mean |du/dt| over the run, the time-domain chattering
// index. Bang-bang switching inflates it by orders of magnitude over a
// boundary-layer law.
type Chattering struct {
	sum     float64
	samples int
	prevU   float64
	prevT   float64
	started bool
}

func NewChattering() *Chattering { return &Chattering{} }

func (m *Chattering) Name() string { return "chattering" }

func (m *Chattering) Observe(x dynamics.State, u float64, t float64) {
	if m.started {
		if dt := t - m.prevT; dt > 0 {
			m.sum += math.Abs(u-m.prevU) / dt
			m.samples++
		}
	}
	m.prevU = u
	m.prevT = t
	m.started = true
}

func (m *Chattering) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *Chattering) Reset() {
	m.sum = 0
	m.samples = 0
	m.prevU = 0
	m.prevT = 0
	m.started = false
}

// Overshoot reports the worst excursion past the target among the two
// pendulum angles, as a percentage of that angle's initial error. Zero for
// trajectories that only decay.
type Overshoot struct {
	target  dynamics.State
	init    [2]float64
	worst   [2]float64
	started bool
}

func NewOvershoot(target dynamics.State) *Overshoot {
	return &Overshoot{target: target}
}

func (m *Overshoot) Name() string { return "overshoot_pct" }

func (m *Overshoot) Observe(x dynamics.State, u float64, t float64) {
	e1 := x[plant.IdxTheta1]
	e2 := x[plant.IdxTheta2]
	if m.target != nil {
		e1 -= m.target[plant.IdxTheta1]
		e2 -= m.target[plant.IdxTheta2]
	}
	if !m.started {
		m.init = [2]float64{e1, e2}
		m.started = true
		return
	}
	for i, e := range [2]float64{e1, e2} {
		if m.init[i] == 0 {
			continue
		}
		// Excursion on the far side of the target from where it started.
		over := -e * sign(m.init[i])
		if over > m.worst[i] {
			m.worst[i] = over
		}
	}
}

func (m *Overshoot) Value() float64 {
	v := 0.0
	for i := range m.worst {
		if m.init[i] == 0 {
			continue
		}
		pct := 100 * m.worst[i] / math.Abs(m.init[i])
		if pct > v {
			v = pct
		}
	}
	return v
}

func (m *Overshoot) Reset() {
	m.init = [2]float64{}
	m.worst = [2]float64{}
	m.started = false
}

// Settling tracks the last time either pendulum angle error sat outside the
// band, so a run that never settles scores its full duration.
type Settling struct {
	target      dynamics.State
	band        float64
	lastOutside float64
}

func NewSettling(target dynamics.State, band float64) *Settling {
	return &Settling{target: target, band: band}
}

func (m *Settling) Name() string { return "settling_time" }

func (m *Settling) Observe(x dynamics.State, u float64, t float64) {
	e1 := x[plant.IdxTheta1]
	e2 := x[plant.IdxTheta2]
	if m.target != nil {
		e1 -= m.target[plant.IdxTheta1]
		e2 -= m.target[plant.IdxTheta2]
	}
	if math.Abs(e1) > m.band || math.Abs(e2) > m.band {
		m.lastOutside = t
	}
}

func (m *Settling) Value() float64 { return m.lastOutside }

func (m *Settling) Reset() { m.lastOutside = 0 }

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
