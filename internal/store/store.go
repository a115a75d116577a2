package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/mkrv/smctune/internal/dynamics"
)

// Store persists simulation runs and tuning results under a base directory.
// Each run gets its own subdirectory holding metadata.json and states.csv;
// tuning results are single JSON documents under tunes/.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	if err := os.MkdirAll(s.runsDir(), 0o755); err != nil {
		return err
	}
	return os.MkdirAll(s.tunesDir(), 0o755)
}

func (s *Store) runsDir() string  { return filepath.Join(s.baseDir, "runs") }
func (s *Store) tunesDir() string { return filepath.Join(s.baseDir, "tunes") }

type RunMetadata struct {
	ID         string             `json:"id"`
	Variant    string             `json:"variant"`
	Timestamp  time.Time          `json:"timestamp"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	Integrator string             `json:"integrator"`
	Gains      []float64          `json:"gains"`
	Success    bool               `json:"success"`
	Metrics    map[string]float64 `json:"metrics"`
}

// SaveRun writes the trajectory plus its metadata and returns the generated
// run id.
func (s *Store) SaveRun(variant string, gains []float64, duration float64, res *dynamics.Result) (string, error) {
	runID := fmt.Sprintf("%s_%d", variant, time.Now().UnixNano())
	runDir := filepath.Join(s.runsDir(), runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Variant:    variant,
		Timestamp:  time.Now(),
		Dt:         res.Dt,
		Duration:   duration,
		Integrator: res.Integrator,
		Gains:      gains,
		Success:    res.Success,
		Metrics:    res.Metrics,
	}
	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}
	if err := writeTrajectory(filepath.Join(runDir, "states.csv"), res); err != nil {
		return "", err
	}
	return runID, nil
}

func writeTrajectory(path string, res *dynamics.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if len(res.States) == 0 {
		return nil
	}

	header := []string{"time"}
	for i := range res.States[0] {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	header = append(header, "u")
	if err := w.Write(header); err != nil {
		return err
	}

	for i, x := range res.States {
		row := make([]string, 0, len(header))
		row = append(row, formatFloat(res.Times[i]))
		for _, v := range x {
			row = append(row, formatFloat(v))
		}
		// Controls are per step; the final state carries a zero.
		u := 0.0
		if i < len(res.Controls) {
			u = res.Controls[i]
		}
		row = append(row, formatFloat(u))
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 15, 64)
}

func (s *Store) ListRuns() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.runsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.LoadRun(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) LoadRun(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.runsDir(), runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadTrajectory reads back a saved trajectory. The control column mirrors
// SaveRun, so the final sample's control is zero.
func (s *Store) LoadTrajectory(runID string) (times []float64, states []dynamics.State, controls []float64, err error) {
	file, err := os.Open(filepath.Join(s.runsDir(), runID, "states.csv"))
	if err != nil {
		return nil, nil, nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, nil, nil, err
	}
	if len(records) < 2 {
		return []float64{}, []dynamics.State{}, []float64{}, nil
	}

	for _, record := range records[1:] {
		if len(record) < 3 {
			return nil, nil, nil, fmt.Errorf("trajectory row has %d columns, want at least 3", len(record))
		}
		tv, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("parse time %q: %w", record[0], err)
		}
		x := make(dynamics.State, len(record)-2)
		for j := range x {
			if x[j], err = strconv.ParseFloat(record[j+1], 64); err != nil {
				return nil, nil, nil, fmt.Errorf("parse state %q: %w", record[j+1], err)
			}
		}
		u, err := strconv.ParseFloat(record[len(record)-1], 64)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("parse control %q: %w", record[len(record)-1], err)
		}
		times = append(times, tv)
		states = append(states, x)
		controls = append(controls, u)
	}
	return times, states, controls, nil
}

func writeJSON(path string, v any) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
