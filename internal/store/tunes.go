package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// TuneRecord is the persisted outcome of one optimization session.
type TuneRecord struct {
	ID          string    `json:"id"`
	Variant     string    `json:"controller_type"`
	BestGains   []float64 `json:"best_gains"`
	BestCost    float64   `json:"best_cost"`
	History     []float64 `json:"convergence_history"`
	Iterations  int       `json:"iterations"`
	Evaluations int       `json:"evaluations"`
	StopReason  string    `json:"stop_reason"`
	Seeds       []int64   `json:"seeds"`
	Lower       []float64 `json:"lower_bounds"`
	Upper       []float64 `json:"upper_bounds"`
	Timestamp   time.Time `json:"timestamp"`
}

// SaveTune assigns the record an id and timestamp when missing and writes it
// under tunes/.
func (s *Store) SaveTune(rec TuneRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = fmt.Sprintf("%s_%d", rec.Variant, time.Now().UnixNano())
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	if err := os.MkdirAll(s.tunesDir(), 0o755); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(s.tunesDir(), rec.ID+".json"), rec); err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (s *Store) ListTunes() ([]TuneRecord, error) {
	entries, err := os.ReadDir(s.tunesDir())
	if err != nil {
		if os.IsNotExist(err) {
			return []TuneRecord{}, nil
		}
		return nil, err
	}

	recs := make([]TuneRecord, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		rec, err := s.LoadTune(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		recs = append(recs, *rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].Timestamp.Before(recs[j].Timestamp)
	})
	return recs, nil
}

func (s *Store) LoadTune(id string) (*TuneRecord, error) {
	data, err := os.ReadFile(filepath.Join(s.tunesDir(), id+".json"))
	if err != nil {
		return nil, err
	}
	var rec TuneRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
