package batch

import (
	"fmt"
	"sort"
	"sync"
)

// Output records one finished job.
type Output struct {
	Index int    `json:"index"`
	Level string `json:"level"`
	// File is the output name inside the run directory.
	File string `json:"file"`
	// Outcome is accepted, degraded, or failed.
	Outcome string `json:"outcome"`
	// Warning carries non-fatal notes such as the scale-gate fallback.
	Warning string `json:"warning,omitempty"`
	// Error is set when the job fell back to the source image.
	Error string `json:"error,omitempty"`
	// PainterCalls counts edit requests the job spent.
	PainterCalls int `json:"painter_calls"`
}

// LevelSummary aggregates one level's results in the persisted manifest.
type LevelSummary struct {
	Count  int      `json:"count"`
	Errors []string `json:"errors"`
}

// Manifest summarizes a run for debugging and downstream tooling.
type Manifest struct {
	RunID      string   `json:"run_id"`
	Engine     string   `json:"engine"`
	Preset     string   `json:"preset"`
	Category   string   `json:"category"`
	Scenes     []string `json:"scenes"`
	Levels     []string `json:"levels"`
	ImageCount int      `json:"image_count"`
	Outputs    []Output `json:"outputs"`
	// ByLevel is built by Finish from the recorded outputs.
	ByLevel map[string]LevelSummary `json:"by_level"`
	Errors  []string                `json:"errors,omitempty"`
	Config  map[string]any          `json:"config"`

	mu sync.Mutex
}

// Record stores one job outcome. Safe for concurrent use.
func (m *Manifest) Record(out Output) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Outputs = append(m.Outputs, out)
	if out.Error != "" {
		m.Errors = append(m.Errors, fmt.Sprintf("#%d %s: %s", out.Index+1, out.Level, out.Error))
	}
}

// Finish sorts outputs into image order within level so the manifest is
// stable regardless of worker scheduling, and builds the per-level summary.
func (m *Manifest) Finish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	sort.Slice(m.Outputs, func(i, j int) bool {
		if m.Outputs[i].Level != m.Outputs[j].Level {
			return m.Outputs[i].Level < m.Outputs[j].Level
		}
		return m.Outputs[i].Index < m.Outputs[j].Index
	})
	sort.Strings(m.Errors)

	m.ByLevel = make(map[string]LevelSummary, len(m.Levels))
	for _, level := range m.Levels {
		m.ByLevel[level] = LevelSummary{Errors: []string{}}
	}
	for _, out := range m.Outputs {
		s := m.ByLevel[out.Level]
		s.Count++
		if s.Errors == nil {
			s.Errors = []string{}
		}
		if out.Error != "" {
			s.Errors = append(s.Errors, fmt.Sprintf("#%d: %s", out.Index+1, out.Error))
		}
		m.ByLevel[out.Level] = s
	}
}

// FilesByLevel returns output names grouped by level, in image order.
func (m *Manifest) FilesByLevel() map[string][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	grouped := make(map[string][]string)
	for _, out := range m.Outputs {
		grouped[out.Level] = append(grouped[out.Level], out.File)
	}
	return grouped
}
