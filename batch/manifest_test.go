package batch

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestManifest_FinishBuildsLevelSummaries(t *testing.T) {
	m := &Manifest{
		RunID:      "run-x",
		Levels:     []string{"medium", "aggressive"},
		ImageCount: 2,
	}
	m.Record(Output{Index: 1, Level: "aggressive", File: "BA_02.png", Outcome: "failed", Error: "painter down"})
	m.Record(Output{Index: 0, Level: "medium", File: "BM_01.png", Outcome: "accepted"})
	m.Record(Output{Index: 1, Level: "medium", File: "BM_02.png", Outcome: "accepted"})
	m.Record(Output{Index: 0, Level: "aggressive", File: "BA_01.png", Outcome: "degraded",
		Warning: "scale_gate_fallback(in=0.500, r1=0.800, r2=0.800)"})
	m.Finish()

	medium, ok := m.ByLevel["medium"]
	if !ok {
		t.Fatal("medium summary missing")
	}
	if medium.Count != 2 || len(medium.Errors) != 0 {
		t.Errorf("medium summary = %+v, want count 2, no errors", medium)
	}

	aggressive := m.ByLevel["aggressive"]
	if aggressive.Count != 2 {
		t.Errorf("aggressive count = %d, want 2", aggressive.Count)
	}
	if len(aggressive.Errors) != 1 || !strings.Contains(aggressive.Errors[0], "painter down") {
		t.Errorf("aggressive errors = %v", aggressive.Errors)
	}
	if !strings.HasPrefix(aggressive.Errors[0], "#2:") {
		t.Errorf("error should name the image: %q", aggressive.Errors[0])
	}
}

func TestManifest_LevelSummariesSerialize(t *testing.T) {
	m := &Manifest{Levels: []string{"medium"}}
	m.Record(Output{Index: 0, Level: "medium", File: "BM_01.png", Outcome: "accepted"})
	m.Finish()

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded struct {
		ByLevel map[string]struct {
			Count  int      `json:"count"`
			Errors []string `json:"errors"`
		} `json:"by_level"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	level, ok := decoded.ByLevel["medium"]
	if !ok {
		t.Fatal("by_level.medium missing from serialized manifest")
	}
	if level.Count != 1 {
		t.Errorf("count = %d, want 1", level.Count)
	}
	if level.Errors == nil {
		t.Error("errors should serialize as an empty list, not null")
	}
}
