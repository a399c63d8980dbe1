package sim

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestScenario_ParseAndDefaults(t *testing.T) {
	yaml := []byte(`
version: 1
nodes:
  - name: "uav-1"
    start: {x: 50, y: 60, z: 0}
    repositions:
      - t: 5s
        x: 10
        y: 20
      - t: 12s
        x: 30
        y: 40
  - repositions: []
`)

	script, err := ParseScenarioScriptYAML(yaml)
	if err != nil {
		t.Fatalf("ParseScenarioScriptYAML: %v", err)
	}
	scn, err := NewScenario(script)
	if err != nil {
		t.Fatalf("NewScenario: %v", err)
	}

	nodes := scn.Nodes()
	if len(nodes) != 2 {
		t.Fatalf("nodes=%d want 2", len(nodes))
	}
	if nodes[0].Start == nil || nodes[0].Start.X != 50 || nodes[0].Start.Y != 60 {
		t.Fatalf("start: got %+v", nodes[0].Start)
	}
	if nodes[1].Name != "node-1" {
		t.Fatalf("default name: got %q want node-1", nodes[1].Name)
	}
	if nodes[1].Start != nil {
		t.Fatalf("expected nil start for node-1")
	}
	if got := nodes[0].Repositions[1].Point(); got != (Point{X: 30, Y: 40}) {
		t.Fatalf("reposition point: got %+v", got)
	}
	if scn.Duration() != 12*time.Second {
		t.Fatalf("duration: got %s want 12s", scn.Duration())
	}
}

func TestScenario_Validation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "Version",
			yaml: "version: 2\nnodes: [{name: a}]\n",
			want: "unsupported scenario version 2",
		},
		{
			name: "NoNodes",
			yaml: "version: 1\n",
			want: "nodes is required",
		},
		{
			name: "Duplicate",
			yaml: "nodes: [{name: a}, {name: a}]\n",
			want: `nodes[1].name "a" duplicates nodes[0]`,
		},
		{
			name: "Unsorted",
			yaml: "nodes:\n  - name: a\n    repositions:\n      - {t: 5s}\n      - {t: 1s}\n",
			want: "nodes[0].repositions must be sorted by t (index 1)",
		},
		{
			name: "Negative",
			yaml: "nodes:\n  - name: a\n    repositions:\n      - {t: -1s}\n",
			want: "nodes[0].repositions[0].t must be >= 0",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			script, err := ParseScenarioScriptYAML([]byte(tc.yaml))
			if err != nil {
				t.Fatalf("ParseScenarioScriptYAML: %v", err)
			}
			_, err = NewScenario(script)
			if err == nil {
				t.Fatalf("expected error %q, got nil", tc.want)
			}
			if err.Error() != tc.want {
				t.Fatalf("error=%q want %q", err.Error(), tc.want)
			}
		})
	}
}

func TestLoadScenarioScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scn.yaml")
	if err := os.WriteFile(path, []byte("nodes: [{name: solo}]\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	script, err := LoadScenarioScript(path)
	if err != nil {
		t.Fatalf("LoadScenarioScript: %v", err)
	}
	if len(script.Nodes) != 1 || script.Nodes[0].Name != "solo" {
		t.Fatalf("unexpected script: %+v", script)
	}

	if _, err := LoadScenarioScript(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
