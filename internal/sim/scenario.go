package sim

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"loiter-sim/internal/geom"
)

// ScenarioScript is a deterministic, script-driven run description.
//
// Time is expressed as Go duration strings (e.g. "0s", "250ms", "10s").
//
// YAML schema (v1):
//
//	version: 1
//	nodes:
//	  - name: "uav-1"
//	    start: {x: 50, y: 50, z: 0}
//	    repositions:
//	      - t: 20s
//	        x: 100
//	        y: 120
//	        z: 0
//	  - name: "uav-2"          # start omitted: drawn from run.start_box
//
// Repositions for a node must be sorted by time and use non-decreasing t
// values. Whether points lie inside the mobility bounds is checked when the
// script is applied, since the script does not know the bounds.
//
//nolint:revive // exported for YAML, but used primarily internally
type ScenarioScript struct {
	Version int            `yaml:"version"`
	Nodes   []ScenarioNode `yaml:"nodes"`
}

// ScenarioNode describes one mobile node.
//
//nolint:revive
type ScenarioNode struct {
	Name        string       `yaml:"name"`
	Start       *Point       `yaml:"start"`
	Repositions []Reposition `yaml:"repositions"`
}

// Point is a position in local metres.
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

// Vec returns p as a vector.
func (p Point) Vec() geom.Vec {
	return geom.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

// Reposition forces a node to a new position at simulation time T.
type Reposition struct {
	T time.Duration `yaml:"t"`
	X float64       `yaml:"x"`
	Y float64       `yaml:"y"`
	Z float64       `yaml:"z"`
}

// Point returns the reposition target.
func (r Reposition) Point() Point {
	return Point{X: r.X, Y: r.Y, Z: r.Z}
}

// Scenario is the validated, runtime representation.
//
//nolint:revive
type Scenario struct {
	script ScenarioScript
}

// LoadScenarioScript reads and unmarshals a YAML scenario script from path.
func LoadScenarioScript(path string) (ScenarioScript, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return ScenarioScript{}, err
	}
	return ParseScenarioScriptYAML(b)
}

// ParseScenarioScriptYAML parses a YAML scenario script.
func ParseScenarioScriptYAML(b []byte) (ScenarioScript, error) {
	var s ScenarioScript
	if err := yaml.Unmarshal(b, &s); err != nil {
		return ScenarioScript{}, err
	}
	return s, nil
}

// NewScenario validates script and returns a runtime Scenario.
func NewScenario(script ScenarioScript) (*Scenario, error) {
	if script.Version == 0 {
		script.Version = 1
	}
	if script.Version != 1 {
		return nil, fmt.Errorf("unsupported scenario version %d", script.Version)
	}
	if len(script.Nodes) == 0 {
		return nil, fmt.Errorf("nodes is required")
	}

	seen := map[string]int{}
	for i := range script.Nodes {
		n := &script.Nodes[i]
		n.Name = strings.TrimSpace(n.Name)
		if n.Name == "" {
			n.Name = fmt.Sprintf("node-%d", i)
		}
		if j, ok := seen[n.Name]; ok {
			return nil, fmt.Errorf("nodes[%d].name %q duplicates nodes[%d]", i, n.Name, j)
		}
		seen[n.Name] = i
		if err := validateNonDecreasingRepositions(n.Repositions, i); err != nil {
			return nil, err
		}
	}

	return &Scenario{script: script}, nil
}

// Nodes returns the validated node descriptions.
func (s *Scenario) Nodes() []ScenarioNode {
	if s == nil {
		return nil
	}
	return s.script.Nodes
}

// Duration returns the time of the latest reposition across all nodes.
func (s *Scenario) Duration() time.Duration {
	if s == nil {
		return 0
	}
	max := time.Duration(0)
	for _, n := range s.script.Nodes {
		for _, r := range n.Repositions {
			if r.T > max {
				max = r.T
			}
		}
	}
	return max
}

func validateNonDecreasingRepositions(rs []Reposition, ni int) error {
	for i := range rs {
		if rs[i].T < 0 {
			return fmt.Errorf("nodes[%d].repositions[%d].t must be >= 0", ni, i)
		}
		if i > 0 && rs[i].T < rs[i-1].T {
			return fmt.Errorf("nodes[%d].repositions must be sorted by t (index %d)", ni, i)
		}
	}
	return nil
}
