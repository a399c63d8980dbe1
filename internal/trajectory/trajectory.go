// Package trajectory records course changes per node and renders them as a
// top-down PNG.
package trajectory

import (
	"errors"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"loiter-sim/internal/geom"
	"loiter-sim/internal/mobility"
)

// ErrEmpty is returned when there is nothing to draw.
var ErrEmpty = errors.New("no trajectories recorded")

// Recorder collects committed positions per node in arrival order.
type Recorder struct {
	order  []string
	tracks map[string][]geom.Vec
}

func NewRecorder() *Recorder {
	return &Recorder{tracks: make(map[string][]geom.Vec)}
}

// Observe records cc. It has the signature of a course-change listener.
func (r *Recorder) Observe(cc mobility.CourseChange) {
	track, ok := r.tracks[cc.Node]
	if !ok {
		r.order = append(r.order, cc.Node)
	}
	if n := len(track); n > 0 && track[n-1] == cc.Position {
		return
	}
	r.tracks[cc.Node] = append(track, cc.Position)
}

// Nodes returns the recorded node names in first-seen order.
func (r *Recorder) Nodes() []string {
	return append([]string(nil), r.order...)
}

// Track returns the recorded positions of node.
func (r *Recorder) Track(node string) []geom.Vec {
	return r.tracks[node]
}

// Save renders every track onto the x/y plane with the bounds outline and
// writes the image to path. The format follows the file extension.
func (r *Recorder) Save(path string, bounds geom.Box) error {
	if len(r.order) == 0 {
		return ErrEmpty
	}

	p := plot.New()
	p.Title.Text = "Loiter trajectories"
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "y (m)"
	p.Add(plotter.NewGrid())

	outline, err := plotter.NewLine(plotter.XYs{
		{X: bounds.XMin, Y: bounds.YMin},
		{X: bounds.XMax, Y: bounds.YMin},
		{X: bounds.XMax, Y: bounds.YMax},
		{X: bounds.XMin, Y: bounds.YMax},
		{X: bounds.XMin, Y: bounds.YMin},
	})
	if err != nil {
		return fmt.Errorf("bounds outline: %w", err)
	}
	outline.Color = color.Gray{Y: 128}
	outline.Width = vg.Points(1)
	outline.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(outline)

	starts := make(plotter.XYs, 0, len(r.order))
	for i, node := range r.order {
		track := r.tracks[node]
		pts := make(plotter.XYs, len(track))
		for j, v := range track {
			pts[j] = plotter.XY{X: v.X, Y: v.Y}
		}
		starts = append(starts, pts[0])

		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("track %s: %w", node, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(node, line)
	}

	scatter, err := plotter.NewScatter(starts)
	if err != nil {
		return fmt.Errorf("start markers: %w", err)
	}
	scatter.GlyphStyle.Radius = vg.Points(3)
	p.Add(scatter)

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("save trajectory plot: %w", err)
	}
	return nil
}
