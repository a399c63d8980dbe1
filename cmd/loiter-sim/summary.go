package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	"loiter-sim/internal/mobility"
)

type runSummary struct {
	Nodes         int
	CourseChanges int
	MaxTime       time.Duration
	// ModeCounts counts course changes committed in each mode.
	ModeCounts map[mobility.Mode]int
	// FinalModes counts nodes by the mode they ended the run in.
	FinalModes map[mobility.Mode]int
	Halted     int
}

func summarizeCourseChanges(changes []mobility.CourseChange) runSummary {
	s := runSummary{
		ModeCounts: map[mobility.Mode]int{},
		FinalModes: map[mobility.Mode]int{},
	}
	nodes := map[string]struct{}{}
	for _, cc := range changes {
		nodes[cc.Node] = struct{}{}
		s.CourseChanges++
		s.ModeCounts[cc.Mode]++
		if cc.At > s.MaxTime {
			s.MaxTime = cc.At
		}
	}
	s.Nodes = len(nodes)
	return s
}

// addFinalStates folds the end-of-run state of each model into s.
func (s *runSummary) addFinalStates(models []*mobility.Model) {
	for _, m := range models {
		s.FinalModes[m.Mode()]++
		if m.Err() != nil {
			s.Halted++
		}
	}
	if len(models) > s.Nodes {
		s.Nodes = len(models)
	}
}

func sortedModes(counts map[mobility.Mode]int) []mobility.Mode {
	modes := make([]mobility.Mode, 0, len(counts))
	for m := range counts {
		modes = append(modes, m)
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })
	return modes
}

func printRunSummary(w io.Writer, s runSummary) {
	fmt.Fprintf(w, "nodes: %d\n", s.Nodes)
	fmt.Fprintf(w, "course_changes: %d\n", s.CourseChanges)
	fmt.Fprintf(w, "last_change: %s\n", s.MaxTime)
	fmt.Fprintf(w, "halted: %d\n", s.Halted)

	fmt.Fprintf(w, "mode_counts:\n")
	for _, m := range sortedModes(s.ModeCounts) {
		fmt.Fprintf(w, "  %s: %d\n", m, s.ModeCounts[m])
	}
	fmt.Fprintf(w, "final_modes:\n")
	for _, m := range sortedModes(s.FinalModes) {
		fmt.Fprintf(w, "  %s: %d\n", m, s.FinalModes[m])
	}
}
