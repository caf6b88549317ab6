// Command analyze prints quick, human-readable statistics about the level
// files in a directory: road and link counts, total length, how many links
// each road end carries, connected groups and the longest shortest route
// between any two roads.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/copyleft-games/libregnum-sub015/game/engine"
	"github.com/copyleft-games/libregnum-sub015/game/road"
	"github.com/copyleft-games/libregnum-sub015/validate"
)

// Analysis summarizes one level.
type Analysis struct {
	Name        string
	Roads       int
	Drivable    int
	Links       int
	TotalLength float64
	// Degree maps a link count to the number of road ends carrying it.
	Degree       map[int]int
	Components   [][]string
	LongestRoute []string
	LongestLen   float64
}

func main() {
	dir := "levels"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	files, err := levelFiles(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing levels: %v\n", err)
		os.Exit(1)
	}

	for _, file := range files {
		fmt.Printf("\n=== Analyzing %s ===\n", filepath.Base(file))
		level, err := engine.LoadLevel(file)
		if err != nil {
			fmt.Printf("Error loading level: %v\n", err)
			continue
		}
		a, err := analyzeLevel(level)
		if err != nil {
			fmt.Printf("Error building network: %v\n", err)
			continue
		}
		printAnalysis(os.Stdout, a)
	}
}

func levelFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".yaml", ".yml":
			if !e.IsDir() {
				files = append(files, filepath.Join(dir, e.Name()))
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

func analyzeLevel(level *engine.LevelConfig) (Analysis, error) {
	net, err := engine.BuildNetwork(level)
	if err != nil {
		return Analysis{}, err
	}

	a := Analysis{
		Name:       level.Name,
		Roads:      net.Len(),
		Links:      net.LinkCount(),
		Degree:     make(map[int]int),
		Components: validate.Components(net),
	}

	var drivable []string
	for _, r := range net.Roads() {
		a.TotalLength += r.Length()
		if r.WaypointCount() >= 2 {
			drivable = append(drivable, r.ID())
		}
		for _, end := range []road.End{road.Start, road.Finish} {
			a.Degree[len(net.Links(r.ID(), end))]++
		}
	}
	a.Drivable = len(drivable)

	// Every ordered pair, mid-road to mid-road.
	for _, from := range drivable {
		for _, to := range drivable {
			if from == to {
				continue
			}
			ids, ok := net.FindRoute(from, 0.5, to, 0.5)
			if !ok {
				continue
			}
			if length := net.RouteLength(ids); length > a.LongestLen {
				a.LongestLen = length
				a.LongestRoute = ids
			}
		}
	}

	return a, nil
}

func printAnalysis(w io.Writer, a Analysis) {
	fmt.Fprintf(w, "Name: %s\n", a.Name)
	fmt.Fprintf(w, "Roads: %d (%d drivable)\n", a.Roads, a.Drivable)
	fmt.Fprintf(w, "Links: %d\n", a.Links)
	fmt.Fprintf(w, "Total Length: %.1f m\n", a.TotalLength)

	degrees := make([]int, 0, len(a.Degree))
	for d := range a.Degree {
		degrees = append(degrees, d)
	}
	sort.Ints(degrees)
	for _, d := range degrees {
		fmt.Fprintf(w, "Ends with %d links: %d\n", d, a.Degree[d])
	}

	if a.Degree[0] > 0 {
		fmt.Fprintf(w, "⚠️  %d road ends lead nowhere\n", a.Degree[0])
	}

	if len(a.Components) > 1 {
		fmt.Fprintf(w, "⚠️  WARNING: network splits into %d groups\n", len(a.Components))
		for i, group := range a.Components {
			if i >= 5 {
				fmt.Fprintf(w, "   ... and %d more\n", len(a.Components)-5)
				break
			}
			fmt.Fprintf(w, "   Group %d: %s\n", i+1, strings.Join(group, ", "))
		}
	} else {
		fmt.Fprintf(w, "✅ Every road is reachable\n")
	}

	if len(a.LongestRoute) > 0 {
		fmt.Fprintf(w, "Longest Route: %s (%.1f m)\n", strings.Join(a.LongestRoute, " -> "), a.LongestLen)
	}
}
