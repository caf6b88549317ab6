// Package validate checks level files beyond the structural validation the
// engine performs on load. It reports:
//   - structural errors (unknown roads, bad lane counts, non-finite values)
//   - degenerate roads (fewer than two waypoints, zero length, zero width)
//   - connection gaps, where linked road ends are far apart
//   - duplicate connections
//   - road ends that almost touch another road end without a link
//   - roads unreachable from the largest connected group
package validate

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/copyleft-games/libregnum-sub015/game/engine"
	"github.com/copyleft-games/libregnum-sub015/game/road"
)

// GapTolerance is the distance in meters under which two road ends count
// as touching.
const GapTolerance = 1.0

// Severity grades an Issue
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single finding
type Issue struct {
	Severity Severity `json:"severity"`
	Road     string   `json:"road,omitempty"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	if i.Road == "" {
		return fmt.Sprintf("%s: %s", i.Severity, i.Message)
	}
	return fmt.Sprintf("%s: road %s: %s", i.Severity, i.Road, i.Message)
}

// Report captures the outcome of validating one level. Valid is false when
// any issue is an error; warnings alone keep a level valid.
type Report struct {
	File        string  `json:"file,omitempty"`
	Level       string  `json:"level"`
	Valid       bool    `json:"valid"`
	Roads       int     `json:"roads"`
	Connections int     `json:"connections"`
	Components  int     `json:"components"`
	Issues      []Issue `json:"issues"`
}

func (r *Report) add(sev Severity, roadID, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Severity: sev, Road: roadID, Message: fmt.Sprintf(format, args...)})
	if sev == SeverityError {
		r.Valid = false
	}
}

// Errors returns only the error issues
func (r *Report) Errors() []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			out = append(out, i)
		}
	}
	return out
}

// ValidateFile loads a JSON or YAML level and validates it
func ValidateFile(path string) Report {
	level, err := engine.LoadLevel(path)
	if err != nil {
		report := Report{File: filepath.Base(path), Issues: []Issue{}}
		report.add(SeverityError, "", "%v", err)
		return report
	}
	report := ValidateLevel(level)
	report.File = filepath.Base(path)
	return report
}

// ValidateLevel runs every check against level
func ValidateLevel(level *engine.LevelConfig) Report {
	report := Report{Valid: true, Issues: []Issue{}}
	if level != nil {
		report.Level = level.Name
		report.Roads = len(level.Roads)
		report.Connections = len(level.Connections)
	}

	net, err := engine.BuildNetwork(level)
	if err != nil {
		report.add(SeverityError, "", "%v", err)
		return report
	}

	checkRoads(&report, net)
	checkConnections(&report, level, net)
	checkNearMisses(&report, net)
	checkReachability(&report, net)
	return report
}

func checkRoads(report *Report, net *road.Network) {
	for _, r := range net.Roads() {
		switch {
		case r.WaypointCount() == 0:
			report.add(SeverityWarning, r.ID(), "has no waypoints")
			continue
		case r.WaypointCount() == 1:
			report.add(SeverityWarning, r.ID(), "has a single waypoint and no geometry")
			continue
		case r.Length() == 0:
			report.add(SeverityWarning, r.ID(), "has zero length")
		}
		for i, wp := range r.Waypoints() {
			if wp.Width == 0 {
				report.add(SeverityWarning, r.ID(), "waypoint %d has zero width", i)
			}
		}
	}
}

func checkConnections(report *Report, level *engine.LevelConfig, net *road.Network) {
	seen := make(map[engine.ConnectionConfig]bool, len(level.Connections))
	for _, c := range level.Connections {
		key := c
		key.Bidirectional = false
		if seen[key] {
			report.add(SeverityWarning, c.From, "duplicate connection %s:%s to %s:%s", c.From, c.FromEnd, c.To, c.ToEnd)
		}
		seen[key] = true

		if c.From == c.To && c.FromEnd == c.ToEnd {
			report.add(SeverityWarning, c.From, "end %s is linked to itself", c.FromEnd)
			continue
		}

		from, ok1 := endPos(net, c.From, c.FromEnd)
		to, ok2 := endPos(net, c.To, c.ToEnd)
		if !ok1 || !ok2 {
			continue
		}
		if gap := from.Dist(to); gap > GapTolerance {
			report.add(SeverityWarning, c.From, "connection %s:%s to %s:%s spans a %.1f m gap", c.From, c.FromEnd, c.To, c.ToEnd, gap)
		}
	}
}

// checkNearMisses flags road ends that touch another road end without any
// link between them in either direction.
func checkNearMisses(report *Report, net *road.Network) {
	type end struct {
		id  string
		at  road.End
		pos road.Vec3
	}
	var ends []end
	for _, r := range net.Roads() {
		for _, at := range []road.End{road.Start, road.Finish} {
			if p, ok := endPos(net, r.ID(), at); ok {
				ends = append(ends, end{r.ID(), at, p})
			}
		}
	}

	for i := 0; i < len(ends); i++ {
		for j := i + 1; j < len(ends); j++ {
			a, b := ends[i], ends[j]
			if a.id == b.id || a.pos.Dist(b.pos) > GapTolerance {
				continue
			}
			if linked(net, a.id, a.at, b.id) || linked(net, b.id, b.at, a.id) {
				continue
			}
			report.add(SeverityWarning, a.id, "%s touches %s:%s but is not linked", a.at, b.id, b.at)
		}
	}
}

func checkReachability(report *Report, net *road.Network) {
	groups := Components(net)
	report.Components = len(groups)
	if len(groups) < 2 {
		return
	}

	report.add(SeverityWarning, "", "network splits into %d disconnected groups", len(groups))
	for _, group := range groups[1:] {
		for _, id := range group {
			report.add(SeverityWarning, id, "unreachable from the main network (largest group starts at %s)", groups[0][0])
		}
	}
}

// Components groups road ids connected by links, ignoring link direction.
// Groups are sorted largest first, ties broken by first id; ids within a
// group are sorted.
func Components(net *road.Network) [][]string {
	adj := make(map[string][]string)
	for _, r := range net.Roads() {
		for _, at := range []road.End{road.Start, road.Finish} {
			for _, ep := range net.Links(r.ID(), at) {
				if _, ok := net.Road(ep.RoadID); !ok {
					continue
				}
				adj[r.ID()] = append(adj[r.ID()], ep.RoadID)
				adj[ep.RoadID] = append(adj[ep.RoadID], r.ID())
			}
		}
	}

	visited := make(map[string]bool)
	var groups [][]string
	for _, r := range net.Roads() {
		if visited[r.ID()] {
			continue
		}
		var group []string
		queue := []string{r.ID()}
		visited[r.ID()] = true
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			group = append(group, id)
			for _, next := range adj[id] {
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}
		sort.Strings(group)
		groups = append(groups, group)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if len(groups[i]) != len(groups[j]) {
			return len(groups[i]) > len(groups[j])
		}
		return groups[i][0] < groups[j][0]
	})
	return groups
}

func endPos(net *road.Network, id string, at road.End) (road.Vec3, bool) {
	r, ok := net.Road(id)
	if !ok {
		return road.Vec3{}, false
	}
	t := 0.0
	if at == road.Finish {
		t = 1
	}
	return r.Interpolate(t)
}

func linked(net *road.Network, id string, at road.End, other string) bool {
	for _, ep := range net.Links(id, at) {
		if ep.RoadID == other {
			return true
		}
	}
	return false
}
