package road

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

// End names one of the two endpoints of a road.
type End uint8

const (
	Start End = iota
	Finish
)

func (e End) String() string {
	if e == Finish {
		return "end"
	}
	return "start"
}

// ParseEnd accepts "start" or "end" (and "finish" as an alias).
func ParseEnd(s string) (End, error) {
	switch s {
	case "start", "":
		return Start, nil
	case "end", "finish":
		return Finish, nil
	}
	return Start, fmt.Errorf("unknown road end %q", s)
}

func (e End) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

func (e *End) UnmarshalText(b []byte) error {
	v, err := ParseEnd(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// Endpoint identifies one end of a road in a network.
type Endpoint struct {
	RoadID string `json:"road_id"`
	End    End    `json:"end"`
}

// Nearest is the result of a nearest-road lookup.
type Nearest struct {
	RoadID   string  `json:"road_id"`
	T        float64 `json:"t"`
	Distance float64 `json:"distance"`
}

// SpawnPoint is a sampled position on a road, facing along it.
type SpawnPoint struct {
	Position Vec3    `json:"position"`
	Heading  float64 `json:"heading"`
	RoadID   string  `json:"road_id"`
	T        float64 `json:"t"`
}

const (
	spawnMinT = 0.1
	spawnMaxT = 0.9
)

// Network owns a set of roads and the directed links between their endpoints.
// Route search reads the links as undirected.
//
// A Network is not safe for concurrent use.
type Network struct {
	roads map[string]*Road
	links map[Endpoint][]Endpoint

	list      []*Road
	listDirty bool

	rng *rand.Rand
}

// NewNetwork creates an empty network with a randomly seeded spawn sampler.
func NewNetwork() *Network {
	return &Network{
		roads:     make(map[string]*Road),
		links:     make(map[Endpoint][]Endpoint),
		listDirty: true,
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// Seed makes spawn sampling deterministic.
func (n *Network) Seed(seed uint64) {
	n.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// AddRoad takes ownership of r. It fails without mutating the network if a
// road with the same id is already present.
func (n *Network) AddRoad(r *Road) bool {
	if r == nil {
		return false
	}
	if _, exists := n.roads[r.id]; exists {
		return false
	}
	n.roads[r.id] = r
	n.listDirty = true
	return true
}

// RemoveRoad drops the road and the link lists rooted at its own endpoints.
// Entries in other roads' lists that point at it are left untouched; see
// PruneDangling.
func (n *Network) RemoveRoad(id string) bool {
	if _, exists := n.roads[id]; !exists {
		return false
	}
	delete(n.links, Endpoint{id, Start})
	delete(n.links, Endpoint{id, Finish})
	delete(n.roads, id)
	n.listDirty = true
	return true
}

// Road returns the road with the given id.
func (n *Network) Road(id string) (*Road, bool) {
	r, ok := n.roads[id]
	return r, ok
}

// Len returns the number of roads.
func (n *Network) Len() int {
	return len(n.roads)
}

// Roads returns the roads ordered by id. The slice is shared until the next
// AddRoad or RemoveRoad and must not be modified.
func (n *Network) Roads() []*Road {
	if !n.listDirty {
		return n.list
	}
	list := make([]*Road, 0, len(n.roads))
	for _, r := range n.roads {
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].id < list[j].id })
	n.list = list
	n.listDirty = false
	return list
}

// Connect links fromID's endpoint to toID's endpoint. Linking the same pair
// twice is a successful no-op.
func (n *Network) Connect(fromID string, fromEnd End, toID string, toEnd End) bool {
	if _, ok := n.roads[fromID]; !ok {
		return false
	}
	if _, ok := n.roads[toID]; !ok {
		return false
	}

	key := Endpoint{fromID, fromEnd}
	target := Endpoint{toID, toEnd}
	for _, existing := range n.links[key] {
		if existing == target {
			return true
		}
	}
	n.links[key] = append(n.links[key], target)
	return true
}

// Disconnect removes one matching link and reports whether it existed.
func (n *Network) Disconnect(fromID string, fromEnd End, toID string, toEnd End) bool {
	key := Endpoint{fromID, fromEnd}
	target := Endpoint{toID, toEnd}

	list := n.links[key]
	for i, existing := range list {
		if existing != target {
			continue
		}
		list = append(list[:i:i], list[i+1:]...)
		if len(list) == 0 {
			delete(n.links, key)
		} else {
			n.links[key] = list
		}
		return true
	}
	return false
}

// Connections returns the ids of the roads linked from the given endpoint.
func (n *Network) Connections(roadID string, at End) []string {
	list := n.links[Endpoint{roadID, at}]
	ids := make([]string, 0, len(list))
	for _, ep := range list {
		ids = append(ids, ep.RoadID)
	}
	return ids
}

// Links returns a copy of the endpoints linked from the given endpoint.
func (n *Network) Links(roadID string, at End) []Endpoint {
	list := n.links[Endpoint{roadID, at}]
	out := make([]Endpoint, len(list))
	copy(out, list)
	return out
}

// LinkCount returns the total number of stored links.
func (n *Network) LinkCount() int {
	total := 0
	for _, list := range n.links {
		total += len(list)
	}
	return total
}

// PruneDangling removes links that point at roads no longer in the network
// and returns how many were dropped. RemoveRoad never does this on its own.
func (n *Network) PruneDangling() int {
	removed := 0
	for key, list := range n.links {
		kept := list[:0]
		for _, ep := range list {
			if _, ok := n.roads[ep.RoadID]; ok {
				kept = append(kept, ep)
			} else {
				removed++
			}
		}
		if len(kept) == 0 {
			delete(n.links, key)
		} else {
			n.links[key] = kept
		}
	}
	return removed
}

// inbound maps each road id to the sorted ids of present roads holding a
// link to it.
func (n *Network) inbound() map[string][]string {
	in := make(map[string][]string)
	for key, list := range n.links {
		if _, ok := n.roads[key.RoadID]; !ok {
			continue
		}
		for _, ep := range list {
			in[ep.RoadID] = append(in[ep.RoadID], key.RoadID)
		}
	}
	for id := range in {
		sort.Strings(in[id])
	}
	return in
}

// FindRoute returns the sequence of road ids from fromID to toID using a
// breadth-first search. Roads are adjacent when any link joins them in either
// direction; the links rooted at the current road are explored first, then
// the roads linking into it. Links to removed roads are never followed. The
// t parameters are accepted for callers that
// track positions but do not affect the search.
func (n *Network) FindRoute(fromID string, fromT float64, toID string, toT float64) ([]string, bool) {
	if fromID == toID {
		return []string{fromID}, true
	}

	in := n.inbound()
	visited := map[string]bool{fromID: true}
	cameFrom := make(map[string]string)
	queue := []string{fromID}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current == toID {
			break
		}

		neighbours := append(n.Connections(current, Start), n.Connections(current, Finish)...)
		neighbours = append(neighbours, in[current]...)
		for _, next := range neighbours {
			if visited[next] {
				continue
			}
			if _, ok := n.roads[next]; !ok {
				continue
			}
			visited[next] = true
			cameFrom[next] = current
			queue = append(queue, next)
		}
	}

	if !visited[toID] {
		return nil, false
	}

	path := []string{toID}
	for at := toID; at != fromID; {
		at = cameFrom[at]
		path = append(path, at)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, true
}

// RouteLength sums the lengths of the roads in ids. Unknown ids count as zero.
func (n *Network) RouteLength(ids []string) float64 {
	total := 0.0
	for _, id := range ids {
		if r, ok := n.roads[id]; ok {
			total += r.Length()
		}
	}
	return total
}

// NearestRoad scans every road with at least two waypoints for the point
// closest to p.
func (n *Network) NearestRoad(p Vec3) (Nearest, bool) {
	best := Nearest{Distance: math.Inf(1)}
	found := false

	for _, r := range n.Roads() {
		t, dist, ok := r.NearestPoint(p)
		if !ok {
			continue
		}
		if dist < best.Distance {
			best = Nearest{RoadID: r.id, T: t, Distance: dist}
			found = true
		}
	}
	return best, found
}

// RandomSpawnPoint samples a point on a uniformly chosen road, away from its
// ends. Heading is measured from +Z toward +X.
func (n *Network) RandomSpawnPoint() (SpawnPoint, bool) {
	roads := n.Roads()
	if len(roads) == 0 {
		return SpawnPoint{}, false
	}

	r := roads[n.rng.IntN(len(roads))]
	t := spawnMinT + n.rng.Float64()*(spawnMaxT-spawnMinT)

	pos, ok := r.Interpolate(t)
	if !ok {
		return SpawnPoint{}, false
	}
	dir, _ := r.DirectionAt(t)

	return SpawnPoint{
		Position: pos,
		Heading:  math.Atan2(dir.X, dir.Z),
		RoadID:   r.id,
		T:        t,
	}, true
}
