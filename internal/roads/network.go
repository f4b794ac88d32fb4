package roads

import (
	"math"
	"sort"

	"github.com/unixpickle/model3d/model2d"

	"github.com/voidshard/parkgraph/internal/geom"
	"github.com/voidshard/parkgraph/internal/plan"
)

// BuildNetwork turns a Skeleton into a road network: minimal spanning
// backbone (primary), perpendicular ribs (secondary) and entrance
// connectors. The same skeleton may be shared by many calls; nothing here
// mutates it.
func BuildNetwork(sk *Skeleton, cfg Config, entrances []*plan.Entrance) (*plan.Network, *Coverage, error) {
	cfg = cfg.withDefaults()
	if sk == nil || len(sk.Segs) == 0 {
		return nil, nil, ErrInfeasibleGeometry
	}

	backbone := spanningBackbone(sk, cfg, entrances)
	if len(backbone.edges) == 0 {
		return nil, nil, ErrInfeasibleGeometry
	}
	backbone.layoutSpine(sk.Inset, cfg)

	net := &plan.Network{}
	tol := cfg.SampleStep / 4

	// primary backbone with rib stations inserted mid-edge
	type station struct {
		node int
		perp model2d.Coord
	}
	stations := []station{}
	for _, e := range backbone.edges {
		a, b := backbone.nodes[e.a], backbone.nodes[e.b]
		length := a.Dist(b)
		dir := b.Sub(a).Scale(1 / length)
		perp := geom.Rot90(dir)

		prev := net.AddNode(a, tol)
		for off := cfg.RibSpacing / 2; off < length; off += cfg.RibSpacing {
			sn := net.AddNode(a.Add(dir.Scale(off)), tol)
			net.AddSegment(prev, sn, plan.RoadPrimary, cfg.PrimaryWidth)
			stations = append(stations, station{node: sn, perp: perp})
			prev = sn
		}
		end := net.AddNode(b, tol)
		net.AddSegment(prev, end, plan.RoadPrimary, cfg.PrimaryWidth)
	}

	// entrance connectors join the outside world to the nearest backbone node
	for _, ent := range entrances {
		en := net.AddNode(ent.Point, tol)
		nearest, best := -1, math.Inf(1)
		for i, q := range net.Nodes {
			if i == en {
				continue
			}
			if d := q.Dist(ent.Point); d < best {
				best = d
				nearest = i
			}
		}
		if nearest >= 0 {
			net.AddSegment(en, nearest, plan.RoadPrimary, cfg.PrimaryWidth)
			ent.Node = en
		}
	}

	// secondary ribs run from each station to the edge of the buildable area
	for _, st := range stations {
		origin := net.Nodes[st.node]
		for _, side := range []float64{1, -1} {
			end, ok := castToEdge(sk.Inset, origin, st.perp.Scale(side))
			if !ok {
				continue
			}
			if origin.Dist(end) < cfg.MinRibLen {
				continue
			}
			rn := net.AddNode(end, tol)
			net.AddSegment(st.node, rn, plan.RoadSecondary, cfg.SecondaryWidth)
		}
	}

	stitchComponents(net, cfg)

	cov := auditCoverage(sk.Inset, net, cfg.CoverageRadius)
	return net, cov, nil
}

// stitchComponents joins any disconnected pieces of the network (medial
// leftovers far from the spine, orphaned connectors) by adding a segment
// between the closest pair of nodes in different components.
func stitchComponents(net *plan.Network, cfg Config) {
	for guard := 0; guard < len(net.Nodes); guard++ {
		parent := make([]int, len(net.Nodes))
		for i := range parent {
			parent[i] = i
		}
		var find func(int) int
		find = func(x int) int {
			for parent[x] != x {
				parent[x] = parent[parent[x]]
				x = parent[x]
			}
			return x
		}
		used := make([]bool, len(net.Nodes))
		for _, s := range net.Segments {
			used[s.From], used[s.To] = true, true
			parent[find(s.From)] = find(s.To)
		}

		roots := map[int]bool{}
		for i := range net.Nodes {
			if used[i] {
				roots[find(i)] = true
			}
		}
		if len(roots) <= 1 {
			return
		}

		// closest pair of used nodes across a component divide
		bi, bj, best := -1, -1, math.Inf(1)
		for i := range net.Nodes {
			if !used[i] {
				continue
			}
			for j := i + 1; j < len(net.Nodes); j++ {
				if !used[j] || find(i) == find(j) {
					continue
				}
				if d := net.Nodes[i].Dist(net.Nodes[j]); d < best {
					best = d
					bi, bj = i, j
				}
			}
		}
		if bi < 0 {
			return
		}
		net.AddSegment(bi, bj, plan.RoadSecondary, cfg.SecondaryWidth)
	}
}

// castToEdge walks from origin along dir until leaving the polygon and
// returns the last point inside, pulled back slightly so road ends do not
// poke through the buffer.
func castToEdge(poly geom.Polygon, origin, dir model2d.Coord) (model2d.Coord, bool) {
	if !poly.Contains(origin) {
		return model2d.Coord{}, false
	}
	lo, hi := poly.Bounds()
	maxT := hi.Sub(lo).Norm()
	dir = dir.Normalize()

	// coarse march, then bisect the crossing
	step := 4.0
	t := 0.0
	for t+step <= maxT {
		if !poly.Contains(origin.Add(dir.Scale(t + step))) {
			break
		}
		t += step
	}
	inT, outT := t, t+step
	for i := 0; i < 16; i++ {
		mid := (inT + outT) / 2
		if poly.Contains(origin.Add(dir.Scale(mid))) {
			inT = mid
		} else {
			outT = mid
		}
	}
	if inT < 1e-6 {
		return model2d.Coord{}, false
	}
	return origin.Add(dir.Scale(inT)), true
}

// backboneGraph is scratch state for backbone extraction.
type backboneGraph struct {
	nodes []model2d.Coord
	edges []bbEdge
}

type bbEdge struct {
	a, b int
	lng  float64
}

// spanningBackbone reduces the skeleton to a minimal connected subgraph:
// Kruskal spanning tree (shortest total length first), restricted to the
// component serving the first entrance, with short spurs pruned and
// near-collinear chains merged for fewer junctions.
func spanningBackbone(sk *Skeleton, cfg Config, entrances []*plan.Entrance) *backboneGraph {
	g := &backboneGraph{}
	tol := cfg.SampleStep / 4

	addNode := func(p model2d.Coord) int {
		for i, q := range g.nodes {
			if q.Dist(p) < tol {
				return i
			}
		}
		g.nodes = append(g.nodes, p)
		return len(g.nodes) - 1
	}

	all := []bbEdge{}
	segs := pruneShort(append([][2]model2d.Coord{}, sk.Segs...), tol)
	for _, s := range segs {
		a, b := addNode(s[0]), addNode(s[1])
		if a == b {
			continue
		}
		all = append(all, bbEdge{a: a, b: b, lng: s[0].Dist(s[1])})
	}

	// Kruskal; ties broken by insertion order which is already the
	// quantized-key order from BuildSkeleton, so this is deterministic
	sort.SliceStable(all, func(i, j int) bool { return all[i].lng < all[j].lng })
	parent := make([]int, len(g.nodes))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	for _, e := range all {
		ra, rb := find(e.a), find(e.b)
		if ra == rb {
			continue
		}
		parent[ra] = rb
		g.edges = append(g.edges, e)
	}

	// keep only the component nearest the first entrance (or the centroid
	// when no entrances were requested)
	want := sk.Inset.Centroid()
	if len(entrances) > 0 {
		want = entrances[0].Point
	}
	rootNode, best := -1, math.Inf(1)
	for i, p := range g.nodes {
		if d := p.Dist(want); d < best {
			best = d
			rootNode = i
		}
	}
	if rootNode >= 0 {
		root := find(rootNode)
		kept := g.edges[:0]
		for _, e := range g.edges {
			if find(e.a) == root {
				kept = append(kept, e)
			}
		}
		g.edges = kept
	}

	g.pruneSpurs(cfg.MinSpur)
	g.mergeCollinear()
	return g
}

// layoutSpine stretches the backbone into a full-length spine. The medial
// skeleton of a convex site is short (it stops where the corner bisectors
// meet), which starves the network of rib stations; here the edge best
// aligned with the buildable area's long axis is extended until it meets
// the buffer, and medial leftovers hugging the spine are dropped so ribs
// do not double up.
func (g *backboneGraph) layoutSpine(inset geom.Polygon, cfg Config) {
	o := geom.OrientedBounds(inset)
	const cosTol = 0.94 // ~20 degrees

	// anchor on the best aligned backbone edge so the spine follows the
	// medial axis rather than cutting across concave sites
	anchor, axis := o.Center, o.Axis
	found := false
	bestLen := 0.0
	for _, e := range g.edges {
		d := g.nodes[e.b].Sub(g.nodes[e.a])
		if d.Norm() < 1e-9 {
			continue
		}
		dir := d.Normalize()
		if math.Abs(dir.Dot(o.Axis)) >= cosTol && e.lng > bestLen {
			bestLen = e.lng
			anchor = g.nodes[e.a].Add(g.nodes[e.b]).Scale(0.5)
			axis = dir
			found = true
		}
	}
	if !found && !inset.Contains(anchor) {
		// concave site whose OBB centre falls outside: leave the medial
		// backbone as-is
		return
	}

	fwd, okF := castToEdge(inset, anchor, axis)
	back, okB := castToEdge(inset, anchor, axis.Scale(-1))
	if !okF || !okB || fwd.Dist(back) < cfg.MinSpur {
		return
	}

	tol := cfg.SampleStep / 4
	addNode := func(p model2d.Coord) int {
		for i, q := range g.nodes {
			if q.Dist(p) < tol {
				return i
			}
		}
		g.nodes = append(g.nodes, p)
		return len(g.nodes) - 1
	}
	a, b := addNode(back), addNode(fwd)
	if a == b {
		return
	}

	// medial edges that hug the spine give way to it
	kept := g.edges[:0]
	for _, e := range g.edges {
		mid := g.nodes[e.a].Add(g.nodes[e.b]).Scale(0.5)
		if geom.PointSegDist(mid, back, fwd) < cfg.RibSpacing {
			continue
		}
		kept = append(kept, e)
	}
	g.edges = append(kept, bbEdge{a: a, b: b, lng: fwd.Dist(back)})
}

// pruneSpurs repeatedly removes leaf edges shorter than min.
func (g *backboneGraph) pruneSpurs(min float64) {
	for {
		degree := map[int]int{}
		for _, e := range g.edges {
			degree[e.a]++
			degree[e.b]++
		}
		kept := g.edges[:0]
		removed := false
		for _, e := range g.edges {
			leaf := degree[e.a] == 1 || degree[e.b] == 1
			if leaf && e.lng < min && len(g.edges) > 1 {
				removed = true
				continue
			}
			kept = append(kept, e)
		}
		g.edges = kept
		if !removed {
			return
		}
	}
}

// mergeCollinear joins edge pairs through degree-2 nodes when they are
// nearly straight, reducing junction count without moving geometry much.
func (g *backboneGraph) mergeCollinear() {
	const cosTol = 0.966 // ~15 degrees

	for {
		adj := map[int][]int{} // node -> edge indexes
		for i, e := range g.edges {
			adj[e.a] = append(adj[e.a], i)
			adj[e.b] = append(adj[e.b], i)
		}
		merged := false
		for n := 0; n < len(g.nodes); n++ {
			es := adj[n]
			if len(es) != 2 {
				continue
			}
			e1, e2 := g.edges[es[0]], g.edges[es[1]]
			o1 := other(e1, n)
			o2 := other(e2, n)
			if o1 == o2 {
				continue
			}
			d1 := g.nodes[n].Sub(g.nodes[o1]).Normalize()
			d2 := g.nodes[o2].Sub(g.nodes[n]).Normalize()
			if d1.Dot(d2) < cosTol {
				continue
			}
			// replace the pair with one straight edge
			keep := []bbEdge{}
			for i, e := range g.edges {
				if i != es[0] && i != es[1] {
					keep = append(keep, e)
				}
			}
			keep = append(keep, bbEdge{a: o1, b: o2, lng: g.nodes[o1].Dist(g.nodes[o2])})
			g.edges = keep
			merged = true
			break
		}
		if !merged {
			return
		}
	}
}

func other(e bbEdge, n int) int {
	if e.a == n {
		return e.b
	}
	return e.a
}
