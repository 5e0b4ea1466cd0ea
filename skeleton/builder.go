// Package skeleton partitions the bodies of a world into islands and orders each island
// as a spanning tree rooted at one body, plus the joints that close loops over it.
package skeleton

import (
	"slices"

	"github.com/akmonengine/ligament/actor"
	"github.com/akmonengine/ligament/constraint"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Resolver returns the body behind a handle, nil when the handle is stale.
// The world handle resolves to a static body.
type Resolver func(actor.BodyHandle) *actor.RigidBody

type edge struct {
	joint        constraint.Joint
	body0, body1 *actor.RigidBody
	// node0 and node1 are graph nodes, -1 for static bodies
	node0, node1 int64
}

func (e *edge) other(node int64) int64 {
	if e.node0 == node {
		return e.node1
	}
	return e.node0
}

// Build groups the dynamic bodies linked by enabled joints into islands. Static bodies never
// join an island. roots lists preferred root bodies, in priority order.
// Islands are ordered by the arena index of their lowest body, so the result is deterministic
// for a given set of bodies and joints.
func Build(bodies []*actor.RigidBody, joints []constraint.Joint, roots []actor.BodyHandle, resolve Resolver) []*Island {
	dynamic := make([]*actor.RigidBody, 0, len(bodies))
	for _, body := range bodies {
		if body != nil && !body.IsStatic() {
			dynamic = append(dynamic, body)
		}
	}
	slices.SortFunc(dynamic, func(a, b *actor.RigidBody) int {
		return int(a.Handle().Index) - int(b.Handle().Index)
	})

	nodes := make(map[actor.BodyHandle]int64, len(dynamic))
	g := simple.NewUndirectedGraph()
	for i, body := range dynamic {
		nodes[body.Handle()] = int64(i)
		g.AddNode(simple.Node(i))
	}

	ordered := slices.Clone(joints)
	slices.SortStableFunc(ordered, func(a, b constraint.Joint) int {
		return int(a.Base().ID()) - int(b.Base().ID())
	})

	adjacency := make(map[int64][]*edge, len(dynamic))
	for _, joint := range ordered {
		base := joint.Base()
		if !base.IsEnabled() {
			continue
		}
		e := &edge{joint: joint, node0: -1, node1: -1}
		e.body0, e.body1 = resolve(base.Body0()), resolve(base.Body1())
		if e.body0 == nil || e.body1 == nil {
			continue
		}
		if n, ok := nodes[base.Body0()]; ok {
			e.node0 = n
		}
		if n, ok := nodes[base.Body1()]; ok {
			e.node1 = n
		}

		switch {
		case e.node0 < 0 && e.node1 < 0:
			continue
		case e.node0 >= 0 && e.node1 >= 0 && e.node0 != e.node1:
			g.SetEdge(simple.Edge{F: simple.Node(e.node0), T: simple.Node(e.node1)})
			adjacency[e.node0] = append(adjacency[e.node0], e)
			adjacency[e.node1] = append(adjacency[e.node1], e)
		case e.node0 >= 0:
			adjacency[e.node0] = append(adjacency[e.node0], e)
		default:
			adjacency[e.node1] = append(adjacency[e.node1], e)
		}
	}

	components := topo.ConnectedComponents(g)
	for _, component := range components {
		slices.SortFunc(component, func(a, b graph.Node) int {
			return int(a.ID() - b.ID())
		})
	}
	slices.SortFunc(components, func(a, b []graph.Node) int {
		return int(a[0].ID() - b[0].ID())
	})

	rootRank := make(map[actor.BodyHandle]int, len(roots))
	for i, h := range roots {
		if _, ok := rootRank[h]; !ok {
			rootRank[h] = i
		}
	}

	islands := make([]*Island, 0, len(components))
	for id, component := range components {
		root := selectRoot(component, dynamic, adjacency, rootRank)
		islands = append(islands, traverse(id, root, dynamic, adjacency))
	}
	return islands
}

// selectRoot prefers a registered model root, then a body attached to the world, then the
// lowest arena index.
func selectRoot(component []graph.Node, dynamic []*actor.RigidBody, adjacency map[int64][]*edge, rootRank map[actor.BodyHandle]int) int64 {
	best, bestRank := int64(-1), len(rootRank)
	for _, node := range component {
		if rank, ok := rootRank[dynamic[node.ID()].Handle()]; ok && rank < bestRank {
			best, bestRank = node.ID(), rank
		}
	}
	if best >= 0 {
		return best
	}

	for _, node := range component {
		for _, e := range adjacency[node.ID()] {
			if e.other(node.ID()) < 0 && !isLoopJoint(e.joint) {
				return node.ID()
			}
		}
	}
	return component[0].ID()
}

func isLoopJoint(joint constraint.Joint) bool {
	base := joint.Base()
	return base.Kind().ClosesLoop() || base.SolverModel() == constraint.ModelLoop
}

// traverse walks the island breadth first from root, visiting the joints of each body by
// ascending id. A joint that reaches an already visited body, a second world attachment,
// or a joint that always closes loops is classified as a loop joint.
func traverse(id int, root int64, dynamic []*actor.RigidBody, adjacency map[int64][]*edge) *Island {
	island := newIsland(id)
	island.Root = dynamic[root]

	slots := make(map[int64]int)
	slots[root] = island.addBody(dynamic[root])

	seen := make(map[*edge]bool)
	var tree, loops []*edge
	worldAnchored := false

	queue := []int64{root}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		for _, e := range adjacency[node] {
			if seen[e] {
				continue
			}
			seen[e] = true

			other := e.other(node)
			_, visited := slots[other]
			switch {
			case isLoopJoint(e.joint):
				loops = append(loops, e)
				if other >= 0 && !visited {
					slots[other] = island.addBody(dynamic[other])
					queue = append(queue, other)
				}
			case other < 0:
				if node == root && !worldAnchored {
					worldAnchored = true
					tree = append(tree, e)
				} else {
					loops = append(loops, e)
				}
			default:
				if visited {
					loops = append(loops, e)
					continue
				}
				slots[other] = island.addBody(dynamic[other])
				tree = append(tree, e)
				queue = append(queue, other)
			}
		}
	}

	link := func(e *edge, loop bool) Link {
		return Link{
			Joint:  e.joint,
			Body0:  e.body0,
			Body1:  e.body1,
			Index0: island.IndexOf(e.body0.Handle()),
			Index1: island.IndexOf(e.body1.Handle()),
			Loop:   loop,
		}
	}
	for _, e := range tree {
		island.Links = append(island.Links, link(e, false))
	}
	island.treeLinks = len(island.Links)
	for _, e := range loops {
		island.Links = append(island.Links, link(e, true))
	}

	sleeping := 0
	for _, body := range island.Bodies {
		if body.IsSleeping {
			sleeping++
		}
	}
	switch sleeping {
	case len(island.Bodies):
		island.sleeping = true
	case 0:
	default:
		// an awake body joined a sleeping group
		island.Wake()
	}
	return island
}
