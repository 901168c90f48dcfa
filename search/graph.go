// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package search

import (
	"container/heap"
	"maps"
	"slices"

	"github.com/poiesic/hybridrag/ai"
	"github.com/poiesic/hybridrag/core"
)

// graphHops bounds how far from a query entity related entities are collected.
const graphHops = 2

// knowledgeGraph is an undirected entity co-occurrence graph plus a map from
// entity to the chunk positions that mention it.
type knowledgeGraph struct {
	labels   map[string]string
	adj      map[string]map[string]float64
	postings map[string][]int
}

func newKnowledgeGraph() *knowledgeGraph {
	return &knowledgeGraph{
		labels:   make(map[string]string),
		adj:      make(map[string]map[string]float64),
		postings: make(map[string][]int),
	}
}

func (g *knowledgeGraph) clone() *knowledgeGraph {
	c := &knowledgeGraph{
		labels:   maps.Clone(g.labels),
		adj:      make(map[string]map[string]float64, len(g.adj)),
		postings: make(map[string][]int, len(g.postings)),
	}
	for k, v := range g.adj {
		c.adj[k] = maps.Clone(v)
	}
	for k, v := range g.postings {
		c.postings[k] = slices.Clone(v)
	}
	return c
}

func (g *knowledgeGraph) nodeCount() int { return len(g.labels) }

func (g *knowledgeGraph) edgeCount() int {
	var n int
	for _, nbrs := range g.adj {
		n += len(nbrs)
	}
	return n / 2
}

// addNode inserts name with label. An existing node keeps its first label.
func (g *knowledgeGraph) addNode(name, label string) {
	if _, ok := g.labels[name]; !ok {
		g.labels[name] = label
	}
}

// addEdge adds weight to the undirected edge a-b, creating it if needed.
func (g *knowledgeGraph) addEdge(a, b string, weight float64) {
	if a == b {
		return
	}
	for _, pair := range [2][2]string{{a, b}, {b, a}} {
		nbrs, ok := g.adj[pair[0]]
		if !ok {
			nbrs = make(map[string]float64)
			g.adj[pair[0]] = nbrs
		}
		nbrs[pair[1]] += weight
	}
}

// addPosting records that entity occurs in chunk pos. Positions stay sorted
// because chunks are added in position order.
func (g *knowledgeGraph) addPosting(entity string, pos int) {
	list := g.postings[entity]
	if n := len(list); n > 0 && list[n-1] >= pos {
		if _, found := slices.BinarySearch(list, pos); found {
			return
		}
		list = append(list, pos)
		slices.Sort(list)
	} else {
		list = append(list, pos)
	}
	g.postings[entity] = list
}

// addChunk folds one chunk's entity analysis into the graph. Every distinct
// pair of entities sharing a sentence adds 1.0 to their edge.
func (g *knowledgeGraph) addChunk(pos int, analysis *ai.Analysis) {
	if analysis == nil {
		return
	}
	for _, sentence := range analysis.Sentences {
		var names []string
		for _, ent := range sentence.Entities {
			name := normalizeEntity(ent.Text)
			if name == "" {
				continue
			}
			g.addNode(name, ai.NormalizeLabel(ent.Label))
			g.addPosting(name, pos)
			if !slices.Contains(names, name) {
				names = append(names, name)
			}
		}
		for i := range names {
			for j := i + 1; j < len(names); j++ {
				g.addEdge(names[i], names[j], 1.0)
			}
		}
	}
}

// within returns the nodes reachable from source in at most hops edges,
// including source, sorted by name.
func (g *knowledgeGraph) within(source string, hops int) []string {
	if _, ok := g.labels[source]; !ok {
		return nil
	}
	seen := map[string]bool{source: true}
	frontier := []string{source}
	for depth := 0; depth < hops && len(frontier) > 0; depth++ {
		var next []string
		for _, node := range frontier {
			for nbr := range g.adj[node] {
				if !seen[nbr] {
					seen[nbr] = true
					next = append(next, nbr)
				}
			}
		}
		frontier = next
	}
	return slices.Sorted(maps.Keys(seen))
}

// shortestPaths runs Dijkstra from source over edge weights.
func (g *knowledgeGraph) shortestPaths(source string) map[string]float64 {
	dist := map[string]float64{source: 0}
	done := make(map[string]bool)
	pq := &distQueue{{node: source, dist: 0}}
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(distItem)
		if done[cur.node] {
			continue
		}
		done[cur.node] = true
		for nbr, w := range g.adj[cur.node] {
			d := cur.dist + w
			if old, ok := dist[nbr]; !ok || d < old {
				dist[nbr] = d
				heap.Push(pq, distItem{node: nbr, dist: d})
			}
		}
	}
	return dist
}

// scores accumulates 1/(1+d) for every chunk mapped to an entity within
// graphHops of a query entity, where d is the weighted shortest path length.
// The result is not normalized.
func (g *knowledgeGraph) scores(queryEntities []string, n int) []float64 {
	out := make([]float64, n)
	for _, q := range queryEntities {
		related := g.within(q, graphHops)
		if len(related) == 0 {
			continue
		}
		dist := g.shortestPaths(q)
		for _, entity := range related {
			d, ok := dist[entity]
			if !ok {
				continue
			}
			for _, pos := range g.postings[entity] {
				if pos < n {
					out[pos] += 1.0 / (1.0 + d)
				}
			}
		}
	}
	return out
}

// snapshot exports the graph in sorted order. Each undirected edge appears once with From < To.
func (g *knowledgeGraph) snapshot() ([]core.GraphNode, []core.GraphEdge, []core.EntityPosting) {
	names := slices.Sorted(maps.Keys(g.labels))
	nodes := make([]core.GraphNode, 0, len(names))
	for _, name := range names {
		nodes = append(nodes, core.GraphNode{Name: name, Label: g.labels[name]})
	}

	var edges []core.GraphEdge
	for _, from := range slices.Sorted(maps.Keys(g.adj)) {
		for _, to := range slices.Sorted(maps.Keys(g.adj[from])) {
			if from < to {
				edges = append(edges, core.GraphEdge{From: from, To: to, Weight: g.adj[from][to]})
			}
		}
	}

	entities := slices.Sorted(maps.Keys(g.postings))
	postings := make([]core.EntityPosting, 0, len(entities))
	for _, e := range entities {
		postings = append(postings, core.EntityPosting{Entity: e, Positions: slices.Clone(g.postings[e])})
	}
	return nodes, edges, postings
}

func graphFromSnapshot(nodes []core.GraphNode, edges []core.GraphEdge, postings []core.EntityPosting) *knowledgeGraph {
	g := newKnowledgeGraph()
	for _, n := range nodes {
		g.addNode(n.Name, n.Label)
	}
	for _, e := range edges {
		g.addEdge(e.From, e.To, e.Weight)
	}
	for _, p := range postings {
		list := slices.Clone(p.Positions)
		slices.Sort(list)
		g.postings[p.Entity] = slices.Compact(list)
	}
	return g
}

type distItem struct {
	node string
	dist float64
}

// distQueue is a min-heap on dist, ties broken by node name.
type distQueue []distItem

func (q distQueue) Len() int { return len(q) }
func (q distQueue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].node < q[j].node
}
func (q distQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *distQueue) Push(x any)   { *q = append(*q, x.(distItem)) }
func (q *distQueue) Pop() any {
	old := *q
	item := old[len(old)-1]
	*q = old[:len(old)-1]
	return item
}
