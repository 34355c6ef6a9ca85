// Package flowgraph implements the Flow's Item DAG: a graph of typed edges
// (Logic, Contains, Data) over ids.ItemId keys, with cycle detection on
// Logic edges at build time and a ready-set driven concurrent stream for
// execution, grounded on the dependency-ordering algorithm in the
// teacher's graph package (Kahn's algorithm over an adjacency list), but
// reworked from a single-shot topological sort into a pollable stream so
// that a CmdBlock can run sibling Items concurrently while still honoring
// Logic-edge ordering (SPEC_FULL.md §4.4).
package flowgraph

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/flowrt/flowrt/ids"
)

// EdgeKind tags a directed edge between two Items.
type EdgeKind int

const (
	// Logic edges are "must happen before" ordering constraints; only
	// these (and Contains edges that imply Logic containment) affect
	// execution order.
	Logic EdgeKind = iota
	// Contains edges express grouping, which by itself has no ordering
	// effect. AddEdge still folds every Contains edge into the Logic
	// adjacency as a conservative over-approximation of "implies
	// containment of Logic": a caller adding a plain grouping Contains
	// edge with no Logic relationship among its members will still see
	// src ordered before tgt. Callers that need grouping with no
	// ordering at all should track that containment out-of-band rather
	// than through AddEdge.
	Contains
	// Data edges are informational dataflow with no ordering effect.
	Data
)

func (k EdgeKind) String() string {
	switch k {
	case Logic:
		return "logic"
	case Contains:
		return "contains"
	case Data:
		return "data"
	default:
		return "unknown"
	}
}

// DuplicateIdError is returned by Add when id is already present.
type DuplicateIdError struct{ ID ids.ItemId }

func (e *DuplicateIdError) Error() string {
	return fmt.Sprintf("item id already present in flow graph: %s", e.ID)
}

// UnknownIdError is returned by AddEdge when src or tgt has not been Added.
type UnknownIdError struct{ ID ids.ItemId }

func (e *UnknownIdError) Error() string {
	return fmt.Sprintf("item id not present in flow graph: %s", e.ID)
}

// WouldCycleError is returned by AddEdge when a Logic edge would close a
// cycle among Logic-ordered Items.
type WouldCycleError struct {
	Src, Tgt ids.ItemId
}

func (e *WouldCycleError) Error() string {
	return fmt.Sprintf("adding logic edge %s -> %s would create a cycle", e.Src, e.Tgt)
}

type edge struct {
	src, tgt ids.ItemId
	kind     EdgeKind
}

// Graph is a DAG of Items keyed by ids.ItemId. N is the node payload type
// (typically an item.Wrapper); flowgraph itself has no dependency on the
// Item contract.
type Graph[N any] struct {
	mu    sync.RWMutex
	nodes map[ids.ItemId]N
	order []ids.ItemId // insertion order, for stable tie-breaking

	edges []edge

	logicSucc map[ids.ItemId][]ids.ItemId
	logicPred map[ids.ItemId][]ids.ItemId
}

// New returns an empty Graph.
func New[N any]() *Graph[N] {
	return &Graph[N]{
		nodes:     make(map[ids.ItemId]N),
		logicSucc: make(map[ids.ItemId][]ids.ItemId),
		logicPred: make(map[ids.ItemId][]ids.ItemId),
	}
}

// Add inserts a node under id. Duplicate ids fail with *DuplicateIdError.
func (g *Graph[N]) Add(id ids.ItemId, node N) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes[id]; ok {
		return &DuplicateIdError{ID: id}
	}
	g.nodes[id] = node
	g.order = append(g.order, id)
	g.logicSucc[id] = nil
	g.logicPred[id] = nil
	return nil
}

// Len returns the number of nodes in the graph.
func (g *Graph[N]) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.order)
}

// IDs returns the node ids in insertion order.
func (g *Graph[N]) IDs() []ids.ItemId {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]ids.ItemId, len(g.order))
	copy(out, g.order)
	return out
}

// TopoOrder returns node ids in a topological order consistent with Logic
// edges, ties broken by insertion order (stable) — Kahn's algorithm over
// the Logic adjacency, grounded on the same ordering the teacher's
// GetExecutionOrder produces, but exposed as a plain slice for callers
// (StatesSerializer) that need one full ordering rather than a pollable
// stream.
func (g *Graph[N]) TopoOrder() []ids.ItemId {
	g.mu.RLock()
	defer g.mu.RUnlock()

	indegree := make(map[ids.ItemId]int, len(g.order))
	for _, id := range g.order {
		indegree[id] = len(g.logicPred[id])
	}

	var ready []ids.ItemId
	for _, id := range g.order {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	out := make([]ids.ItemId, 0, len(g.order))
	for len(ready) > 0 {
		sort.SliceStable(ready, func(i, j int) bool {
			return indexOf(g.order, ready[i]) < indexOf(g.order, ready[j])
		})
		id := ready[0]
		ready = ready[1:]
		out = append(out, id)
		for _, succ := range g.logicSucc[id] {
			indegree[succ]--
			if indegree[succ] == 0 {
				ready = append(ready, succ)
			}
		}
	}
	return out
}

// Node returns the node stored under id.
func (g *Graph[N]) Node(id ids.ItemId) (N, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	return n, ok
}

// AddEdge inserts a typed edge from src to tgt. Logic edges are checked for
// cycles before being committed; on cycle detection the edge is not added
// and *WouldCycleError is returned. Contains edges are folded into the
// same adjacency and checked the same way (see the Contains doc comment)
// since this package cannot distinguish "grouping only" from "grouping
// that implies Logic containment" from the edge alone.
func (g *Graph[N]) AddEdge(src, tgt ids.ItemId, kind EdgeKind) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[src]; !ok {
		return &UnknownIdError{ID: src}
	}
	if _, ok := g.nodes[tgt]; !ok {
		return &UnknownIdError{ID: tgt}
	}

	if kind == Logic || kind == Contains {
		g.logicSucc[src] = append(g.logicSucc[src], tgt)
		g.logicPred[tgt] = append(g.logicPred[tgt], src)

		if g.hasCycleLocked() {
			// Roll back.
			g.logicSucc[src] = g.logicSucc[src][:len(g.logicSucc[src])-1]
			g.logicPred[tgt] = g.logicPred[tgt][:len(g.logicPred[tgt])-1]
			return &WouldCycleError{Src: src, Tgt: tgt}
		}
	}

	g.edges = append(g.edges, edge{src: src, tgt: tgt, kind: kind})
	return nil
}

// hasCycleLocked runs a depth-first cycle check over the Logic adjacency.
// Caller must hold g.mu.
func (g *Graph[N]) hasCycleLocked() bool {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[ids.ItemId]int, len(g.order))
	var visit func(id ids.ItemId) bool
	visit = func(id ids.ItemId) bool {
		color[id] = gray
		for _, succ := range g.logicSucc[id] {
			switch color[succ] {
			case gray:
				return true
			case white:
				if visit(succ) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}
	for _, id := range g.order {
		if color[id] == white {
			if visit(id) {
				return true
			}
		}
	}
	return false
}

// Ready is one node made available by a Stream: the consumer must call
// Complete once it has produced the node's downstream result, which
// unblocks its Logic successors.
type Ready[N any] struct {
	ID   ids.ItemId
	Node N

	stream *Stream[N]
}

// Complete signals that this node's per-item result has been produced,
// allowing its Logic successors (in the stream's direction) to become
// ready once all of their other predecessors have also completed.
func (r *Ready[N]) Complete() {
	r.stream.complete(r.ID)
}

// Stream is a ready-set driven, concurrency-safe iterator over a Graph's
// nodes that honors Logic-edge predecessor ordering: a node is handed out
// only once every Logic predecessor (in the stream's direction) has been
// marked Complete. Independent siblings may be pulled concurrently.
type Stream[N any] struct {
	g    *Graph[N]
	succ map[ids.ItemId][]ids.ItemId
	pred map[ids.ItemId][]ids.ItemId

	mu         sync.Mutex
	remaining  map[ids.ItemId]int // unmet predecessor count
	scheduled  int
	total      int
	readyCh    chan ids.ItemId
	closedOnce sync.Once
}

func newStream[N any](g *Graph[N], succ, pred map[ids.ItemId][]ids.ItemId) *Stream[N] {
	g.mu.RLock()
	defer g.mu.RUnlock()

	total := len(g.order)
	s := &Stream[N]{
		g:         g,
		succ:      succ,
		pred:      pred,
		remaining: make(map[ids.ItemId]int, total),
		total:     total,
		readyCh:   make(chan ids.ItemId, total),
	}

	var initial []ids.ItemId
	for _, id := range g.order {
		n := len(pred[id])
		s.remaining[id] = n
		if n == 0 {
			initial = append(initial, id)
		}
	}
	sort.SliceStable(initial, func(i, j int) bool {
		return indexOf(g.order, initial[i]) < indexOf(g.order, initial[j])
	})
	for _, id := range initial {
		s.readyCh <- id
		s.scheduled++
	}
	if s.scheduled == s.total {
		close(s.readyCh)
	}
	return s
}

func indexOf(order []ids.ItemId, id ids.ItemId) int {
	for i, o := range order {
		if o == id {
			return i
		}
	}
	return -1
}

// Stream returns a forward Stream: Logic edges point from predecessor to
// successor, matching the graph's own edge direction. Used for
// discover/diff/apply phases.
func (g *Graph[N]) Stream() *Stream[N] {
	return newStream(g, g.logicSucc, g.logicPred)
}

// StreamRev returns a Stream traversing Logic edges in reverse, used for
// clean/delete phases where dependents must be torn down before their
// dependencies.
func (g *Graph[N]) StreamRev() *Stream[N] {
	return newStream(g, g.logicPred, g.logicSucc)
}

// Next blocks until a node is ready, the stream is exhausted (ok=false),
// or ctx is done (ok=false, err=ctx.Err()).
func (s *Stream[N]) Next(ctx context.Context) (*Ready[N], bool, error) {
	select {
	case id, ok := <-s.readyCh:
		if !ok {
			return nil, false, nil
		}
		node, _ := s.g.Node(id)
		return &Ready[N]{ID: id, Node: node, stream: s}, true, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

func (s *Stream[N]) complete(id ids.ItemId) {
	s.mu.Lock()
	defer s.mu.Unlock()

	succs := append([]ids.ItemId(nil), s.succ[id]...)
	sort.SliceStable(succs, func(i, j int) bool {
		return indexOf(s.g.order, succs[i]) < indexOf(s.g.order, succs[j])
	})
	for _, succ := range succs {
		s.remaining[succ]--
		if s.remaining[succ] == 0 {
			s.readyCh <- succ
			s.scheduled++
		}
	}
	if s.scheduled == s.total {
		s.closedOnce.Do(func() { close(s.readyCh) })
	}
}
