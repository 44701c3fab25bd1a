// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package tiergraph builds and walks the tier DAG: an iterative DFS
// topological ordering of a game's tiers, a ready-queue of tiers whose
// children have all been solved, and a CAS-based ChildSolved
// notification path for concurrent tier workers.
package tiergraph

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/GamesCrafters/gamesmanone/api"
	"github.com/GamesCrafters/gamesmanone/errs"
	"github.com/GamesCrafters/gamesmanone/heap"
)

type color uint8

const (
	white color = iota // not yet visited
	gray               // on the current DFS stack
	black              // fully explored
)

// status is packed into the low 2 bits of a node's atomic state word,
// the remaining bits holding the unsolved-child count, matching the
// "num_unsolved_children * 4 + status" encoding.
type status int64

const (
	statusPending    status = iota // at least one unsolved child
	statusReady                    // zero unsolved children, not yet dispatched
	statusDispatched               // handed out by TakeReady
	statusSolved                   // worker finished successfully
)

const statusBits = 2
const statusMask = int64(1)<<statusBits - 1

func pack(count int64, st status) int64 { return count<<statusBits | int64(st) }
func unpack(state int64) (count int64, st status) {
	return state >> statusBits, status(state & statusMask)
}

type node struct {
	tier    api.Tier
	state   int64 // atomic, see pack/unpack
	parents []api.Tier
}

// Graph holds the built tier DAG plus the live ready-queue state used
// to drive a solve.
type Graph struct {
	nodes map[api.Tier]*node

	mu    sync.Mutex
	ready []api.Tier
}

type dfsFrame struct {
	tier     api.Tier
	children []api.Tier
	idx      int
}

// Build executes the iterative DFS described in spec §4.5, starting
// from game's canonicalized initial tier. It returns
// errs.ErrIllegalTierGraph if a cycle is found (a back-edge to a gray
// node), before any tier has been solved.
func Build(game api.GameApi) (*Graph, error) {
	root, err := game.GetCanonicalTier(game.GetInitialTier())
	if err != nil {
		return nil, errs.Wrap(errs.Runtime, fmt.Errorf("tiergraph: canonicalize initial tier: %w", err))
	}

	colors := map[api.Tier]color{root: gray}
	childCount := map[api.Tier]int64{}
	parentsOf := map[api.Tier]map[api.Tier]bool{}

	children, err := canonicalChildren(game, root)
	if err != nil {
		return nil, err
	}
	stack := []*dfsFrame{{tier: root, children: children}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.idx >= len(top.children) {
			colors[top.tier] = black
			stack = stack[:len(stack)-1]
			continue
		}
		child := top.children[top.idx]
		top.idx++

		if parentsOf[child] == nil {
			parentsOf[child] = map[api.Tier]bool{}
		}
		if !parentsOf[child][top.tier] {
			parentsOf[child][top.tier] = true
			childCount[top.tier]++
		}

		switch colors[child] {
		case gray:
			return nil, errs.Wrap(errs.IllegalTierGraph, fmt.Errorf("tiergraph: cycle detected at tier %v", child))
		case black:
			// already fully explored via another path; edge recorded above
		default: // white
			colors[child] = gray
			grandchildren, err := canonicalChildren(game, child)
			if err != nil {
				return nil, err
			}
			stack = append(stack, &dfsFrame{tier: child, children: grandchildren})
		}
	}

	g := &Graph{nodes: make(map[api.Tier]*node, len(colors))}
	for t := range colors {
		n := &node{tier: t}
		count := childCount[t]
		if ps, ok := parentsOf[t]; ok {
			n.parents = make([]api.Tier, 0, len(ps))
			for p := range ps {
				n.parents = append(n.parents, p)
			}
		}
		st := statusPending
		if count == 0 {
			st = statusReady
		}
		n.state = pack(count, st)
		g.nodes[t] = n
	}
	for t, n := range g.nodes {
		if _, st := unpack(n.state); st == statusReady {
			g.ready = append(g.ready, t)
		}
	}
	heap.OrderSlice(g.ready, tierLess)
	return g, nil
}

func tierLess(a, b api.Tier) bool { return a < b }

func canonicalChildren(game api.GameApi, tier api.Tier) ([]api.Tier, error) {
	raw, err := game.GetChildTiers(tier)
	if err != nil {
		return nil, errs.Wrap(errs.IllegalGameTier, fmt.Errorf("tiergraph: GetChildTiers(%v): %w", tier, err))
	}
	seen := map[api.Tier]bool{}
	out := make([]api.Tier, 0, len(raw))
	for _, c := range raw {
		cc, err := game.GetCanonicalTier(c)
		if err != nil {
			return nil, errs.Wrap(errs.IllegalGameTier, fmt.Errorf("tiergraph: GetCanonicalTier(%v): %w", c, err))
		}
		if !seen[cc] {
			seen[cc] = true
			out = append(out, cc)
		}
	}
	return out, nil
}

// NumTiers returns the number of distinct tiers in the built graph.
func (g *Graph) NumTiers() int { return len(g.nodes) }

// Tiers returns every tier in the built graph, sorted. Used by
// read-only callers (the CLI's analyze/query commands) that need to
// enumerate tiers without driving a solve.
func (g *Graph) Tiers() []api.Tier {
	out := make([]api.Tier, 0, len(g.nodes))
	for t := range g.nodes {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return tierLess(out[i], out[j]) })
	return out
}

// UnsolvedChildren returns tier's current unsolved-child count.
func (g *Graph) UnsolvedChildren(tier api.Tier) (int64, bool) {
	n, ok := g.nodes[tier]
	if !ok {
		return 0, false
	}
	count, _ := unpack(atomic.LoadInt64(&n.state))
	return count, true
}

// TakeReady pops a tier with zero unsolved children that has not yet
// been dispatched, transitioning it to statusDispatched. It returns
// (0, false) if the ready queue is currently empty.
func (g *Graph) TakeReady() (api.Tier, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.ready) == 0 {
		return 0, false
	}
	t := heap.PopSlice(&g.ready, tierLess)
	n := g.nodes[t]
	count, _ := unpack(atomic.LoadInt64(&n.state))
	atomic.StoreInt64(&n.state, pack(count, statusDispatched))
	return t, true
}

// MarkSolved transitions tier to statusSolved without touching the
// ready queue; used for tiers the manager dispatches and completes
// without ever needing ChildSolved to wake them (e.g. leaves).
func (g *Graph) MarkSolved(tier api.Tier) {
	n, ok := g.nodes[tier]
	if !ok {
		return
	}
	for {
		old := atomic.LoadInt64(&n.state)
		count, _ := unpack(old)
		if atomic.CompareAndSwapInt64(&n.state, old, pack(count, statusSolved)) {
			return
		}
	}
}

// ChildSolved decrements the unsolved-child counter of every canonical
// parent of tier. Parents are already deduplicated at Build time (two
// raw parents canonicalizing to the same tier collapse to one entry),
// so each parent is decremented exactly once per call. The decrement
// itself is a CAS loop so two siblings finishing concurrently cannot
// lose an update; a parent is pushed to the ready queue exactly once,
// by whichever goroutine's successful CAS first observes its count
// reach zero.
func (g *Graph) ChildSolved(tier api.Tier) {
	n, ok := g.nodes[tier]
	if !ok {
		return
	}
	for _, parent := range n.parents {
		pn := g.nodes[parent]
		if pn == nil {
			continue
		}
		for {
			old := atomic.LoadInt64(&pn.state)
			count, st := unpack(old)
			if count <= 0 {
				break
			}
			count--
			newSt := st
			ready := false
			if count == 0 && st == statusPending {
				newSt = statusReady
				ready = true
			}
			if atomic.CompareAndSwapInt64(&pn.state, old, pack(count, newSt)) {
				if ready {
					g.mu.Lock()
					heap.PushSlice(&g.ready, parent, tierLess)
					g.mu.Unlock()
				}
				break
			}
		}
	}
}
