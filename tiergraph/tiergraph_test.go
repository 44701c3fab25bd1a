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

package tiergraph

import (
	"testing"

	"github.com/GamesCrafters/gamesmanone/api"
	"github.com/GamesCrafters/gamesmanone/errs"
	"github.com/GamesCrafters/gamesmanone/internal/fixturegame"
)

func TestBuildCycleDetection(t *testing.T) {
	_, err := Build(fixturegame.Cyclic{})
	if err == nil {
		t.Fatal("expected a cycle detection error")
	}
	if k, ok := errs.KindOf(err); !ok || k != errs.IllegalTierGraph {
		t.Fatalf("expected IllegalTierGraph, got %v", err)
	}
}

func TestBuildOneMoveWin(t *testing.T) {
	g, err := Build(fixturegame.OneMoveWin{})
	if err != nil {
		t.Fatal(err)
	}
	if g.NumTiers() != 1 {
		t.Fatalf("expected 1 tier, got %d", g.NumTiers())
	}
	tier, ok := g.TakeReady()
	if !ok || tier != 0 {
		t.Fatalf("expected tier 0 to be immediately ready, got (%v, %v)", tier, ok)
	}
	if _, ok := g.TakeReady(); ok {
		t.Fatal("ready queue should be empty after taking the only tier")
	}
}

func TestBuildChainTopologicalReadiness(t *testing.T) {
	const n = 6
	game := fixturegame.Chain{N: n}
	g, err := Build(game)
	if err != nil {
		t.Fatal(err)
	}
	if g.NumTiers() != n {
		t.Fatalf("expected %d tiers, got %d", n, g.NumTiers())
	}
	solved := map[api.Tier]bool{}
	for len(solved) < n {
		tier, ok := g.TakeReady()
		if !ok {
			t.Fatal("ready queue ran dry before every tier was solved")
		}
		children, err := game.GetChildTiers(tier)
		if err != nil {
			t.Fatal(err)
		}
		for _, c := range children {
			if !solved[c] {
				t.Fatalf("tier %v dispatched before its child %v was solved", tier, c)
			}
		}
		solved[tier] = true
		g.MarkSolved(tier)
		g.ChildSolved(tier)
	}
}

func TestChildSolvedReadiesEveryParent(t *testing.T) {
	// two tiers (1 and 2) both depend on tier 0 and on nothing else;
	// ChildSolved(0) must make both of them ready.
	g := &Graph{nodes: map[api.Tier]*node{
		0: {tier: 0, state: pack(0, statusReady), parents: []api.Tier{1, 2}},
		1: {tier: 1, state: pack(1, statusPending)},
		2: {tier: 2, state: pack(1, statusPending)},
	}}
	g.ChildSolved(0)
	ready := map[api.Tier]bool{}
	for {
		tier, ok := g.TakeReady()
		if !ok {
			break
		}
		ready[tier] = true
	}
	if !ready[1] || !ready[2] {
		t.Fatalf("expected both tiers 1 and 2 ready, got %v", ready)
	}
}
