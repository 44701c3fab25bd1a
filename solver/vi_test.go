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

package solver

import (
	"testing"

	"github.com/GamesCrafters/gamesmanone/api"
	"github.com/GamesCrafters/gamesmanone/internal/fixturegame"
	"github.com/GamesCrafters/gamesmanone/tierdb"
)

func openTestDB(t *testing.T) *tierdb.TierDatabase {
	t.Helper()
	layout := tierdb.Layout{DataPath: t.TempDir(), Game: "fixture", Variant: 0, DB: "arraydb"}
	db, err := tierdb.Open(layout, 0)
	if err != nil {
		t.Fatal(err)
	}
	return db
}

// probeRecord reads pos of tier back from disk through a Probe. The
// tier workers flush and free slot 0 before they return, so a solved
// tier's results are only readable from its flushed file.
func probeRecord(t *testing.T, db *tierdb.TierDatabase, game api.GameApi, tier api.Tier, pos int64) (api.Value, api.Remoteness) {
	t.Helper()
	probe := db.NewProbe(game)
	defer probe.Close()
	tp := api.TierPosition{Tier: tier, Position: api.Position(pos)}
	v, err := probe.ProbeValue(tp)
	if err != nil {
		t.Fatalf("ProbeValue(%v): %v", tp, err)
	}
	r, err := probe.ProbeRemoteness(tp)
	if err != nil {
		t.Fatalf("ProbeRemoteness(%v): %v", tp, err)
	}
	return v, r
}

func TestSolveTierVI_OneMoveWin(t *testing.T) {
	game := fixturegame.OneMoveWin{}
	db := openTestDB(t)
	if err := SolveTierVI(game, db, 0, Options{Workers: 1}); err != nil {
		t.Fatal(err)
	}
	if v, r := probeRecord(t, db, game, 0, 0); v != api.Win || r != 1 {
		t.Fatalf("position 0 = (%v, %v); want (Win, 1)", v, r)
	}
	if v, r := probeRecord(t, db, game, 0, 1); v != api.Lose || r != 0 {
		t.Fatalf("position 1 = (%v, %v); want (Lose, 0)", v, r)
	}
}

func TestSolveTierVI_TieAndDraw(t *testing.T) {
	game := fixturegame.TieLine{}
	db := openTestDB(t)
	if err := SolveTierVI(game, db, 0, Options{Workers: 1}); err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		pos  int64
		want api.Value
		rem  api.Remoteness
	}{
		{2, api.Tie, 0},
		{1, api.Tie, 1},
		{0, api.Tie, 2},
		{3, api.Draw, 0},
	}
	for _, c := range cases {
		if v, r := probeRecord(t, db, game, 0, c.pos); v != c.want || (v != api.Draw && r != c.rem) {
			t.Fatalf("position %d = (%v, %v); want (%v, %v)", c.pos, v, r, c.want, c.rem)
		}
	}
}

func TestSolveTierVI_ChainAcrossTiers(t *testing.T) {
	game := fixturegame.Chain{N: 3}
	db := openTestDB(t)

	for tier := api.Tier(0); tier < 3; tier++ {
		if err := SolveTierVI(game, db, tier, Options{Workers: 1}); err != nil {
			t.Fatalf("tier %d: %v", tier, err)
		}
		// SolveTierVI flushes and frees slot 0 itself.
		if db.Status(game, tier) != tierdb.TierSolved {
			t.Fatalf("tier %d: not on disk after SolveTierVI", tier)
		}
	}

	probe := db.NewProbe(game)
	defer probe.Close()
	want := []api.Value{api.Lose, api.Win, api.Lose}
	for tier := api.Tier(0); tier < 3; tier++ {
		v, err := probe.ProbeValue(api.TierPosition{Tier: tier, Position: 0})
		if err != nil {
			t.Fatalf("tier %d: ProbeValue: %v", tier, err)
		}
		if v != want[tier] {
			t.Fatalf("tier %d = %v; want %v", tier, v, want[tier])
		}
		r, err := probe.ProbeRemoteness(api.TierPosition{Tier: tier, Position: 0})
		if err != nil {
			t.Fatalf("tier %d: ProbeRemoteness: %v", tier, err)
		}
		if api.Tier(r) != tier {
			t.Fatalf("tier %d remoteness = %v; want %v", tier, r, tier)
		}
	}
}

func TestSolveTierVI_Fan(t *testing.T) {
	game := fixturegame.Fan{}
	db := openTestDB(t)

	if err := SolveTierVI(game, db, 0, Options{Workers: 1}); err != nil {
		t.Fatal(err)
	}
	if db.Status(game, 0) != tierdb.TierSolved {
		t.Fatal("expected tier 0 to be on disk after SolveTierVI")
	}

	if err := SolveTierVI(game, db, 1, Options{Workers: 1}); err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		pos  int64
		want api.Value
	}{
		{0, api.Win},
		{1, api.Lose},
		{2, api.Win},
	}
	for _, c := range cases {
		if v, r := probeRecord(t, db, game, 1, c.pos); v != c.want || r != 1 {
			t.Fatalf("tier1 position %d = (%v, %v); want (%v, 1)", c.pos, v, r, c.want)
		}
	}
}
