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

func TestSolveTierOneBit_OneMoveWin(t *testing.T) {
	game := fixturegame.OneMoveWin{}
	db := openTestDB(t)
	if err := SolveTierOneBit(game, db, 0, Options{Workers: 1}); err != nil {
		t.Fatal(err)
	}
	if v, r := probeRecord(t, db, game, 0, 0); v != api.Win || r != 1 {
		t.Fatalf("position 0 = (%v, %v); want (Win, 1)", v, r)
	}
	if v, r := probeRecord(t, db, game, 0, 1); v != api.Lose || r != 0 {
		t.Fatalf("position 1 = (%v, %v); want (Lose, 0)", v, r)
	}
}

func TestSolveTierOneBit_TieAndDraw(t *testing.T) {
	game := fixturegame.TieLine{}
	db := openTestDB(t)
	if err := SolveTierOneBit(game, db, 0, Options{Workers: 1}); err != nil {
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
	}
	for _, c := range cases {
		if v, r := probeRecord(t, db, game, 0, c.pos); v != c.want || r != c.rem {
			t.Fatalf("position %d = (%v, %v); want (%v, %v)", c.pos, v, r, c.want, c.rem)
		}
	}
	if v, _ := probeRecord(t, db, game, 0, 3); v != api.Draw {
		t.Fatalf("position 3 = %v; want Draw", v)
	}
}

// TestSolveTierOneBit_FanExternalMemory exercises the worker's defining
// property: tier 0 is solved and flushed to disk (never loaded back
// into memory as a RecordArray) before tier 1 is solved purely through
// Probe reads, with tier 0 positions fanning out to multiple tier 1
// parents.
func TestSolveTierOneBit_FanExternalMemory(t *testing.T) {
	game := fixturegame.Fan{}
	db := openTestDB(t)

	if err := SolveTierOneBit(game, db, 0, Options{Workers: 1}); err != nil {
		t.Fatal(err)
	}
	if db.Status(game, 0) != tierdb.TierSolved {
		t.Fatal("expected tier 0 to be on disk after SolveTierOneBit")
	}

	if err := SolveTierOneBit(game, db, 1, Options{Workers: 1}); err != nil {
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

func TestSolveTierOneBit_AgreesWithVI(t *testing.T) {
	chainN := api.Tier(4)
	gameVI := fixturegame.Chain{N: chainN}
	gameOB := fixturegame.Chain{N: chainN}
	dbVI := openTestDB(t)
	dbOB := openTestDB(t)

	for tier := api.Tier(0); tier < chainN; tier++ {
		if err := SolveTierVI(gameVI, dbVI, tier, Options{Workers: 1}); err != nil {
			t.Fatalf("VI tier %d: %v", tier, err)
		}
		// SolveTierVI also flushes and frees slot 0 itself.
		if dbVI.Status(gameVI, tier) != tierdb.TierSolved {
			t.Fatalf("VI tier %d: not on disk after SolveTierVI", tier)
		}

		if err := SolveTierOneBit(gameOB, dbOB, tier, Options{Workers: 1}); err != nil {
			t.Fatalf("one-bit tier %d: %v", tier, err)
		}
		// SolveTierOneBit already flushed and freed slot 0 internally.
	}

	probeVI := dbVI.NewProbe(gameVI)
	defer probeVI.Close()
	probeOB := dbOB.NewProbe(gameOB)
	defer probeOB.Close()

	for tier := api.Tier(0); tier < chainN; tier++ {
		tp := api.TierPosition{Tier: tier, Position: 0}
		vVI, err := probeVI.ProbeValue(tp)
		if err != nil {
			t.Fatal(err)
		}
		vOB, err := probeOB.ProbeValue(tp)
		if err != nil {
			t.Fatal(err)
		}
		if vVI != vOB {
			t.Fatalf("tier %d: VI = %v, one-bit = %v", tier, vVI, vOB)
		}
		rVI, err := probeVI.ProbeRemoteness(tp)
		if err != nil {
			t.Fatal(err)
		}
		rOB, err := probeOB.ProbeRemoteness(tp)
		if err != nil {
			t.Fatal(err)
		}
		if rVI != rOB {
			t.Fatalf("tier %d: VI remoteness = %v, one-bit remoteness = %v", tier, rVI, rOB)
		}
	}
}
