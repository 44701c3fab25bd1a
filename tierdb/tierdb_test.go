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

package tierdb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/GamesCrafters/gamesmanone/api"
	"github.com/GamesCrafters/gamesmanone/internal/fixturegame"
	"github.com/GamesCrafters/gamesmanone/record"
)

func testLayout(t *testing.T) Layout {
	t.Helper()
	return Layout{DataPath: t.TempDir(), Game: "fixture", Variant: 0, DB: "arraydb"}
}

func TestFlushAndProbeRoundTrip(t *testing.T) {
	game := fixturegame.OneMoveWin{}
	db, err := Open(testLayout(t), 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.CreateSolvingTier(0, 2); err != nil {
		t.Fatal(err)
	}
	if err := db.SetBoth(1, api.Lose, 0); err != nil {
		t.Fatal(err)
	}
	if err := db.SetBoth(0, api.Win, 1); err != nil {
		t.Fatal(err)
	}
	if err := db.FlushSolvingTier(game); err != nil {
		t.Fatal(err)
	}
	db.FreeSolvingTier()

	probe := db.NewProbe(game)
	defer probe.Close()

	v, err := probe.ProbeValue(api.TierPosition{Tier: 0, Position: 0})
	if err != nil || v != api.Win {
		t.Fatalf("ProbeValue(0) = %v, %v; want Win, nil", v, err)
	}
	r, err := probe.ProbeRemoteness(api.TierPosition{Tier: 0, Position: 0})
	if err != nil || r != 1 {
		t.Fatalf("ProbeRemoteness(0) = %v, %v; want 1, nil", r, err)
	}
	v, err = probe.ProbeValue(api.TierPosition{Tier: 0, Position: 1})
	if err != nil || v != api.Lose {
		t.Fatalf("ProbeValue(1) = %v, %v; want Lose, nil", v, err)
	}

	if db.Status(game, 0) != TierSolved {
		t.Fatalf("expected tier 0 to report Solved")
	}
}

func TestFlushAtomicityLeavesNoTmp(t *testing.T) {
	game := fixturegame.OneMoveWin{}
	layout := testLayout(t)
	db, err := Open(layout, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.CreateSolvingTier(0, 2); err != nil {
		t.Fatal(err)
	}
	if err := db.FlushSolvingTier(game); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(layout.Dir())
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".xz" {
			t.Fatalf("unexpected leftover file after flush: %s", e.Name())
		}
	}
	name, err := db.tierName(game, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(layout.TierPath(name)); err != nil {
		t.Fatalf("expected %s.adb.xz to exist: %v", name, err)
	}
}

func TestLoadTierAndSiblingReads(t *testing.T) {
	game := fixturegame.Chain{N: 3}
	db, err := Open(testLayout(t), 0)
	if err != nil {
		t.Fatal(err)
	}
	// solve and flush tier 0, the chain's base case (primitive Lose).
	if err := db.CreateSolvingTier(0, 1); err != nil {
		t.Fatal(err)
	}
	if err := db.SetBoth(0, api.Lose, 0); err != nil {
		t.Fatal(err)
	}
	if err := db.FlushSolvingTier(game); err != nil {
		t.Fatal(err)
	}
	db.FreeSolvingTier()

	if err := db.LoadTier(game, 0, 1); err != nil {
		t.Fatal(err)
	}
	if !db.IsTierLoaded(0) {
		t.Fatal("expected tier 0 to be loaded")
	}
	v, err := db.GetValueFromLoaded(0, 0)
	if err != nil || v != api.Lose {
		t.Fatalf("GetValueFromLoaded = %v, %v; want Lose, nil", v, err)
	}
	db.UnloadTier(0)
	if db.IsTierLoaded(0) {
		t.Fatal("expected tier 0 to be unloaded")
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	game := fixturegame.OneMoveWin{}
	db, err := Open(testLayout(t), 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.CreateSolvingTier(0, 2); err != nil {
		t.Fatal(err)
	}
	if err := db.SetBoth(1, api.Lose, 0); err != nil {
		t.Fatal(err)
	}

	status := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	if err := db.CheckpointSave(game, status); err != nil {
		t.Fatal(err)
	}
	if !db.CheckpointExists(game, 0) {
		t.Fatal("expected checkpoint to exist")
	}

	db.FreeSolvingTier()

	restored, err := db.CheckpointLoad(game, 0, 2, len(status))
	if err != nil {
		t.Fatal(err)
	}
	if string(restored) != string(status) {
		t.Fatalf("restored status blob = %x, want %x", restored, status)
	}
	if v := db.GetValue(1); v != api.Lose {
		t.Fatalf("restored record array: GetValue(1) = %v, want Lose", v)
	}
	if r := db.GetRemoteness(1); r != 0 {
		t.Fatalf("restored record array: GetRemoteness(1) = %v, want 0", r)
	}

	if err := db.CheckpointRemove(game, 0); err != nil {
		t.Fatal(err)
	}
	if db.CheckpointExists(game, 0) {
		t.Fatal("expected checkpoint to be gone after CheckpointRemove")
	}
}

func TestGameStatus(t *testing.T) {
	db, err := Open(testLayout(t), 0)
	if err != nil {
		t.Fatal(err)
	}
	if db.GameStatus() != GameIncomplete {
		t.Fatal("fresh database should report Incomplete")
	}
	if err := db.MarkGameSolved(); err != nil {
		t.Fatal(err)
	}
	if db.GameStatus() != GameSolved {
		t.Fatal("expected Solved after MarkGameSolved")
	}
}

// sanity check that record.MaxRemoteness round-trips through a probe,
// exercising a record value at the top of the encodable range.
func TestProbeLargeRemoteness(t *testing.T) {
	game := fixturegame.OneMoveWin{}
	db, err := Open(testLayout(t), 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.CreateSolvingTier(0, 2); err != nil {
		t.Fatal(err)
	}
	if err := db.SetBoth(0, api.Win, record.MaxRemoteness); err != nil {
		t.Fatal(err)
	}
	if err := db.FlushSolvingTier(game); err != nil {
		t.Fatal(err)
	}
	db.FreeSolvingTier()

	probe := db.NewProbe(game)
	defer probe.Close()
	r, err := probe.ProbeRemoteness(api.TierPosition{Tier: 0, Position: 0})
	if err != nil || r != record.MaxRemoteness {
		t.Fatalf("ProbeRemoteness = %v, %v; want %v, nil", r, err, record.MaxRemoteness)
	}
}
