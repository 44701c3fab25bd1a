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

package games

import (
	"errors"
	"testing"

	"github.com/GamesCrafters/gamesmanone/api"
	"github.com/GamesCrafters/gamesmanone/errs"
	"github.com/GamesCrafters/gamesmanone/internal/fixturegame"
)

func TestLookup_Unregistered(t *testing.T) {
	_, err := Lookup("no-such-game", 0)
	if !errors.Is(err, errs.ErrIllegalGameName) {
		t.Fatalf("err = %v; want IllegalGameName", err)
	}
}

func TestRegisterAndLookup(t *testing.T) {
	Register("chain-test", func(variant int) (api.GameApi, error) {
		return fixturegame.Chain{N: api.Tier(variant + 1)}, nil
	})

	game, err := Lookup("chain-test", 2)
	if err != nil {
		t.Fatal(err)
	}
	if want := api.Tier(2); game.GetInitialTier() != want {
		t.Fatalf("GetInitialTier() = %v; want %v", game.GetInitialTier(), want)
	}

	names := Names()
	found := false
	for _, n := range names {
		if n == "chain-test" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Names() = %v; want to contain %q", names, "chain-test")
	}
}
