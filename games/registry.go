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

// Package games is the seam between cmd/gamesman and concrete
// api.GameApi implementations. Shipping an actual game's rules is out
// of scope here; a real deployment of this CLI registers its games in
// an init() elsewhere (or a plugin build) and links them in. The
// registry itself, and the CLI's use of it, is in scope.
package games

import (
	"fmt"
	"sort"
	"sync"

	"github.com/GamesCrafters/gamesmanone/api"
	"github.com/GamesCrafters/gamesmanone/errs"
)

// Factory builds a game's api.GameApi for a given variant number.
type Factory func(variant int) (api.GameApi, error)

var (
	mu    sync.Mutex
	games = map[string]Factory{}
)

// Register associates name with factory. Calling Register twice for
// the same name replaces the previous factory; this mirrors how the
// teacher's db.Builder registration map (cmd/sdb's index format
// table) is populated from multiple init()s without guarding against
// double registration.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	games[name] = factory
}

// Lookup resolves name to a GameApi for the given variant.
func Lookup(name string, variant int) (api.GameApi, error) {
	mu.Lock()
	factory, ok := games[name]
	mu.Unlock()
	if !ok {
		return nil, errs.Wrap(errs.IllegalGameName, fmt.Errorf("games: no game registered under name %q", name))
	}
	game, err := factory(variant)
	if err != nil {
		return nil, errs.Wrap(errs.GameInit, err)
	}
	return game, nil
}

// Names returns every registered game name, sorted.
func Names() []string {
	mu.Lock()
	defer mu.Unlock()
	out := make([]string, 0, len(games))
	for name := range games {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
