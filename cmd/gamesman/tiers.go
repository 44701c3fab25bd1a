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

package main

import (
	"github.com/GamesCrafters/gamesmanone/api"
	"github.com/GamesCrafters/gamesmanone/fsutil"
	"github.com/GamesCrafters/gamesmanone/tiergraph"
)

// discoverTiers walks game's tier DAG from its initial tier and
// returns every reachable tier, sorted in ascending order.
func discoverTiers(game api.GameApi) ([]api.Tier, error) {
	graph, err := tiergraph.Build(game)
	if err != nil {
		return nil, err
	}
	return graph.Tiers(), nil
}

// matchGlob reports whether name matches pattern, using the same
// pattern syntax cmd/sdb's gc <table-pattern> argument accepts.
func matchGlob(pattern, name string) (bool, error) {
	var m fsutil.Matcher
	return m.Match(pattern, name)
}
