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
	"fmt"
	"os"

	"github.com/GamesCrafters/gamesmanone/api"
	"github.com/GamesCrafters/gamesmanone/bitset"
	"github.com/GamesCrafters/gamesmanone/compr"
	"github.com/GamesCrafters/gamesmanone/errs"
	"github.com/GamesCrafters/gamesmanone/tierdb"
)

// persistDiscoveryMap LZ4-compresses discover's raw blocks to
// <data>/analysis/<tier>.map.lz4, atomically (temp file then rename),
// so the wavefront a failed one-bit attempt reached stays on disk.
// SolveTierOneBit does not resume from such a map: it logs and
// discards one it finds and solves the tier from the start.
func persistDiscoveryMap(db *tierdb.TierDatabase, game api.GameApi, tier api.Tier, discover *bitset.ConcurrentBitset) error {
	name, err := db.TierName(game, tier)
	if err != nil {
		return err
	}
	dir := db.Layout().AnalysisDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrap(errs.FileSystem, err)
	}
	path := db.Layout().DiscoveryMapPath(name)

	raw := make([]byte, discover.SerializedSize())
	if err := discover.Serialize(raw); err != nil {
		return err
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errs.Wrap(errs.FileSystem, err)
	}
	comp := compr.Compression("lz4")
	packed := comp.Compress(raw, nil)
	if _, err := f.Write(packed); err != nil {
		f.Close()
		os.Remove(tmp)
		return errs.Wrap(errs.FileSystem, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errs.Wrap(errs.FileSystem, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errs.Wrap(errs.FileSystem, err)
	}
	return nil
}

// loadDiscoveryMap restores a previously persisted discovery bitset of
// the given bit count, or reports ok=false if no map file exists yet
// for tier (the common case: a fresh solve, not a resume).
func loadDiscoveryMap(db *tierdb.TierDatabase, game api.GameApi, tier api.Tier, bits int64) (m *bitset.ConcurrentBitset, ok bool, err error) {
	name, err := db.TierName(game, tier)
	if err != nil {
		return nil, false, err
	}
	path := db.Layout().DiscoveryMapPath(name)
	compressed, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errs.Wrap(errs.FileSystem, err)
	}

	m, err = bitset.Create(bits)
	if err != nil {
		return nil, false, err
	}
	dst := make([]byte, m.SerializedSize())
	dec := compr.Decompression("lz4")
	if err := dec.Decompress(compressed, dst); err != nil {
		return nil, false, errs.Wrap(errs.FileSystem, fmt.Errorf("solver: discovery map %v: %w", tier, err))
	}
	if err := m.Deserialize(dst); err != nil {
		return nil, false, err
	}
	return m, true, nil
}

// removeDiscoveryMap deletes tier's persisted discovery map, if any.
// Called once a one-bit solve finishes the tier successfully, since
// the map has no further use past that point.
func removeDiscoveryMap(db *tierdb.TierDatabase, game api.GameApi, tier api.Tier) error {
	name, err := db.TierName(game, tier)
	if err != nil {
		return err
	}
	path := db.Layout().DiscoveryMapPath(name)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errs.Wrap(errs.FileSystem, err)
	}
	return nil
}
