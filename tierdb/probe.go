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
	"fmt"
	"os"

	"github.com/GamesCrafters/gamesmanone/api"
	"github.com/GamesCrafters/gamesmanone/errs"
	"github.com/GamesCrafters/gamesmanone/record"
)

// Probe owns a single open file handle plus a one-block decoded cache.
// It is the concurrency-safe read path for an already-solved tier: one
// Probe per thread, never shared, so ProbeValue/ProbeRemoteness need no
// locking of their own. It automatically reopens a different file when
// asked about a different tier than the one it currently has open.
type Probe struct {
	db   *TierDatabase
	game api.GameApi

	tier    api.Tier
	have    bool
	f       *os.File
	entries []blockEntry
	// cumulative[i] is the uncompressed byte offset at which block i
	// starts, precomputed once per open file so ProbeValue's block
	// lookup is a binary search rather than a rescan.
	cumulative []int64

	blockIdx int
	blockHas bool
	block    []byte
}

// NewProbe returns a Probe reading tier files through db, using game to
// resolve tier names. The returned Probe owns no file until the first
// ProbeValue/ProbeRemoteness call; Close releases it.
func (db *TierDatabase) NewProbe(game api.GameApi) *Probe {
	return &Probe{db: db, game: game}
}

// Close releases the probe's open file handle, if any.
func (p *Probe) Close() error {
	if p.f == nil {
		return nil
	}
	err := p.f.Close()
	p.f = nil
	p.have = false
	p.blockHas = false
	return err
}

func (p *Probe) ensureTier(tier api.Tier) error {
	if p.have && p.tier == tier {
		return nil
	}
	if p.f != nil {
		p.f.Close()
		p.f = nil
	}
	p.blockHas = false

	name, err := p.db.tierName(p.game, tier)
	if err != nil {
		return err
	}
	path := p.db.layout.TierPath(name)
	f, err := os.Open(path)
	if err != nil {
		return errs.Wrap(errs.FileSystem, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return errs.Wrap(errs.FileSystem, err)
	}
	entries, err := readTrailer(f, fi.Size())
	if err != nil {
		f.Close()
		return err
	}
	cumulative := make([]int64, len(entries)+1)
	for i, e := range entries {
		cumulative[i+1] = cumulative[i] + int64(e.uncompressed)
	}

	p.f = f
	p.tier = tier
	p.have = true
	p.entries = entries
	p.cumulative = cumulative
	return nil
}

// blockForOffset finds the block index covering uncompressed byte
// offset off, via a binary search over the cumulative offsets.
func (p *Probe) blockForOffset(off int64) int {
	lo, hi := 0, len(p.entries)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if p.cumulative[mid] <= off {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// recordAt returns the 16-bit record stored at pos within the
// currently-open tier, decompressing and caching whichever block
// covers it.
func (p *Probe) recordAt(pos int64) (record.Record, error) {
	byteOff := pos * 2
	if len(p.entries) == 0 {
		return 0, errs.Wrap(errs.FileSystem, fmt.Errorf("tierdb: probe: tier %v has no blocks", p.tier))
	}
	idx := p.blockForOffset(byteOff)
	if !p.blockHas || p.blockIdx != idx {
		block, err := readBlock(p.f, p.entries, idx)
		if err != nil {
			return 0, err
		}
		p.block = block
		p.blockIdx = idx
		p.blockHas = true
	}
	within := byteOff - p.cumulative[idx]
	if within < 0 || int(within)+2 > len(p.block) {
		return 0, errs.Wrap(errs.IllegalGamePosition, fmt.Errorf("tierdb: probe: position %d out of range in tier %v", pos, p.tier))
	}
	lo := p.block[within]
	hi := p.block[within+1]
	return record.Record(uint16(lo) | uint16(hi)<<8), nil
}

// ProbeValue returns the value stored at tp, automatically switching
// files if tp.Tier differs from the probe's currently open tier. On
// any failure it returns record.Undecided alongside the error; callers
// following the spec's probe-error sentinel convention should treat
// any returned error as "Value = Error".
func (p *Probe) ProbeValue(tp api.TierPosition) (api.Value, error) {
	if err := p.ensureTier(tp.Tier); err != nil {
		return record.Undecided, err
	}
	rec, err := p.recordAt(int64(tp.Position))
	if err != nil {
		return record.Undecided, err
	}
	v, _ := record.Decode(rec)
	return v, nil
}

// ProbeRemoteness returns the remoteness stored at tp. On failure it
// returns record.ErrorRemoteness alongside the error, per spec §7's
// "Remoteness = -1" probe-error sentinel (record.ErrorRemoteness is
// the unsigned equivalent: the one remoteness value a real solve can
// never produce).
func (p *Probe) ProbeRemoteness(tp api.TierPosition) (api.Remoteness, error) {
	if err := p.ensureTier(tp.Tier); err != nil {
		return record.ErrorRemoteness, err
	}
	rec, err := p.recordAt(int64(tp.Position))
	if err != nil {
		return record.ErrorRemoteness, err
	}
	_, r := record.Decode(rec)
	return r, nil
}
