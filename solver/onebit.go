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
	"sync"
	"sync/atomic"

	"github.com/GamesCrafters/gamesmanone/api"
	"github.com/GamesCrafters/gamesmanone/bitset"
	"github.com/GamesCrafters/gamesmanone/errs"
	"github.com/GamesCrafters/gamesmanone/tierdb"
)

// event is a position whose value just became known, queued for
// backward propagation to its parents within the solving tier.
type event struct {
	tp         api.TierPosition
	value      api.Value
	remoteness api.Remoteness
}

// SolveTierOneBit solves one canonical tier with the external-memory
// one-bit backward induction worker (spec §4.7). Instead of loading
// every child tier's RecordArray in full, it reads already-solved
// child positions through random-access Probes and tracks settlement
// of the *solving tier's own* positions in a single ConcurrentBitset
// sized to the tier group (this tier plus its children), one bit per
// position rather than a 16-bit record. Remaining per-position
// bookkeeping the backward sweep needs (child counts, the running
// maximum Win-child remoteness) is kept in small int32 slices sized to
// the solving tier alone; only the combined group's *discovery* state
// is represented at one bit per position, which is the memory saving
// the algorithm is named for.
func SolveTierOneBit(game api.GameApi, db *tierdb.TierDatabase, tier api.Tier, opts Options) (err error) {
	size, err := game.GetTierSize(tier)
	if err != nil {
		return errs.Wrap(errs.IllegalGameTier, fmt.Errorf("solver: GetTierSize(%v): %w", tier, err))
	}
	children, err := canonicalChildTiers(game, tier)
	if err != nil {
		return err
	}

	childSizes := make(map[api.Tier]int64, len(children))
	groupSize := size
	for _, c := range children {
		csize, err := game.GetTierSize(c)
		if err != nil {
			return errs.Wrap(errs.IllegalGameTier, fmt.Errorf("solver: GetTierSize(%v): %w", c, err))
		}
		childSizes[c] = csize
		groupSize += csize
	}
	base := make(map[api.Tier]int64, len(children)+1)
	base[tier] = 0
	offset := size
	for _, c := range children {
		base[c] = offset
		offset += childSizes[c]
	}
	groupIndex := func(tp api.TierPosition) int64 { return base[tp.Tier] + int64(tp.Position) }

	discover, err := bitset.Create(maxI64(groupSize, 1))
	if err != nil {
		return err
	}
	if _, ok, lerr := loadDiscoveryMap(db, game, tier, groupSize); lerr == nil && ok {
		opts.logf("tier %v: discarding stale discovery map from a prior interrupted attempt", tier)
	}
	defer func() {
		// preserve the partial wavefront on disk so a human (or a
		// future resumable worker) can inspect how far this attempt
		// got; a clean finish removes it again in the success path
		// below.
		if err != nil {
			persistDiscoveryMap(db, game, tier, discover)
		}
	}()

	if err := db.CreateSolvingTier(tier, size); err != nil {
		return err
	}
	defer db.FreeSolvingTier()

	illegal, err := newIllegalSet(size)
	if err != nil {
		return err
	}
	total := make([]int32, size)
	winSeen := make([]int32, size)
	maxWinRem := make([]int32, size)

	// Step 0/2 analogue: scan the solving tier for primitives and
	// canonical-child counts, and every child tier (via Probe, not a
	// full load) for its already-known value/remoteness. Every
	// resolved position discovered here seeds level 0 of the
	// propagation frontier.
	var seed []event

	for pos := int64(0); pos < size; pos++ {
		tp := api.TierPosition{Tier: tier, Position: api.Position(pos)}
		legal, err := game.IsLegalPosition(tp)
		if err != nil {
			return errs.Wrap(errs.IllegalGamePosition, err)
		}
		canon, err := game.GetCanonicalPosition(tp)
		if err != nil {
			return errs.Wrap(errs.IllegalGamePosition, err)
		}
		if !legal || canon != tp.Position {
			illegal.mark(pos)
			discover.Set(groupIndex(tp), bitset.AcqRel)
			continue
		}
		val, err := game.Primitive(tp)
		if err != nil {
			return errs.Wrap(errs.IllegalGamePosition, err)
		}
		if val != api.Undecided {
			if err := db.SetBoth(pos, val, 0); err != nil {
				return err
			}
			discover.Set(groupIndex(tp), bitset.AcqRel)
			seed = append(seed, event{tp: tp, value: val, remoteness: 0})
			continue
		}
		n, err := game.GetNumberOfCanonicalChildPositions(tp)
		if err != nil {
			return errs.Wrap(errs.IllegalGamePosition, err)
		}
		total[pos] = int32(n)
	}

	for _, c := range children {
		probe := db.NewProbe(game)
		csize := childSizes[c]
		for pos := int64(0); pos < csize; pos++ {
			ctp := api.TierPosition{Tier: c, Position: api.Position(pos)}
			v, err := probe.ProbeValue(ctp)
			if err != nil {
				probe.Close()
				return errs.Wrap(errs.FileSystem, err)
			}
			r, err := probe.ProbeRemoteness(ctp)
			if err != nil {
				probe.Close()
				return errs.Wrap(errs.FileSystem, err)
			}
			discover.Set(groupIndex(ctp), bitset.AcqRel)
			seed = append(seed, event{tp: ctp, value: v, remoteness: r})
		}
		probe.Close()
	}

	// Win/Lose phase: level-synchronized backward propagation. Each
	// event at remoteness r can only make a parent's value precise
	// ("Win" the instant a Lose child at r is seen, "Lose" only once
	// every child has been confirmed Win) at remoteness r+1, so
	// processing strictly in order of r guarantees the first time a
	// parent resolves, it does so at its true minimal remoteness.
	frontier := bucketByRemoteness(filterValue(seed, api.Win, api.Lose))
	if err := propagate(game, db, tier, frontier, opts.workers(), func(e event, parent api.Position, level api.Remoteness) (resolved bool, err error) {
		switch e.value {
		case api.Lose:
			if first := !discover.Set(groupIndex(api.TierPosition{Tier: tier, Position: parent}), bitset.AcqRel); first {
				if err := db.SetBoth(int64(parent), api.Win, level+1); err != nil {
					return false, err
				}
				return true, nil
			}
		case api.Win:
			atomicMax(&maxWinRem[parent], int32(level))
			if atomic.AddInt32(&winSeen[parent], 1) == total[parent] {
				rem := atomic.LoadInt32(&maxWinRem[parent])
				if first := !discover.Set(groupIndex(api.TierPosition{Tier: tier, Position: parent}), bitset.AcqRel); first {
					if err := db.SetBoth(int64(parent), api.Lose, api.Remoteness(rem)+1); err != nil {
						return false, err
					}
					return true, nil
				}
			}
		}
		return false, nil
	}); err != nil {
		return err
	}

	// Tie phase: any position still undiscovered that has a Tie child
	// becomes Tie one ply further out than the shallowest such child,
	// found the same level-synchronized way. No counting is needed:
	// the first Tie-child event to reach an undiscovered parent wins.
	tieFrontier := bucketByRemoteness(filterValue(seed, api.Tie))
	if err := propagate(game, db, tier, tieFrontier, opts.workers(), func(e event, parent api.Position, level api.Remoteness) (bool, error) {
		if first := !discover.Set(groupIndex(api.TierPosition{Tier: tier, Position: parent}), bitset.AcqRel); first {
			if err := db.SetBoth(int64(parent), api.Tie, level+1); err != nil {
				return false, err
			}
			return true, nil
		}
		return false, nil
	}); err != nil {
		return err
	}

	// Whatever remains undiscovered among legal canonical positions is
	// a true draw.
	for pos := int64(0); pos < size; pos++ {
		if illegal.test(pos) {
			continue
		}
		if !discover.Test(groupIndex(api.TierPosition{Tier: tier, Position: api.Position(pos)}), bitset.Acquire) {
			if err := db.SetBoth(pos, api.Draw, 0); err != nil {
				return err
			}
		}
	}

	if err := db.FlushSolvingTier(game); err != nil {
		return err
	}
	// The discovery map has no further use once the tier is flushed;
	// drop any stale copy from a prior interrupted attempt at this tier.
	if err := removeDiscoveryMap(db, game, tier); err != nil {
		return err
	}
	opts.logf("tier %v solved (one-bit): %d positions, group size %d", tier, size, groupSize)
	return nil
}

func maxI64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func filterValue(events []event, values ...api.Value) []event {
	want := make(map[api.Value]bool, len(values))
	for _, v := range values {
		want[v] = true
	}
	out := make([]event, 0, len(events))
	for _, e := range events {
		if want[e.value] {
			out = append(out, e)
		}
	}
	return out
}

func bucketByRemoteness(events []event) map[api.Remoteness][]event {
	out := make(map[api.Remoteness][]event)
	for _, e := range events {
		out[e.remoteness] = append(out[e.remoteness], e)
	}
	return out
}

// atomicMax stores v into *addr if v is larger than the current value,
// returning the resulting maximum. It is a small CAS-retry loop in the
// style of the teacher's own atomic accumulator helpers.
func atomicMax(addr *int32, v int32) int32 {
	for {
		cur := atomic.LoadInt32(addr)
		if v <= cur {
			return cur
		}
		if atomic.CompareAndSwapInt32(addr, cur, v) {
			return v
		}
	}
}

// propagate drains frontier level by level (increasing remoteness),
// applying apply to every (event, parent) pair reached via
// GetCanonicalParentPositions, and scheduling any newly resolved
// parent onto the next level up.
func propagate(
	game api.GameApi,
	db *tierdb.TierDatabase,
	tier api.Tier,
	frontier map[api.Remoteness][]event,
	workers int,
	apply func(e event, parent api.Position, level api.Remoteness) (resolved bool, err error),
) error {
	level := api.Remoteness(0)
	for {
		events, ok := frontier[level]
		if !ok {
			// no work scheduled at this exact level; keep scanning
			// forward until we pass the highest level any event was
			// ever scheduled at.
			if level > highestLevel(frontier) {
				return nil
			}
			level++
			continue
		}
		delete(frontier, level)

		var mu sync.Mutex
		var werr atomic.Value
		chunk := 64
		parallelRange(int64(len(events)), chunk, workers, func(lo, hi int64) {
			for i := lo; i < hi; i++ {
				e := events[i]
				parents, err := game.GetCanonicalParentPositions(e.tp, tier)
				if err != nil {
					werr.Store(errs.Wrap(errs.IllegalGamePosition, err))
					return
				}
				for _, p := range parents {
					resolved, err := apply(e, p, level)
					if err != nil {
						werr.Store(err)
						return
					}
					if resolved {
						ntp := api.TierPosition{Tier: tier, Position: p}
						mu.Lock()
						frontier[level+1] = append(frontier[level+1], event{tp: ntp, value: valueAt(db, tier, ntp), remoteness: level + 1})
						mu.Unlock()
					}
				}
			}
		})
		if e := werr.Load(); e != nil {
			return e.(error)
		}
		level++
	}
}

func valueAt(db *tierdb.TierDatabase, tier api.Tier, tp api.TierPosition) api.Value {
	if tp.Tier == tier {
		return db.GetValue(int64(tp.Position))
	}
	return api.Undecided
}

func highestLevel(frontier map[api.Remoteness][]event) api.Remoteness {
	var max api.Remoteness
	for lvl := range frontier {
		if lvl > max {
			max = lvl
		}
	}
	return max
}
