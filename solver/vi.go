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
	"sync/atomic"

	"github.com/GamesCrafters/gamesmanone/api"
	"github.com/GamesCrafters/gamesmanone/bitset"
	"github.com/GamesCrafters/gamesmanone/errs"
	"github.com/GamesCrafters/gamesmanone/tierdb"
)

// canonicalChildTiers returns game's child tiers for tier, canonicalized
// and deduplicated, matching the dedup rule tiergraph.Build applies
// when it builds the DAG (two raw children that canonicalize to the
// same tier contribute a single dependency here too).
func canonicalChildTiers(game api.GameApi, tier api.Tier) ([]api.Tier, error) {
	raw, err := game.GetChildTiers(tier)
	if err != nil {
		return nil, errs.Wrap(errs.IllegalGameTier, fmt.Errorf("solver: GetChildTiers(%v): %w", tier, err))
	}
	seen := make(map[api.Tier]bool, len(raw))
	out := make([]api.Tier, 0, len(raw))
	for _, c := range raw {
		cc, err := game.GetCanonicalTier(c)
		if err != nil {
			return nil, errs.Wrap(errs.IllegalGameTier, fmt.Errorf("solver: GetCanonicalTier(%v): %w", c, err))
		}
		if !seen[cc] {
			seen[cc] = true
			out = append(out, cc)
		}
	}
	return out, nil
}

// childRecord reads a canonical child's (value, remoteness), routing
// to slot 0 for same-tier children and to the loaded-sibling map
// otherwise, per spec §4.6 step 3.
func childRecord(db *tierdb.TierDatabase, tier api.Tier, child api.TierPosition) (api.Value, api.Remoteness, error) {
	if child.Tier == tier {
		return db.GetValue(int64(child.Position)), db.GetRemoteness(int64(child.Position)), nil
	}
	v, err := db.GetValueFromLoaded(child.Tier, int64(child.Position))
	if err != nil {
		return 0, 0, err
	}
	r, err := db.GetRemotenessFromLoaded(child.Tier, int64(child.Position))
	if err != nil {
		return 0, 0, err
	}
	return v, r, nil
}

// SolveTierVI solves one canonical tier with the primary value
// iteration worker (spec §4.6): scan, iterate win/lose, iterate ties,
// mark draws, flush. It loads every child tier's RecordArray in full
// for the duration of the pass and unloads them before returning,
// success or failure.
func SolveTierVI(game api.GameApi, db *tierdb.TierDatabase, tier api.Tier, opts Options) error {
	size, err := game.GetTierSize(tier)
	if err != nil {
		return errs.Wrap(errs.IllegalGameTier, fmt.Errorf("solver: GetTierSize(%v): %w", tier, err))
	}

	// Step 0: load children, scan each once for the global win/lose
	// and tie remoteness maxima that bound steps 3 and 4's loops.
	children, err := canonicalChildTiers(game, tier)
	if err != nil {
		return err
	}
	loaded := make([]api.Tier, 0, len(children))
	defer func() {
		for _, c := range loaded {
			db.UnloadTier(c)
		}
	}()

	var maxWinLose, maxTie api.Remoteness
	for _, c := range children {
		csize, err := game.GetTierSize(c)
		if err != nil {
			return errs.Wrap(errs.IllegalGameTier, fmt.Errorf("solver: GetTierSize(%v): %w", c, err))
		}
		if err := db.LoadTier(game, c, csize); err != nil {
			return err
		}
		loaded = append(loaded, c)
		for pos := int64(0); pos < csize; pos++ {
			v, err := db.GetValueFromLoaded(c, pos)
			if err != nil {
				return err
			}
			r, err := db.GetRemotenessFromLoaded(c, pos)
			if err != nil {
				return err
			}
			switch v {
			case api.Win, api.Lose:
				if r > maxWinLose {
					maxWinLose = r
				}
			case api.Tie:
				if r > maxTie {
					maxTie = r
				}
			}
		}
	}

	// Step 1: create the solving tier.
	if err := db.CreateSolvingTier(tier, size); err != nil {
		return err
	}
	defer db.FreeSolvingTier()

	illegal, err := newIllegalSet(size)
	if err != nil {
		return err
	}

	// Step 2: scan.
	var scanErr atomic.Value
	parallelRange(size, opts.chunkSize(), opts.workers(), func(lo, hi int64) {
		for pos := lo; pos < hi; pos++ {
			tp := api.TierPosition{Tier: tier, Position: api.Position(pos)}
			legal, err := game.IsLegalPosition(tp)
			if err != nil {
				scanErr.Store(errs.Wrap(errs.IllegalGamePosition, err))
				return
			}
			canon, err := game.GetCanonicalPosition(tp)
			if err != nil {
				scanErr.Store(errs.Wrap(errs.IllegalGamePosition, err))
				return
			}
			if !legal || canon != tp.Position {
				illegal.mark(pos)
				continue
			}
			val, err := game.Primitive(tp)
			if err != nil {
				scanErr.Store(errs.Wrap(errs.IllegalGamePosition, err))
				return
			}
			if val != api.Undecided {
				if err := db.SetBoth(pos, val, 0); err != nil {
					scanErr.Store(err)
					return
				}
			}
		}
	})
	if e := scanErr.Load(); e != nil {
		return e.(error)
	}

	// Step 3: iterate win/lose.
	if err := iterateWinLose(game, db, tier, size, illegal, maxWinLose, opts); err != nil {
		return err
	}

	// Step 4: iterate ties.
	if err := iterateTies(game, db, tier, size, illegal, maxTie, opts); err != nil {
		return err
	}

	// Step 5: mark draws. Positions flagged illegal in step 2 are left
	// exactly as they are (Undecided, meaning "no canonical record");
	// every other still-Undecided position becomes a true Draw.
	var markErr atomic.Value
	parallelRange(size, opts.chunkSize(), opts.workers(), func(lo, hi int64) {
		for pos := lo; pos < hi; pos++ {
			if illegal.test(pos) {
				continue
			}
			if db.GetValue(pos) == api.Undecided {
				if err := db.SetBoth(pos, api.Draw, 0); err != nil {
					markErr.Store(err)
					return
				}
			}
		}
	})
	if e := markErr.Load(); e != nil {
		return e.(error)
	}

	// Step 6: flush.
	if err := db.FlushSolvingTier(game); err != nil {
		return err
	}
	opts.logf("tier %v solved: %d positions", tier, size)
	return nil
}

func iterateWinLose(game api.GameApi, db *tierdb.TierDatabase, tier api.Tier, size int64, illegal *illegalSet, maxWinLose api.Remoteness, opts Options) error {
	for i := api.Remoteness(1); ; i++ {
		var updated int32
		var iterErr atomic.Value
		parallelRange(size, opts.chunkSize(), opts.workers(), func(lo, hi int64) {
			for pos := lo; pos < hi; pos++ {
				if illegal.test(pos) {
					continue
				}
				if db.GetValue(pos) != api.Undecided {
					continue
				}
				tp := api.TierPosition{Tier: tier, Position: api.Position(pos)}
				kids, err := game.GetCanonicalChildPositions(tp)
				if err != nil {
					iterErr.Store(errs.Wrap(errs.IllegalGamePosition, err))
					return
				}
				allWin := len(kids) > 0
				var maxRem api.Remoteness
				won := false
				for _, kid := range kids {
					cv, cr, err := childRecord(db, tier, kid)
					if err != nil {
						iterErr.Store(err)
						return
					}
					if cv == api.Lose && cr == i-1 {
						won = true
						break
					}
					if cv != api.Win {
						allWin = false
					} else if cr > maxRem {
						maxRem = cr
					}
				}
				if won {
					if err := db.SetBoth(pos, api.Win, i); err != nil {
						iterErr.Store(err)
						return
					}
					atomic.StoreInt32(&updated, 1)
				} else if allWin && maxRem == i-1 {
					if err := db.SetBoth(pos, api.Lose, i); err != nil {
						iterErr.Store(err)
						return
					}
					atomic.StoreInt32(&updated, 1)
				}
			}
		})
		if e := iterErr.Load(); e != nil {
			return e.(error)
		}
		if atomic.LoadInt32(&updated) == 0 && i > maxWinLose+1 {
			return nil
		}
	}
}

func iterateTies(game api.GameApi, db *tierdb.TierDatabase, tier api.Tier, size int64, illegal *illegalSet, maxTie api.Remoteness, opts Options) error {
	for i := api.Remoteness(1); ; i++ {
		var updated int32
		var iterErr atomic.Value
		parallelRange(size, opts.chunkSize(), opts.workers(), func(lo, hi int64) {
			for pos := lo; pos < hi; pos++ {
				if illegal.test(pos) {
					continue
				}
				if db.GetValue(pos) != api.Undecided {
					continue
				}
				tp := api.TierPosition{Tier: tier, Position: api.Position(pos)}
				kids, err := game.GetCanonicalChildPositions(tp)
				if err != nil {
					iterErr.Store(errs.Wrap(errs.IllegalGamePosition, err))
					return
				}
				for _, kid := range kids {
					cv, cr, err := childRecord(db, tier, kid)
					if err != nil {
						iterErr.Store(err)
						return
					}
					if cv == api.Tie && cr == i-1 {
						if err := db.SetBoth(pos, api.Tie, i); err != nil {
							iterErr.Store(err)
							return
						}
						atomic.StoreInt32(&updated, 1)
						break
					}
				}
			}
		})
		if e := iterErr.Load(); e != nil {
			return e.(error)
		}
		if atomic.LoadInt32(&updated) == 0 && i > maxTie+1 {
			return nil
		}
	}
}

// illegalSet is a side bitset marking positions step 2 found illegal
// or non-canonical, per the design notes' preferred alternative to
// repurposing the Draw value as a temporary sentinel: an explicit
// per-slot flag that steps 3-5 simply skip, leaving no marker to clean
// up afterward.
type illegalSet struct {
	bits *bitset.ConcurrentBitset
}

func newIllegalSet(size int64) (*illegalSet, error) {
	if size <= 0 {
		return &illegalSet{}, nil
	}
	b, err := bitset.Create(size)
	if err != nil {
		return nil, err
	}
	return &illegalSet{bits: b}, nil
}

func (s *illegalSet) mark(pos int64) {
	if s.bits == nil {
		return
	}
	s.bits.Set(pos, bitset.Relaxed)
}

func (s *illegalSet) test(pos int64) bool {
	if s.bits == nil {
		return false
	}
	return s.bits.Test(pos, bitset.Relaxed)
}
