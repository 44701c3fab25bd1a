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

	"github.com/GamesCrafters/gamesmanone/api"
	"github.com/GamesCrafters/gamesmanone/errs"
	"github.com/GamesCrafters/gamesmanone/tierdb"
	"github.com/GamesCrafters/gamesmanone/tiergraph"
)

// TierFailure records one tier's worker returning a non-fatal error
// (spec §7): the manager logs it and keeps driving the rest of the
// graph rather than aborting the whole run, since a tier's siblings
// share no state with it.
type TierFailure struct {
	Tier api.Tier
	Err  error
}

// Summary is SolverManager.Solve's report of a completed run.
type Summary struct {
	TiersSolved int
	Skipped     int
	Failures    []TierFailure
}

// SolverManager drives a full solve: it builds the tier DAG, dispatches
// each ready tier to a worker chosen by Options.Algorithm, and folds
// ChildSolved/MarkSolved notifications back into the graph as workers
// finish, until every tier is solved or the ready queue runs dry with
// failures outstanding.
type SolverManager struct {
	game api.GameApi
	db   *tierdb.TierDatabase
	opts Options
}

// NewManager returns a SolverManager for game backed by db.
func NewManager(game api.GameApi, db *tierdb.TierDatabase, opts Options) *SolverManager {
	return &SolverManager{game: game, db: db, opts: opts}
}

// Solve builds the tier graph and walks it to completion. concurrency
// is how many tiers may be solved at once (each tier worker internally
// parallelizes further via Options.Workers); a value < 1 means 1. On
// success, the on-disk .finish flag is written via db.MarkGameSolved.
//
// A tier already TierSolved on disk (from a prior run) is not
// re-solved; it is simply folded into the graph as already-done, which
// is what makes a checkpoint-free resume across tiers free.
func (m *SolverManager) Solve(concurrency int) (Summary, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	graph, err := tiergraph.Build(m.game)
	if err != nil {
		return Summary{}, err
	}

	var (
		mu      sync.Mutex
		summary Summary
		wg      sync.WaitGroup
		sem     = make(chan struct{}, concurrency)
	)

	var dispatch func(tier api.Tier)
	dispatch = func(tier api.Tier) {
		defer wg.Done()
		sem <- struct{}{}
		defer func() { <-sem }()

		if m.db.Status(m.game, tier) == tierdb.TierSolved {
			mu.Lock()
			summary.Skipped++
			mu.Unlock()
			graph.MarkSolved(tier)
			graph.ChildSolved(tier)
			m.drainReady(graph, &wg, dispatch)
			return
		}

		var werr error
		switch m.opts.Algorithm {
		case OneBitBackwardInduction:
			werr = SolveTierOneBit(m.game, m.db, tier, m.opts)
		default:
			werr = SolveTierVI(m.game, m.db, tier, m.opts)
		}

		mu.Lock()
		if werr != nil {
			summary.Failures = append(summary.Failures, TierFailure{Tier: tier, Err: werr})
			m.opts.logf("tier %v failed: %v", tier, werr)
		} else {
			summary.TiersSolved++
		}
		mu.Unlock()

		// A failed tier's RecordArray was never flushed (only its
		// worker's own deferred FreeSolvingTier ran), so its parents
		// must stay blocked: MarkSolved/ChildSolved run on success
		// only, per spec §4.8 step 4's "on failure, record and
		// continue" — continuing the rest of the graph, not this
		// tier's dependents.
		if werr == nil {
			graph.MarkSolved(tier)
			graph.ChildSolved(tier)
		}
		m.drainReady(graph, &wg, dispatch)
	}

	m.drainReady(graph, &wg, dispatch)
	wg.Wait()

	if len(summary.Failures) > 0 {
		return summary, errs.Wrap(errs.Runtime, fmt.Errorf("solver: %d tier(s) failed", len(summary.Failures)))
	}
	if err := m.db.MarkGameSolved(); err != nil {
		return summary, err
	}
	m.opts.logf("solve complete: %d tiers solved, %d skipped (already solved)", summary.TiersSolved, summary.Skipped)
	return summary, nil
}

// drainReady pulls every tier currently ready out of graph and spawns a
// dispatch goroutine for each, under wg. It is called both by Solve
// itself (to seed the initial wave of leaf tiers) and recursively by
// dispatch as finishing a tier may make its parents ready.
func (m *SolverManager) drainReady(graph *tiergraph.Graph, wg *sync.WaitGroup, dispatch func(api.Tier)) {
	for {
		tier, ok := graph.TakeReady()
		if !ok {
			return
		}
		wg.Add(1)
		go dispatch(tier)
	}
}
