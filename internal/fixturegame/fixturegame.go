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

// Package fixturegame provides small, deterministic api.GameApi
// implementations used only by this module's own tests. None of them
// model a real game; each exists to drive one specific behavior of
// the tiergraph or solver packages under test.
package fixturegame

import (
	"fmt"

	"github.com/GamesCrafters/gamesmanone/api"
)

// OneMoveWin is a single-tier, two-position game: position 0 is
// initial with one move to position 1, which is primitive Lose. A
// correct solve yields position 0 = Win (remoteness 1), position 1 =
// Lose (remoteness 0).
type OneMoveWin struct{}

func (OneMoveWin) GetInitialTier() api.Tier         { return 0 }
func (OneMoveWin) GetInitialPosition() api.Position { return 0 }

func (OneMoveWin) GetTierSize(tier api.Tier) (int64, error) {
	if tier != 0 {
		return 0, fmt.Errorf("fixturegame: no such tier %d", tier)
	}
	return 2, nil
}

func (OneMoveWin) GenerateMoves(tp api.TierPosition) ([]api.Move, error) {
	if tp.Position == 0 {
		return []api.Move{0}, nil
	}
	return nil, nil
}

func (OneMoveWin) Primitive(tp api.TierPosition) (api.Value, error) {
	if tp.Position == 1 {
		return api.Lose, nil
	}
	return api.Undecided, nil
}

func (OneMoveWin) DoMove(tp api.TierPosition, move api.Move) (api.TierPosition, error) {
	if tp.Position == 0 && move == 0 {
		return api.TierPosition{Tier: 0, Position: 1}, nil
	}
	return api.TierPosition{}, fmt.Errorf("fixturegame: illegal move")
}

func (OneMoveWin) IsLegalPosition(tp api.TierPosition) (bool, error) {
	return tp.Position == 0 || tp.Position == 1, nil
}

func (OneMoveWin) GetCanonicalPosition(tp api.TierPosition) (api.Position, error) {
	return tp.Position, nil
}

func (g OneMoveWin) GetCanonicalChildPositions(tp api.TierPosition) ([]api.TierPosition, error) {
	moves, err := g.GenerateMoves(tp)
	if err != nil {
		return nil, err
	}
	out := make([]api.TierPosition, 0, len(moves))
	for _, m := range moves {
		child, err := g.DoMove(tp, m)
		if err != nil {
			return nil, err
		}
		out = append(out, child)
	}
	return out, nil
}

func (g OneMoveWin) GetNumberOfCanonicalChildPositions(tp api.TierPosition) (int, error) {
	c, err := g.GetCanonicalChildPositions(tp)
	return len(c), err
}

func (OneMoveWin) GetCanonicalParentPositions(child api.TierPosition, parentTier api.Tier) ([]api.Position, error) {
	if parentTier == 0 && child.Position == 1 {
		return []api.Position{0}, nil
	}
	return nil, nil
}

func (OneMoveWin) GetChildTiers(tier api.Tier) ([]api.Tier, error) { return nil, nil }

func (OneMoveWin) GetCanonicalTier(tier api.Tier) (api.Tier, error) { return tier, nil }

func (OneMoveWin) GetTierName(tier api.Tier, buf []byte) ([]byte, error) {
	return append(buf[:0], []byte(fmt.Sprintf("tier%d", tier))...), nil
}

// Chain is an N-tier game with exactly one position per tier. Tier k
// (k > 0) has a single move to tier k-1's position 0; tier 0's
// position 0 is primitive Lose. This produces an alternating
// Lose/Win/Lose/Win... chain where tier k's value is Lose if k is
// even, Win if k is odd, each with remoteness k — useful for
// exercising the tier graph and value-iteration worker across several
// dependent tiers without any symmetry machinery to account for.
type Chain struct {
	N api.Tier
}

func (c Chain) GetInitialTier() api.Tier         { return c.N - 1 }
func (c Chain) GetInitialPosition() api.Position { return 0 }

func (c Chain) GetTierSize(tier api.Tier) (int64, error) {
	if tier < 0 || tier >= c.N {
		return 0, fmt.Errorf("fixturegame: no such tier %d", tier)
	}
	return 1, nil
}

func (c Chain) GenerateMoves(tp api.TierPosition) ([]api.Move, error) {
	if tp.Tier == 0 {
		return nil, nil
	}
	return []api.Move{0}, nil
}

func (c Chain) Primitive(tp api.TierPosition) (api.Value, error) {
	if tp.Tier == 0 {
		return api.Lose, nil
	}
	return api.Undecided, nil
}

func (c Chain) DoMove(tp api.TierPosition, move api.Move) (api.TierPosition, error) {
	if tp.Tier == 0 {
		return api.TierPosition{}, fmt.Errorf("fixturegame: no moves from tier 0")
	}
	return api.TierPosition{Tier: tp.Tier - 1, Position: 0}, nil
}

func (c Chain) IsLegalPosition(tp api.TierPosition) (bool, error) {
	return tp.Position == 0, nil
}

func (c Chain) GetCanonicalPosition(tp api.TierPosition) (api.Position, error) {
	return tp.Position, nil
}

func (c Chain) GetCanonicalChildPositions(tp api.TierPosition) ([]api.TierPosition, error) {
	moves, err := c.GenerateMoves(tp)
	if err != nil {
		return nil, err
	}
	out := make([]api.TierPosition, 0, len(moves))
	for _, m := range moves {
		child, err := c.DoMove(tp, m)
		if err != nil {
			return nil, err
		}
		out = append(out, child)
	}
	return out, nil
}

func (c Chain) GetNumberOfCanonicalChildPositions(tp api.TierPosition) (int, error) {
	ch, err := c.GetCanonicalChildPositions(tp)
	return len(ch), err
}

func (c Chain) GetCanonicalParentPositions(child api.TierPosition, parentTier api.Tier) ([]api.Position, error) {
	if parentTier == child.Tier+1 && parentTier < c.N {
		return []api.Position{0}, nil
	}
	return nil, nil
}

func (c Chain) GetChildTiers(tier api.Tier) ([]api.Tier, error) {
	if tier == 0 {
		return nil, nil
	}
	return []api.Tier{tier - 1}, nil
}

func (c Chain) GetCanonicalTier(tier api.Tier) (api.Tier, error) { return tier, nil }

func (c Chain) GetTierName(tier api.Tier, buf []byte) ([]byte, error) {
	return append(buf[:0], []byte(fmt.Sprintf("chain%d", tier))...), nil
}

// FailingChain behaves exactly like Chain, except GetTierSize returns
// an error for FailTier. SolveTierVI/SolveTierOneBit both call
// GetTierSize as their very first step, before creating or writing
// anything, so this simulates a tier whose worker fails without ever
// producing a RecordArray — used to check that SolverManager does not
// unblock FailTier's parent in the tier graph.
type FailingChain struct {
	Chain
	FailTier api.Tier
}

func (c FailingChain) GetTierSize(tier api.Tier) (int64, error) {
	if tier == c.FailTier {
		return 0, fmt.Errorf("fixturegame: injected failure at tier %d", tier)
	}
	return c.Chain.GetTierSize(tier)
}

// Cyclic reports GetChildTiers(0) = [1] and GetChildTiers(1) = [0],
// an illegal tier graph that TierGraph.Build must reject before any
// tier is written.
type Cyclic struct{}

func (Cyclic) GetInitialTier() api.Tier                          { return 0 }
func (Cyclic) GetInitialPosition() api.Position                  { return 0 }
func (Cyclic) GetTierSize(tier api.Tier) (int64, error)          { return 1, nil }
func (Cyclic) GenerateMoves(api.TierPosition) ([]api.Move, error) { return nil, nil }
func (Cyclic) Primitive(api.TierPosition) (api.Value, error)      { return api.Undecided, nil }
func (Cyclic) DoMove(tp api.TierPosition, move api.Move) (api.TierPosition, error) {
	return api.TierPosition{}, fmt.Errorf("fixturegame: no moves")
}
func (Cyclic) IsLegalPosition(api.TierPosition) (bool, error) { return true, nil }
func (Cyclic) GetCanonicalPosition(tp api.TierPosition) (api.Position, error) {
	return tp.Position, nil
}
func (Cyclic) GetCanonicalChildPositions(api.TierPosition) ([]api.TierPosition, error) {
	return nil, nil
}
func (Cyclic) GetNumberOfCanonicalChildPositions(api.TierPosition) (int, error) { return 0, nil }
func (Cyclic) GetCanonicalParentPositions(api.TierPosition, api.Tier) ([]api.Position, error) {
	return nil, nil
}
func (Cyclic) GetChildTiers(tier api.Tier) ([]api.Tier, error) {
	switch tier {
	case 0:
		return []api.Tier{1}, nil
	case 1:
		return []api.Tier{0}, nil
	default:
		return nil, fmt.Errorf("fixturegame: no such tier %d", tier)
	}
}
func (Cyclic) GetCanonicalTier(tier api.Tier) (api.Tier, error) { return tier, nil }
func (Cyclic) GetTierName(tier api.Tier, buf []byte) ([]byte, error) {
	return append(buf[:0], []byte(fmt.Sprintf("cyclic%d", tier))...), nil
}

// TieLine is a single-tier, four-position game exercising the Tie and
// Draw outcomes without needing a second tier: 0 -> 1 -> 2 (primitive
// Tie), and a fourth position, 3, whose only move is a self-loop, so
// it never receives a Win/Lose/Tie child value and is left for the
// draw-marking pass. A correct solve yields position 2 = Tie
// (remoteness 0), 1 = Tie (remoteness 1), 0 = Tie (remoteness 2), and
// 3 = Draw.
type TieLine struct{}

func (TieLine) GetInitialTier() api.Tier         { return 0 }
func (TieLine) GetInitialPosition() api.Position { return 0 }

func (TieLine) GetTierSize(tier api.Tier) (int64, error) {
	if tier != 0 {
		return 0, fmt.Errorf("fixturegame: no such tier %d", tier)
	}
	return 4, nil
}

func (TieLine) GenerateMoves(tp api.TierPosition) ([]api.Move, error) {
	switch tp.Position {
	case 0, 1, 3:
		return []api.Move{0}, nil
	default:
		return nil, nil
	}
}

func (TieLine) Primitive(tp api.TierPosition) (api.Value, error) {
	if tp.Position == 2 {
		return api.Tie, nil
	}
	return api.Undecided, nil
}

func (TieLine) DoMove(tp api.TierPosition, move api.Move) (api.TierPosition, error) {
	switch tp.Position {
	case 0:
		return api.TierPosition{Tier: 0, Position: 1}, nil
	case 1:
		return api.TierPosition{Tier: 0, Position: 2}, nil
	case 3:
		return api.TierPosition{Tier: 0, Position: 3}, nil
	default:
		return api.TierPosition{}, fmt.Errorf("fixturegame: illegal move")
	}
}

func (TieLine) IsLegalPosition(tp api.TierPosition) (bool, error) {
	return tp.Position >= 0 && tp.Position <= 3, nil
}

func (TieLine) GetCanonicalPosition(tp api.TierPosition) (api.Position, error) {
	return tp.Position, nil
}

func (g TieLine) GetCanonicalChildPositions(tp api.TierPosition) ([]api.TierPosition, error) {
	moves, err := g.GenerateMoves(tp)
	if err != nil {
		return nil, err
	}
	out := make([]api.TierPosition, 0, len(moves))
	for _, m := range moves {
		child, err := g.DoMove(tp, m)
		if err != nil {
			return nil, err
		}
		out = append(out, child)
	}
	return out, nil
}

func (g TieLine) GetNumberOfCanonicalChildPositions(tp api.TierPosition) (int, error) {
	c, err := g.GetCanonicalChildPositions(tp)
	return len(c), err
}

func (TieLine) GetCanonicalParentPositions(child api.TierPosition, parentTier api.Tier) ([]api.Position, error) {
	if parentTier != 0 {
		return nil, nil
	}
	switch child.Position {
	case 1:
		return []api.Position{0}, nil
	case 2:
		return []api.Position{1}, nil
	case 3:
		return []api.Position{3}, nil
	default:
		return nil, nil
	}
}

func (TieLine) GetChildTiers(tier api.Tier) ([]api.Tier, error) { return nil, nil }

func (TieLine) GetCanonicalTier(tier api.Tier) (api.Tier, error) { return tier, nil }

func (TieLine) GetTierName(tier api.Tier, buf []byte) ([]byte, error) {
	return append(buf[:0], []byte(fmt.Sprintf("tieline%d", tier))...), nil
}

// Fan is a two-tier game used to exercise the one-bit worker's
// multi-parent fan-out and its Win/Lose child-counting: tier 0 has two
// primitive positions (0 = Lose, 1 = Win); tier 1 has three positions,
// each with a different combination of moves into tier 0, producing
// both a Win and a Lose verdict in tier 1 and two distinct tier-0
// positions that each have two tier-1 parents.
//
//	tier1 pos0 -> tier0 pos0 (Lose)            => Win, remoteness 1
//	tier1 pos1 -> tier0 pos1 (Win)              => Lose, remoteness 1
//	tier1 pos2 -> tier0 pos0 (Lose), pos1 (Win) => Win, remoteness 1
type Fan struct{}

func (Fan) GetInitialTier() api.Tier         { return 1 }
func (Fan) GetInitialPosition() api.Position { return 0 }

func (Fan) GetTierSize(tier api.Tier) (int64, error) {
	switch tier {
	case 0:
		return 2, nil
	case 1:
		return 3, nil
	default:
		return 0, fmt.Errorf("fixturegame: no such tier %d", tier)
	}
}

var fanMoves = map[api.Position][]api.Position{
	0: {0},
	1: {1},
	2: {0, 1},
}

func (Fan) GenerateMoves(tp api.TierPosition) ([]api.Move, error) {
	if tp.Tier != 1 {
		return nil, nil
	}
	kids := fanMoves[tp.Position]
	moves := make([]api.Move, len(kids))
	for i := range kids {
		moves[i] = api.Move(i)
	}
	return moves, nil
}

func (Fan) Primitive(tp api.TierPosition) (api.Value, error) {
	if tp.Tier != 0 {
		return api.Undecided, nil
	}
	if tp.Position == 0 {
		return api.Lose, nil
	}
	return api.Win, nil
}

func (Fan) DoMove(tp api.TierPosition, move api.Move) (api.TierPosition, error) {
	kids := fanMoves[tp.Position]
	if tp.Tier != 1 || int(move) >= len(kids) {
		return api.TierPosition{}, fmt.Errorf("fixturegame: illegal move")
	}
	return api.TierPosition{Tier: 0, Position: kids[move]}, nil
}

func (Fan) IsLegalPosition(tp api.TierPosition) (bool, error) {
	switch tp.Tier {
	case 0:
		return tp.Position == 0 || tp.Position == 1, nil
	case 1:
		return tp.Position >= 0 && tp.Position <= 2, nil
	default:
		return false, nil
	}
}

func (Fan) GetCanonicalPosition(tp api.TierPosition) (api.Position, error) {
	return tp.Position, nil
}

func (g Fan) GetCanonicalChildPositions(tp api.TierPosition) ([]api.TierPosition, error) {
	moves, err := g.GenerateMoves(tp)
	if err != nil {
		return nil, err
	}
	out := make([]api.TierPosition, 0, len(moves))
	for _, m := range moves {
		child, err := g.DoMove(tp, m)
		if err != nil {
			return nil, err
		}
		out = append(out, child)
	}
	return out, nil
}

func (g Fan) GetNumberOfCanonicalChildPositions(tp api.TierPosition) (int, error) {
	c, err := g.GetCanonicalChildPositions(tp)
	return len(c), err
}

func (Fan) GetCanonicalParentPositions(child api.TierPosition, parentTier api.Tier) ([]api.Position, error) {
	if parentTier != 1 || child.Tier != 0 {
		return nil, nil
	}
	var parents []api.Position
	for _, pos := range []api.Position{0, 1, 2} {
		for _, k := range fanMoves[pos] {
			if k == child.Position {
				parents = append(parents, pos)
				break
			}
		}
	}
	return parents, nil
}

func (Fan) GetChildTiers(tier api.Tier) ([]api.Tier, error) {
	if tier == 1 {
		return []api.Tier{0}, nil
	}
	return nil, nil
}

func (Fan) GetCanonicalTier(tier api.Tier) (api.Tier, error) { return tier, nil }

func (Fan) GetTierName(tier api.Tier, buf []byte) ([]byte, error) {
	return append(buf[:0], []byte(fmt.Sprintf("fan%d", tier))...), nil
}
