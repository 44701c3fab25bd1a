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

// Package api defines the contract a game collaborator implements so
// the solver core can drive it: tiers, positions, moves, and the
// GameApi interface itself. The core never interprets a Tier,
// Position, or Move beyond treating them as opaque identifiers; only
// the game implementation knows what they mean.
package api

import "github.com/GamesCrafters/gamesmanone/record"

// Tier identifies a partition of the game's state space. The tier DAG
// is finite, acyclic, and has exactly one root (the initial tier).
type Tier int64

// Position is a 64-bit hash identifying a board configuration within
// a tier.
type Position int64

// TierPosition is the canonical identity of a game state: the pair
// (Tier, Position).
type TierPosition struct {
	Tier     Tier
	Position Position
}

// Move is an opaque token; its interpretation is entirely the game's
// responsibility. The core only ever passes a Move back into DoMove.
type Move uint64

// Value and Remoteness are re-exported from record so game
// implementations and solver code share one vocabulary for outcomes.
type Value = record.Value
type Remoteness = record.Remoteness

const (
	Undecided = record.Undecided
	Lose      = record.Lose
	Draw      = record.Draw
	Tie       = record.Tie
	Win       = record.Win
)

// MaxTierNameLength is the longest filename-safe tier name GetTierName
// may write, matching the on-disk file layout's naming constraint.
const MaxTierNameLength = 63

// GameApi is the contract the core consumes to solve a game's tier
// graph. Every non-Illegal return must be deterministic across calls
// with the same arguments. IsLegalPosition is allowed to be
// pessimistic (return true when unsure), but Primitive must be exact:
// a wrong Primitive answer silently corrupts every record built on
// top of it.
type GameApi interface {
	// GetInitialTier returns the tier containing the game's starting
	// position; this is the tier DAG's unique root.
	GetInitialTier() Tier

	// GetInitialPosition returns the game's starting position within
	// GetInitialTier().
	GetInitialPosition() Position

	// GetTierSize returns the number of positions in tier, queryable
	// without loading the tier's record array.
	GetTierSize(tier Tier) (int64, error)

	// GenerateMoves returns every legal move from tp. The order is
	// not required to be stable across calls with different tp, but
	// must be deterministic for the same tp.
	GenerateMoves(tp TierPosition) ([]Move, error)

	// Primitive returns tp's value if tp is a terminal position (no
	// legal moves, or a game-defined primitive condition), or
	// Undecided otherwise. Must be exact.
	Primitive(tp TierPosition) (Value, error)

	// DoMove applies move to tp and returns the resulting position.
	DoMove(tp TierPosition, move Move) (TierPosition, error)

	// IsLegalPosition reports whether tp is reachable from the
	// initial position. May conservatively return true when unsure.
	IsLegalPosition(tp TierPosition) (bool, error)

	// GetCanonicalPosition returns the representative of tp's
	// symmetry class within its tier. If the game has no symmetry,
	// implementations return tp.Position unchanged.
	GetCanonicalPosition(tp TierPosition) (Position, error)

	// GetCanonicalChildPositions returns the canonical form of every
	// position reachable from tp in one move, deduplicated.
	GetCanonicalChildPositions(tp TierPosition) ([]TierPosition, error)

	// GetNumberOfCanonicalChildPositions returns
	// len(GetCanonicalChildPositions(tp)) without necessarily
	// constructing the full slice.
	GetNumberOfCanonicalChildPositions(tp TierPosition) (int, error)

	// GetCanonicalParentPositions returns every canonical position in
	// parentTier that can reach child in one move.
	GetCanonicalParentPositions(child TierPosition, parentTier Tier) ([]Position, error)

	// GetChildTiers returns every tier reachable from tier in one
	// move. The solver builds the tier DAG from repeated calls to
	// this method starting at GetInitialTier().
	GetChildTiers(tier Tier) ([]Tier, error)

	// GetCanonicalTier returns tier's representative under tier-level
	// symmetry. If the game has no tier symmetry, implementations
	// return tier unchanged.
	GetCanonicalTier(tier Tier) (Tier, error)

	// GetTierName writes a filename-safe name for tier into buf,
	// returning the slice actually written (length <= MaxTierNameLength).
	GetTierName(tier Tier, buf []byte) ([]byte, error)
}
