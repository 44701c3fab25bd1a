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
	"io"
	"os"

	"github.com/GamesCrafters/gamesmanone/api"
	"github.com/GamesCrafters/gamesmanone/compr"
	"github.com/GamesCrafters/gamesmanone/errs"
	"github.com/GamesCrafters/gamesmanone/record"
)

// CheckpointSave snapshots slot 0 (the tier currently being solved)
// plus an opaque, caller-defined status blob into a single LZ4 frame
// at <tier_name>.adb.xz.chk, written atomically via a .tmp sibling.
// The frame is the concatenation, in order, of the live RecordArray
// bytes and statusBlob, exactly as spec §4.4 describes.
func (db *TierDatabase) CheckpointSave(game api.GameApi, statusBlob []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if !db.hasSlot0 {
		return errs.Wrap(errs.IllegalSolverOption, fmt.Errorf("tierdb: no solving tier to checkpoint"))
	}
	name, err := db.tierName(game, db.solvingT)
	if err != nil {
		return err
	}
	path := db.layout.CheckpointPath(name)

	payload := make([]byte, 0, len(db.solving.Bytes())+len(statusBlob))
	payload = append(payload, db.solving.Bytes()...)
	payload = append(payload, statusBlob...)

	return atomicWriteFile(path, func(w io.Writer) error {
		comp := compr.Compression("lz4")
		packed := comp.Compress(payload, nil)
		_, err := w.Write(packed)
		if err != nil {
			return errs.Wrap(errs.FileSystem, err)
		}
		return nil
	})
}

// CheckpointLoad restores tier's checkpointed RecordArray into slot 0
// (failing if slot 0 is already occupied) and returns the status blob
// that was saved alongside it. statusSize must equal the exact size of
// blob originally passed to CheckpointSave; the caller is expected to
// already know it (it is part of their own worker-status format).
func (db *TierDatabase) CheckpointLoad(game api.GameApi, tier api.Tier, size int64, statusSize int) ([]byte, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.hasSlot0 {
		return nil, errs.Wrap(errs.IllegalSolverOption, fmt.Errorf("tierdb: slot 0 already occupied by tier %v", db.solvingT))
	}
	name, err := db.tierName(game, tier)
	if err != nil {
		return nil, err
	}
	path := db.layout.CheckpointPath(name)

	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.FileSystem, err)
	}
	want := size*2 + int64(statusSize)
	dst := make([]byte, want)
	dec := compr.Decompression("lz4")
	if err := dec.Decompress(compressed, dst); err != nil {
		return nil, errs.Wrap(errs.FileSystem, fmt.Errorf("tierdb: checkpoint %v: %w", tier, err))
	}

	db.solving = record.WrapRecordArray(dst[:size*2])
	db.solvingT = tier
	db.hasSlot0 = true

	statusBlob := make([]byte, statusSize)
	copy(statusBlob, dst[size*2:])
	return statusBlob, nil
}

// CheckpointExists reports whether tier has a saved checkpoint.
func (db *TierDatabase) CheckpointExists(game api.GameApi, tier api.Tier) bool {
	name, err := db.tierName(game, tier)
	if err != nil {
		return false
	}
	_, err = os.Stat(db.layout.CheckpointPath(name))
	return err == nil
}

// CheckpointRemove deletes tier's checkpoint file, if any. Removing a
// checkpoint that does not exist is not an error.
func (db *TierDatabase) CheckpointRemove(game api.GameApi, tier api.Tier) error {
	name, err := db.tierName(game, tier)
	if err != nil {
		return err
	}
	if err := os.Remove(db.layout.CheckpointPath(name)); err != nil && !os.IsNotExist(err) {
		return errs.Wrap(errs.FileSystem, err)
	}
	return nil
}
