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
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/GamesCrafters/gamesmanone/compr"
	"github.com/GamesCrafters/gamesmanone/errs"
)

// DefaultBlockSize is the default uncompressed size of each LZMA2
// block in a tier's .adb.xz file, per spec §6.
const DefaultBlockSize = 1 << 20 // 1 MiB

// blockEntry describes one compressed block in the trailer.
type blockEntry struct {
	offset         uint64
	uncompressed   uint32
	compressedSize uint32
}

// writeBlockFile compresses data as a sequence of independent xz
// streams, each covering at most blockSize uncompressed bytes, and
// appends a trailer recording each block's file offset and lengths so
// a Probe can later seek directly to any block. The trailer format
// (fixed-size records followed by a count and a back-pointer to the
// trailer's own start, as the file's last 12 bytes) is the same
// "trailer at the tail" idea the teacher's ion/blockfmt package uses
// for its own block index, adapted here to a much simpler fixed-width
// record since this format only needs offset/length, not a sparse
// time-range index.
func writeBlockFile(w io.Writer, data []byte, blockSize int) ([]blockEntry, error) {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	comp := compr.Compression("xz")
	var entries []blockEntry
	var offset uint64
	for start := 0; start < len(data) || len(data) == 0; start += blockSize {
		end := start + blockSize
		if end > len(data) {
			end = len(data)
		}
		chunk := data[start:end]
		packed := comp.Compress(chunk, nil)
		n, err := w.Write(packed)
		if err != nil {
			return nil, errs.Wrap(errs.FileSystem, fmt.Errorf("tierdb: write block: %w", err))
		}
		entries = append(entries, blockEntry{
			offset:         offset,
			uncompressed:   uint32(len(chunk)),
			compressedSize: uint32(n),
		})
		offset += uint64(n)
		if len(data) == 0 {
			break
		}
	}

	trailerStart := offset
	var hdr [8]byte
	for _, e := range entries {
		binary.LittleEndian.PutUint64(hdr[:], e.offset)
		if _, err := w.Write(hdr[:]); err != nil {
			return nil, errs.Wrap(errs.FileSystem, err)
		}
		binary.LittleEndian.PutUint32(hdr[:4], e.uncompressed)
		if _, err := w.Write(hdr[:4]); err != nil {
			return nil, errs.Wrap(errs.FileSystem, err)
		}
		binary.LittleEndian.PutUint32(hdr[:4], e.compressedSize)
		if _, err := w.Write(hdr[:4]); err != nil {
			return nil, errs.Wrap(errs.FileSystem, err)
		}
	}
	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(entries)))
	if _, err := w.Write(countBuf[:]); err != nil {
		return nil, errs.Wrap(errs.FileSystem, err)
	}
	var backPtr [8]byte
	binary.LittleEndian.PutUint64(backPtr[:], trailerStart)
	if _, err := w.Write(backPtr[:]); err != nil {
		return nil, errs.Wrap(errs.FileSystem, err)
	}
	return entries, nil
}

const blockEntrySize = 8 + 4 + 4 // offset + uncompressed + compressedSize

// readTrailer reads the block index from the tail of an .adb.xz file.
func readTrailer(r io.ReaderAt, size int64) ([]blockEntry, error) {
	if size < 12 {
		return nil, errs.Wrap(errs.FileSystem, fmt.Errorf("tierdb: file too small to contain a trailer"))
	}
	var tail [12]byte
	if _, err := r.ReadAt(tail[:], size-12); err != nil {
		return nil, errs.Wrap(errs.FileSystem, err)
	}
	count := binary.LittleEndian.Uint32(tail[0:4])
	trailerStart := binary.LittleEndian.Uint64(tail[4:12])
	need := int64(count)*blockEntrySize + 12
	if trailerStart > uint64(size) || int64(trailerStart)+need != size {
		return nil, errs.Wrap(errs.FileSystem, fmt.Errorf("tierdb: corrupt trailer"))
	}
	buf := make([]byte, int64(count)*blockEntrySize)
	if len(buf) > 0 {
		if _, err := r.ReadAt(buf, int64(trailerStart)); err != nil {
			return nil, errs.Wrap(errs.FileSystem, err)
		}
	}
	entries := make([]blockEntry, count)
	for i := range entries {
		rec := buf[i*blockEntrySize:]
		entries[i] = blockEntry{
			offset:         binary.LittleEndian.Uint64(rec[0:8]),
			uncompressed:   binary.LittleEndian.Uint32(rec[8:12]),
			compressedSize: binary.LittleEndian.Uint32(rec[12:16]),
		}
	}
	return entries, nil
}

// readBlock decompresses the idx-th block of the file described by
// entries, reading through r.
func readBlock(r io.ReaderAt, entries []blockEntry, idx int) ([]byte, error) {
	if idx < 0 || idx >= len(entries) {
		return nil, errs.Wrap(errs.IllegalArgument, fmt.Errorf("tierdb: block index %d out of range", idx))
	}
	e := entries[idx]
	compressed := make([]byte, e.compressedSize)
	if _, err := r.ReadAt(compressed, int64(e.offset)); err != nil {
		return nil, errs.Wrap(errs.FileSystem, fmt.Errorf("tierdb: read block %d: %w", idx, err))
	}
	dec := compr.Decompression("xz")
	dst := make([]byte, e.uncompressed)
	if err := dec.Decompress(compressed, dst); err != nil {
		return nil, errs.Wrap(errs.FileSystem, fmt.Errorf("tierdb: decompress block %d: %w", idx, err))
	}
	return dst, nil
}

// decompressAll reads and concatenates every block of a tier file,
// used by LoadTier to bring a whole sibling tier into memory.
func decompressAll(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.FileSystem, err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, errs.Wrap(errs.FileSystem, err)
	}
	entries, err := readTrailer(f, fi.Size())
	if err != nil {
		return nil, err
	}
	var out []byte
	for i := range entries {
		block, err := readBlock(f, entries, i)
		if err != nil {
			return nil, err
		}
		out = append(out, block...)
	}
	return out, nil
}

// atomicWriteFile writes data to a uniquely-named temporary sibling of
// path, then renames it into place, so readers either see the
// complete old file or the complete new one, never a partial write.
// The uuid-suffixed temporary name (rather than a bare ".tmp") avoids
// a collision if a previous crashed run left a stale temp file behind.
func atomicWriteFile(path string, write func(io.Writer) error) error {
	tmp := fmt.Sprintf("%s.tmp-%s", path, uuid.NewString())
	f, err := os.Create(tmp)
	if err != nil {
		return errs.Wrap(errs.FileSystem, err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
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
