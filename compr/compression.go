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

// Package compr provides a unified interface wrapping the two
// compression formats the tier database uses on disk: xz (LZMA2) for
// the block-compressed record array, and the lz4 frame format for
// checkpoint snapshots.
package compr

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// Compressor describes the interface that a block writer needs a
// compression algorithm to implement.
type Compressor interface {
	// Name is the name of the compression algorithm.
	Name() string
	// Compress should append the compressed contents
	// of src to dst and return the result.
	Compress(src, dst []byte) []byte
}

// Decompressor is the interface a block reader uses to decompress
// blocks back into their original, fixed-size form.
type Decompressor interface {
	// Name is the name of the compression algorithm.
	// See also Compressor.Name.
	Name() string
	// Decompress decompresses source data
	// into dst. It should error out if
	// dst is not large enough to fit the
	// encoded source data.
	//
	// It must be safe to make multiple
	// calls to Decompress simultaneously
	// from different goroutines.
	Decompress(src, dst []byte) error
}

// xzCompressor compresses each block as a self-contained xz stream.
// Every tier-database block is compressed independently (rather than
// as one continuous xz stream) so that a Probe can seek directly to
// block N and decompress only that block.
type xzCompressor struct{}

func (xzCompressor) Name() string { return "xz" }

func (xzCompressor) Compress(src, dst []byte) []byte {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		// only fails on bad WriterConfig; we use the default
		panic(err)
	}
	if _, err := w.Write(src); err != nil {
		panic(err)
	}
	if err := w.Close(); err != nil {
		panic(err)
	}
	return append(dst, buf.Bytes()...)
}

type xzDecompressor struct{}

func (xzDecompressor) Name() string { return "xz" }

func (xzDecompressor) Decompress(src, dst []byte) error {
	r, err := xz.NewReader(bytes.NewReader(src))
	if err != nil {
		return fmt.Errorf("compr: xz: %w", err)
	}
	n, err := io.ReadFull(r, dst)
	if err != nil {
		return fmt.Errorf("compr: xz: %w", err)
	}
	if n != len(dst) {
		return fmt.Errorf("compr: xz: expected %d bytes decompressed; got %d", len(dst), n)
	}
	return nil
}

// lz4Compressor compresses a checkpoint snapshot as a single lz4
// frame. Checkpoints are read back in full (never sought into), so a
// streaming frame rather than an independent-block layout is enough.
type lz4Compressor struct{}

func (lz4Compressor) Name() string { return "lz4" }

func (lz4Compressor) Compress(src, dst []byte) []byte {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(src); err != nil {
		panic(err)
	}
	if err := w.Close(); err != nil {
		panic(err)
	}
	return append(dst, buf.Bytes()...)
}

type lz4Decompressor struct{}

func (lz4Decompressor) Name() string { return "lz4" }

func (lz4Decompressor) Decompress(src, dst []byte) error {
	r := lz4.NewReader(bytes.NewReader(src))
	n, err := io.ReadFull(r, dst)
	if err != nil {
		return fmt.Errorf("compr: lz4: %w", err)
	}
	if n != len(dst) {
		return fmt.Errorf("compr: lz4: expected %d bytes decompressed; got %d", len(dst), n)
	}
	return nil
}

// Compression selects a compression algorithm by name. The returned
// Compressor will return the same value for Compressor.Name as the
// specified name. It returns nil for an unrecognized name.
func Compression(name string) Compressor {
	switch name {
	case "xz":
		return xzCompressor{}
	case "lz4":
		return lz4Compressor{}
	default:
		return nil
	}
}

// Decompression selects a decompression algorithm by name. It returns
// nil for an unrecognized name.
func Decompression(name string) Decompressor {
	switch name {
	case "xz":
		return xzDecompressor{}
	case "lz4":
		return lz4Decompressor{}
	default:
		return nil
	}
}
