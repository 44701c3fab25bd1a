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

// Package memalign provides cache-line-aligned allocator wrappers for
// hot data structures (ConcurrentBitset words, per-tier worker
// counters) and available-memory detection used by the solver's
// memory manager to size its loaded-tier cache.
package memalign

import (
	"fmt"
	"os"
	"runtime"
	"unsafe"

	"github.com/GamesCrafters/gamesmanone/ints"
)

// DefaultCacheLine is the assumed size, in bytes, of a CPU cache
// line. It is a plain constant with no build-time override; Counter
// is padded to it, and callers that need a different line size pass
// that size to AlignedWords.
const DefaultCacheLine = 64

// ValidCacheLine reports whether size is usable as a cache line size:
// it must be a power of two and a multiple of the platform pointer
// size.
func ValidCacheLine(size uintptr) bool {
	ptrSize := uintptr(unsafe.Sizeof(uintptr(0)))
	return size != 0 && ints.IsPowerOfTwo(size) && size%ptrSize == 0
}

// Counter is a uint64 padded out to DefaultCacheLine bytes so that an
// array of per-worker counters (e.g. tiers solved, positions visited)
// doesn't suffer false sharing between workers pinned to different
// cores.
type Counter struct {
	Value uint64
	_     [DefaultCacheLine - 8]byte
}

// AlignedWords returns a []uint64 slice of length n whose backing
// array starts on a line-byte boundary, for use by ConcurrentBitset
// when it is constructed with cache-line alignment enabled. line must
// satisfy ValidCacheLine.
func AlignedWords(n int, line uintptr) []uint64 {
	if !ValidCacheLine(line) {
		panic(fmt.Sprintf("memalign: invalid cache line size %d", line))
	}
	wordsPerLine := int(line / 8)
	if wordsPerLine < 1 {
		wordsPerLine = 1
	}
	// over-allocate by one line's worth of words so we can find an
	// aligned offset within the backing array without relying on the
	// runtime to hand us an aligned pointer directly.
	buf := make([]uint64, n+wordsPerLine)
	addr := uintptr(unsafe.Pointer(&buf[0]))
	off := (line - addr%line) % line
	start := int(off / 8)
	return buf[start : start+n : start+n]
}

// AvailableMemory returns the amount of usable system memory, in
// bytes, that the solver's memory manager may budget against. On
// Linux it is read from /proc/meminfo (MemAvailable, falling back to
// MemTotal). On other platforms it returns 0, which callers should
// treat as "unknown" and fall back to an explicit --memory flag.
func AvailableMemory() (int64, error) {
	if runtime.GOOS != "linux" {
		return 0, nil
	}
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, fmt.Errorf("memalign: %w", err)
	}
	defer f.Close()
	var available, total int64
	for {
		var label string
		var kb int64
		n, err := fmt.Fscanf(f, "%s %d kB\n", &label, &kb)
		if n == 0 || err != nil {
			break
		}
		switch label {
		case "MemAvailable:":
			available = kb * 1024
		case "MemTotal:":
			total = kb * 1024
		}
	}
	if available > 0 {
		return available, nil
	}
	return total, nil
}
