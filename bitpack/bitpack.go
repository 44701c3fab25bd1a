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

// Package bitpack implements BitPackedArray, a logical array of N
// entries, each up to 31 bits wide, backed by a value dictionary that
// maps observed 64-bit values to small dense codes and auto-expands
// its bit width as the dictionary grows.
package bitpack

import (
	"encoding/binary"
	"fmt"

	"github.com/GamesCrafters/gamesmanone/errs"
	"github.com/GamesCrafters/gamesmanone/ints"
)

// maxBitsPerEntry is the widest an entry may be: the dictionary's code
// is a signed 32-bit index, and a single 64-bit segment must contain
// the entry without straddling into the next one.
const maxBitsPerEntry = 31

// Array is a BitPackedArray: n entries, each up to 31 bits, dictionary
// compressed. Get/Set are not safe for concurrent use; the solver
// never shares a single Array across goroutines without external
// synchronization.
//
// Code 0 is pre-assigned to the value 0 before any Set, so an index
// that was never Set reads back 0, the same as one explicitly Set to
// 0; every other distinct value gets the next code, starting at 1.
type Array struct {
	n            int64
	bitsPerEntry uint
	stream       []byte
	dict         map[uint64]int32
	inverse      []uint64
}

// New constructs a BitPackedArray with n entries and a starting
// bits_per_entry of 1, matching the spec's default. It returns
// errs.ErrIllegalArgument if n < 0.
func New(n int64) (*Array, error) {
	if n < 0 {
		return nil, errs.Wrap(errs.IllegalArgument, fmt.Errorf("bitpack: negative n %d", n))
	}
	a := &Array{
		n:            n,
		bitsPerEntry: 1,
		dict:         map[uint64]int32{0: 0},
		inverse:      []uint64{0},
	}
	a.stream = make([]byte, streamBytes(n, 1))
	return a, nil
}

// streamBytes returns ceil(n*bits/8) + 8, the 8 bytes of tail padding
// permitting a 64-bit segment load starting anywhere inside the
// stream's logical range.
func streamBytes(n int64, bits uint) int64 {
	totalBits := n * int64(bits)
	return int64(ints.ChunkCount(uint64(totalBits), 8)) + 8
}

// BitsPerEntry returns the current entry width.
func (a *Array) BitsPerEntry() uint { return a.bitsPerEntry }

// Len returns the number of logical entries.
func (a *Array) Len() int64 { return a.n }

// Get returns the value last Set at index i, or 0 if it was never set.
func (a *Array) Get(i int64) uint64 {
	code := a.getCode(i)
	if code == 0 || int(code) >= len(a.inverse) {
		return 0
	}
	return a.inverse[code]
}

func (a *Array) getCode(i int64) uint32 {
	bit := uint64(i) * uint64(a.bitsPerEntry)
	byteOff := bit / 8
	local := bit % 8
	seg := binary.LittleEndian.Uint64(a.stream[byteOff:])
	mask := uint64(1)<<a.bitsPerEntry - 1
	return uint32((seg >> local) & mask)
}

func (a *Array) setCode(i int64, code uint32) {
	bit := uint64(i) * uint64(a.bitsPerEntry)
	byteOff := bit / 8
	local := bit % 8
	mask := uint64(1)<<a.bitsPerEntry - 1
	seg := binary.LittleEndian.Uint64(a.stream[byteOff:])
	seg = seg&^(mask<<local) | (uint64(code)&mask)<<local
	binary.LittleEndian.PutUint64(a.stream[byteOff:], seg)
}

// Set stores value at index i, inserting it into the dictionary if
// unseen and expanding bits_per_entry (out-of-place, copying every
// entry into a freshly allocated wider stream) if the resulting code
// no longer fits in the current width. It returns
// errs.ErrIntegerOverflow if the dictionary would need more than 31
// bits to index.
func (a *Array) Set(i int64, value uint64) error {
	code, ok := a.dict[value]
	if !ok {
		code = int32(len(a.inverse))
		a.dict[value] = code
		a.inverse = append(a.inverse, value)
	}
	for uint64(code) >= uint64(1)<<a.bitsPerEntry {
		if a.bitsPerEntry >= maxBitsPerEntry {
			return errs.Wrap(errs.IntegerOverflow, fmt.Errorf("bitpack: dictionary outgrew %d bits", maxBitsPerEntry))
		}
		a.expand()
	}
	a.setCode(i, uint32(code))
	return nil
}

// expand grows bits_per_entry by one, reallocating the stream and
// copying every existing entry across. This mirrors the source
// solver's BpArrayExpand, which is explicitly out-of-place: a
// planned in-place rewrite is a legal future change, not something
// callers may assume.
func (a *Array) expand() {
	old := a.stream
	oldBits := a.bitsPerEntry
	newBits := oldBits + 1
	newStream := make([]byte, streamBytes(a.n, newBits))
	a.stream = newStream
	a.bitsPerEntry = newBits
	// copy every logical entry from the old stream at the old width
	// into the new stream at the new width
	for i := int64(0); i < a.n; i++ {
		bit := uint64(i) * uint64(oldBits)
		byteOff := bit / 8
		local := bit % 8
		// old stream retains its 8-byte tail padding, safe to read a
		// 64-bit segment from any in-range offset
		seg := binary.LittleEndian.Uint64(old[byteOff:])
		mask := uint64(1)<<oldBits - 1
		code := (seg >> local) & mask
		a.setCodeWidth(i, uint32(code), newBits)
	}
}

func (a *Array) setCodeWidth(i int64, code uint32, bits uint) {
	bit := uint64(i) * uint64(bits)
	byteOff := bit / 8
	local := bit % 8
	mask := uint64(1)<<bits - 1
	seg := binary.LittleEndian.Uint64(a.stream[byteOff:])
	seg = seg&^(mask<<local) | (uint64(code)&mask)<<local
	binary.LittleEndian.PutUint64(a.stream[byteOff:], seg)
}
