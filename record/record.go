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

// Package record implements the fixed 16-bit (Value, Remoteness)
// record encoding and the RecordArray that stores one record per
// position in a tier.
package record

import (
	"fmt"

	"github.com/GamesCrafters/gamesmanone/errs"
)

// Value is the finite outcome of a position under optimal play.
// Undecided is numerically zero so a freshly-allocated RecordArray
// starts every position undecided without an explicit fill pass.
type Value uint8

const (
	Undecided Value = iota
	Lose
	Draw
	Tie
	Win
)

// numValues is the size of the Value enum; it is also the multiplier
// in the record encoding (record = remoteness*numValues + value).
const numValues = 5

func (v Value) String() string {
	switch v {
	case Undecided:
		return "Undecided"
	case Lose:
		return "Lose"
	case Draw:
		return "Draw"
	case Tie:
		return "Tie"
	case Win:
		return "Win"
	default:
		return "Invalid"
	}
}

// Remoteness is the number of plies to the terminal outcome under
// optimal play, 0 for primitive positions, unused for Draw.
type Remoteness uint16

// ErrorRemoteness is the distinguished remoteness value returned by a
// failed probe. It is the maximum remoteness a 16-bit record can
// encode, which can never arise from a legitimate solve (MaxRemoteness
// is one less).
const ErrorRemoteness Remoteness = MaxRemoteness + 1

// MaxRemoteness is the largest remoteness a Record can encode: a
// 16-bit record holds numValues*(MaxRemoteness+1) distinct values, so
// MaxRemoteness = floor(65536/numValues) - 1.
const MaxRemoteness Remoteness = 65536/numValues - 1

// Record is the packed 16-bit encoding of a (Value, Remoteness) pair:
// record = remoteness*numValues + value_ordinal.
type Record uint16

// Encode packs v and r into a Record. It returns
// errs.ErrIntegerOverflow if r exceeds MaxRemoteness.
func Encode(v Value, r Remoteness) (Record, error) {
	if r > MaxRemoteness {
		return 0, errs.Wrap(errs.IntegerOverflow, fmt.Errorf("record: remoteness %d exceeds max %d", r, MaxRemoteness))
	}
	return Record(uint32(r)*numValues + uint32(v)), nil
}

// Decode unpacks rec into its (Value, Remoteness) pair.
func Decode(rec Record) (Value, Remoteness) {
	return Value(uint32(rec) % numValues), Remoteness(uint32(rec) / numValues)
}

// RecordArray is a dense array of tier_size records, 2 bytes per
// entry, freshly allocated to all Undecided/0.
type RecordArray struct {
	buf []byte
}

// NewRecordArray allocates a RecordArray with room for size positions.
func NewRecordArray(size int64) (*RecordArray, error) {
	if size < 0 {
		return nil, errs.Wrap(errs.IllegalArgument, fmt.Errorf("record: negative size %d", size))
	}
	return &RecordArray{buf: make([]byte, size*2)}, nil
}

// WrapRecordArray wraps an existing byte buffer (e.g. one just
// decompressed from disk) as a RecordArray without copying it. len(buf)
// must be 2*size.
func WrapRecordArray(buf []byte) *RecordArray {
	return &RecordArray{buf: buf}
}

// Len returns the number of positions the array holds.
func (a *RecordArray) Len() int64 { return int64(len(a.buf) / 2) }

// Bytes returns the array's raw backing buffer, for handing to the
// tier database's compressor.
func (a *RecordArray) Bytes() []byte { return a.buf }

func (a *RecordArray) get(pos int64) Record {
	return Record(uint16(a.buf[pos*2]) | uint16(a.buf[pos*2+1])<<8)
}

func (a *RecordArray) set(pos int64, rec Record) {
	a.buf[pos*2] = byte(rec)
	a.buf[pos*2+1] = byte(rec >> 8)
}

// GetValue returns the value stored at pos.
func (a *RecordArray) GetValue(pos int64) Value {
	v, _ := Decode(a.get(pos))
	return v
}

// GetRemoteness returns the remoteness stored at pos.
func (a *RecordArray) GetRemoteness(pos int64) Remoteness {
	_, r := Decode(a.get(pos))
	return r
}

// SetValue overwrites the value at pos, preserving its remoteness.
func (a *RecordArray) SetValue(pos int64, v Value) error {
	_, r := Decode(a.get(pos))
	rec, err := Encode(v, r)
	if err != nil {
		return err
	}
	a.set(pos, rec)
	return nil
}

// SetRemoteness overwrites the remoteness at pos, preserving its value.
func (a *RecordArray) SetRemoteness(pos int64, r Remoteness) error {
	v, _ := Decode(a.get(pos))
	rec, err := Encode(v, r)
	if err != nil {
		return err
	}
	a.set(pos, rec)
	return nil
}

// SetBoth atomically-from-the-caller's-perspective overwrites both
// fields at once, avoiding a redundant decode of the stale remoteness
// when a worker already knows both values (e.g. Step 2's primitive
// assignment).
func (a *RecordArray) SetBoth(pos int64, v Value, r Remoteness) error {
	rec, err := Encode(v, r)
	if err != nil {
		return err
	}
	a.set(pos, rec)
	return nil
}
