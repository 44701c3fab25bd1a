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

package bitpack

import "testing"

// TestExpansionScenario reproduces the exact scenario from the
// solver's test matrix: default width 1, Set(0,0), Set(1,1),
// Set(2,2). The third Set must trigger expansion from 1 to 2 bits,
// all three Gets must return their original values, and any untouched
// index must read back as 0.
func TestExpansionScenario(t *testing.T) {
	a, err := New(8)
	if err != nil {
		t.Fatal(err)
	}
	if a.BitsPerEntry() != 1 {
		t.Fatalf("expected initial width 1, got %d", a.BitsPerEntry())
	}
	if err := a.Set(0, 0); err != nil {
		t.Fatal(err)
	}
	if err := a.Set(1, 1); err != nil {
		t.Fatal(err)
	}
	if a.BitsPerEntry() != 1 {
		t.Fatalf("width should still be 1 after two distinct values, got %d", a.BitsPerEntry())
	}
	if err := a.Set(2, 2); err != nil {
		t.Fatal(err)
	}
	if a.BitsPerEntry() != 2 {
		t.Fatalf("expected width 2 after third distinct value, got %d", a.BitsPerEntry())
	}
	if got := a.Get(0); got != 0 {
		t.Fatalf("Get(0) = %d, want 0", got)
	}
	if got := a.Get(1); got != 1 {
		t.Fatalf("Get(1) = %d, want 1", got)
	}
	if got := a.Get(2); got != 2 {
		t.Fatalf("Get(2) = %d, want 2", got)
	}
	for i := int64(3); i < 8; i++ {
		if got := a.Get(i); got != 0 {
			t.Fatalf("Get(%d) = %d, want 0", i, got)
		}
	}
}

func TestRoundTripAfterOverwrite(t *testing.T) {
	a, err := New(16)
	if err != nil {
		t.Fatal(err)
	}
	want := make([]uint64, 16)
	values := []uint64{5, 100, 1, 5, 999999, 0, 42, 7, 100, 3, 3, 3, 1, 2, 999999, 8}
	for i, v := range values {
		if err := a.Set(int64(i), v); err != nil {
			t.Fatal(err)
		}
		want[i] = v
	}
	for i, v := range want {
		if got := a.Get(int64(i)); got != v {
			t.Fatalf("Get(%d) = %d, want %d", i, got, v)
		}
	}
	// overwrite index 0 with a later value, confirm only it changes
	if err := a.Set(0, 999999); err != nil {
		t.Fatal(err)
	}
	if got := a.Get(0); got != 999999 {
		t.Fatalf("Get(0) after overwrite = %d, want 999999", got)
	}
	for i := 1; i < len(want); i++ {
		if got := a.Get(int64(i)); got != want[i] {
			t.Fatalf("Get(%d) changed unexpectedly to %d, want %d", i, got, want[i])
		}
	}
}

func TestMonotonicWidth(t *testing.T) {
	a, err := New(300)
	if err != nil {
		t.Fatal(err)
	}
	prev := a.BitsPerEntry()
	for i := int64(0); i < 300; i++ {
		if err := a.Set(i, uint64(i)); err != nil {
			t.Fatal(err)
		}
		if a.BitsPerEntry() < prev {
			t.Fatalf("bits_per_entry decreased from %d to %d", prev, a.BitsPerEntry())
		}
		prev = a.BitsPerEntry()
	}
	// 300 distinct values need ceil(log2(300)) = 9 bits
	if a.BitsPerEntry() != 9 {
		t.Fatalf("expected width 9 for 300 distinct values, got %d", a.BitsPerEntry())
	}
}

// TestUntouchedReadsZeroRegardlessOfInsertionOrder guards against the
// dictionary aliasing an untouched code (0) to whichever value was
// inserted first: here the first Set anywhere in the array is a
// non-zero value, so a naive "return inverse[code]" would make every
// untouched index read back 99 instead of 0.
func TestUntouchedReadsZeroRegardlessOfInsertionOrder(t *testing.T) {
	a, err := New(4)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Set(0, 99); err != nil {
		t.Fatal(err)
	}
	if got := a.Get(0); got != 99 {
		t.Fatalf("Get(0) = %d, want 99", got)
	}
	for i := int64(1); i < 4; i++ {
		if got := a.Get(i); got != 0 {
			t.Fatalf("Get(%d) = %d, want 0 (never Set)", i, got)
		}
	}
	// an index explicitly Set to 0 must still read back 0, same as an
	// untouched one.
	if err := a.Set(1, 0); err != nil {
		t.Fatal(err)
	}
	if got := a.Get(1); got != 0 {
		t.Fatalf("Get(1) = %d, want 0", got)
	}
}

func TestNegativeLengthRejected(t *testing.T) {
	if _, err := New(-1); err == nil {
		t.Fatal("expected error for negative n")
	}
}
