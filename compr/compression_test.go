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

package compr

import (
	"bytes"
	"testing"
)

func testRoundTrip(t *testing.T, name string) {
	comp := Compression(name)
	if n := comp.Name(); n != name {
		t.Fatalf("bad compressor name %q", n)
	}
	dec := Decompression(name)
	if n := dec.Name(); n != name {
		t.Fatalf("bad decompressor name %q", n)
	}
	ctl := bytes.Repeat([]byte("gamesman-one"), 1000)
	cmp := comp.Compress(ctl, nil)
	dst := make([]byte, len(ctl))
	if err := dec.Decompress(cmp, dst); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(ctl, dst) {
		t.Fatal("round trip mismatch")
	}
	// Compress should append to a non-empty dst, not overwrite it.
	prefix := []byte("prefix:")
	cmp2 := comp.Compress(ctl, append([]byte(nil), prefix...))
	if !bytes.HasPrefix(cmp2, prefix) {
		t.Fatal("Compress did not preserve dst prefix")
	}
	dst2 := make([]byte, len(ctl))
	if err := dec.Decompress(cmp2[len(prefix):], dst2); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(ctl, dst2) {
		t.Fatal("round trip mismatch with non-empty dst")
	}
}

func TestXZRoundTrip(t *testing.T) {
	testRoundTrip(t, "xz")
}

func TestLZ4RoundTrip(t *testing.T) {
	testRoundTrip(t, "lz4")
}

func TestUnknownAlgorithm(t *testing.T) {
	if Compression("bogus") != nil {
		t.Fatal("expected nil Compressor for unknown name")
	}
	if Decompression("bogus") != nil {
		t.Fatal("expected nil Decompressor for unknown name")
	}
}
