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

package bitset

import (
	"sync"
	"testing"

	"github.com/GamesCrafters/gamesmanone/errs"
)

func TestCreateRejectsNonPositive(t *testing.T) {
	if _, err := Create(0); err == nil {
		t.Fatal("expected error for n=0")
	}
	if _, err := Create(-1); err == nil {
		t.Fatal("expected error for negative n")
	} else if k, ok := errs.KindOf(err); !ok || k != errs.IllegalArgument {
		t.Fatalf("expected IllegalArgument, got %v", err)
	}
}

func TestSetResetTest(t *testing.T) {
	b, err := Create(200)
	if err != nil {
		t.Fatal(err)
	}
	if b.Test(150, SeqCst) {
		t.Fatal("bit 150 should start clear")
	}
	if prev := b.Set(150, SeqCst); prev {
		t.Fatal("Set should report previous value false")
	}
	if !b.Test(150, SeqCst) {
		t.Fatal("bit 150 should now be set")
	}
	if prev := b.Set(150, SeqCst); !prev {
		t.Fatal("Set should report previous value true when already set")
	}
	if prev := b.Reset(150, SeqCst); !prev {
		t.Fatal("Reset should report previous value true")
	}
	if b.Test(150, SeqCst) {
		t.Fatal("bit 150 should be clear after Reset")
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	b, err := Create(130)
	if err != nil {
		t.Fatal(err)
	}
	for _, i := range []int64{0, 1, 63, 64, 65, 129} {
		b.Set(i, Relaxed)
	}
	buf := make([]byte, b.SerializedSize())
	if err := b.Serialize(buf); err != nil {
		t.Fatal(err)
	}
	b2, err := Create(130)
	if err != nil {
		t.Fatal(err)
	}
	if err := b2.Deserialize(buf); err != nil {
		t.Fatal(err)
	}
	for i := int64(0); i < 130; i++ {
		if b.Test(i, Relaxed) != b2.Test(i, Relaxed) {
			t.Fatalf("bit %d mismatch after round trip", i)
		}
	}
}

func TestCopyIsIndependent(t *testing.T) {
	b, _ := Create(64)
	b.Set(10, Relaxed)
	c := b.Copy()
	b.Set(20, Relaxed)
	if c.Test(20, Relaxed) {
		t.Fatal("copy should not observe writes made after Copy")
	}
	if !c.Test(10, Relaxed) {
		t.Fatal("copy should observe writes made before Copy")
	}
}

func TestConcurrentSet(t *testing.T) {
	const n = 10000
	b, err := Create(n)
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := int64(w); i < n; i += 8 {
				b.Set(i, AcqRel)
			}
		}()
	}
	wg.Wait()
	for i := int64(0); i < n; i++ {
		if !b.Test(i, Acquire) {
			t.Fatalf("bit %d should be set", i)
		}
	}
}
