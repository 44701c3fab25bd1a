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

package solver

import "sync"

// parallelRange runs fn(lo, hi) for every [lo, hi) sub-range of
// [0, n), chunkSize positions at a time, across workers goroutines
// drawing chunks from a shared counter. This is the work-stealing
// thread pool the design notes call for in place of an OpenMP
// parallel-for: goroutines race to claim the next chunk rather than
// each owning a fixed static slice, so a worker that finishes early
// (e.g. its positions all turned out primitive) picks up slack from
// one still working through harder positions.
func parallelRange(n int64, chunkSize, workers int, fn func(lo, hi int64)) {
	if n <= 0 {
		return
	}
	if workers < 1 {
		workers = 1
	}
	var next int64
	var mu sync.Mutex
	claim := func() (int64, int64, bool) {
		mu.Lock()
		defer mu.Unlock()
		if next >= n {
			return 0, 0, false
		}
		lo := next
		hi := lo + int64(chunkSize)
		if hi > n {
			hi = n
		}
		next = hi
		return lo, hi, true
	}

	if workers == 1 || n <= int64(chunkSize) {
		for {
			lo, hi, ok := claim()
			if !ok {
				return
			}
			fn(lo, hi)
		}
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				lo, hi, ok := claim()
				if !ok {
					return
				}
				fn(lo, hi)
			}
		}()
	}
	wg.Wait()
}
