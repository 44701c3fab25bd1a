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

// Package atomicext provides extensions complementing the built-in
// sync/atomic package for busy-wait code paths.
package atomicext

import "runtime"

// Pause improves the performance of spin-wait loops. When executing a
// "spin-wait loop," processors will suffer a performance penalty when
// exiting the loop because they detect a possible memory-order violation.
// Pause gives the scheduler a chance to run other goroutines instead of
// burning the P on a tight CAS-retry loop.
func Pause() {
	runtime.Gosched()
}
