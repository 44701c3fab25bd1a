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

// Package errs defines the stable error-kind enumeration shared by
// every layer of the solver core. Layers return these kinds wrapped
// with context via fmt.Errorf's %w verb; callers use errors.Is against
// the sentinels below to recover the kind.
package errs

import "errors"

// Kind is a stable ordinal identifying the category of a failure.
// The ordinals are part of the on-disk/CLI contract (they map to
// process exit codes) and must not be reordered.
type Kind int

const (
	NoError Kind = iota
	OutOfMemory
	NotImplemented
	UnreachableBranch
	IntegerOverflow
	MemoryOverflow
	FileSystem
	IllegalArgument
	IllegalGameName
	IllegalGameVariant
	IllegalGameTier
	IllegalGamePosition
	IllegalGamePositionValue
	IllegalTierGraph
	IllegalSolverOption
	IncompleteGameplayApi
	GameInit
	UseBeforeInit
	HeadlessError
	GenericHashError
	Runtime
)

var names = [...]string{
	"NoError",
	"OutOfMemory",
	"NotImplemented",
	"UnreachableBranch",
	"IntegerOverflow",
	"MemoryOverflow",
	"FileSystem",
	"IllegalArgument",
	"IllegalGameName",
	"IllegalGameVariant",
	"IllegalGameTier",
	"IllegalGamePosition",
	"IllegalGamePositionValue",
	"IllegalTierGraph",
	"IllegalSolverOption",
	"IncompleteGameplayApi",
	"GameInit",
	"UseBeforeInit",
	"HeadlessError",
	"GenericHashError",
	"Runtime",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(names) {
		return "Unknown"
	}
	return names[k]
}

// Error is a Kind presented as an error value so that it can be used
// directly as a sentinel target for errors.Is, or wrapped with
// additional context via fmt.Errorf("doing X: %w", errs.ErrOutOfMemory).
type Error struct {
	Kind Kind
}

func (e *Error) Error() string { return e.Kind.String() }

// the package-level sentinels below are *errors*, not just Kind
// values, so that errors.Is(err, errs.ErrOutOfMemory) works without
// callers needing to know about the Error wrapper type.
var (
	ErrOutOfMemory              error = &Error{OutOfMemory}
	ErrNotImplemented           error = &Error{NotImplemented}
	ErrUnreachableBranch        error = &Error{UnreachableBranch}
	ErrIntegerOverflow          error = &Error{IntegerOverflow}
	ErrMemoryOverflow           error = &Error{MemoryOverflow}
	ErrFileSystem               error = &Error{FileSystem}
	ErrIllegalArgument          error = &Error{IllegalArgument}
	ErrIllegalGameName          error = &Error{IllegalGameName}
	ErrIllegalGameVariant       error = &Error{IllegalGameVariant}
	ErrIllegalGameTier          error = &Error{IllegalGameTier}
	ErrIllegalGamePosition      error = &Error{IllegalGamePosition}
	ErrIllegalGamePositionValue error = &Error{IllegalGamePositionValue}
	ErrIllegalTierGraph         error = &Error{IllegalTierGraph}
	ErrIllegalSolverOption      error = &Error{IllegalSolverOption}
	ErrIncompleteGameplayApi    error = &Error{IncompleteGameplayApi}
	ErrGameInit                 error = &Error{GameInit}
	ErrUseBeforeInit            error = &Error{UseBeforeInit}
	ErrHeadlessError            error = &Error{HeadlessError}
	ErrGenericHashError         error = &Error{GenericHashError}
	ErrRuntime                  error = &Error{Runtime}
)

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Wrap annotates err with a Kind, producing a value that satisfies
// errors.Is(wrapped, sentinelForKind) while preserving err's message
// via %w-style chaining.
func Wrap(k Kind, err error) error {
	if err == nil {
		return nil
	}
	return &wrapped{kind: k, cause: err}
}

type wrapped struct {
	kind  Kind
	cause error
}

func (w *wrapped) Error() string { return w.kind.String() + ": " + w.cause.Error() }
func (w *wrapped) Unwrap() error { return w.cause }
func (w *wrapped) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == w.kind
}

// KindOf extracts the Kind carried by err, if any, and reports whether
// one was found. It walks the error chain via errors.As.
func KindOf(err error) (Kind, bool) {
	var w *wrapped
	if errors.As(err, &w) {
		return w.kind, true
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return NoError, false
}

// ExitCode maps an error to a process exit code for the CLI. A nil
// error maps to 0; an error carrying a Kind maps to that Kind's
// ordinal, so distinct failures remain distinguishable to scripts
// driving the CLI, except that NoError maps to 1 so a non-nil error
// never exits 0; an error carrying no Kind maps to Runtime's ordinal.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if k, ok := KindOf(err); ok {
		if k == NoError {
			return 1
		}
		return int(k)
	}
	return int(Runtime)
}
