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

// Command gamesman drives the solver core over a registered game:
// solve its tier DAG, inspect solved positions, and answer read-only
// queries against the on-disk database.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/GamesCrafters/gamesmanone/api"
	"github.com/GamesCrafters/gamesmanone/errs"
	"github.com/GamesCrafters/gamesmanone/games"
	"github.com/GamesCrafters/gamesmanone/ints"
	"github.com/GamesCrafters/gamesmanone/memalign"
	"github.com/GamesCrafters/gamesmanone/solver"
	"github.com/GamesCrafters/gamesmanone/tierdb"
)

var (
	dashDataPath string
	dashMemory   int64
	dashForce    bool
	dashOutput   string
	dashQuiet    bool
	dashVerbose  bool
)

func init() {
	flag.StringVar(&dashDataPath, "data-path", ".", "root directory holding every game's tier database")
	flag.Int64Var(&dashMemory, "memory", 0, "memory budget in bytes for simultaneously loaded tiers (default: detected available memory)")
	flag.BoolVar(&dashForce, "force", false, "log a note only; tiers already solved on disk are still skipped (delete a tier's .adb.xz to re-solve it)")
	flag.StringVar(&dashOutput, "output", "-", "output file for query/getstart/getrandom results (- for stdout)")
	flag.BoolVar(&dashQuiet, "quiet", false, "suppress progress output")
	flag.BoolVar(&dashVerbose, "verbose", false, "print per-tier progress as the solve runs")
}

func exitf(f string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, f, args...)
	os.Exit(1)
}

func logf(f string, args ...interface{}) {
	if !dashQuiet {
		fmt.Fprintf(os.Stderr, f+"\n", args...)
	}
}

func verbosef(f string, args ...interface{}) {
	if dashVerbose && !dashQuiet {
		fmt.Fprintf(os.Stderr, f+"\n", args...)
	}
}

func outWriter() (*os.File, func(), error) {
	if dashOutput == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(dashOutput)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func openGame(name string, variant int) api.GameApi {
	game, err := games.Lookup(name, variant)
	if err != nil {
		exitf("%s: %s\n(registered games: %v)\n", name, err, games.Names())
	}
	return game
}

func openDB(name string, variant int) *tierdb.TierDatabase {
	layout := tierdb.Layout{DataPath: dashDataPath, Game: name, Variant: variant, DB: "arraydb"}
	slots := memorySlots()
	db, err := tierdb.Open(layout, slots)
	if err != nil {
		exitf("opening database for %s: %s\n", name, err)
	}
	return db
}

// memorySlots converts a --memory byte budget (or the autodetected
// default) into a sibling-tier slot count, assuming a tier costs
// roughly assumedBytesPerSlot bytes once loaded (2 bytes per position
// times about 33.5 million positions); since a tier's true size varies per
// game, this is necessarily a rough estimate and tierdb.MinSlots is
// always honored as the floor.
func memorySlots() int {
	budget := dashMemory
	if budget <= 0 {
		avail, err := memalign.AvailableMemory()
		if err == nil {
			budget = avail
		}
	}
	const assumedBytesPerSlot = 64 * 1024 * 1024
	slots := int(budget / assumedBytesPerSlot)
	if slots < tierdb.MinSlots {
		slots = tierdb.MinSlots
	}
	return slots
}

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <command> <game> [variant] [position]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "commands:\n")
		fmt.Fprintf(os.Stderr, "    %s solve <game> [variant]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "        solve every tier in <game>'s tier DAG\n")
		fmt.Fprintf(os.Stderr, "    %s analyze <game> [variant] [tier-glob]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "        report on-disk status of tiers matching tier-glob (default *)\n")
		fmt.Fprintf(os.Stderr, "    %s query <game> <tier> <position>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "        print the solved value and remoteness of a position\n")
		fmt.Fprintf(os.Stderr, "    %s getstart <game> [variant]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "        print the game's initial tier and position\n")
		fmt.Fprintf(os.Stderr, "    %s getrandom <game> [variant] [tier]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "        print a uniformly random legal position in tier (default: initial tier)\n")
		fmt.Fprintf(os.Stderr, "flag usage:\n")
		flag.Usage()
		os.Exit(1)
	}

	switch args[0] {
	case "solve":
		if len(args) < 2 || len(args) > 3 {
			exitf("usage: solve <game> [variant]\n")
		}
		runSolve(args[1], variantArg(args, 2))
	case "analyze":
		if len(args) < 2 || len(args) > 4 {
			exitf("usage: analyze <game> [variant] [tier-glob]\n")
		}
		glob := "*"
		if len(args) == 4 {
			glob = args[3]
		}
		runAnalyze(args[1], variantArg(args, 2), glob)
	case "query":
		if len(args) != 4 {
			exitf("usage: query <game> <tier> <position>\n")
		}
		runQuery(args[1], 0, args[2], args[3])
	case "getstart":
		if len(args) < 2 || len(args) > 3 {
			exitf("usage: getstart <game> [variant]\n")
		}
		runGetStart(args[1], variantArg(args, 2))
	case "getrandom":
		if len(args) < 2 || len(args) > 4 {
			exitf("usage: getrandom <game> [variant] [tier]\n")
		}
		tierArg := ""
		if len(args) == 4 {
			tierArg = args[3]
		}
		runGetRandom(args[1], variantArg(args, 2), tierArg)
	default:
		exitf("commands: solve, analyze, query, getstart, getrandom\n")
	}
}

func variantArg(args []string, i int) int {
	if i >= len(args) {
		return 0
	}
	var v int
	if _, err := fmt.Sscanf(args[i], "%d", &v); err != nil {
		exitf("variant %q is not an integer\n", args[i])
	}
	return v
}

func runSolve(name string, variant int) {
	game := openGame(name, variant)
	db := openDB(name, variant)

	opts := solver.Options{Logf: verbosef}
	if dashForce {
		logf("--force set: re-solving tiers already marked solved on disk is not yet distinguished from a fresh solve; delete the tier's .adb.xz to force a specific tier")
	}
	mgr := solver.NewManager(game, db, opts)
	summary, err := mgr.Solve(runtime.GOMAXPROCS(0))
	if err != nil {
		for _, f := range summary.Failures {
			fmt.Fprintf(os.Stderr, "tier %v: %s\n", f.Tier, f.Err)
		}
		exitf("solve: %s\n", err)
	}
	logf("solved %d tiers (%d already solved)", summary.TiersSolved, summary.Skipped)
}

func runAnalyze(name string, variant int, glob string) {
	game := openGame(name, variant)
	db := openDB(name, variant)

	out, closeOut, err := outWriter()
	if err != nil {
		exitf("opening %s: %s\n", dashOutput, err)
	}
	defer closeOut()

	tiers, err := discoverTiers(game)
	if err != nil {
		exitf("walking tier graph: %s\n", err)
	}
	for _, tier := range tiers {
		tierName, err := db.TierName(game, tier)
		if err != nil {
			exitf("tier %v: %s\n", tier, err)
		}
		match, err := matchGlob(glob, tierName)
		if err != nil {
			exitf("bad glob %q: %s\n", glob, err)
		}
		if !match {
			continue
		}
		fmt.Fprintf(out, "%s\t%s\n", tierName, db.Status(game, tier))
	}
}

func runQuery(name string, variant int, tierArg, posArg string) {
	game := openGame(name, variant)
	db := openDB(name, variant)

	tier, err := resolveTier(game, db, tierArg)
	if err != nil {
		exitf("tier %q: %s\n", tierArg, err)
	}
	var pos int64
	if _, err := fmt.Sscanf(posArg, "%d", &pos); err != nil {
		exitf("position %q is not an integer\n", posArg)
	}

	probe := db.NewProbe(game)
	defer probe.Close()
	tp := api.TierPosition{Tier: tier, Position: api.Position(pos)}
	v, err := probe.ProbeValue(tp)
	if err != nil {
		exitf("query: %s\n", err)
	}
	r, err := probe.ProbeRemoteness(tp)
	if err != nil {
		exitf("query: %s\n", err)
	}

	out, closeOut, err := outWriter()
	if err != nil {
		exitf("opening %s: %s\n", dashOutput, err)
	}
	defer closeOut()
	fmt.Fprintf(out, "%s\t%d\n", v, r)
}

func runGetStart(name string, variant int) {
	game := openGame(name, variant)
	out, closeOut, err := outWriter()
	if err != nil {
		exitf("opening %s: %s\n", dashOutput, err)
	}
	defer closeOut()
	fmt.Fprintf(out, "%v\t%d\n", game.GetInitialTier(), game.GetInitialPosition())
}

func runGetRandom(name string, variant int, tierArg string) {
	game := openGame(name, variant)
	db := openDB(name, variant)

	tier := game.GetInitialTier()
	if tierArg != "" {
		t, err := resolveTier(game, db, tierArg)
		if err != nil {
			exitf("tier %q: %s\n", tierArg, err)
		}
		tier = t
	}
	size, err := game.GetTierSize(tier)
	if err != nil || size <= 0 {
		exitf("tier %v has no positions to sample from\n", tier)
	}

	out, closeOut, err := outWriter()
	if err != nil {
		exitf("opening %s: %s\n", dashOutput, err)
	}
	defer closeOut()

	// Rejection-sample until a legal position turns up; IsLegalPosition
	// is allowed to be pessimistic, so this always terminates as long
	// as at least one position in the tier is truly legal.
	for {
		i, err := ints.RandomIndex(size)
		if err != nil {
			exitf("getrandom: %s\n", err)
		}
		pos := api.Position(i)
		tp := api.TierPosition{Tier: tier, Position: pos}
		legal, err := game.IsLegalPosition(tp)
		if err != nil {
			exitf("getrandom: %s\n", err)
		}
		if legal {
			fmt.Fprintf(out, "%v\t%d\n", tier, pos)
			return
		}
	}
}

// resolveTier accepts either a tier's filename-safe name (as reported
// by analyze) or a raw integer tier ordinal.
func resolveTier(game api.GameApi, db *tierdb.TierDatabase, arg string) (api.Tier, error) {
	var raw int64
	if _, err := fmt.Sscanf(arg, "%d", &raw); err == nil {
		return api.Tier(raw), nil
	}
	tiers, err := discoverTiers(game)
	if err != nil {
		return 0, err
	}
	for _, tier := range tiers {
		name, err := db.TierName(game, tier)
		if err != nil {
			return 0, err
		}
		if name == arg {
			return tier, nil
		}
	}
	return 0, errs.Wrap(errs.IllegalGameTier, fmt.Errorf("no tier named %q", arg))
}
