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

package tierdb

import (
	"path/filepath"
	"strconv"
)

// Layout pins down the on-disk file layout described by spec §6:
//
//	<data_path>/<game_name>/<variant_int>/<db_internal_name>/<tier_name>.adb.xz
//	<data_path>/<game_name>/<variant_int>/<db_internal_name>/<tier_name>.adb.xz.chk
//	<data_path>/<game_name>/<variant_int>/<db_internal_name>/.finish
type Layout struct {
	DataPath string
	Game     string
	Variant  int
	DB       string
}

// Dir returns the directory holding this layout's tier files.
func (l Layout) Dir() string {
	return filepath.Join(l.DataPath, l.Game, strconv.Itoa(l.Variant), l.DB)
}

// TierPath returns the path of tier's compressed record array.
func (l Layout) TierPath(tierName string) string {
	return filepath.Join(l.Dir(), tierName+".adb.xz")
}

// CheckpointPath returns the path of tier's checkpoint file.
func (l Layout) CheckpointPath(tierName string) string {
	return filepath.Join(l.Dir(), tierName+".adb.xz.chk")
}

// FinishPath returns the path of the game-solved flag file.
func (l Layout) FinishPath() string {
	return filepath.Join(l.Dir(), ".finish")
}

// AnalysisDir returns the directory holding one-bit solver discovery
// maps, a sibling of the tier-file directory rather than inside it
// (spec's <data>/analysis/ layout, not <db>/analysis/).
func (l Layout) AnalysisDir() string {
	return filepath.Join(l.DataPath, l.Game, strconv.Itoa(l.Variant), "analysis")
}

// DiscoveryMapPath returns the path of tier's persisted discovery
// bitset.
func (l Layout) DiscoveryMapPath(tierName string) string {
	return filepath.Join(l.AnalysisDir(), tierName+".map.lz4")
}
