package climate

import (
	"strings"

	"github.com/nerrad567/gray-logic-irclimate/internal/irtable"
)

// Feature is a bitmask of control affordances reported to the host.
//
// Bit values follow the generic climate contract so a persisted
// supported_features value stays meaningful across releases.
type Feature uint32

// Feature flags.
const (
	FeatureTargetTemperature Feature = 1
	FeatureFanMode           Feature = 64
	FeatureOperationMode     Feature = 128
	FeatureAwayMode          Feature = 1024
	FeatureOnOff             Feature = 4096
)

// BaseFeatures is the maximum set every device declares.
const BaseFeatures = FeatureOnOff | FeatureTargetTemperature | FeatureOperationMode | FeatureFanMode

var featureNames = []struct {
	flag Feature
	name string
}{
	{FeatureOnOff, "on_off"},
	{FeatureOperationMode, "operation_mode"},
	{FeatureFanMode, "fan_mode"},
	{FeatureTargetTemperature, "target_temperature"},
	{FeatureAwayMode, "away_mode"},
}

// Has reports whether every bit of flag is set.
func (f Feature) Has(flag Feature) bool {
	return f&flag == flag
}

// Names returns the names of the set flags in a stable order.
func (f Feature) Names() []string {
	names := make([]string, 0, len(featureNames))
	for _, fn := range featureNames {
		if f.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	return names
}

func (f Feature) String() string {
	if f == 0 {
		return "none"
	}
	return strings.Join(f.Names(), "|")
}

// MaxFeatures returns the structural capability set of a table: the base set,
// plus away mode when the table declares an idle code.
func MaxFeatures(table *irtable.Table) Feature {
	return BaseFeatures | structural(table)
}

func structural(table *irtable.Table) Feature {
	if table.HasIdle() {
		return FeatureAwayMode
	}
	return 0
}
