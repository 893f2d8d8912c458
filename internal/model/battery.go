package model

import (
	"math"
)

// BatterySpec defines the physical parameters of the battery.
// Units:
// - MaxCapacityMWh: MWh
// - ChargePowerLimitMW, DischargePowerLimitMW: MW
// - Efficiencies: (0, 1]
// - SOC fractions: fractions of MaxCapacityMWh
//
// MaxSOCFraction is not capped at 1; the optimiser applies a separate
// absolute SOC ceiling.
type BatterySpec struct {
	MaxCapacityMWh        float64
	ChargePowerLimitMW    float64
	DischargePowerLimitMW float64
	ChargeEfficiency      float64
	DischargeEfficiency   float64
	MinSOCFraction        float64
	MaxSOCFraction        float64
}

// Validate rejects inconsistent parameters. It never clamps.
func (b BatterySpec) Validate() error {
	switch {
	case !finite(b.MaxCapacityMWh) || b.MaxCapacityMWh <= 0:
		return invalid("max_capacity_mwh", "must be > 0")
	case !finite(b.ChargePowerLimitMW) || b.ChargePowerLimitMW < 0:
		return invalid("charge_power_limit_mw", "must be >= 0")
	case !finite(b.DischargePowerLimitMW) || b.DischargePowerLimitMW < 0:
		return invalid("discharge_power_limit_mw", "must be >= 0")
	case !(b.ChargeEfficiency > 0 && b.ChargeEfficiency <= 1):
		return invalid("charge_efficiency", "must be in (0, 1]")
	case !(b.DischargeEfficiency > 0 && b.DischargeEfficiency <= 1):
		return invalid("discharge_efficiency", "must be in (0, 1]")
	case !finite(b.MinSOCFraction) || b.MinSOCFraction < 0:
		return invalid("min_soc_fraction", "must be >= 0")
	case !finite(b.MaxSOCFraction) || b.MinSOCFraction > b.MaxSOCFraction:
		return invalid("max_soc_fraction", "must be >= min_soc_fraction")
	}
	return nil
}

// MinSOCMWh is the lower SOC bound in MWh.
func (b BatterySpec) MinSOCMWh() float64 { return b.MinSOCFraction * b.MaxCapacityMWh }

// MaxSOCMWh is the upper SOC bound in MWh, before any absolute ceiling.
func (b BatterySpec) MaxSOCMWh() float64 { return b.MaxSOCFraction * b.MaxCapacityMWh }

// InitialSOCMWh is the fixed starting state of charge: half of capacity.
func (b BatterySpec) InitialSOCMWh() float64 { return b.MaxCapacityMWh / 2 }

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
