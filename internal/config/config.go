package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"battery-arbitrage/internal/baseline"
	"battery-arbitrage/internal/model"
	"battery-arbitrage/internal/optimizer"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk run configuration shape (YAML) used by the CLI.
type Config struct {
	// Optional: load battery parameters from a separate YAML (e.g. examples/batteries/*.yaml).
	// If both BatteryFile and Battery are provided, Battery overrides BatteryFile.
	BatteryFile  string             `yaml:"battery_file"`
	Battery      BatteryConfig      `yaml:"battery"`
	Optimization OptimizationConfig `yaml:"optimization"`
	Baseline     baseline.Params    `yaml:"baseline"`
	Data         DataConfig         `yaml:"data"`
}

type BatteryConfig struct {
	Name                  string  `yaml:"name" json:"name,omitempty"`
	MaxCapacityMWh        float64 `yaml:"max_capacity_mwh" json:"max_capacity_mwh"`
	ChargePowerLimitMW    float64 `yaml:"charge_power_limit_mw" json:"charge_power_limit_mw"`
	DischargePowerLimitMW float64 `yaml:"discharge_power_limit_mw" json:"discharge_power_limit_mw"`
	ChargeEfficiency      float64 `yaml:"charge_efficiency" json:"charge_efficiency"`
	DischargeEfficiency   float64 `yaml:"discharge_efficiency" json:"discharge_efficiency"`
	MinSOC                float64 `yaml:"min_soc" json:"min_soc"`
	MaxSOC                float64 `yaml:"max_soc" json:"max_soc"`
}

type OptimizationConfig struct {
	// CyclesPerDay lists one scenario per value.
	CyclesPerDay []int         `yaml:"cycles_per_day"`
	Timeout      time.Duration `yaml:"timeout"`
	Parallelism  int           `yaml:"parallelism"`
	// Timezone names the calendar used for daily cycle limits. Empty keeps
	// each timestamp's own zone.
	Timezone      string  `yaml:"timezone"`
	SOCCeilingMWh float64 `yaml:"soc_ceiling_mwh"`
}

type DataConfig struct {
	PricesFile string `yaml:"prices_file"`
	// Timezone is used for CSV timestamps without an offset.
	Timezone string `yaml:"timezone"`
}

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not validate it.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if c.BatteryFile != "" {
		loaded, err := LoadBatteryFile(resolveRelative(path, c.BatteryFile))
		if err != nil {
			return nil, err
		}
		c.Battery = MergeBattery(loaded, c.Battery)
	}
	if c.Data.PricesFile != "" {
		c.Data.PricesFile = resolveRelative(path, c.Data.PricesFile)
	}
	return &c, nil
}

// resolveRelative prefers interpreting ref relative to the config file
// directory, but falls back to ref as given if that doesn't exist.
func resolveRelative(configPath, ref string) string {
	if filepath.IsAbs(ref) {
		return ref
	}
	cand := filepath.Join(filepath.Dir(configPath), ref)
	if _, err := os.Stat(cand); err == nil {
		return cand
	}
	return ref
}

func (c *Config) applyDefaults() {
	if len(c.Optimization.CyclesPerDay) == 0 {
		c.Optimization.CyclesPerDay = []int{1}
	}
	if c.Optimization.Timeout == 0 {
		c.Optimization.Timeout = optimizer.DefaultTimeout
	}
	if c.Baseline == (baseline.Params{}) {
		c.Baseline = baseline.DefaultParams()
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if err := c.Battery.ToSpec().Validate(); err != nil {
		return fmt.Errorf("battery config invalid: %w", err)
	}
	for _, n := range c.Optimization.CyclesPerDay {
		if n < 1 {
			return fmt.Errorf("optimization.cycles_per_day: %d is not a positive integer", n)
		}
	}
	if c.Optimization.Timeout < 0 {
		return errors.New("optimization.timeout must be >= 0")
	}
	if _, err := c.Optimization.Location(); err != nil {
		return err
	}
	if _, err := loadLocation("data.timezone", c.Data.Timezone); err != nil {
		return err
	}
	if err := c.Baseline.Validate(); err != nil {
		return fmt.Errorf("baseline config invalid: %w", err)
	}
	return nil
}

func (b BatteryConfig) ToSpec() model.BatterySpec {
	return model.BatterySpec{
		MaxCapacityMWh:        b.MaxCapacityMWh,
		ChargePowerLimitMW:    b.ChargePowerLimitMW,
		DischargePowerLimitMW: b.DischargePowerLimitMW,
		ChargeEfficiency:      b.ChargeEfficiency,
		DischargeEfficiency:   b.DischargeEfficiency,
		MinSOCFraction:        b.MinSOC,
		MaxSOCFraction:        b.MaxSOC,
	}
}

// Location resolves Timezone; nil when unset.
func (o OptimizationConfig) Location() (*time.Location, error) {
	return loadLocation("optimization.timezone", o.Timezone)
}

// Options maps the optimisation section onto optimizer options.
func (o OptimizationConfig) Options() (optimizer.Options, error) {
	loc, err := o.Location()
	if err != nil {
		return optimizer.Options{}, err
	}
	return optimizer.Options{
		Timeout:     o.Timeout,
		Parallelism: o.Parallelism,
		Build:       optimizer.BuildOptions{Location: loc, SOCCeilingMWh: o.SOCCeilingMWh},
	}, nil
}

// Location resolves the CSV timezone; nil when unset.
func (d DataConfig) Location() (*time.Location, error) {
	return loadLocation("data.timezone", d.Timezone)
}

func loadLocation(field, name string) (*time.Location, error) {
	if name == "" {
		return nil, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return loc, nil
}

type batteryFileWrapper struct {
	Battery BatteryConfig `yaml:"battery"`
}

// LoadBatteryFile reads a battery preset: a YAML document with a top-level
// "battery" key.
func LoadBatteryFile(path string) (BatteryConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return BatteryConfig{}, err
	}
	var w batteryFileWrapper
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return BatteryConfig{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return w.Battery, nil
}

// MergeBattery overlays non-zero fields from override onto base.
// This is used when loading a battery file and then applying overrides from the request.
func MergeBattery(base, override BatteryConfig) BatteryConfig {
	out := base
	if override.Name != "" {
		out.Name = override.Name
	}
	if override.MaxCapacityMWh != 0 {
		out.MaxCapacityMWh = override.MaxCapacityMWh
	}
	if override.ChargePowerLimitMW != 0 {
		out.ChargePowerLimitMW = override.ChargePowerLimitMW
	}
	if override.DischargePowerLimitMW != 0 {
		out.DischargePowerLimitMW = override.DischargePowerLimitMW
	}
	if override.ChargeEfficiency != 0 {
		out.ChargeEfficiency = override.ChargeEfficiency
	}
	if override.DischargeEfficiency != 0 {
		out.DischargeEfficiency = override.DischargeEfficiency
	}
	// A zero min_soc cannot override a non-zero preset value.
	if override.MinSOC != 0 {
		out.MinSOC = override.MinSOC
	}
	if override.MaxSOC != 0 {
		out.MaxSOC = override.MaxSOC
	}
	return out
}
