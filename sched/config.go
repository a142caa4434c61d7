package sched

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults, in simulated seconds. Check and record cadences follow the
// original power-control deployment; the idle threshold matches the check
// interval so a host sleeps after at most two checks.
const (
	DefaultIdleThreshold      = 1800.0
	DefaultWakeCooldown       = 600.0
	DefaultPowerCheckInterval = 1800.0
	DefaultRecordInterval     = 60.0
	DefaultBackfillWindow     = 32
)

// PolicyBundle holds scheduler policy configuration, loadable from a YAML
// file. Nil pointer fields mean "not set in YAML" and keep the defaults.
type PolicyBundle struct {
	Energy     EnergyConfig     `yaml:"energy"`
	Scheduling SchedulingConfig `yaml:"scheduling"`
}

// EnergyConfig holds power-management thresholds.
type EnergyConfig struct {
	IdleThreshold      *float64 `yaml:"idle_threshold_seconds"`
	WakeCooldown       *float64 `yaml:"wake_cooldown_seconds"`
	PowerCheckInterval *float64 `yaml:"power_check_interval_seconds"`
	RecordInterval     *float64 `yaml:"record_interval_seconds"`
}

// SchedulingConfig holds queue-walk parameters.
type SchedulingConfig struct {
	BackfillWindow *int `yaml:"backfill_window"`
}

// LoadPolicyBundle reads and parses a YAML policy configuration file.
func LoadPolicyBundle(path string) (*PolicyBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy config: %w", err)
	}
	var bundle PolicyBundle
	if err := yaml.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("parsing policy config: %w", err)
	}
	return &bundle, nil
}

// Validate rejects negative or zero thresholds. Unset fields are valid.
func (b *PolicyBundle) Validate() error {
	if v := b.Energy.IdleThreshold; v != nil && *v <= 0 {
		return fmt.Errorf("idle_threshold_seconds must be positive, got %f", *v)
	}
	if v := b.Energy.WakeCooldown; v != nil && *v < 0 {
		return fmt.Errorf("wake_cooldown_seconds must be non-negative, got %f", *v)
	}
	if v := b.Energy.PowerCheckInterval; v != nil && *v <= 0 {
		return fmt.Errorf("power_check_interval_seconds must be positive, got %f", *v)
	}
	if v := b.Energy.RecordInterval; v != nil && *v <= 0 {
		return fmt.Errorf("record_interval_seconds must be positive, got %f", *v)
	}
	if v := b.Scheduling.BackfillWindow; v != nil && *v < 0 {
		return fmt.Errorf("backfill_window must be non-negative, got %d", *v)
	}
	return nil
}

// Config is the resolved configuration a Session runs with.
type Config struct {
	IdleThreshold      float64
	WakeCooldown       float64
	PowerCheckInterval float64
	RecordInterval     float64
	BackfillWindow     int

	// EnergyMonitoring enables handling of consumed-energy reports.
	EnergyMonitoring bool
	// ExportPath, when non-empty, receives the cluster-state record CSV.
	ExportPath string
}

// NewConfig returns the default configuration.
func NewConfig() *Config {
	return &Config{
		IdleThreshold:      DefaultIdleThreshold,
		WakeCooldown:       DefaultWakeCooldown,
		PowerCheckInterval: DefaultPowerCheckInterval,
		RecordInterval:     DefaultRecordInterval,
		BackfillWindow:     DefaultBackfillWindow,
	}
}

// Apply overlays set bundle fields onto the configuration.
func (c *Config) Apply(b *PolicyBundle) {
	if b == nil {
		return
	}
	if v := b.Energy.IdleThreshold; v != nil {
		c.IdleThreshold = *v
	}
	if v := b.Energy.WakeCooldown; v != nil {
		c.WakeCooldown = *v
	}
	if v := b.Energy.PowerCheckInterval; v != nil {
		c.PowerCheckInterval = *v
	}
	if v := b.Energy.RecordInterval; v != nil {
		c.RecordInterval = *v
	}
	if v := b.Scheduling.BackfillWindow; v != nil {
		c.BackfillWindow = *v
	}
}
