package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/hamed0406/watchcore/internal/domain"
)

// targetEntry mirrors one item of the targets file.
type targetEntry struct {
	ID            string `mapstructure:"id"`
	Name          string `mapstructure:"name"`
	Kind          string `mapstructure:"kind"`
	Address       string `mapstructure:"address"`
	TimeoutMS     int    `mapstructure:"timeout_ms"`
	IntervalMS    int    `mapstructure:"interval_ms"`
	RetryCount    int    `mapstructure:"retry_count"`
	DegradedAfter int    `mapstructure:"degraded_after_ms"`
	Disabled      bool   `mapstructure:"disabled"`
}

type targetsFile struct {
	Targets []targetEntry `mapstructure:"targets"`
}

// LoadTargets reads the initial target list from a YAML/TOML/JSON file.
// Zero-valued fields are left for the orchestrator's defaults to fill;
// validation happens at AddTarget, not here.
func LoadTargets(path string) ([]*domain.Target, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read targets file: %w", err)
	}
	var f targetsFile
	if err := v.Unmarshal(&f); err != nil {
		return nil, fmt.Errorf("parse targets file: %w", err)
	}

	out := make([]*domain.Target, 0, len(f.Targets))
	for _, e := range f.Targets {
		out = append(out, &domain.Target{
			ID:            domain.TargetID(e.ID),
			Name:          e.Name,
			Kind:          domain.ProbeKind(e.Kind),
			Address:       e.Address,
			Timeout:       time.Duration(e.TimeoutMS) * time.Millisecond,
			Interval:      time.Duration(e.IntervalMS) * time.Millisecond,
			RetryCount:    e.RetryCount,
			DegradedAfter: time.Duration(e.DegradedAfter) * time.Millisecond,
			Enabled:       !e.Disabled,
		})
	}
	return out, nil
}
