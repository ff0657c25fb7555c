// /internal/infrastructure/config/strategy_file.go
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// strategyFile - YAML-оверлей; nil-поля не меняют значения из окружения
type strategyFile struct {
	Strategy struct {
		ExtremeFundingThreshold *float64 `yaml:"extreme_funding_threshold"`
		MinLiquidationsUSD      *float64 `yaml:"min_liquidations_usd"`
		LiquidationBiasRatio    *float64 `yaml:"liquidation_bias_ratio"`
		MinOpenInterestUSD      *float64 `yaml:"min_open_interest_usd"`
		TPRatio                 *float64 `yaml:"tp_ratio"`
		SLRatio                 *float64 `yaml:"sl_ratio"`
		EntryDeviationPercent   *float64 `yaml:"entry_deviation_percent"`
	} `yaml:"strategy"`

	Selection struct {
		RunInterval        *string  `yaml:"run_interval"`
		MaxSignalsPerCycle *int     `yaml:"max_signals_per_cycle"`
		MinScoreToSelect   *int     `yaml:"min_score_to_select"`
		CandidateMinScore  *int     `yaml:"candidate_min_score"`
		BalanceDirections  *bool    `yaml:"balance_directions"`
		MinVolumeUSD       *float64 `yaml:"min_volume_usd"`
		Symbols            []string `yaml:"symbols"`
		ExcludeSymbols     []string `yaml:"exclude_symbols"`
		MinConfidence      *float64 `yaml:"min_confidence"`
		Direction          *string  `yaml:"direction"`
		MinTechnicalScore  *float64 `yaml:"min_technical_score"`
	} `yaml:"selection"`

	Dedup struct {
		Window     *string  `yaml:"window"`
		Similarity *float64 `yaml:"similarity"`
	} `yaml:"dedup"`

	Lifecycle struct {
		SignalTTL       *string `yaml:"signal_ttl"`
		MonitorInterval *string `yaml:"monitor_interval"`
	} `yaml:"lifecycle"`
}

// ApplyStrategyFile накладывает пороги стратегии из YAML поверх окружения
func (c *Config) ApplyStrategyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("strategy file %s: %w", path, err)
	}
	if err := c.applyStrategyYAML(data); err != nil {
		return fmt.Errorf("strategy file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyStrategyYAML(data []byte) error {
	var f strategyFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return err
	}

	setFloat(&c.Strategy.ExtremeFundingThreshold, f.Strategy.ExtremeFundingThreshold)
	setFloat(&c.Strategy.MinLiquidationsUSD, f.Strategy.MinLiquidationsUSD)
	setFloat(&c.Strategy.LiquidationBiasRatio, f.Strategy.LiquidationBiasRatio)
	setFloat(&c.Strategy.MinOpenInterestUSD, f.Strategy.MinOpenInterestUSD)
	setFloat(&c.Strategy.TPRatio, f.Strategy.TPRatio)
	setFloat(&c.Strategy.SLRatio, f.Strategy.SLRatio)
	setFloat(&c.Strategy.EntryDeviationPercent, f.Strategy.EntryDeviationPercent)

	if f.Selection.MaxSignalsPerCycle != nil {
		c.Selection.MaxSignalsPerCycle = *f.Selection.MaxSignalsPerCycle
	}
	if f.Selection.MinScoreToSelect != nil {
		c.Selection.MinScoreToSelect = *f.Selection.MinScoreToSelect
	}
	if f.Selection.CandidateMinScore != nil {
		c.Selection.CandidateMinScore = *f.Selection.CandidateMinScore
	}
	if f.Selection.BalanceDirections != nil {
		c.Selection.BalanceDirections = *f.Selection.BalanceDirections
	}
	setFloat(&c.Selection.MinVolumeUSD, f.Selection.MinVolumeUSD)
	if f.Selection.Symbols != nil {
		c.Selection.Symbols = upperAll(f.Selection.Symbols)
	}
	if f.Selection.ExcludeSymbols != nil {
		c.Selection.ExcludeSymbols = upperAll(f.Selection.ExcludeSymbols)
	}
	setFloat(&c.Selection.MinConfidence, f.Selection.MinConfidence)
	if f.Selection.Direction != nil {
		c.Selection.Direction = strings.ToLower(strings.TrimSpace(*f.Selection.Direction))
	}
	if f.Selection.MinTechnicalScore != nil {
		v := *f.Selection.MinTechnicalScore
		c.Selection.MinTechnicalScore = &v
	}
	setFloat(&c.Dedup.Similarity, f.Dedup.Similarity)

	durations := []struct {
		name string
		src  *string
		dst  *time.Duration
	}{
		{"selection.run_interval", f.Selection.RunInterval, &c.Selection.RunInterval},
		{"dedup.window", f.Dedup.Window, &c.Dedup.Window},
		{"lifecycle.signal_ttl", f.Lifecycle.SignalTTL, &c.Lifecycle.SignalTTL},
		{"lifecycle.monitor_interval", f.Lifecycle.MonitorInterval, &c.Lifecycle.MonitorInterval},
	}
	for _, d := range durations {
		if d.src == nil {
			continue
		}
		v, err := time.ParseDuration(*d.src)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = v
	}

	return nil
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func upperAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
