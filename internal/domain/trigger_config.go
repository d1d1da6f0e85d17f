package domain

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

type TriggerType string

const (
	TriggerSchedule  TriggerType = "schedule"
	TriggerThreshold TriggerType = "threshold"
	TriggerManual    TriggerType = "manual"
	TriggerImmediate TriggerType = "immediate"
)

func (t TriggerType) Valid() bool {
	switch t {
	case TriggerSchedule, TriggerThreshold, TriggerManual, TriggerImmediate:
		return true
	}
	return false
}

// TriggerConfig is the closed set of per-trigger payloads. Only the types in
// this file implement it.
type TriggerConfig interface {
	TriggerType() TriggerType
	Validate() error
	isTriggerConfig()
}

// ScheduleConfig fires on a standard 5-field cron expression.
type ScheduleConfig struct {
	Cron     string `json:"cron"`
	Timezone string `json:"timezone,omitempty"`
}

// ThresholdConfig fires once the wallet balance reaches Amount in Currency.
type ThresholdConfig struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// ImmediateConfig fires on every transfer whose type tag is listed.
type ImmediateConfig struct {
	TransferTypes []string `json:"transfer_types"`
}

// ManualConfig carries nothing; manual rules only run on explicit request.
type ManualConfig struct{}

func (ScheduleConfig) TriggerType() TriggerType  { return TriggerSchedule }
func (ThresholdConfig) TriggerType() TriggerType { return TriggerThreshold }
func (ImmediateConfig) TriggerType() TriggerType { return TriggerImmediate }
func (ManualConfig) TriggerType() TriggerType    { return TriggerManual }

func (ScheduleConfig) isTriggerConfig()  {}
func (ThresholdConfig) isTriggerConfig() {}
func (ImmediateConfig) isTriggerConfig() {}
func (ManualConfig) isTriggerConfig()    {}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseCron parses a 5-field cron expression, rejecting descriptors like @daily.
// The zone belongs in ScheduleConfig.Timezone, so TZ= prefixes are refused.
func ParseCron(expr string) (cron.Schedule, error) {
	expr = strings.TrimSpace(expr)
	if strings.HasPrefix(expr, "TZ=") || strings.HasPrefix(expr, "CRON_TZ=") {
		return nil, fmt.Errorf("timezone prefix not allowed, use the timezone field")
	}
	return cronParser.Parse(expr)
}

func (c ScheduleConfig) Validate() error {
	if strings.TrimSpace(c.Cron) == "" {
		return Validationf("schedule trigger requires a cron expression")
	}
	if _, err := ParseCron(c.Cron); err != nil {
		return Validationf("invalid cron expression %q, want 5 fields (minute hour day-of-month month day-of-week): %v", c.Cron, err)
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return Validationf("unknown schedule timezone %q", c.Timezone)
		}
	}
	return nil
}

func (c ThresholdConfig) Validate() error {
	if c.Amount <= 0 {
		return Validationf("threshold amount must be positive")
	}
	if !ValidCurrency(c.Currency) {
		return Validationf("threshold currency %q is invalid", c.Currency)
	}
	return nil
}

func (c ImmediateConfig) Validate() error {
	if len(c.TransferTypes) == 0 {
		return Validationf("immediate trigger requires at least one transfer type")
	}
	for _, t := range c.TransferTypes {
		if strings.TrimSpace(t) == "" {
			return Validationf("immediate trigger transfer types must not be blank")
		}
	}
	return nil
}

func (ManualConfig) Validate() error { return nil }

// ValidateTrigger checks that cfg is present and matches the declared type.
func ValidateTrigger(t TriggerType, cfg TriggerConfig) error {
	if !t.Valid() {
		return Validationf("unknown trigger type %q", t)
	}
	if cfg == nil {
		if t == TriggerManual {
			return nil
		}
		return Validationf("%s trigger requires a config", t)
	}
	if cfg.TriggerType() != t {
		return Validationf("trigger config of type %s does not match trigger type %s", cfg.TriggerType(), t)
	}
	return cfg.Validate()
}

// DecodeTriggerConfig turns the stored JSON payload into the typed config.
func DecodeTriggerConfig(t TriggerType, raw []byte) (TriggerConfig, error) {
	if len(raw) == 0 || string(raw) == "null" {
		raw = []byte("{}")
	}
	var (
		cfg TriggerConfig
		err error
	)
	switch t {
	case TriggerSchedule:
		var c ScheduleConfig
		err = json.Unmarshal(raw, &c)
		cfg = c
	case TriggerThreshold:
		var c ThresholdConfig
		err = json.Unmarshal(raw, &c)
		cfg = c
	case TriggerImmediate:
		var c ImmediateConfig
		err = json.Unmarshal(raw, &c)
		cfg = c
	case TriggerManual:
		cfg = ManualConfig{}
	default:
		return nil, Validationf("unknown trigger type %q", t)
	}
	if err != nil {
		return nil, Validationf("malformed %s trigger config: %v", t, err)
	}
	return cfg, nil
}

// EncodeTriggerConfig is the inverse of DecodeTriggerConfig.
func EncodeTriggerConfig(cfg TriggerConfig) ([]byte, error) {
	if cfg == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode trigger config: %w", err)
	}
	return b, nil
}

var currencyPattern = regexp.MustCompile(`^[A-Z]{3,4}$`)

// ValidCurrency accepts ISO-4217 codes and 4-letter stablecoin tickers.
func ValidCurrency(code string) bool {
	return currencyPattern.MatchString(code)
}
