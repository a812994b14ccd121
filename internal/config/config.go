package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// TutorialConfig is the on-disk configuration of bgtutorial.
type TutorialConfig struct {
	Port        string `toml:"port"`
	Baud        int    `toml:"baud"`
	RTS         bool   `toml:"rts"`
	ReadTimeout string `toml:"read_timeout"`
	WaitTimeout string `toml:"wait_timeout"`

	Target      string `toml:"target"`
	AddrType    uint8  `toml:"addr_type"`
	IntervalMin uint16 `toml:"interval_min"`
	IntervalMax uint16 `toml:"interval_max"`
	Timeout     uint16 `toml:"supervision_timeout"`
	Latency     uint16 `toml:"latency"`

	ValueCapacity int    `toml:"value_capacity"`
	WriteHandle   uint16 `toml:"write_handle"`
	WriteValue    string `toml:"write_value"`
	CustomUUID    string `toml:"custom_uuid"`
	CCCHandle     uint16 `toml:"ccc_handle"`
	NotifyHandle  uint16 `toml:"notify_handle"`
	Notifications int    `toml:"notifications"`

	AdminAddr   string   `toml:"admin_addr"`
	CorsOrigins []string `toml:"cors_origins"`
}

// DefaultTutorialConfig targets the BGDemo peripheral over /dev/ttyACM0.
func DefaultTutorialConfig() TutorialConfig {
	return TutorialConfig{
		Port:          "/dev/ttyACM0",
		Baud:          57600,
		RTS:           true,
		ReadTimeout:   "100ms",
		WaitTimeout:   "10s",
		Target:        "00:07:80:aa:bb:cc",
		AddrType:      0,
		IntervalMin:   60,
		IntervalMax:   76,
		Timeout:       1000,
		Latency:       0,
		ValueCapacity: 256,
		WriteHandle:   20,
		WriteValue:    "123456",
		CustomUUID:    "f1b41cde-dbf5-4acf-8679-ecb8b4dca6fe",
		CCCHandle:     17,
		NotifyHandle:  16,
		Notifications: 10,
		CorsOrigins:   []string{"http://localhost:3000"},
	}
}

// LoadTutorialConfig reads path over the defaults and validates the result.
func LoadTutorialConfig(path string) (TutorialConfig, error) {
	cfg := DefaultTutorialConfig()
	if err := loadToml(path, &cfg); err != nil {
		return TutorialConfig{}, err
	}
	if err := ValidateTutorialConfig(cfg); err != nil {
		return TutorialConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateTutorialConfig(cfg TutorialConfig) error {
	if strings.TrimSpace(cfg.Port) == "" {
		return fmt.Errorf("tutorial config missing port")
	}
	if cfg.Baud <= 0 {
		return fmt.Errorf("tutorial config baud must be positive")
	}
	for name, raw := range map[string]string{"read_timeout": cfg.ReadTimeout, "wait_timeout": cfg.WaitTimeout} {
		if _, err := parseDuration(raw); err != nil {
			return fmt.Errorf("%s invalid: %w", name, err)
		}
	}
	if cfg.IntervalMin == 0 || cfg.IntervalMax < cfg.IntervalMin {
		return fmt.Errorf("connection interval invalid: min=%d max=%d", cfg.IntervalMin, cfg.IntervalMax)
	}
	if cfg.Timeout == 0 {
		return fmt.Errorf("supervision_timeout is required")
	}
	if cfg.ValueCapacity < 0 {
		return fmt.Errorf("value_capacity must not be negative")
	}
	if cfg.Notifications < 0 {
		return fmt.Errorf("notifications must not be negative")
	}
	if _, err := hex.DecodeString(strings.TrimSpace(cfg.WriteValue)); err != nil {
		return fmt.Errorf("write_value invalid: %w", err)
	}
	if _, err := Resolve(cfg); err != nil {
		return err
	}
	return nil
}

func parseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", raw)
	}
	return d, nil
}
