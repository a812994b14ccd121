package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/bglink/internal/config"
)

type fileConfig struct {
	Port          string   `toml:"port"`
	Baud          int      `toml:"baud"`
	RTS           bool     `toml:"rts"`
	ReadTimeout   string   `toml:"read_timeout"`
	WaitTimeout   string   `toml:"wait_timeout"`
	Target        string   `toml:"target"`
	AddrType      uint8    `toml:"addr_type"`
	IntervalMin   uint16   `toml:"interval_min"`
	IntervalMax   uint16   `toml:"interval_max"`
	Timeout       uint16   `toml:"supervision_timeout"`
	Latency       uint16   `toml:"latency"`
	ValueCapacity int      `toml:"value_capacity"`
	WriteHandle   uint16   `toml:"write_handle"`
	WriteValue    string   `toml:"write_value"`
	CustomUUID    string   `toml:"custom_uuid"`
	CCCHandle     uint16   `toml:"ccc_handle"`
	NotifyHandle  uint16   `toml:"notify_handle"`
	Notifications int      `toml:"notifications"`
	AdminAddr     string   `toml:"admin_addr"`
	CorsOrigins   []string `toml:"cors_origins"`
}

func loadRuntimeConfig(path string) (config.Runtime, error) {
	cfg := config.DefaultTutorialConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config.Runtime{}, fmt.Errorf("load bgtutorial config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return config.Runtime{}, fmt.Errorf("unknown config keys: %v", undecoded)
	}

	if meta.IsDefined("port") {
		cfg.Port = strings.TrimSpace(raw.Port)
	}
	if meta.IsDefined("baud") {
		cfg.Baud = raw.Baud
	}
	if meta.IsDefined("rts") {
		cfg.RTS = raw.RTS
	}
	if meta.IsDefined("read_timeout") {
		cfg.ReadTimeout = raw.ReadTimeout
	}
	if meta.IsDefined("wait_timeout") {
		cfg.WaitTimeout = raw.WaitTimeout
	}
	if meta.IsDefined("target") {
		cfg.Target = strings.TrimSpace(raw.Target)
	}
	if meta.IsDefined("addr_type") {
		cfg.AddrType = raw.AddrType
	}
	if meta.IsDefined("interval_min") {
		cfg.IntervalMin = raw.IntervalMin
	}
	if meta.IsDefined("interval_max") {
		cfg.IntervalMax = raw.IntervalMax
	}
	if meta.IsDefined("supervision_timeout") {
		cfg.Timeout = raw.Timeout
	}
	if meta.IsDefined("latency") {
		cfg.Latency = raw.Latency
	}
	if meta.IsDefined("value_capacity") {
		cfg.ValueCapacity = raw.ValueCapacity
	}
	if meta.IsDefined("write_handle") {
		cfg.WriteHandle = raw.WriteHandle
	}
	if meta.IsDefined("write_value") {
		cfg.WriteValue = raw.WriteValue
	}
	if meta.IsDefined("custom_uuid") {
		cfg.CustomUUID = raw.CustomUUID
	}
	if meta.IsDefined("ccc_handle") {
		cfg.CCCHandle = raw.CCCHandle
	}
	if meta.IsDefined("notify_handle") {
		cfg.NotifyHandle = raw.NotifyHandle
	}
	if meta.IsDefined("notifications") {
		cfg.Notifications = raw.Notifications
	}
	if meta.IsDefined("admin_addr") {
		cfg.AdminAddr = strings.TrimSpace(raw.AdminAddr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = raw.CorsOrigins
	}

	if err := config.ValidateTutorialConfig(cfg); err != nil {
		return config.Runtime{}, err
	}
	return config.Resolve(cfg)
}
