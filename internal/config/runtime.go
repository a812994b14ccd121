package config

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/danmuck/bglink/internal/bgapi"
	"github.com/danmuck/bglink/internal/protocol/session"
	"github.com/danmuck/bglink/internal/transport/serial"
	"github.com/danmuck/bglink/internal/tutorial"
)

// Runtime is a TutorialConfig resolved into the types the link consumes.
type Runtime struct {
	PortName    string
	Serial      serial.Profile
	Session     session.Config
	Conn        session.ConnectionParams
	Script      tutorial.Script
	AdminAddr   string
	CorsOrigins []string
}

func Resolve(cfg TutorialConfig) (Runtime, error) {
	readTimeout, err := parseDuration(cfg.ReadTimeout)
	if err != nil {
		return Runtime{}, fmt.Errorf("read_timeout invalid: %w", err)
	}
	waitTimeout, err := parseDuration(cfg.WaitTimeout)
	if err != nil {
		return Runtime{}, fmt.Errorf("wait_timeout invalid: %w", err)
	}
	target, err := session.ParseAddress(cfg.Target)
	if err != nil {
		return Runtime{}, fmt.Errorf("target invalid: %w", err)
	}
	uuid, err := bgapi.ParseUUID(cfg.CustomUUID)
	if err != nil {
		return Runtime{}, fmt.Errorf("custom_uuid invalid: %w", err)
	}
	writeValue, err := hex.DecodeString(strings.TrimSpace(cfg.WriteValue))
	if err != nil {
		return Runtime{}, fmt.Errorf("write_value invalid: %w", err)
	}

	profile := serial.DefaultProfile()
	profile.Baud = cfg.Baud
	profile.RTS = cfg.RTS
	profile.ReadTimeout = readTimeout

	sess := session.DefaultConfig()
	sess.WaitTimeout = waitTimeout
	if cfg.ValueCapacity > 0 {
		sess.ValueCapacity = cfg.ValueCapacity
	}

	script := tutorial.DefaultScript()
	script.WriteHandle = cfg.WriteHandle
	script.WriteValue = writeValue
	script.CustomUUID = uuid
	script.CCCHandle = cfg.CCCHandle
	script.NotifyHandle = cfg.NotifyHandle
	script.Notifications = cfg.Notifications

	return Runtime{
		PortName: strings.TrimSpace(cfg.Port),
		Serial:   profile,
		Session:  sess,
		Conn: session.ConnectionParams{
			Target:      target,
			AddrType:    cfg.AddrType,
			IntervalMin: cfg.IntervalMin,
			IntervalMax: cfg.IntervalMax,
			Timeout:     cfg.Timeout,
			Latency:     cfg.Latency,
		},
		Script:      script,
		AdminAddr:   strings.TrimSpace(cfg.AdminAddr),
		CorsOrigins: cfg.CorsOrigins,
	}, nil
}
