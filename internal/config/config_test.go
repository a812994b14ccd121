package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestTemplateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := WriteTemplate(path, "tutorial", false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	if err := WriteTemplate(path, "tutorial", false); err == nil {
		t.Fatalf("expected error overwriting without force")
	}
	cfg, err := LoadTutorialConfig(path)
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	def := DefaultTutorialConfig()
	if cfg.Port != def.Port || cfg.Target != def.Target || cfg.Notifications != def.Notifications {
		t.Fatalf("template does not match defaults: %+v", cfg)
	}
}

func TestUnknownTemplateKind(t *testing.T) {
	if _, err := Template("gateway"); err == nil {
		t.Fatalf("expected unknown kind error")
	}
}

func TestLoadTutorialConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `port = "/dev/ttyUSB1"
wait_timeout = "250ms"
target = "00:07:80:11:22:33"
notifications = 3
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadTutorialConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	rt, err := Resolve(cfg)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if rt.PortName != "/dev/ttyUSB1" || rt.Session.WaitTimeout != 250*time.Millisecond {
		t.Fatalf("unexpected runtime: %+v", rt)
	}
	if rt.Conn.Target.String() != "00:07:80:11:22:33" || rt.Conn.Target[0] != 0x33 {
		t.Fatalf("target: %s %x", rt.Conn.Target, rt.Conn.Target[:])
	}
	if rt.Script.Notifications != 3 || rt.Script.WriteHandle != 20 {
		t.Fatalf("script: %+v", rt.Script)
	}
	if rt.Serial.Baud != 57600 || !rt.Serial.RTS {
		t.Fatalf("serial: %+v", rt.Serial)
	}
}

func TestValidateTutorialConfig(t *testing.T) {
	cases := map[string]func(*TutorialConfig){
		"port":     func(c *TutorialConfig) { c.Port = " " },
		"baud":     func(c *TutorialConfig) { c.Baud = 0 },
		"timeout":  func(c *TutorialConfig) { c.WaitTimeout = "soon" },
		"interval": func(c *TutorialConfig) { c.IntervalMax = 10 },
		"target":   func(c *TutorialConfig) { c.Target = "00:07" },
		"uuid":     func(c *TutorialConfig) { c.CustomUUID = "zz" },
		"value":    func(c *TutorialConfig) { c.WriteValue = "xyz" },
	}
	for name, mutate := range cases {
		cfg := DefaultTutorialConfig()
		mutate(&cfg)
		if err := ValidateTutorialConfig(cfg); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
	if err := ValidateTutorialConfig(DefaultTutorialConfig()); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}
