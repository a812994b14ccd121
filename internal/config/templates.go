package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const templateHeader = `# bgtutorial configuration
# connection interval, supervision timeout and latency use radio units
# (1.25ms, 10ms and connection events).
`

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "tutorial":
		data, err := toml.Marshal(DefaultTutorialConfig())
		if err != nil {
			return "", fmt.Errorf("render tutorial template: %w", err)
		}
		return templateHeader + string(data), nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}
