package rules

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sandevgo/docportal/internal/core"
)

type file struct {
	Rules []core.Rule `yaml:"rules"`
}

// Defaults is the built-in help-desk list used when no rules file exists.
func Defaults() []core.Rule {
	return []core.Rule{
		{Trigger: "password", Reply: "To reset your password, open the account portal, choose \"Forgot password\" and follow the emailed link."},
		{Trigger: "wifi", Reply: "Connect to the \"Guest\" network and accept the terms page. If it still fails, forget the network and reconnect."},
		{Trigger: "printer", Reply: "Make sure the printer is on the same network, then remove and re-add it from system settings."},
		{Trigger: "contact support", Reply: "You can reach the help desk at the front office during working hours."},
	}
}

// Load reads an ordered rule list from a YAML file. A missing file yields Defaults.
func Load(path string) ([]core.Rule, error) {
	if path == "" {
		return Defaults(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Defaults(), nil
		}
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	return Parse(data)
}

func Parse(data []byte) ([]core.Rule, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parse rules: %v", core.ErrConfiguration, err)
	}

	for i, r := range f.Rules {
		if strings.TrimSpace(r.Trigger) == "" {
			return nil, fmt.Errorf("%w: rule %d has an empty trigger", core.ErrConfiguration, i+1)
		}
	}

	return f.Rules, nil
}

// Marshal renders rules in the same YAML layout Load accepts.
func Marshal(rules []core.Rule) ([]byte, error) {
	return yaml.Marshal(file{Rules: rules})
}
