package event

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Manifest is the content of an event file.
//
//	bind:
//	  UserLogin: app.user.login
//	listen:
//	  AppInit: [warmup, audit]
//	subscribe: [user]
type Manifest struct {
	Bind      map[string]string   `yaml:"bind,omitempty"      json:"bind,omitempty"`
	Listen    map[string][]string `yaml:"listen,omitempty"    json:"listen,omitempty"`
	Subscribe []string            `yaml:"subscribe,omitempty" json:"subscribe,omitempty"`
}

// DecodeManifest parses an event file. JSON is accepted as well since it is
// valid YAML.
func DecodeManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode event manifest: %w", err)
	}
	return m, nil
}

// IsZero reports whether the manifest declares nothing.
func (m Manifest) IsZero() bool {
	return len(m.Bind) == 0 && len(m.Listen) == 0 && len(m.Subscribe) == 0
}

// Register applies m to d. Missing sections are skipped; calling it again
// with another manifest accumulates.
func Register(d *Dispatcher, m Manifest) error {
	if len(m.Bind) > 0 {
		d.Bind(m.Bind)
	}
	if len(m.Listen) > 0 {
		d.ListenEvents(m.Listen)
	}
	if len(m.Subscribe) > 0 {
		return d.Subscribe(m.Subscribe)
	}
	return nil
}
