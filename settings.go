package jbst

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Settings are the app settings inlined by <%$ AppSettings: key %>.
type Settings map[string]string

// LoadSettings reads YAML settings. Nested mappings are flattened to dotted
// keys, so "site: {title: x}" defines "site.title".
func LoadSettings(r io.Reader) (Settings, error) {
	var doc map[string]any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Settings{}, nil
		}
		return nil, errors.Wrap(err, "decode settings")
	}
	s := Settings{}
	s.flatten("", doc)
	return s, nil
}

// LoadSettingsFile reads YAML settings from path.
func LoadSettingsFile(path string) (Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open settings %s", path)
	}
	defer f.Close()
	s, err := LoadSettings(f)
	return s, errors.Wrapf(err, "[%s]", path)
}

func (s Settings) flatten(prefix string, m map[string]any) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch v := v.(type) {
		case map[string]any:
			s.flatten(key, v)
		case nil:
			s[key] = ""
		default:
			s[key] = fmt.Sprint(v)
		}
	}
}
