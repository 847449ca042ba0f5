package core

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk form of the discover options. Zero values mean "not set"
// and leave the command line defaults untouched.
type Config struct {
	Wordlist           string              `json:"wordlist" yaml:"wordlist"`
	Method             string              `json:"method" yaml:"method"`
	Headers            []string            `json:"headers" yaml:"headers"`
	Body               string              `json:"body" yaml:"body"`
	DataType           string              `json:"data_type" yaml:"data_type"`
	Proxy              string              `json:"proxy" yaml:"proxy"`
	ReplayProxy        string              `json:"replay_proxy" yaml:"replay_proxy"`
	Concurrency        int                 `json:"concurrency" yaml:"concurrency"`
	LearnRequests      int                 `json:"learn_requests" yaml:"learn_requests"`
	Max                int                 `json:"max" yaml:"max"`
	Delay              Duration            `json:"delay" yaml:"delay"`
	Timeout            Duration            `json:"timeout" yaml:"timeout"`
	Rate               float64             `json:"rate" yaml:"rate"`
	OutputFormat       string              `json:"output_format" yaml:"output_format"`
	CustomParameters   map[string][]string `json:"custom_parameters" yaml:"custom_parameters"`
	Strict             bool                `json:"strict" yaml:"strict"`
	Verify             bool                `json:"verify" yaml:"verify"`
	Force              bool                `json:"force" yaml:"force"`
	FollowRedirects    bool                `json:"follow_redirects" yaml:"follow_redirects"`
	DisableCachebuster bool                `json:"disable_cachebuster" yaml:"disable_cachebuster"`
}

// Duration accepts Go duration strings ("250ms", "1m") in both YAML and JSON.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var cfg Config
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		err = yaml.NewDecoder(f).Decode(&cfg)
	} else {
		err = json.NewDecoder(f).Decode(&cfg)
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
