package sandwich

import (
	"io/ioutil"
	"time"

	"gopkg.in/yaml.v2"
)

// Configuration is the ambient configuration surface for a Manager,
// loaded from a YAML file. Grounded on the teacher's managerConfiguration
// in root manager.go, trimmed of the Redis/NATS/STAN connection handles
// (those live on the optional sink.Sink implementations instead, per
// SPEC_FULL.md's EVENT-SINK module) and kept to what the gateway
// session engine itself needs.
type Configuration struct {
	Token      string `yaml:"token"`
	Autoshard  bool   `yaml:"autoshard"`
	ShardCount int    `yaml:"shard_count"`

	LargeThreshold int  `yaml:"large_threshold"`
	Compress       bool `yaml:"compress"`

	// IgnoredEvents lists event names a caller wants dropped before
	// dispatch. Manager and Session do not read Configuration, so no
	// event is dropped on account of this list by the library itself.
	IgnoredEvents []string `yaml:"ignored_events"`

	RequestTimeout time.Duration `yaml:"request_timeout"`

	Presence UpdateStatusData `yaml:"-"`
}

// DefaultConfiguration returns a Configuration with the teacher's
// observed defaults (autoshard on, zlib compress on, 20s REST timeout).
func DefaultConfiguration() Configuration {
	return Configuration{
		Autoshard:      true,
		LargeThreshold: 250,
		Compress:       true,
		RequestTimeout: 20 * time.Second,
	}
}

// LoadConfiguration reads and parses a YAML configuration file.
func LoadConfiguration(path string) (Configuration, error) {
	cfg := DefaultConfiguration()

	data, err := ioutil.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}
