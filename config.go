package pubsubrx

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPublishTimeout is the default duration a publisher will wait
// for a message to be accepted if no specific TopicConfig is provided
// and AllowDropping is false.
const DefaultPublishTimeout = 500 * time.Millisecond

// TopicConfig allows configuring delivery behavior for a channel subscriber
// or a hub topic.
type TopicConfig struct {
	// AllowDropping drops a message instead of waiting when the
	// subscriber's buffer is full.
	AllowDropping bool `yaml:"allow_dropping"`
	// PublishTimeout bounds the wait for buffer space. Zero waits forever.
	PublishTimeout time.Duration `yaml:"publish_timeout"`
}

// HubConfig is the file form of a hub's settings.
//
//	debug: true
//	topics:
//	  sports:
//	    allow_dropping: true
//	  news:
//	    publish_timeout: 250ms
type HubConfig struct {
	Debug  bool                   `yaml:"debug"`
	Topics map[string]TopicConfig `yaml:"topics"`
}

// ParseHubConfig decodes a YAML hub configuration.
func ParseHubConfig(data []byte) (HubConfig, error) {
	return LoadHubConfig(bytes.NewReader(data))
}

// LoadHubConfig decodes a YAML hub configuration from r.
// An empty document yields an empty configuration.
func LoadHubConfig(r io.Reader) (HubConfig, error) {
	var cfg HubConfig
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return HubConfig{}, fmt.Errorf("pubsubrx: decode hub config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return HubConfig{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid topic entry.
func (c HubConfig) Validate() error {
	for name, tc := range c.Topics {
		if name == "" {
			return ErrEmptyTopic
		}
		if tc.PublishTimeout < 0 {
			return fmt.Errorf("pubsubrx: topic '%s': negative publish_timeout %s", name, tc.PublishTimeout)
		}
	}
	return nil
}
