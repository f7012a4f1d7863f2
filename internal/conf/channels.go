package conf

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ChannelEntry describes one channel to scrape
type ChannelEntry struct {
	Ref  string `yaml:"ref"`
	Name string `yaml:"name"`
}

// ChannelsConfig is the channels YAML file layout
type ChannelsConfig struct {
	Channels []ChannelEntry `yaml:"channels"`
}

// LoadChannels loads the channel list from a YAML file
func LoadChannels(path string) ([]ChannelEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read channels config: %w", err)
	}

	var cfg ChannelsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse channels config: %w", err)
	}

	var channels []ChannelEntry
	for _, ch := range cfg.Channels {
		if ch.Ref == "" {
			continue
		}
		if ch.Name == "" {
			ch.Name = ch.Ref
		}
		channels = append(channels, ch)
	}
	if len(channels) == 0 {
		return nil, fmt.Errorf("channels config %s lists no channels", path)
	}
	return channels, nil
}
