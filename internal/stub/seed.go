package stub

import (
	_ "embed"
	"fmt"

	"github.com/BurntSushi/toml"
)

// Seed is the TOML catalog description loaded into a Catalog.
//
//	follows = [1]
//
//	[[channels]]
//	id = 1
//	login = "alice"
//
//	[[videos]]
//	id = 100
//	channel_id = 1
//	created = 2024-05-01T10:00:00Z
type Seed struct {
	Follows  []int64   `toml:"follows"`
	Channels []Channel `toml:"channels"`
	Videos   []Video   `toml:"videos"`
}

//go:embed seed.toml
var defaultSeed []byte

// DefaultSeed returns the built-in demo catalog.
func DefaultSeed() (*Seed, error) {
	return ParseSeed(defaultSeed)
}

// LoadSeed reads a seed file.
func LoadSeed(path string) (*Seed, error) {
	var s Seed
	md, err := toml.DecodeFile(path, &s)
	if err != nil {
		return nil, fmt.Errorf("error parsing seed file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("seed file %s: unknown keys %v", path, undecoded)
	}
	return &s, s.validate()
}

// ParseSeed parses seed TOML from memory.
func ParseSeed(data []byte) (*Seed, error) {
	var s Seed
	if err := toml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("error parsing seed: %w", err)
	}
	return &s, s.validate()
}

func (s *Seed) validate() error {
	channels := make(map[int64]bool, len(s.Channels))
	for _, ch := range s.Channels {
		if ch.ID == 0 || ch.Login == "" {
			return fmt.Errorf("seed: channel needs id and login: %+v", ch)
		}
		channels[ch.ID] = true
	}
	for _, v := range s.Videos {
		if v.ID == 0 {
			return fmt.Errorf("seed: video without id in channel %d", v.ChannelID)
		}
		if !channels[v.ChannelID] {
			return fmt.Errorf("seed: video %d references unknown channel %d", v.ID, v.ChannelID)
		}
	}
	for _, id := range s.Follows {
		if !channels[id] {
			return fmt.Errorf("seed: follow references unknown channel %d", id)
		}
	}
	return nil
}
