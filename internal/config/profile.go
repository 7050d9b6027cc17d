package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/chatdetect/internal/chat"
)

// Profile - именованный набор констант кластеризации и оценки.
type Profile struct {
	Name              string       `yaml:"name"`
	Base              string       `yaml:"base,omitempty"`
	EdgeFraction      float64      `yaml:"edge_fraction"`
	ShrinkFactor      float64      `yaml:"shrink_factor"`
	ProximityFraction float64      `yaml:"proximity_fraction"`
	Timestamps        string       `yaml:"timestamps"`
	DropMiddle        bool         `yaml:"drop_middle"`
	Weights           chat.Weights `yaml:"weights"`
}

const DefaultProfile = "yandex"

var profiles = map[string]Profile{
	"yandex": {
		Name:              "yandex",
		EdgeFraction:      0.19,
		ShrinkFactor:      1.5,
		ProximityFraction: chat.DefaultProximityFraction,
		Timestamps:        "skip",
		DropMiddle:        true,
		Weights:           chat.TextWeights,
	},
	"tesseract": {
		Name:              "tesseract",
		EdgeFraction:      0.19,
		ShrinkFactor:      1.37,
		ProximityFraction: chat.DefaultProximityFraction,
		Timestamps:        "merge",
		Weights:           chat.TextWeights,
	},
	"bubble": {
		Name:              "bubble",
		EdgeFraction:      0.18,
		ShrinkFactor:      1.7,
		ProximityFraction: chat.DefaultProximityFraction,
		Timestamps:        "merge",
		Weights:           chat.BubbleWeights,
	},
}

// Profiles возвращает имена встроенных профилей.
func Profiles() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupProfile возвращает встроенный профиль; "" - профиль по умолчанию.
func LookupProfile(name string) (Profile, error) {
	if name == "" {
		name = DefaultProfile
	}
	p, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown profile: %s (known: %v)", name, Profiles())
	}
	return p, nil
}

// LoadProfile читает YAML профиль. Незаданные поля берутся из base
// или из профиля по умолчанию.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("reading profile: %w", err)
	}
	return ParseProfile(data)
}

// ParseProfile - LoadProfile для готовых байтов YAML.
func ParseProfile(data []byte) (Profile, error) {
	var head struct {
		Base string `yaml:"base"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return Profile{}, fmt.Errorf("parsing profile: %w", err)
	}

	p, err := LookupProfile(head.Base)
	if err != nil {
		return Profile{}, err
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parsing profile: %w", err)
	}
	if _, err := p.Params(); err != nil {
		return Profile{}, fmt.Errorf("profile %s: %w", p.Name, err)
	}
	return p, nil
}

// Params переводит профиль в параметры кластеризации.
func (p Profile) Params() (chat.Params, error) {
	policy, err := chat.ParseTimestampPolicy(p.Timestamps)
	if err != nil {
		return chat.Params{}, err
	}
	params := chat.Params{
		EdgeFraction:      p.EdgeFraction,
		ShrinkFactor:      p.ShrinkFactor,
		ProximityFraction: p.ProximityFraction,
		Timestamps:        policy,
		DropMiddle:        p.DropMiddle,
	}
	return params, params.Validate()
}

// ResolveProfile выбирает файл профиля, если задан, иначе встроенный по имени.
func (c *Config) ResolveProfile() (Profile, error) {
	if c.ProfilePath != "" {
		return LoadProfile(c.ProfilePath)
	}
	name := c.ProfileName
	if name == "" && c.Scoring == "bubble" {
		name = "bubble"
	}
	if name == "" && c.Backend == "tesseract" {
		name = "tesseract"
	}
	return LookupProfile(name)
}
