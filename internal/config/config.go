package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"

	"subreminder/internal/alias"
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken   string
	StoreDriver     string
	StorePath       string
	Location        *time.Location
	PollInterval    time.Duration
	DeliveryTimeout time.Duration
	SendRatePerSec  float64
	DefaultFC       string
	DefaultBoat     string
	RoleMention     string
	LogLevel        string
	LogFormat       string
	Routing         Routing
}

// Routing is the alias table and the per-group delivery chats.
type Routing struct {
	Groups   map[string][]string `yaml:"groups"`
	Slots    []string            `yaml:"slots"`
	Channels map[string]int64    `yaml:"channels"`
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom is Load with an injectable lookup.
func LoadFrom(getenv func(string) string) (Config, error) {
	env := func(key string) string { return strings.TrimSpace(getenv(key)) }

	cfg := Config{
		TelegramToken: env("TELEGRAM_TOKEN"),
		StoreDriver:   strings.ToLower(env("STORE_DRIVER")),
		StorePath:     env("STORE_PATH"),
		DefaultFC:     env("DEFAULT_FC"),
		DefaultBoat:   env("DEFAULT_BOAT"),
		RoleMention:   env("ROLE_MENTION"),
		LogLevel:      env("LOG_LEVEL"),
		LogFormat:     env("LOG_FORMAT"),
	}

	if cfg.StoreDriver == "" {
		cfg.StoreDriver = "file"
	}
	if cfg.StorePath == "" {
		if cfg.StoreDriver == "sqlite" || cfg.StoreDriver == "sqlite3" {
			cfg.StorePath = "submarine_tasks.db"
		} else {
			cfg.StorePath = "submarine_tasks.json"
		}
	}

	loc, err := parseOffset(env("TZ_OFFSET_HOURS"))
	if err != nil {
		return cfg, err
	}
	cfg.Location = loc

	if cfg.PollInterval, err = parseSeconds("POLL_INTERVAL_SECONDS", env("POLL_INTERVAL_SECONDS"), 5*time.Second); err != nil {
		return cfg, err
	}
	if cfg.DeliveryTimeout, err = parseSeconds("DELIVERY_TIMEOUT_SECONDS", env("DELIVERY_TIMEOUT_SECONDS"), 10*time.Second); err != nil {
		return cfg, err
	}

	cfg.SendRatePerSec = 5
	if raw := env("SEND_RATE_PER_SEC"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			return cfg, fmt.Errorf("SEND_RATE_PER_SEC: invalid value %q", raw)
		}
		cfg.SendRatePerSec = v
	}

	cfg.Routing = Routing{Groups: alias.DefaultGroups(), Slots: alias.DefaultSlots()}
	if path := env("ROUTING_FILE"); path != "" {
		r, err := LoadRouting(path)
		if err != nil {
			return cfg, err
		}
		cfg.Routing = r
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	return cfg, nil
}

// LoadRouting reads the YAML routing file. Missing sections keep the defaults.
func LoadRouting(path string) (Routing, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Routing{}, fmt.Errorf("read routing file: %w", err)
	}
	var r Routing
	if err := yaml.Unmarshal(b, &r); err != nil {
		return Routing{}, fmt.Errorf("parse routing file %s: %w", path, err)
	}
	if len(r.Groups) == 0 {
		r.Groups = alias.DefaultGroups()
	}
	if len(r.Slots) == 0 {
		r.Slots = alias.DefaultSlots()
	}
	return r, nil
}

// Resolver builds the alias resolver for the configured routing table.
func (r Routing) Resolver() *alias.Resolver {
	return alias.New(r.Groups, r.Slots)
}

// ChannelFor returns the delivery chat configured for a canonical group.
func (r Routing) ChannelFor(group string) (int64, bool) {
	id, ok := r.Channels[group]
	return id, ok && id != 0
}

// parseOffset turns an hour offset such as "9" or "-3.5" into a fixed zone.
// Empty means UTC+9.
func parseOffset(raw string) (*time.Location, error) {
	hours := 9.0
	if raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.Abs(v) > 14 {
			return nil, fmt.Errorf("TZ_OFFSET_HOURS: invalid offset %q", raw)
		}
		hours = v
	}
	secs := int(math.Round(hours * 3600))
	return time.FixedZone(zoneName(secs), secs), nil
}

func zoneName(secs int) string {
	switch secs {
	case 0:
		return "UTC"
	case 9 * 3600:
		return "JST"
	}
	sign := '+'
	if secs < 0 {
		sign = '-'
		secs = -secs
	}
	return fmt.Sprintf("UTC%c%02d:%02d", sign, secs/3600, secs%3600/60)
}

func parseSeconds(key, raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil || secs <= 0 {
		return 0, fmt.Errorf("%s: invalid value %q", key, raw)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
