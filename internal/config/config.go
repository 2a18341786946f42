package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                string
	IdleRoomTimeout     time.Duration
	ReaperInterval      time.Duration
	MaxPlayers          int
	DefaultMatchSeconds int
	LogLevel            string
	LogFormat           string // json or console
	AllowedOrigins      []string
	DatabaseURL         string // empty disables the match archive
	WordsFile           string // empty uses the built-in dictionary
	ChatRate            float64
	ChatBurst           int
	PasswordRate        float64 // requestHost and deleteRoom attempts per second
	PasswordBurst       int
	OutboxSize          int
}

func Default() Config {
	return Config{
		Port:                "8080",
		IdleRoomTimeout:     time.Hour,
		ReaperInterval:      5 * time.Minute,
		MaxPlayers:          8,
		DefaultMatchSeconds: 60,
		LogLevel:            "info",
		LogFormat:           "json",
		ChatRate:            2,
		ChatBurst:           5,
		PasswordRate:        0.5,
		PasswordBurst:       3,
		OutboxSize:          64,
	}
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from lookup, falling back to Default for unset
// keys.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	c := Default()
	p := parser{lookup: lookup}

	p.str("PORT", &c.Port)
	p.duration("IDLE_ROOM_TIMEOUT", &c.IdleRoomTimeout)
	p.duration("REAPER_INTERVAL", &c.ReaperInterval)
	p.integer("MAX_PLAYERS", &c.MaxPlayers)
	p.integer("DEFAULT_MATCH_SECONDS", &c.DefaultMatchSeconds)
	p.str("LOG_LEVEL", &c.LogLevel)
	p.str("LOG_FORMAT", &c.LogFormat)
	p.list("ALLOWED_ORIGINS", &c.AllowedOrigins)
	p.str("DATABASE_URL", &c.DatabaseURL)
	p.str("WORDS_FILE", &c.WordsFile)
	p.float("CHAT_RATE", &c.ChatRate)
	p.integer("CHAT_BURST", &c.ChatBurst)
	p.float("PASSWORD_RATE", &c.PasswordRate)
	p.integer("PASSWORD_BURST", &c.PasswordBurst)
	p.integer("OUTBOX_SIZE", &c.OutboxSize)

	if p.err != nil {
		return Config{}, p.err
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Addr() string { return ":" + c.Port }

func (c Config) validate() error {
	switch {
	case c.MaxPlayers < 2:
		return fmt.Errorf("MAX_PLAYERS must be at least 2, got %d", c.MaxPlayers)
	case c.DefaultMatchSeconds <= 0:
		return fmt.Errorf("DEFAULT_MATCH_SECONDS must be positive, got %d", c.DefaultMatchSeconds)
	case c.IdleRoomTimeout <= 0 || c.ReaperInterval <= 0:
		return errors.New("IDLE_ROOM_TIMEOUT and REAPER_INTERVAL must be positive")
	case c.LogFormat != "json" && c.LogFormat != "console":
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat)
	}
	return nil
}

// parser keeps the first error so FromLookup reads straight through.
type parser struct {
	lookup func(string) (string, bool)
	err    error
}

func (p *parser) get(key string) (string, bool) {
	v, ok := p.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (p *parser) fail(key, v string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%s=%q: %w", key, v, err)
	}
}

func (p *parser) str(key string, dst *string) {
	if v, ok := p.get(key); ok {
		*dst = v
	}
}

func (p *parser) integer(key string, dst *int) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = n
}

func (p *parser) float(key string, dst *float64) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = f
}

func (p *parser) duration(key string, dst *time.Duration) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = d
}

func (p *parser) list(key string, dst *[]string) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	*dst = out
}
