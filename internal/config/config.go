// Package config loads and validates runtime settings.
//
// Sources, lowest precedence first: built-in defaults, a YAML file, a .env
// file, the process environment. The merged raw values are checked against an
// embedded CUE schema, then converted once into the typed Config.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Cooldown backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config is the validated, typed configuration.
type Config struct {
	DiscordToken     string
	DatabasePath     string
	RetryDelay       time.Duration
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	SnapshotCooldown time.Duration
	CooldownBackend  string
	RedisURL         string
	AuditChannelID   string // empty disables audit messages
	InviteMaxAge     time.Duration
	InviteMaxUses    int
}

// raw mirrors the YAML layout. Durations stay strings until validated.
type raw struct {
	Discord struct {
		Token string `yaml:"token" json:"token"`
	} `yaml:"discord" json:"discord"`
	Database struct {
		Path string `yaml:"path" json:"path"`
	} `yaml:"database" json:"database"`
	Engine struct {
		RetryDelay string `yaml:"retry_delay" json:"retry_delay"`
	} `yaml:"engine" json:"engine"`
	HTTP struct {
		Addr string `yaml:"addr" json:"addr"`
	} `yaml:"http" json:"http"`
	Log struct {
		Level  string `yaml:"level" json:"level"`
		Format string `yaml:"format" json:"format"`
	} `yaml:"log" json:"log"`
	Cooldown struct {
		Snapshot string `yaml:"snapshot" json:"snapshot"`
		Backend  string `yaml:"backend" json:"backend"`
	} `yaml:"cooldown" json:"cooldown"`
	Redis struct {
		URL string `yaml:"url" json:"url"`
	} `yaml:"redis" json:"redis"`
	Audit struct {
		ChannelID string `yaml:"channel_id" json:"channel_id"`
	} `yaml:"audit" json:"audit"`
	Invite struct {
		MaxAge  string `yaml:"max_age" json:"max_age"`
		MaxUses int    `yaml:"max_uses" json:"max_uses"`
	} `yaml:"invite" json:"invite"`
}

func defaults() raw {
	var r raw
	r.Database.Path = "invitetrack.db"
	r.Engine.RetryDelay = "1s"
	r.HTTP.Addr = ":8080"
	r.Log.Level = "info"
	r.Log.Format = "json"
	r.Cooldown.Snapshot = "30s"
	r.Cooldown.Backend = BackendMemory
	r.Invite.MaxAge = "24h"
	return r
}

// Loader merges the configuration sources.
type Loader struct {
	// Path is an optional YAML file. Missing is an error when set.
	Path string

	// EnvFile is an optional dotenv file. Missing is ignored.
	EnvFile string

	// Lookup reads the process environment. Defaults to os.LookupEnv.
	Lookup func(key string) (string, bool)
}

// Load reads every source and returns the validated Config.
func (l Loader) Load() (Config, error) {
	r := defaults()

	if l.Path != "" {
		data, err := os.ReadFile(l.Path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", l.Path, err)
		}
		if err := yaml.Unmarshal(data, &r); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", l.Path, err)
		}
	}

	dotenv := map[string]string{}
	if l.EnvFile != "" {
		m, err := godotenv.Read(l.EnvFile)
		switch {
		case err == nil:
			dotenv = m
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("config: read %s: %w", l.EnvFile, err)
		}
	}

	lookup := l.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := applyEnv(&r, get); err != nil {
		return Config{}, err
	}

	if err := validateRaw(r); err != nil {
		return Config{}, err
	}
	cfg, err := r.typed()
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Environment variable names.
const (
	EnvDiscordToken     = "INVITETRACK_DISCORD_TOKEN"
	EnvDatabasePath     = "INVITETRACK_DATABASE_PATH"
	EnvRetryDelay       = "INVITETRACK_RETRY_DELAY"
	EnvHTTPAddr         = "INVITETRACK_HTTP_ADDR"
	EnvLogLevel         = "INVITETRACK_LOG_LEVEL"
	EnvLogFormat        = "INVITETRACK_LOG_FORMAT"
	EnvSnapshotCooldown = "INVITETRACK_SNAPSHOT_COOLDOWN"
	EnvCooldownBackend  = "INVITETRACK_COOLDOWN_BACKEND"
	EnvRedisURL         = "INVITETRACK_REDIS_URL"
	EnvAuditChannelID   = "INVITETRACK_AUDIT_CHANNEL_ID"
	EnvInviteMaxAge     = "INVITETRACK_INVITE_MAX_AGE"
	EnvInviteMaxUses    = "INVITETRACK_INVITE_MAX_USES"
)

func applyEnv(r *raw, get func(string) (string, bool)) error {
	strs := []struct {
		key string
		dst *string
	}{
		{EnvDiscordToken, &r.Discord.Token},
		{EnvDatabasePath, &r.Database.Path},
		{EnvRetryDelay, &r.Engine.RetryDelay},
		{EnvHTTPAddr, &r.HTTP.Addr},
		{EnvLogLevel, &r.Log.Level},
		{EnvLogFormat, &r.Log.Format},
		{EnvSnapshotCooldown, &r.Cooldown.Snapshot},
		{EnvCooldownBackend, &r.Cooldown.Backend},
		{EnvRedisURL, &r.Redis.URL},
		{EnvAuditChannelID, &r.Audit.ChannelID},
		{EnvInviteMaxAge, &r.Invite.MaxAge},
	}
	for _, s := range strs {
		if v, ok := get(s.key); ok {
			*s.dst = v
		}
	}

	if v, ok := get(EnvInviteMaxUses); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvInviteMaxUses, err)
		}
		r.Invite.MaxUses = n
	}
	return nil
}

func validateRaw(r raw) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config: compile schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	v := def.Unify(ctx.Encode(r))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("config: invalid: %s", cueerrors.Details(err, nil))
	}
	return nil
}

func (r raw) typed() (Config, error) {
	retry, err := time.ParseDuration(r.Engine.RetryDelay)
	if err != nil {
		return Config{}, fmt.Errorf("config: engine.retry_delay: %w", err)
	}
	cooldown, err := time.ParseDuration(r.Cooldown.Snapshot)
	if err != nil {
		return Config{}, fmt.Errorf("config: cooldown.snapshot: %w", err)
	}
	maxAge, err := time.ParseDuration(r.Invite.MaxAge)
	if err != nil {
		return Config{}, fmt.Errorf("config: invite.max_age: %w", err)
	}

	return Config{
		DiscordToken:     r.Discord.Token,
		DatabasePath:     r.Database.Path,
		RetryDelay:       retry,
		HTTPAddr:         r.HTTP.Addr,
		LogLevel:         r.Log.Level,
		LogFormat:        r.Log.Format,
		SnapshotCooldown: cooldown,
		CooldownBackend:  r.Cooldown.Backend,
		RedisURL:         r.Redis.URL,
		AuditChannelID:   r.Audit.ChannelID,
		InviteMaxAge:     maxAge,
		InviteMaxUses:    r.Invite.MaxUses,
	}, nil
}

// Validate checks rules that span fields.
func (c Config) Validate() error {
	if c.CooldownBackend == BackendRedis && c.RedisURL == "" {
		return fmt.Errorf("config: cooldown.backend %q requires redis.url", BackendRedis)
	}
	// The platform caps invite lifetime at seven days.
	if c.InviteMaxAge > 7*24*time.Hour {
		return fmt.Errorf("config: invite.max_age %s exceeds 168h", c.InviteMaxAge)
	}
	return nil
}

// RequireToken reports an error when no bot token is configured. Only the
// commands that talk to the platform need one.
func (c Config) RequireToken() error {
	if c.DiscordToken == "" {
		return fmt.Errorf("config: discord.token is required (set %s)", EnvDiscordToken)
	}
	return nil
}
