package cli

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/invitetrack/internal/config"
	"github.com/roach88/invitetrack/internal/engine"
	"github.com/roach88/invitetrack/internal/logging"
	"github.com/roach88/invitetrack/internal/platform"
	"github.com/roach88/invitetrack/internal/platform/discord"
	"github.com/roach88/invitetrack/internal/store"
)

// Platform is everything the commands need from the chat platform.
type Platform interface {
	platform.InviteLister
	platform.InviteCreator
	platform.Messenger
}

// PlatformFactory builds a Platform for a bot token.
type PlatformFactory func(token string) (Platform, error)

func discordPlatform(token string) (Platform, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	return discord.New(session), nil
}

// runtime is the per-command wiring: config, logger, store.
type runtime struct {
	cfg   config.Config
	log   *zap.Logger
	store *store.Store
	out   *OutputFormatter
}

// setup loads config, builds the logger and opens the store. Failures are
// reported through the formatter and returned as ExitCommandError.
func setup(opts *RootOptions, cmd *cobra.Command) (*runtime, error) {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := config.Loader{Path: opts.Config, EnvFile: opts.EnvFile}.Load()
	if err != nil {
		_ = out.Error(ErrCodeConfig, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if opts.Database != "" {
		cfg.DatabasePath = opts.Database
	}

	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	log, err := logging.New(logging.Config{Level: level, Format: cfg.LogFormat})
	if err != nil {
		_ = out.Error(ErrCodeConfig, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "invalid logging configuration", err)
	}

	out.VerboseLog("Opening database %s", cfg.DatabasePath)
	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		_ = out.Error(ErrCodeDatabase, fmt.Sprintf("failed to open database: %v", err), nil)
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	return &runtime{cfg: cfg, log: log, store: st, out: out}, nil
}

func (r *runtime) Close() {
	_ = r.log.Sync()
	_ = r.store.Close()
}

// platform builds the platform client; a bot token is required.
func (r *runtime) platform(opts *RootOptions) (Platform, error) {
	if err := r.cfg.RequireToken(); err != nil {
		_ = r.out.Error(ErrCodeConfig, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "missing bot token", err)
	}
	factory := opts.newPlatform
	if factory == nil {
		factory = discordPlatform
	}
	p, err := factory(r.cfg.DiscordToken)
	if err != nil {
		_ = r.out.Error(ErrCodePlatform, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to create platform client", err)
	}
	return p, nil
}

func (r *runtime) engine(p platform.InviteLister, extra ...engine.Option) *engine.Engine {
	opts := []engine.Option{
		engine.WithLogger(r.log),
		engine.WithRetryDelay(r.cfg.RetryDelay),
	}
	opts = append(opts, extra...)
	return engine.New(r.store, p, opts...)
}

// engineFailure reports an engine error and maps it to an exit code.
func (r *runtime) engineFailure(message string, err error) error {
	code := ErrCodePlatform
	switch {
	case engine.IsPermissionError(err):
		code = ErrCodePermission
	case engine.IsStorageError(err):
		code = ErrCodeDatabase
	}
	_ = r.out.Error(code, fmt.Sprintf("%s: %v", message, err), nil)
	return WrapExitError(ExitFailure, message, err)
}
