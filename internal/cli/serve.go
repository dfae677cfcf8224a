package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/invitetrack/internal/bot"
	"github.com/roach88/invitetrack/internal/config"
	"github.com/roach88/invitetrack/internal/cooldown"
	"github.com/roach88/invitetrack/internal/engine"
	"github.com/roach88/invitetrack/internal/httpapi"
	"github.com/roach88/invitetrack/internal/metrics"
	"github.com/roach88/invitetrack/internal/platform/discord"
	"github.com/roach88/invitetrack/internal/tracker"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect to Discord and attribute joins as they happen",
		Long: `Run the bot: snapshot every known community, listen for invite and member
events on the gateway, and serve the operator HTTP API.

Stops cleanly on SIGINT or SIGTERM after in-flight joins are recorded.

Examples:
  invitetrack serve --config ./invitetrack.yaml
  INVITETRACK_DISCORD_TOKEN=... invitetrack serve --db ./invitetrack.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, cmd)
		},
	}
}

func runServe(opts *RootOptions, cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := setup(opts, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.cfg.RequireToken(); err != nil {
		_ = rt.out.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "missing bot token", err)
	}

	session, err := discordgo.New("Bot " + rt.cfg.DiscordToken)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create discord session", err)
	}
	session.Identify.Intents = bot.Intents
	client := discord.New(session)

	limiter, closeLimiter, err := newCooldown(ctx, rt.cfg)
	if err != nil {
		_ = rt.out.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to set up cooldown", err)
	}
	defer closeLimiter()

	m := metrics.New()
	eng := engine.New(rt.store, client,
		engine.WithLogger(rt.log),
		engine.WithRetryDelay(rt.cfg.RetryDelay),
		engine.WithRecorder(m),
	)

	trackerOpts := []tracker.Option{
		tracker.WithLogger(rt.log),
		tracker.WithRecorder(m),
		tracker.WithInviteCreator(client),
		tracker.WithInviteDefaults(rt.cfg.InviteMaxAge, rt.cfg.InviteMaxUses),
	}
	if rt.cfg.AuditChannelID != "" {
		trackerOpts = append(trackerOpts, tracker.WithAuditSink(tracker.ChannelSink{
			Messenger: client,
			ChannelID: rt.cfg.AuditChannelID,
		}))
	}
	t := tracker.New(eng, rt.store, trackerOpts...)

	communities, err := rt.store.ListCommunities(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list communities", err)
	}
	t.SnapshotAll(ctx, communities)

	api := httpapi.New(httpapi.Deps{
		Store:       rt.store,
		Snapshotter: eng,
		Cooldown:    limiter,
		Metrics:     m,
		Logger:      rt.log,
	})
	b := bot.New(session, t, rt.log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.Run(gctx) })
	g.Go(func() error { return api.ListenAndServe(gctx, rt.cfg.HTTPAddr) })

	rt.log.Info("invitetrack running",
		zap.String("http_addr", rt.cfg.HTTPAddr),
		zap.Int("known_communities", len(communities)),
	)
	if err := g.Wait(); err != nil {
		return WrapExitError(ExitFailure, "serve stopped", err)
	}
	rt.log.Info("invitetrack stopped")
	return nil
}

// newCooldown builds the configured cooldown backend and a func that
// releases it.
func newCooldown(ctx context.Context, cfg config.Config) (cooldown.Tracker, func(), error) {
	switch cfg.CooldownBackend {
	case config.BackendRedis:
		client, err := cooldown.Dial(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		tr, err := cooldown.NewRedis(client, cfg.SnapshotCooldown)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return tr, func() { _ = client.Close() }, nil
	case config.BackendMemory, "":
		return cooldown.NewMemory(cfg.SnapshotCooldown, nil), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown cooldown backend %q", cfg.CooldownBackend)
	}
}
