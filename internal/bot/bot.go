// Package bot connects the Discord gateway to the tracker.
//
// Gateway callbacks must return quickly, so each member join runs in its own
// goroutine. Run waits for those goroutines before returning.
package bot

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/roach88/invitetrack/internal/tracker"
)

// Intents are the gateway intents the bot needs: guild lifecycle, member
// joins (privileged) and invite creation.
const Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers | discordgo.IntentsGuildInvites

// Tracker is the part of *tracker.Tracker the gateway drives.
type Tracker interface {
	HandleJoin(ctx context.Context, ev tracker.JoinEvent) tracker.Outcome
	HandleInviteCreated(ctx context.Context, communityID string) error
}

// Gateway is the subset of *discordgo.Session the bot uses.
type Gateway interface {
	AddHandler(handler interface{}) func()
	Open() error
	Close() error
}

// Bot routes gateway events to a Tracker.
type Bot struct {
	gateway Gateway
	tracker Tracker
	log     *zap.Logger

	mu  sync.RWMutex
	ctx context.Context
	wg  sync.WaitGroup
}

// New creates a Bot. Call Run to connect.
func New(gw Gateway, t Tracker, log *zap.Logger) *Bot {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bot{
		gateway: gw,
		tracker: t,
		log:     log.Named("bot"),
		ctx:     context.Background(),
	}
}

// Run registers handlers, opens the gateway and blocks until ctx is done.
// In-flight joins finish before Run returns.
func (b *Bot) Run(ctx context.Context) error {
	b.mu.Lock()
	b.ctx = ctx
	b.mu.Unlock()

	b.gateway.AddHandler(b.onGuildCreate)
	b.gateway.AddHandler(b.onInviteCreate)
	b.gateway.AddHandler(b.onMemberAdd)

	if err := b.gateway.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	b.log.Info("gateway connected")

	<-ctx.Done()

	err := b.gateway.Close()
	b.Wait()
	b.log.Info("gateway closed")
	if err != nil {
		return fmt.Errorf("close gateway: %w", err)
	}
	return nil
}

// Wait blocks until every in-flight join has been handled.
func (b *Bot) Wait() {
	b.wg.Wait()
}

func (b *Bot) context() context.Context {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ctx
}

// onGuildCreate fires for every guild at connect and when the bot is added
// to a new one. Both need a fresh baseline.
func (b *Bot) onGuildCreate(_ *discordgo.Session, e *discordgo.GuildCreate) {
	if e == nil || e.Guild == nil || e.Unavailable {
		return
	}
	_ = b.tracker.HandleInviteCreated(b.context(), e.ID)
}

func (b *Bot) onInviteCreate(_ *discordgo.Session, e *discordgo.InviteCreate) {
	if e == nil || e.GuildID == "" {
		return
	}
	_ = b.tracker.HandleInviteCreated(b.context(), e.GuildID)
}

func (b *Bot) onMemberAdd(_ *discordgo.Session, e *discordgo.GuildMemberAdd) {
	if e == nil || e.Member == nil || e.User == nil {
		return
	}
	ev := tracker.JoinEvent{
		CommunityID:   e.GuildID,
		MemberID:      e.User.ID,
		MemberDisplay: displayName(e.Member),
		JoinedAt:      e.JoinedAt.UTC(),
	}

	// Shutdown waits for in-flight joins instead of cancelling them.
	ctx := context.WithoutCancel(b.context())
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				b.log.Error("join handler panicked",
					zap.String("community_id", ev.CommunityID),
					zap.String("member_id", ev.MemberID),
					zap.Any("panic", r),
				)
			}
		}()
		b.tracker.HandleJoin(ctx, ev)
	}()
}

func displayName(m *discordgo.Member) string {
	switch {
	case m.Nick != "":
		return m.Nick
	case m.User.GlobalName != "":
		return m.User.GlobalName
	default:
		return m.User.Username
	}
}
