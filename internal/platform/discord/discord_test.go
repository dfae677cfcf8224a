package discord

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/invitetrack/internal/platform"
)

type fakeSession struct {
	invites    []*discordgo.Invite
	listErr    error
	created    *discordgo.Invite
	createErr  error
	gotInvite  discordgo.Invite
	gotChannel string
	messages   []string
	sendErr    error
}

func (f *fakeSession) GuildInvites(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Invite, error) {
	return f.invites, f.listErr
}

func (f *fakeSession) ChannelInviteCreate(channelID string, i discordgo.Invite, options ...discordgo.RequestOption) (*discordgo.Invite, error) {
	f.gotChannel = channelID
	f.gotInvite = i
	return f.created, f.createErr
}

func (f *fakeSession) ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.messages = append(f.messages, channelID+": "+content)
	return &discordgo.Message{Content: content}, nil
}

func forbidden(code int) error {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusForbidden},
		Message:  &discordgo.APIErrorMessage{Code: code, Message: "Missing Permissions"},
	}
}

func TestListInvites_ConvertsInOrder(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	fs := &fakeSession{invites: []*discordgo.Invite{
		{Code: "bbb", Uses: 2, Inviter: &discordgo.User{ID: "42"}, CreatedAt: created},
		nil,
		{Code: "aaa", Uses: 7},
	}}

	got, err := New(fs).ListInvites(t.Context(), "g1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "bbb", got[0].Code)
	assert.Equal(t, 2, got[0].Uses)
	assert.Equal(t, "42", got[0].CreatorID)
	assert.True(t, created.Equal(got[0].CreatedAt))

	assert.Equal(t, "aaa", got[1].Code)
	assert.Equal(t, "", got[1].CreatorID)
	assert.True(t, got[1].CreatedAt.IsZero())
}

func TestListInvites_PermissionErrors(t *testing.T) {
	for _, code := range []int{discordgo.ErrCodeMissingPermissions, discordgo.ErrCodeMissingAccess, 0} {
		fs := &fakeSession{listErr: forbidden(code)}
		_, err := New(fs).ListInvites(t.Context(), "g1")
		require.Error(t, err)
		assert.True(t, platform.IsPermission(err), "code %d", code)
	}
}

func TestListInvites_OtherErrorsPassThrough(t *testing.T) {
	boom := errors.New("connection reset")
	fs := &fakeSession{listErr: boom}

	_, err := New(fs).ListInvites(t.Context(), "g1")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.False(t, platform.IsPermission(err))
}

func TestListInvites_ServerErrorIsNotPermission(t *testing.T) {
	fs := &fakeSession{listErr: &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusBadGateway},
	}}

	_, err := New(fs).ListInvites(t.Context(), "g1")
	require.Error(t, err)
	assert.False(t, platform.IsPermission(err))
}

func TestCreateInvite(t *testing.T) {
	fs := &fakeSession{created: &discordgo.Invite{Code: "new1", Inviter: &discordgo.User{ID: "bot"}}}

	got, err := New(fs).CreateInvite(t.Context(), "c1", platform.InviteOptions{
		MaxAge: 24 * time.Hour,
		Reason: "requested by 7",
	})
	require.NoError(t, err)

	assert.Equal(t, "new1", got.Code)
	assert.Equal(t, "bot", got.CreatorID)
	assert.Equal(t, "c1", fs.gotChannel)
	assert.Equal(t, 86400, fs.gotInvite.MaxAge)
	assert.Equal(t, 0, fs.gotInvite.MaxUses)
	assert.True(t, fs.gotInvite.Unique)
}

func TestCreateInvite_Permission(t *testing.T) {
	fs := &fakeSession{createErr: forbidden(discordgo.ErrCodeMissingPermissions)}

	_, err := New(fs).CreateInvite(t.Context(), "c1", platform.InviteOptions{})
	require.Error(t, err)
	assert.True(t, platform.IsPermission(err))
}

func TestCreateInvite_EmptyResponse(t *testing.T) {
	_, err := New(&fakeSession{}).CreateInvite(t.Context(), "c1", platform.InviteOptions{})
	assert.Error(t, err)
}

func TestSendMessage(t *testing.T) {
	fs := &fakeSession{}
	require.NoError(t, New(fs).SendMessage(t.Context(), "audit", "hello"))
	assert.Equal(t, []string{"audit: hello"}, fs.messages)

	fs.sendErr = forbidden(discordgo.ErrCodeMissingAccess)
	err := New(fs).SendMessage(t.Context(), "audit", "hello")
	assert.True(t, platform.IsPermission(err))
}
