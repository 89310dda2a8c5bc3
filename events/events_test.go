package events_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/warp/finhub/events"
	"github.com/warp/finhub/events/mocks"
)

type fakeSender struct {
	channel  string
	messages []string
	err      error
}

func (f *fakeSender) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.channel = channelID
	f.messages = append(f.messages, content)
	return &discordgo.Message{Content: content}, nil
}

func TestEvent_JSONRoundTripKeepsRoutingFields(t *testing.T) {
	e := events.New(events.RecordPending, events.KindTransaction, "t1", "alice", "Acme $1200")

	body, err := e.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(body), `"type":"record.pending"`)
	assert.Contains(t, string(body), `"recordId":"t1"`)

	back, err := events.FromJSON(body)
	require.NoError(t, err)
	assert.Equal(t, e.Type, back.Type)
	assert.Equal(t, e.ActorID, back.ActorID)
}

func TestDiscordNotifier_PostsOnlyActionableEvents(t *testing.T) {
	// GIVEN: a notifier on channel "ops"
	sender := &fakeSender{}
	n := events.NewDiscordNotifierWithSender(sender, "ops")
	ctx := context.Background()

	// WHEN: a pending, an updated and an approved event arrive
	require.NoError(t, n.Publish(ctx, events.New(events.RecordPending, events.KindExpense, "e1", "alice", "Rent $900")))
	require.NoError(t, n.Publish(ctx, events.New(events.RecordUpdated, events.KindExpense, "e1", "alice", "")))
	require.NoError(t, n.Publish(ctx, events.New(events.RecordApproved, events.KindExpense, "e1", "bob", "Rent $900")))

	// THEN: only the pending and approved events reach the channel
	assert.Equal(t, "ops", sender.channel)
	require.Len(t, sender.messages, 2)
	assert.Contains(t, sender.messages[0], "New expense Rent $900 awaiting approval")
	assert.Contains(t, sender.messages[1], "Approved expense")
}

func TestDiscordNotifier_WrapsSendErrors(t *testing.T) {
	n := events.NewDiscordNotifierWithSender(&fakeSender{err: errors.New("rate limited")}, "ops")

	err := n.Publish(context.Background(), events.New(events.RecordPending, events.KindProject, "p1", "a", ""))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestMulti_PublishesToAllAndJoinsErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	first := mocks.NewMockPublisher(ctrl)
	second := mocks.NewMockPublisher(ctrl)
	e := events.New(events.WithdrawalCreated, events.KindWithdrawal, "w1", "", "$50")

	first.EXPECT().Publish(gomock.Any(), e).Return(errors.New("broker down"))
	second.EXPECT().Publish(gomock.Any(), e).Return(nil)

	err := events.Multi{first, second}.Publish(context.Background(), e)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestOrNop(t *testing.T) {
	p := events.OrNop(nil)
	assert.NoError(t, p.Publish(context.Background(), events.Event{}))
	assert.NoError(t, p.Close())
}
