package events

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// MessageSender is the part of *discordgo.Session the notifier uses.
type MessageSender interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier posts a channel message for events a person should act
// on. Every other event is ignored.
type DiscordNotifier struct {
	sender    MessageSender
	channelID string
}

// NewDiscordNotifier opens a REST-only bot session. No gateway connection
// is needed to send messages.
func NewDiscordNotifier(token, channelID string) (*DiscordNotifier, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return NewDiscordNotifierWithSender(session, channelID), nil
}

func NewDiscordNotifierWithSender(sender MessageSender, channelID string) *DiscordNotifier {
	return &DiscordNotifier{sender: sender, channelID: channelID}
}

func (d *DiscordNotifier) Publish(ctx context.Context, e Event) error {
	msg, ok := Message(e)
	if !ok {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := d.sender.ChannelMessageSend(d.channelID, msg, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send discord message: %w", err)
	}
	return nil
}

func (d *DiscordNotifier) Close() error {
	if s, ok := d.sender.(*discordgo.Session); ok {
		return s.Close()
	}
	return nil
}

// Message renders the notification text for e. ok is false for events
// nobody needs to hear about.
func Message(e Event) (string, bool) {
	subject := e.Kind
	if e.Summary != "" {
		subject = fmt.Sprintf("%s %s", e.Kind, e.Summary)
	}
	switch e.Type {
	case RecordPending:
		return fmt.Sprintf(":hourglass: New %s awaiting approval", subject), true
	case RecordApproved:
		return fmt.Sprintf(":white_check_mark: Approved %s", subject), true
	case WithdrawalCreated:
		return fmt.Sprintf(":money_with_wings: Impact Fund withdrawal %s", e.Summary), true
	}
	return "", false
}
