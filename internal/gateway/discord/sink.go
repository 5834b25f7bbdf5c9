package discord

import (
	"context"
	"fmt"
)

// ChannelSink binds a client to one resolved channel. The channel id is set
// once at startup and never mutated; an unresolved channel degrades every
// send to an error instead of crashing the relay.
type ChannelSink struct {
	client    *Client
	channelID string
	name      string
}

func NewChannelSink(client *Client, channelID, name string) *ChannelSink {
	return &ChannelSink{client: client, channelID: channelID, name: name}
}

// Resolved reports whether the sink has a usable channel.
func (s *ChannelSink) Resolved() bool {
	return s != nil && s.client != nil && s.channelID != ""
}

// Send delivers one message to the bound channel.
func (s *ChannelSink) Send(ctx context.Context, content string) error {
	if !s.Resolved() {
		return fmt.Errorf("channel %q not resolved, cannot post", s.name)
	}
	return s.client.SendMessage(ctx, s.channelID, content)
}
