package app

import (
	"encoding/json"

	"tourism_chat_service/internal/chat/domain"
	"tourism_chat_service/pkg/logger"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Broadcaster best effort fan-out over the registry. Offline users are skipped.
type Broadcaster struct {
	registry *ConnectionRegistry
	subs     *SubscriptionTable
}

// NewBroadcaster create Broadcaster
func NewBroadcaster(registry *ConnectionRegistry, subs *SubscriptionTable) *Broadcaster {
	return &Broadcaster{registry: registry, subs: subs}
}

// SendToUser returns whether the frame was queued
func (b *Broadcaster) SendToUser(userID string, ev domain.WSResponse) bool {
	c, ok := b.registry.Lookup(userID)
	if !ok || !c.Open() {
		return false
	}
	return c.Send(ev)
}

// BroadcastToConversation sends ev to every subscriber not in exclude and
// returns how many frames were queued.
func (b *Broadcaster) BroadcastToConversation(conversationID string, ev domain.WSResponse, exclude ...string) int {
	targets := lo.Without(b.subs.MembersOf(conversationID), exclude...)
	if len(targets) == 0 {
		return 0
	}

	raw, err := json.Marshal(ev)
	if err != nil {
		logger.Log.Error("marshal broadcast", zap.String("type", string(ev.Type)), zap.Error(err))
		return 0
	}

	sent := 0
	for _, userID := range targets {
		c, ok := b.registry.Lookup(userID)
		if !ok || !c.Open() {
			continue
		}
		if c.SendRaw(raw) {
			sent++
		}
	}
	return sent
}
