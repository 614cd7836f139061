package app

import (
	"sort"
	"sync"

	"github.com/samber/lo"
)

// SubscriptionTable conversation id → users receiving its live events.
// Empty sets are pruned.
type SubscriptionTable struct {
	mu   sync.RWMutex
	subs map[string]map[string]struct{}
}

// NewSubscriptionTable create an empty table
func NewSubscriptionTable() *SubscriptionTable {
	return &SubscriptionTable{subs: make(map[string]map[string]struct{})}
}

// Join idempotent
func (t *SubscriptionTable) Join(conversationID, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	members, ok := t.subs[conversationID]
	if !ok {
		members = make(map[string]struct{})
		t.subs[conversationID] = members
	}
	members[userID] = struct{}{}
}

// Leave idempotent
func (t *SubscriptionTable) Leave(conversationID, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.leaveLocked(conversationID, userID)
}

func (t *SubscriptionTable) leaveLocked(conversationID, userID string) bool {
	members, ok := t.subs[conversationID]
	if !ok {
		return false
	}
	_, was := members[userID]
	delete(members, userID)
	if len(members) == 0 {
		delete(t.subs, conversationID)
	}
	return was
}

// MembersOf sorted snapshot, empty when nobody is subscribed
func (t *SubscriptionTable) MembersOf(conversationID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	members := lo.Keys(t.subs[conversationID])
	sort.Strings(members)
	return members
}

// IsSubscribed reports whether userID receives events of conversationID
func (t *SubscriptionTable) IsSubscribed(conversationID, userID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.subs[conversationID][userID]
	return ok
}

// RemoveEverywhere drops userID from every conversation and returns the ones it left
func (t *SubscriptionTable) RemoveEverywhere(userID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var left []string
	for conversationID := range t.subs {
		if t.leaveLocked(conversationID, userID) {
			left = append(left, conversationID)
		}
	}
	sort.Strings(left)
	return left
}
