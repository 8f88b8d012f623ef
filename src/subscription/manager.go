// Package subscription turns a declared set of wanted feeds into the minimal
// subscribe/unsubscribe intents for the push channel.
//
// The Manager remembers intent, not confirmed server state: transport failures
// never roll the wanted set back. It is not safe for concurrent use; the
// session event loop is its only caller.
package subscription

import (
	"fmt"

	"market-sync/src/models"
)

// Delta is the wire work needed to move from the previous wanted set to the new one.
type Delta struct {
	ToSubscribe   []models.SubscriptionKey
	ToUnsubscribe []models.SubscriptionKey
}

// Empty reports whether the delta requires no wire traffic.
func (d Delta) Empty() bool {
	return len(d.ToSubscribe) == 0 && len(d.ToUnsubscribe) == 0
}

// -----------------------------------------------------------------------------

// Manager tracks the wanted subscription set of the active view.
type Manager struct {
	wanted models.KeySet
}

// NewManager returns a manager with an empty wanted set.
func NewManager() *Manager {
	return &Manager{wanted: make(models.KeySet)}
}

// -----------------------------------------------------------------------------

// Want replaces the remembered set with keys and returns the set differences.
// Keys present in both sets produce no traffic. Calling Want twice with the
// same set yields an empty delta the second time. An invalid key rejects the
// whole call and leaves the remembered set unchanged.
func (m *Manager) Want(keys models.KeySet) (Delta, error) {
	for k := range keys {
		if err := k.Validate(); err != nil {
			return Delta{}, fmt.Errorf("want: %w", err)
		}
	}

	var delta Delta
	for k := range keys {
		if !m.wanted.Has(k) {
			delta.ToSubscribe = append(delta.ToSubscribe, k)
		}
	}
	for k := range m.wanted {
		if !keys.Has(k) {
			delta.ToUnsubscribe = append(delta.ToUnsubscribe, k)
		}
	}
	models.SortKeys(delta.ToSubscribe)
	models.SortKeys(delta.ToUnsubscribe)

	m.wanted = keys.Clone()
	return delta, nil
}

// -----------------------------------------------------------------------------

// Reset forgets the wanted set and returns every previously wanted key as
// ToUnsubscribe. Used on page teardown and before re-wanting after a reconnect.
func (m *Manager) Reset() Delta {
	delta := Delta{ToUnsubscribe: m.wanted.Sorted()}
	m.wanted = make(models.KeySet)
	return delta
}

// -----------------------------------------------------------------------------

// Wanted reports whether key is in the current wanted set.
func (m *Manager) Wanted(key models.SubscriptionKey) bool {
	return m.wanted.Has(key)
}

// Current returns a copy of the wanted set.
func (m *Manager) Current() models.KeySet {
	return m.wanted.Clone()
}

// Len returns the number of wanted keys.
func (m *Manager) Len() int {
	return len(m.wanted)
}
