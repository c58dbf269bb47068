// Copyright (c) 2025 The Roundel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventlog

import (
	"math/big"

	"github.com/roundel-labs/roundel/roundel"
)

// Names of events emitted by the reward engine.
const (
	NameClaim             = "Claim"
	NameBurn              = "Burn"
	NameServiceFeeClaimed = "ServiceFeeClaimed"
)

// Event is an observable effect of a successful operation.
type Event struct {
	Name    string          `json:"name"`
	Emitter roundel.Address `json:"emitter"`
	Pool    roundel.Address `json:"pool"`
	Account roundel.Address `json:"account"`
	Round   uint32          `json:"round"`
	Amount  *big.Int        `json:"amount"`
}

// Sink receives events.
type Sink interface {
	Emit(Event)
}

// List is an in-memory Sink that supports checkpoint/revert,
// so events of a reverted operation are discarded along with its state changes.
type List struct {
	events []Event
}

// NewList creates an empty event list.
func NewList() *List {
	return &List{}
}

// Emit appends an event.
func (l *List) Emit(e Event) {
	l.events = append(l.events, e)
}

// Events returns all emitted events.
func (l *List) Events() []Event {
	return l.events
}

// NewCheckpoint makes a checkpoint of the list.
func (l *List) NewCheckpoint() int {
	return len(l.events)
}

// RevertTo drops events emitted after the given checkpoint.
func (l *List) RevertTo(checkpoint int) {
	if checkpoint < len(l.events) {
		l.events = l.events[:checkpoint]
	}
}
