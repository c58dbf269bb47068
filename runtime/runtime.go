// Copyright (c) 2025 The Roundel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import (
	"github.com/roundel-labs/roundel/eventlog"
	"github.com/roundel-labs/roundel/state"
)

// Runtime executes engine operations as atomic units.
// On any failure all state changes and events of the operation are discarded,
// matching the all-or-nothing semantics of a hosted transaction.
type Runtime struct {
	state  *state.State
	events *eventlog.List
}

// New create a runtime over the given state and event list.
func New(st *state.State, events *eventlog.List) *Runtime {
	return &Runtime{st, events}
}

// Events returns the runtime's event list.
func (rt *Runtime) Events() *eventlog.List {
	return rt.events
}

// Atomically runs op, reverting all its state changes and events on error.
func (rt *Runtime) Atomically(op func() error) error {
	checkpoint := rt.state.NewCheckpoint()
	eventCheckpoint := rt.events.NewCheckpoint()
	if err := op(); err != nil {
		rt.state.RevertTo(checkpoint)
		rt.events.RevertTo(eventCheckpoint)
		return err
	}
	return nil
}

// Commit persists accumulated state changes to the backing store.
func (rt *Runtime) Commit() error {
	return rt.state.Commit()
}
