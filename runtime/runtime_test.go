// Copyright (c) 2025 The Roundel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime_test

import (
	"math/big"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/roundel-labs/roundel/eventlog"
	"github.com/roundel-labs/roundel/lvldb"
	"github.com/roundel-labs/roundel/roundel"
	"github.com/roundel-labs/roundel/runtime"
	"github.com/roundel-labs/roundel/state"
)

func TestAtomically(t *testing.T) {
	kv, _ := lvldb.NewMem()
	st := state.New(kv)
	events := eventlog.NewList()
	rt := runtime.New(st, events)

	addr := roundel.BytesToAddress([]byte("a1"))

	err := rt.Atomically(func() error {
		st.SetBalance(addr, big.NewInt(10))
		events.Emit(eventlog.Event{Name: eventlog.NameClaim, Account: addr, Amount: big.NewInt(10)})
		return nil
	})
	assert.Nil(t, err)

	bal, _ := st.GetBalance(addr)
	assert.Equal(t, big.NewInt(10), bal)
	assert.Len(t, events.Events(), 1)
}

func TestAtomicallyRevert(t *testing.T) {
	kv, _ := lvldb.NewMem()
	st := state.New(kv)
	events := eventlog.NewList()
	rt := runtime.New(st, events)

	addr := roundel.BytesToAddress([]byte("a1"))
	st.SetBalance(addr, big.NewInt(1))

	boom := errors.New("boom")
	err := rt.Atomically(func() error {
		st.SetBalance(addr, big.NewInt(100))
		events.Emit(eventlog.Event{Name: eventlog.NameBurn, Amount: big.NewInt(100)})
		return boom
	})
	assert.Equal(t, boom, err)

	// both state and events roll back together
	bal, _ := st.GetBalance(addr)
	assert.Equal(t, big.NewInt(1), bal)
	assert.Empty(t, events.Events())
}

func TestCommitSurvivesReopen(t *testing.T) {
	kv, _ := lvldb.NewMem()

	addr := roundel.BytesToAddress([]byte("a1"))

	st := state.New(kv)
	rt := runtime.New(st, eventlog.NewList())
	assert.Nil(t, rt.Atomically(func() error {
		st.SetBalance(addr, big.NewInt(5))
		return nil
	}))
	assert.Nil(t, rt.Commit())

	st2 := state.New(kv)
	bal, _ := st2.GetBalance(addr)
	assert.Equal(t, big.NewInt(5), bal)
}
