// Copyright (c) 2025 The Roundel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package roundhist

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/roundel-labs/roundel/builtin/reverts"
	"github.com/roundel-labs/roundel/roundel"
	"github.com/roundel-labs/roundel/state"
)

// History is a sparse, append-only timeline of a value keyed by round.
// Entries are stored individually with a separate count slot, so a lookup
// touches O(log n) storage slots. Rounds never decrease across writes;
// writing the latest round again overwrites that entry in place.
type History[V any] struct {
	addr  roundel.Address
	state *state.State
	pos   roundel.Bytes32
}

type entry[V any] struct {
	Round uint32
	Value V
}

// New creates a history rooted at the given storage position.
func New[V any](addr roundel.Address, st *state.State, pos roundel.Bytes32) *History[V] {
	return &History[V]{addr, st, pos}
}

func (h *History[V]) entryKey(i uint64) roundel.Bytes32 {
	var index [8]byte
	binary.BigEndian.PutUint64(index[:], i)
	return roundel.Blake2b(index[:], h.pos.Bytes())
}

// Len returns the number of recorded entries.
func (h *History[V]) Len() (uint64, error) {
	var count uint64
	if err := h.state.GetStorage(h.addr, h.pos, &count); err != nil {
		return 0, err
	}
	return count, nil
}

func (h *History[V]) setLen(count uint64) error {
	return h.state.SetStorage(h.addr, h.pos, count)
}

func (h *History[V]) entryAt(i uint64) (*entry[V], error) {
	var e entry[V]
	if err := h.state.DecodeStorage(h.addr, h.entryKey(i), func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &e)
	}); err != nil {
		return nil, err
	}
	return &e, nil
}

func (h *History[V]) setEntryAt(i uint64, e *entry[V]) error {
	return h.state.EncodeStorage(h.addr, h.entryKey(i), func() ([]byte, error) {
		return rlp.EncodeToBytes(e)
	})
}

// Record writes value at the given round.
// Recording at the latest round overwrites in place; recording at a greater
// round appends; recording at a lower round fails with ErrInvalidRound.
func (h *History[V]) Record(round uint32, value V) error {
	count, err := h.Len()
	if err != nil {
		return err
	}
	if count > 0 {
		last, err := h.entryAt(count - 1)
		if err != nil {
			return err
		}
		if round < last.Round {
			return reverts.ErrInvalidRound
		}
		if round == last.Round {
			last.Value = value
			return h.setEntryAt(count-1, last)
		}
	}
	if err := h.setEntryAt(count, &entry[V]{round, value}); err != nil {
		return err
	}
	return h.setLen(count + 1)
}

// ValueAt returns the value of the latest entry recorded at or before the
// given round, or the type default when the round precedes the first entry.
func (h *History[V]) ValueAt(round uint32) (value V, err error) {
	count, err := h.Len()
	if err != nil {
		return value, err
	}
	// binary search for the first entry with Round > round
	lo, hi := uint64(0), count
	for lo < hi {
		mid := (lo + hi) / 2
		e, err := h.entryAt(mid)
		if err != nil {
			return value, err
		}
		if e.Round > round {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	if lo == 0 {
		return value, nil
	}
	e, err := h.entryAt(lo - 1)
	if err != nil {
		return value, err
	}
	return e.Value, nil
}

// Latest returns the most recently recorded value and its round.
// ok is false when the history is empty.
func (h *History[V]) Latest() (value V, round uint32, ok bool, err error) {
	count, err := h.Len()
	if err != nil {
		return value, 0, false, err
	}
	if count == 0 {
		return value, 0, false, nil
	}
	e, err := h.entryAt(count - 1)
	if err != nil {
		return value, 0, false, err
	}
	return e.Value, e.Round, true, nil
}

// Keyed is a keyed collection of per-account histories, the "value as of
// round" pattern generalized over accounts. It's used for pool memberships.
type Keyed[V any] struct {
	addr    roundel.Address
	state   *state.State
	basePos roundel.Bytes32
}

// NewKeyed creates a keyed history collection rooted at basePos.
func NewKeyed[V any](addr roundel.Address, st *state.State, basePos roundel.Bytes32) *Keyed[V] {
	return &Keyed[V]{addr, st, basePos}
}

// Of returns the history of the given account.
func (k *Keyed[V]) Of(key roundel.Address) *History[V] {
	pos := roundel.Blake2b(key.Bytes(), k.basePos.Bytes())
	return New[V](k.addr, k.state, pos)
}
