// Copyright (c) 2025 The Roundel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/roundel-labs/roundel/kv"
	"github.com/roundel-labs/roundel/roundel"
	"github.com/roundel-labs/roundel/stackedmap"
)

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

// Unwrap returns the cause of the state error.
func (e *Error) Unwrap() error {
	return e.cause
}

type (
	storageKey struct {
		addr roundel.Address
		key  roundel.Bytes32
	}
	balanceKey roundel.Address
)

// State manages contract storage and account balances over a kv store,
// with a journal that supports checkpoint/revert.
type State struct {
	kv kv.GetPutter
	sm *stackedmap.StackedMap
}

// New create a state object backed by the given kv store.
func New(store kv.GetPutter) *State {
	state := &State{kv: store}
	state.sm = stackedmap.New(state.cacheGetter)
	// the base layer holds uncommitted writes
	state.sm.Push()
	return state
}

func storageDataKey(k storageKey) []byte {
	data := make([]byte, 0, 1+roundel.AddressLength+32)
	data = append(data, 's')
	data = append(data, k.addr.Bytes()...)
	return append(data, k.key.Bytes()...)
}

func balanceDataKey(k balanceKey) []byte {
	data := make([]byte, 0, 1+roundel.AddressLength)
	data = append(data, 'b')
	return append(data, roundel.Address(k).Bytes()...)
}

// cacheGetter implements stackedmap.MapGetter.
func (s *State) cacheGetter(key any) (value any, exist bool, err error) {
	switch k := key.(type) {
	case storageKey:
		raw, err := s.kv.Get(storageDataKey(k))
		if err != nil {
			if s.kv.IsNotFound(err) {
				return rlp.RawValue(nil), true, nil
			}
			return nil, false, err
		}
		return rlp.RawValue(raw), true, nil
	case balanceKey:
		raw, err := s.kv.Get(balanceDataKey(k))
		if err != nil {
			if s.kv.IsNotFound(err) {
				return &big.Int{}, true, nil
			}
			return nil, false, err
		}
		var bal big.Int
		if err := rlp.DecodeBytes(raw, &bal); err != nil {
			return nil, false, err
		}
		return &bal, true, nil
	}
	panic(fmt.Errorf("unexpected state key type %T", key))
}

// GetRawStorage returns storage value in rlp raw form.
func (s *State) GetRawStorage(addr roundel.Address, key roundel.Bytes32) (rlp.RawValue, error) {
	v, _, err := s.sm.Get(storageKey{addr, key})
	if err != nil {
		return nil, &Error{err}
	}
	return v.(rlp.RawValue), nil
}

// SetRawStorage set storage value in rlp raw form.
func (s *State) SetRawStorage(addr roundel.Address, key roundel.Bytes32, raw rlp.RawValue) {
	s.sm.Put(storageKey{addr, key}, raw)
}

// DecodeStorage get and decode storage value.
// Empty storage is passed to the decoder as a nil slice.
func (s *State) DecodeStorage(addr roundel.Address, key roundel.Bytes32, decode func([]byte) error) error {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return err
	}
	if err := decode(raw); err != nil {
		return &Error{err}
	}
	return nil
}

// EncodeStorage set storage value encoded by given encoder.
// Returning nil from the encoder clears the storage slot.
func (s *State) EncodeStorage(addr roundel.Address, key roundel.Bytes32, encode func() ([]byte, error)) error {
	raw, err := encode()
	if err != nil {
		return &Error{err}
	}
	s.SetRawStorage(addr, key, raw)
	return nil
}

// GetStorage get and rlp-decode storage value into val.
// val is left untouched when the storage slot is empty.
func (s *State) GetStorage(addr roundel.Address, key roundel.Bytes32, val any) error {
	return s.DecodeStorage(addr, key, func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, val)
	})
}

// SetStorage rlp-encode val and set as storage value.
func (s *State) SetStorage(addr roundel.Address, key roundel.Bytes32, val any) error {
	return s.EncodeStorage(addr, key, func() ([]byte, error) {
		return rlp.EncodeToBytes(val)
	})
}

// GetBalance returns balance of the given account.
// The returned value is a copy and safe to mutate.
func (s *State) GetBalance(addr roundel.Address) (*big.Int, error) {
	v, _, err := s.sm.Get(balanceKey(addr))
	if err != nil {
		return nil, &Error{err}
	}
	return new(big.Int).Set(v.(*big.Int)), nil
}

// SetBalance set balance of the given account.
func (s *State) SetBalance(addr roundel.Address, balance *big.Int) {
	s.sm.Put(balanceKey(addr), new(big.Int).Set(balance))
}

// NewCheckpoint makes a checkpoint of current state.
// It returns revision of the checkpoint.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo reverts state to the given revision.
func (s *State) RevertTo(revision int) {
	s.sm.PopTo(revision)
}

// Commit writes all journaled changes into the underlying kv store.
// On success the journal is discarded along with any outstanding checkpoints;
// committed values remain readable through the kv store, so the state stays
// usable and later commits write only changes made after this one.
func (s *State) Commit() error {
	batch := s.kv.NewBatch()

	var jerr error
	s.sm.Journal(func(key, value any) bool {
		switch k := key.(type) {
		case storageKey:
			raw := value.(rlp.RawValue)
			if len(raw) == 0 {
				jerr = batch.Delete(storageDataKey(k))
			} else {
				jerr = batch.Put(storageDataKey(k), raw)
			}
		case balanceKey:
			bal := value.(*big.Int)
			if bal.Sign() == 0 {
				jerr = batch.Delete(balanceDataKey(k))
			} else {
				var raw []byte
				if raw, jerr = rlp.EncodeToBytes(bal); jerr == nil {
					jerr = batch.Put(balanceDataKey(k), raw)
				}
			}
		}
		return jerr == nil
	})
	if jerr != nil {
		return &Error{jerr}
	}
	if err := batch.Write(); err != nil {
		return &Error{err}
	}
	s.sm = stackedmap.New(s.cacheGetter)
	s.sm.Push()
	return nil
}
