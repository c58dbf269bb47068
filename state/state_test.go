// Copyright (c) 2025 The Roundel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state_test

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roundel-labs/roundel/kv"
	"github.com/roundel-labs/roundel/lvldb"
	"github.com/roundel-labs/roundel/roundel"
	"github.com/roundel-labs/roundel/state"
)

func TestStorage(t *testing.T) {
	kv, _ := lvldb.NewMem()
	st := state.New(kv)

	addr := roundel.BytesToAddress([]byte("c1"))
	key := roundel.Blake2b([]byte("k1"))

	var v uint64
	assert.Nil(t, st.GetStorage(addr, key, &v))
	assert.Equal(t, uint64(0), v)

	assert.Nil(t, st.SetStorage(addr, key, uint64(42)))
	assert.Nil(t, st.GetStorage(addr, key, &v))
	assert.Equal(t, uint64(42), v)

	// raw round trip
	raw, err := st.GetRawStorage(addr, key)
	assert.Nil(t, err)
	assert.NotEmpty(t, raw)

	// clearing a slot makes it read as empty again
	assert.Nil(t, st.EncodeStorage(addr, key, func() ([]byte, error) { return nil, nil }))
	raw, err = st.GetRawStorage(addr, key)
	assert.Nil(t, err)
	assert.Empty(t, raw)
}

func TestBalance(t *testing.T) {
	kv, _ := lvldb.NewMem()
	st := state.New(kv)

	addr := roundel.BytesToAddress([]byte("a1"))

	bal, err := st.GetBalance(addr)
	assert.Nil(t, err)
	assert.Equal(t, &big.Int{}, bal)

	st.SetBalance(addr, big.NewInt(10))
	bal, _ = st.GetBalance(addr)
	assert.Equal(t, big.NewInt(10), bal)

	// the returned balance is a copy
	bal.SetInt64(99)
	bal, _ = st.GetBalance(addr)
	assert.Equal(t, big.NewInt(10), bal)
}

func TestCheckpointRevert(t *testing.T) {
	kv, _ := lvldb.NewMem()
	st := state.New(kv)

	addr := roundel.BytesToAddress([]byte("a1"))
	key := roundel.Blake2b([]byte("k1"))

	st.SetBalance(addr, big.NewInt(1))
	assert.Nil(t, st.SetStorage(addr, key, uint64(1)))

	cp := st.NewCheckpoint()
	st.SetBalance(addr, big.NewInt(2))
	assert.Nil(t, st.SetStorage(addr, key, uint64(2)))

	st.RevertTo(cp)

	bal, _ := st.GetBalance(addr)
	assert.Equal(t, big.NewInt(1), bal)
	var v uint64
	assert.Nil(t, st.GetStorage(addr, key, &v))
	assert.Equal(t, uint64(1), v)
}

type countingStore struct {
	kv.GetPutCloser
	puts *int
}

func (s *countingStore) NewBatch() kv.Batch {
	return &countingBatch{s.GetPutCloser.NewBatch(), s.puts}
}

type countingBatch struct {
	kv.Batch
	puts *int
}

func (b *countingBatch) Put(key, value []byte) error {
	*b.puts++
	return b.Batch.Put(key, value)
}

func TestCommitWritesOnlyNewEntries(t *testing.T) {
	mem, _ := lvldb.NewMem()
	var puts int
	st := state.New(&countingStore{mem, &puts})

	addr := roundel.BytesToAddress([]byte("c1"))

	// checkpoint, one write, commit, repeatedly; each commit must write
	// just the one entry of its own operation
	for i := range 10 {
		key := roundel.Blake2b([]byte(fmt.Sprintf("k%d", i)))

		puts = 0
		st.NewCheckpoint()
		assert.Nil(t, st.SetStorage(addr, key, uint64(i+1)))
		assert.Nil(t, st.Commit())
		assert.Equal(t, 1, puts)
	}

	// earlier commits stay readable after the journal is discarded
	var v uint64
	assert.Nil(t, st.GetStorage(addr, roundel.Blake2b([]byte("k0")), &v))
	assert.Equal(t, uint64(1), v)
}

func TestCommit(t *testing.T) {
	kv, _ := lvldb.NewMem()

	addr := roundel.BytesToAddress([]byte("a1"))
	key := roundel.Blake2b([]byte("k1"))

	st := state.New(kv)
	st.SetBalance(addr, big.NewInt(7))
	assert.Nil(t, st.SetStorage(addr, key, uint64(7)))
	assert.Nil(t, st.Commit())

	// a fresh state over the same store sees the committed values
	st2 := state.New(kv)
	bal, _ := st2.GetBalance(addr)
	assert.Equal(t, big.NewInt(7), bal)
	var v uint64
	assert.Nil(t, st2.GetStorage(addr, key, &v))
	assert.Equal(t, uint64(7), v)
}
