// Copyright (c) 2025 The Roundel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package token

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roundel-labs/roundel/lvldb"
	"github.com/roundel-labs/roundel/roundel"
	"github.com/roundel-labs/roundel/state"
)

func M(a ...any) []any {
	return a
}

func TestToken(t *testing.T) {
	kv, _ := lvldb.NewMem()
	st := state.New(kv)

	a1 := roundel.BytesToAddress([]byte("a1"))
	a2 := roundel.BytesToAddress([]byte("a2"))

	tok := New(roundel.BytesToAddress([]byte("tok")), st)
	tests := []struct {
		ret      any
		expected any
	}{
		{M(tok.BalanceOf(a1)), M(&big.Int{}, nil)},
		{tok.Mint(a1, big.NewInt(100)), nil},
		{M(tok.BalanceOf(a1)), M(big.NewInt(100), nil)},
		{M(tok.TotalSupply()), M(big.NewInt(100), nil)},
		{M(tok.Transfer(a1, a2, big.NewInt(30))), M(true, nil)},
		{M(tok.BalanceOf(a1)), M(big.NewInt(70), nil)},
		{M(tok.BalanceOf(a2)), M(big.NewInt(30), nil)},
		{M(tok.Transfer(a1, a2, big.NewInt(1000))), M(false, nil)},
		{M(tok.Burn(a2, big.NewInt(10))), M(true, nil)},
		{M(tok.Burn(a2, big.NewInt(1000))), M(false, nil)},
		{M(tok.TotalSupply()), M(big.NewInt(90), nil)},
		{M(tok.TotalBurned()), M(big.NewInt(10), nil)},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.ret)
	}
}

func TestTokenZeroAmounts(t *testing.T) {
	kv, _ := lvldb.NewMem()
	st := state.New(kv)

	a1 := roundel.BytesToAddress([]byte("a1"))
	a2 := roundel.BytesToAddress([]byte("a2"))

	tok := New(roundel.BytesToAddress([]byte("tok")), st)

	// zero amounts always succeed, even with empty balances
	assert.Nil(t, tok.Mint(a1, new(big.Int)))
	ok, err := tok.Transfer(a1, a2, new(big.Int))
	assert.True(t, ok)
	assert.Nil(t, err)
	ok, err = tok.Burn(a1, new(big.Int))
	assert.True(t, ok)
	assert.Nil(t, err)

	supply, _ := tok.TotalSupply()
	assert.Equal(t, &big.Int{}, supply)
}
