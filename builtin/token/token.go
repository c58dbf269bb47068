// Copyright (c) 2025 The Roundel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package token

import (
	"math/big"

	"github.com/roundel-labs/roundel/roundel"
	"github.com/roundel-labs/roundel/state"
)

var (
	totalAddKey = roundel.Blake2b([]byte("total-add"))
	totalSubKey = roundel.Blake2b([]byte("total-sub"))
)

// Token is the balance ledger of the incentive token.
// Minted rewards are credited to a scope account; claims and burns debit it.
type Token struct {
	addr  roundel.Address
	state *state.State
}

// New create a new instance.
func New(addr roundel.Address, state *state.State) *Token {
	return &Token{addr, state}
}

func (t *Token) getTotal(key roundel.Bytes32) (*big.Int, error) {
	var total big.Int
	if err := t.state.GetStorage(t.addr, key, &total); err != nil {
		return nil, err
	}
	return &total, nil
}

func (t *Token) addToTotal(key roundel.Bytes32, amount *big.Int) error {
	total, err := t.getTotal(key)
	if err != nil {
		return err
	}
	return t.state.SetStorage(t.addr, key, total.Add(total, amount))
}

// TotalSupply returns total minted minus total burned.
func (t *Token) TotalSupply() (*big.Int, error) {
	totalAdd, err := t.getTotal(totalAddKey)
	if err != nil {
		return nil, err
	}
	totalSub, err := t.getTotal(totalSubKey)
	if err != nil {
		return nil, err
	}
	return totalAdd.Sub(totalAdd, totalSub), nil
}

// TotalBurned returns the accumulated burned amount.
func (t *Token) TotalBurned() (*big.Int, error) {
	return t.getTotal(totalSubKey)
}

// BalanceOf returns token balance of an account.
func (t *Token) BalanceOf(addr roundel.Address) (*big.Int, error) {
	return t.state.GetBalance(addr)
}

// Mint credits amount to the given account out of thin air.
func (t *Token) Mint(addr roundel.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	bal, err := t.state.GetBalance(addr)
	if err != nil {
		return err
	}
	t.state.SetBalance(addr, bal.Add(bal, amount))
	return t.addToTotal(totalAddKey, amount)
}

// Burn destroys amount from the given account.
// Returns false when the balance is insufficient.
func (t *Token) Burn(addr roundel.Address, amount *big.Int) (bool, error) {
	if amount.Sign() == 0 {
		return true, nil
	}
	bal, err := t.state.GetBalance(addr)
	if err != nil {
		return false, err
	}
	if bal.Cmp(amount) < 0 {
		return false, nil
	}
	t.state.SetBalance(addr, bal.Sub(bal, amount))
	return true, t.addToTotal(totalSubKey, amount)
}

// Transfer moves amount between accounts.
// Returns false when the sender balance is insufficient.
func (t *Token) Transfer(from, to roundel.Address, amount *big.Int) (bool, error) {
	if amount.Sign() == 0 {
		return true, nil
	}
	fromBal, err := t.state.GetBalance(from)
	if err != nil {
		return false, err
	}
	if fromBal.Cmp(amount) < 0 {
		return false, nil
	}
	toBal, err := t.state.GetBalance(to)
	if err != nil {
		return false, err
	}
	t.state.SetBalance(from, fromBal.Sub(fromBal, amount))
	t.state.SetBalance(to, toBal.Add(toBal, amount))
	return true, nil
}
