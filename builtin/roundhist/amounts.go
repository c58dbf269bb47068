// Copyright (c) 2025 The Roundel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package roundhist

import (
	"math/big"

	"github.com/roundel-labs/roundel/roundel"
	"github.com/roundel-labs/roundel/state"
)

// Amounts is a history of amounts, with the empty default normalized to zero.
type Amounts struct {
	*History[*big.Int]
}

// NewAmounts creates an amount history rooted at the given storage position.
func NewAmounts(addr roundel.Address, st *state.State, pos roundel.Bytes32) Amounts {
	return Amounts{New[*big.Int](addr, st, pos)}
}

// ValueAt returns the amount as of the given round, zero when none recorded.
func (a Amounts) ValueAt(round uint32) (*big.Int, error) {
	v, err := a.History.ValueAt(round)
	if err != nil {
		return nil, err
	}
	if v == nil {
		v = new(big.Int)
	}
	return v, nil
}

// Latest returns the most recently recorded amount, zero when empty.
func (a Amounts) Latest() (*big.Int, uint32, bool, error) {
	v, round, ok, err := a.History.Latest()
	if err != nil {
		return nil, 0, false, err
	}
	if v == nil {
		v = new(big.Int)
	}
	return v, round, ok, nil
}
