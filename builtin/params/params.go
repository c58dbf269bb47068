// Copyright (c) 2025 The Roundel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package params

import (
	"math/big"

	"github.com/roundel-labs/roundel/roundel"
	"github.com/roundel-labs/roundel/state"
)

// Params is the governance parameter store.
type Params struct {
	addr  roundel.Address
	state *state.State
}

func New(addr roundel.Address, state *state.State) *Params {
	return &Params{addr, state}
}

// Get native way to get param.
func (p *Params) Get(key roundel.Bytes32) (*big.Int, error) {
	var v big.Int
	if err := p.state.GetStorage(p.addr, key, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Set native way to set param.
func (p *Params) Set(key roundel.Bytes32, value *big.Int) error {
	return p.state.SetStorage(p.addr, key, value)
}
