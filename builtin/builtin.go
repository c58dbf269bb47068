// Copyright (c) 2025 The Roundel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package builtin

import (
	"github.com/roundel-labs/roundel/roundel"
)

// Well-known addresses of the builtin contracts and accounts.
var (
	TokenAddress      = roundel.BytesToAddress([]byte("roundel-token"))
	ParamsAddress     = roundel.BytesToAddress([]byte("roundel-params"))
	RewarderAddress   = roundel.BytesToAddress([]byte("roundel-rewarder"))
	PoolRewardAddress = roundel.BytesToAddress([]byte("roundel-poolreward"))

	// RewardScopeAddress holds minted round rewards until claimed or burned.
	RewardScopeAddress = roundel.BytesToAddress([]byte("roundel-reward-scope"))
	// PoolScopeAddress holds minted action rewards for the pool cascade.
	PoolScopeAddress = roundel.BytesToAddress([]byte("roundel-pool-scope"))
)
