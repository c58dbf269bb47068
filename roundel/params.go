// Copyright (c) 2025 The Roundel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package roundel

// Constants of the reward protocol.
const (
	// BpsDenominator is the basis-point denominator, 10000 == 100%.
	BpsDenominator = uint64(10000)
)

// Keys of governance params.
var (
	KeyServiceFeeRate = Blake2b([]byte("service-fee-rate"))
	KeyCurrentRound   = Blake2b([]byte("current-round"))
	KeyRoundReward    = Blake2b([]byte("round-reward"))
)
