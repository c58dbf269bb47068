// Copyright (c) 2025 The Roundel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package poolreward

import (
	"math/big"

	"github.com/roundel-labs/roundel/roundel"
)

// participationSnapshot freezes the total participation across pools for a round.
type participationSnapshot struct {
	Generated bool
	Total     *big.Int
}

// poolSnapshot freezes a pool's miner scoring data for a round.
type poolSnapshot struct {
	Generated  bool
	TotalScore *big.Int
	Miners     []roundel.Address
}

// oneShot is an exactly-once record (service fee claim, burn).
type oneShot struct {
	Done   bool
	Amount *big.Int
}

// claimRecord is the permanent claim outcome of a (pool, round, miner).
type claimRecord struct {
	Claimed bool
	Amount  *big.Int
}

// rewardTotal is the materialized total action reward of a round.
type rewardTotal struct {
	Minted bool
	Amount *big.Int
}

// RoundClock reads the external round counter, monotonically non-decreasing.
type RoundClock interface {
	Current() (uint32, error)
}

// Minter is the external authority that allocates the total action reward of a round.
type Minter interface {
	MintForRound(scope roundel.Address, round uint32) (*big.Int, error)
}

// VoteTally provides the verification vote counts a pool's penalty derives from.
type VoteTally interface {
	DistrustVotes(pool roundel.Address, round uint32) (*big.Int, error)
	TotalVerifyVotes(pool roundel.Address, round uint32) (*big.Int, error)
}

// PoolRegistry provides the live pool set, pool owners and each pool's
// current participation amount.
type PoolRegistry interface {
	Pools() ([]roundel.Address, error)
	Owner(pool roundel.Address) (roundel.Address, error)
	Participation(pool roundel.Address) (*big.Int, error)
}

// MinerScoreCalculator is the injected per-pool scoring policy.
type MinerScoreCalculator interface {
	CalculateScores(pool roundel.Address) (totalScore *big.Int, miners []roundel.Address, scores []*big.Int, err error)
}
