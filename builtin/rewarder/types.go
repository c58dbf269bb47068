// Copyright (c) 2025 The Roundel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package rewarder

import (
	"math/big"

	"github.com/roundel-labs/roundel/roundel"
)

// snapshot is the frozen scoring data of a round.
// It's generated exactly once, on the first operation touching the round.
type snapshot struct {
	Generated    bool
	TotalScore   *big.Int
	Participants []roundel.Address
}

// claimRecord is the permanent claim outcome of a (round, account).
type claimRecord struct {
	Claimed bool
	Amount  *big.Int
}

// rewardTotal is the materialized total reward of a round.
type rewardTotal struct {
	Minted bool
	Amount *big.Int
}

// RoundClock reads the external round counter, monotonically non-decreasing.
type RoundClock interface {
	Current() (uint32, error)
}

// Minter is the external authority that allocates the total reward of a round.
// The engine calls it at most once per round and caches the result.
type Minter interface {
	MintForRound(scope roundel.Address, round uint32) (*big.Int, error)
}

// ParticipantSet provides the live participant set.
type ParticipantSet interface {
	CurrentParticipants() ([]roundel.Address, error)
}

// ScoreCalculator is the injected scoring policy.
// Any concrete policy (score = amount, score = sqrt(amount), score = stake)
// substitutes without touching the engine.
type ScoreCalculator interface {
	CalculateScores(participants []roundel.Address) (totalScore *big.Int, scores []*big.Int, err error)
}
