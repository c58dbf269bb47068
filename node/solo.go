// Copyright (c) 2025 The Roundel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"math"
	"math/big"

	"github.com/pkg/errors"

	"github.com/roundel-labs/roundel/builtin/params"
	"github.com/roundel-labs/roundel/roundel"
)

// soloSet wires the engine's external collaborators from static config:
// a stake-weighted scoring policy, a fixed per-round minter and a
// config-backed pool registry.
type soloSet struct {
	participants []participant
	pools        []poolInfo
	owners       map[roundel.Address]roundel.Address
	members      map[roundel.Address][]participant
	roundReward  *big.Int
}

// CurrentParticipants implements rewarder.ParticipantSet.
func (s *soloSet) CurrentParticipants() ([]roundel.Address, error) {
	addrs := make([]roundel.Address, len(s.participants))
	for i, p := range s.participants {
		addrs[i] = p.addr
	}
	return addrs, nil
}

// CalculateScores implements rewarder.ScoreCalculator with score = stake.
func (s *soloSet) CalculateScores(participants []roundel.Address) (*big.Int, []*big.Int, error) {
	stakes := make(map[roundel.Address]*big.Int, len(s.participants))
	for _, p := range s.participants {
		stakes[p.addr] = p.stake
	}
	total := new(big.Int)
	scores := make([]*big.Int, len(participants))
	for i, addr := range participants {
		score := stakes[addr]
		if score == nil {
			score = new(big.Int)
		}
		scores[i] = score
		total.Add(total, score)
	}
	return total, scores, nil
}

// Pools implements poolreward.PoolRegistry.
func (s *soloSet) Pools() ([]roundel.Address, error) {
	ids := make([]roundel.Address, len(s.pools))
	for i, p := range s.pools {
		ids[i] = p.id
	}
	return ids, nil
}

// Owner implements poolreward.PoolRegistry.
func (s *soloSet) Owner(pool roundel.Address) (roundel.Address, error) {
	owner, ok := s.owners[pool]
	if !ok {
		return roundel.Address{}, errors.Errorf("unknown pool %s", pool)
	}
	return owner, nil
}

// Participation implements poolreward.PoolRegistry as the sum of member stakes.
func (s *soloSet) Participation(pool roundel.Address) (*big.Int, error) {
	total := new(big.Int)
	for _, m := range s.members[pool] {
		total.Add(total, m.stake)
	}
	return total, nil
}

// minerScores implements poolreward.MinerScoreCalculator over the same set,
// with miner score = stake.
type minerScores struct {
	set *soloSet
}

func (m *minerScores) CalculateScores(pool roundel.Address) (*big.Int, []roundel.Address, []*big.Int, error) {
	members := m.set.members[pool]
	total := new(big.Int)
	miners := make([]roundel.Address, len(members))
	scores := make([]*big.Int, len(members))
	for i, member := range members {
		miners[i] = member.addr
		scores[i] = member.stake
		total.Add(total, member.stake)
	}
	return total, miners, scores, nil
}

// paramsClock reads the round counter from the params store.
type paramsClock struct {
	params *params.Params
}

func (c *paramsClock) Current() (uint32, error) {
	v, err := c.params.Get(roundel.KeyCurrentRound)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() || v.Uint64() > math.MaxUint32 {
		return 0, errors.New("corrupt round counter")
	}
	return uint32(v.Uint64()), nil
}

// fixedMinter allocates the same configured amount every round.
type fixedMinter struct {
	amount *big.Int
}

func (m *fixedMinter) MintForRound(_ roundel.Address, _ uint32) (*big.Int, error) {
	return new(big.Int).Set(m.amount), nil
}

// voteStore keeps verification vote tallies in the params store,
// settable through the admin API.
type voteStore struct {
	params *params.Params
}

func distrustKey(pool roundel.Address, round uint32) roundel.Bytes32 {
	return roundel.Blake2b([]byte("distrust-votes"), pool.Bytes(), roundBytes(round))
}

func verifyKey(pool roundel.Address, round uint32) roundel.Bytes32 {
	return roundel.Blake2b([]byte("verify-votes"), pool.Bytes(), roundBytes(round))
}

func roundBytes(round uint32) []byte {
	return []byte{byte(round >> 24), byte(round >> 16), byte(round >> 8), byte(round)}
}

// DistrustVotes implements poolreward.VoteTally.
func (v *voteStore) DistrustVotes(pool roundel.Address, round uint32) (*big.Int, error) {
	return v.params.Get(distrustKey(pool, round))
}

// TotalVerifyVotes implements poolreward.VoteTally.
func (v *voteStore) TotalVerifyVotes(pool roundel.Address, round uint32) (*big.Int, error) {
	return v.params.Get(verifyKey(pool, round))
}

func (v *voteStore) set(pool roundel.Address, round uint32, distrust, total *big.Int) error {
	if err := v.params.Set(distrustKey(pool, round), distrust); err != nil {
		return err
	}
	return v.params.Set(verifyKey(pool, round), total)
}
