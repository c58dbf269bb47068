// Copyright (c) 2025 The Roundel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"math/big"
	"sync"

	"github.com/roundel-labs/roundel/builtin"
	"github.com/roundel-labs/roundel/builtin/params"
	"github.com/roundel-labs/roundel/builtin/poolreward"
	"github.com/roundel-labs/roundel/builtin/rewarder"
	"github.com/roundel-labs/roundel/builtin/token"
	"github.com/roundel-labs/roundel/cache"
	"github.com/roundel-labs/roundel/eventlog"
	"github.com/roundel-labs/roundel/log"
	"github.com/roundel-labs/roundel/roundel"
	"github.com/roundel-labs/roundel/runtime"
	"github.com/roundel-labs/roundel/state"
)

var logger = log.WithContext("pkg", "node")

// Node assembles the reward engine over a single state and serializes access
// to it. Every mutating operation runs atomically and is committed to the
// backing store on success.
type Node struct {
	mu sync.Mutex

	rt       *runtime.Runtime
	params   *params.Params
	token    *token.Token
	rewarder *rewarder.Rewarder
	pools    *poolreward.PoolReward
	votes    *voteStore

	// claimed amounts are permanent, safe to cache across commits
	claimedCache *cache.LRU
}

type claimedCacheKey struct {
	round   uint32
	account roundel.Address
}

// New wires a node from config over the given state.
// Params are seeded on first boot and left untouched afterwards.
func New(st *state.State, cfg *Config) (*Node, error) {
	set, err := cfg.resolve()
	if err != nil {
		return nil, err
	}

	events := eventlog.NewList()
	rt := runtime.New(st, events)
	par := params.New(builtin.ParamsAddress, st)
	tok := token.New(builtin.TokenAddress, st)
	clock := &paramsClock{par}
	votes := &voteStore{par}
	minter := &fixedMinter{set.roundReward}

	rew := rewarder.New(
		builtin.RewarderAddress, builtin.RewardScopeAddress,
		st, tok, clock, minter, set, set, events,
	)
	pools, err := poolreward.New(
		builtin.PoolRewardAddress, builtin.PoolScopeAddress,
		st, tok, clock, minter, votes, set, &minerScores{set}, events,
		cfg.ServiceFeeRateBps,
	)
	if err != nil {
		return nil, err
	}

	claimedCache, err := cache.NewLRU(4096)
	if err != nil {
		return nil, err
	}

	n := &Node{
		rt:           rt,
		params:       par,
		token:        tok,
		rewarder:     rew,
		pools:        pools,
		votes:        votes,
		claimedCache: claimedCache,
	}
	if err := n.seed(set); err != nil {
		return nil, err
	}
	return n, nil
}

// seed initializes params and memberships on first boot.
func (n *Node) seed(set *soloSet) error {
	return n.exec(func() error {
		current, err := n.params.Get(roundel.KeyCurrentRound)
		if err != nil {
			return err
		}
		if current.Sign() != 0 {
			return nil
		}
		if err := n.params.Set(roundel.KeyCurrentRound, big.NewInt(1)); err != nil {
			return err
		}
		if err := n.params.Set(roundel.KeyServiceFeeRate, new(big.Int).SetUint64(n.pools.ServiceFeeRate())); err != nil {
			return err
		}
		if err := n.params.Set(roundel.KeyRoundReward, set.roundReward); err != nil {
			return err
		}
		for _, p := range set.participants {
			if p.pool.IsZero() {
				continue
			}
			if err := n.pools.RecordMembership(p.addr, p.pool, 1); err != nil {
				return err
			}
		}
		logger.Info("genesis seeded", "participants", len(set.participants), "pools", len(set.pools))
		return nil
	})
}

// exec runs op atomically and commits on success.
func (n *Node) exec(op func() error) error {
	if err := n.rt.Atomically(op); err != nil {
		return err
	}
	return n.rt.Commit()
}

// CurrentRound returns the round counter.
func (n *Node) CurrentRound() (uint32, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return (&paramsClock{n.params}).Current()
}

// AdvanceRound increments the round counter and returns the new value.
func (n *Node) AdvanceRound() (uint32, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	var next uint32
	err := n.exec(func() error {
		current, err := (&paramsClock{n.params}).Current()
		if err != nil {
			return err
		}
		next = current + 1
		return n.params.Set(roundel.KeyCurrentRound, new(big.Int).SetUint64(uint64(next)))
	})
	return next, err
}

// Owed returns the reward owed to an account for a round.
// Lazy snapshot/mint materialization is committed, so repeated queries agree.
func (n *Node) Owed(round uint32, account roundel.Address) (amount *big.Int, claimed bool, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if v, ok := n.claimedCache.Get(claimedCacheKey{round, account}); ok {
		return new(big.Int).Set(v.(*big.Int)), true, nil
	}
	err = n.exec(func() error {
		amount, claimed, err = n.rewarder.Owed(round, account)
		return err
	})
	if err == nil && claimed {
		// cache a copy, the caller owns the returned amount
		n.claimedCache.Add(claimedCacheKey{round, account}, new(big.Int).Set(amount))
	}
	return
}

// Claim pays out an account's round share.
func (n *Node) Claim(round uint32, account roundel.Address) (amount *big.Int, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	err = n.exec(func() error {
		amount, err = n.rewarder.Claim(round, account)
		return err
	})
	return
}

// RewardBreakdown is the derived pool cascade for a (pool, round).
type RewardBreakdown struct {
	TheoryReward    *big.Int `json:"theoryReward"`
	PenaltyRatioBps uint64   `json:"penaltyRatioBps"`
	ActualReward    *big.Int `json:"actualReward"`
	ServiceFee      *big.Int `json:"serviceFee"`
	MinerPoolReward *big.Int `json:"minerPoolReward"`
	BurnAmount      *big.Int `json:"burnAmount"`
}

// PoolBreakdown computes the full reward cascade of a (pool, round).
func (n *Node) PoolBreakdown(pool roundel.Address, round uint32) (*RewardBreakdown, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	var breakdown RewardBreakdown
	err := n.exec(func() (err error) {
		if breakdown.TheoryReward, err = n.pools.TheoryReward(pool, round); err != nil {
			return err
		}
		if breakdown.PenaltyRatioBps, err = n.pools.PenaltyRatio(pool, round); err != nil {
			return err
		}
		if breakdown.ActualReward, err = n.pools.ActualReward(pool, round); err != nil {
			return err
		}
		if breakdown.ServiceFee, err = n.pools.ServiceFee(pool, round); err != nil {
			return err
		}
		if breakdown.MinerPoolReward, err = n.pools.MinerPoolReward(pool, round); err != nil {
			return err
		}
		breakdown.BurnAmount, err = n.pools.BurnAmount(pool, round)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &breakdown, nil
}

// MinerOwed returns the pool share owed to a miner for a round.
func (n *Node) MinerOwed(round uint32, miner roundel.Address) (amount *big.Int, claimed bool, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	err = n.exec(func() error {
		amount, claimed, err = n.pools.MinerOwed(round, miner)
		return err
	})
	return
}

// ClaimMinerReward pays out a miner's pool share.
func (n *Node) ClaimMinerReward(round uint32, miner roundel.Address) (amount *big.Int, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	err = n.exec(func() error {
		amount, err = n.pools.ClaimMinerReward(round, miner)
		return err
	})
	return
}

// ClaimServiceFee pays out a pool's service fee to its owner.
func (n *Node) ClaimServiceFee(pool roundel.Address, round uint32, caller roundel.Address) (amount *big.Int, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	err = n.exec(func() error {
		amount, err = n.pools.ClaimServiceFee(pool, round, caller)
		return err
	})
	return
}

// BurnIfNeeded burns a pool's penalty remainder for the round.
func (n *Node) BurnIfNeeded(pool roundel.Address, round uint32) (amount *big.Int, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	err = n.exec(func() error {
		amount, err = n.pools.BurnIfNeeded(pool, round)
		return err
	})
	return
}

// RecordMembership records an account's pool membership from the current round.
func (n *Node) RecordMembership(account, pool roundel.Address) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.exec(func() error {
		current, err := (&paramsClock{n.params}).Current()
		if err != nil {
			return err
		}
		return n.pools.RecordMembership(account, pool, current)
	})
}

// PoolByRound resolves historical pool membership.
func (n *Node) PoolByRound(account roundel.Address, round uint32) (pool roundel.Address, ok bool, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pools.PoolByRound(account, round)
}

// SetVotes records a pool's verification vote tally for a round.
func (n *Node) SetVotes(pool roundel.Address, round uint32, distrust, total *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.exec(func() error {
		return n.votes.set(pool, round, distrust, total)
	})
}

// Balance returns an account's token balance.
func (n *Node) Balance(addr roundel.Address) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.token.BalanceOf(addr)
}

// TotalSupply returns the token supply.
func (n *Node) TotalSupply() (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.token.TotalSupply()
}

// TotalBurned returns the accumulated burned amount.
func (n *Node) TotalBurned() (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.token.TotalBurned()
}

// Events returns all emitted events.
func (n *Node) Events() []eventlog.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.rt.Events().Events()
}
