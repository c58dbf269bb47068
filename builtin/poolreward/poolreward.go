// Copyright (c) 2025 The Roundel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package poolreward

import (
	"encoding/binary"
	"math/big"

	"github.com/pkg/errors"

	"github.com/roundel-labs/roundel/builtin/reverts"
	"github.com/roundel-labs/roundel/builtin/roundhist"
	"github.com/roundel-labs/roundel/builtin/token"
	"github.com/roundel-labs/roundel/eventlog"
	"github.com/roundel-labs/roundel/log"
	"github.com/roundel-labs/roundel/metrics"
	"github.com/roundel-labs/roundel/roundel"
	"github.com/roundel-labs/roundel/state"
)

var (
	logger = log.WithContext("pkg", "poolreward")

	metricMinerClaims = metrics.Counter("poolreward_miner_claims_total")
	metricFeeClaims   = metrics.Counter("poolreward_service_fee_claims_total")
	metricBurns       = metrics.Counter("poolreward_burns_total")

	membershipPos = roundel.Blake2b([]byte("membership"))
)

var bpsDenominator = new(big.Int).SetUint64(roundel.BpsDenominator)

// PoolReward layers the penalty/fee/burn cascade atop proportional
// distribution for grouped participants. Per (pool, round):
//
//	theoryReward  = poolParticipation * totalActionReward / totalParticipation
//	actualReward  = theoryReward * (10000 - penaltyRatio) / 10000
//	serviceFee    = actualReward * serviceFeeRate / 10000
//	minerPool     = actualReward * (10000 - serviceFeeRate) / 10000
//	burnAmount    = theoryReward - actualReward
//
// every division floored, dust never redistributed.
type PoolReward struct {
	addr  roundel.Address
	scope roundel.Address
	state *state.State
	token *token.Token

	clock  RoundClock
	minter Minter
	tally  VoteTally
	pools  PoolRegistry
	scores MinerScoreCalculator
	events eventlog.Sink

	serviceFeeRate uint64 // in bps, fixed at construction
	memberships    *roundhist.Keyed[roundel.Address]
}

// New create a new instance.
// serviceFeeRate is in basis points and must not exceed 10000.
func New(
	addr roundel.Address,
	scope roundel.Address,
	st *state.State,
	tok *token.Token,
	clock RoundClock,
	minter Minter,
	tally VoteTally,
	pools PoolRegistry,
	scores MinerScoreCalculator,
	events eventlog.Sink,
	serviceFeeRate uint64,
) (*PoolReward, error) {
	if serviceFeeRate > roundel.BpsDenominator {
		return nil, reverts.ErrInvalidServiceFeeRate
	}
	return &PoolReward{
		addr:           addr,
		scope:          scope,
		state:          st,
		token:          tok,
		clock:          clock,
		minter:         minter,
		tally:          tally,
		pools:          pools,
		scores:         scores,
		events:         events,
		serviceFeeRate: serviceFeeRate,
		memberships:    roundhist.NewKeyed[roundel.Address](addr, st, membershipPos),
	}, nil
}

// ServiceFeeRate returns the construction-time fee rate in bps.
func (p *PoolReward) ServiceFeeRate() uint64 {
	return p.serviceFeeRate
}

func roundBytes(round uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], round)
	return b[:]
}

func (p *PoolReward) participationKey(round uint32) roundel.Bytes32 {
	return roundel.Blake2b([]byte("participation"), roundBytes(round))
}

func (p *PoolReward) poolAmountKey(round uint32, pool roundel.Address) roundel.Bytes32 {
	return roundel.Blake2b([]byte("pool-amount"), roundBytes(round), pool.Bytes())
}

func (p *PoolReward) poolSnapshotKey(round uint32, pool roundel.Address) roundel.Bytes32 {
	return roundel.Blake2b([]byte("pool-snapshot"), roundBytes(round), pool.Bytes())
}

func (p *PoolReward) minerScoreKey(round uint32, pool, miner roundel.Address) roundel.Bytes32 {
	return roundel.Blake2b([]byte("miner-score"), roundBytes(round), pool.Bytes(), miner.Bytes())
}

func (p *PoolReward) minerClaimKey(round uint32, pool, miner roundel.Address) roundel.Bytes32 {
	return roundel.Blake2b([]byte("miner-claim"), roundBytes(round), pool.Bytes(), miner.Bytes())
}

func (p *PoolReward) serviceFeeKey(round uint32, pool roundel.Address) roundel.Bytes32 {
	return roundel.Blake2b([]byte("service-fee"), roundBytes(round), pool.Bytes())
}

func (p *PoolReward) burnKey(round uint32, pool roundel.Address) roundel.Bytes32 {
	return roundel.Blake2b([]byte("burn"), roundBytes(round), pool.Bytes())
}

func (p *PoolReward) totalRewardKey(round uint32) roundel.Bytes32 {
	return roundel.Blake2b([]byte("total-reward"), roundBytes(round))
}

// RecordMembership records that the account belongs to the given pool from
// the given round on. Joining/exiting timing mechanics live with the caller;
// the zero pool address records an exit.
func (p *PoolReward) RecordMembership(account, pool roundel.Address, round uint32) error {
	return p.memberships.Of(account).Record(round, pool)
}

// PoolByRound resolves which pool the account belonged to at the given round.
// ok is false when the account had no pool at or before that round. This
// decouples "which pool scored this account" from "which pool the account
// currently belongs to".
func (p *PoolReward) PoolByRound(account roundel.Address, round uint32) (pool roundel.Address, ok bool, err error) {
	pool, err = p.memberships.Of(account).ValueAt(round)
	if err != nil {
		return roundel.Address{}, false, err
	}
	return pool, !pool.IsZero(), nil
}

// prepareParticipation freezes each pool's participation amount and the total
// across pools for the round, once.
func (p *PoolReward) prepareParticipation(round uint32) error {
	var snap participationSnapshot
	if err := p.state.GetStorage(p.addr, p.participationKey(round), &snap); err != nil {
		return err
	}
	if snap.Generated {
		return nil
	}

	pools, err := p.pools.Pools()
	if err != nil {
		return err
	}
	total := new(big.Int)
	for _, pool := range pools {
		amount, err := p.pools.Participation(pool)
		if err != nil {
			return err
		}
		if amount == nil {
			amount = new(big.Int)
		}
		if err := p.state.SetStorage(p.addr, p.poolAmountKey(round, pool), amount); err != nil {
			return err
		}
		total.Add(total, amount)
	}
	if err := p.state.SetStorage(p.addr, p.participationKey(round), &participationSnapshot{true, total}); err != nil {
		return err
	}
	logger.Debug("participation snapshot generated", "round", round, "pools", len(pools), "total", total)
	return nil
}

// prepareScores freezes the pool's miner scores for the round, once.
func (p *PoolReward) prepareScores(pool roundel.Address, round uint32) error {
	var snap poolSnapshot
	if err := p.state.GetStorage(p.addr, p.poolSnapshotKey(round, pool), &snap); err != nil {
		return err
	}
	if snap.Generated {
		return nil
	}

	totalScore, miners, scores, err := p.scores.CalculateScores(pool)
	if err != nil {
		return err
	}
	if len(scores) != len(miners) {
		return errors.Errorf("score calculator returned %d scores for %d miners", len(scores), len(miners))
	}
	for i, m := range miners {
		score := scores[i]
		if score == nil {
			score = new(big.Int)
		}
		if err := p.state.SetStorage(p.addr, p.minerScoreKey(round, pool, m), score); err != nil {
			return err
		}
	}
	if totalScore == nil {
		totalScore = new(big.Int)
	}
	return p.state.SetStorage(p.addr, p.poolSnapshotKey(round, pool), &poolSnapshot{
		Generated:  true,
		TotalScore: totalScore,
		Miners:     append([]roundel.Address(nil), miners...),
	})
}

// TotalActionReward materializes the round's total action reward, minting it
// into the scope account on first call and caching the result forever.
func (p *PoolReward) TotalActionReward(round uint32) (*big.Int, error) {
	var total rewardTotal
	if err := p.state.GetStorage(p.addr, p.totalRewardKey(round), &total); err != nil {
		return nil, err
	}
	if total.Minted {
		return total.Amount, nil
	}

	amount, err := p.minter.MintForRound(p.scope, round)
	if err != nil {
		return nil, err
	}
	if amount == nil {
		amount = new(big.Int)
	}
	if err := p.token.Mint(p.scope, amount); err != nil {
		return nil, err
	}
	if err := p.state.SetStorage(p.addr, p.totalRewardKey(round), &rewardTotal{true, amount}); err != nil {
		return nil, err
	}
	logger.Debug("action reward minted", "round", round, "amount", amount)
	return amount, nil
}

// TheoryReward returns the pool's theoretical share of the round's action
// reward, zero when the participation snapshot is empty.
func (p *PoolReward) TheoryReward(pool roundel.Address, round uint32) (*big.Int, error) {
	if err := p.prepareParticipation(round); err != nil {
		return nil, err
	}
	var snap participationSnapshot
	if err := p.state.GetStorage(p.addr, p.participationKey(round), &snap); err != nil {
		return nil, err
	}
	if !snap.Generated || snap.Total.Sign() == 0 {
		return new(big.Int), nil
	}
	var amount big.Int
	if err := p.state.GetStorage(p.addr, p.poolAmountKey(round, pool), &amount); err != nil {
		return nil, err
	}
	if amount.Sign() == 0 {
		return new(big.Int), nil
	}
	total, err := p.TotalActionReward(round)
	if err != nil {
		return nil, err
	}
	theory := new(big.Int).Mul(&amount, total)
	return theory.Div(theory, snap.Total), nil
}

// PenaltyRatio returns the pool's penalty in bps, derived from distrust votes
// over total verification votes, zero when the tally is empty, capped at 10000.
func (p *PoolReward) PenaltyRatio(pool roundel.Address, round uint32) (uint64, error) {
	totalVotes, err := p.tally.TotalVerifyVotes(pool, round)
	if err != nil {
		return 0, err
	}
	if totalVotes == nil || totalVotes.Sign() == 0 {
		return 0, nil
	}
	distrust, err := p.tally.DistrustVotes(pool, round)
	if err != nil {
		return 0, err
	}
	if distrust == nil || distrust.Sign() == 0 {
		return 0, nil
	}
	ratio := new(big.Int).Mul(distrust, bpsDenominator)
	ratio.Div(ratio, totalVotes)
	if !ratio.IsUint64() || ratio.Uint64() > roundel.BpsDenominator {
		return roundel.BpsDenominator, nil
	}
	return ratio.Uint64(), nil
}

func applyBps(amount *big.Int, bps uint64) *big.Int {
	out := new(big.Int).Mul(amount, new(big.Int).SetUint64(bps))
	return out.Div(out, bpsDenominator)
}

// ActualReward returns the pool's reward after the penalty cut.
func (p *PoolReward) ActualReward(pool roundel.Address, round uint32) (*big.Int, error) {
	theory, err := p.TheoryReward(pool, round)
	if err != nil {
		return nil, err
	}
	penalty, err := p.PenaltyRatio(pool, round)
	if err != nil {
		return nil, err
	}
	return applyBps(theory, roundel.BpsDenominator-penalty), nil
}

// ServiceFee returns the owner's service fee cut of the actual reward.
func (p *PoolReward) ServiceFee(pool roundel.Address, round uint32) (*big.Int, error) {
	actual, err := p.ActualReward(pool, round)
	if err != nil {
		return nil, err
	}
	return applyBps(actual, p.serviceFeeRate), nil
}

// MinerPoolReward returns the part of the actual reward shared among miners.
func (p *PoolReward) MinerPoolReward(pool roundel.Address, round uint32) (*big.Int, error) {
	actual, err := p.ActualReward(pool, round)
	if err != nil {
		return nil, err
	}
	return applyBps(actual, roundel.BpsDenominator-p.serviceFeeRate), nil
}

// BurnAmount returns the penalty remainder to be burned.
func (p *PoolReward) BurnAmount(pool roundel.Address, round uint32) (*big.Int, error) {
	theory, err := p.TheoryReward(pool, round)
	if err != nil {
		return nil, err
	}
	actual, err := p.ActualReward(pool, round)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Sub(theory, actual), nil
}

// MinerScore returns the miner's frozen score for the round in the pool.
func (p *PoolReward) MinerScore(pool, miner roundel.Address, round uint32) (*big.Int, error) {
	var score big.Int
	if err := p.state.GetStorage(p.addr, p.minerScoreKey(round, pool, miner), &score); err != nil {
		return nil, err
	}
	return &score, nil
}

// MinerShare returns the miner's proportional cut of the miner pool reward,
// zero when the pool's total score is zero.
func (p *PoolReward) MinerShare(pool, miner roundel.Address, round uint32) (*big.Int, error) {
	if err := p.prepareScores(pool, round); err != nil {
		return nil, err
	}
	var snap poolSnapshot
	if err := p.state.GetStorage(p.addr, p.poolSnapshotKey(round, pool), &snap); err != nil {
		return nil, err
	}
	if snap.TotalScore.Sign() == 0 {
		return new(big.Int), nil
	}
	score, err := p.MinerScore(pool, miner, round)
	if err != nil {
		return nil, err
	}
	if score.Sign() == 0 {
		return new(big.Int), nil
	}
	minerPool, err := p.MinerPoolReward(pool, round)
	if err != nil {
		return nil, err
	}
	share := new(big.Int).Mul(minerPool, score)
	return share.Div(share, snap.TotalScore), nil
}

func (p *PoolReward) requireFinished(round uint32) error {
	current, err := p.clock.Current()
	if err != nil {
		return err
	}
	if round >= current {
		return reverts.ErrRoundNotFinished
	}
	return nil
}

// ClaimServiceFee pays the pool's service fee to its registered owner, exactly
// once per (pool, round). Unlike miner claims, a zero fee is rejected with
// ErrNoRewardAvailable.
func (p *PoolReward) ClaimServiceFee(pool roundel.Address, round uint32, caller roundel.Address) (*big.Int, error) {
	if err := p.requireFinished(round); err != nil {
		return nil, err
	}
	owner, err := p.pools.Owner(pool)
	if err != nil {
		return nil, err
	}
	if caller != owner {
		return nil, reverts.New("not pool owner")
	}

	var record oneShot
	if err := p.state.GetStorage(p.addr, p.serviceFeeKey(round, pool), &record); err != nil {
		return nil, err
	}
	if record.Done {
		return nil, reverts.ErrAlreadyClaimed
	}

	fee, err := p.ServiceFee(pool, round)
	if err != nil {
		return nil, err
	}
	if fee.Sign() == 0 {
		return nil, reverts.ErrNoRewardAvailable
	}

	// check-effects-interactions: persist the record before the transfer
	if err := p.state.SetStorage(p.addr, p.serviceFeeKey(round, pool), &oneShot{true, fee}); err != nil {
		return nil, err
	}
	ok, err := p.token.Transfer(p.scope, owner, fee)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, reverts.New("insufficient reward scope balance")
	}

	p.events.Emit(eventlog.Event{
		Name:    eventlog.NameServiceFeeClaimed,
		Emitter: p.addr,
		Pool:    pool,
		Account: owner,
		Round:   round,
		Amount:  fee,
	})
	metricFeeClaims.Add(1)
	logger.Info("service fee claimed", "pool", pool, "round", round, "owner", owner, "amount", fee)
	return fee, nil
}

// MinerOwed returns the reward owed to a miner for a round, resolving the pool
// through historical membership, and whether it was already claimed.
func (p *PoolReward) MinerOwed(round uint32, miner roundel.Address) (*big.Int, bool, error) {
	pool, _, err := p.PoolByRound(miner, round)
	if err != nil {
		return nil, false, err
	}
	var record claimRecord
	if err := p.state.GetStorage(p.addr, p.minerClaimKey(round, pool, miner), &record); err != nil {
		return nil, false, err
	}
	if record.Claimed {
		return record.Amount, true, nil
	}

	current, err := p.clock.Current()
	if err != nil {
		return nil, false, err
	}
	if round >= current || pool.IsZero() {
		return new(big.Int), false, nil
	}
	share, err := p.MinerShare(pool, miner, round)
	if err != nil {
		return nil, false, err
	}
	return share, false, nil
}

// ClaimMinerReward pays a miner its pool share for the round, exactly once.
// The pool is resolved through historical membership, so a miner that changed
// pools since the round closed is still paid by the pool that scored it.
// A zero share is a valid successful claim.
func (p *PoolReward) ClaimMinerReward(round uint32, miner roundel.Address) (*big.Int, error) {
	if err := p.requireFinished(round); err != nil {
		return nil, err
	}
	pool, hasPool, err := p.PoolByRound(miner, round)
	if err != nil {
		return nil, err
	}

	var record claimRecord
	if err := p.state.GetStorage(p.addr, p.minerClaimKey(round, pool, miner), &record); err != nil {
		return nil, err
	}
	if record.Claimed {
		return nil, reverts.ErrAlreadyClaimed
	}

	share := new(big.Int)
	if hasPool {
		if share, err = p.MinerShare(pool, miner, round); err != nil {
			return nil, err
		}
	}

	// check-effects-interactions: persist the record before the transfer
	if err := p.state.SetStorage(p.addr, p.minerClaimKey(round, pool, miner), &claimRecord{true, share}); err != nil {
		return nil, err
	}
	ok, err := p.token.Transfer(p.scope, miner, share)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, reverts.New("insufficient reward scope balance")
	}

	p.events.Emit(eventlog.Event{
		Name:    eventlog.NameClaim,
		Emitter: p.addr,
		Pool:    pool,
		Account: miner,
		Round:   round,
		Amount:  share,
	})
	metricMinerClaims.Add(1)
	logger.Info("miner reward claimed", "pool", pool, "round", round, "miner", miner, "amount", share)
	return share, nil
}

// Burned returns the recorded burned amount for (pool, round).
// done is false when BurnIfNeeded hasn't run yet.
func (p *PoolReward) Burned(pool roundel.Address, round uint32) (amount *big.Int, done bool, err error) {
	var record oneShot
	if err := p.state.GetStorage(p.addr, p.burnKey(round, pool), &record); err != nil {
		return nil, false, err
	}
	if !record.Done {
		return new(big.Int), false, nil
	}
	return record.Amount, true, nil
}

// BurnIfNeeded burns the pool's penalty remainder for the round, recording the
// burned amount exactly once. It's callable by anyone once the round is
// finished, and repeated calls are no-ops returning the recorded amount.
func (p *PoolReward) BurnIfNeeded(pool roundel.Address, round uint32) (*big.Int, error) {
	if err := p.requireFinished(round); err != nil {
		return nil, err
	}

	var record oneShot
	if err := p.state.GetStorage(p.addr, p.burnKey(round, pool), &record); err != nil {
		return nil, err
	}
	if record.Done {
		return record.Amount, nil
	}

	amount, err := p.BurnAmount(pool, round)
	if err != nil {
		return nil, err
	}

	// persist the record before the burn
	if err := p.state.SetStorage(p.addr, p.burnKey(round, pool), &oneShot{true, amount}); err != nil {
		return nil, err
	}
	ok, err := p.token.Burn(p.scope, amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, reverts.New("insufficient reward scope balance")
	}

	p.events.Emit(eventlog.Event{
		Name:    eventlog.NameBurn,
		Emitter: p.addr,
		Pool:    pool,
		Round:   round,
		Amount:  amount,
	})
	metricBurns.Add(1)
	logger.Info("penalty burned", "pool", pool, "round", round, "amount", amount)
	return amount, nil
}
