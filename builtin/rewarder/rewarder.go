// Copyright (c) 2025 The Roundel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package rewarder

import (
	"encoding/binary"
	"math/big"

	"github.com/pkg/errors"

	"github.com/roundel-labs/roundel/builtin/reverts"
	"github.com/roundel-labs/roundel/builtin/token"
	"github.com/roundel-labs/roundel/eventlog"
	"github.com/roundel-labs/roundel/log"
	"github.com/roundel-labs/roundel/metrics"
	"github.com/roundel-labs/roundel/roundel"
	"github.com/roundel-labs/roundel/state"
)

var (
	logger = log.WithContext("pkg", "rewarder")

	metricClaims = metrics.Counter("rewarder_claims_total")
	metricMints  = metrics.Counter("rewarder_mints_total")
)

// Rewarder freezes per-round score snapshots and pays out exact-once
// proportional shares of the round reward.
type Rewarder struct {
	addr  roundel.Address
	scope roundel.Address
	state *state.State
	token *token.Token

	clock        RoundClock
	minter       Minter
	participants ParticipantSet
	scores       ScoreCalculator
	events       eventlog.Sink
}

// New create a new instance.
// scope is the account the minter credits and claims debit.
func New(
	addr roundel.Address,
	scope roundel.Address,
	st *state.State,
	tok *token.Token,
	clock RoundClock,
	minter Minter,
	participants ParticipantSet,
	scores ScoreCalculator,
	events eventlog.Sink,
) *Rewarder {
	return &Rewarder{addr, scope, st, tok, clock, minter, participants, scores, events}
}

func roundBytes(round uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], round)
	return b[:]
}

func (r *Rewarder) snapshotKey(round uint32) roundel.Bytes32 {
	return roundel.Blake2b([]byte("snapshot"), roundBytes(round))
}

func (r *Rewarder) scoreKey(round uint32, account roundel.Address) roundel.Bytes32 {
	return roundel.Blake2b([]byte("score"), roundBytes(round), account.Bytes())
}

func (r *Rewarder) claimKey(round uint32, account roundel.Address) roundel.Bytes32 {
	return roundel.Blake2b([]byte("claim"), roundBytes(round), account.Bytes())
}

func (r *Rewarder) totalRewardKey(round uint32) roundel.Bytes32 {
	return roundel.Blake2b([]byte("total-reward"), roundBytes(round))
}

func (r *Rewarder) getSnapshot(round uint32) (*snapshot, error) {
	var snap snapshot
	if err := r.state.GetStorage(r.addr, r.snapshotKey(round), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (r *Rewarder) getClaim(round uint32, account roundel.Address) (*claimRecord, error) {
	var record claimRecord
	if err := r.state.GetStorage(r.addr, r.claimKey(round, account), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Score returns the snapshot score of an account for a round,
// zero when the snapshot doesn't cover the account.
func (r *Rewarder) Score(round uint32, account roundel.Address) (*big.Int, error) {
	var score big.Int
	if err := r.state.GetStorage(r.addr, r.scoreKey(round, account), &score); err != nil {
		return nil, err
	}
	return &score, nil
}

// PrepareSnapshot freezes (totalScore, participant list, per-participant
// scores) for the round. It's a no-op when the snapshot already exists, so the
// snapshot reflects participant state as of whichever operation first touches
// the round.
func (r *Rewarder) PrepareSnapshot(round uint32) error {
	snap, err := r.getSnapshot(round)
	if err != nil {
		return err
	}
	if snap.Generated {
		return nil
	}

	participants, err := r.participants.CurrentParticipants()
	if err != nil {
		return err
	}
	totalScore, scores, err := r.scores.CalculateScores(participants)
	if err != nil {
		return err
	}
	if len(scores) != len(participants) {
		return errors.Errorf("score calculator returned %d scores for %d participants", len(scores), len(participants))
	}

	for i, p := range participants {
		score := scores[i]
		if score == nil {
			score = new(big.Int)
		}
		if err := r.state.SetStorage(r.addr, r.scoreKey(round, p), score); err != nil {
			return err
		}
	}
	if totalScore == nil {
		totalScore = new(big.Int)
	}
	if err := r.state.SetStorage(r.addr, r.snapshotKey(round), &snapshot{
		Generated:    true,
		TotalScore:   totalScore,
		Participants: append([]roundel.Address(nil), participants...),
	}); err != nil {
		return err
	}
	logger.Debug("snapshot generated", "round", round, "participants", len(participants), "totalScore", totalScore)
	return nil
}

// SnapshotTotalScore returns the frozen total score of a round.
// ok is false when the round has no snapshot yet.
func (r *Rewarder) SnapshotTotalScore(round uint32) (totalScore *big.Int, ok bool, err error) {
	snap, err := r.getSnapshot(round)
	if err != nil {
		return nil, false, err
	}
	if !snap.Generated {
		return new(big.Int), false, nil
	}
	return snap.TotalScore, true, nil
}

// Participants returns the frozen participant list of a round.
func (r *Rewarder) Participants(round uint32) ([]roundel.Address, error) {
	snap, err := r.getSnapshot(round)
	if err != nil {
		return nil, err
	}
	return snap.Participants, nil
}

// TotalReward materializes the round's total reward.
// The first call invokes the minting authority once and mints the amount into
// the scope account; the result is cached forever after.
func (r *Rewarder) TotalReward(round uint32) (*big.Int, error) {
	var total rewardTotal
	if err := r.state.GetStorage(r.addr, r.totalRewardKey(round), &total); err != nil {
		return nil, err
	}
	if total.Minted {
		return total.Amount, nil
	}

	amount, err := r.minter.MintForRound(r.scope, round)
	if err != nil {
		return nil, err
	}
	if amount == nil {
		amount = new(big.Int)
	}
	if err := r.token.Mint(r.scope, amount); err != nil {
		return nil, err
	}
	if err := r.state.SetStorage(r.addr, r.totalRewardKey(round), &rewardTotal{true, amount}); err != nil {
		return nil, err
	}
	metricMints.Add(1)
	logger.Debug("round reward minted", "round", round, "amount", amount)
	return amount, nil
}

func (r *Rewarder) share(total, score, totalScore *big.Int) *big.Int {
	if totalScore.Sign() == 0 || score.Sign() == 0 {
		return new(big.Int)
	}
	// floor(total * score / totalScore); rounding dust stays in the scope
	owed := new(big.Int).Mul(total, score)
	return owed.Div(owed, totalScore)
}

// Owed returns the reward owed to an account for a round, and whether it's
// already been claimed. A claimed record returns its frozen amount. A round
// that isn't finished returns zero/unclaimed. Otherwise the proportional share
// is computed, lazily materializing snapshot and total reward.
func (r *Rewarder) Owed(round uint32, account roundel.Address) (*big.Int, bool, error) {
	record, err := r.getClaim(round, account)
	if err != nil {
		return nil, false, err
	}
	if record.Claimed {
		return record.Amount, true, nil
	}

	current, err := r.clock.Current()
	if err != nil {
		return nil, false, err
	}
	if round >= current {
		return new(big.Int), false, nil
	}

	if err := r.PrepareSnapshot(round); err != nil {
		return nil, false, err
	}
	total, err := r.TotalReward(round)
	if err != nil {
		return nil, false, err
	}
	snap, err := r.getSnapshot(round)
	if err != nil {
		return nil, false, err
	}
	score, err := r.Score(round, account)
	if err != nil {
		return nil, false, err
	}
	return r.share(total, score, snap.TotalScore), false, nil
}

// Claim pays the account its proportional share of the round reward, exactly
// once. The claim record is persisted before the transfer. A zero share is a
// valid successful claim.
func (r *Rewarder) Claim(round uint32, account roundel.Address) (*big.Int, error) {
	current, err := r.clock.Current()
	if err != nil {
		return nil, err
	}
	if round >= current {
		return nil, reverts.ErrRoundNotFinished
	}

	record, err := r.getClaim(round, account)
	if err != nil {
		return nil, err
	}
	if record.Claimed {
		return nil, reverts.ErrAlreadyClaimed
	}

	if err := r.PrepareSnapshot(round); err != nil {
		return nil, err
	}
	total, err := r.TotalReward(round)
	if err != nil {
		return nil, err
	}
	snap, err := r.getSnapshot(round)
	if err != nil {
		return nil, err
	}
	score, err := r.Score(round, account)
	if err != nil {
		return nil, err
	}
	owed := r.share(total, score, snap.TotalScore)

	// check-effects-interactions: persist the record before the transfer
	if err := r.state.SetStorage(r.addr, r.claimKey(round, account), &claimRecord{true, owed}); err != nil {
		return nil, err
	}
	ok, err := r.token.Transfer(r.scope, account, owed)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, reverts.New("insufficient reward scope balance")
	}

	r.events.Emit(eventlog.Event{
		Name:    eventlog.NameClaim,
		Emitter: r.addr,
		Account: account,
		Round:   round,
		Amount:  owed,
	})
	metricClaims.Add(1)
	logger.Info("reward claimed", "round", round, "account", account, "amount", owed)
	return owed, nil
}
