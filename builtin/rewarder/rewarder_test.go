// Copyright (c) 2025 The Roundel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package rewarder_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roundel-labs/roundel/builtin/reverts"
	"github.com/roundel-labs/roundel/builtin/rewarder"
	"github.com/roundel-labs/roundel/builtin/token"
	"github.com/roundel-labs/roundel/eventlog"
	"github.com/roundel-labs/roundel/lvldb"
	"github.com/roundel-labs/roundel/roundel"
	"github.com/roundel-labs/roundel/state"
)

type fixedClock uint32

func (c fixedClock) Current() (uint32, error) { return uint32(c), nil }

type countingMinter struct {
	amount *big.Int
	calls  int
}

func (m *countingMinter) MintForRound(_ roundel.Address, _ uint32) (*big.Int, error) {
	m.calls++
	return new(big.Int).Set(m.amount), nil
}

type fixedSet struct {
	participants []roundel.Address
	scores       []*big.Int
}

func (s *fixedSet) CurrentParticipants() ([]roundel.Address, error) {
	return s.participants, nil
}

func (s *fixedSet) CalculateScores(participants []roundel.Address) (*big.Int, []*big.Int, error) {
	total := new(big.Int)
	for _, sc := range s.scores[:len(participants)] {
		total.Add(total, sc)
	}
	return total, s.scores[:len(participants)], nil
}

type fixture struct {
	st     *state.State
	tok    *token.Token
	minter *countingMinter
	set    *fixedSet
	events *eventlog.List
	rw     *rewarder.Rewarder

	scope roundel.Address
}

func newFixture(current uint32, reward int64, participants []roundel.Address, scores []*big.Int) *fixture {
	kv, _ := lvldb.NewMem()
	st := state.New(kv)

	addr := roundel.BytesToAddress([]byte("rewarder"))
	scope := roundel.BytesToAddress([]byte("scope"))

	tok := token.New(roundel.BytesToAddress([]byte("tok")), st)
	minter := &countingMinter{amount: big.NewInt(reward)}
	set := &fixedSet{participants, scores}
	events := eventlog.NewList()

	rw := rewarder.New(addr, scope, st, tok, fixedClock(current), minter, set, set, events)
	return &fixture{st, tok, minter, set, events, rw, scope}
}

func addrs(names ...string) []roundel.Address {
	out := make([]roundel.Address, 0, len(names))
	for _, n := range names {
		out = append(out, roundel.BytesToAddress([]byte(n)))
	}
	return out
}

func bigs(values ...int64) []*big.Int {
	out := make([]*big.Int, 0, len(values))
	for _, v := range values {
		out = append(out, big.NewInt(v))
	}
	return out
}

func TestProportionalShares(t *testing.T) {
	participants := addrs("a1", "a2", "a3")
	f := newFixture(2, 6000, participants, bigs(100, 200, 300))

	for i, expected := range bigs(1000, 2000, 3000) {
		owed, claimed, err := f.rw.Owed(1, participants[i])
		assert.Nil(t, err)
		assert.False(t, claimed)
		assert.Equal(t, expected, owed)
	}

	// snapshot and mint both happen once, on the first touch
	assert.Equal(t, 1, f.minter.calls)
	total, ok, err := f.rw.SnapshotTotalScore(1)
	assert.Nil(t, err)
	assert.True(t, ok)
	assert.Equal(t, big.NewInt(600), total)
}

func TestSnapshotFrozen(t *testing.T) {
	participants := addrs("a1", "a2")
	f := newFixture(2, 1000, participants, bigs(100, 100))

	assert.Nil(t, f.rw.PrepareSnapshot(1))

	// later changes to the live set don't affect the frozen round
	f.set.participants = addrs("a1", "a2", "a3")
	f.set.scores = bigs(1, 1, 1)
	assert.Nil(t, f.rw.PrepareSnapshot(1))

	total, _, err := f.rw.SnapshotTotalScore(1)
	assert.Nil(t, err)
	assert.Equal(t, big.NewInt(200), total)

	frozen, err := f.rw.Participants(1)
	assert.Nil(t, err)
	assert.Equal(t, participants, frozen)
}

func TestClaim(t *testing.T) {
	participants := addrs("a1", "a2", "a3")
	f := newFixture(2, 6000, participants, bigs(100, 200, 300))

	paid, err := f.rw.Claim(1, participants[1])
	assert.Nil(t, err)
	assert.Equal(t, big.NewInt(2000), paid)

	bal, _ := f.tok.BalanceOf(participants[1])
	assert.Equal(t, big.NewInt(2000), bal)
	scopeBal, _ := f.tok.BalanceOf(f.scope)
	assert.Equal(t, big.NewInt(4000), scopeBal)

	events := f.events.Events()
	assert.Len(t, events, 1)
	assert.Equal(t, eventlog.NameClaim, events[0].Name)
	assert.Equal(t, participants[1], events[0].Account)
	assert.Equal(t, big.NewInt(2000), events[0].Amount)

	// the claimed record keeps returning the frozen amount
	owed, claimed, err := f.rw.Owed(1, participants[1])
	assert.Nil(t, err)
	assert.True(t, claimed)
	assert.Equal(t, big.NewInt(2000), owed)
}

func TestClaimExactlyOnce(t *testing.T) {
	participants := addrs("a1")
	f := newFixture(2, 1000, participants, bigs(100))

	_, err := f.rw.Claim(1, participants[0])
	assert.Nil(t, err)

	_, err = f.rw.Claim(1, participants[0])
	assert.Equal(t, reverts.ErrAlreadyClaimed, err)

	// the duplicate attempt moved no tokens
	bal, _ := f.tok.BalanceOf(participants[0])
	assert.Equal(t, big.NewInt(1000), bal)
}

func TestClaimRoundNotFinished(t *testing.T) {
	participants := addrs("a1")
	f := newFixture(5, 1000, participants, bigs(100))

	_, err := f.rw.Claim(5, participants[0])
	assert.Equal(t, reverts.ErrRoundNotFinished, err)
	_, err = f.rw.Claim(6, participants[0])
	assert.Equal(t, reverts.ErrRoundNotFinished, err)

	// an unfinished round reads as zero owed, without materializing anything
	owed, claimed, err := f.rw.Owed(5, participants[0])
	assert.Nil(t, err)
	assert.False(t, claimed)
	assert.Equal(t, &big.Int{}, owed)
	assert.Equal(t, 0, f.minter.calls)
}

func TestZeroScoreClaim(t *testing.T) {
	participants := addrs("a1", "a2")
	f := newFixture(2, 1000, participants, bigs(0, 100))

	// zero share is a valid claim and still burns the claim record
	paid, err := f.rw.Claim(1, participants[0])
	assert.Nil(t, err)
	assert.Equal(t, &big.Int{}, paid)

	_, err = f.rw.Claim(1, participants[0])
	assert.Equal(t, reverts.ErrAlreadyClaimed, err)
}

func TestOutsiderClaim(t *testing.T) {
	participants := addrs("a1")
	f := newFixture(2, 1000, participants, bigs(100))

	// an account outside the snapshot claims zero successfully
	outsider := roundel.BytesToAddress([]byte("outsider"))
	paid, err := f.rw.Claim(1, outsider)
	assert.Nil(t, err)
	assert.Equal(t, &big.Int{}, paid)
}

func TestDustStaysInScope(t *testing.T) {
	// 100 over scores 3/3/3: each share floors to 33, 1 stays in the scope
	participants := addrs("a1", "a2", "a3")
	f := newFixture(2, 100, participants, bigs(3, 3, 3))

	sum := new(big.Int)
	for _, p := range participants {
		paid, err := f.rw.Claim(1, p)
		assert.Nil(t, err)
		assert.Equal(t, big.NewInt(33), paid)
		sum.Add(sum, paid)
	}
	assert.Equal(t, big.NewInt(99), sum)

	scopeBal, _ := f.tok.BalanceOf(f.scope)
	assert.Equal(t, big.NewInt(1), scopeBal)
}

func TestMintOncePerRound(t *testing.T) {
	participants := addrs("a1", "a2")
	f := newFixture(4, 1000, participants, bigs(1, 1))

	_, _, err := f.rw.Owed(1, participants[0])
	assert.Nil(t, err)
	_, err = f.rw.Claim(1, participants[0])
	assert.Nil(t, err)
	_, err = f.rw.Claim(1, participants[1])
	assert.Nil(t, err)
	assert.Equal(t, 1, f.minter.calls)

	// a different round mints again
	_, err = f.rw.Claim(2, participants[0])
	assert.Nil(t, err)
	assert.Equal(t, 2, f.minter.calls)
}

func TestZeroTotalScore(t *testing.T) {
	participants := addrs("a1")
	f := newFixture(2, 1000, participants, bigs(0))

	owed, claimed, err := f.rw.Owed(1, participants[0])
	assert.Nil(t, err)
	assert.False(t, claimed)
	assert.Equal(t, &big.Int{}, owed)
}
