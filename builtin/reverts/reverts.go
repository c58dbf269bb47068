// Copyright (c) 2025 The Roundel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"errors"
)

// ErrRevert is an error that aborts the triggering operation.
// Any state change made by the operation must be rolled back by the caller.
type ErrRevert struct {
	message string
}

func New(message string) *ErrRevert {
	return &ErrRevert{
		message: message,
	}
}

func (e *ErrRevert) Error() string {
	return e.message
}

// IsRevertErr reports whether err is an ErrRevert.
func IsRevertErr(err any) bool {
	if err == nil {
		return false
	}
	e, ok := err.(error)
	if !ok {
		return false
	}
	var ve *ErrRevert
	return errors.As(e, &ve)
}

// The reward engine failure taxonomy.
var (
	// ErrRoundNotFinished rejects operations on the current or a future round.
	ErrRoundNotFinished = New("round not finished")
	// ErrAlreadyClaimed rejects a duplicate claim for the same (round, account).
	ErrAlreadyClaimed = New("already claimed")
	// ErrInvalidServiceFeeRate rejects a service fee rate above 100%.
	ErrInvalidServiceFeeRate = New("invalid service fee rate")
	// ErrNoRewardAvailable rejects a zero-amount service fee claim.
	ErrNoRewardAvailable = New("no reward available")
	// ErrInvalidRound rejects an out-of-order history write.
	ErrInvalidRound = New("invalid round")
)
