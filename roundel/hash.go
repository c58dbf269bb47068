// Copyright (c) 2025 The Roundel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package roundel

import (
	"hash"
	"io"
	"sync"

	"golang.org/x/crypto/blake2b"
)

type blake2bState struct {
	sum  Bytes32
	hash hash.Hash
}

var blake2bStatePool = sync.Pool{
	New: func() any {
		h, _ := blake2b.New256(nil)
		return &blake2bState{hash: h}
	},
}

// NewBlake2b return blake2b-256 hash.
func NewBlake2b() hash.Hash {
	h, _ := blake2b.New256(nil)
	return h
}

// Blake2b computes blake2b-256 checksum for given data.
// It's the hash used to derive storage positions.
func Blake2b(data ...[]byte) Bytes32 {
	if len(data) == 1 {
		// the quick version
		return blake2b.Sum256(data[0])
	}
	return Blake2bFn(func(w io.Writer) {
		for _, b := range data {
			w.Write(b)
		}
	})
}

// Blake2bFn computes blake2b-256 checksum for the provided writer.
func Blake2bFn(fn func(w io.Writer)) (h Bytes32) {
	s := blake2bStatePool.Get().(*blake2bState)
	s.hash.Reset()
	fn(s.hash)
	s.hash.Sum(s.sum[:0])
	h = s.sum
	blake2bStatePool.Put(s)
	return
}
