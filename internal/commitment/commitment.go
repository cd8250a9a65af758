// Package commitment implements the commit-reveal binding that keeps a
// player's score hidden between entry and reveal.
//
// At entry time the player submits Commit(player, score, salt) and keeps
// score and salt private. At reveal time the chain recomputes the digest
// from the revealed values and compares it against the stored one. The
// salt must be unpredictable; the chain never generates or stores it.
package commitment

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
)

// Size is the width of both the digest and the salt in bytes.
const Size = 32

// Commit binds (score, salt, player) into an opaque digest:
// sha256(salt || score_le || player_bytes).
func Commit(player string, score uint64, salt [Size]byte) [Size]byte {
	var scoreLE [8]byte
	binary.LittleEndian.PutUint64(scoreLE[:], score)

	h := sha256.New()
	h.Write(salt[:])
	h.Write(scoreLE[:])
	h.Write([]byte(player))

	var out [Size]byte
	h.Sum(out[:0])
	return out
}

// Verify recomputes the digest for the revealed values and compares it
// against the committed one in constant time.
func Verify(digest [Size]byte, player string, score uint64, salt [Size]byte) bool {
	want := Commit(player, score, salt)
	return subtle.ConstantTimeCompare(digest[:], want[:]) == 1
}
