package state

// BoardSize is the fixed leaderboard capacity. It is a domain constant
// tied to the 50/30/20 prize schedule, not a tunable.
const BoardSize = 3

// Slot is one ranked leaderboard position. A zero Player marks an
// unoccupied slot.
type Slot struct {
	Player    string `json:"player"`
	Score     uint64 `json:"score"`
	Wager     uint64 `json:"wager"`
	Timestamp int64  `json:"timestamp"`
}

// Leaderboard is the top-BoardSize entries for the open epoch, kept
// strictly descending by score.
type Leaderboard struct {
	Slots [BoardSize]Slot `json:"slots"`
}

// Offer places the candidate at the first slot whose score it strictly
// beats, shifting lower slots toward the bottom and dropping the last.
// Equal scores never displace, so the earliest reveal keeps its rank.
// Returns false when the candidate beats no occupied slot (including a
// zero score against empty slots) and the board is unchanged.
func (l *Leaderboard) Offer(player string, score uint64, wager uint64, ts int64) bool {
	insertAt := len(l.Slots)
	for i := range l.Slots {
		if score > l.Slots[i].Score {
			insertAt = i
			break
		}
	}
	if insertAt == len(l.Slots) {
		return false
	}

	copy(l.Slots[insertAt+1:], l.Slots[insertAt:len(l.Slots)-1])
	l.Slots[insertAt] = Slot{Player: player, Score: score, Wager: wager, Timestamp: ts}
	return true
}

// Rank returns the 1-based rank of player, or 0 if absent.
func (l *Leaderboard) Rank(player string) uint8 {
	if player == "" {
		return 0
	}
	for i := range l.Slots {
		if l.Slots[i].Player == player {
			return uint8(i + 1)
		}
	}
	return 0
}

// Reset clears all slots.
func (l *Leaderboard) Reset() {
	*l = Leaderboard{}
}
