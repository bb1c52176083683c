package scoring

import (
	"strconv"
)

// DefaultPayouts is the 15-step payout ladder, one value per question position.
var DefaultPayouts = []int{
	100, 500, 1000, 2500, 5000,
	10000, 25000, 50000, 100000, 250000,
	500000, 1000000, 2000000, 5000000, 10000000,
}

// DefaultCheckpoints are the ladder positions whose value is guaranteed once reached.
var DefaultCheckpoints = []int{4, 9}

// Ladder maps question positions to winnings and computes the guaranteed floor.
type Ladder struct {
	payouts     []int
	checkpoints []int // ascending values, not positions
}

// NewLadder builds a ladder from ascending payouts and the positions treated as checkpoints.
func NewLadder(payouts []int, checkpointPositions []int) *Ladder {
	l := &Ladder{payouts: append([]int(nil), payouts...)}
	for _, pos := range checkpointPositions {
		if pos >= 0 && pos < len(payouts) {
			l.checkpoints = append(l.checkpoints, payouts[pos])
		}
	}
	return l
}

// DefaultLadder returns the production ladder (checkpoints 5000 and 250000).
func DefaultLadder() *Ladder {
	return NewLadder(DefaultPayouts, DefaultCheckpoints)
}

// Len is the number of ladder steps.
func (l *Ladder) Len() int {
	return len(l.payouts)
}

// Payouts returns a copy of the ladder values.
func (l *Ladder) Payouts() []int {
	return append([]int(nil), l.payouts...)
}

// PayoutFor returns the winnings earned by answering the question at index correctly.
// Out-of-range indexes earn nothing.
func (l *Ladder) PayoutFor(index int) int {
	if index < 0 || index >= len(l.payouts) {
		return 0
	}
	return l.payouts[index]
}

// GuaranteedFloor returns the highest checkpoint value not above winnings, or 0.
func (l *Ladder) GuaranteedFloor(winnings int) int {
	floor := 0
	for _, cp := range l.checkpoints {
		if winnings >= cp && cp > floor {
			floor = cp
		}
	}
	return floor
}

// IsCheckpoint reports whether value is one of the guaranteed amounts.
func (l *Ladder) IsCheckpoint(value int) bool {
	for _, cp := range l.checkpoints {
		if cp == value {
			return true
		}
	}
	return false
}

// Format renders a payout the way the ladder shows it: 500, 5K, 2.5K, 1M.
func Format(value int) string {
	switch {
	case value >= 1000000:
		return strconv.FormatFloat(float64(value)/1000000, 'f', -1, 64) + "M"
	case value >= 1000:
		return strconv.FormatFloat(float64(value)/1000, 'f', -1, 64) + "K"
	default:
		return strconv.Itoa(value)
	}
}
