package statistics

import (
	"bytes"
	"sort"

	"LotteryHub/internal/ledger"
	"LotteryHub/internal/model"
)

// Boards lists every leaderboard.
var Boards = []model.Board{model.BoardWinners, model.BoardBuyers, model.BoardCreators, model.BoardExecutors}

// Aggregator ranks the counters the engine keeps in the ledger. It never writes.
type Aggregator struct {
	store *ledger.Store
}

func NewAggregator(store *ledger.Store) *Aggregator {
	return &Aggregator{store: store}
}

// Top returns the first n standings of a board; n <= 0 returns all of them.
// Creators rank by executed draws, everyone else by value.
func (a *Aggregator) Top(board model.Board, n int) []model.Standing {
	rows := a.store.Stats(board)
	byCount := board == model.BoardCreators
	sort.Slice(rows, func(i, j int) bool {
		x, y := rows[i], rows[j]
		if byCount && x.Count != y.Count {
			return x.Count > y.Count
		}
		if c := x.Value.Cmp(y.Value); c != 0 {
			return c > 0
		}
		if x.Count != y.Count {
			return x.Count > y.Count
		}
		return bytes.Compare(x.Account[:], y.Account[:]) < 0
	})
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

// Valid reports whether b names a board.
func Valid(b model.Board) bool {
	for _, x := range Boards {
		if x == b {
			return true
		}
	}
	return false
}
