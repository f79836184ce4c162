package ledger

import (
	"bytes"
	"sort"

	"LotteryHub/internal/errorx"
	"LotteryHub/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

type drawAccount struct {
	DrawID  uint64
	Account common.Address
}

type pendingKey struct {
	Account common.Address
	Asset   common.Address
	Kind    model.BalanceKind
}

type statKey struct {
	Board   model.Board
	Account common.Address
}

type statValue struct {
	Value decimal.Decimal
	Count uint64
}

// Store is the single owned copy of the ledger state: draws, purchases, participants, pending
// balances, credits and treasury accumulators. It is not safe for concurrent use; the platform
// serializes every operation and wraps it in Begin/Commit/Rollback.
type Store struct {
	journal Journal

	nextID       uint64
	draws        map[uint64]*model.Draw
	purchases    map[uint64][]model.Purchase
	order        map[uint64][]common.Address
	participants map[drawAccount]model.Participant
	refunded     map[drawAccount]bool
	history      map[common.Address][]uint64
	seen         map[drawAccount]bool

	pending     map[pendingKey]decimal.Decimal
	pendingNFTs map[common.Address][]model.NFTRef
	credits     map[common.Address]model.Credits

	platformFees map[common.Address]decimal.Decimal
	jackpot      decimal.Decimal

	settings   model.Settings
	schedule   model.ScheduleState
	nonce      uint64
	lastRandom common.Hash

	stats map[statKey]statValue

	events []model.Event
}

// New creates an empty store with the given settings.
func New(settings model.Settings) *Store {
	return &Store{
		draws:        make(map[uint64]*model.Draw),
		purchases:    make(map[uint64][]model.Purchase),
		order:        make(map[uint64][]common.Address),
		participants: make(map[drawAccount]model.Participant),
		refunded:     make(map[drawAccount]bool),
		history:      make(map[common.Address][]uint64),
		seen:         make(map[drawAccount]bool),
		pending:      make(map[pendingKey]decimal.Decimal),
		pendingNFTs:  make(map[common.Address][]model.NFTRef),
		credits:      make(map[common.Address]model.Credits),
		platformFees: make(map[common.Address]decimal.Decimal),
		stats:        make(map[statKey]statValue),
		settings:     settings,
	}
}

// Begin opens a transaction.
func (s *Store) Begin() {
	s.journal.Begin()
	s.events = s.events[:0]
}

// Commit closes the transaction and returns the events it emitted.
func (s *Store) Commit() []model.Event {
	s.journal.Commit()
	events := append([]model.Event(nil), s.events...)
	s.events = s.events[:0]
	return events
}

// Rollback undoes every mutation since Begin and drops its events.
func (s *Store) Rollback() {
	s.journal.Rollback()
	s.events = s.events[:0]
}

// Emit queues an event for publication after commit.
func (s *Store) Emit(e model.Event) {
	s.events = append(s.events, e)
}

// ---- draws ----

// AllocateDrawID returns the next draw id. Ids start at 1 and never repeat.
func (s *Store) AllocateDrawID() uint64 {
	Assign(&s.journal, &s.nextID, s.nextID+1)
	return s.nextID
}

// Draw returns a copy of the draw.
func (s *Store) Draw(id uint64) (*model.Draw, error) {
	d, ok := s.draws[id]
	if !ok {
		return nil, errorx.New(errorx.Validation, "draw %d not found", id)
	}
	return d.Clone(), nil
}

// PutDraw stores a copy of d. Executed and cancelled draws are immutable.
func (s *Store) PutDraw(d *model.Draw) error {
	if old, ok := s.draws[d.ID]; ok && old.Status.Final() {
		return errorx.New(errorx.Precondition, "draw %d is %s", d.ID, old.Status)
	}
	Set(&s.journal, s.draws, d.ID, d.Clone())
	s.touch(d.ID, d.Creator)
	return nil
}

// Draws returns copies of every draw ordered by id.
func (s *Store) Draws() []*model.Draw {
	out := make([]*model.Draw, 0, len(s.draws))
	for _, d := range s.draws {
		out = append(out, d.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ---- purchases and participants ----

// AddPurchase appends a purchase record and folds it into the participant index.
// The caller is responsible for updating the draw's TicketsSold.
func (s *Store) AddPurchase(p model.Purchase) {
	Set(&s.journal, s.purchases, p.DrawID, append(s.purchases[p.DrawID], p))

	key := drawAccount{p.DrawID, p.Buyer}
	part, ok := s.participants[key]
	if !ok {
		part = model.Participant{Account: p.Buyer, Spent: decimal.Zero}
		Set(&s.journal, s.order, p.DrawID, append(s.order[p.DrawID], p.Buyer))
	}
	part.Tickets += p.Quantity
	part.Spent = part.Spent.Add(p.Cost)
	Set(&s.journal, s.participants, key, part)
	s.touch(p.DrawID, p.Buyer)
}

// Purchases returns the purchase records of a draw in order.
func (s *Store) Purchases(drawID uint64) []model.Purchase {
	return append([]model.Purchase(nil), s.purchases[drawID]...)
}

// Participants returns the weighted participant list in first-purchase order.
func (s *Store) Participants(drawID uint64) []model.Participant {
	order := s.order[drawID]
	out := make([]model.Participant, 0, len(order))
	for _, acct := range order {
		out = append(out, s.participants[drawAccount{drawID, acct}])
	}
	return out
}

// Participant returns one account's aggregate in a draw.
func (s *Store) Participant(drawID uint64, account common.Address) (model.Participant, bool) {
	p, ok := s.participants[drawAccount{drawID, account}]
	return p, ok
}

// Refunded reports whether the account already claimed its refund for the draw.
func (s *Store) Refunded(drawID uint64, account common.Address) bool {
	return s.refunded[drawAccount{drawID, account}]
}

func (s *Store) MarkRefunded(drawID uint64, account common.Address) {
	Set(&s.journal, s.refunded, drawAccount{drawID, account}, true)
}

// AccountDraws lists the draws an account created or entered, oldest first.
func (s *Store) AccountDraws(account common.Address) []uint64 {
	return append([]uint64(nil), s.history[account]...)
}

func (s *Store) touch(drawID uint64, account common.Address) {
	key := drawAccount{drawID, account}
	if s.seen[key] {
		return
	}
	Set(&s.journal, s.seen, key, true)
	Set(&s.journal, s.history, account, append(s.history[account], drawID))
}

// ---- pending balances ----

func (s *Store) Pending(account, asset common.Address, kind model.BalanceKind) decimal.Decimal {
	return s.pending[pendingKey{account, asset, kind}]
}

// Credit increases a pending balance.
func (s *Store) Credit(account, asset common.Address, kind model.BalanceKind, amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}
	key := pendingKey{account, asset, kind}
	Set(&s.journal, s.pending, key, s.pending[key].Add(amount))
}

// ZeroPending clears a pending balance and returns what it held.
func (s *Store) ZeroPending(account, asset common.Address, kind model.BalanceKind) decimal.Decimal {
	key := pendingKey{account, asset, kind}
	amount := s.pending[key]
	Delete(&s.journal, s.pending, key)
	return amount
}

// PendingOf lists the non-zero pending balances of an account.
func (s *Store) PendingOf(account common.Address) []model.PendingBalance {
	var out []model.PendingBalance
	for k, v := range s.pending {
		if k.Account == account && v.IsPositive() {
			out = append(out, model.PendingBalance{Account: k.Account, Asset: k.Asset, Kind: k.Kind, Amount: v})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return bytes.Compare(out[i].Asset[:], out[j].Asset[:]) < 0
	})
	return out
}

func (s *Store) AddPendingNFT(account common.Address, nft model.NFTRef) {
	Set(&s.journal, s.pendingNFTs, account, append(append([]model.NFTRef(nil), s.pendingNFTs[account]...), nft))
}

// TakePendingNFTs removes and returns the account's pending NFTs of one collection.
func (s *Store) TakePendingNFTs(account, collection common.Address) []model.NFTRef {
	var taken, kept []model.NFTRef
	for _, nft := range s.pendingNFTs[account] {
		if nft.Collection == collection {
			taken = append(taken, nft)
		} else {
			kept = append(kept, nft)
		}
	}
	if len(taken) == 0 {
		return nil
	}
	if len(kept) == 0 {
		Delete(&s.journal, s.pendingNFTs, account)
	} else {
		Set(&s.journal, s.pendingNFTs, account, kept)
	}
	return taken
}

func (s *Store) PendingNFTs(account common.Address) []model.NFTRef {
	return append([]model.NFTRef(nil), s.pendingNFTs[account]...)
}

// ---- credits ----

func (s *Store) Credits(account common.Address) model.Credits {
	return s.credits[account]
}

func (s *Store) AddCredits(account common.Address, c model.Credits) {
	Set(&s.journal, s.credits, account, s.credits[account].Add(c))
}

// ConsumeCredits resets every account's credits and returns how many accounts held any.
func (s *Store) ConsumeCredits() int {
	n := 0
	for acct := range s.credits {
		Delete(&s.journal, s.credits, acct)
		n++
	}
	return n
}

// ---- treasury ----

func (s *Store) PlatformFees(asset common.Address) decimal.Decimal {
	return s.platformFees[asset]
}

func (s *Store) AddPlatformFees(asset common.Address, amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}
	Set(&s.journal, s.platformFees, asset, s.platformFees[asset].Add(amount))
}

func (s *Store) TakePlatformFees(asset common.Address) decimal.Decimal {
	amount := s.platformFees[asset]
	Delete(&s.journal, s.platformFees, asset)
	return amount
}

func (s *Store) Jackpot() decimal.Decimal {
	return s.jackpot
}

func (s *Store) AddJackpot(amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}
	Assign(&s.journal, &s.jackpot, s.jackpot.Add(amount))
}

func (s *Store) TakeJackpot() decimal.Decimal {
	amount := s.jackpot
	Assign(&s.journal, &s.jackpot, decimal.Zero)
	return amount
}

// ---- settings, schedule, randomness ----

func (s *Store) Settings() model.Settings {
	return s.settings
}

func (s *Store) SetSettings(v model.Settings) {
	Assign(&s.journal, &s.settings, v)
}

func (s *Store) Schedule() model.ScheduleState {
	return s.schedule
}

func (s *Store) SetSchedule(v model.ScheduleState) {
	Assign(&s.journal, &s.schedule, v)
}

// NextNonce bumps and returns the randomness nonce.
func (s *Store) NextNonce() uint64 {
	Assign(&s.journal, &s.nonce, s.nonce+1)
	return s.nonce
}

func (s *Store) LastRandom() common.Hash {
	return s.lastRandom
}

func (s *Store) SetLastRandom(h common.Hash) {
	Assign(&s.journal, &s.lastRandom, h)
}

// ---- statistics counters ----

// AddStat increments an account's counters on a board.
func (s *Store) AddStat(board model.Board, account common.Address, value decimal.Decimal, count uint64) {
	key := statKey{board, account}
	cur := s.stats[key]
	Set(&s.journal, s.stats, key, statValue{Value: cur.Value.Add(value), Count: cur.Count + count})
}

// Stats returns the unsorted standings of a board.
func (s *Store) Stats(board model.Board) []model.Standing {
	var out []model.Standing
	for k, v := range s.stats {
		if k.Board == board {
			out = append(out, model.Standing{Account: k.Account, Value: v.Value, Count: v.Count})
		}
	}
	return out
}

// AllPlatformFees returns a copy of every non-zero fee accumulator.
func (s *Store) AllPlatformFees() map[common.Address]decimal.Decimal {
	out := make(map[common.Address]decimal.Decimal, len(s.platformFees))
	for k, v := range s.platformFees {
		if v.IsPositive() {
			out[k] = v
		}
	}
	return out
}

// CreditHolders returns a copy of every account's credits.
func (s *Store) CreditHolders() map[common.Address]model.Credits {
	out := make(map[common.Address]model.Credits, len(s.credits))
	for k, v := range s.credits {
		out[k] = v
	}
	return out
}
