package ledger

import (
	"encoding/json"
	"os"
	"sort"
	"time"

	"LotteryHub/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Snapshot is the on-disk form of a Store. Participant indexes and account histories are
// derived from draws and purchases on load.
type Snapshot struct {
	NextID       uint64                             `json:"next_id"`
	Draws        []*model.Draw                      `json:"draws"`
	Purchases    []model.Purchase                   `json:"purchases"`
	Refunds      []RefundMark                       `json:"refunds"`
	Pending      []model.PendingBalance             `json:"pending"`
	PendingNFTs  map[common.Address][]model.NFTRef  `json:"pending_nfts"`
	Credits      map[common.Address]model.Credits   `json:"credits"`
	PlatformFees map[common.Address]decimal.Decimal `json:"platform_fees"`
	Jackpot      decimal.Decimal                    `json:"jackpot"`
	Settings     model.Settings                     `json:"settings"`
	Schedule     model.ScheduleState                `json:"schedule"`
	Nonce        uint64                             `json:"nonce"`
	LastRandom   common.Hash                        `json:"last_random"`
	Stats        []StatRow                          `json:"stats"`
	UpdatedAt    time.Time                          `json:"updated_at"`
}

type RefundMark struct {
	DrawID  uint64         `json:"draw_id"`
	Account common.Address `json:"account"`
}

type StatRow struct {
	Board   model.Board     `json:"board"`
	Account common.Address  `json:"account"`
	Value   decimal.Decimal `json:"value"`
	Count   uint64          `json:"count"`
}

// Snapshot captures the committed state. It must not be called inside a transaction.
func (s *Store) Snapshot() *Snapshot {
	snap := &Snapshot{
		NextID:       s.nextID,
		Draws:        s.Draws(),
		PendingNFTs:  make(map[common.Address][]model.NFTRef, len(s.pendingNFTs)),
		Credits:      make(map[common.Address]model.Credits, len(s.credits)),
		PlatformFees: make(map[common.Address]decimal.Decimal, len(s.platformFees)),
		Jackpot:      s.jackpot,
		Settings:     s.settings,
		Schedule:     s.schedule,
		Nonce:        s.nonce,
		LastRandom:   s.lastRandom,
	}
	for _, d := range snap.Draws {
		snap.Purchases = append(snap.Purchases, s.purchases[d.ID]...)
	}
	for k := range s.refunded {
		snap.Refunds = append(snap.Refunds, RefundMark{DrawID: k.DrawID, Account: k.Account})
	}
	sort.Slice(snap.Refunds, func(i, j int) bool { return snap.Refunds[i].DrawID < snap.Refunds[j].DrawID })
	for k, v := range s.pending {
		snap.Pending = append(snap.Pending, model.PendingBalance{Account: k.Account, Asset: k.Asset, Kind: k.Kind, Amount: v})
	}
	for k, v := range s.pendingNFTs {
		snap.PendingNFTs[k] = append([]model.NFTRef(nil), v...)
	}
	for k, v := range s.credits {
		snap.Credits[k] = v
	}
	for k, v := range s.platformFees {
		snap.PlatformFees[k] = v
	}
	for k, v := range s.stats {
		snap.Stats = append(snap.Stats, StatRow{Board: k.Board, Account: k.Account, Value: v.Value, Count: v.Count})
	}
	return snap
}

// Restore builds a Store from a snapshot.
func Restore(snap *Snapshot) *Store {
	s := New(snap.Settings)
	s.nextID = snap.NextID
	s.jackpot = snap.Jackpot
	s.schedule = snap.Schedule
	s.nonce = snap.Nonce
	s.lastRandom = snap.LastRandom

	sort.Slice(snap.Draws, func(i, j int) bool { return snap.Draws[i].ID < snap.Draws[j].ID })
	for _, d := range snap.Draws {
		s.draws[d.ID] = d.Clone()
		s.touch(d.ID, d.Creator)
	}
	for _, p := range snap.Purchases {
		s.AddPurchase(p)
	}
	for _, r := range snap.Refunds {
		s.refunded[drawAccount{r.DrawID, r.Account}] = true
	}
	for _, p := range snap.Pending {
		s.pending[pendingKey{p.Account, p.Asset, p.Kind}] = p.Amount
	}
	for k, v := range snap.PendingNFTs {
		s.pendingNFTs[k] = append([]model.NFTRef(nil), v...)
	}
	for k, v := range snap.Credits {
		s.credits[k] = v
	}
	for k, v := range snap.PlatformFees {
		s.platformFees[k] = v
	}
	for _, r := range snap.Stats {
		s.stats[statKey{r.Board, r.Account}] = statValue{Value: r.Value, Count: r.Count}
	}
	return s
}

// LoadState reads a store from a JSON file. Returns nil, nil if the file doesn't exist.
func LoadState(filePath string) (*Store, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return Restore(&snap), nil
}

// SaveState writes the committed state to a JSON file.
func SaveState(filePath string, s *Store) error {
	snap := s.Snapshot()
	snap.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}
