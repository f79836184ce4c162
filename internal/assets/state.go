package assets

import (
	"bytes"
	"encoding/json"
	"os"
	"sort"
	"time"

	"LotteryHub/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// BankSnapshot is the persisted form of a Bank.
type BankSnapshot struct {
	Balances   []HoldingRow `json:"balances"`
	Allowances []HoldingRow `json:"allowances"`
	Custody    []HoldingRow `json:"custody"`
	NFTs       []NFTRow     `json:"nfts"`
	Follows    []FollowRow  `json:"follows"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

type HoldingRow struct {
	Asset   common.Address  `json:"asset"`
	Account common.Address  `json:"account,omitempty"`
	Amount  decimal.Decimal `json:"amount"`
}

type NFTRow struct {
	NFT      model.NFTRef   `json:"nft"`
	Owner    common.Address `json:"owner"`
	Approved bool           `json:"approved"`
}

type FollowRow struct {
	Follower common.Address `json:"follower"`
	Target   common.Address `json:"target"`
}

func addrLess(a, b common.Address) bool { return bytes.Compare(a[:], b[:]) < 0 }

func holdingRows(m map[holding]decimal.Decimal) []HoldingRow {
	rows := make([]HoldingRow, 0, len(m))
	for k, v := range m {
		rows = append(rows, HoldingRow{Asset: k.Asset, Account: k.Account, Amount: v})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Asset != rows[j].Asset {
			return addrLess(rows[i].Asset, rows[j].Asset)
		}
		return addrLess(rows[i].Account, rows[j].Account)
	})
	return rows
}

// Snapshot copies the committed state of the bank.
func (b *Bank) Snapshot() *BankSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := &BankSnapshot{
		Balances:   holdingRows(b.balances),
		Allowances: holdingRows(b.allowances),
	}
	for asset, v := range b.custody {
		snap.Custody = append(snap.Custody, HoldingRow{Asset: asset, Amount: v})
	}
	sort.Slice(snap.Custody, func(i, j int) bool { return addrLess(snap.Custody[i].Asset, snap.Custody[j].Asset) })
	for nft, owner := range b.nftOwner {
		snap.NFTs = append(snap.NFTs, NFTRow{NFT: nft, Owner: owner, Approved: b.nftApproved[nft]})
	}
	sort.Slice(snap.NFTs, func(i, j int) bool {
		a, c := snap.NFTs[i].NFT, snap.NFTs[j].NFT
		if a.Collection != c.Collection {
			return addrLess(a.Collection, c.Collection)
		}
		return a.TokenID < c.TokenID
	})
	for f := range b.follows {
		snap.Follows = append(snap.Follows, FollowRow{Follower: f.Follower, Target: f.Target})
	}
	sort.Slice(snap.Follows, func(i, j int) bool {
		x, y := snap.Follows[i], snap.Follows[j]
		if x.Follower != y.Follower {
			return addrLess(x.Follower, y.Follower)
		}
		return addrLess(x.Target, y.Target)
	})
	return snap
}

// RestoreBank rebuilds a bank from a snapshot.
func RestoreBank(snap *BankSnapshot) *Bank {
	b := NewBank()
	for _, r := range snap.Balances {
		b.balances[holding{r.Asset, r.Account}] = r.Amount
	}
	for _, r := range snap.Allowances {
		b.allowances[holding{r.Asset, r.Account}] = r.Amount
	}
	for _, r := range snap.Custody {
		b.custody[r.Asset] = r.Amount
	}
	for _, r := range snap.NFTs {
		b.nftOwner[r.NFT] = r.Owner
		if r.Approved {
			b.nftApproved[r.NFT] = true
		}
	}
	for _, r := range snap.Follows {
		b.follows[follow{r.Follower, r.Target}] = true
	}
	return b
}

// LoadBank reads a bank from a JSON file. Returns nil, nil if the file doesn't exist.
func LoadBank(filePath string) (*Bank, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var snap BankSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return RestoreBank(&snap), nil
}

// SaveBank writes the committed bank state to a JSON file.
func SaveBank(filePath string, b *Bank) error {
	snap := b.Snapshot()
	snap.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}
