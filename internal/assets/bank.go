package assets

import (
	"context"
	"sync"

	"LotteryHub/internal/errorx"
	"LotteryHub/internal/ledger"
	"LotteryHub/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// CustodyAccount is reported as the owner of escrowed NFTs.
var CustodyAccount = common.HexToAddress("0x00000000000000000000000000000000000c0575")

type holding struct {
	Asset   common.Address
	Account common.Address
}

type follow struct {
	Follower common.Address
	Target   common.Address
}

// ReceiveHook is called after custody pays an account, outside the bank's lock.
// It runs inside the paying operation; calls back into the platform must use the ctx it is
// given, or they block on the operation that is still running.
type ReceiveHook func(ctx context.Context, to, asset common.Address, amount decimal.Decimal)

// Bank is an in-memory asset backend implementing Fungible, NonFungible and FollowerGate.
// It joins the platform's transactions so a failed operation leaves balances untouched.
type Bank struct {
	mu      sync.Mutex
	journal ledger.Journal

	balances    map[holding]decimal.Decimal
	allowances  map[holding]decimal.Decimal
	custody     map[common.Address]decimal.Decimal
	nftOwner    map[model.NFTRef]common.Address
	nftApproved map[model.NFTRef]bool
	follows     map[follow]bool

	OnReceive ReceiveHook
}

func NewBank() *Bank {
	return &Bank{
		balances:    make(map[holding]decimal.Decimal),
		allowances:  make(map[holding]decimal.Decimal),
		custody:     make(map[common.Address]decimal.Decimal),
		nftOwner:    make(map[model.NFTRef]common.Address),
		nftApproved: make(map[model.NFTRef]bool),
		follows:     make(map[follow]bool),
	}
}

func (b *Bank) Begin() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.journal.Begin()
}

func (b *Bank) Commit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.journal.Commit()
}

func (b *Bank) Rollback() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.journal.Rollback()
}

// ---- setup ----

// Mint credits an account out of thin air.
func (b *Bank) Mint(asset, account common.Address, amount decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := holding{asset, account}
	ledger.Set(&b.journal, b.balances, k, b.balances[k].Add(amount))
}

// Approve sets the amount of a token the engine may pull from owner.
func (b *Bank) Approve(asset, owner common.Address, amount decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ledger.Set(&b.journal, b.allowances, holding{asset, owner}, amount)
}

func (b *Bank) MintNFT(nft model.NFTRef, owner common.Address) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ledger.Set(&b.journal, b.nftOwner, nft, owner)
}

func (b *Bank) ApproveNFT(nft model.NFTRef, approved bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ledger.Set(&b.journal, b.nftApproved, nft, approved)
}

func (b *Bank) Follow(follower, target common.Address) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ledger.Set(&b.journal, b.follows, follow{follower, target}, true)
}

// ---- Fungible ----

func (b *Bank) BalanceOf(asset, account common.Address) decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[holding{asset, account}]
}

func (b *Bank) Allowance(asset, owner common.Address) decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.allowances[holding{asset, owner}]
}

func (b *Bank) Custody(asset common.Address) decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.custody[asset]
}

// Pull debits the account's balance and, for tokens, its allowance.
func (b *Bank) Pull(_ context.Context, asset, from common.Address, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errorx.New(errorx.Validation, "negative transfer amount %s", amount)
	}
	if amount.IsZero() {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	k := holding{asset, from}
	if asset != model.NativeAsset {
		allowed := b.allowances[k]
		if allowed.LessThan(amount) {
			return errorx.New(errorx.InsufficientFunds, "allowance %s below %s", allowed, amount)
		}
		ledger.Set(&b.journal, b.allowances, k, allowed.Sub(amount))
	}
	bal := b.balances[k]
	if bal.LessThan(amount) {
		return errorx.New(errorx.InsufficientFunds, "balance %s below %s", bal, amount)
	}
	ledger.Set(&b.journal, b.balances, k, bal.Sub(amount))
	ledger.Set(&b.journal, b.custody, asset, b.custody[asset].Add(amount))
	return nil
}

func (b *Bank) Push(ctx context.Context, asset, to common.Address, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errorx.New(errorx.Validation, "negative transfer amount %s", amount)
	}
	if amount.IsZero() {
		return nil
	}
	b.mu.Lock()
	held := b.custody[asset]
	if held.LessThan(amount) {
		b.mu.Unlock()
		return errorx.New(errorx.InsufficientFunds, "custody holds %s, need %s", held, amount)
	}
	ledger.Set(&b.journal, b.custody, asset, held.Sub(amount))
	k := holding{asset, to}
	ledger.Set(&b.journal, b.balances, k, b.balances[k].Add(amount))
	hook := b.OnReceive
	b.mu.Unlock()

	if hook != nil {
		hook(ctx, to, asset, amount)
	}
	return nil
}

// ---- NonFungible ----

func (b *Bank) OwnerOf(nft model.NFTRef) (common.Address, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	owner, ok := b.nftOwner[nft]
	if !ok {
		return common.Address{}, errorx.New(errorx.Validation, "nft %s#%d does not exist", nft.Collection.Hex(), nft.TokenID)
	}
	return owner, nil
}

func (b *Bank) Approved(nft model.NFTRef) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nftApproved[nft]
}

func (b *Bank) Escrow(_ context.Context, nft model.NFTRef, from common.Address) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.nftOwner[nft] != from {
		return errorx.New(errorx.Unauthorized, "nft %s#%d not owned by %s", nft.Collection.Hex(), nft.TokenID, from.Hex())
	}
	if !b.nftApproved[nft] {
		return errorx.New(errorx.InsufficientFunds, "nft %s#%d not approved", nft.Collection.Hex(), nft.TokenID)
	}
	ledger.Set(&b.journal, b.nftOwner, nft, CustodyAccount)
	ledger.Set(&b.journal, b.nftApproved, nft, false)
	return nil
}

func (b *Bank) Release(_ context.Context, nft model.NFTRef, to common.Address) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.nftOwner[nft] != CustodyAccount {
		return errorx.New(errorx.InsufficientFunds, "nft %s#%d not in custody", nft.Collection.Hex(), nft.TokenID)
	}
	ledger.Set(&b.journal, b.nftOwner, nft, to)
	return nil
}

// ---- FollowerGate ----

func (b *Bank) IsFollower(_ context.Context, follower, target common.Address) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.follows[follow{follower, target}], nil
}
