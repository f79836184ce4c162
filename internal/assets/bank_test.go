package assets

import (
	"context"
	"path/filepath"
	"testing"

	"LotteryHub/internal/errorx"
	"LotteryHub/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var (
	alice = common.HexToAddress("0xa11ce")
	bob   = common.HexToAddress("0xb0b")
	token = common.HexToAddress("0x70ce")
)

func d(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func TestBank_PullPush(t *testing.T) {
	ctx := context.Background()
	b := NewBank()
	b.Mint(model.NativeAsset, alice, d(100))

	tests := []struct {
		name   string
		asset  common.Address
		amount int64
		code   errorx.Code
	}{
		{"over balance", model.NativeAsset, 101, errorx.InsufficientFunds},
		{"token without allowance", token, 1, errorx.InsufficientFunds},
		{"negative amount", model.NativeAsset, -5, errorx.Validation},
	}
	for _, tt := range tests {
		if err := b.Pull(ctx, tt.asset, alice, d(tt.amount)); !errorx.Is(err, tt.code) {
			t.Errorf("%s: err = %v, want %s", tt.name, err, tt.code)
		}
	}

	if err := b.Pull(ctx, model.NativeAsset, alice, d(60)); err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if got := b.Custody(model.NativeAsset); !got.Equal(d(60)) {
		t.Errorf("custody = %s, want 60", got)
	}
	if err := b.Push(ctx, model.NativeAsset, bob, d(61)); !errorx.Is(err, errorx.InsufficientFunds) {
		t.Errorf("push over custody: err = %v", err)
	}
	if err := b.Push(ctx, model.NativeAsset, bob, decimal.Zero); err != nil {
		t.Errorf("zero push: %v", err)
	}
	if err := b.Push(ctx, model.NativeAsset, bob, d(60)); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if got := b.BalanceOf(model.NativeAsset, bob); !got.Equal(d(60)) {
		t.Errorf("bob = %s, want 60", got)
	}
}

func TestBank_TokenAllowance(t *testing.T) {
	b := NewBank()
	b.Mint(token, alice, d(50))
	b.Approve(token, alice, d(30))
	if err := b.Pull(context.Background(), token, alice, d(20)); err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if got := b.Allowance(token, alice); !got.Equal(d(10)) {
		t.Errorf("allowance = %s, want 10", got)
	}
	if err := b.Pull(context.Background(), token, alice, d(20)); !errorx.Is(err, errorx.InsufficientFunds) {
		t.Errorf("err = %v, want insufficient allowance", err)
	}
}

func TestBank_RollbackRestoresEverything(t *testing.T) {
	ctx := context.Background()
	b := NewBank()
	b.Mint(model.NativeAsset, alice, d(100))
	nft := model.NFTRef{Collection: token, TokenID: 1}
	b.MintNFT(nft, alice)
	b.ApproveNFT(nft, true)

	b.Begin()
	if err := b.Pull(ctx, model.NativeAsset, alice, d(40)); err != nil {
		t.Fatal(err)
	}
	if err := b.Escrow(ctx, nft, alice); err != nil {
		t.Fatal(err)
	}
	b.Follow(bob, alice)
	b.Rollback()

	if got := b.BalanceOf(model.NativeAsset, alice); !got.Equal(d(100)) {
		t.Errorf("balance = %s, want 100", got)
	}
	if !b.Custody(model.NativeAsset).IsZero() {
		t.Errorf("custody = %s, want 0", b.Custody(model.NativeAsset))
	}
	if owner, _ := b.OwnerOf(nft); owner != alice {
		t.Errorf("nft owner = %s, want alice", owner.Hex())
	}
	if !b.Approved(nft) {
		t.Error("approval should be restored")
	}
	if ok, _ := b.IsFollower(ctx, bob, alice); ok {
		t.Error("follow should be rolled back")
	}
}

func TestBank_NFTEscrow(t *testing.T) {
	ctx := context.Background()
	b := NewBank()
	nft := model.NFTRef{Collection: token, TokenID: 7}
	if _, err := b.OwnerOf(nft); !errorx.Is(err, errorx.Validation) {
		t.Errorf("unknown nft: err = %v", err)
	}
	b.MintNFT(nft, alice)
	if err := b.Escrow(ctx, nft, alice); !errorx.Is(err, errorx.InsufficientFunds) {
		t.Errorf("unapproved escrow: err = %v", err)
	}
	b.ApproveNFT(nft, true)
	if err := b.Escrow(ctx, nft, bob); !errorx.Is(err, errorx.Unauthorized) {
		t.Errorf("foreign escrow: err = %v", err)
	}
	if err := b.Release(ctx, nft, bob); !errorx.Is(err, errorx.InsufficientFunds) {
		t.Errorf("release outside custody: err = %v", err)
	}
	if err := b.Escrow(ctx, nft, alice); err != nil {
		t.Fatalf("Escrow: %v", err)
	}
	if owner, _ := b.OwnerOf(nft); owner != CustodyAccount {
		t.Errorf("owner = %s, want custody", owner.Hex())
	}
	if err := b.Release(ctx, nft, bob); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if owner, _ := b.OwnerOf(nft); owner != bob {
		t.Errorf("owner = %s, want bob", owner.Hex())
	}
}

func TestBank_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.json")
	if b, err := LoadBank(path); b != nil || err != nil {
		t.Fatalf("LoadBank(missing) = %v, %v", b, err)
	}

	b := NewBank()
	b.Mint(model.NativeAsset, alice, d(100))
	b.Mint(token, bob, d(7))
	b.Approve(token, bob, d(5))
	nft := model.NFTRef{Collection: token, TokenID: 3}
	b.MintNFT(nft, alice)
	b.ApproveNFT(nft, true)
	b.Follow(bob, alice)
	if err := b.Pull(context.Background(), model.NativeAsset, alice, d(30)); err != nil {
		t.Fatal(err)
	}
	if err := SaveBank(path, b); err != nil {
		t.Fatalf("SaveBank: %v", err)
	}

	got, err := LoadBank(path)
	if err != nil {
		t.Fatalf("LoadBank: %v", err)
	}
	if v := got.BalanceOf(model.NativeAsset, alice); !v.Equal(d(70)) {
		t.Errorf("alice = %s", v)
	}
	if v := got.Custody(model.NativeAsset); !v.Equal(d(30)) {
		t.Errorf("custody = %s", v)
	}
	if v := got.Allowance(token, bob); !v.Equal(d(5)) {
		t.Errorf("allowance = %s", v)
	}
	if owner, _ := got.OwnerOf(nft); owner != alice || !got.Approved(nft) {
		t.Errorf("nft owner = %s approved = %v", owner.Hex(), got.Approved(nft))
	}
	if ok, _ := got.IsFollower(context.Background(), bob, alice); !ok {
		t.Error("follow lost")
	}
}

func TestBank_PushRejectsNegativeAmount(t *testing.T) {
	ctx := context.Background()
	b := NewBank()
	b.Mint(model.NativeAsset, alice, d(100))
	if err := b.Pull(ctx, model.NativeAsset, alice, d(40)); err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if err := b.Push(ctx, model.NativeAsset, bob, d(-40)); !errorx.Is(err, errorx.Validation) {
		t.Errorf("Push(-40) err = %v, want validation", err)
	}
	if err := b.Push(ctx, model.NativeAsset, bob, decimal.Zero); err != nil {
		t.Errorf("Push(0) err = %v", err)
	}
	if got := b.Custody(model.NativeAsset); !got.Equal(d(40)) {
		t.Errorf("custody = %s, want 40", got)
	}
	if got := b.BalanceOf(model.NativeAsset, bob); !got.IsZero() {
		t.Errorf("bob balance = %s, want 0", got)
	}
}
