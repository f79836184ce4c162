package assets

import (
	"context"

	"LotteryHub/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Fungible moves native currency and tokens between accounts and the engine's custody.
// The native currency is addressed by model.NativeAsset.
type Fungible interface {
	BalanceOf(asset, account common.Address) decimal.Decimal
	// Allowance is what owner has approved the engine to pull.
	Allowance(asset, owner common.Address) decimal.Decimal
	// Pull moves amount from an account into custody.
	Pull(ctx context.Context, asset, from common.Address, amount decimal.Decimal) error
	// Push moves amount from custody to an account.
	Push(ctx context.Context, asset, to common.Address, amount decimal.Decimal) error
	Custody(asset common.Address) decimal.Decimal
}

// NonFungible escrows and releases NFT prizes.
type NonFungible interface {
	OwnerOf(nft model.NFTRef) (common.Address, error)
	// Approved reports whether the engine may take the token from its owner.
	Approved(nft model.NFTRef) bool
	Escrow(ctx context.Context, nft model.NFTRef, from common.Address) error
	Release(ctx context.Context, nft model.NFTRef, to common.Address) error
}

// FollowerGate answers the social-graph participation check.
type FollowerGate interface {
	IsFollower(ctx context.Context, follower, target common.Address) (bool, error)
}
