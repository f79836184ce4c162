package lottery

import (
	"LotteryHub/internal/errorx"
	"LotteryHub/internal/model"
	"LotteryHub/internal/treasury"

	"github.com/ethereum/go-ethereum/common"
)

// MaxWinners bounds the winner slots of tiered and split draws.
const MaxWinners = 32

func validateCreate(p CreateParams, env model.Env) error {
	if !p.Kind.IsUser() {
		return errorx.New(errorx.Validation, "draw kind %s cannot be created by users", p.Kind)
	}
	if p.MaxTickets == 0 {
		return errorx.New(errorx.Validation, "max tickets must be positive")
	}
	if p.Duration <= 0 {
		return errorx.New(errorx.Validation, "duration must be positive")
	}
	if !p.TicketPrice.IsPositive() || !p.TicketPrice.IsInteger() {
		return errorx.New(errorx.Validation, "ticket price must be a positive integer amount")
	}
	if p.MinParticipants > p.MaxTickets {
		return errorx.New(errorx.Validation, "min participants %d exceeds max tickets %d", p.MinParticipants, p.MaxTickets)
	}
	if p.GracePeriod < 0 {
		return errorx.New(errorx.Validation, "grace period must not be negative")
	}
	if p.Contribution.IsNegative() || !p.Contribution.IsInteger() {
		return errorx.New(errorx.Validation, "contribution must be a non-negative integer amount")
	}

	switch p.Kind {
	case model.KindUserNative:
		if p.Asset != model.NativeAsset {
			return errorx.New(errorx.Validation, "native draws take no asset address")
		}
		if !env.Value.Equal(p.Contribution) {
			return errorx.New(errorx.InsufficientFunds, "attached %s, declared contribution %s", env.Value, p.Contribution)
		}
	case model.KindUserToken:
		if p.Asset == model.NativeAsset {
			return errorx.New(errorx.Validation, "token draws need a token address")
		}
		if env.Value.IsPositive() {
			return errorx.New(errorx.Validation, "token draws do not accept native value")
		}
	case model.KindUserNFT:
		if p.Asset != model.NativeAsset {
			return errorx.New(errorx.Validation, "nft draws sell tickets in the native asset")
		}
		if len(p.NFTs) == 0 {
			return errorx.New(errorx.Validation, "nft draws need at least one nft")
		}
		if p.Prize.Model != model.PrizeCreatorFunded && p.Prize.Model != model.PrizeTieredPercentage {
			return errorx.New(errorx.Validation, "nft draws use the creator-funded or tiered model, got %s", p.Prize.Model)
		}
		if p.Contribution.IsPositive() || env.Value.IsPositive() {
			return errorx.New(errorx.Validation, "nft draws take no fungible contribution")
		}
	}
	if p.Kind != model.KindUserNFT && len(p.NFTs) > 0 {
		return errorx.New(errorx.Validation, "only nft draws hold nfts")
	}
	seen := make(map[model.NFTRef]bool, len(p.NFTs))
	for _, nft := range p.NFTs {
		if nft.Collection == (common.Address{}) {
			return errorx.New(errorx.Validation, "nft collection must be set")
		}
		if seen[nft] {
			return errorx.New(errorx.Validation, "nft %s#%d listed twice", nft.Collection.Hex(), nft.TokenID)
		}
		seen[nft] = true
	}

	if p.Requirement.Kind != model.RequirementNone && p.Requirement.Kind != model.RequirementFollower {
		return errorx.New(errorx.Validation, "unknown participation requirement %d", p.Requirement.Kind)
	}
	return validatePrize(p.Prize, p.MaxTickets, p.Contribution.IsPositive() || len(p.NFTs) > 0, seen)
}

func validatePrize(pc model.PrizeConfig, maxTickets uint64, funded bool, nfts map[model.NFTRef]bool) error {
	switch pc.Model {
	case model.PrizeCreatorFunded:
		if !funded {
			return errorx.New(errorx.Validation, "creator-funded draws need a contribution or nfts")
		}
	case model.PrizeParticipantFunded:
	case model.PrizePercentage:
		if pc.PrizeShareBps == 0 || pc.PrizeShareBps > treasury.BpsDenominator {
			return errorx.New(errorx.Validation, "prize share %d bps out of range", pc.PrizeShareBps)
		}
	case model.PrizeTieredPercentage:
		if len(pc.Tiers) == 0 || len(pc.Tiers) > MaxWinners {
			return errorx.New(errorx.Validation, "tiered draws need 1 to %d tiers, got %d", MaxWinners, len(pc.Tiers))
		}
		if uint64(len(pc.Tiers)) > maxTickets {
			return errorx.New(errorx.Validation, "%d tiers exceed %d tickets", len(pc.Tiers), maxTickets)
		}
		var sum uint32
		bound := make(map[model.NFTRef]bool)
		for i, t := range pc.Tiers {
			if t.ShareBps > treasury.BpsDenominator {
				return errorx.New(errorx.Validation, "tier %d share %d bps out of range", i, t.ShareBps)
			}
			sum += t.ShareBps
			if t.NFT == nil {
				continue
			}
			if !nfts[*t.NFT] {
				return errorx.New(errorx.Validation, "tier %d binds an nft outside the draw", i)
			}
			if bound[*t.NFT] {
				return errorx.New(errorx.Validation, "tier %d binds an nft already bound", i)
			}
			bound[*t.NFT] = true
		}
		if sum != treasury.BpsDenominator {
			return errorx.New(errorx.Validation, "tier shares sum to %d bps, want %d", sum, treasury.BpsDenominator)
		}
	case model.PrizeSplitEqually:
		if pc.Winners == 0 || pc.Winners > MaxWinners {
			return errorx.New(errorx.Validation, "split draws need 1 to %d winners, got %d", MaxWinners, pc.Winners)
		}
		if uint64(pc.Winners) > maxTickets {
			return errorx.New(errorx.Validation, "%d winners exceed %d tickets", pc.Winners, maxTickets)
		}
	default:
		return errorx.New(errorx.Validation, "unknown prize model %d", pc.Model)
	}
	return nil
}
