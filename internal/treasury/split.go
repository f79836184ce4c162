package treasury

import (
	"LotteryHub/internal/errorx"
	"LotteryHub/internal/model"

	"github.com/shopspring/decimal"
)

// BpsDenominator is 100% in basis points.
const BpsDenominator = 10000

var bpsDen = decimal.NewFromInt(BpsDenominator)

// MulBps returns floor(amount * bps / 10000).
func MulBps(amount decimal.Decimal, bps uint32) decimal.Decimal {
	q, _ := amount.Mul(decimal.NewFromInt(int64(bps))).QuoRem(bpsDen, 0)
	return q
}

// DivFloor returns floor(amount / n) and the remainder.
func DivFloor(amount decimal.Decimal, n int64) (decimal.Decimal, decimal.Decimal) {
	return amount.QuoRem(decimal.NewFromInt(n), 0)
}

// Split divides the gross of one purchase. It reads d.Sales to keep the executor accrual under
// the per-draw cap and never mutates d. The five parts always sum to gross.
func Split(gross decimal.Decimal, d *model.Draw, fees model.FeeSchedule) model.FeeSplit {
	s := model.FeeSplit{
		PlatformFee:    MulBps(gross, fees.PlatformBps),
		ExecutorReward: MulBps(gross, fees.ExecutorBps),
		CreatorRevenue: decimal.Zero,
		Jackpot:        decimal.Zero,
	}
	if fees.ExecutorCap.IsPositive() {
		room := fees.ExecutorCap.Sub(d.Sales.ExecutorReward)
		if room.IsNegative() {
			room = decimal.Zero
		}
		if s.ExecutorReward.GreaterThan(room) {
			s.ExecutorReward = room
		}
	}
	if d.Kind == model.KindUserNative {
		s.Jackpot = MulBps(gross, fees.JackpotBps)
	}

	r := gross.Sub(s.PlatformFee).Sub(s.ExecutorReward).Sub(s.Jackpot)
	switch {
	case d.Kind.IsPlatform():
		s.NetPool = r
	case d.Kind == model.KindUserNFT || d.Prize.Model == model.PrizeCreatorFunded:
		s.CreatorRevenue = r
		s.NetPool = decimal.Zero
	case d.Prize.Model == model.PrizePercentage:
		s.NetPool = MulBps(r, d.Prize.PrizeShareBps)
		s.CreatorRevenue = r.Sub(s.NetPool)
	default:
		s.CreatorRevenue = MulBps(r, fees.CreatorBps)
		s.NetPool = r.Sub(s.CreatorRevenue)
	}
	return s
}

// ValidateFees rejects schedules that could take more than the gross.
func ValidateFees(f model.FeeSchedule) error {
	for name, bps := range map[string]uint32{
		"platform": f.PlatformBps,
		"executor": f.ExecutorBps,
		"creator":  f.CreatorBps,
		"jackpot":  f.JackpotBps,
	} {
		if bps > BpsDenominator {
			return errorx.New(errorx.Validation, "%s fee %d bps exceeds %d", name, bps, BpsDenominator)
		}
	}
	if f.PlatformBps+f.ExecutorBps+f.JackpotBps > BpsDenominator {
		return errorx.New(errorx.Validation, "platform, executor and jackpot fees exceed %d bps together", BpsDenominator)
	}
	if f.ExecutorCap.IsNegative() {
		return errorx.New(errorx.Validation, "executor cap must not be negative")
	}
	return nil
}
