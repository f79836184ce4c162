package notifier

import (
	"fmt"
	"strings"
	"time"

	"LotteryHub/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Decimals is the number of fractional digits of the native asset.
const Decimals = 18

// FormatAmount renders a smallest-unit amount in whole native units.
func FormatAmount(v decimal.Decimal) string {
	return v.Shift(-Decimals).StringFixed(4)
}

func shortAddr(a common.Address) string {
	h := a.Hex()
	return h[:6] + "…" + h[len(h)-4:]
}

// FormatExecution formats a draw execution and its winners into a Telegram message.
func FormatExecution(exec model.Event, winners []model.Event) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🎉 <b>Draw #%d executed</b> | %s\n\n", exec.DrawID, exec.Note))
	b.WriteString(fmt.Sprintf("Prize pool: %s\n", FormatAmount(exec.Amount)))
	b.WriteString(fmt.Sprintf("Executor: %s\n", shortAddr(exec.Account)))
	if len(winners) > 0 {
		b.WriteString("\n🏆 <b>Winners:</b>\n")
		for _, w := range winners {
			if w.Note == "nft" {
				b.WriteString(fmt.Sprintf("  %s: NFT %s#%d\n", shortAddr(w.Account), shortAddr(w.Asset), w.Quantity))
				continue
			}
			b.WriteString(fmt.Sprintf("  #%d %s: %s\n", w.Quantity, shortAddr(w.Account), FormatAmount(w.Amount)))
		}
	}
	return b.String()
}

// FormatCancelled formats a cancellation notice.
func FormatCancelled(e model.Event) string {
	return fmt.Sprintf("⚠️ <b>Draw #%d cancelled</b> (%s)\n\n%d tickets sold. Buyers can claim a full refund.", e.DrawID, e.Note, e.Quantity)
}

// FormatActiveDraws lists open draws with their remaining time.
func FormatActiveDraws(draws []*model.Draw, now time.Time) string {
	if len(draws) == 0 {
		return "No active draws."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🎟 <b>Active draws</b> | %s\n\n", now.Format("2006-01-02 15:04")))
	for _, d := range draws {
		left := "ended"
		if now.Before(d.EndTime) {
			left = d.EndTime.Sub(now).Truncate(time.Minute).String()
		}
		b.WriteString(fmt.Sprintf("#%d %s: %d/%d sold, price %s, %s\n",
			d.ID, d.Kind, d.TicketsSold, d.MaxTickets, FormatAmount(d.TicketPrice), left))
	}
	return b.String()
}

// FormatLeaderboard formats a leaderboard snapshot.
func FormatLeaderboard(board model.Board, rows []model.Standing) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 <b>Top %s</b>\n\n", board))
	if len(rows) == 0 {
		b.WriteString("Nobody yet.")
		return b.String()
	}
	for _, r := range rows {
		b.WriteString(fmt.Sprintf("%d. %s %s (%d)\n", r.Rank, shortAddr(r.Account), FormatAmount(r.Value), r.Count))
	}
	return b.String()
}

// FormatTreasury formats the jackpot and the native fee accumulator.
func FormatTreasury(v model.TreasuryView) string {
	var b strings.Builder
	b.WriteString("💰 <b>Treasury</b>\n\n")
	b.WriteString(fmt.Sprintf("Jackpot: %s\n", FormatAmount(v.Jackpot)))
	b.WriteString(fmt.Sprintf("Platform fees: %s\n", FormatAmount(v.PlatformFees[model.NativeAsset])))
	if n := len(v.PlatformFees); n > 1 {
		b.WriteString(fmt.Sprintf("(+%d token accounts)\n", n-1))
	}
	return b.String()
}
