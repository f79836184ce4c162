package lottery

import (
	"bytes"
	"sort"

	"LotteryHub/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// mintCredits records monthly credits for an account and enters the same weight into the
// monthly draw that is currently open.
func (e *Engine) mintCredits(env model.Env, account common.Address, c model.Credits) {
	n := c.Total()
	if n == 0 {
		return
	}
	e.store.AddCredits(account, c)
	e.store.Emit(model.Event{Type: model.EventCreditsMinted, Account: account, Quantity: n, At: env.Now})
	e.EnterMonthly(env, account, n)
}

// EnterMonthly adds free weight to the open monthly draw. Weight beyond the draw's capacity or
// after it closed is dropped; the credits themselves stay on the account.
func (e *Engine) EnterMonthly(env model.Env, account common.Address, weight uint64) {
	id := e.store.Schedule().MonthlyID
	if id == 0 || weight == 0 {
		return
	}
	d, err := e.store.Draw(id)
	if err != nil || d.Status != model.StatusActive || !env.Now.Before(d.EndTime) {
		return
	}
	if left := d.MaxTickets - d.TicketsSold; weight > left {
		weight = left
	}
	if weight == 0 {
		return
	}
	d.TicketsSold += weight
	if d.Full() {
		d.Status = model.StatusAwaitingExecution
	}
	if err := e.store.PutDraw(d); err != nil {
		return
	}
	e.store.AddPurchase(model.Purchase{DrawID: d.ID, Buyer: account, Quantity: weight, Cost: decimal.Zero, Timestamp: env.Now})
}

// Credits returns an account's monthly credits.
func (e *Engine) Credits(account common.Address) model.Credits {
	return e.store.Credits(account)
}

// CarryCredits enters every credit holder into a freshly opened monthly draw.
func (e *Engine) CarryCredits(env model.Env) {
	holders := e.store.CreditHolders()
	accounts := make([]common.Address, 0, len(holders))
	for a := range holders {
		accounts = append(accounts, a)
	}
	sort.Slice(accounts, func(i, j int) bool { return bytes.Compare(accounts[i][:], accounts[j][:]) < 0 })
	for _, a := range accounts {
		e.EnterMonthly(env, a, holders[a].Total())
	}
}
