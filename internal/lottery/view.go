package lottery

import (
	"LotteryHub/internal/model"

	"github.com/ethereum/go-ethereum/common"
)

func (e *Engine) Draw(id uint64) (*model.Draw, error) {
	return e.store.Draw(id)
}

// Timing derives the time-dependent view of a draw at env.Now.
func (e *Engine) Timing(env model.Env, id uint64) (*model.Timing, error) {
	d, err := e.store.Draw(id)
	if err != nil {
		return nil, err
	}
	return TimingOf(d, env), nil
}

// TimingOf reports the effective status: an Active draw past its end that reached its minimum
// is AwaitingExecution.
func TimingOf(d *model.Draw, env model.Env) *model.Timing {
	t := &model.Timing{
		DrawID:        d.ID,
		StartTime:     d.StartTime,
		EndTime:       d.EndTime,
		GraceDeadline: d.GraceDeadline(),
		Status:        d.Status,
	}
	if env.Now.Before(d.EndTime) {
		t.Remaining = d.EndTime.Sub(env.Now)
	}
	ended := !env.Now.Before(d.EndTime)
	if d.Status == model.StatusActive && ended && d.Viable() {
		t.Status = model.StatusAwaitingExecution
	}
	t.Executable = Executable(d, env) == nil
	t.Cancellable = !d.Status.Final() && ended && !d.Viable()
	return t
}

func (e *Engine) Participants(id uint64) ([]model.Participant, error) {
	if _, err := e.store.Draw(id); err != nil {
		return nil, err
	}
	return e.store.Participants(id), nil
}

// ActiveDraws lists every draw that is neither executed nor cancelled.
func (e *Engine) ActiveDraws() []*model.Draw {
	var out []*model.Draw
	for _, d := range e.store.Draws() {
		if !d.Status.Final() {
			out = append(out, d)
		}
	}
	return out
}

// AccountDraws lists the draws an account created or entered.
func (e *Engine) AccountDraws(account common.Address) []*model.Draw {
	ids := e.store.AccountDraws(account)
	out := make([]*model.Draw, 0, len(ids))
	for _, id := range ids {
		if d, err := e.store.Draw(id); err == nil {
			out = append(out, d)
		}
	}
	return out
}

// PendingSummary lists everything the account can claim right now.
func (e *Engine) PendingSummary(account common.Address) *model.ClaimSummary {
	s := &model.ClaimSummary{
		Account:  account,
		Balances: e.store.PendingOf(account),
		NFTs:     e.store.PendingNFTs(account),
	}
	for _, id := range e.store.AccountDraws(account) {
		d, err := e.store.Draw(id)
		if err != nil || d.Status != model.StatusCancelled || e.store.Refunded(id, account) {
			continue
		}
		if amount, nfts := e.refundOf(d, account); amount.IsPositive() || len(nfts) > 0 {
			s.Refundable = append(s.Refundable, id)
		}
	}
	return s
}
