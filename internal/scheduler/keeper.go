package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"LotteryHub/internal/errorx"
	"LotteryHub/internal/model"
	"LotteryHub/internal/notifier"

	"github.com/ethereum/go-ethereum/common"
	"github.com/robfig/cron/v3"
)

// Operator is the slice of the platform the keeper drives.
type Operator interface {
	Now() time.Time
	ExecuteWeeklyDraw(ctx context.Context, caller common.Address) (*Round, error)
	ExecuteMonthlyDraw(ctx context.Context, caller common.Address) (*Round, error)
	ExecuteDraw(ctx context.Context, caller common.Address, drawID uint64) (*model.Draw, error)
	CancelDraw(ctx context.Context, caller common.Address, drawID uint64) (*model.Draw, error)
	ClaimExecutorReward(ctx context.Context, caller, asset common.Address) (*model.Claim, error)
	GetActiveDraws(ctx context.Context) ([]*model.Draw, error)
	GetTiming(ctx context.Context, drawID uint64) (*model.Timing, error)
	GetLeaderboard(ctx context.Context, board model.Board, limit int) ([]model.Standing, error)
	GetTreasury(ctx context.Context) (model.TreasuryView, error)
}

// Announcer delivers free-form messages, typically the Telegram notifier.
type Announcer interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Keeper runs the recurring platform rounds and settles user draws nobody else executed.
type Keeper struct {
	Cron      *cron.Cron
	Ops       Operator
	Account   common.Address
	Announcer Announcer
	Ctx       context.Context
}

// NewKeeper creates a keeper acting as account. announcer may be nil.
func NewKeeper(ctx context.Context, ops Operator, account common.Address, announcer Announcer) *Keeper {
	return &Keeper{
		Cron:      cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cron.PrintfLogger(log.Default())))),
		Ops:       ops,
		Account:   account,
		Announcer: announcer,
		Ctx:       ctx,
	}
}

// RegisterAll registers the weekly, monthly and sweep tasks.
func (k *Keeper) RegisterAll(weeklyCron, monthlyCron, sweepCron string) error {
	if _, err := k.Cron.AddFunc(weeklyCron, k.weeklyTask); err != nil {
		return fmt.Errorf("register weekly task: %w", err)
	}
	if _, err := k.Cron.AddFunc(monthlyCron, k.monthlyTask); err != nil {
		return fmt.Errorf("register monthly task: %w", err)
	}
	if _, err := k.Cron.AddFunc(sweepCron, k.sweep); err != nil {
		return fmt.Errorf("register sweep task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (k *Keeper) Start() {
	k.Cron.Start()
	log.Println("[INFO] keeper started")
}

// Stop stops the cron scheduler gracefully.
func (k *Keeper) Stop() {
	<-k.Cron.Stop().Done()
	log.Println("[INFO] keeper stopped")
}

// RunSweepNow settles due user draws immediately (RUN_ON_START).
func (k *Keeper) RunSweepNow() {
	k.sweep()
}

func (k *Keeper) weeklyTask() {
	log.Println("[INFO] running weekly round")
	round, err := k.Ops.ExecuteWeeklyDraw(k.Ctx, k.Account)
	k.logRound("weekly", round, err)
}

func (k *Keeper) monthlyTask() {
	log.Println("[INFO] running monthly round")
	round, err := k.Ops.ExecuteMonthlyDraw(k.Ctx, k.Account)
	k.logRound("monthly", round, err)
}

func (k *Keeper) logRound(name string, round *Round, err error) {
	switch {
	case errorx.Is(err, errorx.Precondition):
		log.Printf("[INFO] %s round not due: %v", name, err)
	case err != nil:
		log.Printf("[ERROR] %s round: %v", name, err)
		k.trySend(fmt.Sprintf("❌ %s round failed: %v", name, err))
	default:
		log.Printf("[INFO] %s round settled id=%d status=%s next=%d",
			name, round.Settled.ID, round.Settled.Status, round.Next.ID)
	}
}

// sweep executes every user draw that is ready and cancels every one that ended unviable,
// then collects the native executor reward earned along the way.
func (k *Keeper) sweep() {
	draws, err := k.Ops.GetActiveDraws(k.Ctx)
	if err != nil {
		log.Printf("[ERROR] sweep list: %v", err)
		return
	}
	var executed, cancelled int
	for _, d := range draws {
		if !d.Kind.IsUser() {
			continue
		}
		t, err := k.Ops.GetTiming(k.Ctx, d.ID)
		if err != nil {
			log.Printf("[ERROR] sweep timing draw=%d: %v", d.ID, err)
			continue
		}
		switch {
		case t.Executable:
			if _, err := k.Ops.ExecuteDraw(k.Ctx, k.Account, d.ID); err != nil {
				log.Printf("[WARN] sweep execute draw=%d: %v", d.ID, err)
				continue
			}
			executed++
		case t.Cancellable:
			if _, err := k.Ops.CancelDraw(k.Ctx, k.Account, d.ID); err != nil {
				log.Printf("[WARN] sweep cancel draw=%d: %v", d.ID, err)
				continue
			}
			cancelled++
		}
	}
	if executed > 0 {
		claim, err := k.Ops.ClaimExecutorReward(k.Ctx, k.Account, model.NativeAsset)
		switch {
		case errorx.Is(err, errorx.NothingToClaim):
		case err != nil:
			log.Printf("[ERROR] claim executor reward: %v", err)
		default:
			log.Printf("[INFO] executor reward collected amount=%s", claim.Amount)
		}
	}
	log.Printf("[INFO] sweep done executed=%d cancelled=%d", executed, cancelled)
}

// HandleCommand processes a chat command and returns a reply.
func (k *Keeper) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return help()
	}
	switch fields[0] {
	case "/draws":
		draws, err := k.Ops.GetActiveDraws(k.Ctx)
		if err != nil {
			return fmt.Sprintf("❌ %v", err)
		}
		return notifier.FormatActiveDraws(draws, k.Ops.Now())
	case "/jackpot":
		v, err := k.Ops.GetTreasury(k.Ctx)
		if err != nil {
			return fmt.Sprintf("❌ %v", err)
		}
		return notifier.FormatTreasury(v)
	case "/leaders":
		board := model.BoardWinners
		if len(fields) > 1 {
			board = model.Board(fields[1])
		}
		rows, err := k.Ops.GetLeaderboard(k.Ctx, board, 10)
		if err != nil {
			return fmt.Sprintf("❌ %v", err)
		}
		return notifier.FormatLeaderboard(board, rows)
	default:
		return help()
	}
}

func help() string {
	return "Available commands:\n• /draws\n• /jackpot\n• /leaders [winners|buyers|creators|executors]"
}

func (k *Keeper) trySend(text string) {
	if k.Announcer == nil {
		return
	}
	if err := k.Announcer.SendWithRetry(k.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
