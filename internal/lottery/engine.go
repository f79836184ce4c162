package lottery

import (
	"context"
	"log"
	"math"
	"math/big"
	"math/bits"
	"time"

	"LotteryHub/internal/assets"
	"LotteryHub/internal/errorx"
	"LotteryHub/internal/ledger"
	"LotteryHub/internal/model"
	"LotteryHub/internal/randomness"
	"LotteryHub/internal/treasury"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Deps are the collaborators of an Engine. Store is the single owned ledger; every other
// component reads and writes through it.
type Deps struct {
	Store      *ledger.Store
	Funds      assets.Fungible
	NFTs       assets.NonFungible
	Gate       assets.FollowerGate
	Randomness *randomness.Provider
	Treasury   *treasury.Treasury
	Owner      func() common.Address
}

// Engine runs the draw lifecycle: create, sell, execute, cancel, refund and claim.
// It is not safe for concurrent use; callers serialize operations and wrap each one in a
// ledger transaction.
type Engine struct {
	store    *ledger.Store
	funds    assets.Fungible
	nfts     assets.NonFungible
	gate     assets.FollowerGate
	rand     *randomness.Provider
	treasury *treasury.Treasury
	owner    func() common.Address
}

func New(d Deps) *Engine {
	return &Engine{
		store:    d.Store,
		funds:    d.Funds,
		nfts:     d.NFTs,
		gate:     d.Gate,
		rand:     d.Randomness,
		treasury: d.Treasury,
		owner:    d.Owner,
	}
}

// CreateParams describes a user draw.
type CreateParams struct {
	Kind            model.DrawKind
	Asset           common.Address // token for UserToken draws
	TicketPrice     decimal.Decimal
	MaxTickets      uint64
	Duration        time.Duration
	MinParticipants uint64
	GracePeriod     time.Duration
	Prize           model.PrizeConfig
	Requirement     model.Requirement
	NFTs            []model.NFTRef
	// Contribution is the creator funding declared for the prize pool. Native draws must attach
	// exactly this value; token draws must have approved at least this much.
	Contribution decimal.Decimal
}

// CreateDraw validates p, escrows the creator's funding and opens a new user draw.
func (e *Engine) CreateDraw(ctx context.Context, env model.Env, p CreateParams) (*model.Draw, error) {
	if e.store.Settings().Paused {
		return nil, errorx.ErrPaused
	}
	if err := validateCreate(p, env); err != nil {
		return nil, err
	}

	// Funding is proven before anything is allocated.
	if p.Contribution.IsPositive() {
		asset := model.NativeAsset
		if p.Kind == model.KindUserToken {
			asset = p.Asset
			if allowed := e.funds.Allowance(asset, env.Caller); allowed.LessThan(p.Contribution) {
				return nil, errorx.New(errorx.InsufficientFunds, "allowance %s below contribution %s", allowed, p.Contribution)
			}
		}
		if err := e.funds.Pull(ctx, asset, env.Caller, p.Contribution); err != nil {
			return nil, err
		}
	}
	for _, nft := range p.NFTs {
		owner, err := e.nfts.OwnerOf(nft)
		if err != nil {
			return nil, err
		}
		if owner != env.Caller {
			return nil, errorx.New(errorx.Unauthorized, "nft %s#%d is not owned by the creator", nft.Collection.Hex(), nft.TokenID)
		}
		if !e.nfts.Approved(nft) {
			return nil, errorx.New(errorx.InsufficientFunds, "nft %s#%d is not approved for escrow", nft.Collection.Hex(), nft.TokenID)
		}
		if err := e.nfts.Escrow(ctx, nft, env.Caller); err != nil {
			return nil, err
		}
	}

	req := p.Requirement
	if req.Kind == model.RequirementFollower && req.Target == (common.Address{}) {
		req.Target = env.Caller
	}
	asset := model.NativeAsset
	if p.Kind == model.KindUserToken {
		asset = p.Asset
	}
	d := &model.Draw{
		ID:              e.store.AllocateDrawID(),
		Kind:            p.Kind,
		Creator:         env.Caller,
		Asset:           asset,
		TicketPrice:     p.TicketPrice,
		MaxTickets:      p.MaxTickets,
		MinParticipants: p.MinParticipants,
		StartTime:       env.Now,
		EndTime:         env.Now.Add(p.Duration),
		GracePeriod:     p.GracePeriod,
		Prize:           p.Prize,
		Requirement:     req,
		NFTs:            append([]model.NFTRef(nil), p.NFTs...),
		Contribution:    p.Contribution,
		Status:          model.StatusActive,
	}
	if err := e.store.PutDraw(d); err != nil {
		return nil, err
	}
	e.store.Emit(model.Event{
		Type: model.EventDrawCreated, DrawID: d.ID, Account: d.Creator, Asset: d.Asset,
		Amount: d.Contribution, Quantity: d.MaxTickets, Note: d.Kind.String(), At: env.Now,
	})
	e.mintCredits(env, env.Caller, model.Credits{FromDrawCreation: e.store.Settings().Credits.PerDrawCreation})

	log.Printf("[INFO] draw created id=%d kind=%s creator=%s price=%s max=%d model=%s",
		d.ID, d.Kind, d.Creator.Hex(), d.TicketPrice, d.MaxTickets, d.Prize.Model)
	return d, nil
}

// OpenPlatformDraw opens a weekly or monthly draw on behalf of the scheduler.
func (e *Engine) OpenPlatformDraw(env model.Env, d *model.Draw) (*model.Draw, error) {
	if !d.Kind.IsPlatform() {
		return nil, errorx.New(errorx.Validation, "%s is not a platform draw kind", d.Kind)
	}
	if d.MaxTickets == 0 {
		return nil, errorx.New(errorx.Validation, "max tickets must be positive")
	}
	if !d.EndTime.After(d.StartTime) {
		return nil, errorx.New(errorx.Validation, "end time must be after start time")
	}
	d.ID = e.store.AllocateDrawID()
	d.Status = model.StatusActive
	if err := e.store.PutDraw(d); err != nil {
		return nil, err
	}
	e.store.Emit(model.Event{
		Type: model.EventDrawCreated, DrawID: d.ID, Account: d.Creator, Asset: d.Asset,
		Quantity: d.MaxTickets, Note: d.Kind.String(), At: env.Now,
	})
	log.Printf("[INFO] platform draw opened id=%d kind=%s ends=%s", d.ID, d.Kind, d.EndTime.Format(time.RFC3339))
	return d, nil
}

// BuyTickets sells quantity tickets of a draw to the caller. The participation requirement is
// checked before any value moves; the fee split is escrowed on the draw.
func (e *Engine) BuyTickets(ctx context.Context, env model.Env, drawID, quantity uint64) (*model.Purchase, error) {
	settings := e.store.Settings()
	if settings.Paused {
		return nil, errorx.ErrPaused
	}
	if quantity == 0 {
		return nil, errorx.New(errorx.Validation, "quantity must be positive")
	}
	d, err := e.store.Draw(drawID)
	if err != nil {
		return nil, err
	}
	if d.Kind == model.KindPlatformMonthly {
		return nil, errorx.New(errorx.Precondition, "monthly draw %d is entered with credits only", d.ID)
	}
	if d.Status != model.StatusActive {
		return nil, errorx.New(errorx.Precondition, "draw %d is %s", d.ID, d.Status)
	}
	if !env.Now.Before(d.EndTime) {
		return nil, errorx.New(errorx.Precondition, "draw %d ended at %s", d.ID, d.EndTime.Format(time.RFC3339))
	}
	if quantity > d.MaxTickets-d.TicketsSold {
		return nil, errorx.New(errorx.Precondition, "draw %d has %d tickets left", d.ID, d.MaxTickets-d.TicketsSold)
	}
	if err := e.checkRequirement(ctx, d, env.Caller); err != nil {
		return nil, err
	}

	cost := d.TicketPrice.Mul(decimal.NewFromBigInt(new(big.Int).SetUint64(quantity), 0))
	if d.Asset == model.NativeAsset {
		if env.Value.LessThan(cost) {
			return nil, errorx.New(errorx.InsufficientFunds, "attached %s, tickets cost %s", env.Value, cost)
		}
		if env.Value.GreaterThan(cost) {
			return nil, errorx.New(errorx.Validation, "attached %s, tickets cost exactly %s", env.Value, cost)
		}
	} else if !env.Value.IsZero() {
		return nil, errorx.New(errorx.Validation, "token draw %d does not accept native value", d.ID)
	}
	if err := e.funds.Pull(ctx, d.Asset, env.Caller, cost); err != nil {
		return nil, err
	}

	split := treasury.Split(cost, d, settings.Fees)
	d.Sales = d.Sales.Add(split)
	d.TicketsSold += quantity
	if d.Full() {
		d.Status = model.StatusAwaitingExecution
	}
	if err := e.store.PutDraw(d); err != nil {
		return nil, err
	}
	purchase := model.Purchase{DrawID: d.ID, Buyer: env.Caller, Quantity: quantity, Cost: cost, Timestamp: env.Now}
	e.store.AddPurchase(purchase)
	e.store.AddStat(model.BoardBuyers, env.Caller, cost, quantity)

	e.store.Emit(model.Event{
		Type: model.EventTicketsPurchased, DrawID: d.ID, Account: env.Caller, Asset: d.Asset,
		Amount: cost, Quantity: quantity, At: env.Now,
	})
	if d.Status == model.StatusAwaitingExecution {
		e.store.Emit(model.Event{Type: model.EventDrawFilled, DrawID: d.ID, Quantity: d.TicketsSold, At: env.Now})
	}

	switch {
	case d.Kind == model.KindPlatformWeekly:
		e.mintCredits(env, env.Caller, model.Credits{FromWeeklyPurchase: perTicket(settings.Credits.PerWeeklyTicket, quantity)})
	case d.Kind.IsUser():
		e.mintCredits(env, env.Caller, model.Credits{FromParticipation: perTicket(settings.Credits.PerUserTicket, quantity)})
	}

	log.Printf("[INFO] tickets purchased draw=%d buyer=%s qty=%d cost=%s sold=%d/%d",
		d.ID, env.Caller.Hex(), quantity, cost, d.TicketsSold, d.MaxTickets)
	return &purchase, nil
}

// perTicket multiplies a per-ticket credit rate, saturating at the uint64 maximum.
func perTicket(rate, quantity uint64) uint64 {
	if hi, lo := bits.Mul64(rate, quantity); hi == 0 {
		return lo
	}
	return math.MaxUint64
}

func (e *Engine) checkRequirement(ctx context.Context, d *model.Draw, buyer common.Address) error {
	switch d.Requirement.Kind {
	case model.RequirementNone:
		return nil
	case model.RequirementFollower:
		if e.gate == nil {
			return errorx.New(errorx.Precondition, "no follower gate configured for draw %d", d.ID)
		}
		ok, err := e.gate.IsFollower(ctx, buyer, d.Requirement.Target)
		if err != nil {
			return err
		}
		if !ok {
			return errorx.New(errorx.Unauthorized, "%s does not follow %s", buyer.Hex(), d.Requirement.Target.Hex())
		}
		return nil
	}
	return errorx.New(errorx.Validation, "unknown participation requirement %d", d.Requirement.Kind)
}
