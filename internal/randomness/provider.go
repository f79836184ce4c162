package randomness

import (
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"math/big"
	"time"

	"LotteryHub/internal/errorx"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Oracle is an external source of random words.
type Oracle interface {
	Fetch(ctx context.Context) (common.Hash, error)
	Name() string
}

// State is the part of the ledger the provider reads and advances.
type State interface {
	NextNonce() uint64
	LastRandom() common.Hash
	SetLastRandom(h common.Hash)
}

// Request identifies what a random value is drawn for.
type Request struct {
	Caller common.Address
	DrawID uint64
	Now    time.Time
}

// Result is one random value and whether it came from the local fallback.
type Result struct {
	Value    common.Hash
	Fallback bool
	Source   string
}

// Provider wraps an oracle with a deterministic local fallback.
type Provider struct {
	oracle  Oracle
	timeout time.Duration
}

// NewProvider creates a provider. A nil oracle means every value comes from the fallback.
func NewProvider(oracle Oracle, timeout time.Duration) *Provider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Provider{oracle: oracle, timeout: timeout}
}

// Next returns the next random value. When the oracle fails the value is derived from the
// previous one; with allowFallback unset that case is an error instead.
func (p *Provider) Next(ctx context.Context, st State, req Request, allowFallback bool) (Result, error) {
	nonce := st.NextNonce()

	if p.oracle != nil {
		fctx, cancel := context.WithTimeout(ctx, p.timeout)
		word, err := p.oracle.Fetch(fctx)
		cancel()
		if err == nil {
			v := mix(word, req, nonce)
			st.SetLastRandom(v)
			return Result{Value: v, Source: p.oracle.Name()}, nil
		}
		if !allowFallback {
			return Result{}, errorx.New(errorx.Randomness, "oracle %s: %v", p.oracle.Name(), err)
		}
		log.Printf("[WARN] randomness oracle %s failed, using fallback: %v", p.oracle.Name(), err)
	} else if !allowFallback {
		return Result{}, errorx.New(errorx.Randomness, "no oracle configured and fallback disabled")
	}

	v := mix(st.LastRandom(), req, nonce)
	st.SetLastRandom(v)
	return Result{Value: v, Fallback: true, Source: "fallback"}, nil
}

func mix(word common.Hash, req Request, nonce uint64) common.Hash {
	return crypto.Keccak256Hash(
		word.Bytes(),
		req.Caller.Bytes(),
		u64(req.DrawID),
		u64(uint64(req.Now.Unix())),
		u64(nonce),
	)
}

// InRange maps a random value onto [0, n). n must be positive.
func InRange(v common.Hash, n uint64) uint64 {
	if n == 0 {
		panic(fmt.Sprintf("randomness: empty range for %s", v.Hex()))
	}
	m := new(big.Int).SetUint64(n)
	return new(big.Int).Mod(v.Big(), m).Uint64()
}

// Derive re-hashes a value with a slot and attempt, giving independent values from one word.
func Derive(v common.Hash, slot, attempt uint64) common.Hash {
	return crypto.Keccak256Hash(v.Bytes(), u64(slot), u64(attempt))
}

func u64(n uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], n)
	return b[:]
}
