package randomness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// DrandOracle reads the latest beacon from a drand HTTP relay.
type DrandOracle struct {
	Client  *http.Client
	BaseURL string
}

// NewDrandOracle creates a drand oracle for the given relay.
func NewDrandOracle(baseURL, proxyURL string) *DrandOracle {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &DrandOracle{
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		BaseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (d *DrandOracle) Name() string { return "drand" }

// drandBeacon is the response of /public/latest.
type drandBeacon struct {
	Round      uint64 `json:"round"`
	Randomness string `json:"randomness"`
	Signature  string `json:"signature"`
}

func (d *DrandOracle) Fetch(ctx context.Context) (common.Hash, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", d.BaseURL+"/public/latest", nil)
	if err != nil {
		return common.Hash{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.Client.Do(req)
	if err != nil {
		return common.Hash{}, fmt.Errorf("drand fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return common.Hash{}, fmt.Errorf("drand read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return common.Hash{}, fmt.Errorf("drand: status %d, body: %s", resp.StatusCode, string(body))
	}

	var beacon drandBeacon
	if err := json.Unmarshal(body, &beacon); err != nil {
		return common.Hash{}, fmt.Errorf("drand decode: %w", err)
	}
	raw := strings.TrimPrefix(beacon.Randomness, "0x")
	if len(raw) != 64 {
		return common.Hash{}, fmt.Errorf("drand: malformed randomness %q in round %d", beacon.Randomness, beacon.Round)
	}
	return common.HexToHash(raw), nil
}

// SequenceOracle returns fixed words in order, then fails. Used for development and testing.
type SequenceOracle struct {
	Words []common.Hash
	Err   error
	next  int
}

func (s *SequenceOracle) Name() string { return "sequence" }

func (s *SequenceOracle) Fetch(_ context.Context) (common.Hash, error) {
	if s.Err != nil {
		return common.Hash{}, s.Err
	}
	if s.next >= len(s.Words) {
		return common.Hash{}, fmt.Errorf("sequence exhausted after %d words", len(s.Words))
	}
	w := s.Words[s.next]
	s.next++
	return w, nil
}
