package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"LotteryHub/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// DrawPlan is the YAML form of a recurring platform draw.
type DrawPlan struct {
	TicketPrice     string        `yaml:"ticket_price"`
	MaxTickets      uint64        `yaml:"max_tickets"`
	MinParticipants uint64        `yaml:"min_participants"`
	Duration        time.Duration `yaml:"duration"`
	GracePeriod     time.Duration `yaml:"grace_period"`
	JackpotShareBps uint32        `yaml:"jackpot_share_bps"`
}

// Genesis seeds the in-memory bank with a native balance.
type Genesis struct {
	Account string `yaml:"account"`
	Amount  string `yaml:"amount"`
}

// Config holds all application configuration.
type Config struct {
	Owner  string `yaml:"owner"`
	Keeper string `yaml:"keeper"`

	Fees struct {
		model.FeeSchedule `yaml:",inline"`
		ExecutorCap       string `yaml:"executor_cap"`
	} `yaml:"fees"`
	Credits model.CreditPolicy `yaml:"credits"`

	Draws struct {
		Weekly  DrawPlan `yaml:"weekly"`
		Monthly DrawPlan `yaml:"monthly"`
	} `yaml:"draws"`
	Schedule struct {
		WeeklyCron  string `yaml:"weekly_cron"`
		MonthlyCron string `yaml:"monthly_cron"`
		SweepCron   string `yaml:"sweep_cron"`
	} `yaml:"schedule"`
	Randomness struct {
		DrandURL string        `yaml:"drand_url"`
		Fallback *bool         `yaml:"fallback"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"randomness"`

	StateFile string `yaml:"state_file"`
	Database  struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Proxy   string    `yaml:"proxy"`
	Genesis []Genesis `yaml:"genesis"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("LOTTERY_OWNER"); v != "" {
		cfg.Owner = v
	}
	if v := os.Getenv("LOTTERY_KEEPER"); v != "" {
		cfg.Keeper = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Telegram.ChatID = id
		}
	}
	if v := os.Getenv("DRAND_URL"); v != "" {
		cfg.Randomness.DrandURL = v
	}
	if v := os.Getenv("RANDOMNESS_FALLBACK"); v != "" {
		if on, err := strconv.ParseBool(v); err == nil {
			cfg.Randomness.Fallback = &on
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("CRON_WEEKLY"); v != "" {
		cfg.Schedule.WeeklyCron = v
	}
	if v := os.Getenv("CRON_MONTHLY"); v != "" {
		cfg.Schedule.MonthlyCron = v
	}
	if v := os.Getenv("STATE_FILE"); v != "" {
		cfg.StateFile = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}

	// Defaults
	if cfg.Fees.PlatformBps == 0 && cfg.Fees.ExecutorBps == 0 && cfg.Fees.CreatorBps == 0 && cfg.Fees.JackpotBps == 0 {
		cfg.Fees.PlatformBps, cfg.Fees.ExecutorBps, cfg.Fees.CreatorBps, cfg.Fees.JackpotBps = 250, 100, 500, 200
	}
	if cfg.Credits == (model.CreditPolicy{}) {
		cfg.Credits = model.CreditPolicy{PerWeeklyTicket: 1, PerDrawCreation: 5, PerUserTicket: 1}
	}
	if cfg.Draws.Weekly.TicketPrice == "" {
		cfg.Draws.Weekly.TicketPrice = "10000000000000000"
	}
	if cfg.Draws.Weekly.MaxTickets == 0 {
		cfg.Draws.Weekly.MaxTickets = 100000
	}
	if cfg.Draws.Weekly.Duration == 0 {
		cfg.Draws.Weekly.Duration = 7 * 24 * time.Hour
	}
	if cfg.Draws.Weekly.JackpotShareBps == 0 {
		cfg.Draws.Weekly.JackpotShareBps = 1000
	}
	if cfg.Draws.Monthly.MaxTickets == 0 {
		cfg.Draws.Monthly.MaxTickets = 1 << 40
	}
	if cfg.Draws.Monthly.Duration == 0 {
		cfg.Draws.Monthly.Duration = 30 * 24 * time.Hour
	}
	for _, p := range []*DrawPlan{&cfg.Draws.Weekly, &cfg.Draws.Monthly} {
		if p.MinParticipants == 0 {
			p.MinParticipants = 1
		}
		if p.GracePeriod == 0 {
			p.GracePeriod = 24 * time.Hour
		}
	}
	if cfg.Schedule.WeeklyCron == "" {
		cfg.Schedule.WeeklyCron = "0 0 20 * * 0"
	}
	if cfg.Schedule.MonthlyCron == "" {
		cfg.Schedule.MonthlyCron = "0 0 21 1 * *"
	}
	if cfg.Schedule.SweepCron == "" {
		cfg.Schedule.SweepCron = "0 */5 * * * *"
	}
	if cfg.Randomness.Fallback == nil {
		on := true
		cfg.Randomness.Fallback = &on
	}
	if cfg.Randomness.Timeout == 0 {
		cfg.Randomness.Timeout = 5 * time.Second
	}
	if cfg.StateFile == "" {
		cfg.StateFile = "data/lottery_state.json"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/lottery_hub.db"
	}
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "lotteryhub"
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if !common.IsHexAddress(c.Owner) {
		return fmt.Errorf("owner must be a hex address")
	}
	if c.Keeper != "" && !common.IsHexAddress(c.Keeper) {
		return fmt.Errorf("keeper must be a hex address")
	}
	if c.Fees.PlatformBps+c.Fees.ExecutorBps+c.Fees.CreatorBps+c.Fees.JackpotBps > 10000 {
		return fmt.Errorf("fees must not exceed 10000 bps in total")
	}
	if _, err := c.executorCap(); err != nil {
		return err
	}
	for name, p := range map[string]DrawPlan{"weekly": c.Draws.Weekly, "monthly": c.Draws.Monthly} {
		if p.TicketPrice != "" {
			if _, err := decimal.NewFromString(p.TicketPrice); err != nil {
				return fmt.Errorf("draws.%s.ticket_price: %w", name, err)
			}
		}
		if p.JackpotShareBps > 10000 {
			return fmt.Errorf("draws.%s.jackpot_share_bps must not exceed 10000", name)
		}
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == 0 {
		return fmt.Errorf("telegram.chat_id is required with a bot token")
	}
	for i, g := range c.Genesis {
		if !common.IsHexAddress(g.Account) {
			return fmt.Errorf("genesis[%d].account must be a hex address", i)
		}
		if _, err := decimal.NewFromString(g.Amount); err != nil {
			return fmt.Errorf("genesis[%d].amount: %w", i, err)
		}
	}
	return nil
}

func (c *Config) executorCap() (decimal.Decimal, error) {
	if c.Fees.ExecutorCap == "" {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(c.Fees.ExecutorCap)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fees.executor_cap: %w", err)
	}
	return v, nil
}

// OwnerAddress is the platform owner. KeeperAddress falls back to it.
func (c *Config) OwnerAddress() common.Address { return common.HexToAddress(c.Owner) }

func (c *Config) KeeperAddress() common.Address {
	if c.Keeper == "" {
		return c.OwnerAddress()
	}
	return common.HexToAddress(c.Keeper)
}

// Settings builds the ledger settings applied on a fresh start. Call after Validate.
func (c *Config) Settings() model.Settings {
	fees := c.Fees.FeeSchedule
	fees.ExecutorCap, _ = c.executorCap()
	return model.Settings{
		Fees:               fees,
		Credits:            c.Credits,
		RandomnessFallback: *c.Randomness.Fallback,
	}
}
