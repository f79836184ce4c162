package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"LotteryHub/internal/assets"
	"LotteryHub/internal/config"
	"LotteryHub/internal/ledger"
	"LotteryHub/internal/model"
	"LotteryHub/internal/notifier"
	"LotteryHub/internal/platform"
	"LotteryHub/internal/randomness"
	"LotteryHub/internal/recorder"
	"LotteryHub/internal/scheduler"
	"LotteryHub/internal/statistics"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] LotteryHub starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.StateFile), 0755); err != nil {
		log.Fatalf("[FATAL] create state dir: %v", err)
	}

	// Init asset bank, restoring balances next to the ledger state
	bankFile := bankPath(cfg.StateFile)
	bank, err := assets.LoadBank(bankFile)
	if err != nil {
		log.Fatalf("[FATAL] load bank: %v", err)
	}
	if bank == nil {
		bank = assets.NewBank()
		for _, g := range cfg.Genesis {
			amount, _ := decimal.NewFromString(g.Amount)
			bank.Mint(model.NativeAsset, common.HexToAddress(g.Account), amount)
		}
		log.Printf("[INFO] bank seeded with %d genesis balances", len(cfg.Genesis))
	}

	// Init randomness
	var oracle randomness.Oracle
	if cfg.Randomness.DrandURL != "" {
		oracle = randomness.NewDrandOracle(cfg.Randomness.DrandURL, cfg.Proxy)
		log.Printf("[INFO] randomness source: %s", oracle.Name())
	} else {
		log.Println("[WARN] no randomness oracle configured, every draw uses the fallback")
	}

	// Init platform
	p, err := platform.New(platform.Options{
		Owner:     cfg.OwnerAddress(),
		Settings:  cfg.Settings(),
		Plans:     plans(cfg),
		StateFile: cfg.StateFile,
	}, platform.Backends{
		Funds:        bank,
		NFTs:         bank,
		Gate:         bank,
		Randomness:   randomness.NewProvider(oracle, cfg.Randomness.Timeout),
		Participants: []ledger.Transactional{bank},
		Savers:       []func() error{func() error { return assets.SaveBank(bankFile, bank) }},
	})
	if err != nil {
		log.Fatalf("[FATAL] init platform: %v", err)
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}
	p.AddSink(&recorder.Sink{Recorder: rec, Lookup: p.GetDraw})

	// Optional leaderboard mirror
	if cfg.Redis.Addr != "" {
		sets, err := statistics.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Printf("[WARN] redis unavailable, leaderboard mirror disabled: %v", err)
		} else {
			p.AddSink(statistics.NewRedisMirror(sets, cfg.Redis.Prefix))
			log.Printf("[INFO] leaderboard mirror: redis %s", cfg.Redis.Addr)
		}
	}

	// Init Telegram notifier
	var tn *notifier.TelegramNotifier
	if cfg.Telegram.BotToken != "" {
		tn, err = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		if err != nil {
			log.Printf("[WARN] telegram disabled: %v", err)
			tn = nil
		} else {
			p.AddSink(tn)
		}
	}

	// Open the recurring draws
	if st, err := p.InitializeScheduler(ctx, cfg.OwnerAddress()); err != nil {
		log.Printf("[WARN] initialize scheduler: %v", err)
	} else {
		log.Printf("[INFO] scheduler initialized weekly=%d monthly=%d", st.WeeklyID, st.MonthlyID)
	}

	// Init keeper
	var announcer scheduler.Announcer
	if tn != nil {
		announcer = tn
	}
	keeper := scheduler.NewKeeper(ctx, p, cfg.KeeperAddress(), announcer)
	if err := keeper.RegisterAll(cfg.Schedule.WeeklyCron, cfg.Schedule.MonthlyCron, cfg.Schedule.SweepCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	keeper.Start()
	defer keeper.Stop()

	// Start Telegram polling
	if tn != nil {
		go tn.StartPolling(ctx, keeper.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	// Optional: settle due draws immediately
	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, running sweep now")
		go keeper.RunSweepNow()
	}

	log.Println("[INFO] LotteryHub is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] LotteryHub stopped")
}

func bankPath(stateFile string) string {
	return filepath.Join(filepath.Dir(stateFile), "bank_state.json")
}

func plans(cfg *config.Config) scheduler.Plans {
	p := scheduler.DefaultPlans()
	apply := func(dst *scheduler.Plan, src config.DrawPlan) {
		if src.TicketPrice != "" {
			dst.TicketPrice, _ = decimal.NewFromString(src.TicketPrice)
		}
		dst.MaxTickets = src.MaxTickets
		dst.MinParticipants = src.MinParticipants
		dst.Duration = src.Duration
		dst.GracePeriod = src.GracePeriod
		dst.JackpotShareBps = src.JackpotShareBps
	}
	apply(&p.Weekly, cfg.Draws.Weekly)
	apply(&p.Monthly, cfg.Draws.Monthly)
	return p
}
