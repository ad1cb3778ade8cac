package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/2vg/CounterStrikeSharp/internal/config"
	"github.com/2vg/CounterStrikeSharp/internal/core/event"
	coresys "github.com/2vg/CounterStrikeSharp/internal/core/system"
	"github.com/2vg/CounterStrikeSharp/internal/core/tick"
	"github.com/2vg/CounterStrikeSharp/internal/data"
	"github.com/2vg/CounterStrikeSharp/internal/handler"
	gonet "github.com/2vg/CounterStrikeSharp/internal/net"
	"github.com/2vg/CounterStrikeSharp/internal/net/packet"
	"github.com/2vg/CounterStrikeSharp/internal/persist"
	"github.com/2vg/CounterStrikeSharp/internal/scripting"
	"github.com/2vg/CounterStrikeSharp/internal/systems"
	"github.com/2vg/CounterStrikeSharp/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              csshost  v0.1.0              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m     tick-scheduled game server host       \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s\n\n", serverName)
}

func printSection(title string) {
	lineLen := 45 - len(title)
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("CSSHOST_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name)

	// 3. Connect to PostgreSQL and run migrations
	printSection("database")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	printOK("PostgreSQL connected")

	if err := persist.RunMigrations(ctx, db.Pool); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	printOK("migrations applied")
	fmt.Println()

	// 4. Repositories
	accountRepo := persist.NewAccountRepo(db)
	playerRepo := persist.NewPlayerRepo(db)

	// 5. Core loop state: clock, scheduler, event bus, world
	sched := tick.NewScheduler()
	clock := tick.NewClock()
	bus := event.NewBus()
	worldState := world.NewState(cfg.Server.MaxPlayers)
	sessions := systems.NewSessionTable()

	// 5a. Load announcements and arm them on the scheduler
	printSection("data")

	announceTable, err := data.LoadAnnouncements("data/yaml/announcements.yaml")
	if err != nil {
		return fmt.Errorf("load announcements: %w", err)
	}
	armed := armAnnouncements(sched, clock, announceTable, sessions)
	printStat("announcements", armed)

	// 5b. Lua scripting engine
	luaEngine, err := scripting.NewEngine(cfg.Scripting.Dir, sched, clock, worldState, bus, log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer luaEngine.Close()
	luaEngine.SetBroadcast(sessions.BroadcastMessage)
	printStat("lua scripts", luaEngine.Files())

	var watcher *scripting.Watcher
	if cfg.Scripting.HotReload {
		watcher, err = scripting.NewWatcher(luaEngine, log)
		if err != nil {
			return fmt.Errorf("script watcher: %w", err)
		}
		defer watcher.Close()
		go watcher.Run()
		printOK("hot reload watching " + cfg.Scripting.Dir)
	}
	fmt.Println()

	// 5c. Event subscriptions: world events drive the Lua hooks
	event.Subscribe(bus, func(ev event.PlayerConnected) {
		luaEngine.OnPlayerConnect(ev.Slot, ev.Name)
	})
	event.Subscribe(bus, func(ev event.PlayerDisconnected) {
		luaEngine.OnPlayerDisconnect(ev.Slot, ev.Name)
	})
	event.Subscribe(bus, func(ev event.ScriptsReloaded) {
		sessions.BroadcastMessage("scripts reloaded")
	})

	// 6. Packet handler registry
	pktReg := packet.NewRegistry(log)
	deps := &handler.Deps{
		Cfg:      cfg,
		World:    worldState,
		Accounts: accountRepo,
		Players:  playerRepo,
		Sessions: sessions,
		Sched:    sched,
		Clock:    clock,
		Bus:      bus,
		Log:      log,
	}
	handler.RegisterAll(pktReg, deps)

	// 7. Network server
	netServer, err := gonet.NewServer(cfg.Network, cfg.RateLimit, log)
	if err != nil {
		return fmt.Errorf("net server: %w", err)
	}
	go netServer.AcceptLoop()

	// 8. Systems
	runner := coresys.NewRunner()
	runner.Register(systems.NewInputSystem(
		netServer, sessions, pktReg, worldState, bus,
		playerRepo, accountRepo,
		cfg.Network.MaxPacketsPerTick, log,
	))
	runner.Register(systems.NewDeferredSystem(sched, clock, log))
	runner.Register(systems.NewOutputSystem(sessions))
	persistSys := systems.NewPersistenceSystem(
		worldState, playerRepo, clock, int64(cfg.Persist.SaveIntervalTicks), log,
	)
	runner.Register(persistSys)

	// 9. Game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Network.TickRate)
	defer ticker.Stop()

	printSection("server ready")
	printReady("listening on " + netServer.Addr().String())
	printReady(fmt.Sprintf("game loop started (tick: %s)", cfg.Network.TickRate))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			// Events emitted during tick N are delivered at the start of N+1.
			bus.SwapBuffers()
			bus.DispatchAll()
			runner.Tick(cfg.Network.TickRate)
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			netServer.Shutdown()

			saveCtx, saveCancel := context.WithTimeout(context.Background(), 30*time.Second)
			persistSys.SaveAll(saveCtx)
			saveCancel()

			log.Info("server stopped", zap.Int64("final_tick", clock.Current()))
			return nil
		}
	}
}

// armAnnouncements schedules each announcement's first firing. Repeating
// announcements re-arm themselves from inside their own callback.
func armAnnouncements(sched *tick.Scheduler, clock *tick.Clock, table *data.AnnouncementTable, sessions *systems.SessionTable) int {
	armed := 0
	for _, a := range table.All() {
		a := a
		first := a.AfterTicks
		if first <= 0 {
			first = a.EveryTicks
		}
		if first <= 0 {
			continue
		}
		var fire func()
		fire = func() {
			sessions.BroadcastMessage(a.Message)
			if a.EveryTicks > 0 {
				sched.Schedule(clock.Current()+a.EveryTicks, fire)
			}
		}
		sched.Schedule(clock.Current()+first, fire)
		armed++
	}
	return armed
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
