package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/ssgo/internal/arena"
	"github.com/udisondev/ssgo/internal/broker"
	"github.com/udisondev/ssgo/internal/config"
	"github.com/udisondev/ssgo/internal/mainloop"
	"github.com/udisondev/ssgo/internal/model"
	"github.com/udisondev/ssgo/internal/persist/pgstore"
	"github.com/udisondev/ssgo/internal/player"
	"github.com/udisondev/ssgo/internal/rules/ball"
	"github.com/udisondev/ssgo/internal/rules/flag"
	"github.com/udisondev/ssgo/internal/rules/freqman"
	"github.com/udisondev/ssgo/internal/rules/killpoints"
	"github.com/udisondev/ssgo/internal/rules/koth"
	"github.com/udisondev/ssgo/internal/rules/periodic"
	"github.com/udisondev/ssgo/internal/rules/speed"
	"github.com/udisondev/ssgo/internal/scoring"
	"github.com/udisondev/ssgo/internal/stats"
)

const (
	GlobalConfigPath    = "config/global.yaml"
	ArenaBaseConfigPath = "config/arenas/base.yaml"
	ArenaOverridesDir   = "config/arenas/conf.d"
)

// Process exit codes the startup supervisor distinguishes: 0 clean
// shutdown, 1 recycle (supervisor should restart us), 2 general error,
// 3 out of memory, 4 module-config error, 5 module-load error. Any
// other code reaching the supervisor is treated as a plain error exit.
const (
	exitShutdown          = 0
	exitRecycle           = 1
	exitGeneralError      = 2
	exitOutOfMemory       = 3
	exitModuleConfigError = 4
	exitModuleLoadError   = 5
)

// configError and loadError let run distinguish the exit code main
// should use without the rest of the call chain needing to know about
// os.Exit.
type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

type loadError struct{ err error }

func (e *loadError) Error() string { return e.err.Error() }
func (e *loadError) Unwrap() error { return e.err }

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	err := run(ctx)
	switch {
	case err == nil:
		os.Exit(exitShutdown)
	default:
		slog.Error("fatal", "err", err)
		var cfgErr *configError
		var ldErr *loadError
		switch {
		case errors.As(err, &cfgErr):
			os.Exit(exitModuleConfigError)
		case errors.As(err, &ldErr):
			os.Exit(exitModuleLoadError)
		default:
			os.Exit(exitGeneralError)
		}
	}
}

func run(ctx context.Context) error {
	logLevel := parseLogLevel(os.Getenv("SSGO_LOG_LEVEL"))
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	globalCfgPath := GlobalConfigPath
	if p := os.Getenv("SSGO_GLOBAL_CONFIG"); p != "" {
		globalCfgPath = p
	}
	globalCfg, err := config.LoadGlobal(globalCfgPath)
	if err != nil {
		return &configError{fmt.Errorf("loading global config: %w", err)}
	}

	arenaBasePath := ArenaBaseConfigPath
	if p := os.Getenv("SSGO_ARENA_BASE_CONFIG"); p != "" {
		arenaBasePath = p
	}
	arenaOverridesDir := ArenaOverridesDir
	if p := os.Getenv("SSGO_ARENA_OVERRIDES_DIR"); p != "" {
		arenaOverridesDir = p
	}

	// Stats:AdditionalIntervals names reset boundaries beyond the three
	// built-in ones; registering them here (once, at startup, before any
	// arena or player stat store exists) is what makes stats.Interval
	// values for those names valid to increment/persist against.
	for _, name := range globalCfg.AdditionalIntervalNames() {
		iv := stats.RegisterInterval(name)
		slog.Info("registered additional stats interval", "name", name, "interval", iv)
	}

	slog.Info("zone server starting", "log_level", logLevel)

	dsn := os.Getenv("SSGO_DATABASE_DSN")
	if dsn == "" {
		return &configError{fmt.Errorf("SSGO_DATABASE_DSN is not set")}
	}

	if err := pgstore.RunMigrations(ctx, dsn); err != nil {
		return &loadError{fmt.Errorf("running persist migrations: %w", err)}
	}
	slog.Info("persist migrations applied")

	store, err := pgstore.New(ctx, dsn)
	if err != nil {
		return &loadError{fmt.Errorf("connecting persist store: %w", err)}
	}
	defer store.Close()
	slog.Info("persist store connected")

	registry := player.NewRegistry()
	loop := mainloop.New()
	globalBroker := broker.New("global")

	playersInArena := func(arenaName string) []*player.Player {
		var out []*player.Player
		registry.Lock()
		registry.InArena(arenaName, func(p *player.Player) bool {
			out = append(out, p)
			return true
		})
		registry.Unlock()
		return out
	}
	playerCount := func(arenaName string) int {
		return len(playersInArena(arenaName))
	}

	// flagModules lets killpoints and periodic ask "how many flags does
	// this freq hold in this arena" without importing the flag package's
	// concrete Module type: each arena gets its own flag.Module instance
	// from RegisterModule's factory, and flagModuleHook below is the only
	// thing that learns which instance belongs to which arena.
	var flagModules flagModuleIndex
	flagCount := func(arenaName string, freq model.Freq) int {
		m, ok := flagModules.get(arenaName)
		if !ok {
			return 0
		}
		n := 0
		for _, rec := range m.Flags() {
			if rec.OwnerFreq == freq {
				n++
			}
		}
		return n
	}

	manager := arena.NewManager(globalBroker, loop, arenaBasePath, arenaOverridesDir, playerCount)

	manager.RegisterModule(func() arena.Module { return &freqman.EnforcerModule{} })
	manager.RegisterModule(func() arena.Module { return ball.NewModule(playersInArena) })
	manager.RegisterModule(func() arena.Module {
		return &flagModuleHook{Module: flag.NewModule(playersInArena), index: &flagModules}
	})
	manager.RegisterModule(func() arena.Module { return koth.NewModule(loop, playersInArena) })
	manager.RegisterModule(func() arena.Module { return speed.NewModule(loop, playersInArena) })
	manager.RegisterModule(func() arena.Module { return periodic.NewModule(loop, playersInArena, flagCount) })
	manager.RegisterModule(func() arena.Module { return killpoints.NewModule(flagCount) })

	send := func(p *player.Player, packet []byte) {
		slog.Debug("send packet (no transport wired)", "player", p.ID(), "bytes", len(packet))
	}
	scoringSvc := scoring.NewService(registry, send)
	manager.RegisterModule(func() arena.Module { return &scoringHook{svc: scoringSvc} })

	manager.StartIdleReap()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting mainloop", "tick", mainloop.Tick)
		if err := loop.Run(gctx); err != nil {
			return fmt.Errorf("mainloop: %w", err)
		}
		return nil
	})

	// No UDP listener is wired here: accepting connections, decoding the
	// wire protocol off the network, and routing packets to player
	// sessions is the external transport layer this core is built to
	// sit behind. This goroutine exists so the process has the same
	// errgroup-supervised shutdown shape it would have once that
	// listener is added.
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("zone server stopped")
	return nil
}

// flagModuleIndex maps a live arena's name to its flag.Module instance,
// populated by flagModuleHook on attach/detach. A plain mutex-guarded
// map rather than sync.Map since updates are rare (one per arena
// create/destroy) and reads happen on the kill/periodic hot path.
type flagModuleIndex struct {
	mu      sync.Mutex
	byArena map[string]*flag.Module
}

func (idx *flagModuleIndex) get(arenaName string) (*flag.Module, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.byArena == nil {
		return nil, false
	}
	m, ok := idx.byArena[arenaName]
	return m, ok
}

func (idx *flagModuleIndex) set(arenaName string, m *flag.Module) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.byArena == nil {
		idx.byArena = make(map[string]*flag.Module)
	}
	idx.byArena[arenaName] = m
}

func (idx *flagModuleIndex) delete(arenaName string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.byArena, arenaName)
}

// flagModuleHook wraps a freshly constructed flag.Module so attaching
// it to an arena also records it in the shared index, and detaching
// removes it. Embedding promotes Name/Flags/etc. untouched; only
// AttachModule/Detach are overridden.
type flagModuleHook struct {
	*flag.Module
	index *flagModuleIndex
}

func (h *flagModuleHook) AttachModule(a *arena.Arena) error {
	if err := h.Module.AttachModule(a); err != nil {
		return err
	}
	h.index.set(a.Name(), h.Module)
	return nil
}

func (h *flagModuleHook) Detach(a *arena.Arena) {
	h.index.delete(a.Name())
	h.Module.Detach(a)
}

// scoringHook attaches the scoring Service's Reset-interval-end handler
// to each arena's broker. One fresh instance per arena (via its
// RegisterModule factory) so Detach unregisters only that arena's
// callback token.
type scoringHook struct {
	svc   *scoring.Service
	token broker.CallbackToken
}

func (h *scoringHook) Name() string { return "scoring" }

func (h *scoringHook) AttachModule(a *arena.Arena) error {
	h.token = h.svc.RegisterIntervalEndHandler(a.Broker())
	return nil
}

func (h *scoringHook) Detach(a *arena.Arena) {
	broker.UnregisterCallback(h.token)
}

// parseLogLevel converts a string log level to slog.Level, defaulting
// to Info if invalid or empty.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
