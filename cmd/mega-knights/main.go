package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/sync/errgroup"

	"github.com/lixenwraith/mega-knights/audio"
	"github.com/lixenwraith/mega-knights/config"
	"github.com/lixenwraith/mega-knights/core"
	"github.com/lixenwraith/mega-knights/engine"
	"github.com/lixenwraith/mega-knights/event"
	"github.com/lixenwraith/mega-knights/host"
	"github.com/lixenwraith/mega-knights/hud"
	"github.com/lixenwraith/mega-knights/parameter"
	"github.com/lixenwraith/mega-knights/sandbox"
	"github.com/lixenwraith/mega-knights/status"
	"github.com/lixenwraith/mega-knights/store"
)

var (
	debugFlag   = flag.Bool("debug", false, "Write logs to the log directory")
	contentFlag = flag.String("content", "", "Campaign TOML file (embedded default when empty)")
	dayFlag     = flag.Int("day", -2, "Jump to day on launch (-1 resumes)")
	quietFlag   = flag.Bool("quiet", false, "Disable audio cues")
)

var errQuit = errors.New("quit")

func main() {
	defer func() {
		if r := recover(); r != nil {
			core.HandleCrash(r)
		}
	}()

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *debugFlag {
		cfg.Debug = true
	}
	if *contentFlag != "" {
		cfg.ContentPath = *contentFlag
	}
	if *dayFlag >= -1 {
		cfg.StartDay = *dayFlag
	}
	if *quietFlag {
		cfg.Audio = false
	}

	if logFile := setupLogging(cfg.LogDir, cfg.Debug); logFile != nil {
		defer logFile.Close()
	}

	if err := run(cfg); err != nil {
		slog.Error("exit", "component", "main", "error", err)
		fmt.Fprintf(os.Stderr, "mega-knights: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	content, err := config.LoadContent(cfg.ContentPath)
	if err != nil {
		return err
	}
	overrides, err := config.LoadOverrides()
	if err != nil {
		return err
	}
	if err := overrides.Apply(content); err != nil {
		return fmt.Errorf("capacity overrides: %w", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	reg := status.NewRegistry()

	var rt *engine.Runtime
	world := sandbox.New(func(ev event.GameEvent) { rt.Push(ev) })

	// Audio is optional; a missing device leaves cues recorded in the sandbox
	var sound host.SoundPlayer
	cues := audio.NewCuePlayer()
	if cfg.Audio {
		if err := cues.Initialize(); err != nil {
			slog.Warn("continuing without audio", "component", "main", "error", err)
		} else {
			defer cues.Cleanup()
			sound = cues
		}
	}
	h := world.Host(sound)

	displays := []hud.Display{hud.NewActionBar(h)}
	var screen tcell.Screen
	var term *hud.TerminalDisplay
	if cfg.Console {
		screen, err = tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("create screen: %w", err)
		}
		if err := screen.Init(); err != nil {
			return fmt.Errorf("init screen: %w", err)
		}
		core.SetCrashScreen(screen)
		defer func() {
			core.SetCrashScreen(nil)
			screen.Fini()
		}()
		term = hud.NewTerminalDisplay(screen, reg)
		displays = append(displays, term)
	}

	// Store writes outlive the signal context so shutdown can still persist
	rt, err = engine.NewRuntime(context.Background(), engine.Options{
		Content:       content,
		Store:         st,
		Host:          h,
		Registry:      reg,
		MaxOpsPerStep: cfg.MaxOps,
		Displays:      displays,
	})
	if err != nil {
		return err
	}

	// Console commands mutate campaign state, so they run on the step goroutine
	cmds := make(chan func(), parameter.CommandQueueSize)
	submit := func(fn func()) {
		select {
		case cmds <- fn:
		default:
			slog.Warn("command dropped", "component", "main")
		}
	}
	loop := engine.NewLoop(cfg.Step, nil, reg, func() {
		for {
			select {
			case fn := <-cmds:
				fn()
			default:
				rt.Step()
				return
			}
		}
	})

	for i, id := range cfg.Players {
		world.Join(id, id, host.Location{Dimension: "overworld", X: float64(i * 16), Y: 64})
	}
	submit(func() {
		if cfg.StartDay >= 0 {
			rt.Clock.SetDay(cfg.StartDay)
		} else {
			rt.Clock.Start()
		}
		if cfg.Endless {
			rt.Clock.SetEndless(true)
		}
	})

	sk := newSkirmisher(world, rt, content.Siege.Boss)
	loop.Start()
	slog.Info("campaign running", "component", "main", "players", len(cfg.Players), "step", cfg.Step)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(guard(func() error {
		ticker := time.NewTicker(parameter.SkirmishInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				submit(sk.run)
			}
		}
	}))
	if screen != nil {
		g.Go(guard(func() error {
			<-gctx.Done()
			// Unblocks PollEvent
			_ = screen.PostEvent(tcell.NewEventInterrupt(nil))
			return nil
		}))
		g.Go(guard(func() error {
			return pollInput(gctx, screen, term, loop, cues, rt, submit, sk)
		}))
	}

	err = g.Wait()
	loop.Stop()
	for len(cmds) > 0 {
		(<-cmds)()
	}
	rt.Shutdown()

	if errors.Is(err, errQuit) {
		return nil
	}
	return err
}

func openStore(cfg config.Config) (store.Store, error) {
	if cfg.InMemory() {
		return store.NewMemory(), nil
	}
	return store.OpenSQLite(cfg.StorePath)
}

// pollInput handles console keys until quit or ctx is done
func pollInput(ctx context.Context, screen tcell.Screen, term *hud.TerminalDisplay, loop *engine.Loop,
	cues *audio.CuePlayer, rt *engine.Runtime, submit func(func()), sk *skirmisher) error {
	muted := false
	for {
		ev := screen.PollEvent()
		if ev == nil {
			return nil
		}
		switch ev := ev.(type) {
		case *tcell.EventInterrupt:
			if ctx.Err() != nil {
				return nil
			}
		case *tcell.EventResize:
			screen.Sync()
			term.Redraw()
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
				return errQuit
			}
			if ev.Key() != tcell.KeyRune {
				continue
			}
			switch ev.Rune() {
			case 'q':
				return errQuit
			case 'p':
				if loop.IsPaused() {
					loop.Resume()
				} else {
					loop.Pause()
				}
			case 'm':
				muted = !muted
				cues.SetMuted(muted)
			case 'n':
				submit(func() { rt.Clock.SetDay(rt.Clock.Day() + 1) })
			case 'k':
				submit(sk.run)
			case 'r':
				submit(func() {
					if err := rt.Reset(); err != nil {
						slog.Error("reset failed", "component", "main", "error", err)
					}
				})
			}
		}
	}
}

// guard routes a panic in an errgroup goroutine through the crash handler
func guard(fn func() error) func() error {
	return func() error {
		defer func() {
			if r := recover(); r != nil {
				core.HandleCrash(r)
			}
		}()
		return fn()
	}
}

// skirmisher simulates combat against sandbox actors; only used on the step goroutine
type skirmisher struct {
	world  *sandbox.World
	rt     *engine.Runtime
	boss   string
	rng    *rand.Rand
	health float64
}

func newSkirmisher(world *sandbox.World, rt *engine.Runtime, boss string) *skirmisher {
	seed := uint64(time.Now().UnixNano())
	return &skirmisher{
		world:  world,
		rt:     rt,
		boss:   boss,
		rng:    rand.New(rand.NewPCG(seed, seed>>7)),
		health: 1,
	}
}

// run kills a few guards and wears the siege boss down
func (s *skirmisher) run() {
	s.world.Skirmish(s.rng, parameter.SkirmishKills, s.boss)
	if !s.rt.Siege.Active() {
		s.health = 1
		return
	}

	var boss host.ActorHandle
	for _, a := range s.world.Actors(parameter.SiegeOwner) {
		if a.Type == s.boss {
			boss = a.Handle
			break
		}
	}
	if boss == "" {
		return
	}

	s.health -= parameter.BossDamagePerSkirmish
	if s.health <= 0 {
		s.health = 1
		if err := s.world.Kill(boss); err != nil {
			slog.Warn("boss kill failed", "component", "main", "error", err)
		}
		return
	}
	s.world.BossHealth(s.health)
}
