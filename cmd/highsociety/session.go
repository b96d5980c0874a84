package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/udisondev/highsociety/internal/config"
	"github.com/udisondev/highsociety/internal/event"
	"github.com/udisondev/highsociety/internal/game/overworld"
	"github.com/udisondev/highsociety/internal/game/progression"
	runpkg "github.com/udisondev/highsociety/internal/game/run"
	"github.com/udisondev/highsociety/internal/game/upgrade"
	"github.com/udisondev/highsociety/internal/gamestate"
	"github.com/udisondev/highsociety/internal/model"
)

// errQuit stops the game loop on a quit command or closed input.
var errQuit = errors.New("quit")

// session wires one save slot to the run systems and drives them from a
// single goroutine. Only save may be called from another goroutine.
type session struct {
	cfg     config.Game
	out     io.Writer
	repo    gamestate.Repository
	history gamestate.RunHistory

	bus      *event.Bus
	state    *gamestate.GameState
	prog     *progression.System
	ups      *upgrade.Manager
	resolver *runpkg.Resolver
	player   *model.Player
	upkeep   *overworld.UpkeepClock
	rng      *rand.Rand

	ctrl       *overworld.Controller
	unlistenOW func()
	unsubs     []func()
}

func newSession(ctx context.Context, cfg config.Game, repo gamestate.Repository, history gamestate.RunHistory, out io.Writer) (*session, error) {
	save, err := gamestate.Load(ctx, repo, cfg.Storage.Slot)
	if err != nil {
		return nil, fmt.Errorf("loading save: %w", err)
	}
	slog.Info("save loaded",
		"slot", save.Slot,
		"level", save.Progression.Level,
		"xp", save.Progression.XP,
		"day", save.Upkeep.Day)

	s := &session{
		cfg:     cfg,
		out:     out,
		repo:    repo,
		history: history,
		bus:     event.NewBus(),
		state:   gamestate.New(save),
		rng:     newRand(cfg.Run.Seed),
	}
	s.prog = progression.NewSystem(s.bus, s.state)
	s.ups = upgrade.NewManager(upgradeConfig(cfg.Run), s.bus, s.state, s.prog)
	s.resolver = runpkg.NewResolver(s.bus, s.ups, history, save.Slot)
	s.upkeep = overworld.NewUpkeepClock(cfg.Run.HourLength.Milliseconds(), s.state, s.bus)

	s.player = model.NewPlayer("wanderer", model.NewPosition(cfg.Run.WorldWidth/2, cfg.Run.WorldHeight/2))
	s.player.SetBuffSources(s.ups, s.prog)
	s.ups.SetHealer(s.player)
	s.prog.SetHealer(s.player)

	s.unsubs = append(s.unsubs,
		s.prog.Listen(),
		s.resolver.Listen(ctx),
		s.bus.SubscribeAll(s.report),
	)
	return s, nil
}

func (s *session) close() {
	if s.unlistenOW != nil {
		s.unlistenOW()
	}
	for _, unsub := range s.unsubs {
		unsub()
	}
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func upgradeConfig(r config.Run) upgrade.Config {
	return upgrade.Config{
		ExtractionXPPerUpgrade: r.ExtractionXPPerUpgrade,
		RegenIntervalMs:        r.RegenInterval.Milliseconds(),
	}
}

func overworldConfig(r config.Run) overworld.Config {
	return overworld.Config{
		WorldWidth:     r.WorldWidth,
		WorldHeight:    r.WorldHeight,
		ZonePad:        r.ZonePad,
		ZoneCooldownMs: r.ZoneCooldown.Milliseconds(),
		ArrivalInset:   r.ArrivalInset,
		ArrivalJitter:  r.ArrivalJitter,
		HourLengthMs:   r.HourLength.Milliseconds(),
		Orbs: overworld.OrbConfig{
			LifetimeMs:    r.OrbLifetime.Milliseconds(),
			Radius:        r.OrbRadius,
			PickupDelayMs: r.OrbPickupDelay.Milliseconds(),
		},
	}
}

// inOverworld reports whether a visit is in progress.
func (s *session) inOverworld() bool {
	return s.ctrl != nil
}

// enter starts a visit. The upgrade run state carries over between visits.
func (s *session) enter(visit overworld.Visit) {
	s.ctrl = overworld.NewController(overworldConfig(s.cfg.Run), visit, s.bus, s.ups, s.player, s.upkeep, s.rng)
	s.unlistenOW = s.ctrl.Listen()
}

// tick advances everything by one frame.
func (s *session) tick(deltaMs int64) {
	s.prog.Update(deltaMs)
	if s.ctrl == nil {
		return
	}
	if t, done := s.ctrl.Update(deltaMs); done {
		s.settle(t)
	}
}

// settle acts on a resolved visit: continue into the next map or return to town.
func (s *session) settle(t overworld.Transition) {
	if s.unlistenOW != nil {
		s.unlistenOW()
		s.unlistenOW = nil
	}
	s.ctrl = nil

	if next, ok := t.Next(); ok {
		s.printf("you press on %s (depth %d)\n", t.Exit, next.Depth)
		s.enter(next)
		return
	}
	if t.ReturnsToTown() {
		s.player.ResetVitals()
		s.printf("back in town after %s (%s)\n", formatDuration(t.RunTimeMs), t.Outcome)
	}
}

func (s *session) save(ctx context.Context) error {
	return gamestate.Save(ctx, s.repo, s.state.Snapshot())
}

// loop runs frames at the given interval and executes console lines between them.
func (s *session) loop(ctx context.Context, lines <-chan string, frame time.Duration) error {
	if frame <= 0 {
		frame = 16 * time.Millisecond
	}
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			delta := now.Sub(last).Milliseconds()
			if delta <= 0 {
				continue
			}
			last = last.Add(time.Duration(delta) * time.Millisecond)
			s.tick(delta)
		case line, ok := <-lines:
			if !ok {
				return errQuit
			}
			if s.handle(ctx, line) {
				return errQuit
			}
		}
	}
}

func (s *session) autosave(ctx context.Context, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.save(ctx); err != nil {
				slog.Error("autosave", "err", err)
				continue
			}
			slog.Debug("autosaved", "slot", s.state.Slot())
		}
	}
}

// report prints the notifications a player would see as HUD toasts.
func (s *session) report(e event.Event) {
	switch e := e.(type) {
	case event.UpgradeGained:
		s.printf("+ %s (x%d)\n", e.Name, e.Stacks)
	case event.UpgradeMaxed:
		s.printf("%s is already maxed (x%d)\n", e.Name, e.Stacks)
	case event.UpgradeExpired:
		s.printf("%s wore off\n", e.Name)
	case event.UpgradesLost:
		s.printf("you lost %d upgrades (%s)\n", e.Count, e.Reason)
	case event.ExtractionBonus:
		s.printf("extraction bonus: %d XP for %d upgrades\n", e.BonusXP, e.Upgrades)
	case event.XPGained:
		s.printf("+%d XP (%s)\n", e.Amount, e.Source)
	case event.PlayerLeveled:
		s.printf("level up! now level %d, %d ability points\n", e.Level, e.AbilityPoints)
	case event.AbilityUnlocked:
		s.printf("unlocked %s, %d points left\n", e.Name, e.RemainingPoints)
	case event.PlayerDied:
		s.printf("you died at depth %d\n", e.Depth)
	case event.ExtractionSucceeded:
		s.printf("extracted through the %s edge\n", e.Direction)
	case event.RunFled:
		s.printf("you fled the run\n")
	case event.UpkeepWarning:
		s.printf("you are starving or parched (hunger %d, thirst %d)\n", e.Hunger, e.Thirst)
	}
}

func (s *session) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func formatDuration(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).Round(time.Second).String()
}
