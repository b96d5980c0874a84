package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/udisondev/highsociety/internal/data"
	"github.com/udisondev/highsociety/internal/event"
	"github.com/udisondev/highsociety/internal/game/overworld"
	"github.com/udisondev/highsociety/internal/game/progression"
	"github.com/udisondev/highsociety/internal/model"
)

const defaultRunsShown = 5

// where a command may be used.
type where uint8

const (
	anywhere where = iota
	townOnly
	overworldOnly
)

type command struct {
	usage string
	help  string
	where where
	run   func(s *session, ctx context.Context, args []string) error
}

var errUsage = errors.New("usage")

// commands is filled in init: cmdHelp reads it.
var commands map[string]command

func init() {
	commands = map[string]command{
		"help":      {usage: "help", help: "list commands", run: (*session).cmdHelp},
		"status":    {usage: "status", help: "show vitals, level, upkeep and upgrades", run: (*session).cmdStatus},
		"enter":     {usage: "enter [north|south|east|west]", help: "leave town for the overworld", where: townOnly, run: (*session).cmdEnter},
		"go":        {usage: "go <north|south|east|west>", help: "walk into a boundary strip", where: overworldOnly, run: (*session).cmdGo},
		"move":      {usage: "move <x> <y>", help: "walk to a point", where: overworldOnly, run: (*session).cmdMove},
		"orb":       {usage: "orb [upgrade]", help: "drop an upgrade orb at your feet", where: overworldOnly, run: (*session).cmdOrb},
		"kill":      {usage: "kill [melee|ranger|guard]", help: "defeat an enemy next to you", where: overworldOnly, run: (*session).cmdKill},
		"damage":    {usage: "damage <amount>", help: "take a hit", where: overworldOnly, run: (*session).cmdDamage},
		"flee":      {usage: "flee", help: "abandon the run and keep your upgrades", where: overworldOnly, run: (*session).cmdFlee},
		"reward":    {usage: "reward <cache|trade|discover|objective>", help: "earn a non-combat XP reward", run: (*session).cmdReward},
		"abilities": {usage: "abilities", help: "list abilities you can buy", run: (*session).cmdAbilities},
		"unlock":    {usage: "unlock <ability>", help: "spend ability points", run: (*session).cmdUnlock},
		"runs":      {usage: "runs [n]", help: "show recent runs", run: (*session).cmdRuns},
		"save":      {usage: "save", help: "write the save slot now", run: (*session).cmdSave},
		"quit":      {usage: "quit", help: "save and exit"},
	}
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// readLines feeds console lines to the game loop. The channel closes on EOF.
func readLines(r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			ch <- sc.Text()
		}
	}()
	return ch
}

// handle executes one console line and reports whether the session should end.
func (s *session) handle(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	name := strings.ToLower(fields[0])
	cmd, ok := commands[name]
	if !ok {
		if guess, found := data.Suggest(name, commandNames()); found {
			s.printf("unknown command %q, did you mean %q?\n", name, guess)
		} else {
			s.printf("unknown command %q, try 'help'\n", name)
		}
		return false
	}
	if name == "quit" {
		return true
	}

	switch {
	case cmd.where == townOnly && s.inOverworld():
		s.printf("%s only works in town\n", name)
		return false
	case cmd.where == overworldOnly && !s.inOverworld():
		s.printf("%s only works in the overworld, 'enter' first\n", name)
		return false
	}

	if err := cmd.run(s, ctx, fields[1:]); err != nil {
		if errors.Is(err, errUsage) {
			s.printf("usage: %s\n", cmd.usage)
		} else {
			s.printf("%v\n", err)
		}
	}
	return false
}

func (s *session) cmdHelp(_ context.Context, _ []string) error {
	for _, name := range commandNames() {
		cmd := commands[name]
		s.printf("  %-40s %s\n", cmd.usage, cmd.help)
	}
	return nil
}

func (s *session) cmdStatus(_ context.Context, _ []string) error {
	p := s.player
	s.printf("HP %d/%d  stamina %.0f/%.0f  dash %d/%d  damage %d\n",
		p.Health(), p.MaxHealth(), p.Stamina(), p.MaxStamina(), p.DashCharges(), p.MaxDashCharges(), p.PrimaryDamage())

	st := s.prog.State()
	next := "max"
	if st.XPForNextLevel >= 0 {
		next = strconv.FormatInt(st.XPForNextLevel, 10)
	}
	s.printf("level %d  XP %d (next %s, %.0f%%)  ability points %d\n",
		st.Level, st.XP, next, st.XPProgress*100, st.AbilityPoints)

	u := s.state.Upkeep()
	s.printf("day %d %02d:00  hunger %d  thirst %d  sleep %d  gold %d\n",
		u.Day, u.Hour, u.Hunger, u.Thirst, u.Sleep, s.state.Gold())

	if mods := s.state.ActiveModifiers(); len(mods) > 0 {
		for _, m := range mods {
			if m.Timed {
				s.printf("  %s x%d (%s left)\n", m.Name, m.Stacks, formatDuration(m.RemainingMs))
				continue
			}
			s.printf("  %s x%d\n", m.Name, m.Stacks)
		}
	} else {
		s.printf("  no run upgrades\n")
	}

	if s.ctrl == nil {
		s.printf("in town\n")
		return nil
	}
	v := s.ctrl.Visit()
	pos := p.Position()
	s.printf("overworld depth %d, entered %s, at (%.0f, %.0f), run time %s, %d orbs nearby\n",
		v.Depth, v.Entry, pos.X, pos.Y, formatDuration(s.ctrl.RunTimeMs()), len(s.ctrl.Orbs()))
	return nil
}

func (s *session) cmdEnter(_ context.Context, args []string) error {
	entry := overworld.DirNone
	if len(args) > 0 {
		dir, err := overworld.ParseDirection(args[0])
		if err != nil {
			return err
		}
		entry = dir
	}
	s.enter(overworld.Visit{Entry: entry})
	return nil
}

func (s *session) cmdGo(_ context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	dir, err := overworld.ParseDirection(args[0])
	if err != nil {
		return err
	}
	if dir == overworld.DirNone {
		return errUsage
	}
	if !s.ctrl.ZoneReady(dir) {
		return fmt.Errorf("the %s edge is not passable yet", dir)
	}
	if t, done := s.ctrl.Cross(dir); done {
		s.settle(t)
	}
	return nil
}

func (s *session) cmdMove(_ context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	x, errX := strconv.ParseFloat(args[0], 64)
	y, errY := strconv.ParseFloat(args[1], 64)
	if errX != nil || errY != nil {
		return errUsage
	}
	x = min(max(x, 0), s.cfg.Run.WorldWidth)
	y = min(max(y, 0), s.cfg.Run.WorldHeight)
	s.player.SetPosition(model.NewPosition(x, y))
	return nil
}

func (s *session) cmdOrb(_ context.Context, args []string) error {
	kind := ""
	if len(args) > 0 {
		k, err := data.UpgradeByID(args[0])
		if err != nil {
			return err
		}
		kind = k.ID
	}
	orb := s.ctrl.SpawnOrb(s.player.Position(), kind)
	s.printf("an orb of %s glimmers at your feet\n", orb.KindID)
	return nil
}

func (s *session) cmdKill(_ context.Context, args []string) error {
	enemy := data.EnemyMelee
	if len(args) > 0 {
		enemy = strings.ToLower(args[0])
	}
	known := []string{data.EnemyMelee, data.EnemyRanger, data.EnemyGuard}
	if !slices.Contains(known, enemy) {
		if guess, ok := data.Suggest(enemy, known); ok {
			return fmt.Errorf("unknown enemy %q, did you mean %q?", enemy, guess)
		}
		return errUsage
	}
	pos := s.player.Position()
	s.bus.Publish(event.EnemyKilled{EnemyType: enemy, X: pos.X, Y: pos.Y})
	return nil
}

func (s *session) cmdDamage(_ context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	amount, err := strconv.Atoi(args[0])
	if err != nil || amount <= 0 {
		return errUsage
	}
	dealt := s.player.TakeDamage(amount)
	s.printf("you take %d damage, %d HP left\n", dealt, s.player.Health())
	return nil
}

func (s *session) cmdFlee(_ context.Context, _ []string) error {
	if t, done := s.ctrl.Flee(); done {
		s.settle(t)
	}
	return nil
}

func (s *session) cmdReward(_ context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	sources := map[string]func() int{
		"cache":     s.prog.OnCacheOpened,
		"trade":     s.prog.OnTradeCompleted,
		"discover":  s.prog.OnZoneDiscovered,
		"objective": s.prog.OnObjectiveCompleted,
	}
	grant, ok := sources[strings.ToLower(args[0])]
	if !ok {
		return errUsage
	}
	grant()
	return nil
}

func (s *session) cmdAbilities(_ context.Context, _ []string) error {
	available := s.prog.AvailableAbilities()
	if len(available) == 0 {
		s.printf("nothing to unlock right now\n")
		return nil
	}
	for _, a := range available {
		s.printf("  %-12s tier %d  cost %d  %s: %s\n", a.ID, a.Tier, a.Cost, a.Name, a.Description)
	}
	return nil
}

func (s *session) cmdUnlock(_ context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	_, err := s.prog.UnlockAbility(args[0])
	switch {
	case err == nil:
		return nil
	case errors.Is(err, data.ErrUnknownAbility),
		errors.Is(err, progression.ErrNotEnoughPoints),
		errors.Is(err, progression.ErrAlreadyUnlocked),
		errors.Is(err, progression.ErrMissingRequirement):
		return err
	default:
		return fmt.Errorf("unlocking %s: %w", args[0], err)
	}
}

func (s *session) cmdRuns(ctx context.Context, args []string) error {
	limit := defaultRunsShown
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return errUsage
		}
		limit = n
	}
	runs, err := s.history.RecentRuns(ctx, s.state.Slot(), limit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}
	if len(runs) == 0 {
		s.printf("no runs yet\n")
		return nil
	}
	for _, r := range runs {
		s.printf("  %s  %-9s depth %d  pickups %d  kinds %d  +%d XP  %s\n",
			r.EndedAt.Local().Format("2006-01-02 15:04"), r.Outcome, r.Depth, r.Pickups, r.KindsHeld, r.BonusXP, formatDuration(r.DurationMs))
	}
	return nil
}

func (s *session) cmdSave(ctx context.Context, _ []string) error {
	if err := s.save(ctx); err != nil {
		return err
	}
	s.printf("saved slot %s\n", s.state.Slot())
	return nil
}
