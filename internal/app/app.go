// Package app owns one dashboard session: awaited state loading, the refresh
// tickers, celebration fan-out, snapshot publishing and teardown.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/antoleandarius-dev/age-dashboard-chrome-extension/internal/anniversary"
	"github.com/antoleandarius-dev/age-dashboard-chrome-extension/internal/config"
	"github.com/antoleandarius-dev/age-dashboard-chrome-extension/internal/crashlog"
	"github.com/antoleandarius-dev/age-dashboard-chrome-extension/internal/engine"
	"github.com/antoleandarius-dev/age-dashboard-chrome-extension/internal/idgen"
	"github.com/antoleandarius-dev/age-dashboard-chrome-extension/internal/server"
	"github.com/antoleandarius-dev/age-dashboard-chrome-extension/internal/settings"
	"github.com/antoleandarius-dev/age-dashboard-chrome-extension/internal/storage"
	"github.com/antoleandarius-dev/age-dashboard-chrome-extension/internal/tasks"
)

// Snapshot is the dashboard state published to the HTTP server after every
// refresh tick.
type Snapshot struct {
	SessionID     string                    `json:"sessionId"`
	GeneratedAt   string                    `json:"generatedAt"`
	Clock         string                    `json:"clock"`
	DateOfBirth   string                    `json:"dateOfBirth,omitempty"`
	Age           *engine.Breakdown         `json:"age,omitempty"`
	Statistics    *engine.Statistics        `json:"statistics,omitempty"`
	IsBirthday    bool                      `json:"isBirthday"`
	Countdown     string                    `json:"countdown,omitempty"`
	NextMilestone *engine.Upcoming          `json:"nextMilestone,omitempty"`
	Milestones    []engine.Record           `json:"milestones"`
	Todos         []tasks.Todo              `json:"todos"`
	TodoStats     tasks.Stats               `json:"todoStats"`
	Anniversaries []anniversary.Anniversary `json:"anniversaries"`
	Settings      settings.Settings         `json:"settings"`
}

// CelebrationListener receives each newly reached milestone exactly once per
// session.
type CelebrationListener func(engine.Milestone, string)

// Options carries the injected collaborators. Zero fields fall back to
// production defaults where one exists.
type Options struct {
	Clock    engine.Clock
	Store    *storage.Coalescer
	Closer   io.Closer
	Server   *server.DashboardServer
	Language string
}

// App is the per-session orchestrator.
type App struct {
	clock  engine.Clock
	store  *storage.Coalescer
	closer io.Closer
	server *server.DashboardServer

	Settings      *settings.Store
	Tasks         *tasks.Manager
	Anniversaries *anniversary.Manager
	Milestones    *engine.Tracker
	Crashes       *crashlog.Recorder
	Translator    *Translator

	sessionID string

	mu        sync.Mutex
	running   bool
	dob       time.Time
	hasDOB    bool
	listeners []CelebrationListener
}

// New wires a session from its collaborators. Run must be called to load
// state and start serving.
func New(opts Options) *App {
	clock := opts.Clock
	if clock == nil {
		clock = engine.RealClock{}
	}

	sessionID, err := idgen.Session()
	if err != nil {
		// The id only tags logs; a static one is survivable.
		sessionID = idgen.SessionPrefix + "local"
	}

	ids := idgen.NewSourceWithClock(clock.Now)

	return &App{
		clock:         clock,
		store:         opts.Store,
		closer:        opts.Closer,
		server:        opts.Server,
		Settings:      settings.New(opts.Store),
		Tasks:         tasks.NewManager(opts.Store, ids),
		Anniversaries: anniversary.NewManager(opts.Store, ids),
		Milestones:    engine.NewTracker(opts.Store),
		Crashes:       crashlog.NewRecorder(opts.Store, clock),
		Translator:    NewTranslator(opts.Language),
		sessionID:     sessionID,
	}
}

// OnCelebration registers a milestone celebration listener.
func (a *App) OnCelebration(l CelebrationListener) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, l)
}

// Run loads persisted state, starts the refresh tickers and blocks until the
// context is cancelled. A second call on the same instance fails.
func (a *App) Run(ctx context.Context) (err error) {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return errors.New(config.ErrAlreadyRunning)
	}
	a.running = true
	a.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: %v", config.ErrAppFailed, r)
			_ = a.Crashes.Record(context.Background(), config.CompApp, err)
		}
	}()

	if err := a.loadState(ctx); err != nil {
		return err
	}

	if a.Crashes.LoopDetected() {
		// Keep running, but make the condition visible in the session log.
		slog.Warn(config.MsgCrashLoop,
			config.LogKeyComponent, config.CompApp,
			config.LogKeySession, a.sessionID,
		)
	}

	serverDone := make(chan error, config.ChannelBufferSize)
	if a.server != nil {
		go func() {
			serverDone <- a.server.Start(ctx)
		}()
	}

	a.publishSnapshot()
	a.publishFeed()

	ageTicker := time.NewTicker(config.AgeUpdateInterval)
	clockTicker := time.NewTicker(config.ClockUpdateInterval)
	slog.Info(config.MsgTickersStarted,
		config.LogKeyComponent, config.CompApp,
		config.LogKeySession, a.sessionID,
	)

	defer func() {
		ageTicker.Stop()
		clockTicker.Stop()
		slog.Info(config.MsgTickersStopped, config.LogKeyComponent, config.CompApp)
		if flushErr := a.teardown(); flushErr != nil && err == nil {
			err = flushErr
		}
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info(config.MsgCtxCancel, config.LogKeyComponent, config.CompApp)
			if a.server != nil {
				if srvErr := <-serverDone; srvErr != nil {
					return srvErr
				}
			}
			return nil

		case srvErr := <-serverDone:
			return srvErr

		case <-ageTicker.C:
			a.refresh()

		case <-clockTicker.C:
			a.publishSnapshot()
		}
	}
}

// SaveDateOfBirth validates, persists immediately and rewrites milestone
// history for the new date. The returned message is localized for display.
func (a *App) SaveDateOfBirth(ctx context.Context, value string) (string, error) {
	now := a.clock.Now()
	parsed, ok, kind := engine.ParseAndValidate(value, now)
	if !ok {
		msg := a.Translator.GetMsg(validationKey(kind))
		return msg, fmt.Errorf("%s: %s", config.ErrDateParse, kind)
	}

	if err := a.store.SetNow(ctx, config.KeyDOB, parsed.Format(config.DateFormatISO)); err != nil {
		return a.Translator.GetMsg(config.TKeyErrSaveFailed), err
	}

	a.mu.Lock()
	a.dob = parsed
	a.hasDOB = true
	a.mu.Unlock()

	a.Milestones.Recalculate(parsed)
	slog.Info(config.MsgDOBSaved,
		config.LogKeyComponent, config.CompApp,
		config.LogKeyDOB, parsed.Format(config.DateFormatISO),
	)

	a.refresh()
	a.publishFeed()
	return "", nil
}

// DateOfBirth returns the cached date and whether one is configured.
func (a *App) DateOfBirth() (time.Time, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dob, a.hasDOB
}

// SessionID returns the random identifier tagging this session.
func (a *App) SessionID() string {
	return a.sessionID
}

// BuildSnapshot assembles the current dashboard state.
func (a *App) BuildSnapshot() Snapshot {
	now := a.clock.Now()
	dob, hasDOB := a.DateOfBirth()

	snap := Snapshot{
		SessionID:     a.sessionID,
		GeneratedAt:   now.UTC().Format(config.DateFormatRFC3339),
		Clock:         now.Format(time.Kitchen),
		Milestones:    a.Milestones.History(),
		Todos:         a.Tasks.All(),
		TodoStats:     a.Tasks.TaskStats(),
		Anniversaries: a.Anniversaries.All(),
		Settings:      a.Settings.All(),
	}

	if !hasDOB {
		snap.Countdown = a.Translator.GetMsg(config.TKeyErrNoDOB)
		return snap
	}

	breakdown := engine.AgeBreakdown(dob, now)
	stats := engine.AgeStatistics(dob, now)
	snap.DateOfBirth = dob.Format(config.DateFormatISO)
	snap.Age = &breakdown
	snap.Statistics = &stats
	snap.IsBirthday = engine.IsBirthday(dob, now)
	snap.NextMilestone = a.Milestones.Next(dob, now)
	snap.Countdown = a.countdownLabel(snap.IsBirthday, stats.DaysUntilBirthday)
	return snap
}

// loadState awaits every persisted key before the first tick.
func (a *App) loadState(ctx context.Context) error {
	data, err := a.store.Get(ctx, config.KeyDOB)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrStorageGet, err)
	}
	var stored string
	if ok, decErr := storage.Decode(data[config.KeyDOB], &stored); decErr != nil {
		slog.Warn(config.ErrDecodeValue,
			config.LogKeyComponent, config.CompApp,
			config.LogKeyKey, config.KeyDOB,
			config.LogKeyError, decErr,
		)
	} else if ok {
		if parsed, valid, _ := engine.ParseAndValidate(stored, a.clock.Now()); valid {
			a.mu.Lock()
			a.dob = parsed
			a.hasDOB = true
			a.mu.Unlock()
		}
	}
	if _, hasDOB := a.DateOfBirth(); !hasDOB {
		slog.Info(config.MsgDOBMissing, config.LogKeyComponent, config.CompApp)
	}

	if _, err := a.Settings.Load(ctx); err != nil {
		return err
	}
	if err := a.Milestones.Load(ctx); err != nil {
		return err
	}
	if err := a.Tasks.Load(ctx); err != nil {
		return err
	}
	if err := a.Anniversaries.Load(ctx); err != nil {
		return err
	}
	if err := a.Crashes.Load(ctx); err != nil {
		return err
	}

	slog.Info(config.MsgStateLoaded,
		config.LogKeyComponent, config.CompApp,
		config.LogKeySession, a.sessionID,
	)
	return nil
}

// refresh recomputes age state, fans out newly crossed milestones and
// publishes a snapshot.
func (a *App) refresh() {
	dob, hasDOB := a.DateOfBirth()
	if hasDOB {
		reached := a.Milestones.Check(dob, a.clock.Now())
		for _, m := range reached {
			label := a.Translator.GetMsgData(config.TKeyMilestoneReached, map[string]any{"Name": m.Name})
			a.celebrate(m, label)
		}
		if len(reached) > 0 {
			a.publishFeed()
		}
	}
	a.publishSnapshot()
}

// celebrate fans one milestone out to the listeners. A panicking listener is
// logged and must not break the refresh loop.
func (a *App) celebrate(m engine.Milestone, label string) {
	a.mu.Lock()
	listeners := make([]CelebrationListener, len(a.listeners))
	copy(listeners, a.listeners)
	a.mu.Unlock()

	for _, l := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error(config.ErrAppFailed,
						config.LogKeyComponent, config.CompApp,
						config.LogKeyError, fmt.Sprint(r),
					)
				}
			}()
			l(m, label)
		}()
	}
}

func (a *App) publishSnapshot() {
	if a.server == nil {
		return
	}
	data, err := json.Marshal(a.BuildSnapshot())
	if err != nil {
		slog.Error(config.ErrSnapshotEncode,
			config.LogKeyComponent, config.CompApp,
			config.LogKeyError, err,
		)
		return
	}
	a.server.PublishSnapshot(data)
}

// publishFeed rebuilds the iCalendar feed from the anniversaries and the
// milestone history plus the next projected crossing.
func (a *App) publishFeed() {
	if a.server == nil {
		return
	}

	var events []anniversary.MilestoneEvent
	for _, rec := range a.Milestones.History() {
		events = append(events, anniversary.MilestoneEvent{Name: rec.Name, Date: rec.Date})
	}
	if dob, hasDOB := a.DateOfBirth(); hasDOB {
		if next := a.Milestones.Next(dob, a.clock.Now()); next != nil {
			events = append(events, anniversary.MilestoneEvent{
				Name: next.Name,
				Date: engine.MilestoneDate(dob, next.Value, next.Unit),
			})
		}
	}

	data, err := anniversary.BuildCalendar(a.clock.Now(), a.Anniversaries.All(), events)
	if err != nil {
		slog.Error(config.ErrICalEncode,
			config.LogKeyComponent, config.CompApp,
			config.LogKeyError, err,
		)
		return
	}
	a.server.PublishFeed(data)
}

// teardown drains pending writes and closes the store.
func (a *App) teardown() error {
	flushCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.store.Flush(flushCtx); err != nil {
		errs = append(errs, err)
	} else {
		slog.Debug(config.MsgWriteFlushed, config.LogKeyComponent, config.CompApp)
	}
	if a.closer != nil {
		if err := a.closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *App) countdownLabel(isBirthday bool, daysUntil int64) string {
	switch {
	case isBirthday:
		return a.Translator.GetMsg(config.TKeyBirthdayToday)
	case daysUntil == 0:
		return a.Translator.GetMsg(config.TKeyCountdownToday)
	case daysUntil == 1:
		return a.Translator.GetMsg(config.TKeyCountdownOne)
	default:
		return a.Translator.GetMsgData(config.TKeyCountdownMany, map[string]any{"Days": daysUntil})
	}
}

func validationKey(kind engine.ErrorKind) string {
	switch kind {
	case engine.ErrorFutureDate:
		return config.TKeyErrFutureDate
	case engine.ErrorExceedsMaxAge:
		return config.TKeyErrMaxAge
	default:
		return config.TKeyErrInvalidFormat
	}
}
