package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/lay-engine/internal/metrics"
	"github.com/yourusername/lay-engine/internal/models"
	"github.com/yourusername/lay-engine/internal/store"
)

// Status is the engine's top-level run state
type Status string

const (
	StatusIdle       Status = "IDLE"
	StatusRunning    Status = "RUNNING"
	StatusStopped    Status = "STOPPED"
	StatusAuthFailed Status = "AUTH_FAILED"
)

const stopDrainTimeout = 10 * time.Second

// ExchangeClient is the slice of the exchange API the engine consumes
type ExchangeClient interface {
	HasCredentials() bool
	EnsureSession(ctx context.Context) error
	ListTodaysWinMarkets(ctx context.Context, countries []string) ([]models.Market, error)
	GetBook(ctx context.Context, m models.Market) (models.Market, error)
	GetBookFull(ctx context.Context, m models.Market) (models.Market, error)
	PlaceLayOrder(ctx context.Context, ins models.BetInstruction) (models.ExchangeResponse, error)
	GetBalance(ctx context.Context) (decimal.Decimal, error)
	InvalidateBalance()
}

// Persister loads and saves the engine's state document
type Persister interface {
	Load(ctx context.Context) (*store.StateDocument, error)
	Save(ctx context.Context, doc *store.StateDocument) error
}

// OpResult is the uniform response of every control operation
type OpResult struct {
	Status   string      `json:"status"`
	Message  string      `json:"message,omitempty"`
	NewValue interface{} `json:"new_value,omitempty"`
}

func opOK(v interface{}) OpResult { return OpResult{Status: "ok", NewValue: v} }
func opFail(msg string) OpResult  { return OpResult{Status: "error", Message: msg} }

// Engine owns the betting state machine. All state lives behind one
// mutex; the scheduler tick and every control operation take it, so a
// config change can never interleave with a half-evaluated market.
type Engine struct {
	client ExchangeClient
	store  Persister
	logger logrus.FieldLogger

	mu     sync.Mutex
	status Status
	st     *state

	done    chan struct{}
	stopped chan struct{}

	now func() time.Time

	lastUniverseRefresh time.Time
	lastFlush           time.Time
	forceRefresh        bool
}

// New builds an engine and restores its state from the store. The
// seed configuration only applies on a fresh start; persisted state
// wins otherwise. A crash in a previous run is detected here and
// surfaced as an error event.
func New(ctx context.Context, client ExchangeClient, persister Persister, seed models.EngineConfig, logger logrus.FieldLogger) (*Engine, error) {
	if err := seed.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine configuration: %w", err)
	}
	e := &Engine{
		client: client,
		store:  persister,
		logger: logger,
		status: StatusIdle,
		now:    time.Now,
	}

	doc, err := persister.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading engine state: %w", err)
	}
	today := e.today()
	if doc == nil {
		e.st = newState(today, seed.Clone())
		e.logger.Info("no persisted state found, starting fresh")
		return e, nil
	}

	st, crashed := stateFromDocument(doc, today)
	e.st = st
	if crashed {
		e.st.appendError(e.now(), "previous session did not stop cleanly, marked CRASHED")
		e.logger.Warn("recovered from unclean shutdown, previous session marked CRASHED")
	}
	e.logger.WithFields(logrus.Fields{
		"date":     st.date,
		"bets":     len(st.bets),
		"trackers": len(st.trackers),
	}).Info("engine state restored")
	return e, nil
}

// today is the local trading date, the same day bounds the market
// catalogue filter uses.
func (e *Engine) today() string {
	return e.now().Format("2006-01-02")
}

// Status returns the current run state
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Start launches the scheduler loop. It authenticates first so a bad
// credential set fails the operation instead of the first tick.
func (e *Engine) Start(ctx context.Context) OpResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status == StatusRunning {
		// idempotent
		return opOK(string(StatusRunning))
	}
	if !e.client.HasCredentials() {
		return opFail("not_authenticated")
	}
	authCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err := e.client.EnsureSession(authCtx)
	cancel()
	if err != nil {
		e.logger.WithError(err).Error("start refused, exchange login failed")
		return opFail("not_authenticated")
	}

	if e.st.session == nil || e.st.session.Status != models.SessionRunning {
		e.openSessionLocked()
	} else {
		// session left RUNNING by an auth halt resumes as is
		e.logger.WithField("session_id", e.st.session.SessionID).Info("resuming halted session")
	}
	e.status = StatusRunning
	e.forceRefresh = true
	e.done = make(chan struct{})
	e.stopped = make(chan struct{})
	go e.runLoop(e.done, e.stopped)

	e.logger.WithFields(logrus.Fields{
		"session_id": e.st.session.SessionID,
		"mode":       e.st.session.Mode,
		"countries":  e.st.session.Countries,
	}).Info("engine started")
	e.flushLocked(ctx)
	return opOK(string(StatusRunning))
}

// openSessionLocked rotates any finished session into the index and
// opens a fresh RUNNING one. A session left RUNNING by a recovered
// crash was already rotated at load time.
func (e *Engine) openSessionLocked() {
	if e.st.session != nil && e.st.session.Status != models.SessionRunning {
		e.st.sessionsIndex = append(e.st.sessionsIndex, *e.st.session)
	}
	now := e.now()
	mode := models.ModeLive
	if e.st.cfg.DryRun {
		mode = models.ModeDryRun
	}
	e.st.session = &models.Session{
		SessionID: uuid.NewString(),
		Date:      e.st.date,
		StartTime: now,
		Mode:      mode,
		Countries: append([]string(nil), e.st.cfg.Countries...),
		Status:    models.SessionRunning,
		Summary:   models.NewSessionSummary(),
	}
}

// Stop drains the scheduler loop, closes the session and flushes. A
// tick in flight gets up to 10 seconds to finish.
func (e *Engine) Stop(ctx context.Context) OpResult {
	e.mu.Lock()
	if e.status != StatusRunning && e.status != StatusAuthFailed {
		// idempotent
		e.mu.Unlock()
		return opOK(string(StatusStopped))
	}
	done, stopped := e.done, e.stopped
	e.mu.Unlock()

	if done != nil {
		close(done)
		select {
		case <-stopped:
		case <-time.After(stopDrainTimeout):
			e.logger.Warn("scheduler loop did not drain in time")
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.done = nil
	e.stopped = nil
	if e.st.session != nil && e.st.session.Status == models.SessionRunning {
		t := e.now()
		e.st.session.Status = models.SessionStopped
		e.st.session.StopTime = &t
	}
	e.status = StatusStopped
	e.flushLocked(ctx)
	e.logger.Info("engine stopped")
	return opOK(string(StatusStopped))
}

// ToggleDryRun flips the mode for subsequent bets. The session keeps
// the mode it was started with.
func (e *Engine) ToggleDryRun(ctx context.Context) OpResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.st.cfg.DryRun = !e.st.cfg.DryRun
	e.logger.WithField("dry_run", e.st.cfg.DryRun).Info("dry run toggled")
	e.flushLocked(ctx)
	return opOK(e.st.cfg.DryRun)
}

// SetProcessWindow updates the betting window in minutes, range [1,60]
func (e *Engine) SetProcessWindow(ctx context.Context, minutes int) OpResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	if minutes < 1 || minutes > 60 {
		return opFail("out_of_range")
	}
	e.st.cfg.ProcessWindowMinutes = minutes
	e.flushLocked(ctx)
	return opOK(minutes)
}

// SetPointValue updates the stake unit, restricted to the allowed set
func (e *Engine) SetPointValue(ctx context.Context, value int) OpResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !models.ValidPointValue(value) {
		return opFail("invalid_value")
	}
	e.st.cfg.PointValue = value
	e.flushLocked(ctx)
	return opOK(value)
}

// SetCountries replaces the country filter and forces a universe
// refresh so the market list reflects it on the next tick.
func (e *Engine) SetCountries(ctx context.Context, countries []string) OpResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(countries) == 0 {
		return opFail("empty_set")
	}
	for _, c := range countries {
		if !models.ValidCountry(c) {
			return opFail("invalid_country")
		}
	}
	e.st.cfg.Countries = append([]string(nil), countries...)
	e.forceRefresh = true
	e.flushLocked(ctx)
	return opOK(e.st.cfg.Countries)
}

// ToggleSpreadControl flips the spread gate
func (e *Engine) ToggleSpreadControl(ctx context.Context) OpResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.st.cfg.SpreadControlEnabled = !e.st.cfg.SpreadControlEnabled
	e.flushLocked(ctx)
	return opOK(e.st.cfg.SpreadControlEnabled)
}

// ToggleJOFS flips joint-favourite stake splitting
func (e *Engine) ToggleJOFS(ctx context.Context) OpResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.st.cfg.JOFSEnabled = !e.st.cfg.JOFSEnabled
	e.flushLocked(ctx)
	return opOK(e.st.cfg.JOFSEnabled)
}

// ResetBets wipes the day's bets, trackers and dedup sets, zeroes the
// session counters and forces rediscovery. The session itself and the
// historical indexes survive.
func (e *Engine) ResetBets(ctx context.Context) OpResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.st.resetDay()
	if e.st.session != nil {
		e.st.session.Summary = models.NewSessionSummary()
		e.st.session.BetIDs = nil
	}
	e.forceRefresh = true
	e.flushLocked(ctx)
	e.logger.Warn("day state reset by operator")
	return opOK("reset")
}

// Reload discards in-memory state and restores from the store. Only
// valid while the scheduler is not running.
func (e *Engine) Reload(ctx context.Context) OpResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status == StatusRunning {
		return opFail("engine_running")
	}
	doc, err := e.store.Load(ctx)
	if err != nil {
		return opFail("load_failed")
	}
	if doc == nil {
		e.st = newState(e.today(), models.DefaultEngineConfig())
	} else {
		e.st, _ = stateFromDocument(doc, e.today())
	}
	return opOK("reloaded")
}

// Config returns a copy of the live engine configuration
func (e *Engine) Config() models.EngineConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.cfg.Clone()
}

// RecordResults merges settled bets into the recent-results ring.
// Called by the settlement sync job.
func (e *Engine) RecordResults(cleared []models.ClearedBet) {
	if len(cleared) == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.st.appendResults(cleared)
}

// Flush persists the current state immediately
func (e *Engine) Flush(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flushLocked(ctx)
}

// flushLocked writes the state document. Persistence failures are
// logged and counted but never interrupt the caller's operation.
func (e *Engine) flushLocked(ctx context.Context) error {
	err := e.store.Save(ctx, e.st.toDocument())
	if err != nil {
		metrics.PersistenceFailuresTotal.Inc()
		e.st.appendError(e.now(), "state flush failed: "+err.Error())
		e.logger.WithError(err).Error("state flush failed")
		return err
	}
	e.lastFlush = e.now()
	return nil
}
