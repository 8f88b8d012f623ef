// Package session runs one page session: it turns view declarations into
// subscription intents and snapshot fetches, and merges everything that comes
// back into the reconciliation store.
//
// A single goroutine (Run) is the only writer to the subscription manager and
// the store. Fetches run concurrently and post their results back to it.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"market-sync/src/helpers"
	"market-sync/src/interfaces"
	"market-sync/src/logger"
	"market-sync/src/models"
	"market-sync/src/reconcile"
	"market-sync/src/subscription"
	"market-sync/src/utils"
)

// Health service names.
const (
	ServicePush     = "push"
	ServiceSnapshot = "snapshot"
)

// Dependencies are the collaborators of a session. Database and Health are optional.
type Dependencies struct {
	Transport interfaces.IPushTransport
	Source    interfaces.ISnapshotSource
	Sink      interfaces.IDataExchanger
	Database  interfaces.IDatabase
	Health    interfaces.IHealthReporter
}

// viewRequest is a queued declaration; reply is nil for fire-and-forget.
type viewRequest struct {
	change models.ViewChange
	reply  chan viewReply
}

type viewReply struct {
	view models.MViewState
	err  error
}

type fetchResult struct {
	key        models.SubscriptionKey
	generation uint64
	candles    []models.Candle
	price      models.PriceEntry
	err        error
}

// -----------------------------------------------------------------------------

type Session struct {
	ID     string
	Logger *logger.Logger

	deps       Dependencies
	manager    *subscription.Manager
	store      *reconcile.Store
	errHandler *helpers.ErrorHandler
	metrics    counters

	navigate chan viewRequest
	results  chan fetchResult

	// owned by the event loop
	view        models.MViewState
	generations map[models.SubscriptionKey]uint64
	nextGen     uint64
	connects    int

	viewMu      sync.RWMutex
	currentView models.MViewState
}

// -----------------------------------------------------------------------------

// NewSession creates a session that starts on initial once Run is called.
func NewSession(id string, capacity int, initial models.MViewState, deps Dependencies, log *logger.Logger) *Session {
	if deps.Health == nil {
		deps.Health = nopHealth{}
	}
	return &Session{
		ID:          id,
		Logger:      log,
		deps:        deps,
		manager:     subscription.NewManager(),
		store:       reconcile.NewStore(capacity),
		errHandler:  helpers.NewErrorHandler(log),
		navigate:    make(chan viewRequest, 16),
		results:     make(chan fetchResult, 64),
		generations: make(map[models.SubscriptionKey]uint64),
		view:        initial,
		currentView: initial,
	}
}

// -----------------------------------------------------------------------------
// Public API (safe for concurrent use)
// -----------------------------------------------------------------------------

// Navigate declares a new view. It is applied by the event loop in order.
func (s *Session) Navigate(ctx context.Context, view models.MViewState) error {
	return s.enqueue(ctx, viewRequest{change: func(models.MViewState) models.MViewState { return view }})
}

// Update queues change and waits for the event loop to declare its result.
// Changes see the outcome of every change queued before them.
func (s *Session) Update(ctx context.Context, change models.ViewChange) (models.MViewState, error) {
	req := viewRequest{change: change, reply: make(chan viewReply, 1)}
	if err := s.enqueue(ctx, req); err != nil {
		return models.MViewState{}, err
	}
	select {
	case r := <-req.reply:
		return r.view, r.err
	case <-ctx.Done():
		return models.MViewState{}, ctx.Err()
	}
}

func (s *Session) enqueue(ctx context.Context, req viewRequest) error {
	select {
	case s.navigate <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CurrentView returns the last declared view.
func (s *Session) CurrentView() models.MViewState {
	s.viewMu.RLock()
	defer s.viewMu.RUnlock()
	return s.currentView
}

// Store exposes the reconciliation store for read-only access.
func (s *Session) Store() *reconcile.Store {
	return s.store
}

// Prices returns a copy of every price entry.
func (s *Session) Prices() []models.PriceEntry {
	return s.store.Prices()
}

// Series returns a copy of the points of an active chart.
func (s *Session) Series(symbol, interval string) ([]models.Candle, bool) {
	return s.store.Series(symbol, interval)
}

// Metrics returns a snapshot of the reconciliation counters.
func (s *Session) Metrics() models.MSyncMetrics {
	return s.metrics.snapshot()
}

// -----------------------------------------------------------------------------
// Event loop
// -----------------------------------------------------------------------------

// Run processes navigation, push events, reconnects and fetch results until
// ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	s.Logger.Info("Session %s started", s.ID)
	s.declare(ctx, s.view)

	events := s.deps.Transport.Events()
	connected := s.deps.Transport.Connected()

	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("Session %s stopped", s.ID)
			return nil

		case req := <-s.navigate:
			view, err := s.declare(ctx, req.change(s.view))
			if req.reply != nil {
				req.reply <- viewReply{view: view, err: err}
			}

		case <-connected:
			s.onConnected(ctx)

		case event := <-events:
			s.onEvent(event)

		case res := <-s.results:
			s.onFetch(res)
		}
	}
}

// -----------------------------------------------------------------------------

// declare diffs the view's keys against the wanted set and acts on the delta.
// A rejected view leaves the previous one in place and returns it.
func (s *Session) declare(ctx context.Context, view models.MViewState) (models.MViewState, error) {
	desired := view.DesiredKeys()
	delta, err := s.manager.Want(desired)
	if err != nil {
		s.errHandler.Handle(err, "declare view")
		s.publishError("", "", err)
		return s.view, err
	}

	s.view = view
	s.viewMu.Lock()
	s.currentView = view
	s.viewMu.Unlock()
	s.persistView(view)

	for _, key := range delta.ToUnsubscribe {
		s.deliver(key, s.deps.Transport.Unsubscribe)
		if key.Channel == models.ChannelKline {
			s.store.CloseSeries(key.Symbol, key.Interval)
		}
		delete(s.generations, key)
	}

	if evicted := s.store.Retain(desired.Symbols()); len(evicted) > 0 {
		s.publish(&models.MViewUpdate{Type: models.UpdateEvict, Symbols: evicted})
	}

	for _, key := range delta.ToSubscribe {
		s.deliver(key, s.deps.Transport.Subscribe)
		if key.Channel == models.ChannelKline {
			s.store.OpenSeries(key.Symbol, key.Interval)
		}
		s.fetch(ctx, key)
	}

	s.metrics.active.Store(int64(s.manager.Len()))
	if !delta.Empty() {
		s.Logger.Debug("View %s: +%d -%d subscriptions", view.Page, len(delta.ToSubscribe), len(delta.ToUnsubscribe))
	}
	return view, nil
}

// -----------------------------------------------------------------------------

// onConnected re-subscribes everything: the server dropped all subscriptions
// with the old connection. After a reconnect every key is re-fetched to cover
// what was missed while disconnected; staleness rules keep newer pushes.
func (s *Session) onConnected(ctx context.Context) {
	s.connects++
	reconnect := s.connects > 1
	if reconnect {
		s.metrics.reconnects.Add(1)
	}
	s.deps.Health.SetServing(ServicePush, true)
	if s.errHandler.ErrorCount > 0 {
		s.Logger.Info("Push channel back after %d errors", s.errHandler.ErrorCount)
		s.errHandler.ResetErrorCount()
	}
	up := true
	s.publish(&models.MViewUpdate{Type: models.UpdateStatus, Connected: &up})

	s.manager.Reset()
	delta, err := s.manager.Want(s.view.DesiredKeys())
	if err != nil {
		s.errHandler.Handle(err, "resubscribe")
		return
	}

	for _, key := range delta.ToSubscribe {
		s.deliver(key, s.deps.Transport.Subscribe)
		if reconnect {
			s.fetch(ctx, key)
		}
	}
	s.Logger.Info("Push channel ready, %d subscriptions sent", len(delta.ToSubscribe))
}

// -----------------------------------------------------------------------------

// onEvent merges a push event. Events for keys no longer wanted are dropped:
// they were in flight when the unsubscribe was sent.
func (s *Session) onEvent(event models.MPushEvent) {
	if !s.manager.Wanted(event.Key()) {
		s.metrics.pushesUnwanted.Add(1)
		return
	}

	switch event.Type {
	case models.PushTick:
		res := s.store.ApplyTick(event.Symbol, event.Price, event.At)
		if res.Signal == reconcile.Stale {
			s.metrics.ticksStale.Add(1)
			return
		}
		s.metrics.ticksApplied.Add(1)
		s.publishTick(res)

	case models.PushKline:
		res := s.store.ApplyCandle(event.Symbol, event.Interval, event.Candle)
		switch res.Signal {
		case reconcile.Applied:
			s.metrics.candlesApplied.Add(1)
			s.publish(&models.MViewUpdate{
				Type:     models.UpdateCandle,
				Symbol:   event.Symbol,
				Interval: event.Interval,
				Replaced: res.Replaced,
				Points:   []models.Candle{event.Candle},
			})
		case reconcile.Stale:
			s.metrics.candlesStale.Add(1)
		case reconcile.NoActiveSeries:
			s.metrics.candlesNoSeries.Add(1)
		}
	}
}

// -----------------------------------------------------------------------------
// Snapshot fetches
// -----------------------------------------------------------------------------

// fetch starts a snapshot request for key. Each call supersedes earlier
// requests for the same key. Generations are unique across the session, so
// a request from before the key was dropped and wanted again never matches.
func (s *Session) fetch(ctx context.Context, key models.SubscriptionKey) {
	s.nextGen++
	gen := s.nextGen
	s.generations[key] = gen
	limit := s.store.Capacity()

	go func() {
		res := fetchResult{key: key, generation: gen}
		if key.Channel == models.ChannelKline {
			res.candles, res.err = s.deps.Source.FetchKlines(ctx, key.Symbol, key.Interval, limit)
		} else {
			res.price, res.err = s.deps.Source.FetchPrice(ctx, key.Symbol)
		}

		select {
		case s.results <- res:
		case <-ctx.Done():
		}
	}()
}

// relevant reports whether a fetch result still matches what the view wants.
func (s *Session) relevant(res fetchResult) bool {
	return s.manager.Wanted(res.key) && s.generations[res.key] == res.generation
}

// -----------------------------------------------------------------------------

func (s *Session) onFetch(res fetchResult) {
	if res.err != nil {
		if errors.Is(res.err, context.Canceled) || !s.relevant(res) {
			s.metrics.snapshotsDiscarded.Add(1)
			return
		}
		s.metrics.fetchErrors.Add(1)
		s.deps.Health.SetServing(ServiceSnapshot, false)
		s.errHandler.Handle(res.err, "snapshot "+res.key.String())
		s.publishError(res.key.Symbol, res.key.Interval, res.err)
		return
	}
	s.deps.Health.SetServing(ServiceSnapshot, true)

	if res.key.Channel == models.ChannelPrice {
		if !s.relevant(res) {
			s.metrics.snapshotsDiscarded.Add(1)
			return
		}
		if tick := s.store.ApplyPrice(res.price); tick.Signal == reconcile.Applied {
			s.publishTick(tick)
		}
		return
	}

	snap, err := s.store.ApplySnapshot(res.key.Symbol, res.key.Interval, res.candles, func() bool {
		return s.relevant(res)
	})
	if err != nil {
		if s.relevant(res) {
			s.metrics.fetchErrors.Add(1)
			s.errHandler.Handle(err, "snapshot "+res.key.String())
			s.publishError(res.key.Symbol, res.key.Interval, err)
		}
		return
	}
	if snap.Signal == reconcile.Discarded {
		s.metrics.snapshotsDiscarded.Add(1)
		s.Logger.Debug("Discarded late snapshot for %s", res.key)
		return
	}

	s.metrics.snapshotsApplied.Add(1)
	s.publish(&models.MViewUpdate{
		Type:     models.UpdateSnapshot,
		Symbol:   res.key.Symbol,
		Interval: res.key.Interval,
		Points:   snap.Points,
	})
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// deliver sends one intent. Failures are reported, never rolled back: the
// next reconnect re-sends the whole wanted set.
func (s *Session) deliver(key models.SubscriptionKey, send func(models.SubscriptionKey) error) {
	if err := send(key); err != nil {
		s.metrics.deliveryFailures.Add(1)
		if helpers.Kind(err) == helpers.KindNetwork {
			s.deps.Health.SetServing(ServicePush, false)
		}
		s.Logger.Debug("Intent for %s not delivered: %v", key, err)
	}
}

func (s *Session) persistView(view models.MViewState) {
	if s.deps.Database == nil {
		return
	}
	if err := s.deps.Database.SaveViewState(s.ID, view); err != nil {
		s.errHandler.Handle(err, "save view state")
	}
}

func (s *Session) publishTick(res reconcile.TickResult) {
	price := res.Entry.LastPrice
	s.publish(&models.MViewUpdate{
		Type:      models.UpdateTick,
		Symbol:    res.Entry.Symbol,
		Price:     &price,
		Display:   utils.FormatPrice(price),
		Direction: string(res.Direction),
	})
}

func (s *Session) publishError(symbol, interval string, err error) {
	s.publish(&models.MViewUpdate{
		Type:      models.UpdateError,
		Symbol:    symbol,
		Interval:  interval,
		ErrorKind: helpers.Kind(err),
		Message:   err.Error(),
	})
}

func (s *Session) publish(update *models.MViewUpdate) {
	update.Timestamp = time.Now().UnixMilli()
	s.deps.Sink.Broadcast(update)
}

// -----------------------------------------------------------------------------

type nopHealth struct{}

func (nopHealth) SetServing(string, bool) {}
