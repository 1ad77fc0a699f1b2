package orchestrator

import (
	"context"
	"sort"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/dipdup-net/acquire/internal/budget"
	"github.com/dipdup-net/acquire/internal/cache"
	"github.com/dipdup-net/acquire/internal/models"
	"github.com/dipdup-net/acquire/internal/progress"
	"github.com/dipdup-net/acquire/internal/resolver"
	"github.com/dipdup-net/acquire/internal/selector"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// call origins
const (
	OriginCache   = "cache"
	OriginNetwork = "network"
)

// Metrics -
type Metrics interface {
	IncrementCall(kind, origin string)
	IncrementEntity(status string)
	SetBudgetRemaining(value int)
}

type noopMetrics struct{}

func (noopMetrics) IncrementCall(string, string) {}
func (noopMetrics) IncrementEntity(string)       {}
func (noopMetrics) SetBudgetRemaining(int)       {}

// Deps - acquisition context threaded through every operation
type Deps struct {
	Store  *progress.Store
	Sink   models.Sink
	Cache  *cache.Cache
	Source resolver.Source
	Budget *budget.Budget
	Clock  func() time.Time
}

// StopReason -
type StopReason string

// stop reasons
const (
	StopExhausted StopReason = "exhausted"
	StopBudget    StopReason = "budget"
	StopCancelled StopReason = "cancelled"
)

// Result - summary of one run
type Result struct {
	Processed int
	Calls     int
	CacheHits int
	Stop      StopReason
}

// Orchestrator - drives each entity through lookup, primary fetch, related fetch and checkpoint
type Orchestrator struct {
	store  *progress.Store
	sink   models.Sink
	cache  *cache.Cache
	source resolver.Source
	budget *budget.Budget
	clock  func() time.Time

	runID      string
	recovery   bool
	minPeriod  int
	delay      time.Duration
	maxRetries uint64
	backoff    func() backoff.BackOff
	wait       func(ctx context.Context, d time.Duration) error
	metrics    Metrics

	cacheHits int
}

// New -
func New(deps Deps, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:      deps.Store,
		sink:       deps.Sink,
		cache:      deps.Cache,
		source:     deps.Source,
		budget:     deps.Budget,
		clock:      deps.Clock,
		delay:      500 * time.Millisecond,
		maxRetries: 2,
		backoff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
		wait:    sleep,
		metrics: noopMetrics{},
	}
	if o.clock == nil {
		o.clock = time.Now
	}

	for i := range opts {
		opts[i](o)
	}
	return o
}

// Run - processes the work-list in order, checkpointing after every entity. It returns an error only
// for fatal failures.
func (o *Orchestrator) Run(ctx context.Context, items []selector.Item) (Result, error) {
	result := Result{Stop: StopExhausted}

	for i := range items {
		if ctx.Err() != nil {
			result.Stop = StopCancelled
			break
		}
		if !o.budget.Allow() {
			result.Stop = StopBudget
			break
		}

		entity := items[i].Entity
		record, err := o.process(ctx, items[i])
		if err != nil {
			switch {
			case errors.Is(err, ErrBudgetExhausted):
				result.Stop = StopBudget
				log.Info().Str("entity", entity.ID).Msg("rate budget exhausted, entity stays pending")
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				result.Stop = StopCancelled
			default:
				result.Calls = o.budget.Spent()
				result.CacheHits = o.cacheHits
				return result, err
			}
			break
		}

		if err := o.checkpoint(entity, i, record); err != nil {
			result.Calls = o.budget.Spent()
			result.CacheHits = o.cacheHits
			return result, err
		}
		result.Processed++

		log.Info().
			Str("entity", entity.ID).
			Str("name", entity.Name).
			Str("status", record.Status.String()).
			Str("reason", string(items[i].Reason)).
			Int("calls", o.budget.Spent()).
			Int("remaining", o.budget.Remaining()).
			Msg("entity done")
	}

	result.Calls = o.budget.Spent()
	result.CacheHits = o.cacheHits
	return result, nil
}

func (o *Orchestrator) checkpoint(entity models.Entity, index int, record models.ProgressRecord) error {
	now := o.clock()
	record.RunID = o.runID
	record.FinishedAt = now.UTC()

	if err := o.store.Put(entity.ID, record); err != nil {
		return fatal("progress record", err)
	}
	o.store.LastProcessedEntity = entity.ID
	o.store.LastProcessedIndex = index + 1
	o.store.Consume(o.budget.CallsInLastHour(), now)

	if run, err := o.store.CurrentRun(); err == nil {
		run.Calls = o.budget.Spent()
		run.Entities++
	}

	if err := o.store.Save(); err != nil {
		return fatal("checkpoint", err)
	}

	o.metrics.IncrementEntity(record.Status.String())
	o.metrics.SetBudgetRemaining(o.budget.Remaining())
	return nil
}

// process - a recovered entity keeps its previous record in the store until the new one is checkpointed
func (o *Orchestrator) process(ctx context.Context, item selector.Item) (models.ProgressRecord, error) {
	entity := item.Entity
	record := models.ProgressRecord{
		StartedAt: o.clock().UTC(),
	}

	var fresh refresh
	if o.recovery {
		if previous, ok := o.store.Record(entity.ID); ok {
			fresh = refresh{
				previous: &previous,
				reason:   item.Reason,
			}
		}
	} else {
		has, err := o.sink.HasTerminalData(ctx, entity.ID)
		if err != nil {
			return record, fatal("sink predicate", err)
		}
		if has {
			record.Status = models.StatusSkippedHasData
			return record, nil
		}
	}

	candidate, err := o.lookup(ctx, entity, fresh.lookup())
	if err != nil {
		if !resolver.IsRecoverable(err) {
			return record, err
		}
		log.Warn().Err(err).Str("entity", entity.ID).Msg("lookup failed")
		record.Status = models.StatusNoCandidateData
		record.Failure = err.Error()
		return record, nil
	}
	if candidate == nil {
		record.Status = models.StatusNoCandidateData
		return record, nil
	}

	record.CandidateID = candidate.ID
	candidate.UpdatedAt = o.clock().UTC()
	if err := o.sink.SaveCandidate(ctx, *candidate); err != nil {
		return record, fatal("save candidate", err)
	}

	record.KnownPeriods = o.datedPeriods(candidate.Cycles)
	if len(record.KnownPeriods) == 0 {
		record.Status = models.StatusNoRecentCandidacy
		return record, nil
	}

	if err := o.primary(ctx, entity, candidate.ID, &record, fresh); err != nil {
		return record, err
	}
	record.Status = models.StatusProcessed

	if record.RelatedID == "" {
		return record, nil
	}
	if err := o.related(ctx, entity, &record, fresh); err != nil {
		return record, err
	}
	return record, nil
}

// refresh - which calls of a recovered entity bypass the cache. Data the previous attempt did not
// get is asked from the source again.
type refresh struct {
	previous *models.ProgressRecord
	reason   selector.Reason
}

func (r refresh) lookup() bool {
	return r.previous != nil && r.reason == selector.ReasonNoData
}

func (r refresh) totals(period int) bool {
	if r.previous == nil {
		return false
	}
	for _, retrieved := range r.previous.RetrievedPeriods {
		if retrieved == period {
			return false
		}
	}
	return true
}

func (r refresh) filings(period int) bool {
	if r.previous == nil {
		return false
	}
	return r.reason == selector.ReasonMissingRelated || r.totals(period)
}

func (o *Orchestrator) lookup(ctx context.Context, entity models.Entity, fresh bool) (*models.Candidate, error) {
	var candidates []models.Candidate
	err := o.call(ctx, resolver.Request{
		Kind:   resolver.KindLookup,
		Entity: entity.ID,
		Query:  entity.Name,
		Filter: entity.Jurisdiction,
	}, fresh, func(data []byte) (err error) {
		candidates, err = resolver.DecodeCandidates(entity.ID, data)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	return &candidates[0], nil
}

func (o *Orchestrator) primary(ctx context.Context, entity models.Entity, candidateID string, record *models.ProgressRecord, fresh refresh) error {
	totals := make([]models.Totals, 0, len(record.KnownPeriods))
	for _, period := range record.KnownPeriods {
		var (
			items     []models.Totals
			relatedID string
		)
		err := o.call(ctx, resolver.Request{
			Kind:   resolver.KindTotals,
			Entity: entity.ID,
			Key:    candidateID,
			Period: period,
		}, fresh.totals(period), func(data []byte) (err error) {
			items, relatedID, err = resolver.DecodeTotals(entity.ID, candidateID, data)
			return err
		})
		if err == nil {
			record.AddRetrieved(period)
			totals = append(totals, items...)
			if record.RelatedID == "" {
				record.RelatedID = relatedID
			}
			continue
		}

		if !resolver.IsRecoverable(err) {
			return err
		}
		log.Warn().Err(err).Str("entity", entity.ID).Int("period", period).Msg("primary fetch failed")
		record.Failure = err.Error()
	}

	if err := o.sink.SaveTotals(ctx, totals); err != nil {
		return fatal("save totals", err)
	}
	return nil
}

// related - budget exhaustion here keeps what was fetched, the entity is checkpointed as processed
func (o *Orchestrator) related(ctx context.Context, entity models.Entity, record *models.ProgressRecord, fresh refresh) error {
	filings := make([]models.Filing, 0)
	seen := make(map[string]struct{})
	for _, period := range record.RetrievedPeriods {
		var items []models.Filing
		err := o.call(ctx, resolver.Request{
			Kind:   resolver.KindFilings,
			Entity: entity.ID,
			Key:    record.RelatedID,
			Period: period,
		}, fresh.filings(period), func(data []byte) (err error) {
			items, err = resolver.DecodeFilings(entity.ID, record.RelatedID, data)
			return err
		})
		if err == nil {
			for i := range items {
				if _, ok := seen[items[i].ID]; ok {
					continue
				}
				seen[items[i].ID] = struct{}{}
				filings = append(filings, items[i])
			}
			continue
		}

		if errors.Is(err, ErrBudgetExhausted) {
			log.Info().Str("entity", entity.ID).Int("period", period).Msg("rate budget exhausted during related fetch")
			break
		}
		if !resolver.IsRecoverable(err) {
			return err
		}
		log.Warn().Err(err).Str("entity", entity.ID).Int("period", period).Msg("related fetch failed")
		record.Failure = err.Error()
	}

	if err := o.sink.SaveFilings(ctx, filings); err != nil {
		return fatal("save filings", err)
	}

	record.RelatedRecords = make([]string, 0, len(filings))
	for i := range filings {
		record.RelatedRecords = append(record.RelatedRecords, filings[i].ID)
	}
	sort.Strings(record.RelatedRecords)
	return nil
}

// call - one external request decoded by `decode`. It is served from cache when possible, otherwise
// paid from the budget and followed by the polite delay. Only payloads which decode are cached.
// With `fresh` set the cached entry is ignored and replaced.
func (o *Orchestrator) call(ctx context.Context, req resolver.Request, fresh bool, decode func(data []byte) error) error {
	namespace := string(req.Kind)
	descriptor := req.Descriptor()

	if !fresh {
		data, ok, err := o.cache.Get(ctx, namespace, descriptor)
		switch {
		case err != nil:
			log.Warn().Err(err).Str("descriptor", descriptor).Msg("cache read failed")
		case ok:
			if err := decode(data); err != nil {
				log.Warn().Err(err).Str("descriptor", descriptor).Msg("cached payload is invalid, fetching again")
				break
			}
			o.cacheHits++
			o.metrics.IncrementCall(namespace, OriginCache)
			return o.wait(ctx, o.delay)
		}
	}

	var data []byte
	operation := func() error {
		if !o.budget.Allow() {
			return backoff.Permanent(ErrBudgetExhausted)
		}

		payload, err := o.source.Fetch(ctx, req)
		o.budget.Spend()
		o.metrics.IncrementCall(namespace, OriginNetwork)

		if werr := o.wait(ctx, o.delay); werr != nil {
			return backoff.Permanent(werr)
		}

		if err != nil {
			if resolver.IsRetryable(err) {
				log.Debug().Err(err).Str("descriptor", descriptor).Msg("retrying request")
				return err
			}
			return backoff.Permanent(err)
		}
		data = payload
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(o.backoff(), o.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}

	if err := decode(data); err != nil {
		return err
	}
	if err := o.cache.Put(ctx, namespace, descriptor, data); err != nil {
		log.Warn().Err(err).Str("descriptor", descriptor).Msg("cache write failed")
	}
	return nil
}

func (o *Orchestrator) datedPeriods(cycles []int) []int {
	periods := make([]int, 0, len(cycles))
	seen := make(map[int]struct{}, len(cycles))
	for _, cycle := range cycles {
		if cycle < o.minPeriod {
			continue
		}
		if _, ok := seen[cycle]; ok {
			continue
		}
		seen[cycle] = struct{}{}
		periods = append(periods, cycle)
	}
	sort.Ints(periods)
	return periods
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
