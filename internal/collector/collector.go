// Package collector gathers every participant's availability for a meeting
// plan and turns it into a resolver request.
package collector

import (
	"context"
	"errors"
	"fmt"
	"kanji/internal/availability"
	"kanji/internal/meeting"
	"kanji/internal/models"
	"kanji/internal/resolver"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/errgroup"
)

// ErrSourceNotConfigured is reported for participants whose calendar
// provider has no credentials.
var ErrSourceNotConfigured = errors.New("calendar source not configured")

// BusySource reads busy events from one calendar provider.
type BusySource interface {
	BusyEvents(ctx context.Context, calendar string, from, to time.Time) ([]*models.Event, error)
}

// GoogleOpener opens the Google Calendar source of a token account.
type GoogleOpener func(ctx context.Context, account string) (BusySource, error)

// Options bound the calendar fetches.
type Options struct {
	Timeout          time.Duration // per attempt
	Retries          int
	RetryInterval    time.Duration // first backoff step
	Concurrency      int
	FailureThreshold uint32        // consecutive failures that open a source's breaker
	BreakerTimeout   time.Duration // how long an open breaker rejects calls
}

// DefaultOptions returns the limits used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Timeout:          15 * time.Second,
		Retries:          2,
		RetryInterval:    500 * time.Millisecond,
		Concurrency:      8,
		FailureThreshold: 3,
		BreakerTimeout:   time.Minute,
	}
}

// Failure is a participant whose availability could not be fetched. The
// participant counts as busy on every slot.
type Failure struct {
	Participant string
	Source      string
	Err         error
}

// Report is the outcome of one collection run.
type Report struct {
	ID       string
	Request  resolver.Request
	Failures []Failure
	Pending  []string // manual participants who have not answered yet
}

// Collector orchestrates availability fetching across calendar sources.
type Collector struct {
	logger     *slog.Logger
	opts       Options
	caldav     BusySource
	openGoogle GoogleOpener

	mu       sync.Mutex
	google   map[string]BusySource
	breakers map[string]*gobreaker.CircuitBreaker[[]*models.Event]
}

// New creates a Collector. caldav and openGoogle may be nil when the
// provider is not configured.
func New(logger *slog.Logger, opts Options, caldav BusySource, openGoogle GoogleOpener) *Collector {
	def := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = def.RetryInterval
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = def.Concurrency
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = def.FailureThreshold
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = def.BreakerTimeout
	}
	return &Collector{
		logger:     logger,
		opts:       opts,
		caldav:     caldav,
		openGoogle: openGoogle,
		google:     make(map[string]BusySource),
		breakers:   make(map[string]*gobreaker.CircuitBreaker[[]*models.Event]),
	}
}

// Collect fetches availability for every participant of the plan and builds
// the resolution request. Fetch failures do not fail the run: they are
// listed in the report and the participant is treated as busy.
func (c *Collector) Collect(ctx context.Context, plan *meeting.Plan) (*Report, error) {
	report := &Report{ID: uuid.NewString()}
	logger := c.logger.With("resolution_id", report.ID)
	logger.Info("Collecting availability.", "title", plan.Title, "participants", len(plan.Participants))

	slots := plan.Slots()
	raw := make(map[string]availability.Raw, len(plan.Participants))
	order := make(map[string]int, len(plan.Participants))

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(c.opts.Concurrency)

	for i, part := range plan.Participants {
		order[part.ID] = i
		if part.Source.Type == meeting.SourceManual {
			r, ok := part.Manual(slots)
			mu.Lock()
			if ok {
				raw[part.ID] = r
			} else {
				report.Pending = append(report.Pending, part.ID)
			}
			mu.Unlock()
			continue
		}
		if len(slots) == 0 {
			continue
		}

		from, to := slots[0].Start, slots[len(slots)-1].End
		g.Go(func() error {
			events, err := c.fetch(ctx, part.Source, from, to)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Error("Could not fetch availability, counting participant as busy", "participant", part.ID, "source", part.Source.Type, "error", err)
				report.Failures = append(report.Failures, Failure{Participant: part.ID, Source: string(part.Source.Type), Err: err})
				return nil
			}
			raw[part.ID] = availability.Raw{Busy: toIntervals(events)}
			logger.Debug("Fetched availability", "participant", part.ID, "events", len(events))
			for _, e := range events {
				logger.Debug("Busy event", "participant", part.ID, "event_id", e.ID, "title", e.Title, "source", e.Source, "start", e.StartTime, "end", e.EndTime, "all_day", e.AllDay)
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("availability collection aborted: %w", err)
	}

	sort.Slice(report.Failures, func(i, j int) bool {
		return order[report.Failures[i].Participant] < order[report.Failures[j].Participant]
	})

	m, err := availability.Build(slots, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to build availability matrix: %w", err)
	}
	req, err := resolver.NewRequest(slots, m, plan.Roster(), plan.Window())
	if err != nil {
		return nil, fmt.Errorf("failed to build resolution request: %w", err)
	}
	report.Request = req

	logger.Info("Collected availability.", "slots", len(slots), "responded", len(raw), "pending", len(report.Pending), "failed", len(report.Failures))
	return report, nil
}

// fetch reads one calendar with a per-attempt timeout, retries and the
// source's circuit breaker.
func (c *Collector) fetch(ctx context.Context, src meeting.Source, from, to time.Time) ([]*models.Event, error) {
	key, source, err := c.source(ctx, src)
	if err != nil {
		return nil, err
	}

	events, err := c.breaker(key).Execute(func() ([]*models.Event, error) {
		var out []*models.Event
		op := func() error {
			actx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
			defer cancel()
			evs, err := source.BusyEvents(actx, src.Calendar, from, to)
			if err != nil {
				if permanent(err) {
					return backoff.Permanent(err)
				}
				return err
			}
			out = evs
			return nil
		}
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = c.opts.RetryInterval
		b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.opts.Retries)), ctx)
		return out, backoff.Retry(op, b)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s is failing, not retrying: %w", key, err)
	}
	return events, err
}

func (c *Collector) source(ctx context.Context, src meeting.Source) (string, BusySource, error) {
	switch src.Type {
	case meeting.SourceCalDAV:
		if c.caldav == nil {
			return "", nil, fmt.Errorf("%w: caldav", ErrSourceNotConfigured)
		}
		return "caldav", c.caldav, nil
	case meeting.SourceGoogle:
		key := "google:" + src.Account
		c.mu.Lock()
		defer c.mu.Unlock()
		if s, ok := c.google[src.Account]; ok {
			return key, s, nil
		}
		if c.openGoogle == nil {
			return "", nil, fmt.Errorf("%w: google", ErrSourceNotConfigured)
		}
		s, err := c.openGoogle(ctx, src.Account)
		if err != nil {
			return "", nil, fmt.Errorf("failed to open google account %s: %w", src.Account, err)
		}
		c.google[src.Account] = s
		return key, s, nil
	default:
		return "", nil, fmt.Errorf("source %q has no calendar to fetch", src.Type)
	}
}

func (c *Collector) breaker(key string) *gobreaker.CircuitBreaker[[]*models.Event] {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.breakers[key]; ok {
		return b
	}
	b := gobreaker.NewCircuitBreaker[[]*models.Event](gobreaker.Settings{
		Name:    key,
		Timeout: c.opts.BreakerTimeout,
		// A participant's bad calendar name says nothing about the source's health.
		IsSuccessful: func(err error) bool {
			return err == nil || permanent(err)
		},
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= c.opts.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("Calendar source circuit breaker changed state", "source", name, "from", from.String(), "to", to.String())
		},
	})
	c.breakers[key] = b
	return b
}

// permanent reports whether err is a per-participant problem that retrying
// will not fix.
func permanent(err error) bool {
	return errors.Is(err, models.ErrCalendarNotFound)
}

func toIntervals(events []*models.Event) []availability.Interval {
	out := make([]availability.Interval, 0, len(events))
	for _, e := range events {
		out = append(out, availability.Interval{Start: e.StartTime, End: e.EndTime, AllDay: e.AllDay})
	}
	return out
}
