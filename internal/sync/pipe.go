// Package sync drives one pass of source-to-sink replication against a
// ledger, with per-object error isolation.
package sync

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/nholding/edgar-mirror/internal/calendar"
	"github.com/nholding/edgar-mirror/internal/repo"
	"github.com/nholding/edgar-mirror/internal/runinfo"
)

// defaultBufSize is the chunk size used for the streaming copy between
// a source object and its sink counterpart.
const defaultBufSize = 32 * 1024

// Source is the read-only side of a sync pass: whatever tree the
// mirror copies artifacts from.
type Source interface {
	Find(pt calendar.PeriodType, d calendar.Date) (repo.RepoObject, error)
}

// Sink is the writable side of a sync pass: it can enumerate what it
// is missing against a calendar window and create new artifacts.
type Sink interface {
	IterateMissing(from, to calendar.Date) ([]*repo.RepoObjectPath, error)
	Create(pt calendar.PeriodType, d calendar.Date) (repo.RepoObject, error)
}

// Ledger is the append-only log a sync pass reads from and writes to.
type Ledger interface {
	Start(ctx context.Context, date calendar.Date) error
	End(ctx context.Context, date calendar.Date) error
	Error(ctx context.Context, date *calendar.Date, message string) error
	Record(ctx context.Context, date calendar.Date, pt calendar.PeriodType) error
	NextPeriod(ctx context.Context) (from, to calendar.Date, err error)
}

// Pipe ties one Source to one Sink through one Ledger. Exactly one
// call to Sync should run against a given Pipe at a time; the pipe
// itself holds no concurrency control beyond what the underlying
// trees already enforce.
type Pipe struct {
	Source Source
	Sink   Sink
	Ledger Ledger
	Log    zerolog.Logger
}

// New builds a Pipe, stamping every subsequent log line with a fresh
// run id (A6) so operators can correlate this pass's log output with
// its ledger rows.
func New(source Source, sink Sink, ledger Ledger, log zerolog.Logger) *Pipe {
	run := runinfo.New()
	return &Pipe{
		Source: source,
		Sink:   sink,
		Ledger: ledger,
		Log:    log.With().Str("run", run.String()).Logger(),
	}
}

// Sync
//
// PURPOSE:
//
//	Drives exactly one sync pass: resolve the unprocessed window from
//	the ledger, enumerate what the sink is missing against the
//	calendar, and copy each missing artifact from the source, logging
//	every step to the ledger as it happens.
//
// STATE MACHINE:
//
//	IDLE -> WINDOWED (next_period) -> COPYING (iterate_missing, one
//	artifact at a time) -> DONE (iterator exhausted) or FAILED (any
//	step in the copy loop errors).
//
// GUARANTEES:
//
//   - At most one sink object is ever partially written, because the
//     sink's Write with overwrite=true is rename-atomic.
//   - On failure, no record event is emitted for the failing artifact;
//     every record already emitted for prior artifacts stands; no
//     compensating deletes happen.
//   - The source is never written to; only the sink is mutated.
//
// On any error from iterate_missing or the copy loop, Sync logs a
// single error event carrying the last artifact's date (nil if the
// failure happened before iterate_missing produced its first path) and
// returns that error without calling Ledger.End — the caller decides
// whether to retry, and when. A failure of NextPeriod or Start is
// returned without an error event.
func (p *Pipe) Sync(ctx context.Context) error {
	from, to, err := p.Ledger.NextPeriod(ctx)
	if err != nil {
		return fmt.Errorf("sync: resolving next period: %w", err)
	}
	p.Log.Info().Str("from", from.String()).Str("to", to.String()).Msg("window resolved")

	if err := p.Ledger.Start(ctx, from); err != nil {
		return fmt.Errorf("sync: logging start: %w", err)
	}

	missing, err := p.Sink.IterateMissing(from, to)
	if err != nil {
		p.fail(ctx, nil, err)
		return fmt.Errorf("sync: enumerating missing artifacts: %w", err)
	}
	p.Log.Info().Int("count", len(missing)).Msg("missing artifacts enumerated")

	var theDate *calendar.Date
	for _, path := range missing {
		d, err := path.AnchorDate()
		if err != nil {
			p.fail(ctx, theDate, err)
			return fmt.Errorf("sync: resolving date for %s: %w", path, err)
		}
		theDate = &d

		pt, err := path.PeriodType()
		if err != nil {
			p.fail(ctx, theDate, err)
			return fmt.Errorf("sync: resolving period type for %s: %w", path, err)
		}

		if err := p.copyOne(ctx, pt, d); err != nil {
			p.fail(ctx, theDate, err)
			return fmt.Errorf("sync: copying %s: %w", path, err)
		}

		if err := p.Ledger.Record(ctx, d, pt); err != nil {
			p.fail(ctx, theDate, err)
			return fmt.Errorf("sync: logging record for %s: %w", path, err)
		}
		p.Log.Debug().Str("date", d.String()).Str("type", pt.String()).Msg("artifact copied")
	}

	if err := p.Ledger.End(ctx, to); err != nil {
		return fmt.Errorf("sync: logging end: %w", err)
	}
	p.Log.Info().Str("through", to.String()).Msg("sync pass complete")
	return nil
}

// copyOne performs one source.find -> sink.create -> stream copy step.
func (p *Pipe) copyOne(ctx context.Context, pt calendar.PeriodType, d calendar.Date) error {
	src, err := p.Source.Find(pt, d)
	if err != nil {
		return fmt.Errorf("finding source artifact: %w", err)
	}
	if src == nil {
		return fmt.Errorf("source artifact absent")
	}

	dst, err := p.Sink.Create(pt, d)
	if err != nil {
		return fmt.Errorf("creating sink artifact: %w", err)
	}

	r, err := src.Read(defaultBufSize)
	if err != nil {
		return fmt.Errorf("reading source artifact: %w", err)
	}
	defer r.Close()

	if err := dst.Write(r, true); err != nil {
		return fmt.Errorf("writing sink artifact: %w", err)
	}

	if ctx.Err() != nil {
		return fmt.Errorf("context cancelled mid-copy: %w", ctx.Err())
	}
	return nil
}

// fail logs the ledger's error event, swallowing (but logging) any
// secondary failure writing that event itself — the original error is
// always what Sync returns to its caller.
func (p *Pipe) fail(ctx context.Context, theDate *calendar.Date, cause error) {
	p.Log.Error().Err(cause).Msg("sync pass failed")
	if err := p.Ledger.Error(ctx, theDate, cause.Error()); err != nil {
		p.Log.Error().Err(err).Msg("failed to record ledger error event")
	}
}
