// Package tracker carries out routed intents: it allocates identifiers
// through the index, writes artifact stubs, and records each change in the
// audit log.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mesh-intelligence/waymark/internal/artifacts"
	"github.com/mesh-intelligence/waymark/internal/audit"
	"github.com/mesh-intelligence/waymark/internal/ids"
	"github.com/mesh-intelligence/waymark/internal/index"
	"github.com/mesh-intelligence/waymark/internal/router"
	"github.com/mesh-intelligence/waymark/pkg/types"
)

// Tracker ties the index, the artifact tree, and the audit log together.
type Tracker struct {
	store  *index.Store
	audit  *audit.Log
	gen    *ids.Generator
	logger *slog.Logger

	root      string
	owner     string
	retries   int
	retryWait time.Duration
	sleep     func(context.Context, time.Duration) error
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithGenerator replaces the identifier generator.
func WithGenerator(g *ids.Generator) Option {
	return func(t *Tracker) { t.gen = g }
}

// WithDefaultOwner sets the owner used when a request names none.
func WithDefaultOwner(owner string) Option {
	return func(t *Tracker) { t.owner = owner }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// New returns a Tracker over store and log configured by cfg.
func New(cfg types.Config, store *index.Store, log *audit.Log, opts ...Option) *Tracker {
	cfg = cfg.WithDefaults()
	t := &Tracker{
		store:     store,
		audit:     log,
		root:      cfg.ArtifactRoot,
		retries:   cfg.LockRetries,
		retryWait: cfg.LockRetryWait,
		sleep:     sleepCtx,
	}
	for _, o := range opts {
		o(t)
	}
	if t.gen == nil {
		t.gen = ids.NewGenerator(ids.WithSlugMaxLen(cfg.SlugMaxLen))
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	return t
}

// Result reports what Handle did.
type Result struct {
	Intent router.Intent
	Record types.IdentifierRecord // created record, or the target of MarkReady
	Status string                 // artifact status after the operation
}

// Handle routes text and performs the resulting intent. An Ambiguous
// intent is returned in the Result with no error and no side effects.
func (t *Tracker) Handle(ctx context.Context, text string, rc router.Context) (Result, error) {
	intent := router.Route(text, rc)
	res := Result{Intent: intent}

	var err error
	switch in := intent.(type) {
	case router.CreatePlan:
		res.Record, err = t.CreatePlan(ctx, in.Title, t.ownerOr(in.Owner), in.Ready)
		res.Status = planStatus(in.Ready)
	case router.CreateSpec:
		res.Record, err = t.CreateSpec(ctx, in.Title, in.PlanID, t.ownerOr(in.Owner))
		res.Status = artifacts.StatusDraft
	case router.CreateExec:
		res.Record, err = t.CreateExec(ctx, in.SpecID, t.ownerOr(in.Owner))
		res.Status = artifacts.StatusRunning
	case router.MarkReady:
		res.Record, err = t.MarkReady(ctx, in.TargetID)
		res.Status = artifacts.StatusReady
	case router.Ambiguous:
		t.logger.Debug("ambiguous request", "text", text, "reason", in.Reason)
	}
	return res, err
}

// CreatePlan creates a plan record and its stub.
func (t *Tracker) CreatePlan(ctx context.Context, title, owner string, ready bool) (types.IdentifierRecord, error) {
	return t.create(ctx, types.KindPlan, title, owner, planStatus(ready), nil)
}

// CreateSpec creates a spec under the plan planRef resolves to.
func (t *Tracker) CreateSpec(ctx context.Context, title, planRef, owner string) (types.IdentifierRecord, error) {
	return t.create(ctx, types.KindSpec, title, owner, artifacts.StatusDraft, func(v index.View) (types.IdentifierRecord, error) {
		return resolveKind(v, planRef, types.KindPlan)
	})
}

// CreateExec creates an execute log for the spec specRef resolves to. The
// title is derived from the spec.
func (t *Tracker) CreateExec(ctx context.Context, specRef, owner string) (types.IdentifierRecord, error) {
	rec, err := t.retry(ctx, func() (types.IdentifierRecord, error) {
		return t.store.Create(func(v index.View) (types.IdentifierRecord, error) {
			spec, err := resolveKind(v, specRef, types.KindSpec)
			if err != nil {
				return types.IdentifierRecord{}, err
			}
			return t.build(v, types.KindExec, "Execute "+spec.Title, owner, spec.ID)
		})
	})
	if err != nil {
		return types.IdentifierRecord{}, fmt.Errorf("creating exec for %s: %w", specRef, err)
	}
	return rec, t.finish(rec, artifacts.StatusRunning)
}

// MarkReady sets the status of the plan or spec ref resolves to. Marking an
// already ready artifact is not an error.
func (t *Tracker) MarkReady(ctx context.Context, ref string) (types.IdentifierRecord, error) {
	rec, err := t.Resolve(ctx, ref)
	if err != nil {
		return types.IdentifierRecord{}, fmt.Errorf("marking %s ready: %w", ref, err)
	}
	if rec.Kind == types.KindExec {
		return types.IdentifierRecord{}, fmt.Errorf("marking %s ready: %w: execute logs have no ready state", ref, types.ErrInvalidKind)
	}

	changed, err := artifacts.SetStatus(rec.Path, artifacts.StatusReady)
	if err != nil {
		return rec, fmt.Errorf("marking %s ready: %w", rec.Ref(), err)
	}
	if !changed {
		t.logger.Debug("already ready", "ref", rec.Ref())
		return rec, nil
	}

	payload := audit.RecordPayload(rec)
	payload["status"] = artifacts.StatusReady
	if _, err := t.audit.Record(audit.EventStatus, payload); err != nil {
		t.logger.Warn("audit write failed", "event", audit.EventStatus, "error", err)
	}
	t.logger.Info("marked ready", "ref", rec.Ref(), "path", rec.Path)
	return rec, nil
}

// Resolve returns the single record ref names.
func (t *Tracker) Resolve(ctx context.Context, ref string) (types.IdentifierRecord, error) {
	if err := ctx.Err(); err != nil {
		return types.IdentifierRecord{}, err
	}
	matches, err := t.store.Resolve(ref)
	if err != nil {
		return types.IdentifierRecord{}, err
	}
	return single(ref, matches)
}

func (t *Tracker) create(ctx context.Context, kind types.Kind, title, owner, status string, parent func(index.View) (types.IdentifierRecord, error)) (types.IdentifierRecord, error) {
	rec, err := t.retry(ctx, func() (types.IdentifierRecord, error) {
		return t.store.Create(func(v index.View) (types.IdentifierRecord, error) {
			parentID := ""
			if parent != nil {
				p, err := parent(v)
				if err != nil {
					return types.IdentifierRecord{}, err
				}
				parentID = p.ID
			}
			return t.build(v, kind, title, owner, parentID)
		})
	})
	if err != nil {
		return types.IdentifierRecord{}, fmt.Errorf("creating %s %q: %w", kind, title, err)
	}
	return rec, t.finish(rec, status)
}

func (t *Tracker) build(v index.View, kind types.Kind, title, owner, parentID string) (types.IdentifierRecord, error) {
	alloc, err := t.gen.Allocate(kind, title, v)
	if err != nil {
		return types.IdentifierRecord{}, err
	}
	rec := alloc.Record(kind, title)
	rec.Owner = owner
	rec.ParentID = parentID
	rec.Path = artifacts.PathFor(t.root, rec)
	return rec, nil
}

// finish writes the stub and the audit entry for a freshly indexed record.
// The index line is already durable, so failures here are reported but the
// record stands.
func (t *Tracker) finish(rec types.IdentifierRecord, status string) error {
	if err := artifacts.WriteStub(rec, status); err != nil {
		return fmt.Errorf("writing artifact for %s: %w", rec.Ref(), err)
	}
	if _, err := t.audit.Record(audit.EventCreated, audit.RecordPayload(rec)); err != nil {
		t.logger.Warn("audit write failed", "event", audit.EventCreated, "error", err)
	}
	t.logger.Info("created", "kind", rec.Kind, "ref", rec.Ref(), "path", rec.Path)
	return nil
}

// retry runs op, retrying lock timeouts with linear backoff.
func (t *Tracker) retry(ctx context.Context, op func() (types.IdentifierRecord, error)) (types.IdentifierRecord, error) {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return types.IdentifierRecord{}, err
		}
		rec, err := op()
		if err == nil || !types.IsRetryable(err) || attempt >= t.retries {
			return rec, err
		}
		wait := time.Duration(attempt+1) * t.retryWait
		t.logger.Warn("index busy, retrying", "attempt", attempt+1, "wait", wait)
		if err := t.sleep(ctx, wait); err != nil {
			return types.IdentifierRecord{}, err
		}
	}
}

func (t *Tracker) ownerOr(owner string) string {
	if owner != "" {
		return owner
	}
	return t.owner
}

func planStatus(ready bool) string {
	if ready {
		return artifacts.StatusReady
	}
	return artifacts.StatusDraft
}

func resolveKind(v index.View, ref string, kind types.Kind) (types.IdentifierRecord, error) {
	var matches []types.IdentifierRecord
	for _, r := range v.Resolve(ref) {
		if r.Kind == kind {
			matches = append(matches, r)
		}
	}
	rec, err := single(ref, matches)
	if errors.Is(err, types.ErrNotFound) {
		return rec, fmt.Errorf("%w: no %s matches %s", types.ErrNotFound, kind, ref)
	}
	return rec, err
}

func single(ref string, matches []types.IdentifierRecord) (types.IdentifierRecord, error) {
	switch len(matches) {
	case 0:
		return types.IdentifierRecord{}, fmt.Errorf("%w: %s", types.ErrNotFound, ref)
	case 1:
		return matches[0], nil
	}
	return types.IdentifierRecord{}, fmt.Errorf("%w: %s matches %d records", types.ErrAmbiguousRef, ref, len(matches))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
