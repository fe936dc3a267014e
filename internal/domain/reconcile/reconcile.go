// Package reconcile makes a member's live tier-label set match the label
// computed from their current rating, with minimal and idempotent effects.
package reconcile

import (
	"context"
	"fmt"

	"github.com/okian/tiersync/pkg/logger"
	"github.com/okian/tiersync/pkg/metrics"
)

// Directory is the slice of the group the reconciler mutates.
type Directory interface {
	MemberLabels(ctx context.Context, userID string) ([]string, error)
	AddLabel(ctx context.Context, userID, label string) error
	RemoveLabel(ctx context.Context, userID, label string) error
	SetDisplayName(ctx context.Context, userID, name string) error
}

// Announcer publishes the one-time celebratory announcement for a user's
// first successful verification.
type Announcer interface {
	Announce(ctx context.Context, userID, tierLabel string) error
}

// Result reports what one reconciliation did.
type Result struct {
	// Changed is true when at least one label mutation was applied.
	Changed bool
	// FirstAssignment is true when this was the user's first successful
	// verification (rename + announcement path).
	FirstAssignment bool
	// Removed lists labels successfully removed; Added is the label
	// granted, empty when the user already held the target.
	Removed []string
	Added   string
	// LabelErrors collects per-label failures; reconciliation continues
	// best-effort past them.
	LabelErrors []error
	// RenameFailed is set when the first-assignment display-name update
	// failed. The tier assignment stands regardless.
	RenameFailed error
}

// Reconciler applies minimal label diffs against the live group.
type Reconciler struct {
	dir       Directory
	announcer Announcer
	known     map[string]struct{} // every label the tier table can assign
	log       logger.Logger
}

// Option applies a configuration option to the Reconciler.
type Option func(*Reconciler)

// WithLogger sets a custom logger for the reconciler.
func WithLogger(log logger.Logger) Option {
	return func(r *Reconciler) {
		if log != nil {
			r.log = log
		}
	}
}

// New constructs a Reconciler. knownLabels must cover every label the tier
// table can assign (fallback included); labels outside this set are never
// touched.
func New(dir Directory, announcer Announcer, knownLabels []string, opts ...Option) *Reconciler {
	r := &Reconciler{
		dir:       dir,
		announcer: announcer,
		known:     make(map[string]struct{}, len(knownLabels)),
		log:       logger.Get().Named("reconcile"),
	}
	for _, label := range knownLabels {
		r.known[label] = struct{}{}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Diff computes the minimal mutation set: tier labels to remove and
// whether the target must be added. Labels outside known are untouched.
func Diff(current []string, known map[string]struct{}, target string) (toRemove []string, toAdd bool) {
	toAdd = true
	for _, label := range current {
		if label == target {
			toAdd = false
			continue
		}
		if _, managed := known[label]; managed {
			toRemove = append(toRemove, label)
		}
	}
	return toRemove, toAdd
}

// Reconcile drives a member's labels to the target. Removals are applied
// before the addition to avoid a multi-tier window; partial application on
// failure is reported, not rolled back. first marks the user's first
// successful verification and triggers the rename and the announcement.
func (r *Reconciler) Reconcile(ctx context.Context, userID, displayName, target string, first bool) (Result, error) {
	if _, managed := r.known[target]; !managed {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownLabel, target)
	}

	current, err := r.dir.MemberLabels(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("read member labels: %w", err)
	}

	toRemove, toAdd := Diff(current, r.known, target)
	res := Result{FirstAssignment: first}

	for _, label := range toRemove {
		if err := r.dir.RemoveLabel(ctx, userID, label); err != nil {
			metrics.RecordLabelError()
			res.LabelErrors = append(res.LabelErrors, fmt.Errorf("remove %q: %w", label, err))
			r.log.Warn(ctx, "label removal failed",
				logger.String("userID", userID),
				logger.String("label", label),
				logger.Error(err),
			)
			continue
		}
		metrics.RecordLabelRemoved()
		res.Removed = append(res.Removed, label)
		res.Changed = true
	}

	if toAdd {
		if err := r.dir.AddLabel(ctx, userID, target); err != nil {
			metrics.RecordLabelError()
			res.LabelErrors = append(res.LabelErrors, fmt.Errorf("add %q: %w", target, err))
			r.log.Warn(ctx, "label addition failed",
				logger.String("userID", userID),
				logger.String("label", target),
				logger.Error(err),
			)
		} else {
			metrics.RecordLabelAdded()
			res.Added = target
			res.Changed = true
		}
	}

	if res.Changed {
		metrics.RecordReconciliation()
	} else {
		metrics.RecordReconcileNoop()
	}

	if first {
		metrics.RecordFirstAssignment()
		if err := r.dir.SetDisplayName(ctx, userID, displayName); err != nil {
			// The tier assignment stands; the caller tells the user.
			res.RenameFailed = err
			r.log.Warn(ctx, "display-name update failed",
				logger.String("userID", userID),
				logger.Error(err),
			)
		}
		if err := r.announcer.Announce(ctx, userID, target); err != nil {
			r.log.Warn(ctx, "announcement failed",
				logger.String("userID", userID),
				logger.Error(err),
			)
		}
	}

	return res, nil
}
