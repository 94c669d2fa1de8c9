// Package crm pushes qualified leads into the sales team's systems of record.
package crm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/outreach-cli/internal/classify"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/qualify"
	"github.com/sells-group/outreach-cli/internal/resilience"
)

// LeadRecord is the CRM view of a qualified lead.
type LeadRecord struct {
	Email          string
	Name           string
	Company        string
	ResponseType   classify.ResponseType
	Tier           qualify.Tier
	TotalScore     int
	Priority       qualify.PriorityLevel
	AssignTo       string
	Package        string
	EstimatedValue int64
	Probability    float64
	NextAction     string
	Notes          string
	QualifiedAt    time.Time
}

// RecordFrom builds a LeadRecord from a stored lead and the reply's
// response type.
func RecordFrom(l model.Lead, rt classify.ResponseType) LeadRecord {
	q := l.Qualification
	r := LeadRecord{
		Email:          l.Email,
		Name:           l.Name,
		Company:        l.Company,
		ResponseType:   rt,
		Tier:           l.Tier,
		TotalScore:     l.TotalScore,
		Priority:       l.Priority,
		AssignTo:       q.Priority.AssignTo,
		Package:        q.RecommendedPackage.Name,
		EstimatedValue: q.EstimatedValue.Amount,
		Probability:    q.EstimatedValue.Probability,
		Notes:          q.Notes,
		QualifiedAt:    l.UpdatedAt,
	}
	if len(q.NextActions) > 0 {
		r.NextAction = q.NextActions[0].Action
	}
	if r.QualifiedAt.IsZero() {
		r.QualifiedAt = time.Now().UTC()
	}
	return r
}

// Rating maps a tier onto the Hot/Warm/Cold scale CRMs use.
func Rating(t qualify.Tier) string {
	switch t {
	case qualify.TierEnterprise:
		return "Hot"
	case qualify.TierGrowth, qualify.TierStarter:
		return "Warm"
	default:
		return "Cold"
	}
}

// Summary is the one-paragraph description written to CRM records.
func (r LeadRecord) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tier %s (%d/%d), priority %s, replied %s.", r.Tier, r.TotalScore, qualify.MaxScore, r.Priority, r.ResponseType)
	if r.Package != "" {
		fmt.Fprintf(&b, " Recommended: %s.", r.Package)
	}
	if r.NextAction != "" {
		fmt.Fprintf(&b, " Next: %s.", r.NextAction)
	}
	if r.Notes != "" {
		b.WriteString(" ")
		b.WriteString(r.Notes)
	}
	return b.String()
}

// Sink receives qualified leads.
type Sink interface {
	Name() string
	Push(ctx context.Context, r LeadRecord) error
}

// MultiSink pushes to every sink concurrently and returns the first error.
type MultiSink []Sink

func (m MultiSink) Name() string {
	names := make([]string, len(m))
	for i, s := range m {
		names[i] = s.Name()
	}
	return strings.Join(names, ",")
}

func (m MultiSink) Push(ctx context.Context, r LeadRecord) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range m {
		g.Go(func() error {
			if err := s.Push(gctx, r); err != nil {
				return eris.Wrapf(err, "crm: push to %s", s.Name())
			}
			return nil
		})
	}
	return g.Wait()
}

// NopSink discards records. Used when no CRM is configured.
type NopSink struct{}

func (NopSink) Name() string { return "none" }

func (NopSink) Push(context.Context, LeadRecord) error { return nil }

// guarded runs a push through the sink's breaker and logs the outcome.
func guarded(ctx context.Context, b *resilience.Breaker, sink, email string, fn func(ctx context.Context) error) error {
	err := b.Execute(ctx, fn)
	if err != nil {
		zap.L().Warn("crm: push failed",
			zap.String("sink", sink),
			zap.String("email", email),
			zap.String("circuit", b.State().String()),
			zap.Error(err),
		)
		return err
	}
	zap.L().Debug("crm: pushed", zap.String("sink", sink), zap.String("email", email))
	return nil
}
