package audit

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/shulehq/shule/core"
)

var ErrNotFound = errors.New("audit entry not found")

// appendFailures surfaces swallowed audit-append errors to operators.
var appendFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "audit_append_failures_total",
	Help: "Total number of audit log appends that failed and were dropped.",
})

type (
	// Repository is append-and-query only. No update or delete exists.
	Repository interface {
		Append(ctx context.Context, e Entry) error
		Query(ctx context.Context, filter Filter) ([]Entry, error)
	}

	Recorder struct {
		repo   Repository
		logger core.Logger
	}
)

func NewRecorder(repo Repository, logger core.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// Record appends an audit entry, best-effort: an append failure is logged
// and counted but never propagated, so a missing audit entry cannot block
// the primary operation.
func (rec *Recorder) Record(ctx context.Context, e Entry) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if err := rec.repo.Append(ctx, e); err != nil {
		appendFailures.Inc()
		rec.logger.Error("audit append failed", errors.Wrap(err, "appending audit entry"))
	}
}

// Query reads back entries. Callers gate access (audit read/export is
// restricted to inspector and district_admin).
func (rec *Recorder) Query(ctx context.Context, filter Filter) ([]Entry, error) {
	if filter.Limit <= 0 || filter.Limit > 1000 {
		filter.Limit = 100
	}
	return rec.repo.Query(ctx, filter)
}
