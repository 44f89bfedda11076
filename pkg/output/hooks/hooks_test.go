package hooks

import (
	"context"
	"errors"
	"time"

	"github.com/waftester/reconsuite/pkg/aggregate"
	"github.com/waftester/reconsuite/pkg/category"
	"github.com/waftester/reconsuite/pkg/output/events"
	"github.com/waftester/reconsuite/pkg/payload"
)

// kindErr is a failure that classifies itself like scanclient errors do.
type kindErr string

func (k kindErr) Error() string { return string(k) + " failure" }
func (k kindErr) Kind() string  { return string(k) }

// scanEvents builds the event sequence of one scan where the ports category
// failed with a network error and the rest succeeded.
func scanEvents(scanID string) (*events.ScanStarted, []*events.CategorySettled, *events.ScanSettled) {
	start := time.Now().Add(-2 * time.Second)
	started := events.NewScanStarted(scanID, "example.com", category.All())
	started.Time = start

	b := aggregate.NewBuilder(scanID, "example.com", start)
	var settled []*events.CategorySettled
	for _, c := range category.All() {
		var r aggregate.Result
		switch c {
		case category.Ports:
			r = aggregate.Failure(c, kindErr("network"))
		case category.Subdomains:
			r = aggregate.Success(c, payload.Subdomains{"www.example.com", "api.example.com"})
		default:
			r = aggregate.Success(c, category.Describe(c).Default())
		}
		r = r.WithTiming(1, 250*time.Millisecond)
		b.Set(r)
		settled = append(settled, events.NewCategorySettled(scanID, "example.com", r))
	}
	agg, err := b.Build(start.Add(2 * time.Second))
	if err != nil {
		panic(err)
	}
	return started, settled, events.NewScanSettled(agg)
}

func replay(ctx context.Context, h interface {
	OnEvent(context.Context, events.Event) error
}, scanID string) error {
	started, settled, done := scanEvents(scanID)
	errs := []error{h.OnEvent(ctx, started)}
	for _, e := range settled {
		errs = append(errs, h.OnEvent(ctx, e))
	}
	errs = append(errs, h.OnEvent(ctx, done))
	return errors.Join(errs...)
}
