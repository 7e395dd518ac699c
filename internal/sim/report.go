package sim

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/oshokin/xk6-atomics/atomics/protocol"
)

// RouteCount is the number of protocol runs of one stage that ended with
// one route.
type RouteCount struct {
	Stage protocol.Stage
	Route protocol.Route
	Count int64
}

// Report summarises a simulation run.
type Report struct {
	RunID   string
	Workers int
	Rows    int
	Elapsed time.Duration
	// Routes is ordered by stage, then by route.
	Routes []RouteCount
	// GatesFlipped counts the rows whose completion gate was flipped.
	GatesFlipped int64
	// Discards counts the countdown cells removed by a waiter.
	Discards int64
	// CellsLeft is the store size after the run.
	CellsLeft int
}

// Count returns the number of runs of stage that ended with route.
func (r *Report) Count(stage protocol.Stage, route protocol.Route) int64 {
	for _, rc := range r.Routes {
		if rc.Stage == stage && rc.Route == route {
			return rc.Count
		}
	}

	return 0
}

// WriteTo prints the report in a human readable form.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var written int64

	printf := func(format string, args ...any) error {
		n, err := fmt.Fprintf(w, format, args...)
		written += int64(n)

		return err
	}

	if err := printf("run %s: %s workers, %s rows in %s\n",
		r.RunID,
		humanize.Comma(int64(r.Workers)),
		humanize.Comma(int64(r.Rows)),
		r.Elapsed.Round(time.Millisecond)); err != nil {
		return written, err
	}

	for _, rc := range r.Routes {
		if err := printf("  %-14s %-12s %s\n", rc.Stage, rc.Route, humanize.Comma(rc.Count)); err != nil {
			return written, err
		}
	}

	err := printf("gates flipped: %s, cells discarded: %s, cells left: %s\n",
		humanize.Comma(r.GatesFlipped),
		humanize.Comma(r.Discards),
		humanize.Comma(int64(r.CellsLeft)))

	return written, err
}

type routeKey struct {
	stage protocol.Stage
	route protocol.Route
}

type tally struct {
	mu     sync.Mutex
	routes map[routeKey]int64

	gatesFlipped atomic.Int64
	discards     atomic.Int64
}

func newTally() *tally {
	return &tally{routes: make(map[routeKey]int64)}
}

func (t *tally) add(stage protocol.Stage, route protocol.Route) {
	t.mu.Lock()
	t.routes[routeKey{stage: stage, route: route}]++
	t.mu.Unlock()
}

func (t *tally) report(runID string, workers, rows int, elapsed time.Duration) *Report {
	t.mu.Lock()
	routes := make([]RouteCount, 0, len(t.routes))

	for key, count := range t.routes {
		routes = append(routes, RouteCount{Stage: key.stage, Route: key.route, Count: count})
	}
	t.mu.Unlock()

	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Stage != routes[j].Stage {
			return routes[i].Stage < routes[j].Stage
		}

		return routes[i].Route < routes[j].Route
	})

	return &Report{
		RunID:        runID,
		Workers:      workers,
		Rows:         rows,
		Elapsed:      elapsed,
		Routes:       routes,
		GatesFlipped: t.gatesFlipped.Load(),
		Discards:     t.discards.Load(),
	}
}
