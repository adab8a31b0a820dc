package ranking

import (
	"context"
	"errors"
	"runtime"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shuttleworks/rankings-cli/internal/config"
	"github.com/shuttleworks/rankings-cli/internal/model"
)

// Engine computes rankings from an immutable result snapshot. Independent
// events share no mutable state, so ComputeAll runs them concurrently; a
// single event's computation is strictly sequential (group, carry up,
// aggregate, rank).
type Engine struct {
	ladder *Ladder
	bestOf int
}

// New builds an Engine from ranking configuration.
func New(cfg config.RankingConfig) (*Engine, error) {
	ladder, err := NewLadder(cfg.AgeLadder)
	if err != nil {
		return nil, err
	}
	bestOf := cfg.BestOf
	if bestOf <= 0 {
		bestOf = 4
	}
	return &Engine{ladder: ladder, bestOf: bestOf}, nil
}

// BestOf returns the configured selection size.
func (e *Engine) BestOf() int { return e.bestOf }

// ComputeEvent produces the complete, rank-assigned entry list for one
// event from the full result snapshot. Entries come back ordered by rank,
// 1..N with no gaps, where N is the number of players with a non-empty
// candidate pool.
func (e *Engine) ComputeEvent(results []model.Result, target model.Event) ([]model.RankingEntry, error) {
	pools, err := ResolvePools(results, target, e.ladder)
	if err != nil {
		return nil, err
	}

	entries := make([]model.RankingEntry, 0, len(pools))
	for _, pool := range pools {
		agg := AggregatePool(pool.Results, e.bestOf)
		entries = append(entries, model.RankingEntry{
			EventCode:          target.Code,
			PlayerID:           pool.PlayerID,
			FirstName:          pool.FirstName,
			LastName:           pool.LastName,
			TotalPoints:        agg.TotalPoints,
			Top4Vector:         agg.Top4Vector,
			CountedTournaments: agg.CountedTournaments,
			MostRecentDate:     agg.MostRecentDate,
		})
	}

	NewOrderer().Sort(entries)
	return entries, nil
}

// ComputeAll recomputes every event present in the snapshot. Events are
// computed concurrently; the returned map is keyed by event code.
//
// An event whose age bracket is missing from the configured ladder fails
// that event only: everything else is still computed and returned, and
// the joined error reports each failed event to the operator.
func (e *Engine) ComputeAll(ctx context.Context, results []model.Result) (map[string][]model.RankingEntry, error) {
	events := eventsInSnapshot(results)

	var mu sync.Mutex
	rankings := make(map[string][]model.RankingEntry, len(events))
	var failures []error

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for _, target := range events {
		g.Go(func() error {
			entries, err := e.ComputeEvent(results, target)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				zap.L().Error("ranking: event computation failed",
					zap.String("event", target.Code),
					zap.Error(err),
				)
				failures = append(failures, err)
				return nil // other events are isolated, keep going
			}
			rankings[target.Code] = entries
			return nil
		})
	}
	_ = g.Wait()

	return rankings, errors.Join(failures...)
}

// CountedWindow reports which of a player's results fell inside the scored
// best-of window for the target event. Keys are "EventCode|TournamentName";
// lower-bracket results pulled in by carry-up can appear too. A player with
// no candidate pool yields an empty set.
func (e *Engine) CountedWindow(results []model.Result, target model.Event, playerID int64) (map[string]bool, error) {
	pools, err := ResolvePools(results, target, e.ladder)
	if err != nil {
		return nil, err
	}
	counted := make(map[string]bool)
	for _, pool := range pools {
		if pool.PlayerID != playerID {
			continue
		}
		for _, r := range SelectTop(pool.Results, e.bestOf) {
			counted[WindowKey(r.EventCode, r.TournamentName)] = true
		}
		break
	}
	return counted, nil
}

// WindowKey builds the lookup key used by CountedWindow.
func WindowKey(eventCode, tournamentName string) string {
	return eventCode + "|" + tournamentName
}

// PoolEventCodes lists the event codes whose results can feed the target
// event's candidate pools: the target itself plus every lower bracket of the
// same family, youngest first.
func (e *Engine) PoolEventCodes(target model.Event) ([]string, error) {
	lower, err := e.ladder.LowerAges(target.Age)
	if err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(lower)+1)
	for _, age := range lower {
		codes = append(codes, target.Family()+" "+age)
	}
	return append(codes, target.Code), nil
}

// eventsInSnapshot lists the distinct, parseable events in the snapshot,
// ordered by code for reproducible scheduling and logging.
func eventsInSnapshot(results []model.Result) []model.Event {
	byCode := make(map[string]model.Event)
	for _, r := range results {
		ev, err := model.ParseEventCode(r.EventCode)
		if err != nil {
			continue
		}
		byCode[ev.Code] = ev
	}
	events := make([]model.Event, 0, len(byCode))
	for _, ev := range byCode {
		events = append(events, ev)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Code < events[j].Code })
	return events
}
