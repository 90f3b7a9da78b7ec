package connector

import (
	"context"
	"time"

	"github.com/parkfeeds/parques-reunidos/internal/anomaly"
	"github.com/parkfeeds/parques-reunidos/internal/models"
	"golang.org/x/sync/errgroup"
)

// Snapshot holds every platform output of a park, built in a single run.
type Snapshot struct {
	RunID       string    `json:"runId" yaml:"run_id"`
	Park        string    `json:"park" yaml:"park"`
	GeneratedAt time.Time `json:"generatedAt" yaml:"generated_at"`

	Destination models.Entity           `json:"destination" yaml:"destination"`
	Parks       []models.Entity         `json:"parks" yaml:"parks"`
	Attractions []models.Entity         `json:"attractions" yaml:"attractions"`
	Restaurants []models.Entity         `json:"restaurants" yaml:"restaurants"`
	Shows       []models.Entity         `json:"shows" yaml:"shows"`
	Live        []models.LiveStatus     `json:"live" yaml:"live"`
	Schedule    []models.ScheduleBundle `json:"schedule" yaml:"schedule"`

	// Anomalies counts the problems found in vendor data, by kind.
	Anomalies map[anomaly.Kind]int `json:"anomalies" yaml:"anomalies"`
}

// Snapshot builds every output of the park. The vendor payloads are fetched concurrently;
// any failed fetch fails the whole snapshot.
func (c *Connector) Snapshot(ctx context.Context) (s Snapshot, err error) {
	r := c.newRun(OpSnapshot)
	defer func() { r.done(OpSnapshot, err) }()

	r.log.Info("Building snapshot")
	m := r.mapper()
	s = Snapshot{
		RunID:       r.id,
		Park:        c.park.ID,
		GeneratedAt: time.Now().In(c.loc),
		Destination: m.Destination(),
		Parks:       m.Parks(),
		Shows:       m.Shows(),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		payload, records, err := r.attractionCatalog(ctx)
		if err != nil {
			return err
		}
		s.Attractions = m.Attractions(records)
		s.Live, err = r.liveFrom(ctx, payload, records)
		return err
	})
	g.Go(func() (err error) {
		s.Restaurants, err = r.restaurants(ctx)
		return err
	})
	g.Go(func() (err error) {
		s.Schedule, err = r.schedule(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	s.Anomalies = r.anomalies.Counts()
	r.log.Info("Snapshot built", "attractions", len(s.Attractions), "restaurants", len(s.Restaurants),
		"live", len(s.Live), "days", scheduleDays(s.Schedule))
	return s, nil
}

func scheduleDays(bundles []models.ScheduleBundle) int {
	var n int
	for _, b := range bundles {
		n += len(b.Schedule)
	}
	return n
}
