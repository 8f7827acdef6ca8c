package simulation

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/okian/pairrank/internal/adapters/repository"
	service "github.com/okian/pairrank/internal/app"
	"github.com/okian/pairrank/internal/domain/model"
	"github.com/okian/pairrank/internal/domain/progress"
	"github.com/okian/pairrank/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	reportPermission    = 0o600
)

// Report summarizes a simulation run.
type Report struct {
	Seed       int64   `json:"seed"`
	Rounds     int     `json:"rounds"`
	Submitted  int     `json:"submitted"`
	Replayed   int     `json:"replayed"`
	Failed     int     `json:"failed"`
	KendallTau float64 `json:"kendall_tau"`

	// TrueOrder and Observed cover the items present in the final standings.
	TrueOrder []model.Item       `json:"true_order"`
	Observed  []model.Item       `json:"observed_order"`
	Top       []repository.Entry `json:"top"`
	Progress  *progress.Report   `json:"progress,omitempty"`
	Duration  string             `json:"duration"`
}

// counters hold the per-round outcome tallies shared by workers.
//
// gate is held shared by ordinary submissions and exclusively while a
// replay is checked against the server's comparison count.
type counters struct {
	submitted atomic.Int64
	replayed  atomic.Int64
	failed    atomic.Int64

	gate sync.RWMutex
}

// serverStats is the part of GET /stats a replay check reads.
type serverStats struct {
	Comparisons int `json:"comparisons"`
}

// Run executes a complete simulation against cfg.BaseURL.
func Run(ctx context.Context, cfg Config) (Report, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return Report{}, err
	}
	log := logger.Get().Named("simulation")
	start := time.Now()

	log.Info(ctx, "starting simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("rounds", cfg.Rounds),
		logger.Int("workers", cfg.Workers),
		logger.Float64("noise", cfg.Noise),
		logger.Float64("replay", cfg.Replay),
		logger.Any("seed", cfg.Seed),
	)

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)
	if err := checkServiceHealth(ctx, client); err != nil {
		return Report{}, err
	}

	rater := NewRater(cfg.Seed, cfg.Noise)
	var c counters
	judgeRounds(ctx, cfg, client, rater, &c, log)

	var standings []repository.Entry
	if _, err := client.getJSON(ctx, "/rankings", &standings); err != nil {
		return Report{}, fmt.Errorf("ranking retrieval failed: %w", err)
	}

	rep := Report{
		Seed:      cfg.Seed,
		Rounds:    cfg.Rounds,
		Submitted: int(c.submitted.Load()),
		Replayed:  int(c.replayed.Load()),
		Failed:    int(c.failed.Load()),
	}
	rep.Observed = make([]model.Item, len(standings))
	for i, e := range standings {
		rep.Observed[i] = e.Item
	}
	rep.TrueOrder = rater.TrueOrder(rep.Observed)
	rep.KendallTau = KendallTau(rep.TrueOrder, rep.Observed)
	rep.Top = standings[:min(cfg.TopN, len(standings))]

	var pr progress.Report
	switch status, err := client.getJSON(ctx, "/progress", &pr); {
	case err == nil:
		rep.Progress = &pr
	case status == http.StatusConflict:
		log.Warn(ctx, "progress unavailable", logger.Error(err))
	default:
		return Report{}, fmt.Errorf("progress retrieval failed: %w", err)
	}

	rep.Duration = time.Since(start).String()
	displayFinalStats(ctx, log, rep)

	if cfg.Output != "" {
		if err := saveReport(cfg.Output, rep); err != nil {
			log.Warn(ctx, "failed to save report", logger.Error(err))
		}
	}
	return rep, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	if _, err := client.getJSON(ctx, "/healthz", nil); err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	return nil
}

// judgeRounds fans rounds out to cfg.Workers raters. A failed round is
// counted and skipped.
func judgeRounds(ctx context.Context, cfg Config, client *HTTPClient, rater *Rater, c *counters, log logger.Logger) {
	rounds := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for round := range rounds {
				if err := judgeOnce(ctx, cfg, client, rater, c, log); err != nil {
					c.failed.Add(1)
					log.Warn(ctx, "round failed", logger.Int("round", round), logger.Error(err))
				}
			}
		}()
	}

	go func() {
		defer close(rounds)
		for i := 0; i < cfg.Rounds; i++ {
			select {
			case <-ctx.Done():
				return
			case rounds <- i:
			}
		}
	}()

	wg.Wait()
}

func judgeOnce(ctx context.Context, cfg Config, client *HTTPClient, rater *Rater, c *counters, log logger.Logger) error {
	var p service.Presentation
	if _, err := client.getJSON(ctx, "/pair", &p); err != nil {
		return fmt.Errorf("pair retrieval failed: %w", err)
	}
	winner, loser := rater.Judge(p.A, p.B)
	j := service.Judgment{RequestID: uuid.NewString(), Winner: winner, Loser: loser}

	var out service.Outcome
	c.gate.RLock()
	_, err := client.postJSON(ctx, "/comparisons", j, &out)
	c.gate.RUnlock()
	if err != nil {
		return fmt.Errorf("submission failed: %w", err)
	}
	c.submitted.Add(1)
	if cfg.Verbose {
		log.Info(ctx, "judged pair",
			logger.String("pair_id", p.PairID),
			logger.String("path", p.Path),
			logger.String("winner", string(winner)),
			logger.String("loser", string(loser)),
			logger.Float64("delta", out.RatingDelta),
		)
	}

	if cfg.Replay > 0 && rater.chance(cfg.Replay) {
		if err := replayOnce(ctx, client, j, c); err != nil {
			return err
		}
		c.replayed.Add(1)
	}
	return nil
}

// replayOnce resends j and checks that the server's comparison log did not
// grow. Other submissions wait until the check is done.
func replayOnce(ctx context.Context, client *HTTPClient, j service.Judgment, c *counters) error {
	c.gate.Lock()
	defer c.gate.Unlock()

	var before, after serverStats
	if _, err := client.getJSON(ctx, "/stats", &before); err != nil {
		return fmt.Errorf("stats retrieval failed: %w", err)
	}
	var again service.Outcome
	if _, err := client.postJSON(ctx, "/comparisons", j, &again); err != nil {
		return fmt.Errorf("replay failed: %w", err)
	}
	if _, err := client.getJSON(ctx, "/stats", &after); err != nil {
		return fmt.Errorf("stats retrieval failed: %w", err)
	}
	if !again.Replayed || after.Comparisons != before.Comparisons {
		return fmt.Errorf("%w: request %s was applied twice (comparisons %d -> %d)",
			ErrUnexpected, j.RequestID, before.Comparisons, after.Comparisons)
	}
	return nil
}

// displayFinalStats logs the final simulation statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, rep Report) {
	fields := []logger.Field{
		logger.Int("rounds", rep.Rounds),
		logger.Int("submitted", rep.Submitted),
		logger.Int("replayed", rep.Replayed),
		logger.Int("failed", rep.Failed),
		logger.Int("items", len(rep.Observed)),
		logger.Float64("kendallTau", rep.KendallTau),
		logger.String("duration", rep.Duration),
	}
	if rep.Progress != nil {
		fields = append(fields,
			logger.Float64("adjustedConfidence", rep.Progress.AdjustedConfidence),
			logger.String("advice", rep.Progress.Advice),
		)
	}
	log.Info(ctx, "final statistics", fields...)
}

// saveReport writes rep as indented JSON to filename.
func saveReport(filename string, rep Report) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), reportPermission); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
