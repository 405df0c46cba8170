package replay

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/okian/pitchtrace/internal/domain/model"
	"github.com/okian/pitchtrace/internal/domain/types"
	"github.com/okian/pitchtrace/pkg/logger"
)

// verifyResults waits until every uploaded player is listed, then checks
// that each player's latest summary saw movement.
func verifyResults(ctx context.Context, cfg *Config, batches []Batch, stats *Stats) error {
	log := logger.Get()
	client := newHTTPClient(cfg.Timeout)

	want := make(map[int64]bool, len(batches))
	for _, b := range batches {
		want[b.PlayerID] = true
	}

	if err := waitForPlayers(ctx, client, cfg.BaseURL, want); err != nil {
		return err
	}

	var days []string
	if err := client.getJSON(ctx, cfg.BaseURL+"/data/match-dates", &days); err != nil {
		return err
	}
	if len(days) == 0 {
		return fmt.Errorf("%w: no match dates", ErrIncomplete)
	}

	for id := range want {
		q := url.Values{}
		q.Set("created_at", days[0])
		q.Set("playerId", fmt.Sprint(id))

		var sums []model.SessionSummary
		if err := client.getJSON(ctx, cfg.BaseURL+"/data/player-metrics?"+q.Encode(), &sums); err != nil {
			return err
		}
		if len(sums) == 0 {
			return fmt.Errorf("%w: player %d has no summary on %s", ErrIncomplete, id, days[0])
		}
		if sums[len(sums)-1].TotalDistance <= 0 {
			return fmt.Errorf("%w: player %d has no distance", ErrIncomplete, id)
		}
		stats.PlayersVerified++
	}

	log.Info(ctx, "result verification completed", logger.Int("players", stats.PlayersVerified))
	return nil
}

// waitForPlayers polls /data/players until every wanted id is listed.
func waitForPlayers(ctx context.Context, client *HTTPClient, baseURL string, want map[int64]bool) error {
	ctx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()

	ticker := time.NewTicker(settlePollInterval)
	defer ticker.Stop()

	for {
		var players []types.PlayerRef
		if err := client.getJSON(ctx, baseURL+"/data/players", &players); err != nil {
			return err
		}
		seen := 0
		for _, p := range players {
			if want[p.PlayerID] {
				seen++
			}
		}
		if seen == len(want) {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %d of %d players summarized", ErrIncomplete, seen, len(want))
		case <-ticker.C:
		}
	}
}
