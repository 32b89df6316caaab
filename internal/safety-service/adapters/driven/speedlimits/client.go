package speedlimits

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"carpool-safety/internal/config"
	"carpool-safety/internal/mylogger"
	"carpool-safety/internal/safety-service/core/ports"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Client resolves posted speed limits from the map service. Limits change
// rarely, so answers are cached per coordinate grid cell with a TTL.
type Client struct {
	baseURL string
	client  *http.Client
	mylog   mylogger.Logger
	cache   *expirable.LRU[string, float64]
}

var _ ports.ISpeedLimitSource = (*Client)(nil)

func New(cfg config.SpeedLimitsconfig, mylog mylogger.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
		mylog:   mylog,
		cache:   expirable.NewLRU[string, float64](cfg.CacheSize, nil, time.Duration(cfg.CacheTTLSec)*time.Second),
	}
}

type limitResponse struct {
	SpeedLimitMph float64 `json:"speed_limit_mph"`
}

func (c *Client) LimitMph(ctx context.Context, latitude, longitude float64) (float64, error) {
	key := gridKey(latitude, longitude)
	if limit, ok := c.cache.Get(key); ok {
		return limit, nil
	}

	url := fmt.Sprintf("%s/v1/speed-limits?lat=%f&lng=%f", c.baseURL, latitude, longitude)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("speed limit lookup: status %d", resp.StatusCode)
	}

	var out limitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decoding response: %w", err)
	}
	if out.SpeedLimitMph <= 0 {
		return 0, fmt.Errorf("speed limit lookup: no limit for position")
	}

	c.cache.Add(key, out.SpeedLimitMph)
	return out.SpeedLimitMph, nil
}

// gridKey rounds coordinates to three decimals, about one city block, so
// consecutive samples on the same road share an entry.
func gridKey(latitude, longitude float64) string {
	return fmt.Sprintf("%.3f:%.3f", latitude, longitude)
}
