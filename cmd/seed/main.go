// Command seed populates a running catalog service with a deterministic set
// of Bakugan items and price histories through the public API.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/domain"
	pkgconfig "github.com/pannatron/Bakugan-Dashboard-sub000/pkg/config"
	"github.com/pannatron/Bakugan-Dashboard-sub000/pkg/httpclient"
	"github.com/pannatron/Bakugan-Dashboard-sub000/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	if err := pkgconfig.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	opts := seedOptions{}
	var (
		apiURL   string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:          "seed",
		Short:        "Seed the catalog with sample Bakugan and price histories",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logger.New("seed", logLevel)
			hc := httpclient.New(httpclient.Config{
				Timeout:         10 * time.Second,
				MaxRetries:      2,
				RetryWaitMin:    200 * time.Millisecond,
				RetryWaitMax:    2 * time.Second,
				MaxConnsPerHost: 4,
			})
			defer hc.CloseIdleConnections()

			s := newSeeder(apiURL, hc, log)
			res, err := s.Seed(cmd.Context(), opts)
			if err != nil {
				return err
			}
			log.Info("seed complete",
				slog.Int("items", res.Items),
				slog.Int("price_points", res.PricePoints),
				slog.Int("failures", res.Failures),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&apiURL, "api", envOr("BROWSE_API_URL", "http://localhost:8080"), "catalog API base URL")
	cmd.Flags().StringVar(&logLevel, "log-level", envOr("LOG_LEVEL", "info"), "log level")
	cmd.Flags().IntVar(&opts.Count, "count", 60, "number of items to create")
	cmd.Flags().IntVar(&opts.History, "history", 6, "price points per item, one per month")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 1, "random seed; equal seeds produce equal catalogs")
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// =============================================================================
// Seed data
// =============================================================================

var (
	// Each entry is a primary name followed by its aliases.
	families = [][]string{
		{"Dragonoid", "Drago"},
		{"Hydranoid", "Hydra"},
		{"Tigrerra"},
		{"Gorem", "Hammer Gorem"},
		{"Preyas"},
		{"Skyress", "Storm Skyress"},
		{"Helios", "Cyborg Helios"},
		{"Percival"},
		{"Wavern"},
		{"Naga"},
		{"Elfin"},
		{"Nemus"},
		{"Ingram", "Master Ingram"},
		{"Wilda"},
		{"Reaper"},
	}
	sizes      = []string{"B1", "B2", domain.SizeB3}
	elements   = []string{"Pyrus", "Aquos", "Darkus", "Haos", "Subterra", "Ventus"}
	specials   = []string{"", "", "", "Clear", "Pearl", "Translucent"}
	seriesList = []string{"Battle Brawlers", "New Vestroia", "Gundalian Invaders", "Mechtanium Surge"}
)

type seedOptions struct {
	Count   int
	History int
	Seed    uint64
}

type seedResult struct {
	Items       int
	PricePoints int
	Failures    int
}

type itemRequest struct {
	Names             []string `json:"names"`
	Size              string   `json:"size"`
	Element           string   `json:"element"`
	SpecialProperties string   `json:"specialProperties,omitempty"`
	Series            string   `json:"series,omitempty"`
	CurrentPrice      float64  `json:"currentPrice"`
}

type priceRequest struct {
	Price     float64 `json:"price"`
	Timestamp string  `json:"timestamp"`
	Notes     string  `json:"notes,omitempty"`
}

// plan builds the deterministic item list for opts.
func plan(opts seedOptions) []itemRequest {
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))

	items := make([]itemRequest, 0, opts.Count)
	for i := 0; i < opts.Count; i++ {
		family := families[i%len(families)]
		names := append([]string(nil), family...)
		if gen := i / len(families); gen > 0 {
			names[0] = fmt.Sprintf("%s Mk%d", names[0], gen+1)
		}

		items = append(items, itemRequest{
			Names:             names,
			Size:              sizes[rng.IntN(len(sizes))],
			Element:           elements[rng.IntN(len(elements))],
			SpecialProperties: specials[rng.IntN(len(specials))],
			Series:            seriesList[rng.IntN(len(seriesList))],
			CurrentPrice:      float64(300 + 50*rng.IntN(60)),
		})
	}
	return items
}

// walk returns n monthly prices ending today, drifting from start.
func walk(rng *rand.Rand, start float64, n int, now time.Time) []priceRequest {
	points := make([]priceRequest, n)
	price := start
	for i := n - 1; i >= 0; i-- {
		points[i] = priceRequest{
			Price:     price,
			Timestamp: now.AddDate(0, -(n - 1 - i), 0).Format("2006-01-02"),
		}
		delta := 1 + (rng.Float64()-0.5)*0.2
		price = float64(int(price*delta/10) * 10)
		if price < 50 {
			price = 50
		}
	}
	return points
}

// =============================================================================
// Seeder
// =============================================================================

type seeder struct {
	baseURL string
	client  *httpclient.Client
	logger  *slog.Logger
	now     func() time.Time
}

func newSeeder(baseURL string, client *httpclient.Client, logger *slog.Logger) *seeder {
	return &seeder{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger,
		now:     time.Now,
	}
}

// Seed creates every planned item and its price history. Individual
// failures are logged and counted; only a canceled context aborts the run.
func (s *seeder) Seed(ctx context.Context, opts seedOptions) (seedResult, error) {
	var res seedResult
	rng := rand.New(rand.NewPCG(opts.Seed+1, opts.Seed))
	now := s.now().UTC()

	s.logger.Info("seeding catalog",
		slog.String("api_url", s.baseURL),
		slog.Int("count", opts.Count),
		slog.Int("history", opts.History),
	)

	for _, item := range plan(opts) {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		var created domain.CatalogItem
		if err := s.post(ctx, "/api/bakugan", item, &created); err != nil {
			res.Failures++
			s.logger.Warn("create item failed",
				slog.String("name", item.Names[0]),
				slog.String("error", err.Error()),
			)
			continue
		}
		res.Items++

		// Recorded oldest first so the newest point sets the current price.
		for _, p := range walk(rng, item.CurrentPrice, opts.History, now) {
			if err := s.post(ctx, "/api/bakugan/"+created.ID+"/prices", p, nil); err != nil {
				res.Failures++
				s.logger.Warn("record price failed",
					slog.String("bakugan_id", created.ID),
					slog.String("error", err.Error()),
				)
				continue
			}
			res.PricePoints++
		}
		s.logger.Debug("seeded item",
			slog.String("bakugan_id", created.ID),
			slog.String("name", item.Names[0]),
		)
	}
	return res, nil
}

// maxThrottleRetries bounds how often one request is retried after a 429.
const maxThrottleRetries = 5

func (s *seeder) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(ctx, req)
		if err != nil {
			return err
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < maxThrottleRetries {
			wait := retryAfter(resp.Header.Get("Retry-After"))
			_ = resp.Body.Close()
			s.logger.Debug("throttled, backing off", slog.String("path", path), slog.Duration("wait", wait))
			select {
			case <-time.After(wait):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if resp.StatusCode >= 300 {
			return httpclient.ParseResponseError(resp, "catalog")
		}
		return decodeData(resp, out)
	}
}

func decodeData(resp *http.Response, out any) error {
	defer func() { _ = resp.Body.Close() }()
	if out == nil {
		return nil
	}

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

// retryAfter parses a Retry-After value in seconds, defaulting to one second.
func retryAfter(v string) time.Duration {
	if n, err := strconv.Atoi(v); err == nil && n >= 0 {
		return time.Duration(n) * time.Second
	}
	return time.Second
}
