package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/numistry/cointrade-api/internal/auth"
	"github.com/numistry/cointrade-api/internal/catalog"
	"github.com/numistry/cointrade-api/internal/database/migrations"
	"github.com/numistry/cointrade-api/internal/trades"
	"github.com/numistry/cointrade-api/internal/users"
	"github.com/numistry/cointrade-api/pkg/middleware"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	minTrades     = 10
	maxTrades     = 60
	numWorkers    = 4
	serverAddress = "http://localhost:8081"
	jwtSecret     = "cointrade-simulation-secret"
)

var coinTitles = []string{
	"1921 Morgan Dollar", "1933 Double Eagle", "Athenian Owl Tetradrachm",
	"1955 Doubled Die Cent", "Gothic Crown", "Flowing Hair Dollar",
}

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// routeStats tracks performance statistics for an API endpoint
type routeStats struct {
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
	mu         sync.Mutex
}

func (rs *routeStats) addDuration(d time.Duration) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
}

func (rs *routeStats) addFailure() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.failures++
}

// calculate computes min, max, mean, median, p95 and p99 durations
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))
	median = rs.durations[len(rs.durations)/2]

	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(rs.durations))*0.99)) - 1
	p95 = rs.durations[p95idx]
	p99 = rs.durations[p99idx]

	return
}

// simClient drives the trade API as one authenticated collector
type simClient struct {
	baseURL string
	token   string
	userID  string
	client  *http.Client
	stats   map[string]*routeStats
}

// sharedStats is built once and shared by all simulated collectors
func newStats() map[string]*routeStats {
	return map[string]*routeStats{
		"register": {name: "Register"},
		"coin":     {name: "Create Coin"},
		"initiate": {name: "Initiate Trade"},
		"offer":    {name: "Submit Offer"},
		"accept":   {name: "Accept Offer"},
		"message":  {name: "Send Message"},
		"ship":     {name: "Mark Shipped"},
		"receive":  {name: "Mark Received"},
		"detail":   {name: "Trade Detail"},
	}
}

// newSimClient registers a fresh collector account and returns an
// authenticated client for it
func newSimClient(username string, stats map[string]*routeStats) (*simClient, error) {
	sc := &simClient{
		baseURL: serverAddress,
		client:  &http.Client{Timeout: 10 * time.Second},
		stats:   stats,
	}

	start := time.Now()
	payload := map[string]string{
		"username":     username,
		"password":     "simulation-password",
		"display_name": username,
	}
	var result struct {
		Data struct {
			Token  string `json:"jwt_token"`
			UserID string `json:"user_id"`
		} `json:"data"`
	}
	if err := sc.post("/api/v1/auth/register", payload, &result); err != nil {
		sc.stats["register"].addFailure()
		return nil, fmt.Errorf("failed to register %s: %w", username, err)
	}
	sc.stats["register"].addDuration(time.Since(start))

	sc.token = result.Data.Token
	sc.userID = result.Data.UserID
	return sc, nil
}

func (sc *simClient) post(path string, payload interface{}, out interface{}) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(raw)
	}

	req, err := http.NewRequest("POST", sc.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if sc.token != "" {
		req.Header.Set("Authorization", "Bearer "+sc.token)
	}

	resp, err := sc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%s failed with status %d: %s", path, resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
		}
	}
	return nil
}

func (sc *simClient) get(path string, out interface{}) error {
	req, err := http.NewRequest("GET", sc.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+sc.token)

	resp, err := sc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s failed with status %d: %s", path, resp.StatusCode, string(respBody))
	}
	if out != nil {
		return json.Unmarshal(respBody, out)
	}
	return nil
}

func (sc *simClient) timed(key string, fn func() error) error {
	start := time.Now()
	err := fn()
	if err != nil {
		sc.stats[key].addFailure()
		return err
	}
	sc.stats[key].addDuration(time.Since(start))
	return nil
}

// createCoin catalogs a trade-eligible coin and returns its id
func (sc *simClient) createCoin(title string) (string, error) {
	var result struct {
		Data struct {
			CoinID string `json:"coin_id"`
		} `json:"data"`
	}
	err := sc.timed("coin", func() error {
		return sc.post("/api/v1/coins", map[string]interface{}{
			"title": title,
			"year":  1900 + rand.Intn(100),
		}, &result)
	})
	return result.Data.CoinID, err
}

// runTradeLifecycle drives one full negotiation between two collectors:
// initiate, offer, accept, ship both ways, confirm receipt both ways.
func runTradeLifecycle(workerID, iteration int, stats map[string]*routeStats) error {
	initiator, err := newSimClient(fmt.Sprintf("collector_%d_%d_a", workerID, iteration), stats)
	if err != nil {
		return err
	}
	owner, err := newSimClient(fmt.Sprintf("collector_%d_%d_b", workerID, iteration), stats)
	if err != nil {
		return err
	}

	subjectCoin, err := owner.createCoin(coinTitles[rand.Intn(len(coinTitles))])
	if err != nil {
		return err
	}
	offeredCoin, err := initiator.createCoin(coinTitles[rand.Intn(len(coinTitles))])
	if err != nil {
		return err
	}

	var initiated struct {
		Data struct {
			TradeID string `json:"trade_id"`
		} `json:"data"`
	}
	if err := initiator.timed("initiate", func() error {
		return initiator.post("/api/v1/trades", map[string]string{"coin_id": subjectCoin}, &initiated)
	}); err != nil {
		return err
	}
	tradeID := initiated.Data.TradeID

	var offered struct {
		Data struct {
			OfferID string `json:"offer_id"`
		} `json:"data"`
	}
	if err := initiator.timed("offer", func() error {
		return initiator.post(fmt.Sprintf("/api/v1/trades/%s/offers", tradeID), map[string]interface{}{
			"offered_coin_id": offeredCoin,
			"message":         "interested in a straight swap?",
		}, &offered)
	}); err != nil {
		return err
	}

	if err := owner.timed("message", func() error {
		return owner.post(fmt.Sprintf("/api/v1/trades/%s/messages", tradeID), map[string]string{
			"content": "condition photos look good, accepting",
		}, nil)
	}); err != nil {
		return err
	}

	if err := owner.timed("accept", func() error {
		return owner.post(fmt.Sprintf("/api/v1/trades/%s/offers/%s/accept", tradeID, offered.Data.OfferID), nil, nil)
	}); err != nil {
		return err
	}

	for _, party := range []*simClient{initiator, owner} {
		p := party
		if err := p.timed("ship", func() error {
			return p.post(fmt.Sprintf("/api/v1/trades/%s/shipping/shipped", tradeID), map[string]string{
				"tracking_number": fmt.Sprintf("TRK%08d", rand.Intn(100000000)),
			}, nil)
		}); err != nil {
			return err
		}
	}

	for _, party := range []*simClient{initiator, owner} {
		p := party
		if err := p.timed("receive", func() error {
			return p.post(fmt.Sprintf("/api/v1/trades/%s/shipping/received", tradeID), nil, nil)
		}); err != nil {
			return err
		}
	}

	var detail struct {
		Data struct {
			Trade struct {
				Status string `json:"status"`
			} `json:"trade"`
		} `json:"data"`
	}
	if err := initiator.timed("detail", func() error {
		return initiator.get("/api/v1/trades/"+tradeID, &detail)
	}); err != nil {
		return err
	}

	if detail.Data.Trade.Status != "completed" {
		return fmt.Errorf("trade %s ended in status %s, expected completed", tradeID, detail.Data.Trade.Status)
	}

	log.Info().
		Str("trade_id", tradeID).
		Int("worker", workerID).
		Msg("trade lifecycle completed")
	return nil
}

// startServer boots an in-process API server backed by a throwaway database
func startServer() error {
	db, err := gorm.Open(sqlite.Open("file:simulation?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(
		&users.User{}, &catalog.Coin{},
		&trades.Trade{}, &trades.TradeOffer{}, &trades.TradeShipping{},
		&trades.TradeMessage{}, &trades.TradeReport{},
	); err != nil {
		return err
	}
	if err := migrations.AddLiveTradeIndex(db); err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	userService := users.NewService(db)
	authService := auth.NewService(jwtSecret, userService)
	authHandlers := auth.NewGinHandlers(authService)
	catalogService := catalog.NewService(db)
	catalogHandlers := catalog.NewGinHandlers(catalogService)
	tradeService := trades.NewService(db, catalogService, userService)
	tradeHandlers := trades.NewGinHandlers(tradeService)

	v1 := router.Group("/api/v1")
	v1.POST("/auth/register", authHandlers.RegisterHandler())
	v1.POST("/auth/login", authHandlers.LoginHandler())

	protected := v1.Group("")
	protected.Use(middleware.JWTAuth(jwtSecret))
	protected.POST("/coins", catalogHandlers.CreateCoinHandler())
	protected.GET("/coins/:coin_id", catalogHandlers.GetCoinHandler())
	protected.POST("/trades", tradeHandlers.InitiateTradeHandler())
	protected.GET("/trades", tradeHandlers.ListTradesHandler())
	protected.GET("/trades/:trade_id", tradeHandlers.GetTradeDetailHandler())
	protected.POST("/trades/:trade_id/offers", tradeHandlers.SubmitOfferHandler())
	protected.POST("/trades/:trade_id/offers/:offer_id/accept", tradeHandlers.AcceptOfferHandler())
	protected.POST("/trades/:trade_id/offers/:offer_id/reject", tradeHandlers.RejectOfferHandler())
	protected.POST("/trades/:trade_id/messages", tradeHandlers.SendMessageHandler())
	protected.POST("/trades/:trade_id/shipping/shipped", tradeHandlers.MarkShippedHandler())
	protected.POST("/trades/:trade_id/shipping/received", tradeHandlers.MarkReceivedHandler())

	return router.Run(":8081")
}

// printPerformanceStats outputs formatted statistics for all API endpoints
func printPerformanceStats(stats map[string]*routeStats) {
	fmt.Println("\nAPI Performance Statistics")
	fmt.Println(strings.Repeat("-", 100))
	fmt.Printf("%-20s %10s %10s %10s %10s %10s %10s %10s %10s\n",
		"Endpoint", "Calls", "Errors", "Min", "Max", "Mean", "Median", "P95", "P99")
	fmt.Println(strings.Repeat("-", 100))

	for _, rs := range stats {
		min, max, mean, median, p95, p99 := rs.calculate()
		fmt.Printf("%-20s %10d %10d %10s %10s %10s %10s %10s %10s\n",
			rs.name,
			rs.totalCalls,
			rs.failures,
			min.Round(time.Millisecond),
			max.Round(time.Millisecond),
			mean.Round(time.Millisecond),
			median.Round(time.Millisecond),
			p95.Round(time.Millisecond),
			p99.Round(time.Millisecond))
	}
	fmt.Println(strings.Repeat("-", 100))
}

// main runs the trade lifecycle simulation against an in-process server
func main() {
	go func() {
		if err := startServer(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for server to start
	time.Sleep(2 * time.Second)

	targetTrades := rand.Intn(maxTrades-minTrades) + minTrades
	log.Info().Int("target_trades", targetTrades).Msg("Starting simulation")

	stats := newStats()
	startTime := time.Now()

	var wg sync.WaitGroup
	var completed, failed int
	var mu sync.Mutex

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := 0; i < targetTrades/numWorkers; i++ {
				if err := runTradeLifecycle(workerID, i, stats); err != nil {
					log.Error().Err(err).Int("worker", workerID).Msg("trade lifecycle failed")
					mu.Lock()
					failed++
					mu.Unlock()
					continue
				}
				mu.Lock()
				completed++
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	log.Info().
		Int("completed", completed).
		Int("failed", failed).
		Dur("elapsed", time.Since(startTime)).
		Msg("Simulation finished")

	printPerformanceStats(stats)
}
