package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/KyleKCarter/stock-bot/src/eventpubsub"
	"github.com/KyleKCarter/stock-bot/src/eventservices"
	"github.com/KyleKCarter/stock-bot/src/handler"
	"github.com/KyleKCarter/stock-bot/src/orb"
	"github.com/KyleKCarter/stock-bot/src/utils"
	"github.com/KyleKCarter/stock-bot/src/worker"
)

type RunArgs struct {
	Symbols      []string
	WatchlistYML string
	CalendarYML  string
	Port         int
	TradeLogPath string
}

type watchlistFile struct {
	Symbols []string `yaml:"symbols"`
}

var runCmd = &cobra.Command{
	Use:   "orbbot --symbols AAPL,TSLA,NVDA",
	Short: "Run the opening-range-breakout engine against the configured watchlist",
	Run: func(cmd *cobra.Command, args []string) {
		symbols, err := cmd.Flags().GetStringSlice("symbols")
		if err != nil {
			log.Fatalf("error getting symbols: %v", err)
		}

		watchlist, err := cmd.Flags().GetString("watchlist")
		if err != nil {
			log.Fatalf("error getting watchlist: %v", err)
		}

		calendarPath, err := cmd.Flags().GetString("calendar")
		if err != nil {
			log.Fatalf("error getting calendar: %v", err)
		}

		port, err := cmd.Flags().GetInt("port")
		if err != nil {
			log.Fatalf("error getting port: %v", err)
		}

		tradeLogPath, err := cmd.Flags().GetString("trade-log")
		if err != nil {
			log.Fatalf("error getting trade-log: %v", err)
		}

		if err := Run(RunArgs{
			Symbols:      symbols,
			WatchlistYML: watchlist,
			CalendarYML:  calendarPath,
			Port:         port,
			TradeLogPath: tradeLogPath,
		}); err != nil {
			log.Fatalf("Error: %v", err)
		}
	},
}

func loadWatchlist(args RunArgs) ([]string, error) {
	if len(args.Symbols) > 0 {
		return args.Symbols, nil
	}

	if args.WatchlistYML != "" {
		data, err := os.ReadFile(args.WatchlistYML)
		if err != nil {
			return nil, fmt.Errorf("loadWatchlist: failed to read %s: %w", args.WatchlistYML, err)
		}

		var file watchlistFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("loadWatchlist: failed to parse %s: %w", args.WatchlistYML, err)
		}

		if len(file.Symbols) > 0 {
			return file.Symbols, nil
		}
	}

	if raw := os.Getenv("ORB_SYMBOLS"); raw != "" {
		return strings.Split(raw, ","), nil
	}

	return nil, fmt.Errorf("loadWatchlist: no symbols configured")
}

func Run(args RunArgs) error {
	if err := utils.InitEnvironmentVariables(); err != nil {
		return fmt.Errorf("Run: failed to init environment: %w", err)
	}

	eventpubsub.Init()

	symbols, err := loadWatchlist(args)
	if err != nil {
		return err
	}

	location, err := time.LoadLocation("America/New_York")
	if err != nil {
		return fmt.Errorf("Run: failed to load location America/New_York: %w", err)
	}

	calendar, err := eventservices.NewMarketCalendar(args.CalendarYML, location)
	if err != nil {
		return fmt.Errorf("Run: failed to load market calendar: %w", err)
	}

	broker, err := eventservices.NewAlpacaClientFromEnv()
	if err != nil {
		return fmt.Errorf("Run: failed to build brokerage client: %w", err)
	}

	var fetcher orb.BarFetcher = broker
	if apiKey := os.Getenv("POLYGON_API_KEY"); apiKey != "" {
		log.Info("Run: using polygon aggregates for market data")
		fetcher = eventservices.NewPolygonClient(apiKey)
	}

	params := orb.FromEnv()
	coordinator := orb.NewCoordinator(fetcher, broker, calendar, symbols, params)

	tradeLog := orb.NewTradeLog(args.TradeLogPath)
	if err := tradeLog.Start(); err != nil {
		return fmt.Errorf("Run: failed to start trade log: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wg := &sync.WaitGroup{}

	orbWorker := worker.NewOrbWorker(wg, coordinator, calendar, tradeLog, params)
	orbWorker.Start(ctx)

	controlPlane := handler.NewControlPlane(coordinator, calendar)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", args.Port),
		Handler: controlPlane.Router(),
	}

	go func() {
		log.Infof("Run: control plane listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("Run: control plane: %v", err)
		}
	}()

	log.Infof("Run: engine started for %d symbols: %s", len(symbols), strings.Join(symbols, ", "))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Run: shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Run: server shutdown: %v", err)
	}

	wg.Wait()
	eventpubsub.WaitAsync()

	return nil
}

func main() {
	runCmd.PersistentFlags().StringSlice("symbols", []string{}, "comma-separated watchlist symbols")
	runCmd.PersistentFlags().String("watchlist", "", "path to a YAML watchlist file")
	runCmd.PersistentFlags().String("calendar", "", "path to a YAML market-calendar file")
	runCmd.PersistentFlags().Int("port", 8080, "control-plane listen port")
	runCmd.PersistentFlags().String("trade-log", "trade_events.csv", "path to the trade-event CSV")

	if err := runCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
