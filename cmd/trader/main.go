package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yanun0323/logs"

	"main/internal/analyzer"
	"main/internal/dataprovider"
	"main/internal/gateway"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/obs"
	"main/internal/operator"
	"main/internal/ops"
	"main/internal/repository"
	"main/internal/strategy"
	"main/pkg/conn"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to JSON config")
	flag.Parse()

	if err := run(*configPath); err != nil {
		logs.Errorf("trader: %+v", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loaded, err := ops.Load(configPath)
	if err != nil {
		return err
	}

	if loaded.ProfileAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "trader",
			ServerAddress:   loaded.ProfileAddr,
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			return err
		}
		defer func() { _ = profiler.Stop() }()
	}

	var metrics *obs.Metrics
	if loaded.MetricsAddr != "" {
		registry := prometheus.NewRegistry()
		metrics = obs.NewMetrics(registry)
		go serveMetrics(ctx, loaded.MetricsAddr, registry)
	}

	provider, series, err := buildProvider(ctx, loaded)
	if err != nil {
		return err
	}

	gw, err := gateway.New(loaded.Venue, gateway.Config{
		Market:       loaded.Market,
		Budget:       loaded.Budget,
		CommissionBP: loaded.CommissionBP,
		PollInterval: loaded.PollInterval,
		Risk:         loaded.Risk,
		Series:       series,
		Upbit:        loaded.Upbit,
		Metrics:      metrics,
	})
	if err != nil {
		return err
	}
	defer gw.Stop()

	cfg := operator.Config{
		Tag:        "trader-" + loaded.Venue.String(),
		Interval:   loaded.Interval,
		ScoreEvery: loaded.ScoreEvery,
		Metrics:    metrics,
	}
	var op *operator.Operator
	if loaded.Venue == enum.VenueSimulation {
		op = operator.NewSimulation(cfg)
	} else {
		op = operator.New(cfg)
	}

	op.Initialize(provider, strategy.NewBuyAndHold(), gw, analyzer.NewBasic(), loaded.Budget)
	if !op.Start() {
		return errors.New("trader: operator refused to start")
	}

	select {
	case <-ctx.Done():
		logs.Info("trader: shutdown signal")
	case <-op.Done():
		logs.Info("trader: series exhausted")
	}

	report := op.Stop()
	if report != nil {
		logs.Infof("trader: return %.3f%%, budget %s, estimated %s, results %d",
			report.ReturnRate, report.Budget, report.EstimatedValue, report.ResultCount)
	}
	return nil
}

// buildProvider selects the market data source. Replay runs also hand the
// series to the venue so both sides consume the same candles.
func buildProvider(ctx context.Context, loaded ops.Loaded) (dataprovider.DataProvider, []model.MarketSnapshot, error) {
	if loaded.Venue == enum.VenueSimulation {
		series, err := dataprovider.LoadSeriesFile(loaded.DataFile)
		if err != nil {
			return nil, nil, err
		}
		provider, err := dataprovider.NewReplay(series)
		if err != nil {
			return nil, nil, err
		}
		return provider, series, nil
	}

	// Sub-second cadences cannot afford a REST round trip per tick; stream
	// quotes over the venue websocket and serve them from cache instead.
	if loaded.Interval < time.Second {
		stream := dataprovider.NewUpbitStream(ctx, loaded.Market)
		if err := stream.Start(ctx); err != nil {
			return nil, nil, err
		}
		return stream, nil, nil
	}

	provider := dataprovider.NewUpbit(nil, loaded.Market)
	if loaded.Postgres != nil {
		client, err := conn.New(*loaded.Postgres)
		if err != nil {
			return nil, nil, err
		}
		if err := client.Ping(ctx); err != nil {
			return nil, nil, err
		}
		repo, err := repository.NewCandle(client)
		if err != nil {
			return nil, nil, err
		}
		provider.WithRepository(repo)
	}
	return provider, nil, nil
}

func serveMetrics(ctx context.Context, addr string, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logs.Warnf("metrics server, err: %+v", err)
	}
}
