package main

import (
	"flag"
	"os"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/analyzer"
	"main/internal/dataprovider"
	"main/internal/gateway/sim"
	"main/internal/model"
	"main/internal/operator"
	"main/internal/strategy"
)

// sim replays a candle series against the simulated venue as fast as the
// cadence allows and prints the closing report.
func main() {
	dataFile := flag.String("data", "", "Path to JSON candle series")
	budget := flag.Int64("budget", 50_000, "Starting cash in whole currency units")
	commissionBP := flag.Int64("commission-bp", 5, "Commission in basis points")
	interval := flag.Duration("interval", 20*time.Millisecond, "Tick interval")
	flag.Parse()

	if err := run(*dataFile, model.Price(*budget), *commissionBP, *interval); err != nil {
		logs.Errorf("sim: %+v", err)
		os.Exit(1)
	}
}

func run(dataFile string, budget model.Price, commissionBP int64, interval time.Duration) error {
	series, err := dataprovider.LoadSeriesFile(dataFile)
	if err != nil {
		return err
	}
	provider, err := dataprovider.NewReplay(series)
	if err != nil {
		return err
	}

	gw := sim.NewGateway(sim.Config{
		Market:       series[0].Market,
		Budget:       budget,
		CommissionBP: commissionBP,
		Series:       series,
	})
	defer gw.Stop()

	op := operator.NewSimulation(operator.Config{
		Tag:      "sim",
		Interval: interval,
	})
	op.Initialize(provider, strategy.NewBuyAndHold(), gw, analyzer.NewBasic(), budget)
	if !op.Start() {
		return errors.New("operator refused to start")
	}

	<-op.Done()
	report := op.Stop()
	if report == nil {
		logs.Warn("sim: no closing report")
		return nil
	}

	logs.Infof("sim: %d candles, %d results", len(series), report.ResultCount)
	logs.Infof("sim: budget %s, cash %s, estimated %s", report.Budget, report.Cash, report.EstimatedValue)
	logs.Infof("sim: return %.3f%%", report.ReturnRate)
	for market, rate := range report.PriceChangeRate {
		logs.Infof("sim: %s price change %.3f%%", market, rate)
	}
	return nil
}
