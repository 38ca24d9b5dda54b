// Command driveorchctl starts an Orchestrator against the simulated
// fieldbus adapter and prints periodic status until interrupted.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ecat-drives/orchestrator"
	"github.com/ecat-drives/orchestrator/internal/logging"
	"github.com/ecat-drives/orchestrator/simulated"
)

func main() {
	var (
		iface       = flag.String("iface", "sim0", "fieldbus interface name")
		slaves      = flag.Int("slaves", 4, "number of simulated drive axes")
		cyclePeriod = flag.Duration("cycle", 2*time.Millisecond, "I/O loop cycle period")
		statusEvery = flag.Duration("status-every", 1*time.Second, "status print interval")
		verbose     = flag.Bool("v", false, "verbose (debug-level) logging")
		metricsAddr = flag.String("metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9100)")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	adapter := simulated.New(*slaves)

	orch := orchestrator.New(*iface, adapter, orchestrator.Options{
		CyclePeriod: *cyclePeriod,
		Logger:      logger,
	})

	if err := orch.Initialize(); err != nil {
		logger.Errorf("failed to initialize orchestrator: %v", err)
		os.Exit(1)
	}
	defer func() {
		logger.Info("shutting down")
		if err := orch.Shutdown(); err != nil {
			logger.Errorf("error during shutdown: %v", err)
		}
	}()

	logger.Infof("orchestrator running: iface=%s slaves=%d", *iface, orch.SlaveCount())
	fmt.Printf("driveorchctl: %d axes online on %q\n", orch.SlaveCount(), *iface)
	fmt.Printf("Press Ctrl+C to stop...\n")

	if *metricsAddr != "" {
		registry := prometheus.NewRegistry()
		registry.MustRegister(orch.PrometheusCollector())
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Printf("driveorchctl: metrics server stopped: %v", err)
			}
		}()
		logger.Infof("serving Prometheus metrics on %s/metrics", *metricsAddr)
	}

	faults, unsubscribeFaults := orch.Faulted()
	defer unsubscribeFaults()
	go func() {
		for f := range faults {
			logger.Warnf("fault: slave=%d code=%s hint=%q", f.Slave, f.Code, f.Hint)
		}
	}()

	ticker := time.NewTicker(*statusEvery)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sigCh:
			fmt.Println("\nreceived shutdown signal")
			return
		case <-ticker.C:
			printStatus(orch)
		}
	}
}

func printStatus(orch *orchestrator.Orchestrator) {
	status := orch.GetStatus()
	snap := orch.Metrics().Snapshot()
	fmt.Printf("[%s] wkc=%d/%d cycle=%s ticks=%d dispatched=%d completed=%d failed=%d\n",
		status.Timestamp.Format(time.RFC3339),
		status.Health.LastWKC, status.Health.GroupExpectedWKC,
		status.CycleTime, snap.TicksTotal, snap.CommandsDispatched,
		snap.CommandsCompleted, snap.CommandsFailed)
	for _, d := range status.Drives {
		fmt.Printf("  slave=%d pos=%d enabled=%v motor_on=%v latched=%v cmd=%q\n",
			d.Slave, d.ActualPosition, d.AmplifiersEnabled, d.MotorOn, d.StopLatched, d.ActiveCommandKeyword)
	}
}
