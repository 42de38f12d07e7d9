// Command capmonitor watches bottles pass the inspection point, checks each
// one for a cap, and latches the alarm relay when faulty bottles cluster.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sweeney/bottle-cap-monitor/internal/button"
	"github.com/sweeney/bottle-cap-monitor/internal/config"
	"github.com/sweeney/bottle-cap-monitor/internal/gpio"
	"github.com/sweeney/bottle-cap-monitor/internal/logger"
	"github.com/sweeney/bottle-cap-monitor/internal/mqtt"
	"github.com/sweeney/bottle-cap-monitor/internal/status"
	"github.com/sweeney/bottle-cap-monitor/internal/web"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the monitor and returns the process exit code. Logs are
// flushed before it returns so a fatal error is never lost to os.Exit.
func execute(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load(args)
	if err != nil {
		fmt.Fprintf(stderr, "capmonitor: %v\n", err)
		return 2
	}

	log := logger.NewWithWriter(cfg.LogLevel, stdout)
	err = run(cfg, log)
	if err != nil {
		log.Errorw("fatal", "err", err)
	}
	log.Sync()
	if err != nil {
		return 1
	}
	return 0
}

func run(cfg config.Config, log *logger.Logger) error {
	dev, err := gpio.NewRealIO(cfg.Chip, cfg.GPIOPins())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	// Registered first so it runs last: outputs go off after SHUTDOWN is out.
	defer func() {
		if err := dev.Close(); err != nil {
			log.Errorw("gpio close", "err", err)
		}
	}()

	if cfg.PrintState {
		s, err := dev.Read()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		fmt.Printf("bottle: %s, cap: %s, button: %s\n", onOff(s.Bottle), onOff(s.Cap), onOff(s.Button))
		return nil
	}

	bootID := uuid.NewString()

	var publisher mqtt.Publisher = mqtt.Discard{}
	if cfg.Broker != "" {
		publisher = mqtt.NewRealPublisher(cfg.Broker, "capmonitor-"+bootID[:8], log)
	}
	defer publisher.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		BootID:      bootID,
		PollMs:      cfg.Poll.Milliseconds(),
		LongPressMs: button.LongPressDuration.Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      cfg.Broker,
		HTTPAddr:    cfg.HTTPAddr,
		Diagnostics: cfg.Diagnostics,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Warnw("failed to publish startup event", "err", err)
	}

	if cfg.HTTPAddr != "" {
		gin.SetMode(gin.ReleaseMode)
		srv := web.New(cfg.HTTPAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorw("http server error", "err", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Infow("http status server listening", "addr", cfg.HTTPAddr)
	}

	log.Infow("started",
		"boot_id", bootID,
		"chip", cfg.Chip,
		"poll", cfg.Poll,
		"heartbeat", cfg.Heartbeat,
		"broker", cfg.Broker,
		"diagnostics", cfg.Diagnostics,
	)

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	c := newController(dev, dev, publisher, tracker, log, log.Diagnostics(cfg.Diagnostics), cfg.Heartbeat, time.Now)
	return c.run(ticker.C, sigCh)
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
