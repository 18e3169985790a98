package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andupetcu/androidremote-sub001/internal/core/domain"
	"github.com/andupetcu/androidremote-sub001/internal/core/ports"
	"github.com/andupetcu/androidremote-sub001/internal/core/services"
	"github.com/andupetcu/androidremote-sub001/internal/infrastructure/mdm"
	"github.com/andupetcu/androidremote-sub001/internal/infrastructure/monitoring"
	sig "github.com/andupetcu/androidremote-sub001/internal/infrastructure/signal"
	"github.com/andupetcu/androidremote-sub001/internal/infrastructure/webrtc"
	"github.com/andupetcu/androidremote-sub001/pkg/config"
	"github.com/andupetcu/androidremote-sub001/pkg/logger"
	"github.com/andupetcu/androidremote-sub001/pkg/retry"
	"github.com/andupetcu/androidremote-sub001/pkg/tracing"

	pionwebrtc "github.com/pion/webrtc/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type sessionReporter struct {
	controller *services.SessionController
}

func (r sessionReporter) State() string {
	return r.controller.State().String()
}

func main() {
	configPath := flag.String("config", "configs/agent.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	sugar := zapLog.Sugar()

	if cfg.Session.DeviceID == "" {
		sugar.Fatal("session.device_id is required (or set REMOTED_DEVICE_ID)")
	}

	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		JaegerURL:   cfg.Tracing.JaegerURL,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		sugar.Fatalw("failed to initialize tracing", "error", err)
	}
	defer tp.Shutdown(context.Background())

	registry := prometheus.NewRegistry()
	collector := monitoring.NewPrometheusCollector(registry)

	engineCfg := webrtc.EngineConfig{}
	for _, server := range cfg.WebRTC.ICEServers {
		engineCfg.ICEServers = append(engineCfg.ICEServers, pionwebrtc.ICEServer{
			URLs:       server.URLs,
			Username:   server.Username,
			Credential: server.Credential,
		})
	}
	engineCfg.PortRange.Min = cfg.WebRTC.PortRange.Min
	engineCfg.PortRange.Max = cfg.WebRTC.PortRange.Max
	engine := webrtc.NewEngine(engineCfg, sugar)

	controllerCfg := services.DefaultControllerConfig()
	controllerCfg.DataChannelTimeout = cfg.Session.DataChannelTimeout
	controllerCfg.Reconnect = retry.Config{
		MaxAttempts:  cfg.Session.Reconnect.MaxAttempts,
		InitialDelay: cfg.Session.Reconnect.InitialDelay,
		MaxDelay:     cfg.Session.Reconnect.MaxDelay,
		Multiplier:   2.0,
	}
	controllerCfg.CommandRatePerSecond = cfg.Commands.RatePerSecond
	controllerCfg.CommandBurst = cfg.Commands.Burst

	clientCfg := sig.ClientConfig{
		DialTimeout:  cfg.Signaling.ConnectTimeout,
		WriteTimeout: cfg.Signaling.WriteTimeout,
	}
	signalerFactory := func(serverURL, deviceID string, role domain.PeerRole) (ports.Signaler, error) {
		return sig.NewClient(serverURL, deviceID, role, clientCfg, sugar)
	}

	// Gesture and text injection need a platform integration that is wired
	// separately; without one the controller answers those commands with
	// failure acks.
	handlers := services.Handlers{
		MDM: mdm.NewHandler(sugar),
	}

	controller := services.NewSessionController(
		controllerCfg,
		engine,
		signalerFactory,
		services.NewAuthService(sugar),
		handlers,
		collector,
		sugar,
	)

	if cfg.Monitoring.PrometheusEnabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		mux.Handle("/healthz", monitoring.NewHealthHandler(sessionReporter{controller}))

		addr := fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort)
		go func() {
			sugar.Infow("monitoring endpoint listening", "addr", addr)
			if err := http.ListenAndServe(addr, mux); err != nil {
				sugar.Errorw("monitoring endpoint failed", "error", err)
			}
		}()
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	err = controller.Connect(ctx, cfg.Signaling.URL, cfg.Session.Token, cfg.Session.DeviceID)
	cancel()
	if err != nil {
		sugar.Fatalw("initial connect failed", "error", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case s := <-stop:
			sugar.Infow("shutting down", "signal", s.String())
			controller.Disconnect()
			return
		case state := <-controller.States():
			if state.Phase == domain.PhaseError {
				sugar.Errorw("session entered error state", "message", state.Message)
				controller.Disconnect()
				os.Exit(1)
			}
		}
	}
}
