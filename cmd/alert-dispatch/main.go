// Command alert-dispatch watches four alert buttons and sends a WhatsApp
// message through CallMeBot for every accepted press.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/sweeney/alert-dispatch/internal/config"
	"github.com/sweeney/alert-dispatch/internal/debounce"
	"github.com/sweeney/alert-dispatch/internal/dispatch"
	"github.com/sweeney/alert-dispatch/internal/feedback"
	"github.com/sweeney/alert-dispatch/internal/gpio"
	"github.com/sweeney/alert-dispatch/internal/logging"
	"github.com/sweeney/alert-dispatch/internal/metrics"
	"github.com/sweeney/alert-dispatch/internal/mqtt"
	"github.com/sweeney/alert-dispatch/internal/network"
	"github.com/sweeney/alert-dispatch/internal/notify"
	"github.com/sweeney/alert-dispatch/internal/resolver"
	"github.com/sweeney/alert-dispatch/internal/status"
	"github.com/sweeney/alert-dispatch/internal/web"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "alert-dispatch",
		Usage:     "send a WhatsApp alert for every button press",
		UsageText: "alert-dispatch [--config FILE] [--env-file FILE]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "TOML configuration file (defaults when empty)",
				EnvVars: []string{"ALERT_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "dotenv file providing " + config.EnvPhone + " and " + config.EnvAPIKey,
			},
			&cli.BoolFlag{
				Name:  "print-state",
				Usage: "print current channel levels and exit",
			},
			&cli.BoolFlag{
				Name:  "no-announce",
				Usage: "do not send the startup message",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "override the configured log level (debug, info, warn, error)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			return run(cfg, c.Bool("print-state"))
		},
	}
}

func loadConfig(c *cli.Context) (config.Config, error) {
	if err := config.LoadEnvFile(c.String("env-file")); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cfg, err
	}
	cfg.ApplyEnv(nil)
	if lvl := c.String("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if c.Bool("no-announce") {
		cfg.Announce.Enabled = false
	}
	return cfg, nil
}

func run(cfg config.Config, printState bool) error {
	logger, err := logging.NewDefault(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logger.Close()
	log := logger.Logger

	// Initialize GPIO
	gpioReader, err := gpio.NewRealReader(cfg.GPIO.Chip, cfg.Pins())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer gpioReader.Close()

	// Print state mode
	if printState {
		for id, ch := range cfg.Channels {
			high, err := gpioReader.ReadChannel(id)
			if err != nil {
				return fmt.Errorf("read %s: %w", ch.Name, err)
			}
			fmt.Printf("%s (pin %d): %s\n", ch.Name, ch.Pin, status.Level(high))
		}
		return nil
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	m := metrics.New()

	res := resolver.New(
		resolver.NewDNSMechanism(cfg.Resolver.PollInterval*time.Duration(cfg.Resolver.MaxAttempts)),
		cfg.Resolver,
		resolver.WithLogger(log.Named("resolver")),
		resolver.WithMetrics(m),
	)
	netSource := network.FileSource(cfg.Network.File, nil)

	notifier := notify.New(
		cfg.CallMeBot.Config,
		res,
		notify.NewTCPTransport(cfg.CallMeBot.ConnectTimeout, cfg.CallMeBot.WriteTimeout),
		notify.WithLogger(log.Named("notify")),
		notify.WithMetrics(m),
		notify.WithLinkChecker(network.NewLinkChecker(netSource)),
	)

	// Initialize MQTT
	var publisher interface {
		mqtt.Publisher
		mqtt.ConnectionStatus
	} = mqtt.Discard{}
	broker := ""
	if cfg.MQTT.Enabled {
		p, err := mqtt.NewRealPublisher(cfg.MQTT, log.Named("mqtt"), m)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		publisher = p
		broker = cfg.MQTT.Broker
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		TickMs:       cfg.Debounce.Tick.Milliseconds(),
		RefractoryMs: cfg.Debounce.Refractory.Milliseconds(),
		HeartbeatMs:  cfg.Debounce.Heartbeat.Milliseconds(),
		Broker:       broker,
		HTTPAddr:     cfg.HTTP.Addr,
		Host:         cfg.CallMeBot.Host,
		DNSServer:    cfg.Resolver.Server,
	})
	tracker.SetNetwork(network.Read(netSource()))

	controller := dispatch.New(notifier, feedback.Multi{
		feedback.NewLogSink(log.Named("delivery")),
		tracker,
		mqtt.NewSink(publisher, log.Named("mqtt")),
	}, dispatch.WithLogger(log.Named("dispatch")))

	// A signal cancels an outstanding send; runLoop then sees the same signal.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler := debounce.NewScheduler(gpioReader, cfg.Scheduler(), time.Now(), controller.AlertFunc(ctx),
		debounce.WithLogger(log.Named("debounce")),
		debounce.WithMetrics(m),
	)

	d := &daemon{
		scheduler:  scheduler,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		dns:        res.Cache(),
		heartbeat:  cfg.Debounce.Heartbeat,
		network:    netSource,
		log:        log,
	}

	// Publish startup event with full status snapshot
	d.publishSystem("STARTUP", "", time.Now(), true)

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, m.Handler(), log.Named("web"))
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("http server error", zap.Error(err))
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info("http status server listening", zap.String("addr", cfg.HTTP.Addr))
	}

	if cfg.Announce.Enabled {
		controller.AnnounceReady(ctx, cfg.Payload(cfg.Announce.Message))
	}

	log.Info("started",
		zap.Duration("tick", cfg.Debounce.Tick),
		zap.Duration("refractory", cfg.Debounce.Refractory),
		zap.Int("channels", len(cfg.Channels)),
		zap.String("broker", broker),
		zap.Duration("heartbeat", cfg.Debounce.Heartbeat))

	ticker := time.NewTicker(cfg.Debounce.Tick)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return d.runLoop(time.Now, ticker.C, sigCh)
}

// daemon holds what the main loop touches between ticks.
type daemon struct {
	scheduler  *debounce.Scheduler
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	dns        *resolver.Cache
	heartbeat  time.Duration
	network    network.Source
	log        *zap.Logger
}

func (d *daemon) runLoop(now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			d.log.Info("shutting down", zap.Stringer("signal", s))
			d.publishSystem("SHUTDOWN", signalName(s), now(), true)
			return nil

		case <-tick:
			t := now()
			d.scheduler.Tick(t)

			// Check for heartbeat
			if hb := d.scheduler.CheckHeartbeat(t, d.heartbeat); hb != nil {
				d.log.Info("heartbeat",
					zap.Duration("uptime", hb.Uptime),
					zap.Int("ticks", hb.Ticks),
					zap.Any("presses", hb.Presses))
				// Refresh network info for heartbeat
				d.tracker.SetNetwork(network.Read(d.network()))
				d.publishSystem("HEARTBEAT", "", hb.Timestamp, false)
				continue
			}

			d.refresh()
		}
	}
}

// refresh copies scheduler, MQTT and DNS state into the tracker.
func (d *daemon) refresh() {
	d.tracker.Update(d.scheduler.Snapshot(), d.scheduler.Ticks())
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
	if d.dns != nil {
		d.tracker.SetDNS(d.dns.Snapshot())
	}
}

func (d *daemon) publishSystem(event, reason string, ts time.Time, retained bool) {
	d.refresh()
	snap := d.tracker.Snapshot()
	err := d.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  ts,
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	if err != nil {
		d.log.Warn("failed to publish system event", zap.String("event", event), zap.Error(err))
		return
	}
	d.log.Debug("published system event", zap.String("event", event))
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
