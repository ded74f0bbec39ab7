// Command intake-sensor samples a bottle's weight and flow sensors, accumulates
// the water drunk and reports the running total on a fixed interval.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sweeney/intake-sensor/internal/climate"
	"github.com/sweeney/intake-sensor/internal/config"
	"github.com/sweeney/intake-sensor/internal/gpio"
	"github.com/sweeney/intake-sensor/internal/logic"
	"github.com/sweeney/intake-sensor/internal/metrics"
	"github.com/sweeney/intake-sensor/internal/mqtt"
	"github.com/sweeney/intake-sensor/internal/netinfo"
	"github.com/sweeney/intake-sensor/internal/report"
	"github.com/sweeney/intake-sensor/internal/sensor"
	"github.com/sweeney/intake-sensor/internal/status"
	"github.com/sweeney/intake-sensor/internal/web"
)

func main() {
	configPath := flag.String("config", "/etc/intake-sensor.yaml", "YAML config file (missing file uses defaults)")
	envPath := flag.String("env", ".env", "env file with endpoints and credentials")
	httpAddr := flag.String("http", "", "HTTP status address (overrides config, \"off\" disables)")
	broker := flag.String("broker", "", "MQTT broker address (enables the MQTT sink)")
	reportURL := flag.String("report-url", "", "HTTP report endpoint (overrides config)")
	sample := flag.Duration("sample", 0, "sampling interval (overrides config)")
	reportEvery := flag.Duration("report", 0, "report interval (overrides config)")
	simulate := flag.Bool("simulate", false, "simulate the weight channel")
	printState := flag.Bool("print-state", false, "take one sample, print the payload and exit")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if err := cfg.LoadEnv(*envPath); err != nil {
		log.Fatalf("fatal: %v", err)
	}
	applyFlags(cfg, *httpAddr, *broker, *reportURL, *sample, *reportEvery, *simulate)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if err := run(cfg, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// applyFlags overrides config values with the flags that were set.
func applyFlags(cfg *config.Config, httpAddr, broker, reportURL string, sample, reportEvery time.Duration, simulate bool) {
	switch httpAddr {
	case "":
	case "off":
		cfg.HTTPAddr = ""
	default:
		cfg.HTTPAddr = httpAddr
	}
	if broker != "" {
		cfg.Report.MQTT.Broker = broker
		cfg.Report.MQTT.Enabled = true
	}
	if reportURL != "" {
		cfg.Report.HTTP.URL = reportURL
		cfg.Report.HTTP.Enabled = true
	}
	if sample > 0 {
		cfg.SampleInterval = sample
	}
	if reportEvery > 0 {
		cfg.ReportInterval = reportEvery
	}
	if simulate {
		cfg.Weight.Enabled = true
		cfg.Weight.Simulated = true
	}
}

func limitsFromConfig(cfg *config.Config) sensor.Limits {
	r := func(b config.Bounds) sensor.Range { return sensor.Range{Min: b.Min, Max: b.Max} }
	return sensor.Limits{
		Weight:      r(cfg.Weight.Bounds),
		FlowRate:    r(cfg.Flow.Bounds),
		Temperature: r(cfg.Climate.TemperatureBounds),
		Humidity:    r(cfg.Climate.HumidityBounds),
	}
}

func run(cfg *config.Config, printState bool) error {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	acc := logic.NewAccumulator()
	acq := &sensor.Acquirer{Limits: limitsFromConfig(cfg)}

	// Weight channel
	if cfg.Weight.Enabled {
		if cfg.Weight.Simulated {
			s := cfg.Weight.Simulation
			sim := logic.NewSimulation(s.StartGrams, s.MinStep, s.MaxStep, rand.New(rand.NewSource(time.Now().UnixNano())))
			acq.Weight = sensor.NewSimulated(sim)
			acc.Seed(sim.Weight())
		} else {
			cell, err := gpio.NewRealLoadCell(cfg.Weight.Chip, cfg.Weight.DOUTPin, cfg.Weight.SCKPin)
			if err != nil {
				return fmt.Errorf("init load cell: %w", err)
			}
			defer cell.Close()

			scale := sensor.NewScale(cell, cfg.Weight.Samples, cfg.Weight.CalibrationFactor)
			if err := scale.Tare(); err != nil {
				return fmt.Errorf("tare scale: %w", err)
			}
			log.Printf("scale: tare offset=%.0f", scale.TareOffset())
			if grams, err := scale.ReadGrams(); err == nil {
				acc.Seed(grams)
			} else {
				log.Printf("scale: initial read failed, first reading will seed: %v", err)
			}
			acq.Weight = scale
		}
	}

	// Flow channel
	if cfg.Flow.Enabled {
		counter := sensor.NewCounter(nil)
		pin, err := gpio.NewRealPulseInput(cfg.Flow.Chip, cfg.Flow.Pin, counter.Edge)
		if err != nil {
			return fmt.Errorf("init flow meter: %w", err)
		}
		defer pin.Close()
		counter.SetFence(pin)
		acq.Flow = sensor.NewFlowMeter(counter, cfg.Flow.PulsesPerLPM, time.Now())
	}

	// Climate channel
	if cfg.Climate.Enabled {
		store := &climate.Store{}
		probe := climate.NewProbe(cfg.Climate.Port, cfg.Climate.Baud, cfg.Climate.Tag, store)
		g.Go(func() error { return probe.Run(ctx) })
		acq.Climate = sensor.NewClimate(store, cfg.Climate.MaxAge)
		log.Printf("climate: reading %s", probe)
	}

	// Print state mode
	if printState {
		time.Sleep(cfg.SampleInterval)
		st := acc.Apply(acq.Acquire(time.Now()))
		data, err := report.FormatPayload(report.BuildPayload(st, reportOptions(cfg)))
		if err != nil {
			return fmt.Errorf("format payload: %w", err)
		}
		fmt.Println(string(data))
		stop()
		return g.Wait()
	}

	m := metrics.New()
	checker := &netinfo.Checker{EnvFile: cfg.Report.NetworkEnv}

	tracker := status.NewTracker(time.Now(), status.Config{
		DeviceID:        cfg.DeviceID,
		SampleMs:        cfg.SampleInterval.Milliseconds(),
		ReportMs:        cfg.ReportInterval.Milliseconds(),
		Channels:        cfg.Channels(),
		Sinks:           cfg.Sinks(),
		Broker:          brokerIfEnabled(cfg),
		HTTPAddr:        cfg.HTTPAddr,
		DailyGoalML:     logic.DailyGoalML(cfg.BodyWeightKg),
		AsyncReports:    cfg.Report.Async,
		SimulatedWeight: cfg.Weight.Enabled && cfg.Weight.Simulated,
	})
	if info := checker.Info(); info != nil {
		tracker.SetNetwork(info)
	}

	acq.OnError = func(kind logic.Kind, _ error) {
		tracker.RecordSensorError(kind)
		m.SensorError(kind)
	}

	// Sinks
	var sinks []report.Sink
	if cfg.Report.HTTP.Enabled {
		sinks = append(sinks, report.NewHTTPSink(cfg.Report.HTTP.URL, cfg.Report.HTTP.Timeout))
	}
	var publisher mqtt.Publisher
	var mqttStatus mqtt.ConnectionStatus
	if cfg.Report.MQTT.Enabled {
		rp := mqtt.NewRealPublisher(mqtt.Options{
			Broker:      cfg.Report.MQTT.Broker,
			ClientID:    cfg.Report.MQTT.ClientID,
			Username:    cfg.Report.MQTT.Username,
			Password:    cfg.Report.MQTT.Password,
			TopicPrefix: cfg.Report.MQTT.TopicPrefix,
			DeviceID:    cfg.DeviceID,
		})
		defer rp.Close()
		publisher, mqttStatus = rp, rp
		sinks = append(sinks, rp)
	}

	dispatcher := report.NewDispatcher(checker, cfg.Report.Async, sinks...)
	dispatcher.OnSkip = func(error) {
		tracker.RecordSkip()
		m.ReportSkipped()
	}
	dispatcher.OnResult = func(o report.Outcome) {
		tracker.RecordReport(time.Now(), o.Code)
		m.ReportOutcome(o)
	}
	if cfg.Report.Async {
		g.Go(func() error { return dispatcher.Run(ctx) })
	}

	if err := m.StartPush(ctx, cfg.Metrics.PushURL, cfg.Metrics.PushInterval, cfg.DeviceID); err != nil {
		log.Printf("metrics: %v", err)
	}

	// Publish startup event with full status snapshot
	if publisher != nil {
		snap := tracker.Snapshot()
		startupEvent := mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "STARTUP",
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
		}
		if err := publisher.PublishSystem(startupEvent); err != nil {
			log.Printf("failed to publish startup event: %v", err)
		} else {
			log.Printf("published startup event")
		}
	}

	// Start HTTP status server
	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, m.Handler())
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("http server error: %v", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		log.Printf("http status server listening on %s", cfg.HTTPAddr)
	}

	log.Printf("started: device=%s sample=%v report=%v channels=%v sinks=%v async=%t",
		cfg.DeviceID, cfg.SampleInterval, cfg.ReportInterval, cfg.Channels(), cfg.Sinks(), cfg.Report.Async)

	ticker := time.NewTicker(cfg.SampleInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	l := &loop{
		acquirer:   acq,
		acc:        acc,
		sched:      logic.NewScheduler(cfg.ReportInterval, time.Now()),
		dispatcher: dispatcher,
		events:     publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		metrics:    m,
		report:     reportOptions(cfg),
		network:    checker.Info,
	}
	loopErr := runLoop(l, time.Now, ticker.C, sigCh)

	stop()
	if err := g.Wait(); err != nil && loopErr == nil {
		loopErr = err
	}
	return loopErr
}

func reportOptions(cfg *config.Config) report.Options {
	return report.Options{
		DeviceID:    cfg.DeviceID,
		DailyGoalML: logic.DailyGoalML(cfg.BodyWeightKg),
	}
}

func brokerIfEnabled(cfg *config.Config) string {
	if cfg.Report.MQTT.Enabled {
		return cfg.Report.MQTT.Broker
	}
	return ""
}

// submitter hands a payload to the sinks. *report.Dispatcher implements it.
type submitter interface {
	Submit(p report.Payload)
}

// systemPublisher publishes lifecycle events. mqtt.Publisher implements it.
type systemPublisher interface {
	PublishSystem(event mqtt.SystemEvent) error
}

// loop carries the collaborators of runLoop. Only acquirer, acc, sched and
// dispatcher are required.
type loop struct {
	acquirer   *sensor.Acquirer
	acc        *logic.Accumulator
	sched      *logic.Scheduler
	dispatcher submitter
	events     systemPublisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	metrics    *metrics.Metrics
	report     report.Options
	network    func() *netinfo.Info
}

func runLoop(l *loop, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			if l.events == nil {
				return nil
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if l.tracker != nil {
				l.refreshStatus()
				snap := l.tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := l.events.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			st := l.acc.Apply(l.acquirer.Acquire(t))

			if l.tracker != nil {
				l.tracker.Update(st)
				if l.mqttStatus != nil {
					l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
				}
			}
			if l.metrics != nil {
				l.metrics.ObserveState(st)
			}

			if l.sched.Check(t) {
				if l.tracker != nil && l.network != nil {
					if info := l.network(); info != nil {
						l.tracker.SetNetwork(info)
					}
				}
				l.dispatcher.Submit(report.BuildPayload(st, l.report))
				// Sent or not, the next report waits a full interval.
				l.sched.MarkSent(t)
			}
		}
	}
}

func (l *loop) refreshStatus() {
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
	if l.network != nil {
		if info := l.network(); info != nil {
			l.tracker.SetNetwork(info)
		}
	}
}
