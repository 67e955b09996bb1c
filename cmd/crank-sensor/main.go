// Command crank-sensor captures crankshaft position sensor edges and
// publishes decoded RPM and phase to MQTT.
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

	"github.com/sweeney/crank-sensor/internal/decoder"
	"github.com/sweeney/crank-sensor/internal/gpio"
	"github.com/sweeney/crank-sensor/internal/handoff"
	"github.com/sweeney/crank-sensor/internal/mqtt"
	"github.com/sweeney/crank-sensor/internal/status"
	"github.com/sweeney/crank-sensor/internal/tick"
	"github.com/sweeney/crank-sensor/internal/web"
)

type options struct {
	chip       string
	pin        int
	edge       gpio.Edge
	dec        decoder.Config
	noiseFloor time.Duration
	stall      time.Duration
	queueCap   int
	publish    time.Duration
	heartbeat  time.Duration
	broker     string
	httpAddr   string
	printRPM   bool
}

func main() {
	chip := flag.String("chip", gpio.DefaultChip, "GPIO character device name")
	pin := flag.Int("pin", gpio.DefaultPin, "BCM pin number for the crank sensor")
	edge := flag.String("edge", "rising", "Edge polarity to capture (rising, falling, both)")
	teeth := flag.Int("teeth", 36, "Tooth positions per revolution (including the missing tooth)")
	tickHz := flag.Int("tick-hz", tick.DefaultHz, "Timestamp counter frequency in Hz")
	noiseFloor := flag.Duration("noise-floor", 200*time.Microsecond, "Periods shorter than this are rejected as noise")
	stall := flag.Duration("stall", 500*time.Millisecond, "Periods longer than this are treated as a stall")
	gapRatio := flag.Float64("gap-ratio", 1.8, "Period-to-average ratio that marks the missing tooth gap")
	confirm := flag.Int("confirm", 3, "Normal periods required after a gap to confirm sync")
	faults := flag.Int("faults", 4, "Consecutive rejected edges before the decoder resets")
	history := flag.Int("history", 8, "Periods in the RPM moving average")
	queueCap := flag.Int("queue", 64, "Edge hand-off queue capacity")
	publish := flag.Duration("publish", 250*time.Millisecond, "Telemetry publish interval")
	broker := flag.String("broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	httpAddr := flag.String("http", ":80", "HTTP status address (empty to disable)")
	printRPM := flag.Bool("print-rpm", false, "Sample the sensor for one second, print RPM, and exit")

	flag.Parse()

	opts := options{
		chip: *chip,
		pin:  *pin,
		edge: gpio.Edge(*edge),
		dec: decoder.Config{
			TeethPerRev:    *teeth,
			TickHz:         *tickHz,
			NoiseFloor:     tick.FromDuration(*noiseFloor, *tickHz),
			StallBound:     tick.FromDuration(*stall, *tickHz),
			GapRatio:       *gapRatio,
			ConfirmWindow:  *confirm,
			FaultThreshold: *faults,
			History:        *history,
		},
		noiseFloor: *noiseFloor,
		stall:      *stall,
		queueCap:   *queueCap,
		publish:    *publish,
		heartbeat:  *heartbeat,
		broker:     *broker,
		httpAddr:   *httpAddr,
		printRPM:   *printRPM,
	}

	if err := run(opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(opts options) error {
	if err := opts.dec.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	dec, err := decoder.New(opts.dec)
	if err != nil {
		return fmt.Errorf("init decoder: %w", err)
	}

	queue := handoff.NewQueue(opts.queueCap)
	clock := tick.NewSystemClock(opts.dec.TickHz)

	// Capture debounce at half the noise floor so marginal pulses still
	// reach the decoder's own rejection counters.
	minPeriod := tick.FromDuration(opts.noiseFloor/2, opts.dec.TickHz)
	source, err := gpio.NewRealSource(opts.chip, opts.pin, opts.edge, minPeriod, opts.dec.TickHz, queue)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer source.Close()

	if err := source.Start(); err != nil {
		return fmt.Errorf("start edge capture: %w", err)
	}

	// Sample-and-print mode
	if opts.printRPM {
		return printCurrentRPM(queue, dec, clock)
	}

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(opts.broker)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		Chip:           opts.chip,
		Pin:            opts.pin,
		Edge:           string(opts.edge),
		TeethPerRev:    opts.dec.TeethPerRev,
		TickHz:         opts.dec.TickHz,
		NoiseFloorUs:   opts.noiseFloor.Microseconds(),
		StallMs:        opts.stall.Milliseconds(),
		GapRatio:       opts.dec.GapRatio,
		ConfirmWindow:  opts.dec.ConfirmWindow,
		FaultThreshold: opts.dec.FaultThreshold,
		History:        opts.dec.History,
		QueueCap:       opts.queueCap,
		PublishMs:      opts.publish.Milliseconds(),
		HeartbeatMs:    opts.heartbeat.Milliseconds(),
		Broker:         opts.broker,
		HTTPAddr:       opts.httpAddr,
	})

	// Publish startup event with full status snapshot
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

	// Start HTTP status server
	if opts.httpAddr != "" {
		srv := web.New(opts.httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", opts.httpAddr)
	}

	log.Printf("started: chip=%s pin=%d edge=%s teeth=%d noise-floor=%v stall=%v broker=%s",
		opts.chip, opts.pin, opts.edge, opts.dec.TeethPerRev, opts.noiseFloor, opts.stall, opts.broker)

	ticker := time.NewTicker(opts.publish)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(queue, source, publisher, publisher, tracker, dec, clock, opts.heartbeat, time.Now, ticker.C, sigCh)
}

// rejectCounter reports debounce rejections from the capture layer.
type rejectCounter interface {
	Rejected() uint64
}

func runLoop(queue *handoff.Queue, rejects rejectCounter, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, dec *decoder.Decoder, clock tick.Clock, heartbeat time.Duration, now func() time.Time, maint <-chan time.Time, sig <-chan os.Signal) error {
	lastHeartbeat := now()

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
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case e := <-queue.Edges():
			prev := dec.State()
			snap := dec.Process(e)
			if s := drainQueue(queue, dec); s != nil {
				snap = s
			}
			handleDecoded(snap, prev, queue, rejects, publisher, tracker)

		case <-maint:
			t := now()

			// Process any backlog before the stall check so queued edges
			// are never mistaken for silence.
			prev := dec.State()
			handleDecoded(drainQueue(queue, dec), prev, queue, rejects, publisher, tracker)

			nowTicks := clock.Now()
			var snap decoder.Snapshot
			if stalled := dec.CheckStall(nowTicks); stalled != nil {
				log.Printf("stall: no edges within bound, state=%s", stalled.State)
				snap = *stalled
			} else {
				snap = dec.Snapshot(nowTicks)
			}

			if tracker != nil {
				tracker.Update(snap)
				tracker.SetPipeline(queue.Overflows(), rejects.Rejected())
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}

			if err := publisher.PublishSnapshot(snap, queue.Overflows()); err != nil {
				log.Printf("publish error: %v", err)
			}

			if heartbeat > 0 && t.Sub(lastHeartbeat) >= heartbeat {
				lastHeartbeat = t
				hbEvent := mqtt.SystemEvent{
					Timestamp: t,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					s := tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(s, "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
		}
	}
}

// drainQueue processes every pending edge and returns the last snapshot
// the decoder emitted, or nil if none did.
func drainQueue(queue *handoff.Queue, dec *decoder.Decoder) *decoder.Snapshot {
	var snap *decoder.Snapshot
	for {
		e, ok := queue.TryPop()
		if !ok {
			return snap
		}
		if s := dec.Process(e); s != nil {
			snap = s
		}
	}
}

// handleDecoded records a decoded snapshot in the tracker. Publishing is
// decimated to the maintenance tick except on sync transitions, which go
// out immediately.
func handleDecoded(snap *decoder.Snapshot, prev decoder.SyncState, queue *handoff.Queue, rejects rejectCounter, publisher mqtt.Publisher, tracker *status.Tracker) {
	if snap == nil {
		return
	}
	if tracker != nil {
		tracker.Update(*snap)
		tracker.SetPipeline(queue.Overflows(), rejects.Rejected())
	}
	if snap.State != prev {
		if snap.State == decoder.Synced {
			log.Printf("sync acquired: tooth=%d rpm=%.1f", snap.ToothIndex, snap.RPM)
		} else {
			log.Printf("sync lost: rpm=%.1f desyncs=%d", snap.RPM, snap.Counts.Desyncs)
		}
		if err := publisher.PublishSnapshot(*snap, queue.Overflows()); err != nil {
			log.Printf("publish error: %v", err)
		}
	}
}

// printCurrentRPM consumes edges for one second and prints the decoded state.
func printCurrentRPM(queue *handoff.Queue, dec *decoder.Decoder, clock tick.Clock) error {
	deadline := time.After(time.Second)
	for {
		select {
		case e := <-queue.Edges():
			dec.Process(e)
		case <-deadline:
			snap := dec.Snapshot(clock.Now())
			fmt.Printf("RPM: %.1f, state: %s, tooth: %d\n", snap.RPM, snap.State, snap.ToothIndex)
			return nil
		}
	}
}
