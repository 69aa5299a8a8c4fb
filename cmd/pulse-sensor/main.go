// Command pulse-sensor reads an HRS3300 heart-rate sensor over I2C and
// publishes validated BPM readings to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/pulse-sensor/internal/bus"
	"github.com/sweeney/pulse-sensor/internal/config"
	"github.com/sweeney/pulse-sensor/internal/driver"
	"github.com/sweeney/pulse-sensor/internal/hrs3300"
	"github.com/sweeney/pulse-sensor/internal/led"
	"github.com/sweeney/pulse-sensor/internal/mqtt"
	"github.com/sweeney/pulse-sensor/internal/pipeline"
	"github.com/sweeney/pulse-sensor/internal/status"
	"github.com/sweeney/pulse-sensor/internal/web"
)

func main() {
	cfgPath := flag.String("config", "", "YAML config file (flags override)")
	poll := flag.Duration("poll", 40*time.Millisecond, "Sensor polling interval")
	broker := flag.String("broker", "tcp://localhost:1883", "MQTT broker address")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	i2cBus := flag.Int("i2c-bus", 1, "I2C bus number")
	printBPM := flag.Bool("print-bpm", false, "Sample for ~15s, print BPM, and exit")
	httpAddr := flag.String("http", ":8080", "HTTP status address (empty to disable)")
	wsBroker := flag.String("ws-broker", "=broker", `MQTT websocket URL for live UI ("=broker" derives from --broker, "off" disables)`)
	ledPin := flag.Int("led-pin", -1, "BCM pin for the beat LED (-1 disables)")

	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		cfg, err = config.Load(*cfgPath)
		if err != nil {
			log.Fatalf("fatal: %v", err)
		}
	}

	// Explicitly set flags win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "poll":
			cfg.Sensor.PollMs = int(poll.Milliseconds())
		case "broker":
			cfg.MQTT.Broker = *broker
		case "heartbeat":
			cfg.MQTT.HeartbeatMs = int(heartbeat.Milliseconds())
		case "i2c-bus":
			cfg.Sensor.I2CBus = *i2cBus
		case "http":
			cfg.HTTP.Addr = *httpAddr
		case "ws-broker":
			cfg.HTTP.WSBroker = *wsBroker
		case "led-pin":
			cfg.LED.Enabled = *ledPin >= 0
			cfg.LED.Pin = *ledPin
		}
	})

	if cfg.HTTP.WSBroker == "" || cfg.HTTP.WSBroker == "=broker" {
		cfg.HTTP.WSBroker = resolveWSBroker("=broker", cfg.MQTT.Broker)
	} else {
		cfg.HTTP.WSBroker = resolveWSBroker(cfg.HTTP.WSBroker, cfg.MQTT.Broker)
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if err := run(cfg, *printBPM); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config.Config, printBPM bool) error {
	b, err := bus.NewI2CBus(byte(cfg.Sensor.I2CBus), hrs3300.DefaultAddress)
	if err != nil {
		return fmt.Errorf("init i2c: %w", err)
	}
	defer b.Close()

	drv := driver.New(b, driver.Config{
		Pipeline:          config.PipelineConfig(cfg),
		ReadyTimeoutTicks: uint32(cfg.Sensor.ReadyTimeoutMs),
	}, nil)
	if err := drv.Init(); err != nil {
		return err
	}
	defer drv.Enable(false)

	poll := time.Duration(cfg.Sensor.PollMs) * time.Millisecond

	// One-shot mode for hardware bring-up.
	if printBPM {
		return printReading(drv, poll)
	}

	publisher, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      int64(cfg.Sensor.PollMs),
		HeartbeatMs: int64(cfg.MQTT.HeartbeatMs),
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP.Addr,
		WSBroker:    cfg.HTTP.WSBroker,
		I2CBusNo:    cfg.Sensor.I2CBus,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.SetMQTTConnected(publisher.IsConnected())

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
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	var indicator led.Indicator
	if cfg.LED.Enabled {
		ind, err := led.NewRealIndicator(cfg.LED.Pin)
		if err != nil {
			log.Printf("led init error (continuing without): %v", err)
		} else {
			indicator = ind
			defer ind.Close()
		}
	}

	heartbeat := time.Duration(cfg.MQTT.HeartbeatMs) * time.Millisecond
	log.Printf("started: poll=%v broker=%s heartbeat=%v i2c=%d", poll, cfg.MQTT.Broker, heartbeat, cfg.Sensor.I2CBus)

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(drv, publisher, publisher, tracker, indicator, heartbeat, time.Now, ticker.C, sigCh)
}

// printReading samples until the estimate turns valid (or ~15s pass) and
// prints one line.
func printReading(drv *driver.Driver, poll time.Duration) error {
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		reading, err := drv.Poll()
		if err != nil {
			if errors.Is(err, driver.ErrTimeout) {
				continue
			}
			return fmt.Errorf("poll: %w", err)
		}
		if reading.Valid {
			fmt.Printf("BPM: %d (confidence %d%%)\n", reading.BPM, reading.Confidence)
			return nil
		}
		time.Sleep(poll)
	}
	fmt.Println("BPM: no valid reading (is the sensor against skin?)")
	return nil
}

func runLoop(drv *driver.Driver, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, indicator led.Indicator, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	var lastPublished mqtt.Reading
	var published bool
	lastBeats := 0
	ledOn := false
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
			if indicator != nil {
				indicator.Set(false)
			}
			return nil

		case <-tick:
			t := now()
			reading, err := drv.Poll()
			if err != nil {
				if errors.Is(err, driver.ErrTimeout) {
					log.Printf("sensor not ready: %v", err)
				} else {
					log.Printf("sensor read error: %v", err)
				}
				if tracker != nil {
					tracker.Update(drv.LastReading(), drv.WarmedUp(), drv.Stats())
				}
				continue
			}

			stats := drv.Stats()

			// Flash the LED for one poll interval per accepted beat.
			if indicator != nil {
				flash := stats.Beats != lastBeats
				if flash != ledOn {
					if err := indicator.Set(flash); err != nil {
						log.Printf("led error: %v", err)
					}
					ledOn = flash
				}
			}
			lastBeats = stats.Beats

			// Publish when the visible reading changes.
			if changed(reading, lastPublished, published) {
				r := mqtt.Reading{Timestamp: t, Value: reading}
				log.Printf("reading: bpm=%d valid=%v confidence=%d", reading.BPM, reading.Valid, reading.Confidence)
				if err := publisher.Publish(r); err != nil {
					log.Printf("publish error: %v", err)
					// Don't crash on publish failure
				}
				lastPublished = r
				published = true
			}

			if tracker != nil {
				tracker.Update(reading, drv.WarmedUp(), stats)
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}

			// Heartbeat with full status snapshot
			if heartbeat > 0 && t.Sub(lastHeartbeat) >= heartbeat {
				lastHeartbeat = t
				hbEvent := mqtt.SystemEvent{
					Timestamp: t,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					snap := tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
					log.Printf("heartbeat: uptime=%v samples=%d beats=%d", snap.Uptime(), stats.Samples, stats.Beats)
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
		}
	}
}

// changed reports whether a reading differs from the last published one in
// a way subscribers care about. Confidence-only movement is suppressed to
// keep the topic quiet.
func changed(r pipeline.HeartRateReading, last mqtt.Reading, published bool) bool {
	if !published {
		return r.Valid
	}
	return r.BPM != last.Value.BPM || r.Valid != last.Value.Valid
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

// resolveWSBroker converts the --ws-broker flag value into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; "off"
// disables.
func resolveWSBroker(ws, broker string) string {
	if ws == "off" {
		return ""
	}
	if ws != "=broker" {
		return ws
	}
	u, err := url.Parse(broker)
	if err != nil {
		log.Printf("ws-broker: cannot parse --broker %q: %v", broker, err)
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}
