// Command benchlink is the serial companion service for the measurement
// bench GUI. It owns the serial device and exposes it over a localhost HTTP
// API: port discovery, connect/disconnect, raw command send, recent
// readings, and a live tail of device output.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/DanielTwellmann/benchlink/internal/api"
	"github.com/DanielTwellmann/benchlink/internal/config"
	"github.com/DanielTwellmann/benchlink/internal/devicemux"
	"github.com/DanielTwellmann/benchlink/internal/monitoring"
	"github.com/DanielTwellmann/benchlink/internal/serialconn"
	"github.com/DanielTwellmann/benchlink/internal/store"
	"github.com/DanielTwellmann/benchlink/internal/version"
)

var (
	configPath    = flag.String("config", "", "Path to a JSON config file")
	listen        = flag.String("listen", "", "HTTP listen address (overrides config)")
	dbPath        = flag.String("db", "", "Path to the sqlite database (overrides config)")
	startPort     = flag.String("port", "", "Serial port to connect at startup (overrides config)")
	disableSerial = flag.Bool("disable-serial", false, "Run without a serial transport")
	showVersion   = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("benchlink %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	cfg := config.Empty()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	addr := cfg.GetListen()
	if *listen != "" {
		addr = *listen
	}
	database := cfg.GetDBPath()
	if *dbPath != "" {
		database = *dbPath
	}
	autoPort := cfg.GetAutoConnectPort()
	if *startPort != "" {
		autoPort = *startPort
	}

	opts := serialconn.Options{
		BaudRate:    cfg.GetBaudRate(),
		ReadTimeout: cfg.GetReadTimeout(),
	}
	var copts []serialconn.ConnOption
	if *disableSerial || cfg.GetDisableSerial() {
		copts = append(copts, serialconn.WithoutSerial())
	}

	conn, err := serialconn.New(opts, copts...)
	if err != nil {
		log.Fatalf("invalid serial options: %v", err)
	}
	defer conn.Disconnect()

	st, err := store.Open(database)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer st.Close()

	lines := devicemux.New(conn)
	defer lines.Close()

	if autoPort != "" {
		if err := conn.Connect(autoPort); err != nil {
			// Not fatal: the GUI can pick another port through the API.
			monitoring.Logf("startup connect to %s failed: %v", autoPort, err)
			if err := st.RecordConnEvent("connect_failed", autoPort); err != nil {
				monitoring.Logf("failed to record connection event: %v", err)
			}
		} else {
			log.Printf("connected to %s", autoPort)
			if err := st.RecordConnEvent("connected", autoPort); err != nil {
				monitoring.Logf("failed to record connection event: %v", err)
			}
		}
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Monitor routine: reads device output for the lifetime of the process,
	// across connects and disconnects.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := lines.Monitor(ctx); err != nil && err != context.Canceled {
			log.Printf("device monitor terminated: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	// Recorder routine: persists every device line for the info panel.
	wg.Add(1)
	go func() {
		defer wg.Done()
		id, c := lines.Subscribe()
		defer lines.Unsubscribe(id)
		for {
			select {
			case line, ok := <-c:
				if !ok {
					return
				}
				if err := st.RecordReading(line); err != nil {
					log.Printf("failed to record reading: %v", err)
				}
			case <-ctx.Done():
				log.Print("recorder routine terminated")
				return
			}
		}
	}()

	// HTTP server routine.
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()
		apiMux := api.NewServer(conn, lines, st).ServeMux()
		mux.Handle("/api/", http.StripPrefix("/api", apiMux))

		server := &http.Server{
			Addr:    addr,
			Handler: mux,
		}

		go func() {
			log.Printf("benchlink %s listening on %s", version.Version, addr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Print("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
		log.Print("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Print("graceful shutdown complete")
}
