// Copyright 2025 uzqw
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vexdb/vecindex/internal/executor"
	"github.com/vexdb/vecindex/internal/index"
	"github.com/vexdb/vecindex/internal/metrics"
	"github.com/vexdb/vecindex/internal/persistence"
	"github.com/vexdb/vecindex/internal/protocol"
	"github.com/vexdb/vecindex/pkg/logger"
)

const (
	defaultPort = "6379"
	defaultHost = "0.0.0.0"
)

var (
	host            = flag.String("host", defaultHost, "Host to bind to")
	port            = flag.String("port", defaultPort, "Port to listen on")
	dim             = flag.Int("dim", 128, "Vector dimension")
	segmentCapacity = flag.Int("segment-capacity", index.DefaultSegmentCapacity, "Per-segment row capacity")
	workers         = flag.Int("workers", 4, "Number of similarity-search executor workers")
	snapshotPath    = flag.String("snapshot", "", "Path to a stream-format snapshot to load at startup (the server never writes it)")
	badgerDir       = flag.String("badger-dir", "", "Optional directory for a continuously-durable Badger snapshot tier")
	metricsAddr     = flag.String("metrics-addr", "", "Address for the /metrics and /debug/vecindex/stats HTTP listener (disabled if empty)")
	logFormat       = flag.String("log-format", "text", "Log format: text or json")
	logLevel        = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	showVer         = flag.Bool("version", false, "Show version and exit")
	idx             *index.Index
	pool            *executor.Pool
	snapshotStore   *persistence.SnapshotStore
	log             *logger.Logger

	// Version is set at build time via ldflags
	Version = "dev"
)

func init() {
	flag.Parse()

	if *showVer {
		fmt.Printf("vecindex server version %s\n", Version)
		os.Exit(0)
	}

	level := slog.LevelInfo
	switch strings.ToLower(*logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	format := logger.FormatText
	if strings.ToLower(*logFormat) == "json" {
		format = logger.FormatJSON
	}

	log = logger.New(logger.Config{
		Format: format,
		Level:  level,
	})

	idx = index.New(*dim, *segmentCapacity)

	if *badgerDir != "" {
		store, err := persistence.OpenSnapshotStore(*badgerDir)
		if err != nil {
			log.Error("failed to open badger snapshot store", slog.String("error", err.Error()))
			os.Exit(1)
		}
		snapshotStore = store
	}

	if *snapshotPath != "" {
		loadSnapshot(*snapshotPath)
	}

	pool = executor.New(*workers, idx.Search)
}

// loadSnapshot rehydrates idx from a stream-format file at startup. A
// missing file just means an empty index; anything else wrong with the
// file is fatal, matching spec.md §4.E's "version mismatch is fatal"
// treatment of load-time corruption.
func loadSnapshot(path string) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Info("no existing snapshot found, starting empty", slog.String("path", path))
			return
		}
		log.Error("failed to open snapshot", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer f.Close()

	loadedDim, entries, err := persistence.LoadStream(f)
	if err != nil {
		log.Error("failed to load snapshot", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *dim != 0 && loadedDim != *dim {
		log.Error("snapshot dimension mismatch", slog.Int("snapshot_dim", loadedDim), slog.Int("configured_dim", *dim))
		os.Exit(1)
	}
	idx = index.New(loadedDim, *segmentCapacity)
	for _, e := range entries {
		if err := idx.Insert(e.Key, e.Vector); err != nil {
			log.Error("failed to replay snapshot entry", slog.String("key", e.Key), slog.String("error", err.Error()))
			os.Exit(1)
		}
	}
	log.Info("loaded snapshot", slog.String("path", path), slog.Int("entries", len(entries)))
}

func main() {
	addr := fmt.Sprintf("%s:%s", *host, *port)
	log.Info("starting vecindex server", slog.String("addr", addr))

	// Start TCP listener
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Error("failed to start listener", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer listener.Close()

	log.Info("server started successfully", slog.String("addr", addr))

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle OS signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
		listener.Close()
		pool.Close()
		if snapshotStore != nil {
			snapshotStore.Close()
		}
	}()

	// Start memory monitoring goroutine
	go monitorMemory(ctx)

	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr)
	}

	// Accept connections
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				log.Info("shutting down server")
				return
			default:
				log.Error("failed to accept connection", slog.String("error", err.Error()))
				continue
			}
		}

		// Handle connection in a new goroutine
		metrics.Global().IncrementActiveConnections()
		go handleConnection(ctx, conn)
	}
}

// serveMetrics runs the admin HTTP listener: Prometheus's /metrics plus
// a small JSON /debug/vecindex/stats snapshot, the same split
// arena-cache's inspector tooling expects.
func serveMetrics(addr string) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics.NewCollector(metrics.Global()))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/debug/vecindex/stats", func(w http.ResponseWriter, r *http.Request) {
		jsonStr, err := metrics.Global().JSON()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, jsonStr)
	})

	log.Info("starting metrics listener", slog.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("metrics listener stopped", slog.String("error", err.Error()))
	}
}

// handleConnection processes a single client connection
func handleConnection(ctx context.Context, conn net.Conn) {
	defer func() {
		conn.Close()
		metrics.Global().DecrementActiveConnections()
	}()

	// Generate request ID for tracing
	requestID := uuid.New().String()
	connLog := log.WithRequestID(ctx, requestID)

	connLog.Info("new connection", slog.String("remote", conn.RemoteAddr().String()))

	// Create RESP reader and writer
	reader := protocol.NewRESPReader(conn)
	writer := protocol.NewRESPWriter(conn)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// Set read deadline to detect idle connections
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		// Read command
		cmd, err := reader.ReadCommand()
		if err != nil {
			// Check for normal connection closure (EOF means client disconnected)
			if errors.Is(err, net.ErrClosed) || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				connLog.Debug("connection closed")
				return
			}
			// Check for timeout
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				connLog.Info("connection timeout")
				return
			}
			// Protocol errors - log but try to send error response
			connLog.Warn("protocol error", slog.String("error", err.Error()))
			if writeErr := writer.WriteError(err.Error()); writeErr != nil {
				connLog.Debug("failed to write error response", slog.String("error", writeErr.Error()))
				return
			}
			if flushErr := writer.Flush(); flushErr != nil {
				connLog.Debug("failed to flush error response", slog.String("error", flushErr.Error()))
				return
			}
			// For protocol errors, close the connection to prevent further corruption
			return
		}

		if len(cmd) == 0 {
			continue
		}

		// Increment command counter
		metrics.Global().IncrementCommands()

		// Process command
		start := time.Now()
		processCommand(ctx, connLog, writer, cmd)
		latency := time.Since(start)

		// Log command execution
		connLog.Debug("command executed",
			slog.String("cmd", cmd[0]),
			slog.Int("args", len(cmd)-1),
			slog.Duration("latency", latency),
		)

		// Flush response
		if err := writer.Flush(); err != nil {
			connLog.Error("failed to flush response", slog.String("error", err.Error()))
			return
		}
	}
}

// processCommand handles individual commands
func processCommand(ctx context.Context, log *logger.Logger, writer *protocol.RESPWriter, cmd []string) {
	command := strings.ToUpper(cmd[0])

	switch command {
	case "PING":
		handlePing(writer, cmd)
	case "ECHO":
		handleEcho(writer, cmd)
	case "VEC_ADD":
		handleVecAdd(writer, cmd)
	case "VEC_SIM":
		handleVecSim(ctx, writer, cmd)
	case "STATS", "INFO":
		handleStats(writer)
	case "CLEAR":
		handleClear(writer)
	case "QUIT":
		_ = writer.WriteSimpleString("OK")
	default:
		_ = writer.WriteError(fmt.Sprintf("unknown command '%s'", command))
	}
}

// handlePing handles the PING command
func handlePing(writer *protocol.RESPWriter, cmd []string) {
	if len(cmd) == 1 {
		_ = writer.WriteSimpleString("PONG")
	} else {
		_ = writer.WriteBulkString(cmd[1])
	}
}

// handleEcho handles the ECHO command
func handleEcho(writer *protocol.RESPWriter, cmd []string) {
	if len(cmd) < 2 {
		_ = writer.WriteError("wrong number of arguments for 'echo' command")
		return
	}
	_ = writer.WriteBulkString(cmd[1])
}

// handleVecAdd handles vec_add key blob: blob is dim*4 little-endian
// float32 bytes. It validates synchronously on the connection
// goroutine and never touches the executor pool, so index mutation
// never blocks on a query in flight.
func handleVecAdd(writer *protocol.RESPWriter, cmd []string) {
	if len(cmd) < 3 {
		_ = writer.WriteError("wrong number of arguments for 'vec_add' command")
		return
	}

	key := cmd[1]
	values, err := protocol.DecodeVectorBlob(cmd[2])
	if err != nil {
		_ = writer.WriteError(fmt.Sprintf("Given blob is not float vector of size %d", idx.Dimension()))
		return
	}
	if d := idx.Dimension(); d != 0 && len(values) != d {
		_ = writer.WriteError(fmt.Sprintf("Given blob is not float vector of size %d", d))
		return
	}

	if err := idx.Insert(key, values); err != nil {
		if errors.Is(err, index.ErrKeyExists) {
			_ = writer.WriteError("Key is not empty")
			return
		}
		_ = writer.WriteError(err.Error())
		return
	}
	if snapshotStore != nil {
		if err := snapshotStore.Put(key, values); err != nil {
			_ = writer.WriteError(fmt.Sprintf("insert succeeded but durable mirror failed: %s", err.Error()))
			return
		}
	}

	metrics.Global().IncrementKeys()
	_ = writer.WriteSimpleString("OK")
}

// handleVecSim handles vec_sim k blob: submits the query to the
// executor pool and blocks on the future without holding any index
// lock, per spec.md §9's async completion model.
func handleVecSim(ctx context.Context, writer *protocol.RESPWriter, cmd []string) {
	if len(cmd) < 3 {
		_ = writer.WriteError("wrong number of arguments for 'vec_sim' command")
		return
	}

	k, err := strconv.Atoi(cmd[1])
	if err != nil || k <= 0 {
		_ = writer.WriteError(fmt.Sprintf("Failed extracting %s", cmd[1]))
		return
	}

	probe, err := protocol.DecodeVectorBlob(cmd[2])
	if err != nil {
		_ = writer.WriteError("Given blob is not at the right size")
		return
	}
	if d := idx.Dimension(); d != 0 && len(probe) != d {
		_ = writer.WriteError("Given blob is not at the right size")
		return
	}

	reply := pool.Submit(ctx, executor.Query{Probe: probe, K: k})
	result := <-reply
	if result.Err != nil {
		_ = writer.WriteError(result.Err.Error())
		return
	}

	metrics.Global().IncrementSearches()

	elements := make([]string, 0, len(result.Records)*2)
	for _, rec := range result.Records {
		elements = append(elements, rec.Key, protocol.FormatScore(rec.Score))
	}
	_ = writer.WriteArray(elements)
}

// handleStats handles the STATS/INFO command
func handleStats(writer *protocol.RESPWriter) {
	jsonStr, err := metrics.Global().JSON()
	if err != nil {
		_ = writer.WriteError(err.Error())
		return
	}
	_ = writer.WriteBulkString(jsonStr)
}

// handleClear handles the CLEAR command
func handleClear(writer *protocol.RESPWriter) {
	persistence.Flush(idx)
	_ = writer.WriteSimpleString("OK")
}

// monitorMemory periodically updates memory usage metrics
func monitorMemory(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			metrics.Global().SetMemoryUsage(m.Alloc)
		}
	}
}
