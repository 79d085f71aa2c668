package main

// main.go implements the vecindex inspector CLI: it fetches the
// /debug/vecindex/stats snapshot from a running server and prints it
// either as pretty text or JSON, with an optional watch mode.
//
// The target server is expected to expose:
//   • GET /debug/vecindex/stats – JSON payload with server statistics.
//   • GET /metrics             – Prometheus exposition format.
//
// The snapshot object is intentionally generic; we decode into
// map[string]any to avoid version skew between CLI and server.

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

var version = "dev"

type options struct {
	target   string
	json     bool
	watch    bool
	interval time.Duration
	showVer  bool
}

func parseFlags() *options {
	opts := &options{}
	flag.StringVar(&opts.target, "target", "http://localhost:9090", "Base URL of the vecindex metrics listener")
	flag.BoolVar(&opts.json, "json", false, "Print the raw JSON snapshot instead of a formatted summary")
	flag.BoolVar(&opts.watch, "watch", false, "Poll the snapshot endpoint repeatedly")
	flag.DurationVar(&opts.interval, "interval", 2*time.Second, "Polling interval when -watch is set")
	flag.BoolVar(&opts.showVer, "version", false, "Show version and exit")
	flag.Parse()
	return opts
}

func main() {
	opts := parseFlags()

	if opts.showVer {
		fmt.Println(version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	if opts.watch {
		ticker := time.NewTicker(opts.interval)
		defer ticker.Stop()
		for {
			if err := dumpOnce(ctx, opts); err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
			}
			select {
			case <-ticker.C:
				continue
			case <-ctx.Done():
				return
			}
		}
	}

	if err := dumpOnce(ctx, opts); err != nil {
		fatal(err)
	}
}

func dumpOnce(ctx context.Context, opts *options) error {
	snap, err := fetchSnapshot(ctx, opts.target)
	if err != nil {
		return err
	}

	if opts.json {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	return prettyPrint(snap)
}

func fetchSnapshot(ctx context.Context, base string) (map[string]any, error) {
	url := base + "/debug/vecindex/stats"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", res.Status)
	}
	var data map[string]any
	if err := json.NewDecoder(res.Body).Decode(&data); err != nil {
		return nil, err
	}
	return data, nil
}

func prettyPrint(data map[string]any) error {
	fmt.Printf("Commands:    %v\n", data["total_commands"])
	fmt.Printf("Connections: %v\n", data["active_connections"])
	fmt.Printf("Keys:        %v\n", data["total_keys"])
	fmt.Printf("Searches:    %v\n", data["total_searches"])
	fmt.Printf("Memory MB:   %.2f\n", toFloat(data["memory_usage_mb"]))
	fmt.Printf("Uptime:      %v\n", data["uptime"])
	fmt.Printf("QPS:         %.2f\n", toFloat(data["qps"]))
	return nil
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case json.Number:
		f, _ := t.Float64()
		return f
	default:
		return 0
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "vecindex-inspect:", err)
	os.Exit(1)
}
