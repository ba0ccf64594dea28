// Command targetserver is a local HTTP target for benchmarking real fetches.
// It mirrors the simulated fetch profile: every response sleeps for a latency
// drawn from a configurable band, fails with a configurable probability, and
// returns a payload of configurable size. Behavior is derived from the
// request path and the seed, so repeated runs against the same workload see
// the same latencies and failures.
package main

import (
	"flag"
	"fmt"
	"hash/fnv"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type serverConfig struct {
	minLatency  time.Duration
	maxLatency  time.Duration
	failureRate float64
	minBytes    int64
	maxBytes    int64
	seed        int64
}

func main() {
	port := flag.Int("port", 8080, "Listening port")
	cfg := serverConfig{}
	flag.DurationVar(&cfg.minLatency, "min-latency", 50*time.Millisecond, "Minimum response latency")
	flag.DurationVar(&cfg.maxLatency, "max-latency", 500*time.Millisecond, "Maximum response latency")
	flag.Float64Var(&cfg.failureRate, "failure-rate", 0.05, "Probability of a 5xx response")
	flag.Int64Var(&cfg.minBytes, "min-bytes", 15000, "Minimum payload size")
	flag.Int64Var(&cfg.maxBytes, "max-bytes", 45000, "Maximum payload size")
	flag.Int64Var(&cfg.seed, "seed", 0, "Base seed for per-path behavior")
	flag.Parse()

	if cfg.maxLatency < cfg.minLatency {
		log.Fatalf("max-latency must be >= min-latency")
	}
	if cfg.failureRate < 0 || cfg.failureRate > 1 {
		log.Fatalf("failure-rate must be between 0 and 1")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/status/", handleStatus)
	mux.HandleFunc("/", cfg.handleFetch)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("target server listening on %s (latency %s-%s, failure rate %.2f)",
		addr, cfg.minLatency, cfg.maxLatency, cfg.failureRate)
	log.Fatal(http.ListenAndServe(addr, mux))
}

// handleFetch serves the deterministic fetch profile for any path.
func (c serverConfig) handleFetch(w http.ResponseWriter, r *http.Request) {
	rnd := c.rngFor(r.URL.Path)

	latency := c.minLatency
	if band := c.maxLatency - c.minLatency; band > 0 {
		latency += time.Duration(rnd.Int63n(int64(band)))
	}
	select {
	case <-time.After(latency):
	case <-r.Context().Done():
		return
	}

	if c.failureRate > 0 && rnd.Float64() < c.failureRate {
		http.Error(w, "injected failure", http.StatusInternalServerError)
		return
	}

	size := c.minBytes
	if band := c.maxBytes - c.minBytes; band > 0 {
		size += rnd.Int63n(band + 1)
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	writePayload(w, size)
}

// handleStatus returns the status code named in the path, e.g. /status/503.
// Useful for exercising retry classification by hand.
func handleStatus(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/status/"))
	if err != nil || code < 100 || code > 599 {
		http.Error(w, "bad status code", http.StatusBadRequest)
		return
	}
	w.WriteHeader(code)
	fmt.Fprintf(w, "status %d\n", code)
}

func (c serverConfig) rngFor(path string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(path))
	return rand.New(rand.NewSource(c.seed ^ int64(h.Sum64())))
}

var payloadChunk = []byte(strings.Repeat("fetchbench-payload-", 54)) // ~1KiB

func writePayload(w http.ResponseWriter, size int64) {
	for size > 0 {
		chunk := payloadChunk
		if int64(len(chunk)) > size {
			chunk = chunk[:size]
		}
		if _, err := w.Write(chunk); err != nil {
			return
		}
		size -= int64(len(chunk))
	}
}
