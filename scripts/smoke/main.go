// Command smoke exercises a running review API instance and reports
// per-endpoint status. Intended for deploy verification, not CI.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

type target struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Critical bool   `json:"critical"`
}

var defaultTargets = []target{
	{Method: http.MethodGet, Path: "/health", Critical: true},
	{Method: http.MethodGet, Path: "/ready", Critical: true},
	{Method: http.MethodGet, Path: "/api/v1/review/overview", Critical: true},
	{Method: http.MethodGet, Path: "/api/v1/review/deadline", Critical: true},
	{Method: http.MethodGet, Path: "/api/v1/review/analysis", Critical: false},
	{Method: http.MethodGet, Path: "/api/v1/review/export?format=csv", Critical: false},
}

type result struct {
	Target   target
	Status   int
	Err      error
	Duration time.Duration
}

func main() {
	var (
		base        string
		token       string
		targetsPath string
		timeout     time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&token, "token", "", "Bearer token for authenticated endpoints")
	flag.StringVar(&targetsPath, "targets", "", "Optional JSON targets file overriding the defaults")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	targets := defaultTargets
	if targetsPath != "" {
		loaded, err := loadTargets(targetsPath)
		if err != nil {
			log.Fatalf("failed to load targets: %v", err)
		}
		targets = loaded
	}

	client := &http.Client{Timeout: timeout}
	failures := 0
	for _, t := range targets {
		res := check(client, base, token, t)
		status := "ok"
		if res.Err != nil {
			status = res.Err.Error()
		} else if res.Status >= 400 {
			status = fmt.Sprintf("status %d", res.Status)
		}
		if status != "ok" && t.Critical {
			failures++
		}
		fmt.Printf("%-6s %-40s %-12s %s\n", t.Method, t.Path, res.Duration.Round(time.Millisecond), status)
	}

	if failures > 0 {
		fmt.Printf("%d critical endpoint(s) failing\n", failures)
		os.Exit(1)
	}
	fmt.Println("all critical endpoints healthy")
}

func loadTargets(path string) ([]target, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var targets []target
	if err := json.Unmarshal(payload, &targets); err != nil {
		return nil, err
	}
	return targets, nil
}

func check(client *http.Client, base, token string, t target) result {
	req, err := http.NewRequest(t.Method, base+t.Path, nil)
	if err != nil {
		return result{Target: t, Err: err}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	start := time.Now()
	resp, err := client.Do(req)
	duration := time.Since(start)
	if err != nil {
		return result{Target: t, Err: err, Duration: duration}
	}
	defer resp.Body.Close() //nolint:errcheck
	_, _ = io.Copy(io.Discard, resp.Body)
	return result{Target: t, Status: resp.StatusCode, Duration: duration}
}
