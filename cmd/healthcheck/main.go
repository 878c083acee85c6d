// Command healthcheck probes the server's /health endpoint and exits non-zero
// when it is unhealthy. It is meant for container HEALTHCHECK directives in
// images that ship without a shell or curl.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/ParleSec/MirrorBin/internal/core"
)

func main() {
	url := os.Getenv("MIRROR_HEALTH_URL")
	if url == "" {
		port := os.Getenv("HEALTH_PORT")
		if port == "" {
			port = "8080"
		}
		url = "http://127.0.0.1:" + port + "/health"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := probe(ctx, http.DefaultClient, url); err != nil {
		fmt.Fprintf(os.Stderr, "unhealthy: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("healthy")
}

func probe(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}

	var health core.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("decode health response: %w", err)
	}
	if health.Status != "healthy" {
		return fmt.Errorf("status %q", health.Status)
	}
	return nil
}
