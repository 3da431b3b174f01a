package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opencivic/civictriage/config"
	"github.com/opencivic/civictriage/internal/logger"
	"github.com/opencivic/civictriage/internal/models"
)

// getFreePort returns an available TCP port
func getFreePort(t *testing.T) int {
	l, err := net.Listen("tcp", ":0")
	if err != nil { t.Fatalf("listen: %v", err) }
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestStartMetricsServer_Smoke(t *testing.T) {
	// Initialize logger to avoid nil logger panics
	logger.Init("error", "text")
	port := getFreePort(t)
	go startMetricsServer(port, "/metrics")
	url := fmt.Sprintf("http://localhost:%d/metrics", port)

	deadline := time.Now().Add(3 * time.Second)
	var lastErr error
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			defer resp.Body.Close()
			// NoOp handler returns 404 Not Found
			if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusMovedPermanently {
				return
			}
		}
		lastErr = err
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("metrics server not reachable: %v", lastErr)
}

func TestNewTriageEngine(t *testing.T) {
	logger.Init("error", "text")

	t.Run("Defaults without rules path", func(t *testing.T) {
		engine, err := newTriageEngine(config.EngineConfig{})
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		result := engine.Triage(models.Report{Title: "pothole on the highway"})
		if result.Category != models.CategoryPothole {
			t.Errorf("Expected Pothole, got %s", result.Category)
		}
	})

	t.Run("Loads YAML rules override", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.yaml")
		rules := "keywords:\n  Pothole:\n    - crater\n"
		if err := os.WriteFile(path, []byte(rules), 0o600); err != nil {
			t.Fatalf("write rules: %v", err)
		}

		engine, err := newTriageEngine(config.EngineConfig{RulesPath: path})
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		result := engine.Triage(models.Report{Title: "huge crater in the road"})
		if result.Category != models.CategoryPothole {
			t.Errorf("Expected Pothole via custom rules, got %s", result.Category)
		}
	})

	t.Run("Missing rules file", func(t *testing.T) {
		_, err := newTriageEngine(config.EngineConfig{RulesPath: "/nonexistent/rules.yaml"})
		if err == nil {
			t.Error("Expected error for missing rules file")
		}
	})
}
