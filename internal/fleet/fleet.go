// Package fleet scans many services in one run. Each service is an
// independent analysis with no shared mutable state, so scans fan out over
// a bounded worker pool and results are merged only after every service
// completes. One failing service never aborts the fleet.
package fleet

import (
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/adylagad/gh-api-graveyard/internal/analyzer"
	"github.com/adylagad/gh-api-graveyard/internal/logs"
	"github.com/adylagad/gh-api-graveyard/internal/openapi"
)

// DefaultWorkers bounds fleet parallelism when the caller does not.
const DefaultWorkers = 4

// Scan statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Service locates one service's spec and logs.
type Service struct {
	Name string `yaml:"name" json:"name"`
	Spec string `yaml:"spec" json:"spec"`
	Logs string `yaml:"logs" json:"logs"`
	Repo string `yaml:"repo,omitempty" json:"repo,omitempty"`
}

// Config is the fleet scan configuration, usually services.yml.
type Config struct {
	Org      string    `yaml:"org,omitempty"`
	Services []Service `yaml:"services"`
}

// LoadConfig reads a fleet configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 - caller-supplied config path
	if err != nil {
		return nil, fmt.Errorf("read fleet config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse fleet config %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes the fleet configuration back to disk.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal fleet config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write fleet config: %w", err)
	}
	return nil
}

// ScanResult is the outcome for one service. Error holds the failure
// message when Status is "error"; Results is empty in that case.
type ScanResult struct {
	Service         string               `json:"service"`
	Repo            string               `json:"repo,omitempty"`
	Status          string               `json:"status"`
	Error           string               `json:"error,omitempty"`
	EndpointsTotal  int                  `json:"endpoints_total"`
	EndpointsUnused int                  `json:"endpoints_unused"`
	Results         []analyzer.Result    `json:"results,omitempty"`
	Diagnostics     analyzer.Diagnostics `json:"diagnostics"`
}

// Scanner runs fleet scans.
type Scanner struct {
	logger  *zap.Logger
	opts    analyzer.Options
	workers int
}

// NewScanner creates a scanner. Zero workers means DefaultWorkers.
func NewScanner(logger *zap.Logger, opts analyzer.Options, workers int) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Scanner{logger: logger, opts: opts, workers: workers}
}

// ScanService analyzes a single service. Failures are folded into the
// result rather than returned, so fleet aggregation always sees one entry
// per configured service.
func (s *Scanner) ScanService(svc Service) ScanResult {
	res := ScanResult{Service: svc.Name, Repo: svc.Repo}

	doc, err := openapi.Load(svc.Spec)
	if err != nil {
		res.Status = StatusError
		res.Error = err.Error()
		return res
	}
	endpoints := doc.Endpoints()

	reader, err := logs.Open(svc.Logs, s.logger)
	if err != nil {
		res.Status = StatusError
		res.Error = err.Error()
		return res
	}
	defer func() { _ = reader.Close() }()

	results, diag, err := analyzer.Analyze(endpoints, reader, s.opts)
	if err != nil {
		res.Status = StatusError
		res.Error = err.Error()
		return res
	}

	res.Status = StatusSuccess
	res.EndpointsTotal = len(results)
	res.Results = results
	res.Diagnostics = diag
	for _, r := range results {
		if r.Usage.CallCount == 0 {
			res.EndpointsUnused++
		}
	}
	return res
}

// ScanAll scans every configured service over the worker pool. The result
// slice keeps configuration order regardless of completion order, so fleet
// reports are diffable across runs.
func (s *Scanner) ScanAll(cfg *Config) []ScanResult {
	results := make([]ScanResult, len(cfg.Services))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				svc := cfg.Services[i]
				s.logger.Info("scanning service", zap.String("service", svc.Name))
				results[i] = s.ScanService(svc)
			}
		}()
	}
	for i := range cfg.Services {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

// Summary aggregates a fleet scan.
type Summary struct {
	TotalServices      int                 `json:"total_services"`
	SuccessfulScans    int                 `json:"successful_scans"`
	FailedScans        int                 `json:"failed_scans"`
	TotalEndpoints     int                 `json:"total_endpoints"`
	TotalUnused        int                 `json:"total_unused"`
	UnusedPercentage   float64             `json:"unused_percentage"`
	DuplicateEndpoints map[string][]string `json:"duplicate_endpoints,omitempty"`
	GeneratedAt        time.Time           `json:"generated_at"`
}

// Aggregate computes fleet-wide totals and flags endpoints declared by more
// than one service, a common sign of drifted copies of the same spec.
func Aggregate(results []ScanResult, now time.Time) Summary {
	summary := Summary{
		TotalServices: len(results),
		GeneratedAt:   now.UTC(),
	}

	owners := make(map[string][]string)
	for _, res := range results {
		if res.Status != StatusSuccess {
			summary.FailedScans++
			continue
		}
		summary.SuccessfulScans++
		summary.TotalEndpoints += res.EndpointsTotal
		summary.TotalUnused += res.EndpointsUnused
		for _, r := range res.Results {
			key := r.Endpoint.String()
			owners[key] = append(owners[key], res.Service)
		}
	}

	for key, services := range owners {
		if len(services) > 1 {
			if summary.DuplicateEndpoints == nil {
				summary.DuplicateEndpoints = make(map[string][]string)
			}
			summary.DuplicateEndpoints[key] = services
		}
	}

	if summary.TotalEndpoints > 0 {
		pct := 100 * float64(summary.TotalUnused) / float64(summary.TotalEndpoints)
		summary.UnusedPercentage = float64(int(pct*100)) / 100
	}
	return summary
}
