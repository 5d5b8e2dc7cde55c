package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"fraudgraph/config"
	"fraudgraph/internal/aggregator"
	"fraudgraph/internal/cache"
	"fraudgraph/internal/graph/network"
	"fraudgraph/internal/logger"
	"fraudgraph/internal/output/reportjson"
	"fraudgraph/internal/rules"
	"fraudgraph/internal/server"
	"fraudgraph/internal/timeline"
	"fraudgraph/internal/upstream"
	"fraudgraph/pkg/models"
)

func findConfigFile(configArg string) string {
	if configArg != "" {
		path := configArg
		if _, err := os.Stat(path); err == nil {
			return path
		}
		log.Printf("Warning: config file not found at %s, trying default locations", path)
	}

	if _, err := os.Stat("fraudgraph.yml"); err == nil {
		return "fraudgraph.yml"
	}

	exePath, err := os.Executable()
	if err == nil {
		exeDir := filepath.Dir(exePath)
		path := filepath.Join(exeDir, "fraudgraph.yml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return "fraudgraph.yml"
}

func applyDefaults(cfg *config.Config) {
	if cfg.FraudGraph.Server.Addr == "" {
		cfg.FraudGraph.Server.Addr = ":8080"
	}
	if cfg.FraudGraph.Server.ReadTimeout <= 0 {
		cfg.FraudGraph.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.FraudGraph.Server.WriteTimeout <= 0 {
		cfg.FraudGraph.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.FraudGraph.Server.ShutdownTimeout <= 0 {
		cfg.FraudGraph.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.FraudGraph.Upstream.Timeout <= 0 {
		cfg.FraudGraph.Upstream.Timeout = 10 * time.Second
	}
	if cfg.FraudGraph.Upstream.Retries == nil {
		one := 1
		cfg.FraudGraph.Upstream.Retries = &one
	}

	if cfg.FraudGraph.Cache.TTL <= 0 {
		cfg.FraudGraph.Cache.TTL = 5 * time.Minute
	}
	if cfg.FraudGraph.Cache.Redis.Addr == "" {
		cfg.FraudGraph.Cache.Redis.Addr = "127.0.0.1:6379"
	}

	if cfg.FraudGraph.Normalizer.FlagThreshold <= 0 {
		cfg.FraudGraph.Normalizer.FlagThreshold = 10000
	}
	if cfg.FraudGraph.Timeline.ProximityWindow <= 0 {
		cfg.FraudGraph.Timeline.ProximityWindow = 10 * time.Minute
	}
	if cfg.FraudGraph.Timeline.RapidWindow <= 0 {
		cfg.FraudGraph.Timeline.RapidWindow = 30 * time.Minute
	}

	if cfg.FraudGraph.Logging.Level == "" {
		cfg.FraudGraph.Logging.Level = "info"
	}
}

func buildAggregator(cfg *config.Config) *aggregator.Aggregator {
	var engine rules.Engine
	if cfg.FraudGraph.Rules.Enabled {
		if strings.TrimSpace(cfg.FraudGraph.Rules.Path) == "" {
			logger.Warnf("Rules enabled but rules.path is empty; risk tagging disabled")
		} else {
			sigmaEngine, stats, err := rules.NewSigmaEngine(cfg.FraudGraph.Rules.Path)
			if err != nil {
				logger.Errorf("Failed to load rules from %s: %v", cfg.FraudGraph.Rules.Path, err)
				log.Fatalf("Failed to load rules: %v", err)
			}
			engine = sigmaEngine
			logger.Infof("Risk rules loaded: loaded=%d skipped_complex=%d skipped_datasource=%d skipped_invalid=%d files=%d",
				stats.Loaded,
				stats.SkippedComplex,
				stats.SkippedDatasource,
				stats.SkippedInvalid,
				stats.TotalFiles,
			)
			if stats.Loaded == 0 {
				logger.Warnf("No compatible rules loaded; risk tagging is effectively disabled")
			}
		}
	}

	return aggregator.New(aggregator.Config{
		FlagThreshold: cfg.FraudGraph.Normalizer.FlagThreshold,
		Timeline: timeline.Config{
			ProximityWindow: cfg.FraudGraph.Timeline.ProximityWindow,
			RapidWindow:     cfg.FraudGraph.Timeline.RapidWindow,
			LargeAmount:     cfg.FraudGraph.Normalizer.FlagThreshold,
		},
		Network: network.Config{
			PerSizePoints:       cfg.FraudGraph.Network.PerSizePoints,
			SizeCap:             cfg.FraudGraph.Network.SizeCap,
			HighRiskNodePoints:  cfg.FraudGraph.Network.HighRiskNodePoints,
			StrongEdgePoints:    cfg.FraudGraph.Network.StrongEdgePoints,
			RingSharedDeviceMin: cfg.FraudGraph.Network.RingSharedDeviceMin,
			RingSharedIPMin:     cfg.FraudGraph.Network.RingSharedIPMin,
			FamilyMaxSize:       cfg.FraudGraph.Network.FamilyMaxSize,
		},
	}, engine)
}

func runServe(args []string) {
	configArg := ""
	if len(args) > 0 {
		configArg = args[0]
	}

	configPath := findConfigFile(configArg)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyDefaults(cfg)

	if err := logger.Init(cfg.FraudGraph.Logging.Enabled, cfg.FraudGraph.Logging.Level, cfg.FraudGraph.Logging.File, cfg.FraudGraph.Logging.Console); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	logger.Infof("FraudGraph starting")
	logger.Infof("Config loaded from: %s", configPath)

	client, err := upstream.NewClient(upstream.Config{
		BaseURL: cfg.FraudGraph.Upstream.BaseURL,
		Timeout: cfg.FraudGraph.Upstream.Timeout,
		Retries: *cfg.FraudGraph.Upstream.Retries,
		Headers: cfg.FraudGraph.Upstream.Headers,
	})
	if err != nil {
		logger.Errorf("Failed to create upstream client: %v", err)
		log.Fatalf("Failed to create upstream client: %v", err)
	}

	var caseCache server.CaseCache
	if cfg.FraudGraph.Cache.Enabled {
		redisCache, err := cache.NewRedisCache(cache.Config{
			Addr:      cfg.FraudGraph.Cache.Redis.Addr,
			Password:  cfg.FraudGraph.Cache.Redis.Password,
			DB:        cfg.FraudGraph.Cache.Redis.DB,
			KeyPrefix: cfg.FraudGraph.Cache.Redis.KeyPrefix,
			TTL:       cfg.FraudGraph.Cache.TTL,
		})
		if err != nil {
			logger.Errorf("Failed to create case-file cache: %v", err)
			log.Fatalf("Failed to create case-file cache: %v", err)
		}
		defer redisCache.Close()
		caseCache = redisCache
		logger.Infof("Case-file cache enabled (%s, ttl=%s)", cfg.FraudGraph.Cache.Redis.Addr, cfg.FraudGraph.Cache.TTL)
	}

	agg := buildAggregator(cfg)

	srv := &http.Server{
		Addr:         cfg.FraudGraph.Server.Addr,
		Handler:      server.New(client, caseCache, agg),
		ReadTimeout:  cfg.FraudGraph.Server.ReadTimeout,
		WriteTimeout: cfg.FraudGraph.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("Listening on %s", cfg.FraudGraph.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("Server error: %v", err)
			log.Fatalf("Server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Infof("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.FraudGraph.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}

	logger.Infof("FraudGraph stopped")
}

func runAnalyze(args []string) int {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	input := fs.String("input", "cases.jsonl", "Case file JSON or JSONL input path")
	output := fs.String("output", "output/investigations.jsonl", "Investigation JSONL output path")
	rulesFile := fs.String("rules", "", "Optional risk rules file or directory")
	flagThreshold := fs.Float64("flag-threshold", 10000, "Transaction amount flag threshold")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	caseFiles, err := loadCaseFiles(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load case files: %v\n", err)
		return 1
	}

	var engine rules.Engine
	if strings.TrimSpace(*rulesFile) != "" {
		sigmaEngine, stats, err := rules.NewSigmaEngine(*rulesFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load rules: %v\n", err)
			return 1
		}
		engine = sigmaEngine
		fmt.Printf("rules loaded=%d skipped=%d\n", stats.Loaded, stats.TotalFiles-stats.Loaded)
	}

	agg := aggregator.New(aggregator.Config{FlagThreshold: *flagThreshold}, engine)

	writer, err := reportjson.NewWriter(*output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create output writer: %v\n", err)
		return 1
	}
	defer writer.Close()

	reports := make([]*models.Investigation, 0, len(caseFiles))
	for _, cf := range caseFiles {
		reports = append(reports, agg.Investigate(cf))
	}
	if err := writer.WriteInvestigations(reports); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write investigations: %v\n", err)
		return 1
	}

	fmt.Printf("analyzed cases=%d output=%s\n", len(reports), *output)
	return 0
}

// loadCaseFiles accepts a single case-file JSON object or JSONL of them.
func loadCaseFiles(path string) ([]*models.CaseFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var single models.CaseFile
	if err := json.Unmarshal(data, &single); err == nil {
		return []*models.CaseFile{&single}, nil
	}

	var out []*models.CaseFile
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var cf models.CaseFile
		if err := json.Unmarshal([]byte(line), &cf); err != nil {
			return nil, fmt.Errorf("decode case file line %d: %w", len(out)+1, err)
		}
		out = append(out, &cf)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "serve":
			runServe(os.Args[2:])
			return
		case "analyze":
			os.Exit(runAnalyze(os.Args[2:]))
		default:
			// Backward-compatible mode: first arg is config path.
			runServe(os.Args[1:])
			return
		}
	}

	runServe(nil)
}
