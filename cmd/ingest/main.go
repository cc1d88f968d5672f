// Command ingest bulk-imports legacy address records from an NDJSON file,
// one JSON object per line. With -dry-run the records are resolved against
// an in-memory store and nothing is persisted.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/address-kit/app/config"
	"github.com/address-kit/internal/ingest"
	"github.com/address-kit/internal/resolver"
	"github.com/address-kit/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	inputPath := flag.String("input", "", "NDJSON file of legacy records")
	dryRun := flag.Bool("dry-run", false, "resolve in memory without persisting")
	flag.Parse()

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "usage: ingest -input records.ndjson [-config config.yaml] [-dry-run]")
		os.Exit(2)
	}
	if err := run(*configPath, *inputPath, *dryRun); err != nil {
		fmt.Fprintln(os.Stderr, "ingest:", err)
		os.Exit(1)
	}
}

func run(configPath, inputPath string, dryRun bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer logger.Sync()

	records, err := readRecords(inputPath)
	if err != nil {
		return err
	}
	logger.Info("Loaded records", zap.Int("count", len(records)), zap.Bool("dry_run", dryRun))

	var store storage.Store
	if dryRun {
		store = storage.NewMemStore()
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		client, err := mongo.Connect(ctx, mongoopts.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return fmt.Errorf("connect mongo: %w", err)
		}
		mongoStore := storage.NewMongoStore(client.Database(cfg.Mongo.Database), logger)
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("ensure indexes: %w", err)
		}
		store = mongoStore
	}

	res := resolver.New(store, logger)
	ingester := ingest.New(res, nil, logger)

	result, err := ingester.IngestBatch(context.Background(), records)
	if err != nil {
		return err
	}
	for _, failure := range result.Failures {
		logger.Warn("Record failed", zap.Int("line", failure.Index+1), zap.Error(failure.Err))
	}
	logger.Info("Ingest finished",
		zap.Int("resolved", len(result.Resolved)),
		zap.Int("failed", len(result.Failures)))
	return nil
}

func readRecords(path string) ([]ingest.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []ingest.Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}
		var record ingest.Record
		if err := json.Unmarshal(text, &record); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
