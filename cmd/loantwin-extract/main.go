// Command loantwin-extract runs the extraction pipeline over a batch of
// loan agreements from a local directory or an S3-compatible bucket,
// writing one DLR JSON file (and optionally a workbook) per document.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/loantwindb/loantwin-go/config"
	"github.com/loantwindb/loantwin-go/dlr"
	"github.com/loantwindb/loantwin-go/llm"
	"github.com/loantwindb/loantwin-go/loansaf"
	"github.com/loantwindb/loantwin-go/logging"
	"github.com/loantwindb/loantwin-go/reading"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to config file")
		dir        = flag.String("dir", "", "directory of loan agreements to process")
		s3Endpoint = flag.String("s3-endpoint", "", "S3-compatible endpoint (e.g. s3.amazonaws.com)")
		s3Bucket   = flag.String("s3-bucket", "", "bucket of loan agreements to process")
		s3Prefix   = flag.String("s3-prefix", "", "object key prefix inside the bucket")
		outDir     = flag.String("out", "dlr-out", "output directory for extracted records")
		xlsx       = flag.Bool("xlsx", false, "also write an XLSX workbook per document")
		cacheDir   = flag.String("cache-dir", "", "reuse extraction results for unchanged documents")
	)
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(&cfg.Logging)
	defer logger.Sync()

	source, err := buildSource(*dir, *s3Endpoint, *s3Bucket, *s3Prefix, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	ctx := context.Background()
	client, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		logger.Fatal("failed to build llm client", zap.Error(err))
	}
	if client == nil {
		logger.Warn("no llm provider configured, extraction runs regex-only")
	} else {
		client = loansaf.InstrumentLLM(client, cfg.LLM.Provider)
	}

	runner := reading.NewExecRunner(logger)
	engines := loansaf.NewEnginePool(cfg.OCR, client, runner, logger)
	extractor := loansaf.NewExtractor(loansaf.NewLoader(nil, logger), engines, client, logger)

	var cache *loansaf.ResultCache
	if *cacheDir != "" {
		cache, err = loansaf.NewResultCache(loansaf.ResultCacheConfig{Enabled: true, Dir: *cacheDir}, logger)
		if err != nil {
			logger.Fatal("failed to open result cache", zap.Error(err))
		}
	}

	start := time.Now()
	processed, failed := 0, 0

	refs, errs := source.Traverse(ctx)
	for ref := range refs {
		if err := extractOne(ctx, extractor, cache, ref, *outDir, *xlsx, logger); err != nil {
			logger.Error("extraction failed", zap.String("document", ref.Name), zap.Error(err))
			failed++
			continue
		}
		processed++
	}
	if err := <-errs; err != nil {
		logger.Error("traversal failed", zap.String("source", source.Type()), zap.Error(err))
		os.Exit(1)
	}

	logger.Info("batch complete",
		zap.Int("processed", processed),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(start)))
	if processed == 0 && failed > 0 {
		os.Exit(1)
	}
}

func buildSource(dir, s3Endpoint, s3Bucket, s3Prefix string, logger *zap.Logger) (loansaf.Source, error) {
	switch {
	case dir != "":
		return loansaf.NewFilesystemSource(loansaf.FilesystemSourceConfig{BaseDir: dir}, logger)
	case s3Bucket != "":
		return loansaf.NewS3Source(loansaf.S3SourceConfig{
			Endpoint: s3Endpoint,
			Bucket:   s3Bucket,
			Prefix:   s3Prefix,
			UseSSL:   true,
		}, logger)
	default:
		return nil, fmt.Errorf("either -dir or -s3-bucket is required")
	}
}

// extractOne processes a single document and writes its outputs under
// outDir, mirroring the source-relative layout. With a cache, unchanged
// documents skip the pipeline entirely.
func extractOne(ctx context.Context, extractor *loansaf.Extractor, cache *loansaf.ResultCache, ref loansaf.DocumentRef, outDir string, xlsx bool, logger *zap.Logger) error {
	var hash string
	var record *dlr.DLR
	if cache != nil {
		h, err := loansaf.HashDocument(ref.LocalPath)
		if err != nil {
			return err
		}
		hash = h
		if cached, _, ok := cache.Get(hash); ok {
			logger.Info("cache hit", zap.String("document", ref.Name))
			record = cached
		}
	}
	if record == nil {
		extracted, clauses, err := extractor.Process(ctx, ref.LocalPath)
		if err != nil {
			return err
		}
		record = extracted
		if cache != nil {
			cache.Put(hash, record, clauses)
		}
	}

	// Schema violations are reported, not fatal: a degraded record is
	// still worth keeping for review.
	if result, err := dlr.Validate(record); err != nil {
		logger.Warn("schema validation unavailable", zap.Error(err))
	} else if !result.Valid {
		for _, violation := range result.Errors {
			logger.Warn("schema violation",
				zap.String("document", ref.Name),
				zap.String("field", violation.Field),
				zap.String("message", violation.Message))
		}
	}

	base := strings.TrimSuffix(ref.Name, filepath.Ext(ref.Name))
	jsonPath := filepath.Join(outDir, base+".dlr.json")
	if err := os.MkdirAll(filepath.Dir(jsonPath), 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	raw, err := sonic.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}
	if err := os.WriteFile(jsonPath, raw, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", jsonPath, err)
	}

	if xlsx {
		data, err := dlr.ExportXLSX(record)
		if err != nil {
			return fmt.Errorf("building workbook: %w", err)
		}
		xlsxPath := filepath.Join(outDir, base+".dlr.xlsx")
		if err := os.WriteFile(xlsxPath, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", xlsxPath, err)
		}
	}

	logger.Info("document extracted",
		zap.String("document", ref.Name),
		zap.String("output", jsonPath),
		zap.String("borrower", record.BorrowerName),
		zap.Float64("confidence", record.ExtractionConfidence))
	return nil
}
