// Package service orchestrates the snapshot pipeline: fetch the document,
// decode it into a graph, project the graph into relations, load them into
// the storage engine, and run the user's query.
package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/heapquery/internal/projection"
	"github.com/heapquery/internal/repository"
	"github.com/heapquery/internal/snapshot"
	"github.com/heapquery/internal/storage"
	"github.com/heapquery/pkg/config"
	"github.com/heapquery/pkg/model"
	"github.com/heapquery/pkg/utils"
)

// Service runs the decode/load/query pipeline for heap snapshots.
type Service struct {
	config *config.Config
	logger utils.Logger
	source storage.Source
	tracer trace.Tracer

	// newStore is swappable in tests.
	newStore func(dbCfg *config.DatabaseConfig) (repository.Store, error)
}

// LoadResult summarizes one pipeline run.
type LoadResult struct {
	SnapshotPath  string
	DatabasePath  string
	Nodes         int
	Edges         int
	Locations     int
	TotalSelfSize uint64
	// Reused is true when an existing projection was found and the
	// decode and load phases were skipped.
	Reused bool
}

// New creates a Service from the configuration.
func New(cfg *config.Config, logger utils.Logger) (*Service, error) {
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, nil)
	}

	src, err := storage.NewSource(&cfg.Storage)
	if err != nil {
		return nil, err
	}

	return &Service{
		config: cfg,
		logger: logger,
		source: src,
		tracer: otel.Tracer("heapquery/pipeline"),
		newStore: func(dbCfg *config.DatabaseConfig) (repository.Store, error) {
			db, err := repository.NewGormDB(dbCfg)
			if err != nil {
				return nil, err
			}
			return repository.NewGormStore(db), nil
		},
	}, nil
}

// Load decodes the snapshot at key and persists its relational projection.
// With force, an existing projection is rebuilt.
func (s *Service) Load(ctx context.Context, key string, force bool) (*LoadResult, error) {
	result, _, err := s.run(ctx, key, "", force)
	return result, err
}

// Query makes sure the snapshot's projection is loaded, then executes the
// SQL query against it.
func (s *Service) Query(ctx context.Context, key string, query string, force bool) (*LoadResult, *model.QueryResult, error) {
	return s.run(ctx, key, query, force)
}

func (s *Service) run(ctx context.Context, key, query string, force bool) (*LoadResult, *model.QueryResult, error) {
	timer := utils.NewTimer("pipeline", utils.WithLogger(s.logger))

	ctx, span := s.tracer.Start(ctx, "fetch")
	stop := timer.Start("fetch")
	path, err := s.source.Fetch(ctx, key, s.config.Snapshot.WorkDir)
	stop()
	span.End()
	if err != nil {
		return nil, nil, fmt.Errorf("fetch snapshot %s: %w", s.source.URL(key), err)
	}

	dbCfg := s.config.Database
	if isSQLite(dbCfg.Type) && dbCfg.Path == "" {
		dbCfg.Path = CompanionPath(path)
	}

	store, err := s.newStore(&dbCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	result := &LoadResult{SnapshotPath: path, DatabasePath: dbCfg.Path}

	has, err := store.HasProjection(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}

	if has && !force {
		result.Reused = true
		s.logger.Info("Reusing existing projection in %s", result.DatabasePath)
	} else {
		if err := s.build(ctx, path, store, timer, result); err != nil {
			return nil, nil, err
		}
	}

	var queryResult *model.QueryResult
	if query != "" {
		ctx, span := s.tracer.Start(ctx, "query")
		stop := timer.Start("query")
		queryResult, err = store.Query(ctx, query)
		stop()
		span.End()
		if err != nil {
			return nil, nil, fmt.Errorf("query: %w", err)
		}
	}

	timer.PrintSummary()
	return result, queryResult, nil
}

// build decodes the snapshot file and loads its projection into the store.
func (s *Service) build(ctx context.Context, path string, store repository.Store, timer *utils.Timer, result *LoadResult) error {
	ctx, span := s.tracer.Start(ctx, "decode")
	file, err := os.Open(path)
	if err != nil {
		span.End()
		return fmt.Errorf("read document: %w", err)
	}

	parser := snapshot.NewParser(&snapshot.ParserOptions{Logger: s.logger})
	stop := timer.Start("decode")
	graph, err := parser.Parse(ctx, file)
	stop()
	file.Close()
	span.End()
	if err != nil {
		return err
	}

	result.Nodes = len(graph.Nodes)
	result.Edges = len(graph.Edges)
	result.Locations = len(graph.Locations)
	result.TotalSelfSize = graph.TotalSelfSize()
	s.logger.Info("Decoded %d nodes, %d edges, %d locations", result.Nodes, result.Edges, result.Locations)

	ctx, span = s.tracer.Start(ctx, "load")
	stop = timer.Start("load")
	err = store.Load(ctx, projection.Tables(graph), s.batchSize())
	stop()
	span.End()
	if err != nil {
		return fmt.Errorf("load projection: %w", err)
	}
	s.logger.Info("Projection loaded into %s", result.DatabasePath)

	if s.config.Storage.UploadArtifact && isSQLite(s.config.Database.Type) {
		artifactKey := CompanionPath(filepath.Base(path))
		if err := s.source.PutArtifact(ctx, artifactKey, result.DatabasePath); err != nil {
			return fmt.Errorf("upload artifact: %w", err)
		}
		s.logger.Info("Artifact uploaded to %s", s.source.URL(artifactKey))
	}

	return nil
}

func (s *Service) batchSize() int {
	if s.config.Snapshot.BatchSize > 0 {
		return s.config.Snapshot.BatchSize
	}
	return 500
}

// CompanionPath derives the companion database path from a snapshot path:
// the file stem plus a .db3 suffix, beside the input.
func CompanionPath(snapshotPath string) string {
	stem := strings.TrimSuffix(snapshotPath, filepath.Ext(snapshotPath))
	return stem + ".db3"
}

func isSQLite(dbType string) bool {
	return dbType == "" || dbType == "sqlite"
}
