package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/address-kit/app/models"
	"github.com/address-kit/helpers/utils"
	"github.com/address-kit/internal/geocode"
	"github.com/address-kit/internal/ingest"
	"github.com/address-kit/internal/normalizer"
	"github.com/address-kit/internal/resolver"
	"github.com/address-kit/internal/search"
	"github.com/address-kit/internal/storage"
)

// ErrSearchDisabled is returned when no search backend is configured.
var ErrSearchDisabled = errors.New("address search is not configured")

// JobState tracks a background ingest job's lifecycle.
type JobState string

const (
	JobPending   JobState = "pending"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

// IngestJob is the visible status of one background batch ingest.
type IngestJob struct {
	ID         string    `json:"id"`
	State      JobState  `json:"state"`
	Total      int       `json:"total"`
	Resolved   int       `json:"resolved"`
	Failed     int       `json:"failed"`
	Error      string    `json:"error,omitempty"`
	AddressIDs []string  `json:"address_ids,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// AddressService fronts the resolver with caching, search indexing, and
// background batch ingest jobs.
type AddressService struct {
	resolver *resolver.Resolver
	store    storage.Store
	cache    ICacheService
	searcher *search.AddressSearcher
	ingester *ingest.Ingester
	rawOpts  resolver.RawOptions
	logger   *zap.Logger

	mu   sync.Mutex
	jobs map[string]*IngestJob
}

// NewAddressService wires the service. Cache and searcher are optional.
func NewAddressService(
	res *resolver.Resolver,
	store storage.Store,
	cache ICacheService,
	searcher *search.AddressSearcher,
	ingester *ingest.Ingester,
	rawOpts resolver.RawOptions,
	logger *zap.Logger,
) *AddressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AddressService{
		resolver: res,
		store:    store,
		cache:    cache,
		searcher: searcher,
		ingester: ingester,
		rawOpts:  rawOpts,
		logger:   logger,
		jobs:     make(map[string]*IngestJob),
	}
}

func cacheKeyForRaw(raw string) string {
	return "raw:" + normalizer.Fold(raw)
}

// ResolveRaw resolves a free-text address, serving repeats from cache.
func (s *AddressService) ResolveRaw(ctx context.Context, raw string) (*models.AddressDetail, error) {
	key := cacheKeyForRaw(raw)
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, key); ok {
			var detail models.AddressDetail
			if err := json.Unmarshal([]byte(cached), &detail); err == nil {
				return &detail, nil
			}
			// Unreadable entry; drop it and resolve fresh.
			_ = s.cache.Delete(ctx, key)
		}
	}

	address, err := s.resolver.CreateAddressFromRaw(ctx, raw, s.rawOpts)
	if err != nil {
		return nil, err
	}
	detail, err := s.resolver.Detail(ctx, address)
	if err != nil {
		return nil, err
	}
	s.afterResolve(ctx, key, detail)
	return detail, nil
}

// ResolveComponents resolves pre-structured components.
func (s *AddressService) ResolveComponents(ctx context.Context, comps *geocode.Components) (*models.AddressDetail, error) {
	address, err := s.resolver.ResolveAddressFromComponents(ctx, "", comps)
	if err != nil {
		return nil, err
	}
	detail, err := s.resolver.Detail(ctx, address)
	if err != nil {
		return nil, err
	}
	s.afterResolve(ctx, "", detail)
	return detail, nil
}

// afterResolve populates the cache and search index. Both are best effort;
// a cold cache or stale index never fails a resolution.
func (s *AddressService) afterResolve(ctx context.Context, cacheKey string, detail *models.AddressDetail) {
	if s.cache != nil && cacheKey != "" {
		if payload, err := json.Marshal(detail); err == nil {
			if err := s.cache.Set(ctx, cacheKey, string(payload)); err != nil {
				s.logger.Warn("Cache set failed", zap.String("key", cacheKey), zap.Error(err))
			}
		}
	}
	if s.searcher != nil {
		if err := s.searcher.IndexAddress(detail); err != nil {
			s.logger.Warn("Search indexing failed",
				zap.String("address_id", detail.Address.ID.Hex()),
				zap.Error(err))
		}
	}
}

// GetAddress loads one address with its hierarchy. Returns (nil, nil) when
// the ID is unknown.
func (s *AddressService) GetAddress(ctx context.Context, idHex string) (*models.AddressDetail, error) {
	id, err := primitive.ObjectIDFromHex(idHex)
	if err != nil {
		return nil, err
	}
	address, err := s.store.GetAddress(ctx, id)
	if err != nil {
		return nil, err
	}
	if address == nil {
		return nil, nil
	}
	return s.resolver.Detail(ctx, address)
}

// Renormalize re-runs the parse/geocode pipeline on one stored address's raw
// field and persists the refreshed structured fields.
func (s *AddressService) Renormalize(ctx context.Context, idHex string) (*models.AddressDetail, error) {
	id, err := primitive.ObjectIDFromHex(idHex)
	if err != nil {
		return nil, err
	}
	address, err := s.resolver.Renormalize(ctx, id, s.rawOpts)
	if err != nil {
		return nil, err
	}
	if address == nil {
		return nil, nil
	}
	return s.resolver.Detail(ctx, address)
}

// Provenance returns the retained source versions and external identifiers
// for an address.
func (s *AddressService) Provenance(ctx context.Context, idHex string) ([]*models.AddressSource, []*models.AddressIdentifier, error) {
	id, err := primitive.ObjectIDFromHex(idHex)
	if err != nil {
		return nil, nil, err
	}
	sources, err := s.store.ListSources(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	identifiers, err := s.store.ListIdentifiers(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return sources, identifiers, nil
}

// Search runs a fuzzy query against the search index.
func (s *AddressService) Search(query string, limit int64) ([]search.Hit, error) {
	if s.searcher == nil {
		return nil, ErrSearchDisabled
	}
	return s.searcher.Search(query, limit)
}

// StartIngestJob launches a background batch ingest and returns its initial
// status. Progress is polled via GetJob.
func (s *AddressService) StartIngestJob(records []ingest.Record) *IngestJob {
	job := &IngestJob{
		ID:        utils.NewID(),
		State:     JobPending,
		Total:     len(records),
		StartedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	go s.runIngestJob(job.ID, records)
	return s.snapshotJob(job.ID)
}

func (s *AddressService) runIngestJob(jobID string, records []ingest.Record) {
	ctx := context.Background()

	s.mu.Lock()
	s.jobs[jobID].State = JobRunning
	s.mu.Unlock()

	result, err := s.ingester.IngestBatch(ctx, records)

	s.mu.Lock()
	defer s.mu.Unlock()
	job := s.jobs[jobID]
	job.FinishedAt = time.Now().UTC()
	if err != nil {
		job.State = JobFailed
		job.Error = err.Error()
		s.logger.Error("Ingest job failed", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	job.State = JobCompleted
	job.Resolved = len(result.Resolved)
	job.Failed = len(result.Failures)
	for _, address := range result.Resolved {
		job.AddressIDs = append(job.AddressIDs, address.ID.Hex())
	}
	s.logger.Info("Ingest job completed",
		zap.String("job_id", jobID),
		zap.Int("resolved", job.Resolved),
		zap.Int("failed", job.Failed))
}

// GetJob returns a copy of a job's status.
func (s *AddressService) GetJob(jobID string) (*IngestJob, bool) {
	job := s.snapshotJob(jobID)
	return job, job != nil
}

func (s *AddressService) snapshotJob(jobID string) *IngestJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil
	}
	copied := *job
	copied.AddressIDs = append([]string(nil), job.AddressIDs...)
	return &copied
}
