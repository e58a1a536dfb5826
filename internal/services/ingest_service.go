package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/recoveryplus/recoveryplus-backend/internal/logger"
	"github.com/recoveryplus/recoveryplus-backend/internal/repos"
	"github.com/recoveryplus/recoveryplus-backend/internal/types"
	"github.com/recoveryplus/recoveryplus-backend/internal/utils"
)

// MetricEntry is one sample in an ingestion batch, as delivered by the
// provider webhook. Date is a calendar day string ("2006-01-02").
type MetricEntry struct {
	Kind  types.MetricKind       `json:"kind"`
	Value float64                `json:"value"`
	Unit  string                 `json:"unit,omitempty"`
	Date  string                 `json:"date"`
	Meta  map[string]interface{} `json:"meta,omitempty"`
}

// IngestBatch is the payload of one ingest job: a user's samples from a
// single provider sync.
type IngestBatch struct {
	UserID    uuid.UUID          `json:"userId"`
	Source    types.MetricSource `json:"source"`
	Timestamp time.Time          `json:"timestamp"`
	Metrics   []MetricEntry      `json:"metrics"`
}

// IngestResult reports what one batch produced: rows written, entries
// rejected, and the distinct days whose samples changed.
type IngestResult struct {
	Stored        int      `json:"stored"`
	Rejected      int      `json:"rejected"`
	AffectedDates []string `json:"affectedDates"`
}

type IngestService interface {
	// ProcessBatch validates and upserts every entry in the batch. Invalid
	// entries are rejected individually; one bad sample never fails the batch.
	// Re-processing an identical batch converges to the same rows.
	ProcessBatch(ctx context.Context, batch IngestBatch) (IngestResult, error)
}

type ingestService struct {
	db       *gorm.DB
	log      *logger.Logger
	metrics  repos.MetricSampleRepo
	accounts repos.SourceAccountRepo
}

func NewIngestService(db *gorm.DB, baseLog *logger.Logger, metrics repos.MetricSampleRepo, accounts repos.SourceAccountRepo) IngestService {
	return &ingestService{
		db:       db,
		log:      baseLog.With("service", "IngestService"),
		metrics:  metrics,
		accounts: accounts,
	}
}

func (s *ingestService) ProcessBatch(ctx context.Context, batch IngestBatch) (IngestResult, error) {
	var result IngestResult
	if batch.UserID == uuid.Nil {
		return result, fmt.Errorf("ingest batch missing user id")
	}
	source := batch.Source
	if source == "" {
		source = types.SourceAppleHealth
	}

	affected := map[string]bool{}
	for _, entry := range batch.Metrics {
		date, err := s.validateEntry(entry)
		if err != nil {
			result.Rejected++
			s.log.Warn("Rejected metric entry",
				"user_id", batch.UserID,
				"kind", entry.Kind,
				"date", entry.Date,
				"error", err,
			)
			continue
		}

		sample := &types.MetricSample{
			ID:     uuid.New(),
			UserID: batch.UserID,
			Date:   date,
			Kind:   entry.Kind,
			Source: source,
			Value:  entry.Value,
			Unit:   entry.Unit,
		}
		if len(entry.Meta) > 0 {
			metaJSON, merr := json.Marshal(entry.Meta)
			if merr == nil {
				sample.Metadata = datatypes.JSON(metaJSON)
			}
		}

		if err := s.metrics.Upsert(ctx, nil, sample); err != nil {
			result.Rejected++
			s.log.Error("Failed to store metric sample",
				"user_id", batch.UserID,
				"kind", entry.Kind,
				"date", entry.Date,
				"error", err,
			)
			continue
		}
		result.Stored++
		affected[utils.DayString(date)] = true
	}

	if result.Stored > 0 {
		at := batch.Timestamp
		if at.IsZero() {
			at = time.Now()
		}
		if err := s.accounts.TouchLastSync(ctx, nil, batch.UserID, source, at); err != nil {
			s.log.Warn("Failed to bump source account sync time", "user_id", batch.UserID, "error", err)
		}
	}

	for day := range affected {
		result.AffectedDates = append(result.AffectedDates, day)
	}
	sort.Strings(result.AffectedDates)

	s.log.Info("Metric batch processed",
		"user_id", batch.UserID,
		"stored", result.Stored,
		"rejected", result.Rejected,
		"affected_dates", len(result.AffectedDates),
	)
	return result, nil
}

func (s *ingestService) validateEntry(entry MetricEntry) (time.Time, error) {
	if !types.ValidMetricKind(entry.Kind) {
		return time.Time{}, fmt.Errorf("unknown metric kind %q", entry.Kind)
	}
	date, err := utils.ParseDay(entry.Date)
	if err != nil {
		return time.Time{}, err
	}
	if entry.Value < 0 {
		return time.Time{}, fmt.Errorf("negative value %v for %s", entry.Value, entry.Kind)
	}
	return date, nil
}
