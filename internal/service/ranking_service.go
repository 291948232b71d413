package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sepandmal/karname-api/internal/engine"
	"github.com/sepandmal/karname-api/internal/models"
)

// SessionReader loads the raw session records a ranking is computed from.
type SessionReader interface {
	ListBetween(ctx context.Context, classID string, from, to time.Time) ([]models.SessionRecord, error)
}

// CourseReader loads a class's courses and their teacher assignments.
type CourseReader interface {
	ListByClass(ctx context.Context, classID string) ([]models.Course, error)
	CourseTeachers(ctx context.Context, courseIDs []string) (map[string][]string, error)
}

// WeightTableReader loads the stored assessment weight tables.
type WeightTableReader interface {
	LoadSources(ctx context.Context) (models.WeightTableSources, error)
}

// StudentReader loads the ranking cohort.
type StudentReader interface {
	ListActiveByClass(ctx context.Context, classID string) ([]models.Student, error)
}

// RankingRequest describes one ranking query after transport decoding.
type RankingRequest struct {
	ClassID     string `validate:"required"`
	Year        int    `validate:"gt=0"`
	Month       int    `validate:"gte=0,lte=12"`
	Offset      int    `validate:"gte=0"`
	Limit       int
	RequesterID string
}

// RankingService orchestrates ranking computations: it assembles the engine's
// input from the repositories, delegates the pure computation and caches the
// result per scope.
type RankingService struct {
	sessions SessionReader
	courses  CourseReader
	weights  WeightTableReader
	students StudentReader
	cache    *CacheService
	metrics  *MetricsService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewRankingService constructs a ranking service.
func NewRankingService(sessions SessionReader, courses CourseReader, weights WeightTableReader, students StudentReader, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *RankingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RankingService{
		sessions: sessions,
		courses:  courses,
		weights:  weights,
		students: students,
		cache:    cache,
		metrics:  metrics,
		validate: validate,
		logger:   logger,
	}
}

// Compute returns the ranking for the requested scope. The boolean indicates
// whether the result originated from cache.
func (s *RankingService) Compute(ctx context.Context, req RankingRequest) (*models.RankingResult, bool, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, false, err
	}

	cacheKey := makeRankingCacheKey(req)
	var cached models.RankingResult
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
			return nil, false, fmt.Errorf("get ranking cache: %w", err)
		} else if hit {
			return &cached, true, nil
		}
	}

	input, err := s.assembleInput(ctx, req)
	if err != nil {
		return nil, false, err
	}

	result, err := engine.ComputeRankings(input)
	if err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, result, 0); err != nil {
			s.logger.Warn("cache ranking", zap.Error(err))
		}
	}
	return result, false, nil
}

// Invalidate drops every cached ranking for one class, typically after new
// session records land.
func (s *RankingService) Invalidate(ctx context.Context, classID string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, fmt.Sprintf("rankings:%s:*", classID))
}

func (s *RankingService) assembleInput(ctx context.Context, req RankingRequest) (engine.Input, error) {
	start := time.Now()

	students, err := s.students.ListActiveByClass(ctx, req.ClassID)
	if err != nil {
		return engine.Input{}, fmt.Errorf("load students: %w", err)
	}
	courses, err := s.courses.ListByClass(ctx, req.ClassID)
	if err != nil {
		return engine.Input{}, fmt.Errorf("load courses: %w", err)
	}
	courseIDs := make([]string, len(courses))
	for i, c := range courses {
		courseIDs[i] = c.ID
	}
	assignments, err := s.courses.CourseTeachers(ctx, courseIDs)
	if err != nil {
		return engine.Input{}, fmt.Errorf("load course teachers: %w", err)
	}
	sources, err := s.weights.LoadSources(ctx)
	if err != nil {
		return engine.Input{}, fmt.Errorf("load weight tables: %w", err)
	}
	sources.CourseTeachers = assignments

	from, to := engine.SchoolYearBounds(req.Year)
	records, err := s.sessions.ListBetween(ctx, req.ClassID, from, to)
	if err != nil {
		return engine.Input{}, fmt.Errorf("load session records: %w", err)
	}

	if s.metrics != nil {
		s.metrics.ObserveDBQuery("ranking_input", time.Since(start))
	}

	return engine.Input{
		Records:      records,
		Courses:      courses,
		WeightTables: engine.BuildWeightTables(courses, sources),
		Students:     students,
		Scope:        models.RankingScope{Year: req.Year, Month: req.Month},
		Page:         models.PageRequest{Offset: req.Offset, Limit: req.Limit},
		RequesterID:  req.RequesterID,
	}, nil
}

func makeRankingCacheKey(req RankingRequest) string {
	var builder strings.Builder
	builder.WriteString("rankings:")
	builder.WriteString(strings.ReplaceAll(req.ClassID, ":", "|"))
	fmt.Fprintf(&builder, ":%d:%d:%d:%d", req.Year, req.Month, req.Offset, req.Limit)
	if req.RequesterID != "" {
		builder.WriteByte(':')
		builder.WriteString(strings.ReplaceAll(req.RequesterID, ":", "|"))
	}
	return builder.String()
}
