package handler

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sepandmal/karname-api/internal/middleware"
	"github.com/sepandmal/karname-api/internal/models"
	"github.com/sepandmal/karname-api/internal/service"
	appErrors "github.com/sepandmal/karname-api/pkg/errors"
	"github.com/sepandmal/karname-api/pkg/response"
)

const (
	defaultRankingLimit = 20
	fallbackMaxPageSize = 100
)

type rankingService interface {
	Compute(ctx context.Context, req service.RankingRequest) (*models.RankingResult, bool, error)
}

type exportService interface {
	Generate(ctx context.Context, req service.ExportRequest) (*service.ExportResult, error)
	ParseToken(token string, allowExpired bool) (exportID, relPath string, expiresAt time.Time, err error)
	Open(relPath string) (*os.File, error)
}

// RankingHandler wires ranking computation and export to HTTP endpoints.
type RankingHandler struct {
	rankings    rankingService
	exports     exportService
	maxPageSize int
}

// NewRankingHandler constructs the handler. The export service may be nil
// when exports are disabled; maxPageSize <= 0 falls back to the default cap.
func NewRankingHandler(rankings rankingService, exports exportService, maxPageSize int) *RankingHandler {
	if maxPageSize <= 0 {
		maxPageSize = fallbackMaxPageSize
	}
	return &RankingHandler{rankings: rankings, exports: exports, maxPageSize: maxPageSize}
}

// List godoc
// @Summary Class performance ranking
// @Tags Rankings
// @Produce json
// @Param classId query string true "Class ID"
// @Param year query int true "School year (Persian calendar)"
// @Param month query int false "Local month 1-12, omit for whole year"
// @Param offset query int false "Ranking window offset"
// @Param limit query int false "Ranking window size (max 100)"
// @Success 200 {object} response.Envelope
// @Router /rankings [get]
func (h *RankingHandler) List(c *gin.Context) {
	req, err := h.parseRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	start := time.Now()
	result, cacheHit, err := h.rankings.Compute(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, result, nil, meta)
}

// CourseRanking godoc
// @Summary Per-course performance ranking
// @Tags Rankings
// @Produce json
// @Param courseId path string true "Course ID"
// @Param classId query string true "Class ID"
// @Param year query int true "School year (Persian calendar)"
// @Param month query int false "Local month 1-12, omit for whole year"
// @Success 200 {object} response.Envelope
// @Router /rankings/courses/{courseId} [get]
func (h *RankingHandler) CourseRanking(c *gin.Context) {
	req, err := h.parseRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, cacheHit, err := h.rankings.Compute(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	courseID := c.Param("courseId")
	ranking, ok := result.CourseRankings[courseID]
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "no ranking for course"))
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, gin.H{"course_id": courseID, "ranking": ranking}, nil)
}

// Export godoc
// @Summary Export class ranking as CSV or PDF
// @Tags Rankings
// @Produce json
// @Param classId query string true "Class ID"
// @Param year query int true "School year (Persian calendar)"
// @Param month query int false "Local month 1-12, omit for whole year"
// @Param format query string true "Export format (csv or pdf)"
// @Success 200 {object} response.Envelope
// @Router /rankings/export [get]
func (h *RankingHandler) Export(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "exports are disabled"))
		return
	}
	req, err := h.parseRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format := models.ExportFormat(strings.ToLower(c.Query("format")))
	if !format.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return
	}

	result, err := h.exports.Generate(c.Request.Context(), service.ExportRequest{Ranking: req, Format: format})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"export_id":  result.ExportID,
		"url":        result.URL,
		"format":     result.Format,
		"expires_at": result.ExpiresAt,
	}, nil)
}

// Download godoc
// @Summary Download a previously exported ranking file
// @Tags Rankings
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Router /rankings/export/download [get]
func (h *RankingHandler) Download(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "exports are disabled"))
		return
	}
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token required"))
		return
	}
	_, relPath, _, err := h.exports.ParseToken(token, false)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token"))
		return
	}
	file, err := h.exports.Open(relPath)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "export file not found"))
		return
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat export file"))
		return
	}
	filename := filepath.Base(relPath)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	c.DataFromReader(http.StatusOK, info.Size(), contentTypeFor(filename), file, nil)
}

func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return "text/csv"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

func (h *RankingHandler) parseRequest(c *gin.Context) (service.RankingRequest, error) {
	classID := strings.TrimSpace(c.Query("classId"))
	if classID == "" {
		return service.RankingRequest{}, appErrors.Clone(appErrors.ErrValidation, "classId is required")
	}
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil || year <= 0 {
		return service.RankingRequest{}, appErrors.Clone(appErrors.ErrInvalidScope, "year must be a positive integer")
	}
	month, err := parseOptionalInt(c.Query("month"), 0)
	if err != nil || month < 0 || month > 12 {
		return service.RankingRequest{}, appErrors.Clone(appErrors.ErrInvalidScope, "month must be between 1 and 12")
	}
	offset, err := parseOptionalInt(c.Query("offset"), 0)
	if err != nil || offset < 0 {
		return service.RankingRequest{}, appErrors.Clone(appErrors.ErrValidation, "offset must be a non-negative integer")
	}
	limit, err := parseOptionalInt(c.Query("limit"), defaultRankingLimit)
	if err != nil {
		return service.RankingRequest{}, appErrors.Clone(appErrors.ErrValidation, "limit must be an integer")
	}
	if limit > h.maxPageSize {
		limit = h.maxPageSize
	}

	req := service.RankingRequest{
		ClassID: classID,
		Year:    year,
		Month:   month,
		Offset:  offset,
		Limit:   limit,
	}
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleStudent {
		req.RequesterID = claims.StudentID
	}
	return req, nil
}

func parseOptionalInt(raw string, fallback int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
