package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sepandmal/karname-api/internal/middleware"
	"github.com/sepandmal/karname-api/internal/models"
	"github.com/sepandmal/karname-api/internal/service"
)

type fakeRankingSrv struct {
	result   *models.RankingResult
	err      error
	cacheHit bool
	lastReq  service.RankingRequest
}

func (f *fakeRankingSrv) Compute(_ context.Context, req service.RankingRequest) (*models.RankingResult, bool, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, false, f.err
	}
	return f.result, f.cacheHit, nil
}

type fakeExportSrv struct {
	result  *service.ExportResult
	err     error
	lastReq service.ExportRequest
}

func (f *fakeExportSrv) Generate(_ context.Context, req service.ExportRequest) (*service.ExportResult, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeExportSrv) ParseToken(_ string, _ bool) (string, string, time.Time, error) {
	return "export-1", "file.csv", time.Now().Add(time.Hour), nil
}

func (f *fakeExportSrv) Open(_ string) (*os.File, error) {
	return nil, os.ErrNotExist
}

func rankingResultFixture() *models.RankingResult {
	avg := 15.0
	return &models.RankingResult{
		OverallRanking: models.RankedPage{
			Entries: []models.RankEntry{
				{SubjectID: "stu-1", Average: 18, Rank: 1},
				{SubjectID: "stu-2", Average: 12, Rank: 2},
			},
			Total: 2, Limit: 20,
		},
		CourseRankings: map[string][]models.RankEntry{
			"math": {{SubjectID: "stu-1", Average: 18, Rank: 1}},
		},
		CohortStats: models.CohortStats{StudentCount: 2, ClassAverage: &avg, CourseCount: 1},
	}
}

func TestRankingHandlerListRequiresClass(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRankingHandler(&fakeRankingSrv{}, nil, 0)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/rankings?year=1402", nil)

	handler.List(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRankingHandlerListRejectsBadScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRankingHandler(&fakeRankingSrv{}, nil, 0)

	for _, query := range []string{
		"classId=class-1",
		"classId=class-1&year=0",
		"classId=class-1&year=1402&month=13",
		"classId=class-1&year=1402&offset=-1",
	} {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		c.Request = httptest.NewRequest(http.MethodGet, "/rankings?"+query, nil)

		handler.List(c)

		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}

func TestRankingHandlerListSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeRankingSrv{result: rankingResultFixture(), cacheHit: true}
	handler := NewRankingHandler(srv, nil, 0)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/rankings?classId=class-1&year=1402&month=8&offset=5&limit=50", nil)

	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.RankingRequest{
		ClassID: "class-1",
		Year:    1402,
		Month:   8,
		Offset:  5,
		Limit:   50,
	}, srv.lastReq)

	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Contains(t, envelope.Data, "overall_ranking")
}

func TestRankingHandlerListClampsLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	srv := &fakeRankingSrv{result: rankingResultFixture()}
	handler := NewRankingHandler(srv, nil, 0)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/rankings?classId=class-1&year=1402&limit=500", nil)

	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, fallbackMaxPageSize, srv.lastReq.Limit)

	srv = &fakeRankingSrv{result: rankingResultFixture()}
	handler = NewRankingHandler(srv, nil, 50)

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/rankings?classId=class-1&year=1402&limit=80", nil)

	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 50, srv.lastReq.Limit)
}

func TestRankingHandlerListStudentRequester(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeRankingSrv{result: rankingResultFixture()}
	handler := NewRankingHandler(srv, nil, 0)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/rankings?classId=class-1&year=1402", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-9", Role: models.RoleStudent, StudentID: "stu-2"})

	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stu-2", srv.lastReq.RequesterID)
	assert.Equal(t, defaultRankingLimit, srv.lastReq.Limit)
}

func TestRankingHandlerCourseRanking(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRankingHandler(&fakeRankingSrv{result: rankingResultFixture()}, nil, 0)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/rankings/courses/math?classId=class-1&year=1402", nil)
	c.Params = gin.Params{{Key: "courseId", Value: "math"}}

	handler.CourseRanking(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "math", envelope.Data["course_id"])
}

func TestRankingHandlerCourseRankingUnknownCourse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRankingHandler(&fakeRankingSrv{result: rankingResultFixture()}, nil, 0)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/rankings/courses/art?classId=class-1&year=1402", nil)
	c.Params = gin.Params{{Key: "courseId", Value: "art"}}

	handler.CourseRanking(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRankingHandlerExport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	exports := &fakeExportSrv{result: &service.ExportResult{
		ExportID: "export-1",
		URL:      "/api/v1/rankings/export/download?token=abc",
		Format:   models.ExportFormatCSV,
	}}
	handler := NewRankingHandler(&fakeRankingSrv{result: rankingResultFixture()}, exports, 0)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/rankings/export?classId=class-1&year=1402&format=csv", nil)

	handler.Export(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ExportFormatCSV, exports.lastReq.Format)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "export-1", envelope.Data["export_id"])
}

func TestRankingHandlerExportRejectsFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRankingHandler(&fakeRankingSrv{result: rankingResultFixture()}, &fakeExportSrv{}, 0)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/rankings/export?classId=class-1&year=1402&format=xlsx", nil)

	handler.Export(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRankingHandlerExportDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRankingHandler(&fakeRankingSrv{result: rankingResultFixture()}, nil, 0)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/rankings/export?classId=class-1&year=1402&format=csv", nil)

	handler.Export(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRankingHandlerDownloadMissingFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRankingHandler(&fakeRankingSrv{}, &fakeExportSrv{}, 0)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/rankings/export/download?token=abc", nil)

	handler.Download(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type responseEnvelope struct {
	Data map[string]interface{} `json:"data"`
	Meta map[string]interface{} `json:"meta"`
}
