package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/dto"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/export"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/infra"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/middleware"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/progress"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() { gin.SetMode(gin.TestMode) }

// ── Stub services ─────────────────────────────────────────────────────────────

type stubProductions struct {
	service.ProductionService
	scope service.Scope
	err   error
}

func (s *stubProductions) Get(_ context.Context, scope service.Scope, id uuid.UUID) (*dto.ProductionResponse, error) {
	s.scope = scope
	if s.err != nil {
		return nil, s.err
	}
	return &dto.ProductionResponse{ID: id.String(), LotNumber: "LOT-1"}, nil
}

func (s *stubProductions) Create(_ context.Context, _ service.Scope, req dto.CreateProductionRequest) (*dto.ProductionResponse, error) {
	return &dto.ProductionResponse{ID: uuid.NewString(), LotNumber: req.LotNumber}, s.err
}

type stubExport struct{ filter dto.ProductionFilter }

func (s *stubExport) CollectProductions(_ context.Context, _ service.Scope, f dto.ProductionFilter) ([]export.Row, error) {
	s.filter = f
	return []export.Row{{LotNumber: "LOT-1"}}, nil
}

func (s *stubExport) Write(w io.Writer, format string, rows []export.Row) error {
	_, err := fmt.Fprintf(w, "%s:%d", format, len(rows))
	return err
}

type stubGeneration struct {
	service.GenerationService
	resp *dto.GenerateResponse
	err  error
}

func (s *stubGeneration) Generate(context.Context, service.Scope, dto.GenerateRequest) (*dto.GenerateResponse, error) {
	return s.resp, s.err
}

func (s *stubGeneration) Enqueue(_ context.Context, _ service.Scope, req dto.GenerateRequest) (*dto.GenerateResponse, error) {
	return &dto.GenerateResponse{JobID: "job-1", ProductionID: req.ProductionID, Status: progress.StatusProcessing}, s.err
}

func (s *stubGeneration) Progress(_ context.Context, jobID string) (*progress.Progress, error) {
	if jobID != "job-1" {
		return nil, progress.ErrNotFound
	}
	return &progress.Progress{JobID: jobID, Status: progress.StatusProcessing, Inserted: 250, Total: 1000}, nil
}

type stubTokens struct{ bodies map[string]string }

func (s *stubTokens) Preview(_ context.Context, _ service.Scope, files []service.TokenFile) (*dto.TokenPreviewResponse, error) {
	s.bodies = make(map[string]string)
	resp := &dto.TokenPreviewResponse{}
	for _, f := range files {
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		b, _ := io.ReadAll(rc)
		_ = rc.Close()
		s.bodies[f.Name] = string(b)
		resp.Files = append(resp.Files, dto.TokenPreview{FileName: f.Name})
	}
	return resp, nil
}

type stubComplaints struct {
	service.ComplaintService
	phone   string
	uploads []service.Upload
}

func (s *stubComplaints) AddAttachments(_ context.Context, number, phone string, uploads []service.Upload) (*dto.AttachmentUploadResponse, error) {
	s.phone, s.uploads = phone, uploads
	return &dto.AttachmentUploadResponse{ComplaintNumber: number}, nil
}

func (s *stubComplaints) Track(_ context.Context, number, phone string) (*dto.ComplaintTrackingResponse, error) {
	if phone != "0812" {
		return nil, fmt.Errorf("complaint %s: %w", number, service.ErrNotFound)
	}
	return &dto.ComplaintTrackingResponse{ComplaintNumber: number, Status: "submitted"}, nil
}

type stubVerify struct{ err error }

func (s stubVerify) Verify(_ context.Context, serial, code string) (*dto.VerifyResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &dto.VerifyResponse{Code: code, LotNumber: "LOT-" + serial, Status: service.VerifyStatusValid}, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func withClaims(claims *middleware.JWTClaims) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims != nil {
			c.Set(middleware.ClaimsKey, claims)
		}
		c.Next()
	}
}

func jsonRequest(method, path string, body interface{}) *http.Request {
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(body)
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, path string, fields map[string]string, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for name, body := range files {
		fw, err := w.CreateFormFile(filesField, name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestRespondError_StatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("lot: %w", service.ErrValidation), http.StatusUnprocessableEntity},
		{fmt.Errorf("production: %w", service.ErrNotFound), http.StatusNotFound},
		{progress.ErrNotFound, http.StatusNotFound},
		{service.ErrDuplicate, http.StatusConflict},
		{service.ErrAlreadyGenerated, http.StatusConflict},
		{service.ErrAmbiguousSerial, http.StatusConflict},
		{service.ErrInvalidTransition, http.StatusConflict},
		{service.ErrInvestigationState, http.StatusConflict},
		{service.ErrUnauthorized, http.StatusUnauthorized},
		{service.ErrForbiddenScope, http.StatusForbidden},
		{service.ErrUnavailable, http.StatusServiceUnavailable},
		{errors.New("pq: connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		r := gin.New()
		r.GET("/", func(c *gin.Context) { respondError(c, tc.err) })
		rec := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		if tc.status == http.StatusInternalServerError {
			assert.NotContains(t, rec.Body.String(), "pq:")
		}
	}
}

func TestScopeFrom(t *testing.T) {
	company := uuid.NewString()
	user := uuid.NewString()
	var got service.Scope
	r := gin.New()
	r.GET("/", withClaims(&middleware.JWTClaims{UserID: user, Role: "viewer", CompanyID: &company}), func(c *gin.Context) {
		got = scopeFrom(c)
	})
	serve(r, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, user, got.UserID.String())
	assert.Equal(t, "viewer", got.Role)
	require.NotNil(t, got.CompanyID)
	assert.Equal(t, company, got.CompanyID.String())
}

func TestProductions_CreateValidation(t *testing.T) {
	h := NewProductionsHandler(&stubProductions{}, &stubExport{})
	r := gin.New()
	r.POST("/v1/productions", h.Create)

	rec := serve(r, jsonRequest(http.MethodPost, "/v1/productions", map[string]interface{}{
		"lot_number": "LOT-1", "variety": "P-21", "code_1": "AB", "code_2": "B", "code_3": "C", "code_4": "1",
		"lot_total": 10, "lab_result_serial_number": "100",
	}))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "len", body.Fields["code_1"])

	rec = serve(r, jsonRequest(http.MethodPost, "/v1/productions", map[string]interface{}{
		"lot_number": "LOT-1", "variety": "P-21", "code_1": "A", "code_2": "B", "code_3": "C", "code_4": "1",
		"lot_total": 10, "lab_result_serial_number": "100", "purity_pct": "99.5",
	}))
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(r, httptest.NewRequest(http.MethodPost, "/v1/productions", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProductions_GetPassesScope(t *testing.T) {
	stub := &stubProductions{}
	h := NewProductionsHandler(stub, &stubExport{})
	company := uuid.NewString()
	r := gin.New()
	r.GET("/v1/productions/:id", withClaims(&middleware.JWTClaims{UserID: uuid.NewString(), Role: "viewer", CompanyID: &company}), h.Get)

	assert.Equal(t, http.StatusBadRequest, serve(r, httptest.NewRequest(http.MethodGet, "/v1/productions/abc", nil)).Code)

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/v1/productions/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, stub.scope.CompanyID)
	assert.Equal(t, company, stub.scope.CompanyID.String())

	stub.err = fmt.Errorf("production: %w", service.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, serve(r, httptest.NewRequest(http.MethodGet, "/v1/productions/"+uuid.NewString(), nil)).Code)
}

func TestProductions_Export(t *testing.T) {
	exp := &stubExport{}
	h := NewProductionsHandler(&stubProductions{}, exp)
	r := gin.New()
	r.GET("/v1/productions/export", h.Export)

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/v1/productions/export?format=csv&variety=P-21", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "csv:1", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".csv")
	assert.Equal(t, "P-21", exp.filter.Variety)

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/v1/productions/export", nil))
	assert.Equal(t, "xlsx:1", rec.Body.String())

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/v1/productions/export?format=pdf", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGeneration_Endpoints(t *testing.T) {
	gen := &stubGeneration{}
	h := NewGenerationHandler(gen, &stubTokens{})
	r := gin.New()
	r.POST("/generate", h.Generate)
	r.POST("/generate/async", h.Enqueue)
	r.GET("/progress/:job_id", h.Progress)

	pid := uuid.NewString()
	rec := serve(r, jsonRequest(http.MethodPost, "/generate/async", dto.GenerateRequest{ProductionID: pid, QRToken: "tok"}))
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"job_id":"job-1"`)

	rec = serve(r, jsonRequest(http.MethodPost, "/generate/async", dto.GenerateRequest{ProductionID: pid}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	gen.resp = &dto.GenerateResponse{JobID: "job-2", Status: progress.StatusError, Generated: 250}
	gen.err = errors.New("job job-2: batch 2/4: connection reset")
	rec = serve(r, jsonRequest(http.MethodPost, "/generate", dto.GenerateRequest{ProductionID: pid, QRToken: "tok"}))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"job_id":"job-2"`)
	assert.NotContains(t, rec.Body.String(), "connection reset")

	gen.resp, gen.err = nil, service.ErrAlreadyGenerated
	rec = serve(r, jsonRequest(http.MethodPost, "/generate", dto.GenerateRequest{ProductionID: pid, QRToken: "tok"}))
	assert.Equal(t, http.StatusConflict, rec.Code)

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/progress/job-1", nil)).Code)
	assert.Equal(t, http.StatusNotFound, serve(r, httptest.NewRequest(http.MethodGet, "/progress/nope", nil)).Code)
}

func TestGeneration_PreviewTokensReadsUploads(t *testing.T) {
	tokens := &stubTokens{}
	h := NewGenerationHandler(&stubGeneration{}, tokens)
	r := gin.New()
	r.POST("/preview", h.PreviewTokens)

	rec := serve(r, multipartRequest(t, "/preview", nil, map[string]string{
		"LOT-1.csv": "lot,token\nLOT-1,QR-1\n",
		"LOT-2.csv": "lot,token\nLOT-2,QR-2\n",
	}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "lot,token\nLOT-2,QR-2\n", tokens.bodies["LOT-2.csv"])
	assert.Len(t, tokens.bodies, 2)

	rec = serve(r, jsonRequest(http.MethodPost, "/preview", map[string]string{}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestComplaints_PublicEndpoints(t *testing.T) {
	complaints := &stubComplaints{}
	h := NewComplaintsHandler(complaints, nil)
	r := gin.New()
	r.GET("/v1/public/complaints/:number", h.Track)
	r.POST("/v1/public/complaints/:number/attachments", h.AddAttachments)

	assert.Equal(t, http.StatusUnprocessableEntity, serve(r, httptest.NewRequest(http.MethodGet, "/v1/public/complaints/CMP-1", nil)).Code)
	assert.Equal(t, http.StatusNotFound, serve(r, httptest.NewRequest(http.MethodGet, "/v1/public/complaints/CMP-1?phone=999", nil)).Code)
	rec := serve(r, httptest.NewRequest(http.MethodGet, "/v1/public/complaints/CMP-1?phone=0812", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"submitted"`)

	rec = serve(r, multipartRequest(t, "/v1/public/complaints/CMP-1/attachments",
		map[string]string{"phone": "0812"}, map[string]string{"leaf.png": "\x89PNG\r\n\x1a\nrest"}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0812", complaints.phone)
	require.Len(t, complaints.uploads, 1)
	assert.Equal(t, "leaf.png", complaints.uploads[0].Name)
	assert.EqualValues(t, 12, complaints.uploads[0].Size)

	rec = serve(r, multipartRequest(t, "/v1/public/complaints/CMP-1/attachments", nil, map[string]string{"a.png": "x"}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestVerify(t *testing.T) {
	r := gin.New()
	r.GET("/v1/public/verify/:serial", NewVerifyHandler(stubVerify{}).Verify)
	rec := serve(r, httptest.NewRequest(http.MethodGet, "/v1/public/verify/101?code=ABC1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"lot_number":"LOT-101"`)

	r = gin.New()
	r.GET("/v1/public/verify/:serial", NewVerifyHandler(stubVerify{err: service.ErrAmbiguousSerial}).Verify)
	rec = serve(r, httptest.NewRequest(http.MethodGet, "/v1/public/verify/101", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHealth(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	r := gin.New()
	r.GET("/health", Health(db, nil, infra.NewCircuitBreaker(infra.DefaultCBConfig())))

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"db":"connected","redis":"disabled","email_dead_letters":0,"mail_circuit":{"state":"closed","consecutive_failures":0,"rejected":0}}`, rec.Body.String())
}
