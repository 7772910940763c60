package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"prediction-service/internal/model"
	"prediction-service/internal/predict"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeScorer struct {
	proba []float64
	err   error
	calls int
}

func (f *fakeScorer) Predict(records []model.Record) ([]int, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]int, len(records))
	for i := range records {
		if f.proba[i%len(f.proba)] >= 0.5 {
			out[i] = 1
		}
	}
	return out, nil
}

func (f *fakeScorer) PredictProba(records []model.Record) ([]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]float64, len(records))
	for i := range records {
		out[i] = f.proba[i%len(f.proba)]
	}
	return out, nil
}

var testSchema = &model.Schema{
	NumericFeatures:     []string{"tenure", "charges"},
	CategoricalFeatures: []string{"contract"},
}

type testEnv struct {
	router    *gin.Engine
	scorer    *fakeScorer
	uploadDir string
}

func newTestEnv(t *testing.T, scorer *fakeScorer, cfg Config) *testEnv {
	t.Helper()
	if cfg.UploadDir == "" {
		cfg.UploadDir = t.TempDir()
	}
	if len(cfg.AllowedExtensions) == 0 {
		cfg.AllowedExtensions = []string{"csv"}
	}
	var service *predict.Service
	if scorer != nil {
		service = predict.NewService(scorer, testSchema)
	}
	server, err := NewServer(cfg, service)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	router, err := server.Router()
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	return &testEnv{router: router, scorer: scorer, uploadDir: cfg.UploadDir}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) assertNoStagedFiles(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(e.uploadDir)
	if err != nil {
		t.Fatalf("read upload dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected upload dir to be empty, found %d entries", len(entries))
	}
}

type upload struct {
	field    string
	filename string
	content  string
}

func uploadRequest(t *testing.T, files ...upload) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte(f.content)); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/predict", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		scorer *fakeScorer
		loaded bool
	}{
		{"loaded", &fakeScorer{proba: []float64{0.5}}, true},
		{"not loaded", nil, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, tc.scorer, Config{})
			w := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200 got %d", w.Code)
			}
			resp := decode[HealthResponse](t, w)
			if resp.Status != "healthy" || resp.ModelLoaded != tc.loaded {
				t.Fatalf("unexpected health %+v", resp)
			}
		})
	}
}

func TestPredictBatch(t *testing.T) {
	env := newTestEnv(t, &fakeScorer{proba: []float64{0.9, 0.2, 0.6}}, Config{})
	csv := "tenure,charges,contract\n1,20,monthly\n30,80,two year\n12,55,one year\n"

	w := env.do(uploadRequest(t, upload{"file", "customers.CSV", csv}))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", w.Code, w.Body.String())
	}
	resp := decode[BatchResponse](t, w)
	if !resp.Success {
		t.Fatalf("expected success")
	}
	if len(resp.Predictions) != 3 {
		t.Fatalf("expected 3 predictions got %d", len(resp.Predictions))
	}
	for i, p := range resp.Predictions {
		if p.ID != i {
			t.Fatalf("expected id %d got %d", i, p.ID)
		}
	}
	stats := resp.Statistics
	if stats.TotalPredictions != 3 || stats.PositivePredictions != 2 || stats.NegativePredictions != 1 {
		t.Fatalf("unexpected statistics %+v", stats)
	}
	if resp.Predictions[0].Confidence != "high" || resp.Predictions[2].Confidence != "medium" {
		t.Fatalf("unexpected confidence tags %+v", resp.Predictions)
	}
	if w.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
	env.assertNoStagedFiles(t)
}

func TestPredictBatchPandasExport(t *testing.T) {
	env := newTestEnv(t, &fakeScorer{proba: []float64{0.9, 0.1}}, Config{})
	csv := ",tenure,charges,contract,note,note\n0,1,20,monthly,a,b\n1,30,80,two year,c,d\n"

	w := env.do(uploadRequest(t, upload{"file", "export.csv", csv}))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", w.Code, w.Body.String())
	}
	resp := decode[BatchResponse](t, w)
	if len(resp.Predictions) != 2 || resp.Statistics.TotalPredictions != 2 {
		t.Fatalf("unexpected response %+v", resp)
	}
	env.assertNoStagedFiles(t)
}

func TestPredictBatchMissingColumn(t *testing.T) {
	scorer := &fakeScorer{proba: []float64{0.9}}
	env := newTestEnv(t, scorer, Config{})

	w := env.do(uploadRequest(t, upload{"file", "customers.csv", "tenure,charges,extra\n1,2,3\n"}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
	resp := decode[ErrorResponse](t, w)
	if len(resp.MissingColumns) != 1 || resp.MissingColumns[0] != "contract" {
		t.Fatalf("unexpected missing columns %v", resp.MissingColumns)
	}
	if len(resp.RequiredColumns) != 3 {
		t.Fatalf("unexpected required columns %v", resp.RequiredColumns)
	}
	if scorer.calls != 0 {
		t.Fatalf("scorer must not be called")
	}
	env.assertNoStagedFiles(t)
}

func TestPredictBatchScorerFailure(t *testing.T) {
	env := newTestEnv(t, &fakeScorer{err: errors.New("matrix is singular")}, Config{})

	w := env.do(uploadRequest(t, upload{"file", "customers.csv", "tenure,charges,contract\n1,2,x\n"}))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", w.Code)
	}
	resp := decode[ErrorResponse](t, w)
	if !strings.Contains(resp.Error, "matrix is singular") {
		t.Fatalf("expected cause in error, got %q", resp.Error)
	}
	env.assertNoStagedFiles(t)
}

func TestPredictBatchRejectsBadUploads(t *testing.T) {
	tests := []struct {
		name     string
		req      func(t *testing.T) *http.Request
		expected int
		message  string
	}{
		{
			name: "no file part",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, upload{"other", "a.csv", "x"})
			},
			expected: http.StatusBadRequest,
			message:  "no file sent",
		},
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader("tenure\n1\n"))
			},
			expected: http.StatusBadRequest,
			message:  "no file sent",
		},
		{
			name: "empty filename",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, upload{"file", "", "tenure\n1\n"})
			},
			expected: http.StatusBadRequest,
			message:  "no file selected",
		},
		{
			name: "disallowed extension",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, upload{"file", "customers.xlsx", "tenure\n1\n"})
			},
			expected: http.StatusBadRequest,
			message:  "file type not allowed",
		},
		{
			name: "two files",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, upload{"file", "a.csv", "tenure\n1\n"}, upload{"file", "b.csv", "tenure\n1\n"})
			},
			expected: http.StatusBadRequest,
			message:  "only one file",
		},
		{
			name: "malformed csv",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, upload{"file", "a.csv", "tenure,charges,contract\n1,2,3,4\n"})
			},
			expected: http.StatusInternalServerError,
			message:  "error processing file",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			scorer := &fakeScorer{proba: []float64{0.5}}
			env := newTestEnv(t, scorer, Config{})
			w := env.do(tc.req(t))
			if w.Code != tc.expected {
				t.Fatalf("expected %d got %d: %s", tc.expected, w.Code, w.Body.String())
			}
			resp := decode[ErrorResponse](t, w)
			if !strings.Contains(resp.Error, tc.message) {
				t.Fatalf("expected %q in error, got %q", tc.message, resp.Error)
			}
			if scorer.calls != 0 {
				t.Fatalf("scorer must not be called")
			}
			env.assertNoStagedFiles(t)
		})
	}
}

func TestPredictBatchTooLarge(t *testing.T) {
	env := newTestEnv(t, &fakeScorer{proba: []float64{0.5}}, Config{MaxUploadBytes: 256})
	big := "tenure,charges,contract\n" + strings.Repeat("1,2,monthly\n", 200)

	w := env.do(uploadRequest(t, upload{"file", "big.csv", big}))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 got %d: %s", w.Code, w.Body.String())
	}
	env.assertNoStagedFiles(t)
}

func TestPredictWithoutModel(t *testing.T) {
	env := newTestEnv(t, nil, Config{})

	w := env.do(uploadRequest(t, upload{"file", "a.csv", "tenure,charges,contract\n1,2,x\n"}))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", w.Code)
	}
	req := httptest.NewRequest(http.MethodPost, "/predict_single", strings.NewReader(`{"tenure":1}`))
	req.Header.Set("Content-Type", "application/json")
	if w := env.do(req); w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", w.Code)
	}
	if w := env.do(httptest.NewRequest(http.MethodGet, "/schema", nil)); w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", w.Code)
	}
}

func TestPredictSingle(t *testing.T) {
	env := newTestEnv(t, &fakeScorer{proba: []float64{0.25}}, Config{})

	req := httptest.NewRequest(http.MethodPost, "/predict_single",
		strings.NewReader(`{"tenure": 4, "charges": "70.5", "contract": "monthly", "customer_id": "c-1"}`))
	req.Header.Set("Content-Type", "application/json")
	w := env.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", w.Code, w.Body.String())
	}
	payload := decode[map[string]any](t, w)
	if _, ok := payload["id"]; ok {
		t.Fatalf("single prediction must not carry an id")
	}
	if _, ok := payload["statistics"]; ok {
		t.Fatalf("single prediction must not carry statistics")
	}
	if payload["prediction"].(float64) != 0 || payload["confidence"] != "high" {
		t.Fatalf("unexpected payload %v", payload)
	}
}

func TestPredictSingleRejects(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"empty body", "", "no data provided"},
		{"empty object", "{}", "no data provided"},
		{"null", "null", "no data provided"},
		{"array", "[1,2]", "invalid JSON payload"},
		{"missing field", `{"tenure": 1, "charges": 2}`, "missing required columns"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			scorer := &fakeScorer{proba: []float64{0.5}}
			env := newTestEnv(t, scorer, Config{})
			req := httptest.NewRequest(http.MethodPost, "/predict_single", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			w := env.do(req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 got %d: %s", w.Code, w.Body.String())
			}
			resp := decode[ErrorResponse](t, w)
			if !strings.Contains(resp.Error, tc.message) {
				t.Fatalf("expected %q in error, got %q", tc.message, resp.Error)
			}
			if scorer.calls != 0 {
				t.Fatalf("scorer must not be called")
			}
		})
	}
}

func TestSchema(t *testing.T) {
	env := newTestEnv(t, &fakeScorer{proba: []float64{0.5}}, Config{})
	w := env.do(httptest.NewRequest(http.MethodGet, "/schema", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	resp := decode[SchemaResponse](t, w)
	if strings.Join(resp.RequiredColumns, ",") != "tenure,charges,contract" {
		t.Fatalf("unexpected required columns %v", resp.RequiredColumns)
	}
}

func TestNewServerValidation(t *testing.T) {
	if _, err := NewServer(Config{AllowedExtensions: []string{"csv"}}, nil); err == nil {
		t.Fatalf("expected error without upload dir")
	}
	if _, err := NewServer(Config{UploadDir: t.TempDir()}, nil); err == nil {
		t.Fatalf("expected error without allowed extensions")
	}
}
