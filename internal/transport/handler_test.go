package transport

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-image-enhancer/internal/analyzer"
	"go-image-enhancer/internal/config"
	"go-image-enhancer/internal/filter"
	"go-image-enhancer/internal/observer"
	"go-image-enhancer/internal/recommend"
	"go-image-enhancer/internal/repository"
	"go-image-enhancer/internal/service"
	"go-image-enhancer/internal/storage"
	"go-image-enhancer/internal/task"
	"go-image-enhancer/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	metrics := observer.NewMetricsObserver()
	events := observer.NewEventPublisher()
	events.Subscribe(metrics)

	svc := service.NewEnhancementService(service.Dependencies{
		Sessions:  repository.NewMemorySessionRepository(10),
		Extractor: analyzer.NewStubExtractor(),
		Advisor:   recommend.NewRuleEngine(),
		Pipeline:  filter.NewPipeline(filter.NewBildBackend()),
		Fetcher:   storage.NewHTTPImageFetcher(storage.DefaultFetcherOptions()),
		Artifacts: storage.NewMemoryArtifactStore(),
		Pool:      task.NewPool(2),
		Events:    events,
		Metrics:   metrics,
	}, service.Options{})
	t.Cleanup(svc.Close)

	cfg := &config.Config{
		RequestTimeout:     5 * time.Second,
		MaxRequestBodySize: 1024 * 1024,
	}
	return NewHandler(svc, cfg)
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 12), uint8(y * 12), 128, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartBody(t *testing.T, field, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="photo"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func do(t *testing.T, h http.Handler, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) models.SessionResponse {
	t.Helper()
	var resp models.SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func createSession(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/sessions", nil, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	return decodeSession(t, rec).ID
}

func TestHealthCheck(t *testing.T) {
	h := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/health", nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "available", body["status"])
}

func TestSessionFlow(t *testing.T) {
	h := newTestServer(t)
	id := createSession(t, h)
	base := "/sessions/" + id

	body, ct := multipartBody(t, "image", "image/png", testPNG(t))
	rec := do(t, h, http.MethodPost, base+"/image", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeSession(t, rec)
	assert.Equal(t, "uploaded", resp.State)
	require.NotNil(t, resp.Metrics)

	rec = do(t, h, http.MethodPost, base+"/recommendation?wait=true", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp = decodeSession(t, rec)
	assert.Equal(t, "suggested", resp.State)
	require.NotNil(t, resp.Recommendation)
	assert.NotEmpty(t, resp.Recommendation.Segments)
	recommended := resp.Recommendation.FilterType

	rec = do(t, h, http.MethodPost, base+"/recommendation/accept", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, recommended, decodeSession(t, rec).Descriptor.FilterType)

	rec = do(t, h, http.MethodPut, base+"/kernel", bytes.NewBufferString(`{"kernel_size": 4}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 5, decodeSession(t, rec).Descriptor.KernelSize)

	rec = do(t, h, http.MethodPost, base+"/apply", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "applied", decodeSession(t, rec).State)

	rec = do(t, h, http.MethodGet, base+"/output", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "filtered-"+recommended+"-5.png")
	_, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	assert.NoError(t, err)

	rec = do(t, h, http.MethodPut, base+"/filter", bytes.NewBufferString(`{"filter_type": "median"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "uploaded", decodeSession(t, rec).State)

	rec = do(t, h, http.MethodGet, base+"/output", nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/reset", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeSession(t, rec)
	assert.Equal(t, "no_image", resp.State)
	assert.Equal(t, "gaussian", resp.Descriptor.FilterType)

	rec = do(t, h, http.MethodDelete, base, nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodGet, base, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpload_RawBody(t *testing.T) {
	h := newTestServer(t)
	id := createSession(t, h)

	rec := do(t, h, http.MethodPost, "/sessions/"+id+"/image", bytes.NewBuffer(testPNG(t)), "image/png")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "uploaded", decodeSession(t, rec).State)
}

func TestUpload_UnsupportedMedia(t *testing.T) {
	h := newTestServer(t)
	id := createSession(t, h)

	body, ct := multipartBody(t, "image", "image/gif", []byte("GIF89a"))
	rec := do(t, h, http.MethodPost, "/sessions/"+id+"/image", body, ct)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	var errResp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "unsupported_media", errResp.Type)
}

func TestUpload_MissingField(t *testing.T) {
	h := newTestServer(t)
	id := createSession(t, h)

	body, ct := multipartBody(t, "file", "image/png", testPNG(t))
	rec := do(t, h, http.MethodPost, "/sessions/"+id+"/image", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpload_Corrupt(t *testing.T) {
	h := newTestServer(t)
	id := createSession(t, h)

	body, ct := multipartBody(t, "image", "image/jpeg", []byte("not really a jpeg"))
	rec := do(t, h, http.MethodPost, "/sessions/"+id+"/image", body, ct)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, h, http.MethodGet, "/sessions/"+id, nil, "")
	assert.Equal(t, "no_image", decodeSession(t, rec).State)
}

func TestBadRequests(t *testing.T) {
	h := newTestServer(t)
	id := createSession(t, h)
	base := "/sessions/" + id

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown filter", http.MethodPut, base + "/filter", `{"filter_type": "sepia"}`, http.StatusBadRequest},
		{"missing kernel", http.MethodPut, base + "/kernel", `{}`, http.StatusBadRequest},
		{"malformed json", http.MethodPut, base + "/kernel", `{"kernel_size":`, http.StatusBadRequest},
		{"bad url", http.MethodPost, base + "/image/url", `{"url": "not a url"}`, http.StatusBadRequest},
		{"bad wait", http.MethodPost, base + "/recommendation?wait=maybe", ``, http.StatusBadRequest},
		{"apply without image", http.MethodPost, base + "/apply", ``, http.StatusConflict},
		{"recommend without image", http.MethodPost, base + "/recommendation", ``, http.StatusConflict},
		{"unknown session", http.MethodPost, "/sessions/nope/apply", ``, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, bytes.NewBufferString(tt.body), "application/json")
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestStatsEndpoint(t *testing.T) {
	h := newTestServer(t)
	createSession(t, h)

	rec := do(t, h, http.MethodGet, "/stats", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, float64(1), stats["sessions"])
	events, ok := stats["events"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), events["sessions_created"])
}
