package httpx

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/talentforge/insights/internal/core"
	"github.com/talentforge/insights/internal/data/docstore"
	"github.com/talentforge/insights/internal/domain/model"
	apperrors "github.com/talentforge/insights/internal/errors"
	"github.com/talentforge/insights/internal/mocks/coremocks"
	"github.com/talentforge/insights/internal/service"
)

func newProfileHandlers(t *testing.T) (*ProfileHandlers, *coremocks.MockExtractor, core.ProfileRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)
	extractor := coremocks.NewMockExtractor(ctrl)
	repo, err := docstore.NewFileStore(docstore.FileStoreOptions{Dir: t.TempDir()})
	require.NoError(t, err)
	svc, err := service.NewProfileService(service.ProfileServiceOptions{
		Repo:      repo,
		Extractor: extractor,
	})
	require.NoError(t, err)
	return &ProfileHandlers{Svc: svc}, extractor, repo
}

func multipartUpload(t *testing.T, target, filename string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, target, &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func TestIngest_Success(t *testing.T) {
	h, extractor, _ := newProfileHandlers(t)

	extractor.EXPECT().
		Extract(gomock.Any(), gomock.Any()).
		Return(&model.Resume{FullName: "Kim Osei"}, nil)

	r := multipartUpload(t, "/api/profiles", "resume.pdf", []byte("%PDF fake"))
	w := httptest.NewRecorder()

	h.Ingest(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var doc model.ProfileDocument
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "Kim Osei", doc.Resume.FullName)
}

func TestIngest_MultipleFilesReportPerFileOutcomes(t *testing.T) {
	h, extractor, _ := newProfileHandlers(t)

	gomock.InOrder(
		extractor.EXPECT().
			Extract(gomock.Any(), gomock.Any()).
			Return(&model.Resume{FullName: "Kim Osei"}, nil),
		extractor.EXPECT().
			Extract(gomock.Any(), gomock.Any()).
			Return(nil, apperrors.RemoteFailure("extraction backend unavailable")),
	)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range []string{"kim.pdf", "broken.pdf"} {
		fw, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte("%PDF fake"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	r := httptest.NewRequest(http.MethodPost, "/api/profiles", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()

	h.Ingest(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var results []ingestResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&results))
	require.Len(t, results, 2)

	assert.Equal(t, "kim.pdf", results[0].Filename)
	assert.Equal(t, "success", results[0].Status)
	assert.NotEmpty(t, results[0].ID)

	assert.Equal(t, "broken.pdf", results[1].Filename)
	assert.Equal(t, "error", results[1].Status)
	assert.Empty(t, results[1].ID)
	assert.Contains(t, results[1].Detail, "unavailable")
}

func TestIngest_MissingFile(t *testing.T) {
	h, _, _ := newProfileHandlers(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "no file here"))
	require.NoError(t, mw.Close())
	r := httptest.NewRequest(http.MethodPost, "/api/profiles", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()

	h.Ingest(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "missing_file", body["error"])
}

func TestIngest_UploadTooLarge(t *testing.T) {
	h, _, _ := newProfileHandlers(t)
	h.MaxUploadBytes = 64

	r := multipartUpload(t, "/api/profiles", "resume.pdf", bytes.Repeat([]byte("x"), 4096))
	w := httptest.NewRecorder()

	h.Ingest(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetProfile_NotFound(t *testing.T) {
	h, _, _ := newProfileHandlers(t)

	mux := http.NewServeMux()
	registerProfileRoutes(mux, h)
	r := httptest.NewRequest(http.MethodGet, "/api/profiles/ghost", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "not_found", body["error"])
}

func TestProfileLifecycleRoutes(t *testing.T) {
	h, extractor, _ := newProfileHandlers(t)
	mux := http.NewServeMux()
	registerProfileRoutes(mux, h)

	extractor.EXPECT().
		Extract(gomock.Any(), gomock.Any()).
		Return(&model.Resume{FullName: "Kim Osei"}, nil)

	// Create.
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, multipartUpload(t, "/api/profiles", "resume.pdf", []byte("data")))
	require.Equal(t, http.StatusCreated, w.Code)
	var doc model.ProfileDocument
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))

	// Read back.
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/profiles/"+doc.ID, nil))
	require.Equal(t, http.StatusOK, w.Code)

	// List.
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/profiles?limit=10", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var docs []model.ProfileDocument
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &docs))
	assert.Len(t, docs, 1)

	// Delete, then the profile is gone.
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/profiles/"+doc.ID, nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/profiles/"+doc.ID, nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthz(t *testing.T) {
	router := NewRouter(RouterServices{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
