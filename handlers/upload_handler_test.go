package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floordesign/models"
	"floordesign/tracker"
	"floordesign/upload"
)

type recordingUploader struct {
	mu    sync.Mutex
	calls []string
}

func (u *recordingUploader) Upload(_ context.Context, _ []byte, publicID, folder string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	id := folder + "/" + publicID
	u.calls = append(u.calls, id)
	return "https://cdn.test/" + id, nil
}

type formFile struct {
	path string
	data string
}

func multipartBody(t *testing.T, files []formFile, fields map[string][]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.path)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.data))
		require.NoError(t, err)
	}
	for name, values := range fields {
		for _, v := range values {
			require.NoError(t, mw.WriteField(name, v))
		}
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadHandler_StartAndStatus(t *testing.T) {
	env := newTestEnv(t)
	uploader := &recordingUploader{}
	sessions := tracker.NewMemoryTracker()
	h := NewUploadHandler(context.Background(), env.products, uploader, sessions, upload.Options{}, 8)

	body, contentType := multipartBody(t, []formFile{
		{path: "Tapis/principal.png", data: "p"},
		{path: "Tapis/Floral/rouge.png", data: "r"},
		{path: "Tapis/Floral/bleu.png", data: "b"},
	}, map[string][]string{
		"description": {"Un beau tapis"},
		"categories":  {"prestige"},
		"price":       {"49.99"},
	})
	r := httptest.NewRequest(http.MethodPost, "/api/admin/uploads", body)
	r.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Start(rec, asUser(r, "usr-admin", models.RoleAdmin))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var started map[string]string
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &started))
	sessionID := started["session_id"]
	require.NotEmpty(t, sessionID)

	h.Wait()

	assert.Equal(t, []string{
		"products/Tapis/imagePrincipale",
		"products/Tapis/Floral/rouge",
		"products/Tapis/Floral/bleu",
	}, uploader.calls)

	status := httptest.NewRequest(http.MethodGet, "/api/admin/uploads/"+sessionID, nil)
	status.SetPathValue("id", sessionID)
	rec = httptest.NewRecorder()
	h.Status(rec, status)
	require.Equal(t, http.StatusOK, rec.Code)

	var session tracker.Session
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &session))
	assert.Equal(t, upload.PhaseDone, session.State.Phase)
	assert.Equal(t, 100, session.State.Progress)
	assert.Equal(t, 3, session.State.Uploaded)
	require.NotNil(t, session.State.Product)
	assert.Equal(t, "tapis", session.State.Product.Slug)
	assert.Equal(t, "usr-admin", session.State.Product.CreatedBy)

	exists, err := env.products.Exists(context.Background(), "Tapis")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUploadHandler_RejectsInvalidInputWithoutUploading(t *testing.T) {
	env := newTestEnv(t)
	uploader := &recordingUploader{}
	h := NewUploadHandler(context.Background(), env.products, uploader, tracker.NewMemoryTracker(), upload.Options{StrictRoots: true}, 8)

	cases := map[string]struct {
		files  []formFile
		fields map[string][]string
	}{
		"no files": {
			fields: map[string][]string{"description": {"d"}, "categories": {"PRESTIGE"}, "price": {"1"}},
		},
		"missing category": {
			files:  []formFile{{path: "Tapis/p.png", data: "p"}},
			fields: map[string][]string{"description": {"d"}, "price": {"1"}},
		},
		"negative price": {
			files:  []formFile{{path: "Tapis/p.png", data: "p"}},
			fields: map[string][]string{"description": {"d"}, "categories": {"PRESTIGE"}, "price": {"-1"}},
		},
		"mixed roots": {
			files:  []formFile{{path: "Tapis/p.png", data: "p"}, {path: "Autre/p.png", data: "q"}},
			fields: map[string][]string{"description": {"d"}, "categories": {"PRESTIGE"}, "price": {"1"}},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			body, contentType := multipartBody(t, tc.files, tc.fields)
			r := httptest.NewRequest(http.MethodPost, "/api/admin/uploads", body)
			r.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			h.Start(rec, asUser(r, "usr-admin", models.RoleAdmin))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	h.Wait()
	assert.Empty(t, uploader.calls)
}

func TestUploadHandler_SkipsHiddenFiles(t *testing.T) {
	env := newTestEnv(t)
	uploader := &recordingUploader{}
	h := NewUploadHandler(context.Background(), env.products, uploader, tracker.NewMemoryTracker(), upload.Options{}, 8)

	// .DS_Store comes last and would win the principal slot if kept
	body, contentType := multipartBody(t, []formFile{
		{path: "Tapis/principal.png", data: "p"},
		{path: "Tapis/Floral/rouge.png", data: "r"},
		{path: "Tapis/Floral/.png", data: "x"},
		{path: "Tapis/.DS_Store", data: "junk"},
	}, map[string][]string{
		"description": {"d"}, "categories": {"PRESTIGE"}, "price": {"10"},
	})
	r := httptest.NewRequest(http.MethodPost, "/api/admin/uploads", body)
	r.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Start(rec, asUser(r, "usr-admin", models.RoleAdmin))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	h.Wait()

	assert.Equal(t, []string{"products/Tapis/imagePrincipale", "products/Tapis/Floral/rouge"}, uploader.calls)

	product, err := env.products.GetBySlug(context.Background(), "tapis")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/products/Tapis/imagePrincipale", product.Image)
	require.Len(t, product.Motifs, 1)
	assert.Len(t, product.Motifs[0].ColorLayers, 1)
}

func TestUploadHandler_RefusesNewUploadsWhileDraining(t *testing.T) {
	env := newTestEnv(t)
	uploader := &recordingUploader{}
	h := NewUploadHandler(context.Background(), env.products, uploader, tracker.NewMemoryTracker(), upload.Options{}, 8)
	h.Wait()

	body, contentType := multipartBody(t, []formFile{{path: "Tapis/p.png", data: "p"}}, map[string][]string{
		"description": {"d"}, "categories": {"PRESTIGE"}, "price": {"10"},
	})
	r := httptest.NewRequest(http.MethodPost, "/api/admin/uploads", body)
	r.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Start(rec, asUser(r, "usr-admin", models.RoleAdmin))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Empty(t, uploader.calls)
	exists, err := env.products.Exists(context.Background(), "Tapis")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUploadHandler_DuplicateNameFailsSession(t *testing.T) {
	env := newTestEnv(t)
	env.createProduct(t, "Tapis", models.CategoryPrestige)
	uploader := &recordingUploader{}
	sessions := tracker.NewMemoryTracker()
	h := NewUploadHandler(context.Background(), env.products, uploader, sessions, upload.Options{}, 8)

	body, contentType := multipartBody(t, []formFile{{path: "Tapis/p.png", data: "p"}}, map[string][]string{
		"description": {"d"}, "categories": {"PRESTIGE"}, "price": {"10"},
	})
	r := httptest.NewRequest(http.MethodPost, "/api/admin/uploads", body)
	r.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Start(rec, asUser(r, "usr-admin", models.RoleAdmin))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var started map[string]string
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &started))
	h.Wait()

	session, err := sessions.Load(context.Background(), started["session_id"])
	require.NoError(t, err)
	assert.Equal(t, upload.PhaseFailed, session.State.Phase)
	assert.Equal(t, "Un produit avec ce nom existe déjà", session.State.Error)
	assert.Empty(t, uploader.calls)

	status := httptest.NewRequest(http.MethodGet, "/api/admin/uploads/unknown", nil)
	status.SetPathValue("id", "unknown")
	rec = httptest.NewRecorder()
	h.Status(rec, status)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
