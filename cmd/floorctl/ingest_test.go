package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floordesign/config"
	"floordesign/database"
	"floordesign/services"
	"floordesign/upload"
)

func writeProductFolder(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "Tapis")
	for rel, data := range map[string]string{
		"principal.png":      "p",
		"Floral/rouge.png":   "r",
		"Floral/bleu.png":    "b",
		".DS_Store":          "x",
		".git/config":        "x",
		"Geometrique/or.jpg": "o",
	} {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(data), 0644))
	}
	return root
}

func TestCollectFiles(t *testing.T) {
	root := writeProductFolder(t)

	files, err := collectFiles(root + string(filepath.Separator))
	require.NoError(t, err)

	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Path())
	}
	assert.ElementsMatch(t, []string{
		"Tapis/principal.png",
		"Tapis/Floral/rouge.png",
		"Tapis/Floral/bleu.png",
		"Tapis/Geometrique/or.jpg",
	}, paths)

	structure := upload.Classify(files)
	assert.Equal(t, "Tapis", structure.ProductName)
	require.NotNil(t, structure.PrincipalImage)
	assert.Equal(t, 4, structure.TotalFiles())

	_, err = collectFiles(filepath.Join(root, "principal.png"))
	assert.Error(t, err)
	_, err = collectFiles(t.TempDir())
	assert.Error(t, err)
}

func fakeCloudinary(t *testing.T) (*httptest.Server, *[]string) {
	var (
		mu    sync.Mutex
		calls []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Error(err)
			return
		}
		id := r.FormValue("folder") + "/" + r.FormValue("public_id")
		mu.Lock()
		calls = append(calls, id)
		mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"secure_url": "https://cdn.test/" + id})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestRunIngest_Plain(t *testing.T) {
	srv, calls := fakeCloudinary(t)
	dbPath := filepath.Join(t.TempDir(), "floor.db")

	cfg := &config.Config{
		Database: config.DatabaseConfig{Driver: "sqlite", DSN: dbPath},
		Media: config.MediaConfig{
			Provider:          "cloudinary",
			RequestsPerSecond: 100,
			Cloudinary: config.CloudinaryConfig{
				BaseURL:      srv.URL,
				CloudName:    "demo",
				UploadPreset: "unsigned",
				Timeout:      5,
			},
		},
	}

	var out bytes.Buffer
	err := runIngest(context.Background(), cfg, writeProductFolder(t), ingestOptions{
		description: "Un beau tapis",
		categories:  []string{"prestige"},
		price:       "49.99",
		plain:       true,
	}, &out)
	require.NoError(t, err, out.String())

	assert.Len(t, *calls, 4)
	assert.Equal(t, "products/Tapis/imagePrincipale", (*calls)[0])
	assert.Contains(t, out.String(), "[done] Tapis 4/4 (100%)")

	db, err := database.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()
	product, err := services.NewProductService(services.NewSQLExecutor(db, "sqlite")).GetBySlug(context.Background(), "tapis")
	require.NoError(t, err)
	assert.Equal(t, cliCreator, product.CreatedBy)
	assert.Equal(t, "https://cdn.test/products/Tapis/imagePrincipale", product.Image)

	// same name again stops before any upload
	err = runIngest(context.Background(), cfg, writeProductFolder(t), ingestOptions{
		description: "Encore", categories: []string{"PRESTIGE"}, price: "10", plain: true,
	}, &out)
	require.Error(t, err)
	assert.Equal(t, "Un produit avec ce nom existe déjà", err.Error())
	assert.Len(t, *calls, 4)
}

func TestRunIngest_InvalidInput(t *testing.T) {
	// neither the database nor the media store is usable: input errors must win
	cfg := &config.Config{Database: config.DatabaseConfig{Driver: "oracle", DSN: "nowhere"}}

	cases := map[string]struct {
		opts ingestOptions
		want string
	}{
		"no category":      {ingestOptions{description: "d", price: "1"}, "Au moins une catégorie est requise"},
		"no description":   {ingestOptions{categories: []string{"prestige"}, price: "1"}, "La description est requise"},
		"negative price":   {ingestOptions{description: "d", categories: []string{"prestige"}, price: "-2"}, "Le prix ne peut pas être négatif"},
		"unknown category": {ingestOptions{description: "d", categories: []string{"moderne"}, price: "1"}, "Catégorie inconnue : moderne"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			tc.opts.plain = true
			err := runIngest(context.Background(), cfg, writeProductFolder(t), tc.opts, &bytes.Buffer{})
			require.Error(t, err)
			assert.Equal(t, tc.want, err.Error())
		})
	}

	// valid input then reaches the database
	err := runIngest(context.Background(), cfg, writeProductFolder(t), ingestOptions{
		description: "d", categories: []string{"prestige"}, price: "1", plain: true,
	}, &bytes.Buffer{})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "catégorie")
}

func TestProgressModel(t *testing.T) {
	cancelled := false
	m := newProgressModel("Tapis", func() { cancelled = true })

	next, _ := m.Update(stateMsg(upload.State{Phase: upload.PhaseUploading, ProductName: "Tapis", Uploaded: 1, Total: 3, Progress: 33}))
	m = next.(progressModel)
	assert.Contains(t, m.View(), "uploading · 1/3 images")

	next, cmd := m.Update(doneMsg{err: fmt.Errorf("boom")})
	m = next.(progressModel)
	assert.True(t, m.finished)
	require.NotNil(t, cmd)
	assert.Contains(t, m.View(), "Erreur serveur")

	m = newProgressModel("Tapis", func() { cancelled = true })
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, cancelled)
	assert.False(t, next.(progressModel).finished)
}

func TestFormatState(t *testing.T) {
	assert.Equal(t, "[failed] Tapis 1/3 (33%): Erreur serveur",
		formatState(upload.State{Phase: upload.PhaseFailed, ProductName: "Tapis", Uploaded: 1, Total: 3, Progress: 33, Error: "Erreur serveur"}))
}
