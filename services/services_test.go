package services

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floordesign/database"
	"floordesign/models"
	"floordesign/upload"
)

func newTestExecutor(t *testing.T) SQLExecutor {
	t.Helper()
	db, err := database.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLExecutor(db, "sqlite")
}

func sampleProduct(name string, categories ...models.Category) models.CreateProductRequest {
	return models.CreateProductRequest{
		Name:        name,
		Image:       "https://media.example/products/" + name + "/imagePrincipale",
		Description: "Un beau " + name,
		Category:    categories,
		Price:       decimal.RequireFromString("49.99"),
		Motifs: []models.Motif{{
			Name: "Floral",
			ColorLayers: []models.ColorLayer{
				{ColorLabel: "rouge", ImageURL: "https://media.example/rouge"},
				{ColorLabel: "bleu", ImageURL: "https://media.example/bleu"},
			},
		}},
	}
}

func TestProductService_CreateAndRead(t *testing.T) {
	ctx := context.Background()
	products := NewProductService(newTestExecutor(t))

	exists, err := products.Exists(ctx, "Tapis Élégance")
	require.NoError(t, err)
	assert.False(t, exists)

	created, err := products.Create(ctx, sampleProduct("Tapis Élégance", models.CategoryPrestige, models.CategoryPrestige), "usr-admin")
	require.NoError(t, err)
	assert.Equal(t, "tapis-elegance", created.Slug)
	assert.Equal(t, []models.Category{models.CategoryPrestige}, created.Category)

	exists, err = products.Exists(ctx, "Tapis Élégance")
	require.NoError(t, err)
	assert.True(t, exists)

	bySlug, err := products.GetBySlug(ctx, "tapis-elegance")
	require.NoError(t, err)
	assert.Equal(t, created.ID, bySlug.ID)
	assert.True(t, decimal.RequireFromString("49.99").Equal(bySlug.Price))
	assert.Equal(t, created.Motifs, bySlug.Motifs)
	assert.Equal(t, "usr-admin", bySlug.CreatedBy)

	_, err = products.Get(ctx, "prod-missing")
	assert.True(t, errors.Is(err, ErrProductNotFound))
}

func TestProductService_CreateRejects(t *testing.T) {
	ctx := context.Background()
	products := NewProductService(newTestExecutor(t))

	_, err := products.Create(ctx, sampleProduct("Tapis", models.CategoryPrestige), "")
	require.NoError(t, err)

	_, err = products.Create(ctx, sampleProduct("Tapis", models.CategoryGraphiques), "")
	assert.True(t, errors.Is(err, ErrProductNameConflict))

	_, err = products.Create(ctx, sampleProduct("Autre", models.Category("MODERNE")), "")
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = products.Create(ctx, sampleProduct("Vide"), "")
	assert.True(t, errors.Is(err, ErrValidation))

	negative := sampleProduct("Négatif", models.CategoryPrestige)
	negative.Price = decimal.NewFromInt(-1)
	_, err = products.Create(ctx, negative, "")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestProductService_ListByCategoryPaginates(t *testing.T) {
	ctx := context.Background()
	products := NewProductService(newTestExecutor(t))

	for _, name := range []string{"A", "B", "C"} {
		_, err := products.Create(ctx, sampleProduct(name, models.CategoryBaguettes), "")
		require.NoError(t, err)
	}
	_, err := products.Create(ctx, sampleProduct("D", models.CategoryIntemporel), "")
	require.NoError(t, err)

	page1, total, err := products.ListByCategory(ctx, models.CategoryBaguettes, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, page1, 2)

	page2, _, err := products.ListByCategory(ctx, models.CategoryBaguettes, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page2, 1)

	counts, err := products.CountByCategory(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, counts[models.CategoryBaguettes])
	assert.Equal(t, 1, counts[models.CategoryIntemporel])
	assert.Equal(t, 0, counts[models.CategoryPrestige])
}

func TestProductService_ListByIDsAndDelete(t *testing.T) {
	ctx := context.Background()
	products := NewProductService(newTestExecutor(t))

	a, err := products.Create(ctx, sampleProduct("A", models.CategoryPrestige), "")
	require.NoError(t, err)
	_, err = products.Create(ctx, sampleProduct("B", models.CategoryPrestige), "")
	require.NoError(t, err)

	all, err := products.List(ctx, ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	some, err := products.List(ctx, ProductFilter{IDs: []string{a.ID}})
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "A", some[0].Name)

	none, err := products.List(ctx, ProductFilter{IDs: []string{}})
	require.NoError(t, err)
	assert.Empty(t, none)

	deleted, err := products.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, deleted.ID)

	_, err = products.Delete(ctx, a.ID)
	assert.True(t, errors.Is(err, ErrProductNotFound))

	_, total, err := products.ListByCategory(ctx, models.CategoryPrestige, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestProductRegistrar_MapsRejections(t *testing.T) {
	ctx := context.Background()
	products := NewProductService(newTestExecutor(t))
	registrar := NewProductRegistrar(products, "usr-admin")

	_, err := registrar.Create(ctx, sampleProduct("Tapis", models.CategoryPrestige))
	require.NoError(t, err)

	_, err = registrar.Create(ctx, sampleProduct("Tapis", models.CategoryPrestige))
	var rejection *upload.RegistrarRejectionError
	require.True(t, errors.As(err, &rejection))
	assert.Equal(t, "Un produit avec ce nom existe déjà", rejection.Message)

	_, err = registrar.Create(ctx, sampleProduct("Autre", models.Category("MODERNE")))
	require.True(t, errors.As(err, &rejection))
	assert.Contains(t, rejection.Message, "MODERNE")
}

func TestOrchestratorWithRegistrar_Tapis(t *testing.T) {
	ctx := context.Background()
	products := NewProductService(newTestExecutor(t))
	uploader := &recordingUploader{}
	o := upload.NewOrchestrator(NewProductRegistrar(products, "usr-admin"), uploader, upload.Options{})

	files := []upload.FileEntry{
		upload.BytesEntry("Tapis/main.jpg", []byte("main")),
		upload.BytesEntry("Tapis/Floral/rouge.png", []byte("rouge")),
		upload.BytesEntry("Tapis/Floral/bleu.png", []byte("bleu")),
	}
	structure, err := o.Classify(files)
	require.NoError(t, err)

	req := upload.Request{Structure: &structure, Description: "d", Categories: []string{"PRESTIGE"}, Price: "49.99"}
	product, err := o.Submit(ctx, req, nil)
	require.NoError(t, err)
	assert.Equal(t, "tapis", product.Slug)
	assert.Equal(t, []string{"products/Tapis/imagePrincipale", "products/Tapis/Floral/rouge", "products/Tapis/Floral/bleu"}, uploader.ids)

	// the same folder a second time is stopped before any upload
	uploader.ids = nil
	_, err = o.Submit(ctx, req, nil)
	assert.True(t, errors.Is(err, upload.ErrDuplicateName))
	assert.Empty(t, uploader.ids)
}

func TestOrchestratorWithRegistrar_EmptyColorLabelRejectedBeforeUpload(t *testing.T) {
	products := NewProductService(newTestExecutor(t))
	uploader := &recordingUploader{}
	o := upload.NewOrchestrator(NewProductRegistrar(products, "usr-admin"), uploader, upload.Options{})

	structure := upload.Classify([]upload.FileEntry{
		upload.BytesEntry("Tapis/main.jpg", []byte("main")),
		upload.BytesEntry("Tapis/Floral/.png", []byte("x")),
	})
	req := upload.Request{Structure: &structure, Description: "d", Categories: []string{"PRESTIGE"}, Price: "49.99"}

	var validation *upload.ValidationError
	require.True(t, errors.As(o.Validate(req), &validation))

	_, err := o.Submit(context.Background(), req, nil)
	require.Error(t, err)
	assert.Equal(t, "Couleur incomplète dans le motif Floral", upload.UserMessage(err))
	assert.Empty(t, uploader.ids)

	exists, err := products.Exists(context.Background(), "Tapis")
	require.NoError(t, err)
	assert.False(t, exists)
}

type recordingUploader struct {
	ids []string
}

func (r *recordingUploader) Upload(_ context.Context, _ []byte, publicID, folder string) (string, error) {
	r.ids = append(r.ids, folder+"/"+publicID)
	return "https://media.example/" + folder + "/" + publicID, nil
}
