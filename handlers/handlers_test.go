package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floordesign/database"
	"floordesign/middleware"
	"floordesign/models"
	"floordesign/services"
	"floordesign/utils"
)

type testEnv struct {
	products      services.ProductService
	users         services.UserService
	conversations services.ConversationService
	palette       services.PaletteService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	database.DB = db
	t.Cleanup(func() {
		database.DB = nil
		db.Close()
	})

	utils.ConfigureJWT("handlers-test-secret", time.Hour)

	exec := services.NewSQLExecutor(db, database.DriverSQLite)
	return &testEnv{
		products:      services.NewProductService(exec),
		users:         services.NewUserService(exec),
		conversations: services.NewConversationService(exec),
		palette:       services.NewPaletteService(exec),
	}
}

func (e *testEnv) register(t *testing.T, email, name string) models.User {
	t.Helper()
	user, err := e.users.Register(context.Background(), models.RegisterRequest{Email: email, Password: "secret1", Name: name})
	require.NoError(t, err)
	return user
}

func (e *testEnv) createProduct(t *testing.T, name string, categories ...models.Category) models.Product {
	t.Helper()
	product, err := e.products.Create(context.Background(), models.CreateProductRequest{
		Name:        name,
		Image:       "https://cdn.test/products/" + name + "/imagePrincipale",
		Description: "Un tapis",
		Category:    categories,
		Price:       decimal.RequireFromString("49.99"),
		Motifs: []models.Motif{{
			Name:        "Floral",
			ColorLayers: []models.ColorLayer{{ColorLabel: "rouge", ImageURL: "https://cdn.test/rouge"}},
		}},
	}, "usr-admin")
	require.NoError(t, err)
	return product
}

func asUser(r *http.Request, userID, role string) *http.Request {
	return r.WithContext(middleware.WithUser(r.Context(), userID, role))
}

func jsonRequest(method, target string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")
	return r
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Meta    models.Pagination
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

type fakeDeleter struct {
	mu      sync.Mutex
	deleted []string
	err     error
}

func (f *fakeDeleter) Delete(_ context.Context, publicID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, publicID)
	return f.err
}

func TestAuthHandler_RegisterLoginLogout(t *testing.T) {
	env := newTestEnv(t)
	h := NewAuthHandler(env.users, false)

	rec := httptest.NewRecorder()
	h.Register(rec, jsonRequest(http.MethodPost, "/api/auth/register", models.RegisterRequest{
		Email: "Client@Example.com", Password: "secret1", Name: "Claire",
	}))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	h.Register(rec, jsonRequest(http.MethodPost, "/api/auth/register", models.RegisterRequest{
		Email: "client@example.com", Password: "secret1", Name: "Autre",
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Register(rec, jsonRequest(http.MethodPost, "/api/auth/register", models.RegisterRequest{
		Email: "x@example.com", Password: "1234", Name: "Court",
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Login(rec, jsonRequest(http.MethodPost, "/api/auth/login", models.LoginRequest{Email: "nobody@example.com", Password: "secret1"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.Login(rec, jsonRequest(http.MethodPost, "/api/auth/login", models.LoginRequest{Email: "client@example.com", Password: "wrong"}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.Login(rec, jsonRequest(http.MethodPost, "/api/auth/login", models.LoginRequest{Email: "client@example.com", Password: "secret1"}))
	require.Equal(t, http.StatusOK, rec.Code)

	var login models.LoginResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &login))
	claims, err := utils.ValidateToken(login.Token)
	require.NoError(t, err)
	assert.Equal(t, login.User.ID, claims.UserID)
	assert.Equal(t, models.RoleUser, claims.Role)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.AuthCookieName, cookies[0].Name)
	assert.Equal(t, login.Token, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	rec = httptest.NewRecorder()
	h.Logout(rec, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestUserHandler_UpdateAndLikes(t *testing.T) {
	env := newTestEnv(t)
	h := NewUserHandler(env.users)
	alice := env.register(t, "alice@example.com", "Alice")
	env.register(t, "bob@example.com", "Bob")
	product := env.createProduct(t, "Tapis", models.CategoryPrestige)

	rec := httptest.NewRecorder()
	h.Update(rec, asUser(jsonRequest(http.MethodPut, "/api/user/update", models.UpdateUserRequest{Email: "bob@example.com"}), alice.ID, models.RoleUser))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	h.Update(rec, asUser(jsonRequest(http.MethodPut, "/api/user/update", models.UpdateUserRequest{Phone: "0102030405"}), alice.ID, models.RoleUser))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Likes(rec, httptest.NewRequest(http.MethodGet, "/api/user/likes", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":false,"likedProducts":[]}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ToggleLike(rec, asUser(jsonRequest(http.MethodPut, "/api/user/like", models.LikeRequest{ItemID: product.ID}), alice.ID, models.RoleUser))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "added", decodeEnvelope(t, rec).Message)

	rec = httptest.NewRecorder()
	h.Likes(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/user/likes", nil), alice.ID, models.RoleUser))
	var likes models.LikesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &likes))
	assert.True(t, likes.Success)
	assert.Equal(t, []string{product.ID}, likes.LikedProducts)

	rec = httptest.NewRecorder()
	h.ToggleLike(rec, asUser(jsonRequest(http.MethodPut, "/api/user/like", models.LikeRequest{ItemID: product.ID}), alice.ID, models.RoleUser))
	assert.Equal(t, "removed", decodeEnvelope(t, rec).Message)

	rec = httptest.NewRecorder()
	h.ToggleLike(rec, asUser(jsonRequest(http.MethodPut, "/api/user/like", models.LikeRequest{ItemID: "prod-missing"}), alice.ID, models.RoleUser))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProductHandler_Catalog(t *testing.T) {
	env := newTestEnv(t)
	h := NewProductHandler(env.products, nil)
	first := env.createProduct(t, "Tapis Un", models.CategoryPrestige)
	env.createProduct(t, "Tapis Deux", models.CategoryPrestige, models.CategoryGraphiques)
	env.createProduct(t, "Tapis Trois", models.CategoryGraphiques)

	r := httptest.NewRequest(http.MethodGet, "/api/products/category/prestige?page=1&limit=1", nil)
	r.SetPathValue("category", "prestige")
	rec := httptest.NewRecorder()
	h.ListByCategory(rec, r)
	require.Equal(t, http.StatusOK, rec.Code)
	env1 := decodeEnvelope(t, rec)
	assert.Equal(t, models.Pagination{Page: 1, PageSize: 1, TotalPages: 2, TotalCount: 2}, env1.Meta)

	r = httptest.NewRequest(http.MethodGet, "/api/products/category/moderne", nil)
	r.SetPathValue("category", "moderne")
	rec = httptest.NewRecorder()
	h.ListByCategory(rec, r)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	r = httptest.NewRequest(http.MethodGet, "/api/products/tapis-un", nil)
	r.SetPathValue("slug", "tapis-un")
	rec = httptest.NewRecorder()
	h.GetBySlug(rec, r)
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.Product
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &got))
	assert.Equal(t, first.ID, got.ID)

	r = httptest.NewRequest(http.MethodGet, "/api/products/absent", nil)
	r.SetPathValue("slug", "absent")
	rec = httptest.NewRecorder()
	h.GetBySlug(rec, r)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/products?ids="+first.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []models.Product
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, first.ID, listed[0].ID)

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.List(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/products", nil), "usr-admin", models.RoleAdmin))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &listed))
	assert.Len(t, listed, 3)

	rec = httptest.NewRecorder()
	h.Exists(rec, jsonRequest(http.MethodPost, "/api/products/exists", models.ProductExistsRequest{Name: "Tapis Un"}))
	assert.JSONEq(t, `{"exists":true}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.Exists(rec, jsonRequest(http.MethodPost, "/api/products/exists", models.ProductExistsRequest{Name: "Inconnu"}))
	assert.JSONEq(t, `{"exists":false}`, rec.Body.String())
}

func TestProductHandler_CreateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	deleter := &fakeDeleter{}
	h := NewProductHandler(env.products, deleter)

	record := models.CreateProductRequest{
		Name:        "Tapis",
		Image:       "https://cdn.test/products/Tapis/imagePrincipale",
		Description: "Un tapis",
		Category:    []models.Category{models.CategoryPrestige},
		Price:       decimal.RequireFromString("49.99"),
		Motifs: []models.Motif{{
			Name: "Floral",
			ColorLayers: []models.ColorLayer{
				{ColorLabel: "rouge", ImageURL: "https://cdn.test/products/Tapis/Floral/rouge"},
				{ColorLabel: "bleu", ImageURL: "https://cdn.test/products/Tapis/Floral/bleu"},
			},
		}},
	}

	rec := httptest.NewRecorder()
	h.Create(rec, asUser(jsonRequest(http.MethodPost, "/api/admin/products", record), "usr-admin", models.RoleAdmin))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.Product
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &created))
	assert.Equal(t, "tapis", created.Slug)

	rec = httptest.NewRecorder()
	h.Create(rec, asUser(jsonRequest(http.MethodPost, "/api/admin/products", record), "usr-admin", models.RoleAdmin))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Un produit avec ce nom existe déjà", decodeEnvelope(t, rec).Message)

	invalid := record
	invalid.Name = "Autre"
	invalid.Category = nil
	rec = httptest.NewRecorder()
	h.Create(rec, asUser(jsonRequest(http.MethodPost, "/api/admin/products", invalid), "usr-admin", models.RoleAdmin))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	r := asUser(httptest.NewRequest(http.MethodDelete, "/api/admin/products/"+created.ID+"?media=true", nil), "usr-admin", models.RoleAdmin)
	r.SetPathValue("id", created.ID)
	rec = httptest.NewRecorder()
	h.Delete(rec, r)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{
		"products/Tapis/imagePrincipale",
		"products/Tapis/Floral/rouge",
		"products/Tapis/Floral/bleu",
	}, deleter.deleted)

	r = asUser(httptest.NewRequest(http.MethodDelete, "/api/admin/products/"+created.ID, nil), "usr-admin", models.RoleAdmin)
	r.SetPathValue("id", created.ID)
	rec = httptest.NewRecorder()
	h.Delete(rec, r)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestContactHandler(t *testing.T) {
	env := newTestEnv(t)
	h := NewContactHandler(env.conversations)
	alice := env.register(t, "alice@example.com", "Alice")
	bob := env.register(t, "bob@example.com", "Bob")

	get := func(caller, role, owner string) *httptest.ResponseRecorder {
		r := asUser(httptest.NewRequest(http.MethodGet, "/api/contact/"+owner, nil), caller, role)
		r.SetPathValue("userId", owner)
		rec := httptest.NewRecorder()
		h.Get(rec, r)
		return rec
	}
	post := func(caller, role, owner string, msg models.PostMessageRequest) *httptest.ResponseRecorder {
		r := asUser(jsonRequest(http.MethodPost, "/api/contact/"+owner, msg), caller, role)
		r.SetPathValue("userId", owner)
		rec := httptest.NewRecorder()
		h.Post(rec, r)
		return rec
	}

	rec := get(alice.ID, models.RoleUser, alice.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	var conv models.Conversation
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &conv))
	assert.Empty(t, conv.Messages)

	assert.Equal(t, http.StatusForbidden, get(bob.ID, models.RoleUser, alice.ID).Code)
	assert.Equal(t, http.StatusBadRequest, post(alice.ID, models.RoleUser, alice.ID, models.PostMessageRequest{Sender: "user"}).Code)
	assert.Equal(t, http.StatusForbidden, post(alice.ID, models.RoleUser, alice.ID, models.PostMessageRequest{Sender: "admin", Content: "x"}).Code)

	require.Equal(t, http.StatusCreated, post(alice.ID, models.RoleUser, alice.ID, models.PostMessageRequest{Sender: "user", Content: "Bonjour"}).Code)
	rec = post("usr-admin", models.RoleAdmin, alice.ID, models.PostMessageRequest{Sender: "admin", Content: "Bonjour Alice"})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &conv))
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "user", conv.Messages[0].Sender)
	assert.Equal(t, "admin", conv.Messages[1].Sender)

	rec = httptest.NewRecorder()
	h.ListContacts(rec, httptest.NewRequest(http.MethodGet, "/api/admin/contacts", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var contacts []models.Contact
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &contacts))
	require.Len(t, contacts, 2)
	assert.Equal(t, alice.ID, contacts[0].ID)
	assert.Equal(t, bob.ID, contacts[1].ID)
}

func TestPaletteHandler(t *testing.T) {
	env := newTestEnv(t)
	h := NewPaletteHandler(env.palette)

	body := "Rouge: \"#ff0000\"\nBleu: \"#00f\"\nFaux: \"rouge\"\n"
	rec := httptest.NewRecorder()
	h.Import(rec, httptest.NewRequest(http.MethodPost, "/api/palette-couleurs/import", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result models.PaletteImportResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &result))
	assert.Equal(t, models.PaletteImportResult{Inserted: 2, Skipped: 1}, result)

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/palette-couleurs", nil))
	var colors []models.PaletteColor
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &colors))
	require.Len(t, colors, 2)
	assert.Equal(t, "Bleu", colors[0].Name)
	assert.Equal(t, "#00F", colors[0].Hex)

	update := func(id string, req models.UpdatePaletteColorRequest) *httptest.ResponseRecorder {
		r := jsonRequest(http.MethodPut, "/api/palette-couleurs/"+id, req)
		r.SetPathValue("id", id)
		rec := httptest.NewRecorder()
		h.Update(rec, r)
		return rec
	}
	assert.Equal(t, http.StatusBadRequest, update(colors[0].ID, models.UpdatePaletteColorRequest{Name: "rouge", Hex: "#123456"}).Code)
	assert.Equal(t, http.StatusNotFound, update("col-missing", models.UpdatePaletteColorRequest{Name: "Vert", Hex: "#00ff00"}).Code)
	assert.Equal(t, http.StatusOK, update(colors[0].ID, models.UpdatePaletteColorRequest{Name: "Bleu nuit", Hex: "#000080"}).Code)

	r := httptest.NewRequest(http.MethodDelete, "/api/palette-couleurs/col-missing", nil)
	r.SetPathValue("id", "col-missing")
	rec = httptest.NewRecorder()
	h.Delete(rec, r)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMediaHandler_Delete(t *testing.T) {
	deleter := &fakeDeleter{}
	h := NewMediaHandler(deleter)

	rec := httptest.NewRecorder()
	h.Delete(rec, jsonRequest(http.MethodDelete, "/api/admin/media", DeleteMediaRequest{}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, deleter.deleted)

	rec = httptest.NewRecorder()
	h.Delete(rec, jsonRequest(http.MethodDelete, "/api/admin/media", DeleteMediaRequest{PublicID: "products/Tapis/imagePrincipale"}))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"products/Tapis/imagePrincipale"}, deleter.deleted)
}

func TestDashboardHandler(t *testing.T) {
	env := newTestEnv(t)
	h := NewDashboardHandler(env.products, env.users, env.conversations)
	alice := env.register(t, "alice@example.com", "Alice")
	env.createProduct(t, "Tapis", models.CategoryPrestige, models.CategoryBaguettes)
	_, err := env.conversations.Get(context.Background(), alice.ID)
	require.NoError(t, err)
	utils.LogAdminActivity("usr-admin", "Administrateur", models.AdminActionCreateProduct, "Product created: Tapis")

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/admin/dashboard/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		TotalProducts      int `json:"total_products"`
		TotalUsers         int `json:"total_users"`
		TotalConversations int `json:"total_conversations"`
		ByCategory         []struct {
			Category models.Category `json:"category"`
			Count    int             `json:"count"`
		} `json:"products_by_category"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &stats))
	assert.Equal(t, 1, stats.TotalProducts)
	assert.Equal(t, 1, stats.TotalUsers)
	assert.Equal(t, 1, stats.TotalConversations)
	require.Len(t, stats.ByCategory, len(models.AllCategories))
	assert.Equal(t, models.CategoryIntemporel, stats.ByCategory[0].Category)
	assert.Equal(t, 1, stats.ByCategory[2].Count)

	rec = httptest.NewRecorder()
	h.RecentActivities(rec, httptest.NewRequest(http.MethodGet, "/api/admin/dashboard/activities?action=create_product", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var activities []models.AdminActivityLog
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &activities))
	require.Len(t, activities, 1)
	assert.Equal(t, "Administrateur", activities[0].Username)
}
