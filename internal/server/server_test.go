package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/pauljones0/deals-storefront/internal/ai"
	"github.com/pauljones0/deals-storefront/internal/identity"
	"github.com/pauljones0/deals-storefront/internal/localstore"
	"github.com/pauljones0/deals-storefront/internal/models"
	"github.com/pauljones0/deals-storefront/internal/storefront"
)

// --- Fakes ---

type fakeStore struct {
	mu       sync.Mutex
	products []models.Product
	visits   int
	leads    []models.Lead
	deleted  []string
	onData   func([]models.Product)
}

func (f *fakeStore) Subscribe(_ context.Context, onData func([]models.Product), _ func(error)) func() {
	f.mu.Lock()
	f.onData = onData
	f.mu.Unlock()
	onData(f.products)
	return func() {}
}

// emit delivers a new snapshot to the subscriber.
func (f *fakeStore) emit(products ...models.Product) {
	f.mu.Lock()
	onData := f.onData
	f.products = products
	f.mu.Unlock()
	onData(products)
}
func (f *fakeStore) GetProduct(context.Context, string) (*models.Product, error) { return nil, nil }
func (f *fakeStore) AddProduct(_ context.Context, p models.Product) (string, error) {
	return "new-1", nil
}
func (f *fakeStore) UpdateProduct(context.Context, string, models.ProductPatch) error { return nil }
func (f *fakeStore) DeleteProduct(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}
func (f *fakeStore) IncrementClick(context.Context, string) error           { return nil }
func (f *fakeStore) SetFeatured(context.Context, string, bool) error        { return nil }
func (f *fakeStore) ToggleLike(context.Context, string, string, bool) error { return nil }
func (f *fakeStore) ListComments(context.Context, string) ([]models.Comment, error) {
	return nil, nil
}
func (f *fakeStore) AddComment(context.Context, models.Comment) (string, error) { return "c-1", nil }
func (f *fakeStore) SaveLead(_ context.Context, l models.Lead) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leads = append(f.leads, l)
	return "l-1", nil
}
func (f *fakeStore) ListLeads(context.Context, int) ([]models.Lead, error) { return f.leads, nil }
func (f *fakeStore) CountLeads(context.Context) (int, error)               { return len(f.leads), nil }
func (f *fakeStore) TrackVisit(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visits++
	return nil
}
func (f *fakeStore) CountVisits(context.Context) (int, error)       { return f.visits, nil }
func (f *fakeStore) TrackNotificationSent(context.Context) error    { return nil }
func (f *fakeStore) NotificationCount(context.Context) (int, error) { return 0, nil }
func (f *fakeStore) ListPosts(context.Context) ([]models.BlogPost, error) {
	return nil, nil
}
func (f *fakeStore) IncrementPostView(context.Context, string) error { return nil }

type stubAuth map[string]identity.Claims

func (a stubAuth) Authenticate(_ context.Context, token string) (identity.Claims, error) {
	c, ok := a[token]
	if !ok {
		return identity.Claims{}, fmt.Errorf("bad token: %w", models.ErrPermissionDenied)
	}
	return c, nil
}

func (a stubAuth) Login(ctx context.Context, token string) (*models.UserProfile, error) {
	c, err := a.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	return &models.UserProfile{UID: c.Subject, DisplayName: c.Name, Email: c.Email}, nil
}

func (a stubAuth) Logout(string) {}

func (a stubAuth) IsCurator(email string) bool { return email == "gestor@loja.com" }

type noEnrich struct{}

func (noEnrich) Enrich(context.Context, string) ai.Enrichment { return ai.Enrichment{} }
func (noEnrich) Pitch(context.Context, string, string) string { return "Aproveite!" }

var testAuth = stubAuth{
	"alice-token":   {Subject: "alice", Name: "Alice", Email: "alice@example.com"},
	"bob-token":     {Subject: "bob", Name: "Bob", Email: "bob@example.com"},
	"curator-token": {Subject: "cur", Name: "Gestor", Email: "gestor@loja.com"},
}

func newTestServer(t *testing.T, perMinute int) (*httptest.Server, *fakeStore) {
	t.Helper()
	store := &fakeStore{products: []models.Product{
		{ID: "p1", URL: "https://loja.com/p1", Title: "Fone Bluetooth", AddedAt: 2, AuthorID: "alice", Clicks: 3, EstimatedPrice: "R$ 99,90"},
		{ID: "p2", URL: "https://loja.com/p2", Title: "Panela", AddedAt: 1, Featured: true},
	}}
	catalog := storefront.NewCatalog(nil, store)
	stop := catalog.Start(context.Background(), store)
	state := localstore.NewState(localstore.NewMemory())
	svc := storefront.New(storefront.Options{
		Store:    store,
		Catalog:  catalog,
		Curators: testAuth,
		Enricher: noEnrich{},
		Local:    state,
	})
	srv := New(Options{Service: svc, Auth: testAuth, State: state, RateLimitPerMinute: perMinute, DocsSpecDir: t.TempDir()})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		svc.Close()
		stop()
	})
	return ts, store
}

func do(t *testing.T, ts *httptest.Server, method, path, token, body string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func expectProblem(t *testing.T, resp *http.Response, status int, detail string) {
	t.Helper()
	if resp.StatusCode != status {
		t.Fatalf("status = %d, want %d", resp.StatusCode, status)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("content type = %q", ct)
	}
	pd := decode[ProblemDetails](t, resp)
	if pd.Status != status || pd.Type != "about:blank" {
		t.Errorf("unexpected problem %+v", pd)
	}
	if !strings.Contains(pd.Detail, detail) {
		t.Errorf("detail = %q, want substring %q", pd.Detail, detail)
	}
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, 0)
	resp := do(t, ts, http.MethodGet, "/health", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := decode[map[string]string](t, resp); got["status"] != "ok" {
		t.Errorf("unexpected body %v", got)
	}
}

func TestFeed(t *testing.T) {
	ts, _ := newTestServer(t, 0)

	resp := do(t, ts, http.MethodGet, "/api/feed", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	page := decode[storefront.FeedPage](t, resp)
	if page.Total != 2 || len(page.Items) != 2 || page.Items[0].ID != "p1" || page.Cursor == "" {
		t.Errorf("unexpected page %+v", page)
	}

	resp = do(t, ts, http.MethodGet, "/api/feed?q=panela", "", "")
	page = decode[storefront.FeedPage](t, resp)
	if page.Total != 1 || page.Items[0].ID != "p2" {
		t.Errorf("unexpected search page %+v", page)
	}

	expectProblem(t, do(t, ts, http.MethodGet, "/api/feed?strategy=chaos", "", ""), http.StatusBadRequest, "unknown feed strategy")
	expectProblem(t, do(t, ts, http.MethodGet, "/api/feed?cursor=%25%25", "", ""), http.StatusBadRequest, "cursor")

	resp = do(t, ts, http.MethodGet, "/api/feed/featured", "", "")
	if p := decode[models.Product](t, resp); p.ID != "p2" {
		t.Errorf("featured = %s, want p2", p.ID)
	}
}

func TestVisitorCookieAndAnonymousLike(t *testing.T) {
	ts, _ := newTestServer(t, 0)

	resp := do(t, ts, http.MethodPost, "/api/products/p1/like", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == visitorCookie {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value == "" {
		t.Fatal("no visitor cookie issued")
	}
	if got := decode[map[string]bool](t, resp); !got["liked"] {
		t.Errorf("expected liked, got %v", got)
	}

	resp = do(t, ts, http.MethodGet, "/api/likes", "", "", cookie)
	if len(resp.Cookies()) != 0 {
		t.Error("a known visitor should not get a new cookie")
	}
	if got := decode[map[string][]string](t, resp); len(got["liked"]) != 1 || got["liked"][0] != "p1" {
		t.Errorf("unexpected likes %v", got)
	}
}

func TestAuthRequired(t *testing.T) {
	ts, _ := newTestServer(t, 0)
	body := `{"url":"https://loja.com/x","title":"Cadeira"}`

	expectProblem(t, do(t, ts, http.MethodPost, "/api/products", "", body), http.StatusUnauthorized, "Entre")
	expectProblem(t, do(t, ts, http.MethodPost, "/api/products", "forged", body), http.StatusUnauthorized, "Sessão")

	resp := do(t, ts, http.MethodPost, "/api/products", "alice-token", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if p := decode[models.Product](t, resp); p.ID != "new-1" || p.AuthorID != "alice" {
		t.Errorf("unexpected product %+v", p)
	}
}

func TestDeletePermissions(t *testing.T) {
	ts, store := newTestServer(t, 0)

	expectProblem(t, do(t, ts, http.MethodDelete, "/api/products/p1", "bob-token", ""), http.StatusForbidden, "permissão")
	if len(store.deleted) != 0 {
		t.Fatalf("stranger deleted %v", store.deleted)
	}

	resp := do(t, ts, http.MethodDelete, "/api/products/p1", "alice-token", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	expectProblem(t, do(t, ts, http.MethodGet, "/api/products/missing", "", ""), http.StatusNotFound, "encontrado")
}

func TestInterestValidation(t *testing.T) {
	ts, store := newTestServer(t, 0)

	expectProblem(t, do(t, ts, http.MethodPost, "/api/products/p1/interest", "", `{"email":"nope"}`),
		http.StatusBadRequest, "email must be a valid email address")
	expectProblem(t, do(t, ts, http.MethodPost, "/api/products/p1/interest", "", `{"mail":"x@y.com"}`),
		http.StatusBadRequest, "invalid request body")

	resp := do(t, ts, http.MethodPost, "/api/products/p1/interest", "", `{"email":"cliente@example.com"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(store.leads) != 1 || store.leads[0].ProductTitle != "Fone Bluetooth" {
		t.Errorf("unexpected leads %+v", store.leads)
	}
}

func TestRateLimit(t *testing.T) {
	ts, store := newTestServer(t, 1)

	if resp := do(t, ts, http.MethodPost, "/api/visits", "", ""); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("first visit status = %d", resp.StatusCode)
	}
	resp := do(t, ts, http.MethodPost, "/api/visits", "", "")
	expectProblem(t, resp, http.StatusTooManyRequests, "Muitas")
	if resp.Header.Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	if store.visits != 1 {
		t.Errorf("visits = %d, want 1", store.visits)
	}

	// Reads are never limited.
	if resp := do(t, ts, http.MethodGet, "/api/feed", "", ""); resp.StatusCode != http.StatusOK {
		t.Errorf("feed status = %d", resp.StatusCode)
	}
}

func TestAdmin(t *testing.T) {
	ts, _ := newTestServer(t, 0)

	expectProblem(t, do(t, ts, http.MethodGet, "/api/admin/analytics", "alice-token", ""), http.StatusForbidden, "permissão")

	resp := do(t, ts, http.MethodGet, "/api/admin/analytics", "curator-token", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	a := decode[models.Analytics](t, resp)
	if a.TotalClicks != 3 || len(a.TopProducts) != 2 {
		t.Errorf("unexpected analytics %+v", a)
	}

	expectProblem(t, do(t, ts, http.MethodPost, "/api/admin/import", "curator-token", `{"sheetUrl":"https://docs.google.com/spreadsheets/d/x"}`),
		http.StatusServiceUnavailable, "configurado")
}

func TestLoginAndMe(t *testing.T) {
	ts, _ := newTestServer(t, 0)

	expectProblem(t, do(t, ts, http.MethodPost, "/api/auth/login", "", `{"credential":"forged"}`), http.StatusForbidden, "permissão")

	resp := do(t, ts, http.MethodPost, "/api/auth/login", "", `{"credential":"curator-token"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == visitorCookie {
			cookie = c
		}
	}
	session := decode[sessionResponse](t, resp)
	if !session.Curator || !session.Authorized || session.User.UID != "cur" {
		t.Errorf("unexpected session %+v", session)
	}

	me := decode[sessionResponse](t, do(t, ts, http.MethodGet, "/api/auth/me", "curator-token", "", cookie))
	if !me.Authorized || !me.Curator || me.User == nil {
		t.Errorf("unexpected me %+v", me)
	}

	if resp := do(t, ts, http.MethodPost, "/api/auth/logout", "curator-token", "", cookie); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout status = %d", resp.StatusCode)
	}
	me = decode[sessionResponse](t, do(t, ts, http.MethodGet, "/api/auth/me", "", "", cookie))
	if me.Authorized || me.User != nil {
		t.Errorf("still signed in after logout: %+v", me)
	}
}

func TestJSONLDAndNotifications(t *testing.T) {
	ts, _ := newTestServer(t, 0)

	resp := do(t, ts, http.MethodGet, "/api/seo/jsonld", "", "")
	if ct := resp.Header.Get("Content-Type"); ct != "application/ld+json" {
		t.Errorf("content type = %q", ct)
	}
	list := decode[storefront.ItemList](t, resp)
	if list.Type != "ItemList" || len(list.Elements) != 2 || list.Elements[0].Item.Offers.Price != "99.90" {
		t.Errorf("unexpected item list %+v", list)
	}

	resp = do(t, ts, http.MethodGet, "/api/notifications", "", "")
	got := decode[map[string]any](t, resp)
	if got["unread"] != float64(0) {
		t.Errorf("unexpected notifications %v", got)
	}
	if resp := do(t, ts, http.MethodDelete, "/api/notifications", "", ""); resp.StatusCode != http.StatusNoContent {
		t.Errorf("clear status = %d", resp.StatusCode)
	}
}

func TestNotifications_PerVisitor(t *testing.T) {
	ts, store := newTestServer(t, 0)
	store.emit(append(slices.Clone(store.products), models.Product{ID: "p3", Title: "Cafeteira", AddedAt: 3})...)

	visitorCookieFor := func() *http.Cookie {
		resp := do(t, ts, http.MethodGet, "/api/notifications", "", "")
		for _, c := range resp.Cookies() {
			if c.Name == visitorCookie {
				return c
			}
		}
		t.Fatal("no visitor cookie issued")
		return nil
	}
	a, b := visitorCookieFor(), visitorCookieFor()

	unread := func(c *http.Cookie) (float64, int) {
		got := decode[struct {
			Items  []models.NotificationItem `json:"items"`
			Unread float64                   `json:"unread"`
		}](t, do(t, ts, http.MethodGet, "/api/notifications", "", "", c))
		return got.Unread, len(got.Items)
	}
	if n, items := unread(b); n != 1 || items != 1 {
		t.Fatalf("visitor b before clear: unread %v, items %d", n, items)
	}

	if resp := do(t, ts, http.MethodDelete, "/api/notifications", "", "", a); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("clear status = %d", resp.StatusCode)
	}
	if n, items := unread(a); n != 0 || items != 0 {
		t.Errorf("visitor a after clear: unread %v, items %d", n, items)
	}
	if n, items := unread(b); n != 1 || items != 1 {
		t.Errorf("visitor a's clear leaked to b: unread %v, items %d", n, items)
	}

	if resp := do(t, ts, http.MethodPost, "/api/notifications/read", "", "", b); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("read status = %d", resp.StatusCode)
	}
	if n, items := unread(b); n != 0 || items != 1 {
		t.Errorf("visitor b after read: unread %v, items %d", n, items)
	}
}
