package storefront

import (
	"context"
	"fmt"
	"sync"

	"github.com/pauljones0/deals-storefront/internal/ai"
	"github.com/pauljones0/deals-storefront/internal/models"
)

// --- Mock implementations ---

type mockStore struct {
	mu       sync.Mutex
	products map[string]models.Product
	added    []models.Product
	patches  map[string][]models.ProductPatch
	deleted  []string
	clicks   map[string]int
	featured map[string]bool
	likes    []string // "id:uid:isLiked"
	comments []models.Comment
	leads    []models.Lead
	visits   int
	notified int
	views    map[string]int
	writes   int
	nextID   int

	addErr   error
	countErr error
}

func newMockStore(products ...models.Product) *mockStore {
	m := &mockStore{
		products: make(map[string]models.Product),
		patches:  make(map[string][]models.ProductPatch),
		clicks:   make(map[string]int),
		featured: make(map[string]bool),
		views:    make(map[string]int),
	}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *mockStore) Subscribe(_ context.Context, onData func([]models.Product), _ func(error)) func() {
	m.mu.Lock()
	snapshot := make([]models.Product, 0, len(m.products))
	for _, p := range m.products {
		snapshot = append(snapshot, p)
	}
	m.mu.Unlock()
	onData(snapshot)
	return func() {}
}

func (m *mockStore) GetProduct(_ context.Context, id string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *mockStore) AddProduct(_ context.Context, p models.Product) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return "", m.addErr
	}
	m.writes++
	m.nextID++
	p.ID = fmt.Sprintf("new-%d", m.nextID)
	m.products[p.ID] = p
	m.added = append(m.added, p)
	return p.ID, nil
}

func (m *mockStore) UpdateProduct(_ context.Context, id string, patch models.ProductPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.patches[id] = append(m.patches[id], patch)
	return nil
}

func (m *mockStore) DeleteProduct(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockStore) IncrementClick(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.clicks[id]++
	return nil
}

func (m *mockStore) SetFeatured(_ context.Context, id string, featured bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.featured[id] = featured
	return nil
}

func (m *mockStore) ToggleLike(_ context.Context, id, uid string, isLiked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.likes = append(m.likes, fmt.Sprintf("%s:%s:%t", id, uid, isLiked))
	return nil
}

func (m *mockStore) ListComments(_ context.Context, productID string) ([]models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Comment
	for _, c := range m.comments {
		if c.ProductID == productID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockStore) AddComment(_ context.Context, cm models.Comment) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	cm.ID = fmt.Sprintf("c-%d", len(m.comments)+1)
	m.comments = append(m.comments, cm)
	return cm.ID, nil
}

func (m *mockStore) SaveLead(_ context.Context, lead models.Lead) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.leads = append(m.leads, lead)
	return fmt.Sprintf("l-%d", len(m.leads)), nil
}

func (m *mockStore) ListLeads(_ context.Context, limit int) ([]models.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leads[:min(limit, len(m.leads))], nil
}

func (m *mockStore) CountLeads(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.leads), m.countErr
}

func (m *mockStore) TrackVisit(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visits++
	return nil
}

func (m *mockStore) CountVisits(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.visits, nil
}

func (m *mockStore) TrackNotificationSent(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notified++
	return nil
}

func (m *mockStore) NotificationCount(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notified, nil
}

func (m *mockStore) ListPosts(context.Context) ([]models.BlogPost, error) {
	return []models.BlogPost{{ID: "p1", Title: "Guia"}}, nil
}

func (m *mockStore) IncrementPostView(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.views[id]++
	return nil
}

func (m *mockStore) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

type stubEnricher struct {
	enrichment ai.Enrichment
	pitch      string
}

func (s stubEnricher) Enrich(context.Context, string) ai.Enrichment { return s.enrichment }

func (s stubEnricher) Pitch(context.Context, string, string) string { return s.pitch }

type mockAnnouncer struct {
	mu      sync.Mutex
	sent    []models.Product
	updated []string
}

func (m *mockAnnouncer) Enabled() bool { return true }

func (m *mockAnnouncer) Send(_ context.Context, p models.Product) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, p)
	return "msg-" + p.ID, nil
}

func (m *mockAnnouncer) Update(_ context.Context, messageID string, _ models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updated = append(m.updated, messageID)
	return nil
}

type staticLinks []string

func (l staticLinks) FetchLinks(context.Context, string) ([]string, error) { return l, nil }

type curatorEmail string

func (c curatorEmail) IsCurator(email string) bool { return email == string(c) }
