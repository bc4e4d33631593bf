package storefront

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pauljones0/deals-storefront/internal/feed"
	"github.com/pauljones0/deals-storefront/internal/identity"
	"github.com/pauljones0/deals-storefront/internal/localstore"
	"github.com/pauljones0/deals-storefront/internal/models"
	"github.com/pauljones0/deals-storefront/internal/notifier"
	"github.com/pauljones0/deals-storefront/internal/validator"
)

const (
	relatedLimit    = 4
	enrichTimeout   = 2 * time.Minute
	announceTimeout = 30 * time.Second
)

// Options wires a Service. Store, Catalog and Curators are required.
type Options struct {
	Store     Store
	Catalog   *Catalog
	Composer  *feed.Composer
	Curators  CuratorChecker
	Enricher  Enricher
	Announcer Announcer
	Links     LinkSource
	Local     *localstore.State
	Validator *validator.Validator

	AmazonTag         string
	EnrichStores      []string
	ImportConcurrency int
}

// Service runs every storefront operation on top of the store and the live
// catalog.
type Service struct {
	store     Store
	catalog   *Catalog
	composer  *feed.Composer
	pager     feed.Pager
	curators  CuratorChecker
	enricher  Enricher
	announcer Announcer
	links     LinkSource
	local     *localstore.State
	validate  *validator.Validator

	amazonTag         string
	enrichStores      []string
	importConcurrency int
	now               func() time.Time

	bg       context.Context
	stopBG   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex
	messages map[string]string // product id -> announcement message id
}

func New(opts Options) *Service {
	composer := opts.Composer
	if composer == nil {
		composer = feed.NewComposer(feed.DefaultSettings(), nil)
	}
	validate := opts.Validator
	if validate == nil {
		validate = validator.New()
	}
	local := opts.Local
	if local == nil {
		local = localstore.NewState(localstore.NewMemory())
	}
	concurrency := opts.ImportConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	bg, stop := context.WithCancel(context.Background())
	return &Service{
		store:             opts.Store,
		catalog:           opts.Catalog,
		composer:          composer,
		pager:             feed.NewPager(composer.Settings()),
		curators:          opts.Curators,
		enricher:          opts.Enricher,
		announcer:         opts.Announcer,
		links:             opts.Links,
		local:             local,
		validate:          validate,
		amazonTag:         opts.AmazonTag,
		enrichStores:      opts.EnrichStores,
		importConcurrency: concurrency,
		now:               time.Now,
		bg:                bg,
		stopBG:            stop,
		messages:          make(map[string]string),
	}
}

// Wait blocks until background enrichment and announcements finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Close cancels background work and waits for it.
func (s *Service) Close() {
	s.stopBG()
	s.wg.Wait()
}

func (s *Service) Catalog() *Catalog {
	return s.catalog
}

func (s *Service) isCurator(user identity.Claims) bool {
	return user.Subject != "" && s.curators != nil && s.curators.IsCurator(user.Email)
}

func (s *Service) requireCurator(user identity.Claims) error {
	if !s.isCurator(user) {
		return fmt.Errorf("curator access required: %w", models.ErrPermissionDenied)
	}
	return nil
}

func requireUser(user identity.Claims) error {
	if user.Subject == "" {
		return fmt.Errorf("sign in required: %w", models.ErrPermissionDenied)
	}
	return nil
}

// background runs fn detached from the request that started it.
func (s *Service) background(timeout time.Duration, fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(s.bg, timeout)
		defer cancel()
		fn(ctx)
	}()
}

// FeedRequest describes one page request. An empty Cursor opens a new feed;
// More widens an existing one by a page.
type FeedRequest struct {
	Query    string
	Strategy feed.Strategy
	Cursor   string
	More     bool
}

type FeedPage struct {
	Items   []models.Product `json:"items"`
	Cursor  string           `json:"cursor"`
	HasMore bool             `json:"hasMore"`
	Total   int              `json:"total"`
}

// Feed composes the catalog for req and cuts the visible window.
func (s *Service) Feed(req FeedRequest) (FeedPage, error) {
	query := strings.TrimSpace(req.Query)
	cursor := s.pager.Start(query)
	reset := true
	if req.Cursor != "" {
		decoded, err := feed.DecodeCursor(req.Cursor)
		if err != nil {
			return FeedPage{}, fmt.Errorf("%w: %w", models.ErrInvalidInput, err)
		}
		cursor, reset = s.pager.Sync(decoded, query)
	}

	ordered := s.composer.Compose(s.catalog.Products(), feed.Query{Text: query, Strategy: req.Strategy})
	// A changed query always lands on the initial window, even with more set.
	if req.More && !reset {
		cursor = s.pager.Next(cursor, len(ordered))
	}

	items := feed.Page(ordered, cursor)
	if items == nil {
		items = []models.Product{}
	}
	return FeedPage{
		Items:   items,
		Cursor:  cursor.Encode(),
		HasMore: feed.HasMore(ordered, cursor),
		Total:   len(ordered),
	}, nil
}

// Featured returns the hero product for the given query, if any.
func (s *Service) Featured(query string, strategy feed.Strategy) (models.Product, bool) {
	all := s.catalog.Products()
	ordered := s.composer.Compose(all, feed.Query{Text: query, Strategy: strategy})
	return feed.Featured(all, ordered)
}

// Carousel returns the looped top products. extra appends that many more
// copies, the way the strip grows as it nears its end.
func (s *Service) Carousel(extra int) []models.Product {
	settings := s.composer.Settings()
	top := feed.TopProducts(s.catalog.Products(), settings.CarouselLimit)
	seq := feed.Loop(top, settings.CarouselCopies)
	for range max(extra, 0) {
		seq = feed.Grow(seq, top)
	}
	if seq == nil {
		seq = []models.Product{}
	}
	return seq
}

// Product looks id up in the catalog, then in the store.
func (s *Service) Product(ctx context.Context, id string) (models.Product, error) {
	if p, ok := s.catalog.Lookup(id); ok {
		return p, nil
	}
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return models.Product{}, fmt.Errorf("failed to get product %s: %w", id, err)
	}
	if p == nil {
		return models.Product{}, fmt.Errorf("product %s: %w", id, models.ErrNotFound)
	}
	return *p, nil
}

// Related lists the newest products sharing id's category.
func (s *Service) Related(ctx context.Context, id string) ([]models.Product, error) {
	p, err := s.Product(ctx, id)
	if err != nil {
		return nil, err
	}
	related := []models.Product{}
	if p.Category == "" {
		return related, nil
	}
	for _, other := range feed.SortByRecency(s.catalog.Products()) {
		if other.ID != p.ID && strings.EqualFold(other.Category, p.Category) {
			related = append(related, other)
			if len(related) == relatedLimit {
				break
			}
		}
	}
	return related, nil
}

// RecordClick counts a click-through and returns the link to send the
// visitor to.
func (s *Service) RecordClick(ctx context.Context, id string) (string, error) {
	p, err := s.Product(ctx, id)
	if err != nil {
		return "", err
	}
	if err := s.store.IncrementClick(ctx, id); err != nil {
		return "", fmt.Errorf("failed to record click: %w", err)
	}
	return p.URL, nil
}

// ToggleLike flips the like of a signed-in user in the store, or of an
// anonymous visitor in local state. It returns the new liked state.
func (s *Service) ToggleLike(ctx context.Context, user identity.Claims, visitor, id string) (bool, error) {
	if user.Subject == "" {
		if visitor == "" {
			return false, fmt.Errorf("visitor id required: %w", models.ErrInvalidInput)
		}
		return s.local.ToggleLiked(ctx, visitor, id)
	}

	p, err := s.Product(ctx, id)
	if err != nil {
		return false, err
	}
	isLiked := p.LikedBy(user.Subject)
	if err := s.store.ToggleLike(ctx, id, user.Subject, isLiked); err != nil {
		return isLiked, fmt.Errorf("failed to update like: %w", err)
	}
	return !isLiked, nil
}

// LikedByVisitor returns the anonymous visitor's liked product ids.
func (s *Service) LikedByVisitor(ctx context.Context, visitor string) ([]string, error) {
	return s.local.LikedSet(ctx, visitor)
}

// Notifications returns the visitor's view of the shared inbox and its
// unread count.
func (s *Service) Notifications(ctx context.Context, visitor string) ([]models.NotificationItem, int, error) {
	var marks notifier.Marks
	if visitor != "" {
		var err error
		marks.ReadAt, marks.ClearedAt, err = s.local.NotificationMarks(ctx, visitor)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to load notification state: %w", err)
		}
	}
	items, unread := s.catalog.Inbox().View(marks)
	return items, unread, nil
}

// MarkNotificationsRead marks everything received so far as read for visitor only.
func (s *Service) MarkNotificationsRead(ctx context.Context, visitor string) error {
	if visitor == "" {
		return fmt.Errorf("%w: visitor required", models.ErrInvalidInput)
	}
	return s.local.MarkNotificationsRead(ctx, visitor, s.now())
}

// ClearNotifications hides everything received so far from visitor only.
func (s *Service) ClearNotifications(ctx context.Context, visitor string) error {
	if visitor == "" {
		return fmt.Errorf("%w: visitor required", models.ErrInvalidInput)
	}
	return s.local.ClearNotifications(ctx, visitor, s.now())
}

func (s *Service) Comments(ctx context.Context, productID string) ([]models.Comment, error) {
	comments, err := s.store.ListComments(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	return comments, nil
}

// AddComment stores a comment by user on productID.
func (s *Service) AddComment(ctx context.Context, user identity.Claims, productID, text string) (models.Comment, error) {
	if err := requireUser(user); err != nil {
		return models.Comment{}, err
	}
	cm := models.Comment{
		ProductID: productID,
		UserID:    user.Subject,
		UserName:  user.Name,
		UserPhoto: user.PictureURL,
		Text:      strings.TrimSpace(text),
		Timestamp: s.now().UnixMilli(),
	}
	if err := s.validate.ValidateStruct(cm); err != nil {
		return models.Comment{}, err
	}
	id, err := s.store.AddComment(ctx, cm)
	if err != nil {
		return models.Comment{}, fmt.Errorf("failed to add comment: %w", err)
	}
	cm.ID = id
	return cm, nil
}

// RegisterInterest stores an email lead for productID.
func (s *Service) RegisterInterest(ctx context.Context, productID, email string) (models.Lead, error) {
	lead := models.Lead{
		Email:     strings.TrimSpace(email),
		ProductID: productID,
		Timestamp: s.now().UnixMilli(),
	}
	if err := s.validate.ValidateStruct(lead); err != nil {
		return models.Lead{}, err
	}
	p, err := s.Product(ctx, productID)
	if err != nil {
		return models.Lead{}, err
	}
	lead.ProductTitle = p.Title

	id, err := s.store.SaveLead(ctx, lead)
	if err != nil {
		return models.Lead{}, fmt.Errorf("failed to save lead: %w", err)
	}
	lead.ID = id
	slog.Info("Lead registered", "product", productID)
	return lead, nil
}

func (s *Service) TrackVisit(ctx context.Context) error {
	if err := s.store.TrackVisit(ctx); err != nil {
		return fmt.Errorf("failed to track visit: %w", err)
	}
	return nil
}

// Pitch writes a sales text for id. It only fails when id is unknown.
func (s *Service) Pitch(ctx context.Context, id string) (string, error) {
	p, err := s.Product(ctx, id)
	if err != nil {
		return "", err
	}
	if s.enricher == nil {
		return "", fmt.Errorf("pitch: %w", models.ErrNotConfigured)
	}
	return s.enricher.Pitch(ctx, p.Title, p.Description), nil
}

func (s *Service) Posts(ctx context.Context) ([]models.BlogPost, error) {
	posts, err := s.store.ListPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	if posts == nil {
		posts = []models.BlogPost{}
	}
	return posts, nil
}

func (s *Service) ViewPost(ctx context.Context, id string) error {
	if err := s.store.IncrementPostView(ctx, id); err != nil {
		return fmt.Errorf("failed to count post view: %w", err)
	}
	return nil
}
