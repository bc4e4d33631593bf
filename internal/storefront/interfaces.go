package storefront

import (
	"context"

	"github.com/pauljones0/deals-storefront/internal/ai"
	"github.com/pauljones0/deals-storefront/internal/models"
)

// Subscriber feeds the live catalog.
type Subscriber interface {
	Subscribe(ctx context.Context, onData func([]models.Product), onError func(error)) func()
}

// Store abstracts the document store behind the storefront.
type Store interface {
	Subscriber

	GetProduct(ctx context.Context, id string) (*models.Product, error)
	AddProduct(ctx context.Context, p models.Product) (string, error)
	UpdateProduct(ctx context.Context, id string, patch models.ProductPatch) error
	DeleteProduct(ctx context.Context, id string) error
	IncrementClick(ctx context.Context, id string) error
	SetFeatured(ctx context.Context, id string, featured bool) error
	ToggleLike(ctx context.Context, id, uid string, isLiked bool) error

	ListComments(ctx context.Context, productID string) ([]models.Comment, error)
	AddComment(ctx context.Context, cm models.Comment) (string, error)

	SaveLead(ctx context.Context, lead models.Lead) (string, error)
	ListLeads(ctx context.Context, limit int) ([]models.Lead, error)
	CountLeads(ctx context.Context) (int, error)

	TrackVisit(ctx context.Context) error
	CountVisits(ctx context.Context) (int, error)
	TrackNotificationSent(ctx context.Context) error
	NotificationCount(ctx context.Context) (int, error)

	ListPosts(ctx context.Context) ([]models.BlogPost, error)
	IncrementPostView(ctx context.Context, id string) error
}

// Enricher fills product details from a link. Both calls are best effort.
type Enricher interface {
	Enrich(ctx context.Context, url string) ai.Enrichment
	Pitch(ctx context.Context, title, description string) string
}

// Announcer publishes new offers to an outside channel.
type Announcer interface {
	Enabled() bool
	Send(ctx context.Context, p models.Product) (string, error)
	Update(ctx context.Context, messageID string, p models.Product) error
}

// LinkSource lists product links for bulk import.
type LinkSource interface {
	FetchLinks(ctx context.Context, sheetURL string) ([]string, error)
}

// CuratorChecker decides who may run curator actions.
type CuratorChecker interface {
	IsCurator(email string) bool
}
