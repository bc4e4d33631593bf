package storage

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pauljones0/deals-storefront/internal/models"
)

func setProductID(p *models.Product, id string) { p.ID = id }

func decodeProducts(snap *firestore.QuerySnapshot) ([]models.Product, error) {
	docs, err := snap.Documents.GetAll()
	if err != nil {
		return nil, err
	}
	return decodeAll(docs, setProductID)
}

// Subscribe streams the full product list, newest first, every time it changes.
func (c *Client) Subscribe(ctx context.Context, onData func([]models.Product), onError func(error)) func() {
	ctx, cancel := context.WithCancel(ctx)
	it := c.client.Collection(productsCollection).OrderBy("addedAt", firestore.Desc).Snapshots(ctx)
	return watch(ctx, cancel, it, func(snap *firestore.QuerySnapshot) error {
		products, err := decodeProducts(snap)
		if err != nil {
			return err
		}
		onData(products)
		return nil
	}, onError)
}

// ListProducts returns a one-off copy of the product list, newest first.
func (c *Client) ListProducts(ctx context.Context) ([]models.Product, error) {
	docs, err := c.client.Collection(productsCollection).OrderBy("addedAt", firestore.Desc).Documents(ctx).GetAll()
	if err != nil {
		return nil, classify(err)
	}
	return decodeAll(docs, setProductID)
}

// GetProduct returns nil when the product doesn't exist.
func (c *Client) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	doc, err := c.client.Collection(productsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product %s: %w", id, classify(err))
	}
	if !doc.Exists() {
		return nil, nil
	}

	var p models.Product
	if err := doc.DataTo(&p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal product data: %w", err)
	}
	p.ID = doc.Ref.ID
	return &p, nil
}

// AddProduct stores p with zeroed counters and returns the new ID.
func (c *Client) AddProduct(ctx context.Context, p models.Product) (string, error) {
	p.Clicks = 0
	p.Likes = []string{}
	p.CommentsCount = 0
	if p.AddedAt == 0 {
		p.AddedAt = c.nowMillis()
	}
	ref, _, err := c.client.Collection(productsCollection).Add(ctx, p)
	if err != nil {
		return "", fmt.Errorf("failed to add product: %w", classify(err))
	}
	return ref.ID, nil
}

// patchUpdates lists the field paths a patch touches.
func patchUpdates(patch models.ProductPatch) []firestore.Update {
	var ups []firestore.Update
	add := func(path string, v any) { ups = append(ups, firestore.Update{Path: path, Value: v}) }

	if patch.URL != nil {
		add("url", *patch.URL)
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Category != nil {
		add("category", *patch.Category)
	}
	if patch.EstimatedPrice != nil {
		add("estimatedPrice", *patch.EstimatedPrice)
	}
	if patch.ImageURL != nil {
		add("imageUrl", *patch.ImageURL)
	}
	if patch.ImageSearchTerm != nil {
		add("imageSearchTerm", *patch.ImageSearchTerm)
	}
	if patch.Status != nil {
		add("status", string(*patch.Status))
	}
	if patch.Curated != nil {
		add("isGestor", *patch.Curated)
	}
	if patch.Featured != nil {
		add("isFeatured", *patch.Featured)
	}
	return ups
}

// UpdateProduct writes only the fields set in patch.
func (c *Client) UpdateProduct(ctx context.Context, id string, patch models.ProductPatch) error {
	ups := patchUpdates(patch)
	if len(ups) == 0 {
		return fmt.Errorf("empty update for product %s: %w", id, models.ErrInvalidInput)
	}
	if _, err := c.client.Collection(productsCollection).Doc(id).Update(ctx, ups); err != nil {
		return fmt.Errorf("failed to update product %s: %w", id, classify(err))
	}
	return nil
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	if _, err := c.client.Collection(productsCollection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete product %s: %w", id, classify(err))
	}
	return nil
}

func (c *Client) update(ctx context.Context, id string, ups ...firestore.Update) error {
	if _, err := c.client.Collection(productsCollection).Doc(id).Update(ctx, ups); err != nil {
		return fmt.Errorf("failed to update product %s: %w", id, classify(err))
	}
	return nil
}

// IncrementClick atomically bumps the click counter.
func (c *Client) IncrementClick(ctx context.Context, id string) error {
	return c.update(ctx, id, firestore.Update{Path: "clicks", Value: firestore.Increment(1)})
}

func (c *Client) SetFeatured(ctx context.Context, id string, featured bool) error {
	return c.update(ctx, id, firestore.Update{Path: "isFeatured", Value: featured})
}

// ToggleLike removes uid from the like set when isLiked, and adds it otherwise.
// Both directions are set operations, so repeated calls never duplicate a uid.
func (c *Client) ToggleLike(ctx context.Context, id, uid string, isLiked bool) error {
	var v any
	if isLiked {
		v = firestore.ArrayRemove(uid)
	} else {
		v = firestore.ArrayUnion(uid)
	}
	return c.update(ctx, id, firestore.Update{Path: "likes", Value: v})
}
