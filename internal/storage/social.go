package storage

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pauljones0/deals-storefront/internal/models"
)

const defaultLeadLimit = 100

// SubscribeComments streams a product's comments, newest first.
func (c *Client) SubscribeComments(ctx context.Context, productID string, onData func([]models.Comment), onError func(error)) func() {
	ctx, cancel := context.WithCancel(ctx)
	it := c.client.Collection(commentsCollection).
		Where("productId", "==", productID).
		OrderBy("timestamp", firestore.Desc).
		Snapshots(ctx)
	return watch(ctx, cancel, it, func(snap *firestore.QuerySnapshot) error {
		docs, err := snap.Documents.GetAll()
		if err != nil {
			return err
		}
		comments, err := decodeAll(docs, func(cm *models.Comment, id string) { cm.ID = id })
		if err != nil {
			return err
		}
		onData(comments)
		return nil
	}, onError)
}

// ListComments returns a product's comments, newest first.
func (c *Client) ListComments(ctx context.Context, productID string) ([]models.Comment, error) {
	docs, err := c.client.Collection(commentsCollection).
		Where("productId", "==", productID).
		OrderBy("timestamp", firestore.Desc).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list comments for %s: %w", productID, classify(err))
	}
	return decodeAll(docs, func(cm *models.Comment, id string) { cm.ID = id })
}

// AddComment stores the comment and then bumps the product's comment counter.
// The counter is best effort: a failed increment is logged, not returned.
func (c *Client) AddComment(ctx context.Context, cm models.Comment) (string, error) {
	if cm.Timestamp == 0 {
		cm.Timestamp = c.nowMillis()
	}
	ref, _, err := c.client.Collection(commentsCollection).Add(ctx, cm)
	if err != nil {
		return "", fmt.Errorf("failed to add comment: %w", classify(err))
	}
	if err := c.update(ctx, cm.ProductID, firestore.Update{Path: "commentsCount", Value: firestore.Increment(1)}); err != nil {
		slog.Warn("Failed to increment comment counter", "product", cm.ProductID, "error", err)
	}
	return ref.ID, nil
}

func (c *Client) SaveLead(ctx context.Context, lead models.Lead) (string, error) {
	if lead.Timestamp == 0 {
		lead.Timestamp = c.nowMillis()
	}
	ref, _, err := c.client.Collection(leadsCollection).Add(ctx, lead)
	if err != nil {
		return "", fmt.Errorf("failed to save lead: %w", classify(err))
	}
	return ref.ID, nil
}

// ListLeads returns the newest leads. A non-positive limit means 100.
func (c *Client) ListLeads(ctx context.Context, limit int) ([]models.Lead, error) {
	if limit <= 0 {
		limit = defaultLeadLimit
	}
	docs, err := c.client.Collection(leadsCollection).
		OrderBy("timestamp", firestore.Desc).
		Limit(limit).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", classify(err))
	}
	return decodeAll(docs, func(l *models.Lead, id string) { l.ID = id })
}

func (c *Client) CountLeads(ctx context.Context) (int, error) {
	return c.count(ctx, c.client.Collection(leadsCollection).Query)
}

// GetUserProfile returns nil when the user has never signed in.
func (c *Client) GetUserProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	doc, err := c.client.Collection(usersCollection).Doc(uid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user %s: %w", uid, classify(err))
	}
	if !doc.Exists() {
		return nil, nil
	}
	var u models.UserProfile
	if err := doc.DataTo(&u); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user data: %w", err)
	}
	return &u, nil
}

// SaveUserProfile merges u into users/{uid}, leaving unknown fields alone.
func (c *Client) SaveUserProfile(ctx context.Context, u models.UserProfile) error {
	saved := u.SavedProducts
	if saved == nil {
		saved = []string{}
	}
	_, err := c.client.Collection(usersCollection).Doc(u.UID).Set(ctx, map[string]any{
		"uid":           u.UID,
		"displayName":   u.DisplayName,
		"email":         u.Email,
		"photoURL":      u.PhotoURL,
		"savedProducts": saved,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to save user %s: %w", u.UID, classify(err))
	}
	return nil
}

func (c *Client) TrackVisit(ctx context.Context) error {
	now := c.now()
	_, _, err := c.client.Collection(visitsCollection).Add(ctx, models.SiteVisit{
		Timestamp: now.UnixMilli(),
		Date:      now.UTC().Format("2006-01-02"),
	})
	if err != nil {
		return fmt.Errorf("failed to track visit: %w", classify(err))
	}
	return nil
}

func (c *Client) CountVisits(ctx context.Context) (int, error) {
	return c.count(ctx, c.client.Collection(visitsCollection).Query)
}

// TrackNotificationSent bumps stats/global.notificationsSent, creating the
// document on first use.
func (c *Client) TrackNotificationSent(ctx context.Context) error {
	ref := c.client.Collection(statsCollection).Doc(globalStatsDoc)
	_, err := ref.Update(ctx, []firestore.Update{{Path: "notificationsSent", Value: firestore.Increment(1)}})
	if status.Code(err) == codes.NotFound {
		_, err = ref.Set(ctx, map[string]any{"notificationsSent": firestore.Increment(1)}, firestore.MergeAll)
	}
	if err != nil {
		return fmt.Errorf("failed to track notification: %w", classify(err))
	}
	return nil
}

func (c *Client) NotificationCount(ctx context.Context) (int, error) {
	doc, err := c.client.Collection(statsCollection).Doc(globalStatsDoc).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read stats: %w", classify(err))
	}
	v, err := doc.DataAt("notificationsSent")
	if err != nil {
		return 0, nil
	}
	n, _ := v.(int64)
	return int(n), nil
}

// SubscribePosts streams blog posts, newest first.
func (c *Client) SubscribePosts(ctx context.Context, onData func([]models.BlogPost), onError func(error)) func() {
	ctx, cancel := context.WithCancel(ctx)
	it := c.client.Collection(blogCollection).OrderBy("publishedAt", firestore.Desc).Snapshots(ctx)
	return watch(ctx, cancel, it, func(snap *firestore.QuerySnapshot) error {
		docs, err := snap.Documents.GetAll()
		if err != nil {
			return err
		}
		posts, err := decodeAll(docs, func(p *models.BlogPost, id string) { p.ID = id })
		if err != nil {
			return err
		}
		onData(posts)
		return nil
	}, onError)
}

func (c *Client) ListPosts(ctx context.Context) ([]models.BlogPost, error) {
	docs, err := c.client.Collection(blogCollection).OrderBy("publishedAt", firestore.Desc).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", classify(err))
	}
	return decodeAll(docs, func(p *models.BlogPost, id string) { p.ID = id })
}

func (c *Client) IncrementPostView(ctx context.Context, id string) error {
	_, err := c.client.Collection(blogCollection).Doc(id).Update(ctx, []firestore.Update{{Path: "views", Value: firestore.Increment(1)}})
	if err != nil {
		return fmt.Errorf("failed to count view for post %s: %w", id, classify(err))
	}
	return nil
}
