// Package storage is the Firestore-backed store for products, comments,
// leads, users, visits, stats and blog posts.
package storage

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pauljones0/deals-storefront/internal/models"
)

const (
	productsCollection = "products"
	commentsCollection = "comments"
	leadsCollection    = "interest_list"
	usersCollection    = "users"
	visitsCollection   = "site_visits"
	statsCollection    = "stats"
	blogCollection     = "blog_posts"

	globalStatsDoc = "global"
)

type Client struct {
	client *firestore.Client
	now    func() time.Time
}

func New(ctx context.Context, projectID string) (*Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("firestore project: %w", models.ErrNotConfigured)
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore.NewClient: %w", err)
	}
	return &Client{client: client, now: time.Now}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// classify wraps err with the matching models sentinel so callers can branch
// on errors.Is without knowing about gRPC.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var sentinel error
	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated:
		sentinel = models.ErrPermissionDenied
	case codes.NotFound:
		sentinel = models.ErrNotFound
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		sentinel = models.ErrUnavailable
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		sentinel = models.ErrInvalidInput
	default:
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

// countFrom reads an aggregation count. The Go client has returned both raw
// int64 and *firestorepb.Value depending on version.
func countFrom(result firestore.AggregationResult, alias string) (int, error) {
	v, ok := result[alias]
	if !ok {
		return 0, fmt.Errorf("count aggregation result was invalid: %q key missing", alias)
	}
	switch val := v.(type) {
	case int64:
		return int(val), nil
	case *firestorepb.Value:
		return int(val.GetIntegerValue()), nil
	}
	return 0, fmt.Errorf("count aggregation result has unexpected type %T", v)
}

func (c *Client) count(ctx context.Context, q firestore.Query) (int, error) {
	res, err := q.NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return 0, classify(err)
	}
	return countFrom(res, "all")
}

// decodeAll converts snapshots to T, stamping each with its document ID.
func decodeAll[T any](docs []*firestore.DocumentSnapshot, setID func(*T, string)) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := doc.DataTo(&v); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", doc.Ref.Path, err)
		}
		if setID != nil {
			setID(&v, doc.Ref.ID)
		}
		out = append(out, v)
	}
	return out, nil
}

func (c *Client) nowMillis() int64 {
	return c.now().UnixMilli()
}
