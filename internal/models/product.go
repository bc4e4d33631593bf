package models

import (
	"slices"
	"time"
)

// ProductStatus tracks a product through submission and enrichment.
type ProductStatus string

const (
	StatusPending   ProductStatus = "PENDING"
	StatusEnriching ProductStatus = "ENRICHING"
	StatusReady     ProductStatus = "READY"
	StatusError     ProductStatus = "ERROR"
)

// Product is a promoted offer as stored in the "products" collection.
type Product struct {
	ID              string        `firestore:"-" json:"id"`
	URL             string        `firestore:"url" json:"url" validate:"required,url"`
	Title           string        `firestore:"title" json:"title" validate:"max=300"`
	Description     string        `firestore:"description" json:"description"`
	Category        string        `firestore:"category" json:"category"`
	EstimatedPrice  string        `firestore:"estimatedPrice,omitempty" json:"estimatedPrice,omitempty"`
	ImageURL        string        `firestore:"imageUrl,omitempty" json:"imageUrl,omitempty" validate:"omitempty,url"`
	ImageURLs       []string      `firestore:"imageUrls,omitempty" json:"imageUrls,omitempty" validate:"omitempty,dive,url"`
	VideoURL        string        `firestore:"videoUrl,omitempty" json:"videoUrl,omitempty"`
	ImageSearchTerm string        `firestore:"imageSearchTerm,omitempty" json:"imageSearchTerm,omitempty"`
	Status          ProductStatus `firestore:"status" json:"status"`
	AddedAt         int64         `firestore:"addedAt" json:"addedAt"` // unix millis
	Clicks          int           `firestore:"clicks" json:"clicks" validate:"gte=0"`
	Likes           []string      `firestore:"likes" json:"likes"`
	CommentsCount   int           `firestore:"commentsCount" json:"commentsCount" validate:"gte=0"`
	AuthorName      string        `firestore:"authorName,omitempty" json:"authorName,omitempty"`
	AuthorPhoto     string        `firestore:"authorPhoto,omitempty" json:"authorPhoto,omitempty"`
	AuthorID        string        `firestore:"authorId,omitempty" json:"authorId,omitempty"`
	Curated         bool          `firestore:"isGestor,omitempty" json:"isGestor,omitempty"`
	Featured        bool          `firestore:"isFeatured,omitempty" json:"isFeatured,omitempty"`
}

// Added returns AddedAt as a time.
func (p Product) Added() time.Time {
	return time.UnixMilli(p.AddedAt)
}

// LikedBy reports whether uid is in the like set.
func (p Product) LikedBy(uid string) bool {
	return slices.Contains(p.Likes, uid)
}

// WithLike returns a copy with uid added to or removed from the like set.
// A uid is never present twice.
func (p Product) WithLike(uid string, liked bool) Product {
	likes := make([]string, 0, len(p.Likes)+1)
	for _, l := range p.Likes {
		if l != uid {
			likes = append(likes, l)
		}
	}
	if liked {
		likes = append(likes, uid)
	}
	p.Likes = likes
	return p
}

// OwnedBy reports whether uid authored the product.
func (p Product) OwnedBy(uid string) bool {
	return uid != "" && p.AuthorID == uid
}

// ProductPatch carries the fields of a partial update. Nil fields are left untouched.
type ProductPatch struct {
	URL             *string        `json:"url,omitempty" validate:"omitempty,url"`
	Title           *string        `json:"title,omitempty" validate:"omitempty,min=1,max=300"`
	Description     *string        `json:"description,omitempty"`
	Category        *string        `json:"category,omitempty"`
	EstimatedPrice  *string        `json:"estimatedPrice,omitempty"`
	ImageURL        *string        `json:"imageUrl,omitempty" validate:"omitempty,url"`
	ImageSearchTerm *string        `json:"imageSearchTerm,omitempty"`
	Status          *ProductStatus `json:"status,omitempty"`
	Curated         *bool          `json:"isGestor,omitempty"`
	Featured        *bool          `json:"isFeatured,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ProductPatch) Empty() bool {
	return p.URL == nil && p.Title == nil && p.Description == nil && p.Category == nil &&
		p.EstimatedPrice == nil && p.ImageURL == nil && p.ImageSearchTerm == nil &&
		p.Status == nil && p.Curated == nil && p.Featured == nil
}
