package storefront

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pauljones0/deals-storefront/internal/ai"
	"github.com/pauljones0/deals-storefront/internal/identity"
	"github.com/pauljones0/deals-storefront/internal/models"
	"github.com/pauljones0/deals-storefront/internal/util"
)

// Submission is a new offer as posted by a signed-in user.
type Submission struct {
	URL            string   `json:"url"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Category       string   `json:"category"`
	EstimatedPrice string   `json:"estimatedPrice"`
	ImageURL       string   `json:"imageUrl"`
	ImageURLs      []string `json:"imageUrls"`
	VideoURL       string   `json:"videoUrl"`
}

// affiliateURL normalizes raw and applies the affiliate tag.
func (s *Service) affiliateURL(raw string) (string, error) {
	normalized, err := util.NormalizeURL(raw)
	if err != nil {
		return "", fmt.Errorf("invalid product url: %w: %w", models.ErrInvalidInput, err)
	}
	cleaned, _ := util.CleanReferralLink(normalized, s.amazonTag)
	return cleaned, nil
}

// Publish stores a new offer. A submission without a title on a store that
// enrichment supports is saved as ENRICHING and completed in the background.
func (s *Service) Publish(ctx context.Context, user identity.Claims, sub Submission) (models.Product, error) {
	return s.publish(ctx, user, sub, false)
}

func (s *Service) publish(ctx context.Context, user identity.Claims, sub Submission, forceEnrich bool) (models.Product, error) {
	if err := requireUser(user); err != nil {
		return models.Product{}, err
	}
	link, err := s.affiliateURL(sub.URL)
	if err != nil {
		return models.Product{}, err
	}

	p := models.Product{
		URL:            link,
		Title:          strings.TrimSpace(sub.Title),
		Description:    strings.TrimSpace(sub.Description),
		Category:       strings.TrimSpace(sub.Category),
		EstimatedPrice: strings.TrimSpace(sub.EstimatedPrice),
		ImageURL:       strings.TrimSpace(sub.ImageURL),
		ImageURLs:      sub.ImageURLs,
		VideoURL:       strings.TrimSpace(sub.VideoURL),
		Status:         models.StatusReady,
		AddedAt:        s.now().UnixMilli(),
		AuthorName:     user.Name,
		AuthorPhoto:    user.PictureURL,
		AuthorID:       user.Subject,
		Curated:        s.isCurator(user),
	}

	enrich := p.Title == "" && s.enricher != nil && (forceEnrich || ai.Eligible(link, s.enrichStores))
	switch {
	case enrich:
		p.Status = models.StatusEnriching
	case p.Title == "":
		return models.Product{}, fmt.Errorf("title is required for this store: %w", models.ErrInvalidInput)
	}
	if err := s.validate.ValidateStruct(p); err != nil {
		return models.Product{}, err
	}

	id, err := s.store.AddProduct(ctx, p)
	if err != nil {
		return models.Product{}, fmt.Errorf("failed to publish product: %w", err)
	}
	p.ID = id
	slog.Info("Product published", "id", id, "status", p.Status, "curated", p.Curated)

	if enrich {
		s.background(enrichTimeout, func(ctx context.Context) { s.completeEnrichment(ctx, p) })
	} else {
		s.announce(p)
	}
	return p, nil
}

// completeEnrichment moves an ENRICHING product to READY, or to ERROR when
// nothing could be recovered from its link.
func (s *Service) completeEnrichment(ctx context.Context, p models.Product) {
	e := s.enricher.Enrich(ctx, p.URL)
	if e.Empty() || e.Title == "" {
		status := models.StatusError
		if err := s.store.UpdateProduct(ctx, p.ID, models.ProductPatch{Status: &status}); err != nil {
			slog.Error("Failed to mark product as failed", "id", p.ID, "error", err)
		}
		slog.Warn("Enrichment recovered nothing", "id", p.ID, "url", p.URL)
		return
	}

	status := models.StatusReady
	patch := models.ProductPatch{Status: &status, Title: &e.Title}
	p.Title = e.Title
	p.Status = status
	if e.Description != "" && p.Description == "" {
		patch.Description = &e.Description
		p.Description = e.Description
	}
	if e.Category != "" && p.Category == "" {
		patch.Category = &e.Category
		p.Category = e.Category
	}
	if e.EstimatedPrice != "" && p.EstimatedPrice == "" {
		patch.EstimatedPrice = &e.EstimatedPrice
		p.EstimatedPrice = e.EstimatedPrice
	}
	if e.ImageURL != "" && p.ImageURL == "" {
		patch.ImageURL = &e.ImageURL
		p.ImageURL = e.ImageURL
	}
	if e.ImageSearchTerm != "" {
		patch.ImageSearchTerm = &e.ImageSearchTerm
		p.ImageSearchTerm = e.ImageSearchTerm
	}

	if err := s.store.UpdateProduct(ctx, p.ID, patch); err != nil {
		slog.Error("Failed to save enrichment", "id", p.ID, "error", err)
		return
	}
	slog.Info("Product enriched", "id", p.ID, "title", p.Title)
	s.sendAnnouncement(ctx, p)
}

func (s *Service) announce(p models.Product) {
	if s.announcer == nil || !s.announcer.Enabled() {
		return
	}
	s.background(announceTimeout, func(ctx context.Context) { s.sendAnnouncement(ctx, p) })
}

func (s *Service) sendAnnouncement(ctx context.Context, p models.Product) {
	if s.announcer == nil || !s.announcer.Enabled() {
		return
	}
	msgID, err := s.announcer.Send(ctx, p)
	if err != nil {
		slog.Error("Error sending to Discord", "id", p.ID, "error", err)
		return
	}
	s.mu.Lock()
	s.messages[p.ID] = msgID
	s.mu.Unlock()
}

// refreshAnnouncement edits the announcement of p if one was sent.
func (s *Service) refreshAnnouncement(p models.Product) {
	if s.announcer == nil || !s.announcer.Enabled() {
		return
	}
	s.mu.Lock()
	msgID, ok := s.messages[p.ID]
	s.mu.Unlock()
	if !ok {
		return
	}
	s.background(announceTimeout, func(ctx context.Context) {
		if err := s.announcer.Update(ctx, msgID, p); err != nil {
			slog.Warn("Discord update failed", "id", p.ID, "error", err)
		}
	})
}

// authorize loads id and checks that user owns it or is the curator.
func (s *Service) authorize(ctx context.Context, user identity.Claims, id string) (models.Product, error) {
	if err := requireUser(user); err != nil {
		return models.Product{}, err
	}
	p, err := s.Product(ctx, id)
	if err != nil {
		return models.Product{}, err
	}
	if !p.OwnedBy(user.Subject) && !s.isCurator(user) {
		return models.Product{}, fmt.Errorf("only the author or the curator may change %s: %w", id, models.ErrPermissionDenied)
	}
	return p, nil
}

// Edit applies patch to id. Only the curator may change the curated and
// featured flags.
func (s *Service) Edit(ctx context.Context, user identity.Claims, id string, patch models.ProductPatch) (models.Product, error) {
	p, err := s.authorize(ctx, user, id)
	if err != nil {
		return models.Product{}, err
	}
	if !s.isCurator(user) && (patch.Curated != nil || patch.Featured != nil) {
		return models.Product{}, fmt.Errorf("curator access required: %w", models.ErrPermissionDenied)
	}
	if patch.URL != nil {
		link, err := s.affiliateURL(*patch.URL)
		if err != nil {
			return models.Product{}, err
		}
		patch.URL = &link
	}
	if patch.Empty() {
		return models.Product{}, fmt.Errorf("nothing to update: %w", models.ErrInvalidInput)
	}
	if err := s.validate.ValidateStruct(patch); err != nil {
		return models.Product{}, err
	}

	if err := s.store.UpdateProduct(ctx, id, patch); err != nil {
		return models.Product{}, fmt.Errorf("failed to update product %s: %w", id, err)
	}
	p = applyPatch(p, patch)
	s.refreshAnnouncement(p)
	return p, nil
}

func applyPatch(p models.Product, patch models.ProductPatch) models.Product {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&p.URL, patch.URL)
	set(&p.Title, patch.Title)
	set(&p.Description, patch.Description)
	set(&p.Category, patch.Category)
	set(&p.EstimatedPrice, patch.EstimatedPrice)
	set(&p.ImageURL, patch.ImageURL)
	set(&p.ImageSearchTerm, patch.ImageSearchTerm)
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.Curated != nil {
		p.Curated = *patch.Curated
	}
	if patch.Featured != nil {
		p.Featured = *patch.Featured
	}
	return p
}

func (s *Service) Delete(ctx context.Context, user identity.Claims, id string) error {
	if _, err := s.authorize(ctx, user, id); err != nil {
		return err
	}
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("failed to delete product %s: %w", id, err)
	}
	s.mu.Lock()
	delete(s.messages, id)
	s.mu.Unlock()
	slog.Info("Product deleted", "id", id, "by", user.Subject)
	return nil
}

// SetFeatured flags or unflags id as featured.
func (s *Service) SetFeatured(ctx context.Context, user identity.Claims, id string, featured bool) error {
	if err := s.requireCurator(user); err != nil {
		return err
	}
	p, err := s.Product(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.SetFeatured(ctx, id, featured); err != nil {
		return fmt.Errorf("failed to set featured on %s: %w", id, err)
	}
	p.Featured = featured
	s.refreshAnnouncement(p)
	return nil
}

// Enrich previews enrichment for a link before it is published.
func (s *Service) Enrich(ctx context.Context, rawURL string) (ai.Enrichment, error) {
	link, err := util.NormalizeURL(rawURL)
	if err != nil {
		return ai.Enrichment{}, fmt.Errorf("invalid url: %w: %w", models.ErrInvalidInput, err)
	}
	if s.enricher == nil {
		return ai.Enrichment{}, nil
	}
	return s.enricher.Enrich(ctx, link), nil
}
