package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/pauljones0/deals-storefront/internal/models"
)

const defaultDisplayName = "Usuário"

type ProfileStore interface {
	GetUserProfile(ctx context.Context, uid string) (*models.UserProfile, error)
	SaveUserProfile(ctx context.Context, u models.UserProfile) error
}

// Service verifies tokens, keeps user profiles current and tells listeners
// about sign-in and sign-out.
type Service struct {
	verifiers    []Verifier
	profiles     ProfileStore
	curatorEmail string

	mu        sync.Mutex
	listeners map[int]func(*models.UserProfile)
	nextID    int
}

func NewService(profiles ProfileStore, curatorEmail string, verifiers ...Verifier) *Service {
	return &Service{
		verifiers:    verifiers,
		profiles:     profiles,
		curatorEmail: strings.TrimSpace(curatorEmail),
		listeners:    make(map[int]func(*models.UserProfile)),
	}
}

// Authenticate tries each verifier in turn. Verifiers that aren't configured
// are skipped; if none is configured the result is ErrNotConfigured.
func (s *Service) Authenticate(ctx context.Context, token string) (Claims, error) {
	if strings.TrimSpace(token) == "" {
		return Claims{}, fmt.Errorf("missing token: %w", models.ErrPermissionDenied)
	}

	var lastErr error
	for _, v := range s.verifiers {
		claims, err := v.Verify(ctx, token)
		if err == nil {
			return claims, nil
		}
		if errors.Is(err, models.ErrNotConfigured) && lastErr != nil {
			continue
		}
		lastErr = err
	}
	if lastErr == nil {
		return Claims{}, fmt.Errorf("identity: %w", models.ErrNotConfigured)
	}
	return Claims{}, lastErr
}

// MergeProfile folds fresh claims into a stored profile. Saved products are
// always kept and a missing name falls back to a placeholder.
func MergeProfile(stored *models.UserProfile, c Claims) models.UserProfile {
	var out models.UserProfile
	if stored != nil {
		out = *stored
	}
	out.UID = c.Subject
	if c.Name != "" {
		out.DisplayName = c.Name
	}
	if out.DisplayName == "" {
		out.DisplayName = defaultDisplayName
	}
	if c.Email != "" {
		out.Email = c.Email
	}
	if c.PictureURL != "" {
		out.PhotoURL = c.PictureURL
	}
	if out.SavedProducts == nil {
		out.SavedProducts = []string{}
	}
	return out
}

// Login verifies token, persists the merged profile and notifies listeners.
func (s *Service) Login(ctx context.Context, token string) (*models.UserProfile, error) {
	claims, err := s.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}

	stored, err := s.profiles.GetUserProfile(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	profile := MergeProfile(stored, claims)
	if err := s.profiles.SaveUserProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}

	slog.Info("User signed in", "uid", profile.UID, "curator", s.IsCurator(profile.Email))
	s.notify(&profile)
	return &profile, nil
}

// Logout only notifies listeners; tokens are stateless.
func (s *Service) Logout(uid string) {
	slog.Info("User signed out", "uid", uid)
	s.notify(nil)
}

// OnAuthChange registers cb for sign-in (profile) and sign-out (nil) events.
func (s *Service) OnAuthChange(cb func(*models.UserProfile)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = cb
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Service) notify(p *models.UserProfile) {
	s.mu.Lock()
	cbs := make([]func(*models.UserProfile), 0, len(s.listeners))
	for _, cb := range s.listeners {
		cbs = append(cbs, cb)
	}
	s.mu.Unlock()

	for _, cb := range cbs {
		cb(p)
	}
}

// IsCurator compares email with the configured curator address, ignoring case.
func (s *Service) IsCurator(email string) bool {
	return s.curatorEmail != "" && strings.EqualFold(strings.TrimSpace(email), s.curatorEmail)
}
