// Package identity turns sign-in tokens into verified claims and user profiles.
package identity

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/idtoken"

	"github.com/pauljones0/deals-storefront/internal/models"
)

// Claims is what the storefront keeps from a verified token.
type Claims struct {
	Subject    string `json:"sub"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	PictureURL string `json:"picture"`
}

type Verifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

func stringClaim(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// verifiedEmail returns the email claim only when the issuer marked it
// verified. Curator rights are granted by email.
func verifiedEmail(m map[string]any) string {
	switch v := m["email_verified"].(type) {
	case bool:
		if v {
			return stringClaim(m, "email")
		}
	case string:
		if v == "true" {
			return stringClaim(m, "email")
		}
	}
	return ""
}

// GoogleVerifier checks Google Identity credentials issued for clientID.
type GoogleVerifier struct {
	clientID string
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID, validate: idtoken.Validate}
}

func (g *GoogleVerifier) Verify(ctx context.Context, token string) (Claims, error) {
	if g.clientID == "" {
		return Claims{}, fmt.Errorf("google client id: %w", models.ErrNotConfigured)
	}
	payload, err := g.validate(ctx, token, g.clientID)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: google credential: %w", models.ErrPermissionDenied, err)
	}
	return Claims{
		Subject:    payload.Subject,
		Name:       stringClaim(payload.Claims, "name"),
		Email:      verifiedEmail(payload.Claims),
		PictureURL: stringClaim(payload.Claims, "picture"),
	}, nil
}

type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseVerifier checks Firebase Auth ID tokens.
type FirebaseVerifier struct {
	client idTokenVerifier
}

func NewFirebaseVerifier(ctx context.Context, projectID string) (*FirebaseVerifier, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("firebase.NewApp: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth client: %w", err)
	}
	return &FirebaseVerifier{client: client}, nil
}

func (f *FirebaseVerifier) Verify(ctx context.Context, token string) (Claims, error) {
	if f == nil || f.client == nil {
		return Claims{}, fmt.Errorf("firebase auth: %w", models.ErrNotConfigured)
	}
	tok, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: firebase token: %w", models.ErrPermissionDenied, err)
	}
	return Claims{
		Subject:    tok.UID,
		Name:       stringClaim(tok.Claims, "name"),
		Email:      verifiedEmail(tok.Claims),
		PictureURL: stringClaim(tok.Claims, "picture"),
	}, nil
}
