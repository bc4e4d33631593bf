package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pauljones0/deals-storefront/internal/models"
)

func TestValidator_ValidateStruct(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		value   any
		wantErr bool
	}{
		{
			name:    "Valid Product",
			value:   models.Product{URL: "https://amazon.com.br/dp/1", Title: "Fone", Clicks: 10},
			wantErr: false,
		},
		{
			name:    "Product without title is allowed",
			value:   models.Product{URL: "https://amazon.com.br/dp/1"},
			wantErr: false,
		},
		{
			name:    "Missing URL",
			value:   models.Product{Title: "Fone"},
			wantErr: true,
		},
		{
			name:    "Invalid URL",
			value:   models.Product{URL: "invalid-url"},
			wantErr: true,
		},
		{
			name:    "Negative Clicks",
			value:   models.Product{URL: "https://example.com/oferta", Clicks: -1},
			wantErr: true,
		},
		{
			name:    "Title too long",
			value:   models.Product{URL: "https://example.com/oferta", Title: strings.Repeat("x", 301)},
			wantErr: true,
		},
		{
			name:    "Valid Lead",
			value:   models.Lead{Email: "ana@example.com", ProductID: "p1"},
			wantErr: false,
		},
		{
			name:    "Malformed Lead email",
			value:   models.Lead{Email: "ana@", ProductID: "p1"},
			wantErr: true,
		},
		{
			name:    "Empty Comment",
			value:   models.Comment{ProductID: "p1"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateStruct(tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateStruct() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, models.ErrInvalidInput) {
				t.Errorf("error should wrap ErrInvalidInput: %v", err)
			}
		})
	}
}

func TestProblems(t *testing.T) {
	v := New()
	err := v.ValidateStruct(models.Lead{Email: "nope"})
	want := []string{
		"email must be a valid email address",
		"productId is required",
	}
	if diff := cmp.Diff(want, Problems(err)); diff != "" {
		t.Errorf("Problems() mismatch (-want +got):\n%s", diff)
	}
	if Problems(errors.New("other")) != nil {
		t.Error("Problems of a non-validation error should be nil")
	}
}

func TestVar(t *testing.T) {
	v := New()
	if err := v.Var("ana@example.com", "required,email"); err != nil {
		t.Errorf("Var() error = %v", err)
	}
	if err := v.Var("", "required,email"); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("Var() = %v, want invalid input", err)
	}
}
