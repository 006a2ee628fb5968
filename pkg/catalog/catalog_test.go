package catalog

import (
	"errors"
	"fmt"
	"testing"
)

func TestArtistResponse_PrimaryImage(t *testing.T) {
	tests := []struct {
		name   string
		images []ImageResponse
		want   string
	}{
		{
			name:   "no images",
			images: nil,
			want:   "",
		},
		{
			name: "only secondary",
			images: []ImageResponse{
				{Type: "secondary", ResourceURL: "https://img/secondary.jpg"},
			},
			want: "",
		},
		{
			name: "first primary wins",
			images: []ImageResponse{
				{Type: "secondary", ResourceURL: "https://img/secondary.jpg"},
				{Type: "primary", ResourceURL: "https://img/first.jpg"},
				{Type: "primary", ResourceURL: "https://img/second.jpg"},
			},
			want: "https://img/first.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &ArtistResponse{Images: tt.images}
			if got := a.PrimaryImage(); got != tt.want {
				t.Errorf("PrimaryImage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPage_HasMore(t *testing.T) {
	tests := []struct {
		page Page
		want bool
	}{
		{Page{Page: 1, Pages: 1}, false},
		{Page{Page: 1, Pages: 3}, true},
		{Page{Page: 3, Pages: 3}, false},
		{Page{Page: 1, Pages: 0}, false},
	}

	for _, tt := range tests {
		if got := tt.page.HasMore(); got != tt.want {
			t.Errorf("%+v HasMore() = %v, want %v", tt.page, got, tt.want)
		}
	}
}

func TestError_KindMatching(t *testing.T) {
	cause := errors.New("HTTP 404")
	err := fmt.Errorf("load: %w", NewTransportError("releases", cause))

	if !errors.Is(err, ErrTransport) {
		t.Error("expected errors.Is(err, ErrTransport)")
	}
	if errors.Is(err, ErrValidation) {
		t.Error("transport error must not match ErrValidation")
	}
	if !errors.Is(err, cause) {
		t.Error("expected the original cause to be reachable")
	}
	if got := MessageOf(err); got != "HTTP 404" {
		t.Errorf("MessageOf() = %q, want %q", got, "HTTP 404")
	}
}

func TestError_Error(t *testing.T) {
	err := NewValidationError("search", errors.New("pagination.page is invalid"))
	want := "search: validation error: pagination.page is invalid"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestMessageOf(t *testing.T) {
	if got := MessageOf(nil); got != "" {
		t.Errorf("MessageOf(nil) = %q, want empty", got)
	}
	if got := MessageOf(errors.New("boom")); got != "boom" {
		t.Errorf("MessageOf(plain) = %q, want boom", got)
	}
	if got := MessageOf(&Error{Kind: KindTransport, Op: "x"}); got != "" {
		t.Errorf("MessageOf(no cause) = %q, want empty", got)
	}
}
