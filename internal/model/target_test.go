package model

import (
	"errors"
	"testing"
)

func TestNewTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		wantURL string
		wantID  string
		wantErr error
	}{
		{
			name:    "http URL without path",
			url:     "http://app.example.com",
			wantURL: "http://app.example.com",
			wantID:  "app_example_com",
		},
		{
			name:    "https URL with path",
			url:     "https://auto.example.com/login/index.html",
			wantURL: "https://auto.example.com/login/index.html",
			wantID:  "auto_example_com",
		},
		{
			name:    "URL without scheme",
			url:     "gcp.example.com/api",
			wantURL: "gcp.example.com/api",
			wantID:  "gcp_example_com",
		},
		{
			name:    "port separator becomes an underscore",
			url:     "http://localhost:8080/",
			wantURL: "http://localhost:8080/",
			wantID:  "localhost_8080",
		},
		{
			name:    "query and fragment are stripped",
			url:     "https://example.org?x=1#top",
			wantURL: "https://example.org?x=1#top",
			wantID:  "example_org",
		},
		{
			name:    "surrounding whitespace is trimmed",
			url:     "  http://a.b.c  ",
			wantURL: "http://a.b.c",
			wantID:  "a_b_c",
		},
		{
			name:    "empty URL",
			url:     "",
			wantErr: ErrEmptyTarget,
		},
		{
			name:    "whitespace only URL",
			url:     "   ",
			wantErr: ErrEmptyTarget,
		},
		{
			name:    "scheme only",
			url:     "https://",
			wantErr: ErrInvalidTarget,
		},
		{
			name:    "query only after scheme",
			url:     "https://?q=1",
			wantErr: ErrInvalidTarget,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			target, err := NewTarget(tt.url)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				if target != (Target{}) {
					t.Errorf("expected zero target on error, got %v", target)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if target.URL() != tt.wantURL {
				t.Errorf("expected URL %q, got %q", tt.wantURL, target.URL())
			}
			if target.ID() != tt.wantID {
				t.Errorf("expected ID %q, got %q", tt.wantID, target.ID())
			}
			if target.String() != tt.wantURL {
				t.Errorf("expected String() %q, got %q", tt.wantURL, target.String())
			}
		})
	}
}

func TestTargetIDIsDeterministic(t *testing.T) {
	t.Parallel()

	urls := []string{
		"http://app.example.com",
		"https://app.example.com/other/path",
		"app.example.com",
	}

	for _, u := range urls {
		if got := TargetID(u); got != "app_example_com" {
			t.Errorf("TargetID(%q) = %q, expected app_example_com", u, got)
		}
	}
}

func TestNewTargets(t *testing.T) {
	t.Parallel()

	t.Run("keeps input order", func(t *testing.T) {
		t.Parallel()

		targets, err := NewTargets([]string{"http://b.example", "http://a.example"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		urls := URLs(targets)
		if len(urls) != 2 || urls[0] != "http://b.example" || urls[1] != "http://a.example" {
			t.Errorf("unexpected order: %v", urls)
		}
	})

	t.Run("fails on first invalid target", func(t *testing.T) {
		t.Parallel()

		_, err := NewTargets([]string{"http://ok.example", ""})
		if !errors.Is(err, ErrEmptyTarget) {
			t.Errorf("expected ErrEmptyTarget, got %v", err)
		}
	})
}
