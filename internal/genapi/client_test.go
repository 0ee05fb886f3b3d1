package genapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"genassist/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(Options{
		BaseURL:     srv.URL,
		Credentials: StaticCredential("secret-token"),
		HTTPClient:  srv.Client(),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, srv
}

func TestSubmitVideoReturnsJobID(t *testing.T) {
	var gotAuth, gotPath string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"job1"}`))
	})

	outcome, err := client.Submit(context.Background(), domain.KindVideo, "a red balloon rising", domain.Params{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !outcome.Async() || outcome.JobID != "job1" {
		t.Fatalf("outcome = %+v, want async job1", outcome)
	}
	if outcome.Artifact != nil {
		t.Fatalf("async outcome must not carry an artifact")
	}
	if gotAuth != "Bearer secret-token" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if gotPath != "/generate/video" {
		t.Fatalf("path = %q", gotPath)
	}
}

func TestSubmitImageInlineArtifact(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"url":"https://x/img.png"}]}`))
	})

	outcome, err := client.Submit(context.Background(), domain.KindImage, "a storefront logo", domain.Params{Size: "1024x1024"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome.Async() {
		t.Fatalf("inline outcome must not carry a job id")
	}
	if outcome.Artifact == nil || outcome.Artifact.URL != "https://x/img.png" {
		t.Fatalf("artifact = %+v", outcome.Artifact)
	}
}

func TestSubmitRejectsEmptyPrompt(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("no request expected")
	})
	if _, err := client.Submit(context.Background(), domain.KindImage, "   ", domain.Params{}); err == nil {
		t.Fatalf("expected error for empty prompt")
	}
}

func TestQueryStatusDecodesReport(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate/video/job1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"status":"succeeded","generations":[{"video":"https://x/y.mp4"}]}`))
	})

	report, err := client.QueryStatus(context.Background(), domain.KindVideo, "job1")
	if err != nil {
		t.Fatalf("query status: %v", err)
	}
	if report.Status != "succeeded" {
		t.Fatalf("status = %q", report.Status)
	}
	if len(report.Generations) != 1 || report.Generations[0].Video != "https://x/y.mp4" {
		t.Fatalf("generations = %+v", report.Generations)
	}
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		name string
		code int
		want error
	}{
		{"rate limited", http.StatusTooManyRequests, domain.ErrRateLimited},
		{"unauthorized", http.StatusUnauthorized, domain.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, domain.ErrUnauthorized},
		{"service error", http.StatusBadGateway, domain.ErrServiceError},
		{"client error", http.StatusUnprocessableEntity, domain.ErrClientError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tc.code)
			})
			_, err := client.QueryStatus(context.Background(), domain.KindVideo, "job1")
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			var statusErr *StatusError
			if !errors.As(err, &statusErr) || statusErr.Code != tc.code {
				t.Fatalf("expected StatusError with code %d, got %v", tc.code, err)
			}
		})
	}
}

func TestNetworkFailureClassifiedAsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()
	client, err := NewClient(Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.QueryStatus(context.Background(), domain.KindImage, "job1"); !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("err = %v, want network error", err)
	}
}
