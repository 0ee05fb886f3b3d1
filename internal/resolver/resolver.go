package resolver

import (
	"fmt"
	"net/url"
	"strings"

	"genassist/internal/domain"
	"genassist/internal/genapi"
)

// CandidateFromReport extracts the artifact reference from a terminal status
// report, in priority order: direct media reference, secondary content
// reference, inline-encoded payload.
func CandidateFromReport(report *genapi.StatusReport, kind domain.Kind) (string, error) {
	if report != nil {
		for _, g := range report.Generations {
			if ref := strings.TrimSpace(g.Video); ref != "" {
				return ref, nil
			}
		}
		for _, g := range report.Generations {
			if ref := strings.TrimSpace(g.ContentURL); ref != "" {
				return ref, nil
			}
		}
		for _, g := range report.Generations {
			if g.B64 != "" {
				return dataURL(kind, g.B64), nil
			}
		}
	}
	return "", domain.ErrMissingArtifact
}

// CandidateFromArtifact extracts the reference from an inline submit result.
func CandidateFromArtifact(artifact *genapi.Artifact, kind domain.Kind) (string, error) {
	if artifact != nil {
		if ref := strings.TrimSpace(artifact.URL); ref != "" {
			return ref, nil
		}
		if artifact.B64 != "" {
			return dataURL(kind, artifact.B64), nil
		}
	}
	return "", domain.ErrMissingArtifact
}

func dataURL(kind domain.Kind, b64 string) string {
	mime := "image/png"
	if kind == domain.KindVideo {
		mime = "video/mp4"
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, b64)
}

// Strategy turns a raw artifact reference into a consumer-loadable URL.
// Resolve reports false when the strategy does not apply to the reference.
// Strategies are tried in list order; which runtime quirks each one works
// around is the caller's configuration concern, so a non-browser consumer
// can install a single trivial strategy.
type Strategy interface {
	Name() string
	Resolve(ref string) (string, bool)
}

// Resolution is a resolved URL plus the cursor needed to escalate to the
// next strategy if the consumer rejects this one at render time.
type Resolution struct {
	URL      string
	Strategy string
	next     int
}

// Resolver applies the strategy list.
type Resolver struct {
	strategies []Strategy
}

// New builds a resolver for the deployment's asset base URL and credential.
// The default list: pass through self-contained and public URLs, then embed
// the credential as a query token (for native media elements that cannot
// attach headers), then fall back to a credentialed-header variant.
func New(baseURL string, credential string) *Resolver {
	return &Resolver{strategies: []Strategy{
		DirectStrategy{},
		TokenQueryStrategy{BaseURL: baseURL, Token: credential},
		CredentialHeaderStrategy{BaseURL: baseURL},
	}}
}

// NewWithStrategies builds a resolver with an explicit strategy list.
func NewWithStrategies(strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies}
}

// Resolve returns the first applicable strategy's URL for ref.
func (r *Resolver) Resolve(ref string) (*Resolution, error) {
	return r.resolveFrom(ref, 0)
}

// Fallback produces the next URL variant after the consumer rejected the
// previous resolution. It fails with ErrPlaybackUnavailable once the
// strategy list is exhausted.
func (r *Resolver) Fallback(ref string, prev *Resolution) (*Resolution, error) {
	if prev == nil {
		return r.Resolve(ref)
	}
	res, err := r.resolveFrom(ref, prev.next)
	if err != nil {
		return nil, domain.ErrPlaybackUnavailable
	}
	return res, nil
}

func (r *Resolver) resolveFrom(ref string, start int) (*Resolution, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, domain.ErrMissingArtifact
	}
	for i := start; i < len(r.strategies); i++ {
		if resolved, ok := r.strategies[i].Resolve(ref); ok {
			return &Resolution{URL: resolved, Strategy: r.strategies[i].Name(), next: i + 1}, nil
		}
	}
	if start == 0 {
		return nil, domain.ErrMissingArtifact
	}
	return nil, domain.ErrPlaybackUnavailable
}

// DirectStrategy passes through references that are already loadable:
// absolute public URLs and data URLs.
type DirectStrategy struct{}

func (DirectStrategy) Name() string { return "direct" }

func (DirectStrategy) Resolve(ref string) (string, bool) {
	if strings.HasPrefix(ref, "data:") {
		return ref, true
	}
	if isAbsolute(ref) {
		return ref, true
	}
	return "", false
}

// TokenQueryStrategy resolves backend-relative paths against the deployment
// base URL and embeds the credential as a token query parameter.
type TokenQueryStrategy struct {
	BaseURL string
	Token   string
}

func (TokenQueryStrategy) Name() string { return "token-query" }

func (s TokenQueryStrategy) Resolve(ref string) (string, bool) {
	resolved, ok := joinBase(s.BaseURL, ref)
	if !ok {
		return "", false
	}
	u, err := url.Parse(resolved)
	if err != nil {
		return "", false
	}
	if s.Token != "" {
		q := u.Query()
		q.Set("token", s.Token)
		u.RawQuery = q.Encode()
	}
	return u.String(), true
}

// CredentialHeaderStrategy resolves backend-relative paths to an absolute
// URL that the consumer is expected to fetch with an Authorization header.
type CredentialHeaderStrategy struct {
	BaseURL string
}

func (CredentialHeaderStrategy) Name() string { return "credential-header" }

func (s CredentialHeaderStrategy) Resolve(ref string) (string, bool) {
	return joinBase(s.BaseURL, ref)
}

func isAbsolute(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

func joinBase(base, ref string) (string, bool) {
	if isAbsolute(ref) || strings.HasPrefix(ref, "data:") {
		return "", false
	}
	base = strings.TrimRight(base, "/")
	if base == "" {
		return "", false
	}
	return base + "/" + strings.TrimLeft(ref, "/"), true
}
