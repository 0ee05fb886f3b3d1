package genapi

// Artifact is the raw, possibly unusable-as-is, pointer to generated media
// returned by the service. Resolution into a loadable URL is the resolver's
// concern.
type Artifact struct {
	// URL is a direct reference, absolute or relative to the service.
	URL string
	// B64 is an inline-encoded payload for synchronous image results.
	B64 string
}

// SubmitOutcome is the result of a submit call: exactly one of JobID
// (async path) or Artifact (inline image path) is set.
type SubmitOutcome struct {
	JobID    string
	Artifact *Artifact
}

// Async reports whether the outcome requires polling.
func (o *SubmitOutcome) Async() bool {
	return o != nil && o.JobID != ""
}

type submitRequest struct {
	Prompt   string `json:"prompt"`
	Size     string `json:"size,omitempty"`
	Quality  string `json:"quality,omitempty"`
	Duration int    `json:"duration,omitempty"`
}

type submitResponse struct {
	ID   string `json:"id"`
	Data []struct {
		URL string `json:"url"`
		B64 string `json:"b64_json"`
	} `json:"data"`
}

func (r submitResponse) firstArtifact() *Artifact {
	for _, d := range r.Data {
		if d.URL != "" || d.B64 != "" {
			return &Artifact{URL: d.URL, B64: d.B64}
		}
	}
	return nil
}

// Generation is one entry of a status report's result list.
type Generation struct {
	Video      string `json:"video"`
	ContentURL string `json:"contentUrl"`
	B64        string `json:"b64_json"`
}

// StatusReport is the raw poll response for an async job. Status is the
// service's own vocabulary; the orchestrator's state machine decides what it
// means.
type StatusReport struct {
	Status        string       `json:"status"`
	Generations   []Generation `json:"generations"`
	FailureReason string       `json:"failure_reason"`
}
