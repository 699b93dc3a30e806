package domain

// EndpointSource records where a candidate URL was acquired.
type EndpointSource string

const (
	SourcePrimary  EndpointSource = "primary"
	SourceList     EndpointSource = "list"
	SourceLegacy   EndpointSource = "legacy"
	SourceDerived  EndpointSource = "derived"
	SourceFallback EndpointSource = "fallback"
)

// EndpointCandidate is a validated endpoint URL plus its origin.
type EndpointCandidate struct {
	URL    string         `json:"url"`
	Source EndpointSource `json:"source"`
}
