package entity

import "github.com/google/uuid"

type Strategy string

const (
	StrategyTag            Strategy = "tag"
	StrategyID             Strategy = "id"
	StrategyName           Strategy = "name"
	StrategyClass          Strategy = "class"
	StrategyAttribute      Strategy = "attribute"
	StrategyText           Strategy = "text"
	StrategyStructuralPath Strategy = "structural-path"
)

// Candidate is a locator proposal. It is only kept when it matches exactly
// one node of the tree it was generated from.
type Candidate struct {
	Type  Strategy `json:"type"`
	Value string   `json:"value"`
}

// LocatorResult is what one capture produces. UniqueLocators is never empty.
type LocatorResult struct {
	ElementName    string      `json:"elementName"`
	ElementType    string      `json:"elementType"`
	UniqueLocators []Candidate `json:"uniqueLocators"`
}

// Identity is the human-facing name/type pair of a captured element.
type Identity struct {
	Name string
	Type string
}

// IdentityHint is what the operator sees when asked to name an element.
type IdentityHint struct {
	Tag        string
	Text       string
	Attributes map[string]string
	Fallback   Identity
}

// CaptureEvent is emitted by the page when the operator clicks an element.
// IndexPath holds element-child indices starting at the document element.
type CaptureEvent struct {
	Tag       string
	IndexPath []int
	URL       string
}

type SessionState string

const (
	SessionIdle      SessionState = "idle"
	SessionCapturing SessionState = "capturing"
	SessionPaused    SessionState = "paused"
)

// Status is the reply to every session-control message.
type Status struct {
	IsCapturing bool `json:"isCapturing"`
	IsPaused    bool `json:"isPaused"`
}

type StopReport struct {
	SessionID uuid.UUID
	Status    Status
	Path      string
	Count     int
	Notice    string
}
