package model

import "time"

// EvidenceChunk is a bounded span of a source document presented to the
// reasoner as grounding material
type EvidenceChunk struct {
	Text       string         `json:"text"`                // Chunk text
	Source     string         `json:"source"`              // Provenance label (file name, publisher, feed host)
	Score      float64        `json:"score"`               // Normalised relevance in [0,1], higher is better
	ChunkIndex *int           `json:"chunk_index"`         // Ordinal within the source document, nil when unknown
	URL        string         `json:"url,omitempty"`       // Canonical URL if known
	Title      string         `json:"title,omitempty"`     // Document title if known
	Published  *time.Time     `json:"published,omitempty"` // Publication time if known
	Origin     EvidenceOrigin `json:"origin,omitempty"`    // local or online
	Authority  AuthorityTier  `json:"authority,omitempty"` // Source authority classification (online only)
}

// EvidenceOrigin records where a chunk came from
type EvidenceOrigin string

const (
	OriginLocal  EvidenceOrigin = "local"  // Curated, locally indexed corpus
	OriginOnline EvidenceOrigin = "online" // Live expansion
)

// Clone returns a deep copy so callers never alias chunks across calls
func (c EvidenceChunk) Clone() EvidenceChunk {
	out := c
	if c.ChunkIndex != nil {
		idx := *c.ChunkIndex
		out.ChunkIndex = &idx
	}
	if c.Published != nil {
		ts := *c.Published
		out.Published = &ts
	}
	return out
}

// IntPtr is a small helper for optional chunk indexes
func IntPtr(v int) *int {
	return &v
}

// Citation is a structured reference to one supplied evidence source
type Citation struct {
	Source string `json:"source"`
	URL    string `json:"url,omitempty"`
}

// AuthorityTier represents the classification of source authority
type AuthorityTier int

const (
	TierUnknown   AuthorityTier = 0 // Not yet classified
	TierPrimary   AuthorityTier = 1 // Regulators, filings, investor-relations sites
	TierSecondary AuthorityTier = 2 // Wire services and major financial press
	TierTertiary  AuthorityTier = 3 // Everything else
)

func (t AuthorityTier) String() string {
	switch t {
	case TierPrimary:
		return "primary"
	case TierSecondary:
		return "secondary"
	case TierTertiary:
		return "tertiary"
	default:
		return "unknown"
	}
}
