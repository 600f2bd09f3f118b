package domain

// CatalogEntry is one product row from the catalog of active items.
// The catalog is loaded once and treated as an immutable snapshot; entries
// are never mutated after load.
type CatalogEntry struct {
	Code           string `json:"codProduto"`
	Name           string `json:"nome"`
	Price          string `json:"precoLojaProgramada"` // locale-formatted, comma decimal ("10,99")
	NormalizedName string `json:"-"`
}

// MatchKind tells how a candidate was found.
type MatchKind string

const (
	MatchExact MatchKind = "exato"
	MatchFuzzy MatchKind = "fuzzy"
)

// Candidate is a ranked substitute suggestion produced by a single search
// call. Candidates are transient and never persisted as-is.
type Candidate struct {
	Code        string    `json:"codProduto"`
	Name        string    `json:"nome"`
	Price       string    `json:"precoLojaProgramada"`
	Score       int       `json:"score"`
	MatchedTerm string    `json:"termoUsado"`
	MatchKind   MatchKind `json:"tipoMatch"`
}
