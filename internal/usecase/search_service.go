package usecase

import (
	"io"
	"math/rand"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/substifinder/backend/internal/domain"
	"github.com/substifinder/backend/internal/normalizer"
)

// Exact-phase scoring: the most specific term scores 100, each more
// generic term is penalized 5 points.
const (
	exactBaseScore   = 100
	exactTermPenalty = 5
)

// fuzzySampleSeed keeps the fuzzy-phase sample deterministic across calls.
const fuzzySampleSeed = 42

// SearchConfig holds configuration for the search service
type SearchConfig struct {
	MaxResults      int
	MinSimilarity   int
	FuzzySampleSize int
}

// SearchService ranks catalog entries against an ordered term list using
// an exact substring phase followed by a bounded fuzzy phase.
type SearchService struct {
	catalog         domain.Catalog
	maxResults      int
	minSimilarity   int
	fuzzySampleSize int
	logger          *log.Logger
}

// NewSearchService creates a new search service over the given catalog
func NewSearchService(catalog domain.Catalog, config SearchConfig, logger *log.Logger) *SearchService {
	maxResults := config.MaxResults
	if maxResults <= 0 {
		maxResults = 50
	}
	minSimilarity := config.MinSimilarity
	if minSimilarity <= 0 || minSimilarity > 100 {
		minSimilarity = 60
	}
	sampleSize := config.FuzzySampleSize
	if sampleSize <= 0 {
		sampleSize = 1000
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &SearchService{
		catalog:         catalog,
		maxResults:      maxResults,
		minSimilarity:   minSimilarity,
		fuzzySampleSize: sampleSize,
		logger:          logger,
	}
}

// Search ranks catalog entries against the ordered terms, most specific
// first. excludeCodes are never returned; the caller puts the original
// product's own code there so a product cannot substitute itself.
// maxResults and minSimilarity fall back to the configured defaults when
// non-positive. No matches is an empty result, not an error.
func (s *SearchService) Search(
	terms []string,
	excludeCodes map[string]struct{},
	maxResults int,
	minSimilarity int,
) []domain.Candidate {
	if maxResults <= 0 {
		maxResults = s.maxResults
	}
	if minSimilarity <= 0 || minSimilarity > 100 {
		minSimilarity = s.minSimilarity
	}
	if len(terms) == 0 {
		return []domain.Candidate{}
	}

	seen := make(map[string]struct{}, len(excludeCodes))
	for code := range excludeCodes {
		seen[code] = struct{}{}
	}

	results := s.exactPhase(terms, seen, maxResults)

	if len(results) < maxResults {
		remaining := maxResults - len(results)
		results = append(results, s.fuzzyPhase(terms[0], seen, remaining, minSimilarity)...)
	}

	// Highest score first; insertion order breaks ties, so exact matches
	// of the same term keep catalog order.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > maxResults {
		results = results[:maxResults]
	}

	s.logger.Debug("search finished", "terms", len(terms), "candidates", len(results))
	return results
}

// exactPhase collects every entry whose normalized name contains a
// normalized term as a substring, scanning terms most specific first and
// stopping once maxResults entries have accumulated.
func (s *SearchService) exactPhase(terms []string, seen map[string]struct{}, maxResults int) []domain.Candidate {
	results := []domain.Candidate{}

	for i, term := range terms {
		normalized := normalizer.Normalize(term)
		if normalized == "" {
			continue
		}

		for _, entry := range s.catalog.Entries() {
			if _, dup := seen[entry.Code]; dup {
				continue
			}
			if !strings.Contains(entry.NormalizedName, normalized) {
				continue
			}

			seen[entry.Code] = struct{}{}
			results = append(results, domain.Candidate{
				Code:        entry.Code,
				Name:        entry.Name,
				Price:       entry.Price,
				Score:       exactBaseScore - exactTermPenalty*i,
				MatchedTerm: term,
				MatchKind:   domain.MatchExact,
			})
		}

		if len(results) >= maxResults {
			break
		}
	}

	return results
}

// fuzzyPhase scans a deterministic sample of the catalog with the single
// most specific term, keeping entries whose partial-overlap similarity
// reaches minSimilarity. The bounded sample trades recall on very large
// catalogs for predictable latency; the cap is configurable.
func (s *SearchService) fuzzyPhase(term string, seen map[string]struct{}, maxResults, minSimilarity int) []domain.Candidate {
	normalized := normalizer.Normalize(term)
	if normalized == "" {
		return nil
	}

	var results []domain.Candidate
	for _, entry := range s.sampleEntries() {
		if _, dup := seen[entry.Code]; dup {
			continue
		}
		if entry.NormalizedName == "" {
			continue
		}

		similarity := fuzzy.PartialRatio(normalized, entry.NormalizedName)
		if similarity < minSimilarity {
			continue
		}

		results = append(results, domain.Candidate{
			Code:        entry.Code,
			Name:        entry.Name,
			Price:       entry.Price,
			Score:       similarity,
			MatchedTerm: term,
			MatchKind:   domain.MatchFuzzy,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}

// sampleEntries returns the whole catalog when it fits the sample cap,
// otherwise a fixed-seed random subset of cap size.
func (s *SearchService) sampleEntries() []domain.CatalogEntry {
	entries := s.catalog.Entries()
	if len(entries) <= s.fuzzySampleSize {
		return entries
	}

	rng := rand.New(rand.NewSource(fuzzySampleSeed))
	perm := rng.Perm(len(entries))

	sample := make([]domain.CatalogEntry, s.fuzzySampleSize)
	for i := range sample {
		sample[i] = entries[perm[i]]
	}
	return sample
}
