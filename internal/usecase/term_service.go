package usecase

import (
	"context"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/substifinder/backend/internal/domain"
)

// termCount is the fixed length of every generated term list.
const termCount = 5

// placeholderTerm fills the list when a remote reply parses to nothing.
const placeholderTerm = "produto"

// fallbackStopWords are connectors and unit abbreviations dropped when
// deriving fallback terms from a product name.
var fallbackStopWords = map[string]struct{}{
	"de": {}, "da": {}, "do": {}, "com": {}, "sem": {}, "para": {},
	"c/": {}, "un": {}, "g": {}, "kg": {}, "ml": {}, "l": {},
}

// TermService turns a product name into the ordered 5-term search list:
// cache first, then the remote generator, then a deterministic local
// fallback when the remote call fails.
type TermService struct {
	cache  domain.TermCache
	client domain.TermClient
	logger *log.Logger
}

// NewTermService creates a new term service. client may be nil when no
// API credential is configured; every request then uses the fallback.
func NewTermService(cache domain.TermCache, client domain.TermClient, logger *log.Logger) *TermService {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &TermService{
		cache:  cache,
		client: client,
		logger: logger,
	}
}

// GenerateTerms returns exactly five search terms for the product, most
// specific to most generic. It never fails: remote errors degrade to the
// deterministic fallback, whose output is not cached so a later call can
// retry the remote service.
func (s *TermService) GenerateTerms(ctx context.Context, productName, priceHint string) []string {
	key := strings.ToLower(strings.TrimSpace(productName))

	if cached, ok := s.cache.Get(key); ok {
		s.logger.Debug("term cache hit", "product", productName)
		return cached
	}

	if s.client == nil {
		s.logger.Debug("no term client configured, using fallback", "product", productName)
		return fallbackTerms(productName)
	}

	content, err := s.client.Complete(ctx, productName, priceHint)
	if err != nil {
		s.logger.Warn("term generation failed, using fallback", "product", productName, "err", err)
		return fallbackTerms(productName)
	}

	terms := parseTerms(content)

	if err := s.cache.Put(key, terms); err != nil {
		// The terms are still good; only their durability failed.
		s.logger.Warn("could not persist term cache", "product", productName, "err", err)
	}

	s.logger.Info("terms generated", "product", productName, "terms", terms)
	return terms
}

// parseTerms extracts exactly five terms from the remote reply: one term
// per line, enumeration markers stripped, short lines dropped, the rest
// lowercased. Short lists are padded with the last (most generic) term,
// or "produto" when nothing parsed; long lists keep the first five.
func parseTerms(content string) []string {
	var terms []string
	for _, line := range strings.Split(content, "\n") {
		cleaned := strings.TrimSpace(line)
		cleaned = strings.TrimLeft(cleaned, "0123456789.-) ")
		cleaned = strings.TrimSpace(cleaned)
		if utf8.RuneCountInString(cleaned) > 2 {
			terms = append(terms, strings.ToLower(cleaned))
		}
	}

	for len(terms) < termCount {
		if len(terms) == 0 {
			terms = append(terms, placeholderTerm)
			continue
		}
		terms = append(terms, terms[len(terms)-1])
	}
	return terms[:termCount]
}

// fallbackTerms derives five terms from the product name alone: the full
// lowercased name followed by shrinking prefixes of its meaningful words.
// Pure function of the name; identical input yields identical output.
func fallbackTerms(productName string) []string {
	lowered := strings.ToLower(strings.TrimSpace(productName))
	words := strings.Fields(lowered)

	var meaningful []string
	for _, w := range words {
		if _, stop := fallbackStopWords[w]; stop {
			continue
		}
		if utf8.RuneCountInString(w) <= 2 {
			continue
		}
		meaningful = append(meaningful, w)
	}

	firstN := func(n int) string {
		if len(meaningful) > n {
			return strings.Join(meaningful[:n], " ")
		}
		return strings.Join(meaningful, " ")
	}

	terms := []string{lowered, firstN(4), firstN(3)}

	if len(meaningful) >= 2 {
		terms = append(terms, firstN(2))
	} else if len(meaningful) == 1 {
		terms = append(terms, meaningful[0])
	} else {
		terms = append(terms, lowered)
	}

	if len(meaningful) > 0 {
		terms = append(terms, meaningful[0])
	} else {
		terms = append(terms, lowered)
	}

	// Collapse repeats while keeping order, then pad back to five.
	var unique []string
	for _, term := range terms {
		if term == "" {
			continue
		}
		duplicate := false
		for _, u := range unique {
			if u == term {
				duplicate = true
				break
			}
		}
		if !duplicate {
			unique = append(unique, term)
		}
	}

	for len(unique) < termCount {
		if len(unique) == 0 {
			unique = append(unique, placeholderTerm)
			continue
		}
		unique = append(unique, unique[len(unique)-1])
	}
	return unique[:termCount]
}
