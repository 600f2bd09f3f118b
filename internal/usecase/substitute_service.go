package usecase

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/substifinder/backend/internal/domain"
)

// defaultPriceMargin is the accepted deviation from the reference price,
// in percent, when filtering candidates by price range.
const defaultPriceMargin = 30.0

// IterationDetail is everything the operator needs to work one iteration:
// the original product, its current catalog price, and any substitutes
// already confirmed.
type IterationDetail struct {
	Item  domain.WorkItem     `json:"item"`
	Price string              `json:"precoLojaProgramada"`
	Saved []domain.Substitute `json:"saved"`
}

// SearchOutcome is the completion message of a background find. Err is
// set only when the iteration itself is unknown; search degradations
// (fallback terms, no matches) still complete successfully.
type SearchOutcome struct {
	Iteration  int                `json:"nIteracao"`
	Terms      []string           `json:"terms"`
	Candidates []domain.Candidate `json:"candidates"`
	Err        error              `json:"-"`
}

// SubstituteService orchestrates the full substitute-selection flow:
// work list → term generation → ranked search → ledger.
type SubstituteService struct {
	catalog  domain.Catalog
	workList domain.WorkList
	ledger   domain.Ledger
	terms    *TermService
	search   *SearchService
	logger   *log.Logger
}

// NewSubstituteService creates the orchestration service with its
// collaborators.
func NewSubstituteService(
	catalog domain.Catalog,
	workList domain.WorkList,
	ledger domain.Ledger,
	terms *TermService,
	search *SearchService,
	logger *log.Logger,
) *SubstituteService {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &SubstituteService{
		catalog:  catalog,
		workList: workList,
		ledger:   ledger,
		terms:    terms,
		search:   search,
		logger:   logger,
	}
}

// LoadIteration returns the work item for an iteration, its current
// catalog price ("N/A" when the product left the catalog) and the
// substitutes already saved for it.
func (s *SubstituteService) LoadIteration(iteration int) (IterationDetail, error) {
	item, ok := s.workList.Item(iteration)
	if !ok {
		return IterationDetail{}, fmt.Errorf("%w: iteration %d not in work list", domain.ErrInvalidRequest, iteration)
	}

	price := "N/A"
	if entry, found := s.catalog.FindByCode(item.Code); found {
		price = entry.Price
	} else if item.Code != "" {
		s.logger.Warn("original product not in catalog", "code", item.Code)
	}

	return IterationDetail{
		Item:  item,
		Price: price,
		Saved: s.ledger.Record(iteration).Substitutes(),
	}, nil
}

// FindSubstitutes generates terms and searches the catalog for one
// iteration on a background goroutine, delivering the result on the
// returned completion channel. Term generation always finishes (success
// or fallback) before the search starts. maxResults and minSimilarity
// override the configured search defaults when positive. The channel is
// buffered, so an operator who navigated away simply never reads it; the
// ledger is not touched by a background find.
func (s *SubstituteService) FindSubstitutes(ctx context.Context, iteration, maxResults, minSimilarity int) <-chan SearchOutcome {
	out := make(chan SearchOutcome, 1)

	go func() {
		defer close(out)

		item, ok := s.workList.Item(iteration)
		if !ok {
			out <- SearchOutcome{
				Iteration: iteration,
				Err:       fmt.Errorf("%w: iteration %d not in work list", domain.ErrInvalidRequest, iteration),
			}
			return
		}

		priceHint := ""
		if entry, found := s.catalog.FindByCode(item.Code); found {
			priceHint = entry.Price
		}

		terms := s.terms.GenerateTerms(ctx, item.Name, priceHint)

		exclude := map[string]struct{}{}
		if item.Code != "" {
			exclude[item.Code] = struct{}{}
		}

		out <- SearchOutcome{
			Iteration:  iteration,
			Terms:      terms,
			Candidates: s.search.Search(terms, exclude, maxResults, minSimilarity),
		}
	}()

	return out
}

// ManualSearch runs a single-term search typed by the operator.
func (s *SubstituteService) ManualSearch(query, excludeCode string) []domain.Candidate {
	if strings.TrimSpace(query) == "" {
		return []domain.Candidate{}
	}

	exclude := map[string]struct{}{}
	if excludeCode != "" {
		exclude[excludeCode] = struct{}{}
	}
	return s.search.Search([]string{query}, exclude, 0, 0)
}

// SaveSubstitutes persists the operator's confirmed selection for an
// iteration. The ledger reports persistence problems as errors rather
// than swallowing them.
func (s *SubstituteService) SaveSubstitutes(iteration int, subs []domain.Substitute) error {
	return s.ledger.SaveSelection(iteration, subs)
}

// Progress returns how many iterations are completed, the total, and the
// completion percentage.
func (s *SubstituteService) Progress() (completed, total int, percent float64) {
	completed = s.ledger.CompletedCount()
	total = s.ledger.TotalCount()
	if total > 0 {
		percent = float64(completed) / float64(total) * 100
	}
	return completed, total, percent
}

// FilterByPriceRange keeps candidates priced within marginPercent of the
// reference price. An unparseable reference disables the filter; an
// unparseable candidate price counts as zero rather than aborting.
func (s *SubstituteService) FilterByPriceRange(
	candidates []domain.Candidate,
	referencePrice string,
	marginPercent float64,
) []domain.Candidate {
	reference, err := parsePrice(referencePrice)
	if err != nil {
		s.logger.Warn("unparseable reference price, price filter skipped", "price", referencePrice)
		return candidates
	}
	if marginPercent <= 0 {
		marginPercent = defaultPriceMargin
	}

	minPrice := reference * (1 - marginPercent/100)
	maxPrice := reference * (1 + marginPercent/100)

	filtered := make([]domain.Candidate, 0, len(candidates))
	for _, cand := range candidates {
		price, err := parsePrice(cand.Price)
		if err != nil {
			price = 0
		}
		if price >= minPrice && price <= maxPrice {
			filtered = append(filtered, cand)
		}
	}
	return filtered
}

// parsePrice converts a locale-formatted price ("10,99") to a float.
func parsePrice(s string) (float64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	return strconv.ParseFloat(cleaned, 64)
}
