// Package catalog loads the active-items CSV and serves it as an
// immutable in-memory index for the process lifetime.
package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/substifinder/backend/internal/domain"
	"github.com/substifinder/backend/internal/normalizer"
)

// Required catalog columns. Loading aborts when any is missing.
const (
	colCode  = "cod_produto"
	colName  = "nome"
	colPrice = "preco_loja_programada"
)

// Index holds the loaded catalog. Read-only after Load, safe for
// unrestricted concurrent reads.
type Index struct {
	entries []domain.CatalogEntry
	byCode  map[string]int
	logger  *log.Logger
}

// Load reads the catalog CSV at path and builds the index.
func Load(path string, logger *log.Logger) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogLoad, err)
	}
	defer f.Close()

	return load(f, logger)
}

func load(r io.Reader, logger *log.Logger) (*Index, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", domain.ErrCatalogLoad, err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{colCode, colName, colPrice} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: required column %q not found", domain.ErrCatalogLoad, required)
		}
	}

	idx := &Index{
		byCode: make(map[string]int),
		logger: logger,
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: reading rows: %v", domain.ErrCatalogLoad, err)
		}

		code := field(record, cols[colCode])
		name := field(record, cols[colName])
		price := field(record, cols[colPrice])

		// Fully blank rows and rows with neither identifier are dropped.
		if code == "" && name == "" {
			continue
		}

		// Duplicate codes collapse to the first occurrence, keeping
		// catalog order stable.
		if _, seen := idx.byCode[code]; seen {
			continue
		}

		idx.byCode[code] = len(idx.entries)
		idx.entries = append(idx.entries, domain.CatalogEntry{
			Code:           code,
			Name:           name,
			Price:          price,
			NormalizedName: normalizer.Normalize(name),
		})
	}

	logger.Info("catalog loaded", "items", len(idx.entries))
	return idx, nil
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// FindByCode returns the entry with the given product code.
func (idx *Index) FindByCode(code string) (domain.CatalogEntry, bool) {
	i, ok := idx.byCode[code]
	if !ok {
		return domain.CatalogEntry{}, false
	}
	return idx.entries[i], true
}

// Entries returns the catalog in insertion order. Callers must not mutate
// the returned slice.
func (idx *Index) Entries() []domain.CatalogEntry {
	return idx.entries
}

// Size returns the number of catalog entries.
func (idx *Index) Size() int {
	return len(idx.entries)
}
