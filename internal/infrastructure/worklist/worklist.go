// Package worklist loads the upstream list of products awaiting
// substitute selection. The source file carries a metadata line before the
// real header, one product per iteration number after it.
package worklist

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/substifinder/backend/internal/domain"
)

const (
	colIteration = "n_iteracao"
	colCode      = "cod_produto"
	colName      = "nome"
)

// List is the loaded work list, keyed by iteration number.
type List struct {
	items       []domain.WorkItem
	byIteration map[int]int
}

// Load reads the work list at path, skipping the leading metadata line.
func Load(path string, logger *log.Logger) (*List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrWorkListLoad, err)
	}
	defer f.Close()

	return load(f, logger)
}

func load(r io.Reader, logger *log.Logger) (*List, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	buffered := bufio.NewReader(r)

	// First line is metadata, not part of the table.
	if _, err := buffered.ReadString('\n'); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: skipping metadata line: %v", domain.ErrWorkListLoad, err)
	}

	reader := csv.NewReader(buffered)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", domain.ErrWorkListLoad, err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	iterCol, ok := cols[colIteration]
	if !ok {
		return nil, fmt.Errorf("%w: required column %q not found", domain.ErrWorkListLoad, colIteration)
	}
	nameCol, hasName := cols[colName]
	codeCol, hasCode := cols[colCode]

	list := &List{byIteration: make(map[int]int)}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: reading rows: %v", domain.ErrWorkListLoad, err)
		}

		iteration, err := strconv.Atoi(strings.TrimSpace(field(record, iterCol)))
		if err != nil || iteration <= 0 {
			// Rows without a positive iteration number are discarded.
			continue
		}

		item := domain.WorkItem{Iteration: iteration}
		if hasCode {
			item.Code = field(record, codeCol)
		}
		if hasName {
			item.Name = field(record, nameCol)
		}

		if _, seen := list.byIteration[iteration]; seen {
			continue
		}
		list.byIteration[iteration] = len(list.items)
		list.items = append(list.items, item)
	}

	logger.Info("work list loaded", "items", len(list.items))
	return list, nil
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// Item returns the work item for the given iteration number.
func (l *List) Item(iteration int) (domain.WorkItem, bool) {
	i, ok := l.byIteration[iteration]
	if !ok {
		return domain.WorkItem{}, false
	}
	return l.items[i], true
}

// Len returns the number of work items.
func (l *List) Len() int {
	return len(l.items)
}

// MaxIteration returns the highest iteration number present, 0 when empty.
// The ledger is sized from it.
func (l *List) MaxIteration() int {
	max := 0
	for n := range l.byIteration {
		if n > max {
			max = n
		}
	}
	return max
}
