// Package ledger persists confirmed substitute selections, one record per
// iteration, as a rectangular CSV store with timestamped backups.
package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/substifinder/backend/internal/domain"
)

const (
	backupPrefix = "substituicoes_backup_"
	backupSuffix = ".csv"

	// Nanosecond precision keeps names distinct across rapid saves and
	// lexicographically ordered by creation time.
	backupTimeLayout = "20060102_150405.000000000"
)

// Store is the selection ledger. All writes are serialized through a
// single mutex; the store is owned by exactly one component instance.
type Store struct {
	path       string
	backupDir  string
	maxBackups int
	logger     *log.Logger

	mu      sync.Mutex
	records map[int]domain.SelectionRecord
	total   int
}

// Open creates a ledger bound to the given canonical path and backup
// directory. Call Initialize before any other operation.
func Open(path, backupDir string, maxBackups int, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Store{
		path:       path,
		backupDir:  backupDir,
		maxBackups: maxBackups,
		logger:     logger,
		records:    make(map[int]domain.SelectionRecord),
	}
}

// Initialize loads the persisted store, or materializes a new one with an
// empty record for every iteration 1..requiredIterations and persists it
// immediately. A persisted store that covers fewer iterations than
// required is extended in memory with empty records.
func (s *Store) Initialize(requiredIterations int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := true
	if _, err := os.Stat(s.path); err == nil {
		if err := s.loadLocked(); err != nil {
			return err
		}
		created = false
	}

	for n := range s.records {
		if n > s.total {
			s.total = n
		}
	}
	if requiredIterations > s.total {
		s.total = requiredIterations
	}
	for n := 1; n <= s.total; n++ {
		if _, ok := s.records[n]; !ok {
			s.records[n] = domain.SelectionRecord{Iteration: n}
		}
	}

	if created {
		if err := s.persistLocked(); err != nil {
			return err
		}
		s.logger.Info("ledger created", "iterations", s.total, "path", s.path)
	} else {
		s.logger.Info("ledger loaded", "iterations", s.total, "path", s.path)
	}
	return nil
}

// Record returns the selection record for an iteration. Out-of-range
// iteration numbers yield an empty record, never an error.
func (s *Store) Record(iteration int) domain.SelectionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[iteration]
	if !ok {
		return domain.SelectionRecord{Iteration: iteration}
	}
	return rec
}

// SaveSelection overwrites the record for the given iteration with up to
// five substitutes, backing up the persisted store first and rewriting it
// wholesale. The store file is replaced via rename, so a concurrent
// reader never observes a partial record.
func (s *Store) SaveSelection(iteration int, subs []domain.Substitute) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if iteration < 1 || iteration > s.total {
		return fmt.Errorf("%w: %d (known range 1..%d)", domain.ErrInvalidIteration, iteration, s.total)
	}

	if err := s.backupLocked(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBackup, err)
	}

	rec := domain.SelectionRecord{Iteration: iteration}
	for i, sub := range subs {
		if i >= domain.MaxSubstitutes {
			break
		}
		rec.Slots[i] = sub
	}
	s.records[iteration] = rec

	if err := s.persistLocked(); err != nil {
		return err
	}

	s.logger.Info("selection saved", "iteration", iteration, "substitutes", len(rec.Substitutes()))
	return nil
}

// CompletedCount returns how many iterations have at least one confirmed
// substitute.
func (s *Store) CompletedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, rec := range s.records {
		if rec.Completed() {
			count++
		}
	}
	return count
}

// TotalCount returns the number of known iterations.
func (s *Store) TotalCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func header() []string {
	cols := []string{"n_iteracao"}
	for i := 1; i <= domain.MaxSubstitutes; i++ {
		cols = append(cols,
			fmt.Sprintf("sub%d_cod_produto", i),
			fmt.Sprintf("sub%d_nome", i),
			fmt.Sprintf("sub%d_preco_loja_programada", i),
		)
	}
	return cols
}

func (s *Store) loadLocked() error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrLedgerPersist, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrLedgerPersist, err)
	}
	if len(rows) == 0 {
		return nil
	}

	cols := map[string]int{}
	for i, name := range rows[0] {
		cols[strings.TrimSpace(name)] = i
	}
	iterCol, ok := cols["n_iteracao"]
	if !ok {
		return fmt.Errorf("%w: required column %q not found", domain.ErrLedgerPersist, "n_iteracao")
	}

	// A column absent from the header reads as empty, never as another
	// column's value.
	col := func(name string) int {
		if i, ok := cols[name]; ok {
			return i
		}
		return -1
	}

	for _, row := range rows[1:] {
		iteration, err := strconv.Atoi(strings.TrimSpace(field(row, iterCol)))
		if err != nil || iteration < 1 {
			continue
		}

		rec := domain.SelectionRecord{Iteration: iteration}
		for i := 1; i <= domain.MaxSubstitutes; i++ {
			code := field(row, col(fmt.Sprintf("sub%d_cod_produto", i)))
			if code == "" {
				continue
			}
			rec.Slots[i-1] = domain.Substitute{
				Code:  code,
				Name:  field(row, col(fmt.Sprintf("sub%d_nome", i))),
				Price: field(row, col(fmt.Sprintf("sub%d_preco_loja_programada", i))),
			}
		}
		s.records[iteration] = rec
	}
	return nil
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// persistLocked rewrites the whole store: temp file in the same directory,
// then rename over the canonical path.
func (s *Store) persistLocked() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrLedgerPersist, err)
	}

	tmp, err := os.CreateTemp(dir, ".substituicoes-*.csv")
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrLedgerPersist, err)
	}
	tmpName := tmp.Name()

	writer := csv.NewWriter(tmp)
	if err := writer.Write(header()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", domain.ErrLedgerPersist, err)
	}

	for n := 1; n <= s.total; n++ {
		rec := s.records[n]
		row := []string{strconv.Itoa(n)}
		for _, slot := range rec.Slots {
			row = append(row, slot.Code, slot.Name, slot.Price)
		}
		if err := writer.Write(row); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("%w: %v", domain.ErrLedgerPersist, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", domain.ErrLedgerPersist, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", domain.ErrLedgerPersist, err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", domain.ErrLedgerPersist, err)
	}
	return nil
}

// backupLocked copies the persisted store into the backup directory with a
// timestamped name, then prunes the set to the configured retention.
func (s *Store) backupLocked() error {
	src, err := os.Open(s.path)
	if os.IsNotExist(err) {
		// Nothing persisted yet, nothing to back up.
		return nil
	}
	if err != nil {
		return err
	}
	defer src.Close()

	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return err
	}

	name := backupPrefix + time.Now().Format(backupTimeLayout) + backupSuffix
	dst, err := os.Create(filepath.Join(s.backupDir, name))
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}

	if err := s.pruneBackupsLocked(); err != nil {
		s.logger.Warn("backup rotation failed", "err", err)
	}
	return nil
}

func (s *Store) pruneBackupsLocked() error {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		return err
	}

	type backup struct {
		name    string
		modTime time.Time
	}
	var backups []backup
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), backupPrefix) || !strings.HasSuffix(e.Name(), backupSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		backups = append(backups, backup{name: e.Name(), modTime: info.ModTime()})
	}

	if len(backups) <= s.maxBackups {
		return nil
	}

	// Oldest first; the timestamped name breaks mod-time ties.
	sort.Slice(backups, func(i, j int) bool {
		if !backups[i].modTime.Equal(backups[j].modTime) {
			return backups[i].modTime.Before(backups[j].modTime)
		}
		return backups[i].name < backups[j].name
	})

	for _, b := range backups[:len(backups)-s.maxBackups] {
		if err := os.Remove(filepath.Join(s.backupDir, b.name)); err != nil {
			return err
		}
		s.logger.Debug("old backup removed", "name", b.name)
	}
	return nil
}
