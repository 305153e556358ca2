package expense

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/franz/kdex/internal/util"
)

// DefaultPath is where the ledger lives unless configured otherwise
const DefaultPath = "data/expenses.csv"

// DefaultCategory is used when no category is given
const DefaultCategory = "other"

const dateLayout = "2006-01-02"

// Entry is one spending record
type Entry struct {
	Date     time.Time
	Amount   float64
	Category string
	Notes    string
}

// CategoryTotal sums the entries of one category
type CategoryTotal struct {
	Category string
	Count    int
	Amount   float64
}

// ParseDate accepts YYYY-MM-DD; an empty value means today
func ParseDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q is not YYYY-MM-DD", util.ErrValidation, s)
	}
	return t, nil
}

// ParseAmount accepts any decimal number
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q is not a number", util.ErrValidation, s)
	}
	return v, nil
}

// ParseCategory trims the category and falls back to DefaultCategory
func ParseCategory(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultCategory
	}
	return s
}

// NewEntry validates raw input values into an entry
func NewEntry(date, amount, category, notes string, now time.Time) (Entry, error) {
	d, derr := ParseDate(date, now)
	a, aerr := ParseAmount(amount)
	if err := errors.Join(derr, aerr); err != nil {
		return Entry{}, err
	}
	return Entry{
		Date:     d,
		Amount:   a,
		Category: ParseCategory(category),
		Notes:    strings.TrimSpace(notes),
	}, nil
}

// String renders the confirmation line shown after an entry is added
func (e Entry) String() string {
	notes := e.Notes
	if notes == "" {
		notes = "(none)"
	}
	return fmt.Sprintf("%s | %s | %s | notes: %s", e.Date.Format(dateLayout), formatAmount(e.Amount), e.Category, notes)
}

func (e Entry) record() []string {
	return []string{e.Date.Format(dateLayout), formatAmount(e.Amount), e.Category, e.Notes}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Ledger is a header-less CSV file of entries: date, amount, category, notes
type Ledger struct {
	fs   afero.Fs
	path string
}

// NewLedger opens a ledger on the real filesystem
func NewLedger(path string) *Ledger {
	return NewLedgerFs(afero.NewOsFs(), path)
}

// NewLedgerFs opens a ledger on fs
func NewLedgerFs(fs afero.Fs, path string) *Ledger {
	return &Ledger{fs: fs, path: path}
}

// Path returns the ledger file path
func (l *Ledger) Path() string {
	return l.path
}

// Append adds e at the end of the ledger, creating the file if needed
func (l *Ledger) Append(e Entry) error {
	if dir := filepath.Dir(l.path); dir != "." {
		if err := l.fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	f, err := l.fs.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}

	w := csv.NewWriter(f)
	w.Write(e.record())
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	return f.Close()
}

// List reads every entry; a missing ledger is empty
func (l *Ledger) List() ([]Entry, error) {
	f, err := l.fs.Open(l.path)
	if os.IsNotExist(err) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	entries := []Entry{}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read ledger: %w", err)
		}
		line, _ := r.FieldPos(0)
		if len(rec) < 2 {
			return nil, fmt.Errorf("%w: %s line %d: expected date and amount", util.ErrValidation, l.path, line)
		}

		for len(rec) < 4 {
			rec = append(rec, "")
		}
		date, err := time.Parse(dateLayout, strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: date %q", util.ErrValidation, l.path, line, rec[0])
		}
		amount, err := ParseAmount(rec[1])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", l.path, line, err)
		}
		entries = append(entries, Entry{
			Date:     date,
			Amount:   amount,
			Category: ParseCategory(rec[2]),
			Notes:    strings.TrimSpace(rec[3]),
		})
	}

	return entries, nil
}

// Totals groups entries by category, largest amount first
func Totals(entries []Entry) []CategoryTotal {
	byCategory := make(map[string]*CategoryTotal)
	for _, e := range entries {
		t, ok := byCategory[e.Category]
		if !ok {
			t = &CategoryTotal{Category: e.Category}
			byCategory[e.Category] = t
		}
		t.Count++
		t.Amount += e.Amount
	}

	totals := make([]CategoryTotal, 0, len(byCategory))
	for _, t := range byCategory {
		totals = append(totals, *t)
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Amount != totals[j].Amount {
			return totals[i].Amount > totals[j].Amount
		}
		return totals[i].Category < totals[j].Category
	})
	return totals
}

// Prompt asks for an entry field by field on out, reading answers from in.
// Invalid dates and amounts are asked again.
func Prompt(in io.Reader, out io.Writer, now time.Time) (Entry, error) {
	sc := bufio.NewScanner(in)
	ask := func(question string) (string, error) {
		fmt.Fprint(out, question)
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", err
			}
			return "", io.ErrUnexpectedEOF
		}
		return strings.TrimSpace(sc.Text()), nil
	}

	var e Entry
	for {
		s, err := ask("Date (YYYY-MM-DD, Enter for today): ")
		if err != nil {
			return Entry{}, err
		}
		if e.Date, err = ParseDate(s, now); err == nil {
			break
		}
		fmt.Fprintln(out, "Invalid date, try again.")
	}

	for {
		s, err := ask("Amount: ")
		if err != nil {
			return Entry{}, err
		}
		if e.Amount, err = ParseAmount(s); err == nil {
			break
		}
		fmt.Fprintln(out, "Amount must be a number.")
	}

	s, err := ask("Category (food, transport, ...): ")
	if err != nil {
		return Entry{}, err
	}
	e.Category = ParseCategory(s)

	// notes may be the last line without a trailing newline, or absent
	if s, err = ask("Notes (optional): "); err != nil && err != io.ErrUnexpectedEOF {
		return Entry{}, err
	}
	e.Notes = s

	return e, nil
}
