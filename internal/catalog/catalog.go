// catalog
//
// Owns the set of known accounts and their assumable roles. The durable
// form is a single JSON file; it is loaded and validated once per
// invocation and is the only source the assumption engine reads from.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	ErrInvalidCatalog = errors.New("invalid account catalog")
	ErrNotFound       = errors.New("account not found")
	ErrCatalogIO      = errors.New("unable to read or write catalog")
)

var (
	accountIDRe = regexp.MustCompile(`^[0-9]{12}$`)
	roleArnRe   = regexp.MustCompile(`^arn:aws:iam::([0-9]{12}):role/(.+)$`)
)

// AccountRecord is one entry in the catalog. RoleArn is absent for the
// operator's own base account, which is never a valid assumption target.
type AccountRecord struct {
	Name        string `json:"name"`
	AccountID   string `json:"account_id"`
	RoleArn     string `json:"role_arn,omitempty"`
	Description string `json:"description,omitempty"`
}

func (a AccountRecord) Assumable() bool {
	return a.RoleArn != ""
}

type catalogDoc struct {
	Accounts []AccountRecord `json:"accounts"`
}

// Catalog preserves insertion order of the backing file and indexes
// records by name.
type Catalog struct {
	path    string
	records []AccountRecord
	index   map[string]int
}

// ValidationError reports every violation found in a catalog, not just
// the first, so the operator can fix the file in one pass.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("catalog validation failed:\n  - %s", strings.Join(e.Violations, "\n  - "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidCatalog
}

// Validate checks the complete record set and collects all violations.
func Validate(records []AccountRecord) error {
	violations := []string{}
	seen := map[string]bool{}
	for i, rec := range records {
		if rec.Name == "" {
			violations = append(violations, fmt.Sprintf("account at index %d has an empty name", i))
		} else if seen[rec.Name] {
			violations = append(violations, fmt.Sprintf("duplicate account name %q", rec.Name))
		}
		seen[rec.Name] = true

		if !accountIDRe.MatchString(rec.AccountID) {
			violations = append(violations, fmt.Sprintf("account %q: account_id %q must be exactly 12 digits", rec.Name, rec.AccountID))
		}

		if rec.RoleArn == "" {
			continue
		}
		m := roleArnRe.FindStringSubmatch(rec.RoleArn)
		if m == nil {
			violations = append(violations, fmt.Sprintf("account %q: role_arn %q is not of the form arn:aws:iam::<account-id>:role/<name>", rec.Name, rec.RoleArn))
			continue
		}
		if m[1] != rec.AccountID {
			violations = append(violations, fmt.Sprintf("account %q: role_arn account id %s does not match account_id %s", rec.Name, m[1], rec.AccountID))
		}
	}
	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// Load reads and validates the catalog file. A missing file is
// bootstrapped with a single base account entry and persisted before
// returning, so the first run leaves a file the operator can edit.
func Load(path string) (*Catalog, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return bootstrap(path)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %s, %w", path, err, ErrCatalogIO)
	}
	doc := catalogDoc{}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("catalog %s is not valid JSON: %s, %w", path, err, ErrInvalidCatalog)
	}
	if err := Validate(doc.Accounts); err != nil {
		return nil, err
	}
	return newCatalog(path, doc.Accounts), nil
}

func newCatalog(path string, records []AccountRecord) *Catalog {
	index := map[string]int{}
	for i, rec := range records {
		index[rec.Name] = i
	}
	return &Catalog{path: path, records: records, index: index}
}

func bootstrap(path string) (*Catalog, error) {
	records := []AccountRecord{
		{
			Name:        "main",
			AccountID:   "123456789012",
			Description: "Base account - replace the account_id and add assumable accounts",
		},
	}
	// the bootstrap must itself satisfy validation
	if err := Validate(records); err != nil {
		return nil, err
	}
	c := newCatalog(path, records)
	if err := c.persist(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) Get(name string) (AccountRecord, error) {
	i, ok := c.index[name]
	if !ok {
		return AccountRecord{}, fmt.Errorf("account %q is not in the catalog (have: %s), %w", name, strings.Join(c.names(), ", "), ErrNotFound)
	}
	return c.records[i], nil
}

// List returns records in the order they appear in the backing file.
func (c *Catalog) List() []AccountRecord {
	out := make([]AccountRecord, len(c.records))
	copy(out, c.records)
	return out
}

// Add appends a record, re-validates the complete catalog and persists
// it. The in-memory catalog is untouched when validation fails.
func (c *Catalog) Add(rec AccountRecord) error {
	candidate := append(c.List(), rec)
	if err := Validate(candidate); err != nil {
		return err
	}
	c.records = candidate
	c.index[rec.Name] = len(c.records) - 1
	return c.persist()
}

func (c *Catalog) Path() string {
	return c.path
}

func (c *Catalog) names() []string {
	names := make([]string, 0, len(c.records))
	for _, rec := range c.records {
		names = append(names, rec.Name)
	}
	return names
}

// persist writes the full catalog to a temp file in the same directory
// and renames it over the original.
func (c *Catalog) persist() error {
	b, err := json.MarshalIndent(catalogDoc{Accounts: c.records}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %s, %w", err, ErrCatalogIO)
	}
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create %s: %s, %w", dir, err, ErrCatalogIO)
	}
	tmp, err := os.CreateTemp(dir, ".accounts-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp catalog: %s, %w", err, ErrCatalogIO)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp catalog: %s, %w", err, ErrCatalogIO)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp catalog: %s, %w", err, ErrCatalogIO)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("failed to replace catalog: %s, %w", err, ErrCatalogIO)
	}
	return nil
}
