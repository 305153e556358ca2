package lookup

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/franz/kdex/internal/store"
	"github.com/franz/kdex/internal/util"
)

// Source is the part of the store the cache reads from
type Source interface {
	ListCompanies() ([]store.Company, error)
	ListGroups() ([]store.Group, error)
	ListNationalities() ([]store.Nationality, error)
}

// Cache memoizes the reference lists used to resolve names typed by a
// user. Callers must call Invalidate after any write to the store.
type Cache struct {
	src Source

	mu            sync.Mutex
	companies     []store.Company
	groups        []store.Group
	nationalities []store.Nationality
	hits          int
	misses        int
}

// Stats reports how often the cache answered without querying the store
type Stats struct {
	Hits   int
	Misses int
}

// New creates an empty cache over src
func New(src Source) *Cache {
	return &Cache{src: src}
}

// Companies returns all companies, ordered by name
func (c *Cache) Companies() ([]store.Company, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.companies != nil {
		c.hits++
		return c.companies, nil
	}
	c.misses++

	companies, err := c.src.ListCompanies()
	if err != nil {
		return nil, err
	}
	if companies == nil {
		companies = []store.Company{}
	}
	c.companies = companies
	util.DebugLog("Lookup cache loaded %d companies", len(companies))
	return companies, nil
}

// Groups returns all groups, ordered by name
func (c *Cache) Groups() ([]store.Group, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.groups != nil {
		c.hits++
		return c.groups, nil
	}
	c.misses++

	groups, err := c.src.ListGroups()
	if err != nil {
		return nil, err
	}
	if groups == nil {
		groups = []store.Group{}
	}
	c.groups = groups
	util.DebugLog("Lookup cache loaded %d groups", len(groups))
	return groups, nil
}

// Nationalities returns all nationalities, ordered by code
func (c *Cache) Nationalities() ([]store.Nationality, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.nationalities != nil {
		c.hits++
		return c.nationalities, nil
	}
	c.misses++

	nationalities, err := c.src.ListNationalities()
	if err != nil {
		return nil, err
	}
	if nationalities == nil {
		nationalities = []store.Nationality{}
	}
	c.nationalities = nationalities
	return nationalities, nil
}

// Invalidate drops every cached list
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.companies = nil
	c.groups = nil
	c.nationalities = nil
}

// Stats returns the hit/miss counters
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses}
}

// CompanyID resolves a company name, or a numeric id, to an id
func (c *Cache) CompanyID(ref string) (int64, error) {
	companies, err := c.Companies()
	if err != nil {
		return 0, err
	}
	return resolve("company", ref, len(companies), func(i int) (int64, string) {
		return companies[i].ID, companies[i].Name
	})
}

// GroupID resolves a group name, or a numeric id, to an id
func (c *Cache) GroupID(ref string) (int64, error) {
	groups, err := c.Groups()
	if err != nil {
		return 0, err
	}
	return resolve("group", ref, len(groups), func(i int) (int64, string) {
		return groups[i].ID, groups[i].Name
	})
}

// NationalityCode checks a nationality code and returns it uppercased
func (c *Cache) NationalityCode(code string) (string, error) {
	nationalities, err := c.Nationalities()
	if err != nil {
		return "", err
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, n := range nationalities {
		if n.Code == code {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: nationality %q", util.ErrNotFound, code)
}

// resolve matches ref exactly first, then case-insensitively. A purely
// numeric ref that matches no name is taken as an id.
func resolve(entity, ref string, n int, at func(int) (int64, string)) (int64, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return 0, fmt.Errorf("%w: empty %s name", util.ErrValidation, entity)
	}

	var folded []int64
	for i := 0; i < n; i++ {
		id, name := at(i)
		if name == ref {
			return id, nil
		}
		if strings.EqualFold(name, ref) {
			folded = append(folded, id)
		}
	}

	switch len(folded) {
	case 1:
		return folded[0], nil
	case 0:
	default:
		return 0, fmt.Errorf("%w: %s name %q is ambiguous, use the exact spelling", util.ErrValidation, entity, ref)
	}

	if id, err := strconv.ParseInt(ref, 10, 64); err == nil && id > 0 {
		for i := 0; i < n; i++ {
			if got, _ := at(i); got == id {
				return id, nil
			}
		}
	}

	names := make([]string, n)
	for i := range names {
		_, names[i] = at(i)
	}
	if hint := Suggest(ref, names, 3); len(hint) > 0 {
		return 0, fmt.Errorf("%w: %s %q (did you mean %s?)", util.ErrNotFound, entity, ref, quoteJoin(hint))
	}
	return 0, fmt.Errorf("%w: %s %q", util.ErrNotFound, entity, ref)
}

// Suggest returns up to limit names that fuzzily contain ref, closest first
func Suggest(ref string, names []string, limit int) []string {
	ranks := fuzzy.RankFindNormalizedFold(ref, names)
	sort.Sort(ranks)

	out := make([]string, 0, limit)
	for _, r := range ranks {
		if len(out) == limit {
			break
		}
		out = append(out, r.Target)
	}
	return out
}

func quoteJoin(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = strconv.Quote(n)
	}
	return strings.Join(quoted, " or ")
}
