package alias

import (
	"context"
	"sort"

	"github.com/hashbeam/cidhub/internal/logger"
	"github.com/hashbeam/cidhub/pkg/models"
	"github.com/hashbeam/cidhub/pkg/store"
)

// Resolver selects at most one alias route for a request path.
type Resolver struct {
	store *store.GORMStore
}

// NewResolver creates an alias resolver backed by the workspace store.
func NewResolver(s *store.GORMStore) *Resolver {
	return &Resolver{store: s}
}

// Resolve returns the winning route for the normalized path, or nil when
// no enabled alias matches. Only primary routes participate.
//
// Ties are broken by: longer literal prefix of the pattern, then match
// type (literal > glob > regex), then alias name ascending.
func (r *Resolver) Resolve(ctx context.Context, userID, path string) (*Route, error) {
	aliases, err := r.store.ListEnabledAliases(ctx, userID)
	if err != nil {
		return nil, err
	}

	var matches []*Route
	for _, a := range aliases {
		routes, err := ParseDefinition(a.Name, a.Definition)
		if err != nil {
			// A row that stopped parsing (saved before a DSL change) must
			// not take down routing; skip it.
			logger.Warn("skipping unparseable alias", logger.KeyAlias, a.Name, logger.KeyError, err)
			continue
		}
		for _, route := range routes {
			if route.Primary && route.Match(path) {
				matches = append(matches, route)
			}
		}
	}

	if len(matches) == 0 {
		return nil, nil
	}

	sort.Slice(matches, func(i, j int) bool {
		pi, pj := matches[i].literalPrefixLen(), matches[j].literalPrefixLen()
		if pi != pj {
			return pi > pj
		}
		if ri, rj := matches[i].rank(), matches[j].rank(); ri != rj {
			return ri < rj
		}
		return matches[i].AliasName < matches[j].AliasName
	})
	return matches[0], nil
}

// PrimaryFields extracts the denormalized primary-route columns for an
// alias row, so listings don't re-parse definitions.
func PrimaryFields(a *models.Alias) error {
	routes, err := ParseDefinition(a.Name, a.Definition)
	if err != nil {
		return err
	}
	primary := routes[0]
	a.MatchType = primary.MatchType
	a.Pattern = primary.Pattern
	a.Target = primary.Target
	a.IgnoreCase = primary.IgnoreCase
	return nil
}
