// Package filter applies the keyword/domain allow and deny rules.
package filter

import (
	"strings"

	"github.com/jonesrussell/rankrecon/internal/table"
)

// Sheet columns.
const (
	ColKeyword = "Keyword"
	ColDomain  = "Domain"
	ColType    = "Filter Type"
)

// AllDomains matches every domain.
const AllDomains = "All"

// Type is a rule's verdict.
type Type string

// Rule verdicts.
const (
	Blacklist Type = "Blacklist"
	Whitelist Type = "Whitelist"
)

// Rule matches queries containing Keyword on Domain.
type Rule struct {
	Keyword string
	Domain  string
	Type    Type
}

// Matches reports whether r applies to query on domain. Keywords match
// as case-sensitive substrings; an empty keyword matches every query.
// Domains compare exactly unless the rule names AllDomains.
func (r Rule) Matches(query, domain string) bool {
	if !strings.Contains(query, r.Keyword) {
		return false
	}
	return r.Domain == AllDomains || r.Domain == domain
}

// Rules is an ordered rule list; earlier rules win.
type Rules []Rule

// Parse reads the filter rule sheet. Blank rows are skipped.
func Parse(t *table.Table) (Rules, error) {
	if err := t.Require(ColKeyword, ColDomain, ColType); err != nil {
		return nil, err
	}

	rules := make(Rules, 0, t.Len())
	t.Each(func(r table.Row) {
		rule := Rule{
			Keyword: r.Get(ColKeyword),
			Domain:  strings.TrimSpace(r.Get(ColDomain)),
			Type:    Type(strings.TrimSpace(r.Get(ColType))),
		}
		if rule.Keyword == "" && rule.Domain == "" && rule.Type == "" {
			return
		}
		rules = append(rules, rule)
	})
	return rules, nil
}

// Keep decides whether a row survives. The first matching Blacklist or
// Whitelist rule decides; rules of any other type are ignored. A row no
// rule matches is dropped.
func (rs Rules) Keep(query, domain string) bool {
	for _, r := range rs {
		if !r.Matches(query, domain) {
			continue
		}
		switch r.Type {
		case Blacklist:
			return false
		case Whitelist:
			return true
		}
	}
	return false
}
