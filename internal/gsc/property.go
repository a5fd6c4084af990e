package gsc

import "strings"

// MatchProperty returns the Search Console property serving domain,
// preferring a domain property over URL-prefix properties.
func MatchProperty(domain string, sites []string) (string, bool) {
	d := strings.ToLower(strings.TrimSpace(domain))
	if d == "" {
		return "", false
	}

	set := make(map[string]string, len(sites))
	for _, s := range sites {
		set[strings.ToLower(s)] = s
	}

	for _, candidate := range []string{
		"sc-domain:" + d,
		"https://" + d + "/",
		"http://" + d + "/",
	} {
		if site, ok := set[candidate]; ok {
			return site, true
		}
	}
	return "", false
}

// ViableProperties maps domains to properties, in domain order, without
// duplicates. Domains with no property are returned separately.
func ViableProperties(domains, sites []string) (properties, missing []string) {
	seen := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		p, ok := MatchProperty(d, sites)
		if !ok {
			missing = append(missing, d)
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		properties = append(properties, p)
	}
	return properties, missing
}
