package middleware

import "strings"

// PathRules holds the prefix lists that bypass or block the pipeline.
type PathRules struct {
	whitelist []string
	blacklist []string
}

func NewPathRules(whitelist, blacklist []string) PathRules {
	return PathRules{
		whitelist: cleanPrefixes(whitelist),
		blacklist: cleanPrefixes(blacklist),
	}
}

// Whitelisted paths skip both rate limiting and authentication.
func (p PathRules) Whitelisted(path string) bool {
	return matchPrefix(p.whitelist, path)
}

// Blacklisted paths are always rejected.
func (p PathRules) Blacklisted(path string) bool {
	return matchPrefix(p.blacklist, path)
}

func matchPrefix(prefixes []string, path string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func cleanPrefixes(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
