package cache

import "strings"

// normalizeKey collapses whitespace so equal addresses share one cache entry.
func normalizeKey(address string) string {
	return strings.Join(strings.Fields(address), " ")
}

// uniqueKeys normalizes addresses, dropping blanks and duplicates while keeping first-seen order.
func uniqueKeys(addresses []string) []string {
	seen := make(map[string]struct{}, len(addresses))
	out := make([]string, 0, len(addresses))
	for _, a := range addresses {
		a = normalizeKey(a)
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}
