// Package globkey matches user keys against the *-and-?-only glob patterns
// spec.md's Scan/Keys/List operations accept. No glob library appears
// anywhere in the example pack, and the Redis-style semantics required here
// ("*" matches any sequence, including the empty one and any "/") are
// narrower than what the standard library's path.Match provides (it treats
// "/" as a path separator '*' won't cross, and it honors "[...]" character
// classes spec.md never documents), so this package hand-rolls the matcher
// instead of wrapping it (see DESIGN.md).
package globkey

// Match reports whether key matches pattern. '*' matches any sequence of
// runes (including none); '?' matches exactly one rune; every other rune
// matches itself literally. There is no escaping and no "[...]" class
// syntax — a literal '*' or '?' in a key cannot be matched selectively.
func Match(pattern, key string) bool {
	p := []rune(pattern)
	k := []rune(key)

	var pIdx, kIdx int
	starIdx, starMatch := -1, 0

	for kIdx < len(k) {
		switch {
		case pIdx < len(p) && (p[pIdx] == '?' || p[pIdx] == k[kIdx]):
			pIdx++
			kIdx++
		case pIdx < len(p) && p[pIdx] == '*':
			starIdx = pIdx
			starMatch = kIdx
			pIdx++
		case starIdx != -1:
			pIdx = starIdx + 1
			starMatch++
			kIdx = starMatch
		default:
			return false
		}
	}

	for pIdx < len(p) && p[pIdx] == '*' {
		pIdx++
	}
	return pIdx == len(p)
}
