package globkey

import "testing"

func TestMatch(t *testing.T) {
	cases := []struct {
		pattern, key string
		want         bool
	}{
		{"user:*", "user:123", true},
		{"user:*", "order:123", false},
		{"user:?", "user:1", true},
		{"user:?", "user:12", false},
		{"*", "anything", true},
		{"*", "", true},
		{"user:[0-9]", "user:[0-9]", true},
		{"user:[0-9]", "user:5", false},
		{"*", "list:a/b", true},
		{"list:a*b", "list:a/mid/b", true},
		{"a*b*c", "axxbxxc", true},
		{"a*b*c", "axxbxx", false},
	}
	for _, c := range cases {
		if got := Match(c.pattern, c.key); got != c.want {
			t.Errorf("Match(%q, %q) = %v, want %v", c.pattern, c.key, got, c.want)
		}
	}
}
