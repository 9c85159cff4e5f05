package keyrouter

import "testing"

func TestBucketOfIsStable(t *testing.T) {
	a := BucketOf("hello")
	b := BucketOf("hello")
	if a != b {
		t.Fatalf("BucketOf must be deterministic, got %s then %s", a, b)
	}
	if len(a) != 2 {
		t.Fatalf("expected 2 hex digit bucket id, got %q", a)
	}
}

func TestParseListItemKeyLastMarkerWins(t *testing.T) {
	const id = "123e4567-e89b-12d3-a456-426614174000"

	// A list name that itself contains the marker substring must still
	// resolve using the *last* occurrence.
	key := ListItemKey("weird"+itemMarker+"name", id)

	name, got, ok := ParseListItemKey(key)
	if !ok {
		t.Fatalf("expected key to parse as list item: %s", key)
	}
	if got != id {
		t.Fatalf("expected item id %s, got %s", id, got)
	}
	if name != "weird"+itemMarker+"name" {
		t.Fatalf("expected list name to retain embedded marker, got %q", name)
	}
}

func TestParseListItemKeyRejectsNonUUID(t *testing.T) {
	key := ListItemKey("todos", "not-a-uuid")
	if _, _, ok := ParseListItemKey(key); ok {
		t.Fatalf("expected non-UUID item id to be rejected")
	}
}

func TestParseListItemKeyRejectsOrdinaryKey(t *testing.T) {
	if _, _, ok := ParseListItemKey("just:a:regular:key"); ok {
		t.Fatalf("expected ordinary key to not parse as a list item")
	}
}

func TestIsListMetaKey(t *testing.T) {
	name, ok := IsListMetaKey(ListMetaKey("todos"))
	if !ok || name != "todos" {
		t.Fatalf("expected meta key to parse, got name=%q ok=%v", name, ok)
	}

	if _, ok := IsListMetaKey(ListItemKey("todos", "123e4567-e89b-12d3-a456-426614174000")); ok {
		t.Fatalf("expected item key to not be a meta key")
	}
}
