// Package keyrouter maps user keys to bucket shards and encodes/decodes the
// list-internal key scheme (list meta keys and list item keys).
//
// Bucket placement must agree across every writer that ever touches the
// repository, so BucketOf is the one hashing policy in this codebase: no
// other function may decide where a key's record lives.
package keyrouter

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"
)

// listPrefix is the fixed prefix for list meta keys: "list:<name>".
const listPrefix = "list:"

// itemMarker separates a list name from its item id: "list:<name>:item:<id>".
const itemMarker = ":item:"

var uuidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// BucketOf returns the two-hex-digit bucket id for key: the first byte of
// sha1(key), lowercase hex. 256 buckets total.
func BucketOf(key string) string {
	sum := sha1.Sum([]byte(key))
	return hex.EncodeToString(sum[:1])
}

// ListMetaKey returns the meta key for list name.
func ListMetaKey(name string) string {
	return listPrefix + name
}

// IsListMetaKey reports whether key is a list meta key and returns the list
// name if so.
func IsListMetaKey(key string) (name string, ok bool) {
	if !strings.HasPrefix(key, listPrefix) {
		return "", false
	}
	rest := key[len(listPrefix):]
	// A meta key never contains the item marker; that would make it
	// ambiguous with an item key under the same list name.
	if strings.Contains(rest, itemMarker) {
		return "", false
	}
	return rest, true
}

// ListItemKey returns the derived key for item itemID belonging to list
// name.
func ListItemKey(name, itemID string) string {
	return listPrefix + name + itemMarker + itemID
}

// ParseListItemKey parses key as a list item key using the *last*
// occurrence of the item marker, so list names that themselves contain
// colons (or the literal substring ":item:") still disambiguate to the
// final segment. Returns ok=false (treat as an ordinary user key) unless
// the trailing segment is a valid UUID.
func ParseListItemKey(key string) (listName, itemID string, ok bool) {
	if !strings.HasPrefix(key, listPrefix) {
		return "", "", false
	}
	rest := key[len(listPrefix):]

	idx := strings.LastIndex(rest, itemMarker)
	if idx < 0 {
		return "", "", false
	}

	name := rest[:idx]
	id := rest[idx+len(itemMarker):]
	if name == "" || !uuidPattern.MatchString(id) {
		return "", "", false
	}

	return name, id, true
}
