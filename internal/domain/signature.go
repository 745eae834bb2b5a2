package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Signature creates a deterministic hash of an entity's descriptive
// attributes, used as the cache key. Attributes are normalized (lower-cased,
// whitespace collapsed) and joined in sorted key order, so cosmetic
// differences in catalog data map to the same key.
func Signature(e Entity) string {
	attrs := map[string]string{
		"brand":    e.Brand,
		"category": e.Category,
		"model":    e.Model,
	}

	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+normalizeAttr(attrs[k]))
	}

	h := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h[:])
}

func normalizeAttr(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
