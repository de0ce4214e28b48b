package domain

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultEntities is the athlete roster used when no catalog file is configured.
var DefaultEntities = []string{"Manny Pacquiao", "Nonito Donaire"}

// EntityCatalog is an ordered list of canonical entity labels.
type EntityCatalog struct {
	labels []string
	folded []string
}

func NewEntityCatalog(labels ...string) (*EntityCatalog, error) {
	c := &EntityCatalog{
		labels: make([]string, 0, len(labels)),
		folded: make([]string, 0, len(labels)),
	}
	seen := make(map[string]struct{}, len(labels))
	for _, raw := range labels {
		label := strings.TrimSpace(raw)
		if label == "" {
			return nil, WrapError(ErrInvalidInput, "entity catalog", errors.New("empty entity label"))
		}
		key := strings.ToLower(label)
		if _, ok := seen[key]; ok {
			return nil, WrapError(ErrInvalidInput, "entity catalog", fmt.Errorf("duplicate entity label %q", label))
		}
		seen[key] = struct{}{}
		c.labels = append(c.labels, label)
		c.folded = append(c.folded, key)
	}
	return c, nil
}

// MustEntityCatalog is NewEntityCatalog for static label lists.
func MustEntityCatalog(labels ...string) *EntityCatalog {
	c, err := NewEntityCatalog(labels...)
	if err != nil {
		panic(err)
	}
	return c
}

// Recognize returns the first label, in catalog order, that appears literally in text
// ignoring case. A query naming two entities resolves to whichever is listed first.
func (c *EntityCatalog) Recognize(text string) (string, bool) {
	if c == nil {
		return "", false
	}
	haystack := strings.ToLower(text)
	for i, needle := range c.folded {
		if strings.Contains(haystack, needle) {
			return c.labels[i], true
		}
	}
	return "", false
}

func (c *EntityCatalog) Labels() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.labels))
	copy(out, c.labels)
	return out
}

func (c *EntityCatalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.labels)
}

// Slug turns an entity label into a file-name friendly key: lowercase ASCII letters and
// digits, everything else collapsed to single underscores.
func Slug(label string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(label)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
