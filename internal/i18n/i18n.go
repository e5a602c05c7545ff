// Package i18n serves the English, Swedish and Danish UI strings.
package i18n

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

// Lang is a supported UI language.
type Lang string

const (
	EN Lang = "en"
	SV Lang = "sv"
	DA Lang = "da"
)

// ParseLang accepts en, sv or da in any case.
func ParseLang(s string) (Lang, bool) {
	switch l := Lang(strings.ToLower(strings.TrimSpace(s))); l {
	case EN, SV, DA:
		return l, true
	default:
		return "", false
	}
}

var (
	// ErrEmptyKey indicates a translation without English text.
	ErrEmptyKey = errors.New("translation key (English text) is required")

	// ErrNotFound indicates no translation exists for the key.
	ErrNotFound = errors.New("translation not found")
)

// Translation is one UI string. The English text is the key.
type Translation struct {
	Key string `json:"en"`
	SV  string `json:"sv"`
	DA  string `json:"da"`
}

// In returns the text for lang, falling back to the English key when the
// translation is missing.
func (t Translation) In(lang Lang) string {
	switch lang {
	case SV:
		if t.SV != "" {
			return t.SV
		}
	case DA:
		if t.DA != "" {
			return t.DA
		}
	}
	return t.Key
}

// Store persists translations.
type Store interface {
	ListTranslations(ctx context.Context) ([]Translation, error)
	UpsertTranslation(ctx context.Context, t Translation) error
	// DeleteTranslation returns ErrNotFound when key does not exist.
	DeleteTranslation(ctx context.Context, key string) error
}

// Catalog is an in-memory translation table kept in sync with a Store.
// It is safe for concurrent use.
type Catalog struct {
	store Store

	mu      sync.RWMutex
	entries map[string]Translation
}

// NewCatalog creates an empty catalog backed by store.
func NewCatalog(store Store) *Catalog {
	return &Catalog{store: store, entries: map[string]Translation{}}
}

// Reload replaces the catalog contents from the store.
func (c *Catalog) Reload(ctx context.Context) error {
	list, err := c.store.ListTranslations(ctx)
	if err != nil {
		return fmt.Errorf("load translations: %w", err)
	}
	c.Set(list)
	return nil
}

// Set replaces the catalog contents.
func (c *Catalog) Set(list []Translation) {
	m := make(map[string]Translation, len(list))
	for _, t := range list {
		m[t.Key] = t
	}
	c.mu.Lock()
	c.entries = m
	c.mu.Unlock()
}

// Put stores t and reloads the catalog.
func (c *Catalog) Put(ctx context.Context, t Translation) error {
	t.Key = strings.TrimSpace(t.Key)
	if t.Key == "" {
		return ErrEmptyKey
	}
	t.SV = strings.TrimSpace(t.SV)
	t.DA = strings.TrimSpace(t.DA)
	if err := c.store.UpsertTranslation(ctx, t); err != nil {
		return err
	}
	return c.Reload(ctx)
}

// Delete removes key and reloads the catalog.
func (c *Catalog) Delete(ctx context.Context, key string) error {
	if err := c.store.DeleteTranslation(ctx, key); err != nil {
		return err
	}
	return c.Reload(ctx)
}

// T translates key into lang. Unknown keys are returned unchanged.
func (c *Catalog) T(lang Lang, key string) string {
	c.mu.RLock()
	t, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return key
	}
	return t.In(lang)
}

// All returns the catalog sorted by key.
func (c *Catalog) All() []Translation {
	c.mu.RLock()
	out := make([]Translation, 0, len(c.entries))
	for _, t := range c.entries {
		out = append(out, t)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Map returns key to text in lang for every entry.
func (c *Catalog) Map(lang Lang) map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.entries))
	for k, t := range c.entries {
		out[k] = t.In(lang)
	}
	return out
}

var matcher = language.NewMatcher([]language.Tag{language.English, language.Swedish, language.Danish})

// Resolve picks the UI language. An explicit query value wins over the
// Accept-Language header; anything unmatched is English.
func Resolve(acceptLanguage, query string) Lang {
	if l, ok := ParseLang(query); ok {
		return l
	}
	if acceptLanguage == "" {
		return EN
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return EN
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return EN
	}
	return []Lang{EN, SV, DA}[idx]
}
