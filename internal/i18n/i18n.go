// internal/i18n/i18n.go
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
)

// DefaultLanguage is the fallback for unknown languages and missing keys.
const DefaultLanguage = "en"

//go:embed locales/*.json
var localeFS embed.FS

// Catalog holds one flat key -> message table per language.
type Catalog struct {
	mu           sync.RWMutex
	translations map[string]map[string]string
	fallback     string
}

var (
	instance *Catalog
	once     sync.Once
)

func NewCatalog(fallback string) *Catalog {
	return &Catalog{
		translations: make(map[string]map[string]string),
		fallback:     fallback,
	}
}

// Initialize loads the embedded locales into the process-wide catalog.
func Initialize() error {
	var err error
	once.Do(func() {
		instance = NewCatalog(DefaultLanguage)
		err = instance.Load(localeFS, "locales")
	})
	return err
}

// Load reads every <lang>.json file in dir.
func (c *Catalog) Load(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("failed to list locales in %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		filePath := path.Join(dir, entry.Name())

		data, err := fs.ReadFile(fsys, filePath)
		if err != nil {
			return fmt.Errorf("failed to read locale file %s: %w", filePath, err)
		}
		var messages map[string]string
		if err := json.Unmarshal(data, &messages); err != nil {
			return fmt.Errorf("failed to unmarshal locale file %s: %w", filePath, err)
		}

		c.mu.Lock()
		c.translations[strings.TrimSuffix(entry.Name(), ".json")] = messages
		c.mu.Unlock()
	}
	return nil
}

// T formats the message for key, falling back to the default language and
// then to the key itself.
func (c *Catalog) T(lang, key string, args ...interface{}) string {
	text, ok := c.lookup(lang, key)
	if !ok {
		text, ok = c.lookup(c.fallback, key)
	}
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(text, args...)
	}
	return text
}

func (c *Catalog) lookup(lang, key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	text, ok := c.translations[lang][key]
	return text, ok
}

func (c *Catalog) Supports(lang string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.translations[lang]
	return ok
}

func (c *Catalog) Languages() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	langs := make([]string, 0, len(c.translations))
	for lang := range c.translations {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// MissingKeys lists keys the fallback language defines and lang does not.
func (c *Catalog) MissingKeys(lang string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	missing := []string{}
	for key := range c.translations[c.fallback] {
		if _, ok := c.translations[lang][key]; !ok {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return missing
}

func T(lang, key string, args ...interface{}) string {
	if instance == nil {
		return key
	}
	return instance.T(lang, key, args...)
}

// Supports reports whether a locale file was loaded for lang.
func Supports(lang string) bool {
	if instance == nil {
		return lang == DefaultLanguage
	}
	return instance.Supports(lang)
}

func Languages() []string {
	if instance == nil {
		return []string{DefaultLanguage}
	}
	return instance.Languages()
}

func MissingKeys(lang string) []string {
	if instance == nil {
		return nil
	}
	return instance.MissingKeys(lang)
}
