// Package i18n localizes the add-on's interface strings. Translations are
// keyed by their English source text; the English table is the identity.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the language the source strings are written in.
const BaseLocale = "en"

type catalogFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Bundle holds every translation table and a x/text catalog built from them.
type Bundle struct {
	tags     []language.Tag
	messages map[language.Tag]map[string]string
	catalog  *catalog.Builder
	matcher  language.Matcher
}

//go:embed locales/*.yaml
var embeddedCatalogFS embed.FS

// LoadEmbedded loads the translation tables compiled into the binary.
func LoadEmbedded() (*Bundle, error) {
	return LoadFromFS(embeddedCatalogFS)
}

// LoadFromFS loads every locales/<tag>.yaml file of catalogFS.
func LoadFromFS(catalogFS fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(catalogFS, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	sort.Strings(paths)

	b := &Bundle{
		tags:     []language.Tag{language.Make(BaseLocale)},
		messages: map[language.Tag]map[string]string{},
		catalog:  catalog.NewBuilder(catalog.Fallback(language.Make(BaseLocale))),
	}

	for _, p := range paths {
		data, err := fs.ReadFile(catalogFS, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		if err := b.add(p, file); err != nil {
			return nil, err
		}
	}

	b.matcher = language.NewMatcher(b.tags)
	return b, nil
}

func (b *Bundle) add(p string, file catalogFile) error {
	locale := strings.TrimSpace(file.Locale)
	fromPath := strings.TrimSuffix(path.Base(p), path.Ext(p))
	if locale == "" {
		return fmt.Errorf("catalog %s: locale is required", p)
	}
	if locale != fromPath {
		return fmt.Errorf("catalog %s: locale %q must match file name %q", p, locale, fromPath)
	}

	tag, err := language.Parse(locale)
	if err != nil {
		return fmt.Errorf("catalog %s: parse locale %q: %w", p, locale, err)
	}
	if _, exists := b.messages[tag]; exists || locale == BaseLocale {
		return fmt.Errorf("catalog %s: locale %q defined twice", p, locale)
	}

	table := make(map[string]string, len(file.Messages))
	for key, value := range file.Messages {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("catalog %s: message key cannot be blank", p)
		}
		if err := b.catalog.SetString(tag, key, value); err != nil {
			return fmt.Errorf("catalog %s: register %q: %w", p, key, err)
		}
		table[key] = value
	}

	b.messages[tag] = table
	b.tags = append(b.tags, tag)
	return nil
}

// Tags returns the supported languages, base locale first.
func (b *Bundle) Tags() []language.Tag {
	out := make([]language.Tag, len(b.tags))
	copy(out, b.tags)
	return out
}

// Match returns the supported tag closest to region. Unsupported or
// malformed regions resolve to the base locale.
func (b *Bundle) Match(region string) language.Tag {
	tag, err := language.Parse(region)
	if err != nil {
		return b.tags[0]
	}
	_, idx, confidence := b.matcher.Match(tag)
	if confidence < language.High {
		return b.tags[0]
	}
	return b.tags[idx]
}

// Has reports whether tag has a translation for text.
func (b *Bundle) Has(tag language.Tag, text string) bool {
	_, ok := b.messages[tag][text]
	return ok
}

// Lookup returns the translation of text for tag, verbatim.
func (b *Bundle) Lookup(tag language.Tag, text string) (string, bool) {
	translated, ok := b.messages[tag][text]
	return translated, ok
}

// Printer returns a message printer backed by this bundle's catalog.
func (b *Bundle) Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(b.catalog))
}
