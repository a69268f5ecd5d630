package sandbox

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed languages.yaml
var defaultLanguages []byte

// Language is the backend-specific toolchain for one language id.
// A zero PistonVersion or Judge0ID means that backend cannot run it.
type Language struct {
	ID            string   `yaml:"-"`
	PistonVersion string   `yaml:"piston"`
	Judge0ID      int      `yaml:"judge0"`
	Aliases       []string `yaml:"aliases"`
}

// Languages resolves learner-facing identifiers ("Python", "cpp") to toolchains.
type Languages struct {
	byName map[string]Language
	ids    []string
}

type languagesFile struct {
	Languages map[string]Language `yaml:"languages"`
}

// LoadLanguages reads a YAML language table, or the built-in one when path is empty.
func LoadLanguages(path string) (*Languages, error) {
	if path == "" {
		return ParseLanguages(defaultLanguages)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read language table %s: %w", path, err)
	}
	return ParseLanguages(data)
}

func ParseLanguages(data []byte) (*Languages, error) {
	var f languagesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse language table: %w", err)
	}
	if len(f.Languages) == 0 {
		return nil, fmt.Errorf("language table is empty")
	}

	l := &Languages{byName: make(map[string]Language)}
	for id, lang := range f.Languages {
		id = normalizeName(id)
		lang.ID = id
		names := append([]string{id}, lang.Aliases...)
		for _, name := range names {
			name = normalizeName(name)
			if prev, dup := l.byName[name]; dup {
				return nil, fmt.Errorf("language name %q is used by both %s and %s", name, prev.ID, id)
			}
			l.byName[name] = lang
		}
		l.ids = append(l.ids, id)
	}
	sort.Strings(l.ids)
	return l, nil
}

// Lookup matches ids and aliases case-insensitively.
func (l *Languages) Lookup(name string) (Language, bool) {
	lang, ok := l.byName[normalizeName(name)]
	return lang, ok
}

// Canonical returns the table id for name or ErrUnsupportedLanguage.
func (l *Languages) Canonical(name string) (string, error) {
	lang, ok := l.Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, name)
	}
	return lang.ID, nil
}

func (l *Languages) IDs() []string {
	return append([]string(nil), l.ids...)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
