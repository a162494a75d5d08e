package files

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"jsquiz-service/internal/domain"
)

// ThemeLoader reads `<theme>.json` question banks from a file system.
type ThemeLoader struct {
	fsys fs.FS
}

func NewThemeLoader(fsys fs.FS) *ThemeLoader {
	return &ThemeLoader{fsys: fsys}
}

func (l *ThemeLoader) LoadTheme(_ context.Context, name string) (domain.QuestionSet, error) {
	if !fs.ValidPath(name) || strings.ContainsAny(name, `/\`) || name == "" {
		return domain.QuestionSet{}, fmt.Errorf("%w: %q", domain.ErrThemeNotFound, name)
	}

	raw, err := fs.ReadFile(l.fsys, name+".json")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.QuestionSet{}, fmt.Errorf("%w: %q", domain.ErrThemeNotFound, name)
		}
		return domain.QuestionSet{}, fmt.Errorf("read theme %q: %w", name, err)
	}

	set, err := Decode(raw)
	if err != nil {
		return domain.QuestionSet{}, fmt.Errorf("theme %q: %w", name, err)
	}
	set.Theme = name
	return set, nil
}

// ListThemes returns the base names of every .json file at the root, sorted.
func (l *ThemeLoader) ListThemes(context.Context) ([]string, error) {
	entries, err := fs.ReadDir(l.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("list themes: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".json" {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// Decode parses and validates a question bank document.
func Decode(raw []byte) (domain.QuestionSet, error) {
	var set domain.QuestionSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return domain.QuestionSet{}, fmt.Errorf("%w: %v", domain.ErrMalformedTheme, err)
	}
	if err := set.Validate(); err != nil {
		return domain.QuestionSet{}, err
	}
	return set, nil
}
