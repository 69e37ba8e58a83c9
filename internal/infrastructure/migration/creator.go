package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"text/template"
)

var (
	upTmpl = template.Must(template.New("up").Parse(`-- {{.Version}} {{.Title}}
{{- with .Description}}
-- {{.}}
{{- end}}

`))
	downTmpl = template.Must(template.New("down").Parse(`-- {{.Version}} {{.Title}} (revert)

`))
)

// Pair is one numbered migration: NNNNNN_slug.up.sql and its .down.sql.
type Pair struct {
	Version     string
	Title       string
	Description string
	UpPath      string
	DownPath    string
}

// Base returns the shared file stem, e.g. 000003_create_orders.
func (p *Pair) Base() string {
	return strings.TrimSuffix(filepath.Base(p.UpPath), ".up.sql")
}

// Create writes an empty up/down pair into dir, numbered one past the
// highest version already there.
func Create(dir, title, description string) (*Pair, error) {
	slug := slugify(title)
	if slug == "" {
		return nil, fmt.Errorf("migration title %q has no usable characters", title)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create migrations dir: %w", err)
	}

	existing, err := List(os.DirFS(dir))
	if err != nil {
		return nil, err
	}
	version := fmt.Sprintf("%06d", highestVersion(existing)+1)
	stem := filepath.Join(dir, version+"_"+slug)

	p := &Pair{
		Version:     version,
		Title:       title,
		Description: description,
		UpPath:      stem + ".up.sql",
		DownPath:    stem + ".down.sql",
	}
	if err := render(p.UpPath, upTmpl, p); err != nil {
		return nil, err
	}
	if err := render(p.DownPath, downTmpl, p); err != nil {
		_ = os.Remove(p.UpPath)
		return nil, err
	}
	return p, nil
}

// List returns the sorted stems of the up migrations at the root of fsys.
// A missing directory lists as empty.
func List(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	var stems []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if stem, ok := strings.CutSuffix(e.Name(), ".up.sql"); ok && stem != "" {
			stems = append(stems, stem)
		}
	}
	slices.Sort(stems)
	return stems, nil
}

// Check reports up migrations without a matching down file and versions
// used by more than one migration.
func Check(fsys fs.FS) error {
	stems, err := List(fsys)
	if err != nil {
		return err
	}
	seen := make(map[int]string, len(stems))
	for _, stem := range stems {
		if _, err := fs.Stat(fsys, stem+".down.sql"); err != nil {
			return fmt.Errorf("migration %s has no down file", stem)
		}
		v, ok := versionOf(stem)
		if !ok {
			return fmt.Errorf("migration %s is not numbered", stem)
		}
		if prev, dup := seen[v]; dup {
			return fmt.Errorf("migrations %s and %s share version %d", prev, stem, v)
		}
		seen[v] = stem
	}
	return nil
}

func versionOf(stem string) (int, bool) {
	prefix, _, _ := strings.Cut(stem, "_")
	n, err := strconv.Atoi(prefix)
	return n, err == nil
}

func highestVersion(stems []string) int {
	highest := 0
	for _, stem := range stems {
		if n, ok := versionOf(stem); ok && n > highest {
			highest = n
		}
	}
	return highest
}

func render(path string, tmpl *template.Template, p *Pair) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	return tmpl.Execute(f, p)
}

// slugify lowercases title and joins its alphanumeric runs with underscores.
func slugify(title string) string {
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	})
	parts := words[:0]
	for _, w := range words {
		w = strings.Map(func(r rune) rune {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
				return r
			}
			return -1
		}, w)
		if w != "" {
			parts = append(parts, w)
		}
	}
	return strings.Join(parts, "_")
}
