package resolver

import (
	"fmt"
	"path"
	"strings"

	archive "github.com/meigma/ffarchive/core"
)

// DefaultLanguage is the language directory used when none is configured.
const DefaultLanguage = "en"

// Logical archive names defined by DefaultDefinitions.
const (
	MainZZZ  = "main.zzz"
	OtherZZZ = "other.zzz"
	Battle   = "battle"
	Field    = "field"
	Magic    = "magic"
	Main     = "main"
	Menu     = "menu"
	World    = "world"
	Movies   = "movies"
)

// Definition describes where a logical archive may be found.
type Definition struct {
	// Name is the logical name. Names ending in ".zzz" are ZZZ containers
	// stored at the game root; other names are FI/FL/FS archives whose
	// files are called Name+".fi", Name+".fl" and Name+".fs".
	Name string `yaml:"name"`

	// Dirs are the directories, relative to the game root, searched in
	// order.
	Dirs []string `yaml:"dirs"`

	// Parent names the ZZZ container the archive's files may be packed
	// into when they are not found loose on disk.
	Parent string `yaml:"parent"`
}

// Container reports whether d names a ZZZ container.
func (d Definition) Container() bool {
	return strings.HasSuffix(strings.ToLower(d.Name), ".zzz")
}

// files returns the FI, FL and FS paths of d inside dir.
func (d Definition) files(dir string) (fi, fl, fs string) {
	base := path.Join(dir, d.Name)
	return base + ".fi", base + ".fl", base + ".fs"
}

// LanguageDir returns the per-language data directory.
func LanguageDir(lang string) string {
	return "data/lang-" + lang
}

// DefaultDefinitions returns the archives of a standard installation for
// lang.
func DefaultDefinitions(lang string) []Definition {
	if lang == "" {
		lang = DefaultLanguage
	}
	langDir := LanguageDir(lang)
	defs := []Definition{
		{Name: MainZZZ, Dirs: []string{""}},
		{Name: OtherZZZ, Dirs: []string{""}},
	}
	for _, name := range []string{Battle, Field, Magic, Main, Menu, World} {
		defs = append(defs, Definition{Name: name, Dirs: []string{langDir}, Parent: MainZZZ})
	}
	return append(defs, Definition{Name: Movies, Dirs: []string{langDir, "data"}, Parent: OtherZZZ})
}

// ValidateDefinitions checks the parent links of defs, where later
// definitions replace earlier ones of the same name. A parent must be a
// defined ZZZ container and containers have no parent, so parent links
// never chain or loop.
func ValidateDefinitions(defs []Definition) error {
	byName := make(map[string]Definition, len(defs))
	var names []string
	for _, d := range defs {
		if _, ok := byName[d.Name]; !ok {
			names = append(names, d.Name)
		}
		byName[d.Name] = d
	}
	for _, name := range names {
		d := byName[name]
		if d.Parent == "" {
			continue
		}
		if d.Container() {
			return fmt.Errorf("%w: container %q cannot have parent %q", archive.ErrInvalidArgument, d.Name, d.Parent)
		}
		p, ok := byName[d.Parent]
		if !ok {
			return fmt.Errorf("%w: archive %q has undefined parent %q", archive.ErrInvalidArgument, d.Name, d.Parent)
		}
		if !p.Container() {
			return fmt.Errorf("%w: parent %q of archive %q is not a ZZZ container", archive.ErrInvalidArgument, d.Parent, d.Name)
		}
	}
	return nil
}
