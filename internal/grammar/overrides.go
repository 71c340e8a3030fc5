package grammar

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// overridesFile is the TOML shape of a languages override file:
//
//	[languages.typescript]
//	extensions = [".mts"]
//
//	[languages.vue]
//	grammar = "github.com/smacker/go-tree-sitter/javascript"
//	extensions = [".vue"]
//	[languages.vue.queries]
//	function = "(function_declaration name: (identifier) @name) @definition.function"
type overridesFile struct {
	Languages map[string]languageOverride `toml:"languages"`
}

type languageOverride struct {
	Grammar    string            `toml:"grammar"`
	Extensions []string          `toml:"extensions"`
	Aliases    []string          `toml:"aliases"`
	Queries    map[string]string `toml:"queries"`
}

// ApplyOverrides merges a TOML overrides file into the registry. A missing file
// is not an error. Extensions and aliases are appended; queries replace the
// query of the same type; a new id must name a known grammar.
func (r *Registry) ApplyOverrides(path string) (int, error) {
	if path == "" {
		return 0, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	var file overridesFile
	md, err := toml.Decode(string(data), &file)
	if err != nil {
		return 0, fmt.Errorf("decoding %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		r.logger.Warn("Ignoring unknown keys in language overrides",
			"path", path,
			"keys", fmt.Sprint(undecoded),
		)
	}

	applied := 0
	for id, o := range file.Languages {
		cfg, exists := r.Get(id)
		if !exists {
			cfg = LanguageConfig{ID: id, Queries: map[QueryType]string{}}
		}
		if o.Grammar != "" {
			cfg.Grammar = o.Grammar
		}
		if !IsKnownGrammar(cfg.Grammar) {
			return applied, fmt.Errorf("%s: unknown grammar %q", id, cfg.Grammar)
		}
		cfg.Extensions = append(cfg.Extensions, o.Extensions...)
		cfg.Aliases = append(cfg.Aliases, o.Aliases...)
		for name, text := range o.Queries {
			qt := QueryType(name)
			if qt != QueryClass && qt != QueryMethod && qt != QueryFunction {
				return applied, fmt.Errorf("%s: unknown query type %q", id, name)
			}
			cfg.Queries[qt] = text
		}
		if err := r.Register(cfg); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}
