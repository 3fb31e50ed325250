// Package critic maps free-text critic labels scraped from score pages onto
// the closed set of critics the cellar tracks.
package critic

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/cellar-valuation/internal/model"
)

var defaultAliases = map[string]model.Critic{
	"robert parker the wine advocate": model.CriticRobertParker,
	"robert parker":                   model.CriticRobertParker,
	"wine advocate":                   model.CriticRobertParker,
	"wine spectator":                  model.CriticWineSpectator,
	"james suckling":                  model.CriticJamesSuckling,
	"decanter":                        model.CriticDecanter,
	"jancis robinson":                 model.CriticJancisRobinson,
	"wine enthusiast":                 model.CriticWineEnthusiast,
	"vinous":                          model.CriticVinous,
	"antonio galloni":                 model.CriticVinous,
	"wine-searcher aggregate":         model.CriticAggregate,
}

// Taxonomy resolves critic labels to canonical critics.
type Taxonomy struct {
	aliases map[string]model.Critic
}

// Default returns a Taxonomy holding only the built-in aliases.
func Default() *Taxonomy {
	t := &Taxonomy{aliases: make(map[string]model.Critic, len(defaultAliases))}
	for k, v := range defaultAliases {
		t.aliases[k] = v
	}
	return t
}

// MapName returns the canonical critic for raw, or model.CriticOther when
// the label is unknown.
func (t *Taxonomy) MapName(raw string) model.Critic {
	if c, ok := t.aliases[normalizeLabel(raw)]; ok {
		return c
	}
	return model.CriticOther
}

// Add registers alias for c. Unknown critics are rejected.
func (t *Taxonomy) Add(alias string, c model.Critic) error {
	if !c.Valid() {
		return eris.Errorf("critic: unknown critic %q for alias %q", c, alias)
	}
	key := normalizeLabel(alias)
	if key == "" {
		return eris.New("critic: empty alias")
	}
	t.aliases[key] = c
	return nil
}

// Len returns the number of registered aliases.
func (t *Taxonomy) Len() int { return len(t.aliases) }

// aliasFile is the YAML layout for extra aliases:
//
//	aliases:
//	  the wine advocate: robert_parker
//	  jeb dunnuck: other
type aliasFile struct {
	Aliases map[string]string `yaml:"aliases"`
}

// LoadAliases returns the default taxonomy extended with aliases from the
// YAML file at path.
func LoadAliases(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "critic: read aliases %s", path)
	}
	return ParseAliases(data)
}

// ParseAliases is LoadAliases for in-memory YAML.
func ParseAliases(data []byte) (*Taxonomy, error) {
	var f aliasFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "critic: parse aliases")
	}
	t := Default()
	for alias, name := range f.Aliases {
		if err := t.Add(alias, model.Critic(strings.TrimSpace(name))); err != nil {
			return nil, err
		}
	}
	return t, nil
}

var std = Default()

// MapName maps raw using the built-in aliases.
func MapName(raw string) model.Critic {
	return std.MapName(raw)
}

func normalizeLabel(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
