// Package letters holds the letter template catalogue and the generator
// that turns a filled form into the final letter text.
package letters

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/diewo77/gedoc/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed catalogue.yaml
var catalogueYAML []byte

// Tier is the pricing category of a template.
type Tier string

const (
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

// LetterType is one entry of the catalogue.
type LetterType struct {
	ID          string `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Icon        string `yaml:"icon" json:"icon"`
	Popular     bool   `yaml:"popular" json:"popular"`
	Tier        Tier   `yaml:"tier" json:"tier"`
	Body        string `yaml:"body" json:"-"`

	body *template.Template
}

// Premium reports whether the template belongs to the premium tier.
func (lt LetterType) Premium() bool { return lt.Tier == TierPremium }

// Product returns the price list code matching the tier.
func (lt LetterType) Product() string {
	if lt.Premium() {
		return models.ProductPremium
	}
	return models.ProductStandard
}

// Catalogue is the immutable set of letter types.
type Catalogue struct {
	Types     []LetterType `yaml:"types"`
	Countries []string     `yaml:"countries"`
	Fallback  string       `yaml:"fallback"`

	byID     map[string]int
	fallback *template.Template
}

// Parse decodes a catalogue document and compiles every body.
func Parse(data []byte) (*Catalogue, error) {
	var c Catalogue
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalogue: %w", err)
	}
	c.byID = make(map[string]int, len(c.Types))
	for i := range c.Types {
		lt := &c.Types[i]
		if lt.ID == "" {
			return nil, fmt.Errorf("letter type #%d has no id", i)
		}
		if _, dup := c.byID[lt.ID]; dup {
			return nil, fmt.Errorf("duplicate letter type %q", lt.ID)
		}
		if lt.Tier != TierStandard && lt.Tier != TierPremium {
			return nil, fmt.Errorf("letter type %q: unknown tier %q", lt.ID, lt.Tier)
		}
		t, err := template.New(lt.ID).Option("missingkey=zero").Parse(strings.TrimSpace(lt.Body))
		if err != nil {
			return nil, fmt.Errorf("letter type %q: %w", lt.ID, err)
		}
		lt.body = t
		c.byID[lt.ID] = i
	}
	fb, err := template.New("fallback").Parse(strings.TrimSpace(c.Fallback))
	if err != nil {
		return nil, fmt.Errorf("fallback body: %w", err)
	}
	c.fallback = fb
	return &c, nil
}

// Find returns the letter type with id.
func (c *Catalogue) Find(id string) (LetterType, bool) {
	i, ok := c.byID[id]
	if !ok {
		return LetterType{}, false
	}
	return c.Types[i], true
}

// ByTier returns the types of one tier in catalogue order.
func (c *Catalogue) ByTier(tier Tier) []LetterType {
	var out []LetterType
	for _, lt := range c.Types {
		if lt.Tier == tier {
			out = append(out, lt)
		}
	}
	return out
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalogue
)

// Default returns the embedded catalogue. It panics if the embedded file
// is invalid, which the package tests guard against.
func Default() *Catalogue {
	defaultOnce.Do(func() {
		c, err := Parse(catalogueYAML)
		if err != nil {
			panic(err)
		}
		defaultCat = c
	})
	return defaultCat
}

func All() []LetterType { return Default().Types }
func Standard() []LetterType { return Default().ByTier(TierStandard) }
func Premium() []LetterType { return Default().ByTier(TierPremium) }
func Find(id string) (LetterType, bool) { return Default().Find(id) }
func Countries() []string { return Default().Countries }

// Title returns the display title of a letter type id, or the id
// itself when it is not in the catalogue.
func Title(id string) string {
	if lt, ok := Find(id); ok {
		return lt.Title
	}
	return id
}

// DefaultProduct returns the product code for a letter type id; unknown
// ids are priced as standard letters.
func DefaultProduct(id string) string {
	if lt, ok := Find(id); ok {
		return lt.Product()
	}
	return models.ProductStandard
}
