// Package semantics turns an MDL manifest into a searchable index.
package semantics

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Manifest is the modeling definition a preparation ingests.
type Manifest struct {
	Catalog       string         `json:"catalog"`
	Schema        string         `json:"schema"`
	Models        []Model        `json:"models"`
	Relationships []Relationship `json:"relationships"`
	Metrics       []Metric       `json:"metrics"`
	Views         []View         `json:"views"`
}

type TableReference struct {
	Catalog string `json:"catalog"`
	Schema  string `json:"schema"`
	Table   string `json:"table"`
}

type Model struct {
	Name           string            `json:"name"`
	RefSQL         string            `json:"refSql"`
	TableReference *TableReference   `json:"tableReference"`
	Columns        []Column          `json:"columns"`
	PrimaryKey     string            `json:"primaryKey"`
	Cached         bool              `json:"cached"`
	Properties     map[string]string `json:"properties"`
}

type Column struct {
	Name         string            `json:"name"`
	Type         string            `json:"type"`
	NotNull      bool              `json:"notNull"`
	IsCalculated bool              `json:"isCalculated"`
	Expression   string            `json:"expression"`
	Relationship string            `json:"relationship"`
	Properties   map[string]string `json:"properties"`
}

type Relationship struct {
	Name       string            `json:"name"`
	Models     []string          `json:"models"`
	JoinType   string            `json:"joinType"`
	Condition  string            `json:"condition"`
	Properties map[string]string `json:"properties"`
}

type Metric struct {
	Name       string            `json:"name"`
	BaseObject string            `json:"baseObject"`
	Dimension  []Column          `json:"dimension"`
	Measure    []Column          `json:"measure"`
	Properties map[string]string `json:"properties"`
}

type View struct {
	Name       string            `json:"name"`
	Statement  string            `json:"statement"`
	Properties map[string]string `json:"properties"`
}

// ErrInvalidManifest wraps every parse and validation failure.
var ErrInvalidManifest = errors.New("invalid mdl")

// ParseManifest decodes and validates an MDL document given as a JSON string.
func ParseManifest(raw string) (*Manifest, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: document is empty", ErrInvalidManifest)
	}
	var m Manifest
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the structural rules of the manifest.
func (m *Manifest) Validate() error {
	if len(m.Models) == 0 && len(m.Views) == 0 {
		return fmt.Errorf("%w: no models or views", ErrInvalidManifest)
	}

	models := make(map[string]bool, len(m.Models))
	for i, model := range m.Models {
		if model.Name == "" {
			return fmt.Errorf("%w: model #%d has no name", ErrInvalidManifest, i)
		}
		if models[model.Name] {
			return fmt.Errorf("%w: duplicate model %q", ErrInvalidManifest, model.Name)
		}
		models[model.Name] = true
		for j, col := range model.Columns {
			if col.Name == "" {
				return fmt.Errorf("%w: column #%d of model %q has no name", ErrInvalidManifest, j, model.Name)
			}
		}
	}

	for _, rel := range m.Relationships {
		if len(rel.Models) != 2 {
			return fmt.Errorf("%w: relationship %q must join two models", ErrInvalidManifest, rel.Name)
		}
		for _, name := range rel.Models {
			if !models[name] {
				return fmt.Errorf("%w: relationship %q references unknown model %q", ErrInvalidManifest, rel.Name, name)
			}
		}
	}

	for _, metric := range m.Metrics {
		if metric.BaseObject != "" && !models[metric.BaseObject] {
			return fmt.Errorf("%w: metric %q references unknown model %q", ErrInvalidManifest, metric.Name, metric.BaseObject)
		}
	}
	return nil
}

// TableName returns the fully qualified source of the model.
func (m *Manifest) TableName(model Model) string {
	if ref := model.TableReference; ref != nil && ref.Table != "" {
		parts := []string{}
		for _, p := range []string{ref.Catalog, ref.Schema, ref.Table} {
			if p != "" {
				parts = append(parts, QuoteIdent(p))
			}
		}
		return strings.Join(parts, ".")
	}
	return QuoteIdent(model.Name)
}

// QuoteIdent quotes an SQL identifier.
func QuoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
