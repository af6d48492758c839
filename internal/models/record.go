// Package models defines the domain types for mnemo: records, the index,
// and the link graph.
package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/ferrows/mnemo/internal/apperr"
)

// RecordType classifies a stored knowledge unit.
type RecordType string

const (
	TypeDecision   RecordType = "decision"
	TypeLearning   RecordType = "learning"
	TypeArtifact   RecordType = "artifact"
	TypeGotcha     RecordType = "gotcha"
	TypeBreadcrumb RecordType = "breadcrumb"
	TypeHub        RecordType = "hub"
)

// RecordTypes returns every record type in priority order: the most urgent
// type first. The relevance engine orders merged candidates by this.
func RecordTypes() []RecordType {
	return []RecordType{TypeGotcha, TypeDecision, TypeLearning, TypeArtifact, TypeBreadcrumb, TypeHub}
}

// Priority returns the ordering rank of t (lower is more urgent).
// Unknown types sort last.
func (t RecordType) Priority() int {
	for i, rt := range RecordTypes() {
		if t == rt {
			return i
		}
	}
	return len(RecordTypes())
}

// Valid reports whether t is a known record type.
func (t RecordType) Valid() bool {
	switch t {
	case TypeDecision, TypeLearning, TypeArtifact, TypeGotcha, TypeBreadcrumb, TypeHub:
		return true
	}
	return false
}

// Severity grades how serious a record is. Optional on a record.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is a known severity. Empty counts as unset.
func (s Severity) Valid() bool {
	switch s {
	case "", SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Tier is one of the four storage locations, in precedence order
// enterprise > local > project > global.
type Tier string

const (
	TierEnterprise Tier = "enterprise"
	TierLocal      Tier = "local"
	TierProject    Tier = "project"
	TierGlobal     Tier = "global"
)

// Tiers returns all tiers in precedence order.
func Tiers() []Tier {
	return []Tier{TierEnterprise, TierLocal, TierProject, TierGlobal}
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	switch t {
	case TierEnterprise, TierLocal, TierProject, TierGlobal:
		return true
	}
	return false
}

// Relation labels a directed graph edge. The vocabulary is fixed.
type Relation string

const (
	RelationRelatesTo      Relation = "relates-to"
	RelationImplements     Relation = "implements"
	RelationSupersedes     Relation = "supersedes"
	RelationBlockedBy      Relation = "blocked-by"
	RelationInforms        Relation = "informs"
	RelationExemplifies    Relation = "exemplifies"
	RelationRelatedContext Relation = "related-context"
)

// Valid reports whether r is part of the relation vocabulary.
func (r Relation) Valid() bool {
	switch r {
	case RelationRelatesTo, RelationImplements, RelationSupersedes,
		RelationBlockedBy, RelationInforms, RelationExemplifies, RelationRelatedContext:
		return true
	}
	return false
}

// idRe matches "{type}-{slug}": a lowercase type prefix followed by a
// lowercase alphanumeric slug that may contain further dashes.
var idRe = regexp.MustCompile(`^[a-z]+-[a-z0-9][a-z0-9-]*$`)

// Record is a single stored knowledge unit. Content is the free-form
// markdown body; everything else lives in the record file's frontmatter.
type Record struct {
	ID        string     `yaml:"id" json:"id"`
	Type      RecordType `yaml:"type" json:"type"`
	Title     string     `yaml:"title" json:"title"`
	CreatedAt time.Time  `yaml:"createdAt" json:"createdAt"`
	UpdatedAt time.Time  `yaml:"updatedAt" json:"updatedAt"`
	Tags      []string   `yaml:"tags,omitempty" json:"tags,omitempty"`
	Scope     Tier       `yaml:"scope" json:"scope"`
	Severity  Severity   `yaml:"severity,omitempty" json:"severity,omitempty"`
	Links     []string   `yaml:"links,omitempty" json:"links,omitempty"`
	Content   string     `yaml:"-" json:"content"`
}

// Validate checks the record invariants. Any failure wraps
// apperr.ErrValidation and nothing may be written on failure.
func (r *Record) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.ID, validation.Required, validation.Match(idRe).Error("id must match {type}-{slug}")),
		validation.Field(&r.Type, validation.Required, validation.By(enumRule("type", func() bool { return r.Type.Valid() }))),
		validation.Field(&r.Title, validation.Required),
		validation.Field(&r.Scope, validation.Required, validation.By(enumRule("scope", func() bool { return r.Scope.Valid() }))),
		validation.Field(&r.Severity, validation.By(enumRule("severity", func() bool { return r.Severity.Valid() }))),
		validation.Field(&r.CreatedAt, validation.Required),
		validation.Field(&r.UpdatedAt, validation.Required),
		validation.Field(&r.Tags, validation.Each(validation.Required)),
		validation.Field(&r.Links, validation.Each(validation.Match(idRe))),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	if !strings.HasPrefix(r.ID, string(r.Type)+"-") {
		return fmt.Errorf("%w: id %q does not carry the %q type prefix", apperr.ErrValidation, r.ID, r.Type)
	}
	return nil
}

// enumRule adapts a membership check into an ozzo rule.
func enumRule(name string, ok func() bool) validation.RuleFunc {
	return func(any) error {
		if !ok() {
			return fmt.Errorf("invalid %s value", name)
		}
		return nil
	}
}
