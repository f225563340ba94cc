package domain

import (
	"fmt"
	"strings"
	"time"
)

// ElementType classifies a pre-extracted regulation element.
type ElementType string

const (
	ElementTypeText    ElementType = "text"
	ElementTypeTable   ElementType = "table"
	ElementTypeHeading ElementType = "heading"
)

// IsValid checks if the ElementType is valid
func (e ElementType) IsValid() bool {
	switch e {
	case ElementTypeText, ElementTypeTable, ElementTypeHeading:
		return true
	}
	return false
}

// ParseElementType normalises a wire value. Empty input defaults to text.
func ParseElementType(s string) (ElementType, error) {
	if strings.TrimSpace(s) == "" {
		return ElementTypeText, nil
	}
	et := ElementType(strings.ToLower(strings.TrimSpace(s)))
	if !et.IsValid() {
		return "", NewDomainErrorWithCause(ErrCodeValidation, ErrInvalidElementType.Message, fmt.Errorf("%q", s))
	}
	return et, nil
}

// SourceMetadata describes where a regulation element came from.
type SourceMetadata struct {
	SourceDocument string
	Section        string
	PageNumber     int
	ElementType    ElementType
}

// ParentInput is one parent text block handed to the index.
type ParentInput struct {
	Text string
	Meta SourceMetadata
}

// RegulatoryChunk is either a parent block (ParentID empty) or a child span
// of a parent. Start and End are rune offsets of a child inside its parent.
type RegulatoryChunk struct {
	ID             string
	Seq            int64
	ParentID       string
	SourceDocument string
	Section        string
	PageNumber     int
	ElementType    ElementType
	Text           string
	Start          int
	End            int
	Embedding      []float32
	CreatedAt      time.Time
}

// IsParent reports whether the chunk is a parent block.
func (c *RegulatoryChunk) IsParent() bool {
	return c.ParentID == ""
}

// Searchable reports whether the chunk carries an embedding used for search.
// Children and atomic tables are searchable, plain parents are not.
func (c *RegulatoryChunk) Searchable() bool {
	return len(c.Embedding) > 0
}

// Validate checks the chunk's required fields.
func (c *RegulatoryChunk) Validate() error {
	if c.ID == "" {
		return NewDomainErrorWithCause(ErrCodeValidation, ErrMissingRequiredField.Message, fmt.Errorf("id"))
	}
	if c.Text == "" {
		return NewDomainErrorWithCause(ErrCodeValidation, ErrMissingRequiredField.Message, fmt.Errorf("text"))
	}
	if !c.ElementType.IsValid() {
		return ErrInvalidElementType
	}
	if !c.IsParent() && (c.Start < 0 || c.End < c.Start) {
		return NewDomainError(ErrCodeValidation, "child span is out of range")
	}
	return nil
}

// Reference renders a human-readable locator such as "Section 2.1, Page 5".
func (c *RegulatoryChunk) Reference() string {
	var parts []string
	if c.Section != "" {
		parts = append(parts, "Section "+c.Section)
	}
	if c.PageNumber > 0 {
		parts = append(parts, fmt.Sprintf("Page %d", c.PageNumber))
	}
	if len(parts) == 0 {
		return "Unreferenced"
	}
	return strings.Join(parts, ", ")
}

// IngestResult counts what an ingestion call stored. Skipped counts parents
// and tables that were already stored.
type IngestResult struct {
	Parents  int `json:"parents"`
	Children int `json:"children"`
	Tables   int `json:"tables"`
	Skipped  int `json:"skipped,omitempty"`
}

// Add accumulates another result.
func (r *IngestResult) Add(o IngestResult) {
	r.Parents += o.Parents
	r.Children += o.Children
	r.Tables += o.Tables
	r.Skipped += o.Skipped
}
