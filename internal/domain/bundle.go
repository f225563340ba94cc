package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Element is one pre-extracted piece of a regulation document.
type Element struct {
	Text        string `json:"text" validate:"max=1000000"`
	ElementType string `json:"element_type" validate:"max=32"`
	PageNumber  int    `json:"page_number" validate:"gte=0"`
	Section     string `json:"section,omitempty" validate:"max=256"`
}

// ElementBundle is the ingestion unit: the elements of one source document.
type ElementBundle struct {
	SourceDocument string    `json:"source_document" validate:"required,max=512"`
	Elements       []Element `json:"elements" validate:"required,min=1,dive"`
}

// DecodeElementBundle parses and validates a bundle. Input that ends before
// the JSON document does fails with ErrIncompleteBundle, so callers reading
// a file that is still being written can try again later.
func DecodeElementBundle(data []byte) (*ElementBundle, error) {
	var b ElementBundle
	if err := json.Unmarshal(data, &b); err != nil {
		if truncatedJSON(data, err) {
			return nil, NewDomainErrorWithCause(ErrIncompleteBundle.Code, ErrIncompleteBundle.Message, err)
		}
		return nil, NewDomainErrorWithCause(ErrCodeValidation, "invalid element bundle", err)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// truncatedJSON reports whether err stems from the input running out rather
// than from a malformed byte.
func truncatedJSON(data []byte, err error) bool {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var se *json.SyntaxError
	return errors.As(err, &se) && se.Offset == int64(len(data))
}

// Validate checks the bundle shape.
func (b *ElementBundle) Validate() error {
	return ValidateStruct(b)
}

// ParentInputs converts the elements into index inputs, keeping their order.
func (b *ElementBundle) ParentInputs() ([]ParentInput, error) {
	inputs := make([]ParentInput, 0, len(b.Elements))
	for i, e := range b.Elements {
		et, err := ParseElementType(e.ElementType)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		inputs = append(inputs, ParentInput{
			Text: e.Text,
			Meta: SourceMetadata{
				SourceDocument: b.SourceDocument,
				Section:        e.Section,
				PageNumber:     e.PageNumber,
				ElementType:    et,
			},
		})
	}
	return inputs, nil
}
