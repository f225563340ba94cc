package service

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("plancheck:regulation_chunks"))

// ParentChunkID derives a stable id from where a parent block came from and
// what it says. Re-ingesting the same bundle yields the same ids; edited
// text yields new ones.
func ParentChunkID(sourceDocument string, element, block int, text string) string {
	name := fmt.Sprintf("%s\x00%d\x00%d\x00%s", sourceDocument, element, block, text)
	return uuid.NewSHA1(chunkNamespace, []byte(name)).String()
}

// ChildChunkID derives the id of the n-th child of a parent.
func ChildChunkID(parentID string, n int) string {
	ns, err := uuid.Parse(parentID)
	if err != nil {
		ns = uuid.NewSHA1(chunkNamespace, []byte(parentID))
	}
	return uuid.NewSHA1(ns, []byte(strconv.Itoa(n))).String()
}
