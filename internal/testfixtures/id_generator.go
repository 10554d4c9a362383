package testfixtures

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator hands out predictable identifiers such as "booking-1",
// "booking-2". With UUIDs enabled each name is hashed into a stable UUID so
// code that expects UUID-shaped ids sees them while runs stay repeatable.
type IDGenerator struct {
	prefix string
	uuids  bool
	issued atomic.Uint64
}

// NewIDGenerator yields prefix-N identifiers. An empty prefix means "id".
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

// NewUUIDGenerator yields name-based (SHA-1) UUIDs over prefix-N.
func NewUUIDGenerator(prefix string) *IDGenerator {
	g := NewIDGenerator(prefix)
	g.uuids = true
	return g
}

func (g *IDGenerator) Next() string {
	name := fmt.Sprintf("%s-%d", g.prefix, g.issued.Add(1))
	if g.uuids {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
	}
	return name
}

// Issued reports how many identifiers have been handed out.
func (g *IDGenerator) Issued() uint64 {
	return g.issued.Load()
}

// NextFunc adapts the generator to the idGenerator parameter of the services.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}
