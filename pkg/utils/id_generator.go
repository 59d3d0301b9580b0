package utils

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ReferenceGenerator hands out unique, sortable record references.
// ULIDs keep references URL-safe and ordered by creation time.
type ReferenceGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewReferenceGenerator() *ReferenceGenerator {
	return &ReferenceGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (g *ReferenceGenerator) next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}

// ExpenseReference returns a reference like EXP-01ARZ3NDEKTSV4RRFFQ69G5FAV.
func (g *ReferenceGenerator) ExpenseReference() string {
	return fmt.Sprintf("EXP-%s", g.next())
}

// IncomeReference returns a reference like INC-01ARZ3NDEKTSV4RRFFQ69G5FAV.
func (g *ReferenceGenerator) IncomeReference() string {
	return fmt.Sprintf("INC-%s", g.next())
}
