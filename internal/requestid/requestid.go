package requestid

import (
	"sync/atomic"
	"time"

	"github.com/sqids/sqids-go"
)

// Generator produces short, URL-safe request IDs from a process epoch and
// a sequence number, so IDs do not repeat across restarts.
type Generator struct {
	sqids *sqids.Sqids
	epoch uint64
	seq   atomic.Uint64
}

func New() (*Generator, error) {
	return NewWithEpoch(uint64(time.Now().Unix()))
}

func NewWithEpoch(epoch uint64) (*Generator, error) {
	s, err := sqids.New(sqids.Options{
		MinLength: 10,
	})
	if err != nil {
		return nil, err
	}
	return &Generator{sqids: s, epoch: epoch}, nil
}

// Next returns the next ID. It falls back to an empty string only if the
// encoder rejects the input, which cannot happen for two numbers.
func (g *Generator) Next() string {
	id, err := g.sqids.Encode([]uint64{g.epoch, g.seq.Add(1)})
	if err != nil {
		return ""
	}
	return id
}

// Decode returns the epoch and sequence encoded in id.
func (g *Generator) Decode(id string) (epoch, seq uint64, ok bool) {
	numbers := g.sqids.Decode(id)
	if len(numbers) != 2 {
		return 0, 0, false
	}
	return numbers[0], numbers[1], true
}
