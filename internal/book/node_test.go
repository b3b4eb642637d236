package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Replenish is not driven by the match loop (spec §3, §9 design notes)
// but is exercised directly here per the schema's documented iceberg
// helper contract.
func TestReplenishMovesHiddenToDisplayed(t *testing.T) {
	n := &OrderNode{DisplayQty: 100, HiddenQty: 400, Qty: 40}

	revealed := n.Replenish()

	assert.Equal(t, Qty(60), revealed)
	assert.Equal(t, Qty(100), n.Qty)
	assert.Equal(t, Qty(340), n.HiddenQty)
}

func TestReplenishCapsAtDisplayQty(t *testing.T) {
	n := &OrderNode{DisplayQty: 50, HiddenQty: 10, Qty: 45}

	revealed := n.Replenish()

	assert.Equal(t, Qty(5), revealed)
	assert.Equal(t, Qty(50), n.Qty)
	assert.Equal(t, Qty(5), n.HiddenQty)
}

func TestReplenishNoopWhenAlreadyFull(t *testing.T) {
	n := &OrderNode{DisplayQty: 50, HiddenQty: 100, Qty: 50}

	revealed := n.Replenish()

	assert.Equal(t, Qty(0), revealed)
	assert.Equal(t, Qty(50), n.Qty)
	assert.Equal(t, Qty(100), n.HiddenQty)
}

func TestReplenishNoopWhenHiddenExhausted(t *testing.T) {
	n := &OrderNode{DisplayQty: 100, HiddenQty: 0, Qty: 30}

	revealed := n.Replenish()

	assert.Equal(t, Qty(0), revealed)
	assert.Equal(t, Qty(30), n.Qty)
}
