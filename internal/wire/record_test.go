package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandRoundTrip(t *testing.T) {
	c := Command{
		Type:       NewOrder,
		RecvTS:     123456789,
		OrderID:    42,
		SymbolID:   3,
		UserID:     7,
		PriceTicks: -500,
		Qty:        10,
		Side:       0,
		OrderType:  0,
		TIF:        1,
		Flags:      5,
		StopPrice:  0,
		DisplayQty: 0,
		ExpiryTS:   0,
	}
	buf := make([]byte, CommandSize)
	EncodeCommand(buf, c)

	got, err := DecodeCommand(buf)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestDecodeCommandShortBuffer(t *testing.T) {
	_, err := DecodeCommand(make([]byte, CommandSize-1))
	assert.ErrorIs(t, err, ErrShortRecord)
}

func TestTradeRecordRoundTrip(t *testing.T) {
	r := TradeRecord{TS: 1, TakerID: 2, MakerID: 3, SymbolID: 4, PriceTicks: -100, Qty: 6}
	buf := make([]byte, TradeRecordSize)
	EncodeTradeRecord(buf, r)

	got, err := DecodeTradeRecord(buf)
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestBookUpdateRecordRoundTrip(t *testing.T) {
	r := BookUpdateRecord{TS: 1, SymbolID: 2, BestBid: -1, BestAsk: 500, BidQty: 0, AskQty: 9}
	buf := make([]byte, BookUpdateRecordSize)
	EncodeBookUpdateRecord(buf, r)

	got, err := DecodeBookUpdateRecord(buf)
	require.NoError(t, err)
	assert.Equal(t, r, got)
}
