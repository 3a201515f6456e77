package response

import (
	"encoding/binary"

	"github.com/joripage/matching-core/pkg/orderbook"
)

const defaultCapacity = 256

// Encoder writes command outcomes into a flat byte arena that is reused for
// every command. It implements orderbook.EventSink.
type Encoder struct {
	buf    []byte
	trades int
	reduce bool
}

var _ orderbook.EventSink = (*Encoder)(nil)

func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, headerSize, defaultCapacity)}
}

// Begin clears the header for the next command. The arena keeps its capacity.
func (e *Encoder) Begin() {
	e.buf = e.buf[:headerSize]
	clear(e.buf)
	e.trades = 0
	e.reduce = false
}

func (e *Encoder) SetResultCode(code orderbook.ResultCode) {
	binary.LittleEndian.PutUint32(e.buf[offsetResultCode:], uint32(int32(code)))
}

func (e *Encoder) TakerHeader(orderID, uid int64, completed bool, action orderbook.OrderAction) {
	binary.LittleEndian.PutUint64(e.buf[offsetTakerOrderID:], uint64(orderID))
	binary.LittleEndian.PutUint64(e.buf[offsetTakerUID:], uint64(uid))
	e.buf[offsetTakerCompleted] = boolByte(completed)
	binary.LittleEndian.PutUint64(e.buf[offsetTakerAction:], uint64(action))
}

func (e *Encoder) Trade(makerOrderID, makerUID int64, makerCompleted bool, price, volume, bidderHoldPrice int64) {
	off := tradeOffset(e.trades)
	e.grow(off + tradeEntrySize)

	entry := e.buf[off:]
	entry[tradeCompleted] = boolByte(makerCompleted)
	binary.LittleEndian.PutUint64(entry[tradeMakerOrderID:], uint64(makerOrderID))
	binary.LittleEndian.PutUint64(entry[tradeMakerUID:], uint64(makerUID))
	binary.LittleEndian.PutUint64(entry[tradeVolume:], uint64(volume))
	binary.LittleEndian.PutUint64(entry[tradePrice:], uint64(price))
	binary.LittleEndian.PutUint64(entry[tradeReserve:], uint64(bidderHoldPrice))

	e.trades++
	binary.LittleEndian.PutUint32(e.buf[offsetTradeCount:], uint32(e.trades))
}

func (e *Encoder) Reduce(price, bidderHoldPrice, volume int64) {
	off := tradeOffset(e.trades)
	e.grow(off + reduceSize)

	entry := e.buf[off:]
	binary.LittleEndian.PutUint64(entry[reducePrice:], uint64(price))
	binary.LittleEndian.PutUint64(entry[reduceReserve:], uint64(bidderHoldPrice))
	binary.LittleEndian.PutUint64(entry[reduceVolume:], uint64(volume))

	e.reduce = true
	binary.LittleEndian.PutUint32(e.buf[offsetReduceFlag:], 1)
}

// Bytes returns the written region. It is only valid until the next Begin.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

func (e *Encoder) grow(n int) {
	if n <= len(e.buf) {
		return
	}
	if n <= cap(e.buf) {
		e.buf = e.buf[:n]
		return
	}
	buf := make([]byte, n, max(2*cap(e.buf), n))
	copy(buf, e.buf)
	e.buf = buf
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
