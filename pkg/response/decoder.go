package response

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/joripage/matching-core/pkg/orderbook"
)

var ErrBufferTooShort = errors.New("response buffer too short")

// ReadResult parses a buffer written by Encoder. The trade events block is
// only present when the command produced at least one event.
func ReadResult(buf []byte) (*CommandResponse, error) {
	if len(buf) < headerSize {
		return nil, fmt.Errorf("%w: header needs %d bytes, got %d", ErrBufferTooShort, headerSize, len(buf))
	}

	resp := &CommandResponse{
		ResultCode: orderbook.ResultCode(int32(binary.LittleEndian.Uint32(buf[offsetResultCode:]))),
	}

	trades := int(binary.LittleEndian.Uint32(buf[offsetTradeCount:]))
	hasReduce := binary.LittleEndian.Uint32(buf[offsetReduceFlag:]) != 0
	if trades == 0 && !hasReduce {
		return resp, nil
	}

	end := tradeOffset(trades)
	if hasReduce {
		end += reduceSize
	}
	if len(buf) < end {
		return nil, fmt.Errorf("%w: %d trades need %d bytes, got %d", ErrBufferTooShort, trades, end, len(buf))
	}

	block := &TradeEventsBlock{
		TakerOrderID:   int64(binary.LittleEndian.Uint64(buf[offsetTakerOrderID:])),
		TakerUID:       int64(binary.LittleEndian.Uint64(buf[offsetTakerUID:])),
		TakerCompleted: buf[offsetTakerCompleted] != 0,
		TakerAction:    orderbook.OrderAction(binary.LittleEndian.Uint64(buf[offsetTakerAction:])),
		Trades:         make([]TradeEvent, trades),
	}

	for i := range block.Trades {
		entry := buf[tradeOffset(i):]
		block.Trades[i] = TradeEvent{
			MakerCompleted:  entry[tradeCompleted] != 0,
			MakerOrderID:    int64(binary.LittleEndian.Uint64(entry[tradeMakerOrderID:])),
			MakerUID:        int64(binary.LittleEndian.Uint64(entry[tradeMakerUID:])),
			Volume:          int64(binary.LittleEndian.Uint64(entry[tradeVolume:])),
			Price:           int64(binary.LittleEndian.Uint64(entry[tradePrice:])),
			ReserveBidPrice: int64(binary.LittleEndian.Uint64(entry[tradeReserve:])),
		}
	}

	if hasReduce {
		entry := buf[tradeOffset(trades):]
		block.ReduceEvent = &ReduceEvent{
			Price:           int64(binary.LittleEndian.Uint64(entry[reducePrice:])),
			ReserveBidPrice: int64(binary.LittleEndian.Uint64(entry[reduceReserve:])),
			ReducedVolume:   int64(binary.LittleEndian.Uint64(entry[reduceVolume:])),
		}
	}

	resp.TradeEventsBlock = block
	return resp, nil
}
