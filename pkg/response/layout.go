package response

// Buffer layout, little endian, no padding.
const (
	offsetResultCode     = 0
	offsetTakerOrderID   = 4
	offsetTakerUID       = 12
	offsetTakerCompleted = 20
	offsetTakerAction    = 21
	offsetTradeCount     = 29
	offsetReduceFlag     = 33
	headerSize           = 37

	// trade entry, relative to its start
	tradeCompleted    = 0
	tradeMakerOrderID = 1
	tradeMakerUID     = 9
	tradeVolume       = 17
	tradePrice        = 25
	tradeReserve      = 33
	tradeEntrySize    = 41

	// reduce entry, relative to the end of the trades
	reducePrice   = 0
	reduceReserve = 8
	reduceVolume  = 16
	reduceSize    = 24
)

func tradeOffset(i int) int {
	return headerSize + i*tradeEntrySize
}
