package domain

// Trade sides (формат Bybit V5)
const (
	SideBuy  = "Buy"
	SideSell = "Sell"
)

// Order types
const (
	OrderTypeLimit  = "Limit"
	OrderTypeMarket = "Market"
)

// Bybit constants
const (
	BybitCategoryLinear = "linear"
	BybitAccountUnified = "UNIFIED"
	BybitRecvWindow     = "5000"
	TimeInForceGTC      = "GTC"
)

// Signal direction tokens
const (
	DirectionLong  = "LONG"
	DirectionShort = "SHORT"
)

// Дефолты, применяемые к сигналу после парсинга
const (
	DefaultLeverage        = 10
	DefaultQuantityPercent = 25
)
