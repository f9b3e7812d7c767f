package types

import "github.com/shopspring/decimal"

// AccountInfo is the subset of futures account state the dashboard displays.
type AccountInfo struct {
	// TotalWalletBalance is the wallet balance excluding unrealized PnL.
	TotalWalletBalance decimal.Decimal `json:"total_wallet_balance" yaml:"total_wallet_balance"`
	// TotalUnrealizedProfit is the unrealized PnL across open positions.
	TotalUnrealizedProfit decimal.Decimal `json:"total_unrealized_profit" yaml:"total_unrealized_profit"`
	// AvailableBalance is the balance available for new positions.
	AvailableBalance decimal.Decimal `json:"available_balance" yaml:"available_balance"`
}

// PnLSummary aggregates realized performance for the status header.
type PnLSummary struct {
	// Daily is today's PnL as a percentage of balance.
	Daily decimal.Decimal `json:"daily" yaml:"daily"`
	// Total is the cumulative realized PnL in quote units.
	Total decimal.Decimal `json:"total" yaml:"total"`
}

// OrderSide is the side of an open order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// Order is an open order as reported by the bot status endpoint.
type Order struct {
	Symbol   string          `json:"symbol" yaml:"symbol"`
	Side     OrderSide       `json:"side" yaml:"side"`
	Type     string          `json:"type" yaml:"type"`
	Price    decimal.Decimal `json:"price" yaml:"price"`
	Quantity decimal.Decimal `json:"quantity" yaml:"quantity"`
	// Time is the order creation time in epoch milliseconds.
	Time int64 `json:"time" yaml:"time"`
}

// Trade is a recently executed trade as reported by the bot status endpoint.
type Trade struct {
	ID       int64           `json:"id" yaml:"id"`
	Symbol   string          `json:"symbol" yaml:"symbol"`
	Price    decimal.Decimal `json:"price" yaml:"price"`
	Quantity decimal.Decimal `json:"quantity" yaml:"quantity"`
	// Time is the execution time in epoch milliseconds.
	Time int64 `json:"time" yaml:"time"`
	// IsBuyer reports whether the bot was the buyer side.
	IsBuyer bool `json:"is_buyer" yaml:"is_buyer"`
}

// BotStatus is the full payload of GET /api/status. The overlay engine only
// consumes IsRunning; the rest feeds the surrounding dashboard tables.
type BotStatus struct {
	IsRunning bool `json:"is_running" yaml:"is_running"`
	// Mode is the bot's trading mode ("signal", "grid" or "none").
	Mode string `json:"mode" yaml:"mode"`
	// StartTime is the bot start time formatted as "2006-01-02 15:04:05",
	// empty when the bot is stopped.
	StartTime string      `json:"start_time" yaml:"start_time"`
	Symbols   []string    `json:"symbols" yaml:"symbols"`
	Account   AccountInfo `json:"account_info" yaml:"account_info"`
	Positions []Position  `json:"positions" yaml:"positions"`
	Orders    []Order     `json:"orders" yaml:"orders"`
	Trades    []Trade     `json:"trades" yaml:"trades"`
	PnL       PnLSummary  `json:"pnl" yaml:"pnl"`
}
