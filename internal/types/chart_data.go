package types

// ChartData is the payload of GET /api/chart-data/{symbol}: the open
// positions and recent signals the overlay projects onto the chart.
type ChartData struct {
	Success   bool       `json:"success" yaml:"success"`
	Symbol    string     `json:"symbol" yaml:"symbol"`
	Positions []Position `json:"positions" yaml:"positions"`
	Signals   []Signal   `json:"signals" yaml:"signals"`
	// Message carries the error description when Success is false.
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// SymbolsResponse is the payload of GET /api/symbols.
type SymbolsResponse struct {
	Success bool     `json:"success" yaml:"success"`
	Symbols []string `json:"symbols" yaml:"symbols"`
	Message string   `json:"message,omitempty" yaml:"message,omitempty"`
}
