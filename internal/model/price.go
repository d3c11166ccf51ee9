package model

// PriceTable is the simple-price payload: coin id -> field -> value, where
// fields are the currency code and "<currency>_24h_change".
type PriceTable map[string]map[string]float64

// TokenPrice is a display price for a registered symbol.
type TokenPrice struct {
	Price     float64 `json:"price"`
	Change24h float64 `json:"change24h"`
}

// MarketEntry is one row of the coins/markets listing.
type MarketEntry struct {
	ID                       string   `json:"id"`
	Symbol                   string   `json:"symbol"`
	Name                     string   `json:"name"`
	Image                    string   `json:"image"`
	CurrentPrice             float64  `json:"current_price"`
	MarketCap                float64  `json:"market_cap"`
	TotalVolume              float64  `json:"total_volume"`
	PriceChangePercentage24h *float64 `json:"price_change_percentage_24h"`
}
