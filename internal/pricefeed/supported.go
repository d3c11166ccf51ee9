package pricefeed

import "retroswap/internal/model"

// SupportedIDs are the CoinGecko ids behind the supported symbols.
var SupportedIDs = []string{"ethereum", "bitcoin", "usd-coin", "dai", "tether"}

var symbolIDs = []struct {
	symbol string
	id     string
	stable bool
}{
	{"ETH", "ethereum", false},
	{"WETH", "ethereum", false},
	{"BTC", "bitcoin", false},
	{"WBTC", "bitcoin", false},
	{"USDC", "usd-coin", true},
	{"USDT", "tether", true},
	{"DAI", "dai", true},
}

// SymbolPrices maps a USD price table onto display symbols. Missing
// stablecoin prices default to 1, others to 0.
func SymbolPrices(table model.PriceTable) map[string]model.TokenPrice {
	out := make(map[string]model.TokenPrice, len(symbolIDs))
	for _, s := range symbolIDs {
		fields := table[s.id]
		price := fields["usd"]
		if price == 0 && s.stable {
			price = 1
		}
		out[s.symbol] = model.TokenPrice{Price: price, Change24h: fields["usd_24h_change"]}
	}
	return out
}

// ClientFallbackPrices are the display prices used when every fetch
// attempt failed.
func ClientFallbackPrices() map[string]model.TokenPrice {
	return map[string]model.TokenPrice{
		"ETH":  {Price: 3840, Change24h: -1.16},
		"WETH": {Price: 3840, Change24h: -1.16},
		"BTC":  {Price: 118088, Change24h: -0.1},
		"WBTC": {Price: 118088, Change24h: -0.1},
		"USDC": {Price: 0.998, Change24h: 0},
		"USDT": {Price: 1, Change24h: -0.01},
		"DAI":  {Price: 0.9998, Change24h: -0.01},
	}
}
