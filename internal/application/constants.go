package application

// Exchange names
const (
	ExchangeCoinbase = "coinbase"
	ExchangeKraken   = "kraken"
)
