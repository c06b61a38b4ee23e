package kafka

import "time"

// ConversionMessage сообщение о крупной конвертации
type ConversionMessage struct {
	UserID          int64     `json:"user_id"`
	BaseCurrency    string    `json:"base_currency"`
	TargetCurrency  string    `json:"target_currency"`
	Amount          float64   `json:"amount"`
	ConvertedAmount float64   `json:"converted_amount"`
	Rate            float64   `json:"rate"`
	ExchangeTime    time.Time `json:"exchange_time"`
}
