package pkg

import (
	"fmt"
	"strings"
	"time"
)

// ExchangeTimeLayout формат времени обмена в истории: дд.мм.гггг чч:мм
const ExchangeTimeLayout = "02.01.2006 15:04"

// NormalizeCurrency приводит код валюты к верхнему регистру
func NormalizeCurrency(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}

// ValidateAmount проверяет, что сумма положительная
func ValidateAmount(amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}
	return nil
}

// FormatExchangeTime форматирует время обмена в UTC
func FormatExchangeTime(t time.Time) string {
	return t.UTC().Format(ExchangeTimeLayout)
}

// FormatDuration форматирует длительность в самой крупной подходящей единице
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%.2fm", d.Minutes())
	default:
		return fmt.Sprintf("%.2fh", d.Hours())
	}
}
