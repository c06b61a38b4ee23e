package cache

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// TTL записей о курсах. Одинаков для пары и для таблицы.
const RatesTTLSeconds = 3600

const tableSuffix = "conversion_rates"

// PairKey ключ курса пары, коды должны быть уже нормализованы
func PairKey(base, target string) string {
	return base + "->" + target
}

// TableKey ключ полной таблицы курсов для base
func TableKey(base string) string {
	return base + "->" + tableSuffix
}

// EncodePairRate хранит курс пары как обычную числовую строку: 89.5 -> "89.5"
func EncodePairRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64)
}

func DecodePairRate(value string) (float64, error) {
	rate, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid cached rate %q: %w", value, err)
	}
	return rate, nil
}

// EncodeTable сериализует таблицу в JSON. encoding/json пишет float64 в
// кратчайшей форме, которая читается обратно без потерь.
func EncodeTable(rates map[string]float64) (string, error) {
	data, err := json.Marshal(rates)
	if err != nil {
		return "", fmt.Errorf("failed to encode rates table: %w", err)
	}
	return string(data), nil
}

func DecodeTable(value string) (map[string]float64, error) {
	var rates map[string]float64
	if err := json.Unmarshal([]byte(value), &rates); err != nil {
		return nil, fmt.Errorf("invalid cached rates table: %w", err)
	}
	if rates == nil {
		return nil, fmt.Errorf("invalid cached rates table: empty value")
	}
	return rates, nil
}
