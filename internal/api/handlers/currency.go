package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"gw-currency-rates/internal/api/middleware"
	"gw-currency-rates/internal/service"
	"gw-currency-rates/pkg"
)

// CurrencyHandler курсы, конвертация и история
type CurrencyHandler struct {
	rates       *service.RateService
	conversions *service.ConversionService
	logger      *logrus.Logger
}

// NewCurrencyHandler создает обработчик валютных операций
func NewCurrencyHandler(rates *service.RateService, conversions *service.ConversionService, logger *logrus.Logger) *CurrencyHandler {
	return &CurrencyHandler{
		rates:       rates,
		conversions: conversions,
		logger:      logger,
	}
}

// ExchangeRequest запрос на конвертацию
type ExchangeRequest struct {
	From   string  `json:"from" binding:"required"`
	To     string  `json:"to" binding:"required"`
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

// ExchangeResponse результат конвертации
type ExchangeResponse struct {
	From            string  `json:"from"`
	To              string  `json:"to"`
	Amount          float64 `json:"amount"`
	Rate            float64 `json:"rate"`
	ConvertedAmount float64 `json:"converted_amount"`
	ExchangeTime    string  `json:"exchange_time"`
}

// HistoryItem запись истории в ответе API
type HistoryItem struct {
	CurrencyFrom    string  `json:"currency_from"`
	CurrencyTo      string  `json:"currency_to"`
	Rate            float64 `json:"rate"`
	Amount          float64 `json:"amount"`
	ConvertedAmount float64 `json:"converted_amount"`
	ExchangeTime    string  `json:"exchange_time"`
}

// GetPairRate возвращает курс пары
// @Summary Exchange rate for a currency pair
// @Tags currency
// @Security BearerAuth
// @Produce json
// @Param from path string true "Base currency"
// @Param to path string true "Target currency"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /api/v1/currency/exchange_rate/{from}/{to} [get]
func (h *CurrencyHandler) GetPairRate(c *gin.Context) {
	from, to := pkg.NormalizeCurrency(c.Param("from")), pkg.NormalizeCurrency(c.Param("to"))

	rate, err := h.rates.LookupPairRate(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, h.logger, err, "Failed to get exchange rate")
		return
	}

	c.JSON(http.StatusOK, gin.H{"from": from, "to": to, "rate": rate})
}

// GetRatesTable возвращает все курсы для базовой валюты
// @Summary All exchange rates for a base currency
// @Tags currency
// @Security BearerAuth
// @Produce json
// @Param from path string true "Base currency"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /api/v1/currency/exchange_rates/{from} [get]
func (h *CurrencyHandler) GetRatesTable(c *gin.Context) {
	from := pkg.NormalizeCurrency(c.Param("from"))

	rates, err := h.rates.LookupFullTable(c.Request.Context(), from)
	if err != nil {
		respondError(c, h.logger, err, "Failed to get exchange rates")
		return
	}

	c.JSON(http.StatusOK, gin.H{"base": from, "rates": rates})
}

// Exchange конвертирует сумму и записывает операцию в историю
// @Summary Convert an amount
// @Tags currency
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body ExchangeRequest true "Conversion data"
// @Success 200 {object} ExchangeResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/currency/exchange [post]
func (h *CurrencyHandler) Exchange(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req ExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	record, err := h.conversions.RecordAndConvert(c.Request.Context(), userID, req.From, req.To, req.Amount)
	if err != nil {
		respondError(c, h.logger, err, "Failed to convert amount")
		return
	}

	c.JSON(http.StatusOK, ExchangeResponse{
		From:            record.BaseCurrency,
		To:              record.TargetCurrency,
		Amount:          record.Amount,
		Rate:            record.Rate,
		ConvertedAmount: record.ConvertedAmount,
		ExchangeTime:    pkg.FormatExchangeTime(record.ExchangeTime),
	})
}

// GetHistory возвращает историю конвертаций
// @Summary Conversion history
// @Tags currency
// @Security BearerAuth
// @Produce json
// @Success 200 {array} HistoryItem
// @Router /api/v1/currency/history [get]
func (h *CurrencyHandler) GetHistory(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	records, err := h.conversions.ListHistory(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err, "Failed to get history")
		return
	}

	items := make([]HistoryItem, 0, len(records))
	for _, r := range records {
		items = append(items, HistoryItem{
			CurrencyFrom:    r.BaseCurrency,
			CurrencyTo:      r.TargetCurrency,
			Rate:            r.Rate,
			Amount:          r.Amount,
			ConvertedAmount: r.ConvertedAmount,
			ExchangeTime:    pkg.FormatExchangeTime(r.ExchangeTime),
		})
	}

	c.JSON(http.StatusOK, items)
}

// ExportHistory выгружает историю файлом
// @Summary Export conversion history
// @Tags currency
// @Security BearerAuth
// @Produce text/csv
// @Param format query string false "Export format" default(csv)
// @Success 200 {file} file
// @Failure 403 {object} map[string]string
// @Router /api/v1/currency/history/export [get]
func (h *CurrencyHandler) ExportHistory(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	format := c.DefaultQuery("format", service.ExportFormatCSV)

	var buf bytes.Buffer
	if err := h.conversions.ExportHistory(c.Request.Context(), userID, format, &buf); err != nil {
		respondError(c, h.logger, err, "Failed to export history")
		return
	}

	filename := fmt.Sprintf("history_%d_%s.csv", userID, time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
