package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"gw-currency-rates/internal/api/handlers"
	"gw-currency-rates/internal/api/middleware"
	"gw-currency-rates/internal/service"
)

// Services сервисы, которые обслуживает HTTP API
type Services struct {
	Auth        *service.AuthService
	Rates       *service.RateService
	Conversions *service.ConversionService
}

// SetupRouter настраивает и возвращает роутер с всеми эндпоинтами
func SetupRouter(
	services Services,
	jwtMiddleware *middleware.JWTMiddleware,
	logger *logrus.Logger,
	ginMode string,
) *gin.Engine {
	gin.SetMode(ginMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	authHandler := handlers.NewAuthHandler(services.Auth, jwtMiddleware, logger)
	currencyHandler := handlers.NewCurrencyHandler(services.Rates, services.Conversions, logger)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/register", authHandler.Register)
		v1.POST("/login", authHandler.Login)

		authorized := v1.Group("")
		authorized.Use(jwtMiddleware.Auth())
		{
			authorized.GET("/users/me", authHandler.Me)

			currency := authorized.Group("/currency")
			currency.GET("/exchange_rate/:from/:to", currencyHandler.GetPairRate)
			currency.GET("/exchange_rates/:from", currencyHandler.GetRatesTable)
			currency.POST("/exchange", currencyHandler.Exchange)
			currency.GET("/history", currencyHandler.GetHistory)
			currency.GET("/history/export", currencyHandler.ExportHistory)
		}
	}

	return router
}
