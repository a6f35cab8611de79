package config

import (
	"os"

	"github.com/shopspring/decimal"
)

type Config struct {
	DBConnStr   string
	JWTSecret   []byte
	ServerPort  string
	DeliveryFee decimal.Decimal
	AppEnv      string
}

func LoadConfig() *Config {
	return &Config{
		DBConnStr:   getEnvOrDefault("DB_CONN", "host=localhost port=5432 user=postgres password=postgres dbname=foodrush_db sslmode=disable"),
		JWTSecret:   []byte(getEnvOrDefault("JWT_SECRET", "")),
		ServerPort:  getEnvOrDefault("PORT", "8080"),
		DeliveryFee: decimalOrDefault("DELIVERY_FEE", "2.99"),
		AppEnv:      getEnvOrDefault("APP_ENV", "production"),
	}
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getEnvOrDefault(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func decimalOrDefault(key, def string) decimal.Decimal {
	d, err := decimal.NewFromString(os.Getenv(key))
	if err != nil {
		return decimal.RequireFromString(def)
	}
	return d
}
