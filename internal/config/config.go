package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// FEE_RATE is the canonical trade fee rate. Every consumer that needs the
// fee of a trade derives it from this single value, never from its own copy.
var FEE_RATE = decimal.NewFromFloat(0.03)

// VIP_STAKE_MINIMUM is the smallest stake that activates VIP status.
var VIP_STAKE_MINIMUM = decimal.NewFromInt(100000)

// RECENT_ACTIVITY_LIMIT caps the recent-transactions view of commission stats.
var RECENT_ACTIVITY_LIMIT = 10

var log = InitLogger()

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

func InitConfig() error {
	err := godotenv.Load()
	if err != nil {
		log.Error("Error loading .env file")
	}

	if v := os.Getenv("FEE_RATE"); v != "" {
		rate, err := decimal.NewFromString(v)
		if err != nil {
			log.Error("Error parsing FEE_RATE")
		} else {
			FEE_RATE = rate
		}
	}

	if v := os.Getenv("VIP_STAKE_MINIMUM"); v != "" {
		minStake, err := decimal.NewFromString(v)
		if err != nil {
			log.Error("Error parsing VIP_STAKE_MINIMUM")
		} else {
			VIP_STAKE_MINIMUM = minStake
		}
	}

	if v := os.Getenv("RECENT_ACTIVITY_LIMIT"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			log.Error("Error parsing RECENT_ACTIVITY_LIMIT")
		} else {
			RECENT_ACTIVITY_LIMIT = limit
		}
	}

	return nil
}

func LoadPostgresConfig() *PostgresConfig {
	return &PostgresConfig{
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		Host:     os.Getenv("DB_HOST"),
		Port:     os.Getenv("DB_PORT"),
		DBName:   os.Getenv("DB_NAME"),
	}
}
