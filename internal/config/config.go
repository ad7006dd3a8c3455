package config

import "time"

type Config struct {
	BaseURL  string
	HttpPort int
	Db       struct {
		Dsn         string
		Automigrate bool
	}
	Jwt struct {
		SecretKey string
	}
	Notifications struct {
		Email string
	}
	Smtp struct {
		Host     string
		Port     int
		Username string
		Password string
		From     string
	}
	PriceFeed struct {
		// Provider selects the quote source: "coinmarketcap" or "binance".
		// An empty ApiKey leaves the feed unconfigured; ticks then keep the
		// cached prices and only refresh the last-attempt timestamp.
		Provider  string
		ApiKey    string
		ApiSecret string
		BaseURL   string
		Interval  time.Duration
	}
	RedisServer  string
	KafkaServers string
}
