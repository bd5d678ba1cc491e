package utils

import (
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Email     EmailConfig
	OTP       OTPConfig
	RateLimit RateLimitConfig
	Google    GoogleConfig
	Cocktail  CocktailConfig
}

type AppConfig struct {
	Name        string
	Port        string
	Debug       bool
	LogPath     string
	FrontendURL string
	RedirectURL string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

type JWTConfig struct {
	Secret            string
	Issuer            string
	AccessExpiryMins  int
	RefreshExpiryDays int
}

type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	ReplyTo  string
}

type OTPConfig struct {
	Length        int
	ExpiryMinutes int
	MaxAttempts   int
}

type RateLimitConfig struct {
	DailyCap  int
	Allowlist []string
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

type CocktailConfig struct {
	BaseURL string
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("FRONTEND_URL", "https://mycabinet.me")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("JWT_ISSUER", "mycabinet")
	viper.SetDefault("ACCESS_TOKEN_EXPIRE_MINUTES", 15)
	viper.SetDefault("REFRESH_TOKEN_EXPIRE_DAYS", 7)
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("OTP_LENGTH", 6)
	viper.SetDefault("OTP_EXPIRY_MINUTES", 10)
	viper.SetDefault("OTP_MAX_ATTEMPTS", 5)
	viper.SetDefault("EMAIL_DAILY_LIMIT", 3)
	viper.SetDefault("COCKTAILDB_BASE_URL", "https://www.thecocktaildb.com/api/json/v1/1")

	if err := viper.ReadInConfig(); err != nil {
		// .env is optional in production; environment variables still apply
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	viper.AutomaticEnv()

	frontendURL := viper.GetString("FRONTEND_URL")
	redirectURL := viper.GetString("REDIRECT_URL")
	if redirectURL == "" {
		redirectURL = frontendURL + "/r"
	}

	config := &Config{
		App: AppConfig{
			Name:        viper.GetString("APP_NAME"),
			Port:        viper.GetString("PORT"),
			Debug:       viper.GetBool("DEBUG"),
			LogPath:     viper.GetString("LOG_PATH"),
			FrontendURL: frontendURL,
			RedirectURL: redirectURL,
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
		},
		JWT: JWTConfig{
			Secret:            viper.GetString("JWT_SECRET"),
			Issuer:            viper.GetString("JWT_ISSUER"),
			AccessExpiryMins:  viper.GetInt("ACCESS_TOKEN_EXPIRE_MINUTES"),
			RefreshExpiryDays: viper.GetInt("REFRESH_TOKEN_EXPIRE_DAYS"),
		},
		Email: EmailConfig{
			Host:     viper.GetString("SMTP_HOST"),
			Port:     viper.GetInt("SMTP_PORT"),
			User:     viper.GetString("SMTP_USER"),
			Password: viper.GetString("SMTP_PASS"),
			From:     viper.GetString("MAIL_FROM"),
			ReplyTo:  viper.GetString("REPLY_TO"),
		},
		OTP: OTPConfig{
			Length:        viper.GetInt("OTP_LENGTH"),
			ExpiryMinutes: viper.GetInt("OTP_EXPIRY_MINUTES"),
			MaxAttempts:   viper.GetInt("OTP_MAX_ATTEMPTS"),
		},
		RateLimit: RateLimitConfig{
			DailyCap:  viper.GetInt("EMAIL_DAILY_LIMIT"),
			Allowlist: splitList(viper.GetString("EMAIL_RATE_ALLOWLIST")),
		},
		Google: GoogleConfig{
			ClientID:     viper.GetString("GOOGLE_CLIENT_ID"),
			ClientSecret: viper.GetString("GOOGLE_CLIENT_SECRET"),
			RedirectURI:  viper.GetString("GOOGLE_REDIRECT_URI"),
		},
		Cocktail: CocktailConfig{
			BaseURL: viper.GetString("COCKTAILDB_BASE_URL"),
		},
	}

	return config, nil
}

// splitList parses a comma-separated env value into trimmed, lowercased entries.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
