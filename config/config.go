package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Conf holds all runtime configuration. Values come from the environment,
// optionally seeded from a .env file, with sane defaults for local runs.
var Conf *viper.Viper

func init() {
	Conf = viper.New()

	Conf.SetDefault("SERVER_PORT", "8080")
	Conf.SetDefault("DB_URL", "")
	Conf.SetDefault("SECRET_KEY", "")
	Conf.SetDefault("ACCESS_TOKEN_TTL", 15*time.Minute)
	Conf.SetDefault("REFRESH_TOKEN_TTL", 30*24*time.Hour)

	Conf.SetDefault("SMTP_HOST", "")
	Conf.SetDefault("SMTP_PORT", 587)
	Conf.SetDefault("SMTP_USER", "")
	Conf.SetDefault("SMTP_PASS", "")

	// Calendar proxy. The service account key is PEM, usually supplied with
	// literal \n sequences in the env value.
	Conf.SetDefault("GCAL_SERVICE_ACCOUNT_EMAIL", "")
	Conf.SetDefault("GCAL_PRIVATE_KEY", "")
	Conf.SetDefault("GCAL_CALENDAR_ID", "")
	Conf.SetDefault("GCAL_OAUTH_CLIENT_ID", "")
	Conf.SetDefault("GCAL_OAUTH_CLIENT_SECRET", "")
	Conf.SetDefault("GCAL_OAUTH_REDIRECT_URI", "")

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			log.Fatalf("config: error loading .env file: %v", err)
		}
	}
	Conf.AutomaticEnv()
}

// SecretKey returns the JWT signing key.
func SecretKey() []byte {
	return []byte(Conf.GetString("SECRET_KEY"))
}
