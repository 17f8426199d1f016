package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port                          string `mapstructure:"PORT"`
	DatabaseDriver                string `mapstructure:"DATABASE_DRIVER"`
	DatabasePath                  string `mapstructure:"DATABASE_PATH"`
	DatabaseURL                   string `mapstructure:"DATABASE_URL"`
	DiscordClientID               string `mapstructure:"DISCORD_CLIENT_ID"`
	DiscordClientSecret           string `mapstructure:"DISCORD_CLIENT_SECRET"`
	DiscordRedirectURL            string `mapstructure:"DISCORD_REDIRECT_URL"`
	DiscordGuildID                string `mapstructure:"DISCORD_GUILD_ID"`
	DiscordBotToken               string `mapstructure:"DISCORD_BOT_TOKEN"`
	DiscordNotificationsChannelID string `mapstructure:"DISCORD_NOTIFICATIONS_CHANNEL_ID"`
	JWTSecret                     string `mapstructure:"JWT_SECRET"`
	FrontendURL                   string `mapstructure:"FRONTEND_URL"`
	EnableCORS                    bool   `mapstructure:"ENABLE_CORS"`

	LogLevel      string `mapstructure:"LOG_LEVEL"`
	LogPath       string `mapstructure:"LOG_PATH"`
	LogMaxSizeMB  int    `mapstructure:"LOG_MAX_SIZE_MB"`
	LogMaxBackups int    `mapstructure:"LOG_MAX_BACKUPS"`
	LogMaxAgeDays int    `mapstructure:"LOG_MAX_AGE_DAYS"`

	RedisAddr          string `mapstructure:"REDIS_ADDR"`
	RedisPassword      string `mapstructure:"REDIS_PASSWORD"`
	RedisDB            int    `mapstructure:"REDIS_DB"`
	RateLimitPerMinute int    `mapstructure:"RATE_LIMIT_PER_MINUTE"`
	TrustedProxies     string `mapstructure:"TRUSTED_PROXIES"`

	S3Endpoint        string `mapstructure:"S3_ENDPOINT"`
	S3Region          string `mapstructure:"S3_REGION"`
	S3Bucket          string `mapstructure:"S3_BUCKET"`
	S3AccessKeyID     string `mapstructure:"S3_ACCESS_KEY_ID"`
	S3AccessKeySecret string `mapstructure:"S3_ACCESS_KEY_SECRET"`
	S3PublicBaseURL   string `mapstructure:"S3_PUBLIC_BASE_URL"`

	GamificationDayOffsetHours  float64       `mapstructure:"GAMIFICATION_DAY_OFFSET_HOURS"`
	GamificationRejectBackdated bool          `mapstructure:"GAMIFICATION_REJECT_BACKDATED"`
	APIKeyCleanupInterval       time.Duration `mapstructure:"API_KEY_CLEANUP_INTERVAL"`
}

// DayOffset is the UTC offset used to decide which calendar day a check-in
// belongs to.
func (c *Config) DayOffset() time.Duration {
	return time.Duration(c.GamificationDayOffsetHours * float64(time.Hour))
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DATABASE_DRIVER", "sqlite")
	viper.SetDefault("DATABASE_PATH", "coach.db")
	viper.SetDefault("DISCORD_REDIRECT_URL", "http://127.0.0.1:8080/auth/discord/callback")
	viper.SetDefault("FRONTEND_URL", "http://127.0.0.1:4000")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_MAX_SIZE_MB", 100)
	viper.SetDefault("LOG_MAX_BACKUPS", 3)
	viper.SetDefault("LOG_MAX_AGE_DAYS", 7)
	viper.SetDefault("RATE_LIMIT_PER_MINUTE", 30)
	viper.SetDefault("S3_REGION", "auto")
	viper.SetDefault("GAMIFICATION_DAY_OFFSET_HOURS", -3)
	viper.SetDefault("GAMIFICATION_REJECT_BACKDATED", false)
	viper.SetDefault("API_KEY_CLEANUP_INTERVAL", "1h")

	viper.BindEnv("DATABASE_URL")
	viper.BindEnv("DISCORD_CLIENT_ID")
	viper.BindEnv("DISCORD_CLIENT_SECRET")
	viper.BindEnv("DISCORD_GUILD_ID")
	viper.BindEnv("DISCORD_BOT_TOKEN")
	viper.BindEnv("DISCORD_NOTIFICATIONS_CHANNEL_ID")
	viper.BindEnv("JWT_SECRET")
	viper.BindEnv("ENABLE_CORS")
	viper.BindEnv("LOG_PATH")
	viper.BindEnv("REDIS_ADDR")
	viper.BindEnv("REDIS_PASSWORD")
	viper.BindEnv("REDIS_DB")
	viper.BindEnv("TRUSTED_PROXIES")
	viper.BindEnv("S3_ENDPOINT")
	viper.BindEnv("S3_BUCKET")
	viper.BindEnv("S3_ACCESS_KEY_ID")
	viper.BindEnv("S3_ACCESS_KEY_SECRET")
	viper.BindEnv("S3_PUBLIC_BASE_URL")

	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	return &config
}
