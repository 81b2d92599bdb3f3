package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort string
	JWTKey  []byte
	JWTExp  time.Duration

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JudgeBaseURL      string
	JudgeTimeout      time.Duration
	PickerMaxRetries  int
	PickerMinTagCount int

	ContestPollInterval time.Duration
	BuilderSessionTTL   time.Duration
	AnnounceChannel     string

	DailyResetHour     int
	WeeklyResetWeekday time.Weekday
	MonthlyResetDay    int

	LeaderboardMaxLimit int
}

var AppConfig *Config

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = &Config{
		APIPort:    getEnv("API_PORT", "8080"),
		JWTKey:     []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:     time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 72)) * time.Hour,
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "user"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "cparena_db"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		JudgeBaseURL:      getEnv("JUDGE_BASE_URL", "https://codeforces.com/api"),
		JudgeTimeout:      time.Duration(getEnvAsInt("JUDGE_TIMEOUT_SECONDS", 15)) * time.Second,
		PickerMaxRetries:  getEnvAsInt("PICKER_MAX_RETRIES", 5),
		PickerMinTagCount: getEnvAsInt("PICKER_MIN_TAG_COUNT", 10),

		ContestPollInterval: time.Duration(getEnvAsInt("CONTEST_POLL_SECONDS", 60)) * time.Second,
		BuilderSessionTTL:   time.Duration(getEnvAsInt("BUILDER_SESSION_TTL_MINUTES", 30)) * time.Minute,
		AnnounceChannel:     getEnv("ANNOUNCE_CHANNEL", "cparena:announcements"),

		DailyResetHour:     getEnvAsInt("DAILY_RESET_HOUR", 0),
		WeeklyResetWeekday: time.Weekday(getEnvAsInt("WEEKLY_RESET_WEEKDAY", 1)), // Monday
		MonthlyResetDay:    getEnvAsInt("MONTHLY_RESET_DAY", 1),

		LeaderboardMaxLimit: getEnvAsInt("LEADERBOARD_MAX_LIMIT", 100),
	}

	AppConfig.DBConnStr = "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=" + AppConfig.DBSslMode
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
