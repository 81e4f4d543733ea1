package configs

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// StoreDriver selects the document store: "mongo", "postgres" or "memory".
	StoreDriver string
	MongoURI    string
	MongoDB     string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	// RedisHost empty disables the profile cache.
	RedisHost     string
	RedisPort     int
	RedisPassword string

	JWTSecret            string
	CookieExpire         time.Duration
	CookieSecure         bool
	OTPExpire            time.Duration
	ResetOTPExpire       time.Duration
	RequireVerifiedLogin bool

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	S3Endpoint   string
	S3Region     string
	S3Bucket     string
	S3AccessKey  string
	S3SecretKey  string
	S3PublicURL  string
	AvatarFolder string

	CORSOrigins string
	LogDir      string
}

func LoadConfig() Config {
	// Muat file .env
	if err := godotenv.Load(); err != nil {
		// Hanya log jika tidak dalam mode test
		if os.Getenv("GO_ENV") != "test" {
			log.Println("No .env file found, using default values")
		}
	}

	cfg := Config{
		Port:        getEnv("PORT", "4000"),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", "mongo")),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:     getEnv("MONGO_DB", "todoApp"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "todo"),

		RedisHost:     os.Getenv("REDIS_HOST"),
		RedisPort:     getEnvInt("REDIS_PORT", 6379),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		JWTSecret:            os.Getenv("JWT_SECRET"),
		CookieExpire:         time.Duration(getEnvInt("JWT_COOKIE_EXPIRE", 15)) * 24 * time.Hour,
		CookieSecure:         getEnvBool("COOKIE_SECURE", false),
		OTPExpire:            time.Duration(getEnvInt("OTP_EXPIRE", 5)) * time.Minute,
		ResetOTPExpire:       time.Duration(getEnvInt("RESET_OTP_EXPIRE", 10)) * time.Minute,
		RequireVerifiedLogin: getEnvBool("REQUIRE_VERIFIED_LOGIN", false),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     getEnv("SMTP_FROM", "no-reply@todoapp.local"),

		S3Endpoint:   os.Getenv("S3_ENDPOINT"),
		S3Region:     getEnv("S3_REGION", "us-east-1"),
		S3Bucket:     getEnv("S3_BUCKET", "avatars"),
		S3AccessKey:  os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:  os.Getenv("S3_SECRET_KEY"),
		S3PublicURL:  os.Getenv("S3_PUBLIC_URL"),
		AvatarFolder: getEnv("AVATAR_FOLDER", "todoApp"),

		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		LogDir:      getEnv("LOG_DIR", "logs"),
	}

	if cfg.JWTSecret == "" && os.Getenv("GO_ENV") != "test" {
		log.Fatal("JWT_SECRET is not set in the environment")
	}
	return cfg
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}
