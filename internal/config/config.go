package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port string

	// DBDriver is postgres, sqlite or memory.
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	StoreTimeout        time.Duration
	CheckInLogRetention int

	// Redis is optional; when RedisAddr is empty pushes stay in-process.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisChannel  string

	FrontendURL string
	// MentorJWTSecret gates the assign endpoint when set.
	MentorJWTSecret string

	LogDir   string
	LogLevel string

	SeedDemoStudent bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "3001")
	v.SetDefault("db_driver", "postgres")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_password", "postgres")
	v.SetDefault("db_name", "intervention_db")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("sqlite_path", "intervention.db")
	v.SetDefault("store_timeout", "3s")
	v.SetDefault("checkin_log_retention", 10)
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_channel", "pubsub:intervention_assigned")
	v.SetDefault("frontend_url", "*")
	v.SetDefault("mentor_jwt_secret", "")
	v.SetDefault("log_dir", "logs")
	v.SetDefault("log_level", "info")
	v.SetDefault("seed_demo_student", true)
}

// Load reads configuration from the environment (PORT, DB_HOST, ...). Call
// godotenv.Load first to pick up a .env file.
func Load() *Config {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	timeout := v.GetDuration("store_timeout")
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	retention := v.GetInt("checkin_log_retention")
	if retention <= 0 {
		retention = 10
	}

	return &Config{
		Port:                v.GetString("port"),
		DBDriver:            strings.ToLower(v.GetString("db_driver")),
		DBHost:              v.GetString("db_host"),
		DBPort:              v.GetString("db_port"),
		DBUser:              v.GetString("db_user"),
		DBPassword:          v.GetString("db_password"),
		DBName:              v.GetString("db_name"),
		DBSSLMode:           v.GetString("db_sslmode"),
		SQLitePath:          v.GetString("sqlite_path"),
		StoreTimeout:        timeout,
		CheckInLogRetention: retention,
		RedisAddr:           v.GetString("redis_addr"),
		RedisPassword:       v.GetString("redis_password"),
		RedisDB:             v.GetInt("redis_db"),
		RedisChannel:        v.GetString("redis_channel"),
		FrontendURL:         v.GetString("frontend_url"),
		MentorJWTSecret:     v.GetString("mentor_jwt_secret"),
		LogDir:              v.GetString("log_dir"),
		LogLevel:            v.GetString("log_level"),
		SeedDemoStudent:     v.GetBool("seed_demo_student"),
	}
}
