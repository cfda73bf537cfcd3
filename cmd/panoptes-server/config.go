package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/EternisAI/panoptes/internal/api/http"
	"github.com/EternisAI/panoptes/internal/auth"
	"github.com/EternisAI/panoptes/internal/db"
	"github.com/EternisAI/panoptes/internal/monitor"
	"github.com/EternisAI/panoptes/internal/plume"
	"github.com/EternisAI/panoptes/internal/reports"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log      LogConfig
	Http     http.Config
	Auth     auth.JWTConfig
	Plume    plume.Config
	Database db.Config
	Monitor  monitor.Config
	Reports  reports.Config `mapstructure:",squash"`
}

var config Config

func InitConfig() {
	var err error

	_ = godotenv.Load()

	viper.SetConfigName("application")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./cmd/panoptes-server")
	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	_ = viper.BindEnv("auth.jwt_secret", "JWT_SECRET")
	_ = viper.BindEnv("http.admin_api_key", "ADMIN_API_KEY")
	_ = viper.BindEnv("database.url", "DATABASE_URL")

	if err := viper.ReadInConfig(); err != nil {
		panic(err)
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		panic(err)
	}

	initLogger(config.Log)

	// Pretty print config as JSON (only at DEBUG level)
	if strings.ToUpper(config.Log.Level) == LOG_LEVEL_DEBUG {
		configJSON, err := json.MarshalIndent(redacted(config), "", "  ")
		if err == nil {
			fmt.Println("Config loaded:")
			fmt.Println(string(configJSON))
		}
	}
}

func redacted(c Config) Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "***"
	}
	c.Auth.Secret = mask(c.Auth.Secret)
	c.Http.AdminAPIKey = mask(c.Http.AdminAPIKey)
	c.Database.Url = mask(c.Database.Url)
	return c
}
