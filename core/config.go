package core

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Debug            bool
		TestMode         bool
		Env              string // DEV (default), TEST, QA, PROD
		Build            string
		AppName          string
		SecretKey        string
		FrontendBaseURL  string
		DefaultFromEmail string
		SendgridAPIKey   string
		RollbarToken     string

		Server   ServerConfig
		Database DatabaseConfig
		AI       AIConfig
		Quota    QuotaConfig
	}

	ServerConfig struct {
		Host             string
		Port             string
		ShutdownTimeout  time.Duration
		ParentSessionTTL time.Duration
		ChildSessionTTL  time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          string
		DisableTLS    bool
	}

	// AIConfig configures the three generation-pipeline capabilities.
	// Each stage may use a different model; they share one API key/base URL.
	AIConfig struct {
		APIKey        string
		BaseURL       string
		GenerateModel string
		VerifyModel   string
		RepairModel   string

		GenerateTimeout time.Duration
		VerifyTimeout   time.Duration
		RepairTimeout   time.Duration

		// VerificationFailOpen treats verifier/repairer errors as a PASS so
		// content delivery is never blocked on the secondary check. Flip to
		// false for fail-closed deployments.
		VerificationFailOpen bool
	}

	// QuotaConfig bounds chapter-generation requests per parent per window.
	QuotaConfig struct {
		GenerationRequests int
		Window             time.Duration
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// LoadConfig loads the app configuration from the environment,
// optionally seeded from config/.env.<env>.
func LoadConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Soma")
	v.SetDefault("secretKey", "y0uw1lln3v3rgu3ss-s0ma-d3v-k3y")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")

	v.SetDefault("serverHost", "0.0.0.0")
	v.SetDefault("serverPort", "8000")
	v.SetDefault("serverShutdownTimeout", 20*time.Second)
	v.SetDefault("parentSessionTTL", 7*24*time.Hour)
	v.SetDefault("childSessionTTL", 24*time.Hour)

	v.SetDefault("databaseEngine", "postgres")
	v.SetDefault("databaseName", "soma")
	v.SetDefault("databaseHost", "localhost")
	v.SetDefault("databasePort", "5432")
	v.SetDefault("databaseDisableTLS", true)

	v.SetDefault("aiBaseURL", "")
	v.SetDefault("aiGenerateModel", "gpt-4o")
	v.SetDefault("aiVerifyModel", "gpt-4o-mini")
	v.SetDefault("aiRepairModel", "gpt-4o")
	v.SetDefault("aiGenerateTimeout", 120*time.Second)
	v.SetDefault("aiVerifyTimeout", 60*time.Second)
	v.SetDefault("aiRepairTimeout", 90*time.Second)
	v.SetDefault("aiVerificationFailOpen", true)

	v.SetDefault("quotaGenerationRequests", 5)
	v.SetDefault("quotaWindow", time.Hour)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		Env:              env,
		Build:            v.GetString("build"),
		AppName:          v.GetString("appName"),
		SecretKey:        v.GetString("secretKey"),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		DefaultFromEmail: v.GetString("defaultFromEmail"),
		SendgridAPIKey:   v.GetString("sendgridAPIKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:             v.GetString("serverHost"),
			Port:             v.GetString("serverPort"),
			ShutdownTimeout:  v.GetDuration("serverShutdownTimeout"),
			ParentSessionTTL: v.GetDuration("parentSessionTTL"),
			ChildSessionTTL:  v.GetDuration("childSessionTTL"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("databaseEngine"),
			Name:          v.GetString("databaseName"),
			User:          v.GetString("databaseUser"),
			Password:      v.GetString("databasePassword"),
			AdminUser:     v.GetString("databaseAdminUser"),
			AdminPassword: v.GetString("databaseAdminPassword"),
			Host:          v.GetString("databaseHost"),
			Port:          v.GetString("databasePort"),
			DisableTLS:    v.GetBool("databaseDisableTLS"),
		},
		AI: AIConfig{
			APIKey:               v.GetString("aiAPIKey"),
			BaseURL:              v.GetString("aiBaseURL"),
			GenerateModel:        v.GetString("aiGenerateModel"),
			VerifyModel:          v.GetString("aiVerifyModel"),
			RepairModel:          v.GetString("aiRepairModel"),
			GenerateTimeout:      v.GetDuration("aiGenerateTimeout"),
			VerifyTimeout:        v.GetDuration("aiVerifyTimeout"),
			RepairTimeout:        v.GetDuration("aiRepairTimeout"),
			VerificationFailOpen: v.GetBool("aiVerificationFailOpen"),
		},
		Quota: QuotaConfig{
			GenerationRequests: v.GetInt("quotaGenerationRequests"),
			Window:             v.GetDuration("quotaWindow"),
		},
	}
}
