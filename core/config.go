package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers for quiz unlock records.
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StoragePostgres = "postgres"
)

type (
	Config struct {
		Env          string
		Build        string
		Debug        bool
		TestMode     bool
		AppName      string
		SecretKey    string
		RollbarToken string
		WorkDir      string

		Server   ServerConfig
		LMS      LMSConfig
		Storage  StorageConfig
		Database DatabaseConfig
		Quiz     QuizConfig
		Tracker  TrackerConfig
		Email    EmailConfig
	}

	ServerConfig struct {
		Address         string
		DebugAddress    string
		Host            string
		ShutdownTimeout time.Duration
		AllowedOrigins  []string
	}

	// LMSConfig points at the remote e-learning REST API.
	LMSConfig struct {
		BaseURL string
		Timeout time.Duration
	}

	StorageConfig struct {
		Driver string
		Path   string // file driver only
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	QuizConfig struct {
		Threshold           int
		SequentialThreshold int
		UnlockTTL           time.Duration
	}

	TrackerConfig struct {
		JanitorInterval time.Duration
		StaleAfter      time.Duration
		SessionIdle     time.Duration
		RetryBase       time.Duration
		RetryMax        time.Duration
		RetryAttempts   int
	}

	EmailConfig struct {
		Enabled          bool
		SendgridApiKey   string
		DefaultFromEmail string
		DefaultFromName  string
	}
)

func (c DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c EmailConfig) DefaultFrom() mail.Address {
	return mail.Address{Name: c.DefaultFromName, Address: c.DefaultFromEmail}
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "CourseTrack")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugAddress", ":4000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.allowedOrigins", []string{"http://localhost:3000"})

	v.SetDefault("lms.baseURL", "http://localhost:8080/api")
	v.SetDefault("lms.timeout", 10*time.Second)

	v.SetDefault("storage.driver", StorageMemory)
	v.SetDefault("storage.path", "quiz_unlocks.json")

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "coursetrack")
	v.SetDefault("database.user", "coursetrack")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("quiz.threshold", 80)
	v.SetDefault("quiz.sequentialThreshold", 100)
	v.SetDefault("quiz.unlockTTL", 24*time.Hour)

	v.SetDefault("tracker.janitorInterval", time.Minute)
	v.SetDefault("tracker.staleAfter", 5*time.Minute)
	v.SetDefault("tracker.sessionIdle", 2*time.Hour)
	v.SetDefault("tracker.retryBase", 2*time.Second)
	v.SetDefault("tracker.retryMax", 2*time.Minute)
	v.SetDefault("tracker.retryAttempts", 5)

	v.SetDefault("email.enabled", false)
	v.SetDefault("email.sendgridApiKey", "")
	v.SetDefault("email.defaultFromEmail", "noreply@localhost")
	v.SetDefault("email.defaultFromName", "")
}

// NewConfig loads the configuration: defaults, then `config/.env.<env>` if it exists,
// then env vars prefixed with the env name (eg. DEV_LMS_BASEURL).
func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := Getwd()
	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:          env,
		Build:        v.GetString("build"),
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		AppName:      v.GetString("appName"),
		SecretKey:    v.GetString("secretKey"),
		RollbarToken: v.GetString("rollbarToken"),
		WorkDir:      wd,
		Server: ServerConfig{
			Address:         v.GetString("server.address"),
			DebugAddress:    v.GetString("server.debugAddress"),
			Host:            v.GetString("server.host"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			AllowedOrigins:  v.GetStringSlice("server.allowedOrigins"),
		},
		LMS: LMSConfig{
			BaseURL: strings.TrimRight(v.GetString("lms.baseURL"), "/"),
			Timeout: v.GetDuration("lms.timeout"),
		},
		Storage: StorageConfig{
			Driver: CleanString(v.GetString("storage.driver"), true /* lower */),
			Path:   v.GetString("storage.path"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Quiz: QuizConfig{
			Threshold:           v.GetInt("quiz.threshold"),
			SequentialThreshold: v.GetInt("quiz.sequentialThreshold"),
			UnlockTTL:           v.GetDuration("quiz.unlockTTL"),
		},
		Tracker: TrackerConfig{
			JanitorInterval: v.GetDuration("tracker.janitorInterval"),
			StaleAfter:      v.GetDuration("tracker.staleAfter"),
			SessionIdle:     v.GetDuration("tracker.sessionIdle"),
			RetryBase:       v.GetDuration("tracker.retryBase"),
			RetryMax:        v.GetDuration("tracker.retryMax"),
			RetryAttempts:   v.GetInt("tracker.retryAttempts"),
		},
		Email: EmailConfig{
			Enabled:          v.GetBool("email.enabled"),
			SendgridApiKey:   v.GetString("email.sendgridApiKey"),
			DefaultFromEmail: v.GetString("email.defaultFromEmail"),
			DefaultFromName:  v.GetString("email.defaultFromName"),
		},
	}
	if conf.Email.DefaultFromName == "" {
		conf.Email.DefaultFromName = conf.AppName
	}
	return conf
}
