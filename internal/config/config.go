package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddr        string
	EMRBaseURL      string
	EMRAPIKey       string
	EMRTimeout      time.Duration
	LocationID      string
	PersistTimeout  time.Duration
	SlotGranularity time.Duration
	ShutdownTimeout time.Duration
	LogLevel        string
}

func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CLINICBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http.addr", "0.0.0.0:8080")
	v.SetDefault("emr.base_url", "http://127.0.0.1:9000/api")
	v.SetDefault("emr.api_key", "")
	v.SetDefault("emr.request_timeout", "15s")
	v.SetDefault("location.id", "")
	v.SetDefault("session.persist_timeout", "10s")
	v.SetDefault("session.slot_granularity", "10m")
	v.SetDefault("shutdown.timeout", "10s")
	v.SetDefault("log.level", "info")

	_ = v.BindEnv("http.addr", "CLINICBOARD_HTTP_ADDR", "HTTP_ADDR")
	_ = v.BindEnv("emr.base_url", "CLINICBOARD_EMR_BASE_URL", "EMR_BASE_URL")
	_ = v.BindEnv("emr.api_key", "CLINICBOARD_EMR_API_KEY", "EMR_API_KEY")
	_ = v.BindEnv("emr.request_timeout", "CLINICBOARD_EMR_REQUEST_TIMEOUT")
	_ = v.BindEnv("location.id", "CLINICBOARD_LOCATION_ID", "LOCATION_ID")
	_ = v.BindEnv("session.persist_timeout", "CLINICBOARD_SESSION_PERSIST_TIMEOUT")
	_ = v.BindEnv("session.slot_granularity", "CLINICBOARD_SESSION_SLOT_GRANULARITY")
	_ = v.BindEnv("shutdown.timeout", "CLINICBOARD_SHUTDOWN_TIMEOUT", "SHUTDOWN_TIMEOUT")
	_ = v.BindEnv("log.level", "CLINICBOARD_LOG_LEVEL", "LOG_LEVEL")

	emrTimeout, err := time.ParseDuration(v.GetString("emr.request_timeout"))
	if err != nil {
		return Config{}, err
	}
	persistTimeout, err := time.ParseDuration(v.GetString("session.persist_timeout"))
	if err != nil {
		return Config{}, err
	}
	granularity, err := time.ParseDuration(v.GetString("session.slot_granularity"))
	if err != nil {
		return Config{}, err
	}
	shutdownTimeout, err := time.ParseDuration(v.GetString("shutdown.timeout"))
	if err != nil {
		return Config{}, err
	}

	return Config{
		HTTPAddr:        strings.TrimSpace(v.GetString("http.addr")),
		EMRBaseURL:      strings.TrimSpace(v.GetString("emr.base_url")),
		EMRAPIKey:       v.GetString("emr.api_key"),
		EMRTimeout:      emrTimeout,
		LocationID:      strings.TrimSpace(v.GetString("location.id")),
		PersistTimeout:  persistTimeout,
		SlotGranularity: granularity,
		ShutdownTimeout: shutdownTimeout,
		LogLevel:        v.GetString("log.level"),
	}, nil
}
