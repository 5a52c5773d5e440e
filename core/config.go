package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kat-co/vala"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Debug           bool
		TestMode        bool
		Env             string // DEV (default), TEST, QA, PROD
		Build           string
		AppName         string
		SecretKey       []byte
		FrontendBaseURL string
		WorkDir         string
		DefaultFromName string
		DefaultFromAddr string
		SendgridApiKey  string
		RollbarToken    string
		Server          ServerConfig
		Database        DatabaseConfig
		Uploads         UploadsConfig
		Report          ReportConfig
	}

	ServerConfig struct {
		Host                      string
		Addr                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	UploadsConfig struct {
		Backend  string // disk (default) | s3
		Dir      string
		S3Bucket string
		S3Region string
	}

	ReportConfig struct {
		Command string
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.DefaultFromName, Address: c.DefaultFromAddr}
}

// NewConfig loads the process-wide configuration: defaults first, then an
// optional config/.env.<env> file, then env vars prefixed with the env name.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Academia")
	v.SetDefault("secretKey", "")
	v.SetDefault("build", "dev")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromName", "Academia")
	v.SetDefault("defaultFromAddr", "noreply@localhost")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddr", ":8000")
	v.SetDefault("serverDebugHost", "localhost:4000")
	v.SetDefault("shutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)

	v.SetDefault("databaseEngine", "postgres")
	v.SetDefault("databaseName", "academia")
	v.SetDefault("databaseHost", "localhost")
	v.SetDefault("databasePort", "5432")
	v.SetDefault("databaseUser", "")
	v.SetDefault("databasePassword", "")
	v.SetDefault("databaseAdminUser", "")
	v.SetDefault("databaseAdminPassword", "")
	v.SetDefault("databaseDisableTLS", true)

	v.SetDefault("uploadsBackend", "disk")
	v.SetDefault("uploadsDir", "uploads")
	v.SetDefault("uploadsS3Bucket", "")
	v.SetDefault("uploadsS3Region", "")

	v.SetDefault("reportCommand", "generate_report")

	env := os.Getenv("ENV")
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)

	workDir := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Debug:           v.GetBool("debug"),
		TestMode:        env == "TEST",
		Env:             env,
		Build:           v.GetString("build"),
		AppName:         v.GetString("appName"),
		SecretKey:       []byte(v.GetString("secretKey")),
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		WorkDir:         workDir,
		DefaultFromName: v.GetString("defaultFromName"),
		DefaultFromAddr: v.GetString("defaultFromAddr"),
		SendgridApiKey:  v.GetString("sendgridApiKey"),
		RollbarToken:    v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			Addr:                      v.GetString("serverAddr"),
			DebugHost:                 v.GetString("serverDebugHost"),
			ShutdownTimeout:           v.GetDuration("shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("databaseEngine"),
			Name:          v.GetString("databaseName"),
			Host:          v.GetString("databaseHost"),
			Port:          v.GetString("databasePort"),
			User:          v.GetString("databaseUser"),
			Password:      v.GetString("databasePassword"),
			AdminUser:     v.GetString("databaseAdminUser"),
			AdminPassword: v.GetString("databaseAdminPassword"),
			DisableTLS:    v.GetBool("databaseDisableTLS"),
		},
		Uploads: UploadsConfig{
			Backend:  v.GetString("uploadsBackend"),
			Dir:      v.GetString("uploadsDir"),
			S3Bucket: v.GetString("uploadsS3Bucket"),
			S3Region: v.GetString("uploadsS3Region"),
		},
		Report: ReportConfig{
			Command: v.GetString("reportCommand"),
		},
	}

	// the signing key must come from the environment in deployed envs;
	// a throwaway default is only tolerated in DEV/TEST
	if len(conf.SecretKey) == 0 {
		if !(conf.Debug || conf.TestMode) {
			log.Fatal("config: secretKey is required")
		}
		conf.SecretKey = []byte("dev-only-secret-do-not-deploy")
	}

	if err := conf.check(); err != nil {
		log.Fatalf("config: %v", err)
	}
	return conf
}

func (c *Config) check() error {
	err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(c.AppName, "appName"),
		vala.StringNotEmpty(c.Server.Addr, "serverAddr"),
		vala.StringNotEmpty(c.Database.Engine, "databaseEngine"),
		vala.StringNotEmpty(c.Database.Name, "databaseName"),
		vala.StringNotEmpty(c.Uploads.Backend, "uploadsBackend"),
		vala.StringNotEmpty(c.Report.Command, "reportCommand"),
	).Check()
	if err != nil {
		return err
	}
	if c.Uploads.Backend == "s3" && (c.Uploads.S3Bucket == "" || c.Uploads.S3Region == "") {
		return fmt.Errorf("uploads backend %q requires uploadsS3Bucket and uploadsS3Region", c.Uploads.Backend)
	}
	return nil
}
