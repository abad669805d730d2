package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Stripe   StripeConfig
	Admin    AdminConfig
	GitOps   GitOpsConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	// URL, when set, is used as the connection string verbatim and the
	// discrete fields below are ignored.
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  int // in minutes
	RefreshExpiry int // in days
}

type StripeConfig struct {
	PublishableKey string
	SecretKey      string
}

// AdminConfig seeds the initial admin account at startup when no
// admin user exists yet.
type AdminConfig struct {
	Email    string
	Password string
}

// GitOpsConfig drives the manifest promotion command.
type GitOpsConfig struct {
	RepoURL       string
	Branch        string
	ManifestPath  string
	ContainerName string
	AuthorName    string
	AuthorEmail   string
	Token         string
}

func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("JWT_ACCESS_EXPIRY", 15)
	viper.SetDefault("JWT_REFRESH_EXPIRY", 7)
	viper.SetDefault("GITOPS_BRANCH", "deploy")
	viper.SetDefault("GITOPS_MANIFEST_PATH", "deploy/deployment.yaml")
	viper.SetDefault("GITOPS_CONTAINER_NAME", "storefront")
	viper.SetDefault("GITOPS_AUTHOR_NAME", "storefront-ci")
	viper.SetDefault("GITOPS_AUTHOR_EMAIL", "ci@storefront.local")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	// Single-secret deployments set SECRET_KEY only
	jwtSecret := viper.GetString("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = viper.GetString("SECRET_KEY")
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
			Env:  viper.GetString("SERVER_ENV"),
		},
		Database: DatabaseConfig{
			URL:      viper.GetString("DATABASE_URL"),
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:        jwtSecret,
			AccessExpiry:  viper.GetInt("JWT_ACCESS_EXPIRY"),
			RefreshExpiry: viper.GetInt("JWT_REFRESH_EXPIRY"),
		},
		Stripe: StripeConfig{
			PublishableKey: viper.GetString("STRIPE_PUBLISHABLE_KEY"),
			SecretKey:      viper.GetString("STRIPE_SECRET_KEY"),
		},
		Admin: AdminConfig{
			Email:    viper.GetString("ADMIN_EMAIL"),
			Password: viper.GetString("ADMIN_PASSWORD"),
		},
		GitOps: GitOpsConfig{
			RepoURL:       viper.GetString("GITOPS_REPO_URL"),
			Branch:        viper.GetString("GITOPS_BRANCH"),
			ManifestPath:  viper.GetString("GITOPS_MANIFEST_PATH"),
			ContainerName: viper.GetString("GITOPS_CONTAINER_NAME"),
			AuthorName:    viper.GetString("GITOPS_AUTHOR_NAME"),
			AuthorEmail:   viper.GetString("GITOPS_AUTHOR_EMAIL"),
			Token:         viper.GetString("GITOPS_TOKEN"),
		},
	}
}
