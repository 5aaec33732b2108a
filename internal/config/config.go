package config

import "os"

type DecisionServiceConfig struct {
	Port            string
	APIKey          string
	RatingTablePath string
	DecisionTimeout string
	PostgresCfg     PostgresConfig
	RabbitMQCfg     RabbitMQConfig
	RedisCfg        RedisConfig
	MinioCfg        MinioConfig
	RetrievalCfg    RetrievalConfig
	ATRTemplateKey  string
}

type MinioConfig struct {
	MinioURL         string
	MinioAccessKey   string
	MinioSecretKey   string
	MinioLocation    string
	MinioSecure      string
	MinioResourceURL string
}

type PostgresConfig struct {
	DBname   string
	Username string
	Password string
	Host     string
	Port     string
}

type RabbitMQConfig struct {
	Username string
	Password string
	Host     string
	Port     string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// RetrievalConfig points at the external tariff/clause retrieval service.
type RetrievalConfig struct {
	BaseURL        string
	APIKey         string
	TimeoutSeconds string
}

func New() *DecisionServiceConfig {
	return &DecisionServiceConfig{
		Port:            getEnvOrDefault("PORT", "8086"),
		APIKey:          getEnvOrDefault("API_KEY", ""),
		RatingTablePath: getEnvOrDefault("RATING_TABLE_PATH", "rating.yaml"),
		DecisionTimeout: getEnvOrDefault("DECISION_TIMEOUT_SECONDS", "30"),
		PostgresCfg: PostgresConfig{
			DBname:   getEnvOrDefault("POSTGRES_DB", "decision_service"),
			Username: getEnvOrDefault("POSTGRES_USER", "postgres"),
			Password: getEnvOrDefault("POSTGRES_PASSWORD", "postgres"),
			Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
			Port:     getEnvOrDefault("POSTGRES_PORT", "5432"),
		},
		RabbitMQCfg: RabbitMQConfig{
			Username: getEnvOrDefault("RABBITMQ_USER", "admin"),
			Password: getEnvOrDefault("RABBITMQ_PWD", "admin"),
			Host:     getEnvOrDefault("RABBITMQ_HOST", "localhost"),
			Port:     getEnvOrDefault("RABBITMQ_PORT", "5672"),
		},
		RedisCfg: RedisConfig{
			Host:     getEnvOrDefault("REDIS_HOST", "localhost"),
			Port:     getEnvOrDefault("REDIS_PORT", "6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       0,
		},
		MinioCfg: MinioConfig{
			MinioURL:         getEnvOrDefault("MINIO_ENDPOINT", "http://localhost:9407"),
			MinioAccessKey:   getEnvOrDefault("MINIO_ACCESS_KEY", "minio"),
			MinioSecretKey:   getEnvOrDefault("MINIO_SECRET_KEY", "minio123"),
			MinioLocation:    getEnvOrDefault("MINIO_LOCATION", "us-east-1"),
			MinioSecure:      getEnvOrDefault("MINIO_SECURE", "false"),
			MinioResourceURL: getEnvOrDefault("MINIO_RESOURCE_URL", "http://localhost:9407/"),
		},
		RetrievalCfg: RetrievalConfig{
			BaseURL:        getEnvOrDefault("RETRIEVAL_BASE_URL", "http://localhost:8090"),
			APIKey:         getEnvOrDefault("RETRIEVAL_API_KEY", ""),
			TimeoutSeconds: getEnvOrDefault("RETRIEVAL_TIMEOUT_SECONDS", "10"),
		},
		ATRTemplateKey: getEnvOrDefault("ATR_TEMPLATE_KEY", "templates/atr_template.txt"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
