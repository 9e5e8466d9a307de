package config

// Chat definition chat_service YAML structure
type Chat struct {
	Port       string         `mapstructure:"port"`
	PostgreSQL DatabaseConfig `mapstructure:"pg"`
	Redis      RedisConfig    `mapstructure:"redis"`
	MinIO      MinIOConfig    `mapstructure:"minio"`
	Kafka      KafkaConfig    `mapstructure:"kafka"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	Addr    string `mapstructure:"addr"`
	RedisDB int    `mapstructure:"redis_db"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// MinIOConfig definition image storage setting
type MinIOConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	CustomerBucket string `mapstructure:"customer_bucket"`
	AdminBucket    string `mapstructure:"admin_bucket"`
	UseSSL         bool   `mapstructure:"use_ssl"`
	RetryInterval  int    `mapstructure:"retry_interval"`
	RetryCount     int    `mapstructure:"retry_count"`
}

// KafkaConfig definition chat event export setting
type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	RetryInterval int      `mapstructure:"retry_interval"`
	RetryCount    int      `mapstructure:"retry_count"`
}
