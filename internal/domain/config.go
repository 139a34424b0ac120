package domain

// Config holds the complete Falcon configuration. It is constructed
// once in main and passed by reference into every component; there is
// no package-level mutable configuration state.
type Config struct {
	Server ServerConfig `json:"server"`

	// Tier determines which backing services are wired.
	Tier Tier `json:"tier"`

	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	Models   ModelConfig    `json:"models"`
	Features FeatureConfig  `json:"features"`
	Decision DecisionConfig `json:"decision"`

	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// ModelConfig locates the pre-trained model artifact bundle.
type ModelConfig struct {
	// BundlePath is the JSON artifact file holding the classifier, the
	// anomaly detector, their scalers, the risk scaler and the encoder
	// vocabularies. Empty means the built-in development bundle.
	BundlePath string `json:"bundlePath"`
}

// FeatureConfig fixes the feature vector layout. The ordering must
// match the column order the models were trained with.
type FeatureConfig struct {
	Numerical      []string `json:"numerical"`
	Categorical    []string `json:"categorical"`
	EncodingSuffix string   `json:"encodingSuffix"`

	// GeoAnomalyKm is the merchant-vs-device distance above which the
	// geo-anomaly flag is raised.
	GeoAnomalyKm float64 `json:"geoAnomalyKm"`

	// Rapid-repeat detection: at least RapidRepeatCount prior records
	// for the sender/beneficiary pair within the trailing window.
	RapidRepeatCount      int `json:"rapidRepeatCount"`
	RapidRepeatWindowMins int `json:"rapidRepeatWindowMins"`
}

// DecisionConfig holds the risk-level thresholds,
// review_threshold < block_threshold.
type DecisionConfig struct {
	ReviewThreshold float64 `json:"reviewThreshold"`
	BlockThreshold  float64 `json:"blockThreshold"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"serviceName"`
	Endpoint    string `json:"endpoint"`
}

// Tier represents the deployment tier.
type Tier string

const (
	// TierCommunity runs on SQLite + in-process channels + LRU cache.
	TierCommunity Tier = "community"

	// TierPro runs on PostgreSQL + NATS + Redis.
	TierPro Tier = "pro"
)

// DefaultFeatureConfig returns the feature layout the shipped models
// were trained with.
func DefaultFeatureConfig() FeatureConfig {
	return FeatureConfig{
		Numerical: []string{
			"amount",
			"hour",
			"time_since_last_txn",
			"time_diff_mins",
			"distance_km",
			"distance_km_md",
			"geo_distance_km",
			"is_new_beneficiary",
		},
		Categorical: []string{
			"transaction_type",
			"merchant_category",
			"device_type",
		},
		EncodingSuffix:        "_encoded",
		GeoAnomalyKm:          200,
		RapidRepeatCount:      3,
		RapidRepeatWindowMins: 60,
	}
}

// DefaultConfig returns a default configuration for the Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Tier: TierCommunity,
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./falcon.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     300,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Models:   ModelConfig{},
		Features: DefaultFeatureConfig(),
		Decision: DecisionConfig{
			ReviewThreshold: 50,
			BlockThreshold:  70,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "falcon",
		},
	}
}

// ProConfig returns a configuration for the Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "falcon",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}
