package models

// MConfig Structure
type MConfig struct {
	Name     string         `yaml:"name"`
	Host     string         `yaml:"host"`
	Port     int            `yaml:"port"`
	LogLevel string         `yaml:"log_level"`
	GrpcHost string         `yaml:"grpc_host"`
	GrpcPort int            `yaml:"grpc_port"`
	Storage  MStorageConfig `yaml:"storage"`
	Network  MNetworkConfig `yaml:"network"`
	Backend  MBackendConfig `yaml:"backend"`
	View     MViewConfig    `yaml:"view"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"` // sqlite, postgres, redis
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	RedisAddr          string `yaml:"redis_addr"`
	RedisPassword      string `yaml:"redis_password"`
	RedisDB            int    `yaml:"redis_db"`
}

type MNetworkConfig struct {
	RequestTimeout int    `yaml:"timeout"`
	MaxRetries     int    `yaml:"retries"`
	UserAgent      string `yaml:"user_agent"`
	Proxy          string `yaml:"proxy"` // Optional
}

// MBackendConfig points at the external dashboard backend.
type MBackendConfig struct {
	RestURL                  string `yaml:"rest_url"`
	PushURL                  string `yaml:"push_url"`
	SeriesCapacity           int    `yaml:"series_capacity"`
	ReconnectDelaySeconds    int    `yaml:"reconnect_delay_seconds"`
	MaxReconnectDelaySeconds int    `yaml:"max_reconnect_delay_seconds"`
	PingSeconds              int    `yaml:"ping_seconds"`
}

// MViewConfig is the view shown before any navigation happens.
type MViewConfig struct {
	DefaultSymbols  []string `yaml:"default_symbols"`
	DefaultSymbol   string   `yaml:"default_symbol"`
	DefaultInterval string   `yaml:"default_interval"`
	Intervals       []string `yaml:"intervals"`
}
