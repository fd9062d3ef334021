package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/viper"
	"golang.org/x/text/currency"
)

const envPrefix = "STOREFRONT"

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Gateway GatewayConfig `mapstructure:"gateway"`
	GRPC    GRPCConfig    `mapstructure:"grpc"`
	Etcd    EtcdConfig    `mapstructure:"etcd"`
	Redis   RedisConfig   `mapstructure:"redis"`
	MySQL   MySQLConfig   `mapstructure:"mysql"`
	MongoDB MongoDBConfig `mapstructure:"mongodb"`
	Log     LogConfig     `mapstructure:"log"`
	Storage StorageConfig `mapstructure:"storage"`
	Shop    ShopConfig    `mapstructure:"shop"`
	Orders  OrdersConfig  `mapstructure:"orders"`
	Cart    CartConfig    `mapstructure:"cart"`
	Audit   AuditConfig   `mapstructure:"audit"`
}

type ServerConfig struct {
	Name            string        `mapstructure:"name"`
	Host            string        `mapstructure:"host"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type GatewayConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

type GRPCConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

type EtcdConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Prefix      string        `mapstructure:"prefix"`
	LeaseTTL    int64         `mapstructure:"lease_ttl"`
}

type RedisConfig struct {
	Addr          string        `mapstructure:"addr"`
	Password      string        `mapstructure:"password"`
	DB            int           `mapstructure:"db"`
	PoolSize      int           `mapstructure:"pool_size"`
	OrderCacheTTL time.Duration `mapstructure:"order_cache_ttl"`
	UserCacheTTL  time.Duration `mapstructure:"user_cache_ttl"`
}

type MySQLConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type MongoDBConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type LogConfig struct {
	Level       string   `mapstructure:"level"`
	Encoding    string   `mapstructure:"encoding"`
	OutputPaths []string `mapstructure:"output_paths"`
}

type StorageConfig struct {
	// Driver is "mysql" or "memory".
	Driver       string        `mapstructure:"driver"`
	SeedProducts []SeedProduct `mapstructure:"seed_products"`
	SeedUsers    []SeedUser    `mapstructure:"seed_users"`
}

type SeedProduct struct {
	ID    int64  `mapstructure:"id"`
	Name  string `mapstructure:"name"`
	Price string `mapstructure:"price"`
	Stock int    `mapstructure:"stock"`
}

type SeedUser struct {
	ID       string `mapstructure:"id"`
	FullName string `mapstructure:"full_name"`
	Email    string `mapstructure:"email"`
	Role     string `mapstructure:"role"`
}

type ShopConfig struct {
	Currency string `mapstructure:"currency"`
}

type OrdersConfig struct {
	RestockOnCancel bool `mapstructure:"restock_on_cancel"`
	ConflictRetries int  `mapstructure:"conflict_retries"`
}

type CartConfig struct {
	SessionTTL  time.Duration `mapstructure:"session_ttl"`
	MergeKeyTTL time.Duration `mapstructure:"merge_key_ttl"`
}

type AuditConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "storefront")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("gateway.host", "0.0.0.0")
	v.SetDefault("gateway.port", 8080)
	v.SetDefault("grpc.host", "0.0.0.0")
	v.SetDefault("grpc.port", 50051)
	v.SetDefault("etcd.dial_timeout", 5*time.Second)
	v.SetDefault("etcd.prefix", "/services/")
	v.SetDefault("etcd.lease_ttl", 30)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.order_cache_ttl", 10*time.Minute)
	v.SetDefault("redis.user_cache_ttl", 30*time.Minute)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("mysql.host", "localhost")
	v.SetDefault("mysql.port", 3306)
	v.SetDefault("mysql.username", "root")
	v.SetDefault("mysql.password", "")
	v.SetDefault("mysql.database", "storefront")
	v.SetDefault("mysql.max_idle_conns", 10)
	v.SetDefault("mysql.max_open_conns", 50)
	v.SetDefault("mysql.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("mysql.auto_migrate", true)
	v.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb.database", "storefront")
	v.SetDefault("mongodb.collection", "audit_logs")
	v.SetDefault("etcd.enabled", false)
	v.SetDefault("audit.enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.output_paths", []string{"stdout"})
	v.SetDefault("storage.driver", "mysql")
	v.SetDefault("shop.currency", "VND")
	v.SetDefault("orders.restock_on_cancel", false)
	v.SetDefault("orders.conflict_retries", 2)
	v.SetDefault("cart.session_ttl", 30*24*time.Hour)
	v.SetDefault("cart.merge_key_ttl", 24*time.Hour)
	v.SetDefault("audit.write_timeout", 5*time.Second)
}

// Load reads the YAML file at configPath. Every key can be overridden from the
// environment, e.g. STOREFRONT_MYSQL_HOST for mysql.host.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	var problems []error

	switch c.Storage.Driver {
	case "mysql", "memory":
	default:
		problems = append(problems, fmt.Errorf("storage.driver %q is not one of mysql, memory", c.Storage.Driver))
	}
	if _, err := c.Shop.CurrencyUnit(); err != nil {
		problems = append(problems, err)
	}
	if c.Orders.ConflictRetries < 0 {
		problems = append(problems, errors.New("orders.conflict_retries must not be negative"))
	}
	if c.Cart.SessionTTL <= 0 {
		problems = append(problems, errors.New("cart.session_ttl must be positive"))
	}
	if c.Etcd.Enabled && len(c.Etcd.Endpoints) == 0 {
		problems = append(problems, errors.New("etcd.endpoints is required when etcd is enabled"))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(problems...))
	}
	return nil
}

func (c *ShopConfig) CurrencyUnit() (currency.Unit, error) {
	unit, err := currency.ParseISO(c.Currency)
	if err != nil {
		return currency.Unit{}, fmt.Errorf("shop.currency %q: %w", c.Currency, err)
	}
	return unit, nil
}

func (c *MySQLConfig) DSN() string {
	mc := mysql.NewConfig()
	mc.User = c.Username
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	mc.DBName = c.Database
	mc.ParseTime = true
	// Updates that leave a row unchanged still count as matched.
	mc.ClientFoundRows = true
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}
