package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string   `env:"PORT" envDefault:"3000"`
		ReadTimeout     int      `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int      `env:"WRITE_TIMEOUT" envDefault:"15"`
		IdleTimeout     int      `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int      `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
		AllowedOrigins  []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
	} `envPrefix:"SERVER_"`
	Database struct {
		DSN                string `env:"DSN,required"`
		ConnectTimeout     int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout       int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		TransactionTimeout int    `env:"TRANSACTION_TIMEOUT" envDefault:"20"`
		MaxOpenConns       int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns       int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime        int    `env:"MAX_IDLE_TIME" envDefault:"60"`
		AutoMigrate        bool   `env:"AUTO_MIGRATE" envDefault:"true"`
	} `envPrefix:"DATABASE_"`
	InitialAdmin struct {
		Username string `env:"USERNAME" envDefault:"admin"`
		Password string `env:"PASSWORD,required"`
		FullName string `env:"FULL_NAME" envDefault:"管理员"`
		Email    string `env:"EMAIL,required"`
	} `envPrefix:"INITIAL_ADMIN_"`
	JWT struct {
		Expiration int    `env:"EXPIRATION" envDefault:"1209600"` // 14 天
		Secret     string `env:"SECRET,required"`
	} `envPrefix:"JWT_"`
	Seed struct {
		User struct {
			Password string `env:"PASSWORD,required"`
		} `envPrefix:"USER_"`
		Drivers  int `env:"DRIVERS" envDefault:"20"`
		Vehicles int `env:"VEHICLES" envDefault:"10"`
		Days     int `env:"DAYS" envDefault:"90"`
	} `envPrefix:"SEED_"`
	Email struct {
		UserDomain string `env:"USER_DOMAIN,required"`
		SMTP       struct {
			Username    string `env:"USERNAME,required"`
			Password    string `env:"PASSWORD,required"`
			Host        string `env:"HOST,required"`
			Port        int    `env:"PORT" envDefault:"465"`
			DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
		} `envPrefix:"SMTP_"`
	} `envPrefix:"EMAIL_"`
	RabbitMQ struct {
		DSN            string `env:"DSN,required"`
		MailQueue      string `env:"MAIL_QUEUE" envDefault:"email_queue"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
	} `envPrefix:"RABBITMQ_"`
	Redis struct {
		Host                string `env:"HOST" envDefault:"localhost"`
		Port                int    `env:"PORT" envDefault:"6379"`
		Password            string `env:"PASSWORD,required"`
		ConnectTimeout      int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		OperationExpiration int    `env:"OPERATION_EXPIRATION" envDefault:"10"`
		LockTTL             int    `env:"LOCK_TTL" envDefault:"15"`
		LockWait            int    `env:"LOCK_WAIT" envDefault:"5"`
	} `envPrefix:"REDIS_"`
	Kafka struct {
		Brokers        []string `env:"BROKERS" envSeparator:"," envDefault:"localhost:9092"`
		ShiftTopic     string   `env:"SHIFT_TOPIC" envDefault:"shift.events"`
		PublishTimeout int      `env:"PUBLISH_TIMEOUT" envDefault:"5"`
	} `envPrefix:"KAFKA_"`
	OTP struct {
		Expiration int `env:"EXPIRATION" envDefault:"900"` // 15 分钟
	} `envPrefix:"OTP_"`
	NewUser struct {
		PasswordLength int `env:"PASSWORD_LENGTH" envDefault:"12"`
	} `envPrefix:"NEW_USER_"`
	Payroll struct {
		Threshold     float64 `env:"THRESHOLD" envDefault:"500"`
		Tier1BaseRate float64 `env:"TIER_1_BASE_RATE" envDefault:"0.15"`
		Tier2BaseRate float64 `env:"TIER_2_BASE_RATE" envDefault:"0.20"`
		UpperRate     float64 `env:"UPPER_RATE" envDefault:"0.30"`
	} `envPrefix:"PAYROLL_"`
	Finance struct {
		ProjectionUplift float64 `env:"PROJECTION_UPLIFT" envDefault:"1.10"`
		Timezone         string  `env:"TIMEZONE" envDefault:"UTC"`
		TrendMonths      int     `env:"TREND_MONTHS" envDefault:"6"`
	} `envPrefix:"FINANCE_"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok {
			// 只返回第一个错误使得日志更清晰
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}

	if _, err := cfg.Location(); err != nil {
		return nil, fmt.Errorf("无效的时区 %q: %w", cfg.Finance.Timezone, err)
	}

	return cfg, nil
}

// Location 返回按天统计营收和工资时使用的时区
func (cfg *Config) Location() (*time.Location, error) {
	return time.LoadLocation(cfg.Finance.Timezone)
}
