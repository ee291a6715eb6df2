package config

import (
	"errors"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // development | preview | production
	Server      struct {
		Port            string `env:"PORT" envDefault:"3000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"15"`
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
		LogFile         string `env:"LOG_FILE"`
	} `envPrefix:"SERVER_"`
	Database struct {
		DSN                string `env:"DSN,required"`
		ConnectTimeout     int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout       int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		TransactionTimeout int    `env:"TRANSACTION_TIMEOUT" envDefault:"20"`
		MaxOpenConns       int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns       int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime        int    `env:"MAX_IDLE_TIME" envDefault:"60"`
	} `envPrefix:"DATABASE_"`
	InitialAdmin struct {
		Username string `env:"USERNAME" envDefault:"admin"`
		Password string `env:"PASSWORD,required"`
		FullName string `env:"FULL_NAME" envDefault:"管理员"`
		Email    string `env:"EMAIL,required"`
	} `envPrefix:"INITIAL_ADMIN_"`
	Auth struct {
		// 关闭后所有请求以内置的系统编辑员身份运行，只用于本地联调
		Enabled bool `env:"ENABLED" envDefault:"true"`
	} `envPrefix:"AUTH_"`
	JWT struct {
		Expiration int    `env:"EXPIRATION" envDefault:"1209600"` // 14 天
		Secret     string `env:"SECRET,required"`
		CookieName string `env:"COOKIE_NAME" envDefault:"__dutyops_duty_roster_token"`
	} `envPrefix:"JWT_"`
	RateLimit struct {
		Enabled                bool `env:"ENABLED" envDefault:"true"`
		AdminRequestsPerHour   int  `env:"ADMIN_REQUESTS_PER_HOUR" envDefault:"200"`
		RequestsPerHour        int  `env:"REQUESTS_PER_HOUR" envDefault:"50"`
		HealthRequestsPerHour  int  `env:"HEALTH_REQUESTS_PER_HOUR" envDefault:"1000"`
		ReadyRequestsPerHour   int  `env:"READY_REQUESTS_PER_HOUR" envDefault:"500"`
		MetricsRequestsPerHour int  `env:"METRICS_REQUESTS_PER_HOUR" envDefault:"100"`
		WindowSeconds          int  `env:"WINDOW_SECONDS" envDefault:"3600"`
	} `envPrefix:"RATE_LIMIT_"`
	Security struct {
		MaxRequestBytes int64 `env:"MAX_REQUEST_BYTES" envDefault:"2097152"` // 2 MiB
	} `envPrefix:"SECURITY_"`
	Scheduler struct {
		MinRosterSize      int     `env:"MIN_ROSTER_SIZE" envDefault:"2"`
		MaxRosterSize      int     `env:"MAX_ROSTER_SIZE" envDefault:"20"`
		MaxWeeks           int     `env:"MAX_WEEKS" envDefault:"52"`
		OutlierThreshold   float64 `env:"OUTLIER_THRESHOLD" envDefault:"1.5"`
		MinWeekdayCoverage int     `env:"MIN_WEEKDAY_COVERAGE" envDefault:"3"`
		MinWeekendCoverage int     `env:"MIN_WEEKEND_COVERAGE" envDefault:"1"`
	} `envPrefix:"SCHEDULER_"`
	Features struct {
		FairnessReporting  bool `env:"FAIRNESS_REPORTING" envDefault:"true"`
		DecisionLogging    bool `env:"DECISION_LOGGING" envDefault:"true"`
		InvariantChecking  bool `env:"INVARIANT_CHECKING" envDefault:"true"`
		AdvancedValidation bool `env:"ADVANCED_VALIDATION" envDefault:"true"`
		ArtifactStorage    bool `env:"ARTIFACT_STORAGE" envDefault:"true"`
		MetricsEndpoint    bool `env:"METRICS_ENDPOINT" envDefault:"false"`
	} `envPrefix:"FEATURE_"`
	Artifacts struct {
		RetentionDays int    `env:"RETENTION_DAYS" envDefault:"30"`
		CleanupCron   string `env:"CLEANUP_CRON" envDefault:"0 3 * * *"`
	} `envPrefix:"ARTIFACT_"`
	Audit struct {
		PrivacyHashing bool `env:"PRIVACY_HASHING" envDefault:"true"`
	} `envPrefix:"AUDIT_"`
	Seed struct {
		User struct {
			Password string `env:"PASSWORD,required"`
		} `envPrefix:"USER_"`
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
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
	} `envPrefix:"RABBITMQ_"`
	Redis struct {
		Host                string `env:"HOST" envDefault:"localhost"`
		Port                int    `env:"PORT" envDefault:"6379"`
		Password            string `env:"PASSWORD,required"`
		ConnectTimeout      int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		OperationExpiration int    `env:"OPERATION_EXPIRATION" envDefault:"10"`
	} `envPrefix:"REDIS_"`
	OTP struct {
		Expiration int `env:"EXPIRATION" envDefault:"900"` // 15 分钟
	} `envPrefix:"OTP_"`
	NewUser struct {
		PasswordLength int `env:"PASSWORD_LENGTH" envDefault:"12"`
	} `envPrefix:"NEW_USER_"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok {
			// 只返回第一个错误使得日志更清晰
			return nil, aggErr.Errors[0]
		}
	}

	return cfg, nil
}
