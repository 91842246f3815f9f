/*
Copyright 2025 Pixloom Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "5002"

	defaultPollIntervalSec = 3
	defaultDeadlineSec     = 480
	defaultFetchTimeoutSec = 15
	defaultFetchRetries    = 3
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"PIXLOOM_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"PIXLOOM_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"PIXLOOM_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"PIXLOOM_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"PIXLOOM_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"PIXLOOM_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"PIXLOOM_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"PIXLOOM_REDIS_DNS"`
}

// ProviderConfig carries the job-provider credentials and the polling policy.
// The token is injected into the provider client at construction; nothing
// reads it from process-wide state.
type ProviderConfig struct {
	Token           string `json:"token" envconfig:"PIXLOOM_PROVIDER_TOKEN"`
	BaseURL         string `json:"base_url" envconfig:"PIXLOOM_PROVIDER_BASE_URL"`
	PollIntervalSec int    `json:"poll_interval_sec" envconfig:"PIXLOOM_PROVIDER_POLL_INTERVAL_SEC"`
	DeadlineSec     int    `json:"deadline_sec" envconfig:"PIXLOOM_PROVIDER_DEADLINE_SEC"`
	FetchTimeoutSec int    `json:"fetch_timeout_sec" envconfig:"PIXLOOM_PROVIDER_FETCH_TIMEOUT_SEC"`
	FetchRetries    int    `json:"fetch_retries" envconfig:"PIXLOOM_PROVIDER_FETCH_RETRIES"`
}

func (p ProviderConfig) PollInterval() time.Duration {
	return time.Duration(p.PollIntervalSec) * time.Second
}

func (p ProviderConfig) Deadline() time.Duration {
	return time.Duration(p.DeadlineSec) * time.Second
}

func (p ProviderConfig) FetchTimeout() time.Duration {
	return time.Duration(p.FetchTimeoutSec) * time.Second
}

type StorageConfig struct {
	AwsAccessKeyId     string `json:"aws_access_key_id" envconfig:"PIXLOOM_AWS_ACCESS_KEY_ID"`
	AwsSecretAccessKey string `json:"aws_secret_access_key" envconfig:"PIXLOOM_AWS_SECRET_ACCESS_KEY"`
	S3Endpoint         string `json:"s3_endpoint" envconfig:"PIXLOOM_S3_ENDPOINT"`
	S3BucketName       string `json:"s3_bucket_name" envconfig:"PIXLOOM_S3_BUCKET_NAME"`
	S3Region           string `json:"s3_region" envconfig:"PIXLOOM_S3_REGION"`
	PublicURLBase      string `json:"public_url_base" envconfig:"PIXLOOM_S3_PUBLIC_URL_BASE"`
}

type AuthConfig struct {
	JwtSecret    string `json:"jwt_secret" envconfig:"PIXLOOM_AUTH_JWT_SECRET"`
	TokenTTLMin  int    `json:"token_ttl_min" envconfig:"PIXLOOM_AUTH_TOKEN_TTL_MIN"`
	CookieName   string `json:"cookie_name" envconfig:"PIXLOOM_AUTH_COOKIE_NAME"`
	CookieSecure bool   `json:"cookie_secure" envconfig:"PIXLOOM_AUTH_COOKIE_SECURE"`
}

func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLMin) * time.Minute
}

type QueueConfig struct {
	JobQueue         string `json:"job_queue" envconfig:"PIXLOOM_QUEUE_JOB_QUEUE"`
	WebhookQueue     string `json:"webhook_queue" envconfig:"PIXLOOM_QUEUE_WEBHOOK_QUEUE"`
	NumberOfQueues   int    `json:"number_of_queues" envconfig:"PIXLOOM_QUEUE_NUMBER_OF_QUEUES"`
	MonitoringPort   string `json:"monitoring_port" envconfig:"PIXLOOM_QUEUE_MONITORING_PORT"`
	MaxRetryAttempts int    `json:"max_retry_attempts" envconfig:"PIXLOOM_QUEUE_MAX_RETRY_ATTEMPTS"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"PIXLOOM_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"PIXLOOM_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"PIXLOOM_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type Notification struct {
	Slack   SlackWebhook `json:"slack"`
	Webhook struct {
		Url     string            `json:"url"`
		Headers map[string]string `json:"headers"`
	} `json:"webhook"`
}

type Configuration struct {
	ProjectName  string           `json:"project_name" envconfig:"PIXLOOM_PROJECT_NAME"`
	Server       ServerConfig     `json:"server"`
	DataSource   DataSourceConfig `json:"data_source"`
	Redis        RedisConfig      `json:"redis"`
	Provider     ProviderConfig   `json:"provider"`
	Storage      StorageConfig    `json:"storage"`
	Auth         AuthConfig       `json:"auth"`
	Queue        QueueConfig      `json:"queue"`
	RateLimit    RateLimitConfig  `json:"rate_limit"`
	Notification Notification     `json:"notification"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("pixloom", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called pixloom.json with your config")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Pixloom Server"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)
	cnf.Provider.Token = strings.TrimSpace(cnf.Provider.Token)

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Provider.BaseURL == "" {
		cnf.Provider.BaseURL = "https://api.replicate.com"
	}
	if cnf.Provider.PollIntervalSec <= 0 {
		cnf.Provider.PollIntervalSec = defaultPollIntervalSec
	}
	if cnf.Provider.DeadlineSec <= 0 {
		cnf.Provider.DeadlineSec = defaultDeadlineSec
	}
	if cnf.Provider.FetchTimeoutSec <= 0 {
		cnf.Provider.FetchTimeoutSec = defaultFetchTimeoutSec
	}
	if cnf.Provider.FetchRetries <= 0 {
		cnf.Provider.FetchRetries = defaultFetchRetries
	}

	if cnf.Auth.CookieName == "" {
		cnf.Auth.CookieName = "access_token_cookie"
	}
	if cnf.Auth.TokenTTLMin <= 0 {
		cnf.Auth.TokenTTLMin = 60
	}

	if cnf.Queue.JobQueue == "" {
		cnf.Queue.JobQueue = "new:job"
	}
	if cnf.Queue.WebhookQueue == "" {
		cnf.Queue.WebhookQueue = "new:webhook"
	}
	if cnf.Queue.NumberOfQueues <= 0 {
		cnf.Queue.NumberOfQueues = 1
	}
	if cnf.Queue.MonitoringPort == "" {
		cnf.Queue.MonitoringPort = "5003"
	}
	if cnf.Queue.MaxRetryAttempts <= 0 {
		cnf.Queue.MaxRetryAttempts = 3
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
