package config

import (
	"time"

	"github.com/customeros/mailtriage/internal/logger"
	"github.com/customeros/mailtriage/internal/tracing"
)

type AppConfig struct {
	APIPort     string `env:"PORT" envDefault:"12222"`
	APIKey      string `env:"API_KEY"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
	PodName     string `env:"POD_NAME" envDefault:"local"`
	Namespace   string `env:"POD_NAMESPACE" envDefault:"default"`
	Logger      *logger.Config
	Tracing     *tracing.JaegerConfig
}

// IMAPConfig describes the single mailbox the fetcher reads from. Host, user
// and password are optional; without them fetching is skipped.
type IMAPConfig struct {
	Host              string        `env:"IMAP_HOST"`
	Port              int           `env:"IMAP_PORT" envDefault:"993"`
	User              string        `env:"IMAP_USER"`
	Password          string        `env:"IMAP_PASS"`
	Folder            string        `env:"IMAP_FOLDER" envDefault:"INBOX"`
	SSL               bool          `env:"IMAP_SSL" envDefault:"true"`
	Lookback          time.Duration `env:"IMAP_LOOKBACK" envDefault:"24h"`
	AttachmentMaxSize int           `env:"IMAP_ATTACHMENT_MAX_SIZE" envDefault:"1048576"`
	Timeout           time.Duration `env:"IMAP_TIMEOUT" envDefault:"30s"`
	FetchTimeout      time.Duration `env:"IMAP_FETCH_TIMEOUT" envDefault:"2m"`
}

func (c *IMAPConfig) Configured() bool {
	return c != nil && c.Host != "" && c.User != "" && c.Password != ""
}

type TriageConfig struct {
	ReportDir  string        `env:"REPORT_DIR" envDefault:"reports"`
	Timeout    time.Duration `env:"TRIAGE_TIMEOUT" envDefault:"5m"`
	Classifier string        `env:"CLASSIFIER" envDefault:"auto"`
}

type OpenAIConfig struct {
	ApiKey  string        `env:"OPENAI_API_KEY"`
	Model   string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	BaseURL string        `env:"OPENAI_BASE_URL"`
	Timeout time.Duration `env:"OPENAI_TIMEOUT" envDefault:"60s"`
}

// ReportArchiveConfig points at an S3 compatible bucket (Cloudflare R2 by
// default). Archiving is off while the bucket or credentials are empty.
type ReportArchiveConfig struct {
	AccountID       string `env:"CLOUDFLARE_R2_ACCOUNT_ID"`
	Endpoint        string `env:"REPORT_ARCHIVE_ENDPOINT"`
	Region          string `env:"REPORT_ARCHIVE_REGION" envDefault:"auto"`
	AccessKeyID     string `env:"REPORT_ARCHIVE_ACCESS_KEY_ID"`
	AccessKeySecret string `env:"REPORT_ARCHIVE_ACCESS_KEY_SECRET"`
	Bucket          string `env:"REPORT_ARCHIVE_BUCKET"`
	PublicURL       string `env:"REPORT_ARCHIVE_PUBLIC_URL"`
}

func (c *ReportArchiveConfig) Enabled() bool {
	return c != nil && c.Bucket != "" && c.AccessKeyID != "" && c.AccessKeySecret != "" &&
		(c.Endpoint != "" || c.AccountID != "")
}
