package config

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/viper"

	"github.com/vivekg189/smart-classroom/constant"
)

type Config struct {
	MinIOBucket   string        `yaml:"minio_bucket"`
	App           App           `yaml:"app"`
	DB            *sql.DB       `yaml:"db"`
	Queue         *RabbitMQ     `yaml:"rabbitmq"`
	Storage       *minio.Client `yaml:"storage"`
	Server        Server        `yaml:"server"`
	Upload        Upload        `yaml:"upload"`
	Transcription Transcription `yaml:"transcription"`
}

type App struct {
	Environment string `yaml:"environment"`
	Host        string `yaml:"host"`
	Protocol    string `yaml:"protocol"`
}

type Server struct {
	HttpPort string `yaml:"http_port"`
	Workers  int    `yaml:"workers"`
}

type RabbitMQ struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	User string `json:"user"`
	Pass string `json:"pass"`
	Kind string `json:"kind"`
}

// Upload bounds what the pipeline accepts before any byte is stored.
type Upload struct {
	MaxBytes     int64
	AllowedTypes map[string]constant.FileKind
}

// Transcription carries the tunables of both transcription paths.
type Transcription struct {
	Language      string
	PreferRemote  bool
	SettleDelay   time.Duration
	LocalTimeout  time.Duration
	RemoteTimeout time.Duration
	LocalCommand  string
	PlayerVolume  int
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
}

func Load(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	setDefaults()
	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", viper.GetString("postgresql_host"))
	if err != nil {
		return nil, err
	}

	rabbitmq := &RabbitMQ{
		Host: viper.GetString("rabbitmq_host"),
		Port: viper.GetInt("rabbitmq_port"),
		User: viper.GetString("rabbitmq_user"),
		Pass: viper.GetString("rabbitmq_pass"),
		Kind: viper.GetString("rabbitmq_kind"),
	}

	minioClient, err := minio.New(viper.GetString("minio.url"), &minio.Options{
		Creds:  credentials.NewStaticV4(viper.GetString("minio.access_id"), viper.GetString("minio.secret_access_key"), ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}

	return &Config{
		MinIOBucket: viper.GetString("minio.bucket"),
		App: App{
			Environment: viper.GetString("app.environment"),
			Host:        viper.GetString("app.host"),
			Protocol:    viper.GetString("app.protocol"),
		},
		Server: Server{
			HttpPort: viper.GetString("server.port"),
			Workers:  viper.GetInt("server.workers"),
		},
		Upload: Upload{
			MaxBytes:     viper.GetInt64("upload.max_bytes"),
			AllowedTypes: constant.AllowedContentTypes,
		},
		Transcription: Transcription{
			Language:      viper.GetString("transcription.language"),
			PreferRemote:  viper.GetBool("transcription.prefer_remote"),
			SettleDelay:   viper.GetDuration("transcription.settle_delay"),
			LocalTimeout:  viper.GetDuration("transcription.local_timeout"),
			RemoteTimeout: viper.GetDuration("transcription.remote_timeout"),
			LocalCommand:  viper.GetString("transcription.local_command"),
			PlayerVolume:  viper.GetInt("transcription.player_volume"),
			OpenAIKey:     viper.GetString("transcription.openai.api_key"),
			OpenAIBaseURL: viper.GetString("transcription.openai.base_url"),
			OpenAIModel:   viper.GetString("transcription.openai.model"),
		},
		DB:      db,
		Queue:   rabbitmq,
		Storage: minioClient,
	}, nil
}

func setDefaults() {
	viper.SetDefault("server.workers", 4)
	viper.SetDefault("upload.max_bytes", int64(100)<<20)
	viper.SetDefault("transcription.language", "en")
	viper.SetDefault("transcription.prefer_remote", false)
	viper.SetDefault("transcription.settle_delay", "1s")
	viper.SetDefault("transcription.local_timeout", "10m")
	viper.SetDefault("transcription.remote_timeout", "3m")
	viper.SetDefault("transcription.local_command", "whisper-stream")
	viper.SetDefault("transcription.player_volume", 25)
	viper.SetDefault("transcription.openai.model", "whisper-1")
}
