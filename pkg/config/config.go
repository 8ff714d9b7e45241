package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"interview-engine/pkg/models"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Engine    EngineConfig    `yaml:"engine"`
	Inference InferenceConfig `yaml:"inference"`
	Storage   StorageConfig   `yaml:"storage"`
	Redis     RedisConfig     `yaml:"redis"`
	GenAI     GenAIConfig     `yaml:"genai"`
	Questions []QuestionSpec  `yaml:"questions"`
}

type ServerConfig struct {
	Address      string        `yaml:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type EngineConfig struct {
	// SmoothingBlend is the weight of the newest confidence sample.
	SmoothingBlend float64 `yaml:"smoothing_blend"`
	// TickInterval drives per-question countdowns.
	TickInterval time.Duration `yaml:"tick_interval"`
	// SupportedMimeTypes lists recordable media container types.
	SupportedMimeTypes []string `yaml:"supported_mime_types"`
	// CommitWorkers is the size of the recording persistence pool.
	CommitWorkers int `yaml:"commit_workers"`
	// CommitQueueSize bounds pending persistence jobs.
	CommitQueueSize int `yaml:"commit_queue_size"`
}

type InferenceConfig struct {
	// BaseURL is the face-analysis service root; empty disables analysis.
	BaseURL        string        `yaml:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type StorageConfig struct {
	// DataDir holds the badger media payload store.
	DataDir string `yaml:"data_dir"`
	// HistoryPath is the sqlite interview history database.
	HistoryPath string `yaml:"history_path"`
}

type RedisConfig struct {
	// Address enables the live telemetry publisher when non-empty.
	Address string        `yaml:"address"`
	TTL     time.Duration `yaml:"ttl"`
}

type GenAIConfig struct {
	// URL is the external text-generation endpoint; empty disables feedback.
	URL            string        `yaml:"url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type QuestionSpec struct {
	ID               string `yaml:"id"`
	Text             string `yaml:"text"`
	Category         string `yaml:"category"`
	Difficulty       string `yaml:"difficulty"`
	ExpectedDuration int    `yaml:"expected_duration_seconds"`
}

// Load reads the YAML config at path, overlaying .env and process
// environment values. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		// a malformed .env is worth failing loudly on
		return nil, err
	}

	cfg := defaults()

	if path != "" {
		f, err := os.Open(path)
		if err == nil {
			defer f.Close()
			if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if v := os.Getenv("SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("INFERENCE_URL"); v != "" {
		cfg.Inference.BaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Address = v
	}
	if v := os.Getenv("GENAI_URL"); v != "" {
		cfg.GenAI.URL = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Address:      ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Engine: EngineConfig{
			SmoothingBlend: 0.7,
			TickInterval:   time.Second,
			SupportedMimeTypes: []string{
				"video/webm",
				"video/webm;codecs=vp8,opus",
				"video/mp4",
			},
			CommitWorkers:   2,
			CommitQueueSize: 64,
		},
		Inference: InferenceConfig{
			RequestTimeout: 2 * time.Second,
		},
		Storage: StorageConfig{
			DataDir:     "./data",
			HistoryPath: "./data/history.sqlite",
		},
		Redis: RedisConfig{
			TTL: 30 * time.Second,
		},
		GenAI: GenAIConfig{
			RequestTimeout: 60 * time.Second,
		},
	}
}

// BuildQuestions converts config question specs into session questions.
func (c *Config) BuildQuestions() []models.Question {
	out := make([]models.Question, 0, len(c.Questions))
	for _, q := range c.Questions {
		dur := q.ExpectedDuration
		if dur <= 0 {
			dur = 120
		}
		out = append(out, models.Question{
			ID:               q.ID,
			Text:             q.Text,
			Category:         q.Category,
			Difficulty:       models.ParseDifficulty(q.Difficulty),
			ExpectedDuration: dur,
		})
	}
	return out
}
