package config

import "time"

// Config represents the main configuration structure. It is built once at
// startup and never mutated afterwards; every component receives it by
// reference.
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Engine    EngineConfig    `yaml:"engine" mapstructure:"engine"`
	Prompts   PromptsConfig   `yaml:"prompts" mapstructure:"prompts"`
	Chunking  ChunkingConfig  `yaml:"chunking" mapstructure:"chunking"`
	Stream    StreamConfig    `yaml:"stream" mapstructure:"stream"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	Events    EventsConfig    `yaml:"events" mapstructure:"events"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port        int           `yaml:"port" mapstructure:"port"`
	ReadTimeout time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	// WriteTimeout defaults to zero: response bodies are long-lived NDJSON
	// streams whose duration is bounded by the inference engine, not by us.
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	TLS          TLSConfig     `yaml:"tls" mapstructure:"tls"`
}

// TLSConfig contains optional TLS serving configuration
type TLSConfig struct {
	CertFile string `yaml:"cert_file" mapstructure:"cert_file"`
	KeyFile  string `yaml:"key_file" mapstructure:"key_file"`
}

// EngineConfig contains inference engine configuration
type EngineConfig struct {
	URL   string `yaml:"url" mapstructure:"url"`
	Model string `yaml:"model" mapstructure:"model"`
	// Timeout bounds the wait for upstream response headers. Zero means no
	// deadline; a hung engine stalls the request and callers are expected
	// to impose their own.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// PromptsConfig contains the system prompts sent with each invocation
type PromptsConfig struct {
	Detect   string `yaml:"detect" mapstructure:"detect"`
	Abstract string `yaml:"abstract" mapstructure:"abstract"`
}

// ChunkingConfig controls how input text is split before submission
type ChunkingConfig struct {
	Size int `yaml:"size" mapstructure:"size"` // max words per chunk
}

// StreamConfig contains reconstruction limits
type StreamConfig struct {
	MaxBufferBytes int `yaml:"max_buffer_bytes" mapstructure:"max_buffer_bytes"`
}

// RateLimitConfig contains per-client rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string        `yaml:"level" mapstructure:"level"`
	Format string        `yaml:"format" mapstructure:"format"` // json or console
	File   FileLogConfig `yaml:"file" mapstructure:"file"`
}

// FileLogConfig contains file logging configuration
type FileLogConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// EventsConfig contains the websocket event feed configuration
type EventsConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// DefaultDetectPrompt is the PII detection taxonomy prompt.
const DefaultDetectPrompt = `You an expert in cybersecurity and data privacy. You are now tasked to detect PII from the given text, using the following taxonomy only:

  ADDRESS
  IP_ADDRESS
  URL
  SSN
  PHONE_NUMBER
  EMAIL
  DRIVERS_LICENSE
  PASSPORT_NUMBER
  TAXPAYER_IDENTIFICATION_NUMBER
  ID_NUMBER
  NAME
  USERNAME

  KEYS: Passwords, passkeys, API keys, encryption keys, and any other form of security keys.
  GEOLOCATION: Places and locations, such as cities, provinces, countries, international regions, or named infrastructures (bus stops, bridges, etc.).
  AFFILIATION: Names of organizations, such as public and private companies, schools, universities, public institutions, prisons, healthcare institutions, non-governmental organizations, churches, etc.
  DEMOGRAPHIC_ATTRIBUTE: Demographic attributes of a person, such as native language, descent, heritage, ethnicity, nationality, religious or political group, birthmarks, ages, sexual orientation, gender and sex.
  TIME: Description of a specific date, time, or duration.
  HEALTH_INFORMATION: Details concerning an individual's health status, medical conditions, treatment records, and health insurance information.
  FINANCIAL_INFORMATION: Financial details such as bank account numbers, credit card numbers, investment records, salary information, and other financial statuses or activities.
  EDUCATIONAL_RECORD: Educational background details, including academic records, transcripts, degrees, and certification.

    For the given message that a user sends to a chatbot, identify all the personally identifiable information using the above taxonomy only, and the entity_type should be selected from the all-caps categories.
    Note that the information should be related to a real person not in a public context, but okay if not uniquely identifiable.
    Result should be in its minimum possible unit.
    Return me ONLY a json in the following format: {"results": [{"entity_type": YOU_DECIDE_THE_PII_TYPE, "text": PART_OF_MESSAGE_YOU_IDENTIFIED_AS_PII]}`

// DefaultAbstractPrompt is the abstraction rewriting prompt.
const DefaultAbstractPrompt = `Rewrite the text to abstract the protected information, without changing other parts. For example:
        Input: <Text>I graduated from CMU, and I earn a six-figure salary. Today in the office...</Text>
        <ProtectedInformation>CMU, Today</ProtectedInformation>
        Output JSON: {"results": [{"protected": "CMU", "abstracted":"a prestigious university"}, {"protected": "Today", "abstracted":"Recently"}}] Please use "results" as the main key in the JSON object.`

// GetDefaults returns a configuration with sensible defaults
func GetDefaults() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:        5331,
			ReadTimeout: 30 * time.Second,
			IdleTimeout: 60 * time.Second,
		},
		Engine: EngineConfig{
			URL:   "http://localhost:11434",
			Model: "llama3",
		},
		Prompts: PromptsConfig{
			Detect:   DefaultDetectPrompt,
			Abstract: DefaultAbstractPrompt,
		},
		Chunking: ChunkingConfig{
			Size: 100,
		},
		Stream: StreamConfig{
			MaxBufferBytes: 1 << 20,
		},
		RateLimit: RateLimitConfig{
			Enabled:           false,
			RequestsPerSecond: 10,
			Burst:             20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			File: FileLogConfig{
				Enabled: false,
				Path:    "logs/gateway.log",
			},
		},
		Events: EventsConfig{
			Enabled: true,
		},
	}
	return cfg
}
