// Package config loads the settings of the ema-avatar binary from flags,
// environment variables, an optional .env file and an optional YAML file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/joho/godotenv"
	"github.com/koscakluka/ema-avatar/core/batching"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "EMA_AVATAR"

type Config struct {
	LLM    LLMConfig    `mapstructure:"llm" json:"llm"`
	Speech SpeechConfig `mapstructure:"speech" json:"speech"`
	Avatar AvatarConfig `mapstructure:"avatar" json:"avatar"`
	Audio  AudioConfig  `mapstructure:"audio" json:"audio"`

	// PrintSchema asks the binary to print the JSON schema of Config and exit.
	PrintSchema bool `mapstructure:"-" json:"-"`
}

type LLMConfig struct {
	BaseURL      string  `mapstructure:"base_url" json:"base_url" jsonschema:"description=Chat completions server,default=http://localhost:1234/v1"`
	APIKey       string  `mapstructure:"api_key" json:"api_key,omitempty" jsonschema:"description=Bearer token for remote servers"`
	Model        string  `mapstructure:"model" json:"model,omitempty" jsonschema:"description=Model id; the first listed model when empty"`
	Temperature  float64 `mapstructure:"temperature" json:"temperature" jsonschema:"minimum=0,maximum=2,default=0.7"`
	SystemPrompt string  `mapstructure:"system_prompt" json:"system_prompt"`
	ThinkStart   string  `mapstructure:"think_start" json:"think_start" jsonschema:"default=<think>"`
	ThinkEnd     string  `mapstructure:"think_end" json:"think_end" jsonschema:"default=</think>"`
}

type SpeechConfig struct {
	Engine            string `mapstructure:"engine" json:"engine" jsonschema:"enum=espeak,enum=deepgram,default=espeak"`
	Locale            string `mapstructure:"locale" json:"locale" jsonschema:"default=de-DE"`
	Voice             string `mapstructure:"voice" json:"voice,omitempty"`
	BatchPolicy       string `mapstructure:"batch_policy" json:"batch_policy" jsonschema:"enum=sentence,enum=words,enum=sentences,default=sentence"`
	SentencesPerBatch int    `mapstructure:"sentences_per_batch" json:"sentences_per_batch" jsonschema:"minimum=1,default=2"`
	MaxWords          int    `mapstructure:"max_words" json:"max_words" jsonschema:"minimum=0,default=200"`
	QueueCapacity     int    `mapstructure:"queue_capacity" json:"queue_capacity" jsonschema:"minimum=1,default=8"`
	EspeakBinary      string `mapstructure:"espeak_binary" json:"espeak_binary" jsonschema:"default=espeak-ng"`
	EspeakRate        int    `mapstructure:"espeak_rate" json:"espeak_rate" jsonschema:"minimum=0"`
	EspeakPitch       int    `mapstructure:"espeak_pitch" json:"espeak_pitch" jsonschema:"minimum=0,maximum=99"`
	DeepgramAPIKey    string `mapstructure:"deepgram_api_key" json:"deepgram_api_key,omitempty"`
}

type AvatarConfig struct {
	Media        string  `mapstructure:"media" json:"media" jsonschema:"description=Animated GIF or directory of frames"`
	ScaleDivisor int     `mapstructure:"scale_divisor" json:"scale_divisor" jsonschema:"minimum=1,default=3"`
	FrameRate    float64 `mapstructure:"frame_rate" json:"frame_rate" jsonschema:"minimum=0,description=Overrides the clip's frame rate when set"`
	FrameBuffer  int     `mapstructure:"frame_buffer" json:"frame_buffer" jsonschema:"minimum=1,default=10"`
}

type AudioConfig struct {
	Backend    string `mapstructure:"backend" json:"backend" jsonschema:"enum=miniaudio,enum=portaudio,default=miniaudio"`
	VoiceInput bool   `mapstructure:"voice_input" json:"voice_input" jsonschema:"description=Enable recording prompts with the microphone"`
	Language   string `mapstructure:"language" json:"language" jsonschema:"default=de"`
}

// Load parses args and merges, from highest to lowest priority, explicitly set
// flags, EMA_AVATAR_* environment variables, the config file and the flag
// defaults.
func Load(args []string) (*Config, error) {
	flags := pflag.NewFlagSet("ema-avatar", pflag.ContinueOnError)
	configFile := flags.StringP("config", "c", "", "YAML config file")
	envFile := flags.StringP("env", "e", ".env", "Env file path")
	printSchema := flags.Bool("print-config-schema", false, "Print the JSON schema of the config and exit")
	bindings := registerFlags(flags)

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	v := viper.New()
	for key, flag := range bindings {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", flag, err)
		}
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("speech.deepgram_api_key", envPrefix+"_SPEECH_DEEPGRAM_API_KEY", "DEEPGRAM_API_KEY"); err != nil {
		return nil, err
	}

	if *configFile != "" {
		v.SetConfigFile(*configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.PrintSchema = *printSchema

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// registerFlags declares one flag per config key and returns the key of
// each flag.
func registerFlags(flags *pflag.FlagSet) map[string]string {
	flags.String("base-url", "http://localhost:1234/v1", "Chat completions server")
	flags.String("api-key", "", "Bearer token for remote servers")
	flags.StringP("model", "m", "", "Model id")
	flags.Float64("temperature", 0.7, "Sampling temperature")
	flags.String("system-prompt", "Du bist ein hilfreicher Assistent. Antworte immer auf Deutsch.", "System prompt")
	flags.String("think-start", "<think>", "Start marker of reasoning spans")
	flags.String("think-end", "</think>", "End marker of reasoning spans")

	flags.String("tts", "espeak", "Speech engine (espeak, deepgram)")
	flags.String("locale", "de-DE", "Locale of the voice")
	flags.String("voice", "", "Engine specific voice name")
	flags.String("batch-policy", "sentence", "Speech batching (sentence, words, sentences)")
	flags.Int("sentences-per-batch", 2, "Sentences per batch for the sentences policy")
	flags.Int("max-words", 200, "Word ceiling per batch")
	flags.Int("speech-queue", 8, "Batches waiting for speech before the stream blocks")
	flags.String("espeak-binary", "espeak-ng", "espeak executable")
	flags.Int("espeak-rate", 0, "espeak words per minute")
	flags.Int("espeak-pitch", 0, "espeak pitch, 0 to 99 (0 keeps the voice default)")
	flags.String("deepgram-api-key", "", "Deepgram API key")

	flags.StringP("media", "v", "", "Avatar clip, a GIF or a directory of frames")
	flags.Int("scale-divisor", 3, "Shrink frames by this factor")
	flags.Float64("frame-rate", 0, "Override the clip's frame rate")
	flags.Int("frame-buffer", 10, "Decoded frames kept ready")

	flags.String("audio-backend", "miniaudio", "Audio backend (miniaudio, portaudio)")
	flags.Bool("voice-input", false, "Record prompts with the microphone")
	flags.String("language", "de", "Language of voice input")

	return map[string]string{
		"llm.base_url":      "base-url",
		"llm.api_key":       "api-key",
		"llm.model":         "model",
		"llm.temperature":   "temperature",
		"llm.system_prompt": "system-prompt",
		"llm.think_start":   "think-start",
		"llm.think_end":     "think-end",

		"speech.engine":              "tts",
		"speech.locale":              "locale",
		"speech.voice":               "voice",
		"speech.batch_policy":        "batch-policy",
		"speech.sentences_per_batch": "sentences-per-batch",
		"speech.max_words":           "max-words",
		"speech.queue_capacity":      "speech-queue",
		"speech.espeak_binary":       "espeak-binary",
		"speech.espeak_rate":         "espeak-rate",
		"speech.espeak_pitch":        "espeak-pitch",
		"speech.deepgram_api_key":    "deepgram-api-key",

		"avatar.media":         "media",
		"avatar.scale_divisor": "scale-divisor",
		"avatar.frame_rate":    "frame-rate",
		"avatar.frame_buffer":  "frame-buffer",

		"audio.backend":     "audio-backend",
		"audio.voice_input": "voice-input",
		"audio.language":    "language",
	}
}

func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains([]string{"espeak", "deepgram"}, c.Speech.Engine) {
		errs = append(errs, fmt.Errorf("unknown speech engine %q", c.Speech.Engine))
	}
	if !slices.Contains([]string{"sentence", "words", "sentences"}, c.Speech.BatchPolicy) {
		errs = append(errs, fmt.Errorf("unknown batch policy %q", c.Speech.BatchPolicy))
	}
	if c.Speech.BatchPolicy == "words" && c.Speech.MaxWords < 1 {
		errs = append(errs, errors.New("the words batch policy needs max_words above zero"))
	}
	if c.Speech.EspeakPitch < 0 || c.Speech.EspeakPitch > 99 {
		errs = append(errs, fmt.Errorf("espeak_pitch %d is outside 0 to 99", c.Speech.EspeakPitch))
	}
	if !slices.Contains([]string{"miniaudio", "portaudio"}, c.Audio.Backend) {
		errs = append(errs, fmt.Errorf("unknown audio backend %q", c.Audio.Backend))
	}
	if c.Avatar.ScaleDivisor < 1 {
		errs = append(errs, errors.New("scale_divisor must be at least 1"))
	}
	if c.Avatar.FrameBuffer < 1 {
		errs = append(errs, errors.New("frame_buffer must be at least 1"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Policy is the batching policy the speech settings describe.
func (c SpeechConfig) Policy() batching.Policy {
	switch c.BatchPolicy {
	case "words":
		return batching.WordCapPolicy(c.MaxWords)
	case "sentences":
		return batching.SentenceCapPolicy(c.SentencesPerBatch, c.MaxWords)
	}
	return batching.SentencePolicy()
}

// Schema returns the JSON schema of Config.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(&Config{})
	return json.MarshalIndent(schema, "", "  ")
}
