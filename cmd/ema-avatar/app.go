package main

import (
	"context"
	"errors"
	"fmt"
	"image"

	orchestration "github.com/koscakluka/ema-avatar/core"
	"github.com/koscakluka/ema-avatar/core/audio"
	"github.com/koscakluka/ema-avatar/core/audio/miniaudio"
	"github.com/koscakluka/ema-avatar/core/audio/portaudio"
	"github.com/koscakluka/ema-avatar/core/llms/lmstudio"
	"github.com/koscakluka/ema-avatar/core/speechtotext"
	stt "github.com/koscakluka/ema-avatar/core/speechtotext/deepgram"
	"github.com/koscakluka/ema-avatar/core/texttospeech"
	tts "github.com/koscakluka/ema-avatar/core/texttospeech/deepgram"
	"github.com/koscakluka/ema-avatar/core/texttospeech/espeak"
	"github.com/koscakluka/ema-avatar/core/ui"
	"github.com/koscakluka/ema-avatar/core/video"
	"github.com/koscakluka/ema-avatar/internal/config"
)

const portaudioBufferSize = 1024

// app owns everything one session needs and the goroutines driving it.
type app struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    *config.Config

	scheduler ui.Scheduler
	chat      *lmstudio.Client
	assistant *orchestration.Assistant
	animator  *orchestration.Animator
	decoder   *video.Decoder
	listener  speechtotext.Listener

	// banner describes a degraded collaborator, such as an unreachable server.
	banner string

	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config, scheduler ui.Scheduler, surface ui.Surface) (*app, error) {
	ctx, cancel := context.WithCancel(ctx)
	a := &app{ctx: ctx, cancel: cancel, cfg: cfg, scheduler: scheduler}

	if err := a.setup(scheduler, surface); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) setup(scheduler ui.Scheduler, surface ui.Surface) error {
	cfg := a.cfg

	a.chat = lmstudio.NewClient(
		lmstudio.WithBaseURL(cfg.LLM.BaseURL),
		lmstudio.WithAPIKey(cfg.LLM.APIKey),
		lmstudio.WithModel(cfg.LLM.Model),
		lmstudio.WithTemperature(cfg.LLM.Temperature),
	)
	if model, err := a.chat.DefaultModel(a.ctx); err != nil {
		a.banner = fmt.Sprintf("Server %s nicht erreichbar: %v", a.chat.BaseURL(), err)
		logger.Warn("failed to pick a model", "base_url", a.chat.BaseURL(), "error", err)
	} else {
		a.chat.SetModel(model)
	}

	output, input, err := a.openAudio()
	if err != nil {
		return err
	}

	synth, err := a.newSynthesizer(output)
	if err != nil {
		return err
	}

	if cfg.Audio.VoiceInput {
		if input == nil {
			return errors.New("voice input needs the miniaudio backend for capture")
		}
		listener, err := stt.NewTranscriptionClient(input, stt.WithAPIKey(cfg.Speech.DeepgramAPIKey))
		if err != nil {
			return fmt.Errorf("failed to create voice input: %w", err)
		}
		a.listener = listener
	}

	a.assistant, err = orchestration.NewAssistant(
		orchestration.WithChatClient(a.chat),
		orchestration.WithSynthesizer(synth),
		orchestration.WithVoice(texttospeech.Voice{Locale: cfg.Speech.Locale, Name: cfg.Speech.Voice}),
		orchestration.WithBatchPolicy(cfg.Speech.Policy()),
		orchestration.WithSpeechQueueCapacity(cfg.Speech.QueueCapacity),
		orchestration.WithThinkMarkers(cfg.LLM.ThinkStart, cfg.LLM.ThinkEnd),
		orchestration.WithSystemPrompt(cfg.LLM.SystemPrompt),
		orchestration.WithUI(scheduler, surface),
	)
	if err != nil {
		return fmt.Errorf("failed to create assistant: %w", err)
	}
	a.closers = append(a.closers, func() error { a.assistant.Close(); return nil })

	a.setupAvatar(scheduler, surface)
	return nil
}

// openAudio opens the playback device and, with miniaudio, the microphone.
func (a *app) openAudio() (audio.Output, audio.Input, error) {
	if a.cfg.Speech.Engine == "espeak" && !a.cfg.Audio.VoiceInput {
		return nil, nil, nil
	}

	switch a.cfg.Audio.Backend {
	case "portaudio":
		client, err := portaudio.NewClient(portaudioBufferSize)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, func() error { client.Close(); return nil })
		return client, nil, nil
	default:
		client, err := miniaudio.NewClient()
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, func() error { client.Close(); return nil })
		return client, client, nil
	}
}

func (a *app) newSynthesizer(output audio.Output) (texttospeech.Synthesizer, error) {
	cfg := a.cfg.Speech
	if cfg.Engine == "deepgram" {
		if output == nil {
			return nil, errors.New("deepgram speech needs an audio output")
		}
		client, err := tts.NewTextToSpeechClient(output, tts.WithAPIKey(cfg.DeepgramAPIKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create deepgram speech: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		return client, nil
	}

	opts := []espeak.Option{espeak.WithBinary(cfg.EspeakBinary)}
	if cfg.EspeakRate > 0 {
		opts = append(opts, espeak.WithRate(cfg.EspeakRate))
	}
	if cfg.EspeakPitch > 0 {
		opts = append(opts, espeak.WithPitch(cfg.EspeakPitch))
	}
	return espeak.NewSynthesizer(opts...), nil
}

// setupAvatar opens the clip. A missing clip degrades to a placeholder.
func (a *app) setupAvatar(scheduler ui.Scheduler, surface ui.Surface) {
	cfg := a.cfg.Avatar
	opts := []video.Option{video.WithScale(1, cfg.ScaleDivisor)}
	if cfg.FrameRate > 0 {
		opts = append(opts, video.WithFrameRate(cfg.FrameRate))
	}

	frames := video.NewFrameBuffer(cfg.FrameBuffer)
	animatorOpts := []orchestration.AnimatorOption{orchestration.WithFrameBuffer(frames)}

	source, err := video.Open(cfg.Media, opts...)
	if err != nil {
		logger.Warn("avatar clip unavailable", "media", cfg.Media, "error", err)
		animatorOpts = append(animatorOpts, orchestration.WithStillFrame(video.Placeholder(image.Point{})))
		a.animator = orchestration.NewAnimator(scheduler, surface, animatorOpts...)
		return
	}
	a.closers = append(a.closers, source.Close)

	still, err := video.FirstFrame(cfg.Media, opts...)
	if err != nil {
		still = video.Placeholder(source.Size())
	}
	a.decoder = video.NewDecoder(source, frames, video.WithPaused())
	animatorOpts = append(animatorOpts,
		orchestration.WithStillFrame(still),
		orchestration.WithFrameRate(source.FPS()),
		orchestration.WithDecoder(a.decoder),
	)
	a.animator = orchestration.NewAnimator(scheduler, surface, animatorOpts...)
}

// Start launches the decoder and the animator.
func (a *app) Start() {
	if a.decoder != nil {
		go func() {
			if err := a.decoder.Run(a.ctx); err != nil {
				logger.Warn("avatar decoding stopped", "error", err)
			}
		}()
	}

	playback, unsubscribe := a.assistant.Subscribe()
	go func() {
		defer unsubscribe()
		if err := a.animator.Run(a.ctx, playback); err != nil {
			logger.Warn("animator stopped", "error", err)
		}
	}()
}

func (a *app) Model() string { return a.chat.Model() }

func (a *app) Close() {
	a.cancel()
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	if err := errors.Join(errs...); err != nil {
		logger.Warn("failed to release resources", "error", err)
	}
}
