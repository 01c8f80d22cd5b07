package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"

	"github.com/zhouzirui/z-salon/backend/internal/config"
	"github.com/zhouzirui/z-salon/backend/internal/metrics"
	"github.com/zhouzirui/z-salon/backend/internal/model/speech"
)

// MaxAudioBytes is the upload limit of the transcription endpoint.
const MaxAudioBytes = 25 << 20

var (
	ErrEmptyAudio    = errors.New("audio is empty")
	ErrAudioTooLarge = errors.New("audio exceeds 25MB")
)

const fallbackFormat = "wav"

// supportedFormats 是 Whisper 接受的文件扩展名
var supportedFormats = map[string]struct{}{
	"mp3": {}, "mp4": {}, "mpeg": {}, "mpga": {}, "m4a": {},
	"wav": {}, "webm": {}, "ogg": {}, "flac": {},
}

// Service 语音转写服务，基于 OpenAI Whisper
type Service struct {
	client   openai.Client
	model    string
	language string
	metrics  *metrics.Metrics
}

// NewService 创建语音服务实例
func NewService(client openai.Client, cfg config.SpeechConfig, m *metrics.Metrics) *Service {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = string(openai.AudioModelWhisper1)
	}
	return &Service{
		client:   client,
		model:    model,
		language: cfg.Language,
		metrics:  m,
	}
}

// TranscribeAudio 语音转文字
func (s *Service) TranscribeAudio(ctx context.Context, req *speech.ASRRequest) (*speech.ASRResponse, error) {
	if req == nil || req.AudioData == nil {
		return nil, ErrEmptyAudio
	}

	data, err := io.ReadAll(io.LimitReader(req.AudioData, MaxAudioBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	return s.TranscribeBuffer(ctx, req.SessionID, data, req.Filename, req.Format, req.Language)
}

// TranscribeBuffer 语音转文字（使用字节数组）
func (s *Service) TranscribeBuffer(ctx context.Context, sessionID string, audioData []byte, filename, format, language string) (*speech.ASRResponse, error) {
	switch {
	case len(audioData) == 0:
		return nil, ErrEmptyAudio
	case len(audioData) > MaxAudioBytes:
		return nil, ErrAudioTooLarge
	}

	format = ResolveFormat(filename, format, audioData)
	if language == "" {
		language = s.language
	}

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(audioData), "audio."+format, mimetype.Detect(audioData).String()),
		Model: openai.AudioModel(s.model),
	}
	if lang := LanguageCode(language); lang != "" {
		params.Language = openai.String(lang)
	}

	started := time.Now()
	resp, err := s.client.Audio.Transcriptions.New(ctx, params)
	s.metrics.ObserveGeneration("transcribe", started, err)
	if err != nil {
		return nil, fmt.Errorf("transcribe audio: %w", err)
	}

	elapsed := time.Since(started)
	log.Printf("[speech] transcribed %d bytes (%s) in %s", len(audioData), format, elapsed.Round(time.Millisecond))

	return &speech.ASRResponse{
		SessionID: sessionID,
		Text:      strings.TrimSpace(resp.Text),
		Format:    format,
		Model:     s.model,
		Duration:  elapsed.Milliseconds(),
		RequestID: uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// ResolveFormat picks the upload extension. An explicit format or the file
// name's extension wins when Whisper accepts it; otherwise the content is
// sniffed, and anything unrecognised is sent as wav.
func ResolveFormat(filename, format string, data []byte) string {
	for _, candidate := range []string{format, filepath.Ext(filename)} {
		if f := normalizeFormat(candidate); f != "" {
			return f
		}
	}
	if len(data) > 0 {
		if f := normalizeFormat(mimetype.Detect(data).Extension()); f != "" {
			return f
		}
	}
	return fallbackFormat
}

func normalizeFormat(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	switch ext {
	case "oga", "opus":
		ext = "ogg"
	case "mpg":
		ext = "mpeg"
	case "wave":
		ext = "wav"
	}
	if _, ok := supportedFormats[ext]; ok {
		return ext
	}
	return ""
}

// LanguageCode reduces a locale such as en-US to its ISO-639-1 prefix.
func LanguageCode(language string) string {
	language = strings.TrimSpace(language)
	if i := strings.IndexAny(language, "-_"); i >= 0 {
		language = language[:i]
	}
	return strings.ToLower(language)
}
