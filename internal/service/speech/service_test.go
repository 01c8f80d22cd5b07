package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/z-salon/backend/internal/config"
	"github.com/zhouzirui/z-salon/backend/internal/model/speech"
)

var wavHeader = append([]byte("RIFF\x24\x00\x00\x00WAVEfmt "), make([]byte, 32)...)

type upload struct {
	filename string
	model    string
	language string
}

func newTestService(t *testing.T, got *upload, status int) *Service {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/audio/transcriptions"), r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		*got = upload{filename: header.Filename, model: r.FormValue("model"), language: r.FormValue("language")}

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			fmt.Fprint(w, `{"error":{"message":"boom","type":"server_error"}}`)
			return
		}
		fmt.Fprint(w, `{"text":"  hello there  "}`)
	}))
	t.Cleanup(srv.Close)

	client := openai.NewClient(option.WithAPIKey("sk-test"), option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	return NewService(client, config.SpeechConfig{Model: "whisper-1"}, nil)
}

func TestTranscribeAudio(t *testing.T) {
	var got upload
	svc := newTestService(t, &got, http.StatusOK)

	resp, err := svc.TranscribeAudio(context.Background(), &speech.ASRRequest{
		SessionID: "s1",
		AudioData: bytes.NewReader(wavHeader),
		Filename:  "clip.WAV",
		Language:  "en-US",
	})
	require.NoError(t, err)

	assert.Equal(t, "hello there", resp.Text)
	assert.Equal(t, "wav", resp.Format)
	assert.Equal(t, "s1", resp.SessionID)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, upload{filename: "audio.wav", model: "whisper-1", language: "en"}, got)
}

func TestTranscribeAudioUpstreamError(t *testing.T) {
	var got upload
	svc := newTestService(t, &got, http.StatusInternalServerError)

	_, err := svc.TranscribeBuffer(context.Background(), "", wavHeader, "a.wav", "", "")
	require.Error(t, err)

	var apiErr *openai.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}

func TestTranscribeBufferLimits(t *testing.T) {
	svc := NewService(openai.NewClient(option.WithAPIKey("sk-test")), config.SpeechConfig{}, nil)

	_, err := svc.TranscribeBuffer(context.Background(), "", nil, "a.wav", "", "")
	assert.ErrorIs(t, err, ErrEmptyAudio)

	_, err = svc.TranscribeBuffer(context.Background(), "", make([]byte, MaxAudioBytes+1), "a.wav", "", "")
	assert.ErrorIs(t, err, ErrAudioTooLarge)

	_, err = svc.TranscribeAudio(context.Background(), &speech.ASRRequest{})
	assert.ErrorIs(t, err, ErrEmptyAudio)
}

func TestResolveFormat(t *testing.T) {
	cases := []struct {
		name     string
		filename string
		format   string
		data     []byte
		want     string
	}{
		{name: "explicit format", filename: "x.bin", format: "webm", want: "webm"},
		{name: "extension", filename: "voice.M4A", want: "m4a"},
		{name: "alias", filename: "voice.opus", want: "ogg"},
		{name: "sniffed", filename: "blob", data: wavHeader, want: "wav"},
		{name: "sniffed mp3", filename: "upload.bin", data: []byte("ID3\x03\x00\x00\x00\x00\x00\x00"), want: "mp3"},
		{name: "fallback", filename: "", data: []byte("not audio"), want: "wav"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveFormat(tc.filename, tc.format, tc.data))
		})
	}
}

func TestLanguageCode(t *testing.T) {
	assert.Equal(t, "en", LanguageCode("en-US"))
	assert.Equal(t, "zh", LanguageCode("zh_CN"))
	assert.Equal(t, "fr", LanguageCode(" FR "))
	assert.Equal(t, "", LanguageCode(""))
}
