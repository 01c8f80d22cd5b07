package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
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
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)

type variationForm struct {
	n, size, model, format string
}

func newTestService(t *testing.T, got *variationForm, results int) *Service {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/images/variations"), r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		*got = variationForm{
			n:      r.FormValue("n"),
			size:   r.FormValue("size"),
			model:  r.FormValue("model"),
			format: r.FormValue("response_format"),
		}

		encoded := base64.StdEncoding.EncodeToString(pngBytes)
		items := make([]string, results)
		for i := range items {
			items[i] = fmt.Sprintf(`{"b64_json":%q}`, encoded)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"created":1,"data":[%s]}`, strings.Join(items, ","))
	}))
	t.Cleanup(srv.Close)

	client := openai.NewClient(option.WithAPIKey("sk-test"), option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	return NewService(client, config.ImageConfig{Count: 5, Size: "1024x1024"}, nil)
}

func TestVaryDefaults(t *testing.T) {
	var got variationForm
	svc := newTestService(t, &got, 5)

	images, err := svc.Vary(context.Background(), Request{Image: pngBytes})
	require.NoError(t, err)

	require.Len(t, images, 5)
	assert.Equal(t, variationForm{n: "5", size: "1024x1024", model: "dall-e-2", format: "b64_json"}, got)
	assert.Equal(t, "image/png", images[0].ContentType)
	assert.Equal(t, pngBytes, images[0].Data)
}

func TestVaryOverrides(t *testing.T) {
	var got variationForm
	svc := newTestService(t, &got, 2)

	images, err := svc.Vary(context.Background(), Request{Image: pngBytes, N: 2, Size: "256x256"})
	require.NoError(t, err)
	assert.Len(t, images, 2)
	assert.Equal(t, "2", got.n)
	assert.Equal(t, "256x256", got.size)
}

func TestVaryValidation(t *testing.T) {
	svc := NewService(openai.NewClient(option.WithAPIKey("sk-test")), config.ImageConfig{}, nil)
	ctx := context.Background()

	_, err := svc.Vary(ctx, Request{Image: []byte("GIF89a not a png")})
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	_, err = svc.Vary(ctx, Request{Image: make([]byte, MaxImageBytes)})
	assert.ErrorIs(t, err, ErrImageTooLarge)

	_, err = svc.Vary(ctx, Request{Image: pngBytes, N: 11})
	assert.ErrorIs(t, err, ErrInvalidCount)

	_, err = svc.Vary(ctx, Request{Image: pngBytes, Size: "2048x2048"})
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestReadImage(t *testing.T) {
	data, err := ReadImage(bytes.NewReader(pngBytes))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)

	big := append(append([]byte{}, pngBytes...), make([]byte, MaxImageBytes)...)
	_, err = ReadImage(bytes.NewReader(big))
	assert.ErrorIs(t, err, ErrImageTooLarge)
}
