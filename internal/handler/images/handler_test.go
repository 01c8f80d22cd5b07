package images

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-salon/backend/internal/service/imagegen"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

type fakeVarier struct {
	got imagegen.Request
}

func (f *fakeVarier) Vary(_ context.Context, req imagegen.Request) ([]imagegen.Image, error) {
	f.got = req
	if req.N > imagegen.MaxVariations {
		return nil, imagegen.ErrInvalidCount
	}
	return []imagegen.Image{{ContentType: "image/png", Base64: "AA=="}}, nil
}

func upload(t *testing.T, image []byte, fields map[string]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", "cat.png")
	if err != nil {
		t.Fatalf("CreateFormFile err: %v", err)
	}
	part.Write(image)
	for k, v := range fields {
		writer.WriteField(k, v)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/images/variations", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func serve(h *Handler, req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestVariations(t *testing.T) {
	fake := &fakeVarier{}
	rr := serve(New(fake), upload(t, pngBytes, map[string]string{"n": "3", "size": "512x512"}))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if fake.got.N != 3 || fake.got.Size != "512x512" {
		t.Fatalf("unexpected request %+v", fake.got)
	}

	var body struct {
		Images []imagegen.Image `json:"images"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if len(body.Images) != 1 || body.Images[0].Base64 != "AA==" {
		t.Fatalf("unexpected images %+v", body.Images)
	}
}

func TestVariationsRejectsInput(t *testing.T) {
	cases := map[string]struct {
		req  *http.Request
		want int
	}{
		"not png":   {req: upload(t, []byte("GIF89a....."), nil), want: http.StatusBadRequest},
		"bad n":     {req: upload(t, pngBytes, map[string]string{"n": "many"}), want: http.StatusBadRequest},
		"n too big": {req: upload(t, pngBytes, map[string]string{"n": "11"}), want: http.StatusBadRequest},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rr := serve(New(&fakeVarier{}), tc.req)
			if rr.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rr.Code)
			}
		})
	}
}
