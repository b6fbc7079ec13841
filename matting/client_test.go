package matting

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"restager/imaging"
)

func encodeTestPNG(t *testing.T, img image.Image) string {
	t.Helper()
	data, err := imaging.EncodePNG(img)
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return base64.StdEncoding.EncodeToString(data)
}

func testFixtures(t *testing.T) (subjectB64, maskB64 string) {
	subject := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			subject.SetRGBA(x, y, color.RGBA{R: 200, G: 80, B: 40, A: 255})
		}
	}
	mask := image.NewGray(image.Rect(0, 0, 8, 8))
	for y := 2; y < 6; y++ {
		for x := 2; x < 6; x++ {
			mask.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	return encodeTestPNG(t, subject), encodeTestPNG(t, mask)
}

func TestSegment(t *testing.T) {
	subjectB64, maskB64 := testFixtures(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/matting" {
			t.Errorf("path = %s, want /matting", r.URL.Path)
		}
		if err := r.ParseMultipartForm(16 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if _, _, err := r.FormFile("image"); err != nil {
			t.Errorf("missing image part: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"rgba_png_b64": subjectB64,
			"mask_png_b64": maskB64,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	result, err := client.Segment(context.Background(), []byte("fake-png-bytes"), "photo.png")
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if got := result.Subject.Bounds(); got.Dx() != 8 || got.Dy() != 8 {
		t.Errorf("subject bounds = %v", got)
	}
	if result.Foreground.GrayAt(3, 3).Y != 255 {
		t.Error("mask interior should be subject")
	}
	if result.Foreground.GrayAt(0, 0).Y != 0 {
		t.Error("mask corner should be background")
	}
}

func TestSegment_DataURIPayload(t *testing.T) {
	subjectB64, maskB64 := testFixtures(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"rgba_png_b64": "data:image/png;base64," + subjectB64,
			"mask_png_b64": "data:image/png;base64," + maskB64,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	if _, err := client.Segment(context.Background(), []byte("x"), ""); err != nil {
		t.Fatalf("Segment with data URIs: %v", err)
	}
}

func TestSegment_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "missing payload",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]string{})
			},
		},
		{
			name: "bad base64",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]string{
					"rgba_png_b64": "!!not-base64!!",
					"mask_png_b64": "!!not-base64!!",
				})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := NewClient(server.URL, 5*time.Second)
			if _, err := client.Segment(context.Background(), []byte("x"), ""); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestSegment_EmptyInput(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", time.Second)
	if _, err := client.Segment(context.Background(), nil, ""); err == nil {
		t.Error("expected error for empty input")
	}
}
