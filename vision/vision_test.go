package vision

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"testing"

	"restager/imaging"
	"restager/prompt"
)

func testPhoto(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 96, A: 255})
		}
	}
	data, err := imaging.EncodePNG(img)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestPrepareImage_Downscales(t *testing.T) {
	data, err := PrepareImage(testPhoto(t, 2000, 1000))
	if err != nil {
		t.Fatalf("PrepareImage: %v", err)
	}
	img, err := imaging.Decode(data)
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if got := img.Bounds().Dx(); got != 768 {
		t.Errorf("width = %d, want 768", got)
	}
	if got := img.Bounds().Dy(); got != 384 {
		t.Errorf("height = %d, want 384", got)
	}
}

func TestPrepareImage_SmallImageKeepsSize(t *testing.T) {
	data, err := PrepareImage(testPhoto(t, 100, 80))
	if err != nil {
		t.Fatalf("PrepareImage: %v", err)
	}
	img, err := imaging.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 80 {
		t.Errorf("bounds = %v, want 100x80", img.Bounds())
	}
}

func TestPrepareImage_Empty(t *testing.T) {
	if _, err := PrepareImage(nil); err != ErrEmptyImage {
		t.Errorf("err = %v, want ErrEmptyImage", err)
	}
}

func TestClassify_FallbackWhenNotConfigured(t *testing.T) {
	c := NewClassifier("", "", "any-model")
	if c.Configured() {
		t.Error("classifier without credentials should not be configured")
	}
	got := c.Classify(context.Background(), "Cold Brew Coffee Concentrate", nil, nil)
	if got != prompt.CategoryFood {
		t.Errorf("fallback category = %v, want food", got)
	}
}

func chatResponse(content string) map[string]interface{} {
	return map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]interface{}{"role": "assistant", "content": content}},
		},
	}
}

func TestClassify_UsesModelAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse(`{"category": "electronics"}`))
	}))
	defer server.Close()

	c := NewClassifier("test-key", server.URL+"/v1", "test-model")
	got := c.Classify(context.Background(), "Oak Bookend Set", nil, testPhoto(t, 64, 64))
	if got != prompt.CategoryElectronics {
		t.Errorf("category = %v, want electronics (model answer should win)", got)
	}
}

func TestClassify_FallbackOnBadAnswer(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown category", `{"category": "spaceship"}`},
		{"not json", `electronics`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(chatResponse(tt.content))
			}))
			defer server.Close()

			c := NewClassifier("test-key", server.URL+"/v1", "test-model")
			got := c.Classify(context.Background(), "Premium Champagne Gift Box", nil, nil)
			if got != prompt.CategoryAlcohol {
				t.Errorf("category = %v, want alcohol via fallback", got)
			}
		})
	}
}

func TestClassify_FallbackOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClassifier("test-key", server.URL+"/v1", "test-model")
	got := c.Classify(context.Background(), "Mechanical Keyboard", nil, nil)
	if got != prompt.CategoryElectronics {
		t.Errorf("category = %v, want electronics via fallback", got)
	}
}
