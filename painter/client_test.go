package painter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// imagePNG is a 1x1 PNG, enough to stand in for real output.
var imagePNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x62, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func newTestClient(url string, attempts int) *Client {
	c := NewClient(url, "test-token", "test/model", Options{
		MaxAttempts: attempts,
		Timeout:     5 * time.Second,
	})
	c.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return c
}

func TestEdit_ResponseShapes(t *testing.T) {
	b64 := base64.StdEncoding.EncodeToString(imagePNG)

	tests := []struct {
		name string
		body interface{}
	}{
		{"output list with base64", map[string]interface{}{"output": []string{b64}}},
		{"data list with b64", map[string]interface{}{"data": []map[string]string{{"b64": b64}}}},
		{"data list with b64_json", map[string]interface{}{"data": []map[string]string{{"b64_json": b64}}}},
		{"data list with bare string", map[string]interface{}{"data": []string{b64}}},
		{"top level url field ignored when empty lists absent", map[string]interface{}{"url": ""}},
		{"top level list of strings", []string{b64}},
		{"top level list of objects", []map[string]string{{"b64": b64}}},
		{"data uri item", map[string]interface{}{"output": []string{"data:image/png;base64," + b64}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(tt.body)
			}))
			defer server.Close()

			client := newTestClient(server.URL, 1)
			got, err := client.Edit(context.Background(), []byte("input"), EditParams{Prompt: "p"})
			if tt.name == "top level url field ignored when empty lists absent" {
				if err == nil {
					t.Error("expected missing-output error for empty url")
				}
				return
			}
			if err != nil {
				t.Fatalf("Edit: %v", err)
			}
			if len(got) != len(imagePNG) {
				t.Errorf("output length = %d, want %d", len(got), len(imagePNG))
			}
		})
	}
}

func TestEdit_OutputByURL(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/file.png", func(w http.ResponseWriter, r *http.Request) {
		w.Write(imagePNG)
	})
	mux.HandleFunc("/edit", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"url": server.URL + "/file.png"})
	})

	client := newTestClient(server.URL+"/edit", 1)
	got, err := client.Edit(context.Background(), []byte("input"), EditParams{Prompt: "p"})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if len(got) != len(imagePNG) {
		t.Errorf("output length = %d, want %d", len(got), len(imagePNG))
	}
}

func TestEdit_RetriesTransientStatus(t *testing.T) {
	b64 := base64.StdEncoding.EncodeToString(imagePNG)
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"output": []string{b64}})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)
	if _, err := client.Edit(context.Background(), []byte("input"), EditParams{Prompt: "p"}); err != nil {
		t.Fatalf("Edit after retries: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

func TestEdit_NoRetryOnClientError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)
	_, err := client.Edit(context.Background(), []byte("input"), EditParams{Prompt: "p"})
	if err == nil {
		t.Fatal("expected error")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("calls = %d, want 1 (400 is not retryable)", n)
	}
}

func TestEdit_AttemptCap(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)
	if _, err := client.Edit(context.Background(), []byte("input"), EditParams{Prompt: "p"}); err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

func TestEdit_ConcurrentRetriesShareClient(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	// One shared client, many retrying workers, the way the batch pool
	// drives it. Real backoff waits so the jitter path runs concurrently.
	client := NewClient(server.URL, "test-token", "test/model", Options{
		MaxAttempts: 3,
		Timeout:     5 * time.Second,
	})
	client.sleep = func(ctx context.Context, d time.Duration) error {
		time.Sleep(time.Millisecond)
		return nil
	}

	const workers = 4
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.Edit(context.Background(), []byte("input"), EditParams{Prompt: "p"}); err == nil {
				t.Error("expected error from unavailable server")
			}
		}()
	}
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != workers*3 {
		t.Errorf("calls = %d, want %d", n, workers*3)
	}
}

func TestEdit_SendsMaskAndParams(t *testing.T) {
	b64 := base64.StdEncoding.EncodeToString(imagePNG)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(16 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if _, _, err := r.FormFile("image"); err != nil {
			t.Error("missing image part")
		}
		if _, _, err := r.FormFile("mask"); err != nil {
			t.Error("missing mask part")
		}
		if got := r.FormValue("model"); got != "test/model" {
			t.Errorf("model = %q", got)
		}
		if got := r.FormValue("guidance_scale"); got != "6.2" {
			t.Errorf("guidance_scale = %q", got)
		}
		if got := r.FormValue("num_inference_steps"); got != "30" {
			t.Errorf("num_inference_steps = %q", got)
		}
		if got := r.FormValue("prompt_strength"); got != "0.58" {
			t.Errorf("prompt_strength = %q", got)
		}
		if got := r.FormValue("negative_prompt"); got != DefaultNegativePrompt {
			t.Errorf("negative_prompt = %q", got)
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			t.Error("missing bearer token")
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"output": []string{b64}})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 1)
	_, err := client.Edit(context.Background(), []byte("input"), EditParams{
		Prompt:         "fresh backdrop",
		GuidanceScale:  6.2,
		InferenceSteps: 30,
		PromptStrength: 0.58,
		Mask:           []byte("mask-bytes"),
	})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
}

func TestEdit_NotConfigured(t *testing.T) {
	client := NewClient("", "", "m", Options{})
	if _, err := client.Edit(context.Background(), []byte("x"), EditParams{}); err != ErrNotConfigured {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}

func TestExtractOutputItem_Unrecognized(t *testing.T) {
	for _, body := range []string{`{}`, `[]`, `{"data": []}`, `{"output": [42]}`, `"just a string"`} {
		if _, err := extractOutputItem([]byte(body)); err == nil {
			t.Errorf("extractOutputItem(%s) should fail", body)
		}
	}
}
