package imageanalysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/image/bmp"

	"github.com/timmy/lexpdf/internal/pdf"
)

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond, Multiplier: 2}
}

func solid(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func TestRetryPolicyDo(t *testing.T) {
	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantErr   bool
	}{
		{"succeeds first time", []error{nil}, 1, false},
		{"succeeds after transient failures", []error{errors.New("503"), errors.New("503"), nil}, 3, false},
		{"gives up after max attempts", []error{errors.New("a"), errors.New("b"), errors.New("c"), nil}, 3, true},
		{"stops on permanent error", []error{Permanent(errors.New("400")), nil}, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := fastPolicy(3).Do(context.Background(), func(context.Context) error {
				err := tt.errs[calls]
				calls++
				return err
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetryPolicyBackoff(t *testing.T) {
	p := RetryPolicy{InitialBackoff: time.Second, MaxBackoff: 3 * time.Second, Multiplier: 2}
	want := []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second}
	for i, w := range want {
		if got := p.Backoff(i + 2); got != w {
			t.Errorf("Backoff(%d) = %v, want %v", i+2, got, w)
		}
	}
}

func TestRetryPolicyContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := RetryPolicy{MaxAttempts: 5, InitialBackoff: time.Hour, Multiplier: 2}
	calls := 0
	err := p.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) || calls != 1 {
		t.Errorf("err=%v calls=%d", err, calls)
	}
}

func TestPrepare(t *testing.T) {
	if _, err := Prepare(solid(20, 100), 32, 1000, 0); !errors.Is(err, ErrTooSmall) {
		t.Errorf("expected ErrTooSmall, got %v", err)
	}

	data, err := Prepare(solid(400, 100), 32, 200, 0)
	if err != nil {
		t.Fatalf("Prepare() error: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not JPEG: %v", err)
	}
	if cfg.Width != 200 || cfg.Height != 50 {
		t.Errorf("size = %dx%d, want 200x50", cfg.Width, cfg.Height)
	}

	if _, err := Prepare(solid(400, 400), 32, 0, 10); err == nil {
		t.Error("expected error when the byte budget cannot be met")
	}
}

func TestDecodeBMP(t *testing.T) {
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, solid(64, 48)); err != nil {
		t.Fatalf("encode bmp: %v", err)
	}
	img, format, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if format != "bmp" || img.Bounds().Dx() != 64 {
		t.Errorf("format=%q bounds=%v", format, img.Bounds())
	}
}

func TestClientDescribe(t *testing.T) {
	var hits atomic.Int32
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		if r.URL.Path != "/v1/chat/completions" || r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"  **Tipo:** carimbo  "}}]}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL + "/v1/", APIKey: "secret", Model: "vision-mini"})
	var desc string
	err := fastPolicy(3).Do(context.Background(), func(ctx context.Context) error {
		var err error
		desc, err = client.Describe(ctx, []byte{0xff, 0xd8}, "image/jpeg", 2)
		return err
	})
	if err != nil {
		t.Fatalf("Describe() error: %v", err)
	}
	if desc != "**Tipo:** carimbo" {
		t.Errorf("desc = %q", desc)
	}
	if hits.Load() != 3 {
		t.Errorf("hits = %d, want 3", hits.Load())
	}
	if gotBody["model"] != "vision-mini" {
		t.Errorf("model = %v", gotBody["model"])
	}
	raw, _ := json.Marshal(gotBody["messages"])
	if !strings.Contains(string(raw), "data:image/jpeg;base64,") || !strings.Contains(string(raw), "página 2") {
		t.Errorf("unexpected messages: %s", raw)
	}
}

func TestClientDescribeClientErrorIsPermanent(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"invalid image","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL})
	err := fastPolicy(3).Do(context.Background(), func(ctx context.Context) error {
		_, err := client.Describe(ctx, []byte{1}, "image/jpeg", 0)
		return err
	})

	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusBadRequest || statusErr.Message != "invalid image" {
		t.Fatalf("err = %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("hits = %d, want 1", hits.Load())
	}
}

type fakeDescriber struct {
	fail map[int]bool
}

func (f *fakeDescriber) Describe(_ context.Context, data []byte, mimeType string, page int) (string, error) {
	if f.fail[page] {
		return "", Permanent(errors.New("rejected"))
	}
	return "descrição da página", nil
}

func TestAnalyzer(t *testing.T) {
	opts := DefaultOptions()
	opts.Retry = fastPolicy(2)
	a := NewAnalyzer(&fakeDescriber{fail: map[int]bool{3: true}}, opts)

	var bmpBuf bytes.Buffer
	bmp.Encode(&bmpBuf, solid(50, 50))

	notes := a.Analyze(context.Background(), []pdf.Image{
		{Page: 1, Index: 0, Image: solid(100, 100)},
		{Page: 2, Index: 0, Image: solid(10, 10)},
		{Page: 3, Index: 0, Image: solid(100, 100)},
		{Page: 4, Index: 0, Data: bmpBuf.Bytes()},
	})

	if len(notes) != 3 {
		t.Fatalf("expected 3 notes (tiny image skipped), got %d", len(notes))
	}
	if notes[0].Description != "descrição da página" || notes[0].Error != "" {
		t.Errorf("note 0 = %+v", notes[0])
	}
	if notes[1].Page != 3 || notes[1].Error == "" {
		t.Errorf("note 1 = %+v", notes[1])
	}
	if notes[2].Page != 4 || notes[2].Error != "" {
		t.Errorf("note 2 = %+v", notes[2])
	}
}
