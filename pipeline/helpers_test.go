package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"imagine/core"
	"imagine/imagegen"
)

// fakeAPI stands in for both the generation endpoint and the image host.
type fakeAPI struct {
	server *httptest.Server

	// generateStatus maps a prompt to the status its generation returns (default 200)
	generateStatus map[string]int

	// imageStatus is returned for every image GET (0 = 200)
	imageStatus int

	// sharedURL makes every prompt point at the same image
	sharedURL bool

	// blockDownload holds image GETs for these prompts until the client gives up
	blockDownload map[string]bool

	// cutDownload sends half of every image, then drops the connection
	cutDownload bool

	// generateDelay slows each generation call down
	generateDelay time.Duration

	generateCalls atomic.Int32
	downloadCalls atomic.Int32
	inFlight      atomic.Int32
	maxInFlight   atomic.Int32
}

func newFakeAPI(t *testing.T, configure func(*fakeAPI)) *fakeAPI {
	t.Helper()
	api := &fakeAPI{generateStatus: map[string]int{}, blockDownload: map[string]bool{}}
	if configure != nil {
		configure(api)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/images/generations", api.handleGenerate)
	mux.HandleFunc("/img/", api.handleImage)
	api.server = httptest.NewServer(mux)
	t.Cleanup(api.server.Close)
	return api
}

func (a *fakeAPI) handleGenerate(w http.ResponseWriter, r *http.Request) {
	a.generateCalls.Add(1)
	current := a.inFlight.Add(1)
	defer a.inFlight.Add(-1)
	for {
		seen := a.maxInFlight.Load()
		if current <= seen || a.maxInFlight.CompareAndSwap(seen, current) {
			break
		}
	}
	if a.generateDelay > 0 {
		time.Sleep(a.generateDelay)
	}

	var body struct {
		Prompt string `json:"prompt"`
	}
	json.NewDecoder(r.Body).Decode(&body)

	if status, ok := a.generateStatus[body.Prompt]; ok && status != http.StatusOK {
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "generation failed", "type": "server_error"},
		})
		return
	}

	key := imagegen.NameFor(body.Prompt)
	if a.sharedURL {
		key = "shared"
	}
	json.NewEncoder(w).Encode(map[string]any{
		"created": time.Now().Unix(),
		"data":    []map[string]any{{"url": a.server.URL + "/img/" + key}},
	})
}

func (a *fakeAPI) handleImage(w http.ResponseWriter, r *http.Request) {
	a.downloadCalls.Add(1)
	key := strings.TrimPrefix(r.URL.Path, "/img/")

	if a.blockDownload[key] {
		select {
		case <-r.Context().Done():
		case <-time.After(10 * time.Second):
		}
		return
	}
	if a.imageStatus != 0 && a.imageStatus != http.StatusOK {
		http.Error(w, "not found", a.imageStatus)
		return
	}
	if a.cutDownload {
		writeHalfAndHangUp(w, imageBytes(key))
		return
	}
	w.Write(imageBytes(key))
}

// writeHalfAndHangUp advertises the full payload but closes the connection
// after sending half of it.
func writeHalfAndHangUp(w http.ResponseWriter, payload []byte) {
	conn, buf, err := w.(http.Hijacker).Hijack()
	if err != nil {
		return
	}
	defer conn.Close()
	fmt.Fprintf(buf, "HTTP/1.1 200 OK\r\nContent-Type: image/png\r\nContent-Length: %d\r\n\r\n", len(payload))
	buf.Write(payload[:len(payload)/2])
	buf.Flush()
}

// imageBytes is the deterministic payload served for an image key.
func imageBytes(key string) []byte {
	return bytes.Repeat([]byte("PNG-"+key+"|"), 500)
}

func (a *fakeAPI) client(t *testing.T) *imagegen.Client {
	t.Helper()
	client, err := imagegen.NewClientWithConfig(imagegen.ClientConfig{
		APIKey:     "sk-test",
		BaseURL:    a.server.URL + "/v1",
		HTTPClient: a.server.Client(),
	})
	if err != nil {
		t.Fatalf("NewClientWithConfig() error = %v", err)
	}
	return client
}

// fakeReporter records what a task reports.
type fakeReporter struct {
	mu       sync.Mutex
	label    string
	messages []string
	final    string
	failed   bool
	finished int
}

func (r *fakeReporter) ReportProgress(message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return nil
}

func (r *fakeReporter) ReportError(err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.final = err.Error()
	r.failed = true
	r.finished++
	return nil
}

func (r *fakeReporter) ReportSuccess(message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.final = message
	r.finished++
	return nil
}

// fakeReporters hands out fakeReporters in creation order.
type fakeReporters struct {
	mu        sync.Mutex
	reporters []*fakeReporter
}

func (f *fakeReporters) Reporter(label string) core.ProgressReporter {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := &fakeReporter{label: label}
	f.reporters = append(f.reporters, r)
	return r
}
