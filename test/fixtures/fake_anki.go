// Package fixtures provides test helpers for integration tests.
package fixtures

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
)

// FakeAnki is an AnkiConnect stand-in that answers findCards with a
// configurable number of card IDs.
type FakeAnki struct {
	server *httptest.Server

	mu       sync.Mutex
	reviewed int
	down     bool
	requests int
}

// NewFakeAnki starts a fake AnkiConnect server with reviewed cards done today.
func NewFakeAnki(reviewed int) *FakeAnki {
	f := &FakeAnki{reviewed: reviewed}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	return f
}

// URL returns the server address.
func (f *FakeAnki) URL() string {
	return f.server.URL
}

// Close stops the server.
func (f *FakeAnki) Close() {
	f.server.Close()
}

// Review adds n reviewed cards.
func (f *FakeAnki) Review(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reviewed += n
}

// SetDown makes the server answer with an error envelope, as AnkiConnect
// does while a sync holds the collection.
func (f *FakeAnki) SetDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

// Requests returns how many findCards calls were served.
func (f *FakeAnki) Requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

func (f *FakeAnki) handle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Action != "findCards" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.requests++
	down := f.down
	ids := make([]int64, f.reviewed)
	for i := range ids {
		ids[i] = 1700000000000 + int64(i)
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if down {
		_ = json.NewEncoder(w).Encode(map[string]any{"result": nil, "error": "collection is not available"})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"result": ids, "error": nil})
}

// StockHosts is a default macOS hosts file.
const StockHosts = `##
# Host Database
#
# localhost is used to configure the loopback interface
# when the system is booting.  Do not change this entry.
##
127.0.0.1	localhost
255.255.255.255	broadcasthost
::1             localhost
`

// WriteHostsFile creates a stock hosts file in dir and returns its path.
func WriteHostsFile(dir string) (string, error) {
	path := filepath.Join(dir, "hosts")
	if err := os.WriteFile(path, []byte(StockHosts), 0644); err != nil {
		return "", err
	}
	return path, nil
}
