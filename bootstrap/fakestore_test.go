package bootstrap

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

const (
	testUser     = "alice"
	testPassword = "pw"
	testToken    = "s.human"
)

// fakeStore is an httptest server speaking the subset of the store API used
// by a bootstrap: seal status, userpass login and KV v2 reads.
type fakeStore struct {
	t      *testing.T
	server *httptest.Server

	mu      sync.Mutex
	secrets map[string]map[string]any
	down    bool
	logins  int
	reads   []string
	tokens  []string
}

func newFakeStore(t *testing.T) *fakeStore {
	t.Helper()

	f := &fakeStore{t: t, secrets: make(map[string]map[string]any)}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeStore) URL() string { return f.server.URL }

func (f *fakeStore) put(path string, data map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.secrets[path] = data
}

func (f *fakeStore) setDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

func (f *fakeStore) loginCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logins
}

func (f *fakeStore) readPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.reads...)
}

func (f *fakeStore) readTokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tokens...)
}

func (f *fakeStore) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.down {
		http.Error(w, `{"errors":["unavailable"]}`, http.StatusServiceUnavailable)
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/sys/seal-status":
		writeJSON(w, map[string]any{"sealed": false})

	case r.Method == http.MethodPost && r.URL.Path == "/auth/userpass/login/"+testUser:
		f.logins++
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != testPassword {
			http.Error(w, `{"errors":["invalid credentials"]}`, http.StatusBadRequest)
			return
		}
		writeJSON(w, map[string]any{"auth": map[string]any{"client_token": testToken}})

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/kv/data/services/"):
		path := strings.TrimPrefix(r.URL.Path, "/kv/data/services/")
		f.reads = append(f.reads, path)
		f.tokens = append(f.tokens, r.Header.Get("X-Vault-Token"))
		data, ok := f.secrets[path]
		if !ok {
			http.Error(w, `{"errors":[]}`, http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]any{"data": map[string]any{"data": data}})

	default:
		http.Error(w, `{"errors":["unsupported path"]}`, http.StatusNotFound)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// testSettings returns settings for the "billing" application logging in
// with userpass against f.
func testSettings(f *fakeStore, environment string) Settings {
	return Settings{
		AppName:           "billing",
		Environment:       environment,
		StoreURL:          f.URL(),
		HumanAuthStrategy: "userpass",
		AuthConfig: map[string]map[string]any{
			"userpass": {"username": testUser, "password": testPassword},
		},
	}
}
