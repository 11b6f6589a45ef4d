// Package selftest holds a small greeting domain and one test case per level
// that exercise the default catalog end to end.
package selftest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	"testrig/internal/container/memory"
	"testrig/internal/extension"
	"testrig/internal/lifecycle"
	"testrig/internal/service"
	"testrig/pkg/logging"
)

// Module and resource names registered by Options.
const (
	ModuleGreetings = "greetings"
	ModuleKV        = "kv"
	ResourceAudit   = "audit"
)

// Store keeps custom greetings.
type Store interface {
	Get(name string) (string, bool)
	Put(name, greeting string)
}

// KVStore is a concurrency-safe in-memory Store.
type KVStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewKVStore() *KVStore {
	return &KVStore{data: make(map[string]string)}
}

func (s *KVStore) Get(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[name]
	return v, ok
}

func (s *KVStore) Put(name, greeting string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[name] = greeting
}

// Greeter greets by name, preferring stored greetings.
type Greeter struct {
	store Store
}

func (g *Greeter) Greet(name string) string {
	if s, ok := g.store.Get(name); ok {
		return s
	}
	return "hello " + name
}

// ServeHTTP greets the name query parameter.
func (g *Greeter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "missing name", http.StatusBadRequest)
		return
	}
	_, _ = io.WriteString(w, g.Greet(name))
}

// NewRouter exposes g over http:
//
//	GET /greet?name=N       greets N
//	GET /greetings/{name}   greets name
//	PUT /greetings/{name}   stores the request body as the greeting of name
func NewRouter(g *Greeter) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/greet", g).Methods(http.MethodGet)
	r.HandleFunc("/greetings/{name}", func(w http.ResponseWriter, req *http.Request) {
		_, _ = io.WriteString(w, g.Greet(mux.Vars(req)["name"]))
	}).Methods(http.MethodGet)
	r.HandleFunc("/greetings/{name}", func(w http.ResponseWriter, req *http.Request) {
		body, err := io.ReadAll(io.LimitReader(req.Body, 1<<10))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		greeting := strings.TrimSpace(string(body))
		if greeting == "" {
			http.Error(w, "empty greeting", http.StatusBadRequest)
			return
		}
		g.store.Put(mux.Vars(req)["name"], greeting)
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodPut)
	return r
}

// Schema creates the greetings table used by SQLStore.
const Schema = `CREATE TABLE greetings (name TEXT PRIMARY KEY, greeting TEXT NOT NULL)`

// SQLStore is a Store over the greetings table.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Get(name string) (string, bool) {
	var greeting string
	err := s.db.QueryRow(`SELECT greeting FROM greetings WHERE name = ?`, name).Scan(&greeting)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logging.Warn("SQLStore", "Failed to read greeting of %s: %v", name, err)
		}
		return "", false
	}
	return greeting, true
}

func (s *SQLStore) Put(name, greeting string) {
	_, err := s.db.Exec(`INSERT INTO greetings (name, greeting) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET greeting = excluded.greeting`, name, greeting)
	if err != nil {
		logging.Warn("SQLStore", "Failed to store greeting of %s: %v", name, err)
	}
}

// AuditLog is the handle of the audit resource.
type AuditLog struct {
	mu      sync.Mutex
	entries []string
}

func (a *AuditLog) Record(format string, args ...any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, fmt.Sprintf(format, args...))
}

func (a *AuditLog) Entries() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.entries...)
}

// AuditProvider starts a fresh AuditLog per invocation.
type AuditProvider struct{}

func (AuditProvider) Start(ctx context.Context, rc *lifecycle.Context) (any, error) {
	log := &AuditLog{}
	log.Record("started for %s", rc.ID())
	return log, nil
}

func (AuditProvider) Stop(ctx context.Context, handle any) error {
	if _, ok := handle.(*AuditLog); !ok {
		return fmt.Errorf("unexpected audit handle %T", handle)
	}
	return nil
}

// GreetingsModule binds the Greeter and its handler. The Store comes from
// elsewhere: a fake, or the kv module.
func GreetingsModule(b *memory.Binder) error {
	if err := memory.Provide(b, func(r service.Resolver) (*Greeter, error) {
		store, err := service.Get[Store](r)
		if err != nil {
			return nil, err
		}
		return &Greeter{store: store}, nil
	}); err != nil {
		return err
	}
	return memory.Provide(b, func(r service.Resolver) (http.Handler, error) {
		g, err := service.Get[*Greeter](r)
		if err != nil {
			return nil, err
		}
		return NewRouter(g), nil
	})
}

// KVModule binds a seeded KVStore.
func KVModule(b *memory.Binder) error {
	store := NewKVStore()
	store.Put("ada", "good day, ada")
	return memory.Value[Store](b, store)
}

// RegisterAudit registers the audit resource provider.
func RegisterAudit(r *extension.Registry) error {
	return extension.Register[lifecycle.ResourceProvider](r, ResourceAudit, lifecycle.ResourceProvider(AuditProvider{}),
		extension.TagContainer, extension.TagEndToEnd)
}

// Fakes adds the fake Store constructor.
func Fakes(f *lifecycle.FuncFakeFactory) {
	lifecycle.AddFake(f, func() Store { return NewKVStore() })
}
