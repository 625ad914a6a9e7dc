package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"imageseo/internal/services"
)

// Site holds the connection details for one WordPress installation. The
// password is a WordPress application password, stored as-is.
type Site struct {
	URL      string `json:"url"`
	User     string `json:"user"`
	Password string `json:"password"`
}

// ClientStats accumulates lifetime counters for one client.
type ClientStats struct {
	TotalProcessed int64 `json:"total_processed"`
	TotalErrors    int64 `json:"total_errors"`
}

// Client groups the sites and counters registered under one identifier.
type Client struct {
	Sites []Site      `json:"sites"`
	Stats ClientStats `json:"stats"`
}

// GlobalStats aggregates counters across all clients.
type GlobalStats struct {
	TotalProcessed int64 `json:"total_processed"`
}

type document struct {
	Clients map[string]*Client `json:"clients"`
	Tasks   []json.RawMessage  `json:"tasks"`
	Stats   GlobalStats        `json:"stats"`
}

// Registry is the durable client and stats store. All mutations run under a
// single mutex and are flushed to disk before they return.
type Registry struct {
	mu   sync.Mutex
	path string
	doc  document
}

// Open loads the registry at path, creating a fresh document when the file
// does not exist yet.
func Open(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, services.Wrap(services.ErrValidation, "registry", "open", "path required", nil)
	}
	reg := &Registry{
		path: path,
		doc: document{
			Clients: map[string]*Client{},
			Tasks:   []json.RawMessage{},
		},
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return reg, nil
		}
		return nil, services.Wrap(services.ErrPersistence, "registry", "open", "read file", err)
	}
	if err := json.Unmarshal(data, &reg.doc); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "registry", "open", "decode document", err)
	}
	if reg.doc.Clients == nil {
		reg.doc.Clients = map[string]*Client{}
	}
	return reg, nil
}

// Register adds a site under the given client, creating the client on first
// use. Registering a site identical to an existing one is a no-op so webhook
// retries do not grow the site list.
func (r *Registry) Register(clientID string, site Site) error {
	clientID = strings.TrimSpace(clientID)
	site.URL = strings.TrimRight(strings.TrimSpace(site.URL), "/")
	site.User = strings.TrimSpace(site.User)
	if clientID == "" {
		return services.Wrap(services.ErrValidation, "registry", "register", "client id required", nil)
	}
	if site.URL == "" || site.User == "" || site.Password == "" {
		return services.Wrap(services.ErrValidation, "registry", "register", "url, user, and password required", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	client := r.doc.Clients[clientID]
	if client == nil {
		client = &Client{}
		r.doc.Clients[clientID] = client
	}
	for _, existing := range client.Sites {
		if existing == site {
			return nil
		}
	}
	client.Sites = append(client.Sites, site)
	return r.persistLocked()
}

// Sites returns the sites registered under clientID.
func (r *Registry) Sites(clientID string) ([]Site, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	client := r.doc.Clients[strings.TrimSpace(clientID)]
	if client == nil {
		return nil, services.Wrap(services.ErrNotFound, "registry", "sites",
			fmt.Sprintf("unknown client %q", clientID), nil)
	}
	sites := make([]Site, len(client.Sites))
	copy(sites, client.Sites)
	return sites, nil
}

// HasClient reports whether the client exists.
func (r *Registry) HasClient(clientID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.doc.Clients[strings.TrimSpace(clientID)]
	return ok
}

// AllSites returns every registered client with its sites, for scheduled
// full sweeps. The returned map is a deep copy.
func (r *Registry) AllSites() map[string][]Site {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string][]Site, len(r.doc.Clients))
	for id, client := range r.doc.Clients {
		sites := make([]Site, len(client.Sites))
		copy(sites, client.Sites)
		out[id] = sites
	}
	return out
}

// RecordOutcome folds a finished run into the per-client and global
// counters, creating the client when a run was triggered for an identifier
// never registered before. The update is durable before it returns.
func (r *Registry) RecordOutcome(clientID string, processed, errs int) error {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return services.Wrap(services.ErrValidation, "registry", "record outcome", "client id required", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	client := r.doc.Clients[clientID]
	if client == nil {
		client = &Client{}
		r.doc.Clients[clientID] = client
	}
	client.Stats.TotalProcessed += int64(processed)
	client.Stats.TotalErrors += int64(errs)
	r.doc.Stats.TotalProcessed += int64(processed)
	return r.persistLocked()
}

// ClientSnapshot is the credential-free view of one client.
type ClientSnapshot struct {
	SiteURLs []string    `json:"sites"`
	Stats    ClientStats `json:"stats"`
}

// Snapshot is the credential-free view of the whole registry.
type Snapshot struct {
	TotalProcessed int64                     `json:"total_processed"`
	ActiveClients  int                       `json:"active_clients"`
	Clients        map[string]ClientSnapshot `json:"clients"`
}

// Snapshot returns current stats without exposing stored passwords.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		TotalProcessed: r.doc.Stats.TotalProcessed,
		ActiveClients:  len(r.doc.Clients),
		Clients:        make(map[string]ClientSnapshot, len(r.doc.Clients)),
	}
	for id, client := range r.doc.Clients {
		urls := make([]string, 0, len(client.Sites))
		for _, site := range client.Sites {
			urls = append(urls, site.URL)
		}
		sort.Strings(urls)
		snap.Clients[id] = ClientSnapshot{SiteURLs: urls, Stats: client.Stats}
	}
	return snap
}

// persistLocked writes the document to a sibling temp file and renames it
// over the target so readers never observe a torn write.
func (r *Registry) persistLocked() error {
	data, err := json.MarshalIndent(r.doc, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrPersistence, "registry", "persist", "encode document", err)
	}
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return services.Wrap(services.ErrPersistence, "registry", "persist", "ensure directory", err)
	}
	tmp, err := os.CreateTemp(dir, ".registry-*.json")
	if err != nil {
		return services.Wrap(services.ErrPersistence, "registry", "persist", "create temp file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return services.Wrap(services.ErrPersistence, "registry", "persist", "write temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return services.Wrap(services.ErrPersistence, "registry", "persist", "close temp file", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return services.Wrap(services.ErrPersistence, "registry", "persist", "rename into place", err)
	}
	return nil
}
