// Package assetcache is a cache-first HTTP middleware for the front-end's
// static assets, so the UI keeps loading when its origin is unreachable.
//
// Entries live in versioned generations inside a Store. Install fills the
// current generation with the full asset list in one atomic write; Activate
// deletes every other generation; Middleware serves GET requests from the
// current generation and falls back to the wrapped handler, storing 200
// responses for next time.
package assetcache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// DefaultVersion names the cache generation when none is configured.
const DefaultVersion = "image-scanner-pwa-v1"

// CacheHeader reports whether a response came from the cache ("hit") or the
// wrapped handler ("miss").
const CacheHeader = "X-Asset-Cache"

// maxEntryBytes bounds the size of a response stored by Middleware.
const maxEntryBytes = 8 << 20

// DefaultAssets is the enumerated front-end asset list.
func DefaultAssets() []string {
	return []string{
		"/",
		"/index.html",
		"/style.css",
		"/app.js",
		"/manifest.webmanifest",
	}
}

// Options configure a Proxy.
type Options struct {
	Version string
	Assets  []string
	Logger  *slog.Logger
}

// Proxy is the cache-first asset proxy.
type Proxy struct {
	store   Store
	version string
	assets  []string
	logger  *slog.Logger
}

// New creates a Proxy over store.
func New(store Store, opts Options) *Proxy {
	if opts.Version == "" {
		opts.Version = DefaultVersion
	}
	if opts.Assets == nil {
		opts.Assets = DefaultAssets()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Proxy{
		store:   store,
		version: opts.Version,
		assets:  append([]string(nil), opts.Assets...),
		logger:  opts.Logger.With("component", "assetcache", "version", opts.Version),
	}
}

// Version returns the current generation name.
func (p *Proxy) Version() string { return p.version }

// Assets returns the enumerated asset list.
func (p *Proxy) Assets() []string { return append([]string(nil), p.assets...) }

// Install fetches every asset through network and stores them in the current
// generation. If any asset fails to fetch or answers with a status other
// than 200, nothing is stored.
func (p *Proxy) Install(ctx context.Context, network http.Handler) error {
	entries := make([]Entry, 0, len(p.assets))
	for _, asset := range p.assets {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset, nil)
		if err != nil {
			return fmt.Errorf("install %s: %w", asset, err)
		}
		req.RequestURI = asset

		rec := newBufferedWriter()
		network.ServeHTTP(rec, req)
		if rec.status != http.StatusOK {
			return fmt.Errorf("install %s: status %d", asset, rec.status)
		}
		entries = append(entries, rec.entry(req.URL.RequestURI()))
	}

	if err := p.store.PutAll(ctx, p.version, entries); err != nil {
		return fmt.Errorf("install: %w", err)
	}
	p.logger.Info("assets installed", "count", len(entries))
	return nil
}

// Activate deletes every generation other than the current one.
func (p *Proxy) Activate(ctx context.Context) error {
	gens, err := p.store.Generations(ctx)
	if err != nil {
		return fmt.Errorf("activate: %w", err)
	}
	for _, gen := range gens {
		if gen == p.version {
			continue
		}
		if err := p.store.DeleteGeneration(ctx, gen); err != nil {
			return fmt.Errorf("activate: delete %s: %w", gen, err)
		}
		p.logger.Info("stale generation deleted", "generation", gen)
	}
	return nil
}

// Middleware serves GET requests from the current generation when possible,
// otherwise from next, storing successful responses on the way out. Other
// methods go straight to next. Cache errors are logged and never reach the
// client.
func (p *Proxy) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}

		key := r.URL.RequestURI()
		e, err := p.store.Match(r.Context(), p.version, key)
		switch {
		case err == nil:
			serveEntry(w, e)
			return
		case !errors.Is(err, ErrNotFound):
			p.logger.Warn("cache lookup failed", "url", key, "error", err)
		}

		w.Header().Set(CacheHeader, "miss")
		tee := &teeWriter{ResponseWriter: w, header: make(http.Header), status: http.StatusOK}
		next.ServeHTTP(tee, r)
		tee.commit()

		if tee.status != http.StatusOK || tee.overflow {
			return
		}
		entry := Entry{
			URL:      key,
			Status:   tee.status,
			Header:   storedHeader(tee.header),
			Body:     tee.body.Bytes(),
			StoredAt: time.Now().UTC(),
		}
		if err := p.store.Put(r.Context(), p.version, entry); err != nil {
			p.logger.Warn("cache put failed", "url", key, "error", err)
		}
	})
}

// serveEntry replays e. Headers already set on w for this request win over
// stored ones.
func serveEntry(w http.ResponseWriter, e Entry) {
	h := w.Header()
	for k, vs := range e.Header {
		if _, set := h[k]; set {
			continue
		}
		h[k] = append([]string(nil), vs...)
	}
	h.Set(CacheHeader, "hit")
	w.WriteHeader(e.Status)
	w.Write(e.Body)
}

// storedHeader copies h without hop-specific headers.
func storedHeader(h http.Header) http.Header {
	out := h.Clone()
	out.Del(CacheHeader)
	out.Del("Date")
	out.Del("Set-Cookie")
	return out
}

// bufferedWriter captures a full response in memory.
type bufferedWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
	wrote  bool
}

func newBufferedWriter() *bufferedWriter {
	return &bufferedWriter{header: http.Header{}, status: http.StatusOK}
}

func (b *bufferedWriter) Header() http.Header { return b.header }

func (b *bufferedWriter) WriteHeader(status int) {
	if b.wrote {
		return
	}
	b.status = status
	b.wrote = true
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	b.wrote = true
	return b.body.Write(p)
}

func (b *bufferedWriter) entry(url string) Entry {
	return Entry{
		URL:      url,
		Status:   b.status,
		Header:   storedHeader(b.header),
		Body:     append([]byte(nil), b.body.Bytes()...),
		StoredAt: time.Now().UTC(),
	}
}

// teeWriter passes a response through while keeping a copy of it. The
// wrapped handler writes headers into its own map, so only those are stored;
// headers set upstream for this request stay on the real writer.
type teeWriter struct {
	http.ResponseWriter
	header    http.Header
	status    int
	wrote     bool
	committed bool
	body      bytes.Buffer
	overflow  bool
}

func (t *teeWriter) Header() http.Header { return t.header }

// commit copies the handler's headers onto the real writer once.
func (t *teeWriter) commit() {
	if t.committed {
		return
	}
	t.committed = true
	dst := t.ResponseWriter.Header()
	for k, vs := range t.header {
		dst[k] = vs
	}
}

func (t *teeWriter) WriteHeader(status int) {
	if !t.wrote {
		t.status = status
		t.wrote = true
	}
	t.commit()
	t.ResponseWriter.WriteHeader(status)
}

func (t *teeWriter) Write(p []byte) (int, error) {
	t.wrote = true
	t.commit()
	if !t.overflow {
		if t.body.Len()+len(p) > maxEntryBytes {
			t.overflow = true
			t.body.Reset()
		} else {
			t.body.Write(p)
		}
	}
	return t.ResponseWriter.Write(p)
}

func (t *teeWriter) Flush() {
	if f, ok := t.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
