// Package session owns the download-session lifecycle: identity, output
// templates, artifact location and deferred cleanup.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mediadlapi/internal/metrics"
	"mediadlapi/internal/models"
	"mediadlapi/internal/platform"
	"mediadlapi/internal/store"
)

// ErrArtifactNotFound means a fetch reported success but produced no file
// matching the session identity. Fatal for the request, never retried.
var ErrArtifactNotFound = errors.New("artifact not found in downloads directory")

type entry struct {
	session *models.DownloadSession
	timer   *time.Timer
}

// Manager issues session identities, tracks live sessions in memory and
// guarantees exactly one cleanup attempt per session. The downloads
// directory is the only state shared between sessions; each session owns
// the files whose names contain its identity.
type Manager struct {
	dir     string
	store   store.SessionStore
	metrics *metrics.Registry

	mu     sync.Mutex
	live   map[string]*entry
	closed bool
}

func NewManager(dir string, st store.SessionStore, m *metrics.Registry) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create downloads dir: %w", err)
	}
	return &Manager{dir: dir, store: st, metrics: m, live: make(map[string]*entry)}, nil
}

// newID returns a filename-safe identity with enough entropy that two
// sessions created in the same millisecond cannot collide.
func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Begin registers a new session for the canonical URL. The output template
// embeds the identity between the title hint and the extension so the
// artifact is discoverable afterwards.
func (m *Manager) Begin(ctx context.Context, canonicalURL string, p platform.Platform, selector string) (*models.DownloadSession, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, errors.New("session manager is shut down")
	}
	var id string
	for {
		id = newID()
		if _, taken := m.live[id]; !taken {
			break
		}
	}
	s := &models.DownloadSession{
		ID:             id,
		URL:            canonicalURL,
		Platform:       string(p),
		Selector:       selector,
		OutputTemplate: filepath.Join(m.dir, "%(title)s_"+id+".%(ext)s"),
		Cleanup:        models.CleanupPending,
	}
	m.live[id] = &entry{session: s}
	m.mu.Unlock()

	m.metrics.SessionsActive.Add(1)
	if err := m.store.Create(ctx, s); err != nil {
		log.Printf("session %s: store create: %v", id, err)
	}
	return s, nil
}

// LocateArtifact scans the downloads directory for the file produced under
// the session's identity and fills in the artifact path and the display
// filename (identity suffix stripped). With multiple matches the first in
// sorted directory order wins.
func (m *Manager) LocateArtifact(ctx context.Context, s *models.DownloadSession) (string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return "", fmt.Errorf("read downloads dir: %w", err)
	}
	marker := "_" + s.ID
	for _, e := range entries {
		if e.IsDir() || !strings.Contains(e.Name(), marker) {
			continue
		}
		s.ArtifactPath = filepath.Join(m.dir, e.Name())
		s.DisplayName = strings.Replace(e.Name(), marker, "", 1)
		if err := m.store.Update(ctx, s); err != nil {
			log.Printf("session %s: store update: %v", s.ID, err)
		}
		return s.ArtifactPath, nil
	}
	return "", ErrArtifactNotFound
}

// Fail marks the session failed. A session with a located artifact stays
// registered until its scheduled cleanup runs; otherwise the session is
// destroyed immediately. A failed or cancelled fetch can still have
// materialized partial files under the session identity, so this is their
// one cleanup attempt.
func (m *Manager) Fail(ctx context.Context, s *models.DownloadSession, cause error) {
	s.Error = cause.Error()
	if s.ArtifactPath != "" {
		if err := m.store.Update(ctx, s); err != nil {
			log.Printf("session %s: store update: %v", s.ID, err)
		}
		return
	}
	m.removeMatching(s.ID)
	m.mu.Lock()
	delete(m.live, s.ID)
	m.mu.Unlock()
	m.metrics.SessionsActive.Add(-1)
	if err := m.store.Delete(ctx, s.ID); err != nil {
		log.Printf("session %s: store delete: %v", s.ID, err)
	}
}

// removeMatching deletes every file in the downloads directory carrying the
// session identity, including .part leftovers from an interrupted fetch.
func (m *Manager) removeMatching(id string) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		log.Printf("session %s: read downloads dir: %v", id, err)
		return
	}
	marker := "_" + id
	for _, e := range entries {
		if e.IsDir() || !strings.Contains(e.Name(), marker) {
			continue
		}
		p := filepath.Join(m.dir, e.Name())
		if err := os.Remove(p); err != nil {
			m.metrics.CleanupFailures.Add(1)
			log.Printf("session %s: remove partial artifact: %v", id, err)
		} else {
			m.metrics.ArtifactsCleaned.Add(1)
			log.Printf("session %s: partial artifact removed: %s", id, e.Name())
		}
	}
}

// ScheduleCleanup arranges for the artifact to be deleted after the delay,
// tolerating slow consumers that have not closed the connection yet. It is
// idempotent per session; the first call wins. Deletion runs whether or not
// the transfer succeeded.
func (m *Manager) ScheduleCleanup(s *models.DownloadSession, delay time.Duration) {
	m.mu.Lock()
	e, ok := m.live[s.ID]
	if !ok || e.timer != nil {
		m.mu.Unlock()
		return
	}
	if m.closed {
		m.mu.Unlock()
		m.cleanup(s.ID)
		return
	}
	s.Cleanup = models.CleanupScheduled
	snapshot := *s
	e.timer = time.AfterFunc(delay, func() { m.cleanup(s.ID) })
	m.mu.Unlock()

	// The armed timer mutates the live record; the store write reads a
	// snapshot taken under the lock.
	if err := m.store.Update(context.Background(), &snapshot); err != nil {
		log.Printf("session %s: store update: %v", s.ID, err)
	}
}

// cleanup removes the artifact and discards the session record. Failures
// are logged, never escalated.
func (m *Manager) cleanup(id string) {
	m.mu.Lock()
	e, ok := m.live[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.live, id)
	m.mu.Unlock()

	s := e.session
	if s.ArtifactPath != "" {
		if err := os.Remove(s.ArtifactPath); err != nil {
			s.Cleanup = models.CleanupFailed
			m.metrics.CleanupFailures.Add(1)
			log.Printf("session %s: remove artifact: %v", id, err)
		} else {
			s.Cleanup = models.CleanupCompleted
			m.metrics.ArtifactsCleaned.Add(1)
			log.Printf("session %s: artifact removed: %s", id, filepath.Base(s.ArtifactPath))
		}
	} else {
		s.Cleanup = models.CleanupCompleted
	}
	m.metrics.SessionsActive.Add(-1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.store.Delete(ctx, id); err != nil {
		log.Printf("session %s: store delete: %v", id, err)
	}
}

// Active lists the sessions currently known to the store.
func (m *Manager) Active(ctx context.Context) ([]models.DownloadSession, error) {
	return m.store.List(ctx)
}

// Close cancels pending cleanup timers and deletes any artifacts already on
// disk, so a shutdown leaves the downloads directory empty.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	ids := make([]string, 0, len(m.live))
	for id, e := range m.live {
		if e.timer != nil && !e.timer.Stop() {
			// Timer already fired; its cleanup owns this session.
			continue
		}
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.cleanup(id)
	}
}
