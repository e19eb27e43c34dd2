// Package cache is the background cache layer: a caching http.RoundTripper
// backed by a versioned on-disk response cache. While online it records
// successful GET responses; while offline it serves them back, so content
// fetches keep working without connectivity. The cache manages its own
// install/waiting/activated lifecycle independently of the rest of the
// application, mirroring how a new cache generation must never silently
// replace the one a running session depends on.
package cache

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/phrazzld/lingosync/internal/platform/diskusage"
	"github.com/phrazzld/lingosync/internal/store"
)

// ErrRegistrationFailed is returned internally when the cache layer cannot
// set itself up. Register logs it and degrades instead of propagating:
// a missing cache means no offline mode, not a crash.
var ErrRegistrationFailed = errors.New("cache registration failed")

// errCacheMiss distinguishes "no cached response" from disk errors.
var errCacheMiss = errors.New("response not cached")

// State is the lifecycle position of the cache layer.
type State string

// Lifecycle states. A new version installing over an activated one parks at
// StateWaiting until SkipWaiting is invoked.
const (
	StateUnregistered State = "unregistered"
	StateInstalling   State = "installing"
	StateWaiting      State = "installed_waiting"
	StateActivated    State = "activated"
)

// Hooks are the one-shot lifecycle callbacks passed to Register.
type Hooks struct {
	// OnSuccess fires when a version activates during registration.
	OnSuccess func(version string)

	// OnUpdate fires when a newer version installed but is waiting for
	// explicit confirmation before activating.
	OnUpdate func(version string)

	// OnOffline and OnOnline fire on connectivity transitions observed
	// through the layer's online checker.
	OnOffline func()
	OnOnline  func()
}

// onlineChecker reports current connectivity; satisfied by
// *connectivity.Monitor.
type onlineChecker interface {
	IsOnline() bool
}

// Layer is the background cache layer.
type Layer struct {
	dir      string
	version  string
	precache []string
	online   onlineChecker
	base     http.RoundTripper
	logger   *slog.Logger

	mu             sync.Mutex
	state          State
	activeVersion  string
	waitingVersion string
	hooks          Hooks
}

// Config carries the settings a Layer needs.
type Config struct {
	// Dir is the response cache root. Each installed version keeps its
	// entries in its own subdirectory.
	Dir string

	// Version is the cache generation this binary ships with.
	Version string

	// PrecacheURLs are the critical assets fetched during install so they
	// are available offline from the first session.
	PrecacheURLs []string

	// Base optionally overrides the underlying transport. Nil uses
	// http.DefaultTransport.
	Base http.RoundTripper
}

// New creates an unregistered Layer.
func New(cfg Config, online onlineChecker, logger *slog.Logger) *Layer {
	base := cfg.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return &Layer{
		dir:      cfg.Dir,
		version:  cfg.Version,
		precache: cfg.PrecacheURLs,
		online:   online,
		base:     base,
		logger:   logger.With("component", "cache_layer"),
		state:    StateUnregistered,
	}
}

// State returns the current lifecycle state.
func (l *Layer) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// UpdateAvailable reports whether a newer version is installed and waiting.
func (l *Layer) UpdateAvailable() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state == StateWaiting
}

// Register performs the one-shot install/activate sequence. It never
// returns an error: any failure is logged and the layer stays unregistered,
// degrading the app to online-only operation.
func (l *Layer) Register(hooks Hooks) {
	l.mu.Lock()
	if l.state != StateUnregistered {
		l.mu.Unlock()
		l.logger.Warn("register called twice, ignoring")
		return
	}
	l.state = StateInstalling
	l.hooks = hooks
	l.mu.Unlock()

	if err := l.install(); err != nil {
		l.logger.Error("offline cache disabled for this session",
			"error", errors.Join(ErrRegistrationFailed, err))
		l.mu.Lock()
		l.state = StateUnregistered
		l.mu.Unlock()
		return
	}
}

// install reads the active-version marker and decides between first
// activation, reuse, and parking a new version as waiting.
func (l *Layer) install() error {
	if err := os.MkdirAll(l.versionDir(l.version), 0o755); err != nil {
		return err
	}

	current, err := l.readCurrentVersion()
	if err != nil {
		return err
	}

	switch current {
	case l.version:
		// Same generation: reuse what is already on disk.
		l.activate(l.version, false)
	case "":
		// First install: precache, then activate immediately.
		l.precacheAssets()
		l.activate(l.version, true)
	default:
		// A previous generation is active. Install alongside it and wait
		// for explicit confirmation instead of swapping code under a
		// running session.
		l.precacheAssets()
		l.mu.Lock()
		l.state = StateWaiting
		l.activeVersion = current
		l.waitingVersion = l.version
		onUpdate := l.hooks.OnUpdate
		l.mu.Unlock()

		l.logger.Info("new cache version waiting",
			"active_version", current,
			"waiting_version", l.version)
		if onUpdate != nil {
			onUpdate(l.version)
		}
	}
	return nil
}

// SkipWaiting forces the waiting version active. The host environment must
// restart afterwards to pick up the new generation; callers signal that via
// the returned flag.
func (l *Layer) SkipWaiting() (restartRequired bool) {
	l.mu.Lock()
	if l.state != StateWaiting {
		l.mu.Unlock()
		return false
	}
	version := l.waitingVersion
	l.mu.Unlock()

	l.activate(version, true)
	l.logger.Info("waiting cache version forced active", "version", version)
	return true
}

// activate marks the given version current and fires OnSuccess when the
// activation is new (not a reuse of the already-current version).
func (l *Layer) activate(version string, persist bool) {
	if persist {
		if err := os.WriteFile(l.currentMarkerPath(), []byte(version), 0o644); err != nil {
			l.logger.Error("failed to persist active cache version", "error", err)
		}
	}

	l.mu.Lock()
	l.state = StateActivated
	l.activeVersion = version
	l.waitingVersion = ""
	onSuccess := l.hooks.OnSuccess
	l.mu.Unlock()

	if onSuccess != nil {
		onSuccess(version)
	}
}

// NotifyConnectivity forwards a connectivity transition to the registered
// hooks. The facade calls this from its event subscription so hook delivery
// stays in one place.
func (l *Layer) NotifyConnectivity(online bool) {
	l.mu.Lock()
	onOffline, onOnline := l.hooks.OnOffline, l.hooks.OnOnline
	l.mu.Unlock()

	if online && onOnline != nil {
		onOnline()
	}
	if !online && onOffline != nil {
		onOffline()
	}
}

// Size reports the response cache footprint and filesystem capacity.
// Zeros when accounting is unsupported; never an error.
func (l *Layer) Size() store.Usage {
	used, err := diskusage.DirSize(l.dir)
	if err != nil {
		l.logger.Debug("cache accounting unavailable", "error", err)
		return store.Usage{}
	}
	quota, err := diskusage.Capacity(l.dir)
	if err != nil {
		quota = 0
	}
	return store.Usage{Used: used, Quota: quota}
}

// Clear empties all response cache generations. This clears HTTP response
// caches only; structured records in the local store are untouched. The
// lifecycle state and active version survive.
func (l *Layer) Clear() error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := os.RemoveAll(filepath.Join(l.dir, entry.Name())); err != nil {
			return err
		}
	}

	l.mu.Lock()
	active := l.activeVersion
	l.mu.Unlock()
	if active != "" {
		return os.MkdirAll(l.versionDir(active), 0o755)
	}
	return nil
}

// precacheAssets fetches the configured critical URLs into the installing
// version's directory. Individual failures are logged and skipped: a
// partial precache is still better than none, and the entry will be cached
// on first online use instead.
func (l *Layer) precacheAssets() {
	for _, url := range l.precache {
		req, err := http.NewRequest(http.MethodGet, url, nil)
		if err != nil {
			l.logger.Warn("skipping invalid precache URL", "url", url, "error", err)
			continue
		}
		resp, err := l.base.RoundTrip(req)
		if err != nil {
			l.logger.Warn("precache fetch failed", "url", url, "error", err)
			continue
		}
		if resp.StatusCode == http.StatusOK {
			if err := l.storeResponse(l.version, req, resp); err != nil {
				l.logger.Warn("precache store failed", "url", url, "error", err)
			}
		}
		_ = resp.Body.Close()
	}
}

func (l *Layer) versionDir(version string) string {
	return filepath.Join(l.dir, sanitizeVersion(version))
}

func (l *Layer) currentMarkerPath() string {
	return filepath.Join(l.dir, "current")
}

func (l *Layer) readCurrentVersion() (string, error) {
	data, err := os.ReadFile(l.currentMarkerPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// sanitizeVersion keeps version strings safe as directory names.
func sanitizeVersion(version string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.', r == '_':
			return r
		}
		return '_'
	}, version)
}
