package captcha

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"
	"io/ioutil"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

const (
	// The number of decimal digits in a challenge code.
	codeLength = 4

	defaultMaxAttempts  = 3
	defaultChallengeTTL = 15 * time.Minute
)

// The user-facing messages returned with verification results. They are kept
// in Spanish to match the rest of the application's API surface.
const (
	msgNotFound         = "Captcha no encontrado. Genera uno nuevo."
	msgExpired          = "Captcha expirado. Genera uno nuevo."
	msgTooManyAttempts  = "Demasiados intentos fallidos. Genera un captcha nuevo."
	msgVerified         = "Captcha verificado correctamente"
	msgIncorrectFmt     = "Código incorrecto. Te quedan %d intentos."
	msgAttemptsConsumed = "Código incorrecto. Se agotaron los intentos."
)

// Status describes the outcome of a challenge verification attempt.
type Status uint8

const (
	// StatusSuccess indicates that the supplied code matched the challenge.
	StatusSuccess Status = iota

	// StatusNotFound indicates that no live challenge exists for the session.
	StatusNotFound

	// StatusExpired indicates that the challenge outlived its TTL.
	StatusExpired

	// StatusAttemptsExhausted indicates that the challenge had already
	// consumed its attempt budget before this verification call.
	StatusAttemptsExhausted

	// StatusIncorrect indicates that the supplied code did not match.
	StatusIncorrect
)

// Result encapsulates the outcome of a Verify call.
type Result struct {
	Status Status

	// A short human-readable message describing the outcome.
	Message string

	// The number of attempts left before the challenge gets discarded.
	// Only meaningful when Status is StatusIncorrect.
	RemainingAttempts int
}

// Success returns true if the verification attempt succeeded.
func (r Result) Success() bool { return r.Status == StatusSuccess }

// RenderedChallenge holds the data returned to callers of Generate.
type RenderedChallenge struct {
	// The challenge image encoded as a data URI suitable for direct
	// embedding in a JSON response.
	ImageDataURI string

	// The time when the challenge stops being accepted.
	ExpiresAt time.Time
}

// Renderer is implemented by objects that can render a challenge code into
// an image encoded as a data URI.
type Renderer interface {
	Render(sessionKey, code string) (dataURI string, err error)
}

// RenderError indicates that a challenge image could not be produced. It
// signals an environment problem (missing font, encoder failure) rather than
// a user-input failure.
type RenderError struct {
	Err error
}

// Error implements error.
func (e *RenderError) Error() string { return "render challenge image: " + e.Err.Error() }

// Unwrap returns the wrapped rendering failure.
func (e *RenderError) Unwrap() error { return e.Err }

// Config encapsulates the settings for creating a challenge store.
type Config struct {
	// The renderer used for producing challenge images. If not specified,
	// the built-in image renderer will be used instead.
	Renderer Renderer

	// A clock instance for generating time-related events. If not specified,
	// the default wall-clock will be used instead.
	Clock clock.Clock

	// A source of randomness for drawing challenge codes. If not specified,
	// crypto/rand will be used instead.
	RandSource io.Reader

	// The maximum number of failed verification attempts before a challenge
	// gets discarded. If not specified, a default of 3 will be used instead.
	MaxAttempts int

	// The lifetime of a generated challenge. If not specified, a default of
	// 15 minutes will be used instead.
	ChallengeTTL time.Duration

	// The period after a successful verification during which IsVerified
	// keeps reporting true. If not specified, the challenge TTL will be
	// used instead.
	VerifiedGrace time.Duration

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error
	if cfg.Renderer == nil {
		cfg.Renderer = NewImageRenderer()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.RandSource == nil {
		cfg.RandSource = rand.Reader
	}
	if cfg.MaxAttempts < 0 {
		err = multierror.Append(err, xerrors.Errorf("invalid value for max attempts"))
	} else if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.ChallengeTTL < 0 {
		err = multierror.Append(err, xerrors.Errorf("invalid value for challenge TTL"))
	} else if cfg.ChallengeTTL == 0 {
		cfg.ChallengeTTL = defaultChallengeTTL
	}
	if cfg.VerifiedGrace < 0 {
		err = multierror.Append(err, xerrors.Errorf("invalid value for verified grace period"))
	} else if cfg.VerifiedGrace == 0 {
		cfg.VerifiedGrace = cfg.ChallengeTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: ioutil.Discard})
	}
	return err
}

// challenge tracks the state for a single session's CAPTCHA. Each challenge
// carries its own mutex so that verification attempts for the same session
// serialize without blocking operations on other sessions.
type challenge struct {
	mu sync.Mutex

	code       string
	createdAt  time.Time
	expiresAt  time.Time
	attempts   int
	verified   bool
	verifiedAt time.Time

	// Set when the challenge has been removed from the store; late arrivals
	// that still hold a pointer to it must treat it as absent.
	evicted bool
}

// Store manages the session to challenge mapping and enforces the CAPTCHA
// verification state machine. Challenges expire lazily: every read treats an
// entry past its deadline as absent and removes it on the spot.
type Store struct {
	cfg Config

	// mu guards the challenges map only; the per-challenge state is guarded
	// by each challenge's own mutex. Lock order is challenge.mu before
	// Store.mu, never the reverse.
	mu         sync.Mutex
	challenges map[string]*challenge
}

// NewStore creates a new challenge store instance with the specified config.
func NewStore(cfg Config) (*Store, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("captcha store: config validation failed: %w", err)
	}

	return &Store{
		cfg:        cfg,
		challenges: make(map[string]*challenge),
	}, nil
}

// Generate draws a fresh challenge code for the specified session, renders it
// and stores the challenge state, unconditionally replacing any previous
// challenge for the same session. If rendering fails no state is stored and
// the returned error wraps a *RenderError.
func (s *Store) Generate(sessionKey string) (*RenderedChallenge, error) {
	code, err := drawCode(s.cfg.RandSource)
	if err != nil {
		return nil, xerrors.Errorf("captcha: unable to draw challenge code: %w", err)
	}

	// Render before touching the store so that a rendering failure leaves
	// no half-initialized challenge behind. Rendering is CPU-bound and must
	// not run under any lock.
	dataURI, err := s.cfg.Renderer.Render(sessionKey, code)
	if err != nil {
		return nil, xerrors.Errorf("captcha: %w", &RenderError{Err: err})
	}

	now := s.cfg.Clock.Now()
	ch := &challenge{
		code:      code,
		createdAt: now,
		expiresAt: now.Add(s.cfg.ChallengeTTL),
	}

	s.mu.Lock()
	prev := s.challenges[sessionKey]
	s.challenges[sessionKey] = ch
	s.mu.Unlock()

	if prev != nil {
		prev.mu.Lock()
		prev.evicted = true
		prev.mu.Unlock()
	}

	s.cfg.Logger.WithField("session", truncateKey(sessionKey)).Info("generated new captcha challenge")
	return &RenderedChallenge{
		ImageDataURI: dataURI,
		ExpiresAt:    ch.expiresAt,
	}, nil
}

// Verify checks userInput against the live challenge for the specified
// session. The checks apply in a fixed order: existence, expiry, attempt
// budget and finally the code comparison.
func (s *Store) Verify(sessionKey, userInput string) Result {
	userInput = strings.TrimSpace(userInput)

	ch := s.lookup(sessionKey)
	if ch == nil {
		return Result{Status: StatusNotFound, Message: msgNotFound}
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.evicted {
		return Result{Status: StatusNotFound, Message: msgNotFound}
	}

	now := s.cfg.Clock.Now()
	if now.After(ch.expiresAt) {
		s.remove(sessionKey, ch)
		return Result{Status: StatusExpired, Message: msgExpired}
	}

	if ch.attempts >= s.cfg.MaxAttempts {
		s.remove(sessionKey, ch)
		return Result{Status: StatusAttemptsExhausted, Message: msgTooManyAttempts}
	}

	if subtle.ConstantTimeCompare([]byte(userInput), []byte(ch.code)) == 1 {
		ch.verified = true
		ch.verifiedAt = now
		// The grace window may outlive the original TTL; extend the entry
		// lifetime so IsVerified stays true for the full window.
		if graceEnd := now.Add(s.cfg.VerifiedGrace); graceEnd.After(ch.expiresAt) {
			ch.expiresAt = graceEnd
		}
		s.cfg.Logger.WithField("session", truncateKey(sessionKey)).Info("captcha verified")
		return Result{Status: StatusSuccess, Message: msgVerified}
	}

	ch.attempts++
	remaining := s.cfg.MaxAttempts - ch.attempts
	if remaining <= 0 {
		s.remove(sessionKey, ch)
		s.cfg.Logger.WithField("session", truncateKey(sessionKey)).Warn("captcha attempts exhausted")
		return Result{Status: StatusIncorrect, Message: msgAttemptsConsumed}
	}

	return Result{
		Status:            StatusIncorrect,
		Message:           fmt.Sprintf(msgIncorrectFmt, remaining),
		RemainingAttempts: remaining,
	}
}

// IsVerified reports whether the specified session holds a successfully
// verified challenge. The challenge expiry and the post-verification grace
// window are checked independently; if either has elapsed the challenge is
// removed and false is returned.
func (s *Store) IsVerified(sessionKey string) bool {
	ch := s.lookup(sessionKey)
	if ch == nil {
		return false
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.evicted {
		return false
	}

	now := s.cfg.Clock.Now()
	if now.After(ch.expiresAt) {
		s.remove(sessionKey, ch)
		return false
	}

	if !ch.verified {
		return false
	}

	if !now.Before(ch.verifiedAt.Add(s.cfg.VerifiedGrace)) {
		s.remove(sessionKey, ch)
		return false
	}

	return true
}

// CleanExpired removes every stored challenge past its deadline and returns
// the number of removed entries. It is purely a memory-hygiene aid; all read
// paths already treat expired entries as absent.
func (s *Store) CleanExpired() int {
	s.mu.Lock()
	snapshot := make(map[string]*challenge, len(s.challenges))
	for key, ch := range s.challenges {
		snapshot[key] = ch
	}
	s.mu.Unlock()

	var removed int
	now := s.cfg.Clock.Now()
	for key, ch := range snapshot {
		ch.mu.Lock()
		if !ch.evicted && now.After(ch.expiresAt) {
			s.remove(key, ch)
			removed++
		}
		ch.mu.Unlock()
	}
	return removed
}

// lookup returns the challenge currently mapped to sessionKey, if any.
func (s *Store) lookup(sessionKey string) *challenge {
	s.mu.Lock()
	ch := s.challenges[sessionKey]
	s.mu.Unlock()
	return ch
}

// remove unmaps ch from the store. The caller must hold ch.mu. The map entry
// is only deleted if it still points at ch; a concurrent Generate call may
// have already replaced it.
func (s *Store) remove(sessionKey string, ch *challenge) {
	ch.evicted = true
	s.mu.Lock()
	if s.challenges[sessionKey] == ch {
		delete(s.challenges, sessionKey)
	}
	s.mu.Unlock()
}

// drawCode reads random bytes from r and maps them onto a sequence of decimal
// digits. Bytes that would bias the digit distribution get discarded.
func drawCode(r io.Reader) (string, error) {
	var (
		digits = make([]byte, 0, codeLength)
		buf    = make([]byte, 1)
	)
	for len(digits) < codeLength {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		if buf[0] >= 250 {
			continue
		}
		digits = append(digits, '0'+buf[0]%10)
	}
	return string(digits), nil
}

// truncateKey shortens a session key for logging so that full session
// identifiers never end up in log output.
func truncateKey(sessionKey string) string {
	if len(sessionKey) <= 8 {
		return sessionKey
	}
	return sessionKey[:8] + "..."
}
