package frontend

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/buscalibros/buscalibros/captcha"
	"github.com/buscalibros/buscalibros/catalog"
)

//go:generate mockgen -package mocks -destination mocks/mocks.go github.com/buscalibros/buscalibros/service/frontend CatalogAPI,CaptchaAPI
//go:generate mockgen -package mocks -destination mocks/mock_iterator.go github.com/buscalibros/buscalibros/catalog Iterator

const (
	searchEndpoint          = "/search"
	booksEndpoint           = "/api/books"
	categoriesEndpoint      = "/api/categories"
	generateCaptchaEndpoint = "/api/captcha/generate"
	verifyCaptchaEndpoint   = "/api/captcha/verify"
	healthEndpoint          = "/healthz"
	metricsEndpoint         = "/metrics"

	sessionCookieName = "buscalibros_session"
	sessionCookieTTL  = time.Hour

	defaultResultsPerPage = 30
	defaultFreeSearches   = 3

	defaultSearchRequestsPerMinute   = 30
	defaultBooksRequestsPerMinute    = 20
	defaultGenerateRequestsPerMinute = 10
	defaultVerifyRequestsPerMinute   = 20
)

// User-facing messages, kept in Spanish like the rest of the API surface.
const (
	msgNoQuery         = "No se proporcionó término de búsqueda"
	msgCaptchaRequired = "Captcha requerido"
	msgCodeRequired    = "Código de captcha requerido"
	msgNoSession       = "Sesión no encontrada"
	msgInternalError   = "Error interno del servidor"
	msgThrottled       = "Demasiadas solicitudes. Intenta de nuevo más tarde."
)

// CatalogAPI defines a set of API methods for querying the book catalog.
type CatalogAPI interface {
	Search(query catalog.Query) (catalog.Iterator, error)
	All(category string) ([]*catalog.Book, error)
	Categories() []string
}

// CaptchaAPI defines a set of API methods for managing per-session CAPTCHA
// challenges.
type CaptchaAPI interface {
	Generate(sessionKey string) (*captcha.RenderedChallenge, error)
	Verify(sessionKey, userInput string) captcha.Result
	IsVerified(sessionKey string) bool
}

// Config encapsulates the settings for configuring the front-end service.
type Config struct {
	// An API for executing queries against the book catalog.
	CatalogAPI CatalogAPI

	// An API for generating and verifying CAPTCHA challenges.
	CaptchaAPI CaptchaAPI

	// The categories advertised by the categories endpoint while the
	// catalog is still empty. These mirror the configured spreadsheet tabs.
	Categories []string

	// A clock instance used for expiring per-session bookkeeping. If not
	// specified, the default wall-clock will be used instead.
	Clock clock.Clock

	// The address to listen for incoming requests.
	ListenAddr string

	// The maximum number of results returned by a single search request.
	// If not specified, a default value of 30 will be used instead.
	ResultsPerPage int

	// The number of searches a session may perform before the CAPTCHA gate
	// kicks in. If not specified, a default value of 3 will be used
	// instead.
	FreeSearches int

	// Per-client request budgets for the rate-limited endpoints. Each
	// defaults to the limits used by the original deployment when left
	// unset.
	SearchRequestsPerMinute   int
	BooksRequestsPerMinute    int
	GenerateRequestsPerMinute int
	VerifyRequestsPerMinute   int

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error
	if cfg.ListenAddr == "" {
		err = multierror.Append(err, xerrors.Errorf("listen address has not been specified"))
	}
	if cfg.CatalogAPI == nil {
		err = multierror.Append(err, xerrors.Errorf("catalog API has not been provided"))
	}
	if cfg.CaptchaAPI == nil {
		err = multierror.Append(err, xerrors.Errorf("captcha API has not been provided"))
	}
	if cfg.ResultsPerPage <= 0 {
		cfg.ResultsPerPage = defaultResultsPerPage
	}
	if cfg.FreeSearches < 0 {
		err = multierror.Append(err, xerrors.Errorf("invalid value for free searches"))
	} else if cfg.FreeSearches == 0 {
		cfg.FreeSearches = defaultFreeSearches
	}
	if cfg.SearchRequestsPerMinute <= 0 {
		cfg.SearchRequestsPerMinute = defaultSearchRequestsPerMinute
	}
	if cfg.BooksRequestsPerMinute <= 0 {
		cfg.BooksRequestsPerMinute = defaultBooksRequestsPerMinute
	}
	if cfg.GenerateRequestsPerMinute <= 0 {
		cfg.GenerateRequestsPerMinute = defaultGenerateRequestsPerMinute
	}
	if cfg.VerifyRequestsPerMinute <= 0 {
		cfg.VerifyRequestsPerMinute = defaultVerifyRequestsPerMinute
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: ioutil.Discard})
	}
	return err
}

// Service implements the JSON front-end for the buscalibros application.
type Service struct {
	cfg    Config
	router *mux.Router

	sanitizer *querySanitizer

	// Free-search bookkeeping per session. Stale entries get swept
	// opportunistically so abandoned sessions do not accumulate.
	searchMu    sync.Mutex
	searchCount map[string]*sessionSearches
	lastSweep   time.Time
}

type sessionSearches struct {
	count    int
	lastSeen time.Time
}

// NewService creates a new front-end service instance with the specified config.
func NewService(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("front-end service: config validation failed: %w", err)
	}

	svc := &Service{
		cfg:         cfg,
		router:      mux.NewRouter(),
		sanitizer:   newQuerySanitizer(),
		searchCount: make(map[string]*sessionSearches),
	}

	svc.router.HandleFunc(searchEndpoint,
		svc.limited(newClientLimiter(cfg.SearchRequestsPerMinute), svc.handleSearch)).Methods("GET")
	svc.router.HandleFunc(booksEndpoint,
		svc.limited(newClientLimiter(cfg.BooksRequestsPerMinute), svc.handleBooks)).Methods("GET")
	svc.router.HandleFunc(categoriesEndpoint, svc.handleCategories).Methods("GET")
	svc.router.HandleFunc(generateCaptchaEndpoint,
		svc.limited(newClientLimiter(cfg.GenerateRequestsPerMinute), svc.handleGenerateCaptcha)).Methods("GET")
	svc.router.HandleFunc(verifyCaptchaEndpoint,
		svc.limited(newClientLimiter(cfg.VerifyRequestsPerMinute), svc.handleVerifyCaptcha)).Methods("GET")
	svc.router.HandleFunc(healthEndpoint, svc.handleHealth).Methods("GET")
	svc.router.Handle(metricsEndpoint, promhttp.Handler()).Methods("GET")
	return svc, nil
}

// Name implements service.Service
func (svc *Service) Name() string { return "front-end" }

// Run implements service.Service
func (svc *Service) Run(ctx context.Context) error {
	l, err := net.Listen("tcp", svc.cfg.ListenAddr)
	if err != nil {
		return err
	}
	defer func() { _ = l.Close() }()

	srv := &http.Server{
		Addr:    svc.cfg.ListenAddr,
		Handler: svc.router,
	}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	svc.cfg.Logger.WithField("addr", svc.cfg.ListenAddr).Info("starting front-end server")
	if err = srv.Serve(l); err == http.ErrServerClosed {
		// Ignore error when the server shuts down.
		err = nil
	}

	return err
}

type bookResult struct {
	Title     string            `json:"title"`
	Author    string            `json:"author,omitempty"`
	Publisher string            `json:"publisher,omitempty"`
	ISBN      string            `json:"isbn,omitempty"`
	Category  string            `json:"category"`
	Fields    map[string]string `json:"fields,omitempty"`
}

type searchResponse struct {
	Books           []bookResult `json:"books"`
	Total           uint64       `json:"total"`
	Error           string       `json:"error,omitempty"`
	CaptchaRequired bool         `json:"captcha_required,omitempty"`
}

func (svc *Service) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	category := r.URL.Query().Get("category")
	captchaCode := r.URL.Query().Get("captcha")

	if query == "" {
		writeJSON(w, http.StatusOK, searchResponse{Books: []bookResult{}, Error: msgNoQuery})
		return
	}

	cleanQuery, err := svc.sanitizer.sanitize(query)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, searchResponse{Books: []bookResult{}, Error: err.Error()})
		return
	}

	sessionKey := svc.sessionKey(w, r)
	if !svc.captchaGate(sessionKey, captchaCode, w) {
		return
	}

	searchesTotal.Inc()
	it, err := svc.cfg.CatalogAPI.Search(catalog.Query{Expression: cleanQuery, Category: category})
	if err != nil {
		svc.cfg.Logger.WithField("err", err).Errorf("search query execution failed")
		writeJSON(w, http.StatusInternalServerError, searchResponse{Books: []bookResult{}, Error: msgInternalError})
		return
	}
	defer func() { _ = it.Close() }()

	books := make([]bookResult, 0, svc.cfg.ResultsPerPage)
	for len(books) < svc.cfg.ResultsPerPage && it.Next() {
		books = append(books, makeBookResult(it.Book()))
	}
	if err = it.Error(); err != nil {
		svc.cfg.Logger.WithField("err", err).Errorf("search result iteration failed")
		writeJSON(w, http.StatusInternalServerError, searchResponse{Books: []bookResult{}, Error: msgInternalError})
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{Books: books, Total: it.TotalCount()})
}

// captchaGate enforces the CAPTCHA requirement for the specified session. It
// returns true if the request may proceed; otherwise it writes the
// appropriate challenge-required response and returns false.
func (svc *Service) captchaGate(sessionKey, captchaCode string, w http.ResponseWriter) bool {
	if svc.cfg.CaptchaAPI.IsVerified(sessionKey) {
		return true
	}

	// A session gets a small budget of searches before the gate kicks in.
	if svc.takeFreeSearch(sessionKey) {
		return true
	}

	if captchaCode == "" {
		writeJSON(w, http.StatusOK, searchResponse{
			Books:           []bookResult{},
			Error:           msgCaptchaRequired,
			CaptchaRequired: true,
		})
		return false
	}

	res := svc.cfg.CaptchaAPI.Verify(sessionKey, captchaCode)
	captchaVerificationsTotal.WithLabelValues(statusLabel(res.Status)).Inc()
	if !res.Success() {
		writeJSON(w, http.StatusOK, searchResponse{
			Books:           []bookResult{},
			Error:           res.Message,
			CaptchaRequired: true,
		})
		return false
	}

	svc.resetFreeSearches(sessionKey)
	return true
}

type booksResponse struct {
	Books []bookResult `json:"books"`
	Error string       `json:"error,omitempty"`
}

func (svc *Service) handleBooks(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")

	books, err := svc.cfg.CatalogAPI.All(category)
	if err != nil {
		svc.cfg.Logger.WithField("err", err).Errorf("book listing failed")
		writeJSON(w, http.StatusInternalServerError, booksResponse{Books: []bookResult{}, Error: msgInternalError})
		return
	}

	out := make([]bookResult, 0, len(books))
	for _, book := range books {
		out = append(out, makeBookResult(book))
	}
	writeJSON(w, http.StatusOK, booksResponse{Books: out})
}

func (svc *Service) handleCategories(w http.ResponseWriter, _ *http.Request) {
	categories := svc.cfg.CatalogAPI.Categories()
	if len(categories) == 0 {
		// The catalog stays empty until the first refresh completes; serve
		// the configured tab list in the meantime.
		categories = svc.cfg.Categories
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
	})
}

type captchaResponse struct {
	Success           bool             `json:"success"`
	Captcha           *renderedCaptcha `json:"captcha,omitempty"`
	Message           string           `json:"message,omitempty"`
	Error             string           `json:"error,omitempty"`
	RemainingAttempts *int             `json:"remaining_attempts,omitempty"`
}

type renderedCaptcha struct {
	Image     string    `json:"image"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (svc *Service) handleGenerateCaptcha(w http.ResponseWriter, r *http.Request) {
	sessionKey := svc.sessionKey(w, r)

	rc, err := svc.cfg.CaptchaAPI.Generate(sessionKey)
	if err != nil {
		svc.cfg.Logger.WithField("err", err).Errorf("captcha generation failed")
		writeJSON(w, http.StatusInternalServerError, captchaResponse{Error: msgInternalError})
		return
	}

	captchaGeneratedTotal.Inc()
	writeJSON(w, http.StatusOK, captchaResponse{
		Success: true,
		Captcha: &renderedCaptcha{
			Image:     rc.ImageDataURI,
			ExpiresAt: rc.ExpiresAt,
		},
	})
}

func (svc *Service) handleVerifyCaptcha(w http.ResponseWriter, r *http.Request) {
	sessionKey, found := svc.existingSessionKey(r)
	if !found {
		writeJSON(w, http.StatusOK, captchaResponse{Error: msgNoSession})
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeJSON(w, http.StatusOK, captchaResponse{Error: msgCodeRequired})
		return
	}

	res := svc.cfg.CaptchaAPI.Verify(sessionKey, code)
	captchaVerificationsTotal.WithLabelValues(statusLabel(res.Status)).Inc()
	if !res.Success() {
		out := captchaResponse{Error: res.Message}
		if res.Status == captcha.StatusIncorrect {
			remaining := res.RemainingAttempts
			out.RemainingAttempts = &remaining
		}
		writeJSON(w, http.StatusOK, out)
		return
	}

	svc.resetFreeSearches(sessionKey)
	writeJSON(w, http.StatusOK, captchaResponse{Success: true, Message: res.Message})
}

func (svc *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// sessionKey returns the session identifier from the request cookie, minting
// a fresh one (and setting the cookie) when the client has none yet.
func (svc *Service) sessionKey(w http.ResponseWriter, r *http.Request) string {
	if key, found := svc.existingSessionKey(r); found {
		return key
	}

	key := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    key,
		Path:     "/",
		MaxAge:   int(sessionCookieTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return key
}

func (svc *Service) existingSessionKey(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// takeFreeSearch consumes one of the session's free searches and reports
// whether one was still available.
func (svc *Service) takeFreeSearch(sessionKey string) bool {
	now := svc.cfg.Clock.Now()

	svc.searchMu.Lock()
	defer svc.searchMu.Unlock()
	svc.sweepStaleSessionsLocked(now)

	entry := svc.searchCount[sessionKey]
	if entry == nil {
		entry = new(sessionSearches)
		svc.searchCount[sessionKey] = entry
	}
	entry.lastSeen = now
	if entry.count >= svc.cfg.FreeSearches {
		return false
	}
	entry.count++
	return true
}

// sweepStaleSessionsLocked drops counters for sessions that have been idle
// longer than the session cookie lifetime; their cookie has lapsed so the
// counter can never be consulted again. Runs at most once per cookie
// lifetime. The caller must hold searchMu.
func (svc *Service) sweepStaleSessionsLocked(now time.Time) {
	if now.Sub(svc.lastSweep) < sessionCookieTTL {
		return
	}
	for key, entry := range svc.searchCount {
		if now.Sub(entry.lastSeen) >= sessionCookieTTL {
			delete(svc.searchCount, key)
		}
	}
	svc.lastSweep = now
}

// resetFreeSearches restores the session's free-search budget; invoked after
// a successful CAPTCHA verification.
func (svc *Service) resetFreeSearches(sessionKey string) {
	svc.searchMu.Lock()
	delete(svc.searchCount, sessionKey)
	svc.searchMu.Unlock()
}

func makeBookResult(book *catalog.Book) bookResult {
	return bookResult{
		Title:     book.Title,
		Author:    book.Author,
		Publisher: book.Publisher,
		ISBN:      book.ISBN,
		Category:  book.Category,
		Fields:    book.Fields,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func statusLabel(status captcha.Status) string {
	switch status {
	case captcha.StatusSuccess:
		return "success"
	case captcha.StatusNotFound:
		return "not_found"
	case captcha.StatusExpired:
		return "expired"
	case captcha.StatusAttemptsExhausted:
		return "attempts_exhausted"
	case captcha.StatusIncorrect:
		return "incorrect"
	default:
		return "unknown"
	}
}
