// Package fixturesite serves a stand-in for the insurance quote page so the
// harness can be exercised without the real application.
//
// The page carries the same element ids and HTML5 constraints as the real form.
// Quotes come from a fixed table of known answers; the site has no rating logic
// and answers "Quote unavailable" for anything it does not know.
package fixturesite

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kuitang/quoteform-e2e/internal/obs"
	"github.com/kuitang/quoteform-e2e/internal/quotepage"
)

//go:embed static/getQuote.html
var quotePageHTML []byte

// Unavailable is the answer for inputs the table does not cover.
const Unavailable = "Quote unavailable"

// QuotePath is the endpoint the page posts rating inputs to.
var QuotePath = strings.TrimSuffix(quotepage.DefaultPath, "getQuote.html") + "quote"

// RatingKey identifies one combination of rating inputs.
type RatingKey struct {
	Age        string
	Experience string
	Accidents  string
}

func (k RatingKey) normalized() RatingKey {
	return RatingKey{strings.TrimSpace(k.Age), strings.TrimSpace(k.Experience), strings.TrimSpace(k.Accidents)}
}

// KnownQuotes returns the answers the quote page is known to give.
func KnownQuotes() map[RatingKey]string {
	return map[RatingKey]string{
		{"24", "3", "0"}:  "$5500",
		{"25", "3", "4"}:  "No Insurance for you!!  Too many accidents - go take a course!",
		{"35", "9", "2"}:  "$3905",
		{"16", "0", "0"}:  "$7000",
		{"30", "2", "1"}:  "$3905",
		{"45", "29", "1"}: "$2840",
		{"40", "10", "2"}: "$2840",
		{"20", "5", "0"}:  "No Insurance for you!! Driver Age / Experience Not Correct",
	}
}

// Site is the fixture HTTP application.
type Site struct {
	quotes map[RatingKey]string
}

// New returns a site answering from quotes; nil uses KnownQuotes.
func New(quotes map[RatingKey]string) *Site {
	if quotes == nil {
		quotes = KnownQuotes()
	}
	normalized := make(map[RatingKey]string, len(quotes))
	for k, v := range quotes {
		normalized[k.normalized()] = v
	}
	return &Site{quotes: normalized}
}

// Lookup returns the known answer for key, or Unavailable.
func (s *Site) Lookup(key RatingKey) string {
	if q, ok := s.quotes[key.normalized()]; ok {
		return q
	}
	return Unavailable
}

// RegisterRoutes registers the site's routes on mux.
func (s *Site) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET "+quotepage.DefaultPath, s.handlePage)
	mux.HandleFunc("POST "+QuotePath, s.handleQuote)
	mux.HandleFunc("GET /health", s.handleHealth)
}

// Handler returns the site with request-id and access-log middleware applied.
func (s *Site) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return obs.RequestContextMiddleware(obs.AccessLogMiddleware("fixturesite", mux))
}

func (s *Site) handlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(quotePageHTML)
}

type quoteRequest struct {
	Age        string `json:"age"`
	Experience string `json:"experience"`
	Accidents  string `json:"accidents"`
}

type quoteResponse struct {
	Quote string `json:"quote"`
}

func (s *Site) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	quote := s.Lookup(RatingKey{Age: req.Age, Experience: req.Experience, Accidents: req.Accidents})
	obs.From(r.Context()).Debug("fixture_quote",
		"pkg", "fixturesite",
		"age", req.Age,
		"experience", req.Experience,
		"accidents", req.Accidents,
		"known", quote != Unavailable,
	)
	writeJSON(w, http.StatusOK, quoteResponse{Quote: quote})
}

func (s *Site) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Server is a running fixture site.
type Server struct {
	// BaseURL is the scheme and host, e.g. http://127.0.0.1:41234.
	BaseURL string
	srv     *http.Server
	done    chan error
}

// Start serves s on addr ("127.0.0.1:0" picks a free port) until Close.
func Start(s *Site, addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("fixturesite: listen on %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	server := &Server{
		BaseURL: "http://" + ln.Addr().String(),
		srv:     srv,
		done:    make(chan error, 1),
	}
	go func() {
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		server.done <- err
	}()
	obs.Pkg("fixturesite").Info("fixture_site_started", "url", server.PageURL())
	return server, nil
}

// PageURL is the address of the quote page.
func (s *Server) PageURL() string {
	return s.BaseURL + quotepage.DefaultPath
}

// Close shuts the server down, waiting up to five seconds for open requests.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("fixturesite: shutdown: %w", err)
	}
	return <-s.done
}
