// Package mirotest provides an in-process fake of the Miro REST API for tests.
package mirotest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/ogulcanaydogan/miro-guardian/pkg/model"
)

// Resource names accepted by the failure injection helpers.
const (
	Boards  = "boards"
	Members = "members"
)

const defaultBoardLimit = 50

type fault struct {
	status    int
	body      string
	malformed bool
}

// Server serves boards with link-style pagination and organization members
// with cursor-style pagination.
type Server struct {
	tb    testing.TB
	srv   *httptest.Server
	mux   *http.ServeMux
	token string

	mu             sync.Mutex
	boards         []model.Record
	members        map[string][]model.Record
	memberPageSize int
	faults         map[string]map[int]fault
	cycleAt        map[string]int
	requests       map[string]int
	lastQuery      map[string]string
}

// NewServer starts a fake API that accepts token as its bearer credential.
// The server is closed when the test ends.
func NewServer(t testing.TB, token string) *Server {
	t.Helper()
	s := &Server{
		tb:             t,
		mux:            http.NewServeMux(),
		token:          token,
		members:        make(map[string][]model.Record),
		memberPageSize: 100,
		faults:         make(map[string]map[int]fault),
		cycleAt:        make(map[string]int),
		requests:       make(map[string]int),
		lastQuery:      make(map[string]string),
	}
	s.routes()
	s.srv = httptest.NewServer(s.mux)
	t.Cleanup(s.srv.Close)
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /v2/boards", s.handleBoards)
	s.mux.HandleFunc("GET /v2/orgs/{org}/members", s.handleMembers)
}

// URL returns the base URL of the fake API.
func (s *Server) URL() string {
	return s.srv.URL
}

// SetBoards replaces the board collection.
func (s *Server) SetBoards(boards []model.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boards = boards
}

// SetMembers replaces the member collection of an organization.
func (s *Server) SetMembers(orgID string, members []model.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[orgID] = members
}

// SetMemberPageSize sets how many members are returned per page when the
// request carries no limit. Sizes below 1 fail the test and are ignored.
func (s *Server) SetMemberPageSize(n int) {
	if n < 1 {
		s.tb.Helper()
		s.tb.Errorf("mirotest: member page size must be at least 1, got %d", n)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberPageSize = n
}

// FailPage makes the given 1-based page of a resource answer with status and body.
func (s *Server) FailPage(resource string, page, status int, body string) {
	s.setFault(resource, page, fault{status: status, body: body})
}

// MalformPage makes the given 1-based page of a resource answer with a body
// that is not JSON.
func (s *Server) MalformPage(resource string, page int) {
	s.setFault(resource, page, fault{malformed: true})
}

// CycleAt makes the given 1-based page point back to the token that led to
// the previous page, so that a client following tokens would loop forever.
func (s *Server) CycleAt(resource string, page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycleAt[resource] = page
}

// Requests returns how many requests a resource has served.
func (s *Server) Requests(resource string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[resource]
}

// LastQuery returns the raw query string of the latest request for a resource.
func (s *Server) LastQuery(resource string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastQuery[resource]
}

func (s *Server) setFault(resource string, page int, f fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.faults[resource] == nil {
		s.faults[resource] = make(map[int]fault)
	}
	s.faults[resource][page] = f
}

func (s *Server) handleBoards(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}
	limit := intParam(r, "limit", defaultBoardLimit)
	offset := intParam(r, "offset", 0)

	s.mu.Lock()
	s.requests[Boards]++
	s.lastQuery[Boards] = r.URL.RawQuery
	all := s.boards
	page := offset/limit + 1
	f, faulty := s.faults[Boards][page]
	cycle := s.cycleAt[Boards]
	s.mu.Unlock()

	if faulty {
		writeFault(w, f)
		return
	}

	end := min(offset+limit, len(all))
	start := min(offset, end)
	resp := map[string]any{
		"data":   all[start:end],
		"limit":  limit,
		"offset": offset,
		"size":   end - start,
		"total":  len(all),
	}
	links := map[string]string{
		"self": fmt.Sprintf("%s/v2/boards?limit=%d&offset=%d", s.srv.URL, limit, offset),
	}
	if end < len(all) {
		next := end
		if cycle == page && page > 1 {
			next = offset - limit
		}
		links["next"] = fmt.Sprintf("%s/v2/boards?limit=%d&offset=%d", s.srv.URL, limit, next)
	}
	resp["links"] = links

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}
	org := r.PathValue("org")

	s.mu.Lock()
	s.requests[Members]++
	s.lastQuery[Members] = r.URL.RawQuery
	all, known := s.members[org]
	limit := intParam(r, "limit", s.memberPageSize)
	s.mu.Unlock()

	if !known {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"status":  http.StatusNotFound,
			"code":    "organizationNotFound",
			"message": "Organization not found",
		})
		return
	}

	offset := 0
	if c := r.URL.Query().Get("cursor"); c != "" {
		n, err := decodeCursor(c)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid cursor"})
			return
		}
		offset = n
	}
	page := offset/limit + 1

	s.mu.Lock()
	f, faulty := s.faults[Members][page]
	cycle := s.cycleAt[Members]
	s.mu.Unlock()

	if faulty {
		writeFault(w, f)
		return
	}

	end := min(offset+limit, len(all))
	start := min(offset, end)
	resp := map[string]any{
		"data":  all[start:end],
		"limit": limit,
		"size":  end - start,
		"total": len(all),
		"type":  "cursor-list",
	}
	if end < len(all) {
		next := end
		if cycle == page && page > 1 {
			next = offset
		}
		resp["cursor"] = encodeCursor(next)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) authorize(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") != "Bearer "+s.token {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"status":  http.StatusUnauthorized,
			"code":    "tokenNotProvided",
			"message": "Authorization token is invalid",
		})
		return false
	}
	return true
}

func encodeCursor(offset int) string {
	return "cur-" + strconv.Itoa(offset)
}

func decodeCursor(c string) (int, error) {
	if len(c) < 5 || c[:4] != "cur-" {
		return 0, fmt.Errorf("bad cursor %q", c)
	}
	return strconv.Atoi(c[4:])
}

func intParam(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	if name == "limit" && n == 0 {
		return def
	}
	return n
}

func writeFault(w http.ResponseWriter, f fault) {
	if f.malformed {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "<html><body>gateway</body></html>")
		return
	}
	w.WriteHeader(f.status)
	fmt.Fprint(w, f.body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
