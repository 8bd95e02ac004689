// Package paneltest provides an in-memory fake of the 3x-ui panel API
// for exercising panel-facing code against a real HTTP round trip.
package paneltest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"vpn-rent-bot/internal/models"
)

const sessionCookie = "3x-ui-session"

// Panel is a fake panel backed by an httptest server
type Panel struct {
	srv *httptest.Server

	mu         sync.Mutex
	inbounds   map[int]*models.Inbound
	nextID     int
	sessions   map[string]bool
	loginCount int
	addCount   int
	// FailLogins makes /login reject every attempt
	FailLogins bool
}

// New starts a fake panel. Callers must Close it.
func New() *Panel {
	p := &Panel{
		inbounds: make(map[int]*models.Inbound),
		nextID:   1,
		sessions: make(map[string]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/login", p.handleLogin)
	mux.HandleFunc("/panel/api/inbounds/list", p.handleList)
	mux.HandleFunc("/panel/api/inbounds/get/", p.handleGet)
	mux.HandleFunc("/panel/api/inbounds/add", p.handleAdd)
	mux.HandleFunc("/panel/api/inbounds/update/", p.handleUpdate)

	p.srv = httptest.NewServer(mux)
	return p
}

// URL returns the base URL of the fake panel
func (p *Panel) URL() string {
	return p.srv.URL
}

// Close shuts the fake panel down
func (p *Panel) Close() {
	p.srv.Close()
}

// LoginCount reports how many login attempts were made
func (p *Panel) LoginCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loginCount
}

// AddCount reports how many inbounds were created
func (p *Panel) AddCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addCount
}

// ExpireSessions invalidates every issued session so the next
// authenticated call gets a 401.
func (p *Panel) ExpireSessions() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions = make(map[string]bool)
}

// Clients returns the decoded client list of an inbound
func (p *Panel) Clients(inboundID int) []models.Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	inbound, ok := p.inbounds[inboundID]
	if !ok {
		return nil
	}
	var settings models.InboundSettings
	json.Unmarshal([]byte(inbound.Settings), &settings)
	return settings.Clients
}

// Seed adds an inbound directly, bypassing the API
func (p *Panel) Seed(inbound models.Inbound) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	inbound.ID = p.nextID
	p.nextID++
	ib := inbound
	p.inbounds[ib.ID] = &ib
	return ib.ID
}

func (p *Panel) handleLogin(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loginCount++

	if p.FailLogins {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	token := fmt.Sprintf("sess-%d", p.loginCount)
	p.sessions[token] = true
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: token, Path: "/"})
	writeEnvelope(w, true, "", nil)
}

func (p *Panel) authorized(r *http.Request) bool {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return false
	}
	return p.sessions[cookie.Value]
}

func (p *Panel) handleList(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	list := make([]models.Inbound, 0, len(p.inbounds))
	for _, inbound := range p.inbounds {
		list = append(list, *inbound)
	}
	writeEnvelope(w, true, "", list)
}

func (p *Panel) handleGet(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	id, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/panel/api/inbounds/get/"))
	if err != nil {
		writeEnvelope(w, false, "bad id", nil)
		return
	}

	inbound, ok := p.inbounds[id]
	if !ok {
		writeEnvelope(w, false, "inbound not found", nil)
		return
	}
	writeEnvelope(w, true, "", inbound)
}

func (p *Panel) handleAdd(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	r.ParseForm()
	inbound := p.inboundFromForm(r)
	inbound.ID = p.nextID
	p.nextID++
	p.inbounds[inbound.ID] = inbound
	p.addCount++

	writeEnvelope(w, true, "", map[string]int{"id": inbound.ID})
}

func (p *Panel) handleUpdate(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	id, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/panel/api/inbounds/update/"))
	if err != nil {
		writeEnvelope(w, false, "bad id", nil)
		return
	}
	if _, ok := p.inbounds[id]; !ok {
		writeEnvelope(w, false, "inbound not found", nil)
		return
	}

	r.ParseForm()
	inbound := p.inboundFromForm(r)
	inbound.ID = id
	p.inbounds[id] = inbound

	writeEnvelope(w, true, "", nil)
}

func (p *Panel) inboundFromForm(r *http.Request) *models.Inbound {
	port, _ := strconv.Atoi(r.FormValue("port"))
	return &models.Inbound{
		Remark:         r.FormValue("remark"),
		Enable:         r.FormValue("enable") == "true",
		Listen:         r.FormValue("listen"),
		Port:           port,
		Protocol:       r.FormValue("protocol"),
		Settings:       r.FormValue("settings"),
		StreamSettings: r.FormValue("streamSettings"),
		Sniffing:       r.FormValue("sniffing"),
	}
}

func writeEnvelope(w http.ResponseWriter, success bool, msg string, obj interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": success,
		"msg":     msg,
		"obj":     obj,
	})
}
