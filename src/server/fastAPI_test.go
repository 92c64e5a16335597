package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"p2p-observer/src/logger"
	"p2p-observer/src/models"
)

// -----------------------------------------------------------------------------

type stubControl struct{}

func (stubControl) Snapshot() *models.MLatestData { return &models.MLatestData{Type: "UPDATE"} }

func (stubControl) SetParams(models.MQuoteParams) error          { return nil }
func (stubControl) OpenFilter(context.Context, string) error     { return nil }
func (stubControl) ToggleFilter(string, string) (int, error)     { return 0, nil }
func (stubControl) SearchFilter(string, string) error            { return nil }
func (stubControl) ConfirmFilter(string) error                   { return nil }
func (stubControl) ResetFilter(string) error                     { return nil }
func (stubControl) CloseFilter(string) error                     { return nil }
func (stubControl) ApplyPair(string, string, string) error       { return nil }
func (stubControl) SwapPair(string) error                        { return nil }
func (stubControl) ReferenceCodes(context.Context) ([]string, error) {
	return nil, nil
}
func (stubControl) VisibleMethods(string) ([]models.MCatalogItem, error) {
	return nil, nil
}
func (stubControl) History(string, string, int) ([]models.MSpreadSample, error) {
	return nil, nil
}

// -----------------------------------------------------------------------------

func healthConnections(t *testing.T, s *FastAPIServer) int {
	t.Helper()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/health", nil)
	s.engine.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("GET /api/health = %d, want 200", w.Code)
	}

	var body struct {
		Connections int `json:"connections"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	return body.Connections
}

// -----------------------------------------------------------------------------

// Health reads the connection count while the hub goroutine owns the
// client set; the count must track registrations without touching the
// map from the handler.
func TestHealthReportsClientCount(t *testing.T) {
	s := NewFastAPIServer(&models.MConfig{}, logger.NewLogger("ServerTest"))
	s.AttachControl(stubControl{})
	go s.handleWebsockets()

	if got := healthConnections(t, s); got != 0 {
		t.Errorf("connections = %d, want 0 before any client", got)
	}

	// Receiving the initial state proves the hub finished the register
	// step, count update included.
	c1 := &Client{hub: s, send: make(chan *models.MLatestData, 1)}
	s.register <- c1
	<-c1.send
	if got := healthConnections(t, s); got != 1 {
		t.Errorf("connections = %d, want 1 after register", got)
	}

	// The hub is sequential: once the second client's initial state
	// arrives, the unregister before it has fully completed.
	s.unregister <- c1
	c2 := &Client{hub: s, send: make(chan *models.MLatestData, 1)}
	s.register <- c2
	<-c2.send
	if got := healthConnections(t, s); got != 1 {
		t.Errorf("connections = %d, want 1 after one unregister and one register", got)
	}
}
