package view

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"

	"github.com/yegors/skytrack/internal/metrics"
	"github.com/yegors/skytrack/internal/model"
	"github.com/yegors/skytrack/internal/websocket"
	"github.com/yegors/skytrack/pkg/logger"
)

type boundsPayload struct {
	LatitudeMin  *float64 `json:"latitudeMin" validate:"required,gte=-90,lte=90"`
	LatitudeMax  *float64 `json:"latitudeMax" validate:"required,gte=-90,lte=90"`
	LongitudeMin *float64 `json:"longitudeMin" validate:"required,gte=-180,lte=180"`
	LongitudeMax *float64 `json:"longitudeMax" validate:"required,gte=-180,lte=180"`
}

type viewUpdatePayload struct {
	Center LatLon         `json:"center"`
	Zoom   float64        `json:"zoom" validate:"gte=0,lte=24"`
	Bounds *boundsPayload `json:"bounds" validate:"required"`
}

type selectPayload struct {
	Kind Kind   `json:"kind" validate:"required,oneof=flight airport"`
	ID   string `json:"id" validate:"required,alphanum"`
}

// Manager maps WebSocket connections to view sessions
type Manager struct {
	tracker  Tracker
	cfg      Config
	clock    clockwork.Clock
	logger   *logger.Logger
	validate *validator.Validate

	mu       sync.Mutex
	sessions map[*websocket.Client]*Session
}

// NewManager creates a manager. A nil clock means the real clock.
func NewManager(tracker Tracker, cfg Config, clock clockwork.Clock, loggerObj *logger.Logger) *Manager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Manager{
		tracker:  tracker,
		cfg:      cfg,
		clock:    clock,
		logger:   loggerObj.Named("views"),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		sessions: make(map[*websocket.Client]*Session),
	}
}

// Connect starts a session for a new client
func (m *Manager) Connect(client *websocket.Client) {
	s := NewSession(client, m.tracker, m.cfg, m.clock, m.logger.With(logger.String("client", client.ID())))

	m.mu.Lock()
	m.sessions[client] = s
	m.mu.Unlock()

	metrics.ViewConnected()
}

// Disconnect tears down the client's session
func (m *Manager) Disconnect(client *websocket.Client) {
	m.mu.Lock()
	s, ok := m.sessions[client]
	delete(m.sessions, client)
	m.mu.Unlock()

	if !ok {
		return
	}
	s.Close()
	metrics.ViewDisconnected()
}

// SessionCount returns the number of live sessions
func (m *Manager) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// HandleMessage dispatches one client message to its session
func (m *Manager) HandleMessage(client *websocket.Client, messageType string, data json.RawMessage) error {
	m.mu.Lock()
	s, ok := m.sessions[client]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("no session for client %s", client.ID())
	}
	return m.dispatch(s, messageType, data)
}

func (m *Manager) dispatch(s *Session, messageType string, data json.RawMessage) error {
	switch messageType {
	case websocket.MessageTypeViewUpdate:
		var p viewUpdatePayload
		if err := m.decode(data, &p); err != nil {
			return err
		}
		s.UpdateViewport(p.Center, p.Zoom, model.Bounds{
			LatitudeMin:  *p.Bounds.LatitudeMin,
			LatitudeMax:  *p.Bounds.LatitudeMax,
			LongitudeMin: *p.Bounds.LongitudeMin,
			LongitudeMax: *p.Bounds.LongitudeMax,
		})
		return nil

	case websocket.MessageTypeSelect:
		var p selectPayload
		if err := m.decode(data, &p); err != nil {
			return err
		}
		s.OnSelect(Selection(p))
		return nil

	case websocket.MessageTypeClearSelection:
		s.ClearSelection()
		return nil

	default:
		return fmt.Errorf("unknown message type: %s", messageType)
	}
}

func (m *Manager) decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("missing message data")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid message data: %w", err)
	}
	if err := m.validate.Struct(v); err != nil {
		return fmt.Errorf("invalid message data: %w", err)
	}
	return nil
}
