package session

import (
	"sync"
	"time"

	"brewbot/backend/internal/catalog"
	"brewbot/backend/pkg/logger"

	"go.uber.org/zap"
)

// PanelRef identifies the live control-panel message
type PanelRef struct {
	ChannelID string
	MessageID string
}

// VoiceHandle is the session's view of a live voice connection
type VoiceHandle interface {
	Disconnect() error
}

// Snapshot is a read-only copy of the shared selections, used by the
// status API
type Snapshot struct {
	Persona  string   `json:"persona"`
	Voice    string   `json:"voice"`
	Language string   `json:"language"`
	Guilds   []string `json:"connected_guilds"`
	HasPanel bool     `json:"has_control_panel"`
}

// Manager holds the mutable shared session: selected persona, voice and
// language, the control-panel message reference, and per-guild voice
// connections with their inactivity timers.
//
// Selections are process-wide and read-and-replace (last writer wins);
// concurrent turns read whatever is selected at the moment they look.
type Manager struct {
	mu sync.Mutex

	cats        *catalog.Catalogs
	idleTimeout time.Duration

	persona  string
	voice    string
	language string

	panel *PanelRef

	conns      map[string]VoiceHandle
	idleTimers map[string]*time.Timer

	// onCleanup is invoked with the stale panel reference during
	// disconnect, best-effort
	onCleanup func(PanelRef)

	logger *zap.Logger
}

// NewManager creates a session manager seeded with the catalog defaults
func NewManager(cats *catalog.Catalogs, idleTimeout time.Duration) *Manager {
	if idleTimeout <= 0 {
		idleTimeout = 5 * time.Minute
	}
	return &Manager{
		cats:        cats,
		idleTimeout: idleTimeout,
		persona:     cats.DefaultPersona,
		voice:       cats.DefaultVoice,
		language:    cats.DefaultLanguage,
		conns:       make(map[string]VoiceHandle),
		idleTimers:  make(map[string]*time.Timer),
		logger:      logger.Get(),
	}
}

// SetCleanupHook registers the control-panel cleanup callback invoked
// on disconnect
func (m *Manager) SetCleanupHook(hook func(PanelRef)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCleanup = hook
}

// Persona returns the selected persona key
func (m *Manager) Persona() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.persona
}

// SetPersona selects a persona. Values outside the catalog are rejected
// and logged, never applied.
func (m *Manager) SetPersona(key string) bool {
	if _, ok := m.cats.PersonaByKey(key); !ok {
		m.logger.Warn("Rejected invalid persona selection", zap.String("persona", key))
		return false
	}
	m.mu.Lock()
	m.persona = key
	m.mu.Unlock()
	m.logger.Info("Selected persona updated", zap.String("persona", key))
	return true
}

// Voice returns the selected voice id
func (m *Manager) Voice() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.voice
}

// SetVoice selects a voice; invalid values are rejected and logged
func (m *Manager) SetVoice(id string) bool {
	if _, ok := m.cats.VoiceByID(id); !ok {
		m.logger.Warn("Rejected invalid voice selection", zap.String("voice", id))
		return false
	}
	m.mu.Lock()
	m.voice = id
	m.mu.Unlock()
	m.logger.Info("Selected voice updated", zap.String("voice", id))
	return true
}

// Language returns the selected language code
func (m *Manager) Language() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.language
}

// SetLanguage selects a language; invalid values are rejected and logged
func (m *Manager) SetLanguage(code string) bool {
	if _, ok := m.cats.LanguageByCode(code); !ok {
		m.logger.Warn("Rejected invalid language selection", zap.String("language", code))
		return false
	}
	m.mu.Lock()
	m.language = code
	m.mu.Unlock()
	m.logger.Info("Selected language updated", zap.String("language", code))
	return true
}

// PersonaAssistantID resolves the selected persona to its backend
// assistant id
func (m *Manager) PersonaAssistantID() (string, string) {
	m.mu.Lock()
	key := m.persona
	m.mu.Unlock()
	p, _ := m.cats.PersonaByKey(key)
	return key, p.AssistantID
}

// Panel returns the current control-panel reference, if any
func (m *Manager) Panel() (PanelRef, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.panel == nil {
		return PanelRef{}, false
	}
	return *m.panel, true
}

// SetPanel records the control-panel message reference
func (m *Manager) SetPanel(ref PanelRef) {
	m.mu.Lock()
	m.panel = &ref
	m.mu.Unlock()
	m.logger.Info("Control panel reference updated",
		zap.String("channel_id", ref.ChannelID),
		zap.String("message_id", ref.MessageID),
	)
}

// ClearPanel drops the control-panel reference
func (m *Manager) ClearPanel() {
	m.mu.Lock()
	m.panel = nil
	m.mu.Unlock()
}

// ResetToDefaults restores persona, voice and language to the catalog
// defaults
func (m *Manager) ResetToDefaults() {
	m.mu.Lock()
	m.persona = m.cats.DefaultPersona
	m.voice = m.cats.DefaultVoice
	m.language = m.cats.DefaultLanguage
	m.mu.Unlock()
	m.logger.Info("Session selections reset to defaults")
}

// JoinVoice returns the guild's voice connection, dialing a new one
// only when none exists. Reusing the live connection avoids the
// re-join race of tearing down a connection mid-playback.
func (m *Manager) JoinVoice(guildID string, dial func() (VoiceHandle, error)) (VoiceHandle, error) {
	m.mu.Lock()
	if conn, ok := m.conns[guildID]; ok {
		m.mu.Unlock()
		m.logger.Debug("Reusing existing voice connection", zap.String("guild_id", guildID))
		return conn, nil
	}
	m.mu.Unlock()

	conn, err := dial()
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.conns[guildID] = conn
	m.mu.Unlock()
	m.logger.Info("Joined voice channel", zap.String("guild_id", guildID))
	return conn, nil
}

// Connection returns the guild's live voice connection, if any
func (m *Manager) Connection(guildID string) (VoiceHandle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conn, ok := m.conns[guildID]
	return conn, ok
}

// Disconnect tears down the guild's voice connection, cancels its
// inactivity timer, resets the shared selections to defaults and cleans
// up the control panel. Idempotent: with no active connection it still
// attempts stale-panel cleanup.
func (m *Manager) Disconnect(guildID string) {
	m.mu.Lock()
	conn, hadConn := m.conns[guildID]
	delete(m.conns, guildID)
	if timer, ok := m.idleTimers[guildID]; ok {
		timer.Stop()
		delete(m.idleTimers, guildID)
	}
	panel := m.panel
	m.panel = nil
	cleanup := m.onCleanup
	m.mu.Unlock()

	if hadConn {
		if err := conn.Disconnect(); err != nil {
			m.logger.Warn("Voice disconnect failed",
				zap.String("guild_id", guildID),
				zap.Error(err),
			)
		}
	} else {
		m.logger.Debug("Disconnect requested with no active connection", zap.String("guild_id", guildID))
	}

	if panel != nil && cleanup != nil {
		cleanup(*panel)
	}

	m.ResetToDefaults()
}

// ResetIdleTimer reschedules the guild's inactivity disconnect. Called
// on every playback-idle event; the disconnect fires only after a full
// quiet period with no further resets.
func (m *Manager) ResetIdleTimer(guildID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if timer, ok := m.idleTimers[guildID]; ok {
		timer.Stop()
	}
	m.idleTimers[guildID] = time.AfterFunc(m.idleTimeout, func() {
		m.logger.Info("Inactivity timeout reached, disconnecting", zap.String("guild_id", guildID))
		m.Disconnect(guildID)
	})
	m.logger.Debug("Inactivity timer reset", zap.String("guild_id", guildID))
}

// Snapshot returns a copy of the current shared state
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	guilds := make([]string, 0, len(m.conns))
	for id := range m.conns {
		guilds = append(guilds, id)
	}
	return Snapshot{
		Persona:  m.persona,
		Voice:    m.voice,
		Language: m.language,
		Guilds:   guilds,
		HasPanel: m.panel != nil,
	}
}
