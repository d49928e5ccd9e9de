package call

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vaani/client/internal/events"
	"github.com/vaani/client/internal/model"
)

const (
	DefaultRingTimeout  = 30 * time.Second
	DefaultTickInterval = time.Second
	DefaultHistorySize  = 50
)

// Signaler carries local call signals to the remote party. Methods are
// invoked after the controller has released its lock.
type Signaler interface {
	OnLocalOffer(s model.CallSession)
	OnLocalAnswer(s model.CallSession)
	OnLocalHangup(s model.CallSession, reason model.EndReason)
}

// Contacts resolves call peers
type Contacts interface {
	GetContact(id string) (model.Contact, error)
}

// Config tunes the controller timers
type Config struct {
	// SelfID is the caller/callee id of the local user
	SelfID string
	// RingTimeout ends an unanswered call; zero disables it
	RingTimeout time.Duration
	// TickInterval is the period of duration ticks while connected; zero disables them
	TickInterval time.Duration
	// HistorySize bounds the list of ended calls
	HistorySize int
}

// DefaultConfig returns the configuration used by the app
func DefaultConfig() Config {
	return Config{
		SelfID:       model.SelfID,
		RingTimeout:  DefaultRingTimeout,
		TickInterval: DefaultTickInterval,
		HistorySize:  DefaultHistorySize,
	}
}

// Tick is the payload of a CallTick event
type Tick struct {
	CallID   string        `json:"call_id"`
	Duration time.Duration `json:"duration"`
}

// Controller drives the single active call through
// idle -> offering -> ringing -> connected -> ended -> idle.
type Controller struct {
	mu      sync.Mutex
	current *model.CallSession
	history []model.CallSession

	// gen changes on every state transition; timers armed for an older
	// generation do nothing when they fire.
	gen       uint64
	ringTimer Timer
	tickTimer Timer

	cfg       Config
	contacts  Contacts
	signaler  Signaler
	scheduler Scheduler
	bus       events.Publisher
	clock     model.Clock
}

// NewController creates an idle controller
func NewController(cfg Config, contacts Contacts, signaler Signaler, scheduler Scheduler, bus events.Publisher, clock model.Clock) *Controller {
	if cfg.SelfID == "" {
		cfg.SelfID = model.SelfID
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultHistorySize
	}
	if signaler == nil {
		signaler = nopSignaler{}
	}
	if scheduler == nil {
		scheduler = SystemScheduler
	}
	if bus == nil {
		bus = events.Discard
	}
	if clock == nil {
		clock = model.LocalTime
	}
	return &Controller{
		cfg:       cfg,
		contacts:  contacts,
		signaler:  signaler,
		scheduler: scheduler,
		bus:       bus,
		clock:     clock,
	}
}

// SetSignaler replaces the outbound signaling collaborator
func (c *Controller) SetSignaler(signaler Signaler) {
	if signaler == nil {
		signaler = nopSignaler{}
	}
	c.mu.Lock()
	c.signaler = signaler
	c.mu.Unlock()
}

// State returns the current protocol state, CallIdle when there is no session
func (c *Controller) State() model.CallState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return model.CallIdle
	}
	return c.current.State
}

// Current returns a copy of the active session
func (c *Controller) Current() (model.CallSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return model.CallSession{}, false
	}
	return *c.current, true
}

// Duration returns the connected time of the active session
func (c *Controller) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return 0
	}
	return c.current.Duration(c.clock.Now())
}

// History returns ended calls, most recent first
func (c *Controller) History() []model.CallSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.CallSession, len(c.history))
	for i, s := range c.history {
		out[len(c.history)-1-i] = s
	}
	return out
}

// Initiate starts an outgoing call to contactID
func (c *Controller) Initiate(contactID string, kind model.CallKind, offer json.RawMessage) (model.CallSession, error) {
	if !kind.Valid() {
		return model.CallSession{}, fmt.Errorf("call kind %q: %w", kind, model.ErrInvalidInput)
	}
	if _, err := c.contacts.GetContact(contactID); err != nil {
		return model.CallSession{}, err
	}

	c.mu.Lock()
	if c.current != nil {
		state := c.current.State
		c.mu.Unlock()
		return model.CallSession{}, fmt.Errorf("call in state %s: %w", state, model.ErrAlreadyInCall)
	}

	s := &model.CallSession{
		ID:         uuid.New().String(),
		CallerID:   c.cfg.SelfID,
		CalleeID:   contactID,
		Kind:       kind,
		State:      model.CallOffering,
		MediaOffer: offer,
		StartedAt:  c.clock.Now(),
	}
	c.current = s
	c.bus.Publish(events.CallStateChanged, *s)
	offering := *s

	c.transitionLocked(model.CallRinging)
	ringing := *s
	signaler := c.signaler
	c.mu.Unlock()

	signaler.OnLocalOffer(offering)
	return ringing, nil
}

// Accept answers the ringing incoming call
func (c *Controller) Accept(answer json.RawMessage) (model.CallSession, error) {
	c.mu.Lock()
	if err := c.requireLocked(model.CallRinging); err != nil {
		c.mu.Unlock()
		return model.CallSession{}, err
	}
	if c.current.CalleeID != c.cfg.SelfID {
		c.mu.Unlock()
		return model.CallSession{}, fmt.Errorf("cannot accept an outgoing call: %w", model.ErrInvalidState)
	}

	c.current.MediaAnswer = answer
	c.connectLocked()
	snap := *c.current
	signaler := c.signaler
	c.mu.Unlock()

	signaler.OnLocalAnswer(snap)
	return snap, nil
}

// DeclineOrTimeout ends a call that is still ringing
func (c *Controller) DeclineOrTimeout() (model.CallSession, error) {
	c.mu.Lock()
	if err := c.requireLocked(model.CallRinging); err != nil {
		c.mu.Unlock()
		return model.CallSession{}, err
	}
	reason := model.EndDeclined
	if c.current.CallerID == c.cfg.SelfID {
		reason = model.EndHangup
	}
	snap := c.endLocked(reason)
	signaler := c.signaler
	c.mu.Unlock()

	signaler.OnLocalHangup(snap, reason)
	return snap, nil
}

// HangUp ends a ringing or connected call
func (c *Controller) HangUp() (model.CallSession, error) {
	c.mu.Lock()
	if err := c.requireLocked(model.CallRinging, model.CallConnected); err != nil {
		c.mu.Unlock()
		return model.CallSession{}, err
	}
	snap := c.endLocked(model.EndHangup)
	signaler := c.signaler
	c.mu.Unlock()

	signaler.OnLocalHangup(snap, model.EndHangup)
	return snap, nil
}

// Reset releases an ended session and returns to idle
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireLocked(model.CallEnded); err != nil {
		return err
	}
	id := c.current.ID
	c.current = nil
	c.gen++
	c.bus.Publish(events.CallStateChanged, model.CallSession{ID: id, State: model.CallIdle})
	return nil
}

// SetMuted toggles the local microphone flag
func (c *Controller) SetMuted(muted bool) (model.CallSession, error) {
	return c.setFlag(func(s *model.CallSession) { s.Muted = muted })
}

// SetCameraOff toggles the local camera flag
func (c *Controller) SetCameraOff(off bool) (model.CallSession, error) {
	return c.setFlag(func(s *model.CallSession) { s.CameraOff = off })
}

func (c *Controller) setFlag(apply func(s *model.CallSession)) (model.CallSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireLocked(model.CallOffering, model.CallRinging, model.CallConnected); err != nil {
		return model.CallSession{}, err
	}
	apply(c.current)
	c.bus.Publish(events.CallStateChanged, *c.current)
	return *c.current, nil
}

// OnRemoteOffer registers an incoming call. While another call is active the
// caller is sent a busy hangup and ErrAlreadyInCall is returned. Redelivery
// of the active call's offer is ignored.
func (c *Controller) OnRemoteOffer(callID, callerID string, kind model.CallKind, offer json.RawMessage) error {
	if callID == "" {
		return fmt.Errorf("call id is required: %w", model.ErrInvalidInput)
	}
	if !kind.Valid() {
		return fmt.Errorf("call kind %q: %w", kind, model.ErrInvalidInput)
	}
	if _, err := c.contacts.GetContact(callerID); err != nil {
		return err
	}

	c.mu.Lock()
	if c.current != nil {
		if c.current.ID == callID {
			c.mu.Unlock()
			return nil
		}
		busy := model.CallSession{
			ID:        callID,
			CallerID:  callerID,
			CalleeID:  c.cfg.SelfID,
			Kind:      kind,
			State:     model.CallEnded,
			EndReason: model.EndBusy,
		}
		signaler := c.signaler
		c.mu.Unlock()

		signaler.OnLocalHangup(busy, model.EndBusy)
		return fmt.Errorf("incoming call %s: %w", callID, model.ErrAlreadyInCall)
	}

	c.current = &model.CallSession{
		ID:         callID,
		CallerID:   callerID,
		CalleeID:   c.cfg.SelfID,
		Kind:       kind,
		State:      model.CallOffering,
		MediaOffer: offer,
		StartedAt:  c.clock.Now(),
	}
	c.transitionLocked(model.CallRinging)
	c.mu.Unlock()
	return nil
}

// OnRemoteAnswer connects an outgoing ringing call. Redelivery after the
// call connected or ended is ignored.
func (c *Controller) OnRemoteAnswer(callID string, answer json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return fmt.Errorf("answer for call %s: %w", callID, model.ErrNoActiveCall)
	}
	if c.current.ID != callID {
		return fmt.Errorf("answer for call %s: %w", callID, model.ErrNotFound)
	}
	switch c.current.State {
	case model.CallConnected, model.CallEnded:
		return nil
	case model.CallRinging:
	default:
		return fmt.Errorf("answer in state %s: %w", c.current.State, model.ErrInvalidState)
	}
	if c.current.CallerID != c.cfg.SelfID {
		return fmt.Errorf("answer for an incoming call: %w", model.ErrInvalidState)
	}

	c.current.MediaAnswer = answer
	c.connectLocked()
	return nil
}

// OnRemoteHangup ends the call on behalf of the remote party. It is a no-op
// when there is no call or the call already ended.
func (c *Controller) OnRemoteHangup(callID string, reason model.EndReason) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil || c.current.State == model.CallEnded {
		return nil
	}
	if c.current.ID != callID {
		return fmt.Errorf("hangup for call %s: %w", callID, model.ErrNotFound)
	}

	switch reason {
	case model.EndBusy, model.EndDeclined, model.EndTimeout:
	default:
		reason = model.EndRemoteHangup
		if c.current.State == model.CallRinging && c.current.CallerID == c.cfg.SelfID {
			reason = model.EndDeclined
		}
	}
	c.endLocked(reason)
	return nil
}

// Close ends any call and drops the history; used on sign-out
func (c *Controller) Close() {
	c.mu.Lock()
	var (
		snap   model.CallSession
		hungUp bool
	)
	if c.current != nil && c.current.State != model.CallEnded {
		snap = c.endLocked(model.EndHangup)
		hungUp = true
	}
	c.stopTimersLocked()
	c.current = nil
	c.history = nil
	c.gen++
	signaler := c.signaler
	c.mu.Unlock()

	if hungUp {
		signaler.OnLocalHangup(snap, model.EndHangup)
	}
}

func (c *Controller) requireLocked(states ...model.CallState) error {
	if c.current == nil {
		return model.ErrNoActiveCall
	}
	for _, s := range states {
		if c.current.State == s {
			return nil
		}
	}
	return fmt.Errorf("call in state %s: %w", c.current.State, model.ErrInvalidState)
}

// transitionLocked moves to state, cancelling the timers of the state left
// and arming the ones of the state entered.
func (c *Controller) transitionLocked(state model.CallState) {
	c.stopTimersLocked()
	c.gen++
	c.current.State = state
	c.bus.Publish(events.CallStateChanged, *c.current)

	gen := c.gen
	switch state {
	case model.CallRinging:
		if c.cfg.RingTimeout > 0 {
			c.ringTimer = c.scheduler.AfterFunc(c.cfg.RingTimeout, func() { c.ringExpired(gen) })
		}
	case model.CallConnected:
		c.armTickLocked(gen)
	}
}

func (c *Controller) connectLocked() {
	now := c.clock.Now()
	c.current.ConnectedAt = &now
	c.transitionLocked(model.CallConnected)
}

func (c *Controller) endLocked(reason model.EndReason) model.CallSession {
	now := c.clock.Now()
	c.current.EndedAt = &now
	c.current.EndReason = reason
	c.transitionLocked(model.CallEnded)

	c.history = append(c.history, *c.current)
	if len(c.history) > c.cfg.HistorySize {
		c.history = c.history[len(c.history)-c.cfg.HistorySize:]
	}
	return *c.current
}

func (c *Controller) stopTimersLocked() {
	if c.ringTimer != nil {
		c.ringTimer.Stop()
		c.ringTimer = nil
	}
	if c.tickTimer != nil {
		c.tickTimer.Stop()
		c.tickTimer = nil
	}
}

func (c *Controller) armTickLocked(gen uint64) {
	if c.cfg.TickInterval <= 0 {
		return
	}
	c.tickTimer = c.scheduler.AfterFunc(c.cfg.TickInterval, func() { c.tick(gen) })
}

func (c *Controller) ringExpired(gen uint64) {
	c.mu.Lock()
	if c.gen != gen || c.current == nil || c.current.State != model.CallRinging {
		c.mu.Unlock()
		return
	}
	c.ringTimer = nil
	snap := c.endLocked(model.EndTimeout)
	signaler := c.signaler
	c.mu.Unlock()

	signaler.OnLocalHangup(snap, model.EndTimeout)
}

func (c *Controller) tick(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen || c.current == nil || c.current.State != model.CallConnected {
		return
	}
	c.bus.Publish(events.CallTick, Tick{CallID: c.current.ID, Duration: c.current.Duration(c.clock.Now())})
	c.armTickLocked(gen)
}

type nopSignaler struct{}

func (nopSignaler) OnLocalOffer(model.CallSession)                   {}
func (nopSignaler) OnLocalAnswer(model.CallSession)                  {}
func (nopSignaler) OnLocalHangup(model.CallSession, model.EndReason) {}
