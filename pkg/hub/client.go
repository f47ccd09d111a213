// Package hub implements the ingestion client: one live, authenticated
// WebSocket session to the home-automation hub, with endpoint failover,
// a liveness watchdog, and bounded dispatch of events to the enrichment
// service.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coder/websocket"

	"github.com/homepulse/homepulse/pkg/config"
	"github.com/homepulse/homepulse/pkg/correlation"
	"github.com/homepulse/homepulse/pkg/models"
)

// State is the session state machine position.
type State string

// Session states.
const (
	StateDisconnected   State = "disconnected"
	StateConnecting     State = "connecting"
	StateAuthenticating State = "authenticating"
	StateSubscribing    State = "subscribing"
	StateRunning        State = "running"
)

const (
	handshakeTimeout = 10 * time.Second
	settleDelay      = time.Second
	drainTimeout     = 10 * time.Second
)

// errAuthInvalid is fatal for the endpoint that produced it; the client
// rotates instead of retrying hot.
var errAuthInvalid = errors.New("hub rejected access token")

// Health is the ingestion client's self-reported status.
type Health struct {
	State                State     `json:"state"`
	Connected            bool      `json:"connected"`
	Authenticated        bool      `json:"authenticated"`
	SubscribedCount      int       `json:"subscribed_count"`
	EventsReceived       int64     `json:"events_received"`
	EventsForwarded      int64     `json:"events_forwarded"`
	DroppedEvents        int64     `json:"dropped_events"`
	DispatchFailedEvents int64     `json:"dispatch_failed_events"`
	LastEventAt          time.Time `json:"last_event_at,omitzero"`
	ReconnectCount       int64     `json:"reconnect_count"`
	ActiveEndpoint       string    `json:"active_endpoint"`
}

type session struct {
	conn     *websocket.Conn
	endpoint int
}

type dispatchItem struct {
	event         models.RawEvent
	correlationID string
}

// Client maintains the hub session and forwards events downstream.
type Client struct {
	endpoints    []config.Endpoint
	enrichURL    string
	retries      int
	dispatchWait time.Duration
	silence      time.Duration
	primaryRetry time.Duration
	corrHeader   string
	logger       *slog.Logger
	httpClient   *http.Client

	dispatchCh chan dispatchItem
	workers    int

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu            sync.Mutex
	state         State
	active        int
	connected     bool
	authenticated bool
	subscriptions int
	promotedSess  *session
	curConn       *websocket.Conn

	received       atomic.Int64
	forwarded      atomic.Int64
	dropped        atomic.Int64
	dispatchFailed atomic.Int64
	reconnects     atomic.Int64
	lastEventNanos atomic.Int64
	subID          atomic.Int64
}

// NewClient creates the ingestion client.
func NewClient(hubCfg *config.HubConfig, ingestCfg *config.IngestConfig, corrHeader string, logger *slog.Logger) *Client {
	if corrHeader == "" {
		corrHeader = "X-Correlation-ID"
	}
	return &Client{
		endpoints:    hubCfg.Endpoints(),
		enrichURL:    ingestCfg.EnrichURL,
		retries:      ingestCfg.DispatchRetries,
		dispatchWait: ingestCfg.DispatchTimeout.Std(),
		silence:      ingestCfg.EventSilenceThreshold.Std(),
		primaryRetry: hubCfg.ReconnectToPrimaryInterval.Std(),
		corrHeader:   corrHeader,
		logger:       logger.With("component", "ingestion_client"),
		httpClient:   &http.Client{},
		dispatchCh:   make(chan dispatchItem, ingestCfg.QueueCapacity),
		workers:      ingestCfg.DispatchWorkers,
		stopCh:       make(chan struct{}),
		state:        StateDisconnected,
	}
}

// Start connects, authenticates, and subscribes, walking the endpoints
// in priority order. It returns an error when every endpoint fails;
// after a successful start, reconnection is handled in the background.
func (c *Client) Start(ctx context.Context) error {
	for i := range c.workers {
		c.wg.Add(1)
		go c.dispatchWorker(ctx, i)
	}

	sess, err := c.connectAny(ctx)
	if err != nil {
		c.Stop()
		return fmt.Errorf("connecting to hub: %w", err)
	}

	c.wg.Add(1)
	go c.run(ctx, sess)
	return nil
}

// Stop closes the session and drains the dispatch queue, bounded by
// the drain timeout.
func (c *Client) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		c.mu.Lock()
		if c.curConn != nil {
			c.curConn.Close(websocket.StatusNormalClosure, "shutting down")
		}
		c.mu.Unlock()
	})
	c.wg.Wait()
	// A primary probe may have completed a handshake nobody consumed.
	if s := c.takePromoted(); s != nil {
		s.conn.Close(websocket.StatusNormalClosure, "shutting down")
	}
	c.logger.Info("Ingestion client stopped")
}

// Health reports session state and counters.
func (c *Client) Health() Health {
	c.mu.Lock()
	state := c.state
	connected := c.connected
	authenticated := c.authenticated
	subs := c.subscriptions
	endpoint := ""
	if c.active < len(c.endpoints) {
		endpoint = c.endpoints[c.active].URL
	}
	c.mu.Unlock()

	h := Health{
		State:                state,
		Connected:            connected,
		Authenticated:        authenticated,
		SubscribedCount:      subs,
		EventsReceived:       c.received.Load(),
		EventsForwarded:      c.forwarded.Load(),
		DroppedEvents:        c.dropped.Load(),
		DispatchFailedEvents: c.dispatchFailed.Load(),
		ReconnectCount:       c.reconnects.Load(),
		ActiveEndpoint:       endpoint,
	}
	if n := c.lastEventNanos.Load(); n > 0 {
		h.LastEventAt = time.Unix(0, n).UTC()
	}
	return h
}

// run serves sessions until Stop, reconnecting with backoff in between.
func (c *Client) run(ctx context.Context, sess *session) {
	defer c.wg.Done()
	defer func() {
		if s := c.takePromoted(); s != nil {
			s.conn.Close(websocket.StatusNormalClosure, "")
		}
	}()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.Multiplier = 2
	bo.MaxInterval = 60 * time.Second
	bo.RandomizationFactor = 0.2
	bo.MaxElapsedTime = 0

	for {
		err := c.serve(ctx, sess)
		sess.conn.Close(websocket.StatusNormalClosure, "")
		c.setDisconnected()

		if c.stopping() || ctx.Err() != nil {
			return
		}

		// A successful primary probe replaces the session without a
		// backoff cycle.
		if promoted := c.takePromoted(); promoted != nil {
			c.logger.Info("Switched back to primary endpoint")
			sess = promoted
			c.reconnects.Add(1)
			bo.Reset()
			continue
		}

		c.logger.Warn("Hub session ended, reconnecting", "error", err)

		for {
			select {
			case <-time.After(bo.NextBackOff()):
			case <-c.stopCh:
				return
			case <-ctx.Done():
				return
			}

			next, connErr := c.connectAny(ctx)
			if connErr == nil {
				sess = next
				c.reconnects.Add(1)
				bo.Reset()
				break
			}
			c.logger.Warn("Reconnect attempt failed", "error", connErr)
		}
	}
}

// serve reads frames from one session until it dies. The silence
// watchdog is the read deadline: any threshold-long gap without an
// inbound frame kills the session.
func (c *Client) serve(ctx context.Context, sess *session) error {
	c.setRunning(sess)
	c.logger.Info("Hub session running",
		"endpoint", c.endpoints[sess.endpoint].URL)

	probeCtx, probeCancel := context.WithCancel(ctx)
	defer probeCancel()
	if sess.endpoint != 0 {
		c.wg.Add(1)
		go c.probePrimary(probeCtx, sess)
	}

	for {
		select {
		case <-c.stopCh:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frame, err := c.readFrame(ctx, sess.conn, c.silence)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return fmt.Errorf("no frame for %s, session presumed dead", c.silence)
			}
			return err
		}

		switch frame.Type {
		case frameEvent:
			c.handleEvent(frame.Event)
		case framePong:
		case frameResult:
			if !frame.Success {
				c.logger.Warn("Hub reported command failure", "id", frame.ID, "message", frame.Message)
			}
		case frameAuthInvalid:
			return errAuthInvalid
		default:
			c.logger.Debug("Ignoring unexpected frame", "type", frame.Type)
		}
	}
}

// handleEvent enqueues an event for dispatch. The read loop never
// blocks here: when the channel is full the oldest unsent event is
// dropped to keep memory bounded.
func (c *Client) handleEvent(raw json.RawMessage) {
	c.received.Add(1)
	c.lastEventNanos.Store(time.Now().UnixNano())

	ev, err := decodeEvent(raw)
	if err != nil {
		c.logger.Warn("Undecodable event frame", "error", err)
		return
	}

	item := dispatchItem{event: ev, correlationID: correlation.New()}
	select {
	case c.dispatchCh <- item:
		return
	default:
	}

	// Full: drop the oldest and retry once.
	select {
	case <-c.dispatchCh:
		c.dropped.Add(1)
		metricDroppedEvents.Inc()
	default:
	}
	select {
	case c.dispatchCh <- item:
	default:
		c.dropped.Add(1)
		metricDroppedEvents.Inc()
	}
}

// probePrimary periodically attempts the highest-priority endpoint
// while running on a fallback. On success it hands over the new
// session and kills the current one. The probe handshake is quiet: the
// published state stays RUNNING for the session that is still serving.
func (c *Client) probePrimary(ctx context.Context, current *session) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.primaryRetry)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			next, err := c.handshake(ctx, 0, true)
			if err != nil {
				c.logger.Debug("Primary endpoint still unavailable", "error", err)
				continue
			}
			if c.stopping() || ctx.Err() != nil {
				next.conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			c.mu.Lock()
			c.promotedSess = next
			c.mu.Unlock()
			// Abrupt close: the serving loop must see the session end
			// now, not after a close handshake the hub may never answer.
			current.conn.CloseNow()
			return
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// connectAny walks the endpoints in priority order until one completes
// the full handshake.
func (c *Client) connectAny(ctx context.Context) (*session, error) {
	var lastErr error
	for i := range c.endpoints {
		sess, err := c.handshake(ctx, i, false)
		if err == nil {
			return sess, nil
		}
		lastErr = err
		level := slog.LevelWarn
		if errors.Is(err, errAuthInvalid) {
			level = slog.LevelError
		}
		c.logger.Log(ctx, level, "Endpoint connect failed",
			"endpoint", c.endpoints[i].URL,
			"error", err)
	}
	return nil, fmt.Errorf("all %d endpoints failed: %w", len(c.endpoints), lastErr)
}

// handshake performs connect → auth → settle → subscribe against one
// endpoint. A quiet handshake leaves the published state untouched;
// the background primary probe uses it while another session is
// serving.
func (c *Client) handshake(ctx context.Context, idx int, quiet bool) (*session, error) {
	ep := c.endpoints[idx]
	if !quiet {
		c.setState(StateConnecting)
	}

	dialCtx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	conn, _, err := websocket.Dial(dialCtx, ep.URL, &websocket.DialOptions{HTTPClient: c.httpClient})
	cancel()
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	fail := func(err error) (*session, error) {
		conn.Close(websocket.StatusNormalClosure, "")
		return nil, err
	}

	greeting, err := c.readFrame(ctx, conn, handshakeTimeout)
	if err != nil {
		return fail(fmt.Errorf("awaiting greeting: %w", err))
	}
	if greeting.Type != frameAuthRequired {
		return fail(fmt.Errorf("unexpected greeting %q", greeting.Type))
	}

	if !quiet {
		c.setState(StateAuthenticating)
	}
	if err := c.writeJSON(ctx, conn, authMessage{Type: "auth", AccessToken: ep.Token}); err != nil {
		return fail(fmt.Errorf("sending auth: %w", err))
	}
	reply, err := c.readFrame(ctx, conn, handshakeTimeout)
	if err != nil {
		return fail(fmt.Errorf("awaiting auth result: %w", err))
	}
	switch reply.Type {
	case frameAuthOK:
	case frameAuthInvalid:
		return fail(errAuthInvalid)
	default:
		return fail(fmt.Errorf("unexpected auth reply %q", reply.Type))
	}

	// The hub races its own post-auth setup; subscribing immediately
	// can lose the subscription.
	select {
	case <-time.After(settleDelay):
	case <-ctx.Done():
		return fail(ctx.Err())
	}

	if !quiet {
		c.setState(StateSubscribing)
	}
	id := c.subID.Add(1)
	if err := c.writeJSON(ctx, conn, subscribeMessage{Type: "subscribe_events", ID: id, EventType: "state_changed"}); err != nil {
		return fail(fmt.Errorf("sending subscription: %w", err))
	}

	deadline := time.Now().Add(handshakeTimeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fail(fmt.Errorf("subscription result timed out"))
		}
		result, err := c.readFrame(ctx, conn, remaining)
		if err != nil {
			return fail(fmt.Errorf("awaiting subscription result: %w", err))
		}
		if result.Type != frameResult || result.ID != id {
			continue
		}
		if !result.Success {
			return fail(fmt.Errorf("subscription rejected: %s", result.Message))
		}
		return &session{conn: conn, endpoint: idx}, nil
	}
}

func (c *Client) readFrame(ctx context.Context, conn *websocket.Conn, timeout time.Duration) (serverFrame, error) {
	readCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, data, err := conn.Read(readCtx)
	if err != nil {
		return serverFrame{}, err
	}
	var frame serverFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return serverFrame{}, fmt.Errorf("malformed frame: %w", err)
	}
	return frame, nil
}

func (c *Client) writeJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Client) setRunning(sess *session) {
	c.mu.Lock()
	c.state = StateRunning
	c.active = sess.endpoint
	c.connected = true
	c.authenticated = true
	c.subscriptions = 1
	c.curConn = sess.conn
	c.mu.Unlock()
}

func (c *Client) setDisconnected() {
	c.mu.Lock()
	c.state = StateDisconnected
	c.connected = false
	c.authenticated = false
	c.subscriptions = 0
	c.curConn = nil
	c.mu.Unlock()
}

func (c *Client) takePromoted() *session {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.promotedSess
	c.promotedSess = nil
	return s
}

func (c *Client) stopping() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}
