package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/justinhartfield/weed-stock-exchange-game/internal/domain"
)

const (
	dialTimeout = 30 * time.Second

	// Reconnection constants
	baseReconnectDelay   = 5 * time.Second
	maxReconnectDelay    = 5 * time.Minute
	maxReconnectAttempts = 10
)

// Frame type discriminators used by the exchange stream.
const (
	frameTypePriceUpdate = "price_update"
	frameTypeMarketEvent = "market_event"
)

// StreamHandler receives the parsed stream traffic and connection lifecycle
// notifications. Callbacks run on the read goroutine, one at a time.
type StreamHandler interface {
	HandleQuote(quote domain.Quote)
	HandleMarketEvent(event map[string]interface{})
	HandleConnected()
	HandleDisconnected(err error)
}

// StreamClient maintains the real-time price feed over a single WebSocket
// session, reconnecting with exponential backoff when the connection drops.
type StreamClient struct {
	// Connection
	url        string
	tokens     domain.TokenProvider
	conn       *websocket.Conn
	connCtx    context.Context    // Connection context (cancelled on disconnect)
	cancelFunc context.CancelFunc // For cancelling the connection context
	mu         sync.RWMutex

	// Dependencies
	handler StreamHandler
	log     zerolog.Logger

	// State
	connected    bool
	reconnecting bool
	stopChan     chan struct{}
	stopped      bool
}

// NewStreamClient creates a price stream client. The handler is notified of
// every decoded frame and of connection state changes.
func NewStreamClient(url string, tokens domain.TokenProvider, handler StreamHandler, log zerolog.Logger) *StreamClient {
	return &StreamClient{
		url:      url,
		tokens:   tokens,
		handler:  handler,
		log:      log.With().Str("component", "price_stream").Logger(),
		stopChan: make(chan struct{}),
	}
}

// Start initializes the WebSocket connection and starts the read loop
func (sc *StreamClient) Start() error {
	sc.log.Info().Msg("Starting price stream client")

	// Initial connection
	if err := sc.Connect(); err != nil {
		sc.log.Warn().Err(err).Msg("Initial stream connection failed, will retry in background")
		// Start reconnect loop in background
		go sc.reconnectLoop()
		return err
	}

	// Start read loop in background with connection context
	sc.mu.RLock()
	ctx := sc.connCtx
	sc.mu.RUnlock()
	go sc.readMessages(ctx)

	sc.log.Info().Msg("Price stream client started successfully")
	return nil
}

// Stop gracefully shuts down the WebSocket connection
func (sc *StreamClient) Stop() error {
	sc.mu.Lock()
	if sc.stopped {
		sc.mu.Unlock()
		return nil
	}
	sc.stopped = true
	sc.mu.Unlock()

	sc.log.Info().Msg("Stopping price stream client")

	// Signal stop
	close(sc.stopChan)

	// Close connection
	return sc.Disconnect()
}

// Connect establishes the WebSocket session and notifies the handler.
func (sc *StreamClient) Connect() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	// At most one live session. A connect while connected is a no-op, never
	// a second dial that would leave the first read loop feeding the handler.
	if sc.connected {
		sc.log.Debug().Msg("Connect called while already connected, ignoring")
		return nil
	}

	wsURL := sc.url
	if sc.tokens != nil {
		token, err := sc.tokens.Token()
		if err != nil {
			return fmt.Errorf("failed to get session token: %w", err)
		}
		if token != "" {
			wsURL += "?token=" + token
		}
	}

	sc.log.Info().Str("url", sc.url).Msg("Connecting to exchange price stream")

	// Create context with timeout for the dial operation
	dialCtx, dialCancel := context.WithTimeout(context.Background(), dialTimeout)
	defer dialCancel()

	conn, _, err := websocket.Dial(dialCtx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial WebSocket: %w", err)
	}

	// Create a long-lived context for the connection
	// This context is used for read operations and cancelled on disconnect
	connCtx, connCancel := context.WithCancel(context.Background())
	sc.conn = conn
	sc.connCtx = connCtx
	sc.cancelFunc = connCancel
	sc.connected = true

	sc.log.Info().Msg("Successfully connected to exchange price stream")

	if sc.handler != nil {
		sc.handler.HandleConnected()
	}
	return nil
}

// Disconnect closes the WebSocket connection
func (sc *StreamClient) Disconnect() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.conn == nil {
		return nil
	}

	sc.log.Info().Msg("Disconnecting from exchange price stream")

	// Cancel the connection context to unblock any pending Read operations
	if sc.cancelFunc != nil {
		sc.cancelFunc()
		sc.cancelFunc = nil
	}

	// Close connection with normal closure status
	err := sc.conn.Close(websocket.StatusNormalClosure, "")

	sc.conn = nil
	sc.connCtx = nil
	sc.connected = false

	if err != nil {
		return fmt.Errorf("error closing WebSocket: %w", err)
	}

	return nil
}

// readMessages continuously reads frames from the WebSocket
func (sc *StreamClient) readMessages(ctx context.Context) {
	var readErr error

	defer func() {
		sc.log.Info().Msg("Read loop stopped")

		sc.mu.Lock()
		sc.connected = false
		stopped := sc.stopped
		sc.mu.Unlock()

		if sc.handler != nil {
			sc.handler.HandleDisconnected(readErr)
		}

		// Attempt reconnection if not intentionally stopped
		if !stopped {
			go sc.reconnectLoop()
		}
	}()

	for {
		select {
		case <-sc.stopChan:
			return
		case <-ctx.Done():
			sc.log.Debug().Msg("Read loop context cancelled")
			return
		default:
		}

		sc.mu.RLock()
		conn := sc.conn
		sc.mu.RUnlock()

		if conn == nil {
			sc.log.Warn().Msg("Connection is nil, stopping read loop")
			return
		}

		// Read message with context
		msgType, message, err := conn.Read(ctx)
		if err != nil {
			// Check if this is an expected close
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				sc.log.Info().Int("status", int(closeStatus)).Msg("WebSocket closed normally")
			} else if ctx.Err() != nil {
				// Context was cancelled (intentional disconnect)
				sc.log.Debug().Msg("Read cancelled by context")
			} else {
				sc.log.Error().Err(err).Msg("Unexpected WebSocket read error")
				readErr = err
			}
			return
		}

		// Only process text messages
		if msgType != websocket.MessageText {
			sc.log.Debug().Int("type", int(msgType)).Msg("Ignoring non-text message")
			continue
		}

		// Parse and handle frame
		if err := sc.handleMessage(message); err != nil {
			sc.log.Error().Err(err).Str("message", string(message)).Msg("Failed to handle stream frame")
			// Continue reading despite parse errors
		}
	}
}

// handleMessage parses one stream frame and dispatches it to the handler.
func (sc *StreamClient) handleMessage(message []byte) error {
	var frame wsFrame
	if err := json.Unmarshal(message, &frame); err != nil {
		return fmt.Errorf("failed to parse stream frame: %w", err)
	}

	switch frame.Type {
	case frameTypePriceUpdate:
		quote, err := transformQuote(frame)
		if err != nil {
			return fmt.Errorf("failed to transform price update: %w", err)
		}
		if sc.handler != nil {
			sc.handler.HandleQuote(quote)
		}
		return nil

	case frameTypeMarketEvent:
		if sc.handler != nil {
			sc.handler.HandleMarketEvent(frame.Event)
		}
		return nil

	default:
		sc.log.Debug().Str("type", frame.Type).Msg("Ignoring unknown frame type")
		return nil
	}
}

// reconnectLoop handles automatic reconnection with exponential backoff
func (sc *StreamClient) reconnectLoop() {
	sc.mu.Lock()
	if sc.reconnecting || sc.stopped {
		sc.mu.Unlock()
		return
	}
	sc.reconnecting = true
	sc.mu.Unlock()

	defer func() {
		sc.mu.Lock()
		sc.reconnecting = false
		sc.mu.Unlock()
	}()

	attempt := 0
	for {
		select {
		case <-sc.stopChan:
			sc.log.Info().Msg("Reconnection loop stopped by user")
			return
		default:
		}

		sc.mu.RLock()
		stopped := sc.stopped
		sc.mu.RUnlock()
		if stopped {
			return
		}

		attempt++

		// Calculate backoff delay
		delay := sc.calculateBackoff(attempt)

		if attempt <= maxReconnectAttempts {
			sc.log.Info().
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("Attempting to reconnect to price stream")
		} else {
			sc.log.Warn().
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("Reconnection attempt (exceeded max attempts, will keep retrying)")
		}

		// Wait before reconnecting
		select {
		case <-time.After(delay):
		case <-sc.stopChan:
			return
		}

		// Attempt connection
		if err := sc.Connect(); err != nil {
			sc.log.Error().Err(err).
				Int("attempt", attempt).
				Msg("Reconnection failed")
			continue
		}

		// Successfully reconnected
		sc.log.Info().
			Int("attempt", attempt).
			Msg("Successfully reconnected to price stream")

		// Reset attempt counter on successful connection
		attempt = 0

		// Start read loop with connection context
		sc.mu.RLock()
		ctx := sc.connCtx
		sc.mu.RUnlock()
		go sc.readMessages(ctx)
		return
	}
}

// calculateBackoff calculates exponential backoff delay
func (sc *StreamClient) calculateBackoff(attempt int) time.Duration {
	// Exponential backoff: baseDelay * 2^attempt
	delay := float64(baseReconnectDelay) * math.Pow(2, float64(attempt-1))

	// Cap at max delay
	if delay > float64(maxReconnectDelay) {
		delay = float64(maxReconnectDelay)
	}

	return time.Duration(delay)
}

// IsConnected returns current connection status
func (sc *StreamClient) IsConnected() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.connected
}
