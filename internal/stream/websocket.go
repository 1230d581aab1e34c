package stream

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
)

// WebSocket opens push connections over a WebSocket. Every text frame is one
// message; the client never writes application frames.
type WebSocket struct {
	Dialer *websocket.Dialer // Defaults to websocket.DefaultDialer
	Header http.Header
}

func (t *WebSocket) Open(ctx context.Context, endpoint, lastEventID string) (Reader, error) {
	wsURL, err := toWebSocketURL(endpoint)
	if err != nil {
		return nil, &EndpointError{Endpoint: endpoint, Err: err}
	}

	header := t.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	if lastEventID != "" {
		header.Set("Last-Event-ID", lastEventID)
	}

	dialer := t.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			return nil, &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode, ContentType: resp.Header.Get("Content-Type")}
		}
		return nil, &ConnectionError{Endpoint: endpoint, Err: err}
	}

	r := &wsReader{endpoint: endpoint, conn: conn, lastEventID: lastEventID, stop: make(chan struct{})}
	// gorilla reads do not observe a context, so cancellation closes the socket.
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-r.stop:
		}
	}()
	return r, nil
}

type wsReader struct {
	endpoint    string
	conn        *websocket.Conn
	lastEventID string
	stop        chan struct{}
	once        sync.Once
}

func (r *wsReader) Next() (Message, error) {
	for {
		mt, data, err := r.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return Message{}, &ConnectionError{Endpoint: r.endpoint, Err: errStreamEnded}
			}
			return Message{}, &ConnectionError{Endpoint: r.endpoint, Err: err}
		}
		if mt != websocket.TextMessage {
			continue
		}
		return Message{ID: r.lastEventID, Event: DefaultEvent, Data: string(data)}, nil
	}
}

func (r *wsReader) Close() error {
	r.once.Do(func() { close(r.stop) })
	return r.conn.Close()
}

func toWebSocketURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", errors.New("unsupported scheme " + u.Scheme)
	}
	return u.String(), nil
}
