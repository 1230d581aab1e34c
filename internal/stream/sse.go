package stream

import (
	"bufio"
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// MaxEventSize bounds one line and the data of one event on an event stream.
const MaxEventSize = 1 << 20

// ErrEventTooLarge is reported when a stream line or event exceeds
// MaxEventSize. The connection is dropped and reopened.
var ErrEventTooLarge = errors.New("event stream message exceeds size limit")

// SSE opens push connections as text/event-stream responses, the transport
// the browser's EventSource uses.
type SSE struct {
	Client *http.Client // Defaults to a client without a timeout
	Header http.Header  // Extra request headers
}

func (t *SSE) Open(ctx context.Context, endpoint, lastEventID string) (Reader, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &EndpointError{Endpoint: endpoint, Err: err}
	}
	for k, vs := range t.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if lastEventID != "" {
		req.Header.Set("Last-Event-ID", lastEventID)
	}

	client := t.Client
	if client == nil {
		client = &http.Client{}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &ConnectionError{Endpoint: endpoint, Err: err}
	}

	contentType := resp.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if resp.StatusCode != http.StatusOK || mediaType != "text/event-stream" {
		resp.Body.Close()
		return nil, &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode, ContentType: contentType}
	}

	return newEventReader(endpoint, resp.Body, lastEventID), nil
}

// eventReader parses an event stream with the EventSource rules.
type eventReader struct {
	endpoint    string
	body        io.ReadCloser
	r           *bufio.Reader
	lastEventID string
	retry       time.Duration
	started     bool
	skipLF      bool // previous line ended with a lone CR
}

func newEventReader(endpoint string, body io.ReadCloser, lastEventID string) *eventReader {
	return &eventReader{
		endpoint:    endpoint,
		body:        body,
		r:           bufio.NewReader(body),
		lastEventID: lastEventID,
	}
}

// Next returns the next dispatched event. Blocks that carry no data field
// are consumed without being returned; comment lines are heartbeats.
func (r *eventReader) Next() (Message, error) {
	var (
		data      strings.Builder
		hasData   bool
		eventType string
	)

	for {
		line, err := r.readLine()
		if err != nil {
			// An event without its terminating blank line is discarded.
			return Message{}, wrapReadError(r.endpoint, err)
		}
		if !r.started {
			r.started = true
			line = strings.TrimPrefix(line, "\ufeff")
		}

		if line == "" {
			if !hasData {
				eventType = ""
				continue
			}
			if eventType == "" {
				eventType = DefaultEvent
			}
			return Message{
				ID:    r.lastEventID,
				Event: eventType,
				Data:  strings.TrimSuffix(data.String(), "\n"),
			}, nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			eventType = value
		case "data":
			if data.Len()+len(value) >= MaxEventSize {
				return Message{}, &ConnectionError{Endpoint: r.endpoint, Err: ErrEventTooLarge}
			}
			data.WriteString(value)
			data.WriteByte('\n')
			hasData = true
		case "id":
			if !strings.ContainsRune(value, 0) {
				r.lastEventID = value
			}
		case "retry":
			if ms, ok := parseRetry(value); ok {
				r.retry = time.Duration(ms) * time.Millisecond
			}
		}
	}
}

// readLine returns the next line without its terminator. CRLF, LF and a lone
// CR all end a line. The LF of a CRLF split across reads is skipped on the
// following call so a trailing CR never waits for more input.
func (r *eventReader) readLine() (string, error) {
	var line []byte
	for {
		c, err := r.r.ReadByte()
		if err != nil {
			return "", err
		}
		if r.skipLF {
			r.skipLF = false
			if c == '\n' {
				continue
			}
		}
		switch c {
		case '\n':
			return string(line), nil
		case '\r':
			r.skipLF = true
			return string(line), nil
		}
		if len(line) >= MaxEventSize {
			return "", ErrEventTooLarge
		}
		line = append(line, c)
	}
}

func (r *eventReader) RetryHint() time.Duration { return r.retry }

func (r *eventReader) LastEventID() string { return r.lastEventID }

func (r *eventReader) Close() error { return r.body.Close() }

func parseRetry(v string) (int, bool) {
	if v == "" {
		return 0, false
	}
	for _, c := range v {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	ms, err := strconv.Atoi(v)
	return ms, err == nil
}
