package gateway

import (
	"bytes"
	"compress/zlib"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/TheRockettek/czlib"
	gorillaws "github.com/gorilla/websocket"
	"nhooyr.io/websocket"
)

// Transport is the Transport component (spec.md §4.A): a minimal
// duplex message channel to the gateway, abstracting over which
// websocket library drives the underlying connection. Shards dial a
// Transport, read/write raw frames through it, and close it on
// disconnect; the Gateway Protocol Engine layers opcode semantics on
// top.
type Transport interface {
	Dial(ctx context.Context, url string) error
	ReadMessage(ctx context.Context) ([]byte, error)
	WriteMessage(ctx context.Context, data []byte) error
	Close(statusCode int, reason string) error
}

// NhooyrTransport is the default Transport, grounded on the teacher's
// per-shard connections in gateway/shard.go. Each binary frame is
// inflated on its own with czlib (per-payload zlib, as sent when
// Identify sets compress=true); no zlib context is shared across
// frames. Text frames are returned unchanged.
type NhooyrTransport struct {
	conn *websocket.Conn
}

// NewNhooyrTransport constructs an unconnected NhooyrTransport.
func NewNhooyrTransport() *NhooyrTransport { return &NhooyrTransport{} }

func (t *NhooyrTransport) Dial(ctx context.Context, url string) (err error) {
	t.conn, _, err = websocket.Dial(ctx, url, nil)
	if err != nil {
		return err
	}

	t.conn.SetReadLimit(512 << 20)

	return nil
}

func (t *NhooyrTransport) ReadMessage(ctx context.Context) ([]byte, error) {
	mt, buf, err := t.conn.Read(ctx)
	if err != nil {
		if code := websocket.CloseStatus(err); code != -1 {
			return nil, &CloseError{Code: int(code), Reason: err.Error()}
		}

		return nil, err
	}

	if mt == websocket.MessageBinary {
		return czlib.Decompress(buf)
	}

	return buf, nil
}

func (t *NhooyrTransport) WriteMessage(ctx context.Context, data []byte) error {
	return t.conn.Write(ctx, websocket.MessageText, data)
}

func (t *NhooyrTransport) Close(statusCode int, reason string) error {
	if t.conn == nil {
		return nil
	}

	return t.conn.Close(websocket.StatusCode(statusCode), reason)
}

// GorillaTransport is the legacy/simple Transport, grounded on the
// teacher's root session.go, which dials with gorilla/websocket and
// inflates binary frames with compress/zlib rather than czlib. Kept
// available for callers that want the simpler, CGO-free dependency at
// the cost of the richer nhooyr feature set.
type GorillaTransport struct {
	conn *gorillaws.Conn
}

// NewGorillaTransport constructs an unconnected GorillaTransport.
func NewGorillaTransport() *GorillaTransport { return &GorillaTransport{} }

func (t *GorillaTransport) Dial(ctx context.Context, url string) error {
	header := http.Header{}
	header.Add("accept-encoding", "zlib")

	conn, _, err := gorillaws.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return err
	}

	conn.SetCloseHandler(func(code int, text string) error { return nil })
	t.conn = conn

	return nil
}

func (t *GorillaTransport) ReadMessage(ctx context.Context) ([]byte, error) {
	mt, msg, err := t.conn.ReadMessage()
	if err != nil {
		var ce *gorillaws.CloseError
		if errors.As(err, &ce) {
			return nil, &CloseError{Code: ce.Code, Reason: ce.Text}
		}

		return nil, err
	}

	if mt == gorillaws.BinaryMessage {
		zr, err := zlib.NewReader(bytes.NewReader(msg))
		if err != nil {
			return nil, err
		}
		defer zr.Close()

		return io.ReadAll(zr)
	}

	return msg, nil
}

func (t *GorillaTransport) WriteMessage(ctx context.Context, data []byte) error {
	return t.conn.WriteMessage(gorillaws.TextMessage, data)
}

func (t *GorillaTransport) Close(statusCode int, reason string) error {
	if t.conn == nil {
		return nil
	}

	_ = t.conn.WriteMessage(gorillaws.CloseMessage, gorillaws.FormatCloseMessage(statusCode, reason))

	return t.conn.Close()
}
