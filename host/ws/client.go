package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/teranos/dossier/errors"
	"github.com/teranos/dossier/host"
	"github.com/teranos/dossier/logger"
	"github.com/teranos/dossier/plugin"
	"github.com/teranos/dossier/settings"
)

// ErrClosed is returned for calls on a client whose connection has ended
var ErrClosed = errors.New("host connection closed")

// Client is a host.Bridge backed by a remote host
type Client struct {
	conn    *websocket.Conn
	timeout time.Duration
	logger  *zap.SugaredLogger

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan Response
	done    chan struct{}
	readErr error
}

// Dial connects to the host at address (ws:// or wss://).
// timeout bounds each call; zero leaves calls bounded only by their context.
func Dial(ctx context.Context, address string, timeout time.Duration, logger *zap.SugaredLogger) (*Client, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, address, nil)
	if err != nil {
		return nil, errors.WithHintf(
			errors.Wrapf(err, "failed to connect to host at %s", address),
			"start a host with 'dossier serve' or clear host.address to use the in-process host",
		)
	}

	c := &Client{
		conn:    conn,
		timeout: timeout,
		logger:  logger,
		pending: make(map[string]chan Response),
		done:    make(chan struct{}),
	}
	go c.readLoop()

	logger.Debugw("Connected to host", "address", address)
	return c, nil
}

// Close ends the connection; pending calls fail with ErrClosed
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	err := c.conn.Close()
	<-c.done
	return err
}

func (c *Client) readLoop() {
	defer func() {
		c.mu.Lock()
		for id, ch := range c.pending {
			close(ch)
			delete(c.pending, id)
		}
		c.mu.Unlock()
		close(c.done)
	}()

	for {
		var resp Response
		if err := c.conn.ReadJSON(&resp); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warnw("Host connection lost", logger.FieldError, err)
			}
			c.mu.Lock()
			c.readErr = err
			c.mu.Unlock()
			return
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()

		if !ok {
			c.logger.Debugw("Dropping response for unknown request", logger.FieldRequestID, resp.ID)
			continue
		}
		ch <- resp
	}
}

func (c *Client) call(ctx context.Context, method string, params, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := Request{ID: uuid.NewString(), Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return errors.Wrapf(err, "failed to encode %s params", method)
		}
		req.Params = raw
	}

	ch := make(chan Response, 1)
	c.mu.Lock()
	if c.readErr != nil {
		c.mu.Unlock()
		return errors.Wrap(ErrClosed, method)
	}
	c.pending[req.ID] = ch
	c.mu.Unlock()

	c.writeMu.Lock()
	err := c.conn.WriteJSON(req)
	c.writeMu.Unlock()
	if err != nil {
		c.forget(req.ID)
		return errors.Wrapf(err, "failed to send %s", method)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return errors.Wrap(ErrClosed, method)
		}
		return decodeResponse(method, resp, out)
	case <-ctx.Done():
		c.forget(req.ID)
		return errors.Wrapf(ctx.Err(), "%s timed out", method)
	}
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func decodeResponse(method string, resp Response, out any) error {
	if resp.Error != "" {
		err := errors.Newf("host %s: %s", method, resp.Error)
		if resp.Code == CodeNotFound {
			err = errors.Mark(err, errors.ErrPluginNotFound)
		}
		return err
	}
	if out == nil || len(resp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return errors.Wrapf(err, "malformed %s response", method)
	}
	return nil
}

func (c *Client) ListPlugins(ctx context.Context) ([]plugin.Info, error) {
	var infos []plugin.Info
	if err := c.call(ctx, MethodListPlugins, nil, &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

func (c *Client) GetSettings(ctx context.Context) (settings.Settings, error) {
	s := settings.Defaults()
	if err := c.call(ctx, MethodGetSettings, nil, &s); err != nil {
		return settings.Settings{}, err
	}
	return s, nil
}

func (c *Client) SearchPlugin(ctx context.Context, pluginID, query string) (plugin.SearchResponse, error) {
	var resp plugin.SearchResponse
	err := c.call(ctx, MethodSearchPlugin, searchParams{PluginID: pluginID, Query: query}, &resp)
	return resp, err
}

func (c *Client) ExecutePluginAction(ctx context.Context, pluginID, resultID, actionID string) (string, error) {
	var message string
	err := c.call(ctx, MethodExecutePluginAction,
		executeParams{PluginID: pluginID, ResultID: resultID, ActionID: actionID}, &message)
	return message, err
}

func (c *Client) SetWindowShown(ctx context.Context, shown bool) error {
	return c.call(ctx, MethodSetWindowShown, windowParams{Shown: shown}, nil)
}

func (c *Client) OpenSettingsWindow(ctx context.Context) error {
	return c.call(ctx, MethodOpenSettingsWindow, nil, nil)
}

func (c *Client) ToggleWindow(ctx context.Context) error {
	return c.call(ctx, MethodToggleWindow, nil, nil)
}

var _ host.Bridge = (*Client)(nil)
