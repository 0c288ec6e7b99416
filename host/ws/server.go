package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/dossier/errors"
	"github.com/teranos/dossier/host"
	"github.com/teranos/dossier/logger"
)

// Per-connection request budget. A client exceeding it is slowed down, not rejected.
const (
	DefaultRequestRate  = rate.Limit(200)
	DefaultRequestBurst = 50
)

// Server exposes a host.Bridge to websocket clients
type Server struct {
	bridge   host.Bridge
	logger   *zap.SugaredLogger
	upgrader websocket.Upgrader

	// RequestRate and RequestBurst size the limiter each connection gets
	RequestRate  rate.Limit
	RequestBurst int
}

// NewServer creates a server answering requests with bridge
func NewServer(bridge host.Bridge, logger *zap.SugaredLogger) *Server {
	return &Server{
		bridge: bridge,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		RequestRate:  DefaultRequestRate,
		RequestBurst: DefaultRequestBurst,
	}
}

// checkOrigin allows non-browser clients and pages served from the local machine.
// Scheme and host must match exactly; ports are not checked.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	switch u.Scheme {
	case "http", "https":
		return host == "localhost" || host == "127.0.0.1" || host == "::1" || host == "tauri.localhost"
	case "tauri":
		return host == "localhost" && u.Port() == ""
	default:
		return false
	}
}

// ServeHTTP upgrades the connection and serves requests until the client disconnects.
// Requests are handled concurrently; a slow plugin never blocks other calls.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("Host WebSocket upgrade failed", logger.FieldError, err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	s.logger.Infow("Host client connected", "remote_addr", r.RemoteAddr)

	var writeMu sync.Mutex
	var wg sync.WaitGroup
	defer wg.Wait()

	limiter := rate.NewLimiter(s.RequestRate, s.RequestBurst)

	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warnw("Host client read failed", "remote_addr", r.RemoteAddr, logger.FieldError, err)
			}
			s.logger.Infow("Host client disconnected", "remote_addr", r.RemoteAddr)
			cancel()
			return
		}

		if err := limiter.Wait(ctx); err != nil {
			return
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := s.handle(ctx, req)

			writeMu.Lock()
			defer writeMu.Unlock()
			if err := conn.WriteJSON(resp); err != nil {
				s.logger.Debugw("Failed to write host response",
					logger.FieldRequestID, req.ID, logger.FieldError, err)
			}
		}()
	}
}

func (s *Server) handle(ctx context.Context, req Request) (resp Response) {
	resp.ID = req.ID
	ctx = logger.WithRequestID(ctx, req.ID)
	log := logger.FromContext(ctx, s.logger).With(logger.FieldMethod, req.Method)

	defer func() {
		if r := recover(); r != nil {
			log.Errorw("Host request panicked", "panic", r)
			resp = Response{ID: req.ID, Error: "internal error", Code: CodeInternal}
		}
	}()

	result, err := s.dispatch(ctx, req)
	if err != nil {
		log.Debugw("Host request failed", logger.FieldError, err)
		resp.Error = err.Error()
		resp.Code = errorCode(err)
		return resp
	}

	if result != nil {
		raw, err := json.Marshal(result)
		if err != nil {
			resp.Error = err.Error()
			resp.Code = CodeInternal
			return resp
		}
		resp.Result = raw
	}
	return resp
}

var errBadRequest = errors.New("bad request")
var errUnknownMethod = errors.New("unknown method")

func (s *Server) dispatch(ctx context.Context, req Request) (any, error) {
	switch req.Method {
	case MethodListPlugins:
		return s.bridge.ListPlugins(ctx)

	case MethodGetSettings:
		return s.bridge.GetSettings(ctx)

	case MethodSearchPlugin:
		var p searchParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		resp, err := s.bridge.SearchPlugin(ctx, p.PluginID, p.Query)
		if err != nil {
			return nil, err
		}
		if resp.IsHTML() {
			return resp, nil
		}
		if resp.Results == nil {
			return []any{}, nil
		}
		return resp.Results, nil

	case MethodExecutePluginAction:
		var p executeParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		return s.bridge.ExecutePluginAction(ctx, p.PluginID, p.ResultID, p.ActionID)

	case MethodSetWindowShown:
		var p windowParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		return nil, s.bridge.SetWindowShown(ctx, p.Shown)

	case MethodOpenSettingsWindow:
		return nil, s.bridge.OpenSettingsWindow(ctx)

	case MethodToggleWindow:
		return nil, s.bridge.ToggleWindow(ctx)

	default:
		return nil, errors.Mark(errors.Newf("unknown method %q", req.Method), errUnknownMethod)
	}
}

func decodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errors.Mark(errors.New("missing params"), errBadRequest)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Mark(errors.Wrap(err, "invalid params"), errBadRequest)
	}
	return nil
}

func errorCode(err error) string {
	switch {
	case errors.IsPluginNotFound(err):
		return CodeNotFound
	case errors.Is(err, errBadRequest):
		return CodeBadRequest
	case errors.Is(err, errUnknownMethod):
		return CodeUnknownMethod
	default:
		return CodeInternal
	}
}
