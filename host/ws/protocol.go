// Package ws carries the host bridge over a websocket.
//
// Every frame is a JSON text message. The client sends requests and the server
// answers each with a response carrying the same id; responses may arrive out of order.
//
//	→ {"id":"7f0c…","method":"search_plugin","params":{"pluginId":"files","query":"readme"}}
//	← {"id":"7f0c…","result":[{"id":"readme","title":"README.md","actions":[…]}]}
package ws

import "encoding/json"

// Methods of the bridge protocol
const (
	MethodListPlugins         = "list_plugins"
	MethodGetSettings         = "get_settings"
	MethodSearchPlugin        = "search_plugin"
	MethodExecutePluginAction = "execute_plugin_action"
	MethodSetWindowShown      = "set_window_shown"
	MethodOpenSettingsWindow  = "open_settings_window"
	MethodToggleWindow        = "toggle_window"
)

// Error codes carried in Response.Code
const (
	CodeNotFound      = "not_found"
	CodeBadRequest    = "bad_request"
	CodeUnknownMethod = "unknown_method"
	CodeInternal      = "internal"
)

// Request is a client→server frame
type Request struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is a server→client frame
type Response struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
	Code   string          `json:"code,omitempty"`
}

type searchParams struct {
	PluginID string `json:"pluginId"`
	Query    string `json:"query"`
}

type executeParams struct {
	PluginID string `json:"pluginId"`
	ResultID string `json:"resultId"`
	ActionID string `json:"actionId"`
}

type windowParams struct {
	Shown bool `json:"shown"`
}
