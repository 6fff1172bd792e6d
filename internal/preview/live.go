package preview

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/livedoc-dev/livedoc/internal/metrics"
)

// MessageType represents the type of live-update message.
type MessageType string

const (
	TypeUpdate MessageType = "update"
	TypeError  MessageType = "error"
	TypeClear  MessageType = "clear"
)

// Message is sent to the browser via WebSocket. AssetBase carries the
// session-scoped URL prefix that relative asset links resolve against.
type Message struct {
	Type      MessageType `json:"type"`
	HTML      string      `json:"html,omitempty"`
	Error     string      `json:"error,omitempty"`
	AssetBase string      `json:"assetBase,omitempty"`
}

// liveConn wraps one browser WebSocket connection with a write lock.
type liveConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *liveConn) send(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *liveConn) close() {
	c.conn.Close()
}

// newUpgrader returns the WebSocket upgrader used for live connections.
// The preview server only ever binds locally, so all origins pass.
func newUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// readUntilClosed blocks until the client disconnects, keeping the
// client-count metrics in step.
func (c *liveConn) readUntilClosed() {
	metrics.RecordClientConnect()
	defer metrics.RecordClientDisconnect()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// LiveClientScript is the JavaScript injected into the shell page. It
// connects to the live endpoint, swaps the rendered document into the
// output slot on update, and shows an error overlay on render failure.
const LiveClientScript = `
<script>
(function() {
    'use strict';

    var reconnectDelay = 1000;
    var maxReconnectDelay = 30000;
    var ws = null;

    function connect() {
        var protocol = location.protocol === 'https:' ? 'wss:' : 'ws:';
        ws = new WebSocket(protocol + '//' + location.host + '/_livedoc/live');

        ws.onopen = function() {
            console.log('[livedoc] Live preview connected');
            reconnectDelay = 1000;
            clearErrorOverlay();
        };

        ws.onmessage = function(e) {
            var msg;
            try {
                msg = JSON.parse(e.data);
            } catch (err) {
                return;
            }

            switch (msg.type) {
                case 'update':
                    if (msg.assetBase) {
                        setAssetBase(msg.assetBase);
                    }
                    document.getElementById('livedoc-output').innerHTML = msg.html;
                    clearErrorOverlay();
                    break;

                case 'error':
                    console.error('[livedoc] Render error:', msg.error);
                    showErrorOverlay(msg.error);
                    break;

                case 'clear':
                    clearErrorOverlay();
                    break;
            }
        };

        ws.onclose = function() {
            setTimeout(function() {
                reconnectDelay = Math.min(reconnectDelay * 2, maxReconnectDelay);
                connect();
            }, reconnectDelay);
        };

        ws.onerror = function() {
            ws.close();
        };
    }

    function setAssetBase(href) {
        var base = document.getElementById('livedoc-base');
        if (!base) {
            base = document.createElement('base');
            base.id = 'livedoc-base';
            document.head.appendChild(base);
        }
        base.href = href;
    }

    function showErrorOverlay(error) {
        clearErrorOverlay();

        var overlay = document.createElement('div');
        overlay.id = 'livedoc-error-overlay';
        overlay.style.cssText = 'position:fixed;top:0;left:0;right:0;bottom:0;background:rgba(0,0,0,0.9);color:#fff;font-family:monospace;font-size:14px;padding:20px;overflow:auto;z-index:999999;';

        var pre = document.createElement('pre');
        pre.style.cssText = 'white-space:pre-wrap;word-wrap:break-word;background:#1a1a1a;padding:20px;border-radius:8px;border:1px solid #333;';
        pre.textContent = error;

        var title = document.createElement('h2');
        title.style.cssText = 'color:#ff5555;margin:0 0 20px;';
        title.textContent = 'Render Error';

        var hint = document.createElement('p');
        hint.style.cssText = 'margin-top:20px;color:#888;';
        hint.textContent = 'Fix the document and save to re-render.';

        overlay.appendChild(title);
        overlay.appendChild(pre);
        overlay.appendChild(hint);
        document.body.appendChild(overlay);
    }

    function clearErrorOverlay() {
        var overlay = document.getElementById('livedoc-error-overlay');
        if (overlay) {
            overlay.remove();
        }
    }

    if (document.readyState === 'loading') {
        document.addEventListener('DOMContentLoaded', connect);
    } else {
        connect();
    }
})();
</script>
`
