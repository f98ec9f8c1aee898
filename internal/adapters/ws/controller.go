package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ToadySP/MountainOfSpirits/internal/app"
	"github.com/ToadySP/MountainOfSpirits/internal/config"
)

// Controller terminates websocket connections and translates inbound
// commands into orchestrator calls. It owns no room state.
type Controller struct {
	Orch    *app.Orchestrator
	Limiter *RateLimiter

	readLimit  int64
	pingPeriod time.Duration
}

func NewController(orch *app.Orchestrator, cfg *config.Config) *Controller {
	return &Controller{
		Orch:       orch,
		Limiter:    NewRateLimiter(cfg.RateLimit, cfg.RateWindow),
		readLimit:  cfg.ReadLimit,
		pingPeriod: cfg.PingPeriod,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWS upgrades the request, binds a session and starts the pumps.
func (ctl *Controller) HandleWS(ctx context.Context, c *gin.Context) {
	token := c.GetString("client_token")
	wsConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("upgrade failed")
		return
	}

	wsConn.SetReadLimit(ctl.readLimit)
	readDeadline := ctl.pingPeriod + 10*time.Second
	_ = wsConn.SetReadDeadline(time.Now().Add(readDeadline))
	wsConn.SetPongHandler(func(string) error {
		return wsConn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	conn := newConn(wsConn)
	sess := newSession(ctl.Orch.Registry.NextID(), conn)
	ctx, cancel := context.WithCancel(ctx)
	// Closing the socket is what actually unblocks readPump, so a
	// cancelled context must reach it.
	context.AfterFunc(ctx, conn.Close)
	ctl.Orch.Registry.Bind(sess, cancel)
	log.Info().Str("module", "ws").Str("token", token).Int("sid", int(sess.ID())).Msg("new connection")

	go conn.writePump(ctx, ctl.pingPeriod)
	go ctl.readPump(ctx, sess, conn)

	ctl.Orch.Attach(sess)
}

func (ctl *Controller) handleMessage(sess *session, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad json")
		ctl.sendError(sess, "bad_payload")
		return
	}
	if env.Type != "ping" && !ctl.Limiter.Allow(sess.ID()) {
		ctl.sendError(sess, "slow down")
		return
	}

	switch env.Type {
	case "ping":
		ctl.sendJSON(sess, map[string]any{"type": "pong"})
	case "whoami":
		ctl.handleWhoAmI(sess)
	case "rename":
		ctl.handleRename(sess, data)
	case "enter":
		ctl.handleEnter(sess, data)
	case "say":
		ctl.handleSay(sess, data)
	case "create_area":
		ctl.handleCreateArea(sess, data)
	case "destroy_area":
		ctl.handleDestroyArea(sess, data)
	case "clear_hub":
		ctl.handleClearHub(sess)
	case "connect":
		ctl.handleConnect(sess, data)
	case "disconnect_area":
		ctl.handleDisconnect(sess, data)
	case "clear_connections":
		ctl.handleClearConnections(sess)
	case "lock":
		ctl.handleLock(sess, data)
	case "unlock":
		ctl.handleUnlock(sess)
	case "spectatable":
		ctl.handleSpectatable(sess)
	case "password":
		ctl.handlePassword(sess, data)
	case "invite":
		ctl.handleInvite(sess, data)
	case "uninvite":
		ctl.handleUninvite(sess, data)
	case "uninvite_all":
		ctl.handleUninviteAll(sess)
	case "cm":
		ctl.handleCM(sess, data)
	case "uncm":
		ctl.handleUnCM(sess, data)
	case "status":
		ctl.handleStatus(sess, data)
	case "hub_status":
		ctl.handleHubStatus(sess, data)
	case "hide":
		ctl.handleHide(sess, true)
	case "unhide":
		ctl.handleHide(sess, false)
	case "alarm":
		ctl.handleAlarm(sess, data)
	default:
		log.Warn().Str("module", "ws").Str("type", env.Type).Msg("unknown message")
		ctl.sendError(sess, "unknown message type")
	}
}

func (ctl *Controller) sendJSON(sess *session, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("sendJSON marshal")
		return
	}
	_ = sess.conn.TrySend(b)
}

func (ctl *Controller) sendError(sess *session, msg string) {
	ctl.sendJSON(sess, map[string]any{"type": "error", "error": msg})
}
