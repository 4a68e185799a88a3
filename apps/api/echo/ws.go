package echoapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/lobby"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// auth is JWT-based; the browser origin is not part of the trust model
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsCommand is the inbound wire envelope, mirroring lobby.Event.
type wsCommand struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// client is one websocket connection. It satisfies lobby.Conn: Send only
// enqueues, the writePump owns all socket writes.
type client struct {
	userID   string
	username string
	ws       *websocket.Conn
	send     chan lobby.Event

	closeOnce sync.Once
	done      chan struct{}
}

var _ lobby.Conn = (*client)(nil)

func (c *client) Send(evt lobby.Event) bool {
	select {
	case <-c.done:
		return false
	case c.send <- evt:
		return true
	default:
		return false
	}
}

func (c *client) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		case evt := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(evt); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type wsHandler struct {
	conf   *core.Config
	logger core.Logger
	svc    *lobby.Service
}

func newWSHandler(conf *core.Config, logger core.Logger, svc *lobby.Service) echo.HandlerFunc {
	h := &wsHandler{conf: conf, logger: logger, svc: svc}
	return h.handle
}

func (h *wsHandler) handle(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	ws, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return errors.Wrap(err, "upgrading connection")
	}

	c := &client{
		userID:   claims.Subject,
		username: claims.Username,
		ws:       ws,
		send:     make(chan lobby.Event, h.conf.Lobby.SendQueueSize),
		done:     make(chan struct{}),
	}

	// a reconnect supersedes the previous handle; membership is untouched
	if replaced := h.svc.Registry().Register(c.userID, c); replaced != nil {
		h.svc.Router().Unsubscribe(replaced)
		_ = replaced.Close()
	}
	h.svc.Router().Subscribe(c)
	c.Send(h.svc.Snapshot())

	go c.writePump()
	h.readPump(c)

	h.svc.Router().Unsubscribe(c)
	h.svc.Registry().Unregister(c.userID, c)
	_ = c.Close()
	return nil
}

func (h *wsHandler) readPump(c *client) {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error { return c.ws.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug(fmt.Sprintf("ws: read: %v", err))
			}
			return
		}

		var cmd wsCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			c.Send(commandError(errors.New("malformed command")))
			continue
		}
		if err := h.dispatch(c, cmd); err != nil {
			c.Send(h.commandErrorChecked(err))
		}
	}
}

// dispatch routes one inbound command to the coordination service. It returns
// an error for a reply to the origin connection only; broadcasts happen inside
// the service.
func (h *wsHandler) dispatch(c *client, cmd wsCommand) error {
	ctx := context.Background()

	switch cmd.Event {
	case lobby.CmdCreateLobby:
		var data lobby.CreateLobby
		if err := decode(cmd.Data, &data); err != nil {
			return err
		}
		_, err := h.svc.Create(ctx, c.userID, data)
		return err

	case lobby.CmdJoinLobby:
		var data lobby.JoinLobby
		if err := decode(cmd.Data, &data); err != nil {
			return err
		}
		if data.Username == "" {
			data.Username = c.username
		}
		_, err := h.svc.Join(ctx, c.userID, data)
		return err

	case lobby.CmdLeaveLobby:
		var data lobby.LeaveLobby
		if err := decode(cmd.Data, &data); err != nil {
			return err
		}
		return h.svc.Leave(ctx, c.userID, data)

	case lobby.CmdStartQuiz:
		var data lobby.StartQuiz
		if err := decode(cmd.Data, &data); err != nil {
			return err
		}
		_, err := h.svc.Start(ctx, c.userID, data)
		return err

	case lobby.CmdEndQuiz:
		var data lobby.EndQuiz
		if err := decode(cmd.Data, &data); err != nil {
			return err
		}
		_, err := h.svc.End(ctx, c.userID, data)
		return err

	case lobby.CmdDeleteLobby:
		var data lobby.DeleteLobby
		if err := decode(cmd.Data, &data); err != nil {
			return err
		}
		return h.svc.Delete(ctx, c.userID, data)

	case lobby.CmdUpdateBank:
		var data lobby.UpdateBank
		if err := decode(cmd.Data, &data); err != nil {
			return err
		}
		_, err := h.svc.SetBank(ctx, c.userID, data)
		return err

	case lobby.CmdSubmitGrade:
		var data lobby.SubmitGrade
		if err := decode(cmd.Data, &data); err != nil {
			return err
		}
		return h.svc.SubmitGrade(ctx, c.userID, data)
	}

	return core.NewValidationError(errors.Errorf("unknown command %q", cmd.Event))
}

// decode unmarshals a command payload and runs its validators.
func decode(raw json.RawMessage, data interface{ Validate() error }) error {
	if len(raw) == 0 {
		return core.NewValidationError(errors.New("missing command data"))
	}
	if err := json.Unmarshal(raw, data); err != nil {
		return core.NewValidationError(errors.New("malformed command data"))
	}
	return data.Validate()
}

// commandError wraps an error into the error event sent back to the origin.
func commandError(err error) lobby.Event {
	return lobby.Event{Event: lobby.EvtJoinError, Data: lobby.JoinError{Message: err.Error()}}
}

// commandErrorChecked hides internals: domain and validation errors pass
// through verbatim, anything else is logged and masked.
func (h *wsHandler) commandErrorChecked(err error) lobby.Event {
	cause := errors.Cause(err)

	if vErr, ok := cause.(*core.ValidationError); ok {
		data := lobby.JoinError{Message: vErr.Error()}
		if vErr.Fields != nil {
			data.Fields = make(map[string]string, len(vErr.Fields))
			for _, fErr := range vErr.Fields {
				data.Fields[fErr.Field] = fErr.Error
			}
		}
		return lobby.Event{Event: lobby.EvtJoinError, Data: data}
	}
	if statusForDomainErr(cause) != 0 {
		return commandError(cause)
	}

	h.logger.Error("ws: dispatching command", err)
	return commandError(errors.New("internal error"))
}
