package endpoint

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/golang/glog"
)

// The probe side. Objects registered here get their addresses immediately
// and are announced to each observer that connects. One observer at a time.
type Probe struct {
	*Endpoint

	upgrader websocket.Upgrader
}

func NewProbe(ctx context.Context, settings *Settings) *Probe {
	probe := &Probe{
		Endpoint: newEndpoint(ctx, RoleProbe, settings),
		upgrader: websocket.Upgrader{
			HandshakeTimeout: settings.HandshakeTimeout,
		},
	}
	go probe.run()
	return probe
}

func (self *Probe) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	busy := false
	if !self.Invoke(func() {
		busy = self.conn != nil
	}) {
		http.Error(w, "Closed", http.StatusServiceUnavailable)
		return
	}
	if busy {
		http.Error(w, "An observer is already connected", http.StatusConflict)
		return
	}

	ws, err := self.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader wrote the response
		glog.Infof("[e]upgrade error %s = %s\n", r.RemoteAddr, err)
		return
	}
	defer ws.Close()

	if 0 < len(self.settings.AuthSecret) {
		if err := self.authenticate(ws); err != nil {
			glog.Infof("[e]auth error %s = %s\n", r.RemoteAddr, err)
			return
		}
	}

	conn := newConnection(self.ctx, r.RemoteAddr, self.settings)
	defer conn.cancel()

	accepted := false
	if !self.Invoke(func() {
		accepted = self.connected(conn)
	}) {
		return
	}
	if !accepted {
		glog.Infof("[e]busy %s\n", r.RemoteAddr)
		return
	}

	c := func() {
		self.runConnection(ws, conn)
	}
	if glog.V(2) {
		Trace(fmt.Sprintf("[e]connect run %s", r.RemoteAddr), c)
	} else {
		c()
	}
	self.Post(func() {
		self.disconnected(conn)
	})
}

// verifies the token and echoes it back
func (self *Probe) authenticate(ws *websocket.Conn) error {
	ws.SetReadDeadline(time.Now().Add(self.settings.AuthTimeout))
	messageType, message, err := ws.ReadMessage()
	if err != nil {
		return err
	}
	if messageType != websocket.BinaryMessage {
		return fmt.Errorf("%w: bad message type %d", ErrAuth, messageType)
	}
	claims, err := VerifyAuthToken(self.settings.AuthSecret, string(message))
	if err != nil {
		return err
	}
	glog.V(1).Infof("[e]auth observer %s\n", claims.ObserverId)

	ws.SetWriteDeadline(time.Now().Add(self.settings.AuthTimeout))
	return ws.WriteMessage(websocket.BinaryMessage, message)
}
