package endpoint

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/golang/glog"

	"github.com/bringyour/remoteview/protocol"
)

// The observer side. Dials the probe and reconnects until closed.
// Registered objects get an address when the probe announces their name
// and lose it on disconnect.
type Observer struct {
	*Endpoint

	url        string
	observerId protocol.ObjectAddress
}

func Dial(ctx context.Context, url string, settings *Settings) *Observer {
	observer := &Observer{
		Endpoint:   newEndpoint(ctx, RoleObserver, settings),
		url:        url,
		observerId: protocol.NewObjectAddress(),
	}
	go observer.run()
	go observer.runConnect()
	return observer
}

func (self *Observer) ObserverId() protocol.ObjectAddress {
	return self.observerId
}

func (self *Observer) runConnect() {
	defer self.cancel()

	for {
		reconnect := NewReconnect(self.settings.ReconnectTimeout)

		var ws *websocket.Conn
		var err error
		if glog.V(2) {
			ws, err = TraceWithReturnError(fmt.Sprintf("[e]connect %s", self.url), self.connect)
		} else {
			ws, err = self.connect()
		}
		if err != nil {
			glog.Infof("[e]connect error %s = %s\n", self.url, err)
		} else {
			conn := newConnection(self.ctx, self.url, self.settings)
			accepted := false
			if self.Invoke(func() {
				accepted = self.connected(conn)
			}) && accepted {
				self.runConnection(ws, conn)
				self.Post(func() {
					self.disconnected(conn)
				})
			}
			conn.cancel()
			ws.Close()
			reconnect = NewReconnect(self.settings.ReconnectTimeout)
		}

		select {
		case <-self.ctx.Done():
			return
		case <-reconnect.After():
		}
	}
}

func (self *Observer) connect() (*websocket.Conn, error) {
	dialer := &websocket.Dialer{
		HandshakeTimeout: self.settings.HandshakeTimeout,
	}
	ws, _, err := dialer.DialContext(self.ctx, self.url, nil)
	if err != nil {
		return nil, err
	}

	success := false
	defer func() {
		if !success {
			ws.Close()
		}
	}()

	if 0 < len(self.settings.AuthSecret) {
		token, err := NewAuthToken(self.settings.AuthSecret, self.observerId, self.settings.AuthTokenTtl)
		if err != nil {
			return nil, err
		}
		authBytes := []byte(token)

		ws.SetWriteDeadline(time.Now().Add(self.settings.AuthTimeout))
		if err := ws.WriteMessage(websocket.BinaryMessage, authBytes); err != nil {
			return nil, err
		}
		ws.SetReadDeadline(time.Now().Add(self.settings.AuthTimeout))
		if messageType, message, err := ws.ReadMessage(); err != nil {
			return nil, err
		} else {
			// verify the auth echo
			switch messageType {
			case websocket.BinaryMessage:
				if !bytes.Equal(authBytes, message) {
					return nil, fmt.Errorf("%w: bad echo", ErrAuth)
				}
			default:
				return nil, fmt.Errorf("%w: bad echo type %d", ErrAuth, messageType)
			}
		}
	}

	success = true
	return ws, nil
}
