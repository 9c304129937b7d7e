package endpoint

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/golang/glog"
)

// One websocket session. Frames are queued on `send` by the loop.
type connection struct {
	ctx    context.Context
	cancel context.CancelFunc
	peer   string
	send   chan []byte
}

func newConnection(ctx context.Context, peer string, settings *Settings) *connection {
	cancelCtx, cancel := context.WithCancel(ctx)
	return &connection{
		ctx:    cancelCtx,
		cancel: cancel,
		peer:   peer,
		send:   make(chan []byte, settings.SendBufferSize),
	}
}

// Pumps frames between `ws` and the loop until either side closes.
// Each inbound binary message is one frame. An empty message is a ping.
func (self *Endpoint) runConnection(ws *websocket.Conn, conn *connection) {
	defer conn.cancel()

	go func() {
		defer conn.cancel()

		for {
			select {
			case <-conn.ctx.Done():
				return
			case message := <-conn.send:
				ws.SetWriteDeadline(time.Now().Add(self.settings.WriteTimeout))
				if err := ws.WriteMessage(websocket.BinaryMessage, message); err != nil {
					// note that for websocket a dealine timeout cannot be recovered
					glog.Infof("[es]%s-> error = %s\n", conn.peer, err)
					return
				}
			case <-time.After(self.settings.PingTimeout):
				ws.SetWriteDeadline(time.Now().Add(self.settings.WriteTimeout))
				if err := ws.WriteMessage(websocket.BinaryMessage, make([]byte, 0)); err != nil {
					return
				}
			}
		}
	}()

	go func() {
		defer conn.cancel()

		for {
			select {
			case <-conn.ctx.Done():
				return
			default:
			}

			ws.SetReadDeadline(time.Now().Add(self.settings.ReadTimeout))
			messageType, message, err := ws.ReadMessage()
			if err != nil {
				glog.Infof("[er]%s<- error = %s\n", conn.peer, err)
				return
			}

			switch messageType {
			case websocket.BinaryMessage:
				if 0 == len(message) {
					// ping
					glog.V(2).Infof("[er]ping %s<-\n", conn.peer)
					continue
				}
				if !self.Post(func() {
					self.receive(conn, message)
				}) {
					return
				}
			default:
				glog.V(2).Infof("[er]other=%d %s<-\n", messageType, conn.peer)
			}
		}
	}()

	<-conn.ctx.Done()
	// unblock the reader
	ws.Close()
}
