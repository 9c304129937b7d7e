// The endpoint connects a probe and an observer and routes messages between
// the objects registered on each side.
//
// All endpoint state is owned by one event loop goroutine. Inbound messages,
// connection changes and any work passed to `Post` or `Invoke` run on the loop
// in order, one at a time. Objects are only ever called on the loop, and the
// state methods (`RegisterObject`, `Send`, `IsConnected`, ...) must only be
// called from the loop.
package endpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/golang/glog"

	"github.com/bringyour/remoteview/protocol"
)

var ErrUnknownAddress = errors.New("Unknown object address")
var ErrDuplicateObject = errors.New("Object name already registered")

type Role int

const (
	RoleProbe Role = iota
	RoleObserver
)

func (self Role) String() string {
	switch self {
	case RoleProbe:
		return "probe"
	case RoleObserver:
		return "observer"
	default:
		return fmt.Sprintf("Role(%d)", int(self))
	}
}

// An addressable object on one side of the connection.
// All calls are made on the event loop.
type Object interface {
	ObjectName() string
	// `protocol.InvalidObjectAddress` when the object is not reachable
	SetObjectAddress(address protocol.ObjectAddress)
	// an error is a protocol violation and closes the connection
	HandleMessage(message *protocol.Message) error
}

type Settings struct {
	HandshakeTimeout time.Duration
	AuthTimeout      time.Duration
	ReconnectTimeout time.Duration
	PingTimeout      time.Duration
	WriteTimeout     time.Duration
	// must be longer than the peer ping timeout
	ReadTimeout     time.Duration
	SendBufferSize  int
	EventBufferSize int
	// when set, the observer must present an HS256 token signed with this secret
	AuthSecret   []byte
	AuthTokenTtl time.Duration
}

func DefaultSettings() *Settings {
	return &Settings{
		HandshakeTimeout: 2 * time.Second,
		AuthTimeout:      2 * time.Second,
		ReconnectTimeout: 5 * time.Second,
		PingTimeout:      1 * time.Second,
		WriteTimeout:     5 * time.Second,
		ReadTimeout:      15 * time.Second,
		SendBufferSize:   32,
		EventBufferSize:  32,
		AuthTokenTtl:     1 * time.Minute,
	}
}

type Endpoint struct {
	ctx    context.Context
	cancel context.CancelFunc

	role     Role
	settings *Settings

	events chan func()

	// loop state

	conn *connection

	objects map[string]Object
	// on the probe, addresses assigned at registration
	// on the observer, addresses announced by the probe
	objectAddresses map[string]protocol.ObjectAddress
	objectNames     map[protocol.ObjectAddress]string
	// probe only. addresses the observer asked for on this connection
	monitored map[protocol.ObjectAddress]bool
	// probe only. addresses unregistered on this connection. the observer may
	// still have messages in flight to them
	retired map[protocol.ObjectAddress]bool
}

func newEndpoint(ctx context.Context, role Role, settings *Settings) *Endpoint {
	cancelCtx, cancel := context.WithCancel(ctx)
	return &Endpoint{
		ctx:             cancelCtx,
		cancel:          cancel,
		role:            role,
		settings:        settings,
		events:          make(chan func(), settings.EventBufferSize),
		objects:         map[string]Object{},
		objectAddresses: map[string]protocol.ObjectAddress{},
		objectNames:     map[protocol.ObjectAddress]string{},
		monitored:       map[protocol.ObjectAddress]bool{},
		retired:         map[protocol.ObjectAddress]bool{},
	}
}

func (self *Endpoint) Role() Role {
	return self.role
}

func (self *Endpoint) Done() <-chan struct{} {
	return self.ctx.Done()
}

func (self *Endpoint) Close() {
	self.cancel()
}

func (self *Endpoint) run() {
	defer func() {
		if self.conn != nil {
			self.conn.cancel()
			self.disconnected(self.conn)
		}
	}()

	for {
		select {
		case <-self.ctx.Done():
			return
		case event := <-self.events:
			HandleError(event)
		}
	}
}

// Queues `event` on the loop. Returns false if the endpoint is closed.
func (self *Endpoint) Post(event func()) bool {
	if self.ctx.Err() != nil {
		return false
	}
	select {
	case <-self.ctx.Done():
		return false
	case self.events <- event:
		return true
	}
}

// Runs `event` on the loop and waits for it to finish.
// Must not be called from the loop.
func (self *Endpoint) Invoke(event func()) bool {
	done := make(chan struct{})
	posted := self.Post(func() {
		defer close(done)
		event()
	})
	if !posted {
		return false
	}
	select {
	case <-self.ctx.Done():
		return false
	case <-done:
		return true
	}
}

func (self *Endpoint) IsConnected() bool {
	return self.conn != nil
}

func (self *Endpoint) RegisterObject(object Object) error {
	name := object.ObjectName()
	if _, ok := self.objects[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateObject, name)
	}
	self.objects[name] = object

	switch self.role {
	case RoleProbe:
		address := protocol.NewObjectAddress()
		self.objectAddresses[name] = address
		self.objectNames[address] = name
		object.SetObjectAddress(address)
		if self.conn != nil {
			self.sendObjectAdded(name, address)
		}
	case RoleObserver:
		if address, ok := self.objectAddresses[name]; ok {
			self.monitorObject(object, address)
		}
	}
	glog.V(1).Infof("[e]%s register %s\n", self.role, name)
	return nil
}

func (self *Endpoint) UnregisterObject(name string) {
	object, ok := self.objects[name]
	if !ok {
		return
	}
	delete(self.objects, name)
	object.SetObjectAddress(protocol.InvalidObjectAddress)

	switch self.role {
	case RoleProbe:
		address := self.objectAddresses[name]
		delete(self.objectAddresses, name)
		delete(self.objectNames, address)
		delete(self.monitored, address)
		if self.conn != nil {
			self.retired[address] = true
			message := protocol.NewMessage(protocol.EndpointAddress, protocol.MessageTypeObjectRemoved)
			message.Payload().WriteString(name)
			self.Send(message)
		}
	case RoleObserver:
		// the announced address is kept so the name can be registered again
		if address, ok := self.objectAddresses[name]; ok && self.conn != nil {
			message := protocol.NewMessage(protocol.EndpointAddress, protocol.MessageTypeObjectUnmonitored)
			message.Payload().WriteObjectAddress(address)
			self.Send(message)
		}
	}
	glog.V(1).Infof("[e]%s unregister %s\n", self.role, name)
}

// registered object names in order
func (self *Endpoint) ObjectNames() []string {
	names := maps.Keys(self.objects)
	slices.Sort(names)
	return names
}

func (self *Endpoint) Send(message *protocol.Message) {
	conn := self.conn
	if conn == nil {
		glog.V(2).Infof("[es]drop %s (not connected)\n", message)
		return
	}
	if self.role == RoleProbe && message.Address != protocol.EndpointAddress && !self.monitored[message.Address] {
		glog.V(2).Infof("[es]drop %s (not monitored)\n", message)
		return
	}

	b, err := protocol.EncodeFrame(message)
	if err != nil {
		glog.Infof("[es]encode error %s = %s\n", message, err)
		return
	}

	select {
	case conn.send <- b:
		glog.V(2).Infof("[es]%s->%s\n", message, conn.peer)
	case <-conn.ctx.Done():
	case <-time.After(self.settings.WriteTimeout):
		self.closeConnection(conn, fmt.Errorf("send timeout"))
	}
}

func (self *Endpoint) sendObjectAdded(name string, address protocol.ObjectAddress) {
	message := protocol.NewMessage(protocol.EndpointAddress, protocol.MessageTypeObjectAdded)
	message.Payload().WriteString(name)
	message.Payload().WriteObjectAddress(address)
	self.Send(message)
}

func (self *Endpoint) monitorObject(object Object, address protocol.ObjectAddress) {
	object.SetObjectAddress(address)
	message := protocol.NewMessage(protocol.EndpointAddress, protocol.MessageTypeObjectMonitored)
	message.Payload().WriteObjectAddress(address)
	self.Send(message)
}

// loop. returns false if another connection is active
func (self *Endpoint) connected(conn *connection) bool {
	if self.conn != nil {
		return false
	}
	self.conn = conn
	glog.Infof("[e]%s connected %s\n", self.role, conn.peer)

	if self.role == RoleProbe {
		names := maps.Keys(self.objectAddresses)
		slices.Sort(names)
		for _, name := range names {
			self.sendObjectAdded(name, self.objectAddresses[name])
		}
	}
	return true
}

// loop
func (self *Endpoint) disconnected(conn *connection) {
	if self.conn != conn {
		return
	}
	self.conn = nil
	glog.Infof("[e]%s disconnected %s\n", self.role, conn.peer)

	switch self.role {
	case RoleProbe:
		clear(self.monitored)
		clear(self.retired)
	case RoleObserver:
		// announced addresses are only valid for one connection
		clear(self.objectAddresses)
		clear(self.objectNames)
		for _, object := range self.objects {
			object.SetObjectAddress(protocol.InvalidObjectAddress)
		}
	}
}

// loop
func (self *Endpoint) closeConnection(conn *connection, err error) {
	glog.Infof("[e]%s close %s = %s\n", self.role, conn.peer, err)
	conn.cancel()
	self.disconnected(conn)
}

// loop
func (self *Endpoint) receive(conn *connection, b []byte) {
	if self.conn != conn {
		// stale
		return
	}

	message, err := protocol.DecodeFrame(b)
	if err != nil {
		self.closeConnection(conn, err)
		return
	}
	glog.V(2).Infof("[er]%s<-%s\n", message, conn.peer)

	if message.Address == protocol.EndpointAddress {
		err = self.handleControl(message)
	} else if name, ok := self.objectNames[message.Address]; !ok {
		if self.retired[message.Address] {
			glog.V(2).Infof("[er]drop %s (unregistered)\n", message)
		} else {
			err = fmt.Errorf("%w: %s", ErrUnknownAddress, message)
		}
	} else if object, ok := self.objects[name]; !ok {
		// sent before the peer saw the unregister
		glog.V(2).Infof("[er]drop %s (%s unregistered)\n", message, name)
	} else {
		err = object.HandleMessage(message)
	}
	if err != nil {
		self.closeConnection(conn, err)
	}
}

func (self *Endpoint) handleControl(message *protocol.Message) error {
	payload := message.Payload()
	switch self.role {
	case RoleProbe:
		switch message.Type {
		case protocol.MessageTypeObjectMonitored:
			address := payload.ReadObjectAddress()
			if err := payload.Err(); err != nil {
				return err
			}
			if _, ok := self.objectNames[address]; ok {
				self.monitored[address] = true
			}
			// else unregistered while the request was in flight
			return nil
		case protocol.MessageTypeObjectUnmonitored:
			address := payload.ReadObjectAddress()
			if err := payload.Err(); err != nil {
				return err
			}
			delete(self.monitored, address)
			return nil
		}
	case RoleObserver:
		switch message.Type {
		case protocol.MessageTypeObjectAdded:
			name := payload.ReadString()
			address := payload.ReadObjectAddress()
			if err := payload.Err(); err != nil {
				return err
			}
			if previous, ok := self.objectAddresses[name]; ok {
				delete(self.objectNames, previous)
			}
			self.objectAddresses[name] = address
			self.objectNames[address] = name
			if object, ok := self.objects[name]; ok {
				self.monitorObject(object, address)
			}
			return nil
		case protocol.MessageTypeObjectRemoved:
			name := payload.ReadString()
			if err := payload.Err(); err != nil {
				return err
			}
			if address, ok := self.objectAddresses[name]; ok {
				delete(self.objectAddresses, name)
				delete(self.objectNames, address)
			}
			if object, ok := self.objects[name]; ok {
				object.SetObjectAddress(protocol.InvalidObjectAddress)
			}
			return nil
		}
	}
	return fmt.Errorf("Unexpected endpoint message %s for %s", message.Type, self.role)
}
