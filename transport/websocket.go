// Package transport implements the two concrete WAMP transports of spec.md
// §4.8: WebSocket subprotocol negotiation and framed TCP ("rawsocket").
// Both produce a wamp.Peer for the router core to Attach, so router never
// depends on either transport's details beyond that interface.
package transport

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rexlunae/tornwamp/wamp"
	"github.com/rexlunae/tornwamp/wamp/serialize"
)

// Subprotocol strings from spec.md §6.
const (
	SubprotocolJSON    = "wamp.2.json"
	SubprotocolMsgpack = "wamp.2.msgpack"
)

// Upgrader wraps gorilla/websocket's Upgrader with the subprotocol
// negotiation of spec.md §4.8's select_subprotocol: prefer the server's
// configured PreferredProtocol, fall back to JSON, reject anything else.
type Upgrader struct {
	PreferredProtocol string // SubprotocolMsgpack by default, per spec.md §4.8
	upgrader          websocket.Upgrader
}

// NewUpgrader returns an Upgrader defaulting to MessagePack as preferred
// protocol, matching spec.md §4.8: "binary MessagePack by default."
func NewUpgrader() *Upgrader {
	u := &Upgrader{
		PreferredProtocol: SubprotocolMsgpack,
	}
	u.upgrader = websocket.Upgrader{
		Subprotocols:    []string{SubprotocolMsgpack, SubprotocolJSON},
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
	return u
}

// selectSubprotocol implements spec.md §4.8's select_subprotocol: it
// inspects the client's offered subprotocols and returns the negotiated
// one, preferring u.PreferredProtocol, falling back to JSON, and failing
// if the client offered neither.
func (u *Upgrader) selectSubprotocol(offered []string) (string, error) {
	has := make(map[string]bool, len(offered))
	for _, p := range offered {
		has[p] = true
	}
	if has[u.PreferredProtocol] {
		return u.PreferredProtocol, nil
	}
	if has[SubprotocolJSON] {
		return SubprotocolJSON, nil
	}
	return "", fmt.Errorf("no supported WAMP subprotocol offered (got %v)", offered)
}

// Upgrade upgrades an HTTP connection to a WebSocket wamp.Peer. The
// subprotocol is chosen by selectSubprotocol, which fails fast with a
// WAMP-shaped error when the client offers nothing supported; the chosen
// protocol is the only one handed to gorilla/websocket's own Upgrade, and
// the peer's serializer follows from it.
func (u *Upgrader) Upgrade(w http.ResponseWriter, r *http.Request) (wamp.Peer, error) {
	selected, err := u.selectSubprotocol(websocket.Subprotocols(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, err
	}
	up := u.upgrader
	up.Subprotocols = []string{selected}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	proto := conn.Subprotocol()
	if proto == "" {
		proto = u.PreferredProtocol
	}
	ser, messageType := serializerFor(proto)
	p := newWsPeer(conn, ser, messageType)
	go p.readLoop()
	return p, nil
}

// serializerFor returns the serialize.Serializer and gorilla/websocket
// frame type (Text for JSON, Binary for MessagePack) for a negotiated
// subprotocol.
func serializerFor(subprotocol string) (serialize.Serializer, int) {
	if subprotocol == SubprotocolJSON {
		return &serialize.JSONSerializer{}, websocket.TextMessage
	}
	return &serialize.MsgpackSerializer{}, websocket.BinaryMessage
}

// wsPeer adapts a *websocket.Conn to wamp.Peer.
type wsPeer struct {
	conn        *websocket.Conn
	ser         serialize.Serializer
	messageType int
	in          chan wamp.Message
	closed      chan struct{}
}

func newWsPeer(conn *websocket.Conn, ser serialize.Serializer, messageType int) *wsPeer {
	return &wsPeer{
		conn:        conn,
		ser:         ser,
		messageType: messageType,
		in:          make(chan wamp.Message, 64),
		closed:      make(chan struct{}),
	}
}

func (p *wsPeer) Send(msg wamp.Message) error {
	data, err := p.ser.Serialize(msg)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", msg.MessageType(), err)
	}
	p.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return p.conn.WriteMessage(p.messageType, data)
}

func (p *wsPeer) Recv() <-chan wamp.Message { return p.in }

func (p *wsPeer) Close() error {
	select {
	case <-p.closed:
		return nil
	default:
		close(p.closed)
	}
	return p.conn.Close()
}

// readLoop decodes inbound frames and feeds p.in, closing it on any read
// error or close frame — the router's session dispatch loop treats a
// closed Recv channel as the session ending (spec.md §4.8).
func (p *wsPeer) readLoop() {
	defer close(p.in)
	for {
		kind, data, err := p.conn.ReadMessage()
		if err != nil {
			return
		}
		if kind == websocket.PingMessage || kind == websocket.PongMessage {
			continue
		}
		msg, err := p.ser.Deserialize(data)
		if err != nil {
			continue
		}
		select {
		case p.in <- msg:
		case <-p.closed:
			return
		}
	}
}
