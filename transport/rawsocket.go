package transport

import (
	"fmt"
	"io"
	"net"
	"time"

	"github.com/rexlunae/tornwamp/wamp"
	"github.com/rexlunae/tornwamp/wamp/serialize"
)

// Frame types of spec.md §4.8's post-handshake framing.
const (
	frameRegular = 0
	framePing    = 1
	framePong    = 2
)

// Handshake error codes (high nibble of a rejection reply), spec.md §7.
const (
	handshakeErrNone                = 0
	handshakeErrSerializerUnsup     = 1
	handshakeErrMessageSizeRejected = 2
	handshakeErrUnknownOption       = 3
	handshakeErrConnectionLimit     = 4
)

const handshakeMagic = 0x7F

// Serializer selectors carried in the handshake's low nibble.
const (
	serializerJSON    = 1
	serializerMsgpack = 2
)

const maxFrameLength = 0x00FFFFFF

// AcceptRawSocket performs the server side of the framed-TCP handshake of
// spec.md §4.8 on conn and, on success, returns a wamp.Peer backed by it.
// maxLength bounds the largest frame this server will send; it is not
// advertised to the client. The success reply carries error code 0 in its
// high nibble and the accepted serializer in its low nibble; no max-length
// negotiation takes place.
func AcceptRawSocket(conn net.Conn, maxLength uint32) (wamp.Peer, error) {
	if maxLength == 0 || maxLength > maxFrameLength {
		maxLength = maxFrameLength
	}
	var req [4]byte
	if _, err := io.ReadFull(conn, req[:]); err != nil {
		return nil, fmt.Errorf("rawsocket: reading handshake: %w", err)
	}
	if req[0] != handshakeMagic {
		writeHandshakeReply(conn, handshakeErrUnknownOption, 0)
		return nil, fmt.Errorf("rawsocket: bad magic byte %#x", req[0])
	}
	serializerSel := req[1] & 0x0F
	var ser serialize.Serializer
	switch serializerSel {
	case serializerJSON:
		ser = &serialize.JSONSerializer{}
	case serializerMsgpack:
		ser = &serialize.MsgpackSerializer{}
	default:
		writeHandshakeReply(conn, handshakeErrSerializerUnsup, 0)
		return nil, fmt.Errorf("rawsocket: unsupported serializer selector %#x", serializerSel)
	}
	if err := writeHandshakeReply(conn, handshakeErrNone, serializerSel); err != nil {
		return nil, err
	}
	p := newRawPeer(conn, ser, maxLength)
	go p.readLoop()
	return p, nil
}

func writeHandshakeReply(conn net.Conn, errCode, serializerSel byte) error {
	reply := [4]byte{handshakeMagic, errCode<<4 | serializerSel, 0, 0}
	_, err := conn.Write(reply[:])
	return err
}

// rawPeer adapts a net.Conn speaking the rawsocket framing to wamp.Peer.
type rawPeer struct {
	conn      net.Conn
	ser       serialize.Serializer
	maxLength uint32
	in        chan wamp.Message
	closed    chan struct{}
}

func newRawPeer(conn net.Conn, ser serialize.Serializer, maxLength uint32) *rawPeer {
	return &rawPeer{
		conn:      conn,
		ser:       ser,
		maxLength: maxLength,
		in:        make(chan wamp.Message, 64),
		closed:    make(chan struct{}),
	}
}

func (p *rawPeer) Send(msg wamp.Message) error {
	data, err := p.ser.Serialize(msg)
	if err != nil {
		return fmt.Errorf("rawsocket: encoding %s: %w", msg.MessageType(), err)
	}
	if len(data) > int(p.maxLength) {
		// Oversize outbound messages are dropped with a warning, not a
		// session close, per spec.md §4.8.
		log.Printf("rawsocket: dropping oversize outbound %s (%d bytes > max %d)",
			msg.MessageType(), len(data), p.maxLength)
		return nil
	}
	return p.writeFrame(frameRegular, data)
}

func (p *rawPeer) writeFrame(kind byte, payload []byte) error {
	var header [4]byte
	header[0] = kind
	l := uint32(len(payload))
	header[1] = byte(l >> 16)
	header[2] = byte(l >> 8)
	header[3] = byte(l)
	p.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if _, err := p.conn.Write(header[:]); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := p.conn.Write(payload)
	return err
}

func (p *rawPeer) Recv() <-chan wamp.Message { return p.in }

func (p *rawPeer) Close() error {
	select {
	case <-p.closed:
		return nil
	default:
		close(p.closed)
	}
	return p.conn.Close()
}

func (p *rawPeer) readLoop() {
	defer close(p.in)
	for {
		var header [4]byte
		if _, err := io.ReadFull(p.conn, header[:]); err != nil {
			return
		}
		kind := header[0]
		length := uint32(header[1])<<16 | uint32(header[2])<<8 | uint32(header[3])
		payload := make([]byte, length)
		if length > 0 {
			if _, err := io.ReadFull(p.conn, payload); err != nil {
				return
			}
		}
		switch kind {
		case framePing:
			if err := p.writeFrame(framePong, nil); err != nil {
				return
			}
			continue
		case framePong:
			continue
		}
		msg, err := p.ser.Deserialize(payload)
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
