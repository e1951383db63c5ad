// Package socketio is a minimal Socket.IO v5 client over the Engine.IO v4
// websocket transport. It supports the default namespace, events in both
// directions, and server-driven heartbeats. Binary packets are not supported.
package socketio

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Engine.IO packet types, encoded as a single ASCII digit.
const (
	engineOpen    byte = '0'
	engineClose   byte = '1'
	enginePing    byte = '2'
	enginePong    byte = '3'
	engineMessage byte = '4'
	engineNoop    byte = '6'
)

// PacketType is a Socket.IO packet type.
type PacketType int

// Socket.IO packet types.
const (
	PacketConnect PacketType = iota
	PacketDisconnect
	PacketEvent
	PacketAck
	PacketConnectError
	PacketBinaryEvent
	PacketBinaryAck
)

var errMalformed = errors.New("socketio: malformed packet")

// Packet is a decoded Socket.IO packet.
type Packet struct {
	Type      PacketType
	Namespace string
	ID        int
	HasID     bool
	Data      json.RawMessage
}

// Event is an inbound event: its name and the raw JSON arguments after it.
type Event struct {
	Name string
	Args []json.RawMessage
}

// Decode unmarshals the first argument into v.
func (e Event) Decode(v any) error {
	if len(e.Args) == 0 {
		return fmt.Errorf("socketio: event %q has no payload", e.Name)
	}
	return json.Unmarshal(e.Args[0], v)
}

// Encode renders p in the Socket.IO text format.
func (p Packet) Encode() []byte {
	var buf bytes.Buffer
	buf.WriteString(strconv.Itoa(int(p.Type)))
	if p.Namespace != "" && p.Namespace != "/" {
		buf.WriteString(p.Namespace)
		buf.WriteByte(',')
	}
	if p.HasID {
		buf.WriteString(strconv.Itoa(p.ID))
	}
	buf.Write(p.Data)
	return buf.Bytes()
}

// DecodePacket parses a Socket.IO text packet.
func DecodePacket(b []byte) (Packet, error) {
	if len(b) == 0 || b[0] < '0' || b[0] > '6' {
		return Packet{}, errMalformed
	}
	p := Packet{Type: PacketType(b[0] - '0'), Namespace: "/"}
	rest := b[1:]

	if p.Type == PacketBinaryEvent || p.Type == PacketBinaryAck {
		return Packet{}, fmt.Errorf("socketio: binary packets are not supported")
	}

	if len(rest) > 0 && rest[0] == '/' {
		end := bytes.IndexByte(rest, ',')
		if end < 0 {
			p.Namespace = string(rest)
			return p, nil
		}
		p.Namespace = string(rest[:end])
		rest = rest[end+1:]
	}

	i := 0
	for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
		i++
	}
	if i > 0 {
		id, err := strconv.Atoi(string(rest[:i]))
		if err != nil {
			return Packet{}, errMalformed
		}
		p.ID, p.HasID = id, true
		rest = rest[i:]
	}

	if len(rest) > 0 {
		if !json.Valid(rest) {
			return Packet{}, errMalformed
		}
		p.Data = json.RawMessage(rest)
	}
	return p, nil
}

// NewEventPacket builds an EVENT packet for name with an optional payload.
func NewEventPacket(name string, payload any) (Packet, error) {
	args := []any{name}
	if payload != nil {
		args = append(args, payload)
	}
	data, err := json.Marshal(args)
	if err != nil {
		return Packet{}, fmt.Errorf("socketio: encode %q: %w", name, err)
	}
	return Packet{Type: PacketEvent, Data: data}, nil
}

// EventFromPacket extracts the event name and arguments from an EVENT packet.
func EventFromPacket(p Packet) (Event, error) {
	if p.Type != PacketEvent {
		return Event{}, fmt.Errorf("socketio: packet type %d is not an event", p.Type)
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(p.Data, &raw); err != nil || len(raw) == 0 {
		return Event{}, errMalformed
	}
	var name string
	if err := json.Unmarshal(raw[0], &name); err != nil {
		return Event{}, errMalformed
	}
	return Event{Name: name, Args: raw[1:]}, nil
}

type handshake struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"`
	PingTimeout  int    `json:"pingTimeout"`
	MaxPayload   int    `json:"maxPayload"`
}

type connectError struct {
	Message string `json:"message"`
}
