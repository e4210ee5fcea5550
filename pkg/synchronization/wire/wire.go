// Package wire implements the fixed-schema binary encoding defined in
// spec §6. Compatibility between a sender and receiver built from
// different commits of this repository depends on field ordering, tag
// discriminants, and integer widths never changing here without a
// protocol version bump, so this package deliberately avoids any
// self-describing or reflection-based codec (see DESIGN.md for why gob
// and Protocol Buffers don't fit).
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/driftsync/driftsync/pkg/synchronization/core"
	"github.com/driftsync/driftsync/pkg/synchronization/message"
)

// Encoder writes values to an in-memory buffer using the wire schema.
type Encoder struct {
	buf bytes.Buffer
}

// NewEncoder returns a fresh Encoder.
func NewEncoder() *Encoder { return &Encoder{} }

// Bytes returns the accumulated encoded payload.
func (e *Encoder) Bytes() []byte { return e.buf.Bytes() }

func (e *Encoder) writeU32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

func (e *Encoder) writeU64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

func (e *Encoder) writePath(path string) {
	e.writeU64(uint64(len(path)))
	e.buf.WriteString(path)
}

func (e *Encoder) writeBytes(data []byte) {
	e.writeU64(uint64(len(data)))
	e.buf.Write(data)
}

// PutManifest encodes a Manifest: u64 count, count x TreeNode.
func (e *Encoder) PutManifest(m *core.Manifest) {
	e.writeU64(uint64(m.Len()))
	for _, node := range m.Nodes {
		e.writePath(node.Path)
		e.writeU32(uint32(node.Kind))
		if node.Kind == core.TreeNodeKindFile {
			e.buf.Write(node.SHA1[:])
		}
	}
}

// PutRequests encodes a []RequestMessage as a length-prefixed vector.
func (e *Encoder) PutRequests(requests []message.RequestMessage) {
	e.writeU64(uint64(len(requests)))
	for _, r := range requests {
		e.writeU32(uint32(r.Kind))
		e.writePath(r.Path)
	}
}

// PutMutation encodes a single MutationMessage.
func (e *Encoder) PutMutation(m message.MutationMessage) {
	e.writeU32(uint32(m.Kind))
	switch m.Kind {
	case message.MutationFileCreated, message.MutationFileDeleted,
		message.MutationEmptyDirectoryCreated, message.MutationDirectoryDeleted,
		message.MutationDirectoryContentsEdited:
		e.writePath(m.Path)
	case message.MutationFileEdited, message.MutationDirectoryCreated:
		e.writePath(m.Path)
		e.writeBytes(m.Content)
	case message.MutationRename:
		e.writePath(m.Path)
		e.writePath(m.NewPath)
	}
}

// EncodeManifest encodes a manifest as a standalone frame payload.
func EncodeManifest(m *core.Manifest) []byte {
	e := NewEncoder()
	e.PutManifest(m)
	return e.Bytes()
}

// EncodeRequests encodes a request list as a standalone frame payload.
func EncodeRequests(requests []message.RequestMessage) []byte {
	e := NewEncoder()
	e.PutRequests(requests)
	return e.Bytes()
}

// EncodeMutation encodes a single mutation message as a standalone frame
// payload.
func EncodeMutation(m message.MutationMessage) []byte {
	e := NewEncoder()
	e.PutMutation(m)
	return e.Bytes()
}

// Decoder reads values from a byte slice using the wire schema. All
// decode errors are reported via err from each call so callers can
// classify them (handshake-time failures are ProtocolViolation, per §7;
// steady-state failures are Transient).
type Decoder struct {
	r   *bytes.Reader
	err error
}

// NewDecoder wraps data for sequential decoding.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{r: bytes.NewReader(data)}
}

// Err returns the first error encountered during decoding, if any.
func (d *Decoder) Err() error { return d.err }

func (d *Decoder) readU32() uint32 {
	if d.err != nil {
		return 0
	}
	var b [4]byte
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		d.err = fmt.Errorf("unable to read u32: %w", err)
		return 0
	}
	return binary.BigEndian.Uint32(b[:])
}

func (d *Decoder) readU64() uint64 {
	if d.err != nil {
		return 0
	}
	var b [8]byte
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		d.err = fmt.Errorf("unable to read u64: %w", err)
		return 0
	}
	return binary.BigEndian.Uint64(b[:])
}

func (d *Decoder) readPath() string {
	n := d.readU64()
	if d.err != nil {
		return ""
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		d.err = fmt.Errorf("unable to read path: %w", err)
		return ""
	}
	return string(buf)
}

func (d *Decoder) readBytes() []byte {
	n := d.readU64()
	if d.err != nil {
		return nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		d.err = fmt.Errorf("unable to read byte vector: %w", err)
		return nil
	}
	return buf
}

// DecodeManifest decodes a Manifest from data.
func DecodeManifest(data []byte) (*core.Manifest, error) {
	d := NewDecoder(data)
	count := d.readU64()
	if d.err != nil {
		return nil, d.err
	}
	nodes := make([]core.TreeNode, 0, count)
	for i := uint64(0); i < count; i++ {
		path := d.readPath()
		kind := d.readU32()
		node := core.TreeNode{Path: path, Kind: core.TreeNodeKind(kind)}
		if node.Kind == core.TreeNodeKindFile {
			var sum [core.SHA1Size]byte
			if d.err == nil {
				if _, err := io.ReadFull(d.r, sum[:]); err != nil {
					d.err = fmt.Errorf("unable to read file hash: %w", err)
				}
			}
			node.SHA1 = sum
		}
		if d.err != nil {
			return nil, d.err
		}
		nodes = append(nodes, node)
	}
	return &core.Manifest{Nodes: nodes}, nil
}

// DecodeRequests decodes a []RequestMessage from data.
func DecodeRequests(data []byte) ([]message.RequestMessage, error) {
	d := NewDecoder(data)
	count := d.readU64()
	if d.err != nil {
		return nil, d.err
	}
	requests := make([]message.RequestMessage, 0, count)
	for i := uint64(0); i < count; i++ {
		kind := d.readU32()
		path := d.readPath()
		if d.err != nil {
			return nil, d.err
		}
		requests = append(requests, message.RequestMessage{Kind: message.RequestKind(kind), Path: path})
	}
	return requests, nil
}

// DecodeMutation decodes a single MutationMessage from data.
func DecodeMutation(data []byte) (message.MutationMessage, error) {
	d := NewDecoder(data)
	kind := message.MutationKind(d.readU32())
	var m message.MutationMessage
	m.Kind = kind
	switch kind {
	case message.MutationFileCreated, message.MutationFileDeleted,
		message.MutationEmptyDirectoryCreated, message.MutationDirectoryDeleted,
		message.MutationDirectoryContentsEdited:
		m.Path = d.readPath()
	case message.MutationFileEdited, message.MutationDirectoryCreated:
		m.Path = d.readPath()
		m.Content = d.readBytes()
	case message.MutationRename:
		m.Path = d.readPath()
		m.NewPath = d.readPath()
	default:
		if d.err == nil {
			d.err = fmt.Errorf("unknown mutation tag: %d", kind)
		}
	}
	if d.err != nil {
		return message.MutationMessage{}, d.err
	}
	return m, nil
}
