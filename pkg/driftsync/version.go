// Package driftsync holds process-wide identity: the protocol version
// exchanged during the Handshake phase (§5.1).
package driftsync

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	// VersionMajor is the current major protocol version.
	VersionMajor = 1
	// VersionMinor is the current minor protocol version.
	VersionMinor = 0
	// VersionPatch is the current patch protocol version.
	VersionPatch = 0
)

// Version is the human-readable major.minor.patch string.
var Version = fmt.Sprintf("%d.%d.%d", VersionMajor, VersionMinor, VersionPatch)

// versionBytes is the fixed-width wire representation of a version triple:
// three big-endian u32s, matching the width convention used throughout §6.
type versionBytes [12]byte

// SendVersion writes the current protocol version to writer.
func SendVersion(writer io.Writer) error {
	var data versionBytes
	binary.BigEndian.PutUint32(data[:4], VersionMajor)
	binary.BigEndian.PutUint32(data[4:8], VersionMinor)
	binary.BigEndian.PutUint32(data[8:], VersionPatch)
	_, err := writer.Write(data[:])
	return err
}

// ReceiveVersion reads a protocol version triple from reader.
func ReceiveVersion(reader io.Reader) (major, minor, patch uint32, err error) {
	var data versionBytes
	if _, err = io.ReadFull(reader, data[:]); err != nil {
		return 0, 0, 0, err
	}
	major = binary.BigEndian.Uint32(data[:4])
	minor = binary.BigEndian.Uint32(data[4:8])
	patch = binary.BigEndian.Uint32(data[8:])
	return
}

// ReceiveAndCompareVersion reads a protocol version triple from reader and
// reports whether it is compatible with the locally running version. Per
// §5.1, a mismatched major version is a handshake (ProtocolViolation)
// failure.
func ReceiveAndCompareVersion(reader io.Reader) (bool, error) {
	major, _, _, err := ReceiveVersion(reader)
	if err != nil {
		return false, err
	}
	return major == VersionMajor, nil
}
