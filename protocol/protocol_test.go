package protocol

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	header := Header{
		CodecType: CodecTypeJSON,
		MsgType:   MsgTypeCommand,
		Seq:       12345,
	}
	body := []byte(`{"path":"PING"}`)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, &header, body))
	require.Equal(t, HeaderSize+len(body), buf.Len())

	decodedHeader, decodedBody, err := Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, header.CodecType, decodedHeader.CodecType)
	require.Equal(t, MsgTypeCommand, decodedHeader.MsgType)
	require.Equal(t, uint32(12345), decodedHeader.Seq)
	require.Equal(t, uint32(len(body)), decodedHeader.BodyLen)
	require.Equal(t, body, decodedBody)
}

func TestDecodeInvalidMagic(t *testing.T) {
	invalidHeader := []byte{0x00, 0x00, 0x00, Version, CodecTypeJSON, byte(MsgTypeCommand), 0x00, 0x00, 0x30, 0x39, 0x00, 0x00, 0x00, 0x0B}
	var buf bytes.Buffer
	buf.Write(invalidHeader)
	buf.Write([]byte("hello world"))

	_, _, err := Decode(&buf)
	require.ErrorContains(t, err, "invalid magic number")
}

func TestDecodeEmptyBody(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, &Header{MsgType: MsgTypeHeartbeat, Seq: 7}, nil))

	decodedHeader, decodedBody, err := Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, MsgTypeHeartbeat, decodedHeader.MsgType)
	require.Zero(t, decodedHeader.BodyLen)
	require.Empty(t, decodedBody)
}

func TestDecodeInvalidVersion(t *testing.T) {
	invalidFrame := []byte{
		MagicNumber, MagicByte2, MagicByte3,
		0xFF, // wrong version
		CodecTypeJSON,
		byte(MsgTypeCommand),
		0, 0, 0, 1, // Seq
		0, 0, 0, 0, // BodyLen
	}
	_, _, err := Decode(bytes.NewReader(invalidFrame))
	require.ErrorContains(t, err, "unsupported version")
}

func TestDecodeUnknownMessageType(t *testing.T) {
	frame := []byte{MagicNumber, MagicByte2, MagicByte3, Version, CodecTypeProto, 9, 0, 0, 0, 1, 0, 0, 0, 0}
	_, _, err := Decode(bytes.NewReader(frame))
	require.ErrorContains(t, err, "unsupported message type")
}

func TestDecodeOversizedBody(t *testing.T) {
	frame := []byte{MagicNumber, MagicByte2, MagicByte3, Version, CodecTypeJSON, byte(MsgTypeResult), 0, 0, 0, 1}
	frame = binary.BigEndian.AppendUint32(frame, MaxBodySize+1)
	_, _, err := Decode(bytes.NewReader(frame))
	require.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestDecodeTruncatedBody(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, &Header{MsgType: MsgTypeResult, Seq: 1}, []byte("0123456789")))
	truncated := buf.Bytes()[:buf.Len()-4]

	_, _, err := Decode(bytes.NewReader(truncated))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestDecodeLargeBody(t *testing.T) {
	var buf bytes.Buffer

	largeBody := make([]byte, 1024*1024)
	for i := range largeBody {
		largeBody[i] = byte(i % 256)
	}
	header := &Header{CodecType: CodecTypeBinary, MsgType: MsgTypeCommand, Seq: 999}
	require.NoError(t, Encode(&buf, header, largeBody))

	_, decodedBody, err := Decode(&buf)
	require.NoError(t, err)
	require.True(t, bytes.Equal(decodedBody, largeBody))
}
