package coding_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fjall-rs/value-log/internal/coding"
)

func TestUintRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, coding.WriteUint16(&buf, 0xBEEF))
	require.NoError(t, coding.WriteUint32(&buf, 0xDEADBEEF))
	require.NoError(t, coding.WriteUint64(&buf, 0x0102030405060708))

	u16, err := coding.ReadUint16(&buf)
	require.NoError(t, err)
	require.EqualValues(t, 0xBEEF, u16)

	u32, err := coding.ReadUint32(&buf)
	require.NoError(t, err)
	require.EqualValues(t, 0xDEADBEEF, u32)

	u64, err := coding.ReadUint64(&buf)
	require.NoError(t, err)
	require.EqualValues(t, 0x0102030405060708, u64)
}

func TestBytesWithLen16RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, coding.WriteBytesWithLen16(&buf, []byte("hello")))

	got, err := coding.ReadBytesWithLen16(&buf)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)
}

func TestExpectMagicMismatch(t *testing.T) {
	buf := bytes.NewReader([]byte("XXXX"))
	err := coding.ExpectMagic(buf, []byte("VBLB"), "Blob")
	require.Error(t, err)

	var decodeErr *coding.DecodeError
	require.ErrorAs(t, err, &decodeErr)
}

func TestInvalidTag(t *testing.T) {
	err := coding.InvalidTag("CompressionType", 0xFF)
	require.Error(t, err)
	require.Contains(t, err.Error(), "CompressionType")
}
