package transport

import (
	"testing"

	"github.com/arloliu/go-astm/astm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSerial_InvalidArguments(t *testing.T) {
	_, err := OpenSerial("", 9600, 8)
	require.Error(t, err)

	_, err = OpenSerial("/dev/ttyS0", 9600, 9)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data bits")
}

func TestOpenSerial_MissingDevice(t *testing.T) {
	p, err := OpenSerial("/dev/astm-no-such-device", 0, 0)
	require.Error(t, err)
	assert.Nil(t, p)
	assert.ErrorIs(t, err, astm.ErrTransport)
}
