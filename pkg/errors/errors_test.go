package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseErrorWrapsUnderlying(t *testing.T) {
	t.Parallel()

	underlying := fmt.Errorf("unexpected token")
	err := NewParseError("layout.yaml", 12, underlying)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, "layout.yaml", parseErr.Path)
	require.Equal(t, 12, parseErr.Line)
	require.True(t, stdErrors.Is(err, underlying))
	require.Contains(t, err.Error(), "layout.yaml:12")
}

func TestValidationErrorIncludesField(t *testing.T) {
	t.Parallel()

	err := NewValidationError("pages[1].keys[0].color", "must be a hex color", nil)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, "pages[1].keys[0].color", validationErr.Field)
	require.Contains(t, err.Error(), "must be a hex color")
}

func TestConfigurationErrorNamesType(t *testing.T) {
	t.Parallel()

	err := NewConfigurationError("dial", "unsupported type")

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "dial", cfgErr.Type)
	require.Equal(t, "configuration error [dial]: unsupported type", err.Error())
}

func TestDeviceErrorIncludesKey(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("pipe closed")
	err := NewDeviceError("fill buffer", 7, underlying)

	var deviceErr *DeviceError
	require.ErrorAs(t, err, &deviceErr)
	require.Equal(t, 7, deviceErr.Index)
	require.True(t, stdErrors.Is(err, underlying))
	require.Contains(t, err.Error(), "key 7")
}

func TestActionErrorIncludesPageAndKey(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("exit status 1")
	err := NewActionError("media", 3, underlying)

	var actionErr *ActionError
	require.ErrorAs(t, err, &actionErr)
	require.True(t, stdErrors.Is(err, underlying))
	require.Equal(t, "action error on media key 3: exit status 1", err.Error())
	require.Equal(t, "action error on key 3: exit status 1", NewActionError("", 3, underlying).Error())
}
