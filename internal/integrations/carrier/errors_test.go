package carrier

import (
	"errors"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestConfigurationError(t *testing.T) {
	err := pkgerrors.Wrap(NewConfigurationError("key", "meter"), "new client")

	require.ErrorIs(t, err, ErrConfiguration)
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	require.Equal(t, []string{"key", "meter"}, cfgErr.Missing)
	require.Contains(t, err.Error(), "missing key, meter")
}

func TestResponseContentError(t *testing.T) {
	err := NewResponseContentError("empty body", nil)

	require.ErrorIs(t, err, ErrResponseContent)
	require.NotErrorIs(t, err, ErrConfiguration)
	require.Equal(t, "carrier response content error: empty body", err.Error())
}

func TestCredentials_StringMasksSecrets(t *testing.T) {
	c := Credentials{Key: "secret-key", Password: "secret-pass", Account: "510087020", Meter: "118501234"}

	s := c.String()
	require.NotContains(t, s, "secret")
	require.NotContains(t, s, "510087020")
	require.Contains(t, s, "7020")
}
