package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnvExpander(t *testing.T) {
	env := map[string]string{"PORT": "8100", "ON": "true", "NAME": "quotes"}
	expander := &envExpander{
		lookup: func(key string) (string, bool) {
			value, ok := env[key]
			return value, ok
		},
		missing: make(map[string]struct{}),
	}

	out, err := expander.expand([]byte(`
port: ${PORT}
quoted: "${PORT}"
enabled: ${ON}
name: prefix-${NAME}
absent: ${NOPE}
${NAME}: kept
`))
	require.NoError(t, err)
	require.Contains(t, out, "port: 8100\n")
	require.Contains(t, out, `quoted: "8100"`)
	require.Contains(t, out, "enabled: true\n")
	require.Contains(t, out, "name: prefix-quotes\n")
	require.Contains(t, out, "${NAME}: kept")
	require.Equal(t, []string{"NOPE"}, expander.missingNames())
}
