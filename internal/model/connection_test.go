package model_test

import (
	"testing"

	"github.com/mainframe-ci/endevor-fetch/internal/model"

	"github.com/stretchr/testify/require"
)

func TestSplitHostPort(t *testing.T) {
	type then struct {
		host string
		port string
	}
	cases := []struct {
		scenario string
		given    string
		then     then
	}{
		{"host_and_port", "MF1:1234", then{"MF1", "1234"}},
		{"missing_port", "MF1", then{"MF1", ""}},
		{"empty", "", then{"", ""}},
		{"port_only", ":1234", then{"", "1234"}},
	}

	for _, tc := range cases {
		t.Run(tc.scenario, func(t *testing.T) {
			host, port := model.SplitHostPort(tc.given)
			require.Equal(t, tc.then.host, host)
			require.Equal(t, tc.then.port, port)
		})
	}
}

func TestNewHostConnection(t *testing.T) {
	conn := model.NewHostConnection("MF1:1234 037", "MF1:1234", "037", "", "")
	require.NotEmpty(t, conn.ID)
	require.Equal(t, "MF1:1234 037", conn.Description)
	require.Equal(t, "MF1", conn.Host)
	require.Equal(t, "1234", conn.Port)
	require.Equal(t, "037", conn.CodePage)
	require.Empty(t, conn.Protocol)
	require.Empty(t, conn.Timeout)
	require.Equal(t, "MF1:1234", conn.HostPort())

	other := model.NewHostConnection("MF1:1234 037", "MF1:1234", "037", "", "")
	require.NotEqual(t, conn.ID, other.ID)
}
