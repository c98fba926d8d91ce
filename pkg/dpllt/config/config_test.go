package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadBytesOverridesOnlyNamedFields(t *testing.T) {
	opts, err := LoadBytes([]byte("verbosity: 7\nwatches_ratio: 0.8\n"))
	require.NoError(t, err)
	require.Equal(t, 7, opts.Verbosity)
	require.Equal(t, 0.8, opts.WatchesRatio)
	require.Equal(t, DefStable, opts.DefSemantics)
	require.True(t, opts.PBToCNF)
}

func TestLoadBytesRejectsUnknownEnum(t *testing.T) {
	_, err := LoadBytes([]byte("def_semantics: BOGUS\n"))
	require.Error(t, err)
}

func TestLoadBytesRejectsOutOfRangeRatio(t *testing.T) {
	_, err := LoadBytes([]byte("watches_ratio: 4.0\n"))
	require.Error(t, err)
}
