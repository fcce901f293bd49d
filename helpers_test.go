package resonance

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelperRegistry_Register(t *testing.T) {
	t.Parallel()
	r := NewHelperRegistry()

	require.NoError(t, r.Register("upper", strings.ToUpper))
	require.NoError(t, r.Register("split", func(s, sep string) ([]string, error) {
		return strings.Split(s, sep), nil
	}))
	require.NoError(t, r.Register("_private", func() string { return "" }))
	assert.Equal(t, 3, r.Len())

	// Re-registering a name replaces the helper.
	require.NoError(t, r.Register("upper", strings.ToLower))
	assert.Equal(t, 3, r.Len())
}

func TestHelperRegistry_Register_Invalid(t *testing.T) {
	t.Parallel()
	r := NewHelperRegistry()

	tests := []struct {
		name   string
		helper string
		fn     any
	}{
		{name: "empty name", helper: "", fn: strings.ToUpper},
		{name: "name with dash", helper: "to-upper", fn: strings.ToUpper},
		{name: "name starts with digit", helper: "9lives", fn: strings.ToUpper},
		{name: "not a function", helper: "upper", fn: 42},
		{name: "nil function", helper: "upper", fn: nil},
		{name: "no return value", helper: "noop", fn: func() {}},
		{name: "second return not error", helper: "pair", fn: func() (string, string) { return "", "" }},
		{name: "three returns", helper: "triple", fn: func() (int, int, error) { return 0, 0, nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Register(tt.helper, tt.fn)
			require.ErrorIs(t, err, ErrHelper)
		})
	}
	assert.Zero(t, r.Len(), "rejected helpers must not be stored")
}

func TestHelperRegistry_SnapshotIsIsolated(t *testing.T) {
	t.Parallel()
	r := NewHelperRegistry()
	require.NoError(t, r.Register("one", func() string { return "1" }))

	funcs, gen := r.snapshot()
	require.Len(t, funcs, 1)

	require.NoError(t, r.Register("two", func() string { return "2" }))
	assert.Len(t, funcs, 1, "a snapshot must not see later registrations")

	_, gen2 := r.snapshot()
	assert.Greater(t, gen2, gen, "each registration moves the generation")
}

func TestRegisterHelper_TargetsDefaultRegistry(t *testing.T) {
	t.Parallel()
	// DefaultHelpers is process-wide, so use a name no other test claims.
	require.NoError(t, RegisterHelper("helpersTestMarker", func() string { return "ok" }))

	funcs, _ := DefaultHelpers.snapshot()
	_, ok := funcs["helpersTestMarker"]
	assert.True(t, ok)
}
