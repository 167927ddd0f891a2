package yml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const document = `
store:
  type: sqlite
policy:
  interrupt_on:
    WriteFile: true
    read_data: false
`

func TestNode_Path(t *testing.T) {
	root, err := Parse([]byte(document))
	require.NoError(t, err)

	type testCase struct {
		name     string
		path     []string
		expected string
		missing  bool
	}
	testCases := []testCase{
		{name: "scalar", path: []string{"store", "type"}, expected: "sqlite"},
		{name: "key case kept", path: []string{"policy", "interrupt_on", "WriteFile"}, expected: "true"},
		{name: "lowercased key", path: []string{"policy", "interrupt_on", "writefile"}, missing: true},
		{name: "through scalar", path: []string{"store", "type", "x"}, missing: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			node := root.Path(tc.path...)
			if tc.missing {
				assert.Nil(t, node)
				return
			}
			require.NotNil(t, node)
			assert.Equal(t, tc.expected, node.Value)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	root, err := Parse(nil)
	require.NoError(t, err)
	assert.Nil(t, root.Lookup("policy"))
}
