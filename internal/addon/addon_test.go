package addon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChainSimple(t *testing.T) {
	calls, err := ParseChain("upper --> lower")
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, "upper", calls[0].Name)
	assert.Nil(t, calls[0].Args)
	assert.Equal(t, "lower", calls[1].Name)
}

func TestParseChainWithArgs(t *testing.T) {
	calls, err := ParseChain(`split_dois(doi, ", ") --> distinct`)
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, "split_dois", calls[0].Name)
	assert.Equal(t, []string{"doi", ", "}, calls[0].Args)
	assert.Equal(t, "distinct", calls[1].Name)
}

func TestParseChainEmpty(t *testing.T) {
	calls, err := ParseChain("   ")
	require.NoError(t, err)
	assert.Nil(t, calls)
}

func TestParseChainUnterminated(t *testing.T) {
	_, err := ParseChain("split_dois(doi")
	assert.Error(t, err)
}

func TestRunPreChainsOutputToInput(t *testing.T) {
	reg := NewRegistry()
	reg.Register("upper", func(params map[string]string, args []string) (map[string]string, error) {
		out := map[string]string{}
		for k, v := range params {
			out[k] = v + "!"
		}
		return out, nil
	})
	reg.Register("double", func(params map[string]string, args []string) (map[string]string, error) {
		out := map[string]string{}
		for k, v := range params {
			out[k] = v + v
		}
		return out, nil
	})

	chain, err := ParseChain("upper --> double")
	require.NoError(t, err)

	out, err := reg.RunPre(chain, map[string]string{"doi": "x"})
	require.NoError(t, err)
	assert.Equal(t, "x!x!", out["doi"])
}

func TestRunPreUnknownFunction(t *testing.T) {
	reg := NewRegistry()
	chain, err := ParseChain("nope")
	require.NoError(t, err)

	_, err = reg.RunPre(chain, map[string]string{})
	assert.Error(t, err)
}

func TestRunPostChain(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterPost("tag", func(body []map[string]any, args []string) ([]map[string]any, error) {
		for _, row := range body {
			row["tag"] = args[0]
		}
		return body, nil
	})

	chain, err := ParseChain("tag(seen)")
	require.NoError(t, err)

	body := []map[string]any{{"id": "1"}}
	out, err := reg.RunPost(chain, body)
	require.NoError(t, err)
	assert.Equal(t, "seen", out[0]["tag"])
}
