package vars

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitShort(t *testing.T) {
	orig := Commit
	t.Cleanup(func() { Commit = orig })

	Commit = "da15c174cd2ada1ad247906536c101e8f6799def"
	assert.Equal(t, "da15c17", CommitShort())
	assert.Equal(t, "da15c17", Info().CommitShort)

	Commit = "abc"
	assert.Equal(t, "abc", CommitShort())
}

func TestFprint(t *testing.T) {
	var buf bytes.Buffer
	Fprint(&buf)

	assert.Contains(t, buf.String(), "name:     Masterlist")
	assert.Contains(t, buf.String(), "license:  AGPL-3.0")
}

func TestInfo_JSONFields(t *testing.T) {
	b, err := json.Marshal(Info())
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(b, &fields))
	for _, key := range []string{"name", "version", "commit", "commit_short", "build_time", "url", "license"} {
		assert.Contains(t, fields, key)
	}
	assert.Equal(t, "Masterlist", fields["name"])
}
