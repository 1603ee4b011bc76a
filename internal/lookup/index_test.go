package lookup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildIndex_LookupAcrossChunkSizes(t *testing.T) {
	file := `{"u1":"111"}` + "\n" + `{"u2":"222"},` + "\n" + `bad line` + "\n" + `{"u3":"333"}`

	for _, chunkSize := range []int{1, 4, 16, 0} {
		idx, err := BuildIndex(strings.NewReader(file), chunkSize)
		require.NoError(t, err, "chunk size %d", chunkSize)
		assert.Equal(t, 3, idx.Len(), "chunk size %d", chunkSize)

		ra := strings.NewReader(file)
		for id, want := range map[string]string{"u1": "111", "u2": "222", "u3": "333"} {
			contact := idx.Lookup(id, ra)
			require.True(t, contact.Found, "identifier %s", id)
			assert.Equal(t, want, contact.Value, "identifier %s", id)
		}

		assert.False(t, idx.Lookup("u4", ra).Found)
	}
}
