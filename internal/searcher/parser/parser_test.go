package parser

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		query string
		kind  QueryKind
	}{
		{"", QueryEmpty},
		{"   ", QueryEmpty},
		{"\t\n", QueryEmpty},
		{"#project", QueryTag},
		{"#project ", QueryTag},
		{"#", QueryTag},
		{" #project", QueryText},
		{"target", QueryText},
		{"c# tips", QueryText},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			plan := Parse(tc.query)
			assert.Equal(t, tc.kind, plan.Kind)
			assert.Equal(t, tc.query, plan.RawQuery)
		})
	}
}

func TestQueryKindJSON(t *testing.T) {
	data, err := json.Marshal(map[string]QueryKind{"kind": QueryTag})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"tag"}`, string(data))
}

func TestQueryKindJSONRoundTrip(t *testing.T) {
	for _, k := range []QueryKind{QueryEmpty, QueryTag, QueryText} {
		data, err := json.Marshal(k)
		require.NoError(t, err)
		var got QueryKind
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, k, got)
	}

	var k QueryKind
	assert.Error(t, json.Unmarshal([]byte(`"fuzzy"`), &k))
}
