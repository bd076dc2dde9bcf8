package envelope

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

type testParty struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func TestDecodeArray(t *testing.T) {
	var v any
	require.NoError(t, json.Unmarshal([]byte(`{"data":{"items":[{"id":1,"name":"a"},{"id":2,"name":"b"}]}}`), &v))

	parties, err := DecodeArray[testParty](v)
	require.NoError(t, err)
	require.Equal(t, []testParty{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}, parties)
}

func TestDecodeArrayEmptyShapes(t *testing.T) {
	parties, err := DecodeArray[testParty](nil)
	require.NoError(t, err)
	require.Empty(t, parties)

	parties, err = DecodeArray[testParty](map[string]any{"data": map[string]any{}})
	require.NoError(t, err)
	require.Empty(t, parties)
}

func TestDecodeArrayBadElement(t *testing.T) {
	var v any
	require.NoError(t, json.Unmarshal([]byte(`{"data":[{"id":"not-a-number"}]}`), &v))

	_, err := DecodeArray[testParty](v)
	require.Error(t, err)
}

func TestDecodeObject(t *testing.T) {
	var v any
	require.NoError(t, json.Unmarshal([]byte(`{"data":{"data":{"id":7,"name":"x"}}}`), &v))

	party, err := DecodeObject[testParty](v)
	require.NoError(t, err)
	require.NotNil(t, party)
	require.Equal(t, testParty{ID: 7, Name: "x"}, *party)
}

func TestDecodeObjectMissingPayload(t *testing.T) {
	party, err := DecodeObject[testParty](nil)
	require.NoError(t, err)
	require.Nil(t, party)
}

func TestDecodePaginated(t *testing.T) {
	var v any
	require.NoError(t, json.Unmarshal([]byte(`{"data":[{"id":1,"name":"a"}],"pagination":{"total":41,"page":3}}`), &v))

	parties, page, err := DecodePaginated[testParty](v)
	require.NoError(t, err)
	require.Len(t, parties, 1)
	require.NotNil(t, page.Total)
	require.Equal(t, 41.0, *page.Total)
}
