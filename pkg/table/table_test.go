package table

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_ObjectIsOneRow(t *testing.T) {
	tbl, err := Decode([]byte(`{"b":1,"a":"x"}`))
	require.NoError(t, err)

	assert.Equal(t, 1, tbl.Len())
	assert.Equal(t, []string{"b", "a"}, tbl.Columns)
	assert.Equal(t, json.Number("1"), tbl.Records[0]["b"])
}

func TestDecode_ArrayColumnsInFirstSeenOrder(t *testing.T) {
	tbl, err := Decode([]byte(`[{"id":"1","slug":"a"},{"id":"2","volume":"10","slug":"b"}]`))
	require.NoError(t, err)

	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, []string{"id", "slug", "volume"}, tbl.Columns)
	assert.Equal(t, []any{nil, "10"}, tbl.Column("volume"))
}

func TestDecode_EmptyArray(t *testing.T) {
	tbl, err := Decode([]byte(`[]`))
	require.NoError(t, err)
	assert.True(t, tbl.Empty())
	assert.NotNil(t, tbl.Records)
}

func TestDecode_Malformed(t *testing.T) {
	for name, payload := range map[string]string{
		"scalar":         `42`,
		"string":         `"hello"`,
		"array of ints":  `[1,2]`,
		"mixed array":    `[{"a":1},"b"]`,
		"truncated":      `[{"a":1}`,
		"trailing data":  `{"a":1}{"b":2}`,
		"empty":          ``,
		"null":           `null`,
		"nested scalars": `[[{"a":1}]]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(payload))
			assert.ErrorIs(t, err, ErrMalformedPage)
		})
	}
}

func TestDecodeObject(t *testing.T) {
	r, err := DecodeObject([]byte(`{"mid":"0.55"}`))
	require.NoError(t, err)
	assert.Equal(t, "0.55", r["mid"])

	_, err = DecodeObject([]byte(`[{"mid":"0.55"}]`))
	assert.ErrorIs(t, err, ErrMalformedPage)
}

func TestFromRecords_SortsKeysWithinRecord(t *testing.T) {
	tbl := FromRecords([]Record{{"z": 1, "a": 2}, {"m": 3}})
	assert.Equal(t, []string{"a", "z", "m"}, tbl.Columns)
	assert.Equal(t, 2, tbl.Len())
}

func TestTable_SetAndStrings(t *testing.T) {
	tbl := FromRecords([]Record{{"id": "1"}, {"id": nil}, {"id": json.Number("3")}})
	tbl.Set("side", "bids")

	assert.True(t, tbl.HasColumn("side"))
	assert.Equal(t, []any{"bids", "bids", "bids"}, tbl.Column("side"))
	assert.Equal(t, []string{"1", "3"}, tbl.Strings("id"))
}

func TestTable_NilLen(t *testing.T) {
	var tbl *Table
	assert.Equal(t, 0, tbl.Len())
	assert.True(t, tbl.Empty())
}

func TestConcat(t *testing.T) {
	a := FromRecords([]Record{{"id": "1"}})
	b := FromRecords([]Record{{"id": "2", "side": "asks"}})

	out := Concat(a, nil, b)
	assert.Equal(t, []string{"id", "side"}, out.Columns)
	assert.Equal(t, []any{"1", "2"}, out.Column("id"))
}

func TestExplode(t *testing.T) {
	tbl := FromRecords([]Record{
		{"id": "m1", "tokens": []any{"t1", "t2"}},
		{"id": "m2", "tokens": []string{}},
		{"id": "m3", "tokens": "not-a-list"},
	})

	out := tbl.Explode("tokens")
	assert.Equal(t, []any{"m1", "m1", "m2", "m3"}, out.Column("id"))
	assert.Equal(t, []any{"t1", "t2", nil, "not-a-list"}, out.Column("tokens"))

	// Source rows are untouched.
	assert.Equal(t, []any{"t1", "t2"}, tbl.Records[0]["tokens"])
}

func TestMarshalJSON_ColumnOrderAndNulls(t *testing.T) {
	tbl, err := Decode([]byte(`[{"b":"1","a":true},{"a":false}]`))
	require.NoError(t, err)

	out, err := json.Marshal(tbl)
	require.NoError(t, err)
	assert.Equal(t, `[{"b":"1","a":true},{"b":null,"a":false}]`, string(out))
}

func TestNormalize(t *testing.T) {
	tbl, err := Decode([]byte(`{
		"market":"0xabc","asset_id":"123","hash":"h",
		"bids":[{"price":"0.48","size":"100"},{"price":"0.47","size":"5"}],
		"asks":[{"price":"0.52","size":"40"}]
	}`))
	require.NoError(t, err)

	bids, err := Normalize(tbl, "bids", []string{"market", "asset_id"}, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"price", "size", "market", "asset_id"}, bids.Columns)
	assert.Equal(t, 2, bids.Len())
	assert.Equal(t, []any{"0xabc", "0xabc"}, bids.Column("market"))
	assert.Equal(t, []any{"0.48", "0.47"}, bids.Column("price"))
}

func TestNormalize_Prefix(t *testing.T) {
	tbl, err := Decode([]byte(`[{"id":"s1","events":[{"id":"e1","title":"T"}]},{"id":"s2"}]`))
	require.NoError(t, err)

	out, err := Normalize(tbl, "events", MetaExcept(tbl, "events"), "event_")
	require.NoError(t, err)

	assert.Equal(t, []string{"event_id", "event_title", "id"}, out.Columns)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, "s1", out.Records[0]["id"])
	assert.Equal(t, "e1", out.Records[0]["event_id"])
}

func TestNormalize_Malformed(t *testing.T) {
	tbl := FromRecords([]Record{{"bids": "oops"}})
	_, err := Normalize(tbl, "bids", nil, "")
	assert.ErrorIs(t, err, ErrMalformedPage)

	tbl = FromRecords([]Record{{"bids": []any{1}}})
	_, err = Normalize(tbl, "bids", nil, "")
	assert.ErrorIs(t, err, ErrMalformedPage)
}

func TestMetaExcept(t *testing.T) {
	tbl := New()
	tbl.Columns = []string{"id", "events", "title"}
	assert.Equal(t, []string{"id", "title"}, MetaExcept(tbl, "events"))
}
