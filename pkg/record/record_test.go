package record

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_SetPreservesOrder(t *testing.T) {
	r := &Record{}
	r.Set("userId", Int(7))
	r.Set("name", String("Alice"))
	r.Set("active", Bool(true))
	r.Set("name", String("Alice Smith"))

	assert.Equal(t, []string{"userId", "name", "active"}, r.Keys())

	name, ok := r.Get("name")
	require.True(t, ok)
	assert.Equal(t, "Alice Smith", name.AsString())
}

func TestRecord_Delete(t *testing.T) {
	r := FromFields([]Field{
		{Key: "a", Value: Int(1)},
		{Key: "b", Value: Int(2)},
		{Key: "c", Value: Int(3)},
	})

	r.Delete("b")

	assert.Equal(t, []string{"a", "c"}, r.Keys())
	_, ok := r.Get("b")
	assert.False(t, ok)
}

func TestRecord_JSONRoundTrip(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	r := &Record{}
	r.Set("userId", Int(7))
	r.Set("name", String("Alice"))
	r.Set("score", Number(99.5))
	r.Set("active", Bool(true))
	r.Set("createdAt", Timestamp(created))
	r.Set("deletedAt", Null())

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"userId": 7,
		"name": "Alice",
		"score": 99.5,
		"active": true,
		"createdAt": "2024-03-01T12:30:00Z",
		"deletedAt": null
	}`, string(data))

	var back Record
	require.NoError(t, json.Unmarshal(data, &back))

	assert.Equal(t, r.Keys(), back.Keys())

	id, _ := back.Get("userId")
	assert.Equal(t, KindNumber, id.Kind())
	assert.Equal(t, int64(7), id.AsInt())

	at, _ := back.Get("createdAt")
	assert.Equal(t, KindTimestamp, at.Kind())
	assert.True(t, created.Equal(at.AsTime()))

	deleted, _ := back.Get("deletedAt")
	assert.True(t, deleted.IsNull())
}

func TestRecord_UnmarshalPreservesWireOrder(t *testing.T) {
	var r Record
	require.NoError(t, json.Unmarshal([]byte(`{"z": 1, "a": 2, "m": 3}`), &r))

	assert.Equal(t, []string{"z", "a", "m"}, r.Keys())
}

func TestRecord_UnmarshalRejectsNestedValues(t *testing.T) {
	var r Record
	err := json.Unmarshal([]byte(`{"nested": {"x": 1}}`), &r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nested")
}

func TestRecord_LargeIntegersSurviveRoundTrip(t *testing.T) {
	var r Record
	require.NoError(t, json.Unmarshal([]byte(`{"id": 9007199254740993}`), &r))

	id, _ := r.Get("id")
	assert.Equal(t, int64(9007199254740993), id.AsInt())

	data, err := json.Marshal(&r)
	require.NoError(t, err)
	assert.Equal(t, `{"id":9007199254740993}`, string(data))
}

func TestValue_Text(t *testing.T) {
	assert.Equal(t, "Alice", String("Alice").Text())
	assert.Equal(t, "7", Int(7).Text())
	assert.Equal(t, "true", Bool(true).Text())
	assert.Equal(t, "", Null().Text())
	assert.Equal(t, "2024-03-01T12:30:00Z",
		Timestamp(time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)).Text())
}

func TestDeriveColumns(t *testing.T) {
	t.Run("columns come from the first record", func(t *testing.T) {
		first := FromFields([]Field{
			{Key: "userId", Value: Int(1)},
			{Key: "name", Value: String("Alice")},
		})
		second := FromFields([]Field{
			{Key: "extra", Value: Int(1)},
		})

		assert.Equal(t, []string{"userId", "name"}, DeriveColumns([]*Record{first, second}))
	})

	t.Run("empty collection yields an empty schema", func(t *testing.T) {
		assert.Empty(t, DeriveColumns(nil))
		assert.Empty(t, DeriveColumns([]*Record{}))
	})
}
