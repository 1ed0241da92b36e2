package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgeJSON(t *testing.T) {
	t.Run("known age round-trips as integer", func(t *testing.T) {
		data, err := json.Marshal(KnownAge(42))
		require.NoError(t, err)
		assert.Equal(t, `42`, string(data))

		var a Age
		require.NoError(t, json.Unmarshal(data, &a))
		assert.Equal(t, KnownAge(42), a)
	})

	t.Run("unknown age round-trips as sentinel string", func(t *testing.T) {
		data, err := json.Marshal(UnknownAge)
		require.NoError(t, err)
		assert.Equal(t, `"unknown"`, string(data))

		var a Age
		require.NoError(t, json.Unmarshal(data, &a))
		assert.Equal(t, UnknownAge, a)
	})

	t.Run("other strings are rejected", func(t *testing.T) {
		var a Age
		assert.Error(t, json.Unmarshal([]byte(`"forty"`), &a))
	})
}

func TestGroupInjuryCodes(t *testing.T) {
	codes := map[int]InjuryCode{
		0: {Name: "No apparent injury", Category: InjuryCategoryOther},
		1: {Name: "Possible injury", Category: InjuryCategoryInjury},
		2: {Name: "Suspected serious injury", Category: InjuryCategoryInjury},
		4: {Name: "Fatal injury", Category: InjuryCategoryFatality},
	}
	groups := GroupInjuryCodes(codes)

	t.Run("multi-code categories carry labels", func(t *testing.T) {
		assert.True(t, groups.Labeled(InjuryCategoryInjury))
	})

	t.Run("single-code categories do not", func(t *testing.T) {
		assert.False(t, groups.Labeled(InjuryCategoryFatality))
		assert.False(t, groups.Labeled(InjuryCategoryOther))
	})

	t.Run("absent categories do not", func(t *testing.T) {
		assert.False(t, SeverityGroups{}.Labeled(InjuryCategoryInjury))
	})
}

func TestInjuryDetailJSON(t *testing.T) {
	t.Run("severity omitted when empty", func(t *testing.T) {
		data, err := json.Marshal(InjuryDetail{Person: "Driver", Age: KnownAge(30)})
		require.NoError(t, err)
		assert.JSONEq(t, `{"person":"Driver","age":30}`, string(data))
	})

	t.Run("severity present when labeled", func(t *testing.T) {
		data, err := json.Marshal(InjuryDetail{Person: "Pedestrian", Age: UnknownAge, Severity: "Suspected serious injury"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"person":"Pedestrian","age":"unknown","severity":"Suspected serious injury"}`, string(data))
	})
}
