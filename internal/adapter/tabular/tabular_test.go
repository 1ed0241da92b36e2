package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCSV(t *testing.T) {
	t.Run("records key by header", func(t *testing.T) {
		data := []byte("REPORT_NO,LATITUDE,REPORT_TYPE\nAB123,39.29,Injury Crash\nAB124,38.90,Fatal Crash\n")
		records, err := DecodeCSV(data, false)

		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "AB123", records[0]["REPORT_NO"])
		assert.Equal(t, "39.29", records[0]["LATITUDE"])
		assert.Equal(t, "Fatal Crash", records[1]["REPORT_TYPE"])
	})

	t.Run("short rows leave trailing columns absent", func(t *testing.T) {
		data := []byte("A,B,C\n1,2\n")
		records, err := DecodeCSV(data, false)

		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "2", records[0]["B"])
		_, present := records[0]["C"]
		assert.False(t, present)
	})

	t.Run("long rows drop extra cells", func(t *testing.T) {
		data := []byte("A,B\n1,2,3\n")
		records, err := DecodeCSV(data, false)

		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Len(t, records[0], 2)
	})

	t.Run("windows-1252 text decodes", func(t *testing.T) {
		// 0xE9 is é in Windows-1252, invalid on its own in UTF-8.
		data := []byte("NAME\nCaf\xe9\n")
		records, err := DecodeCSV(data, true)

		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "Café", records[0]["NAME"])
	})

	t.Run("empty body yields no records", func(t *testing.T) {
		records, err := DecodeCSV([]byte("A,B\n"), false)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("missing header errors", func(t *testing.T) {
		_, err := DecodeCSV(nil, false)
		assert.Error(t, err)
	})
}

func TestDecodeCrashAPI(t *testing.T) {
	t.Run("result sets flatten into text records", func(t *testing.T) {
		data := []byte(`{"Count":2,"Results":[[
			{"ST_CASE":240052,"STATE":24,"LATITUDE":39.2904,"PER_TYPNAME":"Driver","TWAY_ID":null},
			{"ST_CASE":240053,"STATE":24,"LATITUDE":38.9,"PER_TYPNAME":"Pedestrian","TWAY_ID":"I-95"}
		]]}`)
		records, err := DecodeCrashAPI(data)

		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "240052", records[0]["ST_CASE"])
		assert.Equal(t, "39.2904", records[0]["LATITUDE"])
		assert.Equal(t, "Driver", records[0]["PER_TYPNAME"])
		assert.Equal(t, "", records[0]["TWAY_ID"])
		assert.Equal(t, "I-95", records[1]["TWAY_ID"])
	})

	t.Run("multiple result sets concatenate", func(t *testing.T) {
		data := []byte(`{"Results":[[{"A":"1"}],[{"A":"2"}]]}`)
		records, err := DecodeCrashAPI(data)

		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("empty envelope yields no records", func(t *testing.T) {
		records, err := DecodeCrashAPI([]byte(`{"Results":[]}`))
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("malformed JSON errors", func(t *testing.T) {
		_, err := DecodeCrashAPI([]byte(`{"Results":`))
		assert.Error(t, err)
	})
}
