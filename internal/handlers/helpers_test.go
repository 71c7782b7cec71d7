package handlers

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	cases := map[string]string{
		"rfc3339":      "2020-03-12T19:26:12Z",
		"rfc3339 nano": "2020-03-12T19:26:12.123456Z",
		"datetime":     "2020-03-12 19:26:12",
		"date only":    "2020-03-12",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			parsed := parseTime(raw)
			require.NotNil(t, parsed)
			assert.Equal(t, 2020, parsed.Year())
			assert.Equal(t, time.March, parsed.Month())
			assert.Equal(t, 12, parsed.Day())
		})
	}

	assert.Nil(t, parseTime(""))
	assert.Nil(t, parseTime("not a date"))
}

func TestDecodeEnvelopesSingleAndArray(t *testing.T) {
	single, err := decodeEnvelopes(strings.NewReader(`{"company_token":"acme","location":{"uuid":"a"}}`))
	require.NoError(t, err)
	require.Len(t, single, 1)
	assert.Equal(t, "acme", single[0].CompanyToken)

	many, err := decodeEnvelopes(strings.NewReader(` [{"company_token":"a"},{"company_token":"b"}] `))
	require.NoError(t, err)
	require.Len(t, many, 2)

	_, err = decodeEnvelopes(strings.NewReader(`{broken`))
	assert.Error(t, err)
}
