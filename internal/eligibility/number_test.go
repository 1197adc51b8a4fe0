package eligibility

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		name  string
		in    interface{}
		want  float64
		valid bool
	}{
		{"nil is absent", nil, 0, false},
		{"float", 2.5, 2.5, true},
		{"int", 7, 7, true},
		{"numeric string", " 5000000 ", 5000000, true},
		{"exponent string", "1e3", 1000, true},
		{"garbage string", "five lakh", 0, true},
		{"empty string", "", 0, true},
		{"NaN string", "NaN", 0, true},
		{"bool", true, 0, true},
		{"json number", json.Number("42"), 42, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := ParseNumber(tt.in)
			assert.Equal(t, tt.valid, n.Valid)
			assert.Equal(t, tt.want, n.Float64())
		})
	}
}

func TestNumber_Set(t *testing.T) {
	assert.False(t, Number{}.Set())
	assert.False(t, NewNumber(0).Set())
	assert.True(t, NewNumber(0.1).Set())
	assert.True(t, NewNumber(-1).Set())
}

func TestNumber_MarshalJSON(t *testing.T) {
	out, err := json.Marshal(struct {
		A Number `json:"a"`
		B Number `json:"b"`
	}{A: NewNumber(5000000)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":5000000,"b":null}`, string(out))
}

func TestRequirements_DecodeYAML(t *testing.T) {
	doc := `
turnoverReq: "5000000"
experienceReq: 5
netWorthReq: ~
`
	var req Requirements
	require.NoError(t, yaml.Unmarshal([]byte(doc), &req))

	assert.Equal(t, float64(5000000), req.TurnoverReq.Float64())
	assert.True(t, req.ExperienceReq.Set())
	assert.False(t, req.NetWorthReq.Valid)
}
