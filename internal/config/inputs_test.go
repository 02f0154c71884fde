package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStringMap(t *testing.T) {
	got, err := ParseStringMap(`{"ENV":"prod","COUNT":3,"RATIO":0.5,"DRY":true,"NONE":null,"LIST":["a","b"]}`)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"ENV":   "prod",
		"COUNT": "3",
		"RATIO": "0.5",
		"DRY":   "true",
		"NONE":  "",
		"LIST":  `["a","b"]`,
	}, got)
}

func TestParseStringMap_Invalid(t *testing.T) {
	_, err := ParseStringMap(`["not","an","object"]`)
	assert.Error(t, err)

	_, err = ParseStringMap(`{`)
	assert.Error(t, err)
}

func TestParseKeyValues(t *testing.T) {
	got, err := ParseKeyValues([]string{"A=1", "B=x=y", "C="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1", "B": "x=y", "C": ""}, got)

	_, err = ParseKeyValues([]string{"novalue"})
	assert.Error(t, err)

	_, err = ParseKeyValues([]string{"=v"})
	assert.Error(t, err)
}

func TestMergeStringMaps(t *testing.T) {
	base := map[string]string{"Authorization": "Basic abc", "X-A": "1"}
	override := map[string]string{"X-A": "2", "X-B": "3"}

	merged := MergeStringMaps(base, override)

	assert.Equal(t, map[string]string{"Authorization": "Basic abc", "X-A": "2", "X-B": "3"}, merged)
	assert.Equal(t, "1", base["X-A"], "base must not be modified")
	assert.Empty(t, MergeStringMaps(nil, nil))
}
