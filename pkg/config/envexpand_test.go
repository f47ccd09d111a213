package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

func TestExpandEnv(t *testing.T) {
	tests := []struct {
		name  string
		input string
		env   map[string]string
		want  string
	}{
		{
			name:  "simple substitution",
			input: "token: {{.HUB_TOKEN}}",
			env:   map[string]string{"HUB_TOKEN": "secret123"},
			want:  "token: secret123",
		},
		{
			name:  "literal ${VAR} is not expanded",
			input: "pattern: ${USER_ID}",
			env:   map[string]string{"USER_ID": "123"},
			want:  "pattern: ${USER_ID}",
		},
		{
			name:  "literal $ preserved",
			input: "regex: ^secret.*$",
			want:  "regex: ^secret.*$",
		},
		{
			name:  "multiple substitutions in one line",
			input: "url: {{.SCHEME}}://{{.HOST}}:{{.PORT}}",
			env:   map[string]string{"SCHEME": "wss", "HOST": "hub.local", "PORT": "8123"},
			want:  "url: wss://hub.local:8123",
		},
		{
			name:  "missing variable expands to empty",
			input: "endpoint: {{.MISSING_VAR}}",
			want:  "endpoint: ",
		},
		{
			name:  "nested YAML structure",
			input: "store:\n  url: {{.STORE_URL}}\n  org: {{.STORE_ORG}}",
			env:   map[string]string{"STORE_URL": "http://influx:8086", "STORE_ORG": "home"},
			want:  "store:\n  url: http://influx:8086\n  org: home",
		},
		{
			name:  "special characters in expanded value",
			input: "api_key: {{.API_KEY}}",
			env:   map[string]string{"API_KEY": "p@ssw0rd!#$%"},
			want:  "api_key: p@ssw0rd!#$%",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			assert.Equal(t, tt.want, string(ExpandEnv([]byte(tt.input))))
		})
	}
}

// Malformed template syntax must pass through unchanged so the YAML
// parser can handle it (or fail with a clearer error).
func TestExpandEnvMalformedTemplates(t *testing.T) {
	inputs := []string{
		"api_key: {{.API_KEY",
		"api_key: {{",
		"api_key: }}.API_KEY{{",
		"key1: {{.VAR1\nkey2: {{.VAR2}",
	}

	t.Setenv("API_KEY", "should-not-appear")
	t.Setenv("VAR1", "should-not-appear")
	t.Setenv("VAR2", "should-not-appear")

	for _, input := range inputs {
		result := ExpandEnv([]byte(input))
		assert.Equal(t, input, string(result))
		assert.NotContains(t, string(result), "should-not-appear")
	}
}

func TestExpandEnvPassThroughToYAMLParser(t *testing.T) {
	// Malformed template but valid YAML: treated as a string literal.
	input := "hub:\n  url: ws://hub.local\n  token: \"{{.HUB_TOKEN\"\n"
	expanded := ExpandEnv([]byte(input))

	var result map[string]any
	assert.NoError(t, yaml.Unmarshal(expanded, &result))
	assert.NotNil(t, result["hub"])
}

func TestExpandEnvWithEmptyInput(t *testing.T) {
	assert.Empty(t, ExpandEnv(nil))
}
