package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		allowedFlags []string
		want         []string
	}{
		{
			name:         "short flag with separate value",
			args:         []string{"-d", "postgres://x", "-z", "other"},
			allowedFlags: []string{"-d", "--dsn"},
			want:         []string{"-d", "postgres://x"},
		},
		{
			name:         "long flag with equals",
			args:         []string{"--dsn=postgres://x", "-z", "other"},
			allowedFlags: []string{"-d", "--dsn"},
			want:         []string{"--dsn=postgres://x"},
		},
		{
			name:         "order preserved across forms",
			args:         []string{"--dsn=first", "-d", "second", "-x", "1"},
			allowedFlags: []string{"-d", "--dsn"},
			want:         []string{"--dsn=first", "-d", "second"},
		},
		{
			name:         "unknown flags and positionals dropped",
			args:         []string{"-x", "1", "--y=2", "positional"},
			allowedFlags: []string{"-d"},
			want:         []string{},
		},
		{
			name:         "trailing flag without value kept",
			args:         []string{"-apply"},
			allowedFlags: []string{"-apply"},
			want:         []string{"-apply"},
		},
		{
			name:         "flag followed by another flag takes no value",
			args:         []string{"-apply", "-d", "dsn"},
			allowedFlags: []string{"-apply", "-d"},
			want:         []string{"-apply", "-d", "dsn"},
		},
		{
			name:         "empty input",
			args:         []string{},
			allowedFlags: []string{"-d"},
			want:         []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterArgs(tt.args, tt.allowedFlags)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJsonConfigFlags(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()

	os.Args = []string{"cmd", "-d", "dsn", "-c", "conf.json"}
	assert.Equal(t, "conf.json", JsonConfigFlags())

	os.Args = []string{"cmd", "-config=alt.json"}
	assert.Equal(t, "alt.json", JsonConfigFlags())

	os.Args = []string{"cmd", "-d", "dsn"}
	assert.Equal(t, "", JsonConfigFlags())
}
