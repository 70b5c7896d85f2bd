package parser

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDemoRejectsNonDemo(t *testing.T) {
	junk := append([]byte("NOTADEMO"), bytes.Repeat([]byte{0x42}, 4096)...)

	match, err := ParseDemo(bytes.NewReader(junk), Options{})
	assert.Error(t, err)
	assert.Nil(t, match)
}

func TestParseFileMissing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "missing.dem"), Options{})
	assert.ErrorContains(t, err, "failed to open demo")
}
