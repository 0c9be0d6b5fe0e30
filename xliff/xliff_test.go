package xliff

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDocument = `<?xml version="1.0" encoding="utf-8"?>
<xliff version="1.2">
  <file source-language="en" target-language="cs" datatype="plaintext" original="messages">
    <header>
      <tool tool-id="weblate" tool-name="Weblate"/>
    </header>
    <body>
      <trans-unit id="1" resname="greeting">
        <source>Hello world</source>
        <target>Ahoj světe</target>
        <context-group purpose="location">
          <context context-type="sourcefile">foo.bar</context>
          <context context-type="linenumber">123</context>
        </context-group>
        <context-group purpose="location">
          <context context-type="sourcefile">bar.foo</context>
          <context context-type="linenumber">321</context>
        </context-group>
      </trans-unit>
      <trans-unit id="2">
        <source>Goodbye</source>
        <target>Sbohem</target>
        <context-group purpose="location">
          <context context-type="sourcefile">foo.bar</context>
        </context-group>
      </trans-unit>
    </body>
  </file>
</xliff>`

func writeTestFile(t *testing.T, name string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(testDocument), 0o644))

	return path
}

func TestNewFromFile(t *testing.T) {
	x, err := NewFromFile(writeTestFile(t, "messages.cs.xliff"))
	require.NoError(t, err)

	assert.Equal(t, "messages", x.Component())
	assert.Equal(t, "cs", x.Language())

	units := x.Units()
	require.Len(t, units, 2)

	assert.Equal(t, "greeting", units[0].Context)
	assert.Equal(t, "Hello world", units[0].Source)
	assert.Equal(t, "Ahoj světe", units[0].Target)
	assert.Equal(t, "foo.bar:123,bar.foo:321", units[0].Location)

	// Falls back to the id attribute when resname is missing, and keeps a
	// line-less location as a bare filename.
	assert.Equal(t, "2", units[1].Context)
	assert.Equal(t, "foo.bar", units[1].Location)
}

func TestNewFromFileLanguageMismatch(t *testing.T) {
	_, err := NewFromFile(writeTestFile(t, "messages.de.xliff"))

	assert.Error(t, err)
}

func TestNewFromFileBadName(t *testing.T) {
	_, err := NewFromFile(writeTestFile(t, "messages.xliff"))

	assert.Error(t, err)
}
