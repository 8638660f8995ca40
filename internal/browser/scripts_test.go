package browser

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSStringEscapesScriptContext(t *testing.T) {
	assert.Equal(t, `"plain"`, jsString("plain"))
	assert.Equal(t, `"say \"hi\""`, jsString(`say "hi"`))
	assert.Equal(t, `"line\nbreak"`, jsString("line\nbreak"))
	// A descriptor trying to break out stays a single string literal:
	// the quoted form decodes back to exactly the input, so nothing
	// escaped the literal into script position.
	hostile := `"); alert(1); ("`
	quoted := jsString(hostile)
	var decoded string
	require.NoError(t, json.Unmarshal([]byte(quoted), &decoded))
	assert.Equal(t, hostile, decoded)
}

func TestFinderBuildersQuoteTarget(t *testing.T) {
	sel := finderSelector(`a[href="x"]`)
	assert.True(t, strings.HasPrefix(sel, "document.querySelector("))
	assert.Contains(t, sel, `\"x\"`)

	scan := finderScan("Buy now")
	assert.Contains(t, scan, `"Buy now"`)
}

func TestJSSetValueEmbedsExactText(t *testing.T) {
	script := jsSetValue(finderSelector("#q"), `exact "text"`)
	assert.Contains(t, script, `"exact \"text\""`)
	assert.Contains(t, script, "dispatchEvent")
}

func TestRestoreLocalStorageEncodesEntries(t *testing.T) {
	script := jsRestoreLocalStorage(map[string]string{"cart": `["a"]`})
	assert.Contains(t, script, `"cart"`)
	assert.Contains(t, script, "localStorage.setItem")
}
