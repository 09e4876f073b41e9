package cookiejar

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCookieFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cookies.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	future := time.Now().Add(24 * time.Hour).Unix()
	content := fmt.Sprintf(`# Netscape HTTP Cookie File
# This is a generated file! Do not edit.

.youtube.com	TRUE	/	TRUE	%d	LOGIN_INFO	abc123
.youtube.com	TRUE	/	FALSE	0	PREF	f1=50000000
`, future)

	cookies, err := LoadFile(writeCookieFile(t, content))
	require.NoError(t, err)
	require.Len(t, cookies, 2)

	assert.Equal(t, "LOGIN_INFO", cookies[0].Name)
	assert.Equal(t, "abc123", cookies[0].Value)
	assert.Equal(t, ".youtube.com", cookies[0].Domain)
	assert.True(t, cookies[0].Secure)

	// session cookie (expiry 0) survives
	assert.Equal(t, "PREF", cookies[1].Name)
	assert.False(t, cookies[1].Secure)
}

func TestLoadFileMissingPath(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.txt"))
	assert.ErrorIs(t, err, ErrPathInvalid)
}

func TestLoadFileAllExpired(t *testing.T) {
	past := time.Now().Add(-24 * time.Hour).Unix()
	content := fmt.Sprintf(".youtube.com\tTRUE\t/\tTRUE\t%d\tLOGIN_INFO\tstale\n", past)

	_, err := LoadFile(writeCookieFile(t, content))
	assert.ErrorIs(t, err, ErrNoCookies)
}

func TestLoadFileIgnoresMalformedLines(t *testing.T) {
	future := time.Now().Add(time.Hour).Unix()
	content := fmt.Sprintf("garbage line without tabs\n.youtube.com\tTRUE\t/\tFALSE\t%d\tSID\tok\n", future)

	cookies, err := LoadFile(writeCookieFile(t, content))
	require.NoError(t, err)
	require.Len(t, cookies, 1)
	assert.Equal(t, "SID", cookies[0].Name)
}

func TestFromBrowserUnsupported(t *testing.T) {
	_, err := FromBrowser("netscape-navigator", "", ".youtube.com")
	assert.ErrorIs(t, err, ErrUnsupportedBrowser)
}
