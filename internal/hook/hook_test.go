package hook

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxvaer/sqlprobe/internal/scanner"
)

func sample() scanner.ProbeResult {
	return scanner.ProbeResult{
		URL:        "http://target/item?id=%27",
		Parameter:  "id",
		Status:     scanner.CodeStatus(500),
		Elapsed:    1.7,
		Payload:    "'",
		Vulnerable: true,
	}
}

func TestExpand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX quoting")
	}
	r := NewRunner("notify {url} {param} {status} {time} {vulnerable}", false, nil)
	res := sample()

	assert.Equal(t, "notify 'http://target/item?id=%27' 'id' '500' '1.70' 'true'", r.Expand(&res))
}

func TestQuoting(t *testing.T) {
	assert.Equal(t, `'1'\'' OR '\''1'\''='\''1'`, quotePOSIX("1' OR '1'='1"))
	assert.Equal(t, `1' ^& del x ^%PATH^%`, quoteCmd("1' & del x %PATH%"))
}

func TestRun_PayloadIsLiteral(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	dir := t.TempDir()
	marker := filepath.Join(dir, "marker")
	out := filepath.Join(dir, "payload.txt")
	r := NewRunner("printf '%s' {payload} > "+out, false, nil)

	res := sample()
	res.Payload = "1' OR '1'='1; touch " + marker + " #"
	r.OnResult(res)

	_, err := os.Stat(marker)
	assert.True(t, os.IsNotExist(err), "payload text must not run as a command")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, res.Payload, string(data))
}

func TestRun_Environment(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	out := filepath.Join(t.TempDir(), "env.txt")
	r := NewRunner(`printf '%s|%s' "$SQLPROBE_PAYLOAD" "$SQLPROBE_STATUS" > `+out, false, nil)

	res := sample()
	res.Payload = "'; echo x"
	r.OnResult(res)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "'; echo x|500", string(data))
}

func TestRun_WritesJSONToStdin(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	out := filepath.Join(t.TempDir(), "hook.json")
	r := NewRunner("cat > "+out, false, nil)

	r.OnResult(sample())

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	var got resultJSON
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "id", got.Parameter)
	assert.Equal(t, 500, got.Status)
	assert.True(t, got.Vulnerable)
}

func TestOnResult_Skips(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	marker := filepath.Join(t.TempDir(), "ran")
	r := NewRunner("touch "+marker, true, nil)

	clean := sample()
	clean.Vulnerable = false
	r.OnResult(clean)
	r.OnResult(scanner.Stopped())

	_, err := os.Stat(marker)
	assert.True(t, os.IsNotExist(err), "hook must not run for clean results or sentinels")

	r.OnResult(sample())
	_, err = os.Stat(marker)
	assert.NoError(t, err)
}
