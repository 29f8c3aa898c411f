package trafficgen

import (
	"chain_orchestrator/internal/topology"
	"chain_orchestrator/pkg/config"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(dir string) config.TrafficGeneratorConfig {
	return config.TrafficGeneratorConfig{
		RemoteHost:       "tgen.testbed.local",
		RemoteUser:       "operator",
		Password:         "secret",
		Binary:           "/opt/MoonGen/build/MoonGen",
		Script:           "/opt/libmoon_app/multi_traffic_gen.lua",
		DpdkConfigHome:   "/opt/conf/",
		DpdkConfigPrefix: "dpdk-config-",
		ScriptPrefix:     "startTrafficGen",
		ScriptDirectory:  dir,
	}
}

func testNodes() []topology.NodeConfig {
	return []topology.NodeConfig{
		{Index: 0, ExternalGate: "de:ad:be:02:02:00"},
		{Index: 1, ExternalGate: "de:ad:be:02:02:01"},
	}
}

func TestCommand(t *testing.T) {
	writer := NewWriter(testConfig(""))

	command := writer.Command(testNodes()[1], 1048576)
	assert.Equal(t, "sudo /opt/MoonGen/build/MoonGen /opt/libmoon_app/multi_traffic_gen.lua "+
		"--dpdk-config=/opt/conf/dpdk-config-2.lua -m de:ad:be:02:02:01 -f 1048576 0", command)
}

func TestRender(t *testing.T) {
	writer := NewWriter(testConfig(""))

	content, err := writer.Render(testNodes()[0], 1)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "#!/usr/bin/expect -f", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], `spawn ssh -t operator@tgen.testbed.local "sudo `))
	assert.Equal(t, `expect "password:"`, lines[2])
	assert.Equal(t, `send "secret\r"`, lines[3])
	assert.Equal(t, `expect "operator:"`, lines[4])
	assert.Equal(t, "interact", lines[6])
}

func TestRenderEscapesTclSpecialCharacters(t *testing.T) {
	tests := []struct {
		name     string
		password string
		expected string
	}{
		{name: "quote and command substitution", password: `p"a[exec id]$x`, expected: `send "p\"a\[exec id\]\$x\r"`},
		{name: "backslash", password: `a\b`, expected: `send "a\\b\r"`},
		{name: "plain", password: "secret", expected: `send "secret\r"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig("")
			cfg.Password = tt.password
			cfg.RemoteUser = "op$er"

			content, err := NewWriter(cfg).Render(testNodes()[0], 1)
			require.NoError(t, err)

			lines := strings.Split(strings.TrimSpace(string(content)), "\n")
			require.Len(t, lines, 7)
			assert.True(t, strings.HasPrefix(lines[1], `spawn ssh -t op\$er@tgen.testbed.local "sudo `))
			assert.Equal(t, tt.expected, lines[3])
			assert.Equal(t, `expect "op\$er:"`, lines[4])
			assert.Equal(t, tt.expected, lines[5])
		})
	}
}

func TestRenderWithoutPassword(t *testing.T) {
	cfg := testConfig("")
	cfg.Password = ""
	cfg.RemoteUser = ""

	content, err := NewWriter(cfg).Render(testNodes()[0], 1)
	require.NoError(t, err)

	assert.Equal(t, "#!/usr/bin/expect -f\n"+
		`spawn ssh -t tgen.testbed.local "sudo /opt/MoonGen/build/MoonGen /opt/libmoon_app/multi_traffic_gen.lua `+
		`--dpdk-config=/opt/conf/dpdk-config-1.lua -m de:ad:be:02:02:00 -f 1 0"`+"\ninteract\n", string(content))
}

func TestWriteAll(t *testing.T) {
	dir := t.TempDir()
	writer := NewWriter(testConfig(dir))

	paths, err := writer.WriteAll(testNodes(), 1)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "startTrafficGen0.sh"),
		filepath.Join(dir, "startTrafficGen1.sh"),
	}, paths)

	for _, path := range paths {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0755), info.Mode().Perm(), "Scripts must be executable")
	}
}

func TestWriteAllRollsBack(t *testing.T) {
	dir := t.TempDir()
	writer := NewWriter(testConfig(dir))

	require.NoError(t, os.Mkdir(writer.ScriptPath(1), 0755))

	_, err := writer.WriteAll(testNodes(), 1)
	assert.Error(t, err)

	_, err = os.Stat(writer.ScriptPath(0))
	assert.True(t, os.IsNotExist(err), "First script must be rolled back")
}
