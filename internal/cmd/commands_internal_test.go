// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aibor/vrboot/internal/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	root := newRootCommand(newFlags(), IO{
		Stdin:  strings.NewReader(""),
		Stdout: &stdout,
		Stderr: &stderr,
	})
	root.SetArgs(args)

	err := root.ExecuteContext(t.Context())

	return stdout.String(), stderr.String(), err
}

func TestClassifyCommand(t *testing.T) {
	stdout, _, err := execute(t, "classify",
		"/images/viptela-vmanage-20.9.qcow2",
		"vbond-20.9.qcow2",
		"FreeBSD-14.0.qcow2",
	)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 4)

	assert.Equal(t,
		[]string{"IMAGE", "ROLE", "FAMILY", "CPUS", "MEMORY", "DATA", "DISK", "NICS", "HOSTNAME"},
		strings.Fields(lines[0]))
	assert.Equal(t,
		[]string{"viptela-vmanage-20.9.qcow2", "manager", "sdwan", "4", "16384M", "50G", "5", "sdwan-manager"},
		strings.Fields(lines[1]))
	assert.Equal(t,
		[]string{"vbond-20.9.qcow2", "validator", "sdwan", "2", "2048M", "-", "5", "sdwan-validator"},
		strings.Fields(lines[2]))
	assert.Equal(t,
		[]string{"FreeBSD-14.0.qcow2", "firewall", "firewall", "1", "512M", "-", "16", "freebsd"},
		strings.Fields(lines[3]))
}

func TestClassifyCommandUnrecognized(t *testing.T) {
	stdout, _, err := execute(t, "classify", "vbond.qcow2", "ubuntu.qcow2")
	require.ErrorIs(t, err, profile.ErrUnrecognizedImage)

	assert.Empty(t, stdout, "nothing printed if any image is unrecognized")
	assert.Equal(t, ExitConfig, exitCode(err))
}

func TestClassifyCommandNoArgs(t *testing.T) {
	_, _, err := execute(t, "classify")
	assert.Error(t, err)
}

func TestNICsCommand(t *testing.T) {
	t.Setenv(AddDiskEnv, "")

	stdout, _, err := execute(t, "nics",
		"--role", "validator",
		"--nics", "2",
		"--image-dir", t.TempDir(),
		"--config-dir", t.TempDir(),
		"--work-dir", t.TempDir(),
	)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 5)

	assert.Equal(t, "validator (validator)", lines[0])
	assert.Equal(t,
		[]string{"PORT", "EXTERNAL", "GUEST", "SLOT", "TAP", "MAC"},
		strings.Fields(lines[1]))

	for idx, line := range lines[2:] {
		fields := strings.Fields(line)
		require.Len(t, fields, 6)
		assert.Equal(t, []string{
			strings.TrimPrefix(fields[1], "eth"),
			"eth" + fields[3],
		}, []string{fields[0], fields[2]}, "line %d", idx)
	}

	assert.Equal(t, "(mgmt)", strings.Fields(lines[2])[4])
}

func TestNICsCommandInvalidTopology(t *testing.T) {
	_, _, err := execute(t, "nics",
		"--role", "controller",
		"--nics", "9",
		"--image-dir", t.TempDir(),
		"--config-dir", t.TempDir(),
	)
	require.Error(t, err)
	assert.Equal(t, ExitConfig, exitCode(err))
}

func TestRunCommandNoImages(t *testing.T) {
	_, _, err := execute(t, "run", "--image-dir", t.TempDir())
	require.ErrorIs(t, err, ErrNoImagesFound)
	assert.Equal(t, ExitConfig, exitCode(err))
}

func TestUnknownFlag(t *testing.T) {
	_, _, err := execute(t, "--unknown")
	require.ErrorIs(t, err, &ParseArgsError{})
	assert.Equal(t, ExitConfig, exitCode(err))
}

func TestHelp(t *testing.T) {
	stdout, _, err := execute(t, "--help")
	require.NoError(t, err)

	assert.Contains(t, stdout, "vrboot run")
	assert.Contains(t, stdout, "--connection-mode")
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := execute(t, "version")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(stdout, "Version: "))
}
