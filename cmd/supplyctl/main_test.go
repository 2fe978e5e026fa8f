package main

import (
	"bytes"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dhemutton/mobile-application/internal/simulator"
)

const testOTP = "864200"

func TestCommandsAgainstSimulator(test *testing.T) {
	server, err := simulator.NewServer(simulator.Config{SigningKey: "cli-test-signing-key", FixedOTP: testOTP}, simulator.DefaultSeed(), nil, nil)
	require.NoError(test, err)
	httpServer := httptest.NewServer(server.Handler())
	test.Cleanup(httpServer.Close)
	key := server.CreateKey()
	database := filepath.Join(test.TempDir(), "cli.db")

	run := func(input string, args ...string) (string, error) {
		var output bytes.Buffer
		cmd := newRootCommand(strings.NewReader(input), &output)
		cmd.SetArgs(append(args, "--endpoint", httpServer.URL, "--database-url", database))
		err := cmd.Execute()
		return output.String(), err
	}

	output, err := run(testOTP+"\n", "login", "--mobile", "+6591234567", "--key", key)
	require.NoError(test, err)
	require.Contains(test, output, "Signed in.")

	output, err = run("", "env")
	require.NoError(test, err)
	require.Contains(test, output, "Fresh Meat")
	require.Contains(test, output, "REQUIRE_OTP=true")

	output, err = run("", "redeem", "S8174504H", "--item", "meat=2", "--item", "masks=1:Serial=SN42")
	require.NoError(test, err)
	require.Contains(test, output, "Fresh Meat x2")
	require.Contains(test, output, "SN42")

	output, err = run("", "quota", "S8174504H")
	require.NoError(test, err)
	require.Contains(test, output, "Fresh Meat")

	output, err = run("", "history", "S8174504H")
	require.NoError(test, err)
	require.Contains(test, output, "Face Masks x1")

	output, err = run("", "logout")
	require.NoError(test, err)
	require.Contains(test, output, "Logged out")

	_, err = run("", "quota", "S8174504H")
	require.Error(test, err)
}

func TestLoadConfigRequiresEndpoint(test *testing.T) {
	cmd := newRootCommand(strings.NewReader(""), &bytes.Buffer{})
	cmd.SetArgs([]string{"env"})
	require.Error(test, cmd.Execute())
}
