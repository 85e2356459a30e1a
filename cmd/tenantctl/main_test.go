package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopgate/pkg/config"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(config.Config{TenantSecret: "ctl-secret", DefaultSchema: "public", TenantSchemaPrefix: "tenant_"}, &out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestGenerateVerifySchema(t *testing.T) {
	out, err := run(t, "generate", "-n", "2")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)

	fields := strings.Split(lines[0], "\t")
	require.Len(t, fields, 2)
	id, schema := fields[0], fields[1]
	assert.Equal(t, "tenant_"+id[:32], schema)

	out, err = run(t, "verify", id)
	require.NoError(t, err)
	assert.Contains(t, out, "\tok")

	out, err = run(t, "schema", id)
	require.NoError(t, err)
	assert.Equal(t, schema, strings.TrimSpace(out))

	out, err = run(t, "schema", "default")
	require.NoError(t, err)
	assert.Equal(t, "public", strings.TrimSpace(out))
}

func TestVerifyRejects(t *testing.T) {
	out, err := run(t, "generate")
	require.NoError(t, err)
	id := strings.Split(strings.TrimSpace(out), "\t")[0]

	out, err = run(t, "--secret", "other-secret", "verify", id, "garbage")
	require.Error(t, err)
	assert.Contains(t, out, id+"\tinvalid")
	assert.Contains(t, out, "garbage\tinvalid")

	_, err = run(t, "schema", "garbage")
	require.Error(t, err)

	_, err = run(t, "--secret", "", "generate")
	require.Error(t, err)
}
