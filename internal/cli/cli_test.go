package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/pcgroups"
	pcgtest "github.com/arloliu/pcgroups/testing"
)

func TestParseMappings(t *testing.T) {
	mappings, err := parseMappings([]string{"a=0,1", "b= 2 ,3"})
	require.NoError(t, err)
	require.Equal(t, []pcgroups.MemberMapping{
		{Member: "a", Partitions: []int{0, 1}},
		{Member: "b", Partitions: []int{2, 3}},
	}, mappings)

	for _, bad := range []string{"a", "=1", "a=", "a=1,x"} {
		_, err := parseMappings([]string{bad})
		require.Error(t, err, bad)
	}
}

func TestPrintConfig(t *testing.T) {
	cfg := &pcgroups.GroupConfig{
		Kind:                  pcgroups.KindElastic,
		MaxMembers:            4,
		Filter:                "orders.*",
		PartitioningWildcards: []int{1},
		MaxBufferedMsgs:       10000,
		Members:               []string{"m2", "m1"},
		Revision:              7,
	}

	var buf bytes.Buffer
	printConfig(&buf, "orders", "billing", cfg)

	out := buf.String()
	require.Contains(t, out, "billing (elastic) on orders")
	require.Contains(t, out, "Revision:     7")
	require.Contains(t, out, "10,000 messages, unlimited size")
	require.Contains(t, out, "m1           0,1")
	require.Contains(t, out, "m2           2,3")

	buf.Reset()
	printConfig(&buf, "orders", "billing", &pcgroups.GroupConfig{Kind: pcgroups.KindStatic, MaxMembers: 2})
	require.Contains(t, buf.String(), "Members:      none")
}

func TestFormatPartitions(t *testing.T) {
	require.Equal(t, "idle", formatPartitions(nil))
	require.Equal(t, "1,3,5", formatPartitions([]int{5, 1, 3}))
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)

	err := root.ExecuteContext(t.Context())

	return out.String(), err
}

func TestCommands_ElasticLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}

	ns, nc := pcgtest.StartEmbeddedNATS(t)
	js := pcgtest.NewJetStream(t, nc)
	pcgtest.CreateStream(t, js, "orders", "orders.*")
	url := ns.ClientURL()

	out, err := runCommand(t, "--server", url, "elastic", "create", "orders", "billing",
		"--max-members", "2", "--filter", "orders.*", "--wildcards", "1", "--max-buffered-bytes", "1MiB")
	require.NoError(t, err)
	require.Contains(t, out, "unlimited messages, 1.0 MiB")

	out, err = runCommand(t, "--server", url, "elastic", "add", "orders", "billing", "m1", "m2")
	require.NoError(t, err)
	require.Contains(t, out, "m1           0")
	require.Contains(t, out, "m2           1")

	out, err = runCommand(t, "--server", url, "elastic", "ls", "orders")
	require.NoError(t, err)
	require.Equal(t, "billing\n", out)

	out, err = runCommand(t, "--server", url, "elastic", "set-mappings", "orders", "billing", "x=0,1")
	require.NoError(t, err)
	require.Contains(t, out, "x            0,1")

	_, err = runCommand(t, "--server", url, "elastic", "add", "orders", "billing", "m3")
	require.ErrorIs(t, err, pcgroups.ErrUnsupportedForMappingMode)

	out, err = runCommand(t, "--server", url, "elastic", "clear-mappings", "orders", "billing")
	require.NoError(t, err)
	require.Contains(t, out, "Members:      none")

	out, err = runCommand(t, "--server", url, "elastic", "delete", "orders", "billing")
	require.NoError(t, err)
	require.Contains(t, out, "deleted elastic group billing")

	_, err = runCommand(t, "--server", url, "elastic", "info", "orders", "billing")
	require.ErrorIs(t, err, pcgroups.ErrGroupNotFound)
}

func TestCommands_StaticCreateRequiresMaxMembers(t *testing.T) {
	_, err := runCommand(t, "static", "create", "orders", "audit")
	require.Error(t, err)
}
