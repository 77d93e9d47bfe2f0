package repl_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"ssaflow/repl"
)

const diamondBlock = `fun diamond
{
   reg c
   reg r
_1:
   if (c) goto _2
_3:
   r := 2
   goto _4
_2:
   r := 1
   goto _4
_4:
   fun_result 0 r
}

`

func TestStartPrintsEachCanonicalStep(t *testing.T) {
	var out strings.Builder
	repl.Start(strings.NewReader(diamondBlock), &out)

	got := out.String()
	require.Contains(t, got, "=== diamond (initial) ===")
	require.Contains(t, got, "=== diamond (after combine_blocks) ===")
	require.Contains(t, got, "=== diamond (after convert_to_ssa_form) ===")
	require.Contains(t, got, "=== diamond (after remove_useless_copies) ===")
	require.Contains(t, got, repl.PROMPT)
}

func TestStartReportsParseErrors(t *testing.T) {
	var out strings.Builder
	repl.Start(strings.NewReader("fun broken\n{\n   r :=\n}\n\n"), &out)

	// The caret diagnostic carries the reporter's header and location line.
	require.Contains(t, out.String(), "error:")
	require.Contains(t, out.String(), "-->")
}

func TestStartIgnoresBlankInput(t *testing.T) {
	var out strings.Builder
	repl.Start(strings.NewReader("\n\n"), &out)

	require.NotContains(t, out.String(), "===")
}
