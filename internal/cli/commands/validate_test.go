package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querypath-labs/querypath/internal/cli/testutil"
	"github.com/querypath-labs/querypath/pkg/validate"
)

func TestSQLInput(t *testing.T) {
	t.Run("argument wins", func(t *testing.T) {
		got, err := sqlInput(&cobra.Command{}, []string{"SELECT 1"}, "")
		require.NoError(t, err)
		assert.Equal(t, "SELECT 1", got)
	})

	t.Run("from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "query.sql")
		require.NoError(t, os.WriteFile(path, []byte("SELECT fund_name FROM funds"), 0600))

		got, err := sqlInput(&cobra.Command{}, nil, path)
		require.NoError(t, err)
		assert.Equal(t, "SELECT fund_name FROM funds", got)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := sqlInput(&cobra.Command{}, nil, filepath.Join(t.TempDir(), "nope.sql"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read file")
	})

	t.Run("argument beats file", func(t *testing.T) {
		got, err := sqlInput(&cobra.Command{}, []string{"SELECT 2"}, "ignored.sql")
		require.NoError(t, err)
		assert.Equal(t, "SELECT 2", got)
	})
}

func TestRenderValidateResultValid(t *testing.T) {
	tr := testutil.NewTestRendererText()

	renderValidateResult(tr.Renderer, &validate.Result{IsValid: true})

	testutil.AssertContains(t, tr.Output(), "query is valid")
	testutil.AssertNoANSI(t, tr.Output())
}

func TestRenderValidateResultErrors(t *testing.T) {
	tr := testutil.NewTestRendererText()

	renderValidateResult(tr.Renderer, &validate.Result{
		IsValid: false,
		Errors:  []string{`table "fnds" does not exist`},
	})

	testutil.AssertContains(t, tr.ErrorOutput(), "fnds")
	testutil.AssertNotContains(t, tr.Output(), "query is valid")
}

func TestRenderValidateResultCorrections(t *testing.T) {
	tr := testutil.NewTestRendererText()

	renderValidateResult(tr.Renderer, &validate.Result{
		IsValid:            true,
		CorrectedSQL:       "SELECT fund_name FROM funds",
		CorrectionsApplied: []string{`"FUNDS" -> "funds"`},
	})

	out := tr.Output()
	testutil.AssertContains(t, out, "Corrected SQL:")
	testutil.AssertContains(t, out, "SELECT fund_name FROM funds")
	testutil.AssertContains(t, out, `"FUNDS" -> "funds"`)
}

func TestRenderValidateResultMarkdown(t *testing.T) {
	tr := testutil.NewTestRendererMarkdown()

	renderValidateResult(tr.Renderer, &validate.Result{
		IsValid:      true,
		CorrectedSQL: "SELECT fund_name FROM funds",
	})

	out := tr.Output()
	testutil.AssertContains(t, out, "## Corrected SQL")
	testutil.AssertContains(t, out, "```sql")
	testutil.AssertValidMarkdown(t, out)
}

func TestValidationErr(t *testing.T) {
	assert.NoError(t, validationErr(nil))
	assert.NoError(t, validationErr(&validate.Result{IsValid: true}))

	err := validationErr(&validate.Result{IsValid: false, Errors: []string{"a", "b"}})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "2 error(s)"))
}
