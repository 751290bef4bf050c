package markdown

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extract(t *testing.T, source string) []string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.md")
	require.NoError(t, os.WriteFile(path, []byte(source), 0o600))

	content, err := New().Extract(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, 1, content.PageCount())

	var out []string
	for _, p := range content.Pages[0].Paragraphs {
		out = append(out, p.Text)
	}
	return out
}

func TestExtract(t *testing.T) {
	source := `# Supply Agreement

The supplier **must** deliver within
thirty days. See [terms](https://example.com).

- Late delivery incurs a *penalty*.
- Payment is due in ` + "`net 30`" + `.

> Quoted clause text.

` + "```go\nfmt.Println(\"ignored\")\n```" + `

![diagram](img.png)

---

| Term | Value |
|------|-------|
| Fee  | 2%    |
`

	got := extract(t, source)
	assert.Equal(t, []string{
		"Supply Agreement",
		"The supplier must deliver within thirty days. See terms.",
		"Late delivery incurs a penalty.",
		"Payment is due in net 30.",
		"Quoted clause text.",
		"Term | Value",
		"Fee | 2%",
	}, got)
}

func TestExtract_Empty(t *testing.T) {
	assert.Empty(t, extract(t, ""))
	assert.Empty(t, extract(t, "```\nonly code\n```"))
}

func TestSupportedExtensions(t *testing.T) {
	assert.Equal(t, []string{"md", "markdown"}, New().SupportedExtensions())
}
