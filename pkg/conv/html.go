package conv

import (
	"strings"

	"github.com/inbucket/html2text"
)

// HTMLToText flattens an HTML document into plain text suitable for chunking.
func HTMLToText(html string) (string, error) {
	text, err := html2text.FromString(html, html2text.Options{
		OmitLinks:    true,
		PrettyTables: false,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
