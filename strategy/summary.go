package strategy

import (
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	),
)

// Summarize renders page HTML to markdown for prompting, truncated to
// maxLen runes. Returns "" for empty input or conversion failure; the
// planning prompt simply omits the section then.
func Summarize(sourceHTML string, maxLen int) string {
	if sourceHTML == "" {
		return ""
	}
	md, err := mdConverter.ConvertString(sourceHTML)
	if err != nil {
		return ""
	}
	runes := []rune(md)
	if len(runes) <= maxLen {
		return md
	}
	return string(runes[:maxLen]) + "…"
}
