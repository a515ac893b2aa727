package chat

import (
	"math"
	"regexp"
	"strings"
	"time"

	"kabiseo/cmd/kabiseo/ui"
	"kabiseo/internal/logging"
)

var (
	imageTag  = regexp.MustCompile(`\[IMG:(.*?)\]`)
	driveFile = regexp.MustCompile(`/file/d/([^/?#]+)`)
)

// markdownEscaper backslash-escapes the punctuation markdown gives meaning
// to, so bot text renders exactly as the server wrote it.
var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", `*`, `\*`, `_`, `\_`, `[`, `\[`, `]`, `\]`,
	`<`, `\<`, `>`, `\>`, `#`, `\#`, `+`, `\+`, `-`, `\-`, `.`, `\.`,
	`!`, `\!`, `|`, `\|`, `~`, `\~`, `=`, `\=`, `&`, `\&`,
)

// escapeMarkdown makes text literal under markdown. Leading indentation is
// dropped since four spaces would start a code block.
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = markdownEscaper.Replace(strings.TrimLeft(line, " \t"))
	}
	return strings.Join(lines, "\n")
}

// historyStatusEmoji decorates the reviewer's campaign history lines.
var historyStatusEmoji = map[string]string{
	"입금완료":   "✅",
	"리뷰제출":   "🟢",
	"입금대기":   "💰",
	"구매내역제출": "🔵",
	"가이드전달":  "🟡",
	"신청":     "⚪",
	"타임아웃취소": "⏰",
	"취소":     "⛔",
}

func statusEmoji(status string) string {
	return historyStatusEmoji[strings.TrimSpace(status)]
}

// splitImages removes [IMG:url] tags from text and returns their urls in
// order of appearance.
func splitImages(text string) (string, []string) {
	var images []string
	for _, match := range imageTag.FindAllStringSubmatch(text, -1) {
		if url := strings.TrimSpace(match[1]); url != "" {
			images = append(images, url)
		}
	}
	return imageTag.ReplaceAllString(text, ""), images
}

// driveThumbnail rewrites a Google Drive file link to its thumbnail url.
// Other urls are returned unchanged.
func driveThumbnail(url string) string {
	if m := driveFile.FindStringSubmatch(url); m != nil {
		return "https://drive.google.com/thumbnail?id=" + m[1] + "&sz=w400"
	}
	return url
}

// formatStamp renders a seconds-since-epoch timestamp as local HH:MM,
// rounded to the nearest minute. Zero renders as empty.
func formatStamp(ts float64) string {
	if ts <= 0 || math.IsNaN(ts) || math.IsInf(ts, 0) {
		return ""
	}
	sec, frac := math.Modf(ts)
	t := time.Unix(int64(sec), int64(frac*float64(time.Second)))
	return t.Round(time.Minute).Local().Format("15:04")
}

// renderText renders plain message text through glamour for wrapping and
// theme colors. Markdown syntax is escaped first and shows verbatim.
func (m Model) renderText(content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			// If glamour panics, return plain text
			result = content
		}
	}()

	if m.renderer == nil || strings.TrimSpace(content) == "" {
		return content
	}

	key := ui.ComputeKey(content, m.bodyWidth(), m.styles.Theme.IsDark)
	return m.cache.GetOrCompute(key, func() string {
		defer logging.StartTimer(logging.CategoryUI, "render message").StopWithThreshold(50 * time.Millisecond)
		rendered, err := m.renderer.Render(escapeMarkdown(content))
		if err != nil {
			return content
		}
		return strings.Trim(rendered, "\n")
	})
}

// renderBody formats a bot message: images first as thumbnail lines, then
// the text.
func (m Model) renderBody(text string) string {
	body, images := splitImages(text)

	var parts []string
	for _, url := range images {
		parts = append(parts, "🖼  "+m.styles.Link.Render(driveThumbnail(url)))
	}
	if strings.TrimSpace(body) != "" {
		parts = append(parts, m.renderText(strings.TrimSpace(body)))
	}
	return strings.Join(parts, "\n")
}
