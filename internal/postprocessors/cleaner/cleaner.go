// Package cleaner normalises raw note and email text before chunking.
package cleaner

import (
	"html"
	"regexp"
	"strings"

	"github.com/jaytaylor/html2text"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
)

var (
	horizontalSpaceRe = regexp.MustCompile(`[ \t\r\f\v]+`)
	spaceAroundNLRe   = regexp.MustCompile(` *\n *`)
	manyNewlinesRe    = regexp.MustCompile(`\n{3,}`)
	urlRe             = regexp.MustCompile(`https?://[^\s<>"]+`)
	wwwRe             = regexp.MustCompile(`\bwww\.[^\s<>"]+`)
	emailAddrRe       = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phoneRe           = regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`)
	bangsRe           = regexp.MustCompile(`!{2,}`)
	questionsRe       = regexp.MustCompile(`\?{2,}`)
	dotsRe            = regexp.MustCompile(`\.{2,}`)

	styleBlockRe = regexp.MustCompile(`(?is)<(style|script)[^>]*>.*?</(style|script)>`)
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
	looksHTMLRe  = regexp.MustCompile(`(?i)<(html|body|div|p|br|table|span|a|style)[\s/>]`)
	quotedLineRe = regexp.MustCompile(`(?m)^[ \t]*>.*$`)
	wroteRe      = regexp.MustCompile(`(?m)^[ \t]*On [^\n]{0,300}?(\n[^\n]{0,300}?)?wrote:[ \t]*$`)
	// A From: line followed by two to four more header lines in any order.
	// Outlook writes From/Sent/To/Subject, Gmail From/Date/Subject/To.
	forwardRe     = regexp.MustCompile(`(?mi)^[ \t]*From:.*(\n[ \t]*(From|Sent|Date|To|Cc|Subject):.*){2,4}$`)
	separatorRe   = regexp.MustCompile(`(?mi)^[ \t]*-{2,}[ \t]*(Original Message|Forwarded message)[ \t]*-{2,}[ \t]*$`)
	qpSoftBreakRe = regexp.MustCompile(`=\r?\n`)
	qpNewlineRe   = regexp.MustCompile(`=0[AD]`)
)

// Clean applies the cleaning rules for the document kind.
// Email text goes through CleanEmailText first.
func Clean(kind domain.DocumentKind, text string) string {
	if kind == domain.DocumentKindEmail {
		text = CleanEmailText(text)
	}
	return CleanText(text)
}

// CleanText normalises whitespace and strips URLs, email addresses,
// phone numbers and repeated punctuation.
func CleanText(text string) string {
	if text == "" {
		return ""
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = urlRe.ReplaceAllString(text, "")
	text = wwwRe.ReplaceAllString(text, "")
	text = emailAddrRe.ReplaceAllString(text, "")
	text = phoneRe.ReplaceAllString(text, "")
	text = bangsRe.ReplaceAllString(text, "!")
	text = questionsRe.ReplaceAllString(text, "?")
	text = dotsRe.ReplaceAllString(text, ".")

	text = horizontalSpaceRe.ReplaceAllString(text, " ")
	text = spaceAroundNLRe.ReplaceAllString(text, "\n")
	text = manyNewlinesRe.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

// CleanEmailText removes reply quoting, forwarded headers, markup and
// non-printable characters from an email body.
// The result contains printable ASCII plus newline and tab only.
func CleanEmailText(text string) string {
	if text == "" {
		return ""
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = qpSoftBreakRe.ReplaceAllString(text, "")
	text = qpNewlineRe.ReplaceAllString(text, " ")
	text = strings.ReplaceAll(text, "=3D", "=")

	text = styleBlockRe.ReplaceAllString(text, "")
	if looksHTMLRe.MatchString(text) {
		if plain, err := html2text.FromString(text, html2text.Options{OmitLinks: true, TextOnly: true}); err == nil {
			text = plain
		}
	}
	text = htmlTagRe.ReplaceAllString(text, "")
	text = html.UnescapeString(text)

	text = wroteRe.ReplaceAllString(text, "")
	text = quotedLineRe.ReplaceAllString(text, "")
	text = forwardRe.ReplaceAllString(text, "")
	text = separatorRe.ReplaceAllString(text, "")

	return strings.TrimSpace(PrintableASCII(text))
}

// PrintableASCII drops every byte that is not printable ASCII, newline or tab.
func PrintableASCII(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '\n' || c == '\t' || (c >= 0x20 && c <= 0x7e) {
			b.WriteByte(c)
		}
	}
	return b.String()
}
