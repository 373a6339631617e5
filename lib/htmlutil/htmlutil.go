package htmlutil

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// NormalizeText strips non printable runes, trims the edges and collapses
// inner runs of whitespace (including &nbsp;) into a single space.
func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = removeNonPrintable(s)
	s = strings.TrimSpace(s)
	return innerWhitespace.ReplaceAllString(s, " ")
}

// ResolveHref turns an href found on a page into an absolute url.
//
// - hrefs that already carry a scheme and host are returned as-is
// - root relative hrefs ("/app/x.jsf") are prefixed with the origin of base
// - any other relative form is resolved against base
func ResolveHref(base *url.URL, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", fmt.Errorf("empty href")
	}
	link, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse href '%s': %w", href, err)
	}
	if link.Scheme != "" && link.Host != "" {
		return href, nil
	}
	if base == nil {
		return "", fmt.Errorf("relative href '%s' without a base url", href)
	}
	if strings.HasPrefix(href, "/") && !strings.HasPrefix(href, "//") {
		return fmt.Sprintf("%s://%s%s", base.Scheme, base.Host, href), nil
	}
	return base.ResolveReference(link).String(), nil
}
