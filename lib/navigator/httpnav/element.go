package httpnav

import (
	"context"
	"fmt"
	"net/url"
	"sigeduc-scraper/lib/htmlutil"
	"sigeduc-scraper/lib/navigator"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type element struct {
	engine *Engine
	sel    *goquery.Selection
}

func wrap(engine *Engine, sel *goquery.Selection) []navigator.Element {
	out := make([]navigator.Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, element{engine: engine, sel: s})
	})
	return out
}

func (el element) Text() (string, error) {
	return htmlutil.GetText(el.sel.Get(0)), nil
}

func (el element) Attribute(name string) (string, bool, error) {
	value, ok := el.sel.Attr(name)
	return value, ok, nil
}

func (el element) HTML() (string, error) {
	return el.sel.Html()
}

func (el element) Find(selector string) ([]navigator.Element, error) {
	return wrap(el.engine, el.sel.Find(selector)), nil
}

func (el element) Fill(ctx context.Context, value string) error {
	switch goquery.NodeName(el.sel) {
	case "input":
		el.sel.SetAttr("value", value)
	case "textarea":
		el.sel.SetText(value)
	default:
		return fmt.Errorf("%w: fill <%s>", navigator.ErrUnsupported, goquery.NodeName(el.sel))
	}
	return nil
}

func isSubmitControl(sel *goquery.Selection) bool {
	kind := strings.ToLower(sel.AttrOr("type", ""))
	switch goquery.NodeName(sel) {
	case "button":
		return kind == "" || kind == "submit"
	case "input":
		return kind == "submit" || kind == "image"
	}
	return false
}

func (el element) Click(ctx context.Context) error {
	name := goquery.NodeName(el.sel)

	if name == "a" {
		href, ok := el.sel.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" || href == "#" || strings.HasPrefix(strings.ToLower(href), "javascript:") {
			return fmt.Errorf("%w: anchor without a followable href", navigator.ErrUnsupported)
		}
		return el.engine.Goto(ctx, href)
	}

	if isSubmitControl(el.sel) {
		form := el.sel.Closest("form")
		if form.Length() == 0 {
			return fmt.Errorf("%w: submit control outside of a form", navigator.ErrUnsupported)
		}
		return el.engine.submit(ctx, form, el.sel)
	}

	return fmt.Errorf("%w: click <%s>", navigator.ErrUnsupported, name)
}

func formMethod(form *goquery.Selection) string {
	method := strings.ToUpper(strings.TrimSpace(form.AttrOr("method", "GET")))
	if method != "POST" {
		return "GET"
	}
	return method
}

// formValues serializes the successful controls of form the way a browser
// would when submitter is activated.
func formValues(form, submitter *goquery.Selection) url.Values {
	values := url.Values{}

	form.Find("input, select, textarea").Each(func(_ int, field *goquery.Selection) {
		name, ok := field.Attr("name")
		if !ok || name == "" {
			return
		}
		if _, disabled := field.Attr("disabled"); disabled {
			return
		}

		switch goquery.NodeName(field) {
		case "input":
			switch strings.ToLower(field.AttrOr("type", "text")) {
			case "submit", "button", "image", "reset", "file":
				return
			case "checkbox", "radio":
				if _, checked := field.Attr("checked"); !checked {
					return
				}
				values.Add(name, field.AttrOr("value", "on"))
			default:
				values.Add(name, field.AttrOr("value", ""))
			}
		case "select":
			option := field.Find("option[selected]").First()
			if option.Length() == 0 {
				option = field.Find("option").First()
			}
			if option.Length() > 0 {
				values.Add(name, option.AttrOr("value", strings.TrimSpace(option.Text())))
			}
		case "textarea":
			values.Add(name, field.Text())
		}
	})

	if name, ok := submitter.Attr("name"); ok && name != "" {
		values.Add(name, submitter.AttrOr("value", ""))
	}

	return values
}
