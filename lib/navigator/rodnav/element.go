package rodnav

import (
	"context"
	"sigeduc-scraper/lib/navigator"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

type element struct {
	el *rod.Element
}

func wrap(els rod.Elements) []navigator.Element {
	out := make([]navigator.Element, len(els))
	for i, el := range els {
		out[i] = element{el: el}
	}
	return out
}

func (e element) Text() (string, error) {
	return e.el.Text()
}

func (e element) Attribute(name string) (string, bool, error) {
	value, err := e.el.Attribute(name)
	if err != nil {
		return "", false, err
	}
	if value == nil {
		return "", false, nil
	}
	return *value, true, nil
}

func (e element) HTML() (string, error) {
	value, err := e.el.Property("innerHTML")
	if err != nil {
		return "", err
	}
	return value.Str(), nil
}

func (e element) Find(selector string) ([]navigator.Element, error) {
	els, err := e.el.Elements(selector)
	if err != nil {
		return nil, err
	}
	return wrap(els), nil
}

func (e element) Click(ctx context.Context) error {
	return navigator.Timeout(e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1))
}

func (e element) Fill(ctx context.Context, value string) error {
	el := e.el.Context(ctx)
	if err := el.SelectAllText(); err != nil {
		return navigator.Timeout(err)
	}
	return navigator.Timeout(el.Input(value))
}
