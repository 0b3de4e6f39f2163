package dom

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const hiddenAttr = "hidden"

// Show снимает атрибут hidden.
func Show(sel *goquery.Selection) {
	sel.RemoveAttr(hiddenAttr)
}

// Hide ставит атрибут hidden.
func Hide(sel *goquery.Selection) {
	sel.SetAttr(hiddenAttr, "")
}

// IsHidden: true, если первый элемент или любой его предок скрыт.
func IsHidden(sel *goquery.Selection) bool {
	if sel.Length() == 0 {
		return true
	}

	for cur := sel.Get(0); cur != nil; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		for _, a := range cur.Attr {
			if a.Key == hiddenAttr {
				return true
			}
		}
	}

	return false
}

// Value возвращает значение поля: текст textarea либо атрибут value у input.
func Value(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}

	if goquery.NodeName(sel) == "textarea" {
		return sel.Text()
	}

	v, _ := sel.Attr("value")
	return v
}

// SetValue записывает значение поля.
func SetValue(sel *goquery.Selection, v string) {
	if sel.Length() == 0 {
		return
	}

	if goquery.NodeName(sel) == "textarea" {
		sel.SetText(v)
		return
	}

	sel.SetAttr("value", v)
}

// Data читает data-атрибут (ключ без префикса data-).
func Data(sel *goquery.Selection, key string) (string, bool) {
	return sel.Attr("data-" + key)
}

// SetData записывает data-атрибут.
func SetData(sel *goquery.Selection, key, value string) {
	sel.SetAttr("data-"+key, value)
}

// RemoveData удаляет data-атрибут.
func RemoveData(sel *goquery.Selection, key string) {
	sel.RemoveAttr("data-" + key)
}

// SetDisabled включает/выключает атрибут disabled.
func SetDisabled(sel *goquery.Selection, disabled bool) {
	if disabled {
		sel.SetAttr("disabled", "")
		return
	}

	sel.RemoveAttr("disabled")
}

// IsDisabled сообщает, стоит ли disabled на первом элементе.
func IsDisabled(sel *goquery.Selection) bool {
	_, ok := sel.Attr("disabled")
	return ok
}

// ToggleClass ставит или снимает класс.
func ToggleClass(sel *goquery.Selection, class string, on bool) {
	if on {
		sel.AddClass(class)
		return
	}

	sel.RemoveClass(class)
}

// TrimmedValue: Value без пробелов по краям.
func TrimmedValue(sel *goquery.Selection) string {
	return strings.TrimSpace(Value(sel))
}
