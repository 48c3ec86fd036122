package portal

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	usernameSelectors = []string{
		`input[name="username"]`,
		`input[name="_user"]`,
		`input[id="username"]`,
		`input[name="user"]`,
		`input[id*="login"]`,
		`input[type="email"]`,
		`input[data-testid="username"]`,
		`input.login-input[type="text"]`,
	}
	passwordSelectors = []string{
		`input[name="password"]`,
		`input[name="_pass"]`,
		`input[id="password"]`,
		`input[type="password"]`,
		`input[data-testid="password"]`,
		`input.login-input[type="password"]`,
	}

	unavailablePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Serviço\s+Indisponível`),
		regexp.MustCompile(`(?i)serviço não está disponível`),
	}
)

// unavailable reports whether page text announces a portal outage.
func unavailable(text string) (string, bool) {
	for _, re := range unavailablePatterns {
		if m := re.FindString(text); m != "" {
			return m, true
		}
	}
	return "", false
}

type loginForm struct {
	action   *url.URL
	method   string
	userName string
	passName string
	fields   url.Values
}

// fill returns the form fields with the credentials set.
func (f loginForm) fill(username, password string) url.Values {
	values := url.Values{}
	for k, v := range f.fields {
		values[k] = append([]string(nil), v...)
	}
	values.Set(f.userName, username)
	values.Set(f.passName, password)
	return values
}

// findLoginForm returns the first form holding both credential fields.
func findLoginForm(doc *goquery.Document, base *url.URL) (loginForm, bool) {
	var (
		found loginForm
		ok    bool
	)
	doc.Find("form").EachWithBreak(func(_ int, form *goquery.Selection) bool {
		user := firstMatch(form, usernameSelectors)
		pass := firstMatch(form, passwordSelectors)
		if user == "" || pass == "" || user == pass {
			return true
		}

		action := base
		if raw, exists := form.Attr("action"); exists && strings.TrimSpace(raw) != "" {
			ref, err := url.Parse(strings.TrimSpace(raw))
			if err != nil {
				return true
			}
			action = base.ResolveReference(ref)
		}

		method := strings.ToUpper(strings.TrimSpace(form.AttrOr("method", http.MethodPost)))
		if method != http.MethodGet {
			method = http.MethodPost
		}

		found = loginForm{
			action:   action,
			method:   method,
			userName: user,
			passName: pass,
			fields:   formFields(form),
		}
		ok = true
		return false
	})
	return found, ok
}

// firstMatch returns the name of the first named input matching one of
// selectors, tried in order.
func firstMatch(form *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		var name string
		form.Find(sel).EachWithBreak(func(_ int, input *goquery.Selection) bool {
			name = input.AttrOr("name", "")
			return name == ""
		})
		if name != "" {
			return name
		}
	}
	return ""
}

// formFields collects the values a browser would submit, minus buttons.
func formFields(form *goquery.Selection) url.Values {
	values := url.Values{}
	form.Find("input, select, textarea").Each(func(_ int, field *goquery.Selection) {
		name := field.AttrOr("name", "")
		if name == "" {
			return
		}
		if _, disabled := field.Attr("disabled"); disabled {
			return
		}

		switch goquery.NodeName(field) {
		case "select":
			opt := field.Find("option[selected]").First()
			if opt.Length() == 0 {
				opt = field.Find("option").First()
			}
			if opt.Length() > 0 {
				values.Add(name, opt.AttrOr("value", strings.TrimSpace(opt.Text())))
			}
			return
		case "textarea":
			values.Add(name, field.Text())
			return
		}

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
	})
	return values
}
