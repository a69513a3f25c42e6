package importer

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/beevik/etree"
	errors "github.com/frahmantamala/dot-spend/internal"
	"github.com/frahmantamala/dot-spend/internal/expense"
)

var (
	ofxRoot = regexp.MustCompile(`(?i)<OFX>`)
	ofxLeaf = regexp.MustCompile(`<([A-Za-z0-9_.]+)>([^<\r\n]*)`)
)

// ParseOFX reads OFX 1.x (SGML) and 2.x (XML) statements, bank or credit card.
func ParseOFX(r io.Reader, opts Options) (*Parsed, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, unreadable("ofx file", err)
	}
	body, err := normalizeOFX(string(data))
	if err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = true
	if err := doc.ReadFromString(body); err != nil {
		return nil, unreadable("ofx file", err)
	}

	parsed := &Parsed{}
	for i, el := range doc.FindElements("//STMTTRN") {
		row := i + 1

		posted, err := parseOFXDate(childText(el, "DTPOSTED"))
		if err != nil {
			if err := parsed.reject(row, err.Error(), opts); err != nil {
				return nil, err
			}
			continue
		}
		amount, err := expense.ParseSignedAmount(childText(el, "TRNAMT"))
		if err != nil {
			if err := parsed.reject(row, err.Error(), opts); err != nil {
				return nil, err
			}
			continue
		}

		currency := opts.Currency
		if currency == "" {
			currency = statementCurrency(el)
		}
		parsed.admit(Transaction{
			Row:         row,
			Date:        posted,
			Amount:      amount,
			Description: ofxDescription(el),
			Currency:    currency,
		}, opts)
	}
	return parsed, nil
}

// normalizeOFX drops the SGML header and closes the leaf elements SGML leaves open so the
// body parses as XML.
func normalizeOFX(data string) (string, error) {
	loc := ofxRoot.FindStringIndex(data)
	if loc == nil {
		return "", errors.NewImportParseError("no <OFX> element found", errors.ErrCodeImportUnreadable)
	}
	body := data[loc[0]:]

	var b strings.Builder
	b.Grow(len(body) + len(body)/4)
	last := 0
	for _, m := range ofxLeaf.FindAllStringSubmatchIndex(body, -1) {
		b.WriteString(body[last:m[1]])
		last = m[1]

		name := body[m[2]:m[3]]
		if strings.TrimSpace(body[m[4]:m[5]]) == "" {
			continue
		}
		if !strings.HasPrefix(strings.ToUpper(body[m[1]:]), "</"+strings.ToUpper(name)+">") {
			b.WriteString("</" + name + ">")
		}
	}
	b.WriteString(body[last:])
	return b.String(), nil
}

func childText(el *etree.Element, path string) string {
	if child := el.FindElement(path); child != nil {
		return strings.TrimSpace(child.Text())
	}
	return ""
}

func ofxDescription(el *etree.Element) string {
	for _, path := range []string{"NAME", "PAYEE/NAME", "MEMO"} {
		if text := childText(el, path); text != "" {
			return text
		}
	}
	return "Unknown"
}

// statementCurrency walks up to the enclosing statement for its CURDEF.
func statementCurrency(el *etree.Element) string {
	for p := el.Parent(); p != nil; p = p.Parent() {
		if text := childText(p, "CURDEF"); text != "" {
			return strings.ToUpper(text)
		}
	}
	return ""
}

// parseOFXDate reads YYYYMMDD[HHMMSS[.XXX]][offset:TZ], ignoring the zone.
func parseOFXDate(raw string) (time.Time, error) {
	s := raw
	if i := strings.IndexAny(s, ".["); i >= 0 {
		s = s[:i]
	}
	switch {
	case len(s) >= 14:
		return time.ParseInLocation("20060102150405", s[:14], time.Local)
	case len(s) >= 8:
		return time.ParseInLocation("20060102", s[:8], time.Local)
	}
	return time.Time{}, fmt.Errorf("date %q is not an OFX date", raw)
}
