package printing

import (
	"bytes"
	"context"
	"html/template"
	"maps"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wellnest/backend/internal/domain/shared/valueobject"
	"golang.org/x/text/cases"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// indiaTZ is the zone invoices are dated in
var indiaTZ = time.FixedZone("IST", 5*3600+1800)

// TemplateEngine executes html/template documents with formatting helpers
// for Indian rupee amounts and dates
type TemplateEngine struct {
	funcMap template.FuncMap
	printer *message.Printer
}

// TemplateEngineOption configures the template engine
type TemplateEngineOption func(*TemplateEngine)

// WithFuncs adds or overrides template functions
func WithFuncs(funcs template.FuncMap) TemplateEngineOption {
	return func(e *TemplateEngine) {
		maps.Copy(e.funcMap, funcs)
	}
}

// NewTemplateEngine creates a template engine for the en-IN locale
func NewTemplateEngine(opts ...TemplateEngineOption) *TemplateEngine {
	e := &TemplateEngine{
		printer: message.NewPrinter(language.MustParse("en-IN")),
	}

	e.funcMap = template.FuncMap{
		"inr":           e.formatINR,
		"amount":        e.formatAmount,
		"amountInWords": amountInWords,
		"currencyCode":  func() string { return currency.INR.String() },

		"formatDate":     formatDate,
		"formatDateTime": formatDateTime,

		"upper":   strings.ToUpper,
		"title":   titleCase,
		"join":    strings.Join,
		"inc":     func(i int) int { return i + 1 },
		"nonZero": func(m valueobject.Money) bool { return !m.IsZero() },
	}

	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Parse compiles a named template with the engine's functions
func (e *TemplateEngine) Parse(name, content string) (*template.Template, error) {
	if strings.TrimSpace(content) == "" {
		return nil, NewRenderError(ErrCodeInvalidHTML, "template content is empty", nil)
	}
	tmpl, err := template.New(name).Funcs(e.funcMap).Parse(content)
	if err != nil {
		return nil, NewRenderError(ErrCodeTemplateFailed, "failed to parse template "+name, err)
	}
	return tmpl, nil
}

// Execute runs a compiled template against data
func (e *TemplateEngine) Execute(ctx context.Context, tmpl *template.Template, data any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", NewRenderError(ErrCodeTemplateFailed, "failed to execute template "+tmpl.Name(), err)
	}
	return buf.String(), nil
}

// RenderString parses and executes content in one step
func (e *TemplateEngine) RenderString(ctx context.Context, name, content string, data any) (string, error) {
	tmpl, err := e.Parse(name, content)
	if err != nil {
		return "", err
	}
	return e.Execute(ctx, tmpl, data)
}

// FuncMap returns a copy of the template function map
func (e *TemplateEngine) FuncMap() template.FuncMap {
	funcMap := make(template.FuncMap, len(e.funcMap))
	maps.Copy(funcMap, e.funcMap)
	return funcMap
}

// formatINR renders ₹1,030.00
func (e *TemplateEngine) formatINR(v any) string {
	d := toDecimal(v)
	if d.IsNegative() {
		return "-₹" + e.formatAmount(d.Neg())
	}
	return "₹" + e.formatAmount(d)
}

// formatAmount renders 1,030.00 with en-IN digit grouping
func (e *TemplateEngine) formatAmount(v any) string {
	f, _ := toDecimal(v).Round(2).Float64()
	return e.printer.Sprintf("%.2f", f)
}

func formatDate(v any) string {
	t := toTime(v)
	if t.IsZero() {
		return ""
	}
	return t.In(indiaTZ).Format("02 Jan 2006")
}

func formatDateTime(v any) string {
	t := toTime(v)
	if t.IsZero() {
		return ""
	}
	return t.In(indiaTZ).Format("02 Jan 2006, 03:04 PM")
}

func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

var (
	ones = []string{"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine",
		"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen", "Seventeen", "Eighteen", "Nineteen"}
	tens = []string{"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety"}
)

// amountInWords spells an amount the Indian way:
// 1030.50 -> "Rupees One Thousand Thirty and Fifty Paise Only"
func amountInWords(v any) string {
	d := toDecimal(v).Abs().Round(2)
	rupees := d.IntPart()
	paise := d.Sub(decimal.NewFromInt(rupees)).Mul(decimal.NewFromInt(100)).IntPart()

	words := "Rupees " + spellIndian(rupees)
	if paise > 0 {
		words += " and " + spellIndian(paise) + " Paise"
	}
	return words + " Only"
}

// spellIndian spells n using crore, lakh, thousand and hundred
func spellIndian(n int64) string {
	if n == 0 {
		return "Zero"
	}
	var parts []string
	for _, unit := range []struct {
		size int64
		name string
	}{
		{10000000, "Crore"},
		{100000, "Lakh"},
		{1000, "Thousand"},
		{100, "Hundred"},
	} {
		if n >= unit.size {
			parts = append(parts, spellIndian(n/unit.size), unit.name)
			n %= unit.size
		}
	}
	if n > 0 {
		if n < 20 {
			parts = append(parts, ones[n])
		} else {
			parts = append(parts, tens[n/10])
			if n%10 > 0 {
				parts = append(parts, ones[n%10])
			}
		}
	}
	return strings.Join(parts, " ")
}

func toDecimal(v any) decimal.Decimal {
	switch val := v.(type) {
	case valueobject.Money:
		return val.Amount()
	case *valueobject.Money:
		if val == nil {
			return decimal.Zero
		}
		return val.Amount()
	case decimal.Decimal:
		return val
	case int:
		return decimal.NewFromInt(int64(val))
	case int64:
		return decimal.NewFromInt(val)
	case float64:
		return decimal.NewFromFloat(val)
	case string:
		d, err := decimal.NewFromString(val)
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

func toTime(v any) time.Time {
	switch val := v.(type) {
	case time.Time:
		return val
	case *time.Time:
		if val == nil {
			return time.Time{}
		}
		return *val
	default:
		return time.Time{}
	}
}
