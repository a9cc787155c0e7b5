package core

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type (
	Category      string
	Payer         string
	PaymentMethod string
)

const (
	CategoryGroceries Category = "Súper"
	CategoryHousing   Category = "Renta"
	CategoryUtilities Category = "Servicios"
	CategoryTransport Category = "Transporte"
	CategoryEatingOut Category = "Comida fuera"
	CategoryHealth    Category = "Salud"
	CategoryEducation Category = "Educación"
	CategoryInsurance Category = "Seguros"
	CategoryLeisure   Category = "Ocio"
	CategoryOther     Category = "Otros"
)

const (
	PayerGustavo Payer = "Gustavo"
	PayerFabiola Payer = "Fabiola"
)

const (
	PaymentCredit   PaymentMethod = "Tarjeta de Crédito"
	PaymentDebit    PaymentMethod = "Tarjeta de Débito"
	PaymentCash     PaymentMethod = "Efectivo"
	PaymentTransfer PaymentMethod = "Transferencia"
)

var categories = []Category{
	CategoryGroceries, CategoryHousing, CategoryUtilities, CategoryTransport, CategoryEatingOut,
	CategoryHealth, CategoryEducation, CategoryInsurance, CategoryLeisure, CategoryOther,
}

var categoryIcons = map[Category]string{
	CategoryGroceries: "🛒",
	CategoryHousing:   "🏠",
	CategoryUtilities: "⚡",
	CategoryTransport: "🚗",
	CategoryEatingOut: "🍕",
	CategoryHealth:    "💊",
	CategoryEducation: "🎓",
	CategoryInsurance: "🛡️",
	CategoryLeisure:   "🎈",
	CategoryOther:     "🎁",
}

// categoryAliases maps the longer labels older sheets were filled with.
var categoryAliases = map[string]Category{
	"super / despensa": CategoryGroceries,
	"despensa":         CategoryGroceries,
	"supermercado":     CategoryGroceries,
	"renta / hipoteca": CategoryHousing,
	"hipoteca":         CategoryHousing,
	"comida":           CategoryEatingOut,
	"restaurante":      CategoryEatingOut,
	"educacion":        CategoryEducation,
	"seguro":           CategoryInsurance,
	"otro":             CategoryOther,
}

var payers = []Payer{PayerGustavo, PayerFabiola}

var paymentMethods = []PaymentMethod{PaymentCredit, PaymentDebit, PaymentCash, PaymentTransfer}

var paymentIcons = map[PaymentMethod]string{
	PaymentCredit:   "💳",
	PaymentDebit:    "🏦",
	PaymentCash:     "💵",
	PaymentTransfer: "📱",
}

var paymentAliases = map[string]PaymentMethod{
	"credito":             PaymentCredit,
	"tarjeta credito":     PaymentCredit,
	"debito":              PaymentDebit,
	"tarjeta debito":      PaymentDebit,
	"transferencia / app": PaymentTransfer,
	"app":                 PaymentTransfer,
}

// Categories returns the closed set of categories in display order.
func Categories() []Category { return append([]Category(nil), categories...) }

// Payers returns the household members that can pay.
func Payers() []Payer { return append([]Payer(nil), payers...) }

// PaymentMethods returns the accepted payment methods in display order.
func PaymentMethods() []PaymentMethod { return append([]PaymentMethod(nil), paymentMethods...) }

func (c Category) Valid() bool {
	_, ok := categoryIcons[c]
	return ok
}

func (c Category) Icon() string { return categoryIcons[c] }

// Label is the icon-prefixed name shown in forms and the dashboard.
func (c Category) Label() string {
	if icon := c.Icon(); icon != "" {
		return icon + " " + string(c)
	}
	return string(c)
}

func (p Payer) Valid() bool {
	for _, v := range payers {
		if v == p {
			return true
		}
	}
	return false
}

func (m PaymentMethod) Valid() bool {
	_, ok := paymentIcons[m]
	return ok
}

func (m PaymentMethod) Icon() string { return paymentIcons[m] }

func (m PaymentMethod) Label() string {
	if icon := m.Icon(); icon != "" {
		return icon + " " + string(m)
	}
	return string(m)
}

// ParseCategory accepts the plain label, the icon-prefixed label and the
// legacy long labels, ignoring case and accents.
func ParseCategory(s string) (Category, error) {
	key := FoldLabel(s)
	for _, c := range categories {
		if FoldLabel(string(c)) == key {
			return c, nil
		}
	}
	if c, ok := categoryAliases[key]; ok {
		return c, nil
	}
	// "Súper / Despensa" style labels: match on the first segment.
	if head, _, found := strings.Cut(key, "/"); found {
		head = strings.TrimSpace(head)
		for _, c := range categories {
			if FoldLabel(string(c)) == head {
				return c, nil
			}
		}
	}
	return "", ErrInvalidCategory
}

func ParsePayer(s string) (Payer, error) {
	key := FoldLabel(s)
	for _, p := range payers {
		if FoldLabel(string(p)) == key {
			return p, nil
		}
	}
	return "", ErrInvalidPayer
}

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	key := FoldLabel(s)
	for _, m := range paymentMethods {
		if FoldLabel(string(m)) == key {
			return m, nil
		}
	}
	if m, ok := paymentAliases[key]; ok {
		return m, nil
	}
	if head, _, found := strings.Cut(key, "/"); found {
		return ParsePaymentMethod(head)
	}
	return "", ErrInvalidPayment
}

// FoldLabel lowercases, strips accents and any leading icon or symbol runes
// so that labels typed by people or stored by older revisions compare equal.
func FoldLabel(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.TrimLeftFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.ToLower(strings.Join(strings.Fields(folded), " "))
}
