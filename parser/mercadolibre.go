package parser

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/josequispe9/ScraperMELI-Linkedin/locator"
	"github.com/josequispe9/ScraperMELI-Linkedin/models"
)

const meliBase = "https://www.mercadolibre.com.ar"

const (
	available   = "Disponible"
	unavailable = "No disponible"
	yes         = "Sí"
	no          = "No"
)

// Product card chains. Current "poly" card classes are tried after the
// classic ui-search ones because both layouts are still served.
var (
	productContainers = locator.MustChain("product.container", anyCheck,
		`.ui-search-layout__item`,
		`li.ui-search-layout__item`,
		`.ui-search-result__wrapper`,
		`.poly-card`,
		`ol.ui-search-layout > li`,
	)

	productName = locator.MustChain("product.name", nil,
		`.ui-search-item__title`,
		`.ui-search-results__item-title`,
		`h2 a`,
		`.ui-search-item__group__element--title a`,
		`[data-testid="item-title"]`,
		`.poly-component__title`,
	)

	productPrice = locator.MustChain("product.price", locator.TextMatches(reHasDigit.MatchString),
		`.andes-money-amount__fraction`,
		`.price-tag-fraction`,
		`.ui-search-price__part`,
		`.price-tag .price-tag-amount`,
		`[data-testid="price"] .andes-money-amount__fraction`,
	)

	productURL = locator.MustChain("product.url", locator.AttrContains("href", "mercadolibre"),
		`.ui-search-item__title a`,
		`.ui-search-results__item-title a`,
		`h2 a`,
		`a[href*="/MLA-"]`,
		`a.poly-component__title`,
		`a.ui-search-link`,
	)

	productSeller = locator.MustChain("product.seller", nil,
		`.ui-search-item__seller-info`,
		`.ui-search-official-store-label`,
		`.ui-search-item__brand-discoverability`,
		`[data-testid="seller-info"]`,
		`.poly-component__seller`,
	)

	productReputation = locator.MustChain("product.reputation", nil,
		`.ui-search-item__seller-reputation`,
		`.ui-search-seller-reputation`,
		`[data-testid="seller-reputation"]`,
		`[class*="reputation"]`,
	)

	productLocation = locator.MustChain("product.location", nil,
		`.ui-search-item__location`,
		`.ui-search-item__location-label`,
		`[data-testid="item-location"]`,
	)

	productShipping = locator.MustChain("product.shipping", nil,
		`.ui-search-item__shipping`,
		`[data-testid="shipping-info"]`,
		`.ui-search-shipping-label`,
		`.poly-component__shipping`,
	)

	productStock = locator.MustChain("product.stock", nil,
		`.ui-search-item__stock-info`,
		`[data-testid="stock-info"]`,
	)

	productDiscount = locator.MustChain("product.discount", locator.TextContains("%"),
		`.ui-search-price__discount`,
		`.andes-money-amount__discount`,
		`[data-testid="discount"]`,
		`.poly-price__disc_label`,
	)

	productInstallments = locator.MustChain("product.installments", locator.TextContains("cuotas", "sin interés"),
		`.ui-search-installments`,
		`[data-testid="installments"]`,
		`.poly-price__installments`,
	)

	productImage = locator.MustChain("product.image", locator.AttrContains("src", "http"),
		`img.ui-search-result-image__element`,
		`.ui-search-result__image img`,
		`img.poly-component__picture`,
		`img[data-testid="item-image"]`,
		`img`,
	)

	productCondition = locator.MustChain("product.condition", nil,
		`.ui-search-item__group__element--condition`,
		`[data-testid="item-condition"]`,
		`.ui-search-item__details`,
	)
)

// Product detail page chains.
var (
	productDetailTitle = locator.MustChain("product.detail.title", nil,
		`.ui-pdp-title`,
		`h1`,
	)

	productDetailPrice = locator.MustChain("product.detail.price", locator.TextMatches(reHasDigit.MatchString),
		`.ui-pdp-price__second-line .andes-money-amount__fraction`,
		`.andes-money-amount__fraction`,
	)

	productDetailSeller = locator.MustChain("product.detail.seller", nil,
		`.ui-pdp-seller__header__title`,
		`.ui-seller-info__status-info__title`,
		`[data-testid="seller-link"]`,
	)

	productDetailReputation = locator.MustChain("product.detail.reputation", nil,
		`.ui-seller-info__status-info__subtitle`,
		`.ui-pdp-seller__status-info`,
	)

	productDetailSpecRows = locator.MustChain("product.detail.specs", anyCheck,
		`.andes-table__row`,
		`.ui-vpp-striped-specs__table tr`,
	)

	productDetailDescription = locator.MustChain("product.detail.description", nil,
		`.ui-pdp-description__content`,
		`[data-testid="content"]`,
	)

	productDetailShipping = locator.MustChain("product.detail.shipping", nil,
		`.ui-pdp-shipping`,
		`.ui-pdp-media__title`,
	)
)

var conditionKeywords = []struct {
	keyword, label string
}{
	{"reacondicionado", "Reacondicionado"},
	{"refurbished", "Reacondicionado"},
	{"usado", "Usado"},
	{"nuevo", "Nuevo"},
}

// ProductParser parses MercadoLibre product cards.
type ProductParser struct {
	now func() time.Time
}

// NewProductParser returns a MercadoLibre product parser.
func NewProductParser() *ProductParser {
	return &ProductParser{now: time.Now}
}

func (p *ProductParser) Site() string               { return "mercadolibre" }
func (p *ProductParser) Containers() *locator.Chain { return productContainers }
func (p *ProductParser) BaseURL() string            { return meliBase }

// ParseElement requires a name and a price.
func (p *ProductParser) ParseElement(el *goquery.Selection, index int, term string) (models.Record, bool) {
	name := text(el, productName)
	if name == "" {
		return nil, false
	}

	price := CleanPrice(text(el, productPrice))
	if price == "" {
		price = PriceFromText(CleanText(el.Text()))
	}
	if price == "" {
		return nil, false
	}

	rec := models.ProductRecord{
		Index:        index,
		ExtractedAt:  p.now(),
		SearchTerm:   term,
		Name:         name,
		Price:        price,
		Seller:       text(el, productSeller),
		Reputation:   text(el, productReputation),
		Location:     text(el, productLocation),
		Discount:     text(el, productDiscount),
		Installments: text(el, productInstallments),
		ImageURL:     locator.Attr(el, productImage, "src"),
	}
	if href := locator.Attr(el, productURL, "href"); href != "" {
		rec.URL = StripQuery(AbsoluteURL(meliBase, href))
	}
	rec.FreeShipping = freeShipping(el)
	rec.Available = availability(el)
	rec.Condition = condition(el)
	return rec, true
}

func freeShipping(el *goquery.Selection) string {
	if s := text(el, productShipping); s != "" {
		if containsAny(s, "gratis", "free") {
			return yes
		}
		return no
	}
	if containsAny(el.Text(), "envío gratis", "envio gratis") {
		return yes
	}
	return no
}

func availability(el *goquery.Selection) string {
	if containsAny(text(el, productStock), "sin stock", "agotado") {
		return unavailable
	}
	return available
}

func condition(el *goquery.Selection) string {
	candidates := []string{text(el, productCondition), el.Text()}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		folded := Fold(c)
		for _, k := range conditionKeywords {
			if strings.Contains(folded, k.keyword) {
				return k.label
			}
		}
	}
	return "Nuevo"
}

// ParseDetails extracts title, price, seller, specs, description and
// shipping from a product page.
func (p *ProductParser) ParseDetails(doc *goquery.Document) (map[string]string, string) {
	fields := make(map[string]string, 7)
	root := doc.Selection

	set := func(key, value string) {
		if value != "" {
			fields[key] = value
		}
	}
	set(models.DetailTitle, text(root, productDetailTitle))
	set(models.DetailPrice, CleanPrice(text(root, productDetailPrice)))
	set(models.DetailSeller, text(root, productDetailSeller))
	set(models.DetailReputation, text(root, productDetailReputation))
	set(models.DetailShipping, text(root, productDetailShipping))
	set(models.DetailSpecs, specs(root))

	var descHTML string
	if m := locator.FindFirstMatch(root, productDetailDescription); m.Found() {
		set(models.DetailDescription, CleanText(m.Text()))
		descHTML, _ = m.Selection.First().Html()
	}
	return fields, descHTML
}

// specs joins the characteristics table as "key: value; key: value".
func specs(root *goquery.Selection) string {
	m := locator.FindFirstMatch(root, productDetailSpecRows)
	if !m.Found() {
		return ""
	}
	var parts []string
	m.Selection.Each(func(_ int, row *goquery.Selection) {
		k := CleanText(row.Find(".andes-table__header, th").First().Text())
		v := CleanText(row.Find(".andes-table__column, td").First().Text())
		if k != "" && v != "" {
			parts = append(parts, k+": "+v)
		}
	})
	return strings.Join(parts, "; ")
}
