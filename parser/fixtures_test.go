package parser

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return d
}

const jobSearchHTML = `<html><body>
<ul class="scaffold-layout__list">
  <li data-occludable-job-id="111">
    <div><div><div><div><div><div>
      <a href="/jobs/view/111/?refId=abc&trk=flagship">
        <span><strong>Python Developer</strong></span>
      </a>
    </div></div></div></div></div></div>
    <div class="artdeco-entity-lockup__subtitle"><span>Globant</span></div>
    <ul><li><span dir="ltr">Buenos Aires, Argentina (Remoto)</span></li></ul>
    <time datetime="2024-05-01">Hace 2 días</time>
  </li>
  <li>
    <div class="base-card">
      <a class="base-card__full-link" href="https://ar.linkedin.com/jobs/view/data-analyst-at-mercadolibre-222?position=1&pageNum=0">
        <span class="sr-only">Data Analyst</span>
      </a>
      <div class="base-search-card__info">
        <h3 class="base-search-card__title">Data Analyst</h3>
        <h4 class="base-search-card__subtitle"><a>MercadoLibre</a></h4>
        <div class="base-search-card__metadata">
          <span class="job-search-card__location">Córdoba, Argentina</span>
          <time class="job-search-card__listdate">Hace 1 semana</time>
        </div>
      </div>
    </div>
  </li>
  <li>
    <a href="/jobs/view/333"><strong>Solo titulo</strong></a>
  </li>
</ul>
</body></html>`

const jobDetailHTML = `<html><body>
<div class="jobs-description-content__text">
  <p>Buscamos <b>Python</b> dev.</p>
  <ul><li>Django</li><li>PostgreSQL</li></ul>
</div>
<div class="job-details-jobs-unified-top-card__job-insight"><span>Jornada completa · Intermedio</span></div>
<div class="jobs-benefits">Beneficios: prepaga, home office</div>
</body></html>`

const productSearchHTML = `<html><body>
<ol class="ui-search-layout">
  <li class="ui-search-layout__item">
    <div class="ui-search-result__wrapper">
      <img class="ui-search-result-image__element" src="https://http2.mlstatic.com/D_1.jpg">
      <h2 class="ui-search-item__title">Monitor Samsung 24" Full HD</h2>
      <a class="ui-search-link" href="https://articulo.mercadolibre.com.ar/MLA-123-monitor-samsung-_JM?searchVariation=1#position=1">ver</a>
      <div class="ui-search-price"><span class="andes-money-amount__fraction">189.999</span></div>
      <span class="ui-search-price__discount">15% OFF</span>
      <span class="ui-search-installments">Mismo precio en 6 cuotas de $ 31.666</span>
      <p class="ui-search-item__shipping">Envío gratis</p>
      <p class="ui-search-official-store-label">Vendido por Samsung</p>
      <span class="ui-search-item__location">Capital Federal</span>
    </div>
  </li>
  <li class="ui-search-layout__item">
    <div class="poly-card">
      <a class="poly-component__title" href="https://articulo.mercadolibre.com.ar/MLA-456-notebook">Notebook Lenovo IdeaPad</a>
      <div class="poly-price">Precio: $ 850.000 con descuento</div>
      <span class="poly-component__seller">Por Lenovo</span>
      <div class="ui-search-item__stock-info">Sin stock</div>
      <span class="ui-search-item__details">Reacondicionado</span>
    </div>
  </li>
  <li class="ui-search-layout__item">
    <h2 class="ui-search-item__title">Monitor sin precio</h2>
    <span class="andes-money-amount__fraction">consultar</span>
  </li>
  <li class="ui-search-layout__item">
    <span class="andes-money-amount__fraction">10.000</span>
  </li>
</ol>
</body></html>`

const productDetailHTML = `<html><body>
<h1 class="ui-pdp-title">Monitor Samsung 24</h1>
<div class="ui-pdp-price__second-line"><span class="andes-money-amount__fraction">189.999</span></div>
<div class="ui-pdp-seller__header__title">SAMSUNG</div>
<table>
  <tr class="andes-table__row"><th class="andes-table__header">Marca</th><td class="andes-table__column">Samsung</td></tr>
  <tr class="andes-table__row"><th class="andes-table__header">Modelo</th><td class="andes-table__column">S24</td></tr>
  <tr class="andes-table__row"><th class="andes-table__header">Color</th><td class="andes-table__column"></td></tr>
</table>
<div class="ui-pdp-description"><p class="ui-pdp-description__content">Monitor ideal para oficina.</p></div>
<div class="ui-pdp-shipping">Envío gratis a todo el país</div>
</body></html>`
