package parser

import (
	"testing"
	"time"

	"github.com/josequispe9/ScraperMELI-Linkedin/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedProductParser() *ProductParser {
	at := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	return &ProductParser{now: func() time.Time { return at }}
}

func TestProductParseElement(t *testing.T) {
	p := fixedProductParser()
	cards := FindCandidateElements(mustDoc(t, productSearchHTML), p, 10)
	require.Len(t, cards, 4)

	rec, ok := p.ParseElement(cards[0], 1, "monitor")
	require.True(t, ok)
	prod := rec.(models.ProductRecord)
	assert.Equal(t, `Monitor Samsung 24" Full HD`, prod.Name)
	assert.Equal(t, "$189.999", prod.Price)
	assert.Equal(t, "https://articulo.mercadolibre.com.ar/MLA-123-monitor-samsung-_JM", prod.URL)
	assert.Equal(t, "Vendido por Samsung", prod.Seller)
	assert.Equal(t, "Capital Federal", prod.Location)
	assert.Equal(t, "15% OFF", prod.Discount)
	assert.Equal(t, "Mismo precio en 6 cuotas de $ 31.666", prod.Installments)
	assert.Equal(t, "https://http2.mlstatic.com/D_1.jpg", prod.ImageURL)
	assert.Equal(t, "Sí", prod.FreeShipping)
	assert.Equal(t, "Disponible", prod.Available)
	assert.Equal(t, "Nuevo", prod.Condition)
	assert.Equal(t, "", prod.Reputation)

	rec, ok = p.ParseElement(cards[1], 2, "notebook")
	require.True(t, ok)
	prod = rec.(models.ProductRecord)
	assert.Equal(t, "Notebook Lenovo IdeaPad", prod.Name)
	assert.Equal(t, "$850.000", prod.Price, "price recovered from free text")
	assert.Equal(t, "Por Lenovo", prod.Seller)
	assert.Equal(t, "No disponible", prod.Available)
	assert.Equal(t, "Reacondicionado", prod.Condition)
	assert.Equal(t, "No", prod.FreeShipping)
}

func TestProductValidationGate(t *testing.T) {
	p := fixedProductParser()
	cards := FindCandidateElements(mustDoc(t, productSearchHTML), p, 10)
	require.Len(t, cards, 4)

	tests := []struct {
		name string
		idx  int
	}{
		{"name without price", 2},
		{"price without name", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := p.ParseElement(cards[tt.idx], tt.idx, "monitor")
			assert.False(t, ok)
			assert.Nil(t, rec)
		})
	}
}

func TestFindCandidateElementsRespectsMax(t *testing.T) {
	p := fixedProductParser()
	assert.Len(t, FindCandidateElements(mustDoc(t, productSearchHTML), p, 2), 2)
	assert.Empty(t, FindCandidateElements(mustDoc(t, productSearchHTML), p, 0))
	assert.Empty(t, FindCandidateElements(nil, p, 5))
}

func TestProductParseDetails(t *testing.T) {
	fields, descHTML := fixedProductParser().ParseDetails(mustDoc(t, productDetailHTML))

	assert.Equal(t, "Monitor Samsung 24", fields[models.DetailTitle])
	assert.Equal(t, "$189.999", fields[models.DetailPrice])
	assert.Equal(t, "SAMSUNG", fields[models.DetailSeller])
	assert.Equal(t, "Marca: Samsung; Modelo: S24", fields[models.DetailSpecs])
	assert.Equal(t, "Monitor ideal para oficina.", fields[models.DetailDescription])
	assert.Equal(t, "Envío gratis a todo el país", fields[models.DetailShipping])
	assert.Equal(t, "Monitor ideal para oficina.", descHTML)
	_, hasReputation := fields[models.DetailReputation]
	assert.False(t, hasReputation)
}
