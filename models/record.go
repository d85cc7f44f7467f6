package models

import (
	"strconv"
	"strings"
	"time"
)

// Detail map keys filled by the second-phase detail scrape.
const (
	DetailDescription = "description"
	DetailExperience  = "experience_level"
	DetailBenefits    = "benefits"
	DetailTitle       = "title"
	DetailPrice       = "price"
	DetailSeller      = "seller"
	DetailReputation  = "reputation"
	DetailSpecs       = "specs"
	DetailShipping    = "shipping"
)

// Record is one validated listing. Implementations are value types: once a
// record has passed the parser's validation gate it is only ever copied.
type Record interface {
	// Key is the run-wide de-duplication key.
	Key() string
	// Term is the search term that produced the record.
	Term() string
	// Link is the listing URL, or "" when none was found.
	Link() string
	// WithDetails returns a copy enriched with detail-page fields.
	WithDetails(details map[string]string) Record
	CSVHeader() []string
	CSVRow() []string
}

// JobRecord is a job listing.
type JobRecord struct {
	Index       int       `json:"index"`
	ExtractedAt time.Time `json:"extracted_at"`
	SearchTerm  string    `json:"search_term"`

	Title      string `json:"title"`
	Company    string `json:"company"`
	Location   string `json:"location"`
	URL        string `json:"url"`
	Modality   string `json:"modality"`
	PostedAt   string `json:"posted_at"`
	Snippet    string `json:"snippet"`
	Experience string `json:"experience_level"`
	Benefits   string `json:"benefits"`

	Description string `json:"description,omitempty"`
}

func (r JobRecord) Key() string {
	if r.URL != "" {
		return normalizeKey(r.URL)
	}
	return normalizeKey(r.Title + "|" + r.Company)
}

func (r JobRecord) Term() string { return r.SearchTerm }
func (r JobRecord) Link() string { return r.URL }

func (r JobRecord) WithDetails(details map[string]string) Record {
	if v := details[DetailDescription]; v != "" {
		r.Description = v
	}
	if v := details[DetailExperience]; v != "" {
		r.Experience = v
	}
	if v := details[DetailBenefits]; v != "" {
		r.Benefits = v
	}
	return r
}

func (r JobRecord) CSVHeader() []string {
	return []string{
		"indice", "fecha_extraccion", "titulo_puesto", "empresa", "ubicacion",
		"url_empleo", "modalidad", "fecha_publicacion", "descripcion_breve",
		"nivel_experiencia", "beneficios_ofrecidos", "termino_busqueda",
	}
}

func (r JobRecord) CSVRow() []string {
	return []string{
		strconv.Itoa(r.Index), r.ExtractedAt.Format(time.RFC3339), r.Title, r.Company, r.Location,
		r.URL, r.Modality, r.PostedAt, r.Snippet,
		r.Experience, r.Benefits, r.SearchTerm,
	}
}

// ProductRecord is a marketplace product listing.
type ProductRecord struct {
	Index       int       `json:"index"`
	ExtractedAt time.Time `json:"extracted_at"`
	SearchTerm  string    `json:"search_term"`

	Name         string `json:"name"`
	Price        string `json:"price"`
	Seller       string `json:"seller"`
	Location     string `json:"location"`
	Reputation   string `json:"seller_reputation"`
	URL          string `json:"url"`
	Available    string `json:"available"`
	FreeShipping string `json:"free_shipping"`
	Discount     string `json:"discount"`
	Installments string `json:"installments"`
	ImageURL     string `json:"image_url"`
	Condition    string `json:"condition"`

	Description string `json:"description,omitempty"`
	Specs       string `json:"specs,omitempty"`
}

func (r ProductRecord) Key() string {
	if r.URL != "" {
		return normalizeKey(r.URL)
	}
	return normalizeKey(r.Name + "|" + r.Seller)
}

func (r ProductRecord) Term() string { return r.SearchTerm }
func (r ProductRecord) Link() string { return r.URL }

func (r ProductRecord) WithDetails(details map[string]string) Record {
	if v := details[DetailDescription]; v != "" {
		r.Description = v
	}
	if v := details[DetailSpecs]; v != "" {
		r.Specs = v
	}
	if r.Seller == "" {
		r.Seller = details[DetailSeller]
	}
	if r.Reputation == "" {
		r.Reputation = details[DetailReputation]
	}
	return r
}

func (r ProductRecord) CSVHeader() []string {
	return []string{
		"producto", "precio", "vendedor", "ubicacion", "reputacion_vendedor",
		"fecha_extraccion", "url_producto", "disponible", "envio_gratis", "categoria",
		"descuento", "cuotas", "condicion", "imagen_url",
	}
}

func (r ProductRecord) CSVRow() []string {
	return []string{
		r.Name, r.Price, r.Seller, r.Location, r.Reputation,
		r.ExtractedAt.Format(time.RFC3339), r.URL, r.Available, r.FreeShipping, r.SearchTerm,
		r.Discount, r.Installments, r.Condition, r.ImageURL,
	}
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
