package browser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/josequispe9/ScraperMELI-Linkedin/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState() *StorageState {
	return &StorageState{
		Cookies: []Cookie{
			{Name: "li_at", Value: "tok", Domain: ".www.linkedin.com", Path: "/", Expires: 1767225600, HTTPOnly: true, Secure: true, SameSite: "None"},
			{Name: "JSESSIONID", Value: `"ajax:123"`, Domain: ".www.linkedin.com", Path: "/", Expires: -1, Secure: true},
			{Name: "bcookie", Value: "v=2&abc", Domain: ".linkedin.com", Path: "/", Expires: 1767225600},
		},
		Origins: []OriginState{
			{Origin: "https://www.linkedin.com", LocalStorage: []NameValue{{"voyager", "1"}, {"lang", "es"}}},
			{Origin: "https://www.linkedin.com:443", LocalStorage: nil},
		},
	}
}

func TestStorageStateRoundTripIsByteIdentical(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session", "linkedin.json")
	require.NoError(t, SaveStorageState(path, sampleState()))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	loaded, err := LoadStorageState(path)
	require.NoError(t, err)
	require.NoError(t, SaveStorageState(path, loaded))
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestMarshalStorageStateIsOrdered(t *testing.T) {
	a, err := MarshalStorageState(sampleState())
	require.NoError(t, err)

	shuffled := sampleState()
	shuffled.Cookies[0], shuffled.Cookies[2] = shuffled.Cookies[2], shuffled.Cookies[0]
	shuffled.Origins[0], shuffled.Origins[1] = shuffled.Origins[1], shuffled.Origins[0]
	b, err := MarshalStorageState(shuffled)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))

	st := sampleState().normalized()
	assert.Equal(t, ".linkedin.com", st.Cookies[0].Domain)
	assert.Equal(t, "JSESSIONID", st.Cookies[1].Name)
	assert.Equal(t, "lang", st.Origins[0].LocalStorage[0].Name)
	assert.NotNil(t, st.Origins[1].LocalStorage)
	assert.Contains(t, string(a), `"ajax:123"`)
	assert.Contains(t, string(a), "v=2&abc", "HTML escaping disabled")
}

func TestLoadStorageState(t *testing.T) {
	st, err := LoadStorageState(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Nil(t, st)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
	_, err = LoadStorageState(bad)
	assert.Error(t, err)
}

func TestCookieConversion(t *testing.T) {
	in := []*proto.NetworkCookie{
		{Name: "a", Value: "1", Domain: ".mercadolibre.com.ar", Path: "/", Expires: 1700000000, Secure: true, SameSite: proto.NetworkCookieSameSiteLax},
		{Name: "s", Value: "2", Domain: ".mercadolibre.com.ar", Path: "/", Session: true},
	}
	cookies := cookiesFromProto(in)
	require.Len(t, cookies, 2)
	assert.Equal(t, float64(1700000000), cookies[0].Expires)
	assert.Equal(t, "Lax", cookies[0].SameSite)
	assert.Equal(t, float64(-1), cookies[1].Expires)

	params := cookieParams(cookies)
	assert.Equal(t, proto.TimeSinceEpoch(1700000000), params[0].Expires)
	assert.Zero(t, params[1].Expires, "session cookies carry no expiry")
	assert.Equal(t, proto.NetworkCookieSameSiteLax, params[0].SameSite)
}

func TestMergeOrigins(t *testing.T) {
	base := []OriginState{
		{Origin: "https://a", LocalStorage: []NameValue{{"k", "old"}}},
		{Origin: "https://b", LocalStorage: []NameValue{{"k", "b"}}},
	}
	fresh := []OriginState{{Origin: "https://a", LocalStorage: []NameValue{{"k", "new"}}}}

	st := (&StorageState{Origins: mergeOrigins(base, fresh)}).normalized()
	require.Len(t, st.Origins, 2)
	assert.Equal(t, "new", st.Origins[0].LocalStorage[0].Value)
	assert.Equal(t, "https://b", st.Origins[1].Origin)
}

func TestSeedScript(t *testing.T) {
	assert.Empty(t, seedScript(nil))
	assert.Empty(t, seedScript(&StorageState{}))
	js := seedScript(sampleState())
	assert.Contains(t, js, `"https://www.linkedin.com":{"lang":"es","voyager":"1"}`)
	assert.Contains(t, js, "location.origin")
}

func TestBlocker(t *testing.T) {
	b := newBlocker([]string{"Image", "Font", "Bogus"}, true)

	tests := []struct {
		name string
		rt   proto.NetworkResourceType
		url  string
		want bool
	}{
		{"image", proto.NetworkResourceTypeImage, "https://http2.mlstatic.com/D_1.jpg", true},
		{"font", proto.NetworkResourceTypeFont, "https://static.licdn.com/f.woff2", true},
		{"document", proto.NetworkResourceTypeDocument, "https://www.linkedin.com/jobs/search/", false},
		{"ad script", proto.NetworkResourceTypeScript, "https://securepubads.g.doubleclick.net/tag.js", true},
		{"linkedin pixel", proto.NetworkResourceTypeXHR, "https://px.ads.linkedin.com/collect", true},
		{"site xhr", proto.NetworkResourceTypeXHR, "https://www.linkedin.com/voyager/api/jobs", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.blocks(tt.rt, tt.url))
		})
	}

	assert.True(t, newBlocker(nil, false).empty())
	assert.False(t, newBlocker(nil, false).blocks(proto.NetworkResourceTypeImage, "https://doubleclick.net"))
}

func TestIsAdDomain(t *testing.T) {
	assert.True(t, isAdDomain("pagead2.GoogleSyndication.com"))
	assert.True(t, isAdDomain("criteo.com"))
	assert.False(t, isAdDomain("listado.mercadolibre.com.ar"))
	assert.False(t, isAdDomain(""))
}

func TestPickUserAgent(t *testing.T) {
	assert.Len(t, DefaultUserAgents, 5)
	for range 20 {
		assert.Contains(t, DefaultUserAgents, PickUserAgent(nil))
	}
	assert.Equal(t, "custom/1.0", PickUserAgent([]string{"custom/1.0"}))
}

func TestAcceptLanguage(t *testing.T) {
	assert.Equal(t, "es-AR,es;q=0.9,en;q=0.8", acceptLanguage("es-AR"))
	assert.Equal(t, "es-AR,es;q=0.9,en;q=0.8", acceptLanguage(""))
	assert.Equal(t, "en,en;q=0.8", acceptLanguage("en"))
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"deadline", context.DeadlineExceeded, models.ErrCodeSelectorTimeout},
		{"navigation", &rod.NavigationError{Reason: "net::ERR_NAME_NOT_RESOLVED"}, models.ErrCodeNavigation},
		{"not found", &rod.ElementNotFoundError{}, models.ErrCodeSelectorTimeout},
		{"other", errors.New("cdp: target closed"), models.ErrCodeNavigation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := categorizeError(tt.err, models.ErrCodeSelectorTimeout, "wait")
			assert.Equal(t, tt.wantCode, models.CodeOf(err))
			assert.True(t, models.IsTransient(err))
		})
	}

	err := categorizeError(context.Canceled, models.ErrCodeNavigationTimeout, "nav")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, models.IsTransient(err))
}
