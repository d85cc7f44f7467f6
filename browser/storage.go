package browser

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/go-rod/rod/lib/proto"
)

// StorageState is a browser session snapshot: cookies plus per-origin
// localStorage. It is the file format behind storage_state_path.
type StorageState struct {
	Cookies []Cookie      `json:"cookies"`
	Origins []OriginState `json:"origins"`
}

// Cookie is one stored cookie. Expires is seconds since the epoch, -1 for
// session cookies.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// OriginState holds the localStorage entries of one origin.
type OriginState struct {
	Origin       string      `json:"origin"`
	LocalStorage []NameValue `json:"localStorage"`
}

// NameValue is a localStorage entry.
type NameValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// LoadStorageState reads a state file. A missing file yields (nil, nil) so a
// first run simply starts without a session.
func LoadStorageState(path string) (*StorageState, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("browser: read storage state: %w", err)
	}
	var st StorageState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("browser: decode storage state %s: %w", path, err)
	}
	return &st, nil
}

// SaveStorageState writes st as indented JSON with cookies and origins in a
// stable order, replacing any existing file.
func SaveStorageState(path string, st *StorageState) error {
	data, err := MarshalStorageState(st)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("browser: create state dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("browser: write storage state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("browser: replace storage state: %w", err)
	}
	return nil
}

// MarshalStorageState renders the deterministic file form of st.
func MarshalStorageState(st *StorageState) ([]byte, error) {
	if st == nil {
		st = &StorageState{}
	}
	norm := st.normalized()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(norm); err != nil {
		return nil, fmt.Errorf("browser: encode storage state: %w", err)
	}
	return buf.Bytes(), nil
}

// normalized returns a sorted deep copy with nil slices made empty.
func (st *StorageState) normalized() *StorageState {
	out := &StorageState{
		Cookies: slices.Clone(st.Cookies),
		Origins: make([]OriginState, 0, len(st.Origins)),
	}
	if out.Cookies == nil {
		out.Cookies = []Cookie{}
	}
	slices.SortFunc(out.Cookies, func(a, b Cookie) int {
		return cmp.Or(
			cmp.Compare(a.Domain, b.Domain),
			cmp.Compare(a.Path, b.Path),
			cmp.Compare(a.Name, b.Name),
		)
	})

	for _, o := range st.Origins {
		items := slices.Clone(o.LocalStorage)
		if items == nil {
			items = []NameValue{}
		}
		slices.SortFunc(items, func(a, b NameValue) int { return cmp.Compare(a.Name, b.Name) })
		out.Origins = append(out.Origins, OriginState{Origin: o.Origin, LocalStorage: items})
	}
	slices.SortFunc(out.Origins, func(a, b OriginState) int { return cmp.Compare(a.Origin, b.Origin) })
	return out
}

// mergeOrigins overlays fresh origins on top of base; fresh wins per origin.
func mergeOrigins(base, fresh []OriginState) []OriginState {
	byOrigin := make(map[string]OriginState, len(base)+len(fresh))
	for _, o := range base {
		byOrigin[o.Origin] = o
	}
	for _, o := range fresh {
		byOrigin[o.Origin] = o
	}
	out := make([]OriginState, 0, len(byOrigin))
	for _, o := range byOrigin {
		out = append(out, o)
	}
	return out
}

func cookiesFromProto(in []*proto.NetworkCookie) []Cookie {
	out := make([]Cookie, 0, len(in))
	for _, c := range in {
		expires := float64(c.Expires)
		if c.Session {
			expires = -1
		}
		out = append(out, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}
	return out
}

func (c Cookie) param() *proto.NetworkCookieParam {
	p := &proto.NetworkCookieParam{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		HTTPOnly: c.HTTPOnly,
		Secure:   c.Secure,
		SameSite: proto.NetworkCookieSameSite(c.SameSite),
	}
	if c.Expires > 0 {
		p.Expires = proto.TimeSinceEpoch(c.Expires)
	}
	return p
}

func cookieParams(in []Cookie) []*proto.NetworkCookieParam {
	out := make([]*proto.NetworkCookieParam, 0, len(in))
	for _, c := range in {
		out = append(out, c.param())
	}
	return out
}
