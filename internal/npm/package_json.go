package npm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
)

// PackageJSONRaw defines the package.json of a NPM package
type PackageJSONRaw struct {
	Name                 string          `json:"name"`
	Version              string          `json:"version"`
	Type                 string          `json:"type"`
	Main                 JSONAny         `json:"main"`
	Module               JSONAny         `json:"module"`
	Keywords             any             `json:"keywords"`
	Dependencies         any             `json:"dependencies"`
	DevDependencies      any             `json:"devDependencies"`
	PeerDependencies     any             `json:"peerDependencies"`
	OptionalDependencies any             `json:"optionalDependencies"`
	Exports              json.RawMessage `json:"exports"`
	EmberAddon           json.RawMessage `json:"ember-addon"`
}

// PackageJSON defines the package.json of a NPM package
type PackageJSON struct {
	Name                 string
	Version              string
	Type                 string
	Main                 string
	Module               string
	Keywords             []string
	Dependencies         map[string]string
	DevDependencies      map[string]string
	PeerDependencies     map[string]string
	OptionalDependencies map[string]string
	// Exports is nil when the package.json has no `exports` field, a string for the
	// sugar form, or a `JSONObject` / `[]any` otherwise.
	Exports    any
	EmberAddon *AddonMeta
}

// AddonMeta is the `ember-addon` block of a package.json.
type AddonMeta struct {
	Version         int               `json:"version"`
	Type            string            `json:"type"`
	Main            string            `json:"main,omitempty"`
	AutoUpgraded    bool              `json:"auto-upgraded,omitempty"`
	RenamedPackages map[string]string `json:"renamed-packages,omitempty"`
	RenamedModules  map[string]string `json:"renamed-modules,omitempty"`
	Externals       []string          `json:"externals,omitempty"`
	OrderIndex      int               `json:"order-index,omitempty"`
	AppJS           map[string]string `json:"app-js,omitempty"`
}

// HasExternal reports whether the specifier is listed in the `externals` metadata.
func (meta *AddonMeta) HasExternal(specifier string) bool {
	return meta != nil && slices.Contains(meta.Externals, specifier)
}

// ToNpmPackage converts PackageJSONRaw to PackageJSON
func (a *PackageJSONRaw) ToNpmPackage() (*PackageJSON, error) {
	p := &PackageJSON{
		Name:                 a.Name,
		Version:              a.Version,
		Type:                 a.Type,
		Main:                 a.Main.MainString(),
		Module:               a.Module.MainString(),
		Keywords:             toStrings(a.Keywords),
		Dependencies:         toStringMap(a.Dependencies),
		DevDependencies:      toStringMap(a.DevDependencies),
		PeerDependencies:     toStringMap(a.PeerDependencies),
		OptionalDependencies: toStringMap(a.OptionalDependencies),
	}

	if rawExports := a.Exports; len(rawExports) > 0 && !bytes.Equal(rawExports, []byte("null")) {
		exports, err := parseExports(rawExports)
		if err != nil {
			return nil, fmt.Errorf("invalid `exports` field: %w", err)
		}
		p.Exports = exports
	}

	if rawMeta := a.EmberAddon; len(rawMeta) > 0 && !bytes.Equal(rawMeta, []byte("null")) {
		var meta AddonMeta
		if err := json.Unmarshal(rawMeta, &meta); err != nil {
			return nil, fmt.Errorf("invalid `ember-addon` field: %w", err)
		}
		p.EmberAddon = &meta
	}

	return p, nil
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (a *PackageJSON) UnmarshalJSON(b []byte) error {
	var raw PackageJSONRaw
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	p, err := raw.ToNpmPackage()
	if err != nil {
		return err
	}
	*a = *p
	return nil
}

// ParsePackageJSONFile reads and parses the given package.json file.
func ParsePackageJSONFile(filename string) (*PackageJSON, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var raw PackageJSONRaw
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	p, err := raw.ToNpmPackage()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return p, nil
}

// HasKeyword reports whether the package.json lists the keyword.
func (a *PackageJSON) HasKeyword(keyword string) bool {
	return slices.Contains(a.Keywords, keyword)
}

// DependsOn reports whether the name appears in any of the dependency sections.
func (a *PackageJSON) DependsOn(name string) bool {
	for _, section := range []map[string]string{a.Dependencies, a.DevDependencies, a.PeerDependencies} {
		if _, ok := section[name]; ok {
			return true
		}
	}
	return false
}

func parseExports(data []byte) (any, error) {
	data = bytes.TrimSpace(data)
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return s, nil
	case '{':
		var obj JSONObject
		if err := obj.UnmarshalJSON(data); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return parseArray(dec)
	default:
		return nil, fmt.Errorf("unexpected exports value: %s", data)
	}
}

// JSONObject represents a readonly JSON object with ordered keys
type JSONObject struct {
	keys   []string
	values map[string]any
}

// NewJSONObject creates a new JSONObject with the given keys and values
func NewJSONObject(keys []string, values map[string]any) JSONObject {
	return JSONObject{
		keys:   keys,
		values: values,
	}
}

// Len returns the length of the JSON object
func (obj *JSONObject) Len() int {
	return len(obj.keys)
}

// Keys returns the keys of the JSON object
func (obj *JSONObject) Keys() []string {
	return obj.keys
}

// Get returns the value of the key in the JSON object
func (obj *JSONObject) Get(key string) (any, bool) {
	v, ok := obj.values[key]
	return v, ok
}

// Set sets the value of the key, appending the key when it is new
func (obj *JSONObject) Set(key string, value any) {
	if obj.values == nil {
		obj.values = make(map[string]any)
	}
	if _, exists := obj.values[key]; !exists {
		obj.keys = append(obj.keys, key)
	}
	obj.values[key] = value
}

// MarshalJSON implements type json.Marshaler interface, keeping the key order
func (obj JSONObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range obj.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(obj.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements type json.Unmarshaler interface
func (obj *JSONObject) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	// don't convert number to float64
	dec.UseNumber()

	t, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := t.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expect JSON object open with '{'")
	}

	err = obj.parse(dec)
	if err != nil {
		return err
	}

	t, err = dec.Token()
	if err != io.EOF {
		return fmt.Errorf("expect end of JSON object but got more token: %T: %v or err: %v", t, t, err)
	}

	return nil
}

func (obj *JSONObject) parse(dec *json.Decoder) (err error) {
	var t json.Token
	for dec.More() {
		t, err = dec.Token()
		if err != nil {
			return err
		}

		key, ok := t.(string)
		if !ok {
			return fmt.Errorf("expecting JSON key should be always a string: %T: %v", t, t)
		}

		t, err = dec.Token()
		if err == io.EOF {
			break
		} else if err != nil {
			return err
		}

		var value any
		value, err = handleDelim(t, dec)
		if err != nil {
			return err
		}

		if _, exists := obj.values[key]; !exists {
			obj.keys = append(obj.keys, key)
		}
		if obj.values == nil {
			obj.values = make(map[string]any)
		}
		obj.values[key] = value
	}

	t, err = dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := t.(json.Delim); !ok || delim != '}' {
		return fmt.Errorf("expect JSON object close with '}'")
	}

	return nil
}

func parseArray(dec *json.Decoder) (arr []any, err error) {
	var t json.Token
	arr = make([]any, 0)
	for dec.More() {
		t, err = dec.Token()
		if err != nil {
			return
		}

		var value any
		value, err = handleDelim(t, dec)
		if err != nil {
			return
		}
		arr = append(arr, value)
	}
	t, err = dec.Token()
	if err != nil {
		return
	}
	if delim, ok := t.(json.Delim); !ok || delim != ']' {
		err = fmt.Errorf("expect JSON array close with ']'")
		return
	}

	return
}

func handleDelim(t json.Token, dec *json.Decoder) (res any, err error) {
	if delim, ok := t.(json.Delim); ok {
		switch delim {
		case '{':
			obj := JSONObject{
				values: make(map[string]any),
			}
			err = obj.parse(dec)
			if err != nil {
				return
			}
			return obj, nil
		case '[':
			var value []any
			value, err = parseArray(dec)
			if err != nil {
				return
			}
			return value, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter: %q", delim)
		}
	}
	return t, nil
}

type JSONAny struct {
	Str string
	Map map[string]any
	Any any
}

func (a *JSONAny) UnmarshalJSON(b []byte) error {
	var s string
	if json.Unmarshal(b, &s) == nil {
		a.Str = s
		return nil
	}
	var m map[string]any
	if json.Unmarshal(b, &m) == nil {
		a.Map = m
		return nil
	}
	return json.Unmarshal(b, &a.Any)
}

func (a *JSONAny) MainString() string {
	if a.Str != "" {
		return a.Str
	}
	if a.Map != nil {
		if v, ok := a.Map["."]; ok {
			if s, isStr := v.(string); isStr {
				return s
			}
		}
	}
	return ""
}

func toStringMap(v any) map[string]string {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	ret := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok && k != "" && s != "" {
			ret[k] = s
		}
	}
	return ret
}

func toStrings(v any) []string {
	a, ok := v.([]any)
	if !ok {
		return nil
	}
	ret := make([]string, 0, len(a))
	for _, v := range a {
		if s, ok := v.(string); ok {
			ret = append(ret, s)
		}
	}
	return ret
}
