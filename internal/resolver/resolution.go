package resolver

import "fmt"

// Kind tells a compiler what to do with an import specifier.
type Kind uint8

const (
	// Continue leaves the import as a normal static import.
	Continue Kind = iota
	// RedirectTo rewrites the import to another resolvable specifier.
	RedirectTo
	// External replaces the import with a runtime loader lookup.
	External
)

func (k Kind) String() string {
	switch k {
	case Continue:
		return "continue"
	case RedirectTo:
		return "redirect-to"
	case External:
		return "external"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "continue":
		*k = Continue
	case "redirect-to":
		*k = RedirectTo
	case "external":
		*k = External
	default:
		return fmt.Errorf("unknown resolution %q", text)
	}
	return nil
}

// Resolution is the decision for one specifier. Specifier is empty for Continue.
type Resolution struct {
	Kind      Kind   `json:"result"`
	Specifier string `json:"specifier,omitempty"`
}

func continueResolution() Resolution {
	return Resolution{Kind: Continue}
}

func redirectTo(specifier string) Resolution {
	return Resolution{Kind: RedirectTo, Specifier: specifier}
}

func external(specifier string) Resolution {
	return Resolution{Kind: External, Specifier: specifier}
}

func (r Resolution) String() string {
	if r.Kind == Continue {
		return r.Kind.String()
	}
	return r.Kind.String() + "(" + r.Specifier + ")"
}
