package store

import "strings"

// ReleaseType is the kind of a release
type ReleaseType string

const (
	ReleaseAlbum       ReleaseType = "ALBUM"
	ReleaseEP          ReleaseType = "EP"
	ReleaseSingle      ReleaseType = "SINGLE"
	ReleaseSingleAlbum ReleaseType = "SINGLE_ALBUM"
)

// ReleaseTypes returns every accepted release type
func ReleaseTypes() []ReleaseType {
	return []ReleaseType{ReleaseAlbum, ReleaseEP, ReleaseSingle, ReleaseSingleAlbum}
}

// Valid reports whether t is one of the accepted literals
func (t ReleaseType) Valid() bool {
	for _, v := range ReleaseTypes() {
		if t == v {
			return true
		}
	}
	return false
}

// Language is the language a release was recorded in
type Language string

const (
	LanguageKR Language = "KR"
	LanguageJP Language = "JP"
	LanguageEN Language = "EN"
)

// Languages returns every accepted release language
func Languages() []Language {
	return []Language{LanguageKR, LanguageJP, LanguageEN}
}

// Valid reports whether l is one of the accepted literals
func (l Language) Valid() bool {
	for _, v := range Languages() {
		if l == v {
			return true
		}
	}
	return false
}

// ParseReleaseType matches s against the accepted literals, ignoring case and
// surrounding space. The boolean is false when s matches none of them.
func ParseReleaseType(s string) (ReleaseType, bool) {
	t := ReleaseType(strings.ToUpper(strings.TrimSpace(s)))
	return t, t.Valid()
}

// ParseLanguage matches s against the accepted literals, ignoring case and
// surrounding space.
func ParseLanguage(s string) (Language, bool) {
	l := Language(strings.ToUpper(strings.TrimSpace(s)))
	return l, l.Valid()
}

// ReleaseTypeNames returns the accepted release type literals
func ReleaseTypeNames() []string {
	out := make([]string, 0, 4)
	for _, t := range ReleaseTypes() {
		out = append(out, string(t))
	}
	return out
}

// LanguageNames returns the accepted language literals
func LanguageNames() []string {
	out := make([]string, 0, 3)
	for _, l := range Languages() {
		out = append(out, string(l))
	}
	return out
}
