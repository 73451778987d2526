package ir

import (
	"strings"

	"golang.org/x/text/cases"
)

// Semantic is the meaning of a material property.
type Semantic uint8

// Semantics understood by the compiler.
const (
	BaseColor Semantic = iota
	Normal
	Metallic
	Roughness
	SpecularColor
	Emissive
	Transmission
	AlphaCutoff
	AlphaMask

	semanticCount
)

var semanticNames = [semanticCount]string{
	BaseColor:     "base-color",
	Normal:        "normal",
	Metallic:      "metallic",
	Roughness:     "roughness",
	SpecularColor: "specular-color",
	Emissive:      "emissive",
	Transmission:  "transmission",
	AlphaCutoff:   "alpha-cutoff",
	AlphaMask:     "alpha-mask",
}

// foldedSemantics maps case-folded names without separators to semantics.
var foldedSemantics = func() map[string]Semantic {
	m := make(map[string]Semantic, semanticCount)
	for s := range semanticCount {
		m[foldName(semanticNames[s])] = s
	}
	return m
}()

// String implements fmt.Stringer.
func (s Semantic) String() string {
	if s < semanticCount {
		return semanticNames[s]
	}
	return "[!] invalid Semantic value"
}

// ParseSemantic maps a property name produced by a parser to a Semantic.
// Matching ignores case and the separators '-', '_' and ' ', so
// "base-color", "baseColor" and "BASE_COLOR" are the same name.
func ParseSemantic(name string) (Semantic, bool) {
	s, ok := foldedSemantics[foldName(name)]
	return s, ok
}

func foldName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '-', '_', ' ':
			return -1
		}
		return r
	}, name)
	return cases.Fold().String(name)
}

// Value is the value of a material property: a TextureRef, Scalar,
// Vec2, Vec3, Vec4 or Bool.
type Value interface {
	isValue()
}

// Swizzle selects texture channels, e.g. "rgb", "a" or "b".
type Swizzle string

// TextureRef samples channels of a texture.
type TextureRef struct {
	Texture Ref[Texture]
	Swizzle Swizzle
}

// Constant values.
type (
	Scalar float32
	Vec2   [2]float32
	Vec3   [3]float32
	Vec4   [4]float32
	Bool   bool
)

func (TextureRef) isValue() {}
func (Scalar) isValue()     {}
func (Vec2) isValue()       {}
func (Vec3) isValue()       {}
func (Vec4) isValue()       {}
func (Bool) isValue()       {}

// Property is a semantic/value pair.
type Property struct {
	Semantic Semantic
	Value    Value
}

// Material is an ordered bag of properties.
type Material struct {
	Name       string
	Properties []Property
}

// Set appends a property to m.
func (m *Material) Set(s Semantic, v Value) {
	m.Properties = append(m.Properties, Property{Semantic: s, Value: v})
}

// Find returns the first property of m with semantic s whose value is a V.
// Properties with the same semantic but another value type are skipped.
func Find[V Value](m *Material, s Semantic) (V, bool) {
	for _, p := range m.Properties {
		if p.Semantic != s {
			continue
		}
		if v, ok := p.Value.(V); ok {
			return v, true
		}
	}
	var zero V
	return zero, false
}
