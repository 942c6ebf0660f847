package domain

import (
	"fmt"
	"strings"
)

// EngineeringDomain is one entry of the closed set of analysis focuses.
type EngineeringDomain string

const (
	DomainRobotics      EngineeringDomain = "Robotics / Mechanical Systems"
	DomainProductDesign EngineeringDomain = "Product Design"
	DomainCAD           EngineeringDomain = "CAD Model / 3D Printed Objects"
	DomainMechanism     EngineeringDomain = "Mechanical Mechanism"
	DomainElectronics   EngineeringDomain = "Electronics / PCB Design"
	DomainCivil         EngineeringDomain = "Civil Engineering / Structures"
	DomainAerospace     EngineeringDomain = "Aerospace Engineering"
	DomainAutomotive    EngineeringDomain = "Automotive Engineering"
	DomainManufacturing EngineeringDomain = "Manufacturing / Industrial"
	DomainOther         EngineeringDomain = "Other Engineering Design"
)

var engineeringDomains = []EngineeringDomain{
	DomainRobotics,
	DomainProductDesign,
	DomainCAD,
	DomainMechanism,
	DomainElectronics,
	DomainCivil,
	DomainAerospace,
	DomainAutomotive,
	DomainManufacturing,
	DomainOther,
}

// Domains returns the selectable domains in display order.
func Domains() []EngineeringDomain {
	out := make([]EngineeringDomain, len(engineeringDomains))
	copy(out, engineeringDomains)
	return out
}

func (d EngineeringDomain) String() string {
	return string(d)
}

// Slug is a lowercase, dash separated identifier ("electronics-pcb-design").
func (d EngineeringDomain) Slug() string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(string(d)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
		default:
			dash = true
		}
	}
	return b.String()
}

func (d EngineeringDomain) Valid() bool {
	for _, known := range engineeringDomains {
		if d == known {
			return true
		}
	}
	return false
}

// ParseDomain accepts a display label (case-insensitive) or a slug.
func ParseDomain(raw string) (EngineeringDomain, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", WrapError(ErrValidation, "parse domain", fmt.Errorf("engineering domain is required"))
	}
	for _, known := range engineeringDomains {
		if strings.EqualFold(value, string(known)) || strings.EqualFold(value, known.Slug()) {
			return known, nil
		}
	}
	return "", WrapError(ErrValidation, "parse domain", fmt.Errorf("unknown engineering domain %q", value))
}
