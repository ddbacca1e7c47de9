package inventory

import (
	"strings"

	"github.com/jhoicas/Pescaderia-api/internal/domain/entity"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// Contribution lote origen y cantidad que aportó a un lote derivado.
type Contribution struct {
	Lot      *entity.Lot
	Quantity decimal.Decimal
}

// MergeProvenance construye la trazabilidad de un lote derivado:
//   - el contribuyente de mayor cantidad (el primero en caso de empate) aporta los campos escalares;
//   - las listas guardan la unión de valores distintos de todos los contribuyentes;
//   - se propaga la fecha de caducidad más temprana.
func MergeProvenance(contribs []Contribution) entity.Provenance {
	var out entity.Provenance
	if len(contribs) == 0 {
		return out
	}

	majority := contribs[0]
	for _, c := range contribs[1:] {
		if c.Quantity.GreaterThan(majority.Quantity) {
			majority = c
		}
	}
	mp := majority.Lot.Provenance
	out.FishingZone = mp.FishingZone
	out.SubZone = mp.SubZone
	out.Gear = mp.Gear
	out.Species = mp.Species
	out.Photo = mp.Photo

	zones := newUnion()
	subZones := newUnion()
	gears := newUnion()
	species := newUnion()
	photos := newUnion()
	for _, c := range contribs {
		p := c.Lot.Provenance
		zones.add(p.FishingZone)
		zones.add(p.FishingZones...)
		subZones.add(p.SubZone)
		subZones.add(p.SubZones...)
		gears.add(p.Gear)
		gears.add(p.Gears...)
		species.add(p.Species)
		species.add(p.SpeciesNames...)
		photos.add(p.Photo)
		photos.add(p.Photos...)

		if p.ExpiryDate != nil && (out.ExpiryDate == nil || p.ExpiryDate.Before(*out.ExpiryDate)) {
			t := *p.ExpiryDate
			out.ExpiryDate = &t
		}
	}
	if out.Photo == "" && len(photos.values) > 0 {
		out.Photo = photos.values[0]
	}
	out.FishingZones = zones.values
	out.SubZones = subZones.values
	out.Gears = gears.values
	out.SpeciesNames = species.values
	out.Photos = photos.values
	return out
}

// union conserva el orden de aparición y descarta duplicados sin distinguir mayúsculas.
type union struct {
	fold   cases.Caser
	seen   map[string]struct{}
	values []string
}

func newUnion() *union {
	return &union{fold: cases.Fold(), seen: make(map[string]struct{})}
}

func (u *union) add(vals ...string) {
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := u.fold.String(v)
		if _, ok := u.seen[key]; ok {
			continue
		}
		u.seen[key] = struct{}{}
		u.values = append(u.values, v)
	}
}
