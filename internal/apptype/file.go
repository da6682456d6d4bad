package apptype

import (
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"
)

// catalogFile is the on-disk TOML layout. Caps and windows differ between
// clinic revisions, so every field can be overridden per key:
//
//	[types.zdravotnicke_pomocky]
//	daily_cap = 10
//
//	[[types.konzultacia.windows]]
//	start = "07:30"
//	end = "09:00"
//	interval = 10
type catalogFile struct {
	Types map[string]typeOverride `toml:"types"`
}

type typeOverride struct {
	Name             *string  `toml:"name"`
	Windows          []Window `toml:"windows"`
	DailyCap         *int     `toml:"daily_cap"`
	DurationMinutes  *int     `toml:"duration_minutes"`
	Price            *int     `toml:"price"`
	InsuranceCovered *bool    `toml:"insurance_covered"`
	OrderNumbered    *bool    `toml:"order_numbered"`
	ColorID          *string  `toml:"color_id"`
	Requirements     []string `toml:"requirements"`
}

// LoadFile reads TOML overrides from path and applies them on top of base.
func LoadFile(path string, base []Type) (*Catalog, error) {
	var f catalogFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("apptype: decode %s: %w", path, err)
	}
	return f.apply(base)
}

// Parse applies TOML overrides held in data on top of base.
func Parse(data string, base []Type) (*Catalog, error) {
	var f catalogFile
	if _, err := toml.Decode(data, &f); err != nil {
		return nil, fmt.Errorf("apptype: decode: %w", err)
	}
	return f.apply(base)
}

func (f catalogFile) apply(base []Type) (*Catalog, error) {
	types := make([]Type, 0, len(base)+len(f.Types))
	seen := make(map[string]bool, len(base))
	for _, t := range base {
		if o, ok := f.Types[t.Key]; ok {
			t = o.merge(t)
		}
		seen[t.Key] = true
		types = append(types, t)
	}

	var added []string
	for key := range f.Types {
		if !seen[key] {
			added = append(added, key)
		}
	}
	sort.Strings(added)
	for _, key := range added {
		types = append(types, f.Types[key].merge(Type{Key: key}))
	}
	return NewCatalog(types...)
}

func (o typeOverride) merge(t Type) Type {
	if o.Name != nil {
		t.Name = *o.Name
	}
	if len(o.Windows) > 0 {
		t.Windows = append([]Window(nil), o.Windows...)
	}
	if o.DailyCap != nil {
		t.DailyCap = *o.DailyCap
	}
	if o.DurationMinutes != nil {
		t.DurationMinutes = *o.DurationMinutes
	}
	if o.Price != nil {
		t.Price = *o.Price
	}
	if o.InsuranceCovered != nil {
		t.InsuranceCovered = *o.InsuranceCovered
	}
	if o.OrderNumbered != nil {
		t.OrderNumbered = *o.OrderNumbered
	}
	if o.ColorID != nil {
		t.ColorID = *o.ColorID
	}
	if len(o.Requirements) > 0 {
		t.Requirements = append([]string(nil), o.Requirements...)
	}
	return t
}
