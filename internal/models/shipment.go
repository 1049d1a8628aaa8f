package models

import (
	"fmt"
	"time"
)

// Role is the capacity in which a company appears in shipment records.
// The two roles are not mutually exclusive; a company seen in both is "both".
type Role string

const (
	RoleImporter Role = "importer"
	RoleExporter Role = "exporter"
	RoleBoth     Role = "both"
)

func (r Role) Valid() bool {
	switch r {
	case RoleImporter, RoleExporter, RoleBoth:
		return true
	}
	return false
}

// Shipment is a single immutable record from the source dataset.
// Weight is in metric tonnes; derived views convert to integer kilograms.
type Shipment struct {
	ID              int64     `json:"id"`
	ImporterName    string    `json:"importer_name"`
	ImporterCountry string    `json:"importer_country"`
	ImporterWebsite *string   `json:"importer_website"`
	ExporterName    string    `json:"exporter_name"`
	ExporterCountry string    `json:"exporter_country"`
	ExporterWebsite *string   `json:"exporter_website"`
	Commodity       string    `json:"commodity"`
	Weight          float64   `json:"weight"`
	Date            time.Time `json:"date"`
}

// Company is a derived record identified by the (name, country) composite key.
// Totals are summed across the company's importer-role and exporter-role rows.
type Company struct {
	Name      string `json:"name"`
	Country   string `json:"country"`
	Shipments int64  `json:"shipments"`
	WeightKG  int64  `json:"weight_kg"`
}

func (c Company) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("company name is empty")
	}
	if c.Shipments < 0 {
		return fmt.Errorf("company %q: negative shipment count %d", c.Name, c.Shipments)
	}
	if c.WeightKG < 0 {
		return fmt.Errorf("company %q: negative weight %d", c.Name, c.WeightKG)
	}
	return nil
}

// TradingPartner is a counterparty on the opposite side of a shipment.
type TradingPartner struct {
	Name      string `json:"name"`
	Country   string `json:"country"`
	Shipments int64  `json:"shipments"`
}

// CommodityWeight ranks a commodity by total shipped weight.
type CommodityWeight struct {
	Commodity string `json:"commodity"`
	WeightKG  int64  `json:"weight_kg"`
}

// CompanyDetail is the request-scoped expansion of a company: role is
// recomputed on every read from the presence of rows in each role, never
// stored. Website is the first non-null value across the role groups.
type CompanyDetail struct {
	Name           string            `json:"name"`
	Country        string            `json:"country"`
	Role           Role              `json:"role"`
	Website        *string           `json:"website"`
	Shipments      int64             `json:"shipments"`
	WeightKG       int64             `json:"weight_kg"`
	TopPartners    []TradingPartner  `json:"top_partners"`
	TopCommodities []CommodityWeight `json:"top_commodities"`
}

func (d CompanyDetail) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("company detail: name is empty")
	}
	if !d.Role.Valid() {
		return fmt.Errorf("company %q: invalid role %q", d.Name, d.Role)
	}
	if len(d.TopPartners) > 5 {
		return fmt.Errorf("company %q: %d partners, want at most 5", d.Name, len(d.TopPartners))
	}
	if len(d.TopCommodities) > 5 {
		return fmt.Errorf("company %q: %d commodities, want at most 5", d.Name, len(d.TopCommodities))
	}
	for i := 1; i < len(d.TopPartners); i++ {
		if d.TopPartners[i].Shipments > d.TopPartners[i-1].Shipments {
			return fmt.Errorf("company %q: partners not sorted by shipment count", d.Name)
		}
	}
	for i := 1; i < len(d.TopCommodities); i++ {
		if d.TopCommodities[i].WeightKG > d.TopCommodities[i-1].WeightKG {
			return fmt.Errorf("company %q: commodities not sorted by weight", d.Name)
		}
	}
	return nil
}

// MonthlyVolume is one calendar month of shipped weight. Month is rendered
// as "Jan 2006".
type MonthlyVolume struct {
	Month    string `json:"month"`
	WeightKG int64  `json:"weight_kg"`
}

// StatsSnapshot is the global dashboard summary. Importer and exporter
// counts are distinct name counts and are not mutually exclusive.
type StatsSnapshot struct {
	Importers      int64             `json:"importers"`
	Exporters      int64             `json:"exporters"`
	TopCommodities []CommodityWeight `json:"top_commodities"`
	MonthlyVolume  []MonthlyVolume   `json:"monthly_volume"`
}

func (s StatsSnapshot) Validate() error {
	if s.Importers < 0 || s.Exporters < 0 {
		return fmt.Errorf("stats: negative distinct counts")
	}
	if len(s.TopCommodities) > 5 {
		return fmt.Errorf("stats: %d commodities, want at most 5", len(s.TopCommodities))
	}
	var prev time.Time
	for i, mv := range s.MonthlyVolume {
		t, err := time.Parse("Jan 2006", mv.Month)
		if err != nil {
			return fmt.Errorf("stats: month label %q: %w", mv.Month, err)
		}
		if i > 0 && !t.After(prev) {
			return fmt.Errorf("stats: monthly volume not chronological at %q", mv.Month)
		}
		prev = t
	}
	return nil
}
