package store

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"shipdash/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func site(s string) *string { return &s }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// seedShipments exercises every aggregation path: a composite-key collision
// ("Acme Imports" in US and GB), a company active in both roles (Acme
// Imports US), single-role companies, and a name with a quote character.
func seedShipments() []models.Shipment {
	return []models.Shipment{
		{ID: 1, ImporterName: "Acme Imports", ImporterCountry: "US", ImporterWebsite: site("https://acme.example"),
			ExporterName: "Volga Metals", ExporterCountry: "RU",
			Commodity: "Steel", Weight: 10.5, Date: date(2024, time.January, 15)},
		{ID: 2, ImporterName: "Acme Imports", ImporterCountry: "US", ImporterWebsite: site("https://acme.example"),
			ExporterName: "Han Shipping", ExporterCountry: "CN", ExporterWebsite: site("https://han.example"),
			Commodity: "Copper", Weight: 3.2, Date: date(2024, time.February, 3)},
		{ID: 3, ImporterName: "Acme Imports", ImporterCountry: "GB",
			ExporterName: "Volga Metals", ExporterCountry: "RU",
			Commodity: "Steel", Weight: 1.0, Date: date(2024, time.February, 10)},
		{ID: 4, ImporterName: "Delta Foods", ImporterCountry: "FR",
			ExporterName: "Acme Imports", ExporterCountry: "US",
			Commodity: "Grain", Weight: 7.25, Date: date(2024, time.March, 1)},
		{ID: 5, ImporterName: "Delta Foods", ImporterCountry: "FR",
			ExporterName: "Han Shipping", ExporterCountry: "CN",
			Commodity: "Grain", Weight: 2.0, Date: date(2024, time.January, 20)},
		{ID: 6, ImporterName: "O'Brien & Sons", ImporterCountry: "IE",
			ExporterName: "Han Shipping", ExporterCountry: "CN",
			Commodity: "Machinery", Weight: 0.4, Date: date(2023, time.December, 5)},
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.LoadShipments(context.Background(), seedShipments()); err != nil {
		t.Fatalf("LoadShipments: %v", err)
	}
	return s
}

func TestOpen_SchemaIsIdempotent(t *testing.T) {
	s := newTestStore(t)

	if err := s.ensureSchema(); err != nil {
		t.Fatalf("second ensureSchema: %v", err)
	}

	n, err := s.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 6 {
		t.Errorf("Count = %d, want 6", n)
	}
}

func TestLoadJSON(t *testing.T) {
	s, err := Open(":memory:", testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	path := filepath.Join(t.TempDir(), "shipments.json")
	dataset := `[
		{"id": 1, "importer_name": "Acme Imports", "importer_country": "US",
		 "importer_website": "https://acme.example",
		 "exporter_name": "Volga Metals", "exporter_country": "RU",
		 "exporter_website": null,
		 "commodity": "Steel", "weight": 10.5, "date": "2024-01-15"},
		{"id": 2, "importer_name": "Delta Foods", "importer_country": "FR",
		 "importer_website": null,
		 "exporter_name": "Han Shipping", "exporter_country": "CN",
		 "exporter_website": null,
		 "commodity": "Grain", "weight": 2.0, "date": "2024-01-20"}
	]`
	if err := os.WriteFile(path, []byte(dataset), 0644); err != nil {
		t.Fatal(err)
	}

	n, err := s.LoadJSON(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if n != 2 {
		t.Errorf("loaded %d records, want 2", n)
	}

	shipments, total, err := s.ListShipments(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("ListShipments: %v", err)
	}
	if total != 2 || len(shipments) != 2 {
		t.Fatalf("got %d shipments (total %d), want 2", len(shipments), total)
	}
	if shipments[0].ImporterName != "Delta Foods" {
		t.Errorf("newest shipment importer = %q, want Delta Foods", shipments[0].ImporterName)
	}
	if shipments[1].ImporterWebsite == nil || *shipments[1].ImporterWebsite != "https://acme.example" {
		t.Errorf("importer website not preserved: %v", shipments[1].ImporterWebsite)
	}
}

func TestLoadJSON_MissingFile(t *testing.T) {
	s, err := Open(":memory:", testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, err := s.LoadJSON(context.Background(), "does-not-exist.json"); err == nil {
		t.Error("expected error for missing dataset file")
	}
}

func TestListShipments_OrderAndPaging(t *testing.T) {
	s := newTestStore(t)

	shipments, total, err := s.ListShipments(context.Background(), 4, 0)
	if err != nil {
		t.Fatalf("ListShipments: %v", err)
	}
	if total != 6 {
		t.Errorf("total = %d, want 6", total)
	}
	if len(shipments) != 4 {
		t.Fatalf("len = %d, want 4", len(shipments))
	}
	for i := 1; i < len(shipments); i++ {
		if shipments[i].Date.After(shipments[i-1].Date) {
			t.Errorf("shipments not ordered by date desc at index %d", i)
		}
	}
	if shipments[0].ID != 4 {
		t.Errorf("newest shipment id = %d, want 4", shipments[0].ID)
	}

	rest, _, err := s.ListShipments(context.Background(), 4, 4)
	if err != nil {
		t.Fatalf("ListShipments offset: %v", err)
	}
	if len(rest) != 2 {
		t.Errorf("second page len = %d, want 2", len(rest))
	}
}

func TestListCompanies_DeduplicatesCompositeKey(t *testing.T) {
	s := newTestStore(t)

	companies, total, err := s.ListCompanies(context.Background(), 100, 0, "")
	if err != nil {
		t.Fatalf("ListCompanies: %v", err)
	}
	if total != 6 {
		t.Errorf("total = %d, want 6 distinct (name, country) pairs", total)
	}
	if len(companies) != 6 {
		t.Fatalf("len = %d, want 6", len(companies))
	}

	seen := make(map[[2]string]bool)
	for _, c := range companies {
		key := [2]string{c.Name, c.Country}
		if seen[key] {
			t.Errorf("duplicate composite key %v", key)
		}
		seen[key] = true
	}
	if !seen[[2]string{"Acme Imports", "US"}] || !seen[[2]string{"Acme Imports", "GB"}] {
		t.Error("same-named companies in different countries must be distinct entries")
	}

	for i := 1; i < len(companies); i++ {
		if companies[i].Shipments > companies[i-1].Shipments {
			t.Errorf("companies not sorted by shipment count desc at index %d", i)
		}
	}
}

func TestListCompanies_SumsBothRoles(t *testing.T) {
	s := newTestStore(t)

	companies, _, err := s.ListCompanies(context.Background(), 100, 0, "")
	if err != nil {
		t.Fatalf("ListCompanies: %v", err)
	}

	var acmeUS *models.Company
	for i := range companies {
		if companies[i].Name == "Acme Imports" && companies[i].Country == "US" {
			acmeUS = &companies[i]
		}
	}
	if acmeUS == nil {
		t.Fatal("Acme Imports (US) missing from listing")
	}
	// 2 shipments as importer (10.5t + 3.2t) plus 1 as exporter (7.25t).
	if acmeUS.Shipments != 3 {
		t.Errorf("Acme US shipments = %d, want 3", acmeUS.Shipments)
	}
	if acmeUS.WeightKG != 10500+3200+7250 {
		t.Errorf("Acme US weight = %d kg, want %d", acmeUS.WeightKG, 10500+3200+7250)
	}
}

func TestListCompanies_PagesAreDisjoint(t *testing.T) {
	s := newTestStore(t)

	first, _, err := s.ListCompanies(context.Background(), 3, 0, "")
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	second, _, err := s.ListCompanies(context.Background(), 3, 3, "")
	if err != nil {
		t.Fatalf("second page: %v", err)
	}

	keys := make(map[[2]string]bool)
	for _, c := range first {
		keys[[2]string{c.Name, c.Country}] = true
	}
	for _, c := range second {
		if keys[[2]string{c.Name, c.Country}] {
			t.Errorf("company %s/%s appears on both pages", c.Name, c.Country)
		}
	}
}

func TestListCompanies_Search(t *testing.T) {
	s := newTestStore(t)

	companies, total, err := s.ListCompanies(context.Background(), 100, 0, "acme")
	if err != nil {
		t.Fatalf("ListCompanies: %v", err)
	}
	if total != 2 {
		t.Errorf("search total = %d, want 2", total)
	}
	for _, c := range companies {
		if c.Name != "Acme Imports" {
			t.Errorf("unexpected company %q for search %q", c.Name, "acme")
		}
	}
}

func TestGetCompanyDetail_Roles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		role models.Role
	}{
		{"Acme Imports", models.RoleBoth},
		{"Volga Metals", models.RoleExporter},
		{"Delta Foods", models.RoleImporter},
		{"O'Brien & Sons", models.RoleImporter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detail, err := s.GetCompanyDetail(ctx, tt.name)
			if err != nil {
				t.Fatalf("GetCompanyDetail: %v", err)
			}
			if detail == nil {
				t.Fatalf("company %q not found", tt.name)
			}
			if detail.Role != tt.role {
				t.Errorf("role = %q, want %q", detail.Role, tt.role)
			}
			if err := detail.Validate(); err != nil {
				t.Errorf("detail failed validation: %v", err)
			}
		})
	}
}

func TestGetCompanyDetail_SumsAcrossSubGroups(t *testing.T) {
	s := newTestStore(t)

	detail, err := s.GetCompanyDetail(context.Background(), "Acme Imports")
	if err != nil {
		t.Fatalf("GetCompanyDetail: %v", err)
	}
	if detail == nil {
		t.Fatal("Acme Imports not found")
	}
	// Importer rows in US (2) and GB (1) plus one exporter row in US.
	if detail.Shipments != 4 {
		t.Errorf("shipments = %d, want 4", detail.Shipments)
	}
	if detail.WeightKG != 10500+3200+1000+7250 {
		t.Errorf("weight = %d kg, want %d", detail.WeightKG, 10500+3200+1000+7250)
	}
	if detail.Website == nil || *detail.Website != "https://acme.example" {
		t.Errorf("website = %v, want first non-null https://acme.example", detail.Website)
	}
	if detail.Country != "US" && detail.Country != "GB" {
		t.Errorf("country = %q, want one of the grouped countries", detail.Country)
	}
}

func TestGetCompanyDetail_PartnersAndCommodities(t *testing.T) {
	s := newTestStore(t)

	detail, err := s.GetCompanyDetail(context.Background(), "Han Shipping")
	if err != nil {
		t.Fatalf("GetCompanyDetail: %v", err)
	}
	if detail == nil {
		t.Fatal("Han Shipping not found")
	}

	if len(detail.TopPartners) != 3 {
		t.Fatalf("partners = %d, want 3", len(detail.TopPartners))
	}
	partnerNames := make(map[string]bool)
	for _, p := range detail.TopPartners {
		partnerNames[p.Name] = true
	}
	for _, want := range []string{"Acme Imports", "Delta Foods", "O'Brien & Sons"} {
		if !partnerNames[want] {
			t.Errorf("missing trading partner %q", want)
		}
	}

	// Exporter-only company: role and commodities come from its exporter rows.
	volga, err := s.GetCompanyDetail(context.Background(), "Volga Metals")
	if err != nil {
		t.Fatalf("GetCompanyDetail: %v", err)
	}
	if volga.Role != models.RoleExporter {
		t.Errorf("role = %q, want exporter", volga.Role)
	}
	if len(volga.TopCommodities) != 1 || volga.TopCommodities[0].Commodity != "Steel" {
		t.Errorf("commodities = %+v, want [Steel]", volga.TopCommodities)
	}
	if volga.TopCommodities[0].WeightKG != 10500+1000 {
		t.Errorf("Steel weight = %d, want %d", volga.TopCommodities[0].WeightKG, 10500+1000)
	}
}

func TestGetCompanyDetail_NotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	names := []string{
		"Nobody Trading",
		"acme imports", // lookups are case-sensitive
		`x' OR '1'='1`,
		`Robert"); DROP TABLE shipments;--`,
		`%`,
	}
	for _, name := range names {
		detail, err := s.GetCompanyDetail(ctx, name)
		if err != nil {
			t.Errorf("GetCompanyDetail(%q) error: %v", name, err)
		}
		if detail != nil {
			t.Errorf("GetCompanyDetail(%q) = %+v, want nil", name, detail)
		}
	}

	// Hostile names must not have touched the data.
	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 6 {
		t.Errorf("Count = %d after hostile lookups, want 6", n)
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t)

	snapshot, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if snapshot.Importers != 3 {
		t.Errorf("importers = %d, want 3", snapshot.Importers)
	}
	if snapshot.Exporters != 3 {
		t.Errorf("exporters = %d, want 3", snapshot.Exporters)
	}
	if err := snapshot.Validate(); err != nil {
		t.Errorf("snapshot failed validation: %v", err)
	}

	wantMonths := []string{"Dec 2023", "Jan 2024", "Feb 2024", "Mar 2024"}
	if len(snapshot.MonthlyVolume) != len(wantMonths) {
		t.Fatalf("months = %d, want %d", len(snapshot.MonthlyVolume), len(wantMonths))
	}
	for i, mv := range snapshot.MonthlyVolume {
		if mv.Month != wantMonths[i] {
			t.Errorf("month[%d] = %q, want %q", i, mv.Month, wantMonths[i])
		}
	}
	if snapshot.MonthlyVolume[1].WeightKG != 10500+2000 {
		t.Errorf("Jan 2024 volume = %d, want %d", snapshot.MonthlyVolume[1].WeightKG, 10500+2000)
	}

	if len(snapshot.TopCommodities) == 0 || snapshot.TopCommodities[0].Commodity != "Steel" {
		t.Errorf("top commodity = %+v, want Steel first", snapshot.TopCommodities)
	}
	for i := 1; i < len(snapshot.TopCommodities); i++ {
		if snapshot.TopCommodities[i].WeightKG > snapshot.TopCommodities[i-1].WeightKG {
			t.Errorf("commodities not sorted by weight desc at index %d", i)
		}
	}
}
