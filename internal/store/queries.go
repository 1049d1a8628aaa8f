package store

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"shipdash/internal/models"
)

// The queries below share one idiom: a company's total activity is only
// observable by combining its shipments-as-importer and
// shipments-as-exporter relations, keyed on the same (name, country)
// identity. Each per-role relation is aggregated independently, the two are
// glued with UNION ALL, then the outer GROUP BY collapses the composite key.
//
// Weights are scaled to integer kilograms per row before summation
// (CAST(weight * 1000 AS INTEGER)); the resulting truncation is accepted.

// ListShipments returns one page of raw records ordered by date descending,
// plus the total row count. No filtering.
func (s *Store) ListShipments(ctx context.Context, limit, offset int) ([]models.Shipment, int64, error) {
	total, err := s.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, importer_name, importer_country, importer_website,
		       exporter_name, exporter_country, exporter_website,
		       commodity, weight, shipped_at
		FROM shipments
		ORDER BY shipped_at DESC, id DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list shipments: %w", err)
	}
	defer rows.Close()

	shipments := make([]models.Shipment, 0, limit)
	for rows.Next() {
		var sh models.Shipment
		var shippedAt string
		if err := rows.Scan(
			&sh.ID,
			&sh.ImporterName, &sh.ImporterCountry, &sh.ImporterWebsite,
			&sh.ExporterName, &sh.ExporterCountry, &sh.ExporterWebsite,
			&sh.Commodity, &sh.Weight, &shippedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("store: scan shipment: %w", err)
		}
		sh.Date, err = time.Parse("2006-01-02", shippedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("store: bad shipped_at %q: %w", shippedAt, err)
		}
		shipments = append(shipments, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("store: list shipments: %w", err)
	}
	return shipments, total, nil
}

// ListCompanies returns one page of deduplicated companies ordered by total
// shipment count descending, plus the count of distinct (name, country)
// pairs appearing in either role. A non-empty search narrows by
// case-insensitive substring match on the company name.
func (s *Store) ListCompanies(ctx context.Context, limit, offset int, search string) ([]models.Company, int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM (
			SELECT importer_name AS name, importer_country AS country FROM shipments
			UNION
			SELECT exporter_name, exporter_country FROM shipments
		)
		WHERE ?1 = '' OR instr(lower(name), lower(?1)) > 0`, search).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count companies: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, country, SUM(shipments) AS shipments, SUM(weight_kg) AS weight_kg
		FROM (
			SELECT importer_name AS name, importer_country AS country,
			       COUNT(*) AS shipments,
			       SUM(CAST(weight * 1000 AS INTEGER)) AS weight_kg
			FROM shipments
			GROUP BY importer_name, importer_country
			UNION ALL
			SELECT exporter_name, exporter_country,
			       COUNT(*),
			       SUM(CAST(weight * 1000 AS INTEGER))
			FROM shipments
			GROUP BY exporter_name, exporter_country
		)
		WHERE ?1 = '' OR instr(lower(name), lower(?1)) > 0
		GROUP BY name, country
		ORDER BY shipments DESC
		LIMIT ?2 OFFSET ?3`, search, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list companies: %w", err)
	}
	defer rows.Close()

	companies := make([]models.Company, 0, limit)
	for rows.Next() {
		var c models.Company
		if err := rows.Scan(&c.Name, &c.Country, &c.Shipments, &c.WeightKG); err != nil {
			return nil, 0, fmt.Errorf("store: scan company: %w", err)
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("store: list companies: %w", err)
	}
	return companies, total, nil
}

// GetCompanyDetail resolves a company by exact, case-sensitive name. It
// returns (nil, nil) when the name matches no importer or exporter row; the
// name travels only as a bound parameter, so quote characters and other SQL
// metacharacters never reach the query text.
func (s *Store) GetCompanyDetail(ctx context.Context, name string) (*models.CompanyDetail, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT 'importer' AS role, importer_country AS country, importer_website AS website,
		       COUNT(*) AS shipments, SUM(CAST(weight * 1000 AS INTEGER)) AS weight_kg
		FROM shipments
		WHERE importer_name = ?1
		GROUP BY importer_country, importer_website
		UNION ALL
		SELECT 'exporter', exporter_country, exporter_website,
		       COUNT(*), SUM(CAST(weight * 1000 AS INTEGER))
		FROM shipments
		WHERE exporter_name = ?1
		GROUP BY exporter_country, exporter_website`, name)
	if err != nil {
		return nil, fmt.Errorf("store: company role groups: %w", err)
	}
	defer rows.Close()

	detail := &models.CompanyDetail{Name: name}
	var asImporter, asExporter bool
	for rows.Next() {
		var role, country string
		var website *string
		var shipments, weightKG int64
		if err := rows.Scan(&role, &country, &website, &shipments, &weightKG); err != nil {
			return nil, fmt.Errorf("store: scan role group: %w", err)
		}
		if detail.Country == "" {
			detail.Country = country
		}
		if detail.Website == nil && website != nil {
			detail.Website = website
		}
		detail.Shipments += shipments
		detail.WeightKG += weightKG
		switch role {
		case "importer":
			asImporter = true
		case "exporter":
			asExporter = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: company role groups: %w", err)
	}

	if !asImporter && !asExporter {
		return nil, nil
	}
	switch {
	case asImporter && asExporter:
		detail.Role = models.RoleBoth
	case asImporter:
		detail.Role = models.RoleImporter
	default:
		detail.Role = models.RoleExporter
	}

	if detail.TopPartners, err = s.topPartners(ctx, name); err != nil {
		return nil, err
	}
	if detail.TopCommodities, err = s.topCommodities(ctx, name); err != nil {
		return nil, err
	}
	return detail, nil
}

// topPartners ranks counterparties from both directions of trade: exporters
// on shipments where the company imports, importers where it exports.
func (s *Store) topPartners(ctx context.Context, name string) ([]models.TradingPartner, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, country, SUM(shipments) AS shipments
		FROM (
			SELECT exporter_name AS name, exporter_country AS country, COUNT(*) AS shipments
			FROM shipments
			WHERE importer_name = ?1
			GROUP BY exporter_name, exporter_country
			UNION ALL
			SELECT importer_name, importer_country, COUNT(*)
			FROM shipments
			WHERE exporter_name = ?1
			GROUP BY importer_name, importer_country
		)
		GROUP BY name, country
		ORDER BY shipments DESC
		LIMIT 5`, name)
	if err != nil {
		return nil, fmt.Errorf("store: top partners: %w", err)
	}
	defer rows.Close()

	partners := make([]models.TradingPartner, 0, 5)
	for rows.Next() {
		var p models.TradingPartner
		if err := rows.Scan(&p.Name, &p.Country, &p.Shipments); err != nil {
			return nil, fmt.Errorf("store: scan partner: %w", err)
		}
		partners = append(partners, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: top partners: %w", err)
	}
	return partners, nil
}

func (s *Store) topCommodities(ctx context.Context, name string) ([]models.CommodityWeight, error) {
	return s.commodityRanking(ctx, `
		SELECT commodity, SUM(CAST(weight * 1000 AS INTEGER)) AS weight_kg
		FROM shipments
		WHERE importer_name = ?1 OR exporter_name = ?1
		GROUP BY commodity
		ORDER BY weight_kg DESC
		LIMIT 5`, name)
}

func (s *Store) globalTopCommodities(ctx context.Context) ([]models.CommodityWeight, error) {
	return s.commodityRanking(ctx, `
		SELECT commodity, SUM(CAST(weight * 1000 AS INTEGER)) AS weight_kg
		FROM shipments
		GROUP BY commodity
		ORDER BY weight_kg DESC
		LIMIT 5`)
}

func (s *Store) commodityRanking(ctx context.Context, query string, args ...any) ([]models.CommodityWeight, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: commodity ranking: %w", err)
	}
	defer rows.Close()

	ranking := make([]models.CommodityWeight, 0, 5)
	for rows.Next() {
		var cw models.CommodityWeight
		if err := rows.Scan(&cw.Commodity, &cw.WeightKG); err != nil {
			return nil, fmt.Errorf("store: scan commodity: %w", err)
		}
		ranking = append(ranking, cw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: commodity ranking: %w", err)
	}
	return ranking, nil
}

// Stats computes the global snapshot. The four sub-queries are independent
// reads, so they fan out on an errgroup.
func (s *Store) Stats(ctx context.Context) (*models.StatsSnapshot, error) {
	var snapshot models.StatsSnapshot

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.QueryRowContext(ctx,
			`SELECT COUNT(DISTINCT importer_name) FROM shipments`).Scan(&snapshot.Importers)
	})
	g.Go(func() error {
		return s.db.QueryRowContext(ctx,
			`SELECT COUNT(DISTINCT exporter_name) FROM shipments`).Scan(&snapshot.Exporters)
	})
	g.Go(func() error {
		var err error
		snapshot.TopCommodities, err = s.globalTopCommodities(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		snapshot.MonthlyVolume, err = s.monthlyVolume(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("store: stats: %w", err)
	}
	return &snapshot, nil
}

// monthlyVolume groups all rows by calendar year-month, ordered
// chronologically. Labels render as "Jan 2006".
func (s *Store) monthlyVolume(ctx context.Context) ([]models.MonthlyVolume, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT substr(shipped_at, 1, 7) AS ym,
		       SUM(CAST(weight * 1000 AS INTEGER)) AS weight_kg
		FROM shipments
		GROUP BY ym
		ORDER BY ym`)
	if err != nil {
		return nil, fmt.Errorf("store: monthly volume: %w", err)
	}
	defer rows.Close()

	var series []models.MonthlyVolume
	for rows.Next() {
		var ym string
		var weightKG int64
		if err := rows.Scan(&ym, &weightKG); err != nil {
			return nil, fmt.Errorf("store: scan month: %w", err)
		}
		month, err := time.Parse("2006-01", ym)
		if err != nil {
			return nil, fmt.Errorf("store: bad month %q: %w", ym, err)
		}
		series = append(series, models.MonthlyVolume{
			Month:    month.Format("Jan 2006"),
			WeightKG: weightKG,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: monthly volume: %w", err)
	}
	return series, nil
}
