package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Shipment Analytics</title>
<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@latest/bundles/datastar.js"></script>
<style>
body { font-family: system-ui, sans-serif; margin: 0; background: #f5f6f8; color: #1c2530; }
header { background: #1c2530; color: #fff; padding: 1rem 2rem; }
main { padding: 2rem; display: grid; gap: 2rem; grid-template-columns: 2fr 1fr; }
section { background: #fff; border-radius: 8px; padding: 1.5rem; box-shadow: 0 1px 3px rgba(0,0,0,.08); }
.modern-table { width: 100%; border-collapse: collapse; }
.modern-table th, .modern-table td { padding: .5rem .75rem; text-align: left; border-bottom: 1px solid #e4e7eb; }
.country-badge { background: #e8f0fe; border-radius: 4px; padding: .1rem .4rem; font-size: .85em; }
.ranking-list li { margin: .4rem 0; }
.weight { color: #5b6b7b; font-size: .9em; }
.stat-card { display: inline-block; margin-right: 2rem; }
.stat-value { font-size: 2rem; font-weight: 700; display: block; }
.stat-label { color: #5b6b7b; }
</style>
</head>
<body>
<header><h1>Shipment Analytics</h1></header>
<main>
<section data-on-load="@get('/sse/companies')">
<h2>Companies</h2>
<div id="companies-content">Loading&hellip;</div>
</section>
<section data-on-load="@get('/sse/stats')">
<h2>Overview</h2>
<div id="stats-content">Loading&hellip;</div>
</section>
<section data-on-load="@get('/sse/commodities')">
<h2>Top Commodities</h2>
<div id="commodities-content">Loading&hellip;</div>
</section>
<section data-on-load="@get('/sse/monthly-volume')">
<h2>Monthly Volume</h2>
<div id="monthly-content">Loading&hellip;</div>
</section>
</main>
</body>
</html>`

// Dashboard is the server-rendered shell; the data sections hydrate
// themselves through the SSE fragment routes.
func Dashboard() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, dashboardHTML)
		return err
	})
}
